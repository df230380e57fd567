package commands

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	application "subroflow/contexts/subrogation/demand-service/application"
	"subroflow/contexts/subrogation/demand-service/adapters/memory"
	"subroflow/contexts/subrogation/demand-service/domain/entities"
	domainerrors "subroflow/contexts/subrogation/demand-service/domain/errors"
)

type sentMessage struct {
	queue   string
	payload any
}

type recordingQueue struct {
	sent []sentMessage
}

func (q *recordingQueue) Send(_ context.Context, queue string, payload any) error {
	q.sent = append(q.sent, sentMessage{queue: queue, payload: payload})
	return nil
}

func (q *recordingQueue) SendDelayed(ctx context.Context, queue string, payload any, _ time.Time) error {
	return q.Send(ctx, queue, payload)
}

func newFixture(t *testing.T) (UseCase, *memory.Store, *memory.BlobStore, *recordingQueue) {
	t.Helper()
	store := memory.NewStore(nil)
	blobs := memory.NewBlobStore()
	queue := &recordingQueue{}
	uc := UseCase{
		Cases:          store,
		Packages:       store,
		Communications: store,
		Objects:        blobs,
		Queue:          queue,
		Clock:          store,
		IDGen:          store,
		Logger:         nil,
	}
	return uc, store, blobs, queue
}

func seedCase(t *testing.T, uc UseCase, identity application.Identity) entities.Case {
	t.Helper()
	created, err := uc.CreateCase(context.Background(), identity, CreateCaseCommand{
		ClaimID:        "CLM-1001",
		PolicyNumber:   "POL-88",
		LossDate:       time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		RecoverySought: "12500.00",
	})
	if err != nil {
		t.Fatalf("seed case failed: %v", err)
	}
	return created
}

func seedPackage(t *testing.T, uc UseCase, identity application.Identity, caseID string) entities.Package {
	t.Helper()
	pkg, err := uc.CreatePackage(context.Background(), identity, CreatePackageCommand{CaseID: caseID})
	if err != nil {
		t.Fatalf("seed package failed: %v", err)
	}
	return pkg
}

func TestCreatePackageAssignsNextVersion(t *testing.T) {
	uc, _, _, _ := newFixture(t)
	identity := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	created := seedCase(t, uc, identity)

	first := seedPackage(t, uc, identity, created.ID)
	second := seedPackage(t, uc, identity, created.ID)

	if first.VersionNumber != 1 {
		t.Fatalf("expected first version 1, got %d", first.VersionNumber)
	}
	if second.VersionNumber != 2 {
		t.Fatalf("expected second version 2, got %d", second.VersionNumber)
	}
	if first.Status != entities.PackageStatusDraft {
		t.Fatalf("expected draft status, got %s", first.Status)
	}
}

func TestCreatePackageRejectsForeignTenant(t *testing.T) {
	uc, _, _, _ := newFixture(t)
	owner := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	created := seedCase(t, uc, owner)

	intruder := application.Identity{UserID: "adjuster-2", TenantID: "tenant-b"}
	_, err := uc.CreatePackage(context.Background(), intruder, CreatePackageCommand{CaseID: created.ID})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateCaseStatusAdvancesLifecycle(t *testing.T) {
	uc, store, _, _ := newFixture(t)
	identity := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	created := seedCase(t, uc, identity)

	updated, err := uc.UpdateCaseStatus(context.Background(), identity, UpdateCaseStatusCommand{
		CaseID: created.ID,
		Status: entities.CaseStatusNegotiating,
	})
	if err != nil {
		t.Fatalf("update case status failed: %v", err)
	}
	if updated.Status != entities.CaseStatusNegotiating {
		t.Fatalf("expected negotiating, got %s", updated.Status)
	}
	if updated.ModifiedBy != "adjuster-1" || updated.ModifiedAt == nil {
		t.Fatalf("modifier not stamped: %q %v", updated.ModifiedBy, updated.ModifiedAt)
	}

	stored, err := store.GetCase(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get case failed: %v", err)
	}
	if stored.Status != entities.CaseStatusNegotiating {
		t.Fatalf("expected stored status negotiating, got %s", stored.Status)
	}
}

func TestUpdateCaseStatusRejectsUnknownStatus(t *testing.T) {
	uc, _, _, _ := newFixture(t)
	identity := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	created := seedCase(t, uc, identity)

	_, err := uc.UpdateCaseStatus(context.Background(), identity, UpdateCaseStatusCommand{
		CaseID: created.ID,
		Status: entities.CaseStatus("escalated"),
	})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestUpdateCaseStatusRejectsForeignTenant(t *testing.T) {
	uc, store, _, _ := newFixture(t)
	owner := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	created := seedCase(t, uc, owner)

	intruder := application.Identity{UserID: "adjuster-2", TenantID: "tenant-b"}
	_, err := uc.UpdateCaseStatus(context.Background(), intruder, UpdateCaseStatusCommand{
		CaseID: created.ID,
		Status: entities.CaseStatusSettled,
	})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	stored, _ := store.GetCase(context.Background(), created.ID)
	if stored.Status != entities.CaseStatusDraft {
		t.Fatalf("rejected update must not change status, got %s", stored.Status)
	}
}

func TestRequestGenerationEnqueues(t *testing.T) {
	uc, store, _, queue := newFixture(t)
	identity := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	created := seedCase(t, uc, identity)
	pkg := seedPackage(t, uc, identity, created.ID)

	result, err := uc.RequestGeneration(context.Background(), identity, RequestGenerationCommand{PackageID: pkg.ID})
	if err != nil {
		t.Fatalf("request generation failed: %v", err)
	}
	if result.Status != entities.PackageStatusGenerating {
		t.Fatalf("expected generating, got %s", result.Status)
	}

	stored, err := store.GetPackage(context.Background(), pkg.ID)
	if err != nil {
		t.Fatalf("get package failed: %v", err)
	}
	if stored.Status != entities.PackageStatusGenerating {
		t.Fatalf("expected stored status generating, got %s", stored.Status)
	}

	if len(queue.sent) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(queue.sent))
	}
	if queue.sent[0].queue != application.QueuePDFGeneration {
		t.Fatalf("expected pdf-generation queue, got %s", queue.sent[0].queue)
	}
	message, ok := queue.sent[0].payload.(application.PDFGenerationMessage)
	if !ok {
		t.Fatalf("unexpected payload type %T", queue.sent[0].payload)
	}
	if message.PackageID != pkg.ID || message.TenantID != "tenant-a" || message.CaseID != created.ID {
		t.Fatalf("message ids wrong: %+v", message)
	}
}

func TestRequestDeliveryRequiresGeneratedPackage(t *testing.T) {
	uc, store, _, queue := newFixture(t)
	identity := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	created := seedCase(t, uc, identity)
	pkg := seedPackage(t, uc, identity, created.ID)

	_, err := uc.RequestDelivery(context.Background(), identity, RequestDeliveryCommand{
		PackageID:  pkg.ID,
		Recipients: []string{"claims@thirdparty.example"},
		Subject:    "Demand for claim CLM-1001",
	})
	if !errors.Is(err, domainerrors.ErrPackageNotGenerated) {
		t.Fatalf("expected package not generated, got %v", err)
	}
	if len(queue.sent) != 0 {
		t.Fatalf("rejected delivery must not enqueue, got %d messages", len(queue.sent))
	}
	logs, err := store.ListCommunicationsByPackage(context.Background(), pkg.ID)
	if err != nil {
		t.Fatalf("list communications failed: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("rejected delivery must not log a communication, got %d", len(logs))
	}
}

func TestRequestDeliveryQueuesCommunication(t *testing.T) {
	uc, store, _, queue := newFixture(t)
	identity := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	created := seedCase(t, uc, identity)
	pkg := seedPackage(t, uc, identity, created.ID)

	artifact := entities.GeneratedArtifact{
		BlobPath:  application.PackageBlobPath("tenant-a", pkg.ID),
		Hash:      "abc123",
		SizeBytes: 2048,
		PageCount: 3,
	}
	if err := store.UpdateGeneratedArtifact(context.Background(), pkg.ID, artifact); err != nil {
		t.Fatalf("mark generated failed: %v", err)
	}

	comm, err := uc.RequestDelivery(context.Background(), identity, RequestDeliveryCommand{
		PackageID:    pkg.ID,
		Recipients:   []string{"claims@thirdparty.example"},
		CcRecipients: []string{"supervisor@carrier.example"},
		Subject:      "Demand for claim CLM-1001",
		Body:         "Please find the attached demand package.",
	})
	if err != nil {
		t.Fatalf("request delivery failed: %v", err)
	}
	if comm.Status != entities.CommunicationStatusQueued {
		t.Fatalf("expected queued communication, got %s", comm.Status)
	}

	var recipients []string
	if err := json.Unmarshal([]byte(comm.RecipientsJSON), &recipients); err != nil {
		t.Fatalf("recipients json invalid: %v", err)
	}
	if len(recipients) != 1 || recipients[0] != "claims@thirdparty.example" {
		t.Fatalf("unexpected recipients: %v", recipients)
	}

	if len(queue.sent) != 1 || queue.sent[0].queue != application.QueueEmailDelivery {
		t.Fatalf("expected 1 email-delivery message, got %+v", queue.sent)
	}
	message, ok := queue.sent[0].payload.(application.EmailDeliveryMessage)
	if !ok {
		t.Fatalf("unexpected payload type %T", queue.sent[0].payload)
	}
	if message.CommunicationID != comm.ID || message.PDFBlobPath != artifact.BlobPath {
		t.Fatalf("message fields wrong: %+v", message)
	}
}

func TestUploadDocumentRejectsTypeBeforeStore(t *testing.T) {
	uc, _, blobs, _ := newFixture(t)
	identity := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	created := seedCase(t, uc, identity)
	pkg := seedPackage(t, uc, identity, created.ID)

	_, err := uc.UploadDocument(context.Background(), identity, UploadDocumentCommand{
		PackageID:   pkg.ID,
		FileName:    "payload.exe",
		ContentType: "application/octet-stream",
		Content:     []byte{0x4d, 0x5a},
	})
	if !errors.Is(err, domainerrors.ErrUnsupportedFileType) {
		t.Fatalf("expected unsupported file type, got %v", err)
	}
	rejectedPath := application.DocumentBlobPath("tenant-a", pkg.ID, "payload.exe")
	if blobs.Exists(application.ContainerDocuments, rejectedPath) {
		t.Fatal("rejected upload must not reach the object store")
	}
}

func TestUploadDocumentRejectsOversize(t *testing.T) {
	uc, _, _, _ := newFixture(t)
	identity := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	created := seedCase(t, uc, identity)
	pkg := seedPackage(t, uc, identity, created.ID)

	_, err := uc.UploadDocument(context.Background(), identity, UploadDocumentCommand{
		PackageID:   pkg.ID,
		FileName:    "huge.pdf",
		ContentType: "application/pdf",
		Content:     make([]byte, maxUploadBytes+1),
	})
	if !errors.Is(err, domainerrors.ErrFileTooLarge) {
		t.Fatalf("expected file too large, got %v", err)
	}
}

func TestUploadThenDeleteDocumentRemovesBlob(t *testing.T) {
	uc, store, blobs, _ := newFixture(t)
	identity := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	created := seedCase(t, uc, identity)
	pkg := seedPackage(t, uc, identity, created.ID)

	doc, err := uc.UploadDocument(context.Background(), identity, UploadDocumentCommand{
		PackageID:   pkg.ID,
		FileName:    "estimate.pdf",
		Kind:        entities.DocumentKindEstimate,
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.7 estimate"),
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if !blobs.Exists(application.ContainerDocuments, doc.BlobPath) {
		t.Fatal("uploaded content missing from object store")
	}
	if doc.DisplayOrder != 1 {
		t.Fatalf("expected display order 1, got %d", doc.DisplayOrder)
	}

	if err := uc.DeleteDocument(context.Background(), identity, DeleteDocumentCommand{DocumentID: doc.ID}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if blobs.Exists(application.ContainerDocuments, doc.BlobPath) {
		t.Fatal("blob should be removed with the document")
	}
	if _, err := store.GetDocument(context.Background(), doc.ID); !errors.Is(err, domainerrors.ErrDocumentNotFound) {
		t.Fatalf("expected document gone, got %v", err)
	}
}

func TestReorderDocumentsRejectsForeignDocument(t *testing.T) {
	uc, _, _, _ := newFixture(t)
	identity := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	created := seedCase(t, uc, identity)
	pkg := seedPackage(t, uc, identity, created.ID)

	err := uc.ReorderDocuments(context.Background(), identity, ReorderDocumentsCommand{
		PackageID: pkg.ID,
		Orders:    map[string]int{"not-a-document": 1},
	})
	if !errors.Is(err, domainerrors.ErrDocumentNotFound) {
		t.Fatalf("expected document not found, got %v", err)
	}
}
