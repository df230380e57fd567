package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	application "subroflow/contexts/subrogation/demand-service/application"
	"subroflow/contexts/subrogation/demand-service/adapters/memory"
	"subroflow/contexts/subrogation/demand-service/domain/entities"
	"subroflow/contexts/subrogation/demand-service/ports"
)

func seedDeliveryFixture(t *testing.T, store *memory.Store, blobs *memory.BlobStore) (entities.Package, entities.CommunicationLog) {
	t.Helper()
	if err := store.CreateCase(context.Background(), entities.Case{
		ID:       "case-1",
		TenantID: "tenant-a",
		ClaimID:  "CLM-1001",
		Status:   entities.CaseStatusDraft,
	}); err != nil {
		t.Fatalf("seed case failed: %v", err)
	}

	pkg := entities.Package{
		ID:            "pkg-1",
		CaseID:        "case-1",
		TenantID:      "tenant-a",
		VersionNumber: 1,
		Status:        entities.PackageStatusGenerating,
	}
	if err := store.CreatePackage(context.Background(), pkg); err != nil {
		t.Fatalf("seed package failed: %v", err)
	}
	blobPath := application.PackageBlobPath(pkg.TenantID, pkg.ID)
	if err := store.UpdateGeneratedArtifact(context.Background(), pkg.ID, entities.GeneratedArtifact{
		BlobPath:  blobPath,
		Hash:      "deadbeef",
		SizeBytes: 24,
		PageCount: 2,
	}); err != nil {
		t.Fatalf("seed artifact failed: %v", err)
	}
	if err := blobs.Upload(context.Background(), application.ContainerPackages, blobPath, []byte("%PDF-1.7 demand package"), "application/pdf"); err != nil {
		t.Fatalf("seed blob failed: %v", err)
	}

	comm := entities.CommunicationLog{
		ID:             "comm-1",
		PackageID:      pkg.ID,
		TenantID:       pkg.TenantID,
		Action:         entities.CommunicationActionInitialDemand,
		Channel:        entities.CommunicationChannelEmail,
		RecipientsJSON: `["claims@thirdparty.example"]`,
		EmailSubject:   "Demand for claim CLM-1001",
		EmailBody:      "Please find the attached demand package.",
		FromAddress:    "noreply@subroflow.io",
		Status:         entities.CommunicationStatusQueued,
		InitiatedBy:    "adjuster-1",
		CreatedAt:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := store.CreateCommunication(context.Background(), comm); err != nil {
		t.Fatalf("seed communication failed: %v", err)
	}
	return pkg, comm
}

func deliveryMessage(t *testing.T, pkg entities.Package, comm entities.CommunicationLog) ports.QueueMessage {
	t.Helper()
	body, err := json.Marshal(application.EmailDeliveryMessage{
		CommunicationID: comm.ID,
		PackageID:       pkg.ID,
		TenantID:        pkg.TenantID,
		Recipients:      []string{"claims@thirdparty.example"},
		Subject:         comm.EmailSubject,
		Body:            comm.EmailBody,
		PDFBlobPath:     application.PackageBlobPath(pkg.TenantID, pkg.ID),
		RequestedAt:     time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("marshal message failed: %v", err)
	}
	return ports.QueueMessage{MessageID: "msg-1", ContentType: "application/json", Body: body, DeliveryCount: 1}
}

func TestEmailDeliveryHandleSends(t *testing.T) {
	store := memory.NewStore(nil)
	blobs := memory.NewBlobStore()
	sender := memory.NewEmailSender()
	pkg, comm := seedDeliveryFixture(t, store, blobs)

	fixed := time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)
	store.SetNow(func() time.Time { return fixed })

	consumer := EmailDeliveryConsumer{
		Cases:          store,
		Packages:       store,
		Communications: store,
		Objects:        blobs,
		Sender:         sender,
		Clock:          store,
		FromName:       "Subroflow Recovery",
	}

	if err := consumer.Handle(context.Background(), deliveryMessage(t, pkg, comm)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	stored, err := store.GetCommunication(context.Background(), comm.ID)
	if err != nil {
		t.Fatalf("get communication failed: %v", err)
	}
	if stored.Status != entities.CommunicationStatusSent {
		t.Fatalf("expected sent, got %s", stored.Status)
	}
	if stored.DeliveryTrackingID == "" {
		t.Fatal("tracking id missing")
	}
	if stored.SentAt == nil || !stored.SentAt.Equal(fixed) {
		t.Fatalf("expected sent_at %v, got %v", fixed, stored.SentAt)
	}

	sentPkg, err := store.GetPackage(context.Background(), pkg.ID)
	if err != nil {
		t.Fatalf("get package failed: %v", err)
	}
	if sentPkg.Status != entities.PackageStatusSent {
		t.Fatalf("expected package sent, got %s", sentPkg.Status)
	}

	sentCase, err := store.GetCase(context.Background(), pkg.CaseID)
	if err != nil {
		t.Fatalf("get case failed: %v", err)
	}
	if sentCase.Status != entities.CaseStatusDemandSent {
		t.Fatalf("expected case demand_sent, got %s", sentCase.Status)
	}
	if sentCase.ModifiedBy != comm.InitiatedBy {
		t.Fatalf("expected modifier %q, got %q", comm.InitiatedBy, sentCase.ModifiedBy)
	}

	outbound := sender.Sent()
	if len(outbound) != 1 {
		t.Fatalf("expected 1 email, got %d", len(outbound))
	}
	email := outbound[0]
	if len(email.To) != 1 || email.To[0] != "claims@thirdparty.example" {
		t.Fatalf("unexpected recipients: %v", email.To)
	}
	if len(email.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(email.Attachments))
	}
	if email.Attachments[0].FileName != "package.pdf" || email.Attachments[0].ContentType != "application/pdf" {
		t.Fatalf("unexpected attachment: %+v", email.Attachments[0])
	}
}

func TestEmailDeliveryHandleSkipsAlreadySent(t *testing.T) {
	store := memory.NewStore(nil)
	blobs := memory.NewBlobStore()
	sender := memory.NewEmailSender()
	pkg, comm := seedDeliveryFixture(t, store, blobs)

	consumer := EmailDeliveryConsumer{
		Cases:          store,
		Packages:       store,
		Communications: store,
		Objects:        blobs,
		Sender:         sender,
		Clock:          store,
	}

	msg := deliveryMessage(t, pkg, comm)
	if err := consumer.Handle(context.Background(), msg); err != nil {
		t.Fatalf("first handle failed: %v", err)
	}
	first, _ := store.GetCommunication(context.Background(), comm.ID)

	if err := consumer.Handle(context.Background(), msg); err != nil {
		t.Fatalf("redelivered handle failed: %v", err)
	}
	second, _ := store.GetCommunication(context.Background(), comm.ID)

	if len(sender.Sent()) != 1 {
		t.Fatalf("duplicate message must not re-send, got %d sends", len(sender.Sent()))
	}
	if first.SentAt == nil || second.SentAt == nil || !first.SentAt.Equal(*second.SentAt) {
		t.Fatalf("sent_at changed on redelivery: %v vs %v", first.SentAt, second.SentAt)
	}
}

func TestEmailDeliveryHandleRecordsFailure(t *testing.T) {
	store := memory.NewStore(nil)
	blobs := memory.NewBlobStore()
	sender := memory.NewEmailSender()
	pkg, comm := seedDeliveryFixture(t, store, blobs)

	smtpErr := errors.New("smtp connection refused")
	sender.Fail(smtpErr)

	consumer := EmailDeliveryConsumer{
		Cases:          store,
		Packages:       store,
		Communications: store,
		Objects:        blobs,
		Sender:         sender,
		Clock:          store,
	}

	err := consumer.Handle(context.Background(), deliveryMessage(t, pkg, comm))
	if !errors.Is(err, smtpErr) {
		t.Fatalf("expected smtp error re-raised, got %v", err)
	}

	stored, _ := store.GetCommunication(context.Background(), comm.ID)
	if stored.Status != entities.CommunicationStatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
	if stored.ErrorMessage != smtpErr.Error() {
		t.Fatalf("expected error recorded, got %q", stored.ErrorMessage)
	}

	sentPkg, _ := store.GetPackage(context.Background(), pkg.ID)
	if sentPkg.Status == entities.PackageStatusSent {
		t.Fatal("failed delivery must not mark package sent")
	}
	failedCase, _ := store.GetCase(context.Background(), pkg.CaseID)
	if failedCase.Status != entities.CaseStatusDraft {
		t.Fatalf("failed delivery must leave the case draft, got %s", failedCase.Status)
	}
}

func TestEmailDeliveryHandleKeepsAdvancedCaseStatus(t *testing.T) {
	store := memory.NewStore(nil)
	blobs := memory.NewBlobStore()
	sender := memory.NewEmailSender()
	pkg, comm := seedDeliveryFixture(t, store, blobs)

	if err := store.UpdateCaseStatus(context.Background(), pkg.CaseID, entities.CaseStatusNegotiating, "adjuster-2", store.Now()); err != nil {
		t.Fatalf("seed case status failed: %v", err)
	}

	consumer := EmailDeliveryConsumer{
		Cases:          store,
		Packages:       store,
		Communications: store,
		Objects:        blobs,
		Sender:         sender,
		Clock:          store,
	}
	if err := consumer.Handle(context.Background(), deliveryMessage(t, pkg, comm)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	stored, _ := store.GetCase(context.Background(), pkg.CaseID)
	if stored.Status != entities.CaseStatusNegotiating {
		t.Fatalf("follow-up delivery must not reset case status, got %s", stored.Status)
	}
}

func TestEmailDeliveryHandleDropsVanishedCommunication(t *testing.T) {
	store := memory.NewStore(nil)
	consumer := EmailDeliveryConsumer{
		Packages:       store,
		Communications: store,
		Objects:        memory.NewBlobStore(),
		Sender:         memory.NewEmailSender(),
		Clock:          store,
	}

	body, _ := json.Marshal(application.EmailDeliveryMessage{CommunicationID: "comm-gone"})
	err := consumer.Handle(context.Background(), ports.QueueMessage{MessageID: "msg-x", Body: body, DeliveryCount: 2})
	if err != nil {
		t.Fatalf("vanished communication should not re-raise, got %v", err)
	}
}
