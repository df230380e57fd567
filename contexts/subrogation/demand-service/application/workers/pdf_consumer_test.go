package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
	"time"

	application "subroflow/contexts/subrogation/demand-service/application"
	"subroflow/contexts/subrogation/demand-service/adapters/memory"
	"subroflow/contexts/subrogation/demand-service/domain/entities"
	"subroflow/contexts/subrogation/demand-service/ports"
)

type stubRenderer struct {
	content []byte
	pages   int
	err     error
}

func (r stubRenderer) Render(_ entities.Case, _ entities.Package) ([]byte, int, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	return r.content, r.pages, nil
}

func seedGenerationFixture(t *testing.T, store *memory.Store) (entities.Case, entities.Package) {
	t.Helper()
	owningCase := entities.Case{
		ID:       "case-1",
		TenantID: "tenant-a",
		ClaimID:  "CLM-1001",
		Status:   entities.CaseStatusDraft,
	}
	if err := store.CreateCase(context.Background(), owningCase); err != nil {
		t.Fatalf("seed case failed: %v", err)
	}
	pkg := entities.Package{
		ID:            "pkg-1",
		CaseID:        owningCase.ID,
		TenantID:      owningCase.TenantID,
		VersionNumber: 1,
		Status:        entities.PackageStatusGenerating,
	}
	if err := store.CreatePackage(context.Background(), pkg); err != nil {
		t.Fatalf("seed package failed: %v", err)
	}
	return owningCase, pkg
}

func generationMessage(t *testing.T, pkg entities.Package, deliveryCount int) ports.QueueMessage {
	t.Helper()
	body, err := json.Marshal(application.PDFGenerationMessage{
		PackageID:   pkg.ID,
		TenantID:    pkg.TenantID,
		CaseID:      pkg.CaseID,
		RequestedBy: "adjuster-1",
		RequestedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("marshal message failed: %v", err)
	}
	return ports.QueueMessage{
		MessageID:     "msg-1",
		ContentType:   "application/json",
		Body:          body,
		DeliveryCount: deliveryCount,
	}
}

func TestPDFGenerationHandleRecordsArtifact(t *testing.T) {
	store := memory.NewStore(nil)
	blobs := memory.NewBlobStore()
	_, pkg := seedGenerationFixture(t, store)

	content := []byte("%PDF-1.7 rendered demand package")
	consumer := PDFGenerationConsumer{
		Cases:    store,
		Packages: store,
		Objects:  blobs,
		Renderer: stubRenderer{content: content, pages: 4},
		Clock:    store,
	}

	if err := consumer.Handle(context.Background(), generationMessage(t, pkg, 1)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	stored, err := store.GetPackage(context.Background(), pkg.ID)
	if err != nil {
		t.Fatalf("get package failed: %v", err)
	}
	if stored.Status != entities.PackageStatusGenerated {
		t.Fatalf("expected generated, got %s", stored.Status)
	}

	wantPath := application.PackageBlobPath(pkg.TenantID, pkg.ID)
	if stored.GeneratedPDFPath != wantPath {
		t.Fatalf("expected blob path %q, got %q", wantPath, stored.GeneratedPDFPath)
	}
	if !blobs.Exists(application.ContainerPackages, wantPath) {
		t.Fatal("rendered pdf missing from object store")
	}

	digest := sha256.Sum256(content)
	if stored.PDFHash != hex.EncodeToString(digest[:]) {
		t.Fatalf("hash mismatch: %q", stored.PDFHash)
	}
	if stored.PDFSizeBytes != int64(len(content)) {
		t.Fatalf("expected size %d, got %d", len(content), stored.PDFSizeBytes)
	}
	if stored.PageCount != 4 {
		t.Fatalf("expected 4 pages, got %d", stored.PageCount)
	}
}

func TestPDFGenerationHandleIdempotentOnRedelivery(t *testing.T) {
	store := memory.NewStore(nil)
	blobs := memory.NewBlobStore()
	_, pkg := seedGenerationFixture(t, store)

	consumer := PDFGenerationConsumer{
		Cases:    store,
		Packages: store,
		Objects:  blobs,
		Renderer: stubRenderer{content: []byte("%PDF-1.7 stable output"), pages: 2},
		Clock:    store,
	}

	if err := consumer.Handle(context.Background(), generationMessage(t, pkg, 1)); err != nil {
		t.Fatalf("first handle failed: %v", err)
	}
	first, _ := store.GetPackage(context.Background(), pkg.ID)

	if err := consumer.Handle(context.Background(), generationMessage(t, pkg, 2)); err != nil {
		t.Fatalf("redelivered handle failed: %v", err)
	}
	second, _ := store.GetPackage(context.Background(), pkg.ID)

	if first.PDFHash != second.PDFHash || first.GeneratedPDFPath != second.GeneratedPDFPath {
		t.Fatalf("redelivery diverged: %q vs %q", first.PDFHash, second.PDFHash)
	}
}

type faultyObjectStore struct {
	*memory.BlobStore
	uploadErr error
}

func (s faultyObjectStore) Upload(ctx context.Context, container, path string, content []byte, contentType string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	return s.BlobStore.Upload(ctx, container, path, content, contentType)
}

func TestPDFGenerationRedeliveryUploadFailureKeepsArtifact(t *testing.T) {
	store := memory.NewStore(nil)
	blobs := memory.NewBlobStore()
	_, pkg := seedGenerationFixture(t, store)

	consumer := PDFGenerationConsumer{
		Cases:    store,
		Packages: store,
		Objects:  blobs,
		Renderer: stubRenderer{content: []byte("%PDF-1.7 stable output"), pages: 2},
		Clock:    store,
	}
	if err := consumer.Handle(context.Background(), generationMessage(t, pkg, 1)); err != nil {
		t.Fatalf("first handle failed: %v", err)
	}
	generated, _ := store.GetPackage(context.Background(), pkg.ID)
	if generated.Status != entities.PackageStatusGenerated {
		t.Fatalf("expected generated, got %s", generated.Status)
	}

	uploadErr := errors.New("object store unavailable")
	consumer.Objects = faultyObjectStore{BlobStore: blobs, uploadErr: uploadErr}

	err := consumer.Handle(context.Background(), generationMessage(t, pkg, 2))
	if !errors.Is(err, uploadErr) {
		t.Fatalf("expected upload error re-raised, got %v", err)
	}

	stored, _ := store.GetPackage(context.Background(), pkg.ID)
	if stored.Status != entities.PackageStatusGenerated {
		t.Fatalf("redelivery failure must not regress a generated package, got %s", stored.Status)
	}
	if stored.PDFHash != generated.PDFHash || stored.GeneratedPDFPath != generated.GeneratedPDFPath {
		t.Fatalf("artifact changed: %q vs %q", stored.PDFHash, generated.PDFHash)
	}
}

func TestPDFGenerationHandleLeavesSentPackageAlone(t *testing.T) {
	store := memory.NewStore(nil)
	blobs := memory.NewBlobStore()
	_, pkg := seedGenerationFixture(t, store)

	consumer := PDFGenerationConsumer{
		Cases:    store,
		Packages: store,
		Objects:  blobs,
		Renderer: stubRenderer{content: []byte("%PDF-1.7 stale render"), pages: 1},
		Clock:    store,
	}
	if err := store.UpdateGeneratedArtifact(context.Background(), pkg.ID, entities.GeneratedArtifact{
		BlobPath:  "tenant-a/pkg-1/package.pdf",
		Hash:      "cafef00d",
		SizeBytes: 10,
		PageCount: 3,
	}); err != nil {
		t.Fatalf("seed artifact failed: %v", err)
	}
	if err := store.UpdatePackageStatus(context.Background(), pkg.ID, entities.PackageStatusSent); err != nil {
		t.Fatalf("seed sent status failed: %v", err)
	}

	if err := consumer.Handle(context.Background(), generationMessage(t, pkg, 3)); err != nil {
		t.Fatalf("stale redelivery should not re-raise, got %v", err)
	}

	stored, _ := store.GetPackage(context.Background(), pkg.ID)
	if stored.Status != entities.PackageStatusSent {
		t.Fatalf("expected sent preserved, got %s", stored.Status)
	}
	if stored.PDFHash != "cafef00d" {
		t.Fatalf("delivered artifact overwritten: %q", stored.PDFHash)
	}
}

func TestPDFGenerationHandleMarksFailedAndReRaises(t *testing.T) {
	store := memory.NewStore(nil)
	blobs := memory.NewBlobStore()
	_, pkg := seedGenerationFixture(t, store)

	renderErr := errors.New("render blew up")
	consumer := PDFGenerationConsumer{
		Cases:    store,
		Packages: store,
		Objects:  blobs,
		Renderer: stubRenderer{err: renderErr},
		Clock:    store,
	}

	err := consumer.Handle(context.Background(), generationMessage(t, pkg, 1))
	if !errors.Is(err, renderErr) {
		t.Fatalf("expected render error re-raised, got %v", err)
	}

	stored, _ := store.GetPackage(context.Background(), pkg.ID)
	if stored.Status != entities.PackageStatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
}

func TestPDFGenerationHandleDropsVanishedPackage(t *testing.T) {
	store := memory.NewStore(nil)
	consumer := PDFGenerationConsumer{
		Cases:    store,
		Packages: store,
		Objects:  memory.NewBlobStore(),
		Renderer: stubRenderer{content: []byte("unused"), pages: 1},
		Clock:    store,
	}

	missing := entities.Package{ID: "pkg-gone", CaseID: "case-gone", TenantID: "tenant-a"}
	if err := consumer.Handle(context.Background(), generationMessage(t, missing, 3)); err != nil {
		t.Fatalf("vanished package should not re-raise, got %v", err)
	}
}
