package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	application "subroflow/contexts/subrogation/demand-service/application"
	"subroflow/contexts/subrogation/demand-service/adapters/memory"
	"subroflow/contexts/subrogation/demand-service/domain/entities"
	domainerrors "subroflow/contexts/subrogation/demand-service/domain/errors"
)

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore([]entities.Case{
		{ID: "case-a", TenantID: "tenant-a", ClaimID: "CLM-1", Status: entities.CaseStatusDraft, CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "case-b", TenantID: "tenant-b", ClaimID: "CLM-2", Status: entities.CaseStatusDraft, CreatedAt: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)},
	})
	if err := store.CreatePackage(context.Background(), entities.Package{
		ID:            "pkg-a",
		CaseID:        "case-a",
		TenantID:      "tenant-a",
		VersionNumber: 1,
		Status:        entities.PackageStatusDraft,
	}); err != nil {
		t.Fatalf("seed package failed: %v", err)
	}
	return store
}

func TestListCasesScopedToTenant(t *testing.T) {
	store := seedStore(t)
	uc := UseCase{Cases: store, Packages: store, Communications: store}

	identity := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	items, err := uc.ListCases(context.Background(), identity, "", 0, 0)
	if err != nil {
		t.Fatalf("list cases failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "case-a" {
		t.Fatalf("expected only tenant-a cases, got %+v", items)
	}
}

func TestListCasesWithoutTenantRejected(t *testing.T) {
	store := seedStore(t)
	uc := UseCase{Cases: store, Packages: store, Communications: store}

	identity := application.Identity{UserID: "adjuster-1"}
	_, err := uc.ListCases(context.Background(), identity, "", 0, 0)
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestGetPackageGuardsTenant(t *testing.T) {
	store := seedStore(t)
	uc := UseCase{Cases: store, Packages: store, Communications: store}

	intruder := application.Identity{UserID: "adjuster-2", TenantID: "tenant-b"}
	_, err := uc.GetPackage(context.Background(), intruder, "", "pkg-a", false)
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListPackagesByCaseGuardsCaseFirst(t *testing.T) {
	store := seedStore(t)
	uc := UseCase{Cases: store, Packages: store, Communications: store}

	intruder := application.Identity{UserID: "adjuster-2", TenantID: "tenant-b"}
	_, err := uc.ListPackagesByCase(context.Background(), intruder, "", "case-a")
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	owner := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	items, err := uc.ListPackagesByCase(context.Background(), owner, "", "case-a")
	if err != nil {
		t.Fatalf("list packages failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "pkg-a" {
		t.Fatalf("expected pkg-a, got %+v", items)
	}
}

func TestGetPackageWithDocumentsOrdersByDisplayOrder(t *testing.T) {
	store := seedStore(t)
	uc := UseCase{Cases: store, Packages: store, Communications: store}

	uploaded := time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC)
	docs := []entities.Document{
		{ID: "doc-2", PackageID: "pkg-a", DocumentName: "photos.pdf", Kind: entities.DocumentKindPhoto, DisplayOrder: 2, IsIncluded: true, UploadedAt: uploaded},
		{ID: "doc-1", PackageID: "pkg-a", DocumentName: "estimate.pdf", Kind: entities.DocumentKindEstimate, DisplayOrder: 1, IsIncluded: true, UploadedAt: uploaded},
	}
	for _, doc := range docs {
		if err := store.AddDocument(context.Background(), doc); err != nil {
			t.Fatalf("seed document failed: %v", err)
		}
	}

	owner := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	pkg, err := uc.GetPackage(context.Background(), owner, "", "pkg-a", true)
	if err != nil {
		t.Fatalf("get package failed: %v", err)
	}
	if len(pkg.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(pkg.Documents))
	}
	if pkg.Documents[0].ID != "doc-1" || pkg.Documents[1].ID != "doc-2" {
		t.Fatalf("documents out of order: %s, %s", pkg.Documents[0].ID, pkg.Documents[1].ID)
	}
}
