package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"subroflow/contexts/subrogation/demand-service/domain/entities"
	domainerrors "subroflow/contexts/subrogation/demand-service/domain/errors"
	"subroflow/contexts/subrogation/demand-service/ports"
)

// Store is the in-memory repository used by tests and the in-memory module
// wiring. It also serves as Clock and IDGenerator.
type Store struct {
	mu sync.RWMutex

	cases          map[string]entities.Case
	packages       map[string]entities.Package
	documents      map[string]entities.Document
	communications map[string]entities.CommunicationLog

	now func() time.Time
}

var (
	_ ports.CaseRepository          = (*Store)(nil)
	_ ports.PackageRepository       = (*Store)(nil)
	_ ports.CommunicationRepository = (*Store)(nil)
	_ ports.Clock                   = (*Store)(nil)
	_ ports.IDGenerator             = (*Store)(nil)
)

func NewStore(seed []entities.Case) *Store {
	cases := make(map[string]entities.Case, len(seed))
	for _, item := range seed {
		cases[item.ID] = item
	}
	return &Store{
		cases:          cases,
		packages:       make(map[string]entities.Package),
		documents:      make(map[string]entities.Document),
		communications: make(map[string]entities.CommunicationLog),
	}
}

// SetNow pins the clock for deterministic tests.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) CreateCase(_ context.Context, c entities.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cases[c.ID]; exists {
		return domainerrors.ErrInvalidInput
	}
	s.cases[c.ID] = c
	return nil
}

func (s *Store) GetCase(_ context.Context, caseID string) (entities.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.cases[strings.TrimSpace(caseID)]
	if !exists {
		return entities.Case{}, domainerrors.ErrCaseNotFound
	}
	return item, nil
}

func (s *Store) ListCasesByTenant(_ context.Context, tenantID string, offset, limit int) ([]entities.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Case, 0)
	for _, item := range s.cases {
		if item.TenantID == strings.TrimSpace(tenantID) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if offset >= len(items) {
		return []entities.Case{}, nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) UpdateCaseStatus(_ context.Context, caseID string, status entities.CaseStatus, modifiedBy string, modifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.cases[strings.TrimSpace(caseID)]
	if !exists {
		return domainerrors.ErrCaseNotFound
	}
	item.Status = status
	item.ModifiedBy = modifiedBy
	at := modifiedAt.UTC()
	item.ModifiedAt = &at
	s.cases[item.ID] = item
	return nil
}

func (s *Store) CreatePackage(_ context.Context, p entities.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.packages[p.ID]; exists {
		return domainerrors.ErrInvalidInput
	}
	for _, existing := range s.packages {
		if existing.CaseID == p.CaseID && existing.VersionNumber == p.VersionNumber {
			return domainerrors.ErrInvalidInput
		}
	}
	p.Documents = nil
	s.packages[p.ID] = p
	return nil
}

func (s *Store) GetPackage(_ context.Context, packageID string) (entities.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.packages[strings.TrimSpace(packageID)]
	if !exists {
		return entities.Package{}, domainerrors.ErrPackageNotFound
	}
	return item, nil
}

func (s *Store) GetPackageWithDocuments(_ context.Context, packageID string) (entities.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.packages[strings.TrimSpace(packageID)]
	if !exists {
		return entities.Package{}, domainerrors.ErrPackageNotFound
	}
	docs := make([]entities.Document, 0)
	for _, doc := range s.documents {
		if doc.PackageID == item.ID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].DisplayOrder != docs[j].DisplayOrder {
			return docs[i].DisplayOrder < docs[j].DisplayOrder
		}
		return docs[i].UploadedAt.Before(docs[j].UploadedAt)
	})
	item.Documents = docs
	return item, nil
}

func (s *Store) ListPackagesByCase(_ context.Context, caseID string) ([]entities.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Package, 0)
	for _, item := range s.packages {
		if item.CaseID == strings.TrimSpace(caseID) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].VersionNumber > items[j].VersionNumber
	})
	return items, nil
}

func (s *Store) LatestPackageVersion(_ context.Context, caseID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := 0
	for _, item := range s.packages {
		if item.CaseID == strings.TrimSpace(caseID) && item.VersionNumber > latest {
			latest = item.VersionNumber
		}
	}
	return latest, nil
}

func (s *Store) UpdatePackageStatus(_ context.Context, packageID string, status entities.PackageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.packages[strings.TrimSpace(packageID)]
	if !exists {
		return domainerrors.ErrPackageNotFound
	}
	if !item.Status.CanTransitionTo(status) {
		return domainerrors.ErrInvalidTransition
	}
	item.Status = status
	s.packages[item.ID] = item
	return nil
}

func (s *Store) UpdateGeneratedArtifact(_ context.Context, packageID string, artifact entities.GeneratedArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.packages[strings.TrimSpace(packageID)]
	if !exists {
		return domainerrors.ErrPackageNotFound
	}
	// A sent package keeps its delivered artifact; any earlier status may
	// still be overwritten by a converging or recovered generation.
	if item.Status == entities.PackageStatusSent {
		return domainerrors.ErrInvalidTransition
	}
	item.Status = entities.PackageStatusGenerated
	item.GeneratedPDFPath = artifact.BlobPath
	item.PDFHash = artifact.Hash
	item.PDFSizeBytes = artifact.SizeBytes
	item.PageCount = artifact.PageCount
	s.packages[item.ID] = item
	return nil
}

func (s *Store) AddDocument(_ context.Context, d entities.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.documents[d.ID]; exists {
		return domainerrors.ErrInvalidInput
	}
	if _, exists := s.packages[d.PackageID]; !exists {
		return domainerrors.ErrPackageNotFound
	}
	s.documents[d.ID] = d
	return nil
}

func (s *Store) GetDocument(_ context.Context, documentID string) (entities.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.documents[strings.TrimSpace(documentID)]
	if !exists {
		return entities.Document{}, domainerrors.ErrDocumentNotFound
	}
	return item, nil
}

func (s *Store) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.documents[strings.TrimSpace(documentID)]; !exists {
		return domainerrors.ErrDocumentNotFound
	}
	delete(s.documents, strings.TrimSpace(documentID))
	return nil
}

func (s *Store) UpdateDocumentOrder(_ context.Context, orders map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for documentID := range orders {
		if _, exists := s.documents[documentID]; !exists {
			return domainerrors.ErrDocumentNotFound
		}
	}
	for documentID, displayOrder := range orders {
		item := s.documents[documentID]
		item.DisplayOrder = displayOrder
		s.documents[documentID] = item
	}
	return nil
}

func (s *Store) CreateCommunication(_ context.Context, log entities.CommunicationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.communications[log.ID]; exists {
		return domainerrors.ErrInvalidInput
	}
	s.communications[log.ID] = log
	return nil
}

func (s *Store) GetCommunication(_ context.Context, communicationID string) (entities.CommunicationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.communications[strings.TrimSpace(communicationID)]
	if !exists {
		return entities.CommunicationLog{}, domainerrors.ErrCommunicationNotFound
	}
	return item, nil
}

func (s *Store) ListCommunicationsByPackage(_ context.Context, packageID string) ([]entities.CommunicationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.CommunicationLog, 0)
	for _, item := range s.communications {
		if item.PackageID == strings.TrimSpace(packageID) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) UpdateCommunicationStatus(_ context.Context, communicationID string, status entities.CommunicationStatus, trackingID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.communications[strings.TrimSpace(communicationID)]
	if !exists {
		return domainerrors.ErrCommunicationNotFound
	}
	item.Status = status
	if strings.TrimSpace(trackingID) != "" {
		item.DeliveryTrackingID = strings.TrimSpace(trackingID)
	}
	timestamp := at.UTC()
	switch status {
	case entities.CommunicationStatusSent:
		if item.SentAt == nil {
			item.SentAt = &timestamp
		}
	case entities.CommunicationStatusDelivered:
		if item.DeliveredAt == nil {
			item.DeliveredAt = &timestamp
		}
	}
	s.communications[item.ID] = item
	return nil
}

func (s *Store) UpdateCommunicationError(_ context.Context, communicationID string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.communications[strings.TrimSpace(communicationID)]
	if !exists {
		return domainerrors.ErrCommunicationNotFound
	}
	item.ErrorMessage = message
	s.communications[item.ID] = item
	return nil
}
