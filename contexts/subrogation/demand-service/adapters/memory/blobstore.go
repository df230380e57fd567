package memory

import (
	"context"
	"sync"

	domainerrors "subroflow/contexts/subrogation/demand-service/domain/errors"
	"subroflow/contexts/subrogation/demand-service/ports"
)

// BlobStore keeps uploaded content in process memory, keyed by container
// and path the same way the bucket-backed store keys objects.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ ports.ObjectStore = (*BlobStore)(nil)

func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string][]byte)}
}

func (s *BlobStore) Upload(_ context.Context, container, path string, content []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[container+"/"+path] = append([]byte(nil), content...)
	return nil
}

func (s *BlobStore) Download(_ context.Context, container, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, exists := s.objects[container+"/"+path]
	if !exists {
		return nil, domainerrors.ErrDocumentNotFound
	}
	return append([]byte(nil), content...), nil
}

// Delete is idempotent: deleting a missing object succeeds, matching the
// bucket-backed store.
func (s *BlobStore) Delete(_ context.Context, container, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, container+"/"+path)
	return nil
}

// Exists reports whether an object is present; used by tests.
func (s *BlobStore) Exists(container, path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.objects[container+"/"+path]
	return exists
}
