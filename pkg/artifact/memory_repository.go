package artifact

import (
	"context"
	"fmt"
	"sync"

	"github.com/yourorg/pdf-service/pkg/errors"
)

// MemoryRepository keeps records in a map. Used when no database is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]Artifact
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]Artifact)}
}

// Save stores copies of the records.
func (m *MemoryRepository) Save(ctx context.Context, artifacts ...*Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range artifacts {
		if _, exists := m.records[a.ID]; exists {
			return fmt.Errorf("artifact %s already exists", a.ID)
		}
	}
	for _, a := range artifacts {
		m.records[a.ID] = *a
	}
	return nil
}

// Get returns a copy of the stored record.
func (m *MemoryRepository) Get(ctx context.Context, id string) (*Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.records[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("artifact %s not found", id))
	}
	return &a, nil
}
