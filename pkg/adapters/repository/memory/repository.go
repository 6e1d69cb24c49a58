package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wadjakorntonsri/pretty-links/pkg/core/domain"
	"github.com/wadjakorntonsri/pretty-links/pkg/ports"
)

// MemoryRepository keeps components in a map. Used for tests and ephemeral
// single-process deployments.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]domain.Component
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		store: make(map[string]domain.Component),
		now:   time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, component *domain.Component) error {
	if err := component.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[component.ID]; ok {
		return domain.NewDuplicateIDError(component.ID)
	}
	now := r.now()
	component.CreatedAt = now
	component.UpdatedAt = now
	r.store[component.ID] = *component
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*domain.Component, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("get", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *MemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Component, 0, len(r.store))
	for _, c := range r.store {
		if ownerID == "" || c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sortByName(out)
	return out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, id string, patch domain.ComponentPatch) (*domain.Component, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	next := patch.Apply(current)
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedAt = r.now()
	r.store[id] = next
	return &next, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.store, id)
	return nil
}

func (r *MemoryRepository) Dump(ctx context.Context) ([]domain.Component, error) {
	return r.ListByOwner(ctx, "")
}

func (r *MemoryRepository) Close() error {
	return nil
}

func sortByName(components []domain.Component) {
	sort.Slice(components, func(i, j int) bool {
		if components[i].Name == components[j].Name {
			return components[i].ID < components[j].ID
		}
		return components[i].Name < components[j].Name
	})
}

// Ensure interface compliance
var _ ports.ComponentRepository = (*MemoryRepository)(nil)
