package ports

import (
	"context"

	"github.com/wadjakorntonsri/pretty-links/pkg/core/domain"
)

// ComponentRepository is the Record Store. Every backend must report misses
// as domain.ErrNotFound and backend failures as *domain.StorageError.
type ComponentRepository interface {
	Create(ctx context.Context, component *domain.Component) error
	Get(ctx context.Context, id string) (*domain.Component, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Component, error) // empty ownerID lists all
	Update(ctx context.Context, id string, patch domain.ComponentPatch) (*domain.Component, error)
	Delete(ctx context.Context, id string) error // idempotent
	Dump(ctx context.Context) ([]domain.Component, error) // For migration
	Close() error
}

// ComponentService defines the management operations behind the JSON API
type ComponentService interface {
	Create(ctx context.Context, p domain.Principal, name, mainURL, latestURL string) (*domain.Component, error)
	Get(ctx context.Context, p domain.Principal, id string) (*domain.Component, error)
	List(ctx context.Context, p domain.Principal) ([]domain.Component, error)
	Update(ctx context.Context, p domain.Principal, id string, patch domain.ComponentPatch) (*domain.Component, error)
	Delete(ctx context.Context, p domain.Principal, id string) error
}

// Resolver maps a redirect path to one of the three redirect outcomes
type Resolver interface {
	Resolve(ctx context.Context, path string) domain.Outcome
}
