package services

import (
	"context"
	"strings"

	"github.com/wadjakorntonsri/pretty-links/pkg/core/domain"
	"github.com/wadjakorntonsri/pretty-links/pkg/ports"
)

// ComponentService is the write surface used by the management API.
// In multi-tenant mode every operation is scoped to the caller's OwnerID.
type ComponentService struct {
	repo        ports.ComponentRepository
	multiTenant bool
}

func NewComponentService(repo ports.ComponentRepository, multiTenant bool) *ComponentService {
	return &ComponentService{repo: repo, multiTenant: multiTenant}
}

func (s *ComponentService) Create(ctx context.Context, p domain.Principal, name, mainURL, latestURL string) (*domain.Component, error) {
	name = strings.TrimSpace(name)
	id := domain.DeriveID(name)
	switch {
	case name == "":
		return nil, domain.NewInvalidRecordError("name", "is required")
	case id == "":
		return nil, domain.NewInvalidRecordError("name", "must contain at least one letter or digit")
	}

	component := &domain.Component{
		ID:        id,
		Name:      name,
		MainURL:   strings.TrimSpace(mainURL),
		LatestURL: strings.TrimSpace(latestURL),
	}
	if s.multiTenant {
		component.OwnerID = p.OwnerID
	}

	if err := s.repo.Create(ctx, component); err != nil {
		return nil, err
	}
	return component, nil
}

func (s *ComponentService) Get(ctx context.Context, p domain.Principal, id string) (*domain.Component, error) {
	component, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.visible(p, component) {
		return nil, domain.ErrNotFound
	}
	return component, nil
}

func (s *ComponentService) List(ctx context.Context, p domain.Principal) ([]domain.Component, error) {
	if s.multiTenant {
		return s.repo.ListByOwner(ctx, p.OwnerID)
	}
	return s.repo.ListByOwner(ctx, "")
}

func (s *ComponentService) Update(ctx context.Context, p domain.Principal, id string, patch domain.ComponentPatch) (*domain.Component, error) {
	if _, err := s.Get(ctx, p, id); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, patch)
}

// Delete is a no-op for missing records and for records owned by someone else.
func (s *ComponentService) Delete(ctx context.Context, p domain.Principal, id string) error {
	if _, err := s.Get(ctx, p, id); err != nil {
		if domain.IsNotFound(err) {
			return nil
		}
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *ComponentService) visible(p domain.Principal, c *domain.Component) bool {
	return !s.multiTenant || c.OwnerID == p.OwnerID
}

// Ensure interface compliance
var _ ports.ComponentService = (*ComponentService)(nil)
