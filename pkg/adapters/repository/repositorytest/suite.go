// Package repositorytest holds the contract tests every Record Store backend
// must pass.
package repositorytest

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/wadjakorntonsri/pretty-links/pkg/core/domain"
	"github.com/wadjakorntonsri/pretty-links/pkg/ports"
)

// ComponentRepositorySuite runs the Record Store contract against the
// repository returned by NewRepo. NewRepo is called before every test and must
// return an empty store.
type ComponentRepositorySuite struct {
	suite.Suite
	NewRepo func(t *testing.T) ports.ComponentRepository

	repo ports.ComponentRepository
	ctx  context.Context
}

func (s *ComponentRepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = s.NewRepo(s.T())
}

func (s *ComponentRepositorySuite) TearDownTest() {
	if s.repo != nil {
		s.NoError(s.repo.Close())
	}
}

func card() *domain.Component {
	return &domain.Component{
		ID:        "card",
		Name:      "Card",
		MainURL:   "https://example.com/m",
		LatestURL: "https://example.com/l",
	}
}

func strPtr(s string) *string { return &s }

func (s *ComponentRepositorySuite) TestCreateAndGet() {
	c := card()
	s.Require().NoError(s.repo.Create(s.ctx, c))
	s.False(c.CreatedAt.IsZero(), "create must stamp CreatedAt")

	got, err := s.repo.Get(s.ctx, "card")
	s.Require().NoError(err)
	s.Equal("card", got.ID)
	s.Equal("Card", got.Name)
	s.Equal("https://example.com/m", got.MainURL)
	s.Equal("https://example.com/l", got.LatestURL)
}

func (s *ComponentRepositorySuite) TestGetMissing() {
	got, err := s.repo.Get(s.ctx, "missing")
	s.Nil(got)
	s.True(domain.IsNotFound(err), "want NotFound, got %v", err)
	s.False(domain.IsStorage(err))
}

func (s *ComponentRepositorySuite) TestCreateDuplicateLeavesExisting() {
	s.Require().NoError(s.repo.Create(s.ctx, card()))

	dup := card()
	dup.MainURL = "https://evil.example.com"
	err := s.repo.Create(s.ctx, dup)
	s.True(domain.IsDuplicateID(err), "want DuplicateId, got %v", err)

	got, err := s.repo.Get(s.ctx, "card")
	s.Require().NoError(err)
	s.Equal("https://example.com/m", got.MainURL)
}

func (s *ComponentRepositorySuite) TestCreateInvalid() {
	for _, edit := range []func(c *domain.Component){
		func(c *domain.Component) { c.MainURL = "" },
		func(c *domain.Component) { c.LatestURL = "" },
		func(c *domain.Component) { c.Name = "" },
		func(c *domain.Component) { c.ID = "" },
	} {
		c := card()
		edit(c)
		err := s.repo.Create(s.ctx, c)
		s.True(domain.IsInvalidRecord(err), "want InvalidRecord, got %v", err)
	}

	_, err := s.repo.Get(s.ctx, "card")
	s.True(domain.IsNotFound(err))
}

func (s *ComponentRepositorySuite) TestUpdatePartial() {
	s.Require().NoError(s.repo.Create(s.ctx, card()))

	updated, err := s.repo.Update(s.ctx, "card", domain.ComponentPatch{LatestURL: strPtr("https://example.com/l2")})
	s.Require().NoError(err)
	s.Equal("https://example.com/m", updated.MainURL)
	s.Equal("https://example.com/l2", updated.LatestURL)

	got, err := s.repo.Get(s.ctx, "card")
	s.Require().NoError(err)
	s.Equal("https://example.com/m", got.MainURL)
	s.Equal("https://example.com/l2", got.LatestURL)
	s.Equal("Card", got.Name)
}

func (s *ComponentRepositorySuite) TestUpdateEmptyURLLeavesRecordUnchanged() {
	s.Require().NoError(s.repo.Create(s.ctx, card()))

	_, err := s.repo.Update(s.ctx, "card", domain.ComponentPatch{MainURL: strPtr("")})
	s.True(domain.IsInvalidRecord(err), "want InvalidRecord, got %v", err)

	_, err = s.repo.Update(s.ctx, "card", domain.ComponentPatch{
		MainURL:   strPtr("https://example.com/new"),
		LatestURL: strPtr("  "),
	})
	s.True(domain.IsInvalidRecord(err), "want InvalidRecord, got %v", err)

	got, err := s.repo.Get(s.ctx, "card")
	s.Require().NoError(err)
	s.Equal("https://example.com/m", got.MainURL)
	s.Equal("https://example.com/l", got.LatestURL)
}

func (s *ComponentRepositorySuite) TestUpdateMissing() {
	_, err := s.repo.Update(s.ctx, "missing", domain.ComponentPatch{MainURL: strPtr("https://example.com")})
	s.True(domain.IsNotFound(err), "want NotFound, got %v", err)
}

func (s *ComponentRepositorySuite) TestDeleteIsIdempotent() {
	s.Require().NoError(s.repo.Create(s.ctx, card()))

	s.NoError(s.repo.Delete(s.ctx, "card"))
	s.NoError(s.repo.Delete(s.ctx, "card"))
	s.NoError(s.repo.Delete(s.ctx, "never-existed"))

	_, err := s.repo.Get(s.ctx, "card")
	s.True(domain.IsNotFound(err))

	// the id is free again
	s.NoError(s.repo.Create(s.ctx, card()))
}

func (s *ComponentRepositorySuite) TestListByOwner() {
	mine := card()
	mine.OwnerID = "alice@example.com"
	s.Require().NoError(s.repo.Create(s.ctx, mine))

	theirs := card()
	theirs.ID = "tabs"
	theirs.Name = "Tabs"
	theirs.OwnerID = "bob@example.com"
	s.Require().NoError(s.repo.Create(s.ctx, theirs))

	alice, err := s.repo.ListByOwner(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal([]string{"card"}, ids(alice))

	nobody, err := s.repo.ListByOwner(s.ctx, "carol@example.com")
	s.Require().NoError(err)
	s.Empty(nobody)

	all, err := s.repo.ListByOwner(s.ctx, "")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"card", "tabs"}, ids(all))

	dump, err := s.repo.Dump(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"card", "tabs"}, ids(dump))
}

func (s *ComponentRepositorySuite) TestConcurrentCreateSameID() {
	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.repo.Create(s.ctx, card())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else {
				s.True(domain.IsDuplicateID(err), "want DuplicateId, got %v", err)
			}
		}()
	}
	wg.Wait()
	s.Equal(1, succeeded)
}

func ids(components []domain.Component) []string {
	out := make([]string, 0, len(components))
	for _, c := range components {
		out = append(out, c.ID)
	}
	sort.Strings(out)
	return out
}
