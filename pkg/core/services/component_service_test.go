package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wadjakorntonsri/pretty-links/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/pretty-links/pkg/core/domain"
)

var (
	alice = domain.Principal{OwnerID: "alice@example.com"}
	bob   = domain.Principal{OwnerID: "bob@example.com"}
)

func strPtr(s string) *string { return &s }

func TestComponentServiceCreate(t *testing.T) {
	svc := NewComponentService(memory.NewMemoryRepository(), false)
	ctx := context.Background()

	c, err := svc.Create(ctx, alice, "  Range Slider Filter ", " https://example.com/m", "https://example.com/l ")
	require.NoError(t, err)
	assert.Equal(t, "range-slider-filter", c.ID)
	assert.Equal(t, "Range Slider Filter", c.Name)
	assert.Equal(t, "https://example.com/m", c.MainURL)
	assert.Equal(t, "https://example.com/l", c.LatestURL)
	assert.Empty(t, c.OwnerID, "single-tenant mode does not record owners")

	_, err = svc.Create(ctx, alice, "range slider filter", "https://example.com/x", "https://example.com/y")
	assert.True(t, domain.IsDuplicateID(err))
}

func TestComponentServiceCreateInvalid(t *testing.T) {
	svc := NewComponentService(memory.NewMemoryRepository(), false)
	ctx := context.Background()

	tests := []struct {
		name      string
		compName  string
		mainURL   string
		latestURL string
		field     string
	}{
		{"empty name", "", "https://example.com/m", "https://example.com/l", "name"},
		{"name without id characters", "!!!?", "https://example.com/m", "https://example.com/l", "name"},
		{"empty main", "Card", "", "https://example.com/l", "main_url"},
		{"relative latest", "Card", "https://example.com/m", "/latest", "latest_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, alice, tt.compName, tt.mainURL, tt.latestURL)
			var invalid *domain.InvalidRecordError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}

	all, err := svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestComponentServiceMultiTenant(t *testing.T) {
	svc := NewComponentService(memory.NewMemoryRepository(), true)
	ctx := context.Background()

	c, err := svc.Create(ctx, alice, "Card", "https://example.com/m", "https://example.com/l")
	require.NoError(t, err)
	assert.Equal(t, alice.OwnerID, c.OwnerID)
	_, err = svc.Create(ctx, bob, "Table", "https://example.com/tm", "https://example.com/tl")
	require.NoError(t, err)

	list, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "card", list[0].ID)

	_, err = svc.Get(ctx, bob, "card")
	assert.True(t, domain.IsNotFound(err), "foreign record must look missing")

	_, err = svc.Update(ctx, bob, "card", domain.ComponentPatch{MainURL: strPtr("https://evil.example.com")})
	assert.True(t, domain.IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, bob, "card"), "deleting a foreign record is a silent no-op")
	got, err := svc.Get(ctx, alice, "card")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/m", got.MainURL)

	// ids stay globally unique because the resolver looks up by id alone
	_, err = svc.Create(ctx, bob, "Card", "https://example.com/m2", "https://example.com/l2")
	assert.True(t, domain.IsDuplicateID(err))
}

func TestComponentServiceUpdateAndDelete(t *testing.T) {
	svc := NewComponentService(memory.NewMemoryRepository(), false)
	ctx := context.Background()

	_, err := svc.Create(ctx, alice, "Card", "https://example.com/m", "https://example.com/l")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, bob, "card", domain.ComponentPatch{LatestURL: strPtr("https://example.com/l2")})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/m", updated.MainURL)
	assert.Equal(t, "https://example.com/l2", updated.LatestURL)

	_, err = svc.Update(ctx, alice, "card", domain.ComponentPatch{MainURL: strPtr("")})
	assert.True(t, domain.IsInvalidRecord(err))

	_, err = svc.Update(ctx, alice, "missing", domain.ComponentPatch{MainURL: strPtr("https://example.com")})
	assert.True(t, domain.IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, alice, "card"))
	require.NoError(t, svc.Delete(ctx, alice, "card"))
	_, err = svc.Get(ctx, alice, "card")
	assert.True(t, domain.IsNotFound(err))
}
