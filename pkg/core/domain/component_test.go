package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Range Slider Filter", "range-slider-filter"},
		{"Card", "card"},
		{"Date   Picker", "date-picker"},
		{"Tabs\t&\nPanels", "tabs--panels"},
		{"Ünicode Button!", "nicode-button"},
		{"already-an-id-42", "already-an-id-42"},
		{"???", ""},
		{"Range\u00a0Slider", "range-slider"},
		{"Wide\u3000Gap \u2009Thin", "wide-gap-thin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveID(tt.name)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, DeriveID(got), "derivation must be idempotent")
		})
	}
}

func TestParseBranch(t *testing.T) {
	b, ok := ParseBranch("main")
	assert.True(t, ok)
	assert.Equal(t, BranchMain, b)

	b, ok = ParseBranch("latest")
	assert.True(t, ok)
	assert.Equal(t, BranchLatest, b)

	for _, s := range []string{"", "Main", "other", "latest "} {
		_, ok := ParseBranch(s)
		assert.False(t, ok, s)
	}
}

func TestComponentValidate(t *testing.T) {
	valid := Component{
		ID:        "card",
		Name:      "Card",
		MainURL:   "https://example.com/m",
		LatestURL: "https://example.com/l",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		edit  func(c *Component)
		field string
	}{
		{"empty id", func(c *Component) { c.ID = "" }, "id"},
		{"empty name", func(c *Component) { c.Name = "" }, "name"},
		{"empty main", func(c *Component) { c.MainURL = "" }, "main_url"},
		{"empty latest", func(c *Component) { c.LatestURL = "" }, "latest_url"},
		{"relative main", func(c *Component) { c.MainURL = "example.com/m" }, "main_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.edit(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, IsInvalidRecord(err))

			var invalid *InvalidRecordError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestComponentPatchApply(t *testing.T) {
	c := Component{ID: "card", Name: "Card", MainURL: "https://a", LatestURL: "https://b"}
	main := " https://c "

	got := ComponentPatch{MainURL: &main}.Apply(c)
	assert.Equal(t, "https://c", got.MainURL)
	assert.Equal(t, "https://b", got.LatestURL)
	assert.Equal(t, "https://a", c.MainURL, "original must not change")
}

func TestURLFor(t *testing.T) {
	c := Component{MainURL: "https://a", LatestURL: "https://b"}
	assert.Equal(t, "https://a", c.URLFor(BranchMain))
	assert.Equal(t, "https://b", c.URLFor(BranchLatest))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsDuplicateID(NewDuplicateIDError("card")))
	assert.False(t, IsNotFound(NewDuplicateIDError("card")))

	wrapped := NewStorageError("get", assert.AnError)
	assert.True(t, IsStorage(wrapped))
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.False(t, IsNotFound(wrapped))

	// typed errors pass through unchanged
	assert.Same(t, ErrNotFound, NewStorageError("get", ErrNotFound))
	assert.Nil(t, NewStorageError("get", nil))
}
