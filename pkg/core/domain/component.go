package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Component is a pretty link: one id resolving to a main and a latest URL.
type Component struct {
	ID        string    `json:"id" bson:"_id" validate:"required"`
	Name      string    `json:"name" bson:"name" validate:"required"`
	MainURL   string    `json:"main_url" bson:"mainUrl" validate:"required,url"`
	LatestURL string    `json:"latest_url" bson:"latestUrl" validate:"required,url"`
	OwnerID   string    `json:"owner_id,omitempty" bson:"ownerId,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// ComponentPatch is a partial update. Only the two branch URLs are editable.
type ComponentPatch struct {
	MainURL   *string `json:"main_url,omitempty"`
	LatestURL *string `json:"latest_url,omitempty"`
}

// Principal identifies the caller of a management operation. The zero value
// is the unscoped caller used in single-tenant deployments.
type Principal struct {
	OwnerID string
}

// Branch names one of the two destinations of a component.
type Branch string

const (
	BranchMain   Branch = "main"
	BranchLatest Branch = "latest"
)

// ParseBranch accepts exactly "main" and "latest".
func ParseBranch(s string) (Branch, bool) {
	switch Branch(s) {
	case BranchMain, BranchLatest:
		return Branch(s), true
	}
	return "", false
}

// URLFor returns the destination stored for branch.
func (c *Component) URLFor(b Branch) string {
	if b == BranchMain {
		return c.MainURL
	}
	return c.LatestURL
}

var (
	whitespaceRun = regexp.MustCompile(`[\s\p{Zs}]+`)
	invalidIDChar = regexp.MustCompile(`[^a-z0-9-]`)
)

// DeriveID turns a display name into a component id: lower-cased, whitespace
// runs collapsed to "-", anything outside [a-z0-9-] dropped.
func DeriveID(name string) string {
	id := strings.ToLower(name)
	id = whitespaceRun.ReplaceAllString(id, "-")
	return invalidIDChar.ReplaceAllString(id, "")
}

var validate = validator.New()

var fieldNames = map[string]string{
	"ID":        "id",
	"Name":      "name",
	"MainURL":   "main_url",
	"LatestURL": "latest_url",
}

// Validate checks the write invariants of a record.
func (c *Component) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewInvalidRecordError("", err.Error())
	}
	fe := verrs[0]
	field := fieldNames[fe.Field()]
	switch fe.Tag() {
	case "required":
		return NewInvalidRecordError(field, "is required")
	case "url":
		return NewInvalidRecordError(field, "must be an absolute URL")
	default:
		return NewInvalidRecordError(field, "failed "+fe.Tag()+" check")
	}
}

// Apply returns a copy of c with the patch applied. The copy is not validated.
func (p ComponentPatch) Apply(c Component) Component {
	if p.MainURL != nil {
		c.MainURL = strings.TrimSpace(*p.MainURL)
	}
	if p.LatestURL != nil {
		c.LatestURL = strings.TrimSpace(*p.LatestURL)
	}
	return c
}
