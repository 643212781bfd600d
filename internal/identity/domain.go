package identity

import (
	"time"

	"github.com/lagerhof/lagerhof/internal/rentals"
)

// Status enumerates customer lifecycle states.
type Status string

const (
	// StatusActive means at least one rental is currently running.
	StatusActive Status = "active"
	// StatusPast means every known rental has ended.
	StatusPast Status = "past"
	// StatusLead marks manually created prospects with no rental yet.
	StatusLead Status = "lead"
)

// Customer is the canonical, persisted identity merged from all rental
// sources. The fingerprint is assigned at creation and never changes; the
// bucket lists are derived and recomputed wholesale on every sync.
type Customer struct {
	ID          int64
	Fingerprint string

	Name     string
	Email    string
	Phone    string
	Whatsapp string

	SecondaryName  string
	SecondaryEmail string
	SecondaryPhone string

	CurrentUnits   []string
	CurrentPallets []string
	PastUnits      []string
	PastPallets    []string

	Status  Status
	Sources []rentals.SourceType

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SyncResult summarizes one merge pass over the rental sources.
type SyncResult struct {
	Inserted      int `json:"inserted"`
	Updated       int `json:"updated"`
	SourceUnits   int `json:"source_units"`
	SourcePallets int `json:"source_pallets"`
}

// SecondaryContactInput carries a manual edit of the optional second contact.
// Secondary contact data never participates in identity resolution.
type SecondaryContactInput struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=50"`
}
