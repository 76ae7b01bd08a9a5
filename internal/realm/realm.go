package realm

import (
	"time"
)

// Realm is the tenant isolation boundary. Every domain, identity and
// access group belongs to exactly one realm.
type Realm struct {
	ID              int64     `json:"id"`
	Label           string    `json:"label"`
	PrimaryDomainID *int64    `json:"primary_domain_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
