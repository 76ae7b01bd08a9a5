// Package accessgroup implements the access-group authorization
// model: groups scoped to a realm, identity memberships, and
// path-scoped subtree grants that together answer access queries.
package accessgroup

import (
	"regexp"
	"time"
)

// Labels must start with a non-digit so a label can never be mistaken
// for a numeric group id in lookups.
var labelPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// ValidLabel reports whether label is an acceptable group label.
func ValidLabel(label string) bool {
	return labelPattern.MatchString(label)
}

// Group is an authorization unit scoped to one realm. The label is
// optional; anonymous groups are addressed by id only.
type Group struct {
	ID        int64     `json:"id"`
	RealmID   int64     `json:"realm_id"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership associates one identity with one group. Unique per
// (group, identity); the identity's realm always equals the group's.
type Membership struct {
	GroupID    int64     `json:"access_group_id"`
	IdentityID int64     `json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Subtree is a path grant attached to a group. Members of the group
// may read restricted content under the location.
type Subtree struct {
	GroupID   int64     `json:"access_group_id"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}
