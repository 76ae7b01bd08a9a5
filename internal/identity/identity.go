// Package identity holds the slice of the identity directory the
// authorization core reads. Authentication and profile management
// live outside this service.
package identity

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("identity not found")

// Identity is an external principal (user or service) scoped to a
// realm.
type Identity struct {
	ID        int64     `json:"id"`
	RealmID   int64     `json:"realm_id"`
	God       bool      `json:"god"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines the interface for identity storage.
type Repository interface {
	Create(ctx context.Context, identity *Identity) error
	GetByID(ctx context.Context, id int64) (*Identity, error)
}
