package realm

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("realm not found")
	ErrAlreadyExists = errors.New("realm already exists")
)

// Repository defines the interface for realm storage.
type Repository interface {
	Create(ctx context.Context, realm *Realm) error
	GetByID(ctx context.Context, id int64) (*Realm, error)
	GetByLabel(ctx context.Context, label string) (*Realm, error)
	List(ctx context.Context) ([]*Realm, error)

	// SetPrimaryDomainIfUnset assigns the domain as the realm's
	// primary domain only when no primary domain is set. Returns
	// true when the assignment happened.
	SetPrimaryDomainIfUnset(ctx context.Context, realmID, domainID int64) (bool, error)
}
