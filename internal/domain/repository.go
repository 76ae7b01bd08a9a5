package domain

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("domain not found")
	ErrInvalidName    = errors.New("invalid domain name")
	ErrNameNotASCII   = errors.New("domain name must be in IDN ASCII form")
	ErrOriginNotFound = errors.New("origin not found")
	ErrRealmMismatch  = errors.New("domain belongs to another realm")
)

// Repository defines the interface for domain storage.
type Repository interface {
	Create(ctx context.Context, domain *Domain) error
	GetByID(ctx context.Context, id int64) (*Domain, error)
	GetByName(ctx context.Context, name string) (*Domain, error)

	// GetByAnyName returns the first domain whose name is in names.
	GetByAnyName(ctx context.Context, names []string) (*Domain, error)

	ListByRealm(ctx context.Context, realmID int64) ([]*Domain, error)
	UpdateOrigins(ctx context.Context, id int64, origins []string) error
	Delete(ctx context.Context, id int64) error
}
