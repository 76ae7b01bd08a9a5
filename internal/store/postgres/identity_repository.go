package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/checkpointd/checkpointd/internal/identity"
)

// IdentityRepository implements identity.Repository
type IdentityRepository struct {
	db *DB
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Create inserts an identity and fills in its generated id.
func (r *IdentityRepository) Create(ctx context.Context, ident *identity.Identity) error {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO identities (realm_id, god, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, ident.RealmID, ident.God, ident.CreatedAt).Scan(&ident.ID)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	return nil
}

// GetByID retrieves an identity by id.
func (r *IdentityRepository) GetByID(ctx context.Context, id int64) (*identity.Identity, error) {
	var ident identity.Identity
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, realm_id, god, created_at
		FROM identities WHERE id = $1
	`, id).Scan(&ident.ID, &ident.RealmID, &ident.God, &ident.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan identity: %w", err)
	}
	return &ident, nil
}

// GodKeyRepository implements godauth.KeyRepository
type GodKeyRepository struct {
	db *DB
}

// NewGodKeyRepository creates a new god key repository
func NewGodKeyRepository(db *DB) *GodKeyRepository {
	return &GodKeyRepository{db: db}
}

// GetKeyHash returns the stored god key hash for a realm.
func (r *GodKeyRepository) GetKeyHash(ctx context.Context, realmID int64) (string, error) {
	var hash string
	err := r.db.pool.QueryRow(ctx, `
		SELECT key_hash FROM god_keys WHERE realm_id = $1
	`, realmID).Scan(&hash)
	if err == pgx.ErrNoRows {
		return "", fmt.Errorf("no god key for realm %d", realmID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load god key: %w", err)
	}
	return hash, nil
}

// SetKeyHash stores or replaces a realm's god key hash.
func (r *GodKeyRepository) SetKeyHash(ctx context.Context, realmID int64, hash string) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO god_keys (realm_id, key_hash, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (realm_id) DO UPDATE SET key_hash = $2, updated_at = now()
	`, realmID, hash)
	if err != nil {
		return fmt.Errorf("failed to store god key: %w", err)
	}
	return nil
}
