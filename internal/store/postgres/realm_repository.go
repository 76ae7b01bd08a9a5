package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/checkpointd/checkpointd/internal/realm"
)

// RealmRepository implements realm.Repository
type RealmRepository struct {
	db *DB
}

// NewRealmRepository creates a new realm repository
func NewRealmRepository(db *DB) *RealmRepository {
	return &RealmRepository{db: db}
}

// Create inserts a realm and fills in its generated id.
func (r *RealmRepository) Create(ctx context.Context, rlm *realm.Realm) error {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO realms (label, created_at, updated_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, rlm.Label, rlm.CreatedAt, rlm.UpdatedAt).Scan(&rlm.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return realm.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert realm: %w", err)
	}
	return nil
}

// GetByID retrieves a realm by id.
func (r *RealmRepository) GetByID(ctx context.Context, id int64) (*realm.Realm, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx, `
		SELECT id, label, primary_domain_id, created_at, updated_at
		FROM realms WHERE id = $1
	`, id))
}

// GetByLabel retrieves a realm by label.
func (r *RealmRepository) GetByLabel(ctx context.Context, label string) (*realm.Realm, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx, `
		SELECT id, label, primary_domain_id, created_at, updated_at
		FROM realms WHERE label = $1
	`, label))
}

// List returns every realm.
func (r *RealmRepository) List(ctx context.Context) ([]*realm.Realm, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, label, primary_domain_id, created_at, updated_at
		FROM realms ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list realms: %w", err)
	}
	defer rows.Close()

	var realms []*realm.Realm
	for rows.Next() {
		rlm, err := scanRealm(rows)
		if err != nil {
			return nil, err
		}
		realms = append(realms, rlm)
	}
	return realms, rows.Err()
}

// SetPrimaryDomainIfUnset assigns the primary domain only when none
// is set, so the first registered domain wins and later ones never
// displace it.
func (r *RealmRepository) SetPrimaryDomainIfUnset(ctx context.Context, realmID, domainID int64) (bool, error) {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE realms SET primary_domain_id = $2, updated_at = now()
		WHERE id = $1 AND primary_domain_id IS NULL
	`, realmID, domainID)
	if err != nil {
		return false, fmt.Errorf("failed to set primary domain: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RealmRepository) scanOne(row pgx.Row) (*realm.Realm, error) {
	rlm, err := scanRealm(row)
	if err == pgx.ErrNoRows {
		return nil, realm.ErrNotFound
	}
	return rlm, err
}

func scanRealm(row rowScanner) (*realm.Realm, error) {
	var rlm realm.Realm
	var primary sql.NullInt64
	if err := row.Scan(&rlm.ID, &rlm.Label, &primary, &rlm.CreatedAt, &rlm.UpdatedAt); err != nil {
		return nil, err
	}
	if primary.Valid {
		rlm.PrimaryDomainID = &primary.Int64
	}
	return &rlm, nil
}
