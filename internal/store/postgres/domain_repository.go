package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/checkpointd/checkpointd/internal/domain"
)

// DomainRepository implements domain.Repository
type DomainRepository struct {
	db *DB
}

// NewDomainRepository creates a new domain repository
func NewDomainRepository(db *DB) *DomainRepository {
	return &DomainRepository{db: db}
}

// Create inserts a domain and fills in its generated id.
func (r *DomainRepository) Create(ctx context.Context, d *domain.Domain) error {
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO domains (realm_id, name, origins, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, d.RealmID, d.Name, d.Origins, d.CreatedAt, d.UpdatedAt).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to insert domain: %w", err)
	}
	return nil
}

// GetByID retrieves a domain by id.
func (r *DomainRepository) GetByID(ctx context.Context, id int64) (*domain.Domain, error) {
	return scanDomainRow(r.db.pool.QueryRow(ctx, `
		SELECT id, realm_id, name, origins, created_at, updated_at
		FROM domains WHERE id = $1
	`, id))
}

// GetByName retrieves a domain by canonical name.
func (r *DomainRepository) GetByName(ctx context.Context, name string) (*domain.Domain, error) {
	return scanDomainRow(r.db.pool.QueryRow(ctx, `
		SELECT id, realm_id, name, origins, created_at, updated_at
		FROM domains WHERE name = $1
	`, name))
}

// GetByAnyName returns the first domain whose name is in names.
func (r *DomainRepository) GetByAnyName(ctx context.Context, names []string) (*domain.Domain, error) {
	return scanDomainRow(r.db.pool.QueryRow(ctx, `
		SELECT id, realm_id, name, origins, created_at, updated_at
		FROM domains WHERE name = ANY($1)
		ORDER BY id LIMIT 1
	`, names))
}

// ListByRealm lists a realm's domains.
func (r *DomainRepository) ListByRealm(ctx context.Context, realmID int64) ([]*domain.Domain, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, realm_id, name, origins, created_at, updated_at
		FROM domains WHERE realm_id = $1
		ORDER BY id
	`, realmID)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	var domains []*domain.Domain
	for rows.Next() {
		var d domain.Domain
		if err := rows.Scan(&d.ID, &d.RealmID, &d.Name, &d.Origins, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, &d)
	}
	return domains, rows.Err()
}

// UpdateOrigins replaces the domain's origin allow-list.
func (r *DomainRepository) UpdateOrigins(ctx context.Context, id int64, origins []string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE domains SET origins = $2, updated_at = now()
		WHERE id = $1
	`, id, origins)
	if err != nil {
		return fmt.Errorf("failed to update origins: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a domain. Realms referencing it as primary domain
// have the reference set to NULL by the schema's foreign key.
func (r *DomainRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM domains WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete domain: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanDomainRow(row pgx.Row) (*domain.Domain, error) {
	var d domain.Domain
	err := row.Scan(&d.ID, &d.RealmID, &d.Name, &d.Origins, &d.CreatedAt, &d.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan domain: %w", err)
	}
	return &d, nil
}
