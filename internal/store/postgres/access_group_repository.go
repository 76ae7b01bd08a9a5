package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/checkpointd/checkpointd/internal/accessgroup"
)

// AccessGroupRepository implements accessgroup.GroupRepository
type AccessGroupRepository struct {
	db *DB
}

// NewAccessGroupRepository creates a new access group repository
func NewAccessGroupRepository(db *DB) *AccessGroupRepository {
	return &AccessGroupRepository{db: db}
}

// Create inserts a group and fills in its generated id. An empty
// label is stored as NULL so the per-realm label uniqueness index
// ignores anonymous groups.
func (r *AccessGroupRepository) Create(ctx context.Context, group *accessgroup.Group) error {
	var label sql.NullString
	if group.Label != "" {
		label = sql.NullString{String: group.Label, Valid: true}
	}

	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO access_groups (realm_id, label, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, group.RealmID, label, group.CreatedAt, group.UpdatedAt).Scan(&group.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return accessgroup.ErrDuplicate
		}
		return fmt.Errorf("failed to insert access group: %w", err)
	}
	return nil
}

// GetByID retrieves a group by id, scoped to the realm.
func (r *AccessGroupRepository) GetByID(ctx context.Context, realmID, id int64) (*accessgroup.Group, error) {
	return scanGroupRow(r.db.pool.QueryRow(ctx, `
		SELECT id, realm_id, label, created_at, updated_at
		FROM access_groups WHERE realm_id = $1 AND id = $2
	`, realmID, id))
}

// GetByLabel retrieves a group by label, scoped to the realm.
func (r *AccessGroupRepository) GetByLabel(ctx context.Context, realmID int64, label string) (*accessgroup.Group, error) {
	return scanGroupRow(r.db.pool.QueryRow(ctx, `
		SELECT id, realm_id, label, created_at, updated_at
		FROM access_groups WHERE realm_id = $1 AND label = $2
	`, realmID, label))
}

// List returns every group in the realm.
func (r *AccessGroupRepository) List(ctx context.Context, realmID int64) ([]*accessgroup.Group, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, realm_id, label, created_at, updated_at
		FROM access_groups WHERE realm_id = $1
		ORDER BY id
	`, realmID)
	if err != nil {
		return nil, fmt.Errorf("failed to list access groups: %w", err)
	}
	defer rows.Close()

	var groups []*accessgroup.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// Delete removes a group; memberships and subtrees cascade via the
// schema's foreign keys.
func (r *AccessGroupRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM access_groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete access group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return accessgroup.ErrGroupNotFound
	}
	return nil
}

func scanGroupRow(row pgx.Row) (*accessgroup.Group, error) {
	group, err := scanGroup(row)
	if err == pgx.ErrNoRows {
		return nil, accessgroup.ErrGroupNotFound
	}
	return group, err
}

func scanGroup(row rowScanner) (*accessgroup.Group, error) {
	var group accessgroup.Group
	var label sql.NullString
	if err := row.Scan(&group.ID, &group.RealmID, &label, &group.CreatedAt, &group.UpdatedAt); err != nil {
		return nil, err
	}
	if label.Valid {
		group.Label = label.String
	}
	return &group, nil
}
