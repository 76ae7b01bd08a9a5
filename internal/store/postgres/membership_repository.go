package postgres

import (
	"context"
	"fmt"

	"github.com/checkpointd/checkpointd/internal/accessgroup"
)

// MembershipRepository implements accessgroup.MembershipRepository
type MembershipRepository struct {
	db *DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Add inserts a membership, reporting accessgroup.ErrDuplicate when
// the pair already exists. Racing writers are resolved here by the
// uniqueness constraint: the losing insert surfaces as ErrDuplicate
// for the service to treat as success.
func (r *MembershipRepository) Add(ctx context.Context, m *accessgroup.Membership) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO access_group_memberships (access_group_id, identity_id, created_at)
		VALUES ($1, $2, $3)
	`, m.GroupID, m.IdentityID, m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return accessgroup.ErrDuplicate
		}
		return fmt.Errorf("failed to insert membership: %w", err)
	}
	return nil
}

// Remove deletes the membership, reporting whether a row existed.
func (r *MembershipRepository) Remove(ctx context.Context, groupID, identityID int64) (bool, error) {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM access_group_memberships
		WHERE access_group_id = $1 AND identity_id = $2
	`, groupID, identityID)
	if err != nil {
		return false, fmt.Errorf("failed to delete membership: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Exists reports whether the (group, identity) pair is present.
func (r *MembershipRepository) Exists(ctx context.Context, groupID, identityID int64) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM access_group_memberships
			WHERE access_group_id = $1 AND identity_id = $2
		)
	`, groupID, identityID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

// ListByGroup lists a group's memberships.
func (r *MembershipRepository) ListByGroup(ctx context.Context, groupID int64) ([]*accessgroup.Membership, error) {
	return r.list(ctx, `
		SELECT access_group_id, identity_id, created_at
		FROM access_group_memberships
		WHERE access_group_id = $1
		ORDER BY identity_id
	`, groupID)
}

// ListByIdentity lists every membership an identity holds.
func (r *MembershipRepository) ListByIdentity(ctx context.Context, identityID int64) ([]*accessgroup.Membership, error) {
	return r.list(ctx, `
		SELECT access_group_id, identity_id, created_at
		FROM access_group_memberships
		WHERE identity_id = $1
		ORDER BY access_group_id
	`, identityID)
}

func (r *MembershipRepository) list(ctx context.Context, query string, arg any) ([]*accessgroup.Membership, error) {
	rows, err := r.db.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*accessgroup.Membership
	for rows.Next() {
		var m accessgroup.Membership
		if err := rows.Scan(&m.GroupID, &m.IdentityID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, &m)
	}
	return memberships, rows.Err()
}
