package postgres

import (
	"context"
	"fmt"

	"github.com/checkpointd/checkpointd/internal/accessgroup"
)

// SubtreeRepository implements accessgroup.SubtreeRepository
type SubtreeRepository struct {
	db *DB
}

// NewSubtreeRepository creates a new subtree repository
func NewSubtreeRepository(db *DB) *SubtreeRepository {
	return &SubtreeRepository{db: db}
}

// Add inserts a subtree grant, reporting accessgroup.ErrDuplicate
// when the (group, location) pair already exists.
func (r *SubtreeRepository) Add(ctx context.Context, st *accessgroup.Subtree) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO access_group_subtrees (access_group_id, location, created_at)
		VALUES ($1, $2, $3)
	`, st.GroupID, st.Location, st.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return accessgroup.ErrDuplicate
		}
		return fmt.Errorf("failed to insert subtree: %w", err)
	}
	return nil
}

// Remove deletes the exact location only, reporting whether a row
// existed.
func (r *SubtreeRepository) Remove(ctx context.Context, groupID int64, location string) (bool, error) {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM access_group_subtrees
		WHERE access_group_id = $1 AND location = $2
	`, groupID, location)
	if err != nil {
		return false, fmt.Errorf("failed to delete subtree: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Exists reports whether the (group, location) pair is present.
func (r *SubtreeRepository) Exists(ctx context.Context, groupID int64, location string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM access_group_subtrees
			WHERE access_group_id = $1 AND location = $2
		)
	`, groupID, location).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check subtree: %w", err)
	}
	return exists, nil
}

// ListByGroup lists a group's subtree grants.
func (r *SubtreeRepository) ListByGroup(ctx context.Context, groupID int64) ([]*accessgroup.Subtree, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT access_group_id, location, created_at
		FROM access_group_subtrees
		WHERE access_group_id = $1
		ORDER BY location
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtrees: %w", err)
	}
	defer rows.Close()

	var subtrees []*accessgroup.Subtree
	for rows.Next() {
		var st accessgroup.Subtree
		if err := rows.Scan(&st.GroupID, &st.Location, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subtree: %w", err)
		}
		subtrees = append(subtrees, &st)
	}
	return subtrees, rows.Err()
}

// LocationsForIdentity returns the distinct union of subtree
// locations across every group the identity belongs to.
func (r *SubtreeRepository) LocationsForIdentity(ctx context.Context, identityID int64) ([]string, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT DISTINCT s.location
		FROM access_group_subtrees s
		JOIN access_group_memberships m ON m.access_group_id = s.access_group_id
		WHERE m.identity_id = $1
		ORDER BY s.location
	`, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list identity locations: %w", err)
	}
	defer rows.Close()

	var locations []string
	for rows.Next() {
		var location string
		if err := rows.Scan(&location); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, location)
	}
	return locations, rows.Err()
}
