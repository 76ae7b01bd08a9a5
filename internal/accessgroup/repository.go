package accessgroup

import "context"

// GroupRepository defines the interface for access group storage.
type GroupRepository interface {
	Create(ctx context.Context, group *Group) error
	GetByID(ctx context.Context, realmID, id int64) (*Group, error)
	GetByLabel(ctx context.Context, realmID int64, label string) (*Group, error)
	List(ctx context.Context, realmID int64) ([]*Group, error)

	// Delete removes the group; memberships and subtrees cascade at
	// the store.
	Delete(ctx context.Context, id int64) error
}

// MembershipRepository defines the interface for membership storage.
type MembershipRepository interface {
	// Add returns ErrDuplicate when the (group, identity) pair
	// already exists, detected at the uniqueness constraint rather
	// than by a prior existence check.
	Add(ctx context.Context, membership *Membership) error

	// Remove reports whether a row was actually deleted. Removing an
	// absent membership is not an error.
	Remove(ctx context.Context, groupID, identityID int64) (bool, error)

	Exists(ctx context.Context, groupID, identityID int64) (bool, error)
	ListByGroup(ctx context.Context, groupID int64) ([]*Membership, error)
	ListByIdentity(ctx context.Context, identityID int64) ([]*Membership, error)
}

// SubtreeRepository defines the interface for subtree grant storage.
type SubtreeRepository interface {
	// Add returns ErrDuplicate for an existing (group, location)
	// pair, same contract as MembershipRepository.Add.
	Add(ctx context.Context, subtree *Subtree) error

	// Remove deletes the exact location only and reports whether a
	// row was deleted.
	Remove(ctx context.Context, groupID int64, location string) (bool, error)

	Exists(ctx context.Context, groupID int64, location string) (bool, error)
	ListByGroup(ctx context.Context, groupID int64) ([]*Subtree, error)

	// LocationsForIdentity returns the union of subtree locations
	// across every group the identity belongs to.
	LocationsForIdentity(ctx context.Context, identityID int64) ([]string, error)
}
