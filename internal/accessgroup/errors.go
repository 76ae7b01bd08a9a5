package accessgroup

import "errors"

// Domain errors
var (
	ErrGroupNotFound = errors.New("access group not found")
	ErrInvalidLabel  = errors.New("invalid access group label")

	// ErrCrossRealmViolation rejects a membership whose identity
	// belongs to a different realm than the group. A deliberate
	// trust-boundary block, distinct from not-found.
	ErrCrossRealmViolation = errors.New("identity realm does not match group realm")

	// ErrRealmPathMismatch rejects a subtree grant whose location
	// lies outside the group's realm namespace.
	ErrRealmPathMismatch = errors.New("subtree location is not within the group's realm")

	// ErrDuplicate is returned by repositories when a create hits a
	// uniqueness constraint. Services convert it to success for
	// idempotent grants; it never reaches callers.
	ErrDuplicate = errors.New("record already exists")
)
