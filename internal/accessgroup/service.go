// Copyright 2026 The Checkpointd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package accessgroup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/checkpointd/checkpointd/internal/audit"
	"github.com/checkpointd/checkpointd/internal/identity"
	"github.com/checkpointd/checkpointd/internal/notify"
	"github.com/checkpointd/checkpointd/internal/observability/logger"
	"github.com/checkpointd/checkpointd/internal/realm"
)

// Service provides access group management and authorization
// decisions.
type Service struct {
	groups      GroupRepository
	memberships MembershipRepository
	subtrees    SubtreeRepository
	identities  identity.Repository
	realms      realm.Repository
	sink        notify.Sink
	auditLogger audit.Logger
}

// NewService creates a new access group service.
func NewService(
	groups GroupRepository,
	memberships MembershipRepository,
	subtrees SubtreeRepository,
	identities identity.Repository,
	realms realm.Repository,
	sink notify.Sink,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		groups:      groups,
		memberships: memberships,
		subtrees:    subtrees,
		identities:  identities,
		realms:      realms,
		sink:        sink,
		auditLogger: auditLogger,
	}
}

// CreateGroup creates a group in the realm. The label is optional;
// when present it must pass ValidLabel and be unique within the realm.
func (s *Service) CreateGroup(ctx context.Context, realmID int64, label string) (*Group, error) {
	if label != "" && !ValidLabel(label) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}

	now := time.Now()
	group := &Group{
		RealmID:   realmID,
		Label:     label,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create access group: %w", err)
	}

	slog.DebugContext(ctx, "access group created",
		logger.RealmID(realmID),
		logger.GroupID(group.ID),
		logger.Label(group.Label),
	)
	notify.Publish(ctx, s.sink, notify.NewChange(notify.EventCreate, notify.KindAccessGroup, groupAttributes(group)))
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeGroupCreated,
		RealmID:  realmID,
		Resource: group.Label,
		Metadata: map[string]any{"group_id": group.ID},
	})
	return group, nil
}

// UpsertGroup returns the realm's group with the label, creating it
// when absent. The label is mandatory here and must be valid —
// numeric-leading labels are rejected before any lookup, since they
// would be ambiguous with ids. The second return value reports
// whether a group was created.
func (s *Service) UpsertGroup(ctx context.Context, realmID int64, label string) (*Group, bool, error) {
	if !ValidLabel(label) {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}

	group, err := s.groups.GetByLabel(ctx, realmID, label)
	if err == nil {
		return group, false, nil
	}
	if err != ErrGroupNotFound {
		return nil, false, fmt.Errorf("failed to look up access group: %w", err)
	}

	group, err = s.CreateGroup(ctx, realmID, label)
	if err != nil {
		// A racing upsert may have created the group between the
		// lookup and the insert; the loser settles on the winner's
		// row.
		if existing, lookupErr := s.groups.GetByLabel(ctx, realmID, label); lookupErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return group, true, nil
}

// FindGroup resolves a group within a realm by id or label.
func (s *Service) FindGroup(ctx context.Context, realmID int64, sel Selector) (*Group, error) {
	if sel.IsID() {
		return s.groups.GetByID(ctx, realmID, sel.ID())
	}
	return s.groups.GetByLabel(ctx, realmID, sel.Label())
}

// ListGroups lists every group in the realm.
func (s *Service) ListGroups(ctx context.Context, realmID int64) ([]*Group, error) {
	return s.groups.List(ctx, realmID)
}

// DeleteGroup destroys a group, cascading its memberships and
// subtrees. The caller must already hold realm-admin authority.
func (s *Service) DeleteGroup(ctx context.Context, group *Group) error {
	if err := s.groups.Delete(ctx, group.ID); err != nil {
		return fmt.Errorf("failed to delete access group: %w", err)
	}

	notify.Publish(ctx, s.sink, notify.NewChange(notify.EventDelete, notify.KindAccessGroup, groupAttributes(group)))
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeGroupDeleted,
		RealmID:  group.RealmID,
		Resource: group.Label,
		Metadata: map[string]any{"group_id": group.ID},
	})
	return nil
}

// AddMember grants an identity membership of the group. The identity
// must exist and belong to the group's realm; a mismatch fails with
// ErrCrossRealmViolation. Duplicate adds are a no-op success, racing
// concurrent adds included: the uniqueness constraint resolves the
// loser, which settles to success.
func (s *Service) AddMember(ctx context.Context, group *Group, identityID int64) error {
	exists, err := s.memberships.Exists(ctx, group.ID, identityID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if exists {
		return nil
	}

	ident, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return err
	}
	if ident.RealmID != group.RealmID {
		return ErrCrossRealmViolation
	}

	membership := &Membership{
		GroupID:    group.ID,
		IdentityID: identityID,
		CreatedAt:  time.Now(),
	}
	if err := s.memberships.Add(ctx, membership); err != nil {
		if err == ErrDuplicate {
			// Someone beat us to it, but that is fine.
			return nil
		}
		return fmt.Errorf("failed to add membership: %w", err)
	}

	notify.Publish(ctx, s.sink, notify.NewChange(notify.EventCreate, notify.KindMembership, membershipAttributes(membership)))
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMemberAdded,
		RealmID:  group.RealmID,
		Resource: group.Label,
		Metadata: map[string]any{"group_id": group.ID, "identity_id": identityID},
	})
	return nil
}

// RemoveMember revokes an identity's membership. Removing an absent
// membership is a no-op success.
func (s *Service) RemoveMember(ctx context.Context, group *Group, identityID int64) error {
	removed, err := s.memberships.Remove(ctx, group.ID, identityID)
	if err != nil {
		return fmt.Errorf("failed to remove membership: %w", err)
	}
	if !removed {
		return nil
	}

	membership := &Membership{GroupID: group.ID, IdentityID: identityID}
	notify.Publish(ctx, s.sink, notify.NewChange(notify.EventDelete, notify.KindMembership, membershipAttributes(membership)))
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMemberRemoved,
		RealmID:  group.RealmID,
		Resource: group.Label,
		Metadata: map[string]any{"group_id": group.ID, "identity_id": identityID},
	})
	return nil
}

// ListMembershipsByGroup lists a group's memberships.
func (s *Service) ListMembershipsByGroup(ctx context.Context, groupID int64) ([]*Membership, error) {
	return s.memberships.ListByGroup(ctx, groupID)
}

// ListMembershipsByIdentity lists every membership an identity holds.
func (s *Service) ListMembershipsByIdentity(ctx context.Context, identityID int64) ([]*Membership, error) {
	return s.memberships.ListByIdentity(ctx, identityID)
}

// GrantSubtree attaches a path grant to the group. The location's
// leading segment must be the label of the group's own realm; a
// mismatch fails with ErrRealmPathMismatch. Duplicate grants are a
// no-op success with the same race tolerance as AddMember.
func (s *Service) GrantSubtree(ctx context.Context, group *Group, location string) error {
	exists, err := s.subtrees.Exists(ctx, group.ID, location)
	if err != nil {
		return fmt.Errorf("failed to check subtree: %w", err)
	}
	if exists {
		return nil
	}

	rlm, err := s.realms.GetByID(ctx, group.RealmID)
	if err != nil {
		return fmt.Errorf("failed to load group realm: %w", err)
	}
	if !locationMatchesRealm(location, rlm.Label) {
		return ErrRealmPathMismatch
	}

	subtree := &Subtree{
		GroupID:   group.ID,
		Location:  location,
		CreatedAt: time.Now(),
	}
	if err := s.subtrees.Add(ctx, subtree); err != nil {
		if err == ErrDuplicate {
			return nil
		}
		return fmt.Errorf("failed to add subtree: %w", err)
	}

	slog.DebugContext(ctx, "subtree granted",
		logger.GroupID(group.ID),
		logger.Location(location),
	)
	notify.Publish(ctx, s.sink, notify.NewChange(notify.EventCreate, notify.KindSubtree, subtreeAttributes(subtree)))
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSubtreeGranted,
		RealmID:  group.RealmID,
		Resource: group.Label,
		Metadata: map[string]any{"group_id": group.ID, "location": location},
	})
	return nil
}

// RevokeSubtree removes the exact location from the group. No other
// granted location is touched, parent and child paths included.
// Revoking an absent location is a no-op success.
func (s *Service) RevokeSubtree(ctx context.Context, group *Group, location string) error {
	removed, err := s.subtrees.Remove(ctx, group.ID, location)
	if err != nil {
		return fmt.Errorf("failed to remove subtree: %w", err)
	}
	if !removed {
		return nil
	}

	subtree := &Subtree{GroupID: group.ID, Location: location}
	notify.Publish(ctx, s.sink, notify.NewChange(notify.EventDelete, notify.KindSubtree, subtreeAttributes(subtree)))
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSubtreeRevoked,
		RealmID:  group.RealmID,
		Resource: group.Label,
		Metadata: map[string]any{"group_id": group.ID, "location": location},
	})
	return nil
}

// ListSubtrees lists a group's subtree grants.
func (s *Service) ListSubtrees(ctx context.Context, groupID int64) ([]*Subtree, error) {
	return s.subtrees.ListByGroup(ctx, groupID)
}

// locationMatchesRealm checks that the location's leading dot-segment
// is the realm label.
func locationMatchesRealm(location, realmLabel string) bool {
	head, _, _ := strings.Cut(location, ".")
	return head != "" && head == realmLabel
}

func groupAttributes(g *Group) map[string]any {
	return map[string]any{
		"id":       g.ID,
		"realm_id": g.RealmID,
		"label":    g.Label,
	}
}

func membershipAttributes(m *Membership) map[string]any {
	return map[string]any{
		"access_group_id": m.GroupID,
		"identity_id":     m.IdentityID,
	}
}

func subtreeAttributes(st *Subtree) map[string]any {
	return map[string]any{
		"access_group_id": st.GroupID,
		"location":        st.Location,
	}
}
