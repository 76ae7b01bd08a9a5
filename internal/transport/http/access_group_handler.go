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

package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/checkpointd/checkpointd/internal/accessgroup"
	"github.com/checkpointd/checkpointd/internal/identity"
	"github.com/checkpointd/checkpointd/internal/observability/logger"
)

// ListAccessGroups lists all groups for the current realm.
// @Summary List access groups
// @Tags AccessGroups
// @Produce json
// @Success 200 {object} map[string]any
// @Router /access_groups [get]
func (h *Handler) ListAccessGroups(w http.ResponseWriter, r *http.Request) {
	rlm := CurrentRealm(r.Context())

	groups, err := h.groupService.ListGroups(r.Context(), rlm.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list access groups", logger.RealmID(rlm.ID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list access groups")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"access_groups": groups})
}

// CreateAccessGroup creates a new group, optionally labeled. Gods of
// the realm only.
// @Summary Create access group
// @Tags AccessGroups
// @Produce json
// @Success 201 {object} map[string]any
// @Router /access_groups/{identifier} [post]
func (h *Handler) CreateAccessGroup(w http.ResponseWriter, r *http.Request) {
	rlm := CurrentRealm(r.Context())
	if !h.requireGod(w, r, rlm.ID) {
		return
	}

	label := chi.URLParam(r, "identifier")
	group, err := h.groupService.CreateGroup(r.Context(), rlm.ID, label)
	if err != nil {
		switch {
		case errors.Is(err, accessgroup.ErrInvalidLabel):
			respondError(w, http.StatusBadRequest, "invalid label")
		case errors.Is(err, accessgroup.ErrDuplicate):
			respondError(w, http.StatusConflict, "label already taken")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create access group")
		}
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"access_group": group})
}

// UpsertAccessGroup creates the labeled group or returns it
// unchanged. Gods of the realm only.
// @Summary Create or fetch access group by label
// @Tags AccessGroups
// @Produce json
// @Success 200 {object} map[string]any
// @Success 201 {object} map[string]any
// @Router /access_groups/{identifier} [put]
func (h *Handler) UpsertAccessGroup(w http.ResponseWriter, r *http.Request) {
	rlm := CurrentRealm(r.Context())
	if !h.requireGod(w, r, rlm.ID) {
		return
	}

	label := chi.URLParam(r, "identifier")
	group, created, err := h.groupService.UpsertGroup(r.Context(), rlm.ID, label)
	if err != nil {
		if errors.Is(err, accessgroup.ErrInvalidLabel) {
			respondError(w, http.StatusBadRequest, "invalid label")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to upsert access group")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]any{"access_group": group})
}

// GetAccessGroup retrieves a group by id or label.
// @Summary Get access group
// @Tags AccessGroups
// @Produce json
// @Success 200 {object} map[string]any
// @Router /access_groups/{identifier} [get]
func (h *Handler) GetAccessGroup(w http.ResponseWriter, r *http.Request) {
	group, ok := h.findGroup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"access_group": group})
}

// DeleteAccessGroup destroys a group and everything attached to it.
// Gods of the realm only.
// @Summary Delete access group
// @Tags AccessGroups
// @Success 204
// @Router /access_groups/{identifier} [delete]
func (h *Handler) DeleteAccessGroup(w http.ResponseWriter, r *http.Request) {
	group, ok := h.findGroup(w, r)
	if !ok {
		return
	}
	if !h.requireGod(w, r, group.RealmID) {
		return
	}

	if err := h.groupService.DeleteGroup(r.Context(), group); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete access group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMembership adds an identity to the group. Gods of the realm
// only. Adding twice is a no-op success; an identity from another
// realm is a 409.
// @Summary Add group member
// @Tags AccessGroups
// @Success 204
// @Failure 409 {object} map[string]string
// @Router /access_groups/{identifier}/memberships/{identityID} [put]
func (h *Handler) AddMembership(w http.ResponseWriter, r *http.Request) {
	group, ok := h.findGroup(w, r)
	if !ok {
		return
	}
	if !h.requireGod(w, r, group.RealmID) {
		return
	}

	identityID, err := strconv.ParseInt(chi.URLParam(r, "identityID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed identity id")
		return
	}

	if err := h.groupService.AddMember(r.Context(), group, identityID); err != nil {
		switch {
		case errors.Is(err, identity.ErrNotFound):
			respondError(w, http.StatusNotFound, "no such identity")
		case errors.Is(err, accessgroup.ErrCrossRealmViolation):
			respondError(w, http.StatusConflict, "identity realm does not match group realm")
		default:
			respondError(w, http.StatusInternalServerError, "failed to add membership")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMembership removes an identity from the group. Gods of the
// realm only. Removing an absent membership succeeds.
// @Summary Remove group member
// @Tags AccessGroups
// @Success 204
// @Router /access_groups/{identifier}/memberships/{identityID} [delete]
func (h *Handler) RemoveMembership(w http.ResponseWriter, r *http.Request) {
	group, ok := h.findGroup(w, r)
	if !ok {
		return
	}
	if !h.requireGod(w, r, group.RealmID) {
		return
	}

	identityID, err := strconv.ParseInt(chi.URLParam(r, "identityID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed identity id")
		return
	}

	if err := h.groupService.RemoveMember(r.Context(), group, identityID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to remove membership")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListGroupMemberships lists a group's memberships.
// @Summary List group memberships
// @Tags AccessGroups
// @Produce json
// @Success 200 {object} map[string]any
// @Router /access_groups/{identifier}/memberships [get]
func (h *Handler) ListGroupMemberships(w http.ResponseWriter, r *http.Request) {
	group, ok := h.findGroup(w, r)
	if !ok {
		return
	}

	memberships, err := h.groupService.ListMembershipsByGroup(r.Context(), group.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list memberships")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"memberships": memberships})
}

// GrantSubtree adds a path grant to the group. Gods of the realm
// only. Members of the group can then read restricted content under
// the location.
// @Summary Grant subtree
// @Tags AccessGroups
// @Success 204
// @Failure 403 {object} map[string]string
// @Router /access_groups/{identifier}/subtrees/{location} [put]
func (h *Handler) GrantSubtree(w http.ResponseWriter, r *http.Request) {
	group, ok := h.findGroup(w, r)
	if !ok {
		return
	}
	if !h.requireGod(w, r, group.RealmID) {
		return
	}

	location := chi.URLParam(r, "location")
	if err := h.groupService.GrantSubtree(r.Context(), group, location); err != nil {
		if errors.Is(err, accessgroup.ErrRealmPathMismatch) {
			respondError(w, http.StatusForbidden, "subtree must be in same realm as group")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to grant subtree")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevokeSubtree removes a path grant. The location must match
// exactly as granted; nothing else is removed. Gods of the realm
// only.
// @Summary Revoke subtree
// @Tags AccessGroups
// @Success 204
// @Router /access_groups/{identifier}/subtrees/{location} [delete]
func (h *Handler) RevokeSubtree(w http.ResponseWriter, r *http.Request) {
	group, ok := h.findGroup(w, r)
	if !ok {
		return
	}
	if !h.requireGod(w, r, group.RealmID) {
		return
	}

	location := chi.URLParam(r, "location")
	if err := h.groupService.RevokeSubtree(r.Context(), group, location); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to revoke subtree")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListIdentityMemberships lists every group membership an identity
// holds within the current realm. The id "me" addresses the caller.
// @Summary List identity memberships
// @Tags Identities
// @Produce json
// @Success 200 {object} map[string]any
// @Router /identities/{id}/memberships [get]
func (h *Handler) ListIdentityMemberships(w http.ResponseWriter, r *http.Request) {
	rlm := CurrentRealm(r.Context())

	ident, ok := h.resolveIdentity(w, r)
	if !ok {
		return
	}
	if ident == nil || ident.RealmID != rlm.ID {
		respondError(w, http.StatusNotFound, "no such identity in this realm")
		return
	}

	memberships, err := h.groupService.ListMembershipsByIdentity(r.Context(), ident.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list memberships")
		return
	}

	groups := make([]*accessgroup.Group, 0, len(memberships))
	for _, m := range memberships {
		group, err := h.groupService.FindGroup(r.Context(), rlm.ID, accessgroup.ByID(m.GroupID))
		if err != nil {
			continue
		}
		groups = append(groups, group)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"memberships":   memberships,
		"access_groups": groups,
	})
}

// CheckAccess asks whether an identity may read restricted content
// at a path. Always 200: unknown identities and foreign realms are
// simply not granted.
// @Summary Check access to a path
// @Tags Identities
// @Produce json
// @Success 200 {object} map[string]any
// @Router /identities/{id}/access_to/{path} [get]
func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	rlm := CurrentRealm(r.Context())
	path := chi.URLParam(r, "path")

	granted := false
	if ident, ok := h.resolveIdentity(w, r); !ok {
		return
	} else if ident != nil {
		var err error
		granted, err = h.groupService.CanAccess(r.Context(), rlm.ID, ident.ID, path)
		if err != nil {
			slog.ErrorContext(r.Context(), "access check failed",
				logger.RealmID(rlm.ID),
				logger.IdentityID(ident.ID),
				logger.Error(err),
			)
			respondError(w, http.StatusInternalServerError, "access check failed")
			return
		}
	}

	if h.accessChecks != nil {
		h.accessChecks.Add(r.Context(), 1, metric.WithAttributes(
			attribute.Bool("granted", granted),
		))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"access": map[string]any{"granted": granted, "path": path},
	})
}

// findGroup resolves the {identifier} path parameter to a group in
// the current realm, writing a 404 when it does not exist.
func (h *Handler) findGroup(w http.ResponseWriter, r *http.Request) (*accessgroup.Group, bool) {
	rlm := CurrentRealm(r.Context())
	sel := accessgroup.ParseSelector(chi.URLParam(r, "identifier"))

	group, err := h.groupService.FindGroup(r.Context(), rlm.ID, sel)
	if err != nil {
		if errors.Is(err, accessgroup.ErrGroupNotFound) {
			respondError(w, http.StatusNotFound, "no such group ("+sel.String()+")")
			return nil, false
		}
		respondError(w, http.StatusInternalServerError, "failed to look up group")
		return nil, false
	}
	return group, true
}

// resolveIdentity resolves the {id} path parameter, where "me" means
// the caller. A nil identity with ok=true means "not found", which
// access checks translate to a deny rather than an error.
func (h *Handler) resolveIdentity(w http.ResponseWriter, r *http.Request) (*identity.Identity, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "me" {
		return CurrentIdentity(r.Context()), true
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed identity id")
		return nil, false
	}
	ident, err := h.identities.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, true
		}
		respondError(w, http.StatusInternalServerError, "failed to look up identity")
		return nil, false
	}
	return ident, true
}
