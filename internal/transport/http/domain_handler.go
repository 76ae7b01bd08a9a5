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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/checkpointd/checkpointd/internal/domain"
	"github.com/checkpointd/checkpointd/internal/realm"
)

// CreateDomainRequest carries the name to register.
type CreateDomainRequest struct {
	Name string `json:"name" example:"acme.example.com"`
}

// GetDomain retrieves a registered domain by name.
// @Summary Get domain
// @Tags Domains
// @Produce json
// @Success 200 {object} map[string]any
// @Router /realms/{label}/domains/{name} [get]
func (h *Handler) GetDomain(w http.ResponseWriter, r *http.Request) {
	d, err := h.domainSvc.GetDomain(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no such domain")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to look up domain")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"domain": d})
}

// CreateDomain registers a domain name for the realm. Gods of the
// realm only. Registering a name already bound to another realm is a
// 403; re-registering for the same realm returns the existing domain.
// @Summary Register domain
// @Tags Domains
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Router /realms/{label}/domains [post]
func (h *Handler) CreateDomain(w http.ResponseWriter, r *http.Request) {
	rlm, ok := h.findRealm(w, r)
	if !ok {
		return
	}
	if !h.requireGod(w, r, rlm.ID) {
		return
	}

	var req CreateDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.domainSvc.RegisterDomain(r.Context(), rlm, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRealmMismatch):
			respondError(w, http.StatusForbidden, "domain is connected to another realm")
		case errors.Is(err, domain.ErrInvalidName), errors.Is(err, domain.ErrNameNotASCII):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "failed to register domain")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"domain": d})
}

// DeleteDomain destroys a domain registration. Gods of the realm
// only; the domain must belong to the realm addressed in the path.
// @Summary Delete domain
// @Tags Domains
// @Success 204
// @Router /realms/{label}/domains/{name} [delete]
func (h *Handler) DeleteDomain(w http.ResponseWriter, r *http.Request) {
	rlm, d, ok := h.findRealmDomain(w, r)
	if !ok {
		return
	}
	if !h.requireGod(w, r, rlm.ID) {
		return
	}

	if err := h.domainSvc.DeleteDomain(r.Context(), d); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete domain")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddOrigin adds a trusted origin to the domain's allow-list. Gods
// of the realm only.
// @Summary Add trusted origin
// @Tags Domains
// @Success 204
// @Router /realms/{label}/domains/{name}/origins/{origin} [put]
func (h *Handler) AddOrigin(w http.ResponseWriter, r *http.Request) {
	rlm, d, ok := h.findRealmDomain(w, r)
	if !ok {
		return
	}
	if !h.requireGod(w, r, rlm.ID) {
		return
	}

	if err := h.domainSvc.AddOrigin(r.Context(), d, chi.URLParam(r, "origin")); err != nil {
		if errors.Is(err, domain.ErrInvalidName) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to add origin")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveOrigin removes a trusted origin from the allow-list. Gods of
// the realm only. Removing an absent origin is a 404.
// @Summary Remove trusted origin
// @Tags Domains
// @Success 204
// @Router /realms/{label}/domains/{name}/origins/{origin} [delete]
func (h *Handler) RemoveOrigin(w http.ResponseWriter, r *http.Request) {
	rlm, d, ok := h.findRealmDomain(w, r)
	if !ok {
		return
	}
	if !h.requireGod(w, r, rlm.ID) {
		return
	}

	if err := h.domainSvc.RemoveOrigin(r.Context(), d, chi.URLParam(r, "origin")); err != nil {
		if errors.Is(err, domain.ErrOriginNotFound) {
			respondError(w, http.StatusNotFound, "no such origin")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to remove origin")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// findRealm resolves the {label} path parameter to a realm.
func (h *Handler) findRealm(w http.ResponseWriter, r *http.Request) (*realm.Realm, bool) {
	label := chi.URLParam(r, "label")
	rlm, err := h.realmService.GetRealmByLabel(r.Context(), label)
	if err != nil {
		if errors.Is(err, realm.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no such realm ("+label+")")
			return nil, false
		}
		respondError(w, http.StatusInternalServerError, "failed to look up realm")
		return nil, false
	}
	return rlm, true
}

// findRealmDomain resolves {label} and {name} together, rejecting a
// domain that belongs to a different realm than the path names.
func (h *Handler) findRealmDomain(w http.ResponseWriter, r *http.Request) (*realm.Realm, *domain.Domain, bool) {
	rlm, ok := h.findRealm(w, r)
	if !ok {
		return nil, nil, false
	}

	d, err := h.domainSvc.GetDomain(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no such domain")
			return nil, nil, false
		}
		respondError(w, http.StatusInternalServerError, "failed to look up domain")
		return nil, nil, false
	}
	if d.RealmID != rlm.ID {
		respondError(w, http.StatusForbidden, "domain is connected to another realm")
		return nil, nil, false
	}
	return rlm, d, true
}
