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
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"

	"github.com/checkpointd/checkpointd/internal/accessgroup"
	"github.com/checkpointd/checkpointd/internal/audit"
	"github.com/checkpointd/checkpointd/internal/domain"
	"github.com/checkpointd/checkpointd/internal/godauth"
	"github.com/checkpointd/checkpointd/internal/identity"
	"github.com/checkpointd/checkpointd/internal/realm"
)

// GodKeyHeader carries the realm administrator key. The header is
// stripped and re-injected by the fronting gateway; it never reaches
// this service from the open internet.
const GodKeyHeader = "X-God-Key"

// IdentityHeader carries the authenticated identity id, set by the
// external session layer.
const IdentityHeader = "X-Checkpoint-Identity"

// Handler holds HTTP handlers and dependencies
type Handler struct {
	realmService *realm.Service
	domainSvc    *domain.Service
	groupService *accessgroup.Service
	identities   identity.Repository
	god          godauth.Checker
	auditLogger  audit.Logger
	accessChecks metric.Int64Counter
}

// NewHandler creates a new HTTP handler
func NewHandler(
	realmService *realm.Service,
	domainSvc *domain.Service,
	groupService *accessgroup.Service,
	identities identity.Repository,
	god godauth.Checker,
	auditLogger audit.Logger,
	accessChecks metric.Int64Counter,
) *Handler {
	return &Handler{
		realmService: realmService,
		domainSvc:    domainSvc,
		groupService: groupService,
		identities:   identities,
		god:          god,
		auditLogger:  auditLogger,
		accessChecks: accessChecks,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/checkpoint/v1", func(r chi.Router) {
		// Realm-scoped surface: the realm is resolved from the
		// request host via the domain resolver.
		r.Group(func(r chi.Router) {
			r.Use(h.RealmMiddleware)
			r.Use(h.IdentityMiddleware)

			r.Get("/access_groups", h.ListAccessGroups)
			r.Post("/access_groups", h.CreateAccessGroup)
			r.Post("/access_groups/{identifier}", h.CreateAccessGroup)
			r.Put("/access_groups/{identifier}", h.UpsertAccessGroup)
			r.Get("/access_groups/{identifier}", h.GetAccessGroup)
			r.Delete("/access_groups/{identifier}", h.DeleteAccessGroup)

			r.Get("/access_groups/{identifier}/memberships", h.ListGroupMemberships)
			r.Put("/access_groups/{identifier}/memberships/{identityID}", h.AddMembership)
			r.Delete("/access_groups/{identifier}/memberships/{identityID}", h.RemoveMembership)

			r.Put("/access_groups/{identifier}/subtrees/{location}", h.GrantSubtree)
			r.Delete("/access_groups/{identifier}/subtrees/{location}", h.RevokeSubtree)

			r.Get("/identities/{id}/memberships", h.ListIdentityMemberships)
			r.Get("/identities/{id}/access_to/{path}", h.CheckAccess)
		})

		// Domain administration addresses the realm by label in the
		// path rather than through host resolution.
		r.Get("/realms/{label}/domains/{name}", h.GetDomain)
		r.Post("/realms/{label}/domains", h.CreateDomain)
		r.Delete("/realms/{label}/domains/{name}", h.DeleteDomain)
		r.Put("/realms/{label}/domains/{name}/origins/{origin}", h.AddOrigin)
		r.Delete("/realms/{label}/domains/{name}/origins/{origin}", h.RemoveOrigin)
	})

	return r
}

// HealthCheck reports service liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireGod enforces realm-admin authority for the request, writing
// a 403 and returning false when the injected check denies. The check
// fails closed: a missing key, unknown realm or checker failure all
// deny.
func (h *Handler) requireGod(w http.ResponseWriter, r *http.Request, realmID int64) bool {
	key := r.Header.Get(GodKeyHeader)
	if h.god != nil && h.god.Check(r.Context(), realmID, key) {
		return true
	}
	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeGodCheckDenied,
		RealmID:   realmID,
		Resource:  r.URL.Path,
		IPAddress: getClientIP(r),
	})
	respondError(w, http.StatusForbidden, "god credentials required")
	return false
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
