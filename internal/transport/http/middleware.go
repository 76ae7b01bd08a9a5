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
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/checkpointd/checkpointd/internal/observability/logger"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// RealmMiddleware derives the request's realm from the Host header
// through the domain resolver and stores it in the context. Requests
// whose host maps to no registered domain are rejected: every
// realm-scoped operation needs a tenant to bind to.
func (h *Handler) RealmMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if split, _, err := net.SplitHostPort(host); err == nil {
			host = split
		}

		d, err := h.domainSvc.Resolve(r.Context(), host)
		if err != nil {
			respondError(w, http.StatusNotFound, "no realm recognized for host "+host)
			return
		}
		rlm, err := h.realmService.GetRealm(r.Context(), d.RealmID)
		if err != nil {
			respondError(w, http.StatusNotFound, "no realm recognized for host "+host)
			return
		}

		next.ServeHTTP(w, r.WithContext(withRealm(r.Context(), rlm)))
	})
}

// IdentityMiddleware loads the authenticated identity announced by
// the external session layer, when present. Anonymous requests pass
// through; endpoints decide for themselves whether an identity is
// required.
func (h *Handler) IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdentityHeader)
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := strconv.ParseInt(header, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "malformed identity header")
			return
		}
		ident, err := h.identities.GetByID(r.Context(), id)
		if err != nil {
			// Unknown identities stay anonymous rather than failing
			// the request; authorization queries fail closed anyway.
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), ident)))
	})
}
