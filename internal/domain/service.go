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

package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/checkpointd/checkpointd/internal/audit"
	"github.com/checkpointd/checkpointd/internal/observability/logger"
	"github.com/checkpointd/checkpointd/internal/realm"
)

// Service provides domain registration and origin validation.
type Service struct {
	repo        Repository
	realms      realm.Repository
	resolver    *Resolver
	auditLogger audit.Logger
}

// NewService creates a new domain service.
func NewService(repo Repository, realms realm.Repository, resolver *Resolver, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		realms:      realms,
		resolver:    resolver,
		auditLogger: auditLogger,
	}
}

// Resolver exposes the underlying host-name resolver.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// RegisterDomain binds a name to a realm. The name is canonicalized,
// must satisfy RFC shape, and must already be in IDN ASCII form — a
// name that changes under transcoding is rejected rather than
// converted. Re-registering a name for its own realm returns the
// existing domain; registration for another realm's name fails with
// ErrRealmMismatch. The first domain registered for a realm becomes
// that realm's primary domain.
func (s *Service) RegisterDomain(ctx context.Context, rlm *realm.Realm, name string) (*Domain, error) {
	canonical := CanonicalName(name)
	if !ValidName(canonical) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !IsIPAddress(canonical) {
		ascii, err := ToASCII(canonical)
		if err != nil || ascii != canonical {
			return nil, fmt.Errorf("%w: %q", ErrNameNotASCII, name)
		}
	}

	existing, err := s.repo.GetByName(ctx, canonical)
	if err == nil {
		if existing.RealmID != rlm.ID {
			return nil, ErrRealmMismatch
		}
		return existing, nil
	}
	if err != ErrNotFound {
		return nil, fmt.Errorf("failed to look up domain: %w", err)
	}

	now := time.Now()
	d := &Domain{
		RealmID:   rlm.ID,
		Name:      canonical,
		Origins:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create domain: %w", err)
	}

	assigned, err := s.realms.SetPrimaryDomainIfUnset(ctx, rlm.ID, d.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to assign primary domain",
			logger.RealmID(rlm.ID),
			logger.DomainName(d.Name),
			logger.Error(err),
		)
	} else if assigned {
		rlm.PrimaryDomainID = &d.ID
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeDomainCreated,
		RealmID:  rlm.ID,
		Resource: d.Name,
	})

	return d, nil
}

// GetDomain retrieves a domain by canonical name.
func (s *Service) GetDomain(ctx context.Context, name string) (*Domain, error) {
	return s.repo.GetByName(ctx, CanonicalName(name))
}

// ListDomains lists a realm's domains.
func (s *Service) ListDomains(ctx context.Context, realmID int64) ([]*Domain, error) {
	return s.repo.ListByRealm(ctx, realmID)
}

// DeleteDomain destroys a domain. Any realm holding it as primary
// domain has the reference nullified by the store's integrity rules.
func (s *Service) DeleteDomain(ctx context.Context, d *Domain) error {
	if err := s.repo.Delete(ctx, d.ID); err != nil {
		return fmt.Errorf("failed to delete domain: %w", err)
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeDomainDeleted,
		RealmID:  d.RealmID,
		Resource: d.Name,
	})
	return nil
}

// Resolve finds the domain for a host name or IP literal, using DNS
// fallback. See Resolver.Resolve.
func (s *Service) Resolve(ctx context.Context, hostName string) (*Domain, error) {
	return s.resolver.Resolve(ctx, hostName)
}

// AllowOrigin decides whether an origin is trusted for the domain. An
// origin resolving to any domain in the same realm is trusted; failing
// that, its ASCII form must appear among the realm's registered domain
// names or the domain's explicit origin allow-list. This never errors:
// any internal failure results in a deny.
func (s *Service) AllowOrigin(ctx context.Context, d *Domain, origin string) bool {
	resolved, err := s.resolver.Resolve(ctx, origin)
	if err == nil && resolved.RealmID == d.RealmID {
		return true
	}

	host := CanonicalName(origin)
	if ascii, err := ToASCII(host); err == nil {
		host = ascii
	}

	domains, err := s.repo.ListByRealm(ctx, d.RealmID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list realm domains for origin check",
			logger.RealmID(d.RealmID),
			logger.Origin(origin),
			logger.Error(err),
		)
		return false
	}
	for _, other := range domains {
		if other.Name == host {
			return true
		}
	}
	return d.HasOrigin(host)
}

// AddOrigin appends a trusted origin to the domain's allow-list. The
// origin must satisfy the domain name shape; unlike registration it is
// transcoded to ASCII rather than rejected. Adding a present origin is
// a no-op.
func (s *Service) AddOrigin(ctx context.Context, d *Domain, origin string) error {
	canonical := CanonicalName(origin)
	if !ValidName(canonical) {
		return fmt.Errorf("%w: invalid origin %q", ErrInvalidName, origin)
	}
	host := canonical
	if !IsIPAddress(canonical) {
		ascii, err := ToASCII(canonical)
		if err != nil {
			return fmt.Errorf("%w: invalid origin %q", ErrInvalidName, origin)
		}
		host = ascii
	}

	if d.HasOrigin(host) {
		return nil
	}
	origins := append(append([]string{}, d.Origins...), host)
	if err := s.repo.UpdateOrigins(ctx, d.ID, origins); err != nil {
		return fmt.Errorf("failed to update origins: %w", err)
	}
	d.Origins = origins

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeOriginAdded,
		RealmID:  d.RealmID,
		Resource: d.Name,
		Metadata: map[string]any{"origin": host},
	})
	return nil
}

// RemoveOrigin deletes a trusted origin from the allow-list, failing
// with ErrOriginNotFound when it is not present.
func (s *Service) RemoveOrigin(ctx context.Context, d *Domain, origin string) error {
	host := CanonicalName(origin)
	if ascii, err := ToASCII(host); err == nil && !IsIPAddress(host) {
		host = ascii
	}

	if !d.HasOrigin(host) {
		return ErrOriginNotFound
	}
	origins := make([]string, 0, len(d.Origins)-1)
	for _, o := range d.Origins {
		if o != host {
			origins = append(origins, o)
		}
	}
	if err := s.repo.UpdateOrigins(ctx, d.ID, origins); err != nil {
		return fmt.Errorf("failed to update origins: %w", err)
	}
	d.Origins = origins

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeOriginRemoved,
		RealmID:  d.RealmID,
		Resource: d.Name,
		Metadata: map[string]any{"origin": host},
	})
	return nil
}
