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
	"log/slog"
	"net"
	"time"

	"github.com/checkpointd/checkpointd/internal/observability/logger"
)

// DefaultResolveTimeout bounds the DNS fallback step of Resolve.
const DefaultResolveTimeout = 4 * time.Second

// IPLookup resolves a host name to IP address strings. Injected so
// tests can run without the network.
type IPLookup interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

type netLookup struct {
	resolver *net.Resolver
}

func (l netLookup) LookupHost(ctx context.Context, host string) ([]string, error) {
	return l.resolver.LookupHost(ctx, host)
}

// NewNetLookup returns an IPLookup backed by the system resolver.
func NewNetLookup() IPLookup {
	return netLookup{resolver: net.DefaultResolver}
}

// Resolver maps host names to registered domains, falling back to a
// timeout-bounded DNS lookup when no domain matches the name directly.
type Resolver struct {
	repo    Repository
	lookup  IPLookup
	timeout time.Duration
}

// NewResolver creates a resolver. A zero timeout selects
// DefaultResolveTimeout.
func NewResolver(repo Repository, lookup IPLookup, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	return &Resolver{repo: repo, lookup: lookup, timeout: timeout}
}

// Resolve finds the domain matching a host name or IP literal.
//
// The stored name is tried first and never touches the network. When
// that misses and the input is not an IP literal, the name's ASCII
// form is resolved via DNS under the configured timeout and the
// resulting addresses are matched against stored domains. Every
// network failure, including timeout, degrades to ErrNotFound; this
// method reports no error other than ErrNotFound to its callers.
func (r *Resolver) Resolve(ctx context.Context, hostName string) (*Domain, error) {
	name := CanonicalName(hostName)
	if name == "" {
		return nil, ErrNotFound
	}

	d, err := r.repo.GetByName(ctx, name)
	if err == nil {
		return d, nil
	}
	if err != ErrNotFound {
		slog.ErrorContext(ctx, "domain lookup failed",
			logger.DomainName(name),
			logger.Error(err),
		)
		return nil, ErrNotFound
	}

	if IsIPAddress(name) {
		return nil, ErrNotFound
	}

	ascii, err := ToASCII(name)
	if err != nil {
		return nil, ErrNotFound
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := r.lookup.LookupHost(lookupCtx, ascii)
	if err != nil {
		slog.WarnContext(ctx, "dns resolution failed",
			logger.DomainName(ascii),
			logger.Error(err),
		)
		return nil, ErrNotFound
	}

	ips := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if IsIPAddress(a) {
			ips = append(ips, a)
		}
	}
	if len(ips) == 0 {
		return nil, ErrNotFound
	}

	d, err = r.repo.GetByAnyName(ctx, ips)
	if err != nil {
		if err != ErrNotFound {
			slog.ErrorContext(ctx, "domain lookup by address failed",
				logger.DomainName(ascii),
				logger.Error(err),
			)
		}
		return nil, ErrNotFound
	}
	return d, nil
}
