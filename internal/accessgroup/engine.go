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
	"strings"

	"github.com/checkpointd/checkpointd/internal/identity"
)

// PathsForIdentity returns the union of subtree locations granted to
// every group the identity belongs to. Realm scoping of the identity
// is the caller's responsibility.
func (s *Service) PathsForIdentity(ctx context.Context, identityID int64) ([]string, error) {
	return s.subtrees.LocationsForIdentity(ctx, identityID)
}

// Access is a snapshot of the paths one identity can reach, loaded
// once and queried many times within a single request. It is not
// safe to hold across requests: membership and subtree mutations do
// not invalidate it.
type Access struct {
	paths []string
}

// AccessFor loads the access snapshot for an identity scoped to a
// realm. An unknown identity, or one from a different realm, yields a
// snapshot that denies everything — authorization queries fail closed
// instead of erroring.
func (s *Service) AccessFor(ctx context.Context, realmID, identityID int64) (*Access, error) {
	ident, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if err == identity.ErrNotFound {
			return &Access{}, nil
		}
		return nil, err
	}
	if ident.RealmID != realmID {
		return &Access{}, nil
	}

	paths, err := s.PathsForIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return &Access{paths: paths}, nil
}

// CanAccess reports whether the snapshot covers path. A path is
// covered when at least one granted location is a literal character
// prefix of it — there is no delimiter-boundary check, so a grant of
// "acme.secret" also covers "acme.secretive.thing". That quirk is the
// stored convention and is preserved deliberately; changing it would
// change security semantics.
func (a *Access) CanAccess(path string) bool {
	for _, granted := range a.paths {
		if strings.HasPrefix(path, granted) {
			return true
		}
	}
	return false
}

// Paths returns the granted locations in the snapshot.
func (a *Access) Paths() []string {
	return a.paths
}

// CanAccess answers the (identity, path) query in one call. Callers
// checking several paths for the same identity should use AccessFor
// and query the snapshot instead.
func (s *Service) CanAccess(ctx context.Context, realmID, identityID int64, path string) (bool, error) {
	access, err := s.AccessFor(ctx, realmID, identityID)
	if err != nil {
		return false, err
	}
	return access.CanAccess(path), nil
}
