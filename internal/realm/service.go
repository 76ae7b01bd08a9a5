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

package realm

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// Realm labels double as the leading segment of subtree locations, so
// they share the access-group label shape: no leading digit.
var labelPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// ValidLabel reports whether label is an acceptable realm label.
func ValidLabel(label string) bool {
	return labelPattern.MatchString(label)
}

// Service provides realm registry business logic.
type Service struct {
	repo Repository
}

// NewService creates a new realm service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateRealm registers a new realm.
func (s *Service) CreateRealm(ctx context.Context, label string) (*Realm, error) {
	if !ValidLabel(label) {
		return nil, fmt.Errorf("invalid realm label %q", label)
	}

	now := time.Now()
	realm := &Realm{
		Label:     label,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, realm); err != nil {
		return nil, fmt.Errorf("failed to create realm: %w", err)
	}
	return realm, nil
}

// GetRealm retrieves a realm by id.
func (s *Service) GetRealm(ctx context.Context, id int64) (*Realm, error) {
	return s.repo.GetByID(ctx, id)
}

// GetRealmByLabel retrieves a realm by label.
func (s *Service) GetRealmByLabel(ctx context.Context, label string) (*Realm, error) {
	return s.repo.GetByLabel(ctx, label)
}

// ListRealms lists all realms.
func (s *Service) ListRealms(ctx context.Context) ([]*Realm, error) {
	return s.repo.List(ctx)
}
