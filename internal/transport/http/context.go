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
	"context"

	"github.com/checkpointd/checkpointd/internal/identity"
	"github.com/checkpointd/checkpointd/internal/realm"
)

type contextKey string

const (
	realmKey    contextKey = "realm"
	identityKey contextKey = "identity"
)

// CurrentRealm retrieves the request's realm from context.
func CurrentRealm(ctx context.Context) *realm.Realm {
	if val, ok := ctx.Value(realmKey).(*realm.Realm); ok {
		return val
	}
	return nil
}

// CurrentIdentity retrieves the authenticated identity from context,
// or nil for anonymous requests.
func CurrentIdentity(ctx context.Context) *identity.Identity {
	if val, ok := ctx.Value(identityKey).(*identity.Identity); ok {
		return val
	}
	return nil
}

func withRealm(ctx context.Context, rlm *realm.Realm) context.Context {
	return context.WithValue(ctx, realmKey, rlm)
}

func withIdentity(ctx context.Context, ident *identity.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}
