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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates the literal-prefix coverage rule of access
// snapshots.
// Scope: Unit Test
// Security: The prefix match is character-literal by stored
// convention; a delimiter-boundary check would change which paths a
// grant covers.
// Expected: A grant covers itself, dot-descendants, and any path it is
// a character prefix of; it never covers parents or siblings.
// Test Case ID: ENG-01
func TestAccess_CanAccess_PrefixRule(t *testing.T) {
	access := &Access{paths: []string{"acme.secret"}}

	assert.True(t, access.CanAccess("acme.secret"))
	assert.True(t, access.CanAccess("acme.secret.reports"))
	assert.True(t, access.CanAccess("acme.secret.reports.q3"))

	// Character-literal prefix: no boundary check at the dot.
	assert.True(t, access.CanAccess("acme.secretive.thing"))
	assert.True(t, access.CanAccess("acme.secrets"))

	assert.False(t, access.CanAccess("acme"))
	assert.False(t, access.CanAccess("acme.public"))
	assert.False(t, access.CanAccess("acme.secre"))
	assert.False(t, access.CanAccess("rival.secret"))
}

func TestAccess_CanAccess_Empty(t *testing.T) {
	access := &Access{}
	assert.False(t, access.CanAccess("acme.anything"))
	assert.Empty(t, access.Paths())
}

// TestPurpose: Validates that access queries fail closed for unknown
// or foreign identities.
// Scope: Unit Test
// Security: A lookup failure must read as denial, never as an error a
// caller might mishandle into an allow.
// Expected: Unknown identities and identities from another realm get
// an empty snapshot with a nil error.
// Test Case ID: ENG-02
func TestService_AccessFor_FailsClosed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addRealm(t, 1, "acme")
	f.addRealm(t, 2, "rival")
	f.addIdentity(t, 10, 1)

	// Unknown identity.
	access, err := f.service.AccessFor(ctx, 1, 999)
	require.NoError(t, err)
	assert.Empty(t, access.Paths())
	assert.False(t, access.CanAccess("acme.secret"))

	// Identity exists but belongs to another realm.
	access, err = f.service.AccessFor(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, access.Paths())
}

// TestPurpose: Validates the full authorization flow across groups,
// memberships, and subtree grants.
// Scope: Unit Test
// Expected: An identity's snapshot is the union of the locations of
// every group it belongs to, and membership changes take effect on
// the next snapshot load.
// Test Case ID: ENG-03
func TestService_CanAccess_EndToEnd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addRealm(t, 1, "acme")
	f.addIdentity(t, 10, 1)
	f.addIdentity(t, 11, 1)

	editors, err := f.service.CreateGroup(ctx, 1, "editors")
	require.NoError(t, err)
	auditors, err := f.service.CreateGroup(ctx, 1, "auditors")
	require.NoError(t, err)

	require.NoError(t, f.service.GrantSubtree(ctx, editors, "acme.docs"))
	require.NoError(t, f.service.GrantSubtree(ctx, auditors, "acme.finance"))

	require.NoError(t, f.service.AddMember(ctx, editors, 10))
	require.NoError(t, f.service.AddMember(ctx, auditors, 10))
	require.NoError(t, f.service.AddMember(ctx, editors, 11))

	// Identity 10 holds the union of both groups' grants.
	access, err := f.service.AccessFor(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme.docs", "acme.finance"}, access.Paths())
	assert.True(t, access.CanAccess("acme.docs.readme"))
	assert.True(t, access.CanAccess("acme.finance.q3"))
	assert.False(t, access.CanAccess("acme.hr"))

	// Identity 11 only reaches the editors' grant.
	granted, err := f.service.CanAccess(ctx, 1, 11, "acme.finance.q3")
	require.NoError(t, err)
	assert.False(t, granted)
	granted, err = f.service.CanAccess(ctx, 1, 11, "acme.docs")
	require.NoError(t, err)
	assert.True(t, granted)

	// Removal takes effect on the next snapshot.
	require.NoError(t, f.service.RemoveMember(ctx, auditors, 10))
	granted, err = f.service.CanAccess(ctx, 1, 10, "acme.finance.q3")
	require.NoError(t, err)
	assert.False(t, granted)
}

// TestPurpose: Validates that duplicate grants across groups collapse
// in the identity's path union.
// Scope: Unit Test
// Expected: The same location granted to two of the identity's groups
// appears once.
// Test Case ID: ENG-04
func TestService_PathsForIdentity_Deduplicates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addRealm(t, 1, "acme")
	f.addIdentity(t, 10, 1)

	a, err := f.service.CreateGroup(ctx, 1, "a")
	require.NoError(t, err)
	b, err := f.service.CreateGroup(ctx, 1, "b")
	require.NoError(t, err)

	require.NoError(t, f.service.GrantSubtree(ctx, a, "acme.shared"))
	require.NoError(t, f.service.GrantSubtree(ctx, b, "acme.shared"))
	require.NoError(t, f.service.AddMember(ctx, a, 10))
	require.NoError(t, f.service.AddMember(ctx, b, 10))

	paths, err := f.service.PathsForIdentity(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme.shared"}, paths)
}
