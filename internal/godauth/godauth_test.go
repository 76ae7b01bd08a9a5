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

package godauth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Low-cost parameters keep the Argon2 work factor out of test time.
func testHasher() *Hasher {
	return NewHasher(8*1024, 1, 1, 16, 32)
}

type fakeKeyRepo struct {
	hashes map[int64]string
	err    error
}

func (r *fakeKeyRepo) GetKeyHash(ctx context.Context, realmID int64) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	hash, ok := r.hashes[realmID]
	if !ok {
		return "", errors.New("no key for realm")
	}
	return hash, nil
}

// TestPurpose: Validates the Argon2id hash round trip.
// Scope: Unit Test
// Security: God keys must never be stored or compared in the clear.
// Expected: Hash produces a PHC-format string that verifies its own
// key and no other; two hashes of one key differ by salt.
// Test Case ID: GOD-01
func TestHasher_HashAndVerify(t *testing.T) {
	h := testHasher()

	encoded, err := h.Hash("swordfish")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

	ok, err := h.Verify("swordfish", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", encoded)
	require.NoError(t, err)
	assert.False(t, ok)

	second, err := h.Hash("swordfish")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, second)
}

// TestPurpose: Validates that a stored hash with different parameters
// still verifies.
// Scope: Unit Test
// Expected: Verify reads parameters from the hash, not the checker's
// own configuration.
// Test Case ID: GOD-02
func TestHasher_Verify_ParamsFromHash(t *testing.T) {
	old := NewHasher(16*1024, 2, 2, 16, 32)
	encoded, err := old.Hash("swordfish")
	require.NoError(t, err)

	ok, err := testHasher().Verify("swordfish", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasher_Verify_MalformedHash(t *testing.T) {
	h := testHasher()

	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8,t=1,p=1$!!!$aGFzaA",
	} {
		ok, err := h.Verify("swordfish", encoded)
		assert.Error(t, err, encoded)
		assert.False(t, ok, encoded)
	}
}

// TestPurpose: Validates that god checks fail closed.
// Scope: Unit Test
// Security: Any lookup or hash failure must deny, never error out to
// a caller that might interpret it as an allow.
// Expected: Empty keys, missing realms, repository errors, and
// corrupt hashes all deny; only the right key for the right realm
// passes.
// Test Case ID: GOD-03
func TestKeyChecker_Check(t *testing.T) {
	ctx := context.Background()
	h := testHasher()

	encoded, err := h.Hash("swordfish")
	require.NoError(t, err)

	repo := &fakeKeyRepo{hashes: map[int64]string{
		1: encoded,
		2: "corrupt",
	}}
	checker := NewKeyChecker(repo, h)

	assert.True(t, checker.Check(ctx, 1, "swordfish"))
	assert.False(t, checker.Check(ctx, 1, "wrong"))
	assert.False(t, checker.Check(ctx, 1, ""))

	// Key belongs to realm 1 only.
	assert.False(t, checker.Check(ctx, 3, "swordfish"))

	// Corrupt stored hash.
	assert.False(t, checker.Check(ctx, 2, "swordfish"))

	// Repository failure.
	broken := NewKeyChecker(&fakeKeyRepo{err: errors.New("db down")}, h)
	assert.False(t, broken.Check(ctx, 1, "swordfish"))
}

func TestStaticChecker(t *testing.T) {
	ctx := context.Background()
	checker := StaticChecker{"1": "swordfish"}

	assert.True(t, checker.Check(ctx, 1, "swordfish"))
	assert.False(t, checker.Check(ctx, 1, "wrong"))
	assert.False(t, checker.Check(ctx, 2, "swordfish"))
	assert.False(t, checker.Check(ctx, 1, ""))
}
