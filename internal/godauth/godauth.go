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

// Package godauth verifies realm administrator ("god") credentials.
// The authorization core itself never authenticates; the HTTP boundary
// consults a Checker before destructive operations, and the check
// fails closed on any error.
package godauth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Checker decides whether the presented key carries god privileges
// for a realm.
type Checker interface {
	Check(ctx context.Context, realmID int64, key string) bool
}

// KeyRepository looks up the stored key hash for a realm.
type KeyRepository interface {
	GetKeyHash(ctx context.Context, realmID int64) (string, error)
}

// Hasher hashes and verifies god keys using Argon2id.
type Hasher struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

// NewHasher creates a Hasher with explicit Argon2id parameters.
func NewHasher(memory, iterations uint32, parallelism uint8, saltLength, keyLength uint32) *Hasher {
	return &Hasher{
		memory:      memory,
		iterations:  iterations,
		parallelism: parallelism,
		saltLength:  saltLength,
		keyLength:   keyLength,
	}
}

// Hash encodes a key as $argon2id$v=19$m=...,t=...,p=...$salt$hash.
func (h *Hasher) Hash(key string) (string, error) {
	salt := make([]byte, h.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(key), salt, h.iterations, h.memory, h.parallelism, h.keyLength)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.iterations,
		h.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// Verify checks a key against an encoded hash. The hash's own
// parameters are used so stored keys survive parameter changes.
func (h *Hasher) Verify(key, encodedHash string) (bool, error) {
	sections := strings.Split(strings.TrimPrefix(encodedHash, "$"), "$")
	if len(sections) != 5 || sections[0] != "argon2id" {
		return false, fmt.Errorf("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(sections[1], "v=%d", &version); err != nil {
		return false, fmt.Errorf("invalid version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(sections[2], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("invalid parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(sections[3])
	if err != nil {
		return false, fmt.Errorf("invalid salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(sections[4])
	if err != nil {
		return false, fmt.Errorf("invalid hash: %w", err)
	}

	actual := argon2.IDKey([]byte(key), salt, iterations, memory, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

// KeyChecker verifies presented keys against per-realm Argon2id
// hashes from a KeyRepository.
type KeyChecker struct {
	keys   KeyRepository
	hasher *Hasher
}

// NewKeyChecker creates a KeyChecker.
func NewKeyChecker(keys KeyRepository, hasher *Hasher) *KeyChecker {
	return &KeyChecker{keys: keys, hasher: hasher}
}

// Check verifies the key for the realm. Missing keys, malformed
// hashes and repository errors all deny.
func (c *KeyChecker) Check(ctx context.Context, realmID int64, key string) bool {
	if key == "" {
		return false
	}
	encoded, err := c.keys.GetKeyHash(ctx, realmID)
	if err != nil {
		slog.DebugContext(ctx, "god key lookup failed",
			slog.Int64("realm_id", realmID),
			slog.String("error", err.Error()),
		)
		return false
	}
	ok, err := c.hasher.Verify(key, encoded)
	if err != nil {
		slog.WarnContext(ctx, "god key hash unreadable",
			slog.Int64("realm_id", realmID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return ok
}

// StaticChecker authorizes fixed realm/key pairs. Test helper.
type StaticChecker map[string]string

// Check authorizes when the realm's configured key matches exactly.
func (c StaticChecker) Check(ctx context.Context, realmID int64, key string) bool {
	want, ok := c[strconv.FormatInt(realmID, 10)]
	return ok && key != "" && want == key
}
