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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkpointd/checkpointd/internal/accessgroup"
	"github.com/checkpointd/checkpointd/internal/audit"
	"github.com/checkpointd/checkpointd/internal/domain"
	"github.com/checkpointd/checkpointd/internal/godauth"
	"github.com/checkpointd/checkpointd/internal/identity"
	"github.com/checkpointd/checkpointd/internal/notify"
	"github.com/checkpointd/checkpointd/internal/realm"
)

// In-memory repositories backing a full router. The god checker is a
// godauth.StaticChecker so realm-admin paths can be exercised without
// hashing.

type memRealmRepo struct {
	nextID int64
	realms map[int64]*realm.Realm
}

func (r *memRealmRepo) Create(ctx context.Context, rlm *realm.Realm) error {
	rlm.ID = r.nextID
	r.nextID++
	r.realms[rlm.ID] = rlm
	return nil
}

func (r *memRealmRepo) GetByID(ctx context.Context, id int64) (*realm.Realm, error) {
	rlm, ok := r.realms[id]
	if !ok {
		return nil, realm.ErrNotFound
	}
	return rlm, nil
}

func (r *memRealmRepo) GetByLabel(ctx context.Context, label string) (*realm.Realm, error) {
	for _, rlm := range r.realms {
		if rlm.Label == label {
			return rlm, nil
		}
	}
	return nil, realm.ErrNotFound
}

func (r *memRealmRepo) List(ctx context.Context) ([]*realm.Realm, error) {
	var out []*realm.Realm
	for _, rlm := range r.realms {
		out = append(out, rlm)
	}
	return out, nil
}

func (r *memRealmRepo) SetPrimaryDomainIfUnset(ctx context.Context, realmID, domainID int64) (bool, error) {
	rlm, ok := r.realms[realmID]
	if !ok {
		return false, realm.ErrNotFound
	}
	if rlm.PrimaryDomainID != nil {
		return false, nil
	}
	rlm.PrimaryDomainID = &domainID
	return true, nil
}

type memDomainRepo struct {
	nextID  int64
	domains map[string]*domain.Domain
}

func (r *memDomainRepo) Create(ctx context.Context, d *domain.Domain) error {
	d.ID = r.nextID
	r.nextID++
	r.domains[d.Name] = d
	return nil
}

func (r *memDomainRepo) GetByID(ctx context.Context, id int64) (*domain.Domain, error) {
	for _, d := range r.domains {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memDomainRepo) GetByName(ctx context.Context, name string) (*domain.Domain, error) {
	d, ok := r.domains[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func (r *memDomainRepo) GetByAnyName(ctx context.Context, names []string) (*domain.Domain, error) {
	for _, name := range names {
		if d, ok := r.domains[name]; ok {
			return d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memDomainRepo) ListByRealm(ctx context.Context, realmID int64) ([]*domain.Domain, error) {
	var out []*domain.Domain
	for _, d := range r.domains {
		if d.RealmID == realmID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDomainRepo) UpdateOrigins(ctx context.Context, id int64, origins []string) error {
	for _, d := range r.domains {
		if d.ID == id {
			d.Origins = origins
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memDomainRepo) Delete(ctx context.Context, id int64) error {
	for name, d := range r.domains {
		if d.ID == id {
			delete(r.domains, name)
			return nil
		}
	}
	return domain.ErrNotFound
}

type memIdentityRepo struct {
	identities map[int64]*identity.Identity
}

func (r *memIdentityRepo) Create(ctx context.Context, ident *identity.Identity) error {
	r.identities[ident.ID] = ident
	return nil
}

func (r *memIdentityRepo) GetByID(ctx context.Context, id int64) (*identity.Identity, error) {
	ident, ok := r.identities[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return ident, nil
}

type memGroupRepo struct {
	nextID int64
	groups map[int64]*accessgroup.Group
}

func (r *memGroupRepo) Create(ctx context.Context, g *accessgroup.Group) error {
	for _, existing := range r.groups {
		if existing.RealmID == g.RealmID && existing.Label != "" && existing.Label == g.Label {
			return accessgroup.ErrDuplicate
		}
	}
	g.ID = r.nextID
	r.nextID++
	r.groups[g.ID] = g
	return nil
}

func (r *memGroupRepo) GetByID(ctx context.Context, realmID, id int64) (*accessgroup.Group, error) {
	g, ok := r.groups[id]
	if !ok || g.RealmID != realmID {
		return nil, accessgroup.ErrGroupNotFound
	}
	return g, nil
}

func (r *memGroupRepo) GetByLabel(ctx context.Context, realmID int64, label string) (*accessgroup.Group, error) {
	for _, g := range r.groups {
		if g.RealmID == realmID && g.Label == label {
			return g, nil
		}
	}
	return nil, accessgroup.ErrGroupNotFound
}

func (r *memGroupRepo) List(ctx context.Context, realmID int64) ([]*accessgroup.Group, error) {
	var out []*accessgroup.Group
	for _, g := range r.groups {
		if g.RealmID == realmID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *memGroupRepo) Delete(ctx context.Context, id int64) error {
	delete(r.groups, id)
	return nil
}

type memMembershipRepo struct {
	rows []*accessgroup.Membership
}

func (r *memMembershipRepo) Add(ctx context.Context, m *accessgroup.Membership) error {
	for _, row := range r.rows {
		if row.GroupID == m.GroupID && row.IdentityID == m.IdentityID {
			return accessgroup.ErrDuplicate
		}
	}
	r.rows = append(r.rows, m)
	return nil
}

func (r *memMembershipRepo) Remove(ctx context.Context, groupID, identityID int64) (bool, error) {
	for i, row := range r.rows {
		if row.GroupID == groupID && row.IdentityID == identityID {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *memMembershipRepo) Exists(ctx context.Context, groupID, identityID int64) (bool, error) {
	for _, row := range r.rows {
		if row.GroupID == groupID && row.IdentityID == identityID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memMembershipRepo) ListByGroup(ctx context.Context, groupID int64) ([]*accessgroup.Membership, error) {
	var out []*accessgroup.Membership
	for _, row := range r.rows {
		if row.GroupID == groupID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memMembershipRepo) ListByIdentity(ctx context.Context, identityID int64) ([]*accessgroup.Membership, error) {
	var out []*accessgroup.Membership
	for _, row := range r.rows {
		if row.IdentityID == identityID {
			out = append(out, row)
		}
	}
	return out, nil
}

type memSubtreeRepo struct {
	rows        []*accessgroup.Subtree
	memberships *memMembershipRepo
}

func (r *memSubtreeRepo) Add(ctx context.Context, st *accessgroup.Subtree) error {
	for _, row := range r.rows {
		if row.GroupID == st.GroupID && row.Location == st.Location {
			return accessgroup.ErrDuplicate
		}
	}
	r.rows = append(r.rows, st)
	return nil
}

func (r *memSubtreeRepo) Remove(ctx context.Context, groupID int64, location string) (bool, error) {
	for i, row := range r.rows {
		if row.GroupID == groupID && row.Location == location {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *memSubtreeRepo) Exists(ctx context.Context, groupID int64, location string) (bool, error) {
	for _, row := range r.rows {
		if row.GroupID == groupID && row.Location == location {
			return true, nil
		}
	}
	return false, nil
}

func (r *memSubtreeRepo) ListByGroup(ctx context.Context, groupID int64) ([]*accessgroup.Subtree, error) {
	var out []*accessgroup.Subtree
	for _, row := range r.rows {
		if row.GroupID == groupID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memSubtreeRepo) LocationsForIdentity(ctx context.Context, identityID int64) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, m := range r.memberships.rows {
		if m.IdentityID != identityID {
			continue
		}
		for _, st := range r.rows {
			if st.GroupID == m.GroupID && !seen[st.Location] {
				seen[st.Location] = true
				out = append(out, st.Location)
			}
		}
	}
	return out, nil
}

// noLookup fails every DNS query so tests never leave the process.
type noLookup struct{}

func (noLookup) LookupHost(ctx context.Context, host string) ([]string, error) {
	return nil, errors.New("lookup disabled in tests")
}

type testEnv struct {
	router     http.Handler
	realms     *memRealmRepo
	identities *memIdentityRepo
}

const testGodKey = "let-me-in"

// newTestEnv builds a router over in-memory storage with one realm
// "acme" reachable at host acme.example.org and a god key for it.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	realms := &memRealmRepo{nextID: 1, realms: map[int64]*realm.Realm{}}
	domains := &memDomainRepo{nextID: 1, domains: map[string]*domain.Domain{}}
	identities := &memIdentityRepo{identities: map[int64]*identity.Identity{}}
	groups := &memGroupRepo{nextID: 1, groups: map[int64]*accessgroup.Group{}}
	memberships := &memMembershipRepo{}
	subtrees := &memSubtreeRepo{memberships: memberships}

	auditLogger := audit.NewSlogLogger()
	realmService := realm.NewService(realms)
	resolver := domain.NewResolver(domains, noLookup{}, 0)
	domainService := domain.NewService(domains, realms, resolver, auditLogger)
	groupService := accessgroup.NewService(groups, memberships, subtrees, identities, realms, notify.NopSink{}, auditLogger)

	acme, err := realmService.CreateRealm(ctx, "acme")
	require.NoError(t, err)
	_, err = domainService.RegisterDomain(ctx, acme, "acme.example.org")
	require.NoError(t, err)

	god := godauth.StaticChecker{strconv.FormatInt(acme.ID, 10): testGodKey}

	handler := NewHandler(realmService, domainService, groupService, identities, god, auditLogger, nil)
	router := NewRouter(handler, NewRateLimiter(1000, 1000))

	return &testEnv{router: router, realms: realms, identities: identities}
}

func (e *testEnv) addIdentity(id, realmID int64) {
	e.identities.identities[id] = &identity.Identity{ID: id, RealmID: realmID}
}

// do issues a request against the realm's host with the god key
// attached when god is true.
func (e *testEnv) do(t *testing.T, method, path string, god bool, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, "http://acme.example.org"+path, reader)
	req.Host = "acme.example.org"
	if god {
		req.Header.Set(GodKeyHeader, testGodKey)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", false, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

// TestPurpose: Validates realm derivation from the request host.
// Scope: Integration Test (handler stack, in-memory storage)
// Expected: A host bound to no registered domain cannot reach any
// realm-scoped endpoint.
// Test Case ID: API-01
func TestRealmMiddleware_UnknownHost(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "http://stranger.example.org/api/checkpoint/v1/access_groups", nil)
	req.Host = "stranger.example.org"
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestPurpose: Validates the god gate on mutating endpoints.
// Scope: Integration Test
// Security: Destructive group operations need realm-admin authority.
// Expected: 403 without the key, 201 with it.
// Test Case ID: API-02
func TestCreateAccessGroup_RequiresGod(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/checkpoint/v1/access_groups/editors", false, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/checkpoint/v1/access_groups/editors", true, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	group := decodeBody(t, rec)["access_group"].(map[string]any)
	assert.Equal(t, "editors", group["label"])
}

func TestUpsertAccessGroup(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/checkpoint/v1/access_groups/editors", true, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/checkpoint/v1/access_groups/editors", true, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/checkpoint/v1/access_groups/42", true, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestPurpose: Validates the full authorization round trip over HTTP.
// Scope: Integration Test
// Expected: After granting a subtree to a group and adding a member,
// the access query reports granted for covered paths and not granted
// for others or for unknown identities, always with a 200.
// Test Case ID: API-03
func TestCheckAccess_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.addIdentity(10, 1)

	rec := env.do(t, http.MethodPost, "/api/checkpoint/v1/access_groups/editors", true, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/checkpoint/v1/access_groups/editors/subtrees/acme.docs", true, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/checkpoint/v1/access_groups/editors/memberships/10", true, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	check := func(identityID, path string) map[string]any {
		rec := env.do(t, http.MethodGet, "/api/checkpoint/v1/identities/"+identityID+"/access_to/"+path, false, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		return decodeBody(t, rec)["access"].(map[string]any)
	}

	access := check("10", "acme.docs.readme")
	assert.Equal(t, true, access["granted"])
	assert.Equal(t, "acme.docs.readme", access["path"])

	access = check("10", "acme.finance")
	assert.Equal(t, false, access["granted"])

	// Unknown identity is a deny, not an error.
	access = check("999", "acme.docs.readme")
	assert.Equal(t, false, access["granted"])
}

// TestPurpose: Validates subtree grant constraints over HTTP.
// Scope: Integration Test
// Expected: A location outside the realm namespace is a 403; a
// cross-realm membership is a 409.
// Test Case ID: API-04
func TestGroupConstraintViolations(t *testing.T) {
	env := newTestEnv(t)

	// A second realm with an identity in it.
	rival := &realm.Realm{Label: "rival"}
	require.NoError(t, env.realms.Create(context.Background(), rival))
	env.addIdentity(20, rival.ID)

	rec := env.do(t, http.MethodPost, "/api/checkpoint/v1/access_groups/editors", true, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/checkpoint/v1/access_groups/editors/subtrees/rival.secret", true, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/checkpoint/v1/access_groups/editors/memberships/20", true, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/checkpoint/v1/access_groups/editors/memberships/999", true, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestPurpose: Validates the "me" identity alias.
// Scope: Integration Test
// Expected: With the identity header set, /identities/me/memberships
// lists the caller's groups; without it, 404.
// Test Case ID: API-05
func TestListIdentityMemberships_Me(t *testing.T) {
	env := newTestEnv(t)
	env.addIdentity(10, 1)

	rec := env.do(t, http.MethodPost, "/api/checkpoint/v1/access_groups/editors", true, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodPut, "/api/checkpoint/v1/access_groups/editors/memberships/10", true, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "http://acme.example.org/api/checkpoint/v1/identities/me/memberships", nil)
	req.Host = "acme.example.org"
	req.Header.Set(IdentityHeader, "10")
	out := httptest.NewRecorder()
	env.router.ServeHTTP(out, req)

	require.Equal(t, http.StatusOK, out.Code)
	body := decodeBody(t, out)
	assert.Len(t, body["memberships"], 1)
	assert.Len(t, body["access_groups"], 1)

	// Anonymous "me" has no identity in this realm.
	rec = env.do(t, http.MethodGet, "/api/checkpoint/v1/identities/me/memberships", false, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAccessGroup_ByIDOrLabel(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/checkpoint/v1/access_groups/editors", true, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/checkpoint/v1/access_groups/editors", false, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/checkpoint/v1/access_groups/1", false, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/checkpoint/v1/access_groups/ghosts", false, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestPurpose: Validates the domain administration endpoints.
// Scope: Integration Test
// Expected: Registration, origin maintenance and deletion work under
// the god key; a name held by another realm is a 403.
// Test Case ID: API-06
func TestDomainAdministration(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/checkpoint/v1/realms/acme/domains", true,
		CreateDomainRequest{Name: "extra.example.org"})
	require.Equal(t, http.StatusOK, rec.Code)
	d := decodeBody(t, rec)["domain"].(map[string]any)
	assert.Equal(t, "extra.example.org", d["name"])

	// Origins.
	rec = env.do(t, http.MethodPut, "/api/checkpoint/v1/realms/acme/domains/extra.example.org/origins/partner.example.net", true, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/checkpoint/v1/realms/acme/domains/extra.example.org", false, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d = decodeBody(t, rec)["domain"].(map[string]any)
	assert.Equal(t, []any{"partner.example.net"}, d["origins"])

	rec = env.do(t, http.MethodDelete, "/api/checkpoint/v1/realms/acme/domains/extra.example.org/origins/partner.example.net", true, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/checkpoint/v1/realms/acme/domains/extra.example.org/origins/partner.example.net", true, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Deletion.
	rec = env.do(t, http.MethodDelete, "/api/checkpoint/v1/realms/acme/domains/extra.example.org", true, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/checkpoint/v1/realms/acme/domains/extra.example.org", false, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// No god key, no registration.
	rec = env.do(t, http.MethodPost, "/api/checkpoint/v1/realms/acme/domains", false,
		CreateDomainRequest{Name: "sneaky.example.org"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
