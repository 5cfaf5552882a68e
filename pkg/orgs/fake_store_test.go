package orgs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/tenantcore/pkg/permissions"
	"github.com/platinummonkey/tenantcore/pkg/rbac"
)

type membershipKey struct {
	orgID, userID uuid.UUID
}

// fakeStore is an in-memory Store with the same absence and conflict rules
// as the PostgreSQL store.
type fakeStore struct {
	mu          sync.Mutex
	orgs        map[uuid.UUID]rbac.Organization
	roles       map[uuid.UUID]*rbac.Role
	memberships map[membershipKey]rbac.Membership
	assignments map[membershipKey][]uuid.UUID

	// failWith makes every call return this error when set
	failWith error
}

func newFakeStore() *fakeStore {
	s := &fakeStore{
		orgs:        make(map[uuid.UUID]rbac.Organization),
		roles:       make(map[uuid.UUID]*rbac.Role),
		memberships: make(map[membershipKey]rbac.Membership),
		assignments: make(map[membershipKey][]uuid.UUID),
	}
	for _, r := range rbac.GlobalRoles() {
		s.roles[r.ID] = r
	}
	return s
}

func (s *fakeStore) seedOrg(title string, requiresConfirmation bool) rbac.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	org := rbac.Organization{
		ID:                   uuid.New(),
		Title:                title,
		IsActive:             true,
		RequiresConfirmation: requiresConfirmation,
		SuccessfullyCreated:  true,
		CreationDate:         time.Now().UTC(),
	}
	s.orgs[org.ID] = org
	return org
}

func (s *fakeStore) seedMember(orgID, userID uuid.UUID, status rbac.MembershipStatus, roleIDs ...uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	m := rbac.Membership{UserID: userID, OrgID: orgID, DateSubmitted: now}
	switch status {
	case rbac.StatusPending:
		m.AwaitingApproval = true
	case rbac.StatusApproved:
		m.Approve(now)
	case rbac.StatusBlacklisted:
		m.Blacklist(now)
	}
	key := membershipKey{orgID, userID}
	s.memberships[key] = m
	s.assignments[key] = roleIDs
}

func (s *fakeStore) roleIDsOf(orgID, userID uuid.UUID) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.assignments[membershipKey{orgID, userID}]...)
}

func (s *fakeStore) membershipCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memberships)
}

func (s *fakeStore) GetOrganization(_ context.Context, id uuid.UUID) (*rbac.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	org, ok := s.orgs[id]
	if !ok {
		return nil, nil
	}
	return &org, nil
}

func (s *fakeStore) OrganizationExists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	_, ok := s.orgs[id]
	return ok, nil
}

func (s *fakeStore) AddOrganization(_ context.Context, org *rbac.Organization) (*rbac.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	if _, ok := s.orgs[org.ID]; ok {
		return nil, rbac.ErrConflict
	}
	s.orgs[org.ID] = *org
	return org, nil
}

func (s *fakeStore) UpdateOrganization(_ context.Context, org *rbac.Organization) (*rbac.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	existing, ok := s.orgs[org.ID]
	if !ok {
		return nil, nil
	}
	updated := *org
	updated.CreationDate = existing.CreationDate
	s.orgs[org.ID] = updated
	return &updated, nil
}

func (s *fakeStore) MarkProvisioned(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	org, ok := s.orgs[id]
	if !ok {
		return false, nil
	}
	org.SuccessfullyCreated = true
	s.orgs[id] = org
	return true, nil
}

func (s *fakeStore) GetRolesOfOrg(_ context.Context, orgID uuid.UUID) ([]*rbac.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []*rbac.Role
	for _, r := range s.roles {
		if owner, ok := r.OrgID(); ok && owner == orgID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeStore) GetGlobalRoles(_ context.Context) ([]*rbac.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []*rbac.Role
	for _, r := range s.roles {
		if r.IsGlobal() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeStore) GetRoleByIDs(_ context.Context, orgID, roleID uuid.UUID) (*rbac.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	r, ok := s.roles[roleID]
	if !ok {
		return nil, nil
	}
	if owner, scoped := r.OrgID(); !scoped || owner != orgID {
		return nil, nil
	}
	return r, nil
}

func (s *fakeStore) GetRolesByIDs(_ context.Context, roleIDs []uuid.UUID) ([]*rbac.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []*rbac.Role
	for _, id := range roleIDs {
		if r, ok := s.roles[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) nameTaken(normalized string, except uuid.UUID) bool {
	for _, r := range s.roles {
		if r.NormalizedName == normalized && r.ID != except {
			return true
		}
	}
	return false
}

func (s *fakeStore) AddRoleToOrg(_ context.Context, orgID uuid.UUID, role *rbac.Role) (*rbac.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	role.Scope = rbac.OrgScope{OrgID: orgID}
	role.NormalizedName = rbac.NormalizeName(role.Name)
	if s.nameTaken(role.NormalizedName, role.ID) {
		return nil, rbac.ErrConflict
	}
	s.roles[role.ID] = role
	return role, nil
}

func (s *fakeStore) UpdateRole(_ context.Context, role *rbac.Role) (*rbac.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	orgID, ok := role.OrgID()
	if !ok {
		return nil, nil
	}
	existing, found := s.roles[role.ID]
	if !found {
		return nil, nil
	}
	if owner, scoped := existing.OrgID(); !scoped || owner != orgID {
		return nil, nil
	}
	role.NormalizedName = rbac.NormalizeName(role.Name)
	if s.nameTaken(role.NormalizedName, role.ID) {
		return nil, rbac.ErrConflict
	}
	s.roles[role.ID] = role
	return role, nil
}

func (s *fakeStore) soleRole(orgID, roleID uuid.UUID) bool {
	for key, ids := range s.assignments {
		if key.orgID == orgID && len(ids) == 1 && ids[0] == roleID {
			return true
		}
	}
	return false
}

func (s *fakeStore) RoleIsOnlyRoleForAnyUser(_ context.Context, role *rbac.Role) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	orgID, ok := role.OrgID()
	if !ok {
		return false, errors.New("global role")
	}
	return s.soleRole(orgID, role.ID), nil
}

func (s *fakeStore) DeleteRole(_ context.Context, role *rbac.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	orgID, ok := role.OrgID()
	if !ok {
		return errors.New("global role")
	}
	stored, ok := s.roles[role.ID]
	if !ok {
		return rbac.ErrRoleNotFound
	}
	if owner, scoped := stored.OrgID(); !scoped || owner != orgID {
		return rbac.ErrRoleNotFound
	}
	if s.soleRole(orgID, role.ID) {
		return rbac.ErrRoleIsSoleRole
	}
	delete(s.roles, role.ID)
	for key, ids := range s.assignments {
		kept := ids[:0]
		for _, id := range ids {
			if id != role.ID {
				kept = append(kept, id)
			}
		}
		s.assignments[key] = kept
	}
	return nil
}

func (s *fakeStore) withRoles(m rbac.Membership) *rbac.Membership {
	for _, id := range s.assignments[membershipKey{m.OrgID, m.UserID}] {
		if r, ok := s.roles[id]; ok {
			m.Roles = append(m.Roles, r)
		}
	}
	return &m
}

func (s *fakeStore) GetMembership(_ context.Context, orgID, userID uuid.UUID) (*rbac.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	m, ok := s.memberships[membershipKey{orgID, userID}]
	if !ok {
		return nil, nil
	}
	return s.withRoles(m), nil
}

func (s *fakeStore) listByStatus(orgID uuid.UUID, status rbac.MembershipStatus) []*rbac.Membership {
	var out []*rbac.Membership
	for key, m := range s.memberships {
		if key.orgID == orgID && m.Status() == status {
			out = append(out, s.withRoles(m))
		}
	}
	return out
}

func (s *fakeStore) ListMembers(_ context.Context, orgID uuid.UUID) ([]*rbac.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.listByStatus(orgID, rbac.StatusApproved), nil
}

func (s *fakeStore) ListPendingMembers(_ context.Context, orgID uuid.UUID) ([]*rbac.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.listByStatus(orgID, rbac.StatusPending), nil
}

func (s *fakeStore) UserHasAccess(_ context.Context, userID, orgID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	m, ok := s.memberships[membershipKey{orgID, userID}]
	return ok && m.HasAccess(), nil
}

func (s *fakeStore) UserHasAnyPermission(_ context.Context, userID, orgID uuid.UUID, codes []permissions.Code) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	key := membershipKey{orgID, userID}
	if m, ok := s.memberships[key]; !ok || !m.HasAccess() {
		return false, nil
	}
	for _, id := range s.assignments[key] {
		r, ok := s.roles[id]
		if !ok {
			continue
		}
		for _, c := range codes {
			if r.HasPermission(c) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *fakeStore) CreateMembership(_ context.Context, m *rbac.Membership, roleIDs []uuid.UUID) (*rbac.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	key := membershipKey{m.OrgID, m.UserID}
	if _, ok := s.memberships[key]; ok {
		return nil, rbac.ErrConflict
	}
	for _, id := range roleIDs {
		if _, ok := s.roles[id]; !ok {
			return nil, rbac.ErrConflict
		}
	}
	s.memberships[key] = *m
	s.assignments[key] = append([]uuid.UUID(nil), roleIDs...)
	return m, nil
}

func (s *fakeStore) ReplaceMembership(_ context.Context, m *rbac.Membership, roleIDs []uuid.UUID) (*rbac.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	key := membershipKey{m.OrgID, m.UserID}
	if _, ok := s.memberships[key]; !ok {
		return nil, nil
	}
	stored := *m
	stored.Roles = nil
	s.memberships[key] = stored
	s.assignments[key] = append([]uuid.UUID(nil), roleIDs...)
	return m, nil
}
