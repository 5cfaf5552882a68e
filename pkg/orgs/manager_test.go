package orgs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/tenantcore/pkg/permissions"
	"github.com/platinummonkey/tenantcore/pkg/rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvisioner struct {
	requested chan *rbac.Organization
	err       error
}

func (p *recordingProvisioner) RequestProvisioning(_ context.Context, org *rbac.Organization) error {
	p.requested <- org
	return p.err
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return NewManager(store, rbac.MemberRoleID, newTestCodec(t), nil, nil, opts...), store
}

func requireDomainError(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var de *DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %v", err)
	assert.Equal(t, code, de.Code)
}

func TestManager_CreateOrganization(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	prov := &recordingProvisioner{requested: make(chan *rbac.Organization, 1)}
	mgr, store := newTestManager(t, WithProvisioner(prov), WithClock(func() time.Time { return fixed }))

	org, err := mgr.CreateOrganization(ctx, OrganizationSpec{Title: "  Acme  ", RequiresConfirmation: true})
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.Title)
	assert.False(t, org.SuccessfullyCreated)
	assert.True(t, org.IsActive)
	assert.Equal(t, fixed, org.CreationDate)

	select {
	case requested := <-prov.requested:
		assert.Equal(t, org.ID, requested.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("provisioning was not requested")
	}

	stored, err := store.GetOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.False(t, stored.SuccessfullyCreated, "creation never marks provisioning done")

	require.NoError(t, mgr.MarkProvisioned(ctx, org.ID))
	stored, _ = store.GetOrganization(ctx, org.ID)
	assert.True(t, stored.SuccessfullyCreated)

	t.Run("blank title", func(t *testing.T) {
		_, err := mgr.CreateOrganization(ctx, OrganizationSpec{Title: "  "})
		requireDomainError(t, err, CodeInvalidOrganization)
	})
}

func TestManager_CreateOrganization_ProvisionerFailureDoesNotFailCaller(t *testing.T) {
	prov := &recordingProvisioner{requested: make(chan *rbac.Organization, 1), err: errors.New("broker down")}
	mgr, _ := newTestManager(t, WithProvisioner(prov))

	org, err := mgr.CreateOrganization(context.Background(), OrganizationSpec{Title: "Acme"})
	require.NoError(t, err)
	require.NotNil(t, org)
	<-prov.requested
}

func TestManager_UpdateOrganization(t *testing.T) {
	ctx := context.Background()
	mgr, store := newTestManager(t)
	org := store.seedOrg("Acme", false)

	org.Title = "Acme Aviation"
	org.IsActive = false
	updated, err := mgr.UpdateOrganization(ctx, &org)
	require.NoError(t, err)
	assert.Equal(t, "Acme Aviation", updated.Title)
	assert.False(t, updated.IsActive)

	_, err = mgr.UpdateOrganization(ctx, &rbac.Organization{ID: uuid.New(), Title: "ghost"})
	requireDomainError(t, err, CodeOrganizationNotFound)
}

func TestManager_GrantAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("open organization approves immediately with default role", func(t *testing.T) {
		mgr, store := newTestManager(t)
		org := store.seedOrg("Open", false)
		user := uuid.New()

		res, err := mgr.GrantAccess(ctx, user, org.ID)
		require.NoError(t, err)
		assert.Equal(t, ImmediateSuccess, res.Outcome)
		assert.Equal(t, "Open", res.OrganizationTitle)
		assert.Equal(t, []uuid.UUID{rbac.MemberRoleID}, store.roleIDsOf(org.ID, user))

		ok, err := mgr.UserHasAccess(ctx, user, org.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("confirmation required leaves member pending", func(t *testing.T) {
		mgr, store := newTestManager(t)
		org := store.seedOrg("Closed", true)
		user := uuid.New()

		res, err := mgr.GrantAccess(ctx, user, org.ID)
		require.NoError(t, err)
		assert.Equal(t, RequiresConfirmation, res.Outcome)
		assert.Equal(t, []uuid.UUID{rbac.MemberRoleID}, store.roleIDsOf(org.ID, user))

		ok, err := mgr.UserHasAccess(ctx, user, org.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("idempotent per user and organization", func(t *testing.T) {
		mgr, store := newTestManager(t)
		org := store.seedOrg("Open", false)
		user := uuid.New()

		_, err := mgr.GrantAccess(ctx, user, org.ID)
		require.NoError(t, err)
		res, err := mgr.GrantAccess(ctx, user, org.ID)
		require.NoError(t, err)
		assert.Equal(t, AlreadyApproved, res.Outcome)
		assert.Equal(t, 1, store.membershipCount())
	})

	t.Run("existing status is reported without mutation", func(t *testing.T) {
		tests := []struct {
			status rbac.MembershipStatus
			want   InviteOutcome
		}{
			{rbac.StatusPending, AlreadyPending},
			{rbac.StatusApproved, AlreadyApproved},
			{rbac.StatusBlacklisted, AlreadyBlacklisted},
		}
		for _, tt := range tests {
			t.Run(tt.status.String(), func(t *testing.T) {
				mgr, store := newTestManager(t)
				org := store.seedOrg("Acme", false)
				user := uuid.New()
				store.seedMember(org.ID, user, tt.status, rbac.PilotRoleID)

				res, err := mgr.GrantAccess(ctx, user, org.ID)
				require.NoError(t, err)
				assert.Equal(t, tt.want, res.Outcome)
				assert.Equal(t, []uuid.UUID{rbac.PilotRoleID}, store.roleIDsOf(org.ID, user))
			})
		}
	})

	t.Run("unknown organization", func(t *testing.T) {
		mgr, _ := newTestManager(t)
		_, err := mgr.GrantAccess(ctx, uuid.New(), uuid.New())
		requireDomainError(t, err, CodeOrganizationNotFound)
	})

	t.Run("store failure is not a domain error", func(t *testing.T) {
		mgr, store := newTestManager(t)
		org := store.seedOrg("Acme", false)
		store.failWith = errors.New("connection refused")

		_, err := mgr.GrantAccess(ctx, uuid.New(), org.ID)
		require.Error(t, err)
		assert.False(t, IsDomainError(err, CodeOrganizationNotFound))
	})
}

func TestManager_InviteRoundTrip(t *testing.T) {
	ctx := context.Background()
	mgr, store := newTestManager(t)
	open := store.seedOrg("Open", false)
	closed := store.seedOrg("Closed", true)

	openLink, err := mgr.CreatePermanentInviteLink(ctx, open.ID)
	require.NoError(t, err)
	closedLink, err := mgr.CreatePermanentInviteLink(ctx, closed.ID)
	require.NoError(t, err)

	user := uuid.New()

	res, err := mgr.RedeemInvite(ctx, user, openLink)
	require.NoError(t, err)
	assert.Equal(t, ImmediateSuccess, res.Outcome)

	ok, err := mgr.UserHasAccess(ctx, user, open.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = mgr.UserHasPermission(ctx, user, open.ID, permissions.Default)
	require.NoError(t, err)
	assert.True(t, ok, "default role carries the default permission")

	res, err = mgr.RedeemInvite(ctx, user, openLink)
	require.NoError(t, err)
	assert.Equal(t, AlreadyApproved, res.Outcome)

	res, err = mgr.RedeemInvite(ctx, user, closedLink)
	require.NoError(t, err)
	assert.Equal(t, RequiresConfirmation, res.Outcome)

	res, err = mgr.RedeemInvite(ctx, user, "garbage")
	require.NoError(t, err)
	assert.Equal(t, LinkInvalid, res.Outcome)

	// a valid token for an organization that does not exist looks the same as garbage
	ghostLink, err := newTestCodec(t).Encode(uuid.New())
	require.NoError(t, err)
	res, err = mgr.RedeemInvite(ctx, user, ghostLink)
	require.NoError(t, err)
	assert.Equal(t, LinkInvalid, res.Outcome)
	assert.Empty(t, res.OrganizationTitle)

	_, err = mgr.CreatePermanentInviteLink(ctx, uuid.New())
	requireDomainError(t, err, CodeOrganizationNotFound)
}

func TestManager_UpdateMembership(t *testing.T) {
	ctx := context.Background()
	mgr, store := newTestManager(t)
	org := store.seedOrg("Acme", false)
	other := store.seedOrg("Other", false)
	user := uuid.New()
	store.seedMember(org.ID, user, rbac.StatusApproved, rbac.MemberRoleID)

	foreign, err := mgr.AddRoleToOrg(ctx, other.ID, &rbac.Role{Name: "Foreign"})
	require.NoError(t, err)
	local, err := mgr.AddRoleToOrg(ctx, org.ID, &rbac.Role{Name: "Dispatch", Permissions: []permissions.Code{permissions.EditAircraft}})
	require.NoError(t, err)

	m, err := mgr.GetMembership(ctx, org.ID, user)
	require.NoError(t, err)

	t.Run("empty role set is rejected", func(t *testing.T) {
		requireDomainError(t, mgr.UpdateMembership(ctx, m, nil), CodeEmptyRoleSet)
		assert.Equal(t, []uuid.UUID{rbac.MemberRoleID}, store.roleIDsOf(org.ID, user))
	})

	t.Run("role of another organization is rejected", func(t *testing.T) {
		err := mgr.UpdateMembership(ctx, m, []uuid.UUID{local.ID, foreign.ID})
		requireDomainError(t, err, CodeCrossTenantRole)
		assert.Equal(t, []uuid.UUID{rbac.MemberRoleID}, store.roleIDsOf(org.ID, user))
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		err := mgr.UpdateMembership(ctx, m, []uuid.UUID{uuid.New()})
		requireDomainError(t, err, CodeCrossTenantRole)
	})

	t.Run("local and global roles replace the set", func(t *testing.T) {
		require.NoError(t, mgr.UpdateMembership(ctx, m, []uuid.UUID{local.ID, rbac.PilotRoleID, local.ID}))
		assert.ElementsMatch(t, []uuid.UUID{local.ID, rbac.PilotRoleID}, store.roleIDsOf(org.ID, user))

		ok, err := mgr.UserHasAnyPermission(ctx, user, org.ID, []permissions.Code{permissions.DeleteAircraft, permissions.EditAircraft})
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = mgr.UserHasPermission(ctx, user, org.ID, permissions.CreateAircraft)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing membership", func(t *testing.T) {
		ghost := &rbac.Membership{UserID: uuid.New(), OrgID: org.ID}
		requireDomainError(t, mgr.UpdateMembership(ctx, ghost, []uuid.UUID{rbac.MemberRoleID}), CodeMembershipNotFound)
	})
}

func TestManager_ApproveAndBlacklist(t *testing.T) {
	ctx := context.Background()
	mgr, store := newTestManager(t)
	org := store.seedOrg("Closed", true)
	user := uuid.New()

	res, err := mgr.GrantAccess(ctx, user, org.ID)
	require.NoError(t, err)
	require.Equal(t, RequiresConfirmation, res.Outcome)

	pending, err := mgr.ListPendingMembers(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, mgr.ApproveMember(ctx, org.ID, user))
	members, err := mgr.ListMembers(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, []uuid.UUID{rbac.MemberRoleID}, members[0].RoleIDs(), "approval keeps roles")

	require.NoError(t, mgr.BlacklistMember(ctx, org.ID, user, "chargeback"))
	m, err := mgr.GetMembership(ctx, org.ID, user)
	require.NoError(t, err)
	assert.Equal(t, rbac.StatusBlacklisted, m.Status())
	assert.Equal(t, "chargeback", m.InternalNotes)

	ok, err := mgr.UserHasAccess(ctx, user, org.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	requireDomainError(t, mgr.ApproveMember(ctx, org.ID, user), CodeInvalidStatusTransition)
	requireDomainError(t, mgr.ApproveMember(ctx, org.ID, uuid.New()), CodeMembershipNotFound)
}

func TestManager_Roles(t *testing.T) {
	ctx := context.Background()
	mgr, store := newTestManager(t)
	org := store.seedOrg("Acme", false)

	t.Run("names are unique system-wide", func(t *testing.T) {
		_, err := mgr.AddRoleToOrg(ctx, org.ID, &rbac.Role{Name: "pilot"})
		requireDomainError(t, err, CodeInvalidRole)
	})

	t.Run("blank name and unknown permission", func(t *testing.T) {
		_, err := mgr.AddRoleToOrg(ctx, org.ID, &rbac.Role{Name: " "})
		requireDomainError(t, err, CodeInvalidRole)
		_, err = mgr.AddRoleToOrg(ctx, org.ID, &rbac.Role{Name: "Odd", Permissions: []permissions.Code{200}})
		requireDomainError(t, err, CodeInvalidRole)
	})

	role, err := mgr.AddRoleToOrg(ctx, org.ID, &rbac.Role{Name: "Dispatch"})
	require.NoError(t, err)

	got, err := mgr.GetRole(ctx, org.ID, role.ID)
	require.NoError(t, err)
	assert.Equal(t, role.ID, got.ID)

	got, err = mgr.GetRole(ctx, uuid.New(), role.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "scoped lookup must not leak across organizations")

	assignable, err := mgr.GetAssignableRoles(ctx, org.ID)
	require.NoError(t, err)
	names := make([]string, len(assignable))
	for i, r := range assignable {
		names[i] = r.NormalizedName
	}
	assert.Equal(t, []string{"ADMIN", "DISPATCH", "MECHANIC", "MEMBER", "PILOT"}, names)

	t.Run("update", func(t *testing.T) {
		role.Name = "Dispatcher"
		role.Permissions = []permissions.Code{permissions.EditAircraft}
		updated, err := mgr.UpdateRole(ctx, org.ID, role)
		require.NoError(t, err)
		assert.Equal(t, "DISPATCHER", updated.NormalizedName)

		_, err = mgr.UpdateRole(ctx, uuid.New(), role)
		requireDomainError(t, err, CodeInvalidRole)

		_, err = mgr.UpdateRole(ctx, org.ID, rbac.NewGlobalRole(rbac.AdminRoleID, "Admin", ""))
		requireDomainError(t, err, CodeGlobalRoleImmutable)
	})
}

func TestManager_DeleteRole(t *testing.T) {
	ctx := context.Background()

	t.Run("global roles are never deleted", func(t *testing.T) {
		mgr, _ := newTestManager(t)
		for _, r := range rbac.GlobalRoles() {
			requireDomainError(t, mgr.DeleteRole(ctx, r), CodeGlobalRoleImmutable)
		}
	})

	t.Run("last role of a member", func(t *testing.T) {
		mgr, store := newTestManager(t)
		org := store.seedOrg("Acme", false)
		role, err := mgr.AddRoleToOrg(ctx, org.ID, &rbac.Role{Name: "Dispatch"})
		require.NoError(t, err)
		sole, shared := uuid.New(), uuid.New()
		store.seedMember(org.ID, sole, rbac.StatusApproved, role.ID)
		store.seedMember(org.ID, shared, rbac.StatusApproved, role.ID, rbac.PilotRoleID)

		requireDomainError(t, mgr.DeleteRole(ctx, role), CodeLastRole)

		require.NoError(t, mgr.UpdateMembership(ctx, &rbac.Membership{UserID: sole, OrgID: org.ID}, []uuid.UUID{rbac.MemberRoleID}))
		require.NoError(t, mgr.DeleteRole(ctx, role))

		assert.Equal(t, []uuid.UUID{rbac.PilotRoleID}, store.roleIDsOf(org.ID, shared))
		got, err := mgr.GetRole(ctx, org.ID, role.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unknown role", func(t *testing.T) {
		mgr, store := newTestManager(t)
		org := store.seedOrg("Acme", false)
		role, err := mgr.AddRoleToOrg(ctx, org.ID, &rbac.Role{Name: "Dispatch"})
		require.NoError(t, err)
		require.NoError(t, mgr.DeleteRole(ctx, role))

		requireDomainError(t, mgr.DeleteRole(ctx, role), CodeInvalidRole)
		requireDomainError(t, mgr.DeleteRole(ctx, rbac.NewScopedRole(org.ID, "Ghost", "")), CodeInvalidRole)
	})

	t.Run("role owned by another organization", func(t *testing.T) {
		mgr, store := newTestManager(t)
		org := store.seedOrg("Acme", false)
		other := store.seedOrg("Other", false)
		role, err := mgr.AddRoleToOrg(ctx, org.ID, &rbac.Role{Name: "Dispatch"})
		require.NoError(t, err)

		requireDomainError(t, mgr.DeleteRole(ctx, &rbac.Role{ID: role.ID, Name: role.Name, Scope: rbac.OrgScope{OrgID: other.ID}}), CodeInvalidRole)
		got, err := mgr.GetRole(ctx, org.ID, role.ID)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("members of other organizations do not block deletion", func(t *testing.T) {
		mgr, store := newTestManager(t)
		org := store.seedOrg("Acme", false)
		other := store.seedOrg("Other", false)
		role, err := mgr.AddRoleToOrg(ctx, org.ID, &rbac.Role{Name: "Dispatch"})
		require.NoError(t, err)
		store.seedMember(other.ID, uuid.New(), rbac.StatusApproved, rbac.MemberRoleID)

		require.NoError(t, mgr.DeleteRole(ctx, role))
	})
}

func TestManager_UserHasPermission_NoRoles(t *testing.T) {
	ctx := context.Background()
	mgr, store := newTestManager(t)
	org := store.seedOrg("Acme", false)
	user := uuid.New()

	for _, p := range permissions.Catalog() {
		ok, err := mgr.UserHasPermission(ctx, user, org.ID, p.Code)
		require.NoError(t, err)
		assert.False(t, ok, p.Name)
	}
}

func TestInviteOutcome_String(t *testing.T) {
	assert.Equal(t, "link_invalid", LinkInvalid.String())
	assert.Equal(t, "immediate_success", ImmediateSuccess.String())
	assert.Equal(t, "unknown", InviteOutcome(99).String())
}
