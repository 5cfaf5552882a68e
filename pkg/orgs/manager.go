package orgs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/tenantcore/pkg/async"
	"github.com/platinummonkey/tenantcore/pkg/observability"
	"github.com/platinummonkey/tenantcore/pkg/permissions"
	"github.com/platinummonkey/tenantcore/pkg/rbac"
)

const defaultProvisionTimeout = 30 * time.Second

// Manager orchestrates organization lifecycle, membership and role management.
// It is the only component that composes multi-step mutations.
type Manager struct {
	store            Store
	invites          *InviteCodec
	defaultRoleID    uuid.UUID
	provisioner      Provisioner
	provisionTimeout time.Duration
	logger           *observability.Logger
	metrics          *observability.Metrics
	now              func() time.Time
}

// NewManager creates a Manager. defaultRoleID is granted to every new member and
// is fixed for the Manager's lifetime. invites may be nil when invite links are unused.
func NewManager(store Store, defaultRoleID uuid.UUID, invites *InviteCodec, logger *observability.Logger, metrics *observability.Metrics, opts ...Option) *Manager {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	m := &Manager{
		store:            store,
		invites:          invites,
		defaultRoleID:    defaultRoleID,
		provisionTimeout: defaultProvisionTimeout,
		logger:           logger,
		metrics:          metrics,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DefaultRoleID returns the role assigned on access grants
func (m *Manager) DefaultRoleID() uuid.UUID {
	return m.defaultRoleID
}

func asDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Organizations

// CreateOrganization persists a new organization in the pending-provisioned
// state and requests provisioning in the background. It returns as soon as
// the row is written.
func (m *Manager) CreateOrganization(ctx context.Context, spec OrganizationSpec) (*rbac.Organization, error) {
	title := strings.TrimSpace(spec.Title)
	if title == "" {
		return nil, domainError(CodeInvalidOrganization, "An Organization must have a title.")
	}

	org := &rbac.Organization{
		ID:                   uuid.New(),
		Title:                title,
		IsActive:             true,
		RequiresConfirmation: spec.RequiresConfirmation,
		SuccessfullyCreated:  false,
		CreationDate:         m.now().UTC(),
	}
	org, err := m.store.AddOrganization(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	m.logger.WithField("org_id", org.ID).Info("organization created, provisioning pending")

	if m.provisioner != nil {
		snapshot := *org
		async.SafeGoDetached(ctx, m.provisionTimeout, "provisioning request", func(ctx context.Context) error {
			return m.provisioner.RequestProvisioning(ctx, &snapshot)
		})
	}
	return org, nil
}

// UpdateOrganization overwrites the mutable fields of org
func (m *Manager) UpdateOrganization(ctx context.Context, org *rbac.Organization) (*rbac.Organization, error) {
	if strings.TrimSpace(org.Title) == "" {
		return nil, domainError(CodeInvalidOrganization, "An Organization must have a title.")
	}
	updated, err := m.store.UpdateOrganization(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	if updated == nil {
		return nil, domainError(CodeOrganizationNotFound, "Organization not found.")
	}
	return updated, nil
}

// GetOrganization returns nil when the organization does not exist
func (m *Manager) GetOrganization(ctx context.Context, orgID uuid.UUID) (*rbac.Organization, error) {
	return m.store.GetOrganization(ctx, orgID)
}

// OrganizationExists is the narrow check used when resolving tenants
func (m *Manager) OrganizationExists(ctx context.Context, orgID uuid.UUID) (bool, error) {
	return m.store.OrganizationExists(ctx, orgID)
}

// MarkProvisioned records the provisioning confirmation for orgID
func (m *Manager) MarkProvisioned(ctx context.Context, orgID uuid.UUID) error {
	ok, err := m.store.MarkProvisioned(ctx, orgID)
	if err != nil {
		return err
	}
	if !ok {
		return domainError(CodeOrganizationNotFound, "Organization not found.")
	}
	m.logger.WithField("org_id", orgID).Info("organization provisioned")
	return nil
}

// Access grants and invites

// GrantAccess gives userID a membership in orgID with the default role. An
// existing membership is reported as-is and never modified, so repeated
// calls are safe.
func (m *Manager) GrantAccess(ctx context.Context, userID, orgID uuid.UUID) (InviteResult, error) {
	org, err := m.store.GetOrganization(ctx, orgID)
	if err != nil {
		return InviteResult{}, fmt.Errorf("failed to load organization: %w", err)
	}
	if org == nil {
		return InviteResult{}, domainError(CodeOrganizationNotFound, "Organization not found.")
	}
	return m.grantAccess(ctx, userID, org)
}

func (m *Manager) grantAccess(ctx context.Context, userID uuid.UUID, org *rbac.Organization) (InviteResult, error) {
	result := InviteResult{OrganizationTitle: org.Title}

	existing, err := m.store.GetMembership(ctx, org.ID, userID)
	if err != nil {
		return InviteResult{}, fmt.Errorf("failed to load membership: %w", err)
	}
	if existing != nil {
		result.Outcome = outcomeForStatus(existing.Status())
		return result, nil
	}

	now := m.now().UTC()
	membership := &rbac.Membership{
		UserID:           userID,
		OrgID:            org.ID,
		AwaitingApproval: org.RequiresConfirmation,
		DateSubmitted:    now,
	}
	if !org.RequiresConfirmation {
		membership.Approve(now)
	}

	_, err = m.store.CreateMembership(ctx, membership, []uuid.UUID{m.defaultRoleID})
	if rbac.IsConflict(err) {
		// lost a race with a concurrent grant; report what the winner wrote
		existing, lookupErr := m.store.GetMembership(ctx, org.ID, userID)
		if lookupErr == nil && existing != nil {
			result.Outcome = outcomeForStatus(existing.Status())
			return result, nil
		}
	}
	if err != nil {
		return InviteResult{}, fmt.Errorf("failed to grant access: %w", err)
	}

	m.logger.WithFields(map[string]interface{}{
		"org_id":  org.ID,
		"user_id": userID,
		"status":  membership.Status().String(),
	}).Info("access granted")

	if org.RequiresConfirmation {
		result.Outcome = RequiresConfirmation
	} else {
		result.Outcome = ImmediateSuccess
	}
	return result, nil
}

// CreatePermanentInviteLink returns a token that grants access to orgID when redeemed
func (m *Manager) CreatePermanentInviteLink(ctx context.Context, orgID uuid.UUID) (string, error) {
	if m.invites == nil {
		return "", errNoInviteCodec
	}
	exists, err := m.store.OrganizationExists(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("failed to check organization: %w", err)
	}
	if !exists {
		return "", domainError(CodeOrganizationNotFound, "Organization not found.")
	}
	return m.invites.Encode(orgID)
}

// RedeemInvite decodes link and grants access to its organization. A malformed
// link and a link to an unknown organization both yield LinkInvalid.
func (m *Manager) RedeemInvite(ctx context.Context, userID uuid.UUID, link string) (InviteResult, error) {
	result, err := m.redeemInvite(ctx, userID, link)
	if err == nil {
		m.metrics.RecordInviteRedemption(result.Outcome.String())
	}
	return result, err
}

func (m *Manager) redeemInvite(ctx context.Context, userID uuid.UUID, link string) (InviteResult, error) {
	invalid := InviteResult{Outcome: LinkInvalid}
	if m.invites == nil {
		return invalid, nil
	}

	orgID, ok := m.invites.Decode(link)
	if !ok {
		return invalid, nil
	}

	org, err := m.store.GetOrganization(ctx, orgID)
	if err != nil {
		return InviteResult{}, fmt.Errorf("failed to load organization: %w", err)
	}
	if org == nil {
		return invalid, nil
	}
	return m.grantAccess(ctx, userID, org)
}

// Memberships

// GetMembership returns nil when userID has no membership in orgID
func (m *Manager) GetMembership(ctx context.Context, orgID, userID uuid.UUID) (*rbac.Membership, error) {
	return m.store.GetMembership(ctx, orgID, userID)
}

// ListMembers returns approved members with their roles
func (m *Manager) ListMembers(ctx context.Context, orgID uuid.UUID) ([]*rbac.Membership, error) {
	return m.store.ListMembers(ctx, orgID)
}

// ListPendingMembers returns memberships awaiting approval
func (m *Manager) ListPendingMembers(ctx context.Context, orgID uuid.UUID) ([]*rbac.Membership, error) {
	return m.store.ListPendingMembers(ctx, orgID)
}

// UpdateMembership persists membership together with a full replacement role
// set. The set must be non-empty and every role must be global or owned by the
// membership's organization; otherwise a DomainError is returned and nothing
// is written.
func (m *Manager) UpdateMembership(ctx context.Context, membership *rbac.Membership, roleIDs []uuid.UUID) error {
	roleIDs = uniqueIDs(roleIDs)
	if len(roleIDs) == 0 {
		return errEmptyRoleSet
	}

	roles, err := m.store.GetRolesByIDs(ctx, roleIDs)
	if err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}
	if len(roles) != len(roleIDs) {
		return errCrossTenantRole
	}
	for _, role := range roles {
		if !role.AssignableIn(membership.OrgID) {
			return errCrossTenantRole
		}
	}

	updated, err := m.store.ReplaceMembership(ctx, membership, roleIDs)
	if err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	if updated == nil {
		return domainError(CodeMembershipNotFound, "Membership not found.")
	}
	membership.Roles = roles
	return nil
}

// ApproveMember moves a pending membership to approved, keeping its roles.
// Approving an approved member is a no-op.
func (m *Manager) ApproveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	membership, err := m.loadMembership(ctx, orgID, userID)
	if err != nil {
		return err
	}
	switch membership.Status() {
	case rbac.StatusApproved:
		return nil
	case rbac.StatusBlacklisted:
		return domainError(CodeInvalidStatusTransition, "A blacklisted User cannot be approved.")
	}

	membership.Approve(m.now().UTC())
	return m.persistStatus(ctx, membership)
}

// BlacklistMember bars userID from orgID. notes, when non-empty, replace the
// membership's internal notes.
func (m *Manager) BlacklistMember(ctx context.Context, orgID, userID uuid.UUID, notes string) error {
	membership, err := m.loadMembership(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if membership.Status() == rbac.StatusBlacklisted {
		return nil
	}

	membership.Blacklist(m.now().UTC())
	if notes != "" {
		membership.InternalNotes = notes
	}
	return m.persistStatus(ctx, membership)
}

func (m *Manager) loadMembership(ctx context.Context, orgID, userID uuid.UUID) (*rbac.Membership, error) {
	membership, err := m.store.GetMembership(ctx, orgID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if membership == nil {
		return nil, domainError(CodeMembershipNotFound, "Membership not found.")
	}
	return membership, nil
}

func (m *Manager) persistStatus(ctx context.Context, membership *rbac.Membership) error {
	roleIDs := membership.RoleIDs()
	if len(roleIDs) == 0 {
		roleIDs = []uuid.UUID{m.defaultRoleID}
	}
	updated, err := m.store.ReplaceMembership(ctx, membership, roleIDs)
	if err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	if updated == nil {
		return domainError(CodeMembershipNotFound, "Membership not found.")
	}

	m.logger.WithFields(map[string]interface{}{
		"org_id":  membership.OrgID,
		"user_id": membership.UserID,
		"status":  membership.Status().String(),
	}).Info("membership status changed")
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Roles

// GetRole returns a role owned by orgID, or nil
func (m *Manager) GetRole(ctx context.Context, orgID, roleID uuid.UUID) (*rbac.Role, error) {
	return m.store.GetRoleByIDs(ctx, orgID, roleID)
}

// GetRolesOfOrg returns the organization's own roles
func (m *Manager) GetRolesOfOrg(ctx context.Context, orgID uuid.UUID) ([]*rbac.Role, error) {
	return m.store.GetRolesOfOrg(ctx, orgID)
}

// GetAssignableRoles merges the organization's roles with the global roles, sorted by name
func (m *Manager) GetAssignableRoles(ctx context.Context, orgID uuid.UUID) ([]*rbac.Role, error) {
	scoped, err := m.store.GetRolesOfOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization roles: %w", err)
	}
	global, err := m.store.GetGlobalRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load global roles: %w", err)
	}

	roles := append(global, scoped...)
	sort.SliceStable(roles, func(i, j int) bool {
		return roles[i].NormalizedName < roles[j].NormalizedName
	})
	return roles, nil
}

func validateRole(role *rbac.Role) error {
	if strings.TrimSpace(role.Name) == "" {
		return domainError(CodeInvalidRole, "A Role must have a name.")
	}
	for _, p := range role.Permissions {
		if _, ok := permissions.Lookup(p); !ok {
			return domainError(CodeInvalidRole, fmt.Sprintf("Unknown permission %s.", p))
		}
	}
	return nil
}

// AddRoleToOrg creates a role owned by orgID. Role names are unique across the
// whole system after normalization.
func (m *Manager) AddRoleToOrg(ctx context.Context, orgID uuid.UUID, role *rbac.Role) (*rbac.Role, error) {
	if err := validateRole(role); err != nil {
		return nil, err
	}
	role.Name = strings.TrimSpace(role.Name)

	created, err := m.store.AddRoleToOrg(ctx, orgID, role)
	if rbac.IsConflict(err) {
		return nil, domainError(CodeInvalidRole, "A Role with this name already exists.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add role: %w", err)
	}
	return created, nil
}

// UpdateRole rewrites a role owned by orgID. Global roles cannot be changed.
func (m *Manager) UpdateRole(ctx context.Context, orgID uuid.UUID, role *rbac.Role) (*rbac.Role, error) {
	if role.IsGlobal() {
		return nil, domainError(CodeGlobalRoleImmutable, "Cannot modify a global role.")
	}
	if err := validateRole(role); err != nil {
		return nil, err
	}
	role.Name = strings.TrimSpace(role.Name)
	role.Scope = rbac.OrgScope{OrgID: orgID}

	updated, err := m.store.UpdateRole(ctx, role)
	if rbac.IsConflict(err) {
		return nil, domainError(CodeInvalidRole, "A Role with this name already exists.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	if updated == nil {
		return nil, domainError(CodeInvalidRole, "Role not found in this Organization.")
	}
	return updated, nil
}

// DeleteRole removes a scoped role. Global roles and roles that are the last
// role of any member are refused with a DomainError.
func (m *Manager) DeleteRole(ctx context.Context, role *rbac.Role) error {
	if role.IsGlobal() {
		return errGlobalRole
	}

	sole, err := m.store.RoleIsOnlyRoleForAnyUser(ctx, role)
	if err != nil {
		return fmt.Errorf("failed to check role usage: %w", err)
	}
	if sole {
		return errLastRole
	}

	// the store repeats the check under row locks
	err = m.store.DeleteRole(ctx, role)
	if errors.Is(err, rbac.ErrRoleIsSoleRole) {
		return errLastRole
	}
	if errors.Is(err, rbac.ErrRoleNotFound) {
		return domainError(CodeInvalidRole, "Role not found in this Organization.")
	}
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	orgID, _ := role.OrgID()
	m.logger.WithFields(map[string]interface{}{
		"org_id":  orgID,
		"role_id": role.ID,
	}).Info("role deleted")
	return nil
}

// Access checks

// UserHasAccess reports whether userID is an approved, non-blacklisted member of orgID
func (m *Manager) UserHasAccess(ctx context.Context, userID, orgID uuid.UUID) (bool, error) {
	return m.store.UserHasAccess(ctx, userID, orgID)
}

// UserHasPermission reports whether any of the user's roles in orgID carries perm
func (m *Manager) UserHasPermission(ctx context.Context, userID, orgID uuid.UUID, perm permissions.Code) (bool, error) {
	return m.store.UserHasAnyPermission(ctx, userID, orgID, []permissions.Code{perm})
}

// UserHasAnyPermission reports whether the user's roles in orgID carry at least one of perms
func (m *Manager) UserHasAnyPermission(ctx context.Context, userID, orgID uuid.UUID, perms []permissions.Code) (bool, error) {
	return m.store.UserHasAnyPermission(ctx, userID, orgID, perms)
}
