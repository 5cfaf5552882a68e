package orgs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/tenantcore/pkg/permissions"
	"github.com/platinummonkey/tenantcore/pkg/rbac"
)

// OrganizationSpec is the caller-supplied part of a new organization
type OrganizationSpec struct {
	Title                string `json:"title"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
}

// InviteOutcome is the result of granting access or redeeming an invite
type InviteOutcome int

const (
	ImmediateSuccess InviteOutcome = iota
	RequiresConfirmation
	AlreadyPending
	AlreadyApproved
	AlreadyBlacklisted
	LinkInvalid
)

func (o InviteOutcome) String() string {
	switch o {
	case ImmediateSuccess:
		return "immediate_success"
	case RequiresConfirmation:
		return "requires_confirmation"
	case AlreadyPending:
		return "already_pending"
	case AlreadyApproved:
		return "already_approved"
	case AlreadyBlacklisted:
		return "already_blacklisted"
	case LinkInvalid:
		return "link_invalid"
	default:
		return "unknown"
	}
}

// InviteResult carries the outcome and, when known, the organization title for display
type InviteResult struct {
	Outcome           InviteOutcome `json:"outcome"`
	OrganizationTitle string        `json:"organization_title,omitempty"`
}

// outcomeForStatus reports an existing membership without changing it
func outcomeForStatus(status rbac.MembershipStatus) InviteOutcome {
	switch status {
	case rbac.StatusBlacklisted:
		return AlreadyBlacklisted
	case rbac.StatusPending:
		return AlreadyPending
	default:
		return AlreadyApproved
	}
}

// ErrorCode classifies a business-rule violation
type ErrorCode string

const (
	CodeGlobalRoleImmutable     ErrorCode = "global_role_immutable"
	CodeLastRole                ErrorCode = "last_role"
	CodeEmptyRoleSet            ErrorCode = "empty_role_set"
	CodeCrossTenantRole         ErrorCode = "cross_tenant_role"
	CodeOrganizationNotFound    ErrorCode = "organization_not_found"
	CodeMembershipNotFound      ErrorCode = "membership_not_found"
	CodeInvalidRole             ErrorCode = "invalid_role"
	CodeInvalidOrganization     ErrorCode = "invalid_organization"
	CodeInvalidStatusTransition ErrorCode = "invalid_status_transition"
)

// DomainError is returned when an operation is rejected by a business rule.
// Nothing has been written when it is returned.
type DomainError struct {
	Code    ErrorCode
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func domainError(code ErrorCode, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// IsDomainError checks if err is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	de, ok := asDomainError(err)
	return ok && de.Code == code
}

var (
	errEmptyRoleSet    = domainError(CodeEmptyRoleSet, "A User must have at least one Role.")
	errCrossTenantRole = domainError(CodeCrossTenantRole, "One of the passed Roles was not valid for this Organization.")
	errGlobalRole      = domainError(CodeGlobalRoleImmutable, "Cannot delete a global role.")
	errLastRole        = domainError(CodeLastRole, "This Role cannot be deleted because it is the last Role for at least one User.")
)

// Store is the persistence the Manager composes. *rbac.Store implements it.
type Store interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*rbac.Organization, error)
	OrganizationExists(ctx context.Context, id uuid.UUID) (bool, error)
	AddOrganization(ctx context.Context, org *rbac.Organization) (*rbac.Organization, error)
	UpdateOrganization(ctx context.Context, org *rbac.Organization) (*rbac.Organization, error)
	MarkProvisioned(ctx context.Context, id uuid.UUID) (bool, error)

	GetRolesOfOrg(ctx context.Context, orgID uuid.UUID) ([]*rbac.Role, error)
	GetGlobalRoles(ctx context.Context) ([]*rbac.Role, error)
	GetRoleByIDs(ctx context.Context, orgID, roleID uuid.UUID) (*rbac.Role, error)
	GetRolesByIDs(ctx context.Context, roleIDs []uuid.UUID) ([]*rbac.Role, error)
	AddRoleToOrg(ctx context.Context, orgID uuid.UUID, role *rbac.Role) (*rbac.Role, error)
	UpdateRole(ctx context.Context, role *rbac.Role) (*rbac.Role, error)
	RoleIsOnlyRoleForAnyUser(ctx context.Context, role *rbac.Role) (bool, error)
	DeleteRole(ctx context.Context, role *rbac.Role) error

	GetMembership(ctx context.Context, orgID, userID uuid.UUID) (*rbac.Membership, error)
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]*rbac.Membership, error)
	ListPendingMembers(ctx context.Context, orgID uuid.UUID) ([]*rbac.Membership, error)
	UserHasAccess(ctx context.Context, userID, orgID uuid.UUID) (bool, error)
	UserHasAnyPermission(ctx context.Context, userID, orgID uuid.UUID, codes []permissions.Code) (bool, error)
	CreateMembership(ctx context.Context, m *rbac.Membership, roleIDs []uuid.UUID) (*rbac.Membership, error)
	ReplaceMembership(ctx context.Context, m *rbac.Membership, roleIDs []uuid.UUID) (*rbac.Membership, error)
}

// Provisioner starts the downstream infrastructure for a new organization.
// It is asked once per creation; the reconciler catches requests that never complete.
type Provisioner interface {
	RequestProvisioning(ctx context.Context, org *rbac.Organization) error
}

// Option configures a Manager
type Option func(*Manager)

// WithProvisioner sets the provisioner called after an organization is created
func WithProvisioner(p Provisioner) Option {
	return func(m *Manager) { m.provisioner = p }
}

// WithProvisionTimeout bounds each provisioning request (default: 30s)
func WithProvisionTimeout(d time.Duration) Option {
	return func(m *Manager) { m.provisionTimeout = d }
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}
