package rbac

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/tenantcore/pkg/permissions"
)

// Organization is a tenant. It is never hard-deleted; IsActive=false deactivates it.
type Organization struct {
	ID                   uuid.UUID `json:"id"`
	Title                string    `json:"title"`
	IsActive             bool      `json:"is_active"`
	RequiresConfirmation bool      `json:"requires_confirmation"`
	SuccessfullyCreated  bool      `json:"successfully_created"`
	CreationDate         time.Time `json:"creation_date"`
}

// Scope says where a role applies. It is sealed: the only implementations are
// GlobalScope and OrgScope.
type Scope interface {
	isScope()
}

// GlobalScope marks a role usable in every organization
type GlobalScope struct{}

// OrgScope marks a role owned by exactly one organization
type OrgScope struct {
	OrgID uuid.UUID
}

func (GlobalScope) isScope() {}
func (OrgScope) isScope()    {}

// Role is a named set of permissions
type Role struct {
	ID             uuid.UUID          `json:"id"`
	Name           string             `json:"name"`
	NormalizedName string             `json:"normalized_name"`
	Description    string             `json:"description,omitempty"`
	Scope          Scope              `json:"-"`
	Permissions    []permissions.Code `json:"permissions"`
}

// NewGlobalRole builds a role visible to every organization
func NewGlobalRole(id uuid.UUID, name, description string, perms ...permissions.Code) *Role {
	return &Role{
		ID:             id,
		Name:           name,
		NormalizedName: NormalizeName(name),
		Description:    description,
		Scope:          GlobalScope{},
		Permissions:    sortedCodes(perms),
	}
}

// NewScopedRole builds a role owned by orgID with a fresh id
func NewScopedRole(orgID uuid.UUID, name, description string, perms ...permissions.Code) *Role {
	return &Role{
		ID:             uuid.New(),
		Name:           name,
		NormalizedName: NormalizeName(name),
		Description:    description,
		Scope:          OrgScope{OrgID: orgID},
		Permissions:    sortedCodes(perms),
	}
}

// IsGlobal reports whether the role is shared by all organizations
func (r *Role) IsGlobal() bool {
	_, ok := r.Scope.(GlobalScope)
	return ok
}

// OrgID returns the owning organization of a scoped role
func (r *Role) OrgID() (uuid.UUID, bool) {
	if s, ok := r.Scope.(OrgScope); ok {
		return s.OrgID, true
	}
	return uuid.Nil, false
}

// AssignableIn reports whether the role may be assigned to members of orgID
func (r *Role) AssignableIn(orgID uuid.UUID) bool {
	if r.IsGlobal() {
		return true
	}
	owner, ok := r.OrgID()
	return ok && owner == orgID
}

// HasPermission reports whether the role carries code, directly or through All
func (r *Role) HasPermission(code permissions.Code) bool {
	for _, p := range r.Permissions {
		if p == code || p == permissions.All {
			return true
		}
	}
	return false
}

// NormalizeName produces the system-wide unique form of a role name
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func sortedCodes(codes []permissions.Code) []permissions.Code {
	out := make([]permissions.Code, 0, len(codes))
	seen := make(map[permissions.Code]bool, len(codes))
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MembershipStatus is the state of a user's membership in an organization
type MembershipStatus int

const (
	StatusPending MembershipStatus = iota
	StatusApproved
	StatusBlacklisted
)

func (s MembershipStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusBlacklisted:
		return "blacklisted"
	default:
		return "unknown"
	}
}

// Membership links a user to an organization. (UserID, OrgID) is unique.
type Membership struct {
	UserID           uuid.UUID  `json:"user_id"`
	OrgID            uuid.UUID  `json:"org_id"`
	AwaitingApproval bool       `json:"awaiting_approval"`
	Blacklisted      bool       `json:"blacklisted"`
	DateSubmitted    time.Time  `json:"date_submitted"`
	DateApproved     *time.Time `json:"date_approved,omitempty"`
	DateBlacklisted  *time.Time `json:"date_blacklisted,omitempty"`
	InternalNotes    string     `json:"internal_notes,omitempty"`

	// Roles is populated by queries that resolve assignments eagerly
	Roles []*Role `json:"roles,omitempty"`
}

// Status derives the membership state. Blacklisting wins over approval.
func (m *Membership) Status() MembershipStatus {
	switch {
	case m.Blacklisted:
		return StatusBlacklisted
	case m.AwaitingApproval:
		return StatusPending
	default:
		return StatusApproved
	}
}

// HasAccess reports whether the member may act within the organization
func (m *Membership) HasAccess() bool {
	return m.Status() == StatusApproved
}

// Approve moves a pending membership to approved
func (m *Membership) Approve(now time.Time) {
	m.AwaitingApproval = false
	m.DateApproved = &now
}

// Blacklist bars the user from the organization
func (m *Membership) Blacklist(now time.Time) {
	m.Blacklisted = true
	m.DateBlacklisted = &now
}

// RoleIDs returns the ids of the eagerly loaded roles
func (m *Membership) RoleIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(m.Roles))
	for i, r := range m.Roles {
		ids[i] = r.ID
	}
	return ids
}
