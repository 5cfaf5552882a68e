package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/platinummonkey/tenantcore/pkg/permissions"
)

const membershipColumns = `user_id, org_id, awaiting_approval, blacklisted, date_submitted,
	date_approved, date_blacklisted, internal_notes`

func scanMembership(row rowScanner) (*Membership, error) {
	var (
		m           Membership
		approved    sql.NullTime
		blacklisted sql.NullTime
	)
	if err := row.Scan(
		&m.UserID, &m.OrgID, &m.AwaitingApproval, &m.Blacklisted, &m.DateSubmitted,
		&approved, &blacklisted, &m.InternalNotes,
	); err != nil {
		return nil, err
	}
	if approved.Valid {
		t := approved.Time
		m.DateApproved = &t
	}
	if blacklisted.Valid {
		t := blacklisted.Time
		m.DateBlacklisted = &t
	}
	return &m, nil
}

func (s *Store) queryMemberships(ctx context.Context, query string, args ...interface{}) ([]*Membership, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// assignedRoles loads the roles held in orgID, keyed by user. userID narrows
// the lookup to one member when not uuid.Nil.
func (s *Store) assignedRoles(ctx context.Context, orgID, userID uuid.UUID) (map[uuid.UUID][]*Role, error) {
	query := `
		SELECT uor.user_id, ` + roleColumns + `
		FROM user_organization_roles uor
		JOIN roles r ON r.id = uor.role_id
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		WHERE uor.org_id = $1 AND ($2::uuid IS NULL OR uor.user_id = $2)
		GROUP BY uor.user_id, r.id
		ORDER BY r.name
	`
	var userArg interface{}
	if userID != uuid.Nil {
		userArg = userID
	}

	rows, err := s.db.QueryContext(ctx, query, orgID, userArg)
	if err != nil {
		return nil, fmt.Errorf("failed to load role assignments: %w", err)
	}
	defer rows.Close()

	byUser := make(map[uuid.UUID][]*Role)
	for rows.Next() {
		var uid uuid.UUID
		role, err := scanRole(scanPrefix{rows: rows, prefix: []interface{}{&uid}})
		if err != nil {
			return nil, fmt.Errorf("failed to scan role assignment: %w", err)
		}
		byUser[uid] = append(byUser[uid], role)
	}
	return byUser, rows.Err()
}

// scanPrefix lets scanRole read rows that carry extra leading columns
type scanPrefix struct {
	rows   *sql.Rows
	prefix []interface{}
}

func (p scanPrefix) Scan(dest ...interface{}) error {
	return p.rows.Scan(append(p.prefix, dest...)...)
}

// GetMembership fetches one membership with its roles
func (s *Store) GetMembership(ctx context.Context, orgID, userID uuid.UUID) (*Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM user_organizations WHERE org_id = $1 AND user_id = $2`

	m, err := scanMembership(s.db.QueryRowContext(ctx, query, orgID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	roles, err := s.assignedRoles(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	m.Roles = roles[userID]
	return m, nil
}

// ListMembers returns the approved members of orgID with their roles resolved
func (s *Store) ListMembers(ctx context.Context, orgID uuid.UUID) ([]*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM user_organizations
		WHERE org_id = $1 AND awaiting_approval = FALSE AND blacklisted = FALSE
		ORDER BY date_submitted ASC
	`
	members, err := s.queryMemberships(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	if len(members) == 0 {
		return members, nil
	}

	roles, err := s.assignedRoles(ctx, orgID, uuid.Nil)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		m.Roles = roles[m.UserID]
	}
	return members, nil
}

// ListPendingMembers returns memberships awaiting approval
func (s *Store) ListPendingMembers(ctx context.Context, orgID uuid.UUID) ([]*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM user_organizations
		WHERE org_id = $1 AND awaiting_approval = TRUE AND blacklisted = FALSE
		ORDER BY date_submitted ASC
	`
	members, err := s.queryMemberships(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending members: %w", err)
	}
	return members, nil
}

// UserHasAccess is the hot-path check: an approved, non-blacklisted membership exists
func (s *Store) UserHasAccess(ctx context.Context, userID, orgID uuid.UUID) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_organizations
			WHERE user_id = $1 AND org_id = $2
			  AND awaiting_approval = FALSE AND blacklisted = FALSE
		)
	`, userID, orgID).Scan(&ok)
	s.metrics.RecordStoreOperation("user_has_access", err)
	if err != nil {
		return false, fmt.Errorf("failed to check access: %w", err)
	}
	return ok, nil
}

// UserHasAnyPermission reports whether any role the user holds in orgID carries
// at least one of codes. A role carrying permissions.All matches every code.
func (s *Store) UserHasAnyPermission(ctx context.Context, userID, orgID uuid.UUID, codes []permissions.Code) (bool, error) {
	if len(codes) == 0 {
		return false, nil
	}

	var ok bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM user_organization_roles uor
			JOIN user_organizations uo ON uo.user_id = uor.user_id AND uo.org_id = uor.org_id
			JOIN role_permissions rp ON rp.role_id = uor.role_id
			WHERE uor.user_id = $1 AND uor.org_id = $2
			  AND uo.awaiting_approval = FALSE AND uo.blacklisted = FALSE
			  AND (rp.permission_id = ANY($3::smallint[]) OR rp.permission_id = $4)
		)
	`, userID, orgID, codesArray(codes), int64(permissions.All)).Scan(&ok)
	s.metrics.RecordStoreOperation("user_has_any_permission", err)
	if err != nil {
		return false, fmt.Errorf("failed to check permissions: %w", err)
	}
	return ok, nil
}

func insertAssignments(ctx context.Context, tx *sql.Tx, m *Membership, roleIDs []uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_organization_roles (user_id, org_id, role_id)
		SELECT $1, $2, unnest($3::uuid[])
	`, m.UserID, m.OrgID, uuidArray(roleIDs))
	return err
}

// CreateMembership inserts a membership and its role assignments atomically.
// A concurrent insert for the same (user, org) surfaces as ErrConflict.
func (s *Store) CreateMembership(ctx context.Context, m *Membership, roleIDs []uuid.UUID) (*Membership, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_organizations (`+membershipColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, m.UserID, m.OrgID, m.AwaitingApproval, m.Blacklisted, m.DateSubmitted,
			m.DateApproved, m.DateBlacklisted, m.InternalNotes); err != nil {
			return err
		}
		return insertAssignments(ctx, tx, m, roleIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create membership: %w",
			s.fail("create_membership", err, map[string]interface{}{"org_id": m.OrgID, "user_id": m.UserID}))
	}

	s.metrics.RecordStoreOperation("create_membership", nil)
	return m, nil
}

// ReplaceMembership overwrites a membership and swaps its whole role set in one
// transaction. Returns nil when the membership does not exist.
func (s *Store) ReplaceMembership(ctx context.Context, m *Membership, roleIDs []uuid.UUID) (*Membership, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE user_organizations
			SET awaiting_approval = $3, blacklisted = $4, date_approved = $5,
			    date_blacklisted = $6, internal_notes = $7
			WHERE user_id = $1 AND org_id = $2
		`, m.UserID, m.OrgID, m.AwaitingApproval, m.Blacklisted, m.DateApproved,
			m.DateBlacklisted, m.InternalNotes)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return errNoChange
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM user_organization_roles WHERE user_id = $1 AND org_id = $2`,
			m.UserID, m.OrgID,
		); err != nil {
			return err
		}
		return insertAssignments(ctx, tx, m, roleIDs)
	})
	if errors.Is(err, errNoChange) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to replace membership: %w",
			s.fail("replace_membership", err, map[string]interface{}{"org_id": m.OrgID, "user_id": m.UserID}))
	}

	s.metrics.RecordStoreOperation("replace_membership", nil)
	return m, nil
}
