package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

func (s *Store) queryRoles(ctx context.Context, query string, args ...interface{}) ([]*Role, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRolesOfOrg returns the roles owned by orgID. Global roles are not included.
func (s *Store) GetRolesOfOrg(ctx context.Context, orgID uuid.UUID) ([]*Role, error) {
	query := `
		SELECT ` + roleColumns + `
		FROM roles r
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		WHERE r.org_id = $1
		GROUP BY r.id
		ORDER BY r.name
	`
	roles, err := s.queryRoles(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles of organization: %w", err)
	}
	return roles, nil
}

// GetGlobalRoles returns the seeded roles shared by every organization
func (s *Store) GetGlobalRoles(ctx context.Context) ([]*Role, error) {
	query := `
		SELECT ` + roleColumns + `
		FROM roles r
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		WHERE r.is_global = TRUE
		GROUP BY r.id
		ORDER BY r.name
	`
	roles, err := s.queryRoles(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get global roles: %w", err)
	}
	return roles, nil
}

// GetRoleByIDs looks up a role owned by orgID. A role of another organization,
// or a global role, is reported as absent.
func (s *Store) GetRoleByIDs(ctx context.Context, orgID, roleID uuid.UUID) (*Role, error) {
	query := `
		SELECT ` + roleColumns + `
		FROM roles r
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		WHERE r.org_id = $1 AND r.id = $2
		GROUP BY r.id
	`
	role, err := scanRole(s.db.QueryRowContext(ctx, query, orgID, roleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// GetRolesByIDs loads every listed role regardless of scope. Missing ids are
// simply absent from the result; callers decide whether that is an error.
func (s *Store) GetRolesByIDs(ctx context.Context, roleIDs []uuid.UUID) ([]*Role, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + roleColumns + `
		FROM roles r
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		WHERE r.id = ANY($1::uuid[])
		GROUP BY r.id
		ORDER BY r.name
	`
	roles, err := s.queryRoles(ctx, query, uuidArray(roleIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get roles: %w", err)
	}
	return roles, nil
}

func insertRolePermissions(ctx context.Context, tx *sql.Tx, role *Role) error {
	if len(role.Permissions) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT $1, unnest($2::smallint[])
	`, role.ID, codesArray(role.Permissions))
	return err
}

// AddRoleToOrg persists role as owned by orgID, with its permissions
func (s *Store) AddRoleToOrg(ctx context.Context, orgID uuid.UUID, role *Role) (*Role, error) {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	role.Scope = OrgScope{OrgID: orgID}
	role.NormalizedName = NormalizeName(role.Name)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO roles (id, org_id, name, normalized_name, description, is_global)
			VALUES ($1, $2, $3, $4, $5, FALSE)
		`, role.ID, orgID, role.Name, role.NormalizedName, role.Description); err != nil {
			return err
		}
		return insertRolePermissions(ctx, tx, role)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add role: %w",
			s.fail("add_role", err, map[string]interface{}{"org_id": orgID, "role": role.NormalizedName}))
	}

	s.metrics.RecordStoreOperation("add_role", nil)
	return role, nil
}

// UpdateRole rewrites a scoped role's name, description and permission set.
// Global roles are never matched. Returns nil when no such scoped role exists.
func (s *Store) UpdateRole(ctx context.Context, role *Role) (*Role, error) {
	orgID, ok := role.OrgID()
	if !ok {
		return nil, nil
	}
	role.NormalizedName = NormalizeName(role.Name)

	found := true
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE roles
			SET name = $3, normalized_name = $4, description = $5
			WHERE id = $1 AND org_id = $2 AND is_global = FALSE
		`, role.ID, orgID, role.Name, role.NormalizedName, role.Description)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			found = false
			return errNoChange
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, role.ID); err != nil {
			return err
		}
		return insertRolePermissions(ctx, tx, role)
	})
	if !found {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w",
			s.fail("update_role", err, map[string]interface{}{"org_id": orgID, "role_id": role.ID}))
	}

	s.metrics.RecordStoreOperation("update_role", nil)
	return role, nil
}

// errNoChange aborts a transaction whose target row is missing
var errNoChange = errors.New("no matching row")

// soleRoleQuery is true when some member of org $1 holds role $2 and nothing else
const soleRoleQuery = `
	SELECT EXISTS (
		SELECT 1
		FROM user_organization_roles
		WHERE org_id = $1
		GROUP BY user_id
		HAVING COUNT(*) = 1 AND bool_and(role_id = $2)
	)`

// RoleIsOnlyRoleForAnyUser reports whether deleting role would leave a member
// of its organization without roles. Only assignments within the role's own
// organization are considered.
func (s *Store) RoleIsOnlyRoleForAnyUser(ctx context.Context, role *Role) (bool, error) {
	orgID, ok := role.OrgID()
	if !ok {
		return false, fmt.Errorf("global role %s has no owning organization", role.ID)
	}

	var sole bool
	if err := s.db.QueryRowContext(ctx, soleRoleQuery, orgID, role.ID).Scan(&sole); err != nil {
		return false, fmt.Errorf("failed to check role assignments: %w", err)
	}
	return sole, nil
}

// DeleteRole removes a scoped role and, by cascade, its permissions and assignments.
//
// The role row and the organization's assignment rows are locked FOR UPDATE and
// the sole-role check is repeated inside the transaction, so a concurrent
// reassignment cannot slip between the check and the delete. ErrRoleIsSoleRole
// is returned when the check fails and ErrRoleNotFound when the organization
// owns no such role.
func (s *Store) DeleteRole(ctx context.Context, role *Role) error {
	orgID, ok := role.OrgID()
	if !ok {
		return fmt.Errorf("refusing to delete global role %s", role.ID)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var lockedID uuid.UUID
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM roles WHERE id = $1 AND org_id = $2 AND is_global = FALSE FOR UPDATE`,
			role.ID, orgID,
		).Scan(&lockedID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoleNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`SELECT 1 FROM user_organization_roles WHERE org_id = $1 FOR UPDATE`, orgID,
		); err != nil {
			return err
		}

		var sole bool
		if err := tx.QueryRowContext(ctx, soleRoleQuery, orgID, role.ID).Scan(&sole); err != nil {
			return err
		}
		if sole {
			return ErrRoleIsSoleRole
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM roles WHERE id = $1 AND org_id = $2`, role.ID, orgID)
		return err
	})

	switch {
	case errors.Is(err, ErrRoleNotFound), errors.Is(err, ErrRoleIsSoleRole):
		return err
	case err != nil:
		return fmt.Errorf("failed to delete role: %w",
			s.fail("delete_role", err, map[string]interface{}{"org_id": orgID, "role_id": role.ID}))
	}

	s.metrics.RecordStoreOperation("delete_role", nil)
	return nil
}
