package rbac

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/platinummonkey/tenantcore/pkg/observability"
	"github.com/platinummonkey/tenantcore/pkg/permissions"
)

// Seeded global roles. Ids are fixed so configuration can reference them.
var (
	AdminRoleID    = uuid.MustParse("2301d884-221a-4e7d-b509-0113dcc043e1")
	MechanicRoleID = uuid.MustParse("7d9b7113-a8f8-4035-99a7-a20dd400f6a3")
	PilotRoleID    = uuid.MustParse("78a7570f-3ce5-48ba-9461-80283ed1d94d")
	MemberRoleID   = uuid.MustParse("0f3ad1a2-7e5c-4d2b-9c61-3b8e2f4a9d10")
)

// GlobalRoles returns the seeded global role catalog
func GlobalRoles() []*Role {
	return []*Role{
		NewGlobalRole(AdminRoleID, "Admin", "Full control of the organization.", permissions.All),
		NewGlobalRole(MechanicRoleID, "Mechanic", "Maintains the fleet.",
			permissions.CreateAircraft, permissions.EditAircraft, permissions.DeleteAircraft),
		NewGlobalRole(PilotRoleID, "Pilot", "Flies and grounds aircraft.", permissions.EditAircraft),
		NewGlobalRole(MemberRoleID, "Member", "Default role granted on joining an organization.", permissions.Default),
	}
}

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create permission catalog tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS permission_categories (
					id SMALLINT PRIMARY KEY,
					name TEXT NOT NULL,
					is_obsolete BOOLEAN NOT NULL DEFAULT FALSE
				);

				CREATE TABLE IF NOT EXISTS permissions (
					id SMALLINT PRIMARY KEY,
					name TEXT NOT NULL UNIQUE,
					description TEXT NOT NULL DEFAULT '',
					is_obsolete BOOLEAN NOT NULL DEFAULT FALSE,
					visible_to_user BOOLEAN NOT NULL DEFAULT FALSE,
					category_id SMALLINT NOT NULL REFERENCES permission_categories(id)
				);
			`,
		},
		{
			Version:     2,
			Description: "Create organizations and roles tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS organizations (
					id UUID PRIMARY KEY,
					title TEXT NOT NULL,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					requires_confirmation BOOLEAN NOT NULL DEFAULT FALSE,
					successfully_created BOOLEAN NOT NULL DEFAULT FALSE,
					creation_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_organizations_unprovisioned
					ON organizations(creation_date) WHERE successfully_created = FALSE;

				CREATE TABLE IF NOT EXISTS roles (
					id UUID PRIMARY KEY,
					org_id UUID REFERENCES organizations(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					normalized_name TEXT NOT NULL UNIQUE,
					description TEXT NOT NULL DEFAULT '',
					is_global BOOLEAN NOT NULL DEFAULT FALSE,
					CONSTRAINT roles_scope_check CHECK (
						(is_global AND org_id IS NULL) OR (NOT is_global AND org_id IS NOT NULL)
					)
				);

				CREATE INDEX IF NOT EXISTS idx_roles_org_id ON roles(org_id);

				CREATE TABLE IF NOT EXISTS role_permissions (
					role_id UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					permission_id SMALLINT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
					PRIMARY KEY (role_id, permission_id)
				);
			`,
		},
		{
			Version:     3,
			Description: "Create membership tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_organizations (
					user_id UUID NOT NULL,
					org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					awaiting_approval BOOLEAN NOT NULL DEFAULT TRUE,
					blacklisted BOOLEAN NOT NULL DEFAULT FALSE,
					date_submitted TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					date_approved TIMESTAMPTZ,
					date_blacklisted TIMESTAMPTZ,
					internal_notes TEXT NOT NULL DEFAULT '',
					PRIMARY KEY (user_id, org_id)
				);

				CREATE INDEX IF NOT EXISTS idx_user_organizations_org_id ON user_organizations(org_id);

				CREATE TABLE IF NOT EXISTS user_organization_roles (
					user_id UUID NOT NULL,
					org_id UUID NOT NULL,
					role_id UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					PRIMARY KEY (user_id, org_id, role_id),
					FOREIGN KEY (user_id, org_id)
						REFERENCES user_organizations(user_id, org_id) ON DELETE CASCADE
				);

				CREATE INDEX IF NOT EXISTS idx_user_organization_roles_org_role
					ON user_organization_roles(org_id, role_id);
			`,
		},
		{
			Version:     4,
			Description: "Seed permission catalog and global roles",
			SQL:         seedSQL(),
		},
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// seedSQL renders the permission catalog and global roles as idempotent inserts
func seedSQL() string {
	var b strings.Builder

	for _, c := range permissions.Categories() {
		fmt.Fprintf(&b, "INSERT INTO permission_categories (id, name, is_obsolete) VALUES (%d, %s, %t) ON CONFLICT (id) DO NOTHING;\n",
			c.Code, quote(c.Name), c.IsObsolete)
	}

	for _, p := range permissions.Catalog() {
		fmt.Fprintf(&b, "INSERT INTO permissions (id, name, description, is_obsolete, visible_to_user, category_id) VALUES (%d, %s, %s, %t, %t, %d) ON CONFLICT (id) DO NOTHING;\n",
			p.Code, quote(p.Name), quote(p.Description), p.IsObsolete, p.VisibleToUser, p.Category)
	}

	for _, r := range GlobalRoles() {
		fmt.Fprintf(&b, "INSERT INTO roles (id, org_id, name, normalized_name, description, is_global) VALUES (%s, NULL, %s, %s, %s, TRUE) ON CONFLICT (id) DO NOTHING;\n",
			quote(r.ID.String()), quote(r.Name), quote(r.NormalizedName), quote(r.Description))
		for _, p := range r.Permissions {
			fmt.Fprintf(&b, "INSERT INTO role_permissions (role_id, permission_id) VALUES (%s, %d) ON CONFLICT DO NOTHING;\n",
				quote(r.ID.String()), p)
		}
	}

	return b.String()
}

// RunMigrations executes all pending migrations, each in its own transaction
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tenantcore_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM tenantcore_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		log := logger.WithField("version", migration.Version)
		log.Infof("running migration: %s", migration.Description)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tenantcore_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// SchemaCheck reports whether every migration has been applied. It is meant
// as a readiness check so a replica never serves against an older schema.
func SchemaCheck(db *sql.DB) func(ctx context.Context) error {
	migrations := GetMigrations()
	latest := migrations[len(migrations)-1].Version

	return func(ctx context.Context) error {
		var current int
		err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM tenantcore_migrations").Scan(&current)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		if current < latest {
			return fmt.Errorf("schema at version %d, want %d", current, latest)
		}
		return nil
	}
}
