// Package rbac stores organizations, roles and memberships in PostgreSQL.
//
// # Model
//
// An Organization is a tenant. A Role is a named set of permission codes and is
// either global (seeded, shared by every organization, never edited) or scoped
// to exactly one organization. A Membership links a user to an organization and
// carries the roles the user holds there. Every membership holds at least one
// role; DeleteRole refuses to remove a role that is the last one for any member
// of its organization.
//
// # Store semantics
//
// Lookups return (nil, nil) when nothing matches. Constraint violations are
// logged and surfaced as ErrConflict so callers can use errors.Is:
//
//	role, err := store.AddRoleToOrg(ctx, orgID, &rbac.Role{Name: "Dispatch"})
//	if rbac.IsConflict(err) {
//		// normalized name already taken
//	}
//
// Role names are unique system-wide after NormalizeName, including against the
// seeded global roles.
//
// # Schema
//
// RunMigrations creates the tables and seeds the permission catalog and the
// global roles (Admin, Mechanic, Pilot, Member). Seeding is idempotent.
package rbac
