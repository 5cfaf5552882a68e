// Package permissions defines the closed catalog of permissions understood by tenantcore.
//
// # Codes
//
// Every permission is identified by a small numeric Code. Codes are persisted in the
// role_permissions table and travel between services by name, so a code must never be
// reassigned once released. New permissions are appended with the next free value; retired
// ones are flagged obsolete instead of removed.
//
//	Default        0   granted to every member through the default role
//	All            1   satisfies any permission check
//	CreateAircraft 2
//	EditAircraft   3
//	DeleteAircraft 4
//
// # Categories
//
// Categories group permissions for presentation only. They never influence a decision.
//
// # Parsing
//
// Guarded operations declare the permissions they need as a comma separated list of names:
//
//	codes, err := permissions.ParseList(permissions.SplitDeclared("EditAircraft, DeleteAircraft"))
//
// An unknown name is reported as a *ParseError. Callers on the authorization path treat that as
// a configuration bug, not as a denial caused by the end user.
package permissions
