// Package authz answers "may this user act in this tenant with these
// permissions?".
//
// Service evaluates decisions in-process against the RBAC store. The same
// contract is served over gRPC (service tenantcore.authz.v1.PermissionAuthorize,
// method Authorize, defined in proto/tenantcore/authz/v1/authorize.proto and
// generated into authzv1), and Client calls it remotely. Both
// implement Decider, so the HTTP gate does not care where decisions come from.
//
// A denied Decision always carries a FailureReason. An error from Authorize
// means no decision could be made; callers must treat it as a denial.
package authz
