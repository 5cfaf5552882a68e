package authz

import (
	"github.com/platinummonkey/tenantcore/pkg/authz/authzv1"
)

var reasonsToWire = map[FailureReason]authzv1.FailureReason{
	None:                   authzv1.FailureReason_FAILURE_REASON_NONE,
	PermissionParseFailure: authzv1.FailureReason_FAILURE_REASON_PERMISSION_PARSE_FAILURE,
	TenantNotFound:         authzv1.FailureReason_FAILURE_REASON_TENANT_NOT_FOUND,
	Unspecified:            authzv1.FailureReason_FAILURE_REASON_UNSPECIFIED,
}

var reasonsFromWire = map[authzv1.FailureReason]FailureReason{
	authzv1.FailureReason_FAILURE_REASON_NONE:                     None,
	authzv1.FailureReason_FAILURE_REASON_PERMISSION_PARSE_FAILURE: PermissionParseFailure,
	authzv1.FailureReason_FAILURE_REASON_TENANT_NOT_FOUND:         TenantNotFound,
	authzv1.FailureReason_FAILURE_REASON_UNSPECIFIED:              Unspecified,
}

func requestToWire(req Request) *authzv1.PermissionAuthorizeRequest {
	return &authzv1.PermissionAuthorizeRequest{
		UserId:   req.UserID,
		TenantId: req.TenantID,
		Perms:    req.RequiredPermissions,
	}
}

func requestFromWire(in *authzv1.PermissionAuthorizeRequest) Request {
	return Request{
		UserID:              in.GetUserId(),
		TenantID:            in.GetTenantId(),
		RequiredPermissions: in.GetPerms(),
	}
}

func decisionToWire(d Decision) *authzv1.AuthorizeDecision {
	reason, ok := reasonsToWire[d.FailureReason]
	if !ok {
		reason = authzv1.FailureReason_FAILURE_REASON_UNSPECIFIED
	}
	return &authzv1.AuthorizeDecision{
		Allowed:        d.Allowed,
		FailureReason:  reason,
		FailureMessage: d.FailureMessage,
	}
}

// decisionFromWire maps reasons this build does not know, and denials that
// carry no reason, to Unspecified. A newer server can therefore never be read
// as anything but an ordinary denial.
func decisionFromWire(out *authzv1.AuthorizeDecision) Decision {
	if out.GetAllowed() {
		return Allow()
	}
	reason, ok := reasonsFromWire[out.GetFailureReason()]
	if !ok {
		reason = Unspecified
	}
	return Deny(reason, out.GetFailureMessage())
}
