package authz

import (
	"context"
	"fmt"
)

// FailureReason classifies a denial
type FailureReason int

const (
	None FailureReason = iota
	PermissionParseFailure
	TenantNotFound
	Unspecified
)

var reasonNames = map[FailureReason]string{
	None:                   "NONE",
	PermissionParseFailure: "PERMISSION_PARSE_FAILURE",
	TenantNotFound:         "TENANT_NOT_FOUND",
	Unspecified:            "UNSPECIFIED",
}

func (r FailureReason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("FailureReason(%d)", int(r))
}

// Request asks for a decision. Ids are opaque strings as they arrive from the caller.
type Request struct {
	UserID              string
	TenantID            string
	RequiredPermissions []string
}

// Decision is the answer to a Request
type Decision struct {
	Allowed        bool
	FailureReason  FailureReason
	FailureMessage string
}

// Allow is the positive decision
func Allow() Decision {
	return Decision{Allowed: true, FailureReason: None}
}

// Deny builds a negative decision
func Deny(reason FailureReason, message string) Decision {
	if reason == None {
		reason = Unspecified
	}
	return Decision{Allowed: false, FailureReason: reason, FailureMessage: message}
}

// Outcome is the metrics label for the decision
func (d Decision) Outcome() string {
	if d.Allowed {
		return "allowed"
	}
	switch d.FailureReason {
	case PermissionParseFailure:
		return "permission_parse_failure"
	case TenantNotFound:
		return "tenant_not_found"
	default:
		return "denied"
	}
}

// Decider produces authorization decisions. Service decides in-process and
// Client asks a remote Service.
type Decider interface {
	Authorize(ctx context.Context, req Request) (Decision, error)
}
