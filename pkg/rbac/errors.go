package rbac

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

var (
	// ErrConflict is returned when a write violates a constraint, such as a
	// duplicate normalized role name or an assignment to a missing role.
	ErrConflict = errors.New("conflicting write")

	// ErrRoleIsSoleRole is returned by DeleteRole when some member of the
	// role's organization holds no other role.
	ErrRoleIsSoleRole = errors.New("role is the last role for at least one user")

	// ErrRoleNotFound is returned by DeleteRole when the organization owns no
	// role with that id.
	ErrRoleNotFound = errors.New("role not found")

	// ErrRetryable marks serialization failures and deadlocks.
	ErrRetryable = errors.New("transaction conflict")
)

// mapPostgresError maps PostgreSQL errors onto the store's sentinel errors.
// Anything else is returned unchanged.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: unique constraint %s", ErrConflict, pqErr.Constraint)

	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: foreign key %s: %s", ErrConflict, pqErr.Constraint, pqErr.Detail)

	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		return fmt.Errorf("%w: constraint %s", ErrConflict, pqErr.Constraint)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("%w: %s", ErrRetryable, pqErr.Message)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s: %w", pqErr.Code, pqErr.Message, err)
	}
}

// IsConflict reports whether err came from a constraint violation
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
