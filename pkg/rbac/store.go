package rbac

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/platinummonkey/tenantcore/pkg/observability"
	"github.com/platinummonkey/tenantcore/pkg/permissions"
)

// Store handles RBAC data persistence over PostgreSQL.
//
// Lookups return (nil, nil) when the row does not exist. Writes that violate a
// constraint are logged here and returned as ErrConflict.
type Store struct {
	db      *sql.DB
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewStore creates a new RBAC store. metrics may be nil.
func NewStore(db *sql.DB, logger *observability.Logger, metrics *observability.Metrics) *Store {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Store{db: db, logger: logger, metrics: metrics}
}

// DB exposes the underlying handle for health checks
func (s *Store) DB() *sql.DB {
	return s.db
}

// withTx runs fn in a transaction, committing only if fn succeeds
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// fail maps a driver error, logs constraint violations and records the operation
func (s *Store) fail(op string, err error, fields map[string]interface{}) error {
	mapped := mapPostgresError(err)
	s.metrics.RecordStoreOperation(op, mapped)
	if IsConflict(mapped) {
		s.logger.WithFields(fields).WithError(err).Warnf("%s rejected by constraint", op)
	}
	return mapped
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// roleColumns selects a role together with its aggregated permission ids.
// Queries using it must GROUP BY r.id.
const roleColumns = `
	r.id, r.org_id, r.name, r.normalized_name, r.description, r.is_global,
	COALESCE(array_agg(rp.permission_id ORDER BY rp.permission_id)
		FILTER (WHERE rp.permission_id IS NOT NULL), '{}')`

func scanRole(row rowScanner) (*Role, error) {
	var (
		role   Role
		orgID  uuid.NullUUID
		global bool
		perms  pq.Int64Array
	)
	if err := row.Scan(&role.ID, &orgID, &role.Name, &role.NormalizedName, &role.Description, &global, &perms); err != nil {
		return nil, err
	}

	if global {
		role.Scope = GlobalScope{}
	} else {
		if !orgID.Valid {
			return nil, fmt.Errorf("scoped role %s has no organization", role.ID)
		}
		role.Scope = OrgScope{OrgID: orgID.UUID}
	}

	role.Permissions = make([]permissions.Code, len(perms))
	for i, p := range perms {
		role.Permissions[i] = permissions.Code(p)
	}
	return &role, nil
}

func codesArray(codes []permissions.Code) interface{} {
	out := make([]int64, len(codes))
	for i, c := range codes {
		out[i] = int64(c)
	}
	return pq.Array(out)
}

func uuidArray(ids []uuid.UUID) interface{} {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return pq.Array(out)
}
