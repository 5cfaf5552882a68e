package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const organizationColumns = `id, title, is_active, requires_confirmation, successfully_created, creation_date`

func scanOrganization(row rowScanner) (*Organization, error) {
	var org Organization
	if err := row.Scan(
		&org.ID, &org.Title, &org.IsActive, &org.RequiresConfirmation,
		&org.SuccessfullyCreated, &org.CreationDate,
	); err != nil {
		return nil, err
	}
	return &org, nil
}

// GetOrganization retrieves an organization by id
func (s *Store) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1`

	org, err := scanOrganization(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// OrganizationExists is the narrow existence check used on the decision path
func (s *Store) OrganizationExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM organizations WHERE id = $1)`, id,
	).Scan(&exists)
	s.metrics.RecordStoreOperation("organization_exists", err)
	if err != nil {
		return false, fmt.Errorf("failed to check organization: %w", err)
	}
	return exists, nil
}

// AddOrganization persists a new organization
func (s *Store) AddOrganization(ctx context.Context, org *Organization) (*Organization, error) {
	query := `
		INSERT INTO organizations (` + organizationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		org.ID, org.Title, org.IsActive, org.RequiresConfirmation,
		org.SuccessfullyCreated, org.CreationDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add organization: %w",
			s.fail("add_organization", err, map[string]interface{}{"org_id": org.ID}))
	}
	s.metrics.RecordStoreOperation("add_organization", nil)
	return org, nil
}

// UpdateOrganization overwrites the mutable fields of an organization.
// creation_date is never changed. Returns nil when the organization is gone.
func (s *Store) UpdateOrganization(ctx context.Context, org *Organization) (*Organization, error) {
	query := `
		UPDATE organizations
		SET title = $2, is_active = $3, requires_confirmation = $4, successfully_created = $5
		WHERE id = $1
		RETURNING ` + organizationColumns

	updated, err := scanOrganization(s.db.QueryRowContext(ctx, query,
		org.ID, org.Title, org.IsActive, org.RequiresConfirmation, org.SuccessfullyCreated,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update organization: %w",
			s.fail("update_organization", err, map[string]interface{}{"org_id": org.ID}))
	}
	s.metrics.RecordStoreOperation("update_organization", nil)
	return updated, nil
}

// MarkProvisioned records that downstream provisioning finished.
// Returns false when the organization does not exist.
func (s *Store) MarkProvisioned(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE organizations SET successfully_created = TRUE WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark organization provisioned: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// ListStuckOrganizations returns ids of organizations still unprovisioned that
// were created strictly before cutoff, oldest first. It never writes.
func (s *Store) ListStuckOrganizations(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM organizations
		WHERE successfully_created = FALSE AND creation_date < $1
		ORDER BY creation_date ASC
	`
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck organizations: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan organization id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
