package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/common"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
)

// SaveMappings upserts a batch of mappings read back from the backend.
// Existing rows are overwritten by ID; supersede chains from the remote are
// preserved as-is.
func (s *SQLiteStorage) SaveMappings(ctx context.Context, orgID string, mappings []model.AttributionMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(orgID, "orgID"); err != nil {
		return err
	}
	for i := range mappings {
		if err := validateMapping(&mappings[i]); err != nil {
			return fmt.Errorf("mapping at index %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attribution_mappings WHERE org_id = ?`, orgID); err != nil {
		return fmt.Errorf("failed to clear mapping snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attribution_mappings (
			id, org_id, refcode, source, attribution_type,
			confidence, attributed_revenue, attributed_transactions,
			superseded_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, m := range mappings {
		createdAt := m.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			m.ID,
			orgID,
			m.Refcode,
			m.Source,
			string(m.Type),
			m.Confidence,
			m.AttributedRevenue,
			m.AttributedTransactions,
			m.SupersededBy,
			createdAt,
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: refcode %q", common.ErrDuplicateMapping, m.Refcode)
			}
			return fmt.Errorf("failed to insert mapping %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// GetActiveMappings returns all non-superseded mappings for the organization.
func (s *SQLiteStorage) GetActiveMappings(ctx context.Context, orgID string) ([]model.AttributionMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(orgID, "orgID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, refcode, source, attribution_type,
		       confidence, attributed_revenue, attributed_transactions,
		       superseded_by, created_at
		FROM attribution_mappings
		WHERE org_id = ? AND superseded_by = ''
		ORDER BY created_at, id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanMappings(rows)
}

// GetMappingByRefcode returns the active mapping covering a refcode, or
// common.ErrNotFound when none exists.
func (s *SQLiteStorage) GetMappingByRefcode(ctx context.Context, orgID, refcode string) (*model.AttributionMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(orgID, "orgID"); err != nil {
		return nil, err
	}
	if err := validateString(refcode, "refcode"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, refcode, source, attribution_type,
		       confidence, attributed_revenue, attributed_transactions,
		       superseded_by, created_at
		FROM attribution_mappings
		WHERE org_id = ? AND lower(refcode) = ? AND superseded_by = ''
	`, orgID, model.NormalizeRefcode(refcode))

	m, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: mapping for refcode %q", common.ErrNotFound, refcode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan mapping: %w", err)
	}
	return m, nil
}

// ConfirmMapping inserts a manual_confirmed mapping and marks any prior
// active mapping for the same refcode as superseded by it. Both steps run in
// one SQL transaction so the one-active-mapping-per-refcode invariant holds
// at every observable point; the history table records both sides.
func (s *SQLiteStorage) ConfirmMapping(ctx context.Context, mapping *model.AttributionMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMapping(mapping); err != nil {
		return err
	}
	if mapping.Type != model.TypeManualConfirmed {
		return fmt.Errorf("%w: confirm requires type %s, got %s",
			ErrInvalidMapping, model.TypeManualConfirmed, mapping.Type)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE attribution_mappings
		SET superseded_by = ?
		WHERE org_id = ? AND lower(refcode) = ? AND superseded_by = ''
	`, mapping.ID, mapping.OrganizationID, mapping.NormalizedRefcode())
	if err != nil {
		return fmt.Errorf("failed to supersede prior mapping: %w", err)
	}
	superseded, _ := res.RowsAffected()

	createdAt := mapping.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO attribution_mappings (
			id, org_id, refcode, source, attribution_type,
			confidence, attributed_revenue, attributed_transactions,
			superseded_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', ?)
	`,
		mapping.ID,
		mapping.OrganizationID,
		mapping.Refcode,
		mapping.Source,
		string(mapping.Type),
		mapping.Confidence,
		mapping.AttributedRevenue,
		mapping.AttributedTransactions,
		createdAt,
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: refcode %q", common.ErrDuplicateMapping, mapping.Refcode)
		}
		return fmt.Errorf("failed to insert confirmed mapping: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO mapping_history (mapping_id, refcode, attribution_type, action)
		VALUES (?, ?, ?, 'confirmed')
	`, mapping.ID, mapping.Refcode, string(mapping.Type)); err != nil {
		return fmt.Errorf("failed to record mapping history: %w", err)
	}
	if superseded > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO mapping_history (mapping_id, refcode, attribution_type, action)
			VALUES (?, ?, ?, 'superseded_prior')
		`, mapping.ID, mapping.Refcode, string(mapping.Type)); err != nil {
			return fmt.Errorf("failed to record supersede history: %w", err)
		}
	}

	return tx.Commit()
}

func scanMappings(rows *sql.Rows) ([]model.AttributionMapping, error) {
	var mappings []model.AttributionMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mappings: %w", err)
	}
	return mappings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMapping(row rowScanner) (*model.AttributionMapping, error) {
	var m model.AttributionMapping
	var typ string
	if err := row.Scan(
		&m.ID,
		&m.OrganizationID,
		&m.Refcode,
		&m.Source,
		&typ,
		&m.Confidence,
		&m.AttributedRevenue,
		&m.AttributedTransactions,
		&m.SupersededBy,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	m.Type = model.AttributionType(typ)
	return &m, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
