package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
)

// ReplaceTransactions swaps the organization's transaction snapshot for a
// fresh one. Refresh means refetch and recompute from scratch, so the old
// snapshot is dropped wholesale inside one SQL transaction.
func (s *SQLiteStorage) ReplaceTransactions(ctx context.Context, orgID string, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(orgID, "orgID"); err != nil {
		return err
	}
	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE org_id = ?`, orgID); err != nil {
		return fmt.Errorf("failed to clear transaction snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (id, org_id, date, amount, refcode, donor)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, txn := range transactions {
		if _, err := stmt.ExecContext(ctx,
			txn.ID,
			orgID,
			txn.Date,
			txn.Amount,
			txn.Refcode,
			txn.Donor,
		); err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// GetTransactions returns the organization's full transaction snapshot.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, orgID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(orgID, "orgID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, date, amount, refcode, donor
		FROM transactions
		WHERE org_id = ?
		ORDER BY date, id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var refcode, donor sql.NullString
		if err := rows.Scan(&txn.ID, &txn.OrganizationID, &txn.Date, &txn.Amount, &refcode, &donor); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Refcode = refcode.String
		txn.Donor = donor.String
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}
