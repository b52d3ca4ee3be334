// Package storage provides the local persistence layer for attribution data.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidMapping     = errors.New("invalid attribution mapping")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.OrganizationID == "" {
		return fmt.Errorf("%w: missing organization ID", ErrInvalidTransaction)
	}
	if txn.Amount < 0 {
		return fmt.Errorf("%w: negative amount", ErrInvalidTransaction)
	}
	return nil
}

// validateMapping validates an attribution mapping.
func validateMapping(mapping *model.AttributionMapping) error {
	if mapping == nil {
		return fmt.Errorf("%w: mapping", ErrNilParameter)
	}
	if mapping.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidMapping)
	}
	if mapping.OrganizationID == "" {
		return fmt.Errorf("%w: missing organization ID", ErrInvalidMapping)
	}
	if mapping.NormalizedRefcode() == "" {
		return fmt.Errorf("%w: missing refcode", ErrInvalidMapping)
	}
	if !model.KnownAttributionType(mapping.Type) {
		return fmt.Errorf("%w: unknown attribution type %q", ErrInvalidMapping, mapping.Type)
	}
	return nil
}
