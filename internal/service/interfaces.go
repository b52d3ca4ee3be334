// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
)

// Storage defines the contract for the local snapshot store. All reads and
// writes are scoped to an organization; nothing here uses ambient state.
type Storage interface {
	// Transaction snapshot operations
	ReplaceTransactions(ctx context.Context, orgID string, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, orgID string) ([]model.Transaction, error)

	// Mapping operations
	SaveMappings(ctx context.Context, orgID string, mappings []model.AttributionMapping) error
	GetActiveMappings(ctx context.Context, orgID string) ([]model.AttributionMapping, error)
	GetMappingByRefcode(ctx context.Context, orgID, refcode string) (*model.AttributionMapping, error)

	// ConfirmMapping inserts a manual_confirmed mapping and marks any prior
	// active mapping for the same refcode as superseded, atomically.
	ConfirmMapping(ctx context.Context, mapping *model.AttributionMapping) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// BackendClient is the contract for the hosted backend the dashboard data
// lives in. The matching algorithm itself runs remotely; this client only
// triggers it and reads results.
type BackendClient interface {
	// FetchTransactions returns the organization's transactions plus the
	// count of malformed rows that were skipped, so callers can surface it.
	FetchTransactions(ctx context.Context, orgID string) ([]model.Transaction, int, error)
	FetchMappings(ctx context.Context, orgID string) ([]model.AttributionMapping, error)
	ConfirmMapping(ctx context.Context, mapping *model.AttributionMapping) error
	RunMatcher(ctx context.Context, orgID string) (*model.MatcherResult, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// SyncStats summarizes one snapshot refresh from the backend.
type SyncStats struct {
	Transactions int
	Mappings     int
	SkippedRows  int
	Duration     time.Duration
}
