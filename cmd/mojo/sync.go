package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/cli"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/common"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/service"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh the local snapshot from the data platform",
		Long: `Fetch transactions and attribution mappings for the selected organization
and replace the local snapshot. The two fetches run concurrently and the
snapshot swap is atomic per table.`,
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	orgID, err := requireOrg()
	if err != nil {
		return err
	}
	client, err := newBackendClient()
	if err != nil {
		return err
	}
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Fetching snapshot"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	defer func() { _ = bar.Finish() }()

	start := time.Now()

	// Transactions and mappings are independent; fetch them in parallel and
	// join before touching the store.
	type txnResult struct {
		txns    []model.Transaction
		skipped int
		err     error
	}
	type mappingResult struct {
		mappings []model.AttributionMapping
		err      error
	}
	txnCh := make(chan txnResult, 1)
	mappingCh := make(chan mappingResult, 1)

	retryOpts := service.RetryOptions{MaxAttempts: 3}

	go func() {
		var txns []model.Transaction
		var skipped int
		err := common.WithRetry(ctx, func() error {
			var fetchErr error
			txns, skipped, fetchErr = client.FetchTransactions(ctx, orgID)
			return fetchErr
		}, retryOpts)
		txnCh <- txnResult{txns: txns, skipped: skipped, err: err}
	}()
	go func() {
		var mappings []model.AttributionMapping
		err := common.WithRetry(ctx, func() error {
			var fetchErr error
			mappings, fetchErr = client.FetchMappings(ctx, orgID)
			return fetchErr
		}, retryOpts)
		mappingCh <- mappingResult{mappings: mappings, err: err}
	}()

	txnRes := <-txnCh
	mappingRes := <-mappingCh
	_ = bar.Finish()

	if txnRes.err != nil {
		return common.NewUserError("failed to fetch transactions", txnRes.err)
	}
	if mappingRes.err != nil {
		return common.NewUserError("failed to fetch attribution mappings", mappingRes.err)
	}

	if err := store.ReplaceTransactions(ctx, orgID, txnRes.txns); err != nil {
		return common.NewUserError("failed to store transaction snapshot", err)
	}
	if err := store.SaveMappings(ctx, orgID, mappingRes.mappings); err != nil {
		return common.NewUserError("failed to store mapping snapshot", err)
	}

	stats := service.SyncStats{
		Transactions: len(txnRes.txns),
		Mappings:     len(mappingRes.mappings),
		SkippedRows:  txnRes.skipped,
		Duration:     time.Since(start),
	}
	slog.Info("Snapshot refreshed",
		"org_id", orgID,
		"transactions", stats.Transactions,
		"mappings", stats.Mappings,
		"skipped_rows", stats.SkippedRows,
		"duration", stats.Duration.Round(time.Millisecond))

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Synced %d transactions and %d mappings in %s",
		stats.Transactions, stats.Mappings, stats.Duration.Round(time.Millisecond))))
	if stats.SkippedRows > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf(
			"Skipped %d malformed transaction rows from the feed", stats.SkippedRows)))
	}
	return nil
}
