package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/cli"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/common"
)

func matchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match",
		Short: "Trigger a remote matcher run and refresh mappings",
		Long: `Invoke the platform's attribution matcher for the selected organization.
The matching algorithm runs remotely; this waits for its aggregate result and
then re-reads the mapping set so local reports see the new candidates.`,
		RunE: runMatch,
	}
}

func runMatch(cmd *cobra.Command, _ []string) error {
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
		progressbar.OptionSetDescription("Running matcher"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	result, err := client.RunMatcher(ctx, orgID)
	_ = bar.Finish()
	if err != nil {
		return common.NewUserError("matcher run failed", err)
	}

	// The run is at-least-once on the remote side; the mapping snapshot is
	// the source of record, so re-read it rather than trusting the counts.
	mappings, err := client.FetchMappings(ctx, orgID)
	if err != nil {
		return common.NewUserError("failed to re-read mappings after matcher run", err)
	}
	if err := store.SaveMappings(ctx, orgID, mappings); err != nil {
		return common.NewUserError("failed to store refreshed mappings", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Matcher matched %d refcodes", result.TotalMatched)))
	for _, tag := range result.BreakdownOrder() {
		fmt.Printf("  %-28s %d\n", tag, result.MatchBreakdown[tag])
	}
	fmt.Println(cli.FormatWarning("Heuristic candidates stay out of verified totals until confirmed"))
	return nil
}
