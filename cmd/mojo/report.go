package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/attribution"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/cli"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/common"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute attribution rollups from the local snapshot",
		Long: `Recompute the truth set, revenue partition, per-refcode performance and
channel rollups from the stored snapshot. Heuristic figures are always
labeled; they never blend into verified totals.`,
		RunE: runReport,
	}

	cmd.Flags().String("format", "table", "Output format (table, json)")
	_ = viper.BindPFlag("report.format", cmd.Flags().Lookup("format"))

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	orgID, err := requireOrg()
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

	txns, err := store.GetTransactions(ctx, orgID)
	if err != nil {
		return common.NewUserError("failed to load transaction snapshot", err)
	}
	if len(txns) == 0 {
		return common.NewUserError(
			"snapshot is empty; run 'mojo sync' first", common.ErrNoTransactions)
	}
	mappings, err := store.GetActiveMappings(ctx, orgID)
	if err != nil {
		return common.NewUserError("failed to load mapping snapshot", err)
	}

	report := attribution.BuildReport(txns, mappings, suggestionOptions())

	if viper.GetString("report.format") == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	renderReport(orgID, report)
	return nil
}

func renderReport(orgID string, report *attribution.Report) {
	p := report.Partition

	kpis := strings.Join([]string{
		fmt.Sprintf("Total revenue:      %s", cli.FormatMoney(p.TotalRevenue)),
		fmt.Sprintf("Matched revenue:    %s  [%s]", cli.FormatMoney(p.MatchedRevenue), cli.FormatProvenance(true)),
		fmt.Sprintf("Heuristic revenue:  %s  [%s]", cli.FormatMoney(p.HeuristicRevenue), cli.FormatProvenance(false)),
		fmt.Sprintf("Unmatched revenue:  %s", cli.FormatMoney(p.UnmatchedRevenue)),
		fmt.Sprintf("Match rate:         %.1f%% of revenue verified", p.MatchRatePercent),
		fmt.Sprintf("Mappings:           %d verified, %d heuristic", report.TruthCount, report.HeuristicCount),
	}, "\n")
	fmt.Println(cli.RenderBox(fmt.Sprintf("Attribution — %s", orgID), kpis))

	if len(report.Refcodes) > 0 {
		fmt.Println(cli.FormatTitle("Refcode performance"))
		fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-24s %-16s %12s %8s  %s", "REFCODE", "SOURCE", "REVENUE", "TXNS", "TRUST")))
		for _, row := range report.Refcodes {
			fmt.Printf("%-24s %-16s %12s %8d  %s\n",
				row.Refcode,
				row.Source,
				cli.FormatMoney(row.Revenue),
				row.TransactionCount,
				cli.FormatProvenance(row.Provenance == attribution.ProvenanceVerified))
		}
		fmt.Println()
	}

	if len(report.Channels) > 0 {
		fmt.Println(cli.FormatTitle("Channel rollups"))
		for _, c := range report.Channels {
			fmt.Printf("%-20s %12s %8d txns  %s\n",
				c.Channel,
				cli.FormatMoney(c.Revenue),
				c.TransactionCount,
				cli.FormatProvenance(c.Provenance == attribution.ProvenanceVerified))
		}
		fmt.Println()
	}

	if len(report.Suggestions) > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf(
			"%d unmapped refcodes carry meaningful revenue; run 'mojo suggest' to review", len(report.Suggestions))))
	}
}
