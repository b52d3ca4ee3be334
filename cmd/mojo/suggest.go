package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/attribution"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/cli"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/common"
)

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "List campaign suggestions for unmapped refcodes",
		Long: `Group unmatched revenue by refcode and infer a likely campaign for each
refcode above the revenue threshold. Suggestions are advisory; confirm one
with 'mojo confirm' to promote it to a verified mapping.`,
		RunE: runSuggest,
	}
}

func runSuggest(cmd *cobra.Command, _ []string) error {
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
	mappings, err := store.GetActiveMappings(ctx, orgID)
	if err != nil {
		return common.NewUserError("failed to load mapping snapshot", err)
	}

	truthSet := attribution.ExtractTruthSet(mappings)
	suggestions := attribution.GenerateSuggestions(txns, truthSet, suggestionOptions())

	if len(suggestions) == 0 {
		fmt.Println(cli.FormatSuccess("No unmapped refcodes above the revenue threshold"))
		return nil
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Suggested mappings — %s", orgID)))
	for i, s := range suggestions {
		fmt.Printf("%2d. %-24s %10s over %d txns → %s (%s)\n",
			i+1, s.Refcode, cli.FormatMoney(s.Revenue), s.TransactionCount,
			s.SuggestedCampaign, s.MatchType)
		fmt.Printf("    %s\n", cli.SubtleStyle.Render(s.Reason))
	}
	fmt.Println()
	fmt.Println(cli.FormatWarning("Suggestions never enter verified totals until confirmed"))
	return nil
}
