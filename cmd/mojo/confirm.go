package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/cli"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/common"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
)

func confirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm <refcode>",
		Short: "Promote a suggestion to a verified mapping",
		Long: `Write a manual_confirmed mapping for the given refcode. This is the only
path from a suggestion into the truth set. Any prior active mapping for the
refcode is superseded, not deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: runConfirm,
	}

	cmd.Flags().String("campaign", "", "campaign/source descriptor for the mapping (required)")
	_ = cmd.MarkFlagRequired("campaign")
	_ = viper.BindPFlag("confirm.campaign", cmd.Flags().Lookup("campaign"))

	return cmd
}

func runConfirm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	orgID, err := requireOrg()
	if err != nil {
		return err
	}
	refcode := model.NormalizeRefcode(args[0])
	if refcode == "" {
		return common.NewUserError("refcode cannot be empty", common.ErrInvalidConfig)
	}
	campaign := viper.GetString("confirm.campaign")

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

	mapping := &model.AttributionMapping{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Refcode:        refcode,
		Source:         campaign,
		Type:           model.TypeManualConfirmed,
		CreatedAt:      time.Now().UTC(),
	}

	// Remote write first: a conflict there must fail loudly before any
	// local state changes.
	if err := client.ConfirmMapping(ctx, mapping); err != nil {
		return common.NewUserError(
			fmt.Sprintf("backend rejected confirmation for %q", refcode), err)
	}
	if err := store.ConfirmMapping(ctx, mapping); err != nil {
		return common.NewUserError(
			fmt.Sprintf("failed to record confirmation for %q locally", refcode), err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Confirmed %s → %s; its revenue now counts as verified", refcode, campaign)))
	return nil
}
