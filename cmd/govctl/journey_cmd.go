package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"govctl/internal/journey"
)

func journeysDir(state *rootState) string {
	return state.workspaceRoot + "/docs/journeys"
}

// newValidateJourneyCmd is registered at the top level (not under
// "journey") because the external interface names it as its own
// subcommand, separate from "journey coverage|backfill-tests".
func newValidateJourneyCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-journey <path>",
		Short: "Parse and validate a single journey file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journey.ParseFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %q: state=%s valid\n", j.ID, j.Title, j.State)
			return nil
		},
	}
}

func newJourneyCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{Use: "journey", Short: "Inspect journey coverage and test backfill candidates."}

	coverageCmd := &cobra.Command{
		Use:   "coverage",
		Short: "Report committed/accepted journeys missing test coverage.",
		RunE: func(cmd *cobra.Command, args []string) error {
			journeys, errs := journey.LoadAll(journeysDir(state))
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", e)
			}
			uncovered := 0
			for _, j := range journeys {
				if (j.State == journey.StateCommitted || j.State == journey.StateAccepted) && len(j.Implementation.Tests) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %q: no tests recorded\n", j.ID, j.Title)
					uncovered++
				}
			}
			if uncovered == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "all committed/accepted journeys have recorded tests")
			}
			return nil
		},
	}

	backfillCmd := &cobra.Command{
		Use:   "backfill-tests",
		Short: "List journeys whose implementation.tests could plausibly be backfilled from their implementation.files.",
		RunE: func(cmd *cobra.Command, args []string) error {
			journeys, _ := journey.LoadAll(journeysDir(state))
			for _, j := range journeys {
				if len(j.Implementation.Tests) == 0 && len(j.Implementation.Files) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: candidate source files for backfill: %v\n", j.ID, j.Implementation.Files)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(coverageCmd, backfillCmd)
	return cmd
}
