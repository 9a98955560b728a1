package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"govctl/internal/diffscan"
	"govctl/internal/journey"
	"govctl/internal/store"
)

func newImpactCmd(state *rootState) *cobra.Command {
	var baseRef, headRef string

	cmd := &cobra.Command{
		Use:   "impact",
		Short: "List journeys affected by the changeset between --base and --head.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			st, err := store.Open(state.workspaceRoot)
			if err != nil {
				return err
			}
			defer st.Close()

			idx := journey.NewIndex(st, state.workspaceRoot)
			if err := idx.EnsureFresh(state.workspaceRoot+"/docs/journeys", false); err != nil {
				return err
			}

			eng := diffscan.NewEngine()
			cs, err := diffscan.BuildChangeset(ctx, state.workspaceRoot, baseRef, headRef, eng)
			if err != nil {
				return err
			}

			affected, err := idx.Affected(cs.ChangedFiles())
			if err != nil {
				return err
			}
			if len(affected) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no journeys affected")
				return nil
			}
			for _, a := range affected {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", a.JourneyID, a.MatchedFiles)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseRef, "base", "HEAD~1", "base git ref")
	cmd.Flags().StringVar(&headRef, "head", "HEAD", "head git ref")
	return cmd
}
