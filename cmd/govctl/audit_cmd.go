package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"govctl/internal/store"
)

func newAuditCmd(state *rootState) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent council runs recorded in the workspace store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(state.workspaceRoot)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListCouncilRuns(limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s->%s  %s  %s\n",
					time.Unix(r.StartedAt, 0).UTC().Format(time.RFC3339), r.ID, r.BaseRef, r.HeadRef, r.AggregateVerdict, r.AuditPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to list")
	return cmd
}
