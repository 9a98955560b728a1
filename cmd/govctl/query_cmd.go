package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"govctl/internal/retrieval"
)

// newQueryCmd exposes the Retrieval Tools directly, the same surface the
// Council Scheduler's roles call during their Reason-Act-Observe loop,
// useful for a human sanity-checking what a role would see.
func newQueryCmd(state *rootState) *cobra.Command {
	var filePattern string
	var ignoreCase bool

	cmd := &cobra.Command{
		Use:   "query <pattern> [path]",
		Short: "Search the workspace the same way a council role does.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 2 {
				path = args[1]
			}
			tools := retrieval.New(state.workspaceRoot)
			matches, err := tools.SearchCodebase(cmd.Context(), args[0], path, filePattern, ignoreCase)
			if err != nil {
				return err
			}
			for _, m := range matches {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:%d: %s\n", m.File, m.LineNumber, m.Line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filePattern, "glob", "", "restrict to files matching this glob")
	cmd.Flags().BoolVar(&ignoreCase, "ignore-case", false, "case-insensitive search")
	return cmd
}
