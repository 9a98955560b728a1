package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListModelsCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "list-models",
		Short: "List the configured provider catalog and which one is active.",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range state.cfg.Providers {
				marker := " "
				if p.ID == state.cfg.ActiveProvider {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-10s enabled=%-5v context=%-8d cost_in=%.5f cost_out=%.5f\n",
					marker, p.ID, p.Enabled, p.ContextWindow, p.CostPer1kIn, p.CostPer1kOut)
			}
			return nil
		},
	}
}
