package main

import (
	"github.com/spf13/cobra"

	"govctl/internal/govctlerr"
)

// newSyncCmd and newImplementCmd register the CLI surface named in
// spec.md §6 for collaborators this governance core does not itself
// implement (a remote story tracker, an autonomous code-writing agent).
// They fail with govctlerr.ErrNotImplemented rather than being absent,
// so scripts calling them get a stable, typed error instead of "unknown
// command".
func newSyncCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{Use: "sync", Short: "Synchronize stories/journeys with an external tracker (requires a configured collaborator)."}
	notImplemented := func(cmd *cobra.Command, args []string) error { return govctlerr.ErrNotImplemented }
	cmd.AddCommand(
		&cobra.Command{Use: "push", Short: "Push local changes to the external tracker.", RunE: notImplemented},
		&cobra.Command{Use: "pull", Short: "Pull changes from the external tracker.", RunE: notImplemented},
		&cobra.Command{Use: "status", Short: "Show sync status against the external tracker.", RunE: notImplemented},
	)
	return cmd
}

func newImplementCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "implement <story-id>",
		Short: "Hand a story off to an autonomous implementation agent (requires a configured collaborator).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return govctlerr.ErrNotImplemented
		},
	}
}
