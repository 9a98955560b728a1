package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"govctl/internal/preflight"
)

// newPanelCmd runs the same pipeline as preflight, with the council still
// convened in gatekeeper mode, and prints the verdict and findings; its
// exit code does not depend on the verdict, useful for a pre-PR sanity pass.
func newPanelCmd(state *rootState) *cobra.Command {
	var baseRef, headRef, storyID, masterPasswordEnv string

	cmd := &cobra.Command{
		Use:   "panel",
		Short: "Convene the review council consultatively, without gating on the result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := preflight.Run(cmd.Context(), preflight.Options{
				WorkspaceRoot:  state.workspaceRoot,
				BaseRef:        baseRef,
				HeadRef:        headRef,
				StoryID:        storyID,
				Roles:          defaultRoles(),
				MasterPassword: os.Getenv(masterPasswordEnv),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "verdict: %s (consultative — not gating)\n", result.Run.AggregateVerdict)
			for _, f := range result.Run.Findings {
				fmt.Fprintf(cmd.OutOrStdout(), "- [%s] %s:%d %s\n", f.Severity, f.File, f.Line, f.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseRef, "base", "HEAD~1", "base git ref")
	cmd.Flags().StringVar(&headRef, "head", "HEAD", "head git ref")
	cmd.Flags().StringVar(&storyID, "story", "", "story id")
	cmd.Flags().StringVar(&masterPasswordEnv, "master-password-env", "GOVCTL_MASTER_PASSWORD", "env var holding the secret vault master password")
	return cmd
}
