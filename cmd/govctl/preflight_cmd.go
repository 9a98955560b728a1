package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"govctl/internal/council"
	"govctl/internal/preflight"
)

// defaultRoles is the fixed three-role reviewer roster (security,
// architecture, testing) that preflight and panel hand to the council.
func defaultRoles() []council.Role {
	return []council.Role{
		{Name: "security", FocusArea: "authentication, authorization, and data handling", OtherDomains: []string{"style", "performance"}},
		{Name: "architecture", FocusArea: "structural fit with existing ADRs and journeys", OtherDomains: []string{"style"}},
		{Name: "testing", FocusArea: "test coverage of changed behavior", OtherDomains: []string{"style"}},
	}
}

func newPreflightCmd(state *rootState) *cobra.Command {
	var baseRef, headRef, storyID, masterPasswordEnv string

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Run the full preflight pipeline (linters, ADR lint, journey impact, council) over a changeset.",
		RunE: func(cmd *cobra.Command, args []string) error {
			masterPassword := os.Getenv(masterPasswordEnv)
			result, err := preflight.Run(cmd.Context(), preflight.Options{
				WorkspaceRoot:  state.workspaceRoot,
				BaseRef:        baseRef,
				HeadRef:        headRef,
				StoryID:        storyID,
				Roles:          defaultRoles(),
				MasterPassword: masterPassword,
			})
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "govctl:", err)
				return exitCodeError(preflight.ExitOrchError)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "verdict: %s\n", result.Run.AggregateVerdict)
			fmt.Fprintf(cmd.OutOrStdout(), "findings: %d, journey warnings: %d\n", len(result.Run.Findings), len(result.JourneyWarnings))
			if result.AuditPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "audit: %s\n", result.AuditPath)
			}

			return exitCodeError(result.Exit)
		},
	}

	cmd.Flags().StringVar(&baseRef, "base", "HEAD~1", "base git ref")
	cmd.Flags().StringVar(&headRef, "head", "HEAD", "head git ref")
	cmd.Flags().StringVar(&storyID, "story", "", "story id this preflight run belongs to")
	cmd.Flags().StringVar(&masterPasswordEnv, "master-password-env", "GOVCTL_MASTER_PASSWORD", "env var holding the secret vault master password")
	return cmd
}
