package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// newScaffoldCommands returns the four flat top-level scaffolding
// commands (new-story, new-runbook, new-adr, new-journey) that write a
// starter document of each authored kind under the workspace's docs/
// tree, matching the directories Preflight and the Journey/ADR loaders
// already read from.
func newScaffoldCommands(state *rootState) []*cobra.Command {
	return []*cobra.Command{
		newScaffoldCmd(state, "story", "docs/stories", storyTemplate),
		newScaffoldCmd(state, "runbook", "docs/runbooks", runbookTemplate),
		newScaffoldCmd(state, "adr", "docs/adr", adrTemplate),
		newScaffoldCmd(state, "journey", "docs/journeys", journeyTemplate),
	}
}

func newScaffoldCmd(state *rootState, kind, relDir string, tmpl func(id, title string) string) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("new-%s <id> <title>", kind),
		Short: fmt.Sprintf("Scaffold a new %s document.", kind),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, title := args[0], args[1]
			dir := filepath.Join(state.workspaceRoot, relDir)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			ext := ".md"
			if kind == "journey" {
				ext = ".yaml"
			}
			path := filepath.Join(dir, id+ext)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("new-%s: %s already exists", kind, path)
			}
			if err := os.WriteFile(path, []byte(tmpl(id, title)), 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func storyTemplate(id, title string) string {
	return fmt.Sprintf("# %s: %s\n\n- Status: draft\n- Created: %s\n\n## Problem\n\n## Approach\n\n## Acceptance Criteria\n\n",
		id, title, time.Now().UTC().Format("2006-01-02"))
}

func runbookTemplate(id, title string) string {
	return fmt.Sprintf("# %s: %s\n\n## Trigger\n\n## Steps\n\n1. \n\n## Rollback\n\n", id, title)
}

func adrTemplate(id, title string) string {
	return strings.Join([]string{
		fmt.Sprintf("# %s: %s", id, title),
		"",
		"id: " + id,
		"status: draft",
		"",
		"## Context",
		"",
		"## Decision",
		"",
		"## Enforcement",
		"",
		"```enforcement",
		"rules: []",
		"```",
		"",
	}, "\n")
}

func journeyTemplate(id, title string) string {
	return fmt.Sprintf(`schema_version: 1
id: %s
title: %q
state: draft
actor: ""
description: ""
steps: []
implementation:
  files: []
  tests: []
`, id, title)
}
