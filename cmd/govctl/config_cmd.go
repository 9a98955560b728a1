package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"govctl/internal/config"
)

func parseEngineKind(s string) config.EngineKind {
	switch config.EngineKind(s) {
	case config.EngineLegacy, config.EngineADK:
		return config.EngineKind(s)
	default:
		return config.EngineParallel
	}
}

// newConfigCmd exposes get/set for a fixed set of dotted config keys,
// covering the handful of scalar fields a human is likely to tweak from
// the CLI rather than by hand-editing config.yaml.
func newConfigCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Inspect or edit the workspace's governance config."}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one config value (active_provider, council.max_parallel, council.panel_engine, logging.debug_mode).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := state.cfg
			switch args[0] {
			case "active_provider":
				fmt.Fprintln(cmd.OutOrStdout(), cfg.ActiveProvider)
			case "council.max_parallel":
				fmt.Fprintln(cmd.OutOrStdout(), cfg.Council.MaxParallel)
			case "council.panel_engine":
				fmt.Fprintln(cmd.OutOrStdout(), cfg.Council.PanelEngine)
			case "logging.debug_mode":
				fmt.Fprintln(cmd.OutOrStdout(), cfg.Logging.DebugMode)
			default:
				return fmt.Errorf("config: unknown key %q", args[0])
			}
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one config value and persist it.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := state.cfg
			switch args[0] {
			case "active_provider":
				cfg.ActiveProvider = args[1]
			case "council.max_parallel":
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return err
				}
				cfg.Council.MaxParallel = n
			case "council.panel_engine":
				cfg.Council.PanelEngine = parseEngineKind(args[1])
			case "logging.debug_mode":
				b, err := strconv.ParseBool(args[1])
				if err != nil {
					return err
				}
				cfg.Logging.DebugMode = b
			default:
				return fmt.Errorf("config: unknown key %q", args[0])
			}
			return cfg.Save()
		},
	}

	cmd.AddCommand(getCmd, setCmd)
	return cmd
}
