package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"govctl/internal/config"
	"govctl/internal/obslog"
)

// rootState carries flags and lazily-loaded config shared across every
// subcommand, set up in PersistentPreRunE and read back by each RunE.
type rootState struct {
	workspaceRoot string
	cfg           *config.Config
	log           *zap.SugaredLogger
}

func newRootCmd() *cobra.Command {
	state := &rootState{}
	var verbose bool

	cmd := &cobra.Command{
		Use:   "govctl",
		Short: "Story-driven governance core: preflight, council, ADR/journey authoring, and secret management.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if state.workspaceRoot == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				state.workspaceRoot = wd
			}
			cfg, err := config.Load(state.workspaceRoot)
			if err != nil {
				return err
			}
			state.cfg = cfg
			state.log = newCLILogger(verbose).Sugar()
			return obslog.Initialize(state.workspaceRoot, cfg.Logging.DebugMode, levelFromString(cfg.Logging.Level))
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if state.log != nil {
				_ = state.log.Sync()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&state.workspaceRoot, "workspace", "", "workspace root (defaults to the current directory)")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "emit debug-level human-facing output on stderr")

	cmd.AddCommand(
		newPreflightCmd(state),
		newPanelCmd(state),
		newImpactCmd(state),
		newSecretCmd(state),
		newConfigCmd(state),
		newAuditCmd(state),
		newQueryCmd(state),
		newListModelsCmd(state),
		newJourneyCmd(state),
		newValidateJourneyCmd(state),
		newSyncCmd(state),
		newImplementCmd(state),
	)
	cmd.AddCommand(newScaffoldCommands(state)...)
	return cmd
}

// newCLILogger builds the human-facing stderr logger for the CLI boundary,
// wired with zap.NewProductionConfig the same way the teacher's cmd/nerd
// entrypoint does, switched to debug level under --verbose and synced from
// PersistentPostRunE before the process exits.
func newCLILogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func levelFromString(level string) int {
	switch level {
	case "debug":
		return obslog.LevelDebug
	case "warn":
		return obslog.LevelWarn
	case "error":
		return obslog.LevelError
	default:
		return obslog.LevelInfo
	}
}
