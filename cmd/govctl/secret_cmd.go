package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"govctl/internal/secretstore"
)

func vaultDir(state *rootState) string {
	return state.workspaceRoot + "/.agent/secrets"
}

func newSecretCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{Use: "secret", Short: "Manage the encrypted secret vault."}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new secret vault.",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := secretstore.ReadMasterPassword("master password: ")
			if err != nil {
				return err
			}
			_, err = secretstore.Init(vaultDir(state), pw, force)
			return err
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "reinitialize an existing vault")

	setCmd := &cobra.Command{
		Use:   "set <service> <key>",
		Short: "Set a secret.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := secretstore.ReadMasterPassword("master password: ")
			if err != nil {
				return err
			}
			v, err := secretstore.Open(vaultDir(state), pw)
			if err != nil {
				return err
			}
			value, err := secretstore.ReadMasterPassword(args[0] + "/" + args[1] + " value: ")
			if err != nil {
				return err
			}
			return v.Set(args[0], args[1], value)
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <service> <key>",
		Short: "Get a secret's value.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := secretstore.ReadMasterPassword("master password: ")
			if err != nil {
				return err
			}
			v, err := secretstore.Open(vaultDir(state), pw)
			if err != nil {
				return err
			}
			value, err := v.Get(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List secrets (values masked).",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := secretstore.ReadMasterPassword("master password: ")
			if err != nil {
				return err
			}
			v, err := secretstore.Open(vaultDir(state), pw)
			if err != nil {
				return err
			}
			entries, err := v.List(true)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s/%s = %s (updated %s)\n", e.Service, e.Key, e.Masked, e.UpdatedAt)
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <service> <key>",
		Short: "Delete a secret.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := secretstore.ReadMasterPassword("master password: ")
			if err != nil {
				return err
			}
			v, err := secretstore.Open(vaultDir(state), pw)
			if err != nil {
				return err
			}
			return v.Delete(args[0], args[1])
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <service> <key> <env-var>",
		Short: "Import a secret from an environment variable.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := secretstore.ReadMasterPassword("master password: ")
			if err != nil {
				return err
			}
			v, err := secretstore.Open(vaultDir(state), pw)
			if err != nil {
				return err
			}
			return v.ImportEnv(args[0], args[1], args[2])
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export all secrets as KEY=VALUE lines (unmasked; handle with care).",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := secretstore.ReadMasterPassword("master password: ")
			if err != nil {
				return err
			}
			v, err := secretstore.Open(vaultDir(state), pw)
			if err != nil {
				return err
			}
			values, err := v.Export()
			if err != nil {
				return err
			}
			for k, val := range values {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, val)
			}
			return nil
		},
	}

	rotateCmd := &cobra.Command{
		Use:   "rotate-key",
		Short: "Rotate the vault's master password, re-encrypting every secret.",
		RunE: func(cmd *cobra.Command, args []string) error {
			oldPW, err := secretstore.ReadMasterPassword("current master password: ")
			if err != nil {
				return err
			}
			newPW, err := secretstore.ReadMasterPassword("new master password: ")
			if err != nil {
				return err
			}
			return secretstore.Rotate(vaultDir(state), oldPW, newPW)
		},
	}

	cmd.AddCommand(initCmd, setCmd, getCmd, listCmd, deleteCmd, importCmd, exportCmd, rotateCmd)
	return cmd
}
