package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/mlinder314/runscrape/internal/config"

	"github.com/spf13/cobra"
)

var flagInitYes bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the Default config",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if path, err := config.PathByLabel(config.DefaultLabel); err == nil {
			fmt.Fprintln(out, "Configuration already exists at:")
			fmt.Fprintln(out, "  ", path)
			fmt.Fprintln(out, "Use `runscrape config reset` to recreate it.")
			return nil
		}

		fmt.Fprintln(out, "Default configuration:")
		config.DefaultConfig().Print(out)
		fmt.Fprintln(out)

		if !flagInitYes && !confirm("Create Default config in "+config.ConfigsDir()) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}

		path, err := config.InitDefaultConfig()
		if err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("failed to write config file: %w", err)
		}

		fmt.Fprintln(out, "Config created at:", path)
		fmt.Fprintln(out, "This config is now active (label: Default).")
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&flagInitYes, "yes", "y", false, "do not ask for confirmation")
	configCmd.AddCommand(configInitCmd)
}
