package cmd

import (
	"fmt"

	"github.com/mlinder314/runscrape/internal/config"

	"github.com/spf13/cobra"
)

var configResetCmd = &cobra.Command{
	Use:   "reset [label]",
	Short: "Reset the current or specified config to default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, err := labelOrCurrent(args)
		if err != nil {
			return err
		}

		path, err := config.ResetConfig(label)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Reset config %q: %s\n", label, path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)
}

func labelOrCurrent(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	label, err := config.CurrentLabel()
	if err != nil {
		return "", fmt.Errorf("failed to get current config label: %w", err)
	}
	return label, nil
}
