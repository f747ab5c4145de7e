package cmd

import (
	"fmt"

	"github.com/mlinder314/runscrape/internal/config"

	"github.com/spf13/cobra"
)

var flagForceRemove bool

var configRemoveCmd = &cobra.Command{
	Use:   "remove <label>",
	Short: "Remove a config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := args[0]
		out := cmd.OutOrStdout()

		active, _ := config.CurrentLabel()
		if label == active && !flagForceRemove {
			if !confirm(fmt.Sprintf("Config %q is currently active. Remove it anyway", label)) {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}

		fallback, err := config.RemoveConfig(label)
		if err != nil {
			return err
		}
		if fallback != "" {
			fmt.Fprintln(out, "Fallback switched to:", fallback)
		}

		fmt.Fprintf(out, "Removed configuration %q\n", label)
		return nil
	},
}

func init() {
	configRemoveCmd.Flags().BoolVarP(&flagForceRemove, "force", "f", false, "remove the active config without asking")
	configCmd.AddCommand(configRemoveCmd)
}
