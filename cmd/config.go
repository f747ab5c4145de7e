package cmd

import (
	"fmt"

	"github.com/mlinder314/runscrape/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the runscrape config profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, used, err := config.LoadMerged(config.Options{
			IgnoreConfig: flagIgnoreConfig,
			Debug:        flagDebug,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Loaded config from:\n  %s\n\n", used)
		cfg.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// confirm asks a yes/no question. Anything but yes, including Ctrl-C, is no.
func confirm(label string) bool {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	_, err := prompt.Run()
	return err == nil
}
