package cmd

import (
	"fmt"
	"strings"

	"github.com/mlinder314/runscrape/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var flagAddFrom string

var configAddCmd = &cobra.Command{
	Use:   "add [label]",
	Short: "Create a new config, from defaults or from an existing YAML file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var label string
		if len(args) == 1 {
			label = args[0]
		} else {
			prompt := promptui.Prompt{
				Label: "Label for new config",
				Validate: func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("label cannot be empty")
					}
					return nil
				},
			}
			var err error
			if label, err = prompt.Run(); err != nil {
				return fmt.Errorf("input cancelled")
			}
		}
		label = strings.TrimSpace(label)

		if flagAddFrom != "" {
			if err := config.AddConfig(label, flagAddFrom); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as config %q\n", flagAddFrom, label)
			return nil
		}

		path, err := config.CreateEmptyConfig(label)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created new config: %s\n", path)
		return nil
	},
}

func init() {
	configAddCmd.Flags().StringVar(&flagAddFrom, "from", "", "copy an existing YAML file instead of the defaults")
	configCmd.AddCommand(configAddCmd)
}
