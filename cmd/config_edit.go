package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/mlinder314/runscrape/internal/config"

	"github.com/spf13/cobra"
)

var configEditCmd = &cobra.Command{
	Use:   "edit [label]",
	Short: "Edit current or specified config in $EDITOR",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, err := labelOrCurrent(args)
		if err != nil {
			return err
		}

		path, err := config.PathByLabel(label)
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		cmdExec := exec.Command(editor, path)
		cmdExec.Stdin = os.Stdin
		cmdExec.Stdout = os.Stdout
		cmdExec.Stderr = os.Stderr

		if err := cmdExec.Run(); err != nil {
			return fmt.Errorf("failed to open editor: %w", err)
		}

		if _, err := config.Load(label); err != nil {
			return fmt.Errorf("config saved but unreadable: %w", err)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configEditCmd)
}
