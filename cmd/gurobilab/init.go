package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/twil3akine/gurobilab/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the defaults",
	Long: `Write a gurobilab.yaml holding every default, ready to edit.

The file goes to --config when given, otherwise to ./gurobilab.yaml.

Example:
  gurobilab init
  gurobilab init --config ~/.config/gurobilab/gurobilab.yaml --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultFileName
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.SaveConfig(config.NewDefaultConfig(), path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
	return nil
}
