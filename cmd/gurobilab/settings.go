package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/twil3akine/gurobilab/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and edit runtime settings",
	Long: `Show and edit the settings kept in the store.

Keys:
  gemini_api_key      - API key for the analysis service (falls back to $GEMINI_API_KEY)
  gemini_model        - Model used for analyses
  command_prefix      - Command prepended to the script, e.g. "uv run python -u"
  system_instruction  - Extra instruction placed at the top of every prompt

Examples:
  gurobilab settings list
  gurobilab settings set gemini_model gemini-2.5-pro
  gurobilab settings get gemini_api_key --reveal
  gurobilab settings remove command_prefix`,
}

var listSettingsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the settings in effect",
	Args:  cobra.NoArgs,
	RunE:  runListSettings,
}

var getSettingCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the stored value of a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetSetting,
}

var setSettingCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSetSetting,
}

var removeSettingCmd = &cobra.Command{
	Use:   "remove <key>",
	Short: "Remove a stored setting so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoveSetting,
}

func init() {
	settingsCmd.AddCommand(listSettingsCmd)
	settingsCmd.AddCommand(getSettingCmd)
	settingsCmd.AddCommand(setSettingCmd)
	settingsCmd.AddCommand(removeSettingCmd)

	getSettingCmd.Flags().Bool("reveal", false, "Print secrets unmasked")
}

func runListSettings(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	cur := a.settings.Current().Masked()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE")
	fmt.Fprintf(w, "%s\t%s\n", settings.KeyAPIKey, orUnset(cur.APIKey))
	fmt.Fprintf(w, "%s\t%s\n", settings.KeyModel, orUnset(cur.Model))
	fmt.Fprintf(w, "%s\t%s\n", settings.KeyCommandPrefix, orUnset(cur.CommandPrefix))
	fmt.Fprintf(w, "%s\t%s\n", settings.KeySystemInstruction, orUnset(truncate(cur.SystemInstruction, 60)))
	return w.Flush()
}

func runGetSetting(cmd *cobra.Command, args []string) error {
	reveal, _ := cmd.Flags().GetBool("reveal")

	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	value, ok, err := a.settings.Get(args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not set", args[0])
	}
	if args[0] == settings.KeyAPIKey && !reveal {
		value = settings.Mask(value)
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runSetSetting(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.settings.Set(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s saved\n", args[0])
	return nil
}

func runRemoveSetting(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.settings.Remove(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s removed\n", args[0])
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
