package cmd

import (
	"github.com/spf13/cobra"
)

// Command groups shown in help output.
const (
	groupCore    = "core"
	groupAccount = "account"
	groupSetup   = "setup"
)

// apiURL overrides service.base_url for a single invocation.
var apiURL string

var rootCmd = &cobra.Command{
	Use:   "dishdex",
	Short: "browse a dish catalog from the terminal",
	Long: `dishdex - browse a dish catalog from the terminal
  - search by name, ingredient, origin or state with live suggestions
  - sort, filter and page through dishes; every view has a shareable address
  - pick ingredients and get dishes that use them`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyColorMode()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupCore, Title: "Browsing:"},
		&cobra.Group{ID: groupAccount, Title: "Account:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)
	rootCmd.SetHelpCommandGroupID(groupSetup)
	rootCmd.SetCompletionCommandGroupID(groupSetup)

	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "color output: auto, always, or never")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "dish service base URL (overrides service.base_url)")

	rootCmd.AddCommand(versionCmd)
}
