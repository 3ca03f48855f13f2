package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/dishdex/internal/config"
	"github.com/runger/dishdex/internal/location"
)

var openCmd = &cobra.Command{
	Use:     "open <address>",
	Short:   "Point the browser at a list address",
	GroupID: groupCore,
	Long: `Point the browser at a list address.

The address is written to the location file. A running browser follows
it immediately; otherwise the next 'dishdex browse' starts there.

Examples:
  dishdex open '/dishes?origin=Bengal&sortBy=cook_time&sortOrder=desc'
  dishdex open 'page=2&limit=20'`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	v, err := parseListAddress(args[0])
	if err != nil {
		return err
	}

	paths := config.DefaultPaths()
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	addr := location.Format(location.DefaultPath, v)
	if err := location.WriteFile(paths.LocationFile(), addr); err != nil {
		return err
	}
	fmt.Println(addr)
	return nil
}
