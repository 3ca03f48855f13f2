package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/dishdex/internal/browse"
	"github.com/runger/dishdex/internal/dishes"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Print one dish",
	GroupID: groupCore,
	Args:    cobra.ExactArgs(1),
	RunE:    runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print JSON")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	id := strings.TrimSpace(args[0])
	if id == "" {
		return fmt.Errorf("dish id is required")
	}

	ctx := context.Background()
	e, err := openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.requireLogin(); err != nil {
		return err
	}

	rec, err := e.client.Get(ctx, id)
	if errors.Is(err, dishes.ErrNotFound) {
		return fmt.Errorf("no dish with id %s", id)
	}
	if err != nil {
		return err
	}

	if showJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	fmt.Println(browse.RenderRecord(rec, termWidth()))
	return nil
}
