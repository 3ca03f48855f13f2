package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/runger/dishdex/internal/browse"
	"github.com/runger/dishdex/internal/dishes"
)

var (
	recommendList  string
	recommendMatch string
	recommendJSON  bool
)

var recommendCmd = &cobra.Command{
	Use:     "recommend [ingredient...]",
	Short:   "Find dishes made from a set of ingredients",
	GroupID: groupCore,
	Long: `Find dishes made from a set of ingredients.

Each argument is one ingredient. --ingredients takes a single
shell-quoted list instead, which is handy in scripts.

With --match all (the default) a dish must use every ingredient; with
--match any it must use at least one.

Examples:
  dishdex recommend rice ghee
  dishdex recommend "basmati rice" cardamom --match any
  dishdex recommend --ingredients "'basmati rice' ghee 'green chilli'"`,
	RunE: runRecommend,
}

var ingredientsCmd = &cobra.Command{
	Use:     "ingredients",
	Short:   "List every known ingredient",
	GroupID: groupCore,
	Args:    cobra.NoArgs,
	RunE:    runIngredients,
}

func init() {
	recommendCmd.Flags().StringVar(&recommendList, "ingredients", "", "shell-quoted ingredient list")
	recommendCmd.Flags().StringVar(&recommendMatch, "match", "all", "all or any")
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "print JSON")
	rootCmd.AddCommand(recommendCmd, ingredientsCmd)
}

// recommendIngredients collects the selection, dropping blanks and
// duplicates, in sorted order.
func recommendIngredients(args []string, quoted string) ([]string, error) {
	all := append([]string(nil), args...)
	if strings.TrimSpace(quoted) != "" {
		tokens, err := shlex.Split(quoted)
		if err != nil {
			return nil, fmt.Errorf("--ingredients: %w", err)
		}
		all = append(all, tokens...)
	}

	seen := make(map[string]bool, len(all))
	var out []string
	for _, s := range all {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func runRecommend(cmd *cobra.Command, args []string) error {
	selection, err := recommendIngredients(args, recommendList)
	if err != nil {
		return err
	}
	if len(selection) == 0 {
		return fmt.Errorf("at least one ingredient is required")
	}
	mode, err := dishes.ParseMatchMode(recommendMatch)
	if err != nil {
		return err
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

	recs, err := e.client.FromIngredients(ctx, selection, mode)
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []dishes.Record{}
	}

	if recommendJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	if len(recs) == 0 {
		fmt.Println("No dishes use that combination.")
		return nil
	}
	width := termWidth()
	nameWidth := width / 3
	for _, rec := range recs {
		fmt.Printf("%s%s%s  %s%s%s\n",
			colorBold, browse.Cell(rec.Field(dishes.SortName), nameWidth), colorReset,
			colorDim, browse.Truncate(browse.Clean(dishes.Display(rec.Ingredients)), width-nameWidth-2), colorReset)
	}
	return nil
}

func runIngredients(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	e, err := openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.requireLogin(); err != nil {
		return err
	}

	items, err := e.ingredients.Ingredients(ctx)
	if err != nil {
		return err
	}
	for _, s := range items {
		fmt.Println(browse.Clean(s))
	}
	return nil
}
