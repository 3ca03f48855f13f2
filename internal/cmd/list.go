package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/dishdex/internal/browse"
	"github.com/runger/dishdex/internal/dishes"
	"github.com/runger/dishdex/internal/location"
)

var (
	listPage       int
	listLimit      int
	listOrigin     string
	listIngredient string
	listState      string
	listText       string
	listSort       string
	listDesc       bool
	listURL        string
	listJSON       bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "Print one page of dishes",
	GroupID: groupCore,
	Long: `Print one page of dishes.

Parameters come from --url when given, then from the individual flags.
The address of the printed page is shown under the table and can be
passed to 'dishdex open' or 'dishdex browse --url'.

Examples:
  dishdex list
  dishdex list --origin Punjab --sort prep_time --desc
  dishdex list --url '/dishes?page=3&ingredient=rice'
  dishdex list --q halwa --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	addListFlags(listCmd)
	rootCmd.AddCommand(listCmd)
}

func addListFlags(c *cobra.Command) {
	c.Flags().IntVar(&listPage, "page", 1, "page number (1-based)")
	c.Flags().IntVar(&listLimit, "limit", 0, "rows per page (default browse.page_size)")
	c.Flags().StringVar(&listOrigin, "origin", "", "filter by origin")
	c.Flags().StringVar(&listIngredient, "ingredient", "", "filter by ingredient")
	c.Flags().StringVar(&listState, "state", "", "filter by state")
	c.Flags().StringVar(&listText, "q", "", "free-text search")
	c.Flags().StringVar(&listSort, "sort", "", "sort column: "+sortFieldNames())
	c.Flags().BoolVar(&listDesc, "desc", false, "sort descending")
	c.Flags().StringVar(&listURL, "url", "", "read parameters from a list address")
	c.Flags().BoolVar(&listJSON, "json", false, "print JSON")
}

func sortFieldNames() string {
	names := make([]string, len(dishes.SortFields))
	for i, f := range dishes.SortFields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// listParams resolves the parameters of a list invocation.
func listParams(cmd *cobra.Command, def dishes.ListParams) (dishes.ListParams, error) {
	p := def
	if listURL != "" {
		v, err := parseListAddress(listURL)
		if err != nil {
			return p, fmt.Errorf("--url: %w", err)
		}
		p = location.ReadList(v, def)
	}

	flags := cmd.Flags()
	if flags.Changed("page") {
		p.Page = listPage
	}
	if flags.Changed("limit") {
		p.PageSize = listLimit
	}
	if flags.Changed("origin") {
		p.Origin = listOrigin
	}
	if flags.Changed("ingredient") {
		p.Ingredient = listIngredient
	}
	if flags.Changed("state") {
		p.State = listState
	}
	if flags.Changed("q") {
		p.FreeText = listText
	}
	if flags.Changed("sort") {
		f, err := dishes.ParseSortField(listSort)
		if err != nil {
			return p, err
		}
		p.SortField = f
	}
	if flags.Changed("desc") {
		p.SortDirection = dishes.SortAsc
		if listDesc {
			p.SortDirection = dishes.SortDesc
		}
	}
	return p.Normalize(), nil
}

// listAddress renders the address of p.
func listAddress(p, def dishes.ListParams) string {
	v := url.Values{}
	location.EncodeList(v, p, def)
	return location.Format(location.DefaultPath, v)
}

type listOutput struct {
	Address string          `json:"address"`
	Page    int             `json:"page"`
	Pages   int             `json:"pages"`
	Total   int             `json:"total"`
	Items   []dishes.Record `json:"items"`
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	e, err := openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.requireLogin(); err != nil {
		return err
	}

	def := e.defaults()
	p, err := listParams(cmd, def)
	if err != nil {
		return err
	}

	page, err := e.client.List(ctx, p)
	if err != nil {
		return err
	}

	out := listOutput{
		Address: listAddress(p, def),
		Page:    p.Page,
		Pages:   page.TotalPages(p.PageSize),
		Total:   page.Total,
		Items:   page.Items,
	}
	if out.Items == nil {
		out.Items = []dishes.Record{}
	}

	if listJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	printTable(out, p, termWidth())
	return nil
}

// Fixed widths of the columns after the name column.
var tableWidths = []int{10, 6, 6, 10, 12, 14, 12}

func printTable(out listOutput, p dishes.ListParams, width int) {
	if len(out.Items) == 0 {
		fmt.Println("No dishes match.")
		fmt.Printf("%s%s%s\n", colorDim, out.Address, colorReset)
		return
	}

	fixed := 0
	for _, w := range tableWidths {
		fixed += w + 1
	}
	nameWidth := width - fixed - 1
	if nameWidth < 12 {
		nameWidth = 12
	}
	widths := append([]int{nameWidth}, tableWidths...)

	var header strings.Builder
	for i, f := range dishes.SortFields {
		title := dishes.ColumnTitle(f)
		if f == p.SortField {
			if p.SortDirection == dishes.SortDesc {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		header.WriteString(browse.Cell(title, widths[i]))
		header.WriteRune(' ')
	}
	fmt.Printf("%s%s%s\n", colorBold, strings.TrimRight(header.String(), " "), colorReset)

	for _, rec := range out.Items {
		var row strings.Builder
		for i, f := range dishes.SortFields {
			row.WriteString(browse.Cell(rec.Field(f), widths[i]))
			row.WriteRune(' ')
		}
		fmt.Println(strings.TrimRight(row.String(), " "))
	}

	fmt.Println()
	fmt.Printf("Page %d of %d %s(%d dishes)%s\n", out.Page, out.Pages, colorDim, out.Total, colorReset)
	fmt.Printf("%s%s%s\n", colorCyan, out.Address, colorReset)
}
