package browse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/dishdex/internal/dishes"
	"github.com/runger/dishdex/internal/location"
)

// listState represents the current state of the list's fetch cycle.
type listState int

const (
	listIdle    listState = iota // Nothing fetched yet
	listLoading                  // Fetch in progress
	listLoaded                   // Page has rows
	listEmpty                    // Fetch succeeded with no rows
	listError                    // Fetch failed
)

// listDoneMsg is sent when a List call completes.
type listDoneMsg struct {
	seq    uint64
	params dishes.ListParams
	page   dishes.ResultPage
	err    error
}

// ListQueryController keeps the result table in step with the list
// parameters stored in a Location. Every parameter change is written to the
// location first and then read back, so the location stays the single
// source of truth. Fetches are tagged with a sequence number and only the
// most recently issued one is applied.
type ListQueryController struct {
	source   Lister
	loc      location.Location
	defaults dishes.ListParams
	logger   *slog.Logger

	params dishes.ListParams
	page   dishes.ResultPage
	state  listState
	err    error
	cursor int

	filter textinput.Model

	alive       bool
	seq         uint64
	cancelFetch context.CancelFunc
}

// NewListQueryController creates a controller reading from loc. defaults
// supplies the page size and sort used when the location has none.
func NewListQueryController(source Lister, loc location.Location, defaults dishes.ListParams, logger *slog.Logger) ListQueryController {
	if logger == nil {
		logger = slog.Default()
	}
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "filter by text"
	ti.CharLimit = 120
	ti.Cursor.SetMode(cursor.CursorStatic)

	return ListQueryController{
		source:   source,
		loc:      loc,
		defaults: defaults.Normalize(),
		logger:   logger,
		filter:   ti,
		alive:    true,
	}
}

// Params returns the parameters the current page was requested with.
func (c *ListQueryController) Params() dishes.ListParams {
	return c.params
}

// Page returns the applied result page.
func (c *ListQueryController) Page() dishes.ResultPage {
	return c.page
}

// Loading reports whether a fetch is in flight.
func (c *ListQueryController) Loading() bool {
	return c.state == listLoading
}

// Err returns the last fetch error, if the last fetch failed.
func (c *ListQueryController) Err() error {
	if c.state != listError {
		return nil
	}
	return c.err
}

// Sync re-reads the parameters from the location and fetches when they
// differ from the ones on screen. The first call always fetches.
func (c *ListQueryController) Sync() tea.Cmd {
	next := location.ReadList(c.loc.Values(), c.defaults)
	if c.state != listIdle && next == c.params {
		return nil
	}
	c.params = next
	if c.filter.Value() != next.FreeText {
		c.filter.SetValue(next.FreeText)
	}
	return c.startFetch()
}

// Update applies fn to the parameters currently in the location and writes
// the result back. Changes made to the location since the last Sync are
// kept. It returns nil when the result is unchanged.
func (c *ListQueryController) Update(fn func(dishes.ListParams) dishes.ListParams) tea.Cmd {
	next := fn(location.ReadList(c.loc.Values(), c.defaults)).Normalize()
	location.WriteList(c.loc, next, c.defaults)
	return c.Sync()
}

// ToggleSort sorts by field. Choosing the active column flips its
// direction; any other column starts ascending.
func (c *ListQueryController) ToggleSort(field dishes.SortField) tea.Cmd {
	return c.Update(func(p dishes.ListParams) dishes.ListParams {
		if p.SortField == field {
			p.SortDirection = p.SortDirection.Toggle()
		} else {
			p.SortField = field
			p.SortDirection = dishes.SortAsc
		}
		return p
	})
}

// NextPage moves forward one page, stopping at the last known page.
func (c *ListQueryController) NextPage() tea.Cmd {
	return c.Update(func(p dishes.ListParams) dishes.ListParams {
		if c.state == listLoaded || c.state == listEmpty {
			if p.Page >= c.page.TotalPages(p.PageSize) {
				return p
			}
		}
		p.Page++
		return p
	})
}

// PrevPage moves back one page. Page never drops below 1.
func (c *ListQueryController) PrevPage() tea.Cmd {
	return c.Update(func(p dishes.ListParams) dishes.ListParams {
		p.Page--
		return p
	})
}

// SetPage jumps to page n (floor 1).
func (c *ListQueryController) SetPage(n int) tea.Cmd {
	return c.Update(func(p dishes.ListParams) dishes.ListParams {
		p.Page = n
		return p
	})
}

// SetPageSize changes the page size (floor 1) and returns to page 1.
func (c *ListQueryController) SetPageSize(n int) tea.Cmd {
	return c.Update(func(p dishes.ListParams) dishes.ListParams {
		if n < 1 {
			n = 1
		}
		if n != p.PageSize {
			p.Page = 1
		}
		p.PageSize = n
		return p
	})
}

// ApplyFilter sets the list parameter for dim and returns to page 1.
func (c *ListQueryController) ApplyFilter(dim dishes.Dimension, value string) tea.Cmd {
	return c.Update(func(p dishes.ListParams) dishes.ListParams {
		return p.WithFilter(dim, strings.TrimSpace(value))
	})
}

// SetFreeText updates the q parameter and returns to page 1.
func (c *ListQueryController) SetFreeText(text string) tea.Cmd {
	return c.ApplyFilter(dishes.DimensionName, text)
}

// ClearFilters drops every filter and the free text.
func (c *ListQueryController) ClearFilters() tea.Cmd {
	return c.Update(func(p dishes.ListParams) dishes.ListParams {
		if !p.HasFilters() {
			return p
		}
		p.Origin, p.Ingredient, p.State, p.FreeText = "", "", "", ""
		p.Page = 1
		return p
	})
}

// Back and Forward step through the location history.
func (c *ListQueryController) Back() tea.Cmd {
	if !c.loc.Back() {
		return nil
	}
	return c.Sync()
}

func (c *ListQueryController) Forward() tea.Cmd {
	if !c.loc.Forward() {
		return nil
	}
	return c.Sync()
}

// Refresh refetches the current parameters.
func (c *ListQueryController) Refresh() tea.Cmd {
	return c.startFetch()
}

// Address renders the current location.
func (c *ListQueryController) Address() string {
	return c.loc.String()
}

// Selected returns the highlighted record.
func (c *ListQueryController) Selected() (dishes.Record, bool) {
	if c.state != listLoaded || c.cursor < 0 || c.cursor >= len(c.page.Items) {
		return dishes.Record{}, false
	}
	return c.page.Items[c.cursor], true
}

// Close tears the controller down. Later completions are ignored.
func (c *ListQueryController) Close() {
	c.alive = false
	c.cancelInflight()
}

// Handle processes the controller's own messages.
func (c *ListQueryController) Handle(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(listDoneMsg); ok {
		c.handleDone(msg)
	}
	return nil
}

func (c *ListQueryController) handleDone(msg listDoneMsg) {
	if !c.alive || msg.seq != c.seq {
		return
	}
	c.cancelInflight()

	if msg.err != nil {
		c.logger.Warn("list fetch failed", "page", msg.params.Page, "error", msg.err)
		c.state = listError
		c.err = msg.err
		c.page = dishes.ResultPage{}
		c.cursor = 0
		return
	}

	c.err = nil
	c.page = msg.page
	if len(c.page.Items) == 0 {
		c.state = listEmpty
		c.cursor = 0
		return
	}
	c.state = listLoaded
	if c.cursor >= len(c.page.Items) {
		c.cursor = len(c.page.Items) - 1
	}
}

func (c *ListQueryController) startFetch() tea.Cmd {
	c.cancelInflight()
	c.seq++
	c.state = listLoading

	seq := c.seq
	params := c.params
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelFetch = cancel

	source := c.source
	return func() tea.Msg {
		page, err := source.List(ctx, params)
		return listDoneMsg{seq: seq, params: params, page: page, err: err}
	}
}

func (c *ListQueryController) cancelInflight() {
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
}

// FilterFocused reports whether the free-text filter box has focus.
func (c *ListQueryController) FilterFocused() bool {
	return c.filter.Focused()
}

// FocusFilter moves keyboard focus into the filter box.
func (c *ListQueryController) FocusFilter() {
	c.filter.Focus()
}

// HandleKey processes a key while the table has focus.
func (c *ListQueryController) HandleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if c.filter.Focused() {
		return c.handleFilterKey(msg)
	}

	switch msg.String() {
	case "up", "k":
		if c.cursor > 0 {
			c.cursor--
		}
		return nil, true
	case "down", "j":
		if c.cursor < len(c.page.Items)-1 {
			c.cursor++
		}
		return nil, true
	case "left", "h", "pgup":
		return c.PrevPage(), true
	case "right", "l", "pgdown":
		return c.NextPage(), true
	case "home", "g":
		return c.SetPage(1), true
	case "+":
		return c.SetPageSize(c.params.PageSize + 5), true
	case "-":
		return c.SetPageSize(c.params.PageSize - 5), true
	case "f":
		c.filter.Focus()
		return nil, true
	case "x":
		return c.ClearFilters(), true
	case "r":
		return c.Refresh(), true
	case "[":
		return c.Back(), true
	case "]":
		return c.Forward(), true
	case "enter":
		if rec, ok := c.Selected(); ok && rec.ID != "" {
			id := rec.ID
			return func() tea.Msg { return OpenDetailMsg{ID: id} }, true
		}
		return nil, true
	}

	// 1-8 pick a sort column.
	if k := msg.String(); len(k) == 1 && k[0] >= '1' && k[0] <= '9' {
		i := int(k[0] - '1')
		if i < len(dishes.SortFields) {
			return c.ToggleSort(dishes.SortFields[i]), true
		}
	}
	return nil, false
}

// handleFilterKey edits the filter box. Each change is written straight
// through to the location.
func (c *ListQueryController) handleFilterKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		c.filter.Blur()
		return nil, true
	}
	before := c.filter.Value()
	var inputCmd tea.Cmd
	c.filter, inputCmd = c.filter.Update(msg)
	if after := c.filter.Value(); after != before {
		return tea.Batch(inputCmd, c.SetFreeText(after)), true
	}
	return inputCmd, true
}

// columnWidths splits width across the table columns. Name gets what the
// fixed columns leave over.
func columnWidths(width int) []int {
	fixed := []int{10, 6, 6, 10, 12, 14, 12} // diet, prep, cook, flavor, course, state, region
	used := 0
	for _, w := range fixed {
		used += w + 1
	}
	name := width - used - 2
	if name < 12 {
		name = 12
	}
	return append([]int{name}, fixed...)
}

// ColumnAt maps an x offset within a table row to its sort column.
func (c *ListQueryController) ColumnAt(x, width int) (dishes.SortField, bool) {
	x -= 2 // cursor gutter
	if x < 0 {
		return dishes.SortNone, false
	}
	for i, w := range columnWidths(width) {
		if x < w {
			return dishes.SortFields[i], true
		}
		x -= w + 1
		if x < 0 {
			return dishes.SortNone, false
		}
	}
	return dishes.SortNone, false
}

// ClickRow moves the cursor to row i of the current page.
func (c *ListQueryController) ClickRow(i int) bool {
	if c.state != listLoaded || i < 0 || i >= len(c.page.Items) {
		return false
	}
	c.cursor = i
	return true
}

// View renders the filter line, table and footer.
func (c *ListQueryController) View(width, height int) string {
	if width <= 0 {
		width = 100
	}
	var b strings.Builder

	b.WriteString(c.viewFilters())
	b.WriteRune('\n')

	widths := columnWidths(width)
	b.WriteString("  " + c.viewHeader(widths))
	b.WriteRune('\n')

	switch c.state {
	case listIdle, listLoading:
		b.WriteString(dimStyle.Render("  Loading…"))
	case listEmpty:
		b.WriteString(dimStyle.Render("  No dishes match"))
	case listError:
		b.WriteString(errorStyle.Render("  Could not load dishes: " + Clean(fmt.Sprint(c.err))))
	case listLoaded:
		rows := height
		if rows <= 0 {
			rows = len(c.page.Items)
		}
		for i, rec := range c.page.Items {
			if i >= rows {
				break
			}
			line := c.viewRow(rec, widths)
			if i == c.cursor {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString(normalStyle.Render("  " + line))
			}
			if i < len(c.page.Items)-1 && i < rows-1 {
				b.WriteRune('\n')
			}
		}
	}

	b.WriteRune('\n')
	b.WriteString(c.viewFooter())
	return b.String()
}

func (c *ListQueryController) viewFilters() string {
	var parts []string
	for _, f := range []struct{ key, value string }{
		{"origin", c.params.Origin},
		{"ingredient", c.params.Ingredient},
		{"state", c.params.State},
	} {
		if f.value != "" {
			parts = append(parts, f.key+"="+Clean(f.value))
		}
	}
	box := c.filter.View()
	if !c.filter.Focused() && c.filter.Value() == "" {
		box = dimStyle.Render("(f to filter)")
	}
	line := queryStyle.Render("filter ") + box
	if len(parts) > 0 {
		line += "  " + dimStyle.Render(strings.Join(parts, " "))
	}
	return line
}

func (c *ListQueryController) viewHeader(widths []int) string {
	cols := make([]string, len(dishes.SortFields))
	for i, f := range dishes.SortFields {
		title := fmt.Sprintf("%d %s", i+1, dishes.ColumnTitle(f))
		if f == c.params.SortField {
			arrow := "▲"
			if c.params.SortDirection == dishes.SortDesc {
				arrow = "▼"
			}
			cols[i] = sortedStyle.Render(Cell(title+arrow, widths[i]))
		} else {
			cols[i] = headerStyle.Render(Cell(title, widths[i]))
		}
	}
	return strings.Join(cols, " ")
}

func (c *ListQueryController) viewRow(rec dishes.Record, widths []int) string {
	cols := make([]string, len(dishes.SortFields))
	for i, f := range dishes.SortFields {
		cols[i] = Cell(rec.Field(f), widths[i])
	}
	return strings.Join(cols, " ")
}

func (c *ListQueryController) viewFooter() string {
	total := c.page.TotalPages(c.params.PageSize)
	return dimStyle.Render(fmt.Sprintf("page %d/%d · %d dishes · %d per page · %s",
		c.params.Page, total, c.page.Total, c.params.PageSize, MiddleTruncate(c.loc.String(), 48)))
}
