package browse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/dishdex/internal/dishes"
)

// DefaultDebounce is the quiet period after the last keystroke before an
// autosuggest request is issued.
const DefaultDebounce = 250 * time.Millisecond

// DefaultSuggestLimit caps the number of suggestions requested.
const DefaultSuggestLimit = 8

// Query is the search box state.
type Query struct {
	Text      string
	Dimension dishes.Dimension
}

// suggestDebounceMsg fires after the debounce timer expires.
type suggestDebounceMsg struct {
	id uint64 // Must match the engine's debounceID to be accepted
}

// suggestDoneMsg carries an autosuggest result back to the loop.
type suggestDoneMsg struct {
	requestID uint64
	query     Query
	items     []dishes.Suggestion
	err       error
}

// SuggestOptions configures a SuggestionEngine.
type SuggestOptions struct {
	Debounce  time.Duration
	Limit     int
	Dimension dishes.Dimension
	Logger    *slog.Logger
}

// SuggestionEngine debounces search input and keeps the suggestion panel in
// step with the latest query. Only the newest request for the current query
// may change the panel.
type SuggestionEngine struct {
	source   Suggester
	logger   *slog.Logger
	debounce time.Duration
	limit    int

	input     textinput.Model
	dimension dishes.Dimension

	items  []dishes.Suggestion
	cursor int
	open   bool

	alive       bool
	requestID   uint64
	debounceID  uint64
	cancelFetch context.CancelFunc
}

// NewSuggestionEngine creates an engine backed by source.
func NewSuggestionEngine(source Suggester, opts SuggestOptions) SuggestionEngine {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultSuggestLimit
	}
	if opts.Dimension == "" {
		opts.Dimension = dishes.DimensionName
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "search dishes"
	ti.CharLimit = 120
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.Focus()

	return SuggestionEngine{
		source:    source,
		logger:    opts.Logger,
		debounce:  opts.Debounce,
		limit:     opts.Limit,
		input:     ti,
		dimension: opts.Dimension,
		alive:     true,
	}
}

// Query returns the current search box state.
func (e *SuggestionEngine) Query() Query {
	return Query{Text: e.input.Value(), Dimension: e.dimension}
}

// Suggestions returns the applied suggestion set.
func (e *SuggestionEngine) Suggestions() []dishes.Suggestion {
	return e.items
}

// IsOpen reports whether the suggestion panel is shown.
func (e *SuggestionEngine) IsOpen() bool {
	return e.open
}

// Cursor is the highlighted suggestion index.
func (e *SuggestionEngine) Cursor() int {
	return e.cursor
}

// Focus and Blur move the text cursor in and out of the search box.
func (e *SuggestionEngine) Focus() { e.input.Focus() }
func (e *SuggestionEngine) Blur()  { e.input.Blur() }

// Focused reports whether the search box has keyboard focus.
func (e *SuggestionEngine) Focused() bool {
	return e.input.Focused()
}

// SetQuery updates the query. Empty text clears the panel immediately and
// invalidates pending work; anything else restarts the debounce timer.
func (e *SuggestionEngine) SetQuery(text string, dim dishes.Dimension) tea.Cmd {
	if e.input.Value() != text {
		e.input.SetValue(text)
	}
	if dim != "" {
		e.dimension = dim
	}
	if strings.TrimSpace(text) == "" {
		e.invalidate()
		e.clear()
		return nil
	}
	return e.startDebounce()
}

// Select acts on a suggestion: an item with an ID opens that dish,
// otherwise its label becomes a filter for the current dimension. The
// panel, suggestions and query text are cleared either way.
func (e *SuggestionEngine) Select(item dishes.Suggestion) tea.Cmd {
	dim := e.dimension
	e.invalidate()
	e.clear()
	e.input.SetValue("")

	if item.ID != "" {
		id := item.ID
		return func() tea.Msg { return OpenDetailMsg{ID: id} }
	}
	value := strings.TrimSpace(item.Label)
	return func() tea.Msg { return ApplyFilterMsg{Dimension: dim, Value: value} }
}

// Click selects the suggestion at row i of the panel.
func (e *SuggestionEngine) Click(i int) tea.Cmd {
	if !e.open || i < 0 || i >= len(e.items) {
		return nil
	}
	return e.Select(e.items[i])
}

// Dismiss closes the panel without touching the query or suggestions.
func (e *SuggestionEngine) Dismiss() {
	e.open = false
}

// Close tears the engine down. Later completions are ignored.
func (e *SuggestionEngine) Close() {
	e.alive = false
	e.debounceID++
	e.cancelInflight()
}

// Update handles the engine's own messages.
func (e *SuggestionEngine) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case suggestDebounceMsg:
		return e.handleDebounce(msg)
	case suggestDoneMsg:
		e.handleDone(msg)
	}
	return nil
}

// HandleKey processes a key while the search box has focus. It reports
// false for keys the engine does not use so the caller can act on them.
func (e *SuggestionEngine) HandleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyEsc:
		if e.open {
			e.Dismiss()
			return nil, true
		}
		return nil, false

	case tea.KeyUp:
		if e.open && e.cursor > 0 {
			e.cursor--
		}
		return nil, e.open

	case tea.KeyDown:
		if e.open && e.cursor < len(e.items)-1 {
			e.cursor++
		}
		return nil, e.open

	case tea.KeyEnter:
		if e.open && e.cursor < len(e.items) {
			return e.Select(e.items[e.cursor]), true
		}
		if text := strings.TrimSpace(e.input.Value()); text != "" {
			return e.Select(dishes.Suggestion{Label: text}), true
		}
		return nil, false

	case tea.KeyTab:
		return e.SetQuery(e.input.Value(), e.dimension.Next()), true

	case tea.KeyShiftTab:
		return e.SetQuery(e.input.Value(), prevDimension(e.dimension)), true
	}

	before := e.input.Value()
	var inputCmd tea.Cmd
	e.input, inputCmd = e.input.Update(msg)
	if after := e.input.Value(); after != before {
		return tea.Batch(inputCmd, e.SetQuery(after, e.dimension)), true
	}
	return inputCmd, msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace || msg.Type == tea.KeyBackspace
}

func prevDimension(d dishes.Dimension) dishes.Dimension {
	prev := d
	for next := d.Next(); next != d; next = next.Next() {
		prev = next
	}
	return prev
}

func (e *SuggestionEngine) handleDebounce(msg suggestDebounceMsg) tea.Cmd {
	if !e.alive || msg.id != e.debounceID {
		return nil
	}
	return e.startFetch()
}

func (e *SuggestionEngine) handleDone(msg suggestDoneMsg) {
	if !e.alive || msg.requestID != e.requestID {
		return
	}
	if msg.query != e.Query() {
		return
	}
	e.cancelInflight()

	if msg.err != nil {
		e.logger.Warn("autosuggest failed", "query", msg.query.Text, "by", msg.query.Dimension, "error", msg.err)
		e.clear()
		return
	}

	e.items = msg.items
	e.cursor = 0
	e.open = len(e.items) > 0
}

// startDebounce increments the debounce counter and returns a tea.Tick
// command that fires after the debounce interval.
func (e *SuggestionEngine) startDebounce() tea.Cmd {
	e.debounceID++
	id := e.debounceID
	return tea.Tick(e.debounce, func(time.Time) tea.Msg {
		return suggestDebounceMsg{id: id}
	})
}

func (e *SuggestionEngine) startFetch() tea.Cmd {
	e.cancelInflight()
	e.requestID++

	reqID := e.requestID
	q := e.Query()
	ctx, cancel := context.WithCancel(context.Background())
	e.cancelFetch = cancel

	source, limit := e.source, e.limit
	return func() tea.Msg {
		items, err := source.Autosuggest(ctx, strings.TrimSpace(q.Text), q.Dimension, limit)
		return suggestDoneMsg{requestID: reqID, query: q, items: items, err: err}
	}
}

// invalidate makes every pending debounce tick and fetch stale.
func (e *SuggestionEngine) invalidate() {
	e.debounceID++
	e.requestID++
	e.cancelInflight()
}

func (e *SuggestionEngine) clear() {
	e.items = nil
	e.cursor = 0
	e.open = false
}

func (e *SuggestionEngine) cancelInflight() {
	if e.cancelFetch != nil {
		e.cancelFetch()
		e.cancelFetch = nil
	}
}

// PanelHeight is the number of screen rows the open panel occupies.
func (e *SuggestionEngine) PanelHeight() int {
	if !e.open {
		return 0
	}
	return len(e.items)
}

// View renders the search line and, when open, the suggestion panel.
func (e *SuggestionEngine) View(width int) string {
	var b strings.Builder

	dims := make([]string, 0, len(dishes.Dimensions))
	for _, d := range dishes.Dimensions {
		if d == e.dimension {
			dims = append(dims, activeTabStyle.Render(" "+string(d)+" "))
		} else {
			dims = append(dims, tabStyle.Render(" "+string(d)+" "))
		}
	}
	prompt := queryStyle.Render("search ")
	if !e.input.Focused() {
		prompt = dimStyle.Render("search ")
	}
	b.WriteString(prompt + e.input.View() + "  " + strings.Join(dims, ""))

	if !e.open {
		return b.String()
	}

	rowWidth := width - 4
	if rowWidth < 10 {
		rowWidth = 40
	}
	for i, item := range e.items {
		b.WriteRune('\n')
		label := Truncate(Clean(item.Label), rowWidth)
		if item.ID != "" {
			label += dimStyle.Render(" ↵ open")
		} else {
			label += dimStyle.Render(fmt.Sprintf(" ↵ filter %s", e.dimension))
		}
		if i == e.cursor {
			b.WriteString(selectedStyle.Render("> ") + label)
		} else {
			b.WriteString("  " + normalStyle.Render(label))
		}
	}
	return b.String()
}
