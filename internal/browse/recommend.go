package browse

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/dishdex/internal/dishes"
)

// ingredientsDoneMsg carries the candidate ingredient list.
type ingredientsDoneMsg struct {
	items []string
	err   error
}

// recommendDoneMsg carries a recommendation result.
type recommendDoneMsg struct {
	seq   uint64
	items []dishes.Record
	err   error
}

// MultiSelectRecommender lets the user pick ingredients and asks the
// service for dishes that use all (or any) of them.
type MultiSelectRecommender struct {
	ingredients dishes.IngredientSource
	source      RecommendSource
	logger      *slog.Logger

	candidates []string
	loaded     bool
	loading    bool
	loadErr    error

	selected map[string]bool
	mode     dishes.MatchMode
	filter   textinput.Model
	cursor   int

	results   []dishes.Record
	panelOpen bool
	pending   bool

	alive       bool
	seq         uint64
	cancelFetch context.CancelFunc
}

// NewMultiSelectRecommender creates a recommender. mode is the initial
// match mode.
func NewMultiSelectRecommender(ingredients dishes.IngredientSource, source RecommendSource, mode dishes.MatchMode, logger *slog.Logger) MultiSelectRecommender {
	if logger == nil {
		logger = slog.Default()
	}
	if mode != dishes.MatchAny {
		mode = dishes.MatchAll
	}
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "type to filter ingredients"
	ti.CharLimit = 60
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.Focus()

	return MultiSelectRecommender{
		ingredients: ingredients,
		source:      source,
		logger:      logger,
		selected:    map[string]bool{},
		mode:        mode,
		filter:      ti,
		alive:       true,
	}
}

// Load fetches the candidate list the first time it is called.
func (r *MultiSelectRecommender) Load() tea.Cmd {
	if r.loaded || r.loading || r.ingredients == nil {
		return nil
	}
	r.loading = true
	src := r.ingredients
	return func() tea.Msg {
		items, err := src.Ingredients(context.Background())
		return ingredientsDoneMsg{items: items, err: err}
	}
}

// Toggle adds token to the selection, or removes it if already present.
func (r *MultiSelectRecommender) Toggle(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	if r.selected[token] {
		delete(r.selected, token)
		return
	}
	r.selected[token] = true
}

// IsSelected reports whether token is in the selection.
func (r *MultiSelectRecommender) IsSelected(token string) bool {
	return r.selected[token]
}

// Selected returns the selection in sorted order.
func (r *MultiSelectRecommender) Selected() []string {
	out := make([]string, 0, len(r.selected))
	for tok := range r.selected {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// MatchMode returns the current match mode.
func (r *MultiSelectRecommender) MatchMode() dishes.MatchMode {
	return r.mode
}

// SetMatchMode changes the match mode without fetching.
func (r *MultiSelectRecommender) SetMatchMode(mode dishes.MatchMode) {
	if mode != dishes.MatchAny {
		mode = dishes.MatchAll
	}
	r.mode = mode
}

// ToggleMatchMode switches between all and any.
func (r *MultiSelectRecommender) ToggleMatchMode() {
	r.mode = r.mode.Toggle()
}

// CanSuggest reports whether the suggest action is enabled.
func (r *MultiSelectRecommender) CanSuggest() bool {
	return len(r.selected) > 0
}

// Results returns the last applied recommendations.
func (r *MultiSelectRecommender) Results() []dishes.Record {
	return r.results
}

// PanelOpen reports whether the results panel is shown.
func (r *MultiSelectRecommender) PanelOpen() bool {
	return r.panelOpen
}

// Suggest requests recommendations for the current selection. It does
// nothing when the selection is empty.
func (r *MultiSelectRecommender) Suggest() tea.Cmd {
	if !r.CanSuggest() {
		return nil
	}
	r.cancelInflight()
	r.seq++
	r.pending = true

	seq := r.seq
	tokens := r.Selected()
	mode := r.mode
	ctx, cancel := context.WithCancel(context.Background())
	r.cancelFetch = cancel

	source := r.source
	return func() tea.Msg {
		items, err := source.FromIngredients(ctx, tokens, mode)
		return recommendDoneMsg{seq: seq, items: items, err: err}
	}
}

// Clear resets the selection, results and filter text together. Any
// request still in flight is discarded.
func (r *MultiSelectRecommender) Clear() {
	r.selected = map[string]bool{}
	r.results = nil
	r.panelOpen = false
	r.pending = false
	r.filter.SetValue("")
	r.cursor = 0
	r.seq++
	r.cancelInflight()
}

// Close tears the recommender down. Later completions are ignored.
func (r *MultiSelectRecommender) Close() {
	r.alive = false
	r.cancelInflight()
}

// Filtered returns the candidates containing the filter text, ignoring
// case.
func (r *MultiSelectRecommender) Filtered() []string {
	needle := strings.ToLower(strings.TrimSpace(r.filter.Value()))
	if needle == "" {
		return r.candidates
	}
	var out []string
	for _, c := range r.candidates {
		if strings.Contains(strings.ToLower(c), needle) {
			out = append(out, c)
		}
	}
	return out
}

// SetFilter replaces the local filter text.
func (r *MultiSelectRecommender) SetFilter(text string) {
	r.filter.SetValue(text)
	r.cursor = 0
}

// Handle processes the recommender's own messages.
func (r *MultiSelectRecommender) Handle(msg tea.Msg) tea.Cmd {
	if !r.alive {
		return nil
	}
	switch msg := msg.(type) {
	case ingredientsDoneMsg:
		r.loading = false
		if msg.err != nil {
			r.logger.Warn("ingredient list fetch failed", "error", msg.err)
			r.loadErr = msg.err
			return nil
		}
		r.loaded = true
		r.loadErr = nil
		r.candidates = msg.items

	case recommendDoneMsg:
		if msg.seq != r.seq {
			return nil
		}
		r.cancelInflight()
		r.pending = false
		if msg.err != nil {
			r.logger.Warn("recommendation failed", "ingredients", len(r.selected), "match", r.mode, "error", msg.err)
			r.results = nil
			return nil
		}
		r.results = msg.items
		r.panelOpen = true
	}
	return nil
}

func (r *MultiSelectRecommender) cancelInflight() {
	if r.cancelFetch != nil {
		r.cancelFetch()
		r.cancelFetch = nil
	}
}

// HandleKey processes keys while the recommender has focus.
func (r *MultiSelectRecommender) HandleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	visible := r.Filtered()
	switch msg.String() {
	case "up":
		if r.cursor > 0 {
			r.cursor--
		}
		return nil, true
	case "down":
		if r.cursor < len(visible)-1 {
			r.cursor++
		}
		return nil, true
	case " ", "space":
		if r.cursor < len(visible) {
			r.Toggle(visible[r.cursor])
		}
		return nil, true
	case "enter", "ctrl+s":
		return r.Suggest(), true
	case "ctrl+t":
		r.ToggleMatchMode()
		return nil, true
	case "ctrl+l":
		r.Clear()
		return nil, true
	case "esc":
		if r.panelOpen {
			r.panelOpen = false
			return nil, true
		}
		return nil, false
	}

	before := r.filter.Value()
	var cmd tea.Cmd
	r.filter, cmd = r.filter.Update(msg)
	if r.filter.Value() != before {
		r.cursor = 0
	}
	return cmd, msg.Type == tea.KeyRunes || msg.Type == tea.KeyBackspace
}

// View renders the picker, the selection and the results panel.
func (r *MultiSelectRecommender) View(width, height int) string {
	var b strings.Builder

	b.WriteString(queryStyle.Render("ingredients ") + r.filter.View())
	b.WriteRune('\n')

	switch {
	case r.loading:
		b.WriteString(dimStyle.Render("  Loading ingredients…"))
		b.WriteRune('\n')
	case r.loadErr != nil:
		b.WriteString(errorStyle.Render("  Could not load ingredients"))
		b.WriteRune('\n')
	}

	visible := r.Filtered()
	rows := height - 6
	if rows < 3 {
		rows = 3
	}
	start := 0
	if r.cursor >= rows {
		start = r.cursor - rows + 1
	}
	for i := start; i < len(visible) && i < start+rows; i++ {
		mark := "[ ]"
		if r.selected[visible[i]] {
			mark = "[x]"
		}
		line := mark + " " + Truncate(Clean(visible[i]), width-8)
		if i == r.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(normalStyle.Render("  " + line))
		}
		b.WriteRune('\n')
	}

	sel := r.Selected()
	if len(sel) > 0 {
		b.WriteString(dimStyle.Render("selected: ") + Truncate(Clean(strings.Join(sel, ", ")), width-12))
		b.WriteRune('\n')
	}

	hint := fmt.Sprintf("enter suggest · ctrl+t match %s · ctrl+l clear", r.mode)
	if r.CanSuggest() {
		b.WriteString(normalStyle.Render(hint))
	} else {
		b.WriteString(dimStyle.Render(hint))
	}
	if r.pending {
		b.WriteString(dimStyle.Render("  …"))
	}

	if r.panelOpen {
		b.WriteRune('\n')
		b.WriteString(r.viewResults(width))
	}
	return b.String()
}

func (r *MultiSelectRecommender) viewResults(width int) string {
	if len(r.results) == 0 {
		return panelStyle.Render(dimStyle.Render("No dishes use that combination"))
	}
	inner := width - 4
	if inner < 20 {
		inner = 20
	}
	lines := make([]string, 0, len(r.results))
	for _, rec := range r.results {
		lines = append(lines, Cell(rec.Field(dishes.SortName), inner/2)+" "+
			dimStyle.Render(Truncate(Clean(strings.Join(rec.Ingredients, ", ")), inner/2)))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
