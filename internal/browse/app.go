// Package browse implements the interactive dish browser: a search box with
// debounced suggestions, a paginated and sortable result table whose
// parameters live in a Location, a detail view, an ingredient recommender
// and the login gate in front of them.
package browse

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/dishdex/internal/dishes"
	"github.com/runger/dishdex/internal/location"
	"github.com/runger/dishdex/internal/session"
)

// Route names a browser view.
type Route int

const (
	RouteLogin Route = iota
	RouteRegister
	RouteList
	RouteDetail
	RouteRecommend
)

func (r Route) String() string {
	switch r {
	case RouteLogin:
		return "login"
	case RouteRegister:
		return "register"
	case RouteList:
		return "dishes"
	case RouteDetail:
		return "dish"
	case RouteRecommend:
		return "recommend"
	default:
		return "unknown"
	}
}

// Protected reports whether the route requires a signed-in session.
func (r Route) Protected() bool {
	return r != RouteLogin && r != RouteRegister
}

// focusArea is the component receiving keys on the list route.
type focusArea int

const (
	focusSearch focusArea = iota
	focusList
)

// Options wires the browser to its collaborators.
type Options struct {
	Auth        Auth
	Suggester   Suggester
	Lister      Lister
	Getter      Getter
	Recommender RecommendSource
	Ingredients dishes.IngredientSource

	Location location.Location
	// Changes, when set, signals that Location was changed by another
	// process.
	Changes <-chan struct{}

	Defaults     dishes.ListParams
	Debounce     time.Duration
	SuggestLimit int
	Dimension    dishes.Dimension
	MatchMode    dishes.MatchMode

	// Start is the first route requested. It is still subject to the
	// login check.
	Start Route
	// InitialQuery pre-fills the search box.
	InitialQuery string

	Logger *slog.Logger
}

// appInitMsg runs the first route entry through Update.
type appInitMsg struct{}

type logoutDoneMsg struct{ err error }

// App is the top-level Bubble Tea model.
type App struct {
	opts   Options
	logger *slog.Logger

	route Route
	focus focusArea

	search    SuggestionEngine
	list      ListQueryController
	detail    DetailView
	recommend MultiSelectRecommender
	auth      AuthForm
	spinner   spinner.Model

	status string
	width  int
	height int

	done      chan struct{}
	closeOnce *sync.Once
}

// NewApp builds the browser. The login check runs here so the first frame
// already shows the right view.
func NewApp(opts Options) App {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = location.NewHistory(location.DefaultPath, nil)
	}
	if opts.Defaults.PageSize < 1 {
		opts.Defaults = dishes.DefaultListParams(dishes.DefaultPageSize)
	}
	if opts.Start == 0 && opts.Auth != nil && opts.Auth.Current().LoggedIn {
		opts.Start = RouteList
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = queryStyle

	m := App{
		opts:   opts,
		logger: opts.Logger,
		search: NewSuggestionEngine(opts.Suggester, SuggestOptions{
			Debounce:  opts.Debounce,
			Limit:     opts.SuggestLimit,
			Dimension: opts.Dimension,
			Logger:    opts.Logger,
		}),
		list:      NewListQueryController(opts.Lister, opts.Location, opts.Defaults, opts.Logger),
		detail:    NewDetailView(opts.Getter, opts.Logger),
		recommend: NewMultiSelectRecommender(opts.Ingredients, opts.Recommender, opts.MatchMode, opts.Logger),
		auth:      NewAuthForm(opts.Auth, opts.Logger),
		spinner:   sp,
		done:      make(chan struct{}),
		closeOnce: &sync.Once{},
	}
	m.route = m.guard(opts.Start)
	m.auth.SetRegister(m.route == RouteRegister)
	return m
}

// Route returns the active view.
func (m App) Route() Route {
	return m.route
}

// Init implements tea.Model.
func (m App) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return appInitMsg{} },
		m.spinner.Tick,
		m.waitForLocationChange(),
	)
}

// guard returns the route to show for a request to r.
func (m *App) guard(r Route) Route {
	if !r.Protected() {
		return r
	}
	if m.opts.Auth == nil || !m.opts.Auth.Current().LoggedIn {
		return RouteLogin
	}
	return r
}

// navigate switches views and returns the entry command of the new view.
func (m *App) navigate(r Route) tea.Cmd {
	r = m.guard(r)
	prev := m.route
	m.route = r
	if r != prev {
		m.logger.Debug("navigate", "from", prev.String(), "to", r.String())
	}

	switch r {
	case RouteLogin, RouteRegister:
		if r != prev {
			m.auth.SetRegister(r == RouteRegister)
		}
		m.search.Blur()
		return nil
	case RouteList:
		if m.opts.InitialQuery != "" {
			q := m.opts.InitialQuery
			m.opts.InitialQuery = ""
			m.focus = focusSearch
			m.search.Focus()
			return tea.Batch(m.list.Sync(), m.search.SetQuery(q, ""))
		}
		return m.list.Sync()
	case RouteDetail:
		m.search.Blur()
	case RouteRecommend:
		m.search.Blur()
		return m.recommend.Load()
	}
	return nil
}

func (m *App) waitForLocationChange() tea.Cmd {
	ch, done := m.opts.Changes, m.done
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			return LocationChangedMsg{}
		case <-done:
			return nil
		}
	}
}

// Update implements tea.Model.
func (m App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case appInitMsg:
		return m, m.navigate(m.route)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case NavigateMsg:
		return m, m.navigate(msg.Route)

	case OpenDetailMsg:
		cmd := m.navigate(RouteDetail)
		if m.route != RouteDetail {
			return m, cmd
		}
		return m, tea.Batch(cmd, m.detail.Open(msg.ID))

	case ApplyFilterMsg:
		if m.guard(RouteList) != RouteList {
			return m, m.navigate(RouteList)
		}
		m.route = RouteList
		m.focus = focusList
		m.search.Blur()
		return m, m.list.ApplyFilter(msg.Dimension, msg.Value)

	case LocationChangedMsg:
		var cmd tea.Cmd
		if m.route == RouteList {
			cmd = m.list.Sync()
		}
		return m, tea.Batch(cmd, m.waitForLocationChange())

	case logoutDoneMsg:
		if msg.err != nil {
			m.logger.Warn("logout failed", "error", msg.err)
			m.status = session.Message(msg.err)
		}
		m.search.Close()
		m.search = NewSuggestionEngine(m.opts.Suggester, SuggestOptions{
			Debounce:  m.opts.Debounce,
			Limit:     m.opts.SuggestLimit,
			Dimension: m.opts.Dimension,
			Logger:    m.logger,
		})
		m.recommend.Clear()
		return m, m.navigate(RouteLogin)

	case suggestDebounceMsg, suggestDoneMsg:
		return m, m.search.Update(msg)

	case listDoneMsg:
		return m, m.list.Handle(msg)

	case detailDoneMsg:
		return m, m.detail.Handle(msg)

	case ingredientsDoneMsg, recommendDoneMsg:
		return m, m.recommend.Handle(msg)

	case authDoneMsg:
		return m, m.auth.Handle(msg)
	}
	return m, nil
}

func (m App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.Close()
		return m, tea.Quit
	}

	if !m.route.Protected() {
		return m, m.auth.HandleKey(msg)
	}

	switch msg.String() {
	case "ctrl+x":
		auth := m.opts.Auth
		return m, func() tea.Msg {
			return logoutDoneMsg{err: auth.Logout(context.Background())}
		}
	case "ctrl+r":
		if m.route != RouteRecommend {
			return m, m.navigate(RouteRecommend)
		}
	case "ctrl+o":
		m.focus = focusList
		m.search.Blur()
		return m, m.navigate(RouteList)
	}

	switch m.route {
	case RouteRecommend:
		if cmd, ok := m.recommend.HandleKey(msg); ok {
			return m, cmd
		}
		if msg.Type == tea.KeyEsc {
			return m, m.navigate(RouteList)
		}
		return m, nil

	case RouteDetail:
		if m.search.Focused() {
			if cmd, ok := m.search.HandleKey(msg); ok {
				return m, cmd
			}
		}
		switch msg.String() {
		case "esc", "backspace", "q":
			return m, m.navigate(RouteList)
		case "/":
			m.search.Focus()
		}
		return m, nil
	}

	if m.focus == focusSearch {
		if cmd, ok := m.search.HandleKey(msg); ok {
			return m, cmd
		}
		switch msg.Type {
		case tea.KeyEsc, tea.KeyDown:
			m.focus = focusList
			m.search.Blur()
		}
		return m, nil
	}

	if !m.list.FilterFocused() && msg.String() == "/" {
		m.focus = focusSearch
		m.search.Focus()
		return m, nil
	}
	cmd, _ := m.list.HandleKey(msg)
	return m, cmd
}

// Screen layout: row 0 is the title bar, row 1 the search line, then the
// open suggestion panel, then the active view.
const (
	titleRow  = 0
	searchRow = 1
)

func (m App) bodyTop() int {
	return searchRow + 1 + m.search.PanelHeight()
}

func (m App) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if !m.route.Protected() {
		return m, nil
	}

	panelTop := searchRow + 1
	inSearch := msg.Y == searchRow || (m.search.IsOpen() && msg.Y >= panelTop && msg.Y < panelTop+m.search.PanelHeight())
	if !inSearch {
		m.search.Dismiss()
	}

	switch {
	case msg.Y == searchRow && m.route == RouteRecommend:
		// Keys on this route go to the recommender.
		return m, nil
	case msg.Y == searchRow:
		m.focus = focusSearch
		m.search.Focus()
		return m, nil
	case inSearch:
		return m, m.search.Click(msg.Y - panelTop)
	}

	if m.route != RouteList {
		return m, nil
	}
	m.focus = focusList
	m.search.Blur()

	// List body: filter line, header, rows.
	top := m.bodyTop()
	switch y := msg.Y - top; {
	case y == 1:
		if field, ok := m.list.ColumnAt(msg.X, m.width); ok {
			return m, m.list.ToggleSort(field)
		}
	case y >= 2:
		m.list.ClickRow(y - 2)
	}
	return m, nil
}

// Close stops background waits and makes every component ignore late
// completions. It is safe to call more than once.
func (m *App) Close() {
	m.closeOnce.Do(func() { close(m.done) })
	m.search.Close()
	m.list.Close()
	m.detail.Close()
	m.recommend.Close()
}

// View implements tea.Model.
func (m App) View() string {
	width := m.width
	if width <= 0 {
		width = 100
	}

	var b strings.Builder
	b.WriteString(m.viewTitle())
	b.WriteRune('\n')

	if !m.route.Protected() {
		b.WriteRune('\n')
		b.WriteString(m.auth.View(width))
		return b.String()
	}

	b.WriteString(m.search.View(width))
	b.WriteRune('\n')

	bodyHeight := m.height - m.bodyTop() - 4
	switch m.route {
	case RouteList:
		b.WriteString(m.list.View(width, bodyHeight))
	case RouteDetail:
		b.WriteString(m.detail.View(width))
	case RouteRecommend:
		b.WriteString(m.recommend.View(width, bodyHeight))
	}

	b.WriteRune('\n')
	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status))
		b.WriteRune('\n')
	}
	b.WriteString(dimStyle.Render(m.helpLine()))
	return b.String()
}

func (m App) viewTitle() string {
	title := titleStyle.Render("dishdex") + " " + tabStyle.Render(m.route.String())
	if m.opts.Auth != nil {
		if s := m.opts.Auth.Current(); s.LoggedIn {
			title += "  " + dimStyle.Render(Clean(s.Email))
		}
	}
	if m.busy() {
		title += " " + m.spinner.View()
	}
	return title
}

func (m App) busy() bool {
	switch m.route {
	case RouteList:
		return m.list.Loading()
	case RouteDetail:
		return m.detail.loading
	case RouteRecommend:
		return m.recommend.pending || m.recommend.loading
	}
	return false
}

func (m App) helpLine() string {
	switch m.route {
	case RouteDetail:
		return "esc back · / search · ctrl+r recommend · ctrl+x sign out · ctrl+c quit"
	case RouteRecommend:
		return "space toggle · esc back · ctrl+x sign out · ctrl+c quit"
	}
	if m.focus == focusSearch {
		return "tab dimension · ↑↓ choose · enter select · esc table · ctrl+c quit"
	}
	return "←→ page · 1-8 sort · f filter · x clear · [ ] history · / search · ctrl+r recommend · ctrl+c quit"
}
