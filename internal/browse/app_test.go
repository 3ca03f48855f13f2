package browse

import (
	"context"
	"net/url"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/runger/dishdex/internal/dishes"
	"github.com/runger/dishdex/internal/location"
	"github.com/runger/dishdex/internal/logging"
	"github.com/runger/dishdex/internal/session"
)

func newTestAuth(t *testing.T, users string) *session.Service {
	t.Helper()
	repo := session.NewMemoryRepository()
	if users != "" {
		require.NoError(t, repo.Set(context.Background(), session.KeyUsers, users))
	}
	return session.NewService(context.Background(), repo, session.WithHashCost(bcrypt.MinCost), session.WithLogger(logging.Discard()))
}

func newTestApp(t *testing.T, auth Auth, src *fakeDishes, loc location.Location) App {
	t.Helper()
	m := NewApp(Options{
		Auth:        auth,
		Suggester:   src,
		Lister:      src,
		Getter:      src,
		Recommender: src,
		Ingredients: src,
		Location:    loc,
		Defaults:    dishes.DefaultListParams(10),
		Debounce:    testDebounce,
		Logger:      logging.Discard(),
	})
	m.width = 120
	m.height = 40
	return m
}

func signedIn(t *testing.T) *session.Service {
	t.Helper()
	auth := newTestAuth(t, `[{"email":"a@x.com","password":"p"}]`)
	require.NoError(t, auth.Login(context.Background(), "a@x.com", "p"))
	return auth
}

// feed sends msg to the app and keeps feeding every message its commands
// produce, depth first, until nothing is left. Ticks that never end (the
// spinner) are skipped.
func feed(t *testing.T, m App, msg tea.Msg) App {
	t.Helper()
	queue := []tea.Msg{msg}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 100, "message loop did not settle")
		next := queue[0]
		queue = queue[1:]
		result, cmd := m.Update(next)
		m = result.(App)
		for _, out := range runAll(cmd) {
			if isSpinnerTick(out) {
				continue
			}
			queue = append(queue, out)
		}
	}
	return m
}

func isSpinnerTick(msg tea.Msg) bool {
	_, ok := msg.(spinner.TickMsg)
	return ok
}

func TestAnonymousStartsOnLogin(t *testing.T) {
	m := newTestApp(t, newTestAuth(t, ""), &fakeDishes{}, nil)
	assert.Equal(t, RouteLogin, m.Route())

	m = feed(t, m, NavigateMsg{Route: RouteList})
	assert.Equal(t, RouteLogin, m.Route(), "protected route redirects")

	m = feed(t, m, OpenDetailMsg{ID: "1"})
	assert.Equal(t, RouteLogin, m.Route())
}

func TestSignedInStartsOnList(t *testing.T) {
	src := &fakeDishes{}
	m := newTestApp(t, signedIn(t), src, nil)
	require.Equal(t, RouteList, m.Route())

	m = feed(t, m, appInitMsg{})

	assert.Len(t, src.lists(), 1)
	assert.Contains(t, m.View(), "Biryani")
}

func TestLogin_SuccessRedirectsToList(t *testing.T) {
	src := &fakeDishes{}
	m := newTestApp(t, newTestAuth(t, `[{"email":"a@x.com","password":"p"}]`), src, nil)
	m.auth.SetFields("a@x.com", "p")

	m = feed(t, m, authDoneMsgFor(t, &m))

	assert.Equal(t, RouteList, m.Route())
	assert.Len(t, src.lists(), 1)
}

func TestLogin_FailureShowsInvalidCredentials(t *testing.T) {
	auth := newTestAuth(t, `[{"email":"a@x.com","password":"p"}]`)
	m := newTestApp(t, auth, &fakeDishes{}, nil)
	m.auth.SetFields("a@x.com", "nope")

	m = feed(t, m, authDoneMsgFor(t, &m))

	assert.Equal(t, RouteLogin, m.Route())
	assert.Equal(t, "Invalid credentials", m.auth.Error())
	assert.Contains(t, m.View(), "Invalid credentials")
	assert.False(t, auth.Current().LoggedIn)
}

func TestRegister_ThenSignIn(t *testing.T) {
	auth := newTestAuth(t, "")
	m := newTestApp(t, auth, &fakeDishes{}, nil)
	m = feed(t, m, NavigateMsg{Route: RouteRegister})
	require.True(t, m.auth.Registering())

	m.auth.SetFields("new@x.com", "pw")
	m = feed(t, m, authDoneMsgFor(t, &m))
	assert.False(t, m.auth.Registering())
	assert.Equal(t, RouteLogin, m.Route())

	m.auth.SetFields("new@x.com", "pw")
	m = feed(t, m, authDoneMsgFor(t, &m))
	assert.Equal(t, RouteList, m.Route())
}

func TestRegister_DuplicateShowsMessage(t *testing.T) {
	m := newTestApp(t, newTestAuth(t, `[{"email":"a@x.com","password":"p"}]`), &fakeDishes{}, nil)
	m.auth.SetRegister(true)
	m.auth.SetFields("a@x.com", "other")

	m = feed(t, m, authDoneMsgFor(t, &m))

	assert.Equal(t, "Email already registered", m.auth.Error())
}

// authDoneMsgFor submits the form and returns the completion message.
func authDoneMsgFor(t *testing.T, m *App) tea.Msg {
	t.Helper()
	msg := runCmd(m.auth.Submit())
	require.IsType(t, authDoneMsg{}, msg)
	return msg
}

func TestSelectWithoutID_SetsParamAndRefetchesOnce(t *testing.T) {
	src := &fakeDishes{}
	loc := location.NewHistory(location.DefaultPath, nil)
	m := newTestApp(t, signedIn(t), src, loc)
	m = feed(t, m, appInitMsg{})
	require.Len(t, src.lists(), 1)

	m = feed(t, m, ApplyFilterMsg{Dimension: dishes.DimensionOrigin, Value: "West"})

	calls := src.lists()
	require.Len(t, calls, 2)
	assert.Equal(t, "West", calls[1].Origin)
	assert.Equal(t, "/dishes?origin=West", loc.String())
	assert.Equal(t, RouteList, m.Route())
}

func TestSelectWithID_OpensDetail(t *testing.T) {
	src := &fakeDishes{records: map[string]dishes.Record{"42": {ID: "42", Name: "Pani puri", Course: "snack"}}}
	m := newTestApp(t, signedIn(t), src, nil)
	m = feed(t, m, appInitMsg{})

	m = feed(t, m, OpenDetailMsg{ID: "42"})

	assert.Equal(t, RouteDetail, m.Route())
	assert.Equal(t, []string{"42"}, src.getCalls)
	view := m.View()
	assert.Contains(t, view, "Pani puri")
	assert.Contains(t, view, "snack")

	m = feed(t, m, key(tea.KeyEsc))
	assert.Equal(t, RouteList, m.Route())
	assert.Len(t, src.lists(), 1, "returning to an unchanged list does not refetch")
}

func TestDetail_NotFound(t *testing.T) {
	m := newTestApp(t, signedIn(t), &fakeDishes{}, nil)
	m = feed(t, m, OpenDetailMsg{ID: "missing"})
	assert.Contains(t, m.View(), "No dish with id missing")
}

func TestTypingThenSelectingSuggestionFilters(t *testing.T) {
	src := &fakeDishes{suggestions: func(text string, by dishes.Dimension) []dishes.Suggestion {
		return []dishes.Suggestion{{Label: "Kerala"}}
	}}
	loc := location.NewHistory(location.DefaultPath, nil)
	m := newTestApp(t, signedIn(t), src, loc)
	m = feed(t, m, appInitMsg{})

	m = feed(t, m, key(tea.KeyTab))
	m = feed(t, m, key(tea.KeyTab))
	m = feed(t, m, key(tea.KeyTab)) // state
	m = feed(t, m, keyRunes("k"))
	require.True(t, m.search.IsOpen())
	assert.Equal(t, dishes.DimensionState, src.suggests()[0].by)

	m = feed(t, m, key(tea.KeyEnter))

	assert.False(t, m.search.IsOpen())
	assert.Equal(t, "/dishes?state=Kerala", loc.String())
	assert.Len(t, src.lists(), 2)
}

func TestMousePressOutsideSearchDismisses(t *testing.T) {
	src := &fakeDishes{}
	m := newTestApp(t, signedIn(t), src, nil)
	m = feed(t, m, appInitMsg{})
	m = feed(t, m, keyRunes("d"))
	require.True(t, m.search.IsOpen())

	m = feed(t, m, tea.MouseMsg{X: 5, Y: 20, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	assert.False(t, m.search.IsOpen())
	assert.Equal(t, "d", m.search.Query().Text)
	assert.NotEmpty(t, m.search.Suggestions())
}

func TestMouseClickOnSuggestionRow(t *testing.T) {
	src := &fakeDishes{suggestions: func(string, dishes.Dimension) []dishes.Suggestion {
		return []dishes.Suggestion{{ID: "1", Label: "Dal"}, {ID: "2", Label: "Dosa"}}
	}}
	m := newTestApp(t, signedIn(t), src, nil)
	m = feed(t, m, appInitMsg{})
	m = feed(t, m, keyRunes("d"))

	m = feed(t, m, tea.MouseMsg{X: 4, Y: searchRow + 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	assert.Equal(t, RouteDetail, m.Route())
	assert.Equal(t, "2", m.detail.ID())
}

func TestMouseClickOnHeaderTogglesSort(t *testing.T) {
	src := &fakeDishes{}
	loc := location.NewHistory(location.DefaultPath, nil)
	m := newTestApp(t, signedIn(t), src, loc)
	m = feed(t, m, appInitMsg{})

	header := tea.MouseMsg{X: 3, Y: m.bodyTop() + 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	m = feed(t, m, header)
	assert.Equal(t, "/dishes?sortBy=name", loc.String())
	m = feed(t, m, header)
	assert.Equal(t, "/dishes?sortBy=name&sortOrder=desc", loc.String())
	m = feed(t, m, header)
	assert.Equal(t, "/dishes?sortBy=name", loc.String())
}

func TestLocationChangedMsg_Refetches(t *testing.T) {
	src := &fakeDishes{}
	loc := location.NewHistory(location.DefaultPath, nil)
	m := newTestApp(t, signedIn(t), src, loc)
	m = feed(t, m, appInitMsg{})

	loc.Replace(url.Values{"q": {"paneer"}})
	m = feed(t, m, LocationChangedMsg{})

	calls := src.lists()
	require.Len(t, calls, 2)
	assert.Equal(t, "paneer", calls[1].FreeText)
}

func TestApplyFilterOffList_KeepsExternalLocationChange(t *testing.T) {
	src := &fakeDishes{records: map[string]dishes.Record{"42": {ID: "42", Name: "Pani puri"}}}
	loc := location.NewHistory(location.DefaultPath, nil)
	m := newTestApp(t, signedIn(t), src, loc)
	m = feed(t, m, appInitMsg{})
	m = feed(t, m, OpenDetailMsg{ID: "42"})
	require.Equal(t, RouteDetail, m.Route())

	loc.Replace(url.Values{"state": {"Kerala"}})
	m = feed(t, m, LocationChangedMsg{})
	m = feed(t, m, ApplyFilterMsg{Dimension: dishes.DimensionIngredient, Value: "rice"})

	assert.Equal(t, RouteList, m.Route())
	assert.Equal(t, "/dishes?ingredient=rice&state=Kerala", loc.String())
	calls := src.lists()
	require.Len(t, calls, 2)
	assert.Equal(t, "Kerala", calls[1].State)
	assert.Equal(t, "rice", calls[1].Ingredient)
}

func TestWaitForLocationChange(t *testing.T) {
	changes := make(chan struct{}, 1)
	m := NewApp(Options{Auth: signedIn(t), Lister: &fakeDishes{}, Changes: changes, Logger: logging.Discard()})

	changes <- struct{}{}
	assert.Equal(t, LocationChangedMsg{}, runCmd(m.waitForLocationChange()))

	m.Close()
	assert.Nil(t, runCmd(m.waitForLocationChange()))
	m.Close()
}

func TestLogout_ReturnsToLogin(t *testing.T) {
	auth := signedIn(t)
	m := newTestApp(t, auth, &fakeDishes{}, nil)
	m = feed(t, m, appInitMsg{})

	m = feed(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})

	assert.Equal(t, RouteLogin, m.Route())
	assert.False(t, auth.Current().LoggedIn)
}

func TestRecommendRoute_LoadsIngredients(t *testing.T) {
	src := &fakeDishes{ingredients: []string{"rice"}}
	m := newTestApp(t, signedIn(t), src, nil)
	m = feed(t, m, appInitMsg{})

	m = feed(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, RouteRecommend, m.Route())
	assert.Equal(t, 1, src.ingredientCalls)
	assert.Contains(t, m.View(), "rice")

	m = feed(t, m, key(tea.KeyEsc))
	assert.Equal(t, RouteList, m.Route())
}

func TestRecommendRoute_SearchRowClickKeepsKeysOnRecommender(t *testing.T) {
	src := &fakeDishes{ingredients: []string{"ghee", "rice"}}
	m := newTestApp(t, signedIn(t), src, nil)
	m = feed(t, m, appInitMsg{})
	m = feed(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.Equal(t, RouteRecommend, m.Route())

	m = feed(t, m, tea.MouseMsg{X: 4, Y: searchRow, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.False(t, m.search.Focused())

	m = feed(t, m, key(tea.KeySpace))
	assert.Equal(t, []string{"ghee"}, m.recommend.Selected())
}

func TestCtrlC_QuitsAndIgnoresLaterCompletions(t *testing.T) {
	src := &fakeDishes{}
	m := newTestApp(t, signedIn(t), src, nil)
	result, cmd := m.Update(appInitMsg{})
	m = result.(App)
	pending := runAll(cmd)
	require.NotEmpty(t, pending)

	result, quit := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = result.(App)
	assert.Equal(t, tea.Quit(), runCmd(quit))

	for _, msg := range pending {
		result, _ = m.Update(msg)
		m = result.(App)
	}
	assert.True(t, m.list.Loading())
	assert.Empty(t, m.list.Page().Items)
}
