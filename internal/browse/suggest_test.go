package browse

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/dishdex/internal/dishes"
)

// openWith drives the engine through one full debounce and fetch for text.
func openWith(t *testing.T, e *SuggestionEngine, text string) {
	t.Helper()
	fetch := settle(t, e, e.SetQuery(text, ""))
	require.NotNil(t, fetch)
	e.Update(runCmd(fetch))
}

func TestSetQuery_EmptyClearsWithoutFetch(t *testing.T) {
	src := &fakeDishes{}
	e := newTestEngine(src)
	openWith(t, &e, "pan")
	require.True(t, e.IsOpen())
	require.Len(t, src.suggests(), 1)

	cmd := e.SetQuery("", "")

	assert.Nil(t, cmd)
	assert.False(t, e.IsOpen())
	assert.Empty(t, e.Suggestions())
	assert.Len(t, src.suggests(), 1, "no fetch for empty text")
}

func TestSetQuery_EmptyInvalidatesPendingDebounce(t *testing.T) {
	src := &fakeDishes{}
	e := newTestEngine(src)

	pending := e.SetQuery("pa", "")
	e.SetQuery("  ", "")

	assert.Nil(t, settle(t, &e, pending))
	assert.Empty(t, src.suggests())
}

func TestSetQuery_RapidUpdatesIssueOneFetch(t *testing.T) {
	src := &fakeDishes{}
	e := newTestEngine(src)

	var ticks []tea.Cmd
	for _, text := range []string{"p", "pa", "pan", "pane"} {
		ticks = append(ticks, e.SetQuery(text, ""))
	}

	var fetches []tea.Cmd
	for _, tick := range ticks {
		if f := settle(t, &e, tick); f != nil {
			fetches = append(fetches, f)
		}
	}
	require.Len(t, fetches, 1)
	e.Update(runCmd(fetches[0]))

	calls := src.suggests()
	require.Len(t, calls, 1)
	assert.Equal(t, "pane", calls[0].text)
	assert.Equal(t, dishes.DimensionName, calls[0].by)
	assert.Equal(t, []dishes.Suggestion{{Label: "pane"}}, e.Suggestions())
}

func TestStaleCompletionIsDropped(t *testing.T) {
	src := &fakeDishes{}
	e := newTestEngine(src)

	r1 := settle(t, &e, e.SetQuery("a", ""))
	require.NotNil(t, r1)
	r2 := settle(t, &e, e.SetQuery("ab", ""))
	require.NotNil(t, r2)

	e.Update(runCmd(r2))
	e.Update(runCmd(r1))

	assert.Equal(t, []dishes.Suggestion{{Label: "ab"}}, e.Suggestions())
	assert.True(t, e.IsOpen())
}

func TestCompletionForChangedQueryIsDropped(t *testing.T) {
	src := &fakeDishes{}
	e := newTestEngine(src)

	fetch := settle(t, &e, e.SetQuery("a", ""))
	require.NotNil(t, fetch)
	e.SetQuery("ab", "") // not yet settled

	e.Update(runCmd(fetch))

	assert.Empty(t, e.Suggestions())
	assert.False(t, e.IsOpen())
}

func TestPanelOpensOnlyForResults(t *testing.T) {
	src := &fakeDishes{suggestions: func(string, dishes.Dimension) []dishes.Suggestion { return nil }}
	e := newTestEngine(src)

	openWith(t, &e, "zzz")

	assert.False(t, e.IsOpen())
	assert.Zero(t, e.PanelHeight())
}

func TestFetchErrorClosesPanel(t *testing.T) {
	src := &fakeDishes{}
	e := newTestEngine(src)
	openWith(t, &e, "pan")
	require.True(t, e.IsOpen())

	src.suggestErr = errors.New("boom")
	openWith(t, &e, "pann")

	assert.False(t, e.IsOpen())
	assert.Empty(t, e.Suggestions())
	assert.Equal(t, "pann", e.Query().Text)
}

func TestSelect_WithIDOpensDetail(t *testing.T) {
	src := &fakeDishes{suggestions: func(string, dishes.Dimension) []dishes.Suggestion {
		return []dishes.Suggestion{{ID: "42", Label: "Pani puri"}}
	}}
	e := newTestEngine(src)
	openWith(t, &e, "pani")

	msg := runCmd(e.Select(e.Suggestions()[0]))

	assert.Equal(t, OpenDetailMsg{ID: "42"}, msg)
	assert.False(t, e.IsOpen())
	assert.Empty(t, e.Suggestions())
	assert.Equal(t, "", e.Query().Text)
}

func TestSelect_WithoutIDAppliesFilter(t *testing.T) {
	src := &fakeDishes{}
	e := newTestEngine(src)
	fetch := settle(t, &e, e.SetQuery("punj", dishes.DimensionState))
	e.Update(runCmd(fetch))
	require.True(t, e.IsOpen())

	msg := runCmd(e.Select(dishes.Suggestion{Label: " Punjab "}))

	assert.Equal(t, ApplyFilterMsg{Dimension: dishes.DimensionState, Value: "Punjab"}, msg)
	assert.False(t, e.IsOpen())
	assert.Equal(t, "", e.Query().Text)
}

func TestSelect_InvalidatesInflightFetch(t *testing.T) {
	src := &fakeDishes{}
	e := newTestEngine(src)
	first := settle(t, &e, e.SetQuery("a", ""))
	e.Update(runCmd(first))
	second := settle(t, &e, e.SetQuery("ab", ""))
	require.NotNil(t, second)

	e.Select(e.Suggestions()[0])
	e.SetQuery("ab", "")
	e.Update(runCmd(second))

	assert.False(t, e.IsOpen(), "completion issued before select must not reopen the panel")
}

func TestDismiss_KeepsQueryAndSuggestions(t *testing.T) {
	src := &fakeDishes{}
	e := newTestEngine(src)
	openWith(t, &e, "dal")

	e.Dismiss()

	assert.False(t, e.IsOpen())
	assert.Equal(t, "dal", e.Query().Text)
	assert.Equal(t, []dishes.Suggestion{{Label: "dal"}}, e.Suggestions())
}

func TestClose_IgnoresLaterCompletions(t *testing.T) {
	src := &fakeDishes{}
	e := newTestEngine(src)
	fetch := settle(t, &e, e.SetQuery("dal", ""))
	require.NotNil(t, fetch)
	pendingTick := e.SetQuery("dal", "")

	e.Close()
	e.Update(runCmd(fetch))

	assert.False(t, e.IsOpen())
	assert.Empty(t, e.Suggestions())
	assert.Nil(t, settle(t, &e, pendingTick))
}

func TestHandleKey_TypingDebounces(t *testing.T) {
	src := &fakeDishes{}
	e := newTestEngine(src)

	cmd, ok := e.HandleKey(keyRunes("k"))
	require.True(t, ok)
	require.NotNil(t, cmd)
	assert.Equal(t, "k", e.Query().Text)

	fetch := settle(t, &e, cmd)
	require.NotNil(t, fetch)
	e.Update(runCmd(fetch))
	assert.True(t, e.IsOpen())
}

func TestHandleKey_TabCyclesDimension(t *testing.T) {
	e := newTestEngine(&fakeDishes{})
	want := []dishes.Dimension{dishes.DimensionIngredient, dishes.DimensionOrigin, dishes.DimensionState, dishes.DimensionName}
	for _, dim := range want {
		_, ok := e.HandleKey(key(tea.KeyTab))
		require.True(t, ok)
		assert.Equal(t, dim, e.Query().Dimension)
	}

	e.HandleKey(key(tea.KeyShiftTab))
	assert.Equal(t, dishes.DimensionState, e.Query().Dimension)
}

func TestHandleKey_ArrowsAndEnter(t *testing.T) {
	src := &fakeDishes{suggestions: func(string, dishes.Dimension) []dishes.Suggestion {
		return []dishes.Suggestion{{ID: "1", Label: "Dal makhani"}, {ID: "2", Label: "Dal tadka"}}
	}}
	e := newTestEngine(src)
	openWith(t, &e, "dal")

	e.HandleKey(key(tea.KeyDown))
	e.HandleKey(key(tea.KeyDown))
	assert.Equal(t, 1, e.Cursor())

	cmd, ok := e.HandleKey(key(tea.KeyEnter))
	require.True(t, ok)
	assert.Equal(t, OpenDetailMsg{ID: "2"}, runCmd(cmd))
}

func TestHandleKey_EnterWithClosedPanelFiltersByText(t *testing.T) {
	e := newTestEngine(&fakeDishes{})
	e.SetQuery("Kerala", dishes.DimensionState)

	cmd, ok := e.HandleKey(key(tea.KeyEnter))
	require.True(t, ok)
	assert.Equal(t, ApplyFilterMsg{Dimension: dishes.DimensionState, Value: "Kerala"}, runCmd(cmd))
}

func TestHandleKey_EscDismissesThenPassesThrough(t *testing.T) {
	e := newTestEngine(&fakeDishes{})
	openWith(t, &e, "dal")

	_, ok := e.HandleKey(key(tea.KeyEsc))
	assert.True(t, ok)
	assert.False(t, e.IsOpen())

	_, ok = e.HandleKey(key(tea.KeyEsc))
	assert.False(t, ok)
}

func TestClick_SelectsRow(t *testing.T) {
	src := &fakeDishes{suggestions: func(string, dishes.Dimension) []dishes.Suggestion {
		return []dishes.Suggestion{{Label: "Goa"}, {Label: "Gujarat"}}
	}}
	e := newTestEngine(src)
	fetch := settle(t, &e, e.SetQuery("g", dishes.DimensionState))
	e.Update(runCmd(fetch))

	assert.Nil(t, e.Click(5))
	assert.Equal(t, ApplyFilterMsg{Dimension: dishes.DimensionState, Value: "Gujarat"}, runCmd(e.Click(1)))
}

func TestSuggestView_RendersPanel(t *testing.T) {
	src := &fakeDishes{suggestions: func(string, dishes.Dimension) []dishes.Suggestion {
		return []dishes.Suggestion{{ID: "9", Label: "Rasgulla\x1b[31m"}}
	}}
	e := newTestEngine(src)
	openWith(t, &e, "ras")

	view := e.View(80)
	assert.Contains(t, view, "Rasgulla")
	assert.NotContains(t, view, "\x1b[31m")
	assert.Contains(t, view, "open")
}
