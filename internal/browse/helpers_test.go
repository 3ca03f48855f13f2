package browse

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/dishdex/internal/dishes"
	"github.com/runger/dishdex/internal/logging"
)

const testDebounce = time.Millisecond

// --- Fake dish service ---

type autosuggestCall struct {
	text string
	by   dishes.Dimension
}

type recommendCall struct {
	ingredients []string
	mode        dishes.MatchMode
}

type fakeDishes struct {
	mu sync.Mutex

	suggestions func(text string, by dishes.Dimension) []dishes.Suggestion
	suggestErr  error
	pages       func(p dishes.ListParams) dishes.ResultPage
	listErr     error
	records     map[string]dishes.Record
	ingredients []string
	ingErr      error
	recommended []dishes.Record
	recErr      error

	autosuggestCalls []autosuggestCall
	listCalls        []dishes.ListParams
	getCalls         []string
	ingredientCalls  int
	recommendCalls   []recommendCall
}

func (f *fakeDishes) Autosuggest(_ context.Context, text string, by dishes.Dimension, _ int) ([]dishes.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autosuggestCalls = append(f.autosuggestCalls, autosuggestCall{text: text, by: by})
	if f.suggestErr != nil {
		return nil, f.suggestErr
	}
	if f.suggestions != nil {
		return f.suggestions(text, by), nil
	}
	return []dishes.Suggestion{{Label: text}}, nil
}

func (f *fakeDishes) List(_ context.Context, p dishes.ListParams) (dishes.ResultPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, p)
	if f.listErr != nil {
		return dishes.ResultPage{}, f.listErr
	}
	if f.pages != nil {
		return f.pages(p), nil
	}
	return dishes.ResultPage{Items: []dishes.Record{{ID: "1", Name: "Biryani", PrepTime: dishes.Unknown}}, Total: 1}, nil
}

func (f *fakeDishes) Get(_ context.Context, id string) (dishes.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls = append(f.getCalls, id)
	rec, ok := f.records[id]
	if !ok {
		return dishes.Record{}, dishes.ErrNotFound
	}
	return rec, nil
}

func (f *fakeDishes) Ingredients(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingredientCalls++
	return f.ingredients, f.ingErr
}

func (f *fakeDishes) FromIngredients(_ context.Context, ingredients []string, mode dishes.MatchMode) ([]dishes.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recommendCalls = append(f.recommendCalls, recommendCall{ingredients: ingredients, mode: mode})
	return f.recommended, f.recErr
}

func (f *fakeDishes) lists() []dishes.ListParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dishes.ListParams(nil), f.listCalls...)
}

func (f *fakeDishes) suggests() []autosuggestCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]autosuggestCall(nil), f.autosuggestCalls...)
}

// pagedDishes returns a page builder over n generated dishes.
func pagedDishes(n int) func(p dishes.ListParams) dishes.ResultPage {
	return func(p dishes.ListParams) dishes.ResultPage {
		var items []dishes.Record
		for i := (p.Page - 1) * p.PageSize; i < n && i < p.Page*p.PageSize; i++ {
			items = append(items, dishes.Record{ID: string(rune('a' + i%26)), Name: strings.Repeat("x", i+1)})
		}
		return dishes.ResultPage{Items: items, Total: n}
	}
}

// --- Cmd helpers ---

// runCmd executes a tea.Cmd synchronously and returns the resulting message.
func runCmd(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

// runAll executes cmd and, for batches, every sub-command, returning the
// non-nil messages in order.
func runAll(cmd tea.Cmd) []tea.Msg {
	msg := runCmd(cmd)
	if msg == nil {
		return nil
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, sub := range batch {
			out = append(out, runAll(sub)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func key(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func newTestEngine(source Suggester) SuggestionEngine {
	return NewSuggestionEngine(source, SuggestOptions{Debounce: testDebounce, Logger: logging.Discard()})
}

// settle runs a debounce cmd through the engine and returns the fetch cmd it
// produces, if any. Batched cmds are drained in order.
func settle(t *testing.T, e *SuggestionEngine, debounce tea.Cmd) tea.Cmd {
	t.Helper()
	var fetch tea.Cmd
	for _, msg := range runAll(debounce) {
		if cmd := e.Update(msg); cmd != nil {
			fetch = cmd
		}
	}
	return fetch
}
