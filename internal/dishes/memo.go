package dishes

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Suggester is the autosuggest half of the dish service.
type Suggester interface {
	Autosuggest(ctx context.Context, text string, by Dimension, limit int) ([]Suggestion, error)
}

type memoKey struct {
	text  string
	by    Dimension
	limit int
}

// MemoSuggester remembers successful autosuggest answers so a query typed
// again does not go back to the network. Errors are never cached.
type MemoSuggester struct {
	next  Suggester
	cache *lru.Cache[memoKey, []Suggestion]
}

// Compile-time check that MemoSuggester implements Suggester.
var _ Suggester = (*MemoSuggester)(nil)

// NewMemoSuggester wraps next with an LRU of the given size.
func NewMemoSuggester(next Suggester, size int) (*MemoSuggester, error) {
	cache, err := lru.New[memoKey, []Suggestion](size)
	if err != nil {
		return nil, fmt.Errorf("suggest memo: %w", err)
	}
	return &MemoSuggester{next: next, cache: cache}, nil
}

// Autosuggest implements Suggester.
func (m *MemoSuggester) Autosuggest(ctx context.Context, text string, by Dimension, limit int) ([]Suggestion, error) {
	key := memoKey{text: strings.ToLower(strings.TrimSpace(text)), by: by, limit: limit}
	if items, ok := m.cache.Get(key); ok {
		return items, nil
	}
	items, err := m.next.Autosuggest(ctx, text, by, limit)
	if err != nil {
		return nil, err
	}
	m.cache.Add(key, items)
	return items, nil
}

// Len returns the number of memoised queries.
func (m *MemoSuggester) Len() int {
	return m.cache.Len()
}
