package browse

import (
	"context"

	"github.com/runger/dishdex/internal/dishes"
	"github.com/runger/dishdex/internal/session"
)

// Suggester returns autosuggest entries for a query.
type Suggester interface {
	Autosuggest(ctx context.Context, text string, by dishes.Dimension, limit int) ([]dishes.Suggestion, error)
}

// Lister returns one page of dishes.
type Lister interface {
	List(ctx context.Context, p dishes.ListParams) (dishes.ResultPage, error)
}

// Getter loads a single dish.
type Getter interface {
	Get(ctx context.Context, id string) (dishes.Record, error)
}

// RecommendSource matches dishes against an ingredient selection.
type RecommendSource interface {
	FromIngredients(ctx context.Context, ingredients []string, mode dishes.MatchMode) ([]dishes.Record, error)
}

// Auth is the account surface the login gate needs.
type Auth interface {
	Current() session.Session
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
}

var _ Auth = (*session.Service)(nil)

var (
	_ Suggester       = (*dishes.Client)(nil)
	_ Suggester       = (*dishes.MemoSuggester)(nil)
	_ Lister          = (*dishes.Client)(nil)
	_ Getter          = (*dishes.Client)(nil)
	_ RecommendSource = (*dishes.Client)(nil)
)
