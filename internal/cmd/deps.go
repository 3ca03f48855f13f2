package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/runger/dishdex/internal/browse"
	"github.com/runger/dishdex/internal/config"
	"github.com/runger/dishdex/internal/dishes"
	"github.com/runger/dishdex/internal/logging"
	"github.com/runger/dishdex/internal/session"
	"github.com/runger/dishdex/internal/storage"
)

// cacheSource tags rows this client writes to the response cache.
const cacheSource = "dish-service"

// env is everything a command needs to talk to the service and the local
// store. Close releases it.
type env struct {
	cfg    *config.Config
	paths  *config.Paths
	logger *slog.Logger

	store   *storage.SQLiteStore
	client  *dishes.Client
	account *session.Service

	suggester   browse.Suggester
	ingredients dishes.IngredientSource

	logFile io.Closer
}

// openEnv loads configuration and opens the store. Browser sessions log to
// the log file; other commands log warnings to stderr.
func openEnv(ctx context.Context, toFile bool) (*env, error) {
	paths := config.DefaultPaths()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if apiURL != "" {
		if err := cfg.Set("service.base_url", apiURL); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --api: %w", err)
		}
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	e := &env{cfg: cfg, paths: paths}
	e.logger = logging.New(&logging.Config{Output: os.Stderr, Level: slog.LevelWarn})
	if toFile {
		logPath := cfg.Log.File
		if logPath == "" {
			logPath = paths.LogFile()
		}
		f, err := logging.OpenFile(logPath)
		if err != nil {
			return nil, err
		}
		e.logFile = f
		e.logger = logging.New(&logging.Config{Output: f, Level: logging.ParseLevel(cfg.Log.Level)})
	}

	store, err := storage.NewSQLiteStore(paths.DatabaseFile())
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	e.store = store

	client, err := dishes.NewClient(cfg.Service.BaseURL,
		dishes.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		dishes.WithLogger(e.logger),
	)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.client = client

	e.account = session.NewService(ctx, session.NewStoreRepository(store), session.WithLogger(e.logger))

	e.suggester = client
	if n := cfg.Cache.SuggestLRUSize; n > 0 {
		memo, err := dishes.NewMemoSuggester(client, n)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.suggester = memo
	}

	e.ingredients = client
	if ttl := cfg.IngredientsTTL(); ttl > 0 {
		e.ingredients = dishes.NewCachedIngredients(client, storage.NewResponseCache(store, cacheSource), ttl, e.logger)
	}
	return e, nil
}

// Close releases the store and log file.
func (e *env) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Warn("failed to close database", "error", err)
		}
	}
	if e.logFile != nil {
		_ = e.logFile.Close()
	}
}

// defaults returns the list parameters used when the address omits them.
func (e *env) defaults() dishes.ListParams {
	p := dishes.DefaultListParams(e.cfg.Browse.PageSize)
	if f, err := dishes.ParseSortField(e.cfg.Browse.DefaultSort); err == nil {
		p.SortField = f
	}
	return p
}

// dimension returns the configured search dimension.
func (e *env) dimension() dishes.Dimension {
	d, err := dishes.ParseDimension(e.cfg.Browse.DefaultDimension)
	if err != nil {
		return dishes.DimensionName
	}
	return d
}

// errNotSignedIn is returned by catalog commands without a session.
var errNotSignedIn = errors.New("not signed in (run 'dishdex login' first)")

// requireLogin fails unless a session is stored.
func (e *env) requireLogin() error {
	if !e.account.Current().LoggedIn {
		return errNotSignedIn
	}
	return nil
}
