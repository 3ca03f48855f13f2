package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/runger/dishdex/internal/browse"
	"github.com/runger/dishdex/internal/dishes"
	"github.com/runger/dishdex/internal/location"
	"github.com/runger/dishdex/internal/logging"
)

var (
	browseQuery     string
	browseBy        string
	browseURL       string
	browseRecommend bool
)

var browseCmd = &cobra.Command{
	Use:     "browse",
	Short:   "Open the interactive dish browser",
	GroupID: groupCore,
	Long: `Open the interactive dish browser.

The list view's page, filters and sort order form an address such as
/dishes?page=2&origin=Punjab&sortBy=name. The address is kept in the
location file, so the browser reopens where you left it and
'dishdex open <address>' moves a running browser.

Keys:
  /            focus the search box (tab cycles name, ingredient, origin, state)
  enter        open the highlighted suggestion or dish
  1-8          sort by column (again to reverse)
  [ ]          back and forward through visited addresses
  ctrl+r       ingredient recommender
  ctrl+x       sign out
  ctrl+c       quit

Examples:
  dishdex browse
  dishdex browse --query paneer
  dishdex browse --by ingredient --query rice
  dishdex browse --url '/dishes?state=Kerala&sortBy=prep_time'`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVarP(&browseQuery, "query", "q", "", "initial search text")
	browseCmd.Flags().StringVar(&browseBy, "by", "", "search dimension: name, ingredient, origin or state")
	browseCmd.Flags().StringVar(&browseURL, "url", "", "start at this list address")
	browseCmd.Flags().BoolVar(&browseRecommend, "recommend", false, "start in the ingredient recommender")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	e, err := openEnv(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()

	dim := e.dimension()
	if browseBy != "" {
		if dim, err = dishes.ParseDimension(browseBy); err != nil {
			return err
		}
	}

	var startValues url.Values
	if browseURL != "" {
		if startValues, err = parseListAddress(browseURL); err != nil {
			return fmt.Errorf("--url: %w", err)
		}
	}

	tty, err := openTTY()
	if err != nil {
		return err
	}
	defer tty.Close()

	lockFd, err := acquireLock(e.paths.LockFile())
	if err != nil {
		return err
	}
	defer releaseLock(lockFd)

	defaults := e.defaults()
	loc, err := location.OpenFile(e.paths.LocationFile(), nil, e.logger)
	if err != nil {
		return err
	}
	defer loc.Close()
	if startValues != nil {
		loc.Replace(startValues)
	}
	if err := loc.Watch(); err != nil {
		e.logger.Warn("location file will not follow external changes", "error", err)
	}

	schema, _ := e.store.SchemaVersion(ctx)
	logging.LogStartup(e.logger, logging.StartupInfo{
		Version:       Version,
		ConfigPath:    e.paths.ConfigFile(),
		DatabasePath:  e.paths.DatabaseFile(),
		SchemaVersion: schema,
		LocationPath:  e.paths.LocationFile(),
		BaseURL:       e.cfg.Service.BaseURL,
		PID:           os.Getpid(),
	})

	startRoute := browse.RouteList
	if browseRecommend {
		startRoute = browse.RouteRecommend
	}
	app := browse.NewApp(browse.Options{
		Auth:         e.account,
		Suggester:    e.suggester,
		Lister:       e.client,
		Getter:       e.client,
		Recommender:  e.client,
		Ingredients:  e.ingredients,
		Location:     loc,
		Changes:      loc.Changes(),
		Defaults:     defaults,
		Debounce:     e.cfg.Debounce(),
		SuggestLimit: e.cfg.Browse.SuggestLimit,
		Dimension:    dim,
		MatchMode:    dishes.MatchAll,
		Start:        startRoute,
		InitialQuery: browse.Clean(browseQuery),
		Logger:       e.logger,
	})

	// Colors follow the terminal the browser draws on, not stdout.
	lipgloss.SetColorProfile(termenv.NewOutput(tty).ColorProfile())

	p := tea.NewProgram(app,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithInput(tty),
		tea.WithOutput(tty),
	)

	finalModel, err := p.Run()
	if final, ok := finalModel.(browse.App); ok {
		final.Close()
	}
	if err != nil {
		logging.LogShutdown(e.logger, "error")
		return fmt.Errorf("browser error: %w", err)
	}
	logging.LogShutdown(e.logger, "quit")
	return nil
}

// parseListAddress accepts a list address with or without the path.
func parseListAddress(raw string) (url.Values, error) {
	path, v, err := location.Parse(raw)
	if err != nil {
		return nil, err
	}
	if path != location.DefaultPath {
		return nil, fmt.Errorf("unknown path %q (want %s)", path, location.DefaultPath)
	}
	if v == nil {
		v = url.Values{}
	}
	return v, nil
}
