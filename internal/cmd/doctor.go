package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/dishdex/internal/config"
	"github.com/runger/dishdex/internal/dishes"
	"github.com/runger/dishdex/internal/location"
	"github.com/runger/dishdex/internal/session"
	"github.com/runger/dishdex/internal/storage"
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Short:   "Check dishdex setup and the dish service",
	GroupID: groupSetup,
	Long: `Run diagnostic checks on your dishdex setup.

This command checks:
- Data directory
- Configuration validity
- Local database
- Saved browser address
- Sign-in state
- Dish service reachability

Examples:
  dishdex doctor`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// doctorProbeTimeout bounds the service reachability check.
const doctorProbeTimeout = 5 * time.Second

type checkResult struct {
	name    string
	status  string // "ok", "warn", "error"
	message string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Printf("%sdishdex Doctor%s\n", colorBold, colorReset)
	fmt.Println(strings.Repeat("-", 40))
	fmt.Println()

	paths := config.DefaultPaths()
	results := make([]checkResult, 0, 8)

	results = append(results, checkDirectories(paths))

	cfgResult, cfg := checkConfiguration(paths)
	results = append(results, cfgResult)

	results = append(results, checkLocationFile(paths))

	dbResult, store := checkDatabase(paths)
	results = append(results, dbResult)
	if store != nil {
		results = append(results, checkSession(store))
		_ = store.Close()
	}

	if cfg != nil {
		results = append(results, checkService(cfg))
	}

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		var statusIcon string
		switch r.status {
		case "ok":
			statusIcon = colorGreen + "[OK]" + colorReset
		case "warn":
			statusIcon = colorYellow + "[WARN]" + colorReset
			hasWarnings = true
		case "error":
			statusIcon = colorRed + "[ERROR]" + colorReset
			hasErrors = true
		}

		fmt.Printf("  %s %s\n", statusIcon, r.name)
		if r.message != "" {
			fmt.Printf("       %s%s%s\n", colorDim, r.message, colorReset)
		}
	}

	fmt.Println()

	if hasErrors {
		fmt.Printf("%sSome checks failed. Please fix the errors above.%s\n", colorRed, colorReset)
		return fmt.Errorf("doctor found errors")
	}

	if hasWarnings {
		fmt.Printf("%sAll critical checks passed, but there are warnings.%s\n", colorYellow, colorReset)
	} else {
		fmt.Printf("%sAll checks passed!%s\n", colorGreen, colorReset)
	}

	return nil
}

// checkNameDataDir is the label used for the data-directory health check.
const checkNameDataDir = "Data directory"

func checkDirectories(paths *config.Paths) checkResult {
	info, err := os.Stat(paths.DataDir)
	switch {
	case os.IsNotExist(err):
		return checkResult{
			name:    checkNameDataDir,
			status:  "warn",
			message: fmt.Sprintf("Missing: %s (will be created when needed)", paths.DataDir),
		}
	case err != nil:
		return checkResult{
			name:    checkNameDataDir,
			status:  "error",
			message: fmt.Sprintf("Error accessing: %s", paths.DataDir),
		}
	case !info.IsDir():
		return checkResult{
			name:    checkNameDataDir,
			status:  "error",
			message: fmt.Sprintf("Not a directory: %s", paths.DataDir),
		}
	}
	return checkResult{name: checkNameDataDir, status: "ok", message: paths.DataDir}
}

func checkConfiguration(paths *config.Paths) (checkResult, *config.Config) {
	configFile := paths.ConfigFile()

	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return checkResult{
			name:    "Configuration",
			status:  "error",
			message: fmt.Sprintf("Failed to load: %v", err),
		}, nil
	}

	if err := cfg.Validate(); err != nil {
		return checkResult{
			name:    "Configuration",
			status:  "error",
			message: fmt.Sprintf("Invalid: %v", err),
		}, nil
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return checkResult{
			name:    "Configuration",
			status:  "ok",
			message: "Using defaults (no config file)",
		}, cfg
	}

	return checkResult{name: "Configuration", status: "ok", message: configFile}, cfg
}

func checkLocationFile(paths *config.Paths) checkResult {
	raw, err := os.ReadFile(paths.LocationFile())
	if errors.Is(err, os.ErrNotExist) {
		return checkResult{name: "Browser address", status: "ok", message: "Not saved yet"}
	}
	if err != nil {
		return checkResult{name: "Browser address", status: "warn", message: err.Error()}
	}
	if _, err := parseListAddress(string(raw)); err != nil {
		return checkResult{
			name:    "Browser address",
			status:  "warn",
			message: fmt.Sprintf("Unreadable, the browser will start at %s: %v", location.DefaultPath, err),
		}
	}
	return checkResult{name: "Browser address", status: "ok", message: strings.TrimSpace(string(raw))}
}

func checkDatabase(paths *config.Paths) (checkResult, *storage.SQLiteStore) {
	if err := paths.EnsureDirectories(); err != nil {
		return checkResult{name: "Database", status: "error", message: err.Error()}, nil
	}
	store, err := storage.NewSQLiteStore(paths.DatabaseFile())
	if err != nil {
		return checkResult{name: "Database", status: "error", message: err.Error()}, nil
	}
	version, err := store.SchemaVersion(context.Background())
	if err != nil {
		_ = store.Close()
		return checkResult{name: "Database", status: "error", message: err.Error()}, nil
	}
	return checkResult{
		name:    "Database",
		status:  "ok",
		message: fmt.Sprintf("%s (schema v%d)", paths.DatabaseFile(), version),
	}, store
}

func checkSession(kv session.KV) checkResult {
	svc := session.NewService(context.Background(), session.NewStoreRepository(kv))
	sess := svc.Current()
	if !sess.LoggedIn {
		return checkResult{name: "Account", status: "warn", message: "Not signed in. Run 'dishdex login'."}
	}
	return checkResult{name: "Account", status: "ok", message: sess.Email}
}

func checkService(cfg *config.Config) checkResult {
	client, err := dishes.NewClient(cfg.Service.BaseURL,
		dishes.WithHTTPClient(&http.Client{Timeout: doctorProbeTimeout}))
	if err != nil {
		return checkResult{name: "Dish service", status: "error", message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), doctorProbeTimeout)
	defer cancel()
	page, err := client.List(ctx, dishes.ListParams{Page: 1, PageSize: 1})
	if err != nil {
		return checkResult{
			name:    "Dish service",
			status:  "error",
			message: fmt.Sprintf("%s: %v", cfg.Service.BaseURL, err),
		}
	}
	return checkResult{
		name:    "Dish service",
		status:  "ok",
		message: fmt.Sprintf("%s (%d dishes)", cfg.Service.BaseURL, page.Total),
	}
}
