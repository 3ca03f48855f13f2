// Package config provides configuration management for dishdex.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds all the path configurations for dishdex.
type Paths struct {
	// ConfigDir is the directory for configuration files (~/.config/dishdex)
	ConfigDir string

	// DataDir is the directory for data files (~/.local/share/dishdex)
	DataDir string

	// CacheDir is the directory for cache files (~/.cache/dishdex)
	CacheDir string

	// RuntimeDir holds the browser lock file
	RuntimeDir string
}

// DefaultPaths returns the default paths following the XDG Base Directory layout.
// On Windows, it uses %APPDATA% instead.
func DefaultPaths() *Paths {
	home := homeDir()

	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(home, "AppData", "Local")
		}

		return &Paths{
			ConfigDir:  filepath.Join(appData, "dishdex"),
			DataDir:    filepath.Join(localAppData, "dishdex"),
			CacheDir:   filepath.Join(localAppData, "dishdex", "cache"),
			RuntimeDir: filepath.Join(localAppData, "dishdex", "run"),
		}
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}

	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		cacheHome = filepath.Join(home, ".cache")
	}

	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = filepath.Join(home, ".dishdex", "run")
	} else {
		runtimeDir = filepath.Join(runtimeDir, "dishdex")
	}

	return &Paths{
		ConfigDir:  filepath.Join(configHome, "dishdex"),
		DataDir:    filepath.Join(dataHome, "dishdex"),
		CacheDir:   filepath.Join(cacheHome, "dishdex"),
		RuntimeDir: runtimeDir,
	}
}

// ConfigFile returns the path to the main configuration file.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// DatabaseFile returns the path to the SQLite database.
func (p *Paths) DatabaseFile() string {
	return filepath.Join(p.DataDir, "state.db")
}

// LocationFile holds the browser's current list address.
func (p *Paths) LocationFile() string {
	return filepath.Join(p.DataDir, "location.url")
}

// LogDir returns the path to the log directory.
func (p *Paths) LogDir() string {
	return filepath.Join(p.DataDir, "logs")
}

// LogFile returns the path to the browser log file.
func (p *Paths) LogFile() string {
	return filepath.Join(p.LogDir(), "dishdex.log")
}

// LockFile is held by the running browser.
func (p *Paths) LockFile() string {
	return filepath.Join(p.RuntimeDir, "browse.lock")
}

// EnsureDirectories creates all necessary directories.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.ConfigDir,
		p.DataDir,
		p.CacheDir,
		p.RuntimeDir,
		p.LogDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		if runtime.GOOS == "windows" {
			return os.Getenv("USERPROFILE")
		}
		return os.Getenv("HOME")
	}
	return home
}
