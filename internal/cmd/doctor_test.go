package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/runger/dishdex/internal/config"
)

func TestCheckDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &config.Paths{DataDir: filepath.Join(tmpDir, "dishdex")}

	t.Run("missing_directory", func(t *testing.T) {
		r := checkDirectories(paths)
		if r.name != checkNameDataDir || r.status != "warn" {
			t.Errorf("got %+v, want warn", r)
		}
	})

	t.Run("existing_directory", func(t *testing.T) {
		if err := os.MkdirAll(paths.DataDir, 0o755); err != nil {
			t.Fatalf("failed to create test dir: %v", err)
		}
		r := checkDirectories(paths)
		if r.status != "ok" || r.message != paths.DataDir {
			t.Errorf("got %+v, want ok", r)
		}
	})

	t.Run("file_in_the_way", func(t *testing.T) {
		file := &config.Paths{DataDir: filepath.Join(tmpDir, "file")}
		if err := os.WriteFile(file.DataDir, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		if r := checkDirectories(file); r.status != "error" {
			t.Errorf("got %+v, want error", r)
		}
	})
}

func TestCheckConfiguration_Defaults(t *testing.T) {
	withTestEnv(t)

	r, cfg := checkConfiguration(config.DefaultPaths())
	if r.status != "ok" || !strings.Contains(r.message, "defaults") {
		t.Errorf("got %+v", r)
	}
	if cfg == nil {
		t.Fatal("expected a config")
	}
}

func TestCheckConfiguration_Invalid(t *testing.T) {
	withTestEnv(t)
	paths := config.DefaultPaths()
	if err := os.MkdirAll(paths.ConfigDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.ConfigFile(), []byte("log:\n  level: loud\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, cfg := checkConfiguration(paths)
	if r.status != "error" || cfg != nil {
		t.Errorf("got %+v, want error", r)
	}
}

func TestCheckLocationFile(t *testing.T) {
	withTestEnv(t)
	paths := config.DefaultPaths()

	if r := checkLocationFile(paths); r.status != "ok" {
		t.Errorf("missing file: got %+v", r)
	}

	if err := paths.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.LocationFile(), []byte("/recipes?x=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := checkLocationFile(paths); r.status != "warn" {
		t.Errorf("foreign path: got %+v, want warn", r)
	}
}

func TestRunDoctor_Healthy(t *testing.T) {
	withTestEnv(t)
	signIn(t)

	out := captureStdout(t, func() {
		if err := runDoctor(doctorCmd, nil); err != nil {
			t.Fatalf("runDoctor: %v", err)
		}
	})
	for _, want := range []string{"[OK] Database", "[OK] Account", "cook@example.com", "[OK] Dish service", "12 dishes"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunDoctor_ServiceDown(t *testing.T) {
	withTestEnv(t)
	t.Setenv("DISHDEX_API_URL", "http://127.0.0.1:1/api")

	out := captureStdout(t, func() {
		if err := runDoctor(doctorCmd, nil); err == nil {
			t.Error("expected an error when the service is unreachable")
		}
	})
	if !strings.Contains(out, "[ERROR] Dish service") {
		t.Errorf("output:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] Account") {
		t.Errorf("signed-out state should warn:\n%s", out)
	}
}
