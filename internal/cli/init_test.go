package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	applog "budget/internal/log"
)

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("debug")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be enabled")
	}
	if logger.Component() != applog.ComponentApp {
		t.Fatalf("component = %q", logger.Component())
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("BUDGET_CLI_TEST=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("BUDGET_CLI_TEST", "")
	os.Unsetenv("BUDGET_CLI_TEST")

	LoadEnvFile()
	if got := os.Getenv("BUDGET_CLI_TEST"); got != "loaded" {
		t.Fatalf("BUDGET_CLI_TEST = %q", got)
	}
}

func TestRunCleanup(t *testing.T) {
	logger := applog.New(applog.Config{Output: os.Stderr, Level: slog.LevelError})

	called := false
	RunCleanup(logger, time.Second, func(context.Context) error {
		called = true
		return nil
	})
	if !called {
		t.Fatal("cleanup not called")
	}

	start := time.Now()
	RunCleanup(logger, 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(time.Second)
		return errors.New("late")
	})
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("RunCleanup should return at the deadline")
	}
}
