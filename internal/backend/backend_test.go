package backend

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"budget/internal/config"
	"budget/internal/core"
	applog "budget/internal/log"
)

func testLogger() *applog.Logger {
	return applog.New(applog.Config{Output: &bytes.Buffer{}})
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	_, err := FromAppConfig(&config.Config{DataBackend: "sheets"})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	for _, bt := range GetBackendTypes() {
		if !strings.Contains(err.Error(), bt.String()) {
			t.Errorf("error %q should list backend %q", err, bt)
		}
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "/tmp/b.db",
		DataDir:      "seed",
		AMQPURL:      "amqp://localhost",
		AMQPExchange: "budget",
		AMQPQueue:    "ledger_export",
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/b.db" || cfg.DataDirectory != "seed" || cfg.AMQPQueue != "ledger_export" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown", Config{Type: "redis"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed_envelopes.txt"), []byte("Rent;850\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(testLogger()).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	envs, err := res.Backend.ListEnvelopes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(envs) != 1 || envs[0].Title != "Rent" || envs[0].Budget.Cents != 85000 {
		t.Fatalf("unexpected seeded envelopes: %+v", envs)
	}
	if err := res.Backend.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "budget.db")

	res, err := NewFactory(testLogger()).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}

	budget := core.Money{Cents: 1000}
	env, err := res.Backend.CreateEnvelope(ctx, core.NewEnvelope{Title: "Fuel", Budget: &budget})
	if err != nil {
		t.Fatalf("CreateEnvelope: %v", err)
	}
	if _, err := res.Backend.Withdraw(ctx, env.ID, core.Money{Cents: 2000}); !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if err := res.Backend.Ping(ctx); err == nil {
		t.Fatal("Ping after cleanup should fail")
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	if _, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: "sheets"}); err == nil {
		t.Fatal("expected error")
	}
}
