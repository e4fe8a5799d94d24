package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type entryTestConfig struct {
	DBPath string `env:"CADENCE_ENTRY_TEST_DB_PATH" envDefault:"data/test.db"`
}

func TestParseConfigDefaults(t *testing.T) {
	var cfg entryTestConfig
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/test.db" {
		t.Fatalf("db path = %q, want data/test.db", cfg.DBPath)
	}
}

func TestParseConfigNil(t *testing.T) {
	t.Parallel()

	if err := ParseConfig[entryTestConfig](nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var path string
	fs.StringVar(&path, "db-path", "", "database path")
	if err := ParseArgs(fs, []string{"-db-path", "x.db"}); err != nil {
		t.Fatalf("parse args: %v", err)
	}
	if path != "x.db" {
		t.Fatalf("path = %q, want x.db", path)
	}
	if err := ParseArgs(nil, nil); err == nil {
		t.Fatal("expected error for nil flag set")
	}
}

func TestRunWithTelemetryRequiresService(t *testing.T) {
	t.Parallel()

	err := RunWithTelemetry(context.Background(), "  ", func(context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error for empty service name")
	}
}

func TestRunWithTelemetryPropagatesRunError(t *testing.T) {
	t.Setenv("CADENCE_OTEL_ENDPOINT", "")

	want := errors.New("run failed")
	err := RunWithTelemetry(context.Background(), "sweeper", func(context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}
