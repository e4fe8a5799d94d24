package sweeper

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("sweeper", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/cadence.db" {
		t.Fatalf("db path = %q, want default", cfg.DBPath)
	}
	if cfg.Interval != time.Hour {
		t.Fatalf("interval = %v, want 1h", cfg.Interval)
	}
	if cfg.Threshold != 50 {
		t.Fatalf("threshold = %v, want 50", cfg.Threshold)
	}
	if cfg.Once {
		t.Fatal("once should default to false")
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("CADENCE_SWEEPER_DB_PATH", "/tmp/env.db")
	t.Setenv("CADENCE_SWEEPER_THRESHOLD", "75")

	fs := flag.NewFlagSet("sweeper", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-db-path", "/tmp/flag.db", "-once"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "/tmp/flag.db" {
		t.Fatalf("db path = %q, want flag override", cfg.DBPath)
	}
	if cfg.Threshold != 75 {
		t.Fatalf("threshold = %v, want env override 75", cfg.Threshold)
	}
	if !cfg.Once {
		t.Fatal("once flag not applied")
	}
}
