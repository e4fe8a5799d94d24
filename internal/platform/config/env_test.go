package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Interval int `env:"CADENCE_TEST_INTERVAL" envDefault:"45"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Interval != 45 {
		t.Fatalf("expected default interval 45, got %d", cfg.Interval)
	}
}

func TestParseEnvOverride(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("CADENCE_TEST_INTERVAL", "90")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Interval != 90 {
		t.Fatalf("expected interval 90, got %d", cfg.Interval)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("CADENCE_TEST_INTERVAL", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
