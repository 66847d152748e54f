package daemonconfig

import (
	"encoding/json"
	"testing"
)

func TestValidateFillsDefaults(t *testing.T) {
	raw := json.RawMessage(`{"db-path": "/var/lib/subdex/index.db", "watch-paths": ["/srv/docs"]}`)

	cfg, err := Validate(raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.DBPath != "/var/lib/subdex/index.db" {
		t.Fatalf("unexpected db-path: %q", cfg.DBPath)
	}
	if cfg.SweepIntervalSeconds != 300 {
		t.Fatalf("expected default sweep interval of 300, got %d", cfg.SweepIntervalSeconds)
	}
	if cfg.HTTPAddr != "127.0.0.1:8080" {
		t.Fatalf("expected default http-addr, got %q", cfg.HTTPAddr)
	}
}

func TestValidateRejectsMissingWatchPaths(t *testing.T) {
	raw := json.RawMessage(`{"db-path": "/var/lib/subdex/index.db"}`)
	if _, err := Validate(raw); err == nil {
		t.Fatal("expected an error for a config with no watch-paths")
	}
}

func TestValidateHonorsExplicitOverrides(t *testing.T) {
	raw := json.RawMessage(`{
		"db-path": "/var/lib/subdex/index.db",
		"watch-paths": ["/srv/docs"],
		"sweep-interval-seconds": 60,
		"http-addr": ":9090"
	}`)

	cfg, err := Validate(raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.SweepIntervalSeconds != 60 {
		t.Fatalf("expected overridden sweep interval of 60, got %d", cfg.SweepIntervalSeconds)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("expected overridden http-addr, got %q", cfg.HTTPAddr)
	}
}
