package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tract/internal/config"
)

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Tools.EddyCorrect != "eddy_correct" {
		t.Fatalf("unexpected eddy_correct binary: %q", cfg.Tools.EddyCorrect)
	}
	if cfg.Tools.Bet != "bet" || cfg.Tools.Dtifit != "dtifit" || cfg.Tools.Bedpostx != "bedpostx" {
		t.Fatalf("unexpected tool defaults: %+v", cfg.Tools)
	}
	if cfg.Tools.BetFraction != 0.3 {
		t.Fatalf("unexpected bet fraction: %v", cfg.Tools.BetFraction)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Logging.RetentionDays != 60 {
		t.Fatalf("unexpected retention default: %d", cfg.Logging.RetentionDays)
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
}

func TestLoadParsesExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[tools]",
		`bet = "/opt/fsl/bin/bet"`,
		"bet_fraction = 0.4",
		"",
		"[logging]",
		`format = "JSON"`,
		`level = "DEBUG"`,
		"",
		"[history]",
		"enabled = false",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Tools.Bet != "/opt/fsl/bin/bet" {
		t.Fatalf("unexpected bet binary: %q", cfg.Tools.Bet)
	}
	if cfg.Tools.BetFraction != 0.4 {
		t.Fatalf("unexpected bet fraction: %v", cfg.Tools.BetFraction)
	}
	if cfg.Tools.EddyCorrect != "eddy_correct" {
		t.Fatalf("expected default eddy_correct to survive partial config, got %q", cfg.Tools.EddyCorrect)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected format lowered to json, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected level lowered to debug, got %q", cfg.Logging.Level)
	}
	if cfg.History.Enabled {
		t.Fatal("expected history disabled")
	}
}

func TestLoadExpandsHomeInToolPath(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[tools]\ndtifit = \"~/fsl/bin/dtifit\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := filepath.Join(tempHome, "fsl", "bin", "dtifit")
	if cfg.Tools.Dtifit != want {
		t.Fatalf("expected expanded path %q, got %q", want, cfg.Tools.Dtifit)
	}
}

func TestValidateRejectsBadBetFraction(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.BetFraction = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for bet_fraction > 1")
	}
}

func TestValidateRejectsEmptyBinary(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.Bedpostx = " "
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for blank binary")
	}
}

func TestCreateSampleWritesParseableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}

func TestToolBinariesOrder(t *testing.T) {
	cfg := config.Default()
	bins := cfg.ToolBinaries()
	want := []string{"eddy_correct", "bet", "dtifit", "bedpostx"}
	if len(bins) != len(want) {
		t.Fatalf("unexpected binary count: %d", len(bins))
	}
	for i, name := range want {
		if bins[i] != name {
			t.Fatalf("unexpected binary at %d: got %q want %q", i, bins[i], name)
		}
	}
}
