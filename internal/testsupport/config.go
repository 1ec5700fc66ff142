// Package testsupport provides shared helpers for package tests: canned
// configs, stub stage tools on PATH, and ledger plumbing.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"tract/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with defaults and applies any provided
// options. Tool binaries keep their bare names so PATH stubs resolve them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfgVal := config.Default()
	builder := &configBuilder{
		t:       t,
		baseDir: t.TempDir(),
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBetFraction overrides the brain extraction fractional intensity.
func WithBetFraction(value float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tools.BetFraction = value
	}
}

// WithHistoryDisabled turns off ledger recording for the test.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithStubbedBinaries writes exit-0 stub executables for the provided names
// and prepends them to PATH. If names is empty, the stage tools are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"eddy_correct", "bet", "dtifit", "bedpostx"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			StubTool(b.t, binDir, name, "#!/bin/sh\nexit 0\n")
		}
		PrependPath(b.t, binDir)
	}
}
