package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tract/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	workdir    string
	subject    string
	configPath string
}

// setupCLITestEnv prepares a working directory with seeded inputs, a working
// stage toolchain on PATH, and a config file the commands can load.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	testsupport.StubWorkingToolchain(t)

	workdir := filepath.Join(base, "subj01")
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		t.Fatalf("mkdir workdir: %v", err)
	}
	seedSubjectInputs(t, workdir, "subj01")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, "")

	return &cliTestEnv{
		baseDir:    base,
		workdir:    workdir,
		subject:    "subj01",
		configPath: configPath,
	}
}

func seedSubjectInputs(t *testing.T, workdir, subject string) {
	t.Helper()
	testsupport.WriteFile(t, filepath.Join(workdir, subject+"_dwi.nii.gz"), 4096)
	testsupport.WriteFile(t, filepath.Join(workdir, "bvecs"), 64)
	testsupport.WriteFile(t, filepath.Join(workdir, "bvals"), 64)
}

// writeTestConfig writes a minimal config file. extra is appended verbatim so
// tests can override individual keys.
func writeTestConfig(t *testing.T, path, extra string) {
	t.Helper()
	content := "[logging]\nformat = \"json\"\nlevel = \"info\"\n" + extra
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}
