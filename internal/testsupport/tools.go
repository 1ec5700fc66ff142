package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// StubTool writes an executable shell script into dir under the given name.
func StubTool(t testing.TB, dir, name, script string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
}

// PrependPath puts dir at the front of PATH for the duration of the test.
func PrependPath(t testing.TB, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// StubWorkingToolchain writes stand-ins for the four stage tools that create
// the artifacts the real binaries would, relative to their working directory.
// The returned bin directory is already on PATH. bedpostx appends one line to
// bedpostx.calls per invocation so tests can count runs.
func StubWorkingToolchain(t testing.TB) string {
	t.Helper()
	binDir := t.TempDir()

	StubTool(t, binDir, "eddy_correct", "#!/bin/sh\n"+
		"echo \"eddy_correct $*\"\n"+
		"touch \"$2.nii.gz\"\n")

	StubTool(t, binDir, "bet", "#!/bin/sh\n"+
		"echo \"bet $*\"\n"+
		"touch \"$2.nii.gz\" \"$2_mask.nii.gz\"\n")

	StubTool(t, binDir, "dtifit", "#!/bin/sh\n"+
		"out=\"\"\n"+
		"while [ \"$#\" -gt 0 ]; do\n"+
		"  if [ \"$1\" = \"-o\" ]; then out=\"$2\"; fi\n"+
		"  shift\n"+
		"done\n"+
		"touch \"${out}_FA.nii.gz\"\n")

	StubTool(t, binDir, "bedpostx", "#!/bin/sh\n"+
		"echo \"bedpostx $*\" >> bedpostx.calls\n"+
		"mkdir -p \"$1.bedpostX\"\n"+
		"touch \"$1.bedpostX/merged_th1samples.nii.gz\"\n")

	PrependPath(t, binDir)
	return binDir
}
