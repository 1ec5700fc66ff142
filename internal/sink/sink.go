// Package sink provides the on-disk implementation of the pipeline's log
// sink capability: one .log/.err pair per phase inside the working
// directory's LOGS subdirectory.
package sink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tract/internal/pipeline"
)

// DirName is the log subdirectory created inside every working directory.
const DirName = "LOGS"

// Dir returns the LOGS directory path for a working directory.
func Dir(root string) string {
	return filepath.Join(root, DirName)
}

// DirFactory opens append-or-create sinks under <root>/LOGS. Repeated runs
// append to the same files, preserving prior tool output.
type DirFactory struct {
	dir string
}

// NewDirFactory builds a factory rooted at the working directory.
func NewDirFactory(root string) *DirFactory {
	return &DirFactory{dir: Dir(root)}
}

// LogsDir returns the directory sinks are created in.
func (f *DirFactory) LogsDir() string {
	return f.dir
}

// Open creates or reopens the out/err pair for a phase.
func (f *DirFactory) Open(phase string) (*pipeline.Sink, error) {
	phase = strings.TrimSpace(phase)
	if phase == "" {
		return nil, errors.New("sink phase required")
	}
	if strings.ContainsAny(phase, `/\`) {
		return nil, fmt.Errorf("sink phase %q must not contain path separators", phase)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	outPath := filepath.Join(f.dir, phase+".log")
	out, err := openAppend(outPath)
	if err != nil {
		return nil, err
	}
	errPath := filepath.Join(f.dir, phase+".err")
	errFile, err := openAppend(errPath)
	if err != nil {
		out.Close()
		return nil, err
	}

	return &pipeline.Sink{
		Out:     out,
		Err:     errFile,
		OutPath: outPath,
		ErrPath: errPath,
	}, nil
}

func openAppend(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open sink %s: %w", path, err)
	}
	return file, nil
}
