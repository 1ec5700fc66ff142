package pipeline

import (
	"io"
	"path/filepath"
	"strings"
)

// Workspace binds a pipeline run to one working directory and one subject.
// Root must be absolute by the time a pipeline runs; the run controller is
// responsible for resolving it.
type Workspace struct {
	Root    string
	Subject string
	Flags   map[string]bool
	Sinks   SinkFactory
}

// Expand substitutes {subject} in a path template.
func (ws *Workspace) Expand(tmpl string) string {
	return strings.ReplaceAll(tmpl, "{subject}", ws.Subject)
}

// Path expands a template and resolves it against the workspace root.
// Absolute templates are returned unchanged apart from substitution.
func (ws *Workspace) Path(tmpl string) string {
	expanded := ws.Expand(tmpl)
	if filepath.IsAbs(expanded) {
		return expanded
	}
	return filepath.Join(ws.Root, expanded)
}

// Flag reports whether the named option flag is enabled.
func (ws *Workspace) Flag(name string) bool {
	if ws.Flags == nil {
		return false
	}
	return ws.Flags[name]
}

// OpenSink opens the out/err sink pair for a phase. A workspace without a
// sink factory yields a discarding sink so unit tests need no log plumbing.
func (ws *Workspace) OpenSink(phase string) (*Sink, error) {
	if ws.Sinks == nil {
		return discardSink(), nil
	}
	return ws.Sinks.Open(phase)
}

// SinkFactory is the injected capability for per-phase process output.
// Open must append to existing streams rather than truncate them, so repeated
// runs accumulate a history of tool output.
type SinkFactory interface {
	Open(phase string) (*Sink, error)
}

// Sink is an open out/err stream pair for one phase.
type Sink struct {
	Out     io.WriteCloser
	Err     io.WriteCloser
	OutPath string
	ErrPath string
}

// Close releases both streams, reporting the first failure.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	var first error
	if s.Out != nil {
		if err := s.Out.Close(); err != nil {
			first = err
		}
	}
	if s.Err != nil {
		if err := s.Err.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func discardSink() *Sink {
	return &Sink{
		Out: nopWriteCloser{io.Discard},
		Err: nopWriteCloser{io.Discard},
	}
}
