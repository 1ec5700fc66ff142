package pipeline

import (
	"os"
	"strings"
)

// Checkpoint is the pure predicate deciding whether a stage's work product
// already exists. Implementations must be cheap, must not mutate the
// workspace, and must tolerate being evaluated any number of times in any
// order.
type Checkpoint interface {
	IsSatisfied(ws *Workspace) bool
}

// Describer is optionally implemented by checkpoints that can explain what
// artifact they look for. Plan rendering uses it when available.
type Describer interface {
	Describe(ws *Workspace) string
}

// FileCheckpoint is satisfied when a single templated path exists.
func FileCheckpoint(tmpl string) Checkpoint {
	return fileCheckpoint{tmpl: tmpl}
}

type fileCheckpoint struct {
	tmpl string
}

func (c fileCheckpoint) IsSatisfied(ws *Workspace) bool {
	return pathExists(ws.Path(c.tmpl))
}

func (c fileCheckpoint) Describe(ws *Workspace) string {
	return ws.Expand(c.tmpl)
}

// AllFilesCheckpoint is satisfied when every templated path exists.
func AllFilesCheckpoint(tmpls ...string) Checkpoint {
	return allFilesCheckpoint{tmpls: tmpls}
}

type allFilesCheckpoint struct {
	tmpls []string
}

func (c allFilesCheckpoint) IsSatisfied(ws *Workspace) bool {
	for _, tmpl := range c.tmpls {
		if !pathExists(ws.Path(tmpl)) {
			return false
		}
	}
	return true
}

func (c allFilesCheckpoint) Describe(ws *Workspace) string {
	expanded := make([]string, 0, len(c.tmpls))
	for _, tmpl := range c.tmpls {
		expanded = append(expanded, ws.Expand(tmpl))
	}
	return strings.Join(expanded, ", ")
}

// CompositeCheckpoint is satisfied when every part is satisfied. Parts may be
// nil; nil parts are ignored.
func CompositeCheckpoint(parts ...Checkpoint) Checkpoint {
	filtered := make([]Checkpoint, 0, len(parts))
	for _, part := range parts {
		if part != nil {
			filtered = append(filtered, part)
		}
	}
	return compositeCheckpoint{parts: filtered}
}

type compositeCheckpoint struct {
	parts []Checkpoint
}

func (c compositeCheckpoint) IsSatisfied(ws *Workspace) bool {
	for _, part := range c.parts {
		if !part.IsSatisfied(ws) {
			return false
		}
	}
	return true
}

func (c compositeCheckpoint) Describe(ws *Workspace) string {
	described := make([]string, 0, len(c.parts))
	for _, part := range c.parts {
		d, ok := part.(Describer)
		if !ok {
			continue
		}
		if text := d.Describe(ws); text != "" {
			described = append(described, text)
		}
	}
	return strings.Join(described, ", ")
}

// DescribeCheckpoint returns the checkpoint's artifact description when the
// implementation provides one.
func DescribeCheckpoint(cp Checkpoint, ws *Workspace) string {
	if d, ok := cp.(Describer); ok {
		return d.Describe(ws)
	}
	return ""
}

// pathExists treats any stat error as absence. Unreadable artifacts mean the
// work product cannot be trusted, so the stage runs again.
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
