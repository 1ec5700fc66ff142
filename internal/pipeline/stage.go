package pipeline

import "context"

// Action performs a stage's work. Actions receive the sink opened for their
// stage and must route external process output through it. Only actions may
// mutate the workspace; checkpoint and input evaluation never do.
type Action func(ctx context.Context, ws *Workspace, sink *Sink) error

// Stage describes one unit of resumable work.
//
// RequiredInputs are templated paths that must exist before the action may
// run. Prerequisites name earlier stages whose checkpoints must already be
// satisfied; they guard against declaration-order mistakes and externally
// deleted artifacts, they never reorder execution.
type Stage struct {
	Name           string
	Checkpoint     Checkpoint
	RequiredInputs []string
	Prerequisites  []string
	Action         Action
}

// MissingInputs returns the expanded names of required inputs absent from
// the workspace, in declaration order.
func (s Stage) MissingInputs(ws *Workspace) []string {
	var missing []string
	for _, tmpl := range s.RequiredInputs {
		if !pathExists(ws.Path(tmpl)) {
			missing = append(missing, ws.Expand(tmpl))
		}
	}
	return missing
}
