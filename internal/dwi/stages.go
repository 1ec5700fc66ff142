package dwi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"tract/internal/command"
	"tract/internal/config"
	"tract/internal/fileutil"
	"tract/internal/logging"
	"tract/internal/pipeline"
)

// Options binds the concrete collaborators stage actions need.
type Options struct {
	Config *config.Config
	Runner command.Runner
	Logger *slog.Logger
}

func (o Options) validate() error {
	if o.Config == nil {
		return errors.New("dwi: config is required")
	}
	if o.Runner == nil {
		return errors.New("dwi: command runner is required")
	}
	return nil
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.NewNop()
}

// NewPipeline assembles the diffusion pipeline in execution order.
func NewPipeline(opts Options, pipelineOpts ...pipeline.Option) (*pipeline.Pipeline, error) {
	stages, err := Stages(opts)
	if err != nil {
		return nil, err
	}
	return pipeline.New(PipelineName, stages, pipelineOpts...)
}

// Stages builds the stage set. Order is contractual: later stages consume the
// filesystem outputs of earlier ones.
func Stages(opts Options) ([]pipeline.Stage, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return []pipeline.Stage{
		eddyStage(opts),
		betStage(opts),
		dtifitStage(opts),
		bedpostStage(opts),
	}, nil
}

// eddyStage corrects eddy-current distortion in the raw diffusion volume.
// The trailing 0 selects the reference volume.
func eddyStage(opts Options) pipeline.Stage {
	return pipeline.Stage{
		Name:           "eddy",
		Checkpoint:     pipeline.FileCheckpoint(Corrected),
		RequiredInputs: []string{RawDWI},
		Action: func(ctx context.Context, ws *pipeline.Workspace, sink *pipeline.Sink) error {
			return opts.Runner.Run(ctx, command.Command{
				Binary: opts.Config.Tools.EddyCorrect,
				Args:   []string{ws.Expand(RawDWI), ws.Expand(correctedBase), "0"},
				Dir:    ws.Root,
				Stdout: sink.Out,
				Stderr: sink.Err,
			})
		},
	}
}

// betStage extracts the brain and emits the binary mask later stages consume.
func betStage(opts Options) pipeline.Stage {
	return pipeline.Stage{
		Name:           "bet",
		Checkpoint:     pipeline.FileCheckpoint(BrainMask),
		RequiredInputs: []string{Corrected},
		Prerequisites:  []string{"eddy"},
		Action: func(ctx context.Context, ws *pipeline.Workspace, sink *pipeline.Sink) error {
			return opts.Runner.Run(ctx, command.Command{
				Binary: opts.Config.Tools.Bet,
				Args: []string{
					ws.Expand(Corrected),
					ws.Expand(brainBase),
					"-m",
					"-f", formatFraction(opts.Config.Tools.BetFraction),
				},
				Dir:    ws.Root,
				Stdout: sink.Out,
				Stderr: sink.Err,
			})
		},
	}
}

// dtifitStage fits the diffusion tensor within the brain mask.
func dtifitStage(opts Options) pipeline.Stage {
	return pipeline.Stage{
		Name:           "dtifit",
		Checkpoint:     pipeline.FileCheckpoint(TensorFA),
		RequiredInputs: []string{Corrected, BrainMask, BvecsFile, BvalsFile},
		Prerequisites:  []string{"eddy", "bet"},
		Action: func(ctx context.Context, ws *pipeline.Workspace, sink *pipeline.Sink) error {
			return opts.Runner.Run(ctx, command.Command{
				Binary: opts.Config.Tools.Dtifit,
				Args: []string{
					"-k", ws.Expand(correctedBase),
					"-m", ws.Expand(maskBase),
					"-r", BvecsFile,
					"-b", BvalsFile,
					"-o", ws.Expand(tensorBase),
				},
				Dir:    ws.Root,
				Stdout: sink.Out,
				Stderr: sink.Err,
			})
		},
	}
}

// bedpostStage stages inputs into the sampling subdirectory and, when the
// bedpostx flag is set, runs the long fiber orientation sampling. Setup and
// sampling hold separate checkpoints so a run with the flag newly enabled is
// not skipped just because setup already happened.
func bedpostStage(opts Options) pipeline.Stage {
	setup := pipeline.AllFilesCheckpoint(BedpostData, BedpostMask, BedpostBvecs, BedpostBvals)
	sampled := pipeline.FileCheckpoint(BedpostResult)

	return pipeline.Stage{
		Name: "bedpost",
		Checkpoint: pipeline.CompositeCheckpoint(
			setup,
			flagGated{flag: FlagBedpostx, checkpoint: sampled},
		),
		RequiredInputs: []string{Corrected, BrainMask, BvecsFile, BvalsFile},
		Prerequisites:  []string{"eddy", "bet"},
		Action: func(ctx context.Context, ws *pipeline.Workspace, sink *pipeline.Sink) error {
			logger := logging.WithContext(ctx, opts.logger())
			if !setup.IsSatisfied(ws) {
				logger.Info("staging sampling inputs", logging.String("dir", ws.Path(BedpostDir)))
				if err := stageBedpostInputs(ws); err != nil {
					return err
				}
			}
			if !ws.Flag(FlagBedpostx) {
				return nil
			}
			if sampled.IsSatisfied(ws) {
				logger.Info("fiber orientation samples already present",
					logging.String("artifact", ws.Path(BedpostResult)))
				return nil
			}
			return opts.Runner.Run(ctx, command.Command{
				Binary: opts.Config.Tools.Bedpostx,
				Args:   []string{BedpostDir},
				Dir:    ws.Root,
				Stdout: sink.Out,
				Stderr: sink.Err,
			})
		},
	}
}

// stageBedpostInputs copies the corrected volume, mask, and gradient tables
// into the sampling subdirectory. The data volume runs to gigabytes, so its
// copy is hash-verified.
func stageBedpostInputs(ws *pipeline.Workspace) error {
	if err := os.MkdirAll(ws.Path(BedpostDir), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", BedpostDir, err)
	}
	if err := fileutil.CopyFileVerified(ws.Path(Corrected), ws.Path(BedpostData)); err != nil {
		return fmt.Errorf("stage data volume: %w", err)
	}
	small := []struct{ src, dst string }{
		{BrainMask, BedpostMask},
		{BvecsFile, BedpostBvecs},
		{BvalsFile, BedpostBvals},
	}
	for _, pair := range small {
		if err := fileutil.CopyFile(ws.Path(pair.src), ws.Path(pair.dst)); err != nil {
			return fmt.Errorf("stage %s: %w", pair.dst, err)
		}
	}
	return nil
}

// flagGated defers to the wrapped checkpoint only while the workspace flag is
// set. With the flag off the gated work is not requested, so the checkpoint
// reads as satisfied.
type flagGated struct {
	flag       string
	checkpoint pipeline.Checkpoint
}

func (c flagGated) IsSatisfied(ws *pipeline.Workspace) bool {
	if !ws.Flag(c.flag) {
		return true
	}
	return c.checkpoint.IsSatisfied(ws)
}

func (c flagGated) Describe(ws *pipeline.Workspace) string {
	if !ws.Flag(c.flag) {
		return ""
	}
	return pipeline.DescribeCheckpoint(c.checkpoint, ws)
}

func formatFraction(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}
