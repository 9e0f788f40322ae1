package export

import (
	"fmt"

	"github.com/heimdex/heimdex-editor/internal/pipeline"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// OperationArgs builds the media engine job for clip under op.
func OperationArgs(op timeline.Operation, clip Clip, output string, frameRate float64) (*OperationParams, error) {
	fps := timeline.EffectiveFrameRate(frameRate)
	duration := clip.Out - clip.In
	if duration <= 0 {
		return nil, fmt.Errorf("empty selection")
	}

	p := &OperationParams{
		Operation:   string(op),
		Input:       clip.MediaPath,
		Output:      output,
		StartSec:    clip.In,
		DurationSec: duration,
		StartFrame:  timeline.TimeToFrame(clip.In, fps),
		EndFrame:    timeline.TimeToFrame(clip.Out, fps),
		FrameRate:   fps,
	}
	switch op {
	case timeline.OperationTrim:
		p.Args = pipeline.TrimArgs(clip.MediaPath, output, clip.In, duration)
	case timeline.OperationGIF:
		p.Args = pipeline.GIFArgs(clip.MediaPath, output, clip.In, duration, 0, 0)
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	return p, nil
}
