package engine

import "github.com/Carmen-Shannon/oxy-scene/engine/gpu"

// RecordingTarget is a FrameTarget that records every frame into a gpu.RecordingPass. It backs headless
// tools and tests.
type RecordingTarget struct {
	pass     *gpu.RecordingPass
	pipeline gpu.Pipeline
	frames   int
}

var _ FrameTarget = &RecordingTarget{}

// NewRecordingTarget creates a RecordingTarget that draws with pipeline.
//
// Parameters:
//   - pipeline: the pipeline handed to every frame
//
// Returns:
//   - *RecordingTarget: the new target
func NewRecordingTarget(pipeline gpu.Pipeline) *RecordingTarget {
	return &RecordingTarget{pass: gpu.NewRecordingPass(), pipeline: pipeline}
}

// BeginFrame clears the previous frame's draws.
func (r *RecordingTarget) BeginFrame() (gpu.RenderPass, gpu.Pipeline, error) {
	r.pass.Reset()
	return r.pass, r.pipeline, nil
}

func (r *RecordingTarget) EndFrame() {
	r.frames++
}

// Pass returns the pass holding the last frame's draws.
func (r *RecordingTarget) Pass() *gpu.RecordingPass {
	return r.pass
}

// Frames returns the number of completed frames.
func (r *RecordingTarget) Frames() int {
	return r.frames
}
