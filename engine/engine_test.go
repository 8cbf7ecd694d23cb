package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/engine/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/emitter"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/loader"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/Carmen-Shannon/oxy-scene/engine/model/modeltest"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
	"go.uber.org/zap"
)

type testPipeline struct{}

func (testPipeline) Label() string { return "test" }

type failingTarget struct{}

func (failingTarget) BeginFrame() (gpu.RenderPass, gpu.Pipeline, error) {
	return nil, nil, errors.New("surface lost")
}

func (failingTarget) EndFrame() {}

func newTestScene(t *testing.T, d gpu.Device, prims ...modeltest.Prim) scene.Scene {
	t.Helper()
	return scene.NewScene(scene.WithLogger(zap.NewNop()), scene.WithModels(modeltest.NewModel(t, d, prims)))
}

func TestFrameDrawsActiveScenesInOrder(t *testing.T) {
	d := gpu.NewHeadlessDevice()
	target := NewRecordingTarget(testPipeline{})
	front := newTestScene(t, d, modeltest.Prim{Alpha: model.AlphaBlend})
	back := newTestScene(t, d, modeltest.Prim{}, modeltest.Prim{Alpha: model.AlphaMask})
	hidden := newTestScene(t, d, modeltest.Prim{})
	hidden.SetActive(false)

	e := NewEngine(
		WithDevice(d),
		WithLogger(zap.NewNop()),
		WithFrameTarget(target),
		WithScene(1, front),
		WithScene(0, back),
		WithScene(2, hidden),
	)
	defer e.Close()

	counts, err := e.Frame(0.016)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if counts != (emitter.PassCounts{1, 1, 1}) {
		t.Errorf("unexpected counts %v", counts)
	}

	draws := target.Pass().Draws()
	if len(draws) != 3 || target.Frames() != 1 {
		t.Fatalf("expected 3 draws in 1 frame, got %d in %d", len(draws), target.Frames())
	}
	frontSet := front.Models()[0].DescriptorSet()
	if draws[0].Sets[2] == frontSet || draws[2].Sets[2] != frontSet {
		t.Error("the lower z-index scene should draw first")
	}

	if _, err := e.Frame(0.016); err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if len(target.Pass().Draws()) != 3 {
		t.Error("each frame should start from an empty pass")
	}
}

func TestFrameWithoutTargetOnlyUpdates(t *testing.T) {
	d := gpu.NewHeadlessDevice()
	s := newTestScene(t, d, modeltest.Prim{})
	e := NewEngine(WithDevice(d), WithLogger(zap.NewNop()), WithScene(0, s))
	defer e.Close()

	before := d.Stats().BufferWrites
	counts, err := e.Frame(0.016)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if counts.Total() != 0 {
		t.Errorf("expected no draws, got %v", counts)
	}
	if d.Stats().BufferWrites == before {
		t.Error("Frame should still update the scene")
	}
}

func TestFrameReportsTargetError(t *testing.T) {
	d := gpu.NewHeadlessDevice()
	e := NewEngine(WithDevice(d), WithLogger(zap.NewNop()), WithFrameTarget(failingTarget{}))
	defer e.Close()

	if _, err := e.Frame(0.016); err == nil {
		t.Error("expected the frame target error")
	}
}

func TestRunStopsOnContext(t *testing.T) {
	d := gpu.NewHeadlessDevice()
	target := NewRecordingTarget(testPipeline{})
	cfg := config.Default()
	cfg.Profiler.Enabled = true
	e := NewEngine(
		WithConfig(cfg),
		WithDevice(d),
		WithLogger(zap.NewNop()),
		WithFrameTarget(target),
		WithTickRate(1000),
		WithScene(0, newTestScene(t, d, modeltest.Prim{})),
	)
	defer e.Close()
	e.SetRenderFrameLimit(500)

	var ticks atomic.Int32
	e.SetTickCallback(func(float32) { ticks.Add(1) })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	e.Run(ctx)

	if ticks.Load() == 0 {
		t.Error("tick callback never ran")
	}
	if target.Frames() == 0 {
		t.Error("no frames rendered")
	}
}

func TestFractionalRates(t *testing.T) {
	e := NewEngine(WithLogger(zap.NewNop()), WithTickRate(0.5)).(*engine)
	defer e.Close()
	if e.engineTickRate != 2*time.Second {
		t.Errorf("expected a 2s tick at 0.5 fps, got %v", e.engineTickRate)
	}

	e.SetTickRate(0.25)
	if e.engineTickRate != 4*time.Second {
		t.Errorf("expected a 4s tick at 0.25 fps, got %v", e.engineTickRate)
	}
	e.SetTickRate(0)
	if e.engineTickRate != time.Second/60 {
		t.Errorf("expected the 60Hz default, got %v", e.engineTickRate)
	}

	e.SetRenderFrameLimit(0.5)
	if e.renderFrameLimit != 2*time.Second {
		t.Errorf("expected a 2s frame limit, got %v", e.renderFrameLimit)
	}
	e.SetRenderFrameLimit(-1)
	if e.renderFrameLimit != 0 {
		t.Errorf("expected an uncapped frame limit, got %v", e.renderFrameLimit)
	}
}

func TestQuitIsIdempotent(t *testing.T) {
	e := NewEngine(WithLogger(zap.NewNop()))
	e.Quit()
	e.Quit()
	e.Run(context.Background())
	e.Close()
}

func TestLoaderWithoutDevice(t *testing.T) {
	e := NewEngine(WithLogger(zap.NewNop()))
	defer e.Close()

	if _, err := e.Loader().Load(context.Background(), t.TempDir(), "missing.gltf", true); !errors.Is(err, loader.ErrNoDevice) {
		t.Errorf("expected ErrNoDevice, got %v", err)
	}
}

func TestSceneRegistry(t *testing.T) {
	e := NewEngine(WithLogger(zap.NewNop()))
	defer e.Close()

	s := scene.NewScene(scene.WithName("hud"), scene.WithLogger(zap.NewNop()))
	e.AddScene(5, s)
	if e.Scene(5) != s || len(e.Scenes()) != 1 {
		t.Fatal("scene not registered")
	}
	e.RemoveScene(5)
	if e.Scene(5) != nil {
		t.Error("scene not removed")
	}
}
