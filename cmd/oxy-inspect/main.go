// Command oxy-inspect loads glTF assets on a headless device, simulates a number of frames and reports
// what the scene runtime built and drew.
//
// Usage:
//
//	oxy-inspect [flags] model.gltf [model.glb ...]
//
// A path given more than once is loaded once and instanced.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"github.com/Carmen-Shannon/oxy-scene/engine"
	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/emitter"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/loader"
	"github.com/Carmen-Shannon/oxy-scene/engine/logger"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagSaveConfig = flag.String("save-config", "", "Write the effective config to this path and exit")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagFrames     = flag.Int("frames", 60, "Number of frames to simulate")
	flagDelta      = flag.Float64("dt", 1.0/60.0, "Frame time in seconds")
	flagRadius     = flag.Float64("radius", 10, "Camera orbit radius")
	flagSpacing    = flag.Float64("spacing", 2, "X offset between instances")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] model.gltf [model.glb ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}

	if *flagSaveConfig != "" {
		if err := cfg.Save(*flagSaveConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	fileCfg := logger.FileConfig{}
	if cfg.Logging.File != "" {
		fileCfg = logger.FileConfig{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		}
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, flag.Args()); err != nil {
		logger.Error("inspect failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, paths []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	device := gpu.NewHeadlessDevice()
	target := engine.NewRecordingTarget(gpu.NewHeadlessPipeline("inspect"))
	eng := engine.NewEngine(
		engine.WithConfig(cfg),
		engine.WithDevice(device),
		engine.WithFrameTarget(target),
	)
	defer eng.Close()

	requests := make([]loader.Request, len(paths))
	for i, p := range paths {
		requests[i] = loader.Request{Folder: filepath.Dir(p), Filename: filepath.Base(p), Show: true}
	}
	models, err := eng.Loader().LoadMany(ctx, requests)
	if err != nil {
		return err
	}

	cam := camera.NewCamera(camera.WithFar(10000), camera.WithController(camera.NewCameraController(
		camera.WithRadius(float32(*flagRadius)),
		camera.WithRadiusBounds(0.5, 20000),
	)))
	s := scene.NewScene(scene.WithName("inspect"), scene.WithCamera(cam))
	for i, m := range models {
		m.SetPosition(m.Position().Add(xOffset(i)))
		if err := s.Add(m); err != nil {
			return err
		}
	}
	defer s.Destroy()
	eng.AddScene(0, s)

	var counts emitter.PassCounts
	for frame := 0; frame < *flagFrames; frame++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if counts, err = eng.Frame(float32(*flagDelta)); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
	}

	report(os.Stdout, models, eng.Emitter(), counts, target.Frames(), device.Stats())
	return nil
}

func xOffset(i int) mgl32.Vec3 {
	return mgl32.Vec3{float32(i) * float32(*flagSpacing), 0, 0}
}

func report(out io.Writer, models []model.Model, em emitter.Emitter, total emitter.PassCounts, frames int, stats gpu.HeadlessStats) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tINSTANCE\tNODES\tMESHES\tPRIMITIVES\tSKINS\tANIMATIONS\tOPAQUE\tMASK\tBLEND")
	for _, m := range models {
		asset := m.Asset()
		prims := 0
		for _, mesh := range asset.Meshes {
			prims += len(mesh.Primitives)
		}
		c := em.Count(m)
		fmt.Fprintf(w, "%s\t%v\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			asset.Key, m.IsCopy(), asset.Nodes.Len(), len(asset.Meshes), prims, len(asset.Skins), len(asset.Animations),
			c[model.AlphaOpaque], c[model.AlphaMask], c[model.AlphaBlend])
	}
	w.Flush()

	fmt.Fprintf(out, "\nframes: %d  draws in last frame: %d (opaque %d, mask %d, blend %d)\n",
		frames, total.Total(), total[model.AlphaOpaque], total[model.AlphaMask], total[model.AlphaBlend])
	fmt.Fprintf(out, "buffers: %d live / %d created  textures: %d live / %d created  descriptor sets: %d live / %d created\n",
		stats.BuffersLive, stats.BuffersCreated, stats.TexturesLive, stats.TexturesCreated,
		stats.DescriptorSetsLive, stats.DescriptorSetsCreated)
}
