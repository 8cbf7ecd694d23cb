package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/engine/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/logger"
	"go.uber.org/zap"
)

// Stats is one logged window of frame statistics.
type Stats struct {
	Frames      int
	FPS         float64
	AvgUpdate   time.Duration
	AvgDraw     time.Duration
	Draws       int
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	MaxPauseUs  uint64
}

// Profiler tracks frame rate, update and draw timings and memory statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	mu     sync.Mutex
	cfg    config.ProfilerConfig
	logger *zap.Logger
	now    func() time.Time

	frameCount     int
	lastTime       time.Time
	updateTotal    time.Duration
	updateCount    int
	drawTotal      time.Duration
	drawCount      int
	draws          int
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// NewProfiler creates a new Profiler. The interval defaults to 1 second.
//
// Parameters:
//   - options: functional options for configuring the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		cfg: config.Default().Profiler,
		now: time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Named("profiler")
	}
	if p.cfg.Interval <= 0 {
		p.cfg.Interval = time.Second
	}
	p.lastTime = p.now()
	return p
}

// Enabled reports whether Tick logs statistics.
func (p *Profiler) Enabled() bool {
	return p.cfg.Enabled
}

// RecordUpdate adds the duration of one model update pass to the current window.
//
// Parameters:
//   - d: the elapsed update time
func (p *Profiler) RecordUpdate(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateTotal += d
	p.updateCount++
}

// RecordDraw adds the duration and draw count of one emission pass to the current window.
//
// Parameters:
//   - d: the elapsed emission time
//   - draws: the number of draws recorded
func (p *Profiler) RecordDraw(d time.Duration, draws int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drawTotal += d
	p.drawCount++
	p.draws += draws
}

// Last returns the statistics of the most recently completed window.
func (p *Profiler) Last() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the profiler is enabled and the interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	if !p.cfg.Enabled {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.cfg.Interval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	stats := Stats{
		Frames:      p.frameCount,
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		Draws:       p.draws,
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
	}
	if p.updateCount > 0 {
		stats.AvgUpdate = p.updateTotal / time.Duration(p.updateCount)
	}
	if p.drawCount > 0 {
		stats.AvgDraw = p.drawTotal / time.Duration(p.drawCount)
	}

	// PauseNs is a circular buffer of the last 256 GC pauses
	startIdx := p.lastGCCount
	if stats.GCCount-startIdx > 256 {
		startIdx = stats.GCCount - 256
	}
	for i := startIdx; i < stats.GCCount; i++ {
		stats.MaxPauseUs = max(stats.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	p.logger.Info("frame stats",
		zap.Float64("fps", stats.FPS),
		zap.Duration("avg_update", stats.AvgUpdate),
		zap.Duration("avg_draw", stats.AvgDraw),
		zap.Int("draws", stats.Draws),
		zap.Float64("heap_mb", stats.HeapMB),
		zap.Float64("alloc_rate_mb_s", stats.AllocRateMB),
		zap.Uint32("gc", stats.GCCount),
		zap.Uint64("gc_max_pause_us", stats.MaxPauseUs),
	)

	p.last = stats
	p.frameCount = 0
	p.lastTime = currentTime
	p.updateTotal, p.updateCount = 0, 0
	p.drawTotal, p.drawCount, p.draws = 0, 0, 0
	p.lastGCCount = stats.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
