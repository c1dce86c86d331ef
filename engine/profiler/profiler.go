package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-matc/common"
)

// Stats is a summary of the compilations recorded since the last report.
type Stats struct {
	Compiled int
	Failed   int
	Total    time.Duration
	Max      time.Duration
	Slowest  string
	Elapsed  time.Duration

	// Memory figures come from runtime.ReadMemStats at report time.
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
}

// Rate returns the number of compilations per second of wall time.
func (s Stats) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Compiled+s.Failed) / s.Elapsed.Seconds()
}

// Mean returns the average duration of one compilation.
func (s Stats) Mean() time.Duration {
	n := s.Compiled + s.Failed
	if n == 0 {
		return 0
	}
	return s.Total / time.Duration(n)
}

// Profiler aggregates compile timings and memory statistics and reports them to the log
// at a configurable interval. Record is safe to call from multiple goroutines.
type Profiler struct {
	mu sync.Mutex

	compiled int
	failed   int
	total    time.Duration
	max      time.Duration
	slowest  string

	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

// SetUpdateInterval changes how often Tick reports.
//
// Parameters:
//   - d: the reporting interval; zero makes every Tick report
func (p *Profiler) SetUpdateInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateInterval = d
}

// Record adds one compilation to the current window.
//
// Parameters:
//   - name: the program name, reported when it is the slowest of the window
//   - d: how long the compilation took
//   - err: the compilation error, nil on success
func (p *Profiler) Record(name string, d time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.failed++
	} else {
		p.compiled++
	}
	p.total += d
	if d > p.max {
		p.max = d
		p.slowest = name
	}
}

// Tick logs the statistics of the current window when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.lastTime) < p.updateInterval {
		return false
	}
	p.reportLocked()
	return true
}

// Flush logs the statistics of the current window immediately and starts a new one.
//
// Returns:
//   - Stats: the statistics that were logged
func (p *Profiler) Flush() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reportLocked()
}

// reportLocked snapshots, logs, and resets the window. p.mu must be held.
func (p *Profiler) reportLocked() Stats {
	now := time.Now()
	elapsed := now.Sub(p.lastTime)

	runtime.ReadMemStats(&p.memStats)
	stats := Stats{
		Compiled: p.compiled,
		Failed:   p.failed,
		Total:    p.total,
		Max:      p.max,
		Slowest:  p.slowest,
		Elapsed:  elapsed,
		HeapMB:   float64(p.memStats.Alloc) / 1024 / 1024,
		GCCount:  p.memStats.NumGC,
	}
	if elapsed > 0 {
		allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
		stats.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()
	}

	common.Logger().Info("compile stats",
		"compiled", stats.Compiled,
		"failed", stats.Failed,
		"rate_per_sec", stats.Rate(),
		"mean", stats.Mean(),
		"max", stats.Max,
		"slowest", stats.Slowest,
		"heap_mb", stats.HeapMB,
		"alloc_rate_mb", stats.AllocRateMB,
		"gc", stats.GCCount,
	)

	p.compiled, p.failed = 0, 0
	p.total, p.max = 0, 0
	p.slowest = ""
	p.lastTime = now
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return stats
}
