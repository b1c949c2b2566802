package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"dyphal/internal/metrics"
)

// Config configures a Guard.
type Config struct {
	// Limit is the memory budget in bytes. Zero uses GOMEMLIMIT, and with
	// neither set the guard never pauses.
	Limit int64

	// HighWaterMark is the share of Limit below which paused callers
	// resume.
	HighWaterMark float64

	// CriticalWaterMark is the share of Limit at which callers pause.
	CriticalWaterMark float64

	CheckInterval time.Duration
}

// DefaultConfig returns the settings used for photo conversion.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     time.Second,
	}
}

// Guard pauses memory-hungry work while heap allocation is critical.
type Guard struct {
	config Config
	limit  int64
	sample func() uint64

	stopOnce sync.Once
	stop     chan struct{}

	mu      sync.RWMutex
	current uint64
	paused  bool
	resume  chan struct{}
}

// NewGuard returns a stopped Guard.
func NewGuard(config Config) *Guard {
	limit := config.Limit
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
		}
	}
	if limit == 0 {
		log.Debug("no memory limit configured, conversion will not be throttled")
	} else {
		log.Debug("throttling conversion above %s", FormatBytes(int64(float64(limit)*config.CriticalWaterMark)))
	}

	return &Guard{
		config: config,
		limit:  limit,
		sample: heapAlloc,
		stop:   make(chan struct{}),
		resume: make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Enabled reports whether the guard has a limit to enforce.
func (g *Guard) Enabled() bool {
	return g.limit > 0
}

// Start begins sampling memory in the background.
func (g *Guard) Start() {
	if !g.Enabled() {
		return
	}
	go g.loop()
}

// Stop ends sampling and releases every waiter.
func (g *Guard) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

func (g *Guard) loop() {
	ticker := time.NewTicker(g.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.check()
		case <-g.stop:
			return
		}
	}
}

func (g *Guard) check() {
	alloc := g.sample()
	usage := float64(alloc) / float64(g.limit)
	metrics.MemoryUsageRatio.Set(usage)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = alloc

	switch {
	case !g.paused && usage >= g.config.CriticalWaterMark:
		log.Warn("memory critical (%.1f%% of limit), pausing conversion", usage*100)
		g.paused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryPauses.Inc()
		go runtime.GC()
	case g.paused && usage < g.config.HighWaterMark:
		log.Info("memory recovered (%.1f%% of limit), resuming conversion", usage*100)
		g.paused = false
		metrics.MemoryPaused.Set(0)
		close(g.resume)
		g.resume = make(chan struct{})
	}
}

// Wait returns once memory allows work to proceed, when the guard is
// stopped, or with ctx's error when ctx ends first.
func (g *Guard) Wait(ctx context.Context) error {
	g.mu.RLock()
	if !g.paused {
		g.mu.RUnlock()
		return nil
	}
	resume := g.resume
	g.mu.RUnlock()

	select {
	case <-resume:
		return nil
	case <-g.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Paused reports whether callers of Wait are currently held.
func (g *Guard) Paused() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paused
}

// Usage returns the last sampled allocation as a share of the limit, or 0
// without a limit.
func (g *Guard) Usage() float64 {
	if g.limit == 0 {
		return 0
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return float64(g.current) / float64(g.limit)
}
