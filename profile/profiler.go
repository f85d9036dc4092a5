// Package profile captures pprof profiles and heap samples around
// benchmark runs.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync"
	"time"
)

// Config configures the profiler
type Config struct {
	Dir             string        `json:"dir" yaml:"dir"`
	CPU             bool          `json:"cpu" yaml:"cpu"`
	Memory          bool          `json:"memory" yaml:"memory"`
	Block           bool          `json:"block" yaml:"block"`
	Goroutine       bool          `json:"goroutine" yaml:"goroutine"`
	MetricsInterval time.Duration `json:"metrics_interval" yaml:"metrics_interval"`
}

// DefaultConfig writes CPU and heap profiles into dir and samples the heap
// every 100ms
func DefaultConfig(dir string) Config {
	return Config{
		Dir:             dir,
		CPU:             true,
		Memory:          true,
		MetricsInterval: 100 * time.Millisecond,
	}
}

// MemorySample represents memory usage at a point in time
type MemorySample struct {
	Timestamp  time.Time `json:"timestamp"`
	HeapAlloc  uint64    `json:"heap_alloc"`  // Bytes allocated and still in use
	TotalAlloc uint64    `json:"total_alloc"` // Bytes allocated (even if freed)
	Sys        uint64    `json:"sys"`         // Bytes obtained from system
	HeapInuse  uint64    `json:"heap_inuse"`  // Bytes in in-use spans
	NumGC      uint32    `json:"num_gc"`
}

// SampleMemory reads the current runtime memory statistics
func SampleMemory() MemorySample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return MemorySample{
		Timestamp:  time.Now(),
		HeapAlloc:  ms.HeapAlloc,
		TotalAlloc: ms.TotalAlloc,
		Sys:        ms.Sys,
		HeapInuse:  ms.HeapInuse,
		NumGC:      ms.NumGC,
	}
}

// RetainedHeap runs a collection and returns the live heap size
func RetainedHeap() uint64 {
	runtime.GC()
	return SampleMemory().HeapAlloc
}

// Profiler manages pprof output and periodic heap sampling
type Profiler struct {
	mu      sync.Mutex
	config  Config
	cpuFile *os.File
	running bool
	files   []string

	samples  []MemorySample
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a profiler writing into config.Dir
func New(config Config) (*Profiler, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("profile directory is required")
	}
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	return &Profiler{config: config}, nil
}

// Start begins CPU profiling and heap sampling
func (p *Profiler) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("profiler already running")
	}

	if p.config.CPU {
		path := p.path("cpu")
		cpuFile, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			cpuFile.Close()
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		p.cpuFile = cpuFile
		p.files = append(p.files, path)
	}

	if p.config.Block {
		runtime.SetBlockProfileRate(1)
	}

	p.samples = []MemorySample{SampleMemory()}
	if p.config.MetricsInterval > 0 {
		p.stopChan = make(chan struct{})
		p.wg.Add(1)
		go p.collectMetrics(p.stopChan)
	}

	p.running = true
	return nil
}

// Stop ends profiling, writes the remaining profiles and returns every file
// written
func (p *Profiler) Stop() ([]string, error) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil, fmt.Errorf("profiler not running")
	}
	p.running = false
	stop := p.stopChan
	p.stopChan = nil
	p.mu.Unlock()

	// The sampler takes the lock, so wait for it outside.
	if stop != nil {
		close(stop)
		p.wg.Wait()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.samples = append(p.samples, SampleMemory())

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		p.cpuFile.Close()
		p.cpuFile = nil
	}

	if p.config.Memory {
		runtime.GC()
		if err := p.writeProfile("heap"); err != nil {
			return p.files, fmt.Errorf("failed to write memory profile: %w", err)
		}
	}
	if p.config.Goroutine {
		if err := p.writeProfile("goroutine"); err != nil {
			return p.files, fmt.Errorf("failed to write goroutine profile: %w", err)
		}
	}
	if p.config.Block {
		err := p.writeProfile("block")
		runtime.SetBlockProfileRate(0)
		if err != nil {
			return p.files, fmt.Errorf("failed to write block profile: %w", err)
		}
	}

	return append([]string(nil), p.files...), nil
}

// Samples returns a copy of the heap samples collected so far
func (p *Profiler) Samples() []MemorySample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]MemorySample(nil), p.samples...)
}

// PeakHeap returns the largest sampled live heap
func (p *Profiler) PeakHeap() uint64 {
	var peak uint64
	for _, s := range p.Samples() {
		peak = max(peak, s.HeapAlloc)
	}
	return peak
}

// collectMetrics runs the sampling loop
func (p *Profiler) collectMetrics(stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			sample := SampleMemory()
			p.mu.Lock()
			p.samples = append(p.samples, sample)
			p.mu.Unlock()
		}
	}
}

// writeProfile writes a named runtime profile to disk
func (p *Profiler) writeProfile(name string) error {
	path := p.path(name)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := pprof.Lookup(name).WriteTo(file, 0); err != nil {
		return err
	}
	p.files = append(p.files, path)
	return nil
}

func (p *Profiler) path(name string) string {
	return filepath.Join(p.config.Dir, name+".prof")
}
