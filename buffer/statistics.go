package buffer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks ring buffer activity. Counters are atomic so the writer
// and readers update them without contending on the ring lock.
type Statistics struct {
	writes       int64
	reads        int64
	overwrites   int64
	insufficient int64

	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

// Write records a sample write.
func (s *Statistics) Write() { atomic.AddInt64(&s.writes, 1) }

// Read records a successful window read.
func (s *Statistics) Read() { atomic.AddInt64(&s.reads, 1) }

// Overwrite records a write that displaced the oldest sample.
func (s *Statistics) Overwrite() { atomic.AddInt64(&s.overwrites, 1) }

// Insufficient records a window read rejected for lack of data.
func (s *Statistics) Insufficient() { atomic.AddInt64(&s.insufficient, 1) }

// UpdateSize updates the current buffer size.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Writes returns the total number of sample writes.
func (s *Statistics) Writes() int64 { return atomic.LoadInt64(&s.writes) }

// Reads returns the total number of successful window reads.
func (s *Statistics) Reads() int64 { return atomic.LoadInt64(&s.reads) }

// Overwrites returns the total number of displaced samples.
func (s *Statistics) Overwrites() int64 { return atomic.LoadInt64(&s.overwrites) }

// InsufficientReads returns the total number of under-filled window reads.
func (s *Statistics) InsufficientReads() int64 { return atomic.LoadInt64(&s.insufficient) }

// CurrentSize returns the current number of buffered samples.
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the high-water mark of buffered samples.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// Throughput returns the average number of writes per second since start.
func (s *Statistics) Throughput() float64 {
	s.mu.RLock()
	elapsed := time.Since(s.startTime)
	s.mu.RUnlock()

	if elapsed <= 0 {
		return 0.0
	}
	return float64(s.Writes()) / elapsed.Seconds()
}

// OverwriteRate returns the fraction of writes that displaced data (0.0-1.0).
func (s *Statistics) OverwriteRate() float64 {
	writes := s.Writes()
	if writes == 0 {
		return 0.0
	}
	return float64(s.Overwrites()) / float64(writes)
}

// Uptime returns how long the buffer has been running.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// StatsSummary is a point-in-time snapshot of all statistics.
type StatsSummary struct {
	Writes            int64         `json:"writes"`
	Reads             int64         `json:"reads"`
	Overwrites        int64         `json:"overwrites"`
	InsufficientReads int64         `json:"insufficient_reads"`
	CurrentSize       int64         `json:"current_size"`
	MaxSize           int64         `json:"max_size"`
	Throughput        float64       `json:"throughput"`
	OverwriteRate     float64       `json:"overwrite_rate"`
	Uptime            time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Writes:            s.Writes(),
		Reads:             s.Reads(),
		Overwrites:        s.Overwrites(),
		InsufficientReads: s.InsufficientReads(),
		CurrentSize:       s.CurrentSize(),
		MaxSize:           s.MaxSize(),
		Throughput:        s.Throughput(),
		OverwriteRate:     s.OverwriteRate(),
		Uptime:            s.Uptime(),
	}
}
