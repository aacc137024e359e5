package rv64

import (
	"sync"
	"time"
)

// CPUTimeLimit is the host-time budget a hart may run for while
// mpowerstate == PowerStateNormal before the Tick runner reports
// TimeLimit, per spec.md §4.8/§5.
const CPUTimeLimit = 10 * time.Millisecond

// PerformanceCounter accumulates a hart's elapsed CPU time and retired
// instruction count, and doubles as the clock source for the time CSR.
// cpuTime is behind a plain mutex (not a per-segment RWMutex) because
// it is only ever read by the same hart that writes it.
type PerformanceCounter struct {
	mu               sync.Mutex
	cpuTime          time.Duration
	cpuTimeStart     time.Time
	running          bool
	instructionsRetired uint64
}

// NewPerformanceCounter returns a zeroed counter.
func NewPerformanceCounter() *PerformanceCounter {
	return &PerformanceCounter{}
}

// StartCPUTime resumes metering; called at hart construction and after
// an ECALL handler returns.
func (p *PerformanceCounter) StartCPUTime() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		p.cpuTimeStart = time.Now()
		p.running = true
	}
}

// EndCPUTime pauses metering and folds the elapsed interval into
// cpuTime; called before invoking an ECALL handler so handlers are not
// metered, per spec.md §4.6.
func (p *PerformanceCounter) EndCPUTime() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.cpuTime += time.Since(p.cpuTimeStart)
		p.running = false
	}
}

// CPUTime returns the accumulated CPU time, including any currently
// in-flight interval.
func (p *PerformanceCounter) CPUTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.cpuTime
	if p.running {
		d += time.Since(p.cpuTimeStart)
	}
	return d
}

// NanosSinceStart is the live-read source for the time CSR: accumulated
// CPU time in nanoseconds.
func (p *PerformanceCounter) NanosSinceStart() uint64 {
	return uint64(p.CPUTime().Nanoseconds())
}

// RetireInstruction increments the retired-instruction counter.
func (p *PerformanceCounter) RetireInstruction() {
	p.mu.Lock()
	p.instructionsRetired++
	p.mu.Unlock()
}

// InstructionsRetired returns the retired-instruction count.
func (p *PerformanceCounter) InstructionsRetired() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instructionsRetired
}
