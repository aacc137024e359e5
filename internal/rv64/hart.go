package rv64

import (
	"fmt"
	"sync"
	"weak"
)

// Hart is a single hardware thread of execution: integer and floating
// point register files, a program counter, and the per-hart resources
// (CSR file, APIC, IVT, performance counter) a Tick runner drives.
type Hart struct {
	ID uint16

	// mu guards every field below against concurrent access from the
	// hart's own Tick runner and from another hart's INT syscall,
	// per spec.md §5's "each hart is guarded by its own asynchronous
	// mutex".
	mu sync.Mutex

	X      [32]uint64
	F      [32]float64
	SavedX [32]uint64
	PC     uint64

	CSR  *CSRFile
	APIC *APIC
	IVT  *IVT
	Perf *PerformanceCounter

	WFI  *StateFlow
	Halt bool

	// StrictMret enforces spec.md §9(c)'s non-standard mcause != 0
	// precondition on MRET; an embedder may disable it for workloads
	// that legitimately return from a zero-mcause state.
	StrictMret bool

	Bus *Bus

	// isolate is a weak back-reference: the Isolate owns its harts, so
	// a hart must not keep it alive. Syscalls that need the Isolate
	// upgrade via Isolate() and abort the step if the program has
	// already been torn down.
	isolate weak.Pointer[Isolate]
}

// NewHart builds a hart bound to bus and iso, with a fresh PC, an IVT
// holding only the four core-mandated handlers (the rest left for the
// creator to install) and CPU-time accounting already running.
func NewHart(id uint16, bus *Bus, iso *Isolate) *Hart {
	perf := NewPerformanceCounter()
	h := &Hart{
		ID:         id,
		Bus:        bus,
		Perf:       perf,
		APIC:       NewAPIC(),
		IVT:        NewIVT(),
		WFI:        NewStateFlow(false),
		StrictMret: true,
		isolate:    weak.Make(iso),
	}
	h.CSR = NewCSRFile(perf.NanosSinceStart, HardwareBase+CPUIDOffset)
	perf.StartCPUTime()
	return h
}

// Isolate upgrades the weak back-reference, returning nil if the
// owning Isolate has already been torn down.
func (h *Hart) Isolate() *Isolate {
	return h.isolate.Value()
}

// Lock acquires the hart's exclusive-access mutex. Held across a single
// Tick step and across another hart's INT manipulation of this hart's
// registers and APIC.
func (h *Hart) Lock() { h.mu.Lock() }

// Unlock releases the hart's exclusive-access mutex.
func (h *Hart) Unlock() { h.mu.Unlock() }

// ReadReg reads an integer register; x0 always reads zero.
func (h *Hart) ReadReg(reg uint32) uint64 {
	if reg == 0 {
		return 0
	}
	return h.X[reg]
}

// WriteReg writes an integer register; writes to x0 are discarded.
func (h *Hart) WriteReg(reg uint32, value uint64) {
	if reg != 0 {
		h.X[reg] = value
	}
}

// ForceZeroX0 re-establishes x0 == 0 before every instruction, per
// spec.md §4.3.
func (h *Hart) ForceZeroX0() {
	h.X[0] = 0
}

// signExtend sign-extends val, whose significant bits count is bits,
// to a full 64-bit two's-complement value.
func signExtend(val uint64, bits int) int64 {
	shift := 64 - bits
	return int64(val<<shift) >> shift
}

// Dump renders a one-line summary of hart state for host-observable
// failure strings, per spec.md §7.
func (h *Hart) Dump(cause uint64) string {
	return fmt.Sprintf(
		"hart %d: cause=%d pc=0x%x ra=0x%x sp=0x%x a0=0x%x a7=0x%x mepc=0x%x mcause=0x%x mtval=0x%x mstatus=0x%x",
		h.ID, cause, h.PC, h.X[1], h.X[2], h.X[10], h.X[17],
		h.CSR.Mepc(), h.CSR.Mcause(), h.CSR.Mtval(), h.CSR.Read(csrMstatus),
	)
}

// DumpRegisters renders the full integer register file.
func (h *Hart) DumpRegisters() string {
	s := ""
	for i := 0; i < 32; i++ {
		s += fmt.Sprintf("x%-2d=0x%016x ", i, h.X[i])
		if i%4 == 3 {
			s += "\n"
		}
	}
	return s
}
