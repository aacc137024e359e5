package rv64

// CSR addresses used by this core. Only a machine-mode register file is
// stored; sstatus/sie/sip are projections computed on access, never
// separate storage, per spec.md §4.2 and §9's "avoid a subclass
// hierarchy" guidance.
const (
	csrSstatus     uint16 = 0x100
	csrSie         uint16 = 0x104
	csrSip         uint16 = 0x144
	csrMstatus     uint16 = 0x300
	csrMedeleg     uint16 = 0x302
	csrMideleg     uint16 = 0x303
	csrMie         uint16 = 0x304
	csrMtvec       uint16 = 0x305
	csrMepc        uint16 = 0x341
	csrMcause      uint16 = 0x342
	csrMtval       uint16 = 0x343
	csrMip         uint16 = 0x344
	csrMconfigptr  uint16 = 0xF15
	csrTime        uint16 = 0xC01
	csrMpowerstate uint16 = 0x7C0
)

// mstatus field masks, bit positions per spec.md §4.2.
const (
	mstatusSIE  uint64 = 1 << 1
	mstatusMIE  uint64 = 1 << 3
	mstatusSPIE uint64 = 1 << 5
	mstatusMPIE uint64 = 1 << 7
	mstatusSPP  uint64 = 1 << 8
	mstatusMPP  uint64 = 3 << 11
)

// sstatusMask selects the S-mode-visible bits of mstatus.
const sstatusMask uint64 = mstatusSIE | mstatusSPIE | mstatusSPP

// Guest-writable mpowerstate values, per spec.md §6.
const (
	PowerStateNormal       uint64 = 1
	PowerStateBypassTimer  uint64 = 2
	PowerStateReserved     uint64 = 3
)

const numCSRs = 4096

// CSRFile is the dense 4096-slot control/status register bank. The
// backing array always holds the machine-mode value; sstatus/sie/sip
// reads and writes are hooks over it rather than separate storage.
type CSRFile struct {
	regs [numCSRs]uint64

	// clockNanos supplies the live-read value for the time CSR; it is
	// set by the owning Hart to its PerformanceCounter's accumulated
	// CPU time rather than stored in regs.
	clockNanos func() uint64

	// cpuidBase supplies the constant mconfigptr value.
	cpuidBase uint64
}

// NewCSRFile builds an empty CSR file. clockNanos and cpuidBase are
// wired in by the owning Hart at construction.
func NewCSRFile(clockNanos func() uint64, cpuidBase uint64) *CSRFile {
	f := &CSRFile{clockNanos: clockNanos, cpuidBase: cpuidBase}
	f.regs[csrMpowerstate] = PowerStateNormal
	return f
}

// Read returns the value observed at addr, applying the sstatus/sie/
// sip/time/mconfigptr projections.
func (f *CSRFile) Read(addr uint16) uint64 {
	switch addr {
	case csrSstatus:
		return f.regs[csrMstatus] & sstatusMask
	case csrSie:
		return f.regs[csrMie] & f.regs[csrMideleg]
	case csrSip:
		return f.regs[csrMip] & f.regs[csrMideleg]
	case csrTime:
		if f.clockNanos != nil {
			return f.clockNanos()
		}
		return 0
	case csrMconfigptr:
		return f.cpuidBase
	default:
		return f.regs[addr]
	}
}

// Write stores value at addr, routing sstatus/sie/sip through their
// backing machine-mode register masked appropriately. time and
// mconfigptr are read-only and silently ignore writes.
func (f *CSRFile) Write(addr uint16, value uint64) {
	switch addr {
	case csrSstatus:
		f.regs[csrMstatus] = (f.regs[csrMstatus] &^ sstatusMask) | (value & sstatusMask)
	case csrSie:
		deleg := f.regs[csrMideleg]
		f.regs[csrMie] = (f.regs[csrMie] &^ deleg) | (value & deleg)
	case csrSip:
		deleg := f.regs[csrMideleg]
		f.regs[csrMip] = (f.regs[csrMip] &^ deleg) | (value & deleg)
	case csrTime, csrMconfigptr:
		// read-only projections
	default:
		f.regs[addr] = value
	}
}

// MIE reports whether the global machine-mode interrupt-enable bit is set.
func (f *CSRFile) MIE() bool { return f.regs[csrMstatus]&mstatusMIE != 0 }

// SetMIE sets or clears the global machine-mode interrupt-enable bit.
func (f *CSRFile) SetMIE(v bool) {
	if v {
		f.regs[csrMstatus] |= mstatusMIE
	} else {
		f.regs[csrMstatus] &^= mstatusMIE
	}
}

// MPIE reports the previous-interrupt-enable bit.
func (f *CSRFile) MPIE() bool { return f.regs[csrMstatus]&mstatusMPIE != 0 }

// SetMPIE sets or clears the previous-interrupt-enable bit.
func (f *CSRFile) SetMPIE(v bool) {
	if v {
		f.regs[csrMstatus] |= mstatusMPIE
	} else {
		f.regs[csrMstatus] &^= mstatusMPIE
	}
}

// SetMPP sets the two-bit previous-privilege field; this core is
// machine-mode only so it is only ever observed, never branched on.
func (f *CSRFile) SetMPP(pp uint64) {
	f.regs[csrMstatus] = (f.regs[csrMstatus] &^ mstatusMPP) | ((pp << 11) & mstatusMPP)
}

func (f *CSRFile) Mtvec() uint64   { return f.regs[csrMtvec] }
func (f *CSRFile) Mepc() uint64    { return f.regs[csrMepc] }
func (f *CSRFile) Mcause() uint64  { return f.regs[csrMcause] }
func (f *CSRFile) Mtval() uint64   { return f.regs[csrMtval] }
func (f *CSRFile) Mie() uint64     { return f.regs[csrMie] }
func (f *CSRFile) Mip() uint64     { return f.regs[csrMip] }

func (f *CSRFile) SetMepc(v uint64)   { f.regs[csrMepc] = v }
func (f *CSRFile) SetMcause(v uint64) { f.regs[csrMcause] = v }
func (f *CSRFile) SetMtval(v uint64)  { f.regs[csrMtval] = v }

// SetMipBit sets or clears bit in mip.
func (f *CSRFile) SetMipBit(bit uint64, v bool) {
	if v {
		f.regs[csrMip] |= bit
	} else {
		f.regs[csrMip] &^= bit
	}
}

// PowerState returns the current mpowerstate value.
func (f *CSRFile) PowerState() uint64 { return f.regs[csrMpowerstate] }

// SetPowerState seeds mpowerstate, used to apply a config spec's
// initial runtime.power_state before the boot hart starts running.
func (f *CSRFile) SetPowerState(v uint64) { f.regs[csrMpowerstate] = v }
