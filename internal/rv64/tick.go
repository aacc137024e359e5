package rv64

import "context"

// Outcome classifies the result of a single Tick step.
type Outcome int

const (
	Continue Outcome = iota
	WaitForInterrupt
	ExceptionOutcome
	Eof
	Halt
	TimeLimit
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "Continue"
	case WaitForInterrupt:
		return "WaitForInterrupt"
	case ExceptionOutcome:
		return "Exception"
	case Eof:
		return "Eof"
	case Halt:
		return "Halt"
	case TimeLimit:
		return "TimeLimit"
	default:
		return "Unknown"
	}
}

// Step drives h through exactly one instruction, per spec.md §4.8's
// seven-step algorithm.
func Step(ctx context.Context, h *Hart) (Outcome, error) {
	h.Lock()
	defer h.Unlock()

	if h.WFI.Get() {
		return WaitForInterrupt, nil
	}

	insn, err := h.Bus.Read32(h.PC)
	if err != nil {
		fault := &ExceptionError{Cause: CauseInstructionAccessFault, Tval: h.PC}
		h.handleException(fault)
		if fault.Cause == CauseInstructionAccessFault && fault.Tval == 0 {
			return Eof, nil
		}
		return ExceptionOutcome, fault
	}

	newPC, err := h.Execute(ctx, insn)
	if err != nil {
		var exc *ExceptionError
		if asException(err, &exc) {
			h.handleException(exc)
			return ExceptionOutcome, exc
		}
		return ExceptionOutcome, err
	}

	h.PC = newPC
	h.Perf.RetireInstruction()

	if h.Halt {
		return Halt, nil
	}

	if h.CSR.PowerState() == PowerStateNormal && h.Perf.CPUTime() > CPUTimeLimit {
		return TimeLimit, nil
	}

	if interrupt, ok := h.checkPendingInterrupt(); ok {
		h.handleInterrupt(interrupt)
	}
	return Continue, nil
}

// asException unwraps err into an *ExceptionError if it is one.
func asException(err error, target **ExceptionError) bool {
	if e, ok := err.(*ExceptionError); ok {
		*target = e
		return true
	}
	return false
}

// handleException enters the trap machinery for a synchronous fault:
// no GPR snapshot, mepc/mcause/mtval recorded, pc redirected via
// mtvec, MPIE<-MIE, MIE cleared, MPP forced to machine mode.
func (h *Hart) handleException(e *ExceptionError) {
	h.CSR.SetMepc(h.PC)
	h.CSR.SetMcause(e.Cause)
	h.CSR.SetMtval(e.Tval)
	h.PC = h.CSR.Mtvec() &^ 3

	h.CSR.SetMPIE(h.CSR.MIE())
	h.CSR.SetMIE(false)
	h.CSR.SetMPP(0b11)
}

// handleInterrupt enters the trap machinery for an asynchronous event:
// snapshots all GPRs into SavedX, computes pc from mtvec's Direct/
// Vectored mode, and adjusts MIE/MPIE without touching MPP. MRET
// reverses this.
func (h *Hart) handleInterrupt(i Interrupt) {
	copy(h.SavedX[:], h.X[:])

	mtvec := h.CSR.Mtvec()
	base := mtvec &^ 3
	mode := mtvec & 3

	var pc uint64
	if mode == 1 {
		pc = base + 4*uint64(i)
	} else {
		pc = base
	}

	h.CSR.SetMepc(h.PC)
	h.PC = pc
	h.CSR.SetMcause(i.Code())
	h.CSR.SetMtval(0)

	h.CSR.SetMPIE(h.CSR.MIE())
	h.CSR.SetMIE(false)
}

// checkPendingInterrupt implements spec.md §4.5's fixed-priority
// ladder followed by the APIC queue.
func (h *Hart) checkPendingInterrupt() (Interrupt, bool) {
	fixedOrder := []Interrupt{
		MachineExternalInterrupt,
		MachineSoftwareInterrupt,
		MachineTimerInterrupt,
		SupervisorExternalInterrupt,
		SupervisorSoftwareInterrupt,
		SupervisorTimerInterrupt,
	}

	mie, mip := h.CSR.Mie(), h.CSR.Mip()
	for _, i := range fixedOrder {
		bit, _ := i.mipBit()
		if mie&mip&bit != 0 {
			h.CSR.SetMipBit(bit, false)
			return i, true
		}
	}

	return h.APIC.Get()
}

// Drive is the outer driver loop: park on WFI until it clears, then
// step repeatedly until an outcome other than Continue, reporting each
// outcome to observer (if non-nil) and stopping unless the outcome was
// WaitForInterrupt.
func Drive(ctx context.Context, h *Hart, observer Observer) {
	for {
		h.WFI.Wait(false)

		for {
			outcome, err := Step(ctx, h)
			if observer != nil {
				observer(h, outcome, err)
			}
			if outcome == WaitForInterrupt {
				break
			}
			if outcome != Continue {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}
