package rv64

import (
	"testing"
	"time"
)

func TestAddiChain(t *testing.T) {
	h := newTestHart()

	code := []uint32{
		li(10, 1),
		addi(10, 10, 1),
		addi(10, 10, 1),
		addi(10, 10, 1),
		li(17, int32(SyscallHalt)),
		ecall(),
	}
	writeProgram(h, code)
	runUntil(t, h, 100, Halt)

	if h.X[10] != 4 {
		t.Errorf("a0: expected 4, got %d", h.X[10])
	}
}

func TestEcallHaltStopsTheDriver(t *testing.T) {
	h := newTestHart()
	code := []uint32{
		li(17, int32(SyscallHalt)),
		ecall(),
	}
	writeProgram(h, code)
	runUntil(t, h, 10, Halt)
	if !h.Halt {
		t.Errorf("expected h.Halt to be set")
	}
}

func TestIllegalInstructionTrapsThenMretResumes(t *testing.T) {
	h := newTestHart()

	handlerAddr := DRAMBase + 0x1000
	h.CSR.Write(csrMtvec, handlerAddr) // Direct mode (low 2 bits == 0)

	code := []uint32{0xffffffff} // undefined opcode/funct3 -> illegal instruction
	writeProgram(h, code)

	ctx := testContext()
	outcome, err := Step(ctx, h)
	if outcome != ExceptionOutcome {
		t.Fatalf("expected ExceptionOutcome on illegal instruction, got %s (err=%v)", outcome.String(), err)
	}
	if h.CSR.Mcause() != CauseIllegalInstruction {
		t.Fatalf("mcause: expected %d, got %d", CauseIllegalInstruction, h.CSR.Mcause())
	}
	if h.PC != handlerAddr {
		t.Fatalf("pc: expected trap vector 0x%x, got 0x%x", handlerAddr, h.PC)
	}
	if h.CSR.Mepc() != DRAMBase {
		t.Fatalf("mepc: expected faulting pc 0x%x, got 0x%x", DRAMBase, h.CSR.Mepc())
	}

	// A real handler would adjust mepc past the faulting instruction
	// before returning; simulate that here, then MRET.
	h.CSR.SetMepc(DRAMBase + 4)
	h.X[5] = 0xdead // register state the MRET snapshot-swap must preserve
	pc, err := h.handleMret()
	if err != nil {
		t.Fatalf("handleMret: %v", err)
	}
	if pc != DRAMBase+4 {
		t.Fatalf("pc after mret: expected 0x%x, got 0x%x", DRAMBase+4, pc)
	}
	if h.CSR.Mcause() != 0 {
		t.Errorf("mcause after mret: expected cleared, got %d", h.CSR.Mcause())
	}
}

func TestInterruptEntrySnapshotsGPRsExceptionDoesNot(t *testing.T) {
	h := newTestHart()
	h.X[5] = 0x1111

	// Exception entry: no snapshot.
	h.handleException(&ExceptionError{Cause: CauseIllegalInstruction, Tval: 0})
	if h.SavedX[5] != 0 {
		t.Errorf("exception entry must not snapshot GPRs, got SavedX[5]=0x%x", h.SavedX[5])
	}

	// Interrupt entry: snapshots.
	h.handleInterrupt(MachineTimerInterrupt)
	if h.SavedX[5] != 0x1111 {
		t.Errorf("interrupt entry must snapshot GPRs, got SavedX[5]=0x%x", h.SavedX[5])
	}
}

func TestStrictMretRejectsZeroMcause(t *testing.T) {
	h := newTestHart()
	h.StrictMret = true
	h.CSR.SetMcause(0)

	_, err := h.handleMret()
	if err == nil {
		t.Fatalf("expected RuntimeFault, got nil")
	}
	exc, ok := err.(*ExceptionError)
	if !ok || exc.Cause != CauseRuntimeFault {
		t.Fatalf("expected RuntimeFault, got %v", err)
	}
}

func TestWfiParksUntilExternalInterrupt(t *testing.T) {
	h := newTestHart()
	code := []uint32{wfi(), li(10, 5)}
	writeProgram(h, code)

	ctx := testContext()
	outcome, _ := Step(ctx, h)
	if outcome != Continue {
		t.Fatalf("wfi step: expected Continue, got %s", outcome.String())
	}
	if !h.WFI.Get() {
		t.Fatalf("expected WFI flag to be set")
	}

	outcome, _ = Step(ctx, h)
	if outcome != WaitForInterrupt {
		t.Fatalf("expected WaitForInterrupt while parked, got %s", outcome.String())
	}

	h.APIC.Dispatch(MachineExternalInterrupt, NormalPriority)
	h.WFI.Set(false)

	outcome, _ = Step(ctx, h)
	if outcome != Continue {
		t.Fatalf("post-wake step: expected Continue, got %s", outcome.String())
	}
	if h.X[10] != 5 {
		t.Errorf("a0: expected the post-wfi instruction to have run, got %d", h.X[10])
	}
	if h.CSR.Mcause() == 0 || h.CSR.Mcause()&MaskInterruptBit == 0 {
		t.Errorf("expected the queued APIC interrupt to be entered, mcause=0x%x", h.CSR.Mcause())
	}
}

func TestIntCopiesCallerX10OntoTargetX10(t *testing.T) {
	bus := NewBus()
	iso := NewIsolate(testContext(), bus)
	boot := iso.BootHart()

	second := NewHart(0, bus, iso)
	second.WFI.Set(true)
	id := iso.addCore(second)
	second.ID = id

	boot.WriteReg(10, uint64(id)) // caller's x10: both the target id and the value copied
	if err := iso.Int(boot.ReadReg(10), boot.ReadReg(10)); err != nil {
		t.Fatalf("Int: %v", err)
	}

	if second.X[10] != uint64(id) {
		t.Errorf("target x10: expected the caller's x10 (%d) copied over, got %d", id, second.X[10])
	}
	if second.WFI.Get() {
		t.Errorf("expected Int to clear the target's WFI flag")
	}
	if second.APIC.Len() != 1 {
		t.Errorf("expected a MachineSoftwareInterrupt queued on the target's APIC, len=%d", second.APIC.Len())
	}
}

func TestSipiSpawnsAndRunsANewHart(t *testing.T) {
	bus := NewBus()
	iso := NewIsolate(testContext(), bus)

	entry := DRAMBase + 0x1000
	secondary := []uint32{
		li(20, 7),
		li(17, int32(SyscallHalt)),
		ecall(),
	}
	for i, insn := range secondary {
		bus.Write32(entry+uint64(i*4), insn)
	}

	ctx, cancel := testContextWithTimeout(time.Second)
	defer cancel()

	if err := iso.SIPI(ctx, entry); err != nil {
		t.Fatalf("SIPI: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		h := iso.GetHart(1)
		if h != nil && h.Halt {
			if h.X[20] != 7 {
				t.Errorf("secondary hart s4(x20): expected 7, got %d", h.X[20])
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("secondary hart never halted")
}
