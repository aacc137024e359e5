package rv64

import "context"

const (
	insnECALL  uint32 = 0x00000073
	insnEBREAK uint32 = 0x00100073
	insnMRET   uint32 = 0x30200073
	insnWFI    uint32 = 0x10500073
)

// execSystem implements the SYSTEM opcode: ECALL, EBREAK, MRET, WFI,
// SFENCE.VMA and the CSR instructions.
func (h *Hart) execSystem(ctx context.Context, insn uint32) (uint64, error) {
	f3 := funct3(insn)

	if f3 == 0 {
		switch insn {
		case insnECALL:
			return h.handleEcall(ctx)
		case insnEBREAK:
			return 0, Exception(CauseBreakpoint, h.PC)
		case insnMRET:
			return h.handleMret()
		case insnWFI:
			h.WFI.Set(true)
			return h.PC + 4, nil
		default:
			if (insn >> 25) == 0b0001001 { // SFENCE.VMA
				return h.PC + 4, nil
			}
			return 0, Exception(CauseIllegalInstruction, uint64(insn))
		}
	}

	return h.execCSR(insn, f3)
}

// handleEcall looks up ivt[x17] and invokes its handler with exclusive
// access to the hart; CPU-time accounting is suspended across the call
// so handlers are not metered, per spec.md §4.6.
func (h *Hart) handleEcall(ctx context.Context) (uint64, error) {
	num := h.ReadReg(17)
	handler, ok := h.IVT.Lookup(num)
	if !ok {
		return 0, RuntimeFault(num)
	}

	h.Perf.EndCPUTime()
	err := handler.Handle(ctx, h)
	h.Perf.StartCPUTime()
	if err != nil {
		return 0, err
	}
	return h.PC + 4, nil
}

// handleMret reverses an interrupt entry: restores the GPR snapshot,
// jumps to mepc, clears mepc/mcause/mtval, and folds MPIE back into
// MIE. Precondition mcause != 0 is non-standard hardening (spec.md
// §9(c)), gated by Hart.StrictMret.
func (h *Hart) handleMret() (uint64, error) {
	if h.StrictMret && h.CSR.Mcause() == 0 {
		return 0, RuntimeFault(333)
	}

	for i := range h.X {
		h.X[i], h.SavedX[i] = h.SavedX[i], h.X[i]
	}

	pc := h.CSR.Mepc()
	h.CSR.SetMepc(0)
	h.CSR.SetMcause(0)
	h.CSR.SetMtval(0)

	h.CSR.SetMIE(h.CSR.MPIE())
	h.CSR.SetMPIE(false)

	return pc, nil
}

// execCSR implements csrrw/csrrs/csrrc and their immediate forms.
func (h *Hart) execCSR(insn uint32, f3 uint32) (uint64, error) {
	csr := uint16(insn >> 20)
	rdReg, rs1Reg := rd(insn), rs1(insn)

	rs1Val := h.ReadReg(rs1Reg)
	if f3 >= 5 {
		rs1Val = uint64(rs1Reg) // immediate forms reuse the rs1 field as a 5-bit literal
	}

	csrVal := h.CSR.Read(csr)

	var writeVal uint64
	var doWrite bool
	switch f3 & 3 {
	case 1: // CSRRW(I)
		writeVal = rs1Val
		doWrite = true
	case 2: // CSRRS(I)
		writeVal = csrVal | rs1Val
		doWrite = rs1Reg != 0
	case 3: // CSRRC(I)
		writeVal = csrVal &^ rs1Val
		doWrite = rs1Reg != 0
	default:
		return 0, Exception(CauseIllegalInstruction, uint64(insn))
	}

	if doWrite {
		h.CSR.Write(csr, writeVal)
	}
	h.WriteReg(rdReg, csrVal)
	return h.PC + 4, nil
}
