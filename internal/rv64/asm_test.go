package rv64

import (
	"context"
	"time"
)

// Tiny in-package assembler used only by tests, so instruction streams
// are built from named fields instead of hand-derived hex literals.

func testContext() context.Context { return context.Background() }

func testContextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func encodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeI(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return uint32(imm)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeS(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	lo := u & 0x1f
	hi := (u >> 5) & 0x7f
	return hi<<25 | rs2<<20 | rs1<<15 | funct3<<12 | lo<<7 | opcode
}

func encodeB(funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	b11 := (u >> 11) & 1
	b4_1 := (u >> 1) & 0xf
	b10_5 := (u >> 5) & 0x3f
	b12 := (u >> 12) & 1
	return b12<<31 | b10_5<<25 | rs2<<20 | rs1<<15 | funct3<<12 | b4_1<<8 | b11<<7 | opBranch
}

func addi(rd, rs1 uint32, imm int32) uint32 { return encodeI(opOpImm, rd, 0b000, rs1, imm) }
func li(rd uint32, imm int32) uint32        { return addi(rd, 0, imm) }
func add(rd, rs1, rs2 uint32) uint32        { return encodeR(opOp, rd, 0b000, rs1, rs2, 0) }
func sub(rd, rs1, rs2 uint32) uint32        { return encodeR(opOp, rd, 0b000, rs1, rs2, 0b0100000) }
func and(rd, rs1, rs2 uint32) uint32        { return encodeR(opOp, rd, 0b111, rs1, rs2, 0) }
func or(rd, rs1, rs2 uint32) uint32         { return encodeR(opOp, rd, 0b110, rs1, rs2, 0) }
func xorOp(rd, rs1, rs2 uint32) uint32      { return encodeR(opOp, rd, 0b100, rs1, rs2, 0) }
func mul(rd, rs1, rs2 uint32) uint32        { return encodeR(opOp, rd, 0b000, rs1, rs2, 0b0000001) }
func divu(rd, rs1, rs2 uint32) uint32       { return encodeR(opOp, rd, 0b101, rs1, rs2, 0b0000001) }
func remu(rd, rs1, rs2 uint32) uint32       { return encodeR(opOp, rd, 0b111, rs1, rs2, 0b0000001) }
func beq(rs1, rs2 uint32, imm int32) uint32 { return encodeB(0b000, rs1, rs2, imm) }
func sw(rs1, rs2 uint32, imm int32) uint32  { return encodeS(opStore, 0b010, rs1, rs2, imm) }
func lw(rd, rs1 uint32, imm int32) uint32   { return encodeI(opLoad, rd, 0b010, rs1, imm) }
func ecall() uint32                         { return insnECALL }
func wfi() uint32                           { return insnWFI }
func mret() uint32                          { return insnMRET }

func amoswapD(rd, rs1, rs2 uint32) uint32 {
	return encodeR(opAMO, rd, 0b011, rs1, rs2, amoSwap<<2)
}

// writeProgram installs code at DRAM base and parks PC there.
func writeProgram(h *Hart, code []uint32) {
	for i, insn := range code {
		h.Bus.Write32(DRAMBase+uint64(i*4), insn)
	}
	h.PC = DRAMBase
}

// newTestHart builds a standalone Isolate+boot hart over a fresh Bus.
func newTestHart() *Hart {
	iso := NewIsolate(testContext(), NewBus())
	return iso.BootHart()
}
