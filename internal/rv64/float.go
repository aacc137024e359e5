package rv64

import "math"

// OP-FP funct7 encodings used by this core (RV64D subset plus the
// mandatory non-standard intrinsics). Registers are stored as
// IEEE-754 binary64 directly (spec.md §3), so single-precision values
// round-trip through float32 at the point a narrow/widen op runs.
const (
	fpAddD    uint32 = 0b0000001
	fpSubD    uint32 = 0b0000101
	fpMulD    uint32 = 0b0001001
	fpDivD    uint32 = 0b0001101
	fpSgnjD   uint32 = 0b0010001
	fpMinMaxD uint32 = 0b0010101
	fpCvtSD   uint32 = 0b0100000 // narrow double->single
	fpCvtDS   uint32 = 0b0100001 // widen single->double
	fpSqrtS   uint32 = 0b0101100
	fpCmpD    uint32 = 0b1010001
	fpMvXD    uint32 = 0b1110001
	fpMvDX    uint32 = 0b1111001
	fpCvtWD   uint32 = 0b1100001 // double -> w/wu/l/lu
	fpCvtDW   uint32 = 0b1101001 // w/wu/l/lu -> double

	// Non-standard, mandatory per spec.md §4.3/§9(d).
	fpNonStd1 uint32 = 0x70 // fpow, fcbrt
	fpNonStd2 uint32 = 0x72 // fsin, fcos, fatan2
	fpNonStd3 uint32 = 0x73 // frem, fround
)

func (h *Hart) execLoadFP(insn uint32) (uint64, error) {
	addr := uint64(int64(h.ReadReg(rs1(insn))) + immI(insn))

	switch funct3(insn) {
	case 0b010: // FLW: widen f32 -> f64 in register
		v, err := h.Bus.Read32(addr)
		if err != nil {
			return 0, Exception(CauseLoadAccessFault, addr)
		}
		h.F[rd(insn)] = float64(math.Float32frombits(v))
	case 0b011: // FLD
		v, err := h.Bus.Read64(addr)
		if err != nil {
			return 0, Exception(CauseLoadAccessFault, addr)
		}
		h.F[rd(insn)] = math.Float64frombits(v)
	default:
		return 0, Exception(CauseIllegalInstruction, uint64(insn))
	}
	return h.PC + 4, nil
}

func (h *Hart) execStoreFP(insn uint32) (uint64, error) {
	addr := uint64(int64(h.ReadReg(rs1(insn))) + immS(insn))

	switch funct3(insn) {
	case 0b010: // FSW: narrow f64 -> f32, write 32 bits
		v := math.Float32bits(float32(h.F[rs2(insn)]))
		if err := h.Bus.Write32(addr, v); err != nil {
			return 0, Exception(CauseStoreAMOAccessFault, addr)
		}
	case 0b011: // FSD
		if err := h.Bus.Write64(addr, math.Float64bits(h.F[rs2(insn)])); err != nil {
			return 0, Exception(CauseStoreAMOAccessFault, addr)
		}
	default:
		return 0, Exception(CauseIllegalInstruction, uint64(insn))
	}
	return h.PC + 4, nil
}

func boolF(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (h *Hart) execOpFP(insn uint32) (uint64, error) {
	f7 := funct7(insn)
	f3 := funct3(insn)
	rdReg, rs1Reg, rs2Reg := rd(insn), rs1(insn), rs2(insn)
	a, b := h.F[rs1Reg], h.F[rs2Reg]

	switch f7 {
	case fpAddD:
		h.F[rdReg] = a + b
	case fpSubD:
		h.F[rdReg] = a - b
	case fpMulD:
		h.F[rdReg] = a * b
	case fpDivD:
		h.F[rdReg] = a / b
	case fpSgnjD:
		switch f3 {
		case 0b000: // FSGNJ.D
			h.F[rdReg] = math.Copysign(a, b)
		case 0b001: // FSGNJN.D
			h.F[rdReg] = math.Copysign(a, -b)
		case 0b010: // FSGNJX.D
			if math.Signbit(a) != math.Signbit(b) {
				h.F[rdReg] = math.Copysign(a, -1)
			} else {
				h.F[rdReg] = math.Copysign(a, 1)
			}
		default:
			return 0, Exception(CauseIllegalInstruction, uint64(insn))
		}
	case fpMinMaxD:
		switch f3 {
		case 0b000: // FMIN.D
			h.F[rdReg] = math.Min(a, b)
		case 0b001: // FMAX.D
			h.F[rdReg] = math.Max(a, b)
		default:
			return 0, Exception(CauseIllegalInstruction, uint64(insn))
		}
	case fpCvtSD: // FCVT.S.D
		h.F[rdReg] = float64(float32(a))
	case fpCvtDS: // FCVT.D.S
		h.F[rdReg] = float64(float32(a))
	case fpSqrtS: // FSQRT.S
		h.F[rdReg] = float64(float32(math.Sqrt(float64(float32(a)))))
	case fpCmpD:
		switch f3 {
		case 0b010: // FEQ.D
			h.WriteReg(rdReg, boolF(a == b))
		case 0b001: // FLT.D
			h.WriteReg(rdReg, boolF(a < b))
		case 0b000: // FLE.D
			h.WriteReg(rdReg, boolF(a <= b))
		default:
			return 0, Exception(CauseIllegalInstruction, uint64(insn))
		}
		return h.PC + 4, nil
	case fpMvXD: // FMV.X.D
		h.WriteReg(rdReg, math.Float64bits(a))
		return h.PC + 4, nil
	case fpMvDX: // FMV.D.X
		h.F[rdReg] = math.Float64frombits(h.ReadReg(rs1Reg))
	case fpCvtWD: // FCVT.{W,WU,L,LU}.D
		h.WriteReg(rdReg, fcvtFromDouble(a, rs2Reg))
		return h.PC + 4, nil
	case fpCvtDW: // FCVT.D.{W,WU,L,LU}
		h.F[rdReg] = fcvtToDouble(h.ReadReg(rs1Reg), rs2Reg)
	case fpNonStd1:
		switch f3 {
		case 0: // fpow
			h.F[rdReg] = math.Pow(a, b)
		case 1: // fcbrt
			h.F[rdReg] = math.Cbrt(a)
		default:
			return 0, Exception(CauseIllegalInstruction, uint64(insn))
		}
	case fpNonStd2:
		switch f3 {
		case 0: // fsin
			h.F[rdReg] = math.Sin(a)
		case 1: // fcos
			h.F[rdReg] = math.Cos(a)
		case 2: // fatan2
			h.F[rdReg] = math.Atan2(a, b)
		default:
			return 0, Exception(CauseIllegalInstruction, uint64(insn))
		}
	case fpNonStd3:
		switch f3 {
		case 0: // frem
			h.F[rdReg] = math.Mod(a, b)
		case 1: // fround
			h.F[rdReg] = math.Round(a)
		default:
			return 0, Exception(CauseIllegalInstruction, uint64(insn))
		}
	default:
		return 0, Exception(CauseIllegalInstruction, uint64(insn))
	}
	return h.PC + 4, nil
}

// fcvtFromDouble converts a double to an integer register value per
// the rs2 sub-selector: 0=W (int32), 1=WU (uint32), 2=L (int64), 3=LU.
func fcvtFromDouble(a float64, sel uint32) uint64 {
	switch sel {
	case 0:
		return uint64(int64(int32(a)))
	case 1:
		return uint64(uint32(a))
	case 2:
		return uint64(int64(a))
	case 3:
		return uint64(a)
	default:
		return 0
	}
}

// fcvtToDouble converts an integer register value to a double per the
// rs2 sub-selector: 0=W, 1=WU, 2=L, 3=LU.
func fcvtToDouble(x uint64, sel uint32) float64 {
	switch sel {
	case 0:
		return float64(int32(x))
	case 1:
		return float64(uint32(x))
	case 2:
		return float64(int64(x))
	case 3:
		return float64(x)
	default:
		return 0
	}
}

// execFMA implements the fused multiply-add family (madd/msub/nmsub/nmadd).
func (h *Hart) execFMA(insn uint32, op uint32) (uint64, error) {
	a := h.F[rs1(insn)]
	b := h.F[rs2(insn)]
	c := h.F[rs3(insn)]

	var val float64
	switch op {
	case opMadd:
		val = a*b + c
	case opMsub:
		val = a*b - c
	case opNmsub:
		val = -(a*b - c)
	case opNmadd:
		val = -(a*b + c)
	default:
		return 0, Exception(CauseIllegalInstruction, uint64(insn))
	}
	h.F[rd(insn)] = val
	return h.PC + 4, nil
}
