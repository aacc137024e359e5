package rv64

import "fmt"

// Exception causes, ISA numbering plus the non-standard RuntimeFault.
const (
	CauseInstructionAddrMisaligned uint64 = 0
	CauseInstructionAccessFault    uint64 = 1
	CauseIllegalInstruction        uint64 = 2
	CauseBreakpoint                uint64 = 3
	CauseLoadAddrMisaligned        uint64 = 4
	CauseLoadAccessFault           uint64 = 5
	CauseStoreAMOAddrMisaligned    uint64 = 6
	CauseStoreAMOAccessFault       uint64 = 7
	CauseEcallFromUMode            uint64 = 8
	CauseEcallFromSMode            uint64 = 9
	CauseEcallFromMMode             uint64 = 11
	CauseInstructionPageFault      uint64 = 12
	CauseLoadPageFault             uint64 = 13
	CauseStoreAMOPageFault         uint64 = 15
	CauseRuntimeFault              uint64 = 16
)

// fatalCauses mirrors spec.md's fatality table: these always stop the
// outer driver, everything else may be re-entered after handling.
var fatalCauses = map[uint64]bool{
	CauseInstructionAddrMisaligned: true,
	CauseInstructionAccessFault:    true,
	CauseLoadAccessFault:           true,
	CauseStoreAMOAddrMisaligned:    true,
	CauseStoreAMOAccessFault:       true,
	CauseIllegalInstruction:        true,
	CauseRuntimeFault:              true,
}

// IsFatal reports whether a trap with the given cause should stop the
// outer driver loop rather than allow continued execution.
func IsFatal(cause uint64) bool {
	return fatalCauses[cause]
}

// ExceptionError is the synchronous-fault payload carried by the
// interpreter up through the trap machinery to the Tick runner.
type ExceptionError struct {
	Cause uint64
	Tval  uint64
}

func (e ExceptionError) Error() string {
	return fmt.Sprintf("exception: cause=%d tval=0x%x", e.Cause, e.Tval)
}

// IsFatal reports whether this particular exception is fatal.
func (e ExceptionError) IsFatal() bool {
	return IsFatal(e.Cause)
}

// Exception builds an *ExceptionError for the given cause and faulting
// value. Returned as a plain error so callers can use errors.As.
func Exception(cause uint64, tval uint64) error {
	return &ExceptionError{Cause: cause, Tval: tval}
}

// RuntimeFault is the non-standard fault raised for an absent IVT entry
// or a hardening-check failure (e.g. MRET with mcause == 0).
func RuntimeFault(code uint64) error {
	return &ExceptionError{Cause: CauseRuntimeFault, Tval: code}
}
