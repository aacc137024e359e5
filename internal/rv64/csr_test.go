package rv64

import "testing"

func newTestCSRFile() *CSRFile {
	return NewCSRFile(func() uint64 { return 42 }, 0xdead0000)
}

func TestSstatusIsAProjectionOfMstatus(t *testing.T) {
	f := newTestCSRFile()
	f.Write(csrMstatus, mstatusSIE|mstatusSPIE|mstatusSPP|mstatusMIE)

	got := f.Read(csrSstatus)
	want := mstatusSIE | mstatusSPIE | mstatusSPP
	if got != want {
		t.Fatalf("sstatus: expected 0x%x, got 0x%x (MIE must not leak through)", want, got)
	}

	f.Write(csrSstatus, 0)
	if f.Read(csrMstatus)&mstatusSIE != 0 {
		t.Errorf("writing sstatus=0 should clear SIE in mstatus")
	}
	if f.Read(csrMstatus)&mstatusMIE == 0 {
		t.Errorf("writing sstatus must not touch MIE")
	}
}

func TestSieSipAreDelegatedByMideleg(t *testing.T) {
	f := newTestCSRFile()
	f.Write(csrMideleg, 1<<1) // delegate only the SSI bit
	f.Write(csrMie, (1<<1)|(1<<3))

	if got := f.Read(csrSie); got != 1<<1 {
		t.Fatalf("sie: expected only the delegated bit to show, got 0x%x", got)
	}

	// Writing sie must only affect the delegated bits of mie.
	f.Write(csrSie, 0)
	if f.Read(csrMie)&(1<<1) != 0 {
		t.Errorf("sie write should clear the delegated mie bit")
	}
	if f.Read(csrMie)&(1<<3) == 0 {
		t.Errorf("sie write must not touch a non-delegated mie bit")
	}

	f.Write(csrMideleg, 1<<5)
	f.Write(csrMip, 0)
	f.Write(csrSip, 1<<5)
	if f.Read(csrMip) != 1<<5 {
		t.Fatalf("sip write: expected delegated mip bit set, got 0x%x", f.Read(csrMip))
	}
}

func TestTimeCSRReadsLiveClock(t *testing.T) {
	f := newTestCSRFile()
	if got := f.Read(csrTime); got != 42 {
		t.Fatalf("time: expected live-read value 42, got %d", got)
	}
	f.Write(csrTime, 999) // read-only, must be ignored
	if got := f.Read(csrTime); got != 42 {
		t.Fatalf("time: write must be ignored, still expected 42, got %d", got)
	}
}

func TestMconfigptrIsConstantAndReadOnly(t *testing.T) {
	f := newTestCSRFile()
	if got := f.Read(csrMconfigptr); got != 0xdead0000 {
		t.Fatalf("mconfigptr: expected 0xdead0000, got 0x%x", got)
	}
	f.Write(csrMconfigptr, 0x1234)
	if got := f.Read(csrMconfigptr); got != 0xdead0000 {
		t.Fatalf("mconfigptr: write must be ignored, got 0x%x", got)
	}
}

func TestMpowerstateDefaultsToNormal(t *testing.T) {
	f := newTestCSRFile()
	if f.PowerState() != PowerStateNormal {
		t.Fatalf("expected default power state Normal, got %d", f.PowerState())
	}
	f.Write(csrMpowerstate, PowerStateBypassTimer)
	if f.PowerState() != PowerStateBypassTimer {
		t.Fatalf("expected power state to update to BypassTimer, got %d", f.PowerState())
	}
}

func TestMieMpieRoundTrip(t *testing.T) {
	f := newTestCSRFile()
	f.SetMIE(true)
	if !f.MIE() {
		t.Fatalf("expected MIE true after SetMIE(true)")
	}
	f.SetMPIE(true)
	if !f.MPIE() {
		t.Fatalf("expected MPIE true after SetMPIE(true)")
	}
	f.SetMIE(false)
	if f.MIE() {
		t.Fatalf("expected MIE false after SetMIE(false)")
	}
	if !f.MPIE() {
		t.Errorf("clearing MIE must not disturb MPIE")
	}
}

func TestSetMipBitRoundTrip(t *testing.T) {
	f := newTestCSRFile()
	bit := uint64(1 << 7)
	f.SetMipBit(bit, true)
	if f.Mip()&bit == 0 {
		t.Fatalf("expected mip bit set")
	}
	f.SetMipBit(bit, false)
	if f.Mip()&bit != 0 {
		t.Fatalf("expected mip bit cleared")
	}
}
