package rv64

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// NormalPriority is the APIC priority used for cross-hart and
// external-event dispatch, per spec.md §4.7/§6.
const NormalPriority uint16 = 100

// Outcome reporter, installed by the embedder to observe each Tick
// step's classification (the "external observer / chat channel" of
// spec.md §4.8).
type Observer func(hart *Hart, outcome Outcome, err error)

// IVTInstaller installs additional handlers on a freshly built IVT.
type IVTInstaller func(*IVT)

// Isolate is a set of harts sharing one Bus; the unit of sandboxing.
// The boot hart is id 0, created at construction.
type Isolate struct {
	Bus *Bus

	mu    sync.Mutex
	harts []*Hart

	// secondaryInstall, if set, mirrors the boot hart's host plug-ins
	// onto every hart SIPI spawns (the original's SipiHandler reinstalls
	// HTTP/LOG/PERF_DUMP/DISCORD_EX etc. on the new core; only the
	// chat-specific DISCORD handler is left boot-hart-only).
	secondaryInstall IVTInstaller

	group    *errgroup.Group
	groupCtx context.Context
}

// SetSecondaryIVTInstaller registers fn to run against every hart's IVT
// spawned via SIPI, after the four core-mandated handlers are already
// installed by NewIVT.
func (iso *Isolate) SetSecondaryIVTInstaller(fn IVTInstaller) {
	iso.mu.Lock()
	defer iso.mu.Unlock()
	iso.secondaryInstall = fn
}

// NewIsolate builds an Isolate around bus with a single boot hart (id
// 0), ready to be driven by Drive. Secondary harts spawned later via
// SIPI join the same errgroup.
func NewIsolate(ctx context.Context, bus *Bus) *Isolate {
	group, groupCtx := errgroup.WithContext(ctx)
	iso := &Isolate{Bus: bus, group: group, groupCtx: groupCtx}
	boot := NewHart(0, bus, iso)
	iso.harts = append(iso.harts, boot)
	return iso
}

// BootHart returns the boot hart (id 0).
func (iso *Isolate) BootHart() *Hart {
	iso.mu.Lock()
	defer iso.mu.Unlock()
	return iso.harts[0]
}

// GetHart returns the hart with the given id, or nil if none exists.
func (iso *Isolate) GetHart(id uint16) *Hart {
	iso.mu.Lock()
	defer iso.mu.Unlock()
	if int(id) >= len(iso.harts) {
		return nil
	}
	return iso.harts[id]
}

// addCore appends a new hart and returns its freshly assigned id,
// equal to the pre-insertion hart count.
func (iso *Isolate) addCore(h *Hart) uint16 {
	iso.mu.Lock()
	defer iso.mu.Unlock()
	id := uint16(len(iso.harts))
	iso.harts = append(iso.harts, h)
	return id
}

// SIPI spawns a new hart at PC = entry, installs a baseline IVT (the
// four core-mandated handlers, plus whatever SetSecondaryIVTInstaller
// registered), and starts an independent Tick-runner task for it. It
// returns only after the new hart's task has started, per spec.md §4.7.
func (iso *Isolate) SIPI(ctx context.Context, entry uint64) error {
	ready := make(chan struct{})

	h := NewHart(0, iso.Bus, iso) // id assigned by addCore below
	h.PC = entry
	id := iso.addCore(h)
	h.ID = id

	iso.mu.Lock()
	install := iso.secondaryInstall
	iso.mu.Unlock()
	if install != nil {
		install(h.IVT)
	}

	iso.group.Go(func() error {
		close(ready)
		Drive(iso.groupCtx, h, nil)
		return nil
	})

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Int performs the cross-hart wake-up: the caller's x10 is copied onto
// the target hart's x10 (per spec.md §4.7 and the original's
// `cpu.regs[10] = src_regs[10]`; the caller's x10 also doubles as the
// target id it selects), a MachineSoftwareInterrupt is enqueued at
// normal priority, and the target's WFI flag is cleared.
func (iso *Isolate) Int(targetID uint64, callerX10 uint64) error {
	target := iso.GetHart(uint16(targetID))
	if target == nil {
		return fmt.Errorf("rv64: INT: no hart with id %d", targetID)
	}

	target.Lock()
	target.WriteReg(10, callerX10)
	target.APIC.Dispatch(MachineSoftwareInterrupt, NormalPriority)
	target.Unlock()

	target.WFI.Set(false)
	return nil
}

// Wait blocks until every hart task started via SIPI (and the caller's
// own Drive call, if added to the same group) has returned.
func (iso *Isolate) Wait() error {
	return iso.group.Wait()
}
