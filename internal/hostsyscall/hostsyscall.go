// Package hostsyscall provides minimal, in-process stand-ins for the
// non-core syscalls (spec.md §6): DISCORD, PERF_DUMP, HTTP,
// OBJECT_STORAGE, LOG, PNG and DISCORD_EX. The core itself must not
// implement these; they exist here only so the IVT contract has a
// runnable example beyond the four mandated handlers. None of these
// stubs reach a real network, filesystem or chat API.
package hostsyscall

import (
	"context"
	"log/slog"

	"github.com/Assasans/mizu/internal/rv64"
)

// Registry names each stub; Install looks handlers up here by name.
// internal/config validates a spec's handler list against its own list
// of the same names, not against this map.
var Registry = map[string]rv64.InterruptHandler{
	"discord":        rv64.InterruptHandlerFunc(discordHandler),
	"discord_ex":     rv64.InterruptHandlerFunc(discordExHandler),
	"perf_dump":      rv64.InterruptHandlerFunc(perfDumpHandler),
	"http":           rv64.InterruptHandlerFunc(httpHandler),
	"object_storage": rv64.InterruptHandlerFunc(objectStorageHandler),
	"log":            rv64.InterruptHandlerFunc(logHandler),
	"png":            rv64.InterruptHandlerFunc(pngHandler),
}

// syscallNumbers maps a registry name to its ABI number (internal/rv64/ivt.go),
// used to Install the stub on a hart's IVT.
var syscallNumbers = map[string]uint64{
	"discord":        rv64.SyscallDiscord,
	"discord_ex":     rv64.SyscallDiscordEx,
	"perf_dump":      rv64.SyscallPerfDump,
	"http":           rv64.SyscallHTTP,
	"object_storage": rv64.SyscallObjectStorage,
	"log":            rv64.SyscallLog,
	"png":            rv64.SyscallPNG,
}

// Install registers the named stubs (config.IsolateSpec.Handlers) on
// ivt. Unknown names are the caller's bug — internal/config validates
// names before they ever reach here.
func Install(ivt *rv64.IVT, names []string) {
	for _, name := range names {
		handler, ok := Registry[name]
		if !ok {
			continue
		}
		ivt.Install(syscallNumbers[name], handler)
	}
}

// SecondaryNames filters a boot hart's handler list down to the
// subset a SIPI-spawned hart should also get: everything except the
// chat-bound "discord" handler, which stays boot-hart-only.
func SecondaryNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "discord" {
			continue
		}
		out = append(out, name)
	}
	return out
}

// discordHandler logs the outbound message described by a7/a0/a1 and
// reports success via x10.
func discordHandler(_ context.Context, h *rv64.Hart) error {
	slog.Info("hostsyscall: discord", "hart", h.ID, "channel", h.ReadReg(10), "msgAddr", h.ReadReg(11))
	h.WriteReg(10, 0)
	return nil
}

// discordExHandler is discord's extended-options variant (embeds,
// attachments); logged identically since no real gateway is wired up.
func discordExHandler(_ context.Context, h *rv64.Hart) error {
	slog.Info("hostsyscall: discord_ex", "hart", h.ID, "channel", h.ReadReg(10), "optsAddr", h.ReadReg(11))
	h.WriteReg(10, 0)
	return nil
}

// perfDumpHandler logs the hart's accumulated performance counters.
func perfDumpHandler(_ context.Context, h *rv64.Hart) error {
	slog.Info("hostsyscall: perf_dump",
		"hart", h.ID,
		"cpuTime", h.Perf.CPUTime(),
		"retired", h.Perf.InstructionsRetired(),
	)
	return nil
}

// httpHandler stands in for an outbound HTTP request: logs the request
// descriptor and reports a canned failure code, since no network
// surface exists in this module.
func httpHandler(_ context.Context, h *rv64.Hart) error {
	slog.Info("hostsyscall: http", "hart", h.ID, "reqAddr", h.ReadReg(10))
	h.WriteReg(10, ^uint64(0)) // no transport available
	return nil
}

// objectStorageHandler stands in for a blob-storage put/get.
func objectStorageHandler(_ context.Context, h *rv64.Hart) error {
	slog.Info("hostsyscall: object_storage", "hart", h.ID, "op", h.ReadReg(10), "keyAddr", h.ReadReg(11))
	h.WriteReg(10, ^uint64(0))
	return nil
}

// logHandler mirrors a guest-originated log line into the host's own
// slog stream, reading a NUL-terminated string from the address in a0.
func logHandler(_ context.Context, h *rv64.Hart) error {
	msg, err := h.Bus.ReadCString(h.ReadReg(10))
	if err != nil {
		return err
	}
	slog.Info("guest", "hart", h.ID, "msg", string(msg[:len(msg)-1]))
	return nil
}

// pngHandler stands in for a rendered-image upload.
func pngHandler(_ context.Context, h *rv64.Hart) error {
	slog.Info("hostsyscall: png", "hart", h.ID, "bufAddr", h.ReadReg(10), "len", h.ReadReg(11))
	h.WriteReg(10, 0)
	return nil
}
