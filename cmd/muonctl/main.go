package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/Assasans/mizu/internal/config"
	"github.com/Assasans/mizu/internal/hostsyscall"
	"github.com/Assasans/mizu/internal/rv64"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "muonctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	specPath := fs.String("spec", "", "path to an Isolate YAML spec")
	imagePath := fs.String("image", "", "path to a flat binary image (overrides -spec's image.path)")
	deadline := fs.Duration("deadline", 2*time.Second, "how long to drive the Isolate before giving up (overrides -spec's runtime.deadline)")
	dumpRegs := fs.Bool("dump-regs", false, "print the full boot-hart register file on exit")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return fmt.Errorf("parse args: %w", err)
	}

	var spec *config.IsolateSpec
	if *specPath != "" {
		var err error
		spec, err = config.Load(*specPath)
		if err != nil {
			return fmt.Errorf("load spec: %w", err)
		}
	} else {
		spec = &config.IsolateSpec{}
	}
	if *imagePath != "" {
		spec.Image.Path = *imagePath
	}
	if spec.Image.Path == "" {
		return fmt.Errorf("no image given (pass -image or -spec with image.path set)")
	}

	image, err := os.ReadFile(spec.Image.Path)
	if err != nil {
		return fmt.Errorf("read image %s: %w", spec.Image.Path, err)
	}

	driveFor := *deadline
	if spec.Runtime.Deadline > 0 {
		deadlineFlagSet := false
		fs.Visit(func(f *flag.Flag) {
			if f.Name == "deadline" {
				deadlineFlagSet = true
			}
		})
		if !deadlineFlagSet {
			driveFor = spec.Runtime.Deadline.Duration()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), driveFor)
	defer cancel()

	bus := rv64.NewBus()
	bus.LoadImage(image)

	iso := rv64.NewIsolate(ctx, bus)
	boot := iso.BootHart()
	boot.StrictMret = spec.Runtime.StrictMretOrDefault()
	boot.CSR.SetPowerState(spec.Runtime.PowerStateOrDefault())
	hostsyscall.Install(boot.IVT, spec.Handlers)

	secondaryNames := hostsyscall.SecondaryNames(spec.Handlers)
	iso.SetSecondaryIVTInstaller(func(ivt *rv64.IVT) {
		hostsyscall.Install(ivt, secondaryNames)
	})

	slog.Info("muonctl: driving isolate", "image", spec.Image.Path, "deadline", driveFor.String())

	bar := progressbar.Default(-1, "running")
	defer bar.Close()

	var lastOutcome rv64.Outcome
	var lastErr error
	observer := func(h *rv64.Hart, outcome rv64.Outcome, err error) {
		lastOutcome, lastErr = outcome, err
		bar.Add(1)
		if err != nil {
			level, cause := slog.LevelWarn, h.CSR.Mcause()
			if exc, ok := err.(*rv64.ExceptionError); ok {
				cause = exc.Cause
				if exc.IsFatal() {
					level = slog.LevelError
				}
			}
			slog.Log(ctx, level, "muonctl: step fault", "hart", h.ID, "outcome", outcome.String(), "err", err, "dump", h.Dump(cause))
		}
	}

	rv64.Drive(ctx, boot, observer)

	slog.Info("muonctl: isolate stopped", "outcome", lastOutcome.String(), "pc", fmt.Sprintf("0x%x", boot.PC))
	if *dumpRegs {
		fmt.Print(boot.DumpRegisters())
	}

	if lastOutcome == rv64.ExceptionOutcome && lastErr != nil {
		return fmt.Errorf("isolate halted on fault: %w", lastErr)
	}
	return nil
}
