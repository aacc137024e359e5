// Package config loads the declarative description of an Isolate: its
// RAM image, hart count, enabled syscall handlers and initial power
// state.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Assasans/mizu/internal/rv64"
)

// IsolateSpec is the top-level YAML document describing one Isolate.
type IsolateSpec struct {
	Name string `yaml:"name"`

	Image   ImageSpec   `yaml:"image"`
	Harts   HartSpec    `yaml:"harts"`
	Runtime RuntimeSpec `yaml:"runtime"`

	// Handlers lists the non-core syscall numbers (§6) this Isolate
	// should install host stubs for, by name. Unknown names are a
	// load-time error, not silently ignored.
	Handlers []string `yaml:"handlers"`
}

// ImageSpec points at the flat binary loaded into DRAM at boot.
type ImageSpec struct {
	Path string `yaml:"path"`
}

// HartSpec records a boot hart count and a maximum hart count. validate
// normalizes them (Boot at least 1, Max at least Boot), and nothing else
// reads them: an Isolate always starts with one boot hart, and SIPI does
// not check Max.
type HartSpec struct {
	Boot int `yaml:"boot"`
	Max  int `yaml:"max"`
}

// RuntimeSpec configures per-hart runtime behavior.
type RuntimeSpec struct {
	// PowerState seeds mpowerstate: "normal", "bypass_timer" or
	// "reserved" (spec.md §6).
	PowerState string `yaml:"power_state"`
	// StrictMret gates the non-standard MRET mcause!=0 precondition
	// (spec.md §9(c)); defaults to true when absent.
	StrictMret *bool `yaml:"strict_mret"`
	// Deadline bounds how long the inspector CLI (C16) drives the
	// Isolate before giving up.
	Deadline Duration `yaml:"deadline"`
}

// Duration parses a Go duration string from YAML, the convention the
// pack's test-spec config follows.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// knownHandlers is the set of syscall names a Handlers entry may name;
// the same names as internal/hostsyscall's Registry, which maps them to
// the syscall ABI numbers in internal/rv64/ivt.go.
var knownHandlers = map[string]bool{
	"discord":         true,
	"discord_ex":      true,
	"perf_dump":       true,
	"http":            true,
	"object_storage":  true,
	"log":             true,
	"png":             true,
}

// Load reads and validates an IsolateSpec from path.
func Load(path string) (*IsolateSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var spec IsolateSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &spec, nil
}

func (s *IsolateSpec) validate() error {
	if s.Image.Path == "" {
		return fmt.Errorf("image.path is required")
	}
	if s.Harts.Boot <= 0 {
		s.Harts.Boot = 1
	}
	if s.Harts.Max < s.Harts.Boot {
		s.Harts.Max = s.Harts.Boot
	}
	switch s.Runtime.PowerState {
	case "", "normal", "bypass_timer", "reserved":
	default:
		return fmt.Errorf("runtime.power_state: unknown value %q", s.Runtime.PowerState)
	}
	for _, name := range s.Handlers {
		if !knownHandlers[name] {
			return fmt.Errorf("handlers: unknown handler %q", name)
		}
	}
	return nil
}

// StrictMretOrDefault resolves the StrictMret pointer field to a plain
// bool, defaulting to true (spec.md §9(c)'s hardened default).
func (r RuntimeSpec) StrictMretOrDefault() bool {
	if r.StrictMret == nil {
		return true
	}
	return *r.StrictMret
}

// PowerStateOrDefault resolves PowerState to the mpowerstate CSR value
// a boot hart should be seeded with, defaulting to Normal when absent.
func (r RuntimeSpec) PowerStateOrDefault() uint64 {
	switch r.PowerState {
	case "bypass_timer":
		return rv64.PowerStateBypassTimer
	case "reserved":
		return rv64.PowerStateReserved
	default:
		return rv64.PowerStateNormal
	}
}
