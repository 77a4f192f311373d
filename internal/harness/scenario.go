package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lockstep/internal/counter"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// TickRate is the number of ticks per second.
	TickRate uint64 `yaml:"tick_rate"`

	// MaxTicksPerFrame bounds catch-up per frame (0 = unlimited).
	MaxTicksPerFrame int `yaml:"max_ticks_per_frame,omitempty"`

	// App configures the counter application.
	App counter.App `yaml:"app"`

	// Initial is the starting table.
	Initial []EntityState `yaml:"initial"`

	// Frames are fed to the scheduler in order.
	Frames []FrameStep `yaml:"frames"`

	// Expect is checked against the final state.
	Expect Expect `yaml:"expect"`
}

// EntityState is one counter in a table listing.
type EntityState struct {
	ID    int64 `yaml:"id" json:"id"`
	Count int64 `yaml:"count" json:"count"`
}

// FrameStep is one outer-loop iteration.
//
// With Steps zero the frame advances by Elapsed through the accumulator.
// With Steps positive exactly that many ticks are forced and Elapsed must
// be zero.
type FrameStep struct {
	Elapsed time.Duration `yaml:"elapsed,omitempty"`
	Steps   int           `yaml:"steps,omitempty"`
	Inputs  []Input       `yaml:"inputs,omitempty"`
}

// Input is one injected event. Exactly one field must be set.
type Input struct {
	Spawn       *EntityState `yaml:"spawn,omitempty"`
	Delete      *int64       `yaml:"delete,omitempty"`
	DeleteRange *IDRange     `yaml:"delete_range,omitempty"`
	Target      *TargetInput `yaml:"target,omitempty"`
	Broadcast   *string      `yaml:"broadcast,omitempty"`
	Shutdown    bool         `yaml:"shutdown,omitempty"`
}

// IDRange is an inclusive id range.
type IDRange struct {
	From int64 `yaml:"from"`
	To   int64 `yaml:"to"`
}

// TargetInput addresses an op to one counter.
type TargetInput struct {
	ID int64  `yaml:"id"`
	Op string `yaml:"op"`
	N  int64  `yaml:"n,omitempty"`
}

// Expect lists final-state expectations. Unset fields are not checked.
type Expect struct {
	// Ticks is the total number of ticks run.
	Ticks *int `yaml:"ticks,omitempty"`
	// Tick is the final tick counter.
	Tick *uint64 `yaml:"tick,omitempty"`
	// Alpha is the final interpolation factor.
	Alpha *float64 `yaml:"alpha,omitempty"`
	// AlphaTolerance defaults to 1e-9.
	AlphaTolerance float64 `yaml:"alpha_tolerance,omitempty"`
	Halted         *bool   `yaml:"halted,omitempty"`
	// Entities is the exact final table, in id order.
	Entities []EntityState `yaml:"entities,omitempty"`
	// Broadcasts is every broadcast delivered, in order.
	Broadcasts []string `yaml:"broadcasts,omitempty"`
	// Dangling is the total number of targeted events dropped.
	Dangling *int `yaml:"dangling,omitempty"`
	// Seed is the final allocator seed.
	Seed *uint64 `yaml:"seed,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by path.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob scenarios: %w", err)
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.TickRate == 0 {
		return fmt.Errorf("tick_rate is required and must be positive")
	}

	if s.MaxTicksPerFrame < 0 {
		return fmt.Errorf("max_ticks_per_frame must be non-negative")
	}

	if len(s.Frames) == 0 {
		return fmt.Errorf("frames list is required and must be non-empty")
	}

	seen := make(map[int64]bool, len(s.Initial))
	for i, e := range s.Initial {
		if seen[e.ID] {
			return fmt.Errorf("initial[%d]: duplicate id %d", i, e.ID)
		}
		seen[e.ID] = true
	}

	for i, f := range s.Frames {
		if f.Steps < 0 {
			return fmt.Errorf("frames[%d]: steps must be non-negative", i)
		}
		if f.Elapsed < 0 {
			return fmt.Errorf("frames[%d]: elapsed must be non-negative", i)
		}
		if f.Steps > 0 && f.Elapsed > 0 {
			return fmt.Errorf("frames[%d]: elapsed and steps are mutually exclusive", i)
		}
		for j, in := range f.Inputs {
			if err := validateInput(in); err != nil {
				return fmt.Errorf("frames[%d].inputs[%d]: %w", i, j, err)
			}
		}
	}

	if s.Expect.AlphaTolerance < 0 {
		return fmt.Errorf("expect.alpha_tolerance must be non-negative")
	}

	return nil
}

func validateInput(in Input) error {
	set := 0
	for _, ok := range []bool{
		in.Spawn != nil,
		in.Delete != nil,
		in.DeleteRange != nil,
		in.Target != nil,
		in.Broadcast != nil,
		in.Shutdown,
	} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of spawn, delete, delete_range, target, broadcast, shutdown is required (got %d)", set)
	}
	if in.Target != nil && in.Target.Op == "" {
		return fmt.Errorf("target: op is required")
	}
	return nil
}

// Event converts the input to a counter event.
func (in Input) Event() counter.Event {
	switch {
	case in.Spawn != nil:
		return counter.Spawn(in.Spawn.ID, counter.Entity{Count: in.Spawn.Count})
	case in.Delete != nil:
		return counter.Delete(*in.Delete)
	case in.DeleteRange != nil:
		return counter.DeleteRange(in.DeleteRange.From, in.DeleteRange.To)
	case in.Target != nil:
		return counter.Target(in.Target.ID, counter.Op{Op: in.Target.Op, N: in.Target.N})
	case in.Broadcast != nil:
		return counter.Emit(counter.Note(*in.Broadcast))
	default:
		return counter.Shutdown()
	}
}
