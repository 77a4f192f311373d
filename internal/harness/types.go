package harness

// Trace event types.
const (
	TraceFrame = "frame"
	TraceTick  = "tick"
)

// TraceEvent is one line of a scenario trace: a committed tick or the end
// of a frame.
type TraceEvent struct {
	Type  string `json:"type"`
	Frame int    `json:"frame"`
	// Tick is the tick number for tick events and the tick counter after
	// the frame for frame events.
	Tick uint64 `json:"tick"`

	// Frame events.
	Elapsed    string   `json:"elapsed,omitempty"`
	Steps      int      `json:"steps,omitempty"`
	Inputs     int      `json:"inputs,omitempty"`
	Ticks      int      `json:"ticks,omitempty"`
	Alpha      string   `json:"alpha,omitempty"`
	Broadcasts []string `json:"broadcasts,omitempty"`

	// Tick events.
	Entities []EntityState `json:"entities,omitempty"`
	Routed   int           `json:"routed,omitempty"`
	Spawned  int           `json:"spawned,omitempty"`
	Deleted  int           `json:"deleted,omitempty"`
	Dangling int           `json:"dangling,omitempty"`

	Halted bool `json:"halted,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Trace contains every tick and frame in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the table after the last frame.
	Final []EntityState `json:"final"`

	// Broadcasts are all broadcasts delivered, in order.
	Broadcasts []string `json:"broadcasts"`

	Ticks    int     `json:"ticks"`
	Tick     uint64  `json:"tick"`
	Alpha    float64 `json:"alpha"`
	Halted   bool    `json:"halted"`
	Dangling int     `json:"dangling"`
	Seed     uint64  `json:"seed"`

	// Digest is the final table digest.
	Digest string `json:"digest"`
	// Deterministic reports whether the journal replay reproduced every
	// checkpoint.
	Deterministic bool `json:"deterministic"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Trace:      []TraceEvent{},
		Errors:     []string{},
		Final:      []EntityState{},
		Broadcasts: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
