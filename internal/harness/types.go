package harness

// TraceEvent records the engine state after one executed step.
type TraceEvent struct {
	Seq    int    `json:"seq"`
	Action string `json:"action"`
	Arg    string `json:"arg,omitempty"`
	User   string `json:"user,omitempty"`
	Points int    `json:"points"`
	Level  int    `json:"level"`

	// Unlocked lists the achievements shown to the sink during the step.
	Unlocked []string `json:"unlocked,omitempty"`

	// Error is the engine error code returned by the step, if any.
	Error string `json:"error,omitempty"`
}

// FinalState is the engine and remote state after the last step.
type FinalState struct {
	User          string         `json:"user,omitempty"`
	Points        int            `json:"points"`
	Level         int            `json:"level"`
	Challenges    []string       `json:"challenges"`
	Counters      map[string]int `json:"counters"`
	Achievements  []string       `json:"achievements"`
	Labs          []string       `json:"labs"`
	Notifications []string       `json:"notifications"`
	RemoteUser    string         `json:"remote_user,omitempty"`
	RemotePoints  int            `json:"remote_points"`
	RemoteAwards  []string       `json:"remote_awards"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step behaved as declared and every expect
	// check matched.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Final  FinalState   `json:"final"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
