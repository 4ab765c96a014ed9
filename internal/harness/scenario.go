package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cyberquest/internal/catalog"
)

// Scenario is one scripted progression run.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Catalog CatalogSource `yaml:"catalog,omitempty"`
	Local   LocalSeed     `yaml:"local,omitempty"`
	Remote  RemoteSeed    `yaml:"remote,omitempty"`
	Steps   []Step        `yaml:"steps"`
	Expect  Expect        `yaml:"expect,omitempty"`
}

// CatalogSource selects the achievement catalog. At most one of Dir and
// Achievements may be set; with neither the embedded default is used.
type CatalogSource struct {
	// Dir is a CUE catalog directory, relative to the scenario file.
	Dir string `yaml:"dir,omitempty"`

	Achievements []catalog.Achievement `yaml:"achievements,omitempty"`
	Mastery      []catalog.MasteryRule `yaml:"mastery,omitempty"`
}

// LocalSeed is the device snapshot before the first step.
type LocalSeed struct {
	Points     int            `yaml:"points,omitempty"`
	Challenges []string       `yaml:"challenges,omitempty"`
	Counters   map[string]int `yaml:"counters,omitempty"`
}

// RemoteSeed is the remote state of one user before the first step.
type RemoteSeed struct {
	User   string    `yaml:"user,omitempty"`
	Points int       `yaml:"points,omitempty"`
	Awards []string  `yaml:"awards,omitempty"`
	Labs   []LabStep `yaml:"labs,omitempty"`
}

// Step is a single engine call. Exactly one action field is set.
type Step struct {
	SignIn            string        `yaml:"sign_in,omitempty"`
	SignOut           bool          `yaml:"sign_out,omitempty"`
	AddPoints         *int          `yaml:"add_points,omitempty"`
	CompleteChallenge *string       `yaml:"complete_challenge,omitempty"`
	Increment         string        `yaml:"increment,omitempty"`
	CompleteLab       *LabStep      `yaml:"complete_lab,omitempty"`
	Evaluate          *EvaluateStep `yaml:"evaluate,omitempty"`

	// Repeat runs the step this many times. Zero means once.
	Repeat int `yaml:"repeat,omitempty"`

	// ExpectError is the engine error code complete_lab should return.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// LabStep identifies a lab completion.
type LabStep struct {
	LabID   string `yaml:"lab_id"`
	LabType string `yaml:"lab_type"`
	Points  int    `yaml:"points"`
}

// EvaluateStep calls Evaluate directly with a kind and value.
type EvaluateStep struct {
	Kind  string `yaml:"kind"`
	Value int    `yaml:"value"`
}

// Expect lists final-state checks. Unset fields are not checked.
type Expect struct {
	Points        *int           `yaml:"points,omitempty"`
	Level         *int           `yaml:"level,omitempty"`
	User          *string        `yaml:"user,omitempty"`
	Challenges    []string       `yaml:"challenges,omitempty"`
	Counters      map[string]int `yaml:"counters,omitempty"`
	Achievements  []string       `yaml:"achievements,omitempty"`
	Notifications []string       `yaml:"notifications,omitempty"`
	Labs          []string       `yaml:"labs,omitempty"`

	// RemotePoints and RemoteAwards read the remote store for the last
	// user that signed in.
	RemotePoints *int     `yaml:"remote_points,omitempty"`
	RemoteAwards []string `yaml:"remote_awards,omitempty"`
}

// Step action names, as used in traces.
const (
	ActionSignIn            = "sign_in"
	ActionSignOut           = "sign_out"
	ActionAddPoints         = "add_points"
	ActionCompleteChallenge = "complete_challenge"
	ActionIncrement         = "increment"
	ActionCompleteLab       = "complete_lab"
	ActionEvaluate          = "evaluate"
)

// Action returns the name of the action the step sets, or "" if it sets
// none.
func (s Step) Action() string {
	names := s.actions()
	if len(names) != 1 {
		return ""
	}
	return names[0]
}

func (s Step) actions() []string {
	var names []string
	if s.SignIn != "" {
		names = append(names, ActionSignIn)
	}
	if s.SignOut {
		names = append(names, ActionSignOut)
	}
	if s.AddPoints != nil {
		names = append(names, ActionAddPoints)
	}
	if s.CompleteChallenge != nil {
		names = append(names, ActionCompleteChallenge)
	}
	if s.Increment != "" {
		names = append(names, ActionIncrement)
	}
	if s.CompleteLab != nil {
		names = append(names, ActionCompleteLab)
	}
	if s.Evaluate != nil {
		names = append(names, ActionEvaluate)
	}
	return names
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative catalog dir is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.Catalog.Dir != "" && !filepath.IsAbs(s.Catalog.Dir) {
		s.Catalog.Dir = filepath.Join(filepath.Dir(path), s.Catalog.Dir)
	}
	return s, nil
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Catalog.Dir != "" && len(s.Catalog.Achievements) > 0 {
		return fmt.Errorf("catalog: dir and achievements are mutually exclusive")
	}
	if s.Remote.User == "" && (s.Remote.Points != 0 || len(s.Remote.Awards) > 0 || len(s.Remote.Labs) > 0) {
		return fmt.Errorf("remote: user is required when seeding remote state")
	}
	for kind := range s.Local.Counters {
		if !catalog.IsIncrementable(catalog.CounterKind(kind)) {
			return fmt.Errorf("local.counters: unknown counter %q", kind)
		}
	}

	for i, step := range s.Steps {
		names := step.actions()
		switch len(names) {
		case 0:
			return fmt.Errorf("steps[%d]: no action set", i)
		case 1:
		default:
			return fmt.Errorf("steps[%d]: exactly one action allowed, got %v", i, names)
		}
		if step.Repeat < 0 {
			return fmt.Errorf("steps[%d]: repeat must be non-negative", i)
		}
		if step.ExpectError != "" && names[0] != ActionCompleteLab {
			return fmt.Errorf("steps[%d]: expect_error only applies to complete_lab", i)
		}
		if step.Evaluate != nil && step.Evaluate.Kind == "" {
			return fmt.Errorf("steps[%d].evaluate: kind is required", i)
		}
	}
	return nil
}
