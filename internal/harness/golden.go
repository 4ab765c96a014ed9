package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the golden-file form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	Final        FinalState   `json:"final"`
}

// MarshalSnapshot renders the run as indented JSON with a trailing newline.
// Map keys are sorted, so equal runs produce equal bytes.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	data, err := json.MarshalIndent(TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		Final:        result.Final,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	data, err := MarshalSnapshot(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}

// GoldenPath returns the golden file for a scenario file: a golden/
// directory next to it, named after the file.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// CompareGolden reports whether the run matches the golden file at path.
func CompareGolden(path string, scenario *Scenario, result *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := MarshalSnapshot(scenario.Name, result)
	if err != nil {
		return false, fmt.Errorf("failed to marshal trace: %w", err)
	}
	return bytes.Equal(want, got), nil
}

// UpdateGolden writes the run to the golden file at path.
func UpdateGolden(path string, scenario *Scenario, result *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	data, err := MarshalSnapshot(scenario.Name, result)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}
