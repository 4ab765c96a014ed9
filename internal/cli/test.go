package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cyberquest/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-file-or-dir>...",
		Short: "Run progression scenarios",
		Long: `Run YAML scenarios against an in-memory engine and check their
expectations. When a golden file exists next to a scenario
(golden/<name>.golden) the trace must match it too.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  cyberquest test ./scenarios
  cyberquest test ./scenarios --filter "lab_*"
  cyberquest test ./scenarios/user_switch.yaml --update
  cyberquest test ./scenarios --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, w io.Writer) error {
	var files []string
	for _, p := range paths {
		found, err := findScenarioFiles(p, opts.Filter)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to find scenarios in %s", p), err)
		}
		files = append(files, found...)
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	if len(files) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(w, result)
		}
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, file := range files {
		sr := runScenario(file, opts)
		if opts.Format != "json" {
			printScenarioResult(w, sr)
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(w, result)
	}
	return outputTestText(w, result)
}

// findScenarioFiles returns path itself if it is a file, or every .yaml and
// .yml file under it, optionally filtered by base name.
func findScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(p), ext)
			if ok, _ := filepath.Match(filter, name); !ok {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	return files, err
}

// runScenario executes a single scenario and returns the result.
func runScenario(file string, opts *TestOptions) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}
	fail := func(format string, args ...any) ScenarioResult {
		sr.Errors = append(sr.Errors, fmt.Sprintf(format, args...))
		return sr
	}

	scenario, result, err := harness.RunFile(file)
	if scenario != nil {
		sr.Name = scenario.Name
	}
	if err != nil {
		return fail("execution failed: %v", err)
	}

	goldenPath := harness.GoldenPath(file)
	if opts.Update {
		if err := harness.UpdateGolden(goldenPath, scenario, result); err != nil {
			return fail("failed to update golden file: %v", err)
		}
	} else if _, statErr := os.Stat(goldenPath); statErr == nil {
		match, err := harness.CompareGolden(goldenPath, scenario, result)
		if err != nil {
			return fail("golden comparison failed: %v", err)
		}
		if !match {
			sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
		}
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return fail("golden comparison failed: %v", statErr)
	}

	sr.Errors = append(sr.Errors, result.Errors...)
	sr.Pass = len(sr.Errors) == 0
	return sr
}

func printScenarioResult(w io.Writer, sr ScenarioResult) {
	if sr.Pass {
		fmt.Fprintf(w, "✓ %s\n", sr.Name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", sr.Name)
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(w io.Writer, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(w io.Writer, result TestResult) error {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
