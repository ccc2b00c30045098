package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Update bool   // rewrite golden traces
	Filter string // scenario name filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// ScenarioSummary holds the overall result.
type ScenarioSummary struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file-or-dir>...",
		Short: "Run scripted sessions against a built-in fake service",
		Long: `Run scenario files. Each scenario drives the client against an
in-process fake of the bookstore service and checks its trace and final
state. When ../golden/<name>.golden exists next to the scenario directory
the trace must also match it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing paths, etc.)

Examples:
  storefront scenario ./scenarios
  storefront scenario ./scenarios/checkout.yaml
  storefront scenario ./scenarios --filter "cart_*"
  storefront scenario ./scenarios --update`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden traces")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runScenarios(cmd *cobra.Command, opts *ScenarioOptions, paths []string) error {
	out := newFormatter(cmd, opts.RootOptions)

	var files []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenario path not found: %s", p), nil)
		}
		found, err := findScenarioFiles(p, opts.Filter)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("failed to find scenarios: %v", err), nil)
		}
		files = append(files, found...)
	}

	summary := ScenarioSummary{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	if len(files) == 0 {
		return out.Emit(summary, "No scenarios found.")
	}

	w := cmd.OutOrStdout()
	text := opts.Format != "json"
	for _, file := range files {
		res := runScenario(cmd, opts, file)
		summary.Scenarios = append(summary.Scenarios, res)
		if res.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
		if !text {
			continue
		}
		if res.Pass {
			fmt.Fprintf(w, "✓ %s\n", res.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", res.Name)
		for _, e := range res.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	if !text {
		if err := out.Success(summary); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Scenario Summary: %d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	if text {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
	return nil
}

// findScenarioFiles returns path itself when it is a file, or every YAML
// file below it.
func findScenarioFiles(path, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
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
			matched, err := filepath.Match(filter, strings.TrimSuffix(filepath.Base(p), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	return files, err
}

func runScenario(cmd *cobra.Command, opts *ScenarioOptions, file string) ScenarioResult {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("load error: %v", err)}}
	}
	name = scenario.Name

	result, err := harness.Run(cmd.Context(), scenario)
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("execution failed: %v", err)}}
	}

	golden := goldenFilePath(file, name)
	if opts.Update {
		if err := writeGolden(golden, result); err != nil {
			return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("golden update failed: %v", err)}}
		}
	} else if want, err := os.ReadFile(golden); err == nil {
		if string(want) != result.TraceText() {
			result.AddError(fmt.Sprintf("trace does not match %s (run with --update to regenerate)", golden))
		}
	}

	return ScenarioResult{Name: name, Pass: result.Pass, Errors: result.Errors}
}

// goldenFilePath maps scenarios/<file>.yaml to golden/<name>.golden.
func goldenFilePath(scenarioFile, name string) string {
	dir := filepath.Dir(filepath.Dir(scenarioFile))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(path string, result *harness.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	return os.WriteFile(path, []byte(result.TraceText()), 0o644)
}
