// Package main is the entry point for the cliscore CLI test runner.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/cliscore/internal/config"
	"github.com/user/cliscore/runner"
)

// Exit codes following spec.md §6 "Exit code from the embedding tool".
const (
	exitSuccess     = 0
	exitTestFailure = 1
	exitSystemError = 2
)

// version is set at build time via ldflags: -X main.version=...
var version = "dev"

// flags holds all command-line flags.
type flags struct {
	configPath string
	jobs       int
	shell      string
	timeout    int
	trace      bool
	jsonOut    bool
	showVer    bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 && args[0] == "config" {
		return handleConfigCommand(args[1:])
	}

	f, patterns, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		fmt.Fprintf(os.Stderr, "cliscore: %v\n", err)
		return exitSystemError
	}

	if f.showVer {
		fmt.Printf("cliscore version %s\n", version)
		return exitSuccess
	}

	cfg, err := config.Load(&config.LoadOptions{ConfigPath: f.configPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cliscore: failed to load config: %v\n", err)
		return exitSystemError
	}
	applyFlagOverrides(cfg, f)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "cliscore: invalid config: %v\n", err)
		return exitSystemError
	}

	paths, err := discoverFiles(patterns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cliscore: %v\n", err)
		return exitSystemError
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "cliscore: no test files matched")
		return exitSystemError
	}

	r := runner.New(cfg.Options()...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results, err := r.RunFiles(ctx, paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cliscore: %v\n", err)
		return exitSystemError
	}

	if f.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(jsonResults(results)); err != nil {
			fmt.Fprintf(os.Stderr, "cliscore: encoding results: %v\n", err)
			return exitSystemError
		}
	} else {
		renderText(os.Stdout, results)
	}

	summary := runner.Summarize(results)
	if !summary.OK() {
		return exitTestFailure
	}
	return exitSuccess
}

// parseFlags parses command-line flags, returning the flags struct plus any
// non-flag arguments (glob patterns / explicit paths).
func parseFlags(args []string) (*flags, []string, error) {
	f := &flags{}
	fs := flag.NewFlagSet("cliscore", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	fs.StringVar(&f.configPath, "config", "", "Config file path")
	fs.IntVar(&f.jobs, "jobs", 0, "Number of test files to run concurrently (0 = use config)")
	fs.StringVar(&f.shell, "shell", "", "Shell binary to drive (empty = use config)")
	fs.IntVar(&f.timeout, "timeout", 0, "Per-command timeout in seconds (0 = use config)")
	fs.BoolVar(&f.trace, "trace", false, "Emit trace events")
	fs.BoolVar(&f.jsonOut, "json", false, "Render results as JSON")
	fs.BoolVar(&f.showVer, "version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "cliscore - a functional CLI test runner")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  cliscore [flags] <file-or-glob>...")
		fmt.Fprintln(os.Stderr, "  cliscore config")
		fmt.Fprintln(os.Stderr, "  cliscore config init")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	patterns := fs.Args()
	if len(patterns) == 0 {
		patterns = []string{"*.t", "*.md", "*.cliscore"}
	}
	return f, patterns, nil
}

// applyFlagOverrides overlays any explicitly-set flags onto the loaded
// config.
func applyFlagOverrides(cfg *config.Config, f *flags) {
	if f.jobs > 0 {
		cfg.Jobs = f.jobs
	}
	if f.shell != "" {
		cfg.Shell = f.shell
	}
	if f.timeout > 0 {
		cfg.TimeoutSeconds = f.timeout
	}
	if f.trace {
		cfg.Trace = true
	}
}

// discoverFiles expands glob patterns into a deduplicated list of file
// paths, in pattern order; each pattern's matches come in lexical order
// from filepath.Glob. A pattern with no glob meta-characters yields the
// path itself when the file exists, and a pattern that matches nothing
// contributes no paths.
func discoverFiles(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	return paths, nil
}

// jsonResult mirrors runner.TestResult with Err rendered as a string, since
// error values do not survive encoding/json round-trips.
type jsonResult struct {
	Path            string                `json:"path"`
	SetupScriptPath string                `json:"setup_script_path,omitempty"`
	Passed          int                   `json:"passed"`
	Failed          int                   `json:"failed"`
	Skipped         int                   `json:"skipped"`
	Failures        []runner.ExecutionResult `json:"failures,omitempty"`
	Passes          []runner.ExecutionResult `json:"passes,omitempty"`
	Skips           []runner.ExecutionResult `json:"skips,omitempty"`
	Hooks           runner.HookResults    `json:"hooks"`
	DurationMS      int64                 `json:"duration_ms"`
	Err             string                `json:"error,omitempty"`
}

func jsonResults(results []runner.TestResult) []jsonResult {
	out := make([]jsonResult, len(results))
	for i, r := range results {
		jr := jsonResult{
			Path:            r.Path,
			SetupScriptPath: r.SetupScriptPath,
			Passed:          r.Passed,
			Failed:          r.Failed,
			Skipped:         r.Skipped,
			Failures:        r.Failures,
			Passes:          r.Passes,
			Skips:           r.Skips,
			Hooks:           r.Hooks,
			DurationMS:      r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			jr.Err = r.Err.Error()
		}
		out[i] = jr
	}
	return out
}

// renderText prints a minimal human-readable summary; spec.md §6 leaves
// text rendering to external collaborators, so this exists only to make
// the binary runnable end to end, not as a feature surface to harden.
func renderText(w *os.File, results []runner.TestResult) {
	for _, res := range results {
		status := "ok"
		if res.Err != nil {
			status = "error: " + res.Err.Error()
		} else if res.Failed > 0 {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s: %d passed, %d failed, %d skipped (%s)\n", res.Path, res.Passed, res.Failed, res.Skipped, status)
		for _, fail := range res.Failures {
			fmt.Fprintf(w, "  line %d: %s\n", fail.SourceLine, fail.Command)
			for _, diag := range fail.Match.Diagnostics {
				fmt.Fprintf(w, "    %s\n", diag.Reason)
			}
		}
	}
	summary := runner.Summarize(results)
	fmt.Fprintf(w, "\n%d files, %d passed, %d failed, %d skipped in %s\n",
		summary.Files, summary.Passed, summary.Failed, summary.Skipped, summary.Duration)
}

// handleConfigCommand handles the 'config' and 'config init' subcommands.
func handleConfigCommand(args []string) int {
	if len(args) > 0 && args[0] == "init" {
		path, err := config.InitConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cliscore: %v\n", err)
			return exitSystemError
		}
		fmt.Fprintf(os.Stderr, "Created config file: %s\n", path)
		return exitSuccess
	}

	cfg, err := config.Load(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cliscore: failed to load config: %v\n", err)
		return exitSystemError
	}

	fmt.Fprintln(os.Stderr, "Current configuration:")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintf(os.Stderr, "  Jobs:              %d\n", cfg.Jobs)
	fmt.Fprintf(os.Stderr, "  Shell:             %s\n", cfg.Shell)
	fmt.Fprintf(os.Stderr, "  Timeout:           %ds\n", cfg.TimeoutSeconds)
	fmt.Fprintf(os.Stderr, "  Trace:             %t\n", cfg.Trace)
	fmt.Fprintf(os.Stderr, "  Allowed languages: %v\n", cfg.AllowedLanguages)

	return exitSuccess
}
