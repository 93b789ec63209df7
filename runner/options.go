package runner

import (
	"time"

	"github.com/user/cliscore/internal/tracing"
)

// defaultShell and defaultTimeout mirror spec.md §6's stated defaults.
const (
	defaultShell   = "/bin/sh"
	defaultTimeout = 30 * time.Second
	defaultJobs    = 1
)

var defaultAllowedLanguages = []string{"cliscore", "console"}

// config holds the Runner's resolved options before construction, built up
// by applying each Option in order.
type config struct {
	jobs             int
	shell            string
	timeout          time.Duration
	allowedLanguages []string
	trace            bool
	traceSink        tracing.Sink
	onFileComplete   OnFileComplete
}

func newConfig() *config {
	return &config{
		jobs:             defaultJobs,
		shell:            defaultShell,
		timeout:          defaultTimeout,
		allowedLanguages: append([]string(nil), defaultAllowedLanguages...),
		traceSink:        tracing.Noop(),
	}
}

// Option configures a Runner, mirroring the teacher's
// `backend.NewAnthropicBackend(opts ...AnthropicOption)` functional-options
// pattern.
type Option func(*config)

// WithJobs sets how many files may run concurrently. Values less than 1 are
// clamped to 1.
func WithJobs(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.jobs = n
	}
}

// WithShell sets the shell binary each Driver spawns.
func WithShell(path string) Option {
	return func(c *config) { c.shell = path }
}

// WithTimeout sets the per-command deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithAllowedLanguages sets the fenced-dialect's allow-listed code-fence
// language tags.
func WithAllowedLanguages(langs ...string) Option {
	return func(c *config) { c.allowedLanguages = append([]string(nil), langs...) }
}

// WithTrace enables or disables trace-mode event emission.
func WithTrace(on bool) Option {
	return func(c *config) { c.trace = on }
}

// WithTraceSink sets the trace-event sink used when trace mode is enabled.
// A nil sink is treated as tracing.Noop().
func WithTraceSink(sink tracing.Sink) Option {
	return func(c *config) {
		if sink == nil {
			sink = tracing.Noop()
		}
		c.traceSink = sink
	}
}

// OnFileComplete is invoked once per file as it finishes, per spec.md §4.5.
type OnFileComplete func(result TestResult, index, total int, duration time.Duration)

// WithOnFileComplete registers the progress callback external collaborators
// (progress reporting, JSON rendering, interactive stepping) subscribe to,
// per spec.md §4.5.
func WithOnFileComplete(cb OnFileComplete) Option {
	return func(c *config) { c.onFileComplete = cb }
}
