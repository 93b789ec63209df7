// Package matcher implements the pure comparison between a command's
// captured stdout/stderr lines and the expectations declared for it.
package matcher

import (
	"fmt"
	"strings"

	"github.com/user/cliscore/pattern"
)

// Diagnostic describes one point of divergence between captured output and
// a declared expectation, with enough detail to render spec.md's required
// verbosity tiers without re-walking the match.
type Diagnostic struct {
	Stream   pattern.Stream
	LineNum  int // 1-based index into the stream's captured lines; for a missing line, one past the cursor in the merged stdout-then-stderr sequence
	Expected string
	Got      string
	Reason   string // human-readable classification, e.g. "case differs only"
}

// Result is the outcome of matching one test's expectations against its
// captured output.
type Result struct {
	Passed      bool
	Skipped     bool
	SkipReason  string
	Diagnostics []Diagnostic
}

// Captured holds the line-split output of one command execution. StdoutNoEol
// reports whether the captured standard-output text ended without a
// trailing newline, the bit the shell driver computes while framing the
// command (see shell.Result); NoEol expectations consult it rather than
// merely checking position.
type Captured struct {
	Stdout      []string
	Stderr      []string
	StdoutNoEol bool
}

// event is one line of captured output placed into the single merged
// sequence spec.md §4.3 matches expectations against: every stdout line,
// in order, followed by every stderr line, in order. posInStream and last
// are relative to the line's own stream, so NoEol (which only ever applies
// to a stream's final line) and diagnostics (which report a 1-based
// per-stream line number) don't need to re-derive them.
type event struct {
	text        string
	stream      pattern.Stream
	posInStream int
	last        bool
}

// buildEvents merges captured's two streams into the single sequence
// matchSeq walks with one shared cursor.
func buildEvents(captured Captured) []event {
	events := make([]event, 0, len(captured.Stdout)+len(captured.Stderr))
	for i, line := range captured.Stdout {
		events = append(events, event{text: line, stream: pattern.Stdout, posInStream: i, last: i == len(captured.Stdout)-1})
	}
	for i, line := range captured.Stderr {
		events = append(events, event{text: line, stream: pattern.Stderr, posInStream: i, last: i == len(captured.Stderr)-1})
	}
	return events
}

// Match compares exps against captured, applying spec.md §4.3's
// merge-and-walk algorithm: stdout and stderr lines are merged into one
// sequence (all stdout events before all stderr events) and walked with a
// single shared cursor. Binding an expectation to a stream other than the
// one the cursor currently sits in forfeits every event of the old stream
// still ahead of the cursor — the cursor only ever moves forward. Ellipsis
// commits to the first position where the next concrete expectation
// matches and never backtracks past a later firm failure.
func Match(exps []pattern.Expectation, captured Captured) Result {
	for _, e := range exps {
		if skip, ok := e.(pattern.Skip); ok {
			return Result{Skipped: true, SkipReason: skip.Reason}
		}
	}

	events := buildEvents(captured)
	noEol := map[pattern.Stream]bool{pattern.Stdout: captured.StdoutNoEol, pattern.Stderr: false}

	var diags []Diagnostic
	if ok, _ := matchSeq(exps, 0, events, noEol, &diags); !ok {
		return Result{Passed: false, Diagnostics: diags}
	}
	return Result{Passed: true}
}

// matchSeq walks exps against events starting at idx, advancing the shared
// cursor on every successful step and recording a diagnostic (without
// advancing) on the first failure. It returns false as soon as a
// non-Ellipsis expectation fails to match, since the merge-and-walk
// algorithm does not backtrack past a firm failure. Reaching the end of the
// loop means no further expectations remain, which is exactly when any
// event still ahead of the cursor becomes a trailing-output failure.
func matchSeq(exps []pattern.Expectation, idx int, events []event, noEolBits map[pattern.Stream]bool, diags *[]Diagnostic) (bool, int) {
	for i := 0; i < len(exps); i++ {
		e := exps[i]
		if _, isEllipsis := e.(pattern.Ellipsis); isEllipsis {
			next := firstConcrete(exps[i+1:])
			if next == nil {
				return true, len(events)
			}
			newIdx, ok := scanEllipsis(*next, idx, events, noEolBits)
			if !ok {
				*diags = append(*diags, Diagnostic{
					Stream:   pattern.StreamOf(*next),
					LineNum:  idx + 1,
					Expected: "... (some number of lines before the next expectation)",
					Got:      "<no suffix of remaining output satisfied the expectations after \"...\">",
					Reason:   "ellipsis could not find a matching continuation",
				})
				return false, idx
			}
			idx = newIdx
			continue
		}

		ok, next, diag := matchExpectationAt(e, idx, events, noEolBits)
		if !ok {
			*diags = append(*diags, diag)
			return false, idx
		}
		idx = next
	}

	if trailing := trailingDiagnostics(idx, events); len(trailing) > 0 {
		*diags = append(*diags, trailing...)
		return false, idx
	}
	return true, idx
}

// firstConcrete returns the first non-Ellipsis expectation in exps (several
// consecutive Ellipsis expectations behave as one), or nil if exps contains
// none, meaning the Ellipsis runs to the end of the expectation list.
func firstConcrete(exps []pattern.Expectation) *pattern.Expectation {
	for i := range exps {
		if _, isEllipsis := exps[i].(pattern.Ellipsis); isEllipsis {
			continue
		}
		return &exps[i]
	}
	return nil
}

// scanEllipsis advances from idx, testing next against each candidate
// position in turn, and commits to the first one that matches by the
// single-line rule — it does not verify that the rest of the expectation
// list also matches from there, since the outer matchSeq walk is what
// performs (and, on a later firm failure, refuses to backtrack past) that
// check. next itself is left unconsumed; the caller's next loop iteration
// matches and consumes it normally.
func scanEllipsis(next pattern.Expectation, idx int, events []event, noEolBits map[pattern.Stream]bool) (int, bool) {
	for pos := idx; pos < len(events); pos++ {
		if ok, _, _ := matchExpectationAt(next, pos, events, noEolBits); ok {
			return pos, true
		}
	}
	return 0, false
}

// advanceToStream moves idx forward past any events that don't belong to
// stream, forfeiting them — the single shared cursor never moves backward,
// so switching which stream an expectation targets skips whatever is left
// of the stream being abandoned.
func advanceToStream(idx int, events []event, stream pattern.Stream) int {
	for idx < len(events) && events[idx].stream != stream {
		idx++
	}
	return idx
}

// matchExpectationAt tests one non-Ellipsis expectation against events
// starting at idx, first forfeiting any events ahead of idx that don't
// belong to e's stream. On success it returns the cursor position just
// past the consumed event.
func matchExpectationAt(e pattern.Expectation, idx int, events []event, noEolBits map[pattern.Stream]bool) (bool, int, Diagnostic) {
	stream := pattern.StreamOf(e)
	inner := pattern.Unwrap(e)
	idx = advanceToStream(idx, events, stream)

	if noEol, isNoEol := inner.(pattern.NoEol); isNoEol {
		return matchNoEolAt(noEol, stream, idx, events, noEolBits)
	}

	if idx >= len(events) {
		return false, idx, Diagnostic{
			Stream:   stream,
			LineNum:  idx + 1,
			Expected: describe(inner),
			Got:      "<no more output>",
			Reason:   "missing output line",
		}
	}

	got := events[idx].text
	matched, reason := matchOne(inner, got)
	if !matched {
		return false, idx, Diagnostic{
			Stream:   stream,
			LineNum:  events[idx].posInStream + 1,
			Expected: describe(inner),
			Got:      got,
			Reason:   reason,
		}
	}
	return true, idx + 1, Diagnostic{}
}

// matchNoEolAt asserts that idx sits on stream's final event and that the
// shell driver recorded that line as lacking a trailing newline
// (noEolBits), per spec.md §4.3's "absence of newline" rule.
func matchNoEolAt(n pattern.NoEol, stream pattern.Stream, idx int, events []event, noEolBits map[pattern.Stream]bool) (bool, int, Diagnostic) {
	if idx >= len(events) {
		return false, idx, Diagnostic{
			Stream:   stream,
			LineNum:  idx + 1,
			Expected: "<final line without trailing newline>",
			Got:      "<no more output>",
			Reason:   "no-eol expectation has no output line to apply to",
		}
	}
	ev := events[idx]
	if !ev.last {
		return false, idx, Diagnostic{
			Stream:   stream,
			LineNum:  ev.posInStream + 1,
			Expected: "<final line without trailing newline>",
			Got:      fmt.Sprintf("not the last line of %s", stream),
			Reason:   "no-eol expectation is not positioned at the last line",
		}
	}
	if !noEolBits[stream] {
		return false, idx, Diagnostic{
			Stream:   stream,
			LineNum:  ev.posInStream + 1,
			Expected: "<final line without trailing newline>",
			Got:      ev.text,
			Reason:   "the captured stream ended with a trailing newline",
		}
	}
	if n.HasText && ev.text != n.Text {
		return false, idx, Diagnostic{
			Stream:   stream,
			LineNum:  ev.posInStream + 1,
			Expected: n.Text,
			Got:      ev.text,
			Reason:   classify(n.Text, ev.text),
		}
	}
	return true, idx + 1, Diagnostic{}
}

// matchOne compares one concrete (non-Ellipsis, non-NoEol) expectation
// against a single captured line.
func matchOne(e pattern.Expectation, got string) (bool, string) {
	switch v := e.(type) {
	case pattern.Literal:
		if v.Text == got {
			return true, ""
		}
		return false, classify(v.Text, got)

	case *pattern.Regex:
		re, err := v.Compile()
		if err != nil {
			return false, fmt.Sprintf("invalid regex: %v", err)
		}
		if re.MatchString(got) {
			return true, ""
		}
		return false, "regex did not match"

	case *pattern.Glob:
		re, err := v.Compile()
		if err != nil {
			return false, fmt.Sprintf("invalid glob: %v", err)
		}
		if re.MatchString(got) {
			return true, ""
		}
		return false, "glob did not match"

	case pattern.Inline:
		re, err := v.Compile()
		if err != nil {
			return false, fmt.Sprintf("invalid inline template: %v", err)
		}
		if re.MatchString(got) {
			return true, ""
		}
		return false, "inline template did not match"

	default:
		return false, fmt.Sprintf("unsupported expectation type %T", e)
	}
}

// classify distinguishes a few common near-miss shapes so diagnostics can
// point at the likely cause rather than a bare "strings differ".
func classify(expected, got string) string {
	if strings.EqualFold(expected, got) {
		return "differs only in case"
	}
	if strings.TrimSpace(expected) == strings.TrimSpace(got) {
		return "differs only in leading/trailing whitespace"
	}
	if strings.Join(strings.Fields(expected), " ") == strings.Join(strings.Fields(got), " ") {
		return "differs only in whitespace"
	}
	if strings.Contains(got, expected) {
		return "expected text is a substring of the actual line"
	}
	if strings.Contains(expected, got) {
		return "actual text is a substring of the expected line"
	}
	return "lines differ"
}

// describe renders an expectation as a short human-readable string for use
// in diagnostics.
func describe(e pattern.Expectation) string {
	switch v := e.(type) {
	case pattern.Literal:
		return v.Text
	case *pattern.Regex:
		return "/" + v.Source + "/" + v.Flags
	case *pattern.Glob:
		return v.Source
	case pattern.Inline:
		return "<inline template>"
	case pattern.NoEol:
		return "<no trailing newline>"
	default:
		return fmt.Sprintf("%v", e)
	}
}

// trailingDiagnostics reports every event still ahead of idx once all
// expectations have matched — unconsumed output on either stream.
func trailingDiagnostics(idx int, events []event) []Diagnostic {
	var diags []Diagnostic
	for ; idx < len(events); idx++ {
		diags = append(diags, Diagnostic{
			Stream:   events[idx].stream,
			LineNum:  events[idx].posInStream + 1,
			Expected: "<end of output>",
			Got:      events[idx].text,
			Reason:   "unexpected trailing output line",
		})
	}
	return diags
}
