// Package pattern defines the closed algebra of per-line output
// expectations that cliscore test files compile down to.
//
// Expectation is a sum type: Literal, Regex, Glob, Ellipsis, NoEol, Inline,
// StreamTagged, and Skip are its only variants. Consumers (the matcher) are
// expected to dispatch on the concrete type with a type switch rather than
// adding behavior to the Expectation interface itself — see DESIGN.md for
// why dynamic dispatch is deliberately avoided here.
package pattern

import (
	"fmt"
	"regexp"
	"strings"

	shpattern "mvdan.cc/sh/v3/pattern"
)

// Stream identifies which captured stream an Expectation applies to.
type Stream int

const (
	// Stdout is the default stream for an expectation.
	Stdout Stream = iota
	// Stderr is used only via StreamTagged.
	Stderr
)

// String returns the stream name, lowercase, as used in diagnostics.
func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Expectation is the closed set of per-line expectation forms described in
// spec.md §3. The unexported marker method prevents packages outside
// pattern from adding new variants.
type Expectation interface {
	expectationMarker()
}

// Literal matches one line that equals Text exactly, byte-for-byte.
type Literal struct {
	Text string
}

func (Literal) expectationMarker() {}

// Regex matches a line against an anchored, whole-line regular expression.
// Flags may include "i" (case-insensitive), "s" (dot-matches-newline), "m"
// (multiline) in any combination, following Go's inline flag syntax.
type Regex struct {
	Source string
	Flags  string

	compiled *regexp.Regexp
}

func (Regex) expectationMarker() {}

// Compile lazily builds and caches the anchored regexp for r. It is safe to
// call repeatedly; subsequent calls reuse the cached *regexp.Regexp.
func (r *Regex) Compile() (*regexp.Regexp, error) {
	if r.compiled != nil {
		return r.compiled, nil
	}
	src := r.Source
	if r.Flags != "" {
		src = fmt.Sprintf("(?%s)", r.Flags) + src
	}
	anchored := "^(?:" + src + ")$"
	re, err := regexp.Compile(anchored)
	if err != nil {
		return nil, fmt.Errorf("compiling regex expectation %q: %w", r.Source, err)
	}
	r.compiled = re
	return re, nil
}

// Glob matches a line against a shell-glob-style pattern: '*' is any run of
// characters, '?' is one character, and '\X' escapes a literal '*', '?', or
// '\'. Translation to a regular expression is delegated to mvdan.cc/sh/v3's
// pattern compiler rather than hand-rolled, so the semantics track a real
// shell's glob grammar exactly.
type Glob struct {
	Source string

	compiled *regexp.Regexp
}

func (Glob) expectationMarker() {}

// Compile lazily builds and caches the anchored regexp equivalent to the
// glob, via mvdan.cc/sh/v3/pattern. The EntireString mode anchors the
// translation to the whole line, matching spec.md's "anchored whole-line"
// requirement for Glob.
func (g *Glob) Compile() (*regexp.Regexp, error) {
	if g.compiled != nil {
		return g.compiled, nil
	}
	reSrc, err := shpattern.Regexp(g.Source, shpattern.EntireString)
	if err != nil {
		return nil, fmt.Errorf("compiling glob expectation %q: %w", g.Source, err)
	}
	re, err := regexp.Compile(reSrc)
	if err != nil {
		return nil, fmt.Errorf("compiling glob expectation %q: %w", g.Source, err)
	}
	g.compiled = re
	return re, nil
}

// Ellipsis matches zero or more consecutive lines on the current stream.
// Its placement is not checked: the parser accepts "..." on any output
// line, and the matcher treats consecutive Ellipsis values as one.
type Ellipsis struct{}

func (Ellipsis) expectationMarker() {}

// NoEol matches a last line lacking a terminating newline. If HasText is
// false, it matches any such line; otherwise the line must also equal Text.
type NoEol struct {
	Text    string
	HasText bool
}

func (NoEol) expectationMarker() {}

// InlinePart is one element of an Inline template: either a literal
// fragment or an embedded sub-pattern (Regex or Glob).
type InlinePart struct {
	Literal string      // set when Sub is nil
	Sub     Expectation // *Regex or *Glob; nil when this part is literal text
}

// Inline is a single-line mixed template: literal text interleaved with
// embedded Regex or Glob sub-patterns. The whole template must match the
// full line.
type Inline struct {
	Parts []InlinePart

	compiled *regexp.Regexp
}

func (Inline) expectationMarker() {}

// Compile lazily builds the anchored whole-line regexp for the template by
// escaping literal fragments and substituting each sub-pattern's own
// regexp source.
func (in *Inline) Compile() (*regexp.Regexp, error) {
	if in.compiled != nil {
		return in.compiled, nil
	}
	var b strings.Builder
	b.WriteString("^(?:")
	for _, part := range in.Parts {
		if part.Sub == nil {
			b.WriteString(regexp.QuoteMeta(part.Literal))
			continue
		}
		switch sub := part.Sub.(type) {
		case *Regex:
			src := sub.Source
			if sub.Flags != "" {
				src = fmt.Sprintf("(?%s)", sub.Flags) + src
			}
			b.WriteString("(?:")
			b.WriteString(src)
			b.WriteString(")")
		case *Glob:
			reSrc, err := shpattern.Regexp(sub.Source, 0)
			if err != nil {
				return nil, fmt.Errorf("compiling inline glob fragment %q: %w", sub.Source, err)
			}
			b.WriteString("(?:")
			b.WriteString(reSrc)
			b.WriteString(")")
		default:
			return nil, fmt.Errorf("inline template contains unsupported sub-pattern %T", sub)
		}
	}
	b.WriteString(")$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("compiling inline template: %w", err)
	}
	in.compiled = re
	return re, nil
}

// StreamTagged redirects Inner to the stderr stream. By default,
// expectations bind to stdout; StreamTagged is the only way to target
// stderr, and the tag does not persist across lines.
type StreamTagged struct {
	Inner Expectation
}

func (StreamTagged) expectationMarker() {}

// Skip short-circuits a test: if any expectation in a test is Skip, the
// test is reported as skipped with Reason, regardless of position.
type Skip struct {
	Reason string
}

func (Skip) expectationMarker() {}

// StreamOf returns the stream an expectation is bound to: Stderr for a
// StreamTagged expectation, Stdout for everything else.
func StreamOf(e Expectation) Stream {
	if _, ok := e.(StreamTagged); ok {
		return Stderr
	}
	return Stdout
}

// Unwrap returns the inner expectation of a StreamTagged value, or e
// itself if e is not stream-tagged.
func Unwrap(e Expectation) Expectation {
	if st, ok := e.(StreamTagged); ok {
		return st.Inner
	}
	return e
}
