package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/user/cliscore/pattern"
)

// bracketRE recognizes the bracket expectation forms documented in
// spec.md §4.2: [Kind: payload] or bare [Kind].
var bracketRE = regexp.MustCompile(`^\[([A-Za-z][A-Za-z -]*?)(?::\s*(.*))?\]$`)

// regexSuffixRE splits a "Matching" payload into its body and an optional
// trailing /flags slash-delimited flag suffix, e.g. "/i" or "/im".
var regexSuffixRE = regexp.MustCompile(`^(.*)/([a-z]*)$`)

// parseOutputLine classifies one raw output line of a test body into an
// Expectation. It never returns an error: any bracket-shaped text that
// doesn't match a recognized kind, or any malformed payload, degrades to a
// Literal holding the original text verbatim, per spec.md §4.2's "bracket
// forms never fail to parse" rule.
func parseOutputLine(raw string) pattern.Expectation {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "..." {
		return pattern.Ellipsis{}
	}

	if e, ok := parseInlineLine(raw); ok {
		return e
	}

	m := bracketRE.FindStringSubmatch(trimmed)
	if m == nil {
		return pattern.Literal{Text: raw}
	}
	kind := strings.ToLower(strings.TrimSpace(m[1]))
	hasPayload := strings.Contains(trimmed, ":")
	payload := m[2]

	switch kind {
	case "literal text", "literal":
		if !hasPayload {
			return pattern.Literal{Text: raw}
		}
		text, ok := unquote(payload)
		if !ok {
			return pattern.Literal{Text: raw}
		}
		return pattern.Literal{Text: text}

	case "matching glob":
		if !hasPayload {
			return pattern.Literal{Text: raw}
		}
		return &pattern.Glob{Source: payload}

	case "matching":
		if !hasPayload {
			return pattern.Literal{Text: raw}
		}
		source, flags := splitRegexFlags(payload)
		return &pattern.Regex{Source: source, Flags: flags}

	case "output ends without end-of-line":
		if hasPayload {
			text, ok := unquote(payload)
			if ok {
				return pattern.NoEol{Text: text, HasText: true}
			}
		}
		return pattern.NoEol{}

	case "stderr":
		if !hasPayload {
			return pattern.Literal{Text: raw}
		}
		inner := parseOutputLine(payload)
		if _, isSkip := inner.(pattern.Skip); isSkip {
			return pattern.Literal{Text: raw}
		}
		return pattern.StreamTagged{Inner: inner}

	case "skip":
		reason := ""
		if hasPayload {
			reason = strings.TrimSpace(payload)
		}
		return pattern.Skip{Reason: reason}

	default:
		return pattern.Literal{Text: raw}
	}
}

// splitRegexFlags pulls an optional trailing "/flags" suffix off a
// "Matching: ..." payload, e.g. "foo.*bar/i" -> ("foo.*bar", "i"). A
// payload without the suffix is returned unchanged with an empty flag set.
func splitRegexFlags(payload string) (source, flags string) {
	m := regexSuffixRE.FindStringSubmatch(payload)
	if m == nil {
		return payload, ""
	}
	return m[1], m[2]
}

// unquote strips one layer of matching double quotes from s, interpreting
// backslash escapes the way Go string literals do. Text without surrounding
// quotes is returned trimmed and unchanged, and a quoted string whose
// escapes do not parse has only its outer quotes removed. It reports false
// only when s is empty after trimming, leaving the caller to fall back to a
// raw Literal.
func unquote(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s, len(s) >= 0 && s != ""
	}
	out, err := strconv.Unquote(s)
	if err != nil {
		return s[1 : len(s)-1], true
	}
	return out, true
}

// inlineFragmentRE finds embedded `[Matching: payload]` / `[Matching glob:
// payload]` fragments inside an otherwise literal output line, per
// spec.md §4.2 "Inline detection" — the same bracket grammar §4.2 already
// defines for whole-line use, just interleaved with literal text instead of
// spanning the whole line. Group 1 is non-empty when the fragment is the
// glob form; group 2 is the payload.
var inlineFragmentRE = regexp.MustCompile(`(?i)\[Matching(\s+glob)?\s*:\s*([^\]]*)\]`)

// parseInlineLine detects whether raw contains one or more embedded
// `[Matching: ...]`/`[Matching glob: ...]` fragments interleaved with
// literal text and, if so, builds the corresponding Inline template. It
// returns ok=false for lines with no recognized fragment, and also when raw
// (ignoring surrounding whitespace) is exactly one such fragment — that
// case is the whole-line bracket form and is left to the caller's bracketRE
// handling, which returns the bare *Regex/*Glob rather than a
// single-fragment Inline wrapper.
func parseInlineLine(raw string) (pattern.Expectation, bool) {
	locs := inlineFragmentRE.FindAllStringSubmatchIndex(raw, -1)
	if len(locs) == 0 {
		return nil, false
	}
	if len(locs) == 1 {
		start, end := locs[0][0], locs[0][1]
		if strings.TrimSpace(raw[:start]) == "" && strings.TrimSpace(raw[end:]) == "" {
			return nil, false
		}
	}

	var parts []InlinePartBuilder
	pos := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if start > pos {
			parts = append(parts, InlinePartBuilder{literal: raw[pos:start]})
		}
		isGlob := loc[2] >= 0
		body := raw[loc[4]:loc[5]]
		if isGlob {
			parts = append(parts, InlinePartBuilder{sub: &pattern.Glob{Source: body}})
		} else {
			source, flags := splitRegexFlags(body)
			parts = append(parts, InlinePartBuilder{sub: &pattern.Regex{Source: source, Flags: flags}})
		}
		pos = end
	}
	if pos < len(raw) {
		parts = append(parts, InlinePartBuilder{literal: raw[pos:]})
	}

	inlineParts := make([]pattern.InlinePart, 0, len(parts))
	for _, p := range parts {
		if p.sub != nil {
			inlineParts = append(inlineParts, pattern.InlinePart{Sub: p.sub})
		} else {
			inlineParts = append(inlineParts, pattern.InlinePart{Literal: p.literal})
		}
	}
	return pattern.Inline{Parts: inlineParts}, true
}

// InlinePartBuilder is the mutable staging form used while scanning an
// inline template's fragments, before conversion to pattern.InlinePart.
type InlinePartBuilder struct {
	literal string
	sub     pattern.Expectation
}
