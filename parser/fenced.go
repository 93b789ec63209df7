package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// fenceOpenRE recognizes a fence's opening line and captures its language
// tag, e.g. "```cliscore" -> "cliscore".
var fenceOpenRE = regexp.MustCompile("^```\\s*([\\w.+-]*)\\s*$")

// fencedCommandRE recognizes a command prompt line inside a fenced block:
// an optional "user@host"-style prefix, then "$ " or "# ".
var fencedCommandRE = regexp.MustCompile(`^(?:[\w.-]+(?:@[\w.-]+)?)?[$#] `)

// fencedContinuationRE recognizes a PS2-style continuation line.
var fencedContinuationRE = regexp.MustCompile(`^\s*> `)

// parseFenced parses the fenced-code-block dialect: a markdown-like
// document in which each ``` fenced block whose language tag is in
// allowedLanguages holds one or more shell sessions, command lines
// matched by fencedCommandRE, continued by fencedContinuationRE, followed
// by raw output lines up to the next command or the closing fence.
func parseFenced(path string, data []byte, allowedLanguages []string) (*TestFile, error) {
	tf := &TestFile{Path: path, Dialect: Fenced}
	sc := newLineScanner(data)

	allowed := make(map[string]bool, len(allowedLanguages))
	for _, lang := range allowedLanguages {
		allowed[lang] = true
	}

	var cur *Test
	flush := func() {
		if cur != nil {
			tf.Tests = append(tf.Tests, *cur)
			cur = nil
		}
	}

	inFence := false
	for sc.Scan() {
		line := sc.Text()

		if !inFence {
			if m := fenceOpenRE.FindStringSubmatch(line); m != nil {
				lang := m[1]
				if allowed[lang] {
					inFence = true
				}
			}
			continue
		}

		if strings.HasPrefix(strings.TrimRight(line, " \t"), "```") {
			flush()
			inFence = false
			continue
		}

		switch {
		case fencedCommandRE.MatchString(line):
			flush()
			cmd := fencedCommandRE.ReplaceAllString(line, "")
			cur = &Test{Command: cmd, SourceLine: sc.LineNum()}

		case fencedContinuationRE.MatchString(line):
			if cur != nil {
				cur.Command += "\n" + fencedContinuationRE.ReplaceAllString(line, "")
			}

		case cur != nil:
			cur.Expectations = append(cur.Expectations, parseOutputLine(line))

		default:
			// Raw line outside any open test and outside a command: ignored,
			// since fenced blocks may carry narrative text before the first
			// prompt.
		}
	}
	flush()

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning fenced test file %s: %w", path, err)
	}
	return tf, nil
}
