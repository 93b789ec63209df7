package parser

import (
	"strconv"
	"strings"

	"github.com/user/cliscore/pattern"
)

const (
	cmdPrefix      = "  $ "
	altCmdPrefix   = "  # "
	contPrefix     = "  > "
	outputIndent   = "  "
)

// suffixKind is a recognized " (re)"-style output-line suffix in the
// indented dialect.
type suffixKind int

const (
	suffixNone suffixKind = iota
	suffixRegex
	suffixGlob
	suffixNoEol
	suffixEsc
)

var suffixTags = map[string]suffixKind{
	" (re)":     suffixRegex,
	" (glob)":   suffixGlob,
	" (no-eol)": suffixNoEol,
	" (esc)":    suffixEsc,
}

// parseIndented parses the Cram-style indented dialect: two-space-indented
// "$ "/"# " command lines (optionally continued with "> " lines), followed
// by two-space-indented output lines, with output-line suffixes
// reclassifying the match kind. A blank line or a line outside the
// two-space indentation closes the test currently being accumulated.
func parseIndented(path string, data []byte) (*TestFile, error) {
	tf := &TestFile{Path: path, Dialect: Indented}
	sc := newLineScanner(data)

	var cur *Test
	flush := func() {
		if cur != nil {
			tf.Tests = append(tf.Tests, *cur)
			cur = nil
		}
	}

	for sc.Scan() {
		line := sc.Text()

		switch {
		case strings.HasPrefix(line, cmdPrefix) || strings.HasPrefix(line, altCmdPrefix):
			flush()
			cur = &Test{Command: line[len(cmdPrefix):], SourceLine: sc.LineNum()}

		case strings.HasPrefix(line, contPrefix):
			if cur != nil {
				cur.Command += "\n" + line[len(contPrefix):]
			}

		case strings.HasPrefix(line, outputIndent) && cur != nil:
			payload := line[len(outputIndent):]
			cur.Expectations = append(cur.Expectations, parseIndentedOutputLine(payload))

		default:
			// Blank line, comment line, or dedented text: closes any test
			// currently being accumulated.
			flush()
		}
	}
	flush()

	if err := sc.Err(); err != nil {
		return nil, err
	}
	return tf, nil
}

// parseIndentedOutputLine applies Cram-style suffix reclassification
// before falling back to the shared bracket/inline/literal handling in
// parseOutputLine.
func parseIndentedOutputLine(payload string) pattern.Expectation {
	for suffix, kind := range suffixTags {
		body, ok := strings.CutSuffix(payload, suffix)
		if !ok {
			continue
		}
		switch kind {
		case suffixRegex:
			return &pattern.Regex{Source: body}
		case suffixGlob:
			return &pattern.Glob{Source: body}
		case suffixNoEol:
			return pattern.NoEol{Text: body, HasText: body != ""}
		case suffixEsc:
			if unescaped, err := strconv.Unquote(`"` + body + `"`); err == nil {
				return pattern.Literal{Text: unescaped}
			}
			return pattern.Literal{Text: body}
		}
	}
	return parseOutputLine(payload)
}
