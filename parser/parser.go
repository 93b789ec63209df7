// Package parser decodes cliscore test files — the indented Cram-style
// dialect, the fenced-code-block dialect, and the mixed dialect that picks
// between them — into a uniform sequence of Test records.
package parser

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/cliscore/internal/errs"
	"github.com/user/cliscore/pattern"
)

// Dialect identifies which grammar a test file should be parsed with.
type Dialect int

const (
	// Indented is the two-space-indentation Cram-style form.
	Indented Dialect = iota
	// Fenced is the fenced-code-block form inside a markdown-like
	// container.
	Fenced
	// Mixed tries the fenced dialect when a fence sequence is present in
	// the file body, and falls back to Indented otherwise.
	Mixed
)

// String returns the dialect's name.
func (d Dialect) String() string {
	switch d {
	case Indented:
		return "indented"
	case Fenced:
		return "fenced"
	case Mixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// DefaultAllowedLanguages is the fenced-form language allow list used when
// a Parser is constructed without an explicit override.
var DefaultAllowedLanguages = []string{"cliscore", "console"}

// DialectForPath classifies a test file by suffix, per spec.md §6:
// ".t" -> Indented, ".md" -> Fenced, ".cliscore" -> Mixed. Any other
// extension also falls back to Indented; ParseFile rejects unsupported
// suffixes before it gets here.
func DialectForPath(path string) Dialect {
	switch filepath.Ext(path) {
	case ".t":
		return Indented
	case ".md":
		return Fenced
	case ".cliscore":
		return Mixed
	default:
		return Indented
	}
}

// Test is one command paired with its declared expectations, carrying the
// 1-based source line of the command for diagnostics.
type Test struct {
	Command      string
	Expectations []pattern.Expectation
	SourceLine   int
}

// TestFile is the parsed form of one test file: an ordered, immutable list
// of Test records plus which dialect produced them.
type TestFile struct {
	Path    string
	Dialect Dialect
	Tests   []Test
}

// Parser decodes test files into TestFile values.
type Parser struct {
	// AllowedLanguages is the fenced-form language allow list. Empty means
	// DefaultAllowedLanguages.
	AllowedLanguages []string
}

// New constructs a Parser with the given fenced-form language allow list.
// A nil or empty slice falls back to DefaultAllowedLanguages.
func New(allowedLanguages []string) *Parser {
	return &Parser{AllowedLanguages: allowedLanguages}
}

func (p *Parser) allowedLanguages() []string {
	if len(p.AllowedLanguages) == 0 {
		return DefaultAllowedLanguages
	}
	return p.AllowedLanguages
}

// ParseFile reads path from disk and parses it using the dialect implied
// by its suffix. An unsupported suffix or an unreadable file is reported as
// an errs.KindParse error.
func (p *Parser) ParseFile(path string) (*TestFile, error) {
	switch filepath.Ext(path) {
	case ".t", ".md", ".cliscore":
	default:
		return nil, errs.New(errs.KindParse, fmt.Errorf("unsupported test file suffix %q: %s", filepath.Ext(path), path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.KindParse, fmt.Errorf("reading test file %s: %w", path, err))
	}
	return p.Parse(path, data, DialectForPath(path))
}

// Parse decodes data as a test file of the given dialect.
func (p *Parser) Parse(path string, data []byte, dialect Dialect) (*TestFile, error) {
	switch dialect {
	case Indented:
		return parseIndented(path, data)
	case Fenced:
		return parseFenced(path, data, p.allowedLanguages())
	case Mixed:
		if containsFence(data) {
			tf, err := parseFenced(path, data, p.allowedLanguages())
			if err != nil {
				return nil, err
			}
			tf.Dialect = Mixed
			return tf, nil
		}
		tf, err := parseIndented(path, data)
		if err != nil {
			return nil, err
		}
		tf.Dialect = Mixed
		return tf, nil
	default:
		return nil, fmt.Errorf("parsing %s: unsupported dialect %v", path, dialect)
	}
}

// containsFence reports whether data contains a markdown fence marker
// anywhere in its body, which is the Mixed dialect's signal to prefer the
// Fenced grammar (spec.md §4.2 "Mixed dialect").
func containsFence(data []byte) bool {
	return bytes.Contains(data, []byte("```"))
}
