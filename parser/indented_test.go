package parser

import (
	"testing"

	"github.com/user/cliscore/pattern"
)

func TestParseIndentedBasic(t *testing.T) {
	src := "  $ echo hi\n  hi\n"
	tf, err := parseIndented("t.t", []byte(src))
	if err != nil {
		t.Fatalf("parseIndented() error = %v", err)
	}
	if len(tf.Tests) != 1 {
		t.Fatalf("got %d tests, want 1", len(tf.Tests))
	}
	tc := tf.Tests[0]
	if tc.Command != "echo hi" {
		t.Errorf("Command = %q, want %q", tc.Command, "echo hi")
	}
	if len(tc.Expectations) != 1 {
		t.Fatalf("got %d expectations, want 1", len(tc.Expectations))
	}
	lit, ok := tc.Expectations[0].(pattern.Literal)
	if !ok || lit.Text != "hi" {
		t.Errorf("Expectations[0] = %#v, want Literal{Text: \"hi\"}", tc.Expectations[0])
	}
}

func TestParseIndentedContinuation(t *testing.T) {
	src := "  $ echo hi \\\n  > world\n  hi world\n"
	tf, err := parseIndented("t.t", []byte(src))
	if err != nil {
		t.Fatalf("parseIndented() error = %v", err)
	}
	want := "echo hi \\\nworld"
	if tf.Tests[0].Command != want {
		t.Errorf("Command = %q, want %q", tf.Tests[0].Command, want)
	}
}

func TestParseIndentedBlankLineClosesTest(t *testing.T) {
	src := "  $ echo a\n  a\n\n  $ echo b\n  b\n"
	tf, err := parseIndented("t.t", []byte(src))
	if err != nil {
		t.Fatalf("parseIndented() error = %v", err)
	}
	if len(tf.Tests) != 2 {
		t.Fatalf("got %d tests, want 2", len(tf.Tests))
	}
}

func TestParseIndentedSuffixes(t *testing.T) {
	tests := []struct {
		name string
		line string
		want pattern.Expectation
	}{
		{"re suffix", "  \\d+ (re)", &pattern.Regex{Source: "\\d+"}},
		{"glob suffix", "  foo* (glob)", &pattern.Glob{Source: "foo*"}},
		{"no-eol suffix", "  partial (no-eol)", pattern.NoEol{Text: "partial", HasText: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "  $ cmd\n" + tt.line + "\n"
			tf, err := parseIndented("t.t", []byte(src))
			if err != nil {
				t.Fatalf("parseIndented() error = %v", err)
			}
			got := tf.Tests[0].Expectations[0]
			switch want := tt.want.(type) {
			case *pattern.Regex:
				g, ok := got.(*pattern.Regex)
				if !ok || g.Source != want.Source {
					t.Errorf("got %#v, want %#v", got, want)
				}
			case *pattern.Glob:
				g, ok := got.(*pattern.Glob)
				if !ok || g.Source != want.Source {
					t.Errorf("got %#v, want %#v", got, want)
				}
			case pattern.NoEol:
				g, ok := got.(pattern.NoEol)
				if !ok || g != want {
					t.Errorf("got %#v, want %#v", got, want)
				}
			}
		})
	}
}

func TestParseIndentedEllipsis(t *testing.T) {
	src := "  $ cmd\n  first\n  ...\n  last\n"
	tf, err := parseIndented("t.t", []byte(src))
	if err != nil {
		t.Fatalf("parseIndented() error = %v", err)
	}
	exps := tf.Tests[0].Expectations
	if len(exps) != 3 {
		t.Fatalf("got %d expectations, want 3", len(exps))
	}
	if _, ok := exps[1].(pattern.Ellipsis); !ok {
		t.Errorf("exps[1] = %#v, want Ellipsis", exps[1])
	}
}
