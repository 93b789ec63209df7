package parser

import (
	"testing"

	"github.com/user/cliscore/pattern"
)

func TestParseOutputLineBracketForms(t *testing.T) {
	tests := []struct {
		name string
		line string
		want pattern.Expectation
	}{
		{
			name: "literal text",
			line: `[Literal text: "a (glob) literal line"]`,
			want: pattern.Literal{Text: "a (glob) literal line"},
		},
		{
			name: "matching glob",
			line: "[Matching glob: build/*.o]",
			want: &pattern.Glob{Source: "build/*.o"},
		},
		{
			name: "matching regex",
			line: "[Matching: ^rc=\\d+$]",
			want: &pattern.Regex{Source: "^rc=\\d+$"},
		},
		{
			name: "matching regex with flags",
			line: "[Matching: hello/i]",
			want: &pattern.Regex{Source: "hello", Flags: "i"},
		},
		{
			name: "no eol bare",
			line: "[Output ends without end-of-line]",
			want: pattern.NoEol{},
		},
		{
			name: "skip",
			line: "[SKIP: flaky on CI]",
			want: pattern.Skip{Reason: "flaky on CI"},
		},
		{
			name: "stderr wrap",
			line: "[stderr: connection refused]",
			want: pattern.StreamTagged{Inner: pattern.Literal{Text: "connection refused"}},
		},
		{
			name: "malformed bracket degrades to literal",
			line: "[NotAKind: whatever]",
			want: pattern.Literal{Text: "[NotAKind: whatever]"},
		},
		{
			name: "bare ellipsis",
			line: "...",
			want: pattern.Ellipsis{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseOutputLine(tt.line)
			switch want := tt.want.(type) {
			case *pattern.Glob:
				g, ok := got.(*pattern.Glob)
				if !ok || g.Source != want.Source {
					t.Errorf("got %#v, want %#v", got, want)
				}
			case *pattern.Regex:
				g, ok := got.(*pattern.Regex)
				if !ok || g.Source != want.Source || g.Flags != want.Flags {
					t.Errorf("got %#v, want %#v", got, want)
				}
			default:
				if got != tt.want {
					t.Errorf("got %#v, want %#v", got, tt.want)
				}
			}
		})
	}
}

func TestParseInlineLine(t *testing.T) {
	e, ok := parseInlineLine(`rc=[Matching: \d+] done`)
	if !ok {
		t.Fatalf("expected inline detection")
	}
	inline, ok := e.(pattern.Inline)
	if !ok {
		t.Fatalf("got %T, want pattern.Inline", e)
	}
	if len(inline.Parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(inline.Parts))
	}
	if inline.Parts[0].Literal != "rc=" {
		t.Errorf("Parts[0].Literal = %q, want %q", inline.Parts[0].Literal, "rc=")
	}
	re, ok := inline.Parts[1].Sub.(*pattern.Regex)
	if !ok {
		t.Fatalf("Parts[1].Sub = %#v, want *pattern.Regex", inline.Parts[1].Sub)
	}
	if re.Source != `\d+` {
		t.Errorf("Parts[1].Sub.Source = %q, want %q", re.Source, `\d+`)
	}
	if inline.Parts[2].Literal != " done" {
		t.Errorf("Parts[2].Literal = %q, want %q", inline.Parts[2].Literal, " done")
	}
}

func TestParseInlineLineGlobFragment(t *testing.T) {
	e, ok := parseInlineLine("built [Matching glob: *.o] ok")
	if !ok {
		t.Fatalf("expected inline detection")
	}
	inline, ok := e.(pattern.Inline)
	if !ok {
		t.Fatalf("got %T, want pattern.Inline", e)
	}
	if len(inline.Parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(inline.Parts))
	}
	g, ok := inline.Parts[1].Sub.(*pattern.Glob)
	if !ok {
		t.Fatalf("Parts[1].Sub = %#v, want *pattern.Glob", inline.Parts[1].Sub)
	}
	if g.Source != "*.o" {
		t.Errorf("Parts[1].Sub.Source = %q, want %q", g.Source, "*.o")
	}
}

func TestParseOutputLineNoInlineFragment(t *testing.T) {
	_, ok := parseInlineLine("plain output line")
	if ok {
		t.Errorf("expected no inline detection for a plain line")
	}
}

func TestParseInlineLineWholeLineBracketIsNotInline(t *testing.T) {
	// A line that is exactly one [Matching: ...] bracket is the whole-line
	// bracket form, not an inline template, and must be left to bracketRE.
	if _, ok := parseInlineLine("[Matching: \\d+]"); ok {
		t.Errorf("expected whole-line bracket form to be rejected by parseInlineLine")
	}
	if _, ok := parseInlineLine("  [Matching glob: *.o]  "); ok {
		t.Errorf("expected whole-line bracket form (with surrounding whitespace) to be rejected by parseInlineLine")
	}
}
