package pattern

import "testing"

func TestGlobCompile(t *testing.T) {
	tests := []struct {
		name    string
		glob    string
		line    string
		matches bool
	}{
		{"star matches run", "hello*world", "hello there world", true},
		{"star matches empty", "hello*world", "helloworld", true},
		{"question matches one char", "h?llo", "hello", true},
		{"question rejects two chars", "h?llo", "heello", false},
		{"escaped star is literal", `100\*`, "100*", true},
		{"escaped star rejects glob behavior", `100\*`, "100x", false},
		{"anchored start", "foo*", "xfoo", false},
		{"anchored end", "*foo", "foox", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Glob{Source: tt.glob}
			re, err := g.Compile()
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			if got := re.MatchString(tt.line); got != tt.matches {
				t.Errorf("glob %q against %q = %v, want %v", tt.glob, tt.line, got, tt.matches)
			}
		})
	}
}

func TestRegexCompileFlags(t *testing.T) {
	r := &Regex{Source: "hello", Flags: "i"}
	re, err := r.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !re.MatchString("HELLO") {
		t.Errorf("case-insensitive regex should match HELLO")
	}
	if re.MatchString("say HELLO now") {
		t.Errorf("regex should be anchored to the whole line")
	}
}

func TestInlineCompile(t *testing.T) {
	in := &Inline{Parts: []InlinePart{
		{Literal: "rc:"},
		{Sub: &Regex{Source: `\d+`}},
	}}
	re, err := in.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !re.MatchString("rc:127") {
		t.Errorf("inline template should match rc:127")
	}
	if re.MatchString("rc:abc") {
		t.Errorf("inline template should reject non-digit suffix")
	}
}

func TestStreamOfAndUnwrap(t *testing.T) {
	inner := Literal{Text: "err line"}
	tagged := StreamTagged{Inner: inner}

	if StreamOf(tagged) != Stderr {
		t.Errorf("StreamOf(StreamTagged) = %v, want Stderr", StreamOf(tagged))
	}
	if StreamOf(inner) != Stdout {
		t.Errorf("StreamOf(Literal) = %v, want Stdout", StreamOf(inner))
	}
	if Unwrap(tagged) != Expectation(inner) {
		t.Errorf("Unwrap(StreamTagged) did not return inner expectation")
	}
}

func TestStreamString(t *testing.T) {
	if Stdout.String() != "stdout" {
		t.Errorf("Stdout.String() = %q, want stdout", Stdout.String())
	}
	if Stderr.String() != "stderr" {
		t.Errorf("Stderr.String() = %q, want stderr", Stderr.String())
	}
}
