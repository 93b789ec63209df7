package shell

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// exitWordRE is the fallback used when a command does not parse as shell
// syntax (e.g. a here-doc): a word-boundaried "exit" anywhere in the text.
var exitWordRE = regexp.MustCompile(`\bexit\b`)

// buildFramedScript wraps command in the end-of-command framing protocol
// from spec.md §4.4: run it, capture its exit status, then echo both
// sentinels so the driver can split the raw byte streams unambiguously.
// If containsExitToken reports an "exit" command word, the command is
// wrapped in a subshell so it cannot terminate the host shell.
func buildFramedScript(command, stdoutSentinel, stderrSentinel string) string {
	body := command
	if containsExitToken(command) {
		body = "(" + command + ")"
	}
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n__E=$?\n")
	fmt.Fprintf(&b, "echo \"%s:$__E\"\n", stdoutSentinel)
	fmt.Fprintf(&b, "echo \"%s\" 1>&2\n", stderrSentinel)
	return b.String()
}

// containsExitToken reports whether command invokes "exit" as a command
// word, parsing it as shell syntax via mvdan.cc/sh/v3/syntax and falling
// back to a regexp when the text doesn't parse as a shell program (the
// timeout/framing path must never block on a parser limitation). On parsed
// input it looks only at simple commands, "&&"/"||"/pipe operands, "{ }"
// blocks and "( )" subshells; an exit inside if/while/for/case bodies,
// function bodies or command substitutions is not detected.
func containsExitToken(command string) bool {
	parser := syntax.NewParser()
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return exitWordRE.MatchString(command)
	}
	for _, stmt := range file.Stmts {
		if stmtCallsExit(stmt) {
			return true
		}
	}
	return false
}

func stmtCallsExit(stmt *syntax.Stmt) bool {
	if stmt == nil {
		return false
	}
	return cmdCallsExit(stmt.Cmd)
}

func cmdCallsExit(cmd syntax.Command) bool {
	switch c := cmd.(type) {
	case *syntax.CallExpr:
		if len(c.Args) == 0 {
			return false
		}
		return wordIsExit(c.Args[0])
	case *syntax.BinaryCmd:
		return stmtCallsExit(c.X) || stmtCallsExit(c.Y)
	case *syntax.Block:
		for _, s := range c.Stmts {
			if stmtCallsExit(s) {
				return true
			}
		}
	case *syntax.Subshell:
		for _, s := range c.Stmts {
			if stmtCallsExit(s) {
				return true
			}
		}
	}
	return false
}

func wordIsExit(w *syntax.Word) bool {
	if w == nil || len(w.Parts) != 1 {
		return false
	}
	lit, ok := w.Parts[0].(*syntax.Lit)
	return ok && lit.Value == "exit"
}

// frameResult is the decoded outcome of reading one command's framed
// output off the driver's two pipes.
type frameResult struct {
	stdout      []string
	stderr      []string
	exitStatus  int
	stdoutNoEol bool
}

// drainFramed reads stdout and stderr concurrently until each side's
// sentinel has been observed, implementing spec.md §4.4's "Stream
// consumption" rule: stdout lines preceding the sentinel are kept (with
// the no-trailing-newline case detected when the sentinel is concatenated
// directly onto the last output line), while the stderr sentinel line
// itself is always discarded.
func drainFramed(stdout, stderr *lineReader, stdoutSentinel, stderrSentinel string) frameResult {
	var fr frameResult
	stdoutDone := make(chan struct{})
	stderrDone := make(chan struct{})

	go func() {
		defer close(stdoutDone)
		for {
			line, _, err := stdout.readLine()
			if idx := strings.Index(line, stdoutSentinel); idx >= 0 {
				prefix := line[:idx]
				if prefix != "" {
					fr.stdout = append(fr.stdout, prefix)
					fr.stdoutNoEol = true
				}
				rest := line[idx+len(stdoutSentinel):]
				rest = strings.TrimPrefix(rest, ":")
				if code, convErr := strconv.Atoi(strings.TrimSpace(rest)); convErr == nil {
					fr.exitStatus = code
				}
				return
			}
			if err != nil {
				if line != "" {
					fr.stdout = append(fr.stdout, line)
					fr.stdoutNoEol = true
				}
				return
			}
			fr.stdout = append(fr.stdout, line)
		}
	}()

	go func() {
		defer close(stderrDone)
		for {
			line, _, err := stderr.readLine()
			if strings.Contains(line, stderrSentinel) {
				return
			}
			if err != nil {
				if line != "" {
					fr.stderr = append(fr.stderr, line)
				}
				return
			}
			fr.stderr = append(fr.stderr, line)
		}
	}()

	<-stdoutDone
	<-stderrDone
	return fr
}
