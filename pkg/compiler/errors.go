package compiler

import (
	"fmt"
	"strings"

	"tlog.app/go/loc"
)

type (
	// LexError reports input that matches no token kind.
	LexError struct {
		Offset int
		Line   int
		Text   string
	}

	// SyntaxError reports a token the grammar did not expect, or a violated
	// program-level rule such as the position of main.
	SyntaxError struct {
		Expected string
		Found    Token
		Msg      string
		Snippet  string // source line of Found, when known
	}

	// SemanticError reports a type mismatch, an undeclared or duplicate name,
	// or a call that does not fit the callee's signature.
	SemanticError struct {
		Msg string
	}

	// InternalError is a compiler bug: a node kind the generator does not
	// handle or an output listing that fails to check.
	InternalError struct {
		Msg string
		PC  loc.PC
	}
)

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error: line %d offset %d: unrecognised input %q", e.Line, e.Offset, e.Text)
}

func (e *SyntaxError) Error() string {
	var b strings.Builder

	b.WriteString("syntax error: ")

	switch {
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Found.Type == EOF:
		fmt.Fprintf(&b, "expected %s, got end of input", e.Expected)
	default:
		fmt.Fprintf(&b, "line %d: expected %s, got %s %q", e.Found.Line, e.Expected, e.Found.Type, e.Found.Lexeme)
	}

	if e.Snippet != "" {
		fmt.Fprintf(&b, "\n  |> %s", e.Snippet)
	}

	return b.String()
}

func (e *SemanticError) Error() string {
	return "semantic error: " + e.Msg
}

func newSemanticError(format string, args ...any) *SemanticError {
	return &SemanticError{Msg: fmt.Sprintf(format, args...)}
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal compiler error: %s (at %v)", e.Msg, e.PC)
}

func newInternalError(format string, args ...any) *InternalError {
	return &InternalError{Msg: fmt.Sprintf(format, args...), PC: loc.Caller(1)}
}
