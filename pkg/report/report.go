// Package report prints compiler results and diagnostics to the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"tlog.app/go/errors"

	"minicc/pkg/compiler"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = pterm.FgLightCyan
)

// Kind names the stage an error comes from.
func Kind(err error) string {
	var (
		lexErr  *compiler.LexError
		synErr  *compiler.SyntaxError
		semErr  *compiler.SemanticError
		intrErr *compiler.InternalError
	)

	switch {
	case errors.As(err, &lexErr):
		return "Lex Error"
	case errors.As(err, &synErr):
		return "Syntax Error"
	case errors.As(err, &semErr):
		return "Semantic Error"
	case errors.As(err, &intrErr):
		return "Internal Error"
	default:
		return "Error"
	}
}

// Location gives "file:line" for errors that know their line.
func Location(file string, err error) string {
	var (
		lexErr *compiler.LexError
		synErr *compiler.SyntaxError
	)

	switch {
	case errors.As(err, &lexErr):
		return fmt.Sprintf("%s:%d", file, lexErr.Line)
	case errors.As(err, &synErr) && synErr.Found.Line != 0:
		return fmt.Sprintf("%s:%d", file, synErr.Found.Line)
	default:
		return file
	}
}

// Message is the error text without the snippet of a syntax error,
// which is printed separately.
func Message(err error) string {
	msg := err.Error()

	var synErr *compiler.SyntaxError
	if errors.As(err, &synErr) && synErr.Snippet != "" {
		if i := strings.Index(msg, "\n"); i >= 0 {
			msg = msg[:i]
		}
	}

	return msg
}

func PrintError(file string, err error) {
	ErrorStyleBG.Print(Kind(err))
	ErrorColorFG.Println(" " + Location(file, err) + ": " + Message(err))

	var synErr *compiler.SyntaxError
	if errors.As(err, &synErr) && synErr.Snippet != "" {
		InfoColorFG.Print("    |  ")
		fmt.Println(synErr.Snippet)
	}
}

func PrintSuccess(tag, msg string) {
	SuccessStyleBG.Print(tag)
	SuccessColorFG.Println(" " + msg)
}

// SymbolRows lays out the symbol table for TableRows: variables first, then
// user functions, in declaration order.
func SymbolRows(syms *compiler.SymbolTable) [][]string {
	rows := [][]string{{"Name", "Kind", "Type", "Params"}}

	for _, name := range syms.Vars() {
		v, _ := syms.LookupVar(name)

		kind := "var"
		if v.Const {
			kind = "const"
		}

		rows = append(rows, []string{name, kind, string(v.Type), ""})
	}

	for _, name := range syms.Funcs() {
		f, _ := syms.LookupFunc(name)

		params := make([]string, len(f.Params))
		for i, p := range f.Params {
			params[i] = string(p)
		}

		rows = append(rows, []string{name, "func", string(f.Return), strings.Join(params, ", ")})
	}

	return rows
}

func PrintSymbols(syms *compiler.SymbolTable) error {
	return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData(SymbolRows(syms))).Render()
}

// TokenRows lays out tokens one per row with their position.
func TokenRows(tokens []compiler.Token) [][]string {
	rows := [][]string{{"Line", "Type", "Lexeme"}}

	for _, t := range tokens {
		rows = append(rows, []string{fmt.Sprint(t.Line), t.Type.String(), t.Lexeme})
	}

	return rows
}

func PrintTokens(tokens []compiler.Token) error {
	return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData(TokenRows(tokens))).Render()
}
