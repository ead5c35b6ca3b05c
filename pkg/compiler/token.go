package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	PREPROCESSOR // #include
	HEADER       // <stdio.h>
	KEYWORD      // if, while, int, const, print, ...
	LIB_FUNCTION // printf, scanf
	IDENTIFIER   // variable / function name
	NUMBER       // 10, 3.14, 2.5f
	OPERATOR     // single character: + - * / = < > ! _
	DELIMITER    // single character: ( ) , ; { }
	STRING       // "..."
)

var tokenNames = [...]string{
	EOF:          "EOF",
	PREPROCESSOR: "PREPROCESSOR",
	HEADER:       "HEADER",
	KEYWORD:      "KEYWORD",
	LIB_FUNCTION: "LIB_FUNCTION",
	IDENTIFIER:   "IDENTIFIER",
	NUMBER:       "NUMBER",
	OPERATOR:     "OPERATOR",
	DELIMITER:    "DELIMITER",
	STRING:       "STRING",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Line   int    // 1-based source line
	Offset int    // byte offset of the first character
}

func (t Token) String() string {
	return fmt.Sprintf("%-12s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}

// Is reports whether t has type tt and, when lexeme is not empty, that exact text.
func (t Token) Is(tt TokenType, lexeme string) bool {
	return t.Type == tt && (lexeme == "" || t.Lexeme == lexeme)
}

// typeKeywords are the keywords that name a semantic type.
var typeKeywords = map[string]bool{
	"int":    true,
	"float":  true,
	"void":   true,
	"double": true,
	"char":   true,
}
