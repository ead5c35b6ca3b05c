package compiler

import (
	"regexp"
	"strings"
)

// keywords is the reserved word list. Keywords share the identifier character
// class, so the keyword rule must run before the identifier rule.
var keywords = []string{
	"if", "else", "while", "switch", "case", "return", "print", "break",
	"for", "int", "float", "void", "double", "char", "const",
}

// libFunctions are the library routines callable without a definition.
var libFunctions = []string{"printf", "scanf"}

// lexRule matches one token kind at the start of the remaining input.
// skip marks rules whose matches are dropped (whitespace).
type lexRule struct {
	typ  TokenType
	re   *regexp.Regexp
	skip bool
}

// lexRules are tried in order at every offset; the first rule that matches wins.
// #include and <header> come first so they are never split into operators.
var lexRules = []lexRule{
	{typ: PREPROCESSOR, re: regexp.MustCompile(`^#include\b`)},
	{typ: HEADER, re: regexp.MustCompile(`^<[a-zA-Z0-9_.]+>`)},
	{typ: KEYWORD, re: regexp.MustCompile(`^(?:` + strings.Join(keywords, "|") + `)\b`)},
	{typ: LIB_FUNCTION, re: regexp.MustCompile(`^(?:` + strings.Join(libFunctions, "|") + `)\b`)},
	{typ: IDENTIFIER, re: regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*\b`)},
	{typ: NUMBER, re: regexp.MustCompile(`^\d+(?:\.\d+)?f?\b`)},
	{typ: OPERATOR, re: regexp.MustCompile(`^[+\-*/=<>!_]`)},
	{typ: DELIMITER, re: regexp.MustCompile(`^[(),;{}]`)},
	{re: regexp.MustCompile(`^\s+`), skip: true},
	{typ: STRING, re: regexp.MustCompile(`^"[^"]*"`)},
}

// Lexer holds the mutable position of a single scanning pass over src.
type Lexer struct {
	src  string
	pos  int // byte offset of the next unread character
	line int // current 1-based source line
}

func newLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1}
}

// nextToken returns the next significant token, skipping whitespace.
func (l *Lexer) nextToken() (Token, error) {
	for l.pos < len(l.src) {
		rest := l.src[l.pos:]

		matched := false
		for _, r := range lexRules {
			m := r.re.FindString(rest)
			if m == "" {
				continue
			}

			tok := Token{Type: r.typ, Lexeme: m, Line: l.line, Offset: l.pos}
			l.pos += len(m)
			l.line += strings.Count(m, "\n")

			if r.skip {
				matched = true
				break
			}

			return tok, nil
		}

		if !matched {
			return Token{}, l.errorAt(rest)
		}
	}

	return Token{Type: EOF, Line: l.line, Offset: l.pos}, nil
}

// errorAt builds a LexError for the unrecognised text starting at l.pos.
// The reported text runs up to the next whitespace so the message stays short.
func (l *Lexer) errorAt(rest string) *LexError {
	end := strings.IndexAny(rest, " \t\r\n")
	if end <= 0 {
		end = len(rest)
	}
	if end > 16 {
		end = 16
	}

	return &LexError{Offset: l.pos, Line: l.line, Text: rest[:end]}
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It returns a *LexError on the first character sequence no rule accepts.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

// Lexemes concatenates the text of tokens, which reproduces every
// non-whitespace character of the source they were lexed from.
func Lexemes(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Lexeme)
	}
	return sb.String()
}
