package compiler

import (
	"fmt"
	"strings"
)

// parser holds the immutable input of one parse. The cursor is not part of
// the state: every parse method takes the index of its first token and
// returns the index just past what it consumed.
//
// Grammar:
//
//	program     = (PREPROCESSOR HEADER)* function+ EOF
//	function    = type IDENTIFIER "(" params ")" "{" statement* "}"
//	params      = (type IDENTIFIER ("," type IDENTIFIER)*)?
//	statement   = ";" | if | const | print | return | while | for | declaration
//	            | call ("=")? ";"? | IDENTIFIER "=" expression ";" | (NUMBER | STRING) expression ";"
//	declaration = type IDENTIFIER ("=" expression)? ";"
//	constant    = "const" type IDENTIFIER "=" (NUMBER | IDENTIFIER) ";"
//	expression  = term (("+" | "-" | "*" | "/") term)*
//	term        = NUMBER | "-" NUMBER | STRING | call | IDENTIFIER
//	call        = (IDENTIFIER | LIB_FUNCTION) "(" (expression ("," expression)*)? ")"
//	condition   = "-"? (IDENTIFIER | NUMBER) relop "-"? (IDENTIFIER | NUMBER)
//	if          = "if" "(" condition ")" block ("else" "if" "(" condition ")" block)* ("else" block)?
//	while       = "while" "(" condition ")" block
//	for         = "for" "(" (declaration | assignment) condition ";" increment ")" block
//	increment   = IDENTIFIER OPERATOR OPERATOR    (must spell ++ or --)
//	print       = "print" "(" (STRING | IDENTIFIER) ("," expression)* ")" ";"
//	return      = "return" expression? ";"
type parser struct {
	tokens      []Token
	sourceLines []string
}

var (
	arithmeticOps = map[string]bool{"+": true, "-": true, "*": true, "/": true}
	relationalOps = map[string]bool{">": true, "<": true, ">=": true, "<=": true, "==": true, "!=": true}
	compoundOps   = map[string]bool{"==": true, "!=": true, ">=": true, "<=": true}
)

// Parse builds a Program from tokens. src is used for error snippets only.
func Parse(tokens []Token, src string) (*Program, error) {
	p := &parser{tokens: tokens, sourceLines: strings.Split(src, "\n")}

	prog, _, err := p.parseProgram(0)
	if err != nil {
		return nil, err
	}

	return prog, nil
}

// at returns the token at index i, or EOF past the end.
func (p *parser) at(i int) Token {
	if i >= len(p.tokens) {
		tok := Token{Type: EOF}
		if len(p.tokens) != 0 {
			last := p.tokens[len(p.tokens)-1]
			tok.Line, tok.Offset = last.Line, last.Offset+len(last.Lexeme)
		}
		return tok
	}
	return p.tokens[i]
}

// errorf builds a SyntaxError for tok with the source line it appears on.
func (p *parser) errorf(tok Token, expected string) *SyntaxError {
	e := &SyntaxError{Expected: expected, Found: tok}

	if idx := tok.Line - 1; idx >= 0 && idx < len(p.sourceLines) && tok.Type != EOF {
		e.Snippet = strings.TrimSpace(p.sourceLines[idx])
	}

	return e
}

// expect consumes the token at i if it has type tt and, when lexeme is set,
// that exact text.
func (p *parser) expect(i int, tt TokenType, lexeme string) (Token, int, error) {
	tok := p.at(i)
	if !tok.Is(tt, lexeme) {
		want := tt.String()
		if lexeme != "" {
			want = fmt.Sprintf("%s %q", tt, lexeme)
		}
		return tok, i, p.errorf(tok, want)
	}
	return tok, i + 1, nil
}

// expectType consumes a type keyword.
func (p *parser) expectType(i int) (string, int, error) {
	tok := p.at(i)
	if tok.Type != KEYWORD || !typeKeywords[tok.Lexeme] {
		return "", i, p.errorf(tok, "type keyword")
	}
	return tok.Lexeme, i + 1, nil
}

func (p *parser) parseProgram(st int) (prog *Program, i int, err error) {
	prog = &Program{}
	i = st

	for p.at(i).Type != EOF {
		if p.at(i).Type == PREPROCESSOR {
			var hdr Token

			hdr, i, err = p.expect(i+1, HEADER, "")
			if err != nil {
				return nil, i, err
			}

			prog.Includes = append(prog.Includes, hdr.Lexeme)
			continue
		}

		var fn *Function

		fn, i, err = p.parseFunction(i)
		if err != nil {
			return nil, i, err
		}

		prog.Functions = append(prog.Functions, fn)
	}

	hasMain := false
	for _, fn := range prog.Functions {
		if fn.Name == "main" {
			hasMain = true
		}
	}

	if !hasMain {
		return nil, i, &SyntaxError{Msg: "a function named 'main' must be defined"}
	}

	if last := prog.Functions[len(prog.Functions)-1]; last.Name != "main" {
		return nil, i, &SyntaxError{Msg: fmt.Sprintf("function 'main' must be the last function, found %q after it", last.Name)}
	}

	return prog, i, nil
}

func (p *parser) parseFunction(st int) (fn *Function, i int, err error) {
	fn = &Function{}

	fn.ReturnType, i, err = p.expectType(st)
	if err != nil {
		return nil, i, err
	}

	name, i, err := p.expect(i, IDENTIFIER, "")
	if err != nil {
		return nil, i, err
	}
	fn.Name = name.Lexeme

	if _, i, err = p.expect(i, DELIMITER, "("); err != nil {
		return nil, i, err
	}

	fn.Params, i, err = p.parseParams(i)
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, DELIMITER, ")"); err != nil {
		return nil, i, err
	}

	fn.Body, i, err = p.parseBlock(i)
	if err != nil {
		return nil, i, err
	}

	return fn, i, nil
}

func (p *parser) parseParams(st int) (params []*Parameter, i int, err error) {
	i = st

	if p.at(i).Is(DELIMITER, ")") {
		return nil, i, nil
	}

	for {
		var typ string

		typ, i, err = p.expectType(i)
		if err != nil {
			return nil, i, err
		}

		var name Token

		name, i, err = p.expect(i, IDENTIFIER, "")
		if err != nil {
			return nil, i, err
		}

		params = append(params, &Parameter{Type: typ, Name: name.Lexeme})

		if !p.at(i).Is(DELIMITER, ",") {
			return params, i, nil
		}
		i++
	}
}

// parseBlock parses  "{" statement* "}".
func (p *parser) parseBlock(st int) (body []Stmt, i int, err error) {
	if _, i, err = p.expect(st, DELIMITER, "{"); err != nil {
		return nil, i, err
	}

	body, i, err = p.parseBody(i)
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, DELIMITER, "}"); err != nil {
		return nil, i, err
	}

	return body, i, nil
}

// parseBody parses statements up to, not including, the closing "}".
// Empty statements are dropped.
func (p *parser) parseBody(st int) (body []Stmt, i int, err error) {
	i = st
	body = []Stmt{}

	for {
		tok := p.at(i)
		if tok.Type == EOF || tok.Is(DELIMITER, "}") {
			return body, i, nil
		}

		var s Stmt

		s, i, err = p.parseStatement(i)
		if err != nil {
			return nil, i, err
		}

		if s != nil {
			body = append(body, s)
		}
	}
}

// parseStatement dispatches on the leading token. It returns a nil Stmt for ";".
func (p *parser) parseStatement(st int) (Stmt, int, error) {
	tok := p.at(st)

	switch tok.Type {
	case DELIMITER:
		if tok.Lexeme == ";" {
			return nil, st + 1, nil
		}

	case KEYWORD:
		switch {
		case tok.Lexeme == "if":
			return p.parseIf(st)
		case tok.Lexeme == "const":
			return p.parseConstant(st)
		case tok.Lexeme == "print":
			return p.parsePrint(st)
		case tok.Lexeme == "return":
			return p.parseReturn(st)
		case tok.Lexeme == "while":
			return p.parseWhile(st)
		case tok.Lexeme == "for":
			return p.parseFor(st)
		case typeKeywords[tok.Lexeme]:
			return p.parseDeclaration(st)
		}

		return nil, st, &SyntaxError{Found: tok, Msg: fmt.Sprintf("line %d: keyword %q cannot start a statement", tok.Line, tok.Lexeme)}

	case IDENTIFIER:
		next := p.at(st + 1)
		if next.Is(DELIMITER, "(") {
			return p.parseCallStatement(st)
		}
		if next.Is(OPERATOR, "=") {
			return p.parseAssignment(st)
		}

		return nil, st + 1, p.errorf(next, `"(" or "=" after identifier`)

	case LIB_FUNCTION:
		return p.parseCallStatement(st)

	case NUMBER, STRING:
		x, i, err := p.parseExpression(st)
		if err != nil {
			return nil, i, err
		}

		if _, i, err = p.expect(i, DELIMITER, ";"); err != nil {
			return nil, i, err
		}

		return x, i, nil
	}

	return nil, st, p.errorf(tok, "statement")
}

// parseCallStatement parses a call used as a statement. A following "="
// wraps the call in an assignment to the callee's name; a following ";" is consumed.
func (p *parser) parseCallStatement(st int) (Stmt, int, error) {
	call, i, err := p.parseCall(st)
	if err != nil {
		return nil, i, err
	}

	var s Stmt = call

	if p.at(i).Is(OPERATOR, "=") {
		i++
		s = &Assignment{Name: call.Name, Value: call}
	}

	if p.at(i).Is(DELIMITER, ";") {
		i++
	}

	return s, i, nil
}

func (p *parser) parseCall(st int) (call *FunctionCall, i int, err error) {
	name := p.at(st)
	if name.Type != IDENTIFIER && name.Type != LIB_FUNCTION {
		return nil, st, p.errorf(name, "IDENTIFIER or LIB_FUNCTION")
	}

	call = &FunctionCall{Name: name.Lexeme, Library: name.Type == LIB_FUNCTION}

	if _, i, err = p.expect(st+1, DELIMITER, "("); err != nil {
		return nil, i, err
	}

	call.Args, i, err = p.parseArgs(i)
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, DELIMITER, ")"); err != nil {
		return nil, i, err
	}

	return call, i, nil
}

func (p *parser) parseArgs(st int) (args []Expr, i int, err error) {
	i = st

	if p.at(i).Is(DELIMITER, ")") {
		return nil, i, nil
	}

	for {
		var x Expr

		x, i, err = p.parseExpression(i)
		if err != nil {
			return nil, i, err
		}

		args = append(args, x)

		if !p.at(i).Is(DELIMITER, ",") {
			return args, i, nil
		}
		i++
	}
}

// parseAssignment parses  IDENTIFIER "=" expression ";".
func (p *parser) parseAssignment(st int) (Stmt, int, error) {
	name, i, err := p.expect(st, IDENTIFIER, "")
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, OPERATOR, "="); err != nil {
		return nil, i, err
	}

	val, i, err := p.parseExpression(i)
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, DELIMITER, ";"); err != nil {
		return nil, i, err
	}

	return &Assignment{Name: name.Lexeme, Value: val}, i, nil
}

// parseDeclaration parses  type IDENTIFIER ("=" expression)? ";".
func (p *parser) parseDeclaration(st int) (Stmt, int, error) {
	typ, i, err := p.expectType(st)
	if err != nil {
		return nil, i, err
	}

	name, i, err := p.expect(i, IDENTIFIER, "")
	if err != nil {
		return nil, i, err
	}

	d := &Declaration{Type: typ, Name: name.Lexeme}

	if p.at(i).Is(OPERATOR, "=") {
		d.Init, i, err = p.parseExpression(i + 1)
		if err != nil {
			return nil, i, err
		}
	}

	if _, i, err = p.expect(i, DELIMITER, ";"); err != nil {
		return nil, i, err
	}

	return d, i, nil
}

func (p *parser) parseConstant(st int) (Stmt, int, error) {
	_, i, err := p.expect(st, KEYWORD, "const")
	if err != nil {
		return nil, i, err
	}

	typ, i, err := p.expectType(i)
	if err != nil {
		return nil, i, err
	}

	name, i, err := p.expect(i, IDENTIFIER, "")
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, OPERATOR, "="); err != nil {
		return nil, i, err
	}

	c := &Constant{Type: typ, Name: name.Lexeme}

	switch tok := p.at(i); tok.Type {
	case NUMBER:
		c.Value = &NumberLiteral{Value: tok.Lexeme}
	case IDENTIFIER:
		c.Value = &Identifier{Name: tok.Lexeme}
	default:
		return nil, i, p.errorf(tok, fmt.Sprintf("NUMBER or IDENTIFIER as value of constant %s", name.Lexeme))
	}

	if _, i, err = p.expect(i+1, DELIMITER, ";"); err != nil {
		return nil, i, err
	}

	return c, i, nil
}

func (p *parser) parseReturn(st int) (Stmt, int, error) {
	_, i, err := p.expect(st, KEYWORD, "return")
	if err != nil {
		return nil, i, err
	}

	if p.at(i).Is(DELIMITER, ";") {
		return &Return{}, i + 1, nil
	}

	val, i, err := p.parseExpression(i)
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, DELIMITER, ";"); err != nil {
		return nil, i, err
	}

	return &Return{Value: val}, i, nil
}

// parsePrint parses the print statement. Only the first argument is kept;
// the rest are checked for syntax and dropped.
func (p *parser) parsePrint(st int) (Stmt, int, error) {
	_, i, err := p.expect(st, KEYWORD, "print")
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, DELIMITER, "("); err != nil {
		return nil, i, err
	}

	call := &FunctionCall{Name: "print", Library: true}

	switch tok := p.at(i); tok.Type {
	case STRING:
		call.Args = []Expr{&StringLiteral{Value: tok.Lexeme}}
	case IDENTIFIER:
		call.Args = []Expr{&Identifier{Name: tok.Lexeme}}
	default:
		return nil, i, p.errorf(tok, "STRING or IDENTIFIER")
	}
	i++

	for p.at(i).Is(DELIMITER, ",") {
		if _, i, err = p.parseExpression(i + 1); err != nil {
			return nil, i, err
		}
	}

	if _, i, err = p.expect(i, DELIMITER, ")"); err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, DELIMITER, ";"); err != nil {
		return nil, i, err
	}

	return call, i, nil
}

// parseExpression parses a left-associative chain of + - * / with a single
// precedence level: a - b * c is (a - b) * c.
func (p *parser) parseExpression(st int) (x Expr, i int, err error) {
	x, i, err = p.parseTerm(st)
	if err != nil {
		return nil, i, err
	}

	for {
		op := p.at(i)
		if op.Type != OPERATOR || !arithmeticOps[op.Lexeme] {
			return x, i, nil
		}

		var right Expr

		right, i, err = p.parseTerm(i + 1)
		if err != nil {
			return nil, i, err
		}

		x = &BinaryOperation{Op: op.Lexeme, Left: x, Right: right}
	}
}

func (p *parser) parseTerm(st int) (Expr, int, error) {
	tok := p.at(st)

	switch tok.Type {
	case OPERATOR:
		if tok.Lexeme == "-" {
			num, i, err := p.expect(st+1, NUMBER, "")
			if err != nil {
				return nil, i, err
			}
			return &NumberLiteral{Value: "-" + num.Lexeme}, i, nil
		}
	case NUMBER:
		return &NumberLiteral{Value: tok.Lexeme}, st + 1, nil
	case STRING:
		return &StringLiteral{Value: tok.Lexeme}, st + 1, nil
	case IDENTIFIER, LIB_FUNCTION:
		if p.at(st + 1).Is(DELIMITER, "(") {
			return p.parseCall(st)
		}
		if tok.Type == IDENTIFIER {
			return &Identifier{Name: tok.Lexeme}, st + 1, nil
		}
	}

	return nil, st, p.errorf(tok, "term (NUMBER, IDENTIFIER, STRING or call)")
}

// parseCondition parses a single comparison. Two-character operators arrive
// as two OPERATOR tokens and are joined here.
func (p *parser) parseCondition(st int) (*Comparison, int, error) {
	left, i, err := p.parseOperand(st)
	if err != nil {
		return nil, i, err
	}

	opTok, i, err := p.expect(i, OPERATOR, "")
	if err != nil {
		return nil, i, err
	}

	op := opTok.Lexeme
	if next := p.at(i); next.Type == OPERATOR && compoundOps[op+next.Lexeme] {
		op += next.Lexeme
		i++
	}

	if !relationalOps[op] {
		return nil, i, &SyntaxError{Found: opTok, Msg: fmt.Sprintf("line %d: invalid comparison operator %q, want one of > < >= <= == !=", opTok.Line, op)}
	}

	right, i, err := p.parseOperand(i)
	if err != nil {
		return nil, i, err
	}

	return &Comparison{Op: op, Left: left, Right: right}, i, nil
}

// parseOperand parses one side of a comparison:  "-"? (IDENTIFIER | NUMBER).
func (p *parser) parseOperand(st int) (Expr, int, error) {
	i := st
	neg := ""

	if p.at(i).Is(OPERATOR, "-") {
		neg = "-"
		i++
	}

	switch tok := p.at(i); tok.Type {
	case NUMBER:
		return &NumberLiteral{Value: neg + tok.Lexeme}, i + 1, nil
	case IDENTIFIER:
		if neg == "" {
			return &Identifier{Name: tok.Lexeme}, i + 1, nil
		}
		return nil, i, p.errorf(tok, "NUMBER after unary '-'")
	default:
		return nil, i, p.errorf(tok, "IDENTIFIER or NUMBER in condition")
	}
}

// parseHeader parses  keyword "(" condition ")".
func (p *parser) parseHeader(st int, keyword string) (*Comparison, int, error) {
	_, i, err := p.expect(st, KEYWORD, keyword)
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, DELIMITER, "("); err != nil {
		return nil, i, err
	}

	cond, i, err := p.parseCondition(i)
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, DELIMITER, ")"); err != nil {
		return nil, i, err
	}

	return cond, i, nil
}

func (p *parser) parseIf(st int) (Stmt, int, error) {
	cond, i, err := p.parseHeader(st, "if")
	if err != nil {
		return nil, i, err
	}

	n := &If{Cond: cond}

	n.Body, i, err = p.parseBlock(i)
	if err != nil {
		return nil, i, err
	}

	for p.at(i).Is(KEYWORD, "else") {
		if p.at(i + 1).Is(KEYWORD, "if") {
			var ei ElseIf

			ei.Cond, i, err = p.parseHeader(i+1, "if")
			if err != nil {
				return nil, i, err
			}

			ei.Body, i, err = p.parseBlock(i)
			if err != nil {
				return nil, i, err
			}

			n.ElseIfs = append(n.ElseIfs, ei)
			continue
		}

		n.Else, i, err = p.parseBlock(i + 1)
		if err != nil {
			return nil, i, err
		}

		if tok := p.at(i); tok.Is(KEYWORD, "else") {
			return nil, i, &SyntaxError{Found: tok, Msg: fmt.Sprintf("line %d: 'else' cannot follow a final 'else' branch", tok.Line)}
		}

		break
	}

	return n, i, nil
}

func (p *parser) parseWhile(st int) (Stmt, int, error) {
	cond, i, err := p.parseHeader(st, "while")
	if err != nil {
		return nil, i, err
	}

	body, i, err := p.parseBlock(i)
	if err != nil {
		return nil, i, err
	}

	return &While{Cond: cond, Body: body}, i, nil
}

// parseFor parses the for loop. The initializer is a complete statement
// ending in ";", so no delimiter is consumed between it and the condition.
func (p *parser) parseFor(st int) (Stmt, int, error) {
	_, i, err := p.expect(st, KEYWORD, "for")
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, DELIMITER, "("); err != nil {
		return nil, i, err
	}

	n := &For{}

	switch tok := p.at(i); {
	case tok.Type == KEYWORD && typeKeywords[tok.Lexeme]:
		n.Init, i, err = p.parseForInit(i)
	case tok.Type == IDENTIFIER:
		n.Init, i, err = p.parseAssignment(i)
	default:
		err = p.errorf(tok, "initializer")
	}
	if err != nil {
		return nil, i, err
	}

	n.Cond, i, err = p.parseCondition(i)
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, DELIMITER, ";"); err != nil {
		return nil, i, err
	}

	n.Post, i, err = p.parseIncrement(i)
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, DELIMITER, ")"); err != nil {
		return nil, i, err
	}

	n.Body, i, err = p.parseBlock(i)
	if err != nil {
		return nil, i, err
	}

	return n, i, nil
}

// parseForInit parses  type IDENTIFIER "=" expression ";"  where the
// initializer is mandatory.
func (p *parser) parseForInit(st int) (Stmt, int, error) {
	typ, i, err := p.expectType(st)
	if err != nil {
		return nil, i, err
	}

	name, i, err := p.expect(i, IDENTIFIER, "")
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, OPERATOR, "="); err != nil {
		return nil, i, err
	}

	init, i, err := p.parseExpression(i)
	if err != nil {
		return nil, i, err
	}

	if _, i, err = p.expect(i, DELIMITER, ";"); err != nil {
		return nil, i, err
	}

	return &Declaration{Type: typ, Name: name.Lexeme, Init: init}, i, nil
}

func (p *parser) parseIncrement(st int) (*Increment, int, error) {
	name, i, err := p.expect(st, IDENTIFIER, "")
	if err != nil {
		return nil, i, err
	}

	op1, i, err := p.expect(i, OPERATOR, "")
	if err != nil {
		return nil, i, err
	}

	op2, i, err := p.expect(i, OPERATOR, "")
	if err != nil {
		return nil, i, err
	}

	op := op1.Lexeme + op2.Lexeme
	if op != "++" && op != "--" {
		return nil, i, &SyntaxError{Found: op1, Msg: fmt.Sprintf("line %d: expected ++ or --, got %q", op1.Line, op)}
	}

	return &Increment{Name: name.Lexeme, Op: op}, i, nil
}
