package compiler

import (
	"fmt"
	"strings"
)

// Node is implemented by every AST variant. The unexported marker keeps the
// set of variants closed to this package.
type Node interface {
	node()
	String() string
}

// Stmt is implemented by every node that may appear in a statement list.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by every node that produces a value. Expressions are
// statements too: a call or a bare literal is legal on its own.
// Integer results are left in eax, float and double results in xmm0.
type Expr interface {
	Stmt
	exprNode()
}

//  Expression nodes

// Identifier is a read of a named variable.
type Identifier struct {
	Name string
}

// NumberLiteral keeps the source lexeme, including a folded leading '-'
// and an optional 'f' suffix.
//
//	int x = -5;
//	        ^^  NumberLiteral{Value: "-5"}
type NumberLiteral struct {
	Value string
}

// StringLiteral keeps the lexeme with its quotes.
type StringLiteral struct {
	Value string
}

// BinaryOperation is Left Op Right for Op in + - * /.
type BinaryOperation struct {
	Op    string
	Left  Expr
	Right Expr
}

// Comparison is Left Op Right for Op in > < >= <= == !=. It yields 0 or 1.
type Comparison struct {
	Op    string
	Left  Expr
	Right Expr
}

// FunctionCall is name(args). Library is set for print, printf and scanf,
// which have no definition in the program.
type FunctionCall struct {
	Name    string
	Args    []Expr
	Library bool
}

//  Statement nodes

// Declaration is  type name [= init];
type Declaration struct {
	Type string
	Name string
	Init Expr // may be nil
}

// Assignment is  name = value;
type Assignment struct {
	Name  string
	Value Expr
}

// Constant is  const type name = value;  where value is a number or an identifier.
type Constant struct {
	Type  string
	Name  string
	Value Expr
}

// Return is  return [value];
type Return struct {
	Value Expr // nil for a bare return
}

// ElseIf is one  else if (cond) { body }  branch.
type ElseIf struct {
	Cond Expr
	Body []Stmt
}

// If is  if (cond) { body } [else if ...]* [else { ... }]
type If struct {
	Cond    Expr
	Body    []Stmt
	ElseIfs []ElseIf
	Else    []Stmt // nil when there is no plain else
}

// While is  while (cond) { body }
type While struct {
	Cond Expr
	Body []Stmt
}

// For is  for (init cond; post) { body }
type For struct {
	Init Stmt // *Declaration or *Assignment
	Cond Expr
	Post *Increment
	Body []Stmt
}

// Increment is  name++  or  name--
type Increment struct {
	Name string
	Op   string
}

//  Top level

// Parameter is one  type name  entry of a parameter list.
type Parameter struct {
	Type string
	Name string
}

// Function is  type name(params) { body }
type Function struct {
	ReturnType string
	Name       string
	Params     []*Parameter
	Body       []Stmt
}

// Program is the whole translation unit. Includes lists the skipped headers.
type Program struct {
	Includes  []string
	Functions []*Function
}

func (*Identifier) node()      {}
func (*NumberLiteral) node()   {}
func (*StringLiteral) node()   {}
func (*BinaryOperation) node() {}
func (*Comparison) node()      {}
func (*FunctionCall) node()    {}
func (*Declaration) node()     {}
func (*Assignment) node()      {}
func (*Constant) node()        {}
func (*Return) node()          {}
func (*If) node()              {}
func (*While) node()           {}
func (*For) node()             {}
func (*Increment) node()       {}
func (*Parameter) node()       {}
func (*Function) node()        {}
func (*Program) node()         {}

func (*Identifier) exprNode()      {}
func (*NumberLiteral) exprNode()   {}
func (*StringLiteral) exprNode()   {}
func (*BinaryOperation) exprNode() {}
func (*Comparison) exprNode()      {}
func (*FunctionCall) exprNode()    {}

func (*Identifier) stmtNode()      {}
func (*NumberLiteral) stmtNode()   {}
func (*StringLiteral) stmtNode()   {}
func (*BinaryOperation) stmtNode() {}
func (*Comparison) stmtNode()      {}
func (*FunctionCall) stmtNode()    {}
func (*Declaration) stmtNode()     {}
func (*Assignment) stmtNode()      {}
func (*Constant) stmtNode()        {}
func (*Return) stmtNode()          {}
func (*If) stmtNode()              {}
func (*While) stmtNode()           {}
func (*For) stmtNode()             {}
func (*Increment) stmtNode()       {}

// IsFloat reports whether the literal is written with a decimal point.
func (n *NumberLiteral) IsFloat() bool { return strings.Contains(n.Value, ".") }

// Text is the literal without its float suffix.
func (n *NumberLiteral) Text() string { return strings.TrimSuffix(n.Value, "f") }

// String renders nodes as indented pseudocode.

func (i *Identifier) String() string    { return i.Name }
func (n *NumberLiteral) String() string { return n.Value }
func (s *StringLiteral) String() string { return s.Value }

func (b *BinaryOperation) String() string {
	return fmt.Sprintf("%s %s %s", b.Left, b.Op, b.Right)
}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

func (c *FunctionCall) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(args, ", "))
}

func (d *Declaration) String() string {
	if d.Init == nil {
		return fmt.Sprintf("%s %s", d.Type, d.Name)
	}
	return fmt.Sprintf("%s %s = %s", d.Type, d.Name, d.Init)
}

func (a *Assignment) String() string {
	return fmt.Sprintf("%s = %s", a.Name, a.Value)
}

func (c *Constant) String() string {
	return fmt.Sprintf("const %s %s = %s", c.Type, c.Name, c.Value)
}

func (r *Return) String() string {
	if r.Value == nil {
		return "return"
	}
	return fmt.Sprintf("return %s", r.Value)
}

func (i *If) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "if %s:\n%s", i.Cond, block(i.Body))
	for _, ei := range i.ElseIfs {
		fmt.Fprintf(&b, "\nelif %s:\n%s", ei.Cond, block(ei.Body))
	}
	if i.Else != nil {
		fmt.Fprintf(&b, "\nelse:\n%s", block(i.Else))
	}
	return b.String()
}

func (w *While) String() string {
	return fmt.Sprintf("while %s:\n%s", w.Cond, block(w.Body))
}

func (f *For) String() string {
	body := append([]Stmt{}, f.Body...)
	if f.Post != nil {
		body = append(body, f.Post)
	}
	return fmt.Sprintf("%s\nwhile %s:\n%s", f.Init, f.Cond, block(body))
}

func (i *Increment) String() string {
	if i.Op == "--" {
		return i.Name + " -= 1"
	}
	return i.Name + " += 1"
}

func (p *Parameter) String() string { return p.Name }

func (f *Function) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("def %s(%s):\n%s", f.Name, strings.Join(params, ", "), block(f.Body))
}

func (p *Program) String() string {
	funcs := make([]string, len(p.Functions))
	for i, f := range p.Functions {
		funcs[i] = f.String()
	}
	return strings.Join(funcs, "\n\n")
}

// block renders a statement list one level deeper. An empty body renders as "pass".
func block(stmts []Stmt) string {
	if len(stmts) == 0 {
		return "    pass"
	}

	lines := make([]string, 0, len(stmts))
	for _, s := range stmts {
		for _, l := range strings.Split(s.String(), "\n") {
			lines = append(lines, "    "+l)
		}
	}
	return strings.Join(lines, "\n")
}
