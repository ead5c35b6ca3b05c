package compiler

import (
	"context"

	"tlog.app/go/tlog"
)

type analyzer struct {
	syms *SymbolTable

	fn *Function // function whose body is being analyzed
}

// Analyze type checks prog and returns the symbol table it built.
// It stops at the first violation.
func Analyze(ctx context.Context, prog *Program, opts Options) (syms *SymbolTable, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "analyze", "functions", len(prog.Functions), "forward_refs", opts.ForwardRefs)
	defer tr.Finish("err", &err)

	a := &analyzer{syms: NewSymbolTable()}

	if opts.ForwardRefs {
		for _, fn := range prog.Functions {
			if err = a.declareFunc(fn); err != nil {
				return nil, err
			}
		}
	}

	for _, fn := range prog.Functions {
		if !opts.ForwardRefs {
			if err = a.declareFunc(fn); err != nil {
				return nil, err
			}
		}

		if err = a.function(fn); err != nil {
			return nil, err
		}
	}

	for _, name := range a.syms.Vars() {
		if _, ok := a.syms.LookupFunc(name); ok {
			return nil, newSemanticError("name %s is used for both a variable and a function", name)
		}
	}

	if tr.If("symbols") {
		tr.Printw("symbol table", "vars", a.syms.Vars(), "funcs", a.syms.Funcs())
	}

	return a.syms, nil
}

func (a *analyzer) declareFunc(fn *Function) error {
	params := make([]Type, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = Type(p.Type)
	}

	return a.syms.DeclareFunc(fn.Name, Type(fn.ReturnType), params)
}

func (a *analyzer) function(fn *Function) error {
	a.fn = fn
	defer func() { a.fn = nil }()

	for _, p := range fn.Params {
		if Type(p.Type) == TypeVoid {
			return newSemanticError("parameter %s of function %s cannot be void", p.Name, fn.Name)
		}

		if err := a.syms.DeclareVar(p.Name, Type(p.Type), false); err != nil {
			return err
		}
	}

	return a.body(fn.Body)
}

func (a *analyzer) body(stmts []Stmt) error {
	for _, s := range stmts {
		if err := a.stmt(s); err != nil {
			return err
		}
	}

	return nil
}

func (a *analyzer) stmt(s Stmt) error {
	switch n := s.(type) {
	case *Declaration:
		t := Type(n.Type)
		if t == TypeVoid {
			return newSemanticError("variable %s cannot be declared void", n.Name)
		}

		if n.Init != nil {
			it, err := a.expr(n.Init)
			if err != nil {
				return err
			}

			if it != t {
				return newSemanticError("cannot initialize %s variable %s with %s value %s", t, n.Name, it, n.Init)
			}
		}

		return a.syms.DeclareVar(n.Name, t, false)

	case *Constant:
		t := Type(n.Type)

		vt, err := a.expr(n.Value)
		if err != nil {
			return err
		}

		if vt != t {
			return newSemanticError("cannot initialize %s constant %s with %s value %s", t, n.Name, vt, n.Value)
		}

		return a.syms.DeclareVar(n.Name, t, true)

	case *Assignment:
		vt, err := a.expr(n.Value)
		if err != nil {
			return err
		}

		v, ok := a.syms.LookupVar(n.Name)
		if !ok {
			if vt == TypeVoid {
				return newSemanticError("cannot assign void value %s to %s", n.Value, n.Name)
			}

			return a.syms.DeclareVar(n.Name, vt, false)
		}

		if v.Const {
			return newSemanticError("cannot assign to constant %s", n.Name)
		}

		if v.Type != vt {
			return newSemanticError("incompatible assignment: variable %s is %s but %s is %s", n.Name, v.Type, n.Value, vt)
		}

		return nil

	case *Return:
		want := Type(a.fn.ReturnType)

		if n.Value == nil {
			if want != TypeVoid {
				return newSemanticError("function %s must return %s", a.fn.Name, want)
			}

			return nil
		}

		got, err := a.expr(n.Value)
		if err != nil {
			return err
		}

		if want == TypeVoid {
			return newSemanticError("void function %s cannot return a value", a.fn.Name)
		}

		if got != want {
			return newSemanticError("function %s must return %s but %s is %s", a.fn.Name, want, n.Value, got)
		}

		return nil

	case *If:
		if err := a.cond("if", n.Cond); err != nil {
			return err
		}

		if err := a.body(n.Body); err != nil {
			return err
		}

		for _, ei := range n.ElseIfs {
			if err := a.cond("else if", ei.Cond); err != nil {
				return err
			}

			if err := a.body(ei.Body); err != nil {
				return err
			}
		}

		return a.body(n.Else)

	case *While:
		if err := a.cond("while", n.Cond); err != nil {
			return err
		}

		return a.body(n.Body)

	case *For:
		if err := a.stmt(n.Init); err != nil {
			return err
		}

		if err := a.cond("for", n.Cond); err != nil {
			return err
		}

		if err := a.stmt(n.Post); err != nil {
			return err
		}

		return a.body(n.Body)

	case *Increment:
		v, ok := a.syms.LookupVar(n.Name)
		if !ok {
			return newSemanticError("variable %s is not declared", n.Name)
		}

		if v.Const {
			return newSemanticError("cannot modify constant %s", n.Name)
		}

		if v.Type != TypeInt && v.Type != TypeChar {
			return newSemanticError("%s%s requires an int or char variable, %s is %s", n.Name, n.Op, n.Name, v.Type)
		}

		return nil

	case Expr:
		_, err := a.expr(n)
		return err

	default:
		return newInternalError("analyze: unexpected statement %T", s)
	}
}

// cond checks the condition of an if, while or for statement.
func (a *analyzer) cond(what string, c Expr) error {
	t, err := a.expr(c)
	if err != nil {
		return err
	}

	if t != TypeInt {
		return newSemanticError("%s condition %s must be int, got %s", what, c, t)
	}

	return nil
}

// expr infers the type of x.
func (a *analyzer) expr(x Expr) (Type, error) {
	switch n := x.(type) {
	case *Identifier:
		v, ok := a.syms.LookupVar(n.Name)
		if !ok {
			return "", newSemanticError("variable %s is not declared", n.Name)
		}

		return v.Type, nil

	case *NumberLiteral:
		if n.IsFloat() {
			return TypeFloat, nil
		}

		return TypeInt, nil

	case *StringLiteral:
		return TypeChar, nil

	case *BinaryOperation:
		lt, err := a.expr(n.Left)
		if err != nil {
			return "", err
		}

		rt, err := a.expr(n.Right)
		if err != nil {
			return "", err
		}

		if lt != rt {
			return "", newSemanticError("incompatible types in %s: %s %s %s", n, lt, n.Op, rt)
		}

		switch lt {
		case TypeVoid:
			return "", newSemanticError("void value in arithmetic %s", n)
		case TypeChar:
			if _, ok := n.Left.(*StringLiteral); ok {
				return "", newSemanticError("string literal in arithmetic %s", n)
			}
			if _, ok := n.Right.(*StringLiteral); ok {
				return "", newSemanticError("string literal in arithmetic %s", n)
			}
		}

		if n.Op == "/" && isLiteralZero(n.Right) {
			return "", newSemanticError("division by zero in %s", n)
		}

		return lt, nil

	case *Comparison:
		lt, err := a.expr(n.Left)
		if err != nil {
			return "", err
		}

		rt, err := a.expr(n.Right)
		if err != nil {
			return "", err
		}

		if lt != rt {
			return "", newSemanticError("incompatible types in comparison %s: %s %s %s", n, lt, n.Op, rt)
		}

		return TypeInt, nil

	case *FunctionCall:
		return a.call(n)

	default:
		return "", newInternalError("analyze: unexpected expression %T", x)
	}
}

func (a *analyzer) call(c *FunctionCall) (Type, error) {
	f, ok := a.syms.LookupFunc(c.Name)
	if !ok {
		return "", newSemanticError("function %s is not declared", c.Name)
	}

	if f.Library {
		for _, arg := range c.Args {
			t, err := a.expr(arg)
			if err != nil {
				return "", err
			}

			if t == TypeVoid {
				return "", newSemanticError("void argument %s to %s", arg, c.Name)
			}
		}

		return f.Return, nil
	}

	if len(c.Args) != len(f.Params) {
		return "", newSemanticError("function %s expects %d arguments but %d were given", c.Name, len(f.Params), len(c.Args))
	}

	for i, arg := range c.Args {
		t, err := a.expr(arg)
		if err != nil {
			return "", err
		}

		if t != f.Params[i] {
			return "", newSemanticError("argument %d of %s: expected %s but %s is %s", i+1, c.Name, f.Params[i], arg, t)
		}
	}

	return f.Return, nil
}

func isLiteralZero(x Expr) bool {
	n, ok := x.(*NumberLiteral)
	if !ok {
		return false
	}

	for _, c := range n.Text() {
		if c != '0' && c != '.' && c != '-' {
			return false
		}
	}

	return true
}
