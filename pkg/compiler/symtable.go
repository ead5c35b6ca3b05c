package compiler

import (
	"fmt"
	"strings"
)

// Type is a semantic type. Source type keywords map to it 1:1.
type Type string

const (
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
	TypeDouble Type = "double"
	TypeChar   Type = "char"
	TypeVoid   Type = "void"
)

// IsFloat reports whether values of t live in the floating point register.
func (t Type) IsFloat() bool {
	return t == TypeFloat || t == TypeDouble
}

// Size is the storage size in bytes of a value of type t.
func (t Type) Size() int {
	switch t {
	case TypeDouble:
		return 8
	case TypeVoid:
		return 0
	default:
		return 4
	}
}

type VarInfo struct {
	Type  Type
	Const bool
}

type FuncInfo struct {
	Return Type
	Params []Type

	// Library functions take any number of arguments of any type.
	Library bool
}

// libraryFuncs are the builtins callable without a definition.
var libraryFuncs = map[string]FuncInfo{
	"print":  {Return: TypeVoid, Library: true},
	"printf": {Return: TypeInt, Library: true},
	"scanf":  {Return: TypeInt, Library: true},
}

// SymbolTable records every variable and function of one analysis run.
// Both namespaces are flat: a name is declared at most once per table.
// Declaration order is kept so the output is deterministic.
type SymbolTable struct {
	vars  map[string]VarInfo
	funcs map[string]FuncInfo

	varOrder  []string
	funcOrder []string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		vars:  make(map[string]VarInfo),
		funcs: make(map[string]FuncInfo),
	}
}

func (s *SymbolTable) DeclareVar(name string, t Type, isConst bool) error {
	if _, ok := s.vars[name]; ok {
		return newSemanticError("variable %s is already declared", name)
	}

	s.vars[name] = VarInfo{Type: t, Const: isConst}
	s.varOrder = append(s.varOrder, name)

	return nil
}

func (s *SymbolTable) LookupVar(name string) (VarInfo, bool) {
	v, ok := s.vars[name]
	return v, ok
}

func (s *SymbolTable) DeclareFunc(name string, ret Type, params []Type) error {
	if _, ok := s.funcs[name]; ok {
		return newSemanticError("function %s is already declared", name)
	}
	if _, ok := libraryFuncs[name]; ok {
		return newSemanticError("function %s shadows a library function", name)
	}

	s.funcs[name] = FuncInfo{Return: ret, Params: params}
	s.funcOrder = append(s.funcOrder, name)

	return nil
}

// LookupFunc finds a user function or a library builtin.
func (s *SymbolTable) LookupFunc(name string) (FuncInfo, bool) {
	if f, ok := s.funcs[name]; ok {
		return f, true
	}

	f, ok := libraryFuncs[name]

	return f, ok
}

// Vars returns variable names in declaration order.
func (s *SymbolTable) Vars() []string { return s.varOrder }

// Funcs returns user function names in declaration order.
func (s *SymbolTable) Funcs() []string { return s.funcOrder }

func (s *SymbolTable) String() string {
	var b strings.Builder

	b.WriteString("variables:\n")
	for _, name := range s.varOrder {
		v := s.vars[name]

		kind := "var"
		if v.Const {
			kind = "const"
		}

		fmt.Fprintf(&b, "  %-12s %-6s %s\n", name, v.Type, kind)
	}

	b.WriteString("functions:\n")
	for _, name := range s.funcOrder {
		f := s.funcs[name]

		params := make([]string, len(f.Params))
		for i, p := range f.Params {
			params[i] = string(p)
		}

		fmt.Fprintf(&b, "  %-12s %-6s (%s)\n", name, f.Return, strings.Join(params, ", "))
	}

	return b.String()
}
