package compiler

import "sort"

// reachableFunctions returns the names of functions transitively called from main.
func reachableFunctions(prog *Program) map[string]bool {
	funcs := make(map[string]*Function)
	for _, f := range prog.Functions {
		funcs[f.Name] = f
	}

	reachable := make(map[string]bool)
	var worklist []string

	addReachable := func(name string) {
		if !reachable[name] {
			reachable[name] = true
			worklist = append(worklist, name)
		}
	}

	addReachable("main")

	for len(worklist) > 0 {
		curr := worklist[0]
		worklist = worklist[1:]

		f, ok := funcs[curr]
		if !ok {
			continue // library function
		}

		calls := make(map[string]bool)
		findCallsBody(f.Body, calls)

		for call := range calls {
			addReachable(call)
		}
	}

	return reachable
}

// eliminateDeadFunctions drops functions main never reaches.
func eliminateDeadFunctions(funcs []*Function, reachable map[string]bool) []*Function {
	var live []*Function

	for _, f := range funcs {
		if reachable[f.Name] {
			live = append(live, f)
		}
	}

	return live
}

// libraryCalls returns the sorted assembly names of library functions called by funcs.
func libraryCalls(funcs []*Function) []string {
	calls := make(map[string]bool)
	for _, f := range funcs {
		findCallsBody(f.Body, calls)
	}

	externs := make(map[string]bool)
	for name := range calls {
		if lib, ok := libraryFuncs[name]; ok && lib.Library {
			externs[libraryTarget(name)] = true
		}
	}

	names := make([]string, 0, len(externs))
	for name := range externs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// libraryTarget maps a builtin to the C function implementing it.
func libraryTarget(name string) string {
	if name == "print" {
		return "printf"
	}
	return name
}

func findCallsBody(stmts []Stmt, calls map[string]bool) {
	for _, s := range stmts {
		findCallsStmt(s, calls)
	}
}

// findCallsExpr recursively extracts function call names from an expression.
func findCallsExpr(e Expr, calls map[string]bool) {
	if e == nil {
		return
	}

	switch n := e.(type) {
	case *FunctionCall:
		calls[n.Name] = true
		for _, arg := range n.Args {
			findCallsExpr(arg, calls)
		}
	case *BinaryOperation:
		findCallsExpr(n.Left, calls)
		findCallsExpr(n.Right, calls)
	case *Comparison:
		findCallsExpr(n.Left, calls)
		findCallsExpr(n.Right, calls)
	case *Identifier, *NumberLiteral, *StringLiteral:
	}
}

// findCallsStmt recursively extracts function call names from a statement.
func findCallsStmt(s Stmt, calls map[string]bool) {
	switch n := s.(type) {
	case *Declaration:
		findCallsExpr(n.Init, calls)
	case *Assignment:
		findCallsExpr(n.Value, calls)
	case *Constant:
		findCallsExpr(n.Value, calls)
	case *Return:
		findCallsExpr(n.Value, calls)
	case *If:
		findCallsExpr(n.Cond, calls)
		findCallsBody(n.Body, calls)
		for _, ei := range n.ElseIfs {
			findCallsExpr(ei.Cond, calls)
			findCallsBody(ei.Body, calls)
		}
		findCallsBody(n.Else, calls)
	case *While:
		findCallsExpr(n.Cond, calls)
		findCallsBody(n.Body, calls)
	case *For:
		findCallsStmt(n.Init, calls)
		findCallsExpr(n.Cond, calls)
		findCallsBody(n.Body, calls)
	case Expr:
		findCallsExpr(n, calls)
	}
}
