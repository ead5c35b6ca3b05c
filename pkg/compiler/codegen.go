package compiler

import (
	"context"
	"fmt"
	"strings"

	"tlog.app/go/tlog"
)

// CodeGen walks a type checked AST and emits NASM x86 (32-bit) assembly.
//
// Integer and char values are computed in eax, with ecx as the second
// operand; ebx is callee saved and never touched. float values are computed
// in xmm0 with ss instructions and double values with sd instructions, xmm1
// being the second operand. Every variable
// has one static slot in the data section. Arguments are passed on the stack
// right to left; user functions return in eax or xmm0.
//
// User names never reach the listing verbatim: a variable x lives at v_x and
// a function f is f_f, so they cannot clash with registers, NASM keywords
// or the generated L<n> and S<n> labels. main keeps its name for the C runtime.
type CodeGen struct {
	syms *SymbolTable
	opts Options

	out       strings.Builder
	nextLabel int

	stringPool  map[string]string // content -> label
	stringOrder []string          // contents in label order
}

func newCodeGen(syms *SymbolTable, opts Options) *CodeGen {
	return &CodeGen{
		syms:       syms,
		opts:       opts,
		stringPool: make(map[string]string),
	}
}

// newLabel returns the prefix for the labels of one control flow construct.
func (cg *CodeGen) newLabel() string {
	l := fmt.Sprintf("L%d", cg.nextLabel)
	cg.nextLabel++
	return l
}

// stringLabel interns a string literal body and returns its data label.
func (cg *CodeGen) stringLabel(content string) string {
	if l, ok := cg.stringPool[content]; ok {
		return l
	}

	l := fmt.Sprintf("S%d", len(cg.stringOrder))
	cg.stringPool[content] = l
	cg.stringOrder = append(cg.stringOrder, content)

	return l
}

// global is the assembly name of a function or extern symbol.
func (cg *CodeGen) global(name string) string {
	if cg.opts.Underscore {
		return "_" + name
	}
	return name
}

// funcName is the assembly name of user function name.
func (cg *CodeGen) funcName(name string) string {
	if name != "main" {
		name = "f_" + name
	}

	return cg.global(name)
}

// dataName is the label of the static slot of variable name.
func dataName(name string) string {
	return "v_" + name
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, "    "+format+"\n", args...)
}

func (cg *CodeGen) label(name string) {
	fmt.Fprintf(&cg.out, "%s:\n", name)
}

func (cg *CodeGen) comment(format string, args ...any) {
	if !cg.opts.Comments {
		return
	}

	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(&cg.out, "    ; %s\n", strings.ReplaceAll(msg, "\n", " "))
}

// nasmString renders a string literal body for a NASM backquote string.
// Backslash sequences pass through as C escapes; a trailing lone backslash is
// doubled so it cannot escape the closing quote.
func nasmString(content string) string {
	var b strings.Builder

	for i := 0; i < len(content); i++ {
		switch c := content[i]; {
		case c == '\\' && i+1 < len(content) && content[i+1] != '\n':
			b.WriteByte(c)
			b.WriteByte(content[i+1])
			i++
		case c == '\\':
			b.WriteString(`\\`)
		case c == '`':
			b.WriteString("\\`")
		case c == '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// movFor is the scalar move for values of type t held in xmm registers.
func movFor(t Type) string {
	if t == TypeDouble {
		return "movsd"
	}
	return "movss"
}

// suffixFor is the scalar instruction suffix for type t.
func suffixFor(t Type) string {
	if t == TypeDouble {
		return "sd"
	}
	return "ss"
}

// typeOf infers the type of a checked expression.
func (cg *CodeGen) typeOf(x Expr) Type {
	switch n := x.(type) {
	case *Identifier:
		v, _ := cg.syms.LookupVar(n.Name)
		return v.Type
	case *NumberLiteral:
		if n.IsFloat() {
			return TypeFloat
		}
		return TypeInt
	case *StringLiteral:
		return TypeChar
	case *BinaryOperation:
		return cg.typeOf(n.Left)
	case *Comparison:
		return TypeInt
	case *FunctionCall:
		f, _ := cg.syms.LookupFunc(n.Name)
		return f.Return
	}

	return TypeInt
}

// load moves variable name into the accumulator for its type.
func (cg *CodeGen) load(name string, t Type) {
	if t.IsFloat() {
		cg.line("%s xmm0, [%s]", movFor(t), dataName(name))
		return
	}

	cg.line("mov eax, [%s]", dataName(name))
}

// store moves the accumulator for type t into variable name.
func (cg *CodeGen) store(name string, t Type) {
	if t.IsFloat() {
		cg.line("%s [%s], xmm0", movFor(t), dataName(name))
		return
	}

	cg.line("mov [%s], eax", dataName(name))
}

// push saves the accumulator for type t on the stack and returns the bytes used.
func (cg *CodeGen) push(t Type) int {
	if t.IsFloat() {
		cg.line("sub esp, %d", t.Size())
		cg.line("%s [esp], xmm0", movFor(t))
		return t.Size()
	}

	cg.line("push eax")

	return 4
}

// popSecond restores a value saved by push into the second operand register.
func (cg *CodeGen) popSecond(t Type) {
	if t.IsFloat() {
		cg.line("%s xmm1, [esp]", movFor(t))
		cg.line("add esp, %d", t.Size())
		return
	}

	cg.line("pop ecx")
}

// operands evaluates left into the second operand register and right into
// the accumulator.
func (cg *CodeGen) operands(left, right Expr, t Type) error {
	if err := cg.genExpr(left); err != nil {
		return err
	}

	cg.push(t)

	if err := cg.genExpr(right); err != nil {
		return err
	}

	cg.popSecond(t)

	return nil
}

func (cg *CodeGen) genExpr(e Expr) error {
	switch n := e.(type) {
	case *Identifier:
		cg.load(n.Name, cg.typeOf(n))

	case *NumberLiteral:
		if n.IsFloat() {
			cg.line("mov eax, __float32__(%s)", n.Text())
			cg.line("movd xmm0, eax")
			return nil
		}

		cg.line("mov eax, %s", n.Text())

	case *StringLiteral:
		cg.line("mov eax, %s", cg.stringLabel(strings.Trim(n.Value, `"`)))

	case *BinaryOperation:
		return cg.genBinary(n)

	case *Comparison:
		return cg.genComparison(n)

	case *FunctionCall:
		return cg.genCall(n)

	default:
		return newInternalError("codegen: unexpected expression %T", e)
	}

	return nil
}

func (cg *CodeGen) genBinary(n *BinaryOperation) error {
	t := cg.typeOf(n)

	if err := cg.operands(n.Left, n.Right, t); err != nil {
		return err
	}

	if t.IsFloat() {
		op := map[string]string{"+": "add", "-": "sub", "*": "mul", "/": "div"}[n.Op]
		if op == "" {
			return newInternalError("codegen: unknown operator %q", n.Op)
		}

		cg.line("%s%s xmm1, xmm0", op, suffixFor(t))
		cg.line("%s xmm0, xmm1", movFor(t))

		return nil
	}

	switch n.Op {
	case "+":
		cg.line("add eax, ecx")
	case "-":
		cg.line("sub ecx, eax")
		cg.line("mov eax, ecx")
	case "*":
		cg.line("imul eax, ecx")
	case "/":
		cg.line("xchg eax, ecx")
		cg.line("cdq")
		cg.line("idiv ecx")
	default:
		return newInternalError("codegen: unknown operator %q", n.Op)
	}

	return nil
}

var (
	setSigned = map[string]string{
		">": "setg", "<": "setl", ">=": "setge", "<=": "setle", "==": "sete", "!=": "setne",
	}
	setUnsigned = map[string]string{
		">": "seta", "<": "setb", ">=": "setae", "<=": "setbe", "==": "sete", "!=": "setne",
	}
)

// genComparison leaves 1 in eax when the comparison holds and 0 otherwise.
func (cg *CodeGen) genComparison(n *Comparison) error {
	t := cg.typeOf(n.Left)

	if err := cg.operands(n.Left, n.Right, t); err != nil {
		return err
	}

	set := setSigned
	if t.IsFloat() {
		set = setUnsigned
		cg.line("comi%s xmm1, xmm0", suffixFor(t))
	} else {
		cg.line("cmp ecx, eax")
	}

	op, ok := set[n.Op]
	if !ok {
		return newInternalError("codegen: unknown comparison %q", n.Op)
	}

	cg.line("%s al", op)
	cg.line("movzx eax, al")

	return nil
}

// pushArg evaluates arg and pushes it. Library calls are variadic C
// functions, so float arguments are promoted to double.
func (cg *CodeGen) pushArg(arg Expr, library bool) (int, error) {
	if err := cg.genExpr(arg); err != nil {
		return 0, err
	}

	t := cg.typeOf(arg)
	if library && t == TypeFloat {
		cg.line("cvtss2sd xmm0, xmm0")
		t = TypeDouble
	}

	return cg.push(t), nil
}

func (cg *CodeGen) genCall(n *FunctionCall) error {
	if n.Name == "print" {
		return cg.genPrint(n)
	}

	size := 0

	for i := len(n.Args) - 1; i >= 0; i-- {
		s, err := cg.pushArg(n.Args[i], n.Library)
		if err != nil {
			return err
		}

		size += s
	}

	if n.Library {
		cg.line("call %s", cg.global(libraryTarget(n.Name)))
	} else {
		cg.line("call %s", cg.funcName(n.Name))
	}

	if size != 0 {
		cg.line("add esp, %d", size)
	}

	return nil
}

// genPrint prints its argument and a newline with printf, choosing the
// format from the argument type.
func (cg *CodeGen) genPrint(n *FunctionCall) error {
	if len(n.Args) == 0 {
		return newInternalError("codegen: print without argument")
	}

	arg := n.Args[0]

	format := `%d\n`
	switch cg.typeOf(arg) {
	case TypeChar:
		format = `%s\n`
	case TypeFloat, TypeDouble:
		format = `%f\n`
	}

	size, err := cg.pushArg(arg, true)
	if err != nil {
		return err
	}

	cg.line("push %s", cg.stringLabel(format))
	cg.line("call %s", cg.global("printf"))
	cg.line("add esp, %d", size+4)

	return nil
}

// genCond evaluates a condition and jumps to target when it is false.
func (cg *CodeGen) genCond(c Expr, target string) error {
	if err := cg.genExpr(c); err != nil {
		return err
	}

	cg.line("cmp eax, 0")
	cg.line("je %s", target)

	return nil
}

func (cg *CodeGen) genBody(stmts []Stmt) error {
	for _, s := range stmts {
		if err := cg.genStmt(s); err != nil {
			return err
		}
	}

	return nil
}

func (cg *CodeGen) epilogue() {
	cg.line("mov esp, ebp")
	cg.line("pop ebp")
	cg.line("ret")
}

func (cg *CodeGen) genStmt(s Stmt) error {
	switch n := s.(type) {
	case *Declaration:
		cg.comment("%s", n)

		t := Type(n.Type)

		if n.Init == nil {
			cg.line("mov dword [%s], 0", dataName(n.Name))
			if t.Size() == 8 {
				cg.line("mov dword [%s+4], 0", dataName(n.Name))
			}
			return nil
		}

		if err := cg.genExpr(n.Init); err != nil {
			return err
		}

		cg.store(n.Name, t)

	case *Constant:
		cg.comment("%s", n)

		if err := cg.genExpr(n.Value); err != nil {
			return err
		}

		cg.store(n.Name, Type(n.Type))

	case *Assignment:
		cg.comment("%s", n)

		if err := cg.genExpr(n.Value); err != nil {
			return err
		}

		v, _ := cg.syms.LookupVar(n.Name)
		cg.store(n.Name, v.Type)

	case *Return:
		cg.comment("%s", n)

		if n.Value != nil {
			if err := cg.genExpr(n.Value); err != nil {
				return err
			}
		}

		cg.epilogue()

	case *If:
		return cg.genIf(n)

	case *While:
		l := cg.newLabel()
		start, end := l+"_start", l+"_end"

		cg.comment("while %s", n.Cond)
		cg.label(start)

		if err := cg.genCond(n.Cond, end); err != nil {
			return err
		}

		if err := cg.genBody(n.Body); err != nil {
			return err
		}

		cg.line("jmp %s", start)
		cg.label(end)

	case *For:
		l := cg.newLabel()
		start, end := l+"_start", l+"_end"

		cg.comment("for %s; %s; %s", n.Init, n.Cond, n.Post)

		if err := cg.genStmt(n.Init); err != nil {
			return err
		}

		cg.label(start)

		if err := cg.genCond(n.Cond, end); err != nil {
			return err
		}

		if err := cg.genBody(n.Body); err != nil {
			return err
		}

		if err := cg.genStmt(n.Post); err != nil {
			return err
		}

		cg.line("jmp %s", start)
		cg.label(end)

	case *Increment:
		cg.comment("%s%s", n.Name, n.Op)

		op := "add"
		if n.Op == "--" {
			op = "sub"
		}

		cg.line("mov eax, [%s]", dataName(n.Name))
		cg.line("%s eax, 1", op)
		cg.line("mov [%s], eax", dataName(n.Name))

	case Expr:
		cg.comment("%s", n)
		return cg.genExpr(n)

	default:
		return newInternalError("codegen: unexpected statement %T", s)
	}

	return nil
}

// genIf emits the if chain. Each condition jumps to the next branch label
// when false; the last next label always exists, even without an else.
func (cg *CodeGen) genIf(n *If) error {
	l := cg.newLabel()
	end := l + "_end"
	next := func(k int) string { return fmt.Sprintf("%s_next%d", l, k) }

	cg.comment("if %s", n.Cond)

	if err := cg.genCond(n.Cond, next(0)); err != nil {
		return err
	}

	if err := cg.genBody(n.Body); err != nil {
		return err
	}

	cg.line("jmp %s", end)

	for k, ei := range n.ElseIfs {
		cg.label(next(k))
		cg.comment("else if %s", ei.Cond)

		if err := cg.genCond(ei.Cond, next(k+1)); err != nil {
			return err
		}

		if err := cg.genBody(ei.Body); err != nil {
			return err
		}

		cg.line("jmp %s", end)
	}

	cg.label(next(len(n.ElseIfs)))

	if err := cg.genBody(n.Else); err != nil {
		return err
	}

	cg.label(end)

	return nil
}

func (cg *CodeGen) genFunction(f *Function) error {
	cg.out.WriteString("\n")
	cg.label(cg.funcName(f.Name))
	cg.line("push ebp")
	cg.line("mov ebp, esp")

	off := 8
	for _, p := range f.Params {
		t := Type(p.Type)

		if t.IsFloat() {
			cg.line("%s xmm0, [ebp+%d]", movFor(t), off)
		} else {
			cg.line("mov eax, [ebp+%d]", off)
		}

		cg.store(p.Name, t)

		off += t.Size()
	}

	if err := cg.genBody(f.Body); err != nil {
		return err
	}

	cg.epilogue()

	return nil
}

// Generate emits the assembly listing of a checked program.
func Generate(ctx context.Context, prog *Program, syms *SymbolTable, opts Options) (_ string, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "generate", "functions", len(prog.Functions))
	defer tr.Finish("err", &err)

	funcs := prog.Functions

	if opts.DropUnused {
		funcs = eliminateDeadFunctions(funcs, reachableFunctions(prog))
		tr.Printw("dead functions dropped", "kept", len(funcs), "total", len(prog.Functions))
	}

	cg := newCodeGen(syms, opts)

	for _, f := range funcs {
		if err = cg.genFunction(f); err != nil {
			return "", err
		}
	}

	var b strings.Builder

	b.WriteString("section .data\n")

	for _, name := range syms.Vars() {
		v, _ := syms.LookupVar(name)

		dir := "dd"
		if v.Type.Size() == 8 {
			dir = "dq"
		}

		fmt.Fprintf(&b, "%s: %s 0\n", dataName(name), dir)
	}

	for i, content := range cg.stringOrder {
		fmt.Fprintf(&b, "S%d: db `%s`, 0\n", i, nasmString(content))
	}

	b.WriteString("\nsection .text\n")

	for _, name := range libraryCalls(funcs) {
		fmt.Fprintf(&b, "extern %s\n", cg.global(name))
	}

	for _, f := range funcs {
		fmt.Fprintf(&b, "global %s\n", cg.funcName(f.Name))
	}

	b.WriteString(cg.out.String())

	asm := b.String()

	if tr.If("codegen") {
		tr.Printw("assembly", "labels", cg.nextLabel, "strings", len(cg.stringOrder), "text", asm)
	}

	return asm, nil
}
