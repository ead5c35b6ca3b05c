package asm

import (
	"strconv"
	"strings"
	"unicode"

	"tlog.app/go/errors"
)

// operandCounts lists the instructions and directives a listing may use with
// their operand count. -1 means any number.
var operandCounts = map[string]int{
	"ret": 0,
	"cdq": 0,
	"nop": 0,

	"push": 1,
	"jmp":  1,
	"pop":  1,
	"call": 1,
	"idiv": 1,
	"inc":  1,
	"dec":  1,
	"neg":  1,

	"mov":   2,
	"movzx": 2,
	"movd":  2,
	"xchg":  2,
	"add":   2,
	"sub":   2,
	"imul":  2,
	"cmp":   2,

	"movss":    2,
	"movsd":    2,
	"addss":    2,
	"subss":    2,
	"mulss":    2,
	"divss":    2,
	"addsd":    2,
	"subsd":    2,
	"mulsd":    2,
	"divsd":    2,
	"comiss":   2,
	"comisd":   2,
	"cvtss2sd": 2,

	"section": 1,
	"extern":  1,
	"global":  1,
	"db":      -1,
	"dd":      -1,
	"dq":      -1,
}

// Each condition code gives one jump and one set instruction.
var conditionCodes = []string{"e", "ne", "z", "nz", "g", "l", "ge", "le", "a", "b", "ae", "be"}

var jumps = map[string]bool{"jmp": true, "call": true}

func init() {
	for _, cc := range conditionCodes {
		operandCounts["j"+cc] = 1
		operandCounts["set"+cc] = 1
		jumps["j"+cc] = true
	}
}

var registers = map[string]bool{
	"eax": true, "ebx": true, "ecx": true, "edx": true,
	"esi": true, "edi": true, "esp": true, "ebp": true,
	"al": true, "xmm0": true, "xmm1": true,
}

var dataDirectives = map[string]bool{"db": true, "dd": true, "dq": true}

// Line is one parsed source line.
type Line struct {
	No       int
	Labels   []string
	Mnemonic string
	Operands []string
	Section  string
}

// Listing is a checked assembly text.
type Listing struct {
	Lines   []Line
	Labels  map[string]int // label -> line number
	Externs []string
	Globals []string
}

type checker struct {
	listing *Listing
	section string
}

// Check parses an assembly listing and verifies that it is self consistent:
// known mnemonics with the right operand count, no duplicate labels, and
// every jump, call or memory reference resolving to a label or an extern.
func Check(code string) (*Listing, error) {
	c := &checker{
		listing: &Listing{Labels: make(map[string]int)},
	}

	lines := strings.Split(code, "\n")

	if err := c.pass1(lines); err != nil {
		return nil, err
	}

	if err := c.pass2(); err != nil {
		return nil, err
	}

	return c.listing, nil
}

func (c *checker) pass1(lines []string) error {
	l := c.listing

	for i, raw := range lines {
		lineNo := i + 1

		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.Labels {
			if prev, exists := l.Labels[lbl]; exists {
				return errors.New("duplicate label '%s' on line %d (first on line %d)", lbl, lineNo, prev)
			}
			l.Labels[lbl] = lineNo
		}

		if p.Mnemonic == "" {
			if len(p.Labels) != 0 {
				p.Section = c.section
				l.Lines = append(l.Lines, p)
			}
			continue
		}

		want, ok := operandCounts[p.Mnemonic]
		if !ok {
			return errors.New("unknown instruction on line %d: %s", lineNo, p.Mnemonic)
		}

		if want >= 0 && len(p.Operands) != want {
			return errors.New("%s expects %d operands on line %d, got %d", p.Mnemonic, want, lineNo, len(p.Operands))
		}

		switch p.Mnemonic {
		case "section":
			c.section = p.Operands[0]
		case "extern":
			l.Externs = append(l.Externs, p.Operands[0])
		case "global":
			l.Globals = append(l.Globals, p.Operands[0])
		default:
			if err := c.checkSection(p); err != nil {
				return err
			}
		}

		p.Section = c.section
		l.Lines = append(l.Lines, p)
	}

	return nil
}

func (c *checker) checkSection(p Line) error {
	data := dataDirectives[p.Mnemonic]

	switch {
	case c.section == "":
		return errors.New("%s outside of any section on line %d", p.Mnemonic, p.No)
	case data && c.section != ".data":
		return errors.New("data directive %s in section %s on line %d", p.Mnemonic, c.section, p.No)
	case !data && c.section != ".text":
		return errors.New("instruction %s in section %s on line %d", p.Mnemonic, c.section, p.No)
	}

	return nil
}

func (c *checker) pass2() error {
	l := c.listing

	externs := make(map[string]bool)
	for _, name := range l.Externs {
		if _, ok := l.Labels[name]; ok {
			return errors.New("extern %s is also defined as a label", name)
		}
		externs[name] = true
	}

	for _, name := range l.Globals {
		if _, ok := l.Labels[name]; !ok {
			return errors.New("global %s is not defined", name)
		}
	}

	resolve := func(name string, lineNo int) error {
		if _, ok := l.Labels[name]; ok || externs[name] {
			return nil
		}
		return errors.New("undefined label '%s' on line %d", name, lineNo)
	}

	for _, p := range l.Lines {
		if jumps[p.Mnemonic] {
			if err := resolve(p.Operands[0], p.No); err != nil {
				return err
			}
			continue
		}

		if dataDirectives[p.Mnemonic] {
			continue
		}

		for _, op := range p.Operands {
			for _, name := range memoryRefs(op) {
				if err := resolve(name, p.No); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// Parse splits a fragment into lines without checking sections or labels.
// Blank and comment-only lines are dropped.
func Parse(code string) ([]Line, error) {
	var out []Line

	for i, raw := range strings.Split(code, "\n") {
		p, err := parseLine(raw, i+1)
		if err != nil {
			return nil, err
		}

		if p.Mnemonic != "" || len(p.Labels) != 0 {
			out = append(out, p)
		}
	}

	return out, nil
}

// Function returns the lines from label name up to, not including, the next
// global label.
func (l *Listing) Function(name string) []Line {
	globals := make(map[string]bool)
	for _, g := range l.Globals {
		globals[g] = true
	}

	var out []Line
	in := false

	for _, p := range l.Lines {
		for _, lbl := range p.Labels {
			switch {
			case lbl == name:
				in = true
			case globals[lbl]:
				in = false
			}
		}

		if in {
			out = append(out, p)
		}
	}

	return out
}

// Instructions returns the mnemonics of lines, skipping label-only lines.
func Instructions(lines []Line) []string {
	var out []string

	for _, p := range lines {
		if p.Mnemonic != "" {
			out = append(out, p.Mnemonic)
		}
	}

	return out
}

// StackEffect returns the net number of bytes lines leave on the stack.
func StackEffect(lines []Line) int {
	n := 0

	for _, p := range lines {
		switch p.Mnemonic {
		case "push":
			n += 4
		case "pop":
			n -= 4
		case "sub", "add":
			if len(p.Operands) != 2 || p.Operands[0] != "esp" {
				continue
			}

			v, err := strconv.Atoi(p.Operands[1])
			if err != nil {
				continue
			}

			if p.Mnemonic == "sub" {
				n += v
			} else {
				n -= v
			}
		}
	}

	return n
}

func parseLine(raw string, lineNo int) (Line, error) {
	p := Line{No: lineNo}

	if scanCode(raw, func(_ int, r rune) bool { return r != ';' }) {
		return p, errors.New("unterminated string on line %d", lineNo)
	}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t`\"'") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, errors.New("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.Labels = append(p.Labels, beforeColon)

		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	mnemonic, rest := line, ""
	if sp := strings.IndexFunc(line, unicode.IsSpace); sp >= 0 {
		mnemonic, rest = line[:sp], line[sp+1:]
	}

	p.Mnemonic = strings.ToLower(mnemonic)
	p.Operands = splitOperands(rest)

	return p, nil
}

// scanCode calls fn for every rune of s outside string literals, stopping
// when fn returns false. Inside backquotes a backslash escapes the next
// character. It reports whether s ends inside a string.
func scanCode(s string, fn func(i int, r rune) bool) (open bool) {
	var quote rune
	escaped := false

	for i, r := range s {
		switch {
		case escaped:
			escaped = false
		case quote == '`' && r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'' || r == '`':
			quote = r
		default:
			if !fn(i, r) {
				return false
			}
		}
	}

	return quote != 0
}

// splitOperands splits on commas outside quotes and brackets.
func splitOperands(s string) []string {
	var out []string
	depth, start := 0, 0

	scanCode(s, func(i int, r rune) bool {
		switch {
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			depth--
		case r == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}

		return true
	})

	if last := strings.TrimSpace(s[start:]); last != "" || len(out) != 0 {
		out = append(out, last)
	}

	return out
}

// stripComments cuts the line at the first ';' outside a string.
func stripComments(line string) string {
	cut := len(line)

	scanCode(line, func(i int, r rune) bool {
		if r == ';' {
			cut = i
			return false
		}

		return true
	})

	return line[:cut]
}

// memoryRefs returns the label names used inside a [ ] memory operand.
func memoryRefs(op string) []string {
	open := strings.IndexByte(op, '[')
	closing := strings.LastIndexByte(op, ']')
	if open < 0 || closing < open {
		return nil
	}

	var refs []string

	for _, f := range strings.FieldsFunc(op[open+1:closing], func(r rune) bool {
		return r == '+' || r == '-' || r == '*' || unicode.IsSpace(r)
	}) {
		if isIdentifier(f) && !registers[f] {
			refs = append(refs, f)
		}
	}

	return refs
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' && r != '.' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}
