package compiler

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"
)

func parseSrc(t *testing.T, src string) (*Program, error) {
	t.Helper()

	tokens, err := Lex(src)
	require.NoError(t, err)

	return Parse(tokens, src)
}

// parseMain parses body as the body of int main() and returns its statements.
func parseMain(t *testing.T, body string) []Stmt {
	t.Helper()

	prog, err := parseSrc(t, "int main() {\n"+body+"\n}")
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)

	return prog.Functions[0].Body
}

func requireSyntaxError(t *testing.T, err error) *SyntaxError {
	t.Helper()

	var serr *SyntaxError
	require.True(t, errors.As(err, &serr), "want *SyntaxError, got %v", err)

	return serr
}

func TestParseScenarioA(t *testing.T) {
	prog, err := parseSrc(t, "int main(){ int x = 2 + 3; return x; }")
	require.NoError(t, err)

	want := &Program{
		Functions: []*Function{{
			ReturnType: "int",
			Name:       "main",
			Body: []Stmt{
				&Declaration{Type: "int", Name: "x", Init: &BinaryOperation{
					Op:    "+",
					Left:  &NumberLiteral{Value: "2"},
					Right: &NumberLiteral{Value: "3"},
				}},
				&Return{Value: &Identifier{Name: "x"}},
			},
		}},
	}

	assert.Equal(t, want, prog)
}

func TestParseProgramStructure(t *testing.T) {
	prog, err := parseSrc(t, `
#include <stdio.h>
#include <stdlib.h>

int add(int a, int b) { return a + b; }
void noop() { }
int main() { return add(1, 2); }
`)
	require.NoError(t, err)

	assert.Equal(t, []string{"<stdio.h>", "<stdlib.h>"}, prog.Includes)
	require.Len(t, prog.Functions, 3)

	add := prog.Functions[0]
	assert.Equal(t, []*Parameter{{Type: "int", Name: "a"}, {Type: "int", Name: "b"}}, add.Params)

	noop := prog.Functions[1]
	assert.Equal(t, "void", noop.ReturnType)
	assert.Empty(t, noop.Body)

	ret := prog.Functions[2].Body[0].(*Return)
	assert.Equal(t, &FunctionCall{Name: "add", Args: []Expr{
		&NumberLiteral{Value: "1"},
		&NumberLiteral{Value: "2"},
	}}, ret.Value)
}

func TestParseMainRules(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"No main", "int f() { return 1; }"},
		{"Main not last", "int main() { return 0; }\nint f() { return 1; }"},
		{"Empty program", "#include <stdio.h>"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseSrc(t, tc.src)
			serr := requireSyntaxError(t, err)
			assert.Contains(t, serr.Error(), "main")
		})
	}
}

func TestParseExpressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Expr
	}{
		{
			name: "Flat precedence, left associative",
			src:  "x = a - b * c;",
			want: &BinaryOperation{
				Op: "*",
				Left: &BinaryOperation{
					Op:    "-",
					Left:  &Identifier{Name: "a"},
					Right: &Identifier{Name: "b"},
				},
				Right: &Identifier{Name: "c"},
			},
		},
		{
			name: "Negative literal",
			src:  "x = -5 + 2;",
			want: &BinaryOperation{
				Op:    "+",
				Left:  &NumberLiteral{Value: "-5"},
				Right: &NumberLiteral{Value: "2"},
			},
		},
		{
			name: "Call on the right",
			src:  "x = f(a, 1) / 2;",
			want: &BinaryOperation{
				Op: "/",
				Left: &FunctionCall{Name: "f", Args: []Expr{
					&Identifier{Name: "a"},
					&NumberLiteral{Value: "1"},
				}},
				Right: &NumberLiteral{Value: "2"},
			},
		},
		{
			name: "String",
			src:  `x = "hello";`,
			want: &StringLiteral{Value: `"hello"`},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := parseMain(t, tc.src)
			require.Len(t, body, 1)

			asg, ok := body[0].(*Assignment)
			require.True(t, ok, "got %T", body[0])

			if !reflect.DeepEqual(asg.Value, tc.want) {
				t.Errorf("value = %v, want %v", asg.Value, tc.want)
			}
		})
	}
}

func TestParseConditions(t *testing.T) {
	tests := []struct {
		cond string
		want *Comparison
	}{
		{"a > b", &Comparison{Op: ">", Left: &Identifier{Name: "a"}, Right: &Identifier{Name: "b"}}},
		{"a >= -1", &Comparison{Op: ">=", Left: &Identifier{Name: "a"}, Right: &NumberLiteral{Value: "-1"}}},
		{"-2 <= a", &Comparison{Op: "<=", Left: &NumberLiteral{Value: "-2"}, Right: &Identifier{Name: "a"}}},
		{"a == 0", &Comparison{Op: "==", Left: &Identifier{Name: "a"}, Right: &NumberLiteral{Value: "0"}}},
		{"a != 1.5", &Comparison{Op: "!=", Left: &Identifier{Name: "a"}, Right: &NumberLiteral{Value: "1.5"}}},
		{"a < -b0", nil},
		{"a = 1", nil},
		{"a =< 1", nil},
		{"a + 1 > 2", nil},
		{"a > b > c", nil},
	}

	for _, tc := range tests {
		t.Run(tc.cond, func(t *testing.T) {
			src := "int main() { while (" + tc.cond + ") { } }"

			prog, err := parseSrc(t, src)
			if tc.want == nil {
				requireSyntaxError(t, err)
				return
			}
			require.NoError(t, err)

			w := prog.Functions[0].Body[0].(*While)
			assert.Equal(t, tc.want, w.Cond)
		})
	}
}

func TestParseIfChain(t *testing.T) {
	body := parseMain(t, `
if (a > 1) { x = 1; }
else if (a > 2) { x = 2; }
else if (a > 3) { }
else { x = 4; }
`)
	require.Len(t, body, 1)

	n := body[0].(*If)
	assert.Len(t, n.Body, 1)
	require.Len(t, n.ElseIfs, 2)
	assert.Equal(t, "3", n.ElseIfs[1].Cond.(*Comparison).Right.(*NumberLiteral).Value)
	assert.Empty(t, n.ElseIfs[1].Body)
	assert.Len(t, n.Else, 1)

	body = parseMain(t, "if (a > 1) { }")
	n = body[0].(*If)
	assert.Nil(t, n.ElseIfs)
	assert.Nil(t, n.Else)

	body = parseMain(t, "if (a > 1) { } else { }")
	assert.NotNil(t, body[0].(*If).Else)
}

func TestParseIfChainErrors(t *testing.T) {
	for _, src := range []string{
		"if (a > 1) { } else { } else { }",
		"if (a > 1) { } else { } else if (a > 2) { }",
		"if (a > 1) { } else if { }",
		"if (a > 1) x = 1;",
		"else { }",
	} {
		_, err := parseSrc(t, "int main() { "+src+" }")
		requireSyntaxError(t, err)
	}
}

func TestParseFor(t *testing.T) {
	body := parseMain(t, "for (int i = 0; i < 5; i++) { print(i); }")
	require.Len(t, body, 1)

	want := &For{
		Init: &Declaration{Type: "int", Name: "i", Init: &NumberLiteral{Value: "0"}},
		Cond: &Comparison{Op: "<", Left: &Identifier{Name: "i"}, Right: &NumberLiteral{Value: "5"}},
		Post: &Increment{Name: "i", Op: "++"},
		Body: []Stmt{&FunctionCall{Name: "print", Library: true, Args: []Expr{&Identifier{Name: "i"}}}},
	}
	assert.Equal(t, want, body[0])

	body = parseMain(t, "for (i = 10; i > 0; i--) { }")
	f := body[0].(*For)
	assert.Equal(t, &Assignment{Name: "i", Value: &NumberLiteral{Value: "10"}}, f.Init)
	assert.Equal(t, "--", f.Post.Op)
}

func TestParseForErrors(t *testing.T) {
	tests := []string{
		"for (int i = 0; i < 5; i+-) { }",
		"for (int i = 0; i < 5; i+) { }",
		"for (int i; i < 5; i++) { }",
		"for (int i = 0; i < 5 i++) { }",
		"for (int i = 0; i < 5; i++) print(i);",
		"for (; i < 5; i++) { }",
	}

	for _, src := range tests {
		_, err := parseSrc(t, "int main() { "+src+" }")
		requireSyntaxError(t, err)
	}
}

func TestParseStatements(t *testing.T) {
	body := parseMain(t, `
;;
int a;
float f = 1.5;
const int limit = 10;
const int other = limit;
print("values", a, f + 1.0);
printf("%d", a)
scanf("%d", a);
g(a);
3;
"text";
return;
`)

	want := []Stmt{
		&Declaration{Type: "int", Name: "a"},
		&Declaration{Type: "float", Name: "f", Init: &NumberLiteral{Value: "1.5"}},
		&Constant{Type: "int", Name: "limit", Value: &NumberLiteral{Value: "10"}},
		&Constant{Type: "int", Name: "other", Value: &Identifier{Name: "limit"}},
		&FunctionCall{Name: "print", Library: true, Args: []Expr{&StringLiteral{Value: `"values"`}}},
		&FunctionCall{Name: "printf", Library: true, Args: []Expr{&StringLiteral{Value: `"%d"`}, &Identifier{Name: "a"}}},
		&FunctionCall{Name: "scanf", Library: true, Args: []Expr{&StringLiteral{Value: `"%d"`}, &Identifier{Name: "a"}}},
		&FunctionCall{Name: "g", Args: []Expr{&Identifier{Name: "a"}}},
		&NumberLiteral{Value: "3"},
		&StringLiteral{Value: `"text"`},
		&Return{},
	}

	assert.Equal(t, want, body)
}

func TestParseExpressionStatement(t *testing.T) {
	prog, err := parseSrc(t, "int main(){ 5; 1 + 2; return 0; }")
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)

	want := []Stmt{
		&NumberLiteral{Value: "5"},
		&BinaryOperation{Left: &NumberLiteral{Value: "1"}, Op: "+", Right: &NumberLiteral{Value: "2"}},
		&Return{Value: &NumberLiteral{Value: "0"}},
	}

	assert.Equal(t, want, prog.Functions[0].Body)
}

func TestParseCallAssignment(t *testing.T) {
	body := parseMain(t, "f(1) = ;")
	require.Len(t, body, 1)

	call := &FunctionCall{Name: "f", Args: []Expr{&NumberLiteral{Value: "1"}}}
	assert.Equal(t, &Assignment{Name: "f", Value: call}, body[0])
}

func TestParseSyntaxError(t *testing.T) {
	_, err := parseSrc(t, "int main() {\n  int = 5;\n}")
	serr := requireSyntaxError(t, err)

	assert.Equal(t, "IDENTIFIER", serr.Expected)
	assert.Equal(t, "=", serr.Found.Lexeme)
	assert.Equal(t, 2, serr.Found.Line)
	assert.Equal(t, "int = 5;", serr.Snippet)
	assert.Contains(t, serr.Error(), `line 2: expected IDENTIFIER, got OPERATOR "="`)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"Unclosed body", "int main() { return 0;"},
		{"Missing semicolon", "int main() { int x = 1 }"},
		{"Keyword statement", "int main() { break; }"},
		{"Bad return type", "main() { }"},
		{"Untyped parameter", "int f(a) { } int main() { }"},
		{"Missing comma", "int f(int a int b) { } int main() { }"},
		{"Identifier alone", "int main() { x; }"},
		{"Const without value", "int main() { const int c; }"},
		{"Const expression", "int main() { const int c = 1 + 2; }"},
		{"Print number", "int main() { print(5); }"},
		{"Dangling operator", "int main() { x = 1 +; }"},
		{"Header without include", "<stdio.h> int main() { }"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseSrc(t, tc.src)
			requireSyntaxError(t, err)
		})
	}
}

func TestParseDoesNotMutateTokens(t *testing.T) {
	src := "int main() { for (int i = 0; i < 3; i++) { x = i * 2; } }"

	tokens, err := Lex(src)
	require.NoError(t, err)

	before := append([]Token(nil), tokens...)

	p1, err := Parse(tokens, src)
	require.NoError(t, err)

	p2, err := Parse(tokens, src)
	require.NoError(t, err)

	assert.Equal(t, before, tokens)
	assert.Equal(t, p1, p2)
}

func TestReadable(t *testing.T) {
	prog, err := parseSrc(t, "int main(){ int x = 2 + 3; return x; }")
	require.NoError(t, err)

	want := map[string]any{
		"Program": []any{
			map[string]any{
				"Function":   "main",
				"ReturnType": "int",
				"Parameters": []any{},
				"Body": []any{
					map[string]any{
						"Declaration": "x",
						"Type":        "int",
						"Init": map[string]any{
							"Operation": "+",
							"Left":      map[string]any{"Number": "2"},
							"Right":     map[string]any{"Number": "3"},
						},
					},
					map[string]any{"Return": map[string]any{"Identifier": "x"}},
				},
			},
		},
		"Includes": []string{},
	}

	assert.Equal(t, want, Readable(prog))
}

func TestReadableIsStable(t *testing.T) {
	src := `
int sq(int v) { return v * v; }
int main() {
	const int n = 3;
	for (int i = 0; i < n; i++) {
		if (i == 0) { print("zero"); } else if (i == 1) { print("one"); } else { x = sq(i); }
	}
	while (n > 0) { return n; }
}
`
	p1, err := parseSrc(t, src)
	require.NoError(t, err)

	p2, err := parseSrc(t, src)
	require.NoError(t, err)

	r1, r2 := Readable(p1), Readable(p2)
	assert.Equal(t, r1, r2)
	assert.Equal(t, r1, Readable(p1))

	j1, err := json.Marshal(r1)
	require.NoError(t, err)

	j2, err := json.Marshal(r2)
	require.NoError(t, err)

	assert.JSONEq(t, string(j1), string(j2))
}

func TestProgramString(t *testing.T) {
	prog, err := parseSrc(t, `
int main() {
	for (int i = 0; i < 2; i++) { }
	if (i > 0) { x = 1; } else { }
}`)
	require.NoError(t, err)

	want := `def main():
    int i = 0
    while i < 2:
        i += 1
    if i > 0:
        x = 1
    else:
        pass`

	assert.Equal(t, want, prog.String())
}
