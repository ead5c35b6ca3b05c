package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"minicc/pkg/compiler"
)

func compileErr(t *testing.T, src string) error {
	t.Helper()

	_, err := compiler.Compile(context.Background(), "t.c", src, compiler.DefaultOptions())
	require.Error(t, err)

	return err
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
		loc  string
	}{
		{"Lex", "int main() { int x = 1 $ 2; }", "Lex Error", "t.c:1"},
		{"Syntax", "int main() {\n  int = 5;\n}", "Syntax Error", "t.c:2"},
		{"Semantic", "int main() {\n  x = y;\n}", "Semantic Error", "t.c"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := compileErr(t, tc.src)

			assert.Equal(t, tc.want, Kind(err))
			assert.Equal(t, tc.loc, Location("t.c", err))
		})
	}

	assert.Equal(t, "Internal Error", Kind(errors.Wrap(&compiler.InternalError{Msg: "x"}, "generate")))
	assert.Equal(t, "Error", Kind(errors.New("plain")))
	assert.Equal(t, "t.c", Location("t.c", errors.New("plain")))
}

func TestMessage(t *testing.T) {
	err := compileErr(t, "int main() {\n  int = 5;\n}")

	msg := Message(err)
	assert.Contains(t, msg, "expected IDENTIFIER")
	assert.NotContains(t, msg, "\n")
	assert.Contains(t, err.Error(), "int = 5;")

	plain := errors.New("plain")
	assert.Equal(t, plain.Error(), Message(plain))
}

func TestSymbolRows(t *testing.T) {
	syms := compiler.NewSymbolTable()
	require.NoError(t, syms.DeclareVar("x", compiler.TypeInt, false))
	require.NoError(t, syms.DeclareVar("pi", compiler.TypeFloat, true))
	require.NoError(t, syms.DeclareFunc("add", compiler.TypeInt, []compiler.Type{compiler.TypeInt, compiler.TypeDouble}))
	require.NoError(t, syms.DeclareFunc("main", compiler.TypeInt, nil))

	want := [][]string{
		{"Name", "Kind", "Type", "Params"},
		{"x", "var", "int", ""},
		{"pi", "const", "float", ""},
		{"add", "func", "int", "int, double"},
		{"main", "func", "int", ""},
	}

	assert.Equal(t, want, SymbolRows(syms))
}

func TestTokenRows(t *testing.T) {
	tokens, err := compiler.Lex("int x;\nx")
	require.NoError(t, err)

	want := [][]string{
		{"Line", "Type", "Lexeme"},
		{"1", "KEYWORD", "int"},
		{"1", "IDENTIFIER", "x"},
		{"1", "DELIMITER", ";"},
		{"2", "IDENTIFIER", "x"},
		{"2", "EOF", ""},
	}

	assert.Equal(t, want, TokenRows(tokens))
}
