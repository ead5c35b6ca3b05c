package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolTableVars(t *testing.T) {
	s := NewSymbolTable()

	require.NoError(t, s.DeclareVar("a", TypeInt, false))
	require.NoError(t, s.DeclareVar("pi", TypeFloat, true))

	err := s.DeclareVar("a", TypeChar, false)
	assert.EqualError(t, err, "semantic error: variable a is already declared")

	v, ok := s.LookupVar("pi")
	assert.True(t, ok)
	assert.Equal(t, VarInfo{Type: TypeFloat, Const: true}, v)

	// The failed redeclaration keeps the original entry.
	v, _ = s.LookupVar("a")
	assert.Equal(t, TypeInt, v.Type)

	_, ok = s.LookupVar("b")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "pi"}, s.Vars())
}

func TestSymbolTableFuncs(t *testing.T) {
	s := NewSymbolTable()

	require.NoError(t, s.DeclareFunc("add", TypeInt, []Type{TypeInt, TypeInt}))
	require.NoError(t, s.DeclareFunc("main", TypeInt, nil))

	assert.EqualError(t, s.DeclareFunc("add", TypeVoid, nil), "semantic error: function add is already declared")
	assert.Error(t, s.DeclareFunc("printf", TypeInt, nil))

	f, ok := s.LookupFunc("add")
	assert.True(t, ok)
	assert.Equal(t, FuncInfo{Return: TypeInt, Params: []Type{TypeInt, TypeInt}}, f)

	f, ok = s.LookupFunc("print")
	assert.True(t, ok)
	assert.True(t, f.Library)

	_, ok = s.LookupFunc("nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"add", "main"}, s.Funcs())
}

func TestSymbolTableString(t *testing.T) {
	s := NewSymbolTable()

	require.NoError(t, s.DeclareVar("x", TypeInt, false))
	require.NoError(t, s.DeclareVar("pi", TypeDouble, true))
	require.NoError(t, s.DeclareFunc("f", TypeFloat, []Type{TypeInt, TypeChar}))

	want := "variables:\n" +
		"  x            int    var\n" +
		"  pi           double const\n" +
		"functions:\n" +
		"  f            float  (int, char)\n"

	assert.Equal(t, want, s.String())
}

func TestTypeLayout(t *testing.T) {
	tests := []struct {
		typ   Type
		size  int
		float bool
	}{
		{TypeInt, 4, false},
		{TypeChar, 4, false},
		{TypeFloat, 4, true},
		{TypeDouble, 8, true},
		{TypeVoid, 0, false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.size, tc.typ.Size(), tc.typ)
		assert.Equal(t, tc.float, tc.typ.IsFloat(), tc.typ)
	}
}
