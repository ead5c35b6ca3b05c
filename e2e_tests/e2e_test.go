package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"minicc/pkg/asm"
	"minicc/pkg/compiler"
)

func compileFile(t *testing.T, name string, opts compiler.Options) *compiler.Result {
	t.Helper()

	srcPath := filepath.Join("testdata", name)
	srcBytes, err := os.ReadFile(srcPath)
	if err != nil {
		t.Fatalf("Failed to read source: %v", err)
	}

	res, err := compiler.Compile(context.Background(), srcPath, string(srcBytes), opts)
	if err != nil {
		t.Fatalf("Compile %s failed: %v", name, err)
	}

	t.Logf("Generated Assembly:\n%s", res.Assembly)

	return res
}

func TestSamplePrograms(t *testing.T) {
	tests := []struct {
		file    string
		externs []string
		globals []string
		calls   map[string][]string
	}{
		{
			file:    "factorial.c",
			externs: []string{"printf"},
			globals: []string{"f_fact", "main"},
			calls:   map[string][]string{"main": {"f_fact", "printf"}},
		},
		{
			file:    "floats.c",
			externs: []string{"printf"},
			globals: []string{"f_scale", "f_sign", "main"},
			calls:   map[string][]string{"main": {"f_scale", "f_sign", "printf", "printf", "printf"}},
		},
		{
			file:    "unused.c",
			externs: []string{"printf"},
			globals: []string{"f_helper", "f_twice", "main"},
			calls:   map[string][]string{"main": {"f_twice", "printf"}, "f_helper": nil},
		},
	}

	for _, tc := range tests {
		t.Run(tc.file, func(t *testing.T) {
			res := compileFile(t, tc.file, compiler.DefaultOptions())

			if !equal(res.Listing.Externs, tc.externs) {
				t.Errorf("Externs = %v, want %v", res.Listing.Externs, tc.externs)
			}
			if !equal(res.Listing.Globals, tc.globals) {
				t.Errorf("Globals = %v, want %v", res.Listing.Globals, tc.globals)
			}

			for fn, want := range tc.calls {
				got := callTargets(res.Listing.Function(fn))
				if !equal(got, want) {
					t.Errorf("%s calls %v, want %v", fn, got, want)
				}
			}

			for _, fn := range res.Listing.Globals {
				lines := res.Listing.Function(fn)
				if len(lines) == 0 {
					t.Errorf("function %s has no lines", fn)
					continue
				}

				last := lines[len(lines)-1]
				if last.Mnemonic != "ret" {
					t.Errorf("function %s ends with %q, want ret", fn, last.Mnemonic)
				}
			}
		})
	}
}

func TestDropUnused(t *testing.T) {
	opts := compiler.DefaultOptions()
	opts.DropUnused = true

	res := compileFile(t, "unused.c", opts)

	want := []string{"f_twice", "main"}
	if !equal(res.Listing.Globals, want) {
		t.Errorf("Globals = %v, want %v", res.Listing.Globals, want)
	}
	if strings.Contains(res.Assembly, "f_helper:") {
		t.Errorf("helper was not dropped")
	}
}

func TestUnderscorePrefix(t *testing.T) {
	opts := compiler.DefaultOptions()
	opts.Underscore = true

	res := compileFile(t, "factorial.c", opts)

	want := []string{"_f_fact", "_main"}
	if !equal(res.Listing.Globals, want) {
		t.Errorf("Globals = %v, want %v", res.Listing.Globals, want)
	}
	if !equal(res.Listing.Externs, []string{"_printf"}) {
		t.Errorf("Externs = %v, want [_printf]", res.Listing.Externs)
	}

	if got := callTargets(res.Listing.Function("_main")); !equal(got, []string{"_f_fact", "_printf"}) {
		t.Errorf("_main calls %v", got)
	}
}

func callTargets(lines []asm.Line) []string {
	var out []string

	for _, l := range lines {
		if l.Mnemonic == "call" {
			out = append(out, l.Operands[0])
		}
	}

	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
