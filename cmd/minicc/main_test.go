package main

import (
	"path/filepath"
	"testing"

	"minicc/pkg/config"
)

func TestOutputPath(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		src  string
		out  string
		want string
	}{
		{"-", "", "-"},
		{"-", "prog.s", "prog.s"},
		{filepath.Join("src", "prog.c"), "", filepath.Join("src", "prog.s")},
		{filepath.Join("src", "prog.c"), "-", "-"},
		{"prog.c", "out.asm", "out.asm"},
	}

	for _, tc := range tests {
		if got := outputPath(cfg, tc.src, tc.out); got != tc.want {
			t.Errorf("outputPath(%q, %q) = %q, want %q", tc.src, tc.out, got, tc.want)
		}
	}
}

func TestParseSource(t *testing.T) {
	prog, err := parseSource("int main() { return 0; }")
	if err != nil {
		t.Fatalf("parseSource failed: %v", err)
	}
	if len(prog.Functions) != 1 || prog.Functions[0].Name != "main" {
		t.Errorf("unexpected program: %v", prog)
	}

	if _, err := parseSource("int main() { $ }"); err == nil {
		t.Errorf("expected lex error")
	}

}
