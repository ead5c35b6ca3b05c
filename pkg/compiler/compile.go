package compiler

import (
	"context"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"minicc/pkg/asm"
)

// Options tune analysis and code generation.
type Options struct {
	// ForwardRefs registers every function signature before any body is
	// analyzed, so a function may call one defined after it.
	ForwardRefs bool

	// Underscore prefixes global symbols with '_' as MinGW and old Mach-O expect.
	Underscore bool

	// Comments annotates the listing with the source of each statement.
	Comments bool

	// DropUnused omits functions main never calls.
	DropUnused bool
}

func DefaultOptions() Options {
	return Options{
		ForwardRefs: true,
		Comments:    true,
	}
}

// Result holds the output of every stage of a successful compilation.
type Result struct {
	Name     string
	Tokens   []Token
	Program  *Program
	Symbols  *SymbolTable
	Assembly string
	Listing  *asm.Listing
}

// Compile runs the whole pipeline on src. The first failing stage aborts it;
// its typed error stays reachable through errors.As.
func Compile(ctx context.Context, name, src string, opts Options) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name, "size", len(src))
	defer tr.Finish("err", &err)

	res = &Result{Name: name}

	res.Tokens, err = Lex(src)
	if err != nil {
		return nil, errors.Wrap(err, "lex")
	}

	tr.Printw("lexed", "tokens", len(res.Tokens))

	if tr.If("tokens") {
		for _, t := range res.Tokens {
			tr.Printw("token", "type", t.Type, "lexeme", t.Lexeme, "line", t.Line)
		}
	}

	res.Program, err = Parse(res.Tokens, src)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	tr.Printw("parsed", "functions", len(res.Program.Functions), "includes", res.Program.Includes)

	if tr.If("ast") {
		tr.Printw("ast", "pseudocode", res.Program.String())
	}

	res.Symbols, err = Analyze(ctx, res.Program, opts)
	if err != nil {
		return nil, errors.Wrap(err, "analyze")
	}

	res.Assembly, err = Generate(ctx, res.Program, res.Symbols, opts)
	if err != nil {
		return nil, errors.Wrap(err, "generate")
	}

	res.Listing, err = asm.Check(res.Assembly)
	if err != nil {
		return nil, errors.Wrap(newInternalError("generated listing does not check: %v", err), "assemble")
	}

	tr.Printw("compiled", "lines", strings.Count(res.Assembly, "\n"), "labels", len(res.Listing.Labels))

	return res, nil
}
