package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sanity-io/litter"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"minicc/pkg/compiler"
	"minicc/pkg/config"
	"minicc/pkg/report"
	"minicc/pkg/utils"
)

var errFailed = errors.New("compilation failed")

func main() {
	optionFlags := []*cli.Flag{
		cli.NewFlag("underscore", false, "prefix global symbols with '_'"),
		cli.NewFlag("drop-unused", false, "omit functions main never calls"),
		cli.NewFlag("no-comments", false, "do not annotate the listing with source"),
		cli.NewFlag("strict-order", false, "functions must be defined before use"),
	}

	tokensCmd := &cli.Command{
		Name:        "tokens",
		Description: "print the token stream of source files",
		Action:      tokensAct,
		Args:        cli.Args{},
	}

	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "parse source files and print the syntax tree",
		Action:      parseAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("json", false, "print the tree as json"),
			cli.NewFlag("dump", false, "print the go structures"),
		},
	}

	checkCmd := &cli.Command{
		Name:        "check",
		Description: "analyze source files and print the symbol table",
		Action:      checkAct,
		Args:        cli.Args{},
		Flags:       optionFlags,
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile source files to x86 assembly",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: append([]*cli.Flag{
			cli.NewFlag("output,o", "", "output file, '-' for stdout (single input only, default for stdin input)"),
		}, optionFlags...),
	}

	app := &cli.Command{
		Name:        "minicc",
		Description: "minicc compiles a small subset of C to 32-bit x86 assembly",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("config,c", config.FileName, "config file"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics (tokens,ast,symbols,codegen)"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			tokensCmd,
			parseCmd,
			checkCmd,
			compileCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(os.Stderr, tlog.LstdFlags))
	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func tokensAct(c *cli.Command) error {
	for _, a := range c.Args {
		src, err := utils.ReadSource(a)
		if err != nil {
			return err
		}

		tokens, err := compiler.Lex(src)
		if err != nil {
			report.PrintError(a, err)
			return errFailed
		}

		if err := report.PrintTokens(tokens); err != nil {
			return errors.Wrap(err, "render")
		}
	}

	return nil
}

func parseAct(c *cli.Command) error {
	for _, a := range c.Args {
		src, err := utils.ReadSource(a)
		if err != nil {
			return err
		}

		prog, err := parseSource(src)
		if err != nil {
			report.PrintError(a, err)
			return errFailed
		}

		switch {
		case c.Bool("json"):
			data, err := json.MarshalIndent(compiler.Readable(prog), "", "  ")
			if err != nil {
				return errors.Wrap(err, "encode")
			}

			fmt.Printf("%s\n", data)
		case c.Bool("dump"):
			fmt.Println(litter.Sdump(prog))
		default:
			fmt.Print(prog)
		}
	}

	return nil
}

func checkAct(c *cli.Command) error {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	opts, err := loadOptions(c)
	if err != nil {
		return err
	}

	for _, a := range c.Args {
		src, err := utils.ReadSource(a)
		if err != nil {
			return err
		}

		prog, err := parseSource(src)
		if err == nil {
			var syms *compiler.SymbolTable

			syms, err = compiler.Analyze(ctx, prog, opts)
			if err == nil {
				if err := report.PrintSymbols(syms); err != nil {
					return errors.Wrap(err, "render")
				}

				report.PrintSuccess("OK", a)

				continue
			}
		}

		report.PrintError(a, err)

		return errFailed
	}

	return nil
}

func compileAct(c *cli.Command) error {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	opts := applyFlags(c, cfg.Options())

	out := c.String("output")
	if out != "" && len(c.Args) > 1 {
		return errors.New("--output needs a single input file, got %d", len(c.Args))
	}

	for _, a := range c.Args {
		src, err := utils.ReadSource(a)
		if err != nil {
			return err
		}

		res, err := compiler.Compile(ctx, a, src, opts)
		if err != nil {
			report.PrintError(a, err)
			return errFailed
		}

		path := outputPath(cfg, a, out)
		if path == "-" {
			fmt.Print(res.Assembly)
			continue
		}

		if err := utils.WriteOutput(path, res.Assembly); err != nil {
			return err
		}

		report.PrintSuccess("OK", fmt.Sprintf("%s -> %s", a, path))
	}

	return nil
}

// outputPath picks where the listing of source file src goes. "-" is
// standard output, the default for standard input.
func outputPath(cfg *config.Config, src, out string) string {
	switch {
	case out != "":
		return out
	case src == "-":
		return "-"
	default:
		return cfg.OutputPath(src)
	}
}

func parseSource(src string) (*compiler.Program, error) {
	tokens, err := compiler.Lex(src)
	if err != nil {
		return nil, err
	}

	return compiler.Parse(tokens, src)
}

func loadOptions(c *cli.Command) (compiler.Options, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return compiler.Options{}, err
	}

	return applyFlags(c, cfg.Options()), nil
}

func applyFlags(c *cli.Command, opts compiler.Options) compiler.Options {
	if c.Bool("underscore") {
		opts.Underscore = true
	}

	if c.Bool("drop-unused") {
		opts.DropUnused = true
	}

	if c.Bool("no-comments") {
		opts.Comments = false
	}

	if c.Bool("strict-order") {
		opts.ForwardRefs = false
	}

	return opts
}
