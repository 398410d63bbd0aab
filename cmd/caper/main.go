/*
Caper generates a target-language LALR(1) parser from an already-parsed
grammar file.

It reads a grammar AST (the JSON serialization of internal/ast.Grammar,
produced by an out-of-scope front end) and writes generated source
implementing that grammar's Parser to the path given by -o, or a path
derived from -t if -o is omitted.

Usage:

	caper [flags] <grammar-ast-file>

The flags are:

	-v, --version
		Give the current version of caper and then exit.

	-o, --out FILE
		Write generated source to FILE. Defaults to the config file's "out"
		value if set, else "parser.<ext>" in the current directory, where
		<ext> depends on -t.

	-t, --target LANG
		Target language to emit. Only "go" is implemented.

	-c, --config FILE
		Project config file to read defaults from. Defaults to "./caper.toml"
		if present; its absence is not an error.

	--cache DIR
		Table cache directory (see internal/tablecache). Pass an empty
		string to disable caching.

	--debug
		Set Options.DebugParser and raise CLI diagnostic verbosity. The Go
		target's emitted parser is the same with or without it.
*/
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"github.com/dekarrin/caper/internal/ast"
	"github.com/dekarrin/caper/internal/capercfg"
	"github.com/dekarrin/caper/internal/capergen"
	"github.com/dekarrin/caper/internal/version"
)

const (
	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitUsageError indicates bad flags or a missing grammar file argument.
	ExitUsageError

	// ExitGenError indicates the pipeline itself rejected the grammar.
	ExitGenError

	// ExitIOError indicates a failure reading the grammar file or writing
	// the generated source.
	ExitIOError
)

var (
	returnCode  = ExitSuccess
	flagVersion = pflag.BoolP("version", "v", false, "Give the current version of caper and then exit")
	flagOut     = pflag.StringP("out", "o", "", "Output file for generated source")
	flagTarget  = pflag.StringP("target", "t", "", "Target language to emit (only \"go\" is implemented)")
	flagConfig  = pflag.StringP("config", "c", "caper.toml", "Project config file")
	flagCache   = pflag.String("cache", "", "Table cache directory; pass \"\" to disable")
	flagDebug   = pflag.Bool("debug", false, "Enable debug diagnostics and Options.DebugParser")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	if pflag.NArg() != 1 {
		pterm.Error.Println("expected exactly one grammar-ast-file argument")
		pflag.Usage()
		returnCode = ExitUsageError
		return
	}

	cfg, err := capercfg.Load(*flagConfig)
	if err != nil {
		pterm.Error.Printfln("reading config: %s", err.Error())
		returnCode = ExitIOError
		return
	}
	if *flagTarget != "" {
		cfg.Target = *flagTarget
	}
	if pflag.Lookup("cache").Changed {
		cfg.CacheDir = *flagCache
	}

	grammarPath := pflag.Arg(0)
	data, err := os.ReadFile(grammarPath)
	if err != nil {
		pterm.Error.Printfln("reading grammar file: %s", err.Error())
		returnCode = ExitIOError
		return
	}

	var g ast.Grammar
	if err := json.Unmarshal(data, &g); err != nil {
		pterm.Error.Printfln("parsing grammar AST: %s", err.Error())
		returnCode = ExitUsageError
		return
	}

	out := *flagOut
	if out == "" {
		out = cfg.Out
	}
	if out == "" {
		out = defaultOutPath(cfg.Target)
	}

	result, err := capergen.Generate(g, cfg, capergen.Options{
		PackageName: packageNameFor(out),
		CacheDir:    cfg.CacheDir,
		Debug:       *flagDebug,
	})
	if err != nil {
		pterm.Error.Printfln("%s", err.Error())
		returnCode = ExitGenError
		return
	}

	if err := os.WriteFile(out, result.Source, 0o644); err != nil {
		pterm.Error.Printfln("writing generated source: %s", err.Error())
		returnCode = ExitIOError
		return
	}

	pterm.Info.Printfln("wrote %s (%d conflicts resolved)", out, len(result.Conflicts))
}

func defaultOutPath(target string) string {
	switch target {
	case "go", "":
		return "parser.go"
	default:
		return "parser.out"
	}
}

func packageNameFor(outPath string) string {
	base := outPath
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '/' || base[i] == '\\' {
			base = base[i+1:]
			break
		}
	}
	for i := 0; i < len(base); i++ {
		if base[i] == '.' {
			base = base[:i]
			break
		}
	}
	if base == "" {
		return "parser"
	}
	return base
}
