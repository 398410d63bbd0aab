// Package capergen orchestrates the full pipeline of spec.md §2 — collect,
// build, construct table, emit — and is the only layer besides cmd/caper
// that is allowed to touch pterm diagnostics (SPEC_FULL.md §10.2): every
// package under internal/collect, internal/build, internal/table, and
// internal/emit stays silent and returns values/errors instead.
package capergen

import (
	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"github.com/dekarrin/caper/internal/ast"
	"github.com/dekarrin/caper/internal/build"
	"github.com/dekarrin/caper/internal/capercfg"
	"github.com/dekarrin/caper/internal/collect"
	"github.com/dekarrin/caper/internal/emit"
	"github.com/dekarrin/caper/internal/emit/golang"
	"github.com/dekarrin/caper/internal/grammar"
	"github.com/dekarrin/caper/internal/table"
	"github.com/dekarrin/caper/internal/tablecache"
)

// Options configures one generation run. Most fields mirror flags on
// cmd/caper; PackageName and CacheDir have no grammar-declaration
// equivalent and are always caller-supplied.
type Options struct {
	PackageName string
	CacheDir    string
	Debug       bool
}

// Result is what a caller (cmd/caper) needs to finish the job: the
// generated source and the conflicts table construction resolved along the
// way, for `--debug` reporting.
type Result struct {
	Source    []byte
	Conflicts []table.Conflict
}

// Generate runs the full pipeline against g and returns the rendered Go
// source. Every fatal error is returned, never printed; the caller decides
// how a failure is surfaced. Non-fatal conflicts (spec.md §4.4, §7) are
// appended to Result.Conflicts and, when opts.Debug is set, logged as they
// are resolved.
func Generate(g ast.Grammar, cfg capercfg.Config, opts Options) (Result, error) {
	runID := uuid.New()
	if opts.Debug {
		pterm.Info.Printfln("run %s: collecting symbols", runID)
	}

	collected, err := collect.Collect(g)
	if err != nil {
		return Result{}, err
	}
	collected.Options = capercfg.ApplyDefaults(collected.Options, cfg)
	if opts.Debug {
		collected.Options.DebugParser = true
	}

	if opts.Debug {
		pterm.Info.Printfln("run %s: building grammar", runID)
	}
	gr, err := build.Build(g, collected.Options, collected.TerminalTypes, collected.NonterminalTypes)
	if err != nil {
		return Result{}, err
	}

	var res Result
	sink := func(c table.Conflict) {
		res.Conflicts = append(res.Conflicts, c)
		if opts.Debug {
			pterm.Warning.Printfln("run %s: %s", runID, c.String())
		}
	}

	if opts.Debug {
		pterm.Info.Printfln("run %s: constructing LALR(1) table", runID)
	}
	lrTable, err := buildTable(gr, cfg.CacheDir, sink, opts.Debug, runID.String())
	if err != nil {
		return Result{}, err
	}

	if opts.Debug {
		pterm.Info.Printfln("run %s: emitting %s source", runID, cfg.Target)
	}
	plan := emit.Plan{
		Options:     collected.Options,
		Grammar:     gr,
		Table:       lrTable,
		Actions:     gr.Actions(),
		PackageName: opts.PackageName,
	}

	src, err := golang.Render(plan)
	if err != nil {
		return Result{}, err
	}
	res.Source = src

	if opts.Debug {
		pterm.Info.Printfln("run %s: done", runID)
	}
	return res, nil
}

// buildTable serves lrTable from cacheDir when the grammar's hash is
// already present (SPEC_FULL.md §10.5), and otherwise constructs it fresh
// and writes it back. A cache hit never calls into sink, since every
// conflict was already resolved (and could have been logged) on the run
// that populated the cache.
func buildTable(gr grammar.Grammar, cacheDir string, sink table.ConflictSink, debug bool, runID string) (table.LRParseTable, error) {
	hash := tablecache.Hash(gr)

	if cached, ok, err := tablecache.Load(cacheDir, hash); err != nil {
		return nil, err
	} else if ok {
		if debug {
			pterm.Info.Printfln("run %s: table cache hit (%s)", runID, hash[:12])
		}
		return cached, nil
	}

	built, err := table.ConstructLALR1ParseTable(gr, sink)
	if err != nil {
		return nil, err
	}

	if err := tablecache.Store(cacheDir, hash, gr, built); err != nil {
		return nil, err
	}

	return built, nil
}
