// Package pkgregistry holds the insertion-order, read-only-after-
// construction map from module display name to its analyzed artifacts
// (spec.md §4.5), and adapts that map into the datadep.Resolver
// interface so inter-procedural calls can cross module boundaries.
package pkgregistry

import (
	"github.com/pkg/errors"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/callgraph"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/cfg"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/datadep"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/loopanalysis"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// LiftedFunction bundles one function's SBIR with its CFG (and, where the
// function has loops, its fat-loop decomposition). Functions with no code
// (native) carry a nil CFG, per spec.md's "a function with zero
// instructions produces no CFG" invariant.
type LiftedFunction struct {
	Info      *sbir.FunctionInfo
	CFG       *cfg.Graph
	FatLoops  []*loopanalysis.FatLoop
	Reducible bool
}

// Module is one compiled module's full set of derived artifacts.
type Module struct {
	Name      string
	Compiled  *sbir.CompiledModule
	Functions []*LiftedFunction
	CallGraph *callgraph.Graph
	DataDep   map[int]*datadep.Result // indexed by LiftedFunction slice position
}

// Package is the registry: an insertion-order-preserving name -> Module
// map, built once and read thereafter (spec.md §4.5 — "no locking;
// construction is single-threaded, then read-only").
type Package struct {
	order []string
	byName map[string]*Module
}

// New returns an empty registry.
func New() *Package {
	return &Package{byName: make(map[string]*Module)}
}

// Add lifts mod's functions, builds its CFGs, call graph, and loop
// analysis, and inserts it under name. Add must run before any
// data-dependency analysis that might resolve calls into this module,
// since Resolve only ever sees modules already present in the registry
// (spec.md's depth-bounded inter-procedural rule silently falls back to
// the raw argument nodes otherwise).
func (p *Package) Add(name string, compiled *sbir.CompiledModule) error {
	if _, exists := p.byName[name]; exists {
		return errors.Errorf("pkgregistry: module %q already registered", name)
	}

	fns, err := sbir.Lift(compiled)
	if err != nil {
		return errors.Wrapf(err, "pkgregistry: lifting module %q", name)
	}

	lifted := make([]*LiftedFunction, len(fns))
	for i, fn := range fns {
		lf := &LiftedFunction{Info: fn}
		if fn.IsNative || len(fn.Code) == 0 {
			lifted[i] = lf
			continue
		}
		g, err := cfg.Build(fn)
		if err != nil {
			return errors.Wrapf(err, "pkgregistry: building CFG for %q", name)
		}
		lf.CFG = g
		loops, reducible := loopanalysis.BuildFatLoops(g, fn)
		lf.FatLoops = loops
		lf.Reducible = reducible
		lifted[i] = lf
	}

	mod := &Module{
		Name:      name,
		Compiled:  compiled,
		Functions: lifted,
		CallGraph: callgraph.Build(compiled, fns),
	}
	p.order = append(p.order, name)
	p.byName[name] = mod
	return nil
}

// Freeze runs the data-dependency analysis for every function of every
// registered module, with each module able to resolve inter-procedural
// calls into any other module already in the registry. depth is the
// inter-procedural re-analysis budget handed to datadep.Analyze (the CLI
// passes 1). Call once after every module has been Added.
func (p *Package) Freeze(depth int) {
	resolver := packageResolver{p: p}
	for _, name := range p.order {
		mod := p.byName[name]
		mod.DataDep = make(map[int]*datadep.Result, len(mod.Functions))
		for i, lf := range mod.Functions {
			if lf.Info.IsNative || len(lf.Info.Code) == 0 {
				continue
			}
			mod.DataDep[i] = datadep.Analyze(mod.Compiled, lf.Info, resolver, depth)
		}
	}
}

// GetAll iterates modules in insertion order.
func (p *Package) GetAll() []*Module {
	out := make([]*Module, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.byName[name])
	}
	return out
}

// GetByName resolves a module by its display name.
func (p *Package) GetByName(name string) (*Module, bool) {
	m, ok := p.byName[name]
	return m, ok
}

// GetFunction resolves a function within a named module, by its textual
// name, by linear scan over its function table (spec.md §4.5: "acceptable
// for ≤ a few hundred functions per module"). A function is named by
// string rather than Symbol because a movetype.Symbol is only meaningful
// within the Pool that interned it.
func (p *Package) GetFunction(moduleName string, funcName string) (*LiftedFunction, bool) {
	mod, ok := p.byName[moduleName]
	if !ok {
		return nil, false
	}
	for _, lf := range mod.Functions {
		if mod.Compiled.Pool.String(lf.Info.Name) == funcName {
			return lf, true
		}
	}
	return nil, false
}

// packageResolver adapts Package to datadep.Resolver.
type packageResolver struct {
	p *Package
}

func (r packageResolver) Resolve(moduleName string, funcName string) (*sbir.CompiledModule, *sbir.FunctionInfo, bool) {
	lf, ok := r.p.GetFunction(moduleName, funcName)
	if !ok || lf.Info.IsNative {
		return nil, nil, false
	}
	mod, _ := r.p.GetByName(moduleName)
	return mod.Compiled, lf.Info, true
}
