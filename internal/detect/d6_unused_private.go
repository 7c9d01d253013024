package detect

import (
	"strings"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/callgraph"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// UnusedPrivateFunctions flags a private, non-entry function with no
// incoming call edge anywhere in its own module's call graph. A function
// named with Policy.EntrypointPrefix (default "init") is exempted: module
// initializers are invoked by the runtime itself, never by a Move call
// site, so they would otherwise always look unused.
type UnusedPrivateFunctions struct {
	Policy Policy
}

func (UnusedPrivateFunctions) Kind() Kind { return KindUnusedPrivateFunc }

func (d UnusedPrivateFunctions) Run(pkg *pkgregistry.Package) *DetectContent {
	result := map[string][]string{}
	for _, mod := range pkg.GetAll() {
		var findings []string
		for _, def := range mod.Compiled.FunctionDefs {
			if def.Visibility != sbir.VisPrivate || def.IsEntry {
				continue
			}
			name := mod.Compiled.Pool.String(def.Name)
			if strings.HasPrefix(name, d.Policy.EntrypointPrefix) {
				continue
			}
			handle := mod.Compiled.FunctionHandles[def.HandleIdx]
			node := callgraph.Node{Module: handle.Module, Id: movetype.FunId{Sym: handle.Name}}
			if len(mod.CallGraph.Predecessors(node)) == 0 {
				findings = append(findings, name)
			}
		}
		if len(findings) > 0 {
			result[mod.Name] = sortedUnique(findings)
		}
	}
	return &DetectContent{Severity: SeverityLow, Kind: KindUnusedPrivateFunc, Result: result}
}
