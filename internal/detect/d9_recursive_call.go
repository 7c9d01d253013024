package detect

import (
	"fmt"
	"strings"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/callgraph"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
)

// RecursiveCall enumerates every simple cycle in a module's call graph
// (direct self-recursion is the length-1 case) by repeatedly finding one
// cycle via DFS, removing its edges from a scratch clone, and retrying
// until the clone is acyclic — the same find-then-break-and-retry shape
// rtcheck uses to enumerate lock-order cycles.
type RecursiveCall struct{}

func (RecursiveCall) Kind() Kind { return KindRecursiveCall }

func (RecursiveCall) Run(pkg *pkgregistry.Package) *DetectContent {
	result := map[string][]string{}
	for _, mod := range pkg.GetAll() {
		if mod.CallGraph == nil {
			continue
		}
		var findings []string
		scratch := mod.CallGraph.Clone()
		for {
			cycle, ok := findCycle(scratch)
			if !ok {
				break
			}
			findings = append(findings, renderCycle(mod, cycle))
			for i := 0; i+1 < len(cycle); i++ {
				scratch.RemoveEdge(cycle[i], cycle[i+1])
			}
		}
		if len(findings) > 0 {
			result[mod.Name] = findings
		}
	}
	return &DetectContent{Severity: SeverityMedium, Kind: KindRecursiveCall, Result: result}
}

// findCycle returns the first cycle discovered by a DFS over g, expressed
// as a node sequence n0, n1, ..., n0 (first and last entries equal).
func findCycle(g *callgraph.Graph) ([]callgraph.Node, bool) {
	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)
	state := make(map[callgraph.Node]int)
	var stack []callgraph.Node
	var cycle []callgraph.Node

	var visit func(n callgraph.Node) bool
	visit = func(n callgraph.Node) bool {
		state[n] = onStack
		stack = append(stack, n)
		for _, s := range g.Successors(n) {
			switch state[s] {
			case onStack:
				idx := 0
				for i, v := range stack {
					if v == s {
						idx = i
						break
					}
				}
				cycle = append([]callgraph.Node{}, stack[idx:]...)
				cycle = append(cycle, s)
				return true
			case unvisited:
				if visit(s) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
		return false
	}

	for _, n := range g.Nodes() {
		if state[n] == unvisited {
			if visit(n) {
				return cycle, true
			}
		}
	}
	return nil, false
}

func renderCycle(mod *pkgregistry.Module, cycle []callgraph.Node) string {
	names := make([]string, len(cycle))
	for i, n := range cycle {
		names[i] = mod.Compiled.Pool.String(n.Id.Sym)
	}
	return fmt.Sprintf("(%s)", strings.Join(names, "->"))
}
