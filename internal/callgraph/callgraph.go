// Package callgraph builds the per-module, inter-procedural call graph:
// one node per function handle the module references (defined or
// imported), with an edge for every statically visible call site.
package callgraph

import (
	"golang.org/x/exp/slices"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// Node addresses one function handle by (module, function) id, exactly as
// a Call instruction's Operation.CalleeModule/CalleeFun would.
type Node = movetype.QualifiedId[movetype.FunId]

// Graph is a directed graph over function nodes. Edges are stored as
// adjacency lists keyed by Node, immutable once Build returns; a detector
// that needs to remove edges (D9's cycle enumeration) clones first via
// Clone.
type Graph struct {
	nodes []Node
	index map[Node]int
	succ  map[Node][]Node
	pred  map[Node][]Node
}

func newGraph() *Graph {
	return &Graph{
		index: make(map[Node]int),
		succ:  make(map[Node][]Node),
		pred:  make(map[Node][]Node),
	}
}

func (g *Graph) addNode(n Node) {
	if _, ok := g.index[n]; ok {
		return
	}
	g.index[n] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

func (g *Graph) addEdge(from, to Node) {
	g.addNode(from)
	g.addNode(to)
	if !slices.Contains(g.succ[from], to) {
		g.succ[from] = append(g.succ[from], to)
	}
	if !slices.Contains(g.pred[to], from) {
		g.pred[to] = append(g.pred[to], from)
	}
}

// Nodes returns every node in the graph, in first-seen order.
func (g *Graph) Nodes() []Node { return g.nodes }

// Successors returns n's callees.
func (g *Graph) Successors(n Node) []Node { return g.succ[n] }

// Predecessors returns n's callers.
func (g *Graph) Predecessors(n Node) []Node { return g.pred[n] }

// Has reports whether n is a node of g.
func (g *Graph) Has(n Node) bool {
	_, ok := g.index[n]
	return ok
}

// RemoveEdge deletes the from->to edge, if present. Used by D9's
// find-cycle-then-remove-edge loop; callers that must not disturb other
// detectors should operate on a Clone.
func (g *Graph) RemoveEdge(from, to Node) {
	g.succ[from] = removeNode(g.succ[from], to)
	g.pred[to] = removeNode(g.pred[to], from)
}

func removeNode(ns []Node, target Node) []Node {
	out := ns[:0]
	for _, n := range ns {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}

// Clone returns a deep copy of g, safe to mutate (e.g. via RemoveEdge)
// without affecting g or any other clone.
func (g *Graph) Clone() *Graph {
	c := newGraph()
	c.nodes = append([]Node(nil), g.nodes...)
	for k, v := range g.index {
		c.index[k] = v
	}
	for k, v := range g.succ {
		c.succ[k] = append([]Node(nil), v...)
	}
	for k, v := range g.pred {
		c.pred[k] = append([]Node(nil), v...)
	}
	return c
}

// Build constructs the call graph for one module: a node for every
// function handle the module references, and an edge caller->callee for
// every Call instruction found while scanning each defined function's
// lifted SBIR (spec.md §4.3).
func Build(mod *sbir.CompiledModule, fns []*sbir.FunctionInfo) *Graph {
	g := newGraph()

	for _, h := range mod.FunctionHandles {
		n := Node{Module: h.Module, Id: movetype.FunId{Sym: h.Name}}
		g.addNode(n)
	}

	for _, fn := range fns {
		def := mod.FunctionDefs[fn.Idx]
		handle := mod.FunctionHandles[def.HandleIdx]
		caller := Node{Module: handle.Module, Id: movetype.FunId{Sym: handle.Name}}

		for _, instr := range fn.Code {
			if instr.Kind != sbir.ICall || instr.Op.Kind != sbir.OpFunction {
				continue
			}
			callee := Node{Module: instr.Op.CalleeModule, Id: instr.Op.CalleeFun}
			g.addEdge(caller, callee)
		}
	}

	return g
}
