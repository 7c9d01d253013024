// Package datadep implements the flow-insensitive, bounded
// inter-procedural data-dependency analysis: for each temp, a symbolic
// provenance tree, an unsigned magnitude upper bound, and a constant
// flag. Transfer functions mirror the teacher's recursive-expression-walk
// style for inferring a property of an expression from its structure
// (std/compiler/ir.go's resolveExprType/exprWidth), generalized from type
// inference to magnitude-bound inference.
package datadep

import (
	"fmt"
	"strings"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// NodeOp names the provenance a Node records, used both to select the
// transfer rule that produced it and to render Display.
type NodeOp int

const (
	OpParam NodeOp = iota
	OpConst
	OpAssign
	OpByteCode // cast
	OpBinary
	OpUnary
	OpPack
	OpUnpackField
	OpCall
	OpOpaque // BorrowLoc/BorrowField/BorrowGlobal/MoveFrom/Exists/FreezeRef/ReadRef
)

// Node is one temp's symbolic value: an operator, its operand subtrees,
// an optional unsigned magnitude bound, and whether the value is known to
// be a compile-time constant.
type Node struct {
	Op       NodeOp
	Name     string // opcode/type/callee label used by Display
	Subnodes []*Node

	HasMax bool
	Max    movetype.U256

	IsConstant bool
	Const      movetype.Constant // meaningful when Op == OpConst

	// borrowLocalTemp/copyTemp carry the extra bookkeeping
	// LoopConditionFromCopy needs (spec.md §4.6) without widening Node's
	// public shape: set only by the BorrowLoc and Copy-assign transfer
	// rules respectively.
	borrowLocalTemp *sbir.Temp
	copyTemp        *sbir.Temp
}

func leaf(op NodeOp, name string) *Node { return &Node{Op: op, Name: name} }

// Display renders n as "op(sub, sub, …)" / "const" / "typeName",
// recursively, for diagnostics (spec.md §4.6).
func (n *Node) Display() string {
	if n == nil {
		return "?"
	}
	switch n.Op {
	case OpConst:
		return fmt.Sprintf("const(%s)", n.Name)
	case OpParam:
		return n.Name
	default:
		if len(n.Subnodes) == 0 {
			return n.Name
		}
		parts := make([]string, len(n.Subnodes))
		for i, s := range n.Subnodes {
			parts[i] = s.Display()
		}
		return n.Name + "(" + strings.Join(parts, ", ") + ")"
	}
}

// IsConst reports whether n's subtree contains only Const nodes and Call
// nodes over constant subtrees — no ParamType anywhere.
func (n *Node) IsConst() bool {
	if n == nil {
		return false
	}
	switch n.Op {
	case OpConst:
		return true
	case OpParam:
		return false
	default:
		for _, s := range n.Subnodes {
			if !s.IsConst() {
				return false
			}
		}
		return len(n.Subnodes) > 0
	}
}

// LoopConditionFromCopy walks n's subtree collecting the "original" local
// temps that back it: every BorrowLoc operand and every Copy-assign
// source contributes its temp.
func (n *Node) LoopConditionFromCopy(out *[]sbir.Temp) {
	if n == nil {
		return
	}
	if n.Op == OpOpaque && n.borrowLocalTemp != nil {
		*out = append(*out, *n.borrowLocalTemp)
	}
	if n.Op == OpAssign && n.copyTemp != nil {
		*out = append(*out, *n.copyTemp)
	}
	for _, s := range n.Subnodes {
		s.LoopConditionFromCopy(out)
	}
}

// Resolver resolves an inter-procedural callee by (declaring module
// display name, function name) to its compiled module and lifted body.
// The function is named by its textual identifier rather than a Symbol:
// a movetype.Symbol is only meaningful within the Pool that interned it,
// and the callee lives in a different module with its own Pool.
// pkgregistry.Package implements this via a thin adapter, kept narrow
// here so datadep never imports pkgregistry.
type Resolver interface {
	Resolve(moduleName string, funcName string) (mod *sbir.CompiledModule, fn *sbir.FunctionInfo, ok bool)
}

// Result is the per-temp analysis output for one function.
type Result struct {
	Nodes map[sbir.Temp]*Node
}

// Analyze runs the data-dependency transfer functions over fn's SBIR,
// starting temps at their parameter provenance and folding each
// instruction in code order (spec.md §4.6: "the tree at the end of the
// function is the last-written definition" — flow-insensitive, so later
// writes simply overwrite earlier ones in the result map).
func Analyze(mod *sbir.CompiledModule, fn *sbir.FunctionInfo, resolver Resolver, depth int) *Result {
	nodes := make(map[sbir.Temp]*Node, len(fn.LocalTypes))

	for i := 0; i < fn.ArgsCount; i++ {
		t := sbir.Temp(i)
		ty := fn.LocalTypes[t]
		n := &Node{Op: OpParam, Name: ty.String()}
		if max, ok := movetype.TypeMax(ty); ok {
			n.HasMax, n.Max = true, max
		}
		nodes[t] = n
	}

	at := func(t sbir.Temp) *Node {
		if n, ok := nodes[t]; ok {
			return n
		}
		ty := fn.LocalTypes[t]
		n := &Node{Op: OpParam, Name: ty.String()}
		if max, ok := movetype.TypeMax(ty); ok {
			n.HasMax, n.Max = true, max
		}
		nodes[t] = n
		return n
	}

	for _, instr := range fn.Code {
		transfer(mod, fn, instr, nodes, at, resolver, depth)
	}

	return &Result{Nodes: nodes}
}

func transfer(
	mod *sbir.CompiledModule,
	fn *sbir.FunctionInfo,
	instr sbir.Instr,
	nodes map[sbir.Temp]*Node,
	at func(sbir.Temp) *Node,
	resolver Resolver,
	depth int,
) {
	switch instr.Kind {
	case sbir.ILoad:
		n := &Node{Op: OpConst, Name: constDisplay(instr.Const), Const: instr.Const, IsConstant: true}
		if u, ok := movetype.UintOf(instr.Const); ok {
			n.HasMax, n.Max = true, u
		}
		nodes[instr.Dst] = n

	case sbir.IAssign:
		src := at(instr.Src)
		n := &Node{Op: OpAssign, Name: "assign", Subnodes: []*Node{src}, HasMax: src.HasMax, Max: src.Max}
		if instr.AsgnKind == sbir.Copy {
			s := instr.Src
			n.copyTemp = &s
		}
		nodes[instr.Dst] = n

	case sbir.ICall:
		transferCall(mod, fn, instr, nodes, at, resolver, depth)

	case sbir.IAbort:
		// No tracked temp is produced.
	}
}

func transferCall(
	mod *sbir.CompiledModule,
	fn *sbir.FunctionInfo,
	instr sbir.Instr,
	nodes map[sbir.Temp]*Node,
	at func(sbir.Temp) *Node,
	resolver Resolver,
	depth int,
) {
	dstType := func(i int) movetype.Type {
		if i < len(instr.Dsts) {
			return fn.LocalTypes[instr.Dsts[i]]
		}
		return movetype.Type{}
	}

	switch {
	case instr.Op.Kind.IsCast():
		s := at(instr.Srcs[0])
		bits := instr.Op.Kind.CastBits()
		max := movetype.MaxForBits(bits)
		if s.HasMax {
			max = movetype.MinU256(s.Max, max)
		}
		nodes[instr.Dsts[0]] = &Node{Op: OpByteCode, Name: "cast", Subnodes: []*Node{s}, HasMax: true, Max: max, IsConstant: s.IsConstant}

	case instr.Op.Kind == sbir.OpAdd, instr.Op.Kind == sbir.OpBitAnd, instr.Op.Kind == sbir.OpBitOr, instr.Op.Kind == sbir.OpXor:
		a, b := at(instr.Srcs[0]), at(instr.Srcs[1])
		max, has := binaryMax(a, b, func(x, y U) U {
			if tm, ok := movetype.TypeMax(dstType(0)); ok {
				return movetype.SaturatingAdd(x, y, tm)
			}
			return movetype.SaturatingAdd(x, y, movetype.MaxForBits(256))
		})
		nodes[instr.Dsts[0]] = binaryNode(opName(instr.Op.Kind), a, b, max, has)

	case instr.Op.Kind == sbir.OpMul:
		a, b := at(instr.Srcs[0]), at(instr.Srcs[1])
		max, has := binaryMax(a, b, func(x, y U) U {
			if tm, ok := movetype.TypeMax(dstType(0)); ok {
				return movetype.SaturatingMul(x, y, tm)
			}
			return movetype.SaturatingMul(x, y, movetype.MaxForBits(256))
		})
		nodes[instr.Dsts[0]] = binaryNode("Mul", a, b, max, has)

	case instr.Op.Kind == sbir.OpSub:
		a, b := at(instr.Srcs[0]), at(instr.Srcs[1])
		var max movetype.U256
		has := false
		switch {
		case a.HasMax && b.HasMax && a.IsConstant && b.IsConstant:
			max, has = movetype.SubOrFloor(a.Max, b.Max), true
		case a.HasMax && b.HasMax && b.IsConstant && b.Max.LessOrEqual(a.Max):
			max, has = movetype.SubOrFloor(a.Max, b.Max), true
		case a.HasMax:
			max, has = a.Max, true
		}
		nodes[instr.Dsts[0]] = binaryNode("Sub", a, b, max, has)

	case instr.Op.Kind == sbir.OpDiv, instr.Op.Kind == sbir.OpShr:
		a, b := at(instr.Srcs[0]), at(instr.Srcs[1])
		nodes[instr.Dsts[0]] = binaryNode(opName(instr.Op.Kind), a, b, a.Max, a.HasMax)

	case instr.Op.Kind == sbir.OpShl:
		a, b := at(instr.Srcs[0]), at(instr.Srcs[1])
		var max movetype.U256
		has := a.HasMax && b.HasMax
		if has {
			cap := movetype.MaxForBits(256)
			if tm, ok := movetype.TypeMax(dstType(0)); ok {
				cap = tm
			}
			max = movetype.WrappingShl(a.Max, uint(b.Max.Uint64()), cap)
		}
		nodes[instr.Dsts[0]] = binaryNode("Shl", a, b, max, has)

	case instr.Op.Kind == sbir.OpMod:
		// The analyzer only ever needs an upper bound on the remainder,
		// not its exact value, so the "both constant" case collapses into
		// the same residue bound as the general one: a % b < b, and a % b
		// equals a when a is already known to be smaller than b.
		a, b := at(instr.Srcs[0]), at(instr.Srcs[1])
		var max movetype.U256
		has := false
		switch {
		case a.HasMax && b.HasMax && a.Max.LessThan(b.Max):
			max, has = a.Max, true
		case b.HasMax:
			max, has = movetype.SubOrFloor(b.Max, movetype.U256FromUint64(1)), true
		}
		nodes[instr.Dsts[0]] = binaryNode("Mod", a, b, max, has)

	case instr.Op.Kind.IsComparisonOrLogical():
		subs := make([]*Node, len(instr.Srcs))
		for i, s := range instr.Srcs {
			subs[i] = at(s)
		}
		n := &Node{Op: OpBinary, Name: opName(instr.Op.Kind), Subnodes: subs}
		if len(instr.Dsts) > 0 {
			nodes[instr.Dsts[0]] = n
		}

	case instr.Op.Kind == sbir.OpPack:
		subs := make([]*Node, len(instr.Srcs))
		for i, s := range instr.Srcs {
			subs[i] = at(s)
		}
		nodes[instr.Dsts[0]] = &Node{Op: OpPack, Name: "Pack", Subnodes: subs}

	case instr.Op.Kind == sbir.OpUnpack:
		packed := at(instr.Srcs[0])
		for i, d := range instr.Dsts {
			if i < len(packed.Subnodes) && len(packed.Subnodes) == len(instr.Dsts) {
				sub := packed.Subnodes[i]
				nodes[d] = &Node{Op: OpUnpackField, Name: "field", Subnodes: []*Node{sub}, HasMax: sub.HasMax, Max: sub.Max}
				continue
			}
			ty := fn.LocalTypes[d]
			n := &Node{Op: OpUnpackField, Name: "field"}
			if max, ok := movetype.TypeMax(ty); ok {
				n.HasMax, n.Max = true, max
			}
			nodes[d] = n
		}

	case instr.Op.Kind == sbir.OpReadRef, instr.Op.Kind == sbir.OpBorrowLoc, instr.Op.Kind == sbir.OpBorrowField,
		instr.Op.Kind == sbir.OpBorrowGlobal, instr.Op.Kind == sbir.OpMoveFrom, instr.Op.Kind == sbir.OpExists,
		instr.Op.Kind == sbir.OpFreezeRef:
		ty := dstType(0)
		n := &Node{Op: OpOpaque, Name: opName(instr.Op.Kind)}
		if max, ok := movetype.TypeMax(ty); ok {
			n.HasMax, n.Max = true, max
		}
		if instr.Op.Kind == sbir.OpBorrowLoc && len(instr.Srcs) > 0 {
			s := instr.Srcs[0]
			n.borrowLocalTemp = &s
		}
		if len(instr.Dsts) > 0 {
			nodes[instr.Dsts[0]] = n
		}

	case instr.Op.Kind == sbir.OpNot:
		s := at(instr.Srcs[0])
		n := &Node{Op: OpUnary, Name: "Not", Subnodes: []*Node{s}}
		if len(instr.Dsts) > 0 {
			nodes[instr.Dsts[0]] = n
		}

	case instr.Op.Kind == sbir.OpFunction:
		transferFunctionCall(mod, instr, nodes, at, resolver, depth, dstType)

	default:
		// WriteRef, MoveTo, Destroy: no tracked temp is produced.
	}
}

func transferFunctionCall(
	mod *sbir.CompiledModule,
	instr sbir.Instr,
	nodes map[sbir.Temp]*Node,
	at func(sbir.Temp) *Node,
	resolver Resolver,
	depth int,
	dstType func(int) movetype.Type,
) {
	argNodes := make([]*Node, len(instr.Srcs))
	for i, s := range instr.Srcs {
		argNodes[i] = at(s)
	}

	calleeRets, ok := resolveCallee(mod, instr, resolver, depth, argNodes)

	for i, d := range instr.Dsts {
		var sub *Node
		if ok && i < len(calleeRets) {
			sub = calleeRets[i]
		} else if i < len(argNodes) {
			sub = argNodes[i]
		}
		subs := []*Node{}
		if sub != nil {
			subs = []*Node{sub}
		}
		n := &Node{Op: OpCall, Name: "Call", Subnodes: subs}
		if max, mok := movetype.TypeMax(dstType(i)); mok {
			n.HasMax, n.Max = true, max
		}
		nodes[d] = n
	}
}

// resolveCallee implements spec.md §4.6's bounded inter-procedural rule:
// if depth > 0 and the callee module is known, recompute the callee's
// data dependency with depth-1 and use its Ret(srcs) nodes; otherwise
// fall back to the raw argument nodes.
func resolveCallee(mod *sbir.CompiledModule, instr sbir.Instr, resolver Resolver, depth int, argNodes []*Node) ([]*Node, bool) {
	if depth <= 0 || resolver == nil {
		return nil, false
	}
	if int(instr.Op.CalleeModule) < 0 || int(instr.Op.CalleeModule) >= len(mod.ModuleHandles) {
		return nil, false
	}
	name := mod.ModuleHandles[instr.Op.CalleeModule]
	funcName := mod.Pool.String(instr.Op.CalleeFun.Sym)
	calleeMod, calleeFn, ok := resolver.Resolve(name, funcName)
	if !ok {
		return nil, false
	}

	result := Analyze(calleeMod, calleeFn, resolver, depth-1)
	for _, ci := range calleeFn.Code {
		if ci.Kind == sbir.IRet {
			rets := make([]*Node, len(ci.RetSrcs))
			for i, t := range ci.RetSrcs {
				rets[i] = result.Nodes[t]
			}
			return rets, true
		}
	}
	return nil, false
}

type U = movetype.U256

func binaryMax(a, b *Node, f func(x, y U) U) (U, bool) {
	if !a.HasMax || !b.HasMax {
		return U{}, false
	}
	return f(a.Max, b.Max), true
}

func binaryNode(name string, a, b *Node, max movetype.U256, hasMax bool) *Node {
	return &Node{
		Op: OpBinary, Name: name, Subnodes: []*Node{a, b},
		HasMax: hasMax, Max: max, IsConstant: a.IsConstant && b.IsConstant,
	}
}

func opName(k sbir.OpKind) string {
	names := map[sbir.OpKind]string{
		sbir.OpAdd: "Add", sbir.OpSub: "Sub", sbir.OpMul: "Mul", sbir.OpDiv: "Div", sbir.OpMod: "Mod",
		sbir.OpBitOr: "BitOr", sbir.OpBitAnd: "BitAnd", sbir.OpXor: "Xor", sbir.OpShl: "Shl", sbir.OpShr: "Shr",
		sbir.OpLt: "Lt", sbir.OpGt: "Gt", sbir.OpLe: "Le", sbir.OpGe: "Ge", sbir.OpEq: "Eq", sbir.OpNeq: "Neq",
		sbir.OpAnd: "And", sbir.OpOr: "Or", sbir.OpNot: "Not",
		sbir.OpReadRef: "ReadRef", sbir.OpBorrowLoc: "BorrowLoc", sbir.OpBorrowField: "BorrowField",
		sbir.OpBorrowGlobal: "BorrowGlobal", sbir.OpMoveFrom: "MoveFrom", sbir.OpExists: "Exists",
		sbir.OpFreezeRef: "FreezeRef",
	}
	if n, ok := names[k]; ok {
		return n
	}
	return "Op"
}

func constDisplay(c movetype.Constant) string {
	if u, ok := movetype.UintOf(c); ok {
		return fmt.Sprintf("%d", u.Uint64())
	}
	if c.Tag == movetype.ConstBool {
		return fmt.Sprintf("%v", c.Bool)
	}
	return "const"
}
