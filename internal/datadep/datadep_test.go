package datadep

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

func addFunction() (*sbir.CompiledModule, *sbir.FunctionInfo) {
	u8 := movetype.PrimitiveType(movetype.U8)
	mod := &sbir.CompiledModule{ModuleHandles: []string{"0x1::m"}}
	fn := &sbir.FunctionInfo{
		ArgsCount:  2,
		LocalTypes: []movetype.Type{u8, u8, u8},
		Code: []sbir.Instr{
			{Kind: sbir.ICall, Dsts: []sbir.Temp{2}, Op: sbir.Operation{Kind: sbir.OpAdd}, Srcs: []sbir.Temp{0, 1}},
			{Kind: sbir.IRet, RetSrcs: []sbir.Temp{2}},
		},
	}
	return mod, fn
}

func TestAnalyzeParamsGetTypeMax(t *testing.T) {
	mod, fn := addFunction()
	r := Analyze(mod, fn, nil, 0)
	require.True(t, r.Nodes[0].HasMax)
	require.Equal(t, uint64(255), r.Nodes[0].Max.Uint64())
}

func TestAnalyzeAddSaturatesAtDestinationTypeMax(t *testing.T) {
	mod, fn := addFunction()
	r := Analyze(mod, fn, nil, 0)
	sum := r.Nodes[2]
	require.True(t, sum.HasMax)
	// u8 + u8 saturates to 255, the dst type's max, well below 510.
	require.Equal(t, uint64(255), sum.Max.Uint64())
	require.False(t, sum.IsConstant) // neither operand is constant
}

func TestAnalyzeLoadProducesConstantNode(t *testing.T) {
	mod := &sbir.CompiledModule{ModuleHandles: []string{"0x1::m"}}
	fn := &sbir.FunctionInfo{
		LocalTypes: []movetype.Type{movetype.PrimitiveType(movetype.U64)},
		Code: []sbir.Instr{
			{Kind: sbir.ILoad, Dst: 0, Const: movetype.Constant{Tag: movetype.ConstU64, Int: movetype.U256FromUint64(7)}},
			{Kind: sbir.IRet, RetSrcs: []sbir.Temp{0}},
		},
	}
	r := Analyze(mod, fn, nil, 0)
	n := r.Nodes[0]
	require.True(t, n.IsConstant)
	require.True(t, n.HasMax)
	require.Equal(t, uint64(7), n.Max.Uint64())
	require.True(t, n.IsConst())
}

func TestAnalyzeCastClipsToCastWidth(t *testing.T) {
	mod := &sbir.CompiledModule{ModuleHandles: []string{"0x1::m"}}
	fn := &sbir.FunctionInfo{
		ArgsCount:  1,
		LocalTypes: []movetype.Type{movetype.PrimitiveType(movetype.U64), movetype.PrimitiveType(movetype.U8)},
		Code: []sbir.Instr{
			{Kind: sbir.ICall, Dsts: []sbir.Temp{1}, Op: sbir.Operation{Kind: sbir.OpCastU8}, Srcs: []sbir.Temp{0}},
			{Kind: sbir.IRet, RetSrcs: []sbir.Temp{1}},
		},
	}
	r := Analyze(mod, fn, nil, 0)
	casted := r.Nodes[1]
	require.True(t, casted.HasMax)
	require.Equal(t, uint64(255), casted.Max.Uint64())
}

// resolverStub implements Resolver by returning a fixed, precomputed
// callee function for any request.
type resolverStub struct {
	mod *sbir.CompiledModule
	fn  *sbir.FunctionInfo
}

func (r resolverStub) Resolve(name string, funcName string) (*sbir.CompiledModule, *sbir.FunctionInfo, bool) {
	return r.mod, r.fn, true
}

func TestAnalyzeInterProceduralCallUsesCalleeReturnNode(t *testing.T) {
	// callee: fun id(x: u8): u8 { return x; }
	calleeMod := &sbir.CompiledModule{ModuleHandles: []string{"0x1::m"}}
	callee := &sbir.FunctionInfo{
		ArgsCount:  1,
		LocalTypes: []movetype.Type{movetype.PrimitiveType(movetype.U8)},
		Code: []sbir.Instr{
			{Kind: sbir.IRet, RetSrcs: []sbir.Temp{0}},
		},
	}

	// caller: fun main(): u8 { return id(const 3); }
	pool := movetype.NewPool()
	idSym := pool.Intern("id")
	mod := &sbir.CompiledModule{Pool: pool, ModuleHandles: []string{"0x1::m"}}
	fn := &sbir.FunctionInfo{
		LocalTypes: []movetype.Type{movetype.PrimitiveType(movetype.U8), movetype.PrimitiveType(movetype.U8)},
		Code: []sbir.Instr{
			{Kind: sbir.ILoad, Dst: 0, Const: movetype.Constant{Tag: movetype.ConstU8, Int: movetype.U256FromUint64(3)}},
			{Kind: sbir.ICall, Dsts: []sbir.Temp{1}, Op: sbir.Operation{Kind: sbir.OpFunction, CalleeModule: 0, CalleeFun: movetype.FunId{Sym: idSym}}, Srcs: []sbir.Temp{0}},
			{Kind: sbir.IRet, RetSrcs: []sbir.Temp{1}},
		},
	}

	r := Analyze(mod, fn, resolverStub{mod: calleeMod, fn: callee}, 1)
	result := r.Nodes[1]
	require.NotNil(t, result)
	require.NotEmpty(t, result.Subnodes)
	// The callee is re-analyzed from its own parameter types, not the
	// caller's actual argument values, so the substituted subtree is the
	// callee's abstract parameter node rather than the constant 3 the
	// caller happened to pass — the documented approximation in spec.md
	// §4.6, not a bug.
	require.Equal(t, OpParam, result.Subnodes[0].Op)
}

func TestAnalyzeFallsBackToArgumentNodeAtDepthZero(t *testing.T) {
	mod := &sbir.CompiledModule{ModuleHandles: []string{"0x1::m"}}
	fn := &sbir.FunctionInfo{
		LocalTypes: []movetype.Type{movetype.PrimitiveType(movetype.U8), movetype.PrimitiveType(movetype.U8)},
		Code: []sbir.Instr{
			{Kind: sbir.ILoad, Dst: 0, Const: movetype.Constant{Tag: movetype.ConstU8, Int: movetype.U256FromUint64(3)}},
			{Kind: sbir.ICall, Dsts: []sbir.Temp{1}, Op: sbir.Operation{Kind: sbir.OpFunction, CalleeModule: 0}, Srcs: []sbir.Temp{0}},
			{Kind: sbir.IRet, RetSrcs: []sbir.Temp{1}},
		},
	}
	r := Analyze(mod, fn, nil, 0)
	result := r.Nodes[1]
	require.NotEmpty(t, result.Subnodes)
	require.True(t, result.Subnodes[0].IsConstant)
}

func TestLoopConditionFromCopyCollectsBorrowLocAndCopySources(t *testing.T) {
	i := sbir.Temp(0)
	borrow := &Node{Op: OpOpaque, Name: "BorrowLoc", borrowLocalTemp: &i}
	j := sbir.Temp(1)
	copyNode := &Node{Op: OpAssign, Name: "assign", Subnodes: []*Node{{Op: OpParam, Name: "u64"}}, copyTemp: &j}
	root := &Node{Op: OpBinary, Name: "Lt", Subnodes: []*Node{borrow, copyNode}}

	var out []sbir.Temp
	root.LoopConditionFromCopy(&out)
	require.ElementsMatch(t, []sbir.Temp{0, 1}, out)
}

func TestDisplayRendersNestedOperators(t *testing.T) {
	a := &Node{Op: OpConst, Name: "1", IsConstant: true}
	b := &Node{Op: OpConst, Name: "2", IsConstant: true}
	sum := &Node{Op: OpBinary, Name: "Add", Subnodes: []*Node{a, b}}
	require.Equal(t, "Add(const(1), const(2))", sum.Display())
}
