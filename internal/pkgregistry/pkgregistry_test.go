package pkgregistry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// buildModuleA builds 0x1::a with one function, get_three, returning the
// constant 3.
func buildModuleA() *sbir.CompiledModule {
	pool := movetype.NewPool()
	name := pool.Intern("get_three")
	u8 := movetype.PrimitiveType(movetype.U8)
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::a"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: name, Returns: []movetype.Type{u8}},
		},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       name,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SLdU8, LocalIdx: 3},
					{Op: sbir.SRet},
				},
			},
		},
	}
}

// buildModuleB builds 0x1::b with one function, caller, that calls
// 0x1::a::get_three and returns its result.
func buildModuleB() *sbir.CompiledModule {
	pool := movetype.NewPool()
	callerName := pool.Intern("caller")
	calleeName := pool.Intern("get_three")
	u8 := movetype.PrimitiveType(movetype.U8)
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::b", "0x1::a"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: callerName, Returns: []movetype.Type{u8}},
			{Module: 1, Name: calleeName, Returns: []movetype.Type{u8}},
		},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       callerName,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SCall, FuncIdx: 1},
					{Op: sbir.SRet},
				},
			},
		},
	}
}

func buildRegistry(t *testing.T) *Package {
	t.Helper()
	p := New()
	require.NoError(t, p.Add("0x1::a", buildModuleA()))
	require.NoError(t, p.Add("0x1::b", buildModuleB()))
	return p
}

func TestAddBuildsCFGForEveryNonNativeFunction(t *testing.T) {
	p := buildRegistry(t)
	modA, ok := p.GetByName("0x1::a")
	require.True(t, ok)
	require.Len(t, modA.Functions, 1)
	require.NotNil(t, modA.Functions[0].CFG)
}

func TestAddRejectsDuplicateModuleName(t *testing.T) {
	p := New()
	require.NoError(t, p.Add("0x1::a", buildModuleA()))
	require.Error(t, p.Add("0x1::a", buildModuleA()))
}

func TestGetFunctionResolvesByTextualName(t *testing.T) {
	p := buildRegistry(t)
	lf, ok := p.GetFunction("0x1::a", "get_three")
	require.True(t, ok)
	require.NotNil(t, lf.Info)

	_, ok = p.GetFunction("0x1::a", "does_not_exist")
	require.False(t, ok)
}

func TestGetAllPreservesInsertionOrder(t *testing.T) {
	p := buildRegistry(t)
	mods := p.GetAll()
	require.Len(t, mods, 2)
	require.Equal(t, "0x1::a", mods[0].Name)
	require.Equal(t, "0x1::b", mods[1].Name)
}

func TestFreezeResolvesCrossModuleCall(t *testing.T) {
	p := buildRegistry(t)
	p.Freeze(1)

	modB, ok := p.GetByName("0x1::b")
	require.True(t, ok)
	require.Len(t, modB.DataDep, 1)

	result := modB.DataDep[0]
	require.NotNil(t, result)
	require.NotEmpty(t, result.Nodes)
	// caller has no parameters or locals, so the call's sole destination
	// is temp 0. With get_three resolved, that node's subtree is
	// get_three's returned constant; the raw-argument fallback would leave
	// it empty, since the call has no arguments.
	call := result.Nodes[sbir.Temp(0)]
	require.NotNil(t, call)
	require.NotEmpty(t, call.Subnodes)
	require.True(t, call.Subnodes[0].IsConstant)
}
