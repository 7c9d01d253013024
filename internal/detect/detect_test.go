package detect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

func newPkg(t *testing.T, mods map[string]*sbir.CompiledModule) *pkgregistry.Package {
	t.Helper()
	p := pkgregistry.New()
	for name, mod := range mods {
		require.NoError(t, p.Add(name, mod))
	}
	return p
}

// d1Module builds 0x1::m with a helper returning one u8 and a caller that
// invokes it and immediately discards the result (Pop right after Call).
func d1Module() *sbir.CompiledModule {
	pool := movetype.NewPool()
	helperName := pool.Intern("helper")
	callerName := pool.Intern("caller_drops")
	u8 := movetype.PrimitiveType(movetype.U8)
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::m"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: helperName, Returns: []movetype.Type{u8}},
			{Module: 0, Name: callerName},
		},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       helperName,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SLdU8, LocalIdx: 1},
					{Op: sbir.SRet},
				},
			},
			{
				HandleIdx:  1,
				Name:       callerName,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SCall, FuncIdx: 0},
					{Op: sbir.SPop},
					{Op: sbir.SRet},
				},
			},
		},
	}
}

func TestUncheckedReturnFlagsDiscardedCallResult(t *testing.T) {
	pkg := newPkg(t, map[string]*sbir.CompiledModule{"0x1::m": d1Module()})
	content := UncheckedReturn{}.Run(pkg)
	require.Equal(t, KindUncheckedReturn, content.Kind)
	require.Contains(t, content.Result["0x1::m"], "caller_drops(helper)")
}

// d1ModuleUsesResult is identical to d1Module except the caller stores the
// result instead of dropping it, so D1 must not fire.
func d1ModuleUsesResult() *sbir.CompiledModule {
	pool := movetype.NewPool()
	helperName := pool.Intern("helper")
	callerName := pool.Intern("caller_keeps")
	u8 := movetype.PrimitiveType(movetype.U8)
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::m"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: helperName, Returns: []movetype.Type{u8}},
			{Module: 0, Name: callerName, Returns: []movetype.Type{u8}},
		},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       helperName,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SLdU8, LocalIdx: 1},
					{Op: sbir.SRet},
				},
			},
			{
				HandleIdx:  1,
				Name:       callerName,
				Visibility: sbir.VisPublic,
				Locals:     []movetype.Type{u8},
				Code: []sbir.SourceInstr{
					{Op: sbir.SCall, FuncIdx: 0},
					{Op: sbir.SStLoc, LocalIdx: 0},
					{Op: sbir.SCopyLoc, LocalIdx: 0},
					{Op: sbir.SRet},
				},
			},
		},
	}
}

func TestUncheckedReturnIgnoresResultThatIsStored(t *testing.T) {
	pkg := newPkg(t, map[string]*sbir.CompiledModule{"0x1::m": d1ModuleUsesResult()})
	content := UncheckedReturn{}.Run(pkg)
	require.Empty(t, content.Result["0x1::m"])
}

// d1PartialDiscardModule builds a helper returning two u8s and a caller
// that discards only one of them (Pop) and stores the other (StLoc): the
// common `let (a, b) = f(); destroy(a); use(b);` pattern, which D1 must
// still flag since only one Destroy out of the k-window needs to name one
// of the call's own destinations.
func d1PartialDiscardModule() *sbir.CompiledModule {
	pool := movetype.NewPool()
	helperName := pool.Intern("helper2")
	callerName := pool.Intern("caller_partial")
	u8 := movetype.PrimitiveType(movetype.U8)
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::m"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: helperName, Returns: []movetype.Type{u8, u8}},
			{Module: 0, Name: callerName},
		},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       helperName,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SLdU8, LocalIdx: 1},
					{Op: sbir.SLdU8, LocalIdx: 2},
					{Op: sbir.SRet},
				},
			},
			{
				HandleIdx:  1,
				Name:       callerName,
				Visibility: sbir.VisPublic,
				Locals:     []movetype.Type{u8},
				Code: []sbir.SourceInstr{
					{Op: sbir.SCall, FuncIdx: 0},
					{Op: sbir.SPop},
					{Op: sbir.SStLoc, LocalIdx: 0},
					{Op: sbir.SRet},
				},
			},
		},
	}
}

func TestUncheckedReturnFlagsPartialDiscardOfMultiReturnCall(t *testing.T) {
	pkg := newPkg(t, map[string]*sbir.CompiledModule{"0x1::m": d1PartialDiscardModule()})
	content := UncheckedReturn{}.Run(pkg)
	require.Contains(t, content.Result["0x1::m"], "caller_partial(helper2)")
}

// shiftModule builds one function per case (overflow/ok), each computing
// a <<compile-time-constant>> shift of a compile-time-constant operand.
func shiftModule(shiftedValue, shiftAmount uint64) *sbir.CompiledModule {
	pool := movetype.NewPool()
	fname := pool.Intern("shift_it")
	u8 := movetype.PrimitiveType(movetype.U8)
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::m"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: fname, Returns: []movetype.Type{u8}},
		},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       fname,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SLdU8, LocalIdx: int(shiftedValue)},
					{Op: sbir.SLdU8, LocalIdx: int(shiftAmount)},
					{Op: sbir.SShl},
					{Op: sbir.SRet},
				},
			},
		},
	}
}

func TestShiftOverflowFlagsProvenOverflow(t *testing.T) {
	pkg := newPkg(t, map[string]*sbir.CompiledModule{"0x1::m": shiftModule(200, 4)})
	pkg.Freeze(1)
	content := ShiftOverflow{}.Run(pkg)
	require.Contains(t, content.Result["0x1::m"], "shift_it")
}

func TestShiftOverflowIgnoresSafeShift(t *testing.T) {
	pkg := newPkg(t, map[string]*sbir.CompiledModule{"0x1::m": shiftModule(1, 1)})
	pkg.Freeze(1)
	content := ShiftOverflow{}.Run(pkg)
	require.Empty(t, content.Result["0x1::m"])
}

// precisionLossModule builds fun f(): u64 { return (10 / 3) * 5; }
func precisionLossModule() *sbir.CompiledModule {
	pool := movetype.NewPool()
	fname := pool.Intern("scale")
	u64 := movetype.PrimitiveType(movetype.U64)
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::m"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: fname, Returns: []movetype.Type{u64}},
		},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       fname,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SLdU64, LocalIdx: 10},
					{Op: sbir.SLdU64, LocalIdx: 3},
					{Op: sbir.SDiv},
					{Op: sbir.SLdU64, LocalIdx: 5},
					{Op: sbir.SMul},
					{Op: sbir.SRet},
				},
			},
		},
	}
}

func TestPrecisionLossFlagsMulAfterDiv(t *testing.T) {
	pkg := newPkg(t, map[string]*sbir.CompiledModule{"0x1::m": precisionLossModule()})
	content := PrecisionLoss{}.Run(pkg)
	require.Contains(t, content.Result["0x1::m"], "scale")
}

// infiniteLoopModule builds fun spin() { loop {} } as a single
// self-targeting branch with no way out.
func infiniteLoopModule() *sbir.CompiledModule {
	pool := movetype.NewPool()
	fname := pool.Intern("spin")
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::m"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: fname},
		},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       fname,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SBranch, Offset: 0},
				},
			},
		},
	}
}

func TestInfiniteLoopFlagsLoopWithNoExit(t *testing.T) {
	pkg := newPkg(t, map[string]*sbir.CompiledModule{"0x1::m": infiniteLoopModule()})
	pkg.Freeze(1)
	content := InfiniteLoop{}.Run(pkg)
	require.Contains(t, content.Result["0x1::m"], "spin")
}

// constModule declares two u8 constants in its pool, one referenced via
// LdConst, the other never touched.
func constModule() *sbir.CompiledModule {
	pool := movetype.NewPool()
	fname := pool.Intern("uses_one")
	u8 := movetype.PrimitiveType(movetype.U8)
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::m"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: fname, Returns: []movetype.Type{u8}},
		},
		ConstantPool: []sbir.ConstantEntry{
			{Type: u8, Bytes: []byte{9}},
			{Type: u8, Bytes: []byte{42}},
		},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       fname,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SLdConst, ConstIdx: 0},
					{Op: sbir.SRet},
				},
			},
		},
	}
}

func TestUnusedConstantsFlagsOnlyTheUnreferencedEntry(t *testing.T) {
	pkg := newPkg(t, map[string]*sbir.CompiledModule{"0x1::m": constModule()})
	content := UnusedConstants{}.Run(pkg)
	findings := content.Result["0x1::m"]
	require.Len(t, findings, 1)
	require.Contains(t, findings[0], "const#1")
}

// privateFnModule has one called private helper, one never-called private
// helper, and one never-called but "init"-prefixed private function.
func privateFnModule() *sbir.CompiledModule {
	pool := movetype.NewPool()
	callerName := pool.Intern("entrypoint")
	usedName := pool.Intern("used_helper")
	unusedName := pool.Intern("dead_helper")
	initName := pool.Intern("init")
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::m"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: callerName},
			{Module: 0, Name: usedName},
			{Module: 0, Name: unusedName},
			{Module: 0, Name: initName},
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
			{
				HandleIdx:  1,
				Name:       usedName,
				Visibility: sbir.VisPrivate,
				Code:       []sbir.SourceInstr{{Op: sbir.SRet}},
			},
			{
				HandleIdx:  2,
				Name:       unusedName,
				Visibility: sbir.VisPrivate,
				Code:       []sbir.SourceInstr{{Op: sbir.SRet}},
			},
			{
				HandleIdx:  3,
				Name:       initName,
				Visibility: sbir.VisPrivate,
				Code:       []sbir.SourceInstr{{Op: sbir.SRet}},
			},
		},
	}
}

func TestUnusedPrivateFunctionsFlagsOnlyTheDeadOne(t *testing.T) {
	pkg := newPkg(t, map[string]*sbir.CompiledModule{"0x1::m": privateFnModule()})
	content := UnusedPrivateFunctions{Policy: DefaultPolicy()}.Run(pkg)
	require.Equal(t, []string{"dead_helper"}, content.Result["0x1::m"])
}

// castModule casts an already-u8 local to u8.
func castModule() *sbir.CompiledModule {
	pool := movetype.NewPool()
	fname := pool.Intern("noop_cast")
	u8 := movetype.PrimitiveType(movetype.U8)
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::m"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: fname, Returns: []movetype.Type{u8}},
		},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       fname,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SLdU8, LocalIdx: 1},
					{Op: sbir.SCastU8},
					{Op: sbir.SRet},
				},
			},
		},
	}
}

func TestUnnecessaryCastFlagsSameWidthCast(t *testing.T) {
	pkg := newPkg(t, map[string]*sbir.CompiledModule{"0x1::m": castModule()})
	content := UnnecessaryCast{}.Run(pkg)
	require.Contains(t, content.Result["0x1::m"], "noop_cast")
}

// boolJudgmentModule computes `flag == true` where flag is itself a bool
// parameter.
func boolJudgmentModule() *sbir.CompiledModule {
	pool := movetype.NewPool()
	fname := pool.Intern("redundant_check")
	boolT := movetype.PrimitiveType(movetype.Bool)
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::m"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: fname, Parameters: []movetype.Type{boolT}, Returns: []movetype.Type{boolT}},
		},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       fname,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SCopyLoc, LocalIdx: 0},
					{Op: sbir.SLdTrue},
					{Op: sbir.SEq},
					{Op: sbir.SRet},
				},
			},
		},
	}
}

func TestUnnecessaryBoolJudgmentFlagsCompareWithLiteral(t *testing.T) {
	pkg := newPkg(t, map[string]*sbir.CompiledModule{"0x1::m": boolJudgmentModule()})
	content := UnnecessaryBoolJudgment{}.Run(pkg)
	require.Contains(t, content.Result["0x1::m"], "redundant_check")
}

// selfRecursiveModule has fun f() { f(); } directly calling itself.
func selfRecursiveModule() *sbir.CompiledModule {
	pool := movetype.NewPool()
	fname := pool.Intern("loopy")
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::m"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: fname},
		},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       fname,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SCall, FuncIdx: 0},
					{Op: sbir.SRet},
				},
			},
		},
	}
}

func TestRecursiveCallFindsSelfCycle(t *testing.T) {
	pkg := newPkg(t, map[string]*sbir.CompiledModule{"0x1::m": selfRecursiveModule()})
	content := RecursiveCall{}.Run(pkg)
	require.Contains(t, content.Result["0x1::m"], "(loopy->loopy)")
}

// repeatedCallModule calls the same zero-arg helper twice in a row with no
// intervening state change.
func repeatedCallModule() *sbir.CompiledModule {
	pool := movetype.NewPool()
	helperName := pool.Intern("getter")
	callerName := pool.Intern("calls_twice")
	u8 := movetype.PrimitiveType(movetype.U8)
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::m"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: helperName, Returns: []movetype.Type{u8}},
			{Module: 0, Name: callerName},
		},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       helperName,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SLdU8, LocalIdx: 1},
					{Op: sbir.SRet},
				},
			},
			{
				HandleIdx:  1,
				Name:       callerName,
				Visibility: sbir.VisPublic,
				Code: []sbir.SourceInstr{
					{Op: sbir.SCall, FuncIdx: 0},
					{Op: sbir.SPop},
					{Op: sbir.SCall, FuncIdx: 0},
					{Op: sbir.SPop},
					{Op: sbir.SRet},
				},
			},
		},
	}
}

func TestRepeatedCallFlagsIdenticalArgumentlessCalls(t *testing.T) {
	pkg := newPkg(t, map[string]*sbir.CompiledModule{"0x1::m": repeatedCallModule()})
	content := RepeatedCall{}.Run(pkg)
	require.Contains(t, content.Result["0x1::m"], "calls_twice(getter)")
}

func TestAllListsEveryRequiredDetectorPlusOptional(t *testing.T) {
	required := All(false)
	require.Len(t, required, 9)

	withOptional := All(true)
	require.Len(t, withOptional, 10)
}
