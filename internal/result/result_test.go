package result

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/detect"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// fakeLocator is a SourceLocator test double so this package never has to
// touch the file system to exercise Aggregate's locator wiring.
type fakeLocator map[string]string

func (f fakeLocator) Locate(moduleName string) (string, bool) {
	loc, ok := f[moduleName]
	return loc, ok
}

// cleanModule builds 0x1::clean with a single trivial public function and
// no constants: every detector should find nothing.
func cleanModule() *sbir.CompiledModule {
	pool := movetype.NewPool()
	fname := pool.Intern("noop")
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::clean"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: fname},
		},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       fname,
				Visibility: sbir.VisPublic,
				Code:       []sbir.SourceInstr{{Op: sbir.SRet}},
			},
		},
	}
}

// dirtyModule builds 0x1::dirty with an unused constant, guaranteeing D5
// fires.
func dirtyModule() *sbir.CompiledModule {
	pool := movetype.NewPool()
	fname := pool.Intern("noop")
	u8 := movetype.PrimitiveType(movetype.U8)
	return &sbir.CompiledModule{
		Pool:          pool,
		ModuleHandles: []string{"0x1::dirty"},
		FunctionHandles: []sbir.FunctionHandle{
			{Module: 0, Name: fname},
		},
		ConstantPool: []sbir.ConstantEntry{{Type: u8, Bytes: []byte{7}}},
		FunctionDefs: []sbir.FunctionDef{
			{
				HandleIdx:  0,
				Name:       fname,
				Visibility: sbir.VisPublic,
				Code:       []sbir.SourceInstr{{Op: sbir.SRet}},
			},
		},
	}
}

func buildPkg(t *testing.T) *pkgregistry.Package {
	t.Helper()
	p := pkgregistry.New()
	require.NoError(t, p.Add("0x1::clean", cleanModule()))
	require.NoError(t, p.Add("0x1::dirty", dirtyModule()))
	p.Freeze(1)
	return p
}

func TestAggregateClassifiesPassAndWrong(t *testing.T) {
	pkg := buildPkg(t)
	r := Aggregate(pkg, detect.All(true), nil)

	require.Contains(t, r.ModulesStatus[Pass], "0x1::clean")
	require.Contains(t, r.ModulesStatus[Wrong], "0x1::dirty")

	clean := r.Modules["0x1::clean"]
	require.Equal(t, Pass, clean.Status)
	require.Equal(t, 1, clean.Functions.All)
	require.Equal(t, 0, clean.ConstantCount)

	dirty := r.Modules["0x1::dirty"]
	require.Equal(t, Wrong, dirty.Status)
	require.NotEmpty(t, dirty.Detectors[detect.KindUnusedConstants])
}

func TestAggregateFillsEveryDetectorKindEvenWhenEmpty(t *testing.T) {
	pkg := buildPkg(t)
	r := Aggregate(pkg, detect.All(true), nil)
	clean := r.Modules["0x1::clean"]
	require.Contains(t, clean.Detectors, detect.KindUncheckedReturn)
	require.Empty(t, clean.Detectors[detect.KindUncheckedReturn])
}

func TestAggregateRecordsSourceLocationWhenLocatorGiven(t *testing.T) {
	locator := fakeLocator{"0x1::clean": "clean.move:1"}

	pkg := buildPkg(t)
	r := Aggregate(pkg, detect.All(true), locator)

	clean := r.Modules["0x1::clean"]
	require.Equal(t, "clean.move:1", clean.SourceLocation)

	dirty := r.Modules["0x1::dirty"]
	require.Empty(t, dirty.SourceLocation)
}

func TestAggregateRecordsNonNegativeElapsedTime(t *testing.T) {
	pkg := buildPkg(t)
	r := Aggregate(pkg, detect.All(true), nil)
	require.GreaterOrEqual(t, r.TotalTimeUs, int64(0))
}
