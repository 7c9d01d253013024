package loopanalysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/cfg"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// whileLoopFn is: label(head); branch cond -> body, end; body: stloc;
// jump head; end: ret. A single natural loop headed at "head".
func whileLoopFn() *sbir.FunctionInfo {
	return &sbir.FunctionInfo{
		Code: []sbir.Instr{
			{Kind: sbir.ILabel, L: 0},                  // 0: head
			{Kind: sbir.IBranch, Cond: 0, Then: 1, Else: 2}, // 1
			{Kind: sbir.ILabel, L: 1},                  // 2: body
			{Kind: sbir.IAssign, Dst: 1, Src: 0, AsgnKind: sbir.Store}, // 3
			{Kind: sbir.IJump, L: 0},                   // 4: back to head
			{Kind: sbir.ILabel, L: 2},                  // 5: end
			{Kind: sbir.IRet},                          // 6
		},
	}
}

func TestComputeDominatorsStraightLine(t *testing.T) {
	fn := &sbir.FunctionInfo{Code: []sbir.Instr{{Kind: sbir.ILoad}, {Kind: sbir.IRet}}}
	g, err := cfg.Build(fn)
	require.NoError(t, err)

	d := Compute(g)
	require.True(t, d.Dominates(g.Entry, g.Exit))
}

func TestBackEdgesFindsWhileLoopBackEdge(t *testing.T) {
	fn := whileLoopFn()
	g, err := cfg.Build(fn)
	require.NoError(t, err)

	d := Compute(g)
	edges, reducible := BackEdges(g, d)
	require.True(t, reducible)
	require.Len(t, edges, 1)

	head, ok := g.BlockOf(0)
	require.True(t, ok)
	require.Equal(t, head, edges[0].To)
}

func TestNaturalLoopIncludesBodyAndHeader(t *testing.T) {
	fn := whileLoopFn()
	g, err := cfg.Build(fn)
	require.NoError(t, err)

	d := Compute(g)
	edges, _ := BackEdges(g, d)
	require.Len(t, edges, 1)

	body := NaturalLoop(g, edges[0])
	head, _ := g.BlockOf(0)
	tail, _ := g.BlockOf(2)
	require.True(t, body[head])
	require.True(t, body[tail])

	end, _ := g.BlockOf(5)
	require.False(t, body[end])
}

func TestBuildFatLoopsReturnsNilForLoopFreeFunction(t *testing.T) {
	fn := &sbir.FunctionInfo{Code: []sbir.Instr{{Kind: sbir.ILoad}, {Kind: sbir.IRet}}}
	g, err := cfg.Build(fn)
	require.NoError(t, err)

	loops, reducible := BuildFatLoops(g, fn)
	require.True(t, reducible)
	require.Nil(t, loops)
}

func TestBuildFatLoopsRecordsValTargetFromLoopBody(t *testing.T) {
	fn := whileLoopFn()
	g, err := cfg.Build(fn)
	require.NoError(t, err)

	loops, reducible := BuildFatLoops(g, fn)
	require.True(t, reducible)
	require.Len(t, loops, 1)
	require.True(t, loops[0].ValTargets[sbir.Temp(1)])
	require.Len(t, loops[0].BackEdges, 1)
}
