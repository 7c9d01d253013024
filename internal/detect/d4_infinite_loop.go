package detect

import (
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/cfg"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/datadep"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/loopanalysis"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// InfiniteLoop flags a fat loop whose every exit condition is provably
// never modified in the loop body: ret_flag (the loop exists at all) is
// AND-combined with "none of its traced exit conditions ever change" — if
// that conjunction holds, the loop cannot take any of its exits.
//
// A function with irreducible control flow is treated as loop-free here
// (the conservative reading of spec.md's open question on the subject):
// without a well-formed natural-loop decomposition there is no sound
// exit-condition set to check.
type InfiniteLoop struct{}

func (InfiniteLoop) Kind() Kind { return KindInfiniteLoop }

func (InfiniteLoop) Run(pkg *pkgregistry.Package) *DetectContent {
	result := map[string][]string{}
	for _, mod := range pkg.GetAll() {
		var findings []string
		for i, lf := range mod.Functions {
			fn := lf.Info
			if fn.IsNative || len(fn.Code) == 0 || lf.CFG == nil {
				continue
			}
			if !lf.Reducible || len(lf.FatLoops) == 0 {
				continue
			}
			if hasUnconditionalLoop(lf.CFG, fn, lf.FatLoops, mod.DataDep[i]) {
				findings = append(findings, funcName(mod, fn))
			}
		}
		if len(findings) > 0 {
			result[mod.Name] = findings
		}
	}
	return &DetectContent{Severity: SeverityHigh, Kind: KindInfiniteLoop, Result: result}
}

func hasUnconditionalLoop(g *cfg.Graph, fn *sbir.FunctionInfo, loops []*loopanalysis.FatLoop, dd *datadep.Result) bool {
	for _, fl := range loops {
		body := unionBlocks(fl.SubLoops)
		conditions := exitConditions(g, fn, body, dd)
		if allUnchanged(conditions, fl) {
			return true
		}
	}
	return false
}

func unionBlocks(subs []map[cfg.BlockId]bool) map[cfg.BlockId]bool {
	out := map[cfg.BlockId]bool{}
	for _, s := range subs {
		for b := range s {
			out[b] = true
		}
	}
	return out
}

// exitConditions collects the local temps each loop-exiting branch's
// condition ultimately reads, via Node.LoopConditionFromCopy.
func exitConditions(g *cfg.Graph, fn *sbir.FunctionInfo, body map[cfg.BlockId]bool, dd *datadep.Result) []sbir.Temp {
	var conditions []sbir.Temp
	if dd == nil {
		return conditions
	}
	for b := range body {
		blk := g.Blocks[b]
		if blk.Kind != cfg.Basic {
			continue
		}
		isExit := false
		for _, s := range g.Successors(b) {
			if !body[s] {
				isExit = true
				break
			}
		}
		if !isExit {
			continue
		}
		last := fn.Code[blk.Upper]
		if last.Kind != sbir.IBranch {
			continue
		}
		if node := dd.Nodes[last.Cond]; node != nil {
			node.LoopConditionFromCopy(&conditions)
		}
	}
	return conditions
}

func allUnchanged(conditions []sbir.Temp, fl *loopanalysis.FatLoop) bool {
	for _, c := range conditions {
		if fl.ValTargets[c] || fl.MutTargets[c] {
			return false
		}
	}
	return true
}
