package detect

import (
	"fmt"
	"strings"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// UncheckedReturn flags a call whose non-empty return value is discarded
// immediately: at least one of the k instructions right after a k-result
// call is a Destroy on one of that call's own destinations.
type UncheckedReturn struct{}

func (UncheckedReturn) Kind() Kind { return KindUncheckedReturn }

func (UncheckedReturn) Run(pkg *pkgregistry.Package) *DetectContent {
	result := map[string][]string{}
	for _, mod := range pkg.GetAll() {
		var findings []string
		for _, lf := range mod.Functions {
			fn := lf.Info
			if fn.IsNative || len(fn.Code) == 0 {
				continue
			}
			var callees []string
			for offset, instr := range fn.Code {
				if instr.Kind != sbir.ICall || instr.Op.Kind != sbir.OpFunction {
					continue
				}
				k := len(instr.Dsts)
				if k == 0 {
					continue
				}
				if discardsAnyResult(fn.Code, offset+1, instr.Dsts) {
					callees = append(callees, mod.Compiled.Pool.String(instr.Op.CalleeFun.Sym))
				}
			}
			if len(callees) == 0 {
				continue
			}
			findings = append(findings, fmt.Sprintf("%s(%s)", funcName(mod, fn), strings.Join(sortedUnique(callees), ",")))
		}
		if len(findings) > 0 {
			result[mod.Name] = findings
		}
	}
	return &DetectContent{Severity: SeverityMedium, Kind: KindUncheckedReturn, Result: result}
}

// discardsAnyResult reports whether any of the k instructions starting
// at start is a Destroy on one of dsts (spec.md's literal D1 predicate:
// "if any of them is Call([], Destroy, [d]) for some d in dsts, report").
// A caller storing or using only some of a multi-return call's results
// still counts — the common `let (a, b) = f(); destroy(a); use(b);`
// partial-discard pattern is exactly what this is meant to catch.
func discardsAnyResult(code []sbir.Instr, start int, dsts []sbir.Temp) bool {
	k := len(dsts)
	if start+k > len(code) {
		k = len(code) - start
	}
	wanted := make(map[sbir.Temp]bool, len(dsts))
	for _, d := range dsts {
		wanted[d] = true
	}
	for i := 0; i < k; i++ {
		instr := code[start+i]
		if instr.Kind != sbir.ICall || instr.Op.Kind != sbir.OpDestroy || len(instr.Srcs) != 1 {
			continue
		}
		if wanted[instr.Srcs[0]] {
			return true
		}
	}
	return false
}
