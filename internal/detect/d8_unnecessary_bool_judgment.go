package detect

import (
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// UnnecessaryBoolJudgment flags an Eq/Neq comparing a bool-typed value
// against a literal true/false, e.g. `x == true` or `flag != false`: the
// comparison is always redundant with the value (or its negation) itself.
type UnnecessaryBoolJudgment struct{}

func (UnnecessaryBoolJudgment) Kind() Kind { return KindUnnecessaryBoolJudg }

func (UnnecessaryBoolJudgment) Run(pkg *pkgregistry.Package) *DetectContent {
	result := map[string][]string{}
	for _, mod := range pkg.GetAll() {
		var findings []string
		for _, lf := range mod.Functions {
			fn := lf.Info
			if fn.IsNative || len(fn.Code) == 0 {
				continue
			}
			flagged := false
			for offset, instr := range fn.Code {
				if instr.Kind != sbir.ICall || (instr.Op.Kind != sbir.OpEq && instr.Op.Kind != sbir.OpNeq) {
					continue
				}
				a, b := instr.Srcs[0], instr.Srcs[1]
				if comparesBoolLiteral(fn, a, b, offset) || comparesBoolLiteral(fn, b, a, offset) {
					flagged = true
					break
				}
			}
			if flagged {
				findings = append(findings, funcName(mod, fn))
			}
		}
		if len(findings) > 0 {
			result[mod.Name] = findings
		}
	}
	return &DetectContent{Severity: SeverityLow, Kind: KindUnnecessaryBoolJudg, Result: result}
}

// comparesBoolLiteral reports whether literalSide's nearest definition is
// a bool-constant Load and otherSide is itself bool-typed.
func comparesBoolLiteral(fn *sbir.FunctionInfo, literalSide, otherSide sbir.Temp, at int) bool {
	off, ok := fn.NearestDefBefore(literalSide, at)
	if !ok || off < 0 {
		return false
	}
	def := fn.InstrAt(off)
	if def == nil || def.Kind != sbir.ILoad || def.Const.Tag != movetype.ConstBool {
		return false
	}
	t := fn.LocalTypes[otherSide]
	return t.Tag == movetype.TagPrimitive && t.Primitive == movetype.Bool
}
