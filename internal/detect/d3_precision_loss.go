package detect

import (
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// PrecisionLoss flags a Mul whose operand was itself just produced by an
// integer division or a sqrt call: multiplying a truncated quotient (or a
// rounded square root) back up can no longer recover the precision the
// division/sqrt discarded.
type PrecisionLoss struct{}

func (PrecisionLoss) Kind() Kind { return KindPrecisionLoss }

func (PrecisionLoss) Run(pkg *pkgregistry.Package) *DetectContent {
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
				if instr.Kind != sbir.ICall || instr.Op.Kind != sbir.OpMul {
					continue
				}
				for _, src := range instr.Srcs {
					if definedByDivOrSqrt(mod, fn, src, offset) {
						flagged = true
						break
					}
				}
				if flagged {
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
	return &DetectContent{Severity: SeverityMedium, Kind: KindPrecisionLoss, Result: result}
}

func definedByDivOrSqrt(mod *pkgregistry.Module, fn *sbir.FunctionInfo, t sbir.Temp, before int) bool {
	off, ok := fn.NearestDefBefore(t, before)
	if !ok || off < 0 {
		return false
	}
	def := fn.InstrAt(off)
	if def == nil || def.Kind != sbir.ICall {
		return false
	}
	if def.Op.Kind == sbir.OpDiv {
		return true
	}
	if def.Op.Kind == sbir.OpFunction {
		return mod.Compiled.Pool.String(def.Op.CalleeFun.Sym) == "sqrt"
	}
	return false
}
