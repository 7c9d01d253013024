package detect

import (
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// UnnecessaryCast flags a CastU_N whose operand is already exactly N bits
// wide: the cast changes nothing but the temp it writes to.
type UnnecessaryCast struct{}

func (UnnecessaryCast) Kind() Kind { return KindUnnecessaryCast }

func (UnnecessaryCast) Run(pkg *pkgregistry.Package) *DetectContent {
	result := map[string][]string{}
	for _, mod := range pkg.GetAll() {
		var findings []string
		for _, lf := range mod.Functions {
			fn := lf.Info
			if fn.IsNative || len(fn.Code) == 0 {
				continue
			}
			flagged := false
			for _, instr := range fn.Code {
				if instr.Kind != sbir.ICall || !instr.Op.Kind.IsCast() {
					continue
				}
				srcType := fn.LocalTypes[instr.Srcs[0]]
				if srcType.Tag != movetype.TagPrimitive {
					continue
				}
				if srcType.Primitive.Bits() == instr.Op.Kind.CastBits() {
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
	return &DetectContent{Severity: SeverityLow, Kind: KindUnnecessaryCast, Result: result}
}
