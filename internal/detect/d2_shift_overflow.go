package detect

import (
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// ShiftOverflow flags a Shl whose statically known bounds prove the result
// can exceed the destination type's width: the shifted value needs more
// than 256-leading_zeros(A) bits, and shifting it left by up to B more
// bits pushes significant bits past the destination's own width.
type ShiftOverflow struct{}

func (ShiftOverflow) Kind() Kind { return KindShiftOverflow }

func (ShiftOverflow) Run(pkg *pkgregistry.Package) *DetectContent {
	result := map[string][]string{}
	for _, mod := range pkg.GetAll() {
		var findings []string
		for i, lf := range mod.Functions {
			fn := lf.Info
			if fn.IsNative || len(fn.Code) == 0 {
				continue
			}
			dd, ok := mod.DataDep[i]
			if !ok {
				continue
			}
			flagged := false
			for _, instr := range fn.Code {
				if instr.Kind != sbir.ICall || instr.Op.Kind != sbir.OpShl {
					continue
				}
				a := dd.Nodes[instr.Srcs[0]]
				b := dd.Nodes[instr.Srcs[1]]
				if a == nil || b == nil || !a.HasMax || !b.HasMax {
					continue
				}
				dstMax, ok := movetype.TypeMax(fn.LocalTypes[instr.Dsts[0]])
				if !ok {
					continue
				}
				n := bitsOf(dstMax)
				usedBits := 256 - movetype.LeadingZeros256(a.Max)
				if usedBits+int(b.Max.Uint64()) > n {
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
	return &DetectContent{Severity: SeverityHigh, Kind: KindShiftOverflow, Result: result}
}

// bitsOf returns the bit width implied by a type's maximum magnitude
// (movetype.TypeMax(t) is always 2^bits-1 for an integer t).
func bitsOf(max movetype.U256) int {
	return 256 - movetype.LeadingZeros256(max)
}
