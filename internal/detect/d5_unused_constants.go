package detect

import (
	"fmt"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// UnusedConstants flags a constant-pool entry no raw LdConst ever
// references. This walks the module's raw bytecode (FunctionDef.Code),
// not the lifted SBIR: the lifter's own ILoad only ever appears where a
// LdConst was already consumed, so scanning SBIR instead would just prove
// the same thing with extra steps — but reaching for the raw form also
// means a constant referenced only from a function the lifter dropped
// (empty-body native stubs aside) still counts as used.
type UnusedConstants struct{}

func (UnusedConstants) Kind() Kind { return KindUnusedConstants }

func (UnusedConstants) Run(pkg *pkgregistry.Package) *DetectContent {
	result := map[string][]string{}
	for _, mod := range pkg.GetAll() {
		used := make(map[int]bool)
		for _, def := range mod.Compiled.FunctionDefs {
			for _, src := range def.Code {
				if src.Op == sbir.SLdConst {
					used[src.ConstIdx] = true
				}
			}
		}
		var findings []string
		for idx, entry := range mod.Compiled.ConstantPool {
			if used[idx] {
				continue
			}
			findings = append(findings, fmt.Sprintf("const#%d = %s", idx, displayConstantEntry(entry)))
		}
		if len(findings) > 0 {
			result[mod.Name] = findings
		}
	}
	return &DetectContent{Severity: SeverityLow, Kind: KindUnusedConstants, Result: result}
}

func displayConstantEntry(entry sbir.ConstantEntry) string {
	c, err := sbir.DeserializeConstant(entry.Type, entry.Bytes)
	if err != nil {
		return "?const"
	}
	if u, ok := movetype.UintOf(c); ok {
		return fmt.Sprintf("%d", u.Uint64())
	}
	switch c.Tag {
	case movetype.ConstBool:
		return fmt.Sprintf("%v", c.Bool)
	case movetype.ConstAddress:
		return fmt.Sprintf("%x", c.Address)
	default:
		return "const"
	}
}
