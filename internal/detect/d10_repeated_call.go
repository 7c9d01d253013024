package detect

import (
	"fmt"
	"strings"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// RepeatedCall is the optional D10 detector: it flags two call sites to
// the same function, with equivalent arguments, within the same function
// body — a likely candidate for hoisting into a single call bound to a
// local.
//
// "Equivalent arguments" is tracked flow-insensitively over the whole
// function body via a union-find of temps, merged on every Assign
// (Copy/Move/Store) and every reference-forming op whose destination
// denotes the same underlying value as its source (BorrowLoc,
// BorrowGlobal, FreezeRef, ReadRef). A BorrowField joins the class of an
// earlier borrow of the same field offset from the same struct value, so
// borrows of different fields stay distinct. This is a deliberate
// simplification of a path-sensitive per-block walk: two branches of an if/else that both
// reassign a variable before calling into it would still be considered
// the same root here. Good enough for the common "copy-pasted call"
// smell this detector targets; a path-sensitive version is future work.
type RepeatedCall struct{}

func (RepeatedCall) Kind() Kind { return KindRepeatedCall }

func (RepeatedCall) Run(pkg *pkgregistry.Package) *DetectContent {
	result := map[string][]string{}
	for _, mod := range pkg.GetAll() {
		var findings []string
		for _, lf := range mod.Functions {
			fn := lf.Info
			if fn.IsNative || len(fn.Code) == 0 {
				continue
			}
			dsu := newUnionFind()
			fieldBorrows := make(map[string]sbir.Temp) // "structRoot.offset" -> first borrow of that field
			seen := make(map[string][]string)          // key -> callee names already seen under that key
			var repeats []string
			for _, instr := range fn.Code {
				switch instr.Kind {
				case sbir.IAssign:
					dsu.union(instr.Src, instr.Dst)
				case sbir.ICall:
					switch instr.Op.Kind {
					case sbir.OpBorrowLoc, sbir.OpBorrowGlobal, sbir.OpFreezeRef, sbir.OpReadRef:
						if len(instr.Srcs) > 0 && len(instr.Dsts) > 0 {
							dsu.union(instr.Srcs[0], instr.Dsts[0])
						}
					case sbir.OpBorrowField:
						if len(instr.Srcs) > 0 && len(instr.Dsts) > 0 {
							fk := fmt.Sprintf("%d.%d", dsu.find(instr.Srcs[0]), instr.Op.FieldOffset)
							if prev, ok := fieldBorrows[fk]; ok {
								dsu.union(prev, instr.Dsts[0])
							} else {
								fieldBorrows[fk] = instr.Dsts[0]
							}
						}
					case sbir.OpFunction:
						key := callSiteKey(mod, instr, dsu)
						calleeName := mod.Compiled.Pool.String(instr.Op.CalleeFun.Sym)
						if _, ok := seen[key]; ok {
							repeats = append(repeats, calleeName)
						}
						seen[key] = append(seen[key], calleeName)
					}
				}
			}
			if len(repeats) > 0 {
				findings = append(findings, fmt.Sprintf("%s(%s)", funcName(mod, fn), strings.Join(sortedUnique(repeats), ",")))
			}
		}
		if len(findings) > 0 {
			result[mod.Name] = findings
		}
	}
	return &DetectContent{Severity: SeverityLow, Kind: KindRepeatedCall, Result: result}
}

func callSiteKey(mod *pkgregistry.Module, instr sbir.Instr, dsu *unionFind) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%s", instr.Op.CalleeModule, mod.Compiled.Pool.String(instr.Op.CalleeFun.Sym))
	for _, s := range instr.Srcs {
		fmt.Fprintf(&b, ",%d", dsu.find(s))
	}
	return b.String()
}

// unionFind is a minimal disjoint-set over sbir.Temp, used to canonicalize
// "the same value under a different name" for D10's argument comparison.
type unionFind struct {
	parent map[sbir.Temp]sbir.Temp
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[sbir.Temp]sbir.Temp)}
}

func (u *unionFind) find(t sbir.Temp) sbir.Temp {
	p, ok := u.parent[t]
	if !ok {
		return t
	}
	if p == t {
		return t
	}
	root := u.find(p)
	u.parent[t] = root
	return root
}

func (u *unionFind) union(a, b sbir.Temp) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}
