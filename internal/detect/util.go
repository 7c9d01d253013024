package detect

import (
	"sort"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// sortedUnique returns ss sorted with duplicates removed, leaving ss
// itself untouched.
func sortedUnique(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// funcName resolves a lifted function's display name via its owning
// module's own pool.
func funcName(mod *pkgregistry.Module, fn *sbir.FunctionInfo) string {
	return mod.Compiled.Pool.String(fn.Name)
}
