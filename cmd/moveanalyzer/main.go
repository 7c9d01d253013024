// Command moveanalyzer is the CLI surface over the analyzer core: a
// printer subcommand for dumping derived artifacts during debugging, and
// a detector subcommand that runs the full detector suite and writes a
// JSON result. Neither subcommand is part of the core pipeline (spec.md
// treats CLI parsing and result serialization as rendering, not
// analysis) — this is glue, kept in the teacher's own manual-flag-loop
// style (std/compiler/main.go) rather than a flags/cobra dependency.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/detect"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/moduleio"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/result"
)

// resolveDepth is the inter-procedural call re-analysis depth passed to
// Package.Freeze, fixed at spec.md §4.6's documented entry depth.
const resolveDepth = 1

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s printer <modules-dir> [-out <dir>]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "       %s detector <modules-dir> [-sources <dir>] [-include-optional] [-out <file>]\n", os.Args[0])
}

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "printer":
		runPrinter(os.Args[2], os.Args[3:])
	case "detector":
		runDetector(os.Args[2], os.Args[3:])
	default:
		usage()
		os.Exit(1)
	}
}

func runDetector(modulesDir string, rest []string) {
	sourcesDir := ""
	outPath := "result.json"
	includeOptional := false

	i := 0
	for i < len(rest) {
		switch rest[i] {
		case "-sources":
			if i+1 >= len(rest) {
				fmt.Fprintln(os.Stderr, "detector: -sources needs a value")
				os.Exit(1)
			}
			sourcesDir = rest[i+1]
			i += 2
		case "-out":
			if i+1 >= len(rest) {
				fmt.Fprintln(os.Stderr, "detector: -out needs a value")
				os.Exit(1)
			}
			outPath = rest[i+1]
			i += 2
		case "-include-optional":
			includeOptional = true
			i++
		default:
			fmt.Fprintf(os.Stderr, "detector: unrecognized flag %q\n", rest[i])
			os.Exit(1)
		}
	}

	pkg := loadPackage(modulesDir)
	pkg.Freeze(resolveDepth)

	var locator result.SourceLocator
	if sourcesDir != "" {
		locator = scanSourceLocations(sourcesDir)
	}
	r := result.Aggregate(pkg, detect.All(includeOptional), locator)

	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "detector: marshaling result: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "detector: writing %s: %v\n", outPath, err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "detector: %d modules, %d pass, %d wrong, %dus\n",
		len(r.Modules), len(r.ModulesStatus[result.Pass]), len(r.ModulesStatus[result.Wrong]), r.TotalTimeUs)
	// Findings are data, not errors: exit 0 regardless of what was found.
}

func runPrinter(modulesDir string, rest []string) {
	outDir := "printer"
	i := 0
	for i < len(rest) {
		switch rest[i] {
		case "-out":
			if i+1 >= len(rest) {
				fmt.Fprintln(os.Stderr, "printer: -out needs a value")
				os.Exit(1)
			}
			outDir = rest[i+1]
			i += 2
		default:
			fmt.Fprintf(os.Stderr, "printer: unrecognized flag %q\n", rest[i])
			os.Exit(1)
		}
	}

	pkg := loadPackage(modulesDir)
	pkg.Freeze(resolveDepth)

	for _, mod := range pkg.GetAll() {
		modDir := safeJoin(outDir, mod.Name)
		if err := os.MkdirAll(modDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "printer: creating %s: %v\n", modDir, err)
			os.Exit(1)
		}
		writeFileOrDie(safeJoin(modDir, "signatures.txt"), printSignatures(mod))
		writeFileOrDie(safeJoin(modDir, "sbir.txt"), printSBIR(mod))
		writeFileOrDie(safeJoin(modDir, "cfg.txt"), printCFG(mod))
		writeFileOrDie(safeJoin(modDir, "callgraph.txt"), printCallGraph(mod))
		writeFileOrDie(safeJoin(modDir, "defuse.txt"), printDefUse(mod))
	}
	fmt.Fprintf(os.Stderr, "printer: wrote %d modules under %s\n", len(pkg.GetAll()), outDir)
}

func loadPackage(dir string) *pkgregistry.Package {
	pkg, err := moduleio.LoadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: loading modules: %v\n", os.Args[0], err)
		os.Exit(1)
	}
	return pkg
}

func writeFileOrDie(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "printer: writing %s: %v\n", path, err)
		os.Exit(1)
	}
}

// safeJoin joins parts with "/"; unlike filepath.Join it does not clean
// the result.
func safeJoin(parts ...string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out = out + "/" + p
	}
	return out
}
