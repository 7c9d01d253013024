// Package detect implements the bug/code-smell detector suite: a common
// Detector interface plus the nine required detectors (D1-D9) and one
// optional detector (D10), each consuming a frozen pkgregistry.Package and
// producing a per-module list of human-readable findings.
package detect

import (
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
)

// Kind names one detector, used both as a map key and as a display label
// in results.
type Kind string

const (
	KindUncheckedReturn     Kind = "D1"
	KindShiftOverflow       Kind = "D2"
	KindPrecisionLoss       Kind = "D3"
	KindInfiniteLoop        Kind = "D4"
	KindUnusedConstants     Kind = "D5"
	KindUnusedPrivateFunc   Kind = "D6"
	KindUnnecessaryCast     Kind = "D7"
	KindUnnecessaryBoolJudg Kind = "D8"
	KindRecursiveCall       Kind = "D9"
	KindRepeatedCall        Kind = "D10"
)

// Severity is a coarse triage label attached to a detector's findings.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

// DetectContent is one detector's output across every module of a package:
// module display name -> findings for that module. A module with no
// findings is absent from Result, not present with an empty slice.
type DetectContent struct {
	Severity Severity
	Kind     Kind
	Result   map[string][]string
}

// Detector runs one check over a frozen package and reports its findings.
// Run must not mutate pkg (pkgregistry.Package is read-only once frozen);
// D9's cycle enumeration clones the call graph it needs to mutate rather
// than touching pkg's own copy.
type Detector interface {
	Kind() Kind
	Run(pkg *pkgregistry.Package) *DetectContent
}

// DefaultPolicy returns the detector policy values spec.md leaves as an
// open tuning knob (currently just D6's "treat as an entrypoint" name
// prefix).
func DefaultPolicy() Policy {
	return Policy{EntrypointPrefix: "init"}
}

// Policy holds the few detector behaviors spec.md documents as policy
// rather than fixed logic.
type Policy struct {
	EntrypointPrefix string
}

// All returns every required detector (D1-D9), plus the optional D10 when
// includeOptional is set, in the fixed D1..D10 order the orchestrator
// reports them in.
func All(includeOptional bool) []Detector {
	ds := []Detector{
		UncheckedReturn{},
		ShiftOverflow{},
		PrecisionLoss{},
		InfiniteLoop{},
		UnusedConstants{},
		UnusedPrivateFunctions{Policy: DefaultPolicy()},
		UnnecessaryCast{},
		UnnecessaryBoolJudgment{},
		RecursiveCall{},
	}
	if includeOptional {
		ds = append(ds, RepeatedCall{})
	}
	return ds
}
