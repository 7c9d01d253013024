package sbir

import "github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"

// FunctionInfo is the lifter's output for one function: its SBIR code,
// the type of every temp it introduces, and the bookkeeping tables
// detectors rely on (spec.md §3 FunctionInfo).
type FunctionInfo struct {
	Idx        int
	Name       movetype.Symbol
	ArgsCount  int
	Visibility Visibility
	IsEntry    bool
	IsNative   bool

	Code          []Instr
	LocalTypes    []movetype.Type // indexed by Temp
	LocationTable map[AttrId]Loc

	// DefOffsets[t] / UseOffsets[t] are sorted code offsets where temp t
	// is written / read, respectively.
	DefOffsets map[Temp][]int
	UseOffsets map[Temp][]int
}

// NearestDefBefore returns the code offset of the definition of t closest
// to, but not after, offset. ok is false if t has no definition at or
// before offset (true for parameters, whose "definition" is the function
// entry itself).
func (f *FunctionInfo) NearestDefBefore(t Temp, offset int) (int, bool) {
	defs := f.DefOffsets[t]
	best := -1
	for _, d := range defs {
		if d <= offset && d > best {
			best = d
		}
	}
	if best >= 0 {
		return best, true
	}
	if int(t) < f.ArgsCount {
		return -1, true
	}
	return -1, false
}

// InstrAt returns the instruction at a definition offset previously
// returned by NearestDefBefore, or nil if offset is the synthetic -1
// "parameter" definition.
func (f *FunctionInfo) InstrAt(offset int) *Instr {
	if offset < 0 || offset >= len(f.Code) {
		return nil
	}
	return &f.Code[offset]
}
