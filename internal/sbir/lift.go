package sbir

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
)

// VectorModule is the reserved, synthetic module id vector operations are
// lowered against (spec.md §4.1: "Vector operations are lowered to calls
// against a well-known 'vector' module"). It never appears in a real
// module's handle table.
const VectorModule movetype.ModuleId = -1

const (
	vecLength     = "length"
	vecBorrow     = "borrow"
	vecBorrowMut  = "borrow_mut"
	vecPushBack   = "push_back"
	vecPopBack    = "pop_back"
	vecSwap       = "swap"
	vecEmpty      = "empty"
	vecDestroyEmpty = "destroy_empty"
)

// Lift converts every function definition in mod into a FunctionInfo, in
// definition order. Native functions are lifted as empty bodies.
func Lift(mod *CompiledModule) ([]*FunctionInfo, error) {
	out := make([]*FunctionInfo, 0, len(mod.FunctionDefs))
	for idx, def := range mod.FunctionDefs {
		fi, err := liftOne(mod, idx, def)
		if err != nil {
			return nil, errors.Wrapf(err, "sbir: lifting function %q", mod.Identifier(def.Name))
		}
		out = append(out, fi)
	}
	return out, nil
}

func liftOne(mod *CompiledModule, idx int, def FunctionDef) (*FunctionInfo, error) {
	handle := mod.FunctionHandles[def.HandleIdx]

	fi := &FunctionInfo{
		Idx:           idx,
		Name:          def.Name,
		ArgsCount:     len(handle.Parameters),
		Visibility:    def.Visibility,
		IsEntry:       def.IsEntry,
		IsNative:      def.IsNative,
		LocationTable: make(map[AttrId]Loc),
		DefOffsets:    make(map[Temp][]int),
		UseOffsets:    make(map[Temp][]int),
	}
	fi.LocalTypes = append(fi.LocalTypes, handle.Parameters...)
	fi.LocalTypes = append(fi.LocalTypes, def.Locals...)

	if def.IsNative || len(def.Code) == 0 {
		return fi, nil
	}

	lf := &lifter{
		mod:         mod,
		handle:      handle,
		fi:          fi,
		nextTemp:    Temp(len(fi.LocalTypes)),
		labelMap:    make(map[int]Label),
		fallthroughLabels: make(map[Label]bool),
	}
	lf.buildLabelMap(def.Code)
	for i, src := range def.Code {
		if l, ok := lf.labelMap[i]; ok {
			lf.append(Instr{Kind: ILabel, L: l})
		}
		if err := lf.lowerOne(i, src); err != nil {
			return nil, err
		}
	}
	eliminateFallthrough(lf)
	fi.Code = lf.code
	buildDefUse(fi)
	return fi, nil
}

type lifter struct {
	mod    *CompiledModule
	handle FunctionHandle
	fi     *FunctionInfo

	stack    []Temp
	nextTemp Temp
	code     []Instr

	labelMap    map[int]Label
	nextLabel   Label
	fallthroughLabels map[Label]bool

	nextAttr AttrId
}

func (lf *lifter) newTemp(t movetype.Type) Temp {
	idx := lf.nextTemp
	lf.nextTemp++
	lf.fi.LocalTypes = append(lf.fi.LocalTypes, t)
	return idx
}

func (lf *lifter) typeOf(t Temp) movetype.Type { return lf.fi.LocalTypes[t] }

func (lf *lifter) push(t Temp) { lf.stack = append(lf.stack, t) }

func (lf *lifter) pop() Temp {
	n := len(lf.stack)
	t := lf.stack[n-1]
	lf.stack = lf.stack[:n-1]
	return t
}

// popN pops n temps and returns them in original left-to-right order
// (spec.md's "pop-srcs-in-reverse" stack discipline).
func (lf *lifter) popN(n int) []Temp {
	out := make([]Temp, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = lf.pop()
	}
	return out
}

func (lf *lifter) append(instr Instr) { lf.code = append(lf.code, instr) }

func (lf *lifter) attr(src SourceInstr) AttrId {
	id := lf.nextAttr
	lf.nextAttr++
	lf.fi.LocationTable[id] = src.Loc
	return id
}

func (lf *lifter) labelFor(offset int) Label {
	if l, ok := lf.labelMap[offset]; ok {
		return l
	}
	l := lf.nextLabel
	lf.nextLabel++
	lf.labelMap[offset] = l
	return l
}

// buildLabelMap implements spec.md §4.1's first pass: a label is created
// for every branch target offset and for the instruction immediately
// after every conditional branch (the fall-through label).
func (lf *lifter) buildLabelMap(code []SourceInstr) {
	for i, inst := range code {
		switch inst.Op {
		case SBrTrue, SBrFalse:
			lf.labelFor(inst.Offset)
			ft := lf.labelFor(i + 1)
			lf.fallthroughLabels[ft] = true
		case SBranch:
			lf.labelFor(inst.Offset)
		}
	}
}

// tryJumpPeephole implements the Branch(off) peephole of spec.md §4.1: if
// the last two emitted instructions are a conditional Branch immediately
// followed by the fall-through Label whose target equals the branch's
// else-target, the jump is redundant — fold it into the branch's
// else-target instead of emitting a separate Jump.
func (lf *lifter) tryJumpPeephole(target Label) bool {
	n := len(lf.code)
	if n < 2 {
		return false
	}
	last := lf.code[n-1]
	prev := lf.code[n-2]
	if last.Kind != ILabel || prev.Kind != IBranch {
		return false
	}
	if prev.Else != last.L || !lf.fallthroughLabels[last.L] {
		return false
	}
	lf.code[n-2].Else = target
	lf.code = lf.code[:n-1]
	return true
}

func (lf *lifter) lowerOne(i int, src SourceInstr) error {
	at := lf.attr(src)
	switch src.Op {
	case SLdU8, SLdU16, SLdU32, SLdU64, SLdU128, SLdU256:
		c, kind := lf.loadIntConstant(src)
		fresh := lf.newTemp(movetype.PrimitiveType(kind))
		lf.append(Instr{Kind: ILoad, Attr: at, Dst: fresh, Const: c})
		lf.push(fresh)

	case SLdTrue, SLdFalse:
		fresh := lf.newTemp(movetype.PrimitiveType(movetype.Bool))
		lf.append(Instr{Kind: ILoad, Attr: at, Dst: fresh, Const: movetype.Constant{Tag: movetype.ConstBool, Bool: src.Op == SLdTrue}})
		lf.push(fresh)

	case SLdConst:
		entry := lf.mod.ConstantPool[src.ConstIdx]
		c, err := DeserializeConstant(entry.Type, entry.Bytes)
		if err != nil {
			return err
		}
		fresh := lf.newTemp(entry.Type)
		lf.append(Instr{Kind: ILoad, Attr: at, Dst: fresh, Const: c})
		lf.push(fresh)

	case SPop:
		top := lf.pop()
		lf.append(Instr{Kind: ICall, Attr: at, Op: Operation{Kind: OpDestroy}, Srcs: []Temp{top}})

	case SBrTrue, SBrFalse:
		cond := lf.pop()
		target := lf.labelFor(src.Offset)
		fall := lf.labelFor(i + 1)
		var thenL, elseL Label
		if src.Op == SBrTrue {
			thenL, elseL = target, fall
		} else {
			thenL, elseL = fall, target
		}
		lf.append(Instr{Kind: IBranch, Attr: at, Cond: cond, Then: thenL, Else: elseL})

	case SBranch:
		target := lf.labelFor(src.Offset)
		if !lf.tryJumpPeephole(target) {
			lf.append(Instr{Kind: IJump, Attr: at, L: target})
		}

	case SStLoc:
		top := lf.pop()
		lf.append(Instr{Kind: IAssign, Attr: at, Dst: Temp(src.LocalIdx), Src: top, AsgnKind: Store})

	case SRet:
		srcs := lf.popN(len(lf.handle.Returns))
		lf.append(Instr{Kind: IRet, Attr: at, RetSrcs: srcs})

	case SAbort:
		top := lf.pop()
		lf.append(Instr{Kind: IAbort, Attr: at, ErrSrc: top})

	case SCopyLoc, SMoveLoc:
		kind := Copy
		if src.Op == SMoveLoc {
			kind = Move
		}
		fresh := lf.newTemp(lf.typeOf(Temp(src.LocalIdx)))
		lf.append(Instr{Kind: IAssign, Attr: at, Dst: fresh, Src: Temp(src.LocalIdx), AsgnKind: kind})
		lf.push(fresh)

	case SImmBorrowLoc, SMutBorrowLoc:
		mut := src.Op == SMutBorrowLoc
		fresh := lf.newTemp(movetype.ReferenceType(mut, lf.typeOf(Temp(src.LocalIdx))))
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: Operation{Kind: OpBorrowLoc}, Srcs: []Temp{Temp(src.LocalIdx)}})
		lf.push(fresh)

	case SFreezeRef:
		op := lf.pop()
		mut, isRef := lf.typeOf(op).IsReference()
		if isRef && mut {
			fresh := lf.newTemp(movetype.ReferenceType(false, lf.typeOf(op).Elem()))
			lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: Operation{Kind: OpFreezeRef}, Srcs: []Temp{op}})
			lf.push(fresh)
		} else {
			lf.push(op)
		}

	case SImmBorrowField, SMutBorrowField, SImmBorrowFieldGeneric, SMutBorrowFieldGeneric:
		mut := src.Op == SMutBorrowField || src.Op == SMutBorrowFieldGeneric
		fh := lf.mod.FieldHandles[src.FieldIdx]
		structRef := lf.pop()
		fieldTy := fh.Type.Instantiate(src.FieldTypeArgs)
		fresh := lf.newTemp(movetype.ReferenceType(mut, fieldTy))
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: Operation{
			Kind: OpBorrowField, FieldModule: fh.Module, FieldStruct: fh.Struct,
			FieldTypeArgs: src.FieldTypeArgs, FieldOffset: fh.Offset,
		}, Srcs: []Temp{structRef}})
		lf.push(fresh)

	case SReadRef:
		ref := lf.pop()
		fresh := lf.newTemp(lf.typeOf(ref).Elem())
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: Operation{Kind: OpReadRef}, Srcs: []Temp{ref}})
		lf.push(fresh)

	case SWriteRef:
		val := lf.pop()
		ref := lf.pop()
		lf.append(Instr{Kind: ICall, Attr: at, Op: Operation{Kind: OpWriteRef}, Srcs: []Temp{ref, val}})

	case SAdd, SSub, SMul, SDiv, SMod, SBitOr, SBitAnd, SXor, SShl, SShr:
		rhs := lf.pop()
		lhs := lf.pop()
		fresh := lf.newTemp(lf.typeOf(lhs))
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: Operation{Kind: arithOpKind(src.Op)}, Srcs: []Temp{lhs, rhs}})
		lf.push(fresh)

	case SLt, SGt, SLe, SGe, SEq, SNeq, SAnd, SOr:
		rhs := lf.pop()
		lhs := lf.pop()
		fresh := lf.newTemp(movetype.PrimitiveType(movetype.Bool))
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: Operation{Kind: cmpOpKind(src.Op)}, Srcs: []Temp{lhs, rhs}})
		lf.push(fresh)

	case SNot:
		operand := lf.pop()
		fresh := lf.newTemp(movetype.PrimitiveType(movetype.Bool))
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: Operation{Kind: OpNot}, Srcs: []Temp{operand}})
		lf.push(fresh)

	case SCastU8, SCastU16, SCastU32, SCastU64, SCastU128, SCastU256:
		source := lf.pop()
		kind, prim := castOpKind(src.Op)
		fresh := lf.newTemp(movetype.PrimitiveType(prim))
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: Operation{Kind: kind}, Srcs: []Temp{source}})
		lf.push(fresh)

	case SCall, SCallGeneric:
		callee := lf.mod.FunctionHandles[src.FuncIdx]
		args := lf.popN(len(callee.Parameters))
		rets := make([]Temp, len(callee.Returns))
		for i, rt := range callee.Returns {
			rets[i] = lf.newTemp(rt.Instantiate(src.TypeArgs))
		}
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: rets, Op: Operation{
			Kind: OpFunction, CalleeModule: callee.Module, CalleeFun: movetype.FunId{Sym: callee.Name}, CalleeTypeArgs: src.TypeArgs,
		}, Srcs: args})
		for _, r := range rets {
			lf.push(r)
		}

	case SPack, SPackGeneric:
		sd := lf.mod.StructDefs[src.StructIdx]
		fields := lf.popN(len(sd.Fields))
		fresh := lf.newTemp(movetype.StructType(sd.Module, sd.Id, src.TypeArgs...))
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: Operation{Kind: OpPack, FieldStruct: sd.Id, FieldTypeArgs: src.TypeArgs}, Srcs: fields})
		lf.push(fresh)

	case SUnpack, SUnpackGeneric:
		sd := lf.mod.StructDefs[src.StructIdx]
		structVal := lf.pop()
		dsts := make([]Temp, len(sd.Fields))
		for i, ft := range sd.Fields {
			dsts[i] = lf.newTemp(ft.Instantiate(src.TypeArgs))
		}
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: dsts, Op: Operation{Kind: OpUnpack, FieldStruct: sd.Id, FieldTypeArgs: src.TypeArgs}, Srcs: []Temp{structVal}})
		for _, d := range dsts {
			lf.push(d)
		}

	case SMoveFrom, SMoveFromGeneric:
		sd := lf.mod.StructDefs[src.StructIdx]
		addr := lf.pop()
		fresh := lf.newTemp(movetype.StructType(sd.Module, sd.Id, src.TypeArgs...))
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: Operation{Kind: OpMoveFrom, FieldStruct: sd.Id, FieldTypeArgs: src.TypeArgs}, Srcs: []Temp{addr}})
		lf.push(fresh)

	case SExists, SExistsGeneric:
		addr := lf.pop()
		fresh := lf.newTemp(movetype.PrimitiveType(movetype.Bool))
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: Operation{Kind: OpExists, FieldStruct: lf.mod.StructDefs[src.StructIdx].Id, FieldTypeArgs: src.TypeArgs}, Srcs: []Temp{addr}})
		lf.push(fresh)

	case SBorrowGlobal, SBorrowGlobalGeneric, SMutBorrowGlobal, SMutBorrowGlobalGeneric:
		mut := src.Op == SMutBorrowGlobal || src.Op == SMutBorrowGlobalGeneric
		sd := lf.mod.StructDefs[src.StructIdx]
		addr := lf.pop()
		fresh := lf.newTemp(movetype.ReferenceType(mut, movetype.StructType(sd.Module, sd.Id, src.TypeArgs...)))
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: Operation{Kind: OpBorrowGlobal, FieldStruct: sd.Id, FieldTypeArgs: src.TypeArgs}, Srcs: []Temp{addr}})
		lf.push(fresh)

	case SMoveTo, SMoveToGeneric:
		sd := lf.mod.StructDefs[src.StructIdx]
		val := lf.pop()
		signer := lf.pop()
		lf.append(Instr{Kind: ICall, Attr: at, Op: Operation{Kind: OpMoveTo, FieldStruct: sd.Id, FieldTypeArgs: src.TypeArgs}, Srcs: []Temp{signer, val}})

	case SVecLen:
		ref := lf.pop()
		fresh := lf.newTemp(movetype.PrimitiveType(movetype.U64))
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: lf.vecOp(vecLength, src.ElemType), Srcs: []Temp{ref}})
		lf.push(fresh)

	case SVecImmBorrow, SVecMutBorrow:
		name := vecBorrow
		mut := src.Op == SVecMutBorrow
		if mut {
			name = vecBorrowMut
		}
		idx := lf.pop()
		ref := lf.pop()
		fresh := lf.newTemp(movetype.ReferenceType(mut, src.ElemType))
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: lf.vecOp(name, src.ElemType), Srcs: []Temp{ref, idx}})
		lf.push(fresh)

	case SVecPushBack:
		val := lf.pop()
		ref := lf.pop()
		lf.append(Instr{Kind: ICall, Attr: at, Op: lf.vecOp(vecPushBack, src.ElemType), Srcs: []Temp{ref, val}})

	case SVecPopBack:
		ref := lf.pop()
		fresh := lf.newTemp(src.ElemType)
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{fresh}, Op: lf.vecOp(vecPopBack, src.ElemType), Srcs: []Temp{ref}})
		lf.push(fresh)

	case SVecSwap:
		j := lf.pop()
		vi := lf.pop()
		ref := lf.pop()
		lf.append(Instr{Kind: ICall, Attr: at, Op: lf.vecOp(vecSwap, src.ElemType), Srcs: []Temp{ref, vi, j}})

	case SVecPack:
		lf.lowerVecPack(at, src)

	case SVecUnpack:
		lf.lowerVecUnpack(at, src)

	default:
		return errors.Errorf("sbir: unhandled source opcode %d", src.Op)
	}
	return nil
}

func (lf *lifter) vecOp(name string, elem movetype.Type) Operation {
	sym := lf.mod.Pool.Intern(name)
	return Operation{Kind: OpFunction, CalleeModule: VectorModule, CalleeFun: movetype.FunId{Sym: sym}, CalleeTypeArgs: []movetype.Type{elem}}
}

func (lf *lifter) lowerVecPack(at AttrId, src SourceInstr) {
	elems := lf.popN(src.VecCount)
	vecT := lf.newTemp(movetype.VectorType(src.ElemType))
	lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{vecT}, Op: lf.vecOp(vecEmpty, src.ElemType)})
	refT := lf.newTemp(movetype.ReferenceType(true, movetype.VectorType(src.ElemType)))
	lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{refT}, Op: Operation{Kind: OpBorrowLoc}, Srcs: []Temp{vecT}})
	for _, e := range elems {
		lf.append(Instr{Kind: ICall, Attr: at, Op: lf.vecOp(vecPushBack, src.ElemType), Srcs: []Temp{refT, e}})
	}
	lf.push(vecT)
}

func (lf *lifter) lowerVecUnpack(at AttrId, src SourceInstr) {
	vecT := lf.pop()
	refT := lf.newTemp(movetype.ReferenceType(true, movetype.VectorType(src.ElemType)))
	lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{refT}, Op: Operation{Kind: OpBorrowLoc}, Srcs: []Temp{vecT}})
	elems := make([]Temp, src.VecCount)
	for i := 0; i < src.VecCount; i++ {
		e := lf.newTemp(src.ElemType)
		lf.append(Instr{Kind: ICall, Attr: at, Dsts: []Temp{e}, Op: lf.vecOp(vecPopBack, src.ElemType), Srcs: []Temp{refT}})
		elems[i] = e
	}
	for i, j := 0, len(elems)-1; i < j; i, j = i+1, j-1 {
		elems[i], elems[j] = elems[j], elems[i]
	}
	for _, e := range elems {
		lf.push(e)
	}
}

func (lf *lifter) loadIntConstant(src SourceInstr) (movetype.Constant, movetype.PrimitiveKind) {
	switch src.Op {
	case SLdU8:
		return movetype.Constant{Tag: movetype.ConstU8, Int: movetype.U256FromUint64(uint64(src.LocalIdx))}, movetype.U8
	case SLdU16:
		return movetype.Constant{Tag: movetype.ConstU16, Int: movetype.U256FromUint64(uint64(src.LocalIdx))}, movetype.U16
	case SLdU32:
		return movetype.Constant{Tag: movetype.ConstU32, Int: movetype.U256FromUint64(uint64(src.LocalIdx))}, movetype.U32
	case SLdU64:
		return movetype.Constant{Tag: movetype.ConstU64, Int: movetype.U256FromUint64(uint64(src.LocalIdx))}, movetype.U64
	case SLdU128:
		return movetype.Constant{Tag: movetype.ConstU128, Int: movetype.U256FromUint64(uint64(src.LocalIdx))}, movetype.U128
	default:
		return movetype.Constant{Tag: movetype.ConstU256, Int: movetype.U256FromUint64(uint64(src.LocalIdx))}, movetype.U256Kind
	}
}

func arithOpKind(op SourceOp) OpKind {
	switch op {
	case SAdd:
		return OpAdd
	case SSub:
		return OpSub
	case SMul:
		return OpMul
	case SDiv:
		return OpDiv
	case SMod:
		return OpMod
	case SBitOr:
		return OpBitOr
	case SBitAnd:
		return OpBitAnd
	case SXor:
		return OpXor
	case SShl:
		return OpShl
	default:
		return OpShr
	}
}

func cmpOpKind(op SourceOp) OpKind {
	switch op {
	case SLt:
		return OpLt
	case SGt:
		return OpGt
	case SLe:
		return OpLe
	case SGe:
		return OpGe
	case SEq:
		return OpEq
	case SNeq:
		return OpNeq
	case SAnd:
		return OpAnd
	default:
		return OpOr
	}
}

func castOpKind(op SourceOp) (OpKind, movetype.PrimitiveKind) {
	switch op {
	case SCastU8:
		return OpCastU8, movetype.U8
	case SCastU16:
		return OpCastU16, movetype.U16
	case SCastU32:
		return OpCastU32, movetype.U32
	case SCastU64:
		return OpCastU64, movetype.U64
	case SCastU128:
		return OpCastU128, movetype.U128
	default:
		return OpCastU256, movetype.U256Kind
	}
}

// eliminateFallthrough is spec.md §4.1's post-pass: every basic block
// must end with a terminator, so a Label preceded by a non-branching
// instruction gets an explicit Jump inserted ahead of it.
func eliminateFallthrough(lf *lifter) {
	out := make([]Instr, 0, len(lf.code)+4)
	for _, instr := range lf.code {
		if instr.Kind == ILabel && len(out) > 0 {
			prev := out[len(out)-1]
			if !isTerminator(prev) {
				out = append(out, Instr{Kind: IJump, L: instr.L})
			}
		}
		out = append(out, instr)
	}
	lf.code = out
}

func isTerminator(i Instr) bool {
	switch i.Kind {
	case IJump, IBranch, IRet, IAbort:
		return true
	default:
		return false
	}
}

func buildDefUse(fi *FunctionInfo) {
	def := func(t Temp, offset int) {
		fi.DefOffsets[t] = append(fi.DefOffsets[t], offset)
	}
	use := func(t Temp, offset int) {
		fi.UseOffsets[t] = append(fi.UseOffsets[t], offset)
	}
	for offset, instr := range fi.Code {
		switch instr.Kind {
		case IAssign:
			def(instr.Dst, offset)
			use(instr.Src, offset)
		case ILoad:
			def(instr.Dst, offset)
		case ICall:
			for _, d := range instr.Dsts {
				def(d, offset)
			}
			for _, s := range instr.Srcs {
				use(s, offset)
			}
			if instr.Abrt.Present {
				def(instr.Abrt.ErrTemp, offset)
			}
		case IRet:
			for _, s := range instr.RetSrcs {
				use(s, offset)
			}
		case IBranch:
			use(instr.Cond, offset)
		case IAbort:
			use(instr.ErrSrc, offset)
		}
	}
	for t := range fi.DefOffsets {
		sort.Ints(fi.DefOffsets[t])
	}
	for t := range fi.UseOffsets {
		sort.Ints(fi.UseOffsets[t])
	}
}
