package sbir

import "github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"

// SourceOp enumerates the stack-machine bytecodes the lifter consumes.
// This is the external VM's instruction set (spec.md §4.1 lowering
// table); the deserializer (out of scope) is responsible for producing
// SourceInstr values, the lifter's only job is lowering them.
type SourceOp int

const (
	SLdU8 SourceOp = iota
	SLdU16
	SLdU32
	SLdU64
	SLdU128
	SLdU256
	SLdTrue
	SLdFalse
	SLdConst

	SPop

	SBrTrue
	SBrFalse
	SBranch

	SStLoc
	SRet
	SAbort

	SCopyLoc
	SMoveLoc

	SImmBorrowLoc
	SMutBorrowLoc
	SFreezeRef

	SImmBorrowField
	SMutBorrowField
	SImmBorrowFieldGeneric
	SMutBorrowFieldGeneric

	SReadRef
	SWriteRef

	SAdd
	SSub
	SMul
	SDiv
	SMod
	SBitOr
	SBitAnd
	SXor
	SShl
	SShr

	SLt
	SGt
	SLe
	SGe
	SEq
	SNeq
	SAnd
	SOr
	SNot

	SCastU8
	SCastU16
	SCastU32
	SCastU64
	SCastU128
	SCastU256

	SCall
	SCallGeneric

	SPack
	SPackGeneric
	SUnpack
	SUnpackGeneric

	SMoveFrom
	SMoveFromGeneric
	SExists
	SExistsGeneric
	SBorrowGlobal
	SBorrowGlobalGeneric
	SMutBorrowGlobal
	SMutBorrowGlobalGeneric
	SMoveTo
	SMoveToGeneric

	SVecLen
	SVecImmBorrow
	SVecMutBorrow
	SVecPushBack
	SVecPopBack
	SVecSwap
	SVecPack
	SVecUnpack
)

// SourceInstr is one raw stack-machine instruction, as produced by the
// (out of scope) deserializer. Only the fields relevant to Op are
// meaningful.
type SourceInstr struct {
	Op SourceOp

	// Branch targets / jump offsets, expressed as code offsets in the
	// *source* instruction stream (the lifter translates these into
	// Labels during label-map construction).
	Offset int

	// StLoc/CopyLoc/MoveLoc/Borrow*Loc local-slot index. LdU8..LdU256
	// also carry their immediate value here.
	LocalIdx int

	// LdConst constant-pool index.
	ConstIdx int

	// Call/CallGeneric function-handle index.
	FuncIdx int

	// Pack/Unpack/MoveFrom/Exists/BorrowGlobal/MoveTo struct-definition
	// (or struct-def-instantiation, for the *Generic variants) index.
	StructIdx int

	// Borrow*Field(Generic) field-handle (or field-instantiation) index.
	FieldIdx int

	// VecPack/VecUnpack element count.
	VecCount int

	// Vec* operations' element type (normally recovered from the
	// instruction's generic instantiation by the deserializer).
	ElemType movetype.Type

	// CallGeneric/Pack*Generic/Unpack*Generic/Borrow*Generic/MoveFrom*Generic
	// /Exists*Generic/BorrowGlobal*Generic/MoveTo*Generic type-argument list.
	TypeArgs []movetype.Type

	// Borrow*FieldGeneric's field-instantiation type arguments, distinct
	// from TypeArgs because a generic field borrow carries the
	// surrounding struct's instantiation independently of any callee
	// instantiation on the same instruction stream.
	FieldTypeArgs []movetype.Type

	// Source location for this instruction, copied verbatim into the
	// emitted SBIR's AttrId→Loc table.
	Loc Loc
}

// Loc is an opaque source-location value threaded through unchanged.
type Loc struct {
	FileHash string
	Start    int
	End      int
}

// FunctionHandle describes a function's signature as seen from some
// module (possibly not the defining one).
type FunctionHandle struct {
	Module     movetype.ModuleId
	Name       movetype.Symbol
	Parameters []movetype.Type
	Returns    []movetype.Type
	TypeParams int
}

// Visibility mirrors the external VM's function visibility levels.
type Visibility int

const (
	VisPrivate Visibility = iota
	VisPublic
	VisFriend
)

// FunctionDef is a defined function (native or with a code body) within
// the module being lifted.
type FunctionDef struct {
	HandleIdx  int
	Name       movetype.Symbol
	IsNative   bool
	IsEntry    bool
	Visibility Visibility
	Locals     []movetype.Type // declared locals, following parameters
	Code       []SourceInstr
}

// FieldHandle names one field of a struct, with the struct's own type
// parameters still free (resolved via FieldType).
type FieldHandle struct {
	Struct movetype.StructId
	Module movetype.ModuleId
	Offset int
	Type   movetype.Type
}

// StructHandle/StructDef describe struct shape enough to type Pack/Unpack
// results and BorrowField targets.
type StructDef struct {
	Id         movetype.StructId
	Module     movetype.ModuleId
	TypeParams int
	Fields     []movetype.Type
}

// CompiledModule is the external, already-deserialized module value the
// core consumes (spec.md §6). Everything here is read-only and supplied
// by a collaborator outside this analyzer's scope.
type CompiledModule struct {
	Address [32]byte
	Name    movetype.Symbol
	Pool    *movetype.Pool

	// ModuleHandles maps a local ModuleId (an index into this table) to
	// the referenced module's display name ("addr::name"), the same key
	// package pkgregistry uses to address modules. Index 0 is
	// conventionally the module's own handle.
	ModuleHandles []string

	FunctionHandles []FunctionHandle
	FunctionDefs    []FunctionDef

	StructDefs   []StructDef
	FieldHandles []FieldHandle

	Signatures []movetype.Type // flattened signature pool, referenced by index where needed

	ConstantPool []ConstantEntry
}

// ConstantEntry is one raw constant-pool slot: declared type plus
// undeserialized bytes, per spec.md §6's bit-exact deserialization rule.
type ConstantEntry struct {
	Type  movetype.Type
	Bytes []byte
}

// SelfId returns the module's own (address, name).
func (m *CompiledModule) SelfId() ([32]byte, movetype.Symbol) {
	return m.Address, m.Name
}

// Identifier resolves a symbol to its text via the module's pool.
func (m *CompiledModule) Identifier(sym movetype.Symbol) string {
	return m.Pool.String(sym)
}
