// Package moduleio is the CLI's collaborator-level loader: it turns a
// directory of JSON-encoded module descriptions into the
// already-deserialized sbir.CompiledModule values the core analyzer
// consumes. The core itself never parses the external VM's real binary
// format (spec.md treats that deserializer as out of scope); this package
// stands in for "whatever produced the CompiledModule" so the CLI has
// something concrete to read from disk.
package moduleio

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// ModuleJSON is the on-disk shape of one compiled module. Symbols are
// spelled out as plain strings rather than interned movetype.Symbol
// values, since a Symbol only means something relative to the Pool that
// produced it; Load interns them into a fresh Pool as it builds the
// CompiledModule.
type ModuleJSON struct {
	Address       string           `json:"address"`
	Name          string           `json:"name"`
	ModuleHandles []string         `json:"module_handles"`
	Functions     []FunctionJSON   `json:"functions"`
	Structs       []StructJSON     `json:"structs"`
	FieldHandles  []FieldHandleJSON `json:"field_handles"`
	Constants     []ConstantJSON   `json:"constants"`
}

type TypeJSON struct {
	Kind string `json:"kind"` // bool,u8,u16,u32,u64,u128,u256,address,signer,tuple,vector,ref,mutref,struct,typeparam

	Elems []TypeJSON `json:"elems,omitempty"` // tuple members, or the single vector/ref element

	Module     int        `json:"module,omitempty"`      // struct: index into ModuleHandles
	StructName string     `json:"struct_name,omitempty"` // struct: name within that module
	TypeArgs   []TypeJSON `json:"type_args,omitempty"`   // struct: instantiation

	ParamIndex int `json:"param_index,omitempty"` // typeparam
}

type FunctionHandleFields struct {
	Module     int        `json:"module"`
	Name       string     `json:"name"`
	Parameters []TypeJSON `json:"parameters"`
	Returns    []TypeJSON `json:"returns"`
	TypeParams int        `json:"type_params"`
}

type FunctionJSON struct {
	Handle     FunctionHandleFields `json:"handle"`
	IsNative   bool                 `json:"is_native"`
	IsEntry    bool                 `json:"is_entry"`
	Visibility string               `json:"visibility"` // private,public,friend
	Locals     []TypeJSON           `json:"locals"`
	Code       []SourceInstrJSON    `json:"code"`
}

type SourceInstrJSON struct {
	Op            string     `json:"op"`
	Offset        int        `json:"offset,omitempty"`
	LocalIdx      int        `json:"local_idx,omitempty"`
	ConstIdx      int        `json:"const_idx,omitempty"`
	FuncIdx       int        `json:"func_idx,omitempty"`
	StructIdx     int        `json:"struct_idx,omitempty"`
	FieldIdx      int        `json:"field_idx,omitempty"`
	VecCount      int        `json:"vec_count,omitempty"`
	ElemType      *TypeJSON  `json:"elem_type,omitempty"`
	TypeArgs      []TypeJSON `json:"type_args,omitempty"`
	FieldTypeArgs []TypeJSON `json:"field_type_args,omitempty"`
}

type StructJSON struct {
	Name       string     `json:"name"`
	Module     int        `json:"module"`
	TypeParams int        `json:"type_params"`
	Fields     []TypeJSON `json:"fields"`
}

type FieldHandleJSON struct {
	StructName string   `json:"struct_name"`
	Module     int      `json:"module"`
	Offset     int      `json:"offset"`
	Type       TypeJSON `json:"type"`
}

type ConstantJSON struct {
	Type TypeJSON `json:"type"`
	// Bytes is the raw, still-undeserialized constant-pool payload,
	// hex-encoded (little-endian, ULEB128-length-prefixed for vectors,
	// per spec.md's bit-exact deserialization rule).
	Bytes string `json:"bytes"`
}

// Load reads one JSON module file and returns its display name
// ("addr::name", the key pkgregistry.Package uses) plus the
// sbir.CompiledModule built from it.
func Load(path string) (string, *sbir.CompiledModule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", nil, errors.Wrapf(err, "moduleio: reading %s", path)
	}
	var mj ModuleJSON
	if err := json.Unmarshal(raw, &mj); err != nil {
		return "", nil, errors.Wrapf(err, "moduleio: parsing %s", path)
	}
	return build(mj)
}

// LoadDir reads every *.json file directly under dir (sorted by filename,
// for deterministic registration order) and registers each into a fresh
// Package. The caller is responsible for calling Freeze once every module
// it needs to cross-reference has been added.
func LoadDir(dir string) (*pkgregistry.Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "moduleio: reading directory %s", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	pkg := pkgregistry.New()
	for _, name := range names {
		modName, cm, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if err := pkg.Add(modName, cm); err != nil {
			return nil, err
		}
	}
	return pkg, nil
}

func build(mj ModuleJSON) (string, *sbir.CompiledModule, error) {
	pool := movetype.NewPool()

	addrBytes, err := decodeAddress(mj.Address)
	if err != nil {
		return "", nil, err
	}

	structSym := make(map[string]movetype.Symbol, len(mj.Structs))
	structDefs := make([]sbir.StructDef, len(mj.Structs))
	for i, s := range mj.Structs {
		sym := pool.Intern(s.Name)
		structSym[s.Name] = sym
		fields := make([]movetype.Type, len(s.Fields))
		for j, f := range s.Fields {
			t, err := toType(pool, structSym, f)
			if err != nil {
				return "", nil, errors.Wrapf(err, "moduleio: struct %s field %d", s.Name, j)
			}
			fields[j] = t
		}
		structDefs[i] = sbir.StructDef{
			Id:         movetype.StructId{Sym: sym},
			Module:     movetype.ModuleId(s.Module),
			TypeParams: s.TypeParams,
			Fields:     fields,
		}
	}

	fieldHandles := make([]sbir.FieldHandle, len(mj.FieldHandles))
	for i, fh := range mj.FieldHandles {
		sym, ok := structSym[fh.StructName]
		if !ok {
			return "", nil, errors.Errorf("moduleio: field handle %d references unknown struct %q", i, fh.StructName)
		}
		t, err := toType(pool, structSym, fh.Type)
		if err != nil {
			return "", nil, errors.Wrapf(err, "moduleio: field handle %d", i)
		}
		fieldHandles[i] = sbir.FieldHandle{
			Struct: movetype.StructId{Sym: sym},
			Module: movetype.ModuleId(fh.Module),
			Offset: fh.Offset,
			Type:   t,
		}
	}

	handles := make([]sbir.FunctionHandle, len(mj.Functions))
	defs := make([]sbir.FunctionDef, len(mj.Functions))
	for i, fn := range mj.Functions {
		fname := pool.Intern(fn.Handle.Name)
		params := make([]movetype.Type, len(fn.Handle.Parameters))
		for j, p := range fn.Handle.Parameters {
			t, err := toType(pool, structSym, p)
			if err != nil {
				return "", nil, errors.Wrapf(err, "moduleio: function %s parameter %d", fn.Handle.Name, j)
			}
			params[j] = t
		}
		returns := make([]movetype.Type, len(fn.Handle.Returns))
		for j, r := range fn.Handle.Returns {
			t, err := toType(pool, structSym, r)
			if err != nil {
				return "", nil, errors.Wrapf(err, "moduleio: function %s return %d", fn.Handle.Name, j)
			}
			returns[j] = t
		}
		handles[i] = sbir.FunctionHandle{
			Module:     movetype.ModuleId(fn.Handle.Module),
			Name:       fname,
			Parameters: params,
			Returns:    returns,
			TypeParams: fn.Handle.TypeParams,
		}

		locals := make([]movetype.Type, len(fn.Locals))
		for j, l := range fn.Locals {
			t, err := toType(pool, structSym, l)
			if err != nil {
				return "", nil, errors.Wrapf(err, "moduleio: function %s local %d", fn.Handle.Name, j)
			}
			locals[j] = t
		}

		code := make([]sbir.SourceInstr, len(fn.Code))
		for j, ci := range fn.Code {
			instr, err := toSourceInstr(pool, structSym, ci)
			if err != nil {
				return "", nil, errors.Wrapf(err, "moduleio: function %s instruction %d", fn.Handle.Name, j)
			}
			code[j] = instr
		}

		defs[i] = sbir.FunctionDef{
			HandleIdx:  i,
			Name:       fname,
			IsNative:   fn.IsNative,
			IsEntry:    fn.IsEntry,
			Visibility: toVisibility(fn.Visibility),
			Locals:     locals,
			Code:       code,
		}
	}

	constants := make([]sbir.ConstantEntry, len(mj.Constants))
	for i, c := range mj.Constants {
		t, err := toType(pool, structSym, c.Type)
		if err != nil {
			return "", nil, errors.Wrapf(err, "moduleio: constant %d", i)
		}
		raw, err := hex.DecodeString(c.Bytes)
		if err != nil {
			return "", nil, errors.Wrapf(err, "moduleio: constant %d bytes", i)
		}
		constants[i] = sbir.ConstantEntry{Type: t, Bytes: raw}
	}

	modSym := pool.Intern(mj.Name)
	cm := &sbir.CompiledModule{
		Address:         addrBytes,
		Name:            modSym,
		Pool:            pool,
		ModuleHandles:   mj.ModuleHandles,
		FunctionHandles: handles,
		FunctionDefs:    defs,
		StructDefs:      structDefs,
		FieldHandles:    fieldHandles,
		ConstantPool:    constants,
	}

	displayName := mj.Name
	if len(mj.ModuleHandles) > 0 {
		displayName = mj.ModuleHandles[0]
	}
	return displayName, cm, nil
}

func decodeAddress(s string) ([32]byte, error) {
	var out [32]byte
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return out, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, errors.Wrapf(err, "moduleio: invalid address %q", s)
	}
	if len(b) > 32 {
		return out, errors.Errorf("moduleio: address %q longer than 32 bytes", s)
	}
	copy(out[32-len(b):], b)
	return out, nil
}

func toVisibility(s string) sbir.Visibility {
	switch s {
	case "public":
		return sbir.VisPublic
	case "friend":
		return sbir.VisFriend
	default:
		return sbir.VisPrivate
	}
}

func toType(pool *movetype.Pool, structSym map[string]movetype.Symbol, tj TypeJSON) (movetype.Type, error) {
	switch tj.Kind {
	case "bool":
		return movetype.PrimitiveType(movetype.Bool), nil
	case "u8":
		return movetype.PrimitiveType(movetype.U8), nil
	case "u16":
		return movetype.PrimitiveType(movetype.U16), nil
	case "u32":
		return movetype.PrimitiveType(movetype.U32), nil
	case "u64":
		return movetype.PrimitiveType(movetype.U64), nil
	case "u128":
		return movetype.PrimitiveType(movetype.U128), nil
	case "u256":
		return movetype.PrimitiveType(movetype.U256), nil
	case "address":
		return movetype.PrimitiveType(movetype.Address), nil
	case "signer":
		return movetype.PrimitiveType(movetype.Signer), nil
	case "tuple":
		elems := make([]movetype.Type, len(tj.Elems))
		for i, e := range tj.Elems {
			t, err := toType(pool, structSym, e)
			if err != nil {
				return movetype.Type{}, err
			}
			elems[i] = t
		}
		return movetype.TupleType(elems...), nil
	case "vector":
		if len(tj.Elems) != 1 {
			return movetype.Type{}, errors.New("moduleio: vector type needs exactly one elem")
		}
		elem, err := toType(pool, structSym, tj.Elems[0])
		if err != nil {
			return movetype.Type{}, err
		}
		return movetype.VectorType(elem), nil
	case "ref", "mutref":
		if len(tj.Elems) != 1 {
			return movetype.Type{}, errors.New("moduleio: reference type needs exactly one elem")
		}
		elem, err := toType(pool, structSym, tj.Elems[0])
		if err != nil {
			return movetype.Type{}, err
		}
		return movetype.ReferenceType(tj.Kind == "mutref", elem), nil
	case "struct":
		sym, ok := structSym[tj.StructName]
		if !ok {
			sym = pool.Intern(tj.StructName)
			structSym[tj.StructName] = sym
		}
		targs := make([]movetype.Type, len(tj.TypeArgs))
		for i, a := range tj.TypeArgs {
			t, err := toType(pool, structSym, a)
			if err != nil {
				return movetype.Type{}, err
			}
			targs[i] = t
		}
		return movetype.StructType(movetype.ModuleId(tj.Module), movetype.StructId{Sym: sym}, targs...), nil
	case "typeparam":
		return movetype.TypeParameter(tj.ParamIndex), nil
	default:
		return movetype.Type{}, errors.Errorf("moduleio: unknown type kind %q", tj.Kind)
	}
}

var sourceOpByName = map[string]sbir.SourceOp{
	"ld_u8": sbir.SLdU8, "ld_u16": sbir.SLdU16, "ld_u32": sbir.SLdU32,
	"ld_u64": sbir.SLdU64, "ld_u128": sbir.SLdU128, "ld_u256": sbir.SLdU256,
	"ld_true": sbir.SLdTrue, "ld_false": sbir.SLdFalse, "ld_const": sbir.SLdConst,
	"pop": sbir.SPop,
	"br_true": sbir.SBrTrue, "br_false": sbir.SBrFalse, "branch": sbir.SBranch,
	"st_loc": sbir.SStLoc, "ret": sbir.SRet, "abort": sbir.SAbort,
	"copy_loc": sbir.SCopyLoc, "move_loc": sbir.SMoveLoc,
	"imm_borrow_loc": sbir.SImmBorrowLoc, "mut_borrow_loc": sbir.SMutBorrowLoc, "freeze_ref": sbir.SFreezeRef,
	"imm_borrow_field": sbir.SImmBorrowField, "mut_borrow_field": sbir.SMutBorrowField,
	"imm_borrow_field_generic": sbir.SImmBorrowFieldGeneric, "mut_borrow_field_generic": sbir.SMutBorrowFieldGeneric,
	"read_ref": sbir.SReadRef, "write_ref": sbir.SWriteRef,
	"add": sbir.SAdd, "sub": sbir.SSub, "mul": sbir.SMul, "div": sbir.SDiv, "mod": sbir.SMod,
	"bit_or": sbir.SBitOr, "bit_and": sbir.SBitAnd, "xor": sbir.SXor, "shl": sbir.SShl, "shr": sbir.SShr,
	"lt": sbir.SLt, "gt": sbir.SGt, "le": sbir.SLe, "ge": sbir.SGe, "eq": sbir.SEq, "neq": sbir.SNeq,
	"and": sbir.SAnd, "or": sbir.SOr, "not": sbir.SNot,
	"cast_u8": sbir.SCastU8, "cast_u16": sbir.SCastU16, "cast_u32": sbir.SCastU32,
	"cast_u64": sbir.SCastU64, "cast_u128": sbir.SCastU128, "cast_u256": sbir.SCastU256,
	"call": sbir.SCall, "call_generic": sbir.SCallGeneric,
	"pack": sbir.SPack, "pack_generic": sbir.SPackGeneric, "unpack": sbir.SUnpack, "unpack_generic": sbir.SUnpackGeneric,
	"move_from": sbir.SMoveFrom, "move_from_generic": sbir.SMoveFromGeneric,
	"exists": sbir.SExists, "exists_generic": sbir.SExistsGeneric,
	"borrow_global": sbir.SBorrowGlobal, "borrow_global_generic": sbir.SBorrowGlobalGeneric,
	"mut_borrow_global": sbir.SMutBorrowGlobal, "mut_borrow_global_generic": sbir.SMutBorrowGlobalGeneric,
	"move_to": sbir.SMoveTo, "move_to_generic": sbir.SMoveToGeneric,
	"vec_len": sbir.SVecLen, "vec_imm_borrow": sbir.SVecImmBorrow, "vec_mut_borrow": sbir.SVecMutBorrow,
	"vec_push_back": sbir.SVecPushBack, "vec_pop_back": sbir.SVecPopBack, "vec_swap": sbir.SVecSwap,
	"vec_pack": sbir.SVecPack, "vec_unpack": sbir.SVecUnpack,
}

func toSourceInstr(pool *movetype.Pool, structSym map[string]movetype.Symbol, ci SourceInstrJSON) (sbir.SourceInstr, error) {
	op, ok := sourceOpByName[ci.Op]
	if !ok {
		return sbir.SourceInstr{}, errors.Errorf("moduleio: unknown opcode %q", ci.Op)
	}
	instr := sbir.SourceInstr{
		Op:        op,
		Offset:    ci.Offset,
		LocalIdx:  ci.LocalIdx,
		ConstIdx:  ci.ConstIdx,
		FuncIdx:   ci.FuncIdx,
		StructIdx: ci.StructIdx,
		FieldIdx:  ci.FieldIdx,
		VecCount:  ci.VecCount,
	}
	if ci.ElemType != nil {
		t, err := toType(pool, structSym, *ci.ElemType)
		if err != nil {
			return sbir.SourceInstr{}, err
		}
		instr.ElemType = t
	}
	for _, a := range ci.TypeArgs {
		t, err := toType(pool, structSym, a)
		if err != nil {
			return sbir.SourceInstr{}, err
		}
		instr.TypeArgs = append(instr.TypeArgs, t)
	}
	for _, a := range ci.FieldTypeArgs {
		t, err := toType(pool, structSym, a)
		if err != nil {
			return sbir.SourceInstr{}, err
		}
		instr.FieldTypeArgs = append(instr.FieldTypeArgs, t)
	}
	return instr, nil
}
