package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/cfg"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/movetype"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/pkgregistry"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

func printSignatures(mod *pkgregistry.Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s\n", mod.Name)
	for i, h := range mod.Compiled.FunctionHandles {
		params := typeList(h.Parameters)
		returns := typeList(h.Returns)
		fmt.Fprintf(&b, "  #%d %s(%s) -> (%s)  type_params=%d\n",
			i, mod.Compiled.Pool.String(h.Name), params, returns, h.TypeParams)
	}
	return b.String()
}

func typeList(ts []movetype.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func printSBIR(mod *pkgregistry.Module) string {
	var b strings.Builder
	for _, lf := range mod.Functions {
		fn := lf.Info
		fmt.Fprintf(&b, "func %s  native=%v entry=%v args=%d\n",
			mod.Compiled.Pool.String(fn.Name), fn.IsNative, fn.IsEntry, fn.ArgsCount)
		for off, instr := range fn.Code {
			fmt.Fprintf(&b, "  %4d: %s\n", off, formatInstr(mod, instr))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatInstr(mod *pkgregistry.Module, instr sbir.Instr) string {
	switch instr.Kind {
	case sbir.IAssign:
		return fmt.Sprintf("t%d := %s t%d", instr.Dst, assignKindName(instr.AsgnKind), instr.Src)
	case sbir.ILoad:
		return fmt.Sprintf("t%d := load %v", instr.Dst, instr.Const)
	case sbir.ICall:
		return fmt.Sprintf("%s := call %s(%s)", tempList(instr.Dsts), opName(mod, instr.Op), tempList(instr.Srcs))
	case sbir.IRet:
		return fmt.Sprintf("ret %s", tempList(instr.RetSrcs))
	case sbir.IBranch:
		return fmt.Sprintf("branch t%d ? L%d : L%d", instr.Cond, instr.Then, instr.Else)
	case sbir.IJump:
		return fmt.Sprintf("jump L%d", instr.L)
	case sbir.ILabel:
		return fmt.Sprintf("label L%d", instr.L)
	case sbir.IAbort:
		return fmt.Sprintf("abort t%d", instr.ErrSrc)
	case sbir.INop:
		return "nop"
	default:
		return "?instr"
	}
}

func assignKindName(k sbir.AssignKind) string {
	switch k {
	case sbir.Copy:
		return "copy"
	case sbir.Move:
		return "move"
	case sbir.Store:
		return "store"
	default:
		return "?"
	}
}

func tempList(ts []sbir.Temp) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = fmt.Sprintf("t%d", t)
	}
	return strings.Join(parts, ", ")
}

func opName(mod *pkgregistry.Module, op sbir.Operation) string {
	if op.Kind == sbir.OpFunction {
		return mod.Compiled.Pool.String(op.CalleeFun.Sym)
	}
	return fmt.Sprintf("%v", op.Kind)
}

func printCFG(mod *pkgregistry.Module) string {
	var b strings.Builder
	for _, lf := range mod.Functions {
		if lf.CFG == nil {
			continue
		}
		g := lf.CFG
		fmt.Fprintf(&b, "func %s\n", mod.Compiled.Pool.String(lf.Info.Name))
		for id, blk := range g.Blocks {
			bid := cfg.BlockId(id)
			kind := "basic"
			if blk.Kind == cfg.Dummy {
				kind = "dummy"
			}
			fmt.Fprintf(&b, "  block %d (%s) [%d,%d] -> %v\n", bid, kind, blk.Lower, blk.Upper, g.Successors(bid))
		}
		fmt.Fprintf(&b, "  entry=%d exit=%d reducible=%v fat_loops=%d\n", g.Entry, g.Exit, lf.Reducible, len(lf.FatLoops))
		b.WriteString("\n")
	}
	return b.String()
}

func printCallGraph(mod *pkgregistry.Module) string {
	var b strings.Builder
	g := mod.CallGraph
	nodes := append([]movetype.QualifiedId[movetype.FunId](nil), g.Nodes()...)
	sort.Slice(nodes, func(i, j int) bool {
		return mod.Compiled.Pool.String(nodes[i].Id.Sym) < mod.Compiled.Pool.String(nodes[j].Id.Sym)
	})
	for _, n := range nodes {
		for _, s := range g.Successors(n) {
			fmt.Fprintf(&b, "%d.%s -> %d.%s\n", n.Module, mod.Compiled.Pool.String(n.Id.Sym), s.Module, mod.Compiled.Pool.String(s.Id.Sym))
		}
	}
	return b.String()
}

func printDefUse(mod *pkgregistry.Module) string {
	var b strings.Builder
	for _, lf := range mod.Functions {
		fn := lf.Info
		fmt.Fprintf(&b, "func %s\n", mod.Compiled.Pool.String(fn.Name))
		temps := make([]int, 0, len(fn.LocalTypes))
		for t := range fn.LocalTypes {
			temps = append(temps, t)
		}
		sort.Ints(temps)
		for _, t := range temps {
			temp := sbir.Temp(t)
			fmt.Fprintf(&b, "  t%d : %s  defs=%v uses=%v\n", t, fn.LocalTypes[t].String(), fn.DefOffsets[temp], fn.UseOffsets[temp])
		}
		b.WriteString("\n")
	}
	return b.String()
}
