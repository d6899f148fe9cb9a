package insts

import (
	"fmt"
	"strings"
)

// Format returns a one-line assembly-like rendering of an instruction.
func Format(inst Inst) string {
	switch i := inst.(type) {
	case *CFInst:
		return formatCF(i)
	case *ALUBundle:
		return formatBundle(i)
	case *TEXInst:
		return formatTEX(i)
	default:
		return fmt.Sprintf("<unknown %T>", inst)
	}
}

func formatCF(i *CFInst) string {
	var s string
	switch i.Op {
	case CFOpNop:
		s = "NOP"
	case CFOpALUClause:
		s = fmt.Sprintf("ALU ADDR(%d)", i.Clause)
	case CFOpTEXClause:
		s = fmt.Sprintf("TEX ADDR(%d)", i.Clause)
	case CFOpMemWrite:
		s = fmt.Sprintf("MEM_RAT_CACHELESS_STORE_RAW [0x%x+%d*id], %d",
			i.Mem.Base, i.Mem.Stride, i.Mem.Size)
	case CFOpBarrier:
		s = "GROUP_BARRIER"
	default:
		s = fmt.Sprintf("CF_OP(%d)", i.Op)
	}

	if i.EndOfProgram {
		s += " END_OF_PROGRAM"
	}
	return s
}

func formatBundle(b *ALUBundle) string {
	parts := make([]string, 0, len(b.Insts))
	for idx := range b.Insts {
		parts = append(parts, formatALU(&b.Insts[idx]))
	}
	return strings.Join(parts, " | ")
}

func formatALU(i *ALUInst) string {
	srcs := make([]string, 0, len(i.Srcs))
	for _, src := range i.Srcs {
		srcs = append(srcs, formatOperand(src))
	}

	switch i.Op {
	case ALUOpLDSRead:
		return fmt.Sprintf("%s: LDS_READ_RET %s", i.Slot, strings.Join(srcs, ", "))
	case ALUOpLDSWrite:
		return fmt.Sprintf("%s: LDS_WRITE %s", i.Slot, strings.Join(srcs, ", "))
	default:
		return fmt.Sprintf("%s: OP %s, %s",
			i.Slot, formatOperand(i.Dst), strings.Join(srcs, ", "))
	}
}

func formatOperand(o Operand) string {
	switch o.Kind {
	case OperandGPR:
		return fmt.Sprintf("R%d", o.Index)
	case OperandPV:
		return "PV"
	case OperandPS:
		return "PS"
	case OperandLDSQueue:
		return "QA.pop"
	case OperandConst:
		return fmt.Sprintf("KC0[%d]", o.Index)
	case OperandLiteral:
		return fmt.Sprintf("L%d", o.Index)
	default:
		return "__"
	}
}

func formatTEX(i *TEXInst) string {
	op := "VFETCH"
	if i.Op == TEXOpSample {
		op = "SAMPLE"
	}
	return fmt.Sprintf("%s R%d, R%d, [0x%x+%d*id], %d",
		op, i.Dst, i.Src, i.Mem.Base, i.Mem.Stride, i.Mem.Size)
}
