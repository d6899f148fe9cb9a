package uop

import (
	"fmt"

	"github.com/sarchlab/evgsim/insts"
)

// Dep identifies a value a uop can produce: a general purpose register, one
// of the two ALU accumulators, or the local memory ordering token.
type Dep uint16

// Dependence slots.
const (
	DepNone Dep = 0
	DepGPR0 Dep = 1
	DepPV   Dep = DepGPR0 + insts.NumGPRs
	DepPS   Dep = DepPV + 1
	DepLDS  Dep = DepPS + 1
	NumDeps     = int(DepLDS) + 1
)

// GPRDep returns the slot of a general purpose register.
func GPRDep(index int) Dep {
	return DepGPR0 + Dep(index)
}

// OperandDep returns the slot an ALU operand reads or writes, or DepNone for
// operands that are never produced in flight.
func OperandDep(o insts.Operand) Dep {
	switch o.Kind {
	case insts.OperandGPR:
		return GPRDep(o.Index)
	case insts.OperandPV:
		return DepPV
	case insts.OperandPS:
		return DepPS
	case insts.OperandLDSQueue:
		return DepLDS
	default:
		return DepNone
	}
}

func (d Dep) String() string {
	switch {
	case d == DepNone:
		return "none"
	case d < DepPV:
		return fmt.Sprintf("r%d", int(d-DepGPR0))
	case d == DepPV:
		return "pv"
	case d == DepPS:
		return "ps"
	case d == DepLDS:
		return "lds"
	default:
		return fmt.Sprintf("dep(%d)", int(d))
	}
}
