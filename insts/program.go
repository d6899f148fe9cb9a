package insts

import (
	"errors"
	"fmt"
)

// Program is a kernel: a CF instruction list plus the clauses it triggers.
type Program struct {
	CF         []CFInst
	ALUClauses [][]ALUBundle
	TEXClauses [][]TEXInst
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{}
}

// AddCF appends a control-flow instruction.
func (p *Program) AddCF(inst CFInst) *Program {
	p.CF = append(p.CF, inst)
	return p
}

// AddALUClause appends an ALU clause and returns its index.
func (p *Program) AddALUClause(bundles ...ALUBundle) int {
	p.ALUClauses = append(p.ALUClauses, bundles)
	return len(p.ALUClauses) - 1
}

// AddTEXClause appends a TEX clause and returns its index.
func (p *Program) AddTEXClause(fetches ...TEXInst) int {
	p.TEXClauses = append(p.TEXClauses, fetches)
	return len(p.TEXClauses) - 1
}

// Validate checks that the program is well formed.
func (p *Program) Validate() error {
	if len(p.CF) == 0 {
		return errors.New("program has no CF instructions")
	}

	for i := range p.CF {
		if err := p.validateCF(i); err != nil {
			return err
		}
	}

	if !p.CF[len(p.CF)-1].EndOfProgram {
		return errors.New("last CF instruction must end the program")
	}

	for c, clause := range p.ALUClauses {
		for b := range clause {
			if err := validateBundle(&clause[b]); err != nil {
				return fmt.Errorf("ALU clause %d bundle %d: %w", c, b, err)
			}
		}
	}

	return nil
}

func (p *Program) validateCF(i int) error {
	inst := &p.CF[i]

	if inst.EndOfProgram && i != len(p.CF)-1 {
		return fmt.Errorf("CF %d: end of program before the last instruction", i)
	}

	switch inst.Op {
	case CFOpALUClause:
		if inst.Clause < 0 || inst.Clause >= len(p.ALUClauses) {
			return fmt.Errorf("CF %d: ALU clause %d out of range", i, inst.Clause)
		}
		if len(p.ALUClauses[inst.Clause]) == 0 {
			return fmt.Errorf("CF %d: ALU clause %d is empty", i, inst.Clause)
		}
	case CFOpTEXClause:
		if inst.Clause < 0 || inst.Clause >= len(p.TEXClauses) {
			return fmt.Errorf("CF %d: TEX clause %d out of range", i, inst.Clause)
		}
		if len(p.TEXClauses[inst.Clause]) == 0 {
			return fmt.Errorf("CF %d: TEX clause %d is empty", i, inst.Clause)
		}
	case CFOpMemWrite:
		if inst.Mem.Size == 0 {
			return fmt.Errorf("CF %d: global write has zero size", i)
		}
	case CFOpNop, CFOpBarrier:
	default:
		return fmt.Errorf("CF %d: unknown opcode %d", i, inst.Op)
	}

	return nil
}

func validateBundle(b *ALUBundle) error {
	if len(b.Insts) == 0 || len(b.Insts) > MaxSlots {
		return fmt.Errorf("bundle has %d instructions", len(b.Insts))
	}
	if b.Literals < 0 || b.Literals > MaxLiterals {
		return fmt.Errorf("bundle has %d literals", b.Literals)
	}

	var used [MaxSlots]bool
	for i := range b.Insts {
		inst := &b.Insts[i]
		if int(inst.Slot) >= MaxSlots {
			return fmt.Errorf("invalid slot %d", inst.Slot)
		}
		if used[inst.Slot] {
			return fmt.Errorf("slot %s used twice", inst.Slot)
		}
		used[inst.Slot] = true

		if len(inst.Srcs) > MaxALUSrcs {
			return fmt.Errorf("slot %s has %d sources", inst.Slot, len(inst.Srcs))
		}
		if err := validateOperand(inst.Dst); err != nil {
			return fmt.Errorf("slot %s: %w", inst.Slot, err)
		}
		for _, src := range inst.Srcs {
			if err := validateOperand(src); err != nil {
				return fmt.Errorf("slot %s: %w", inst.Slot, err)
			}
		}
	}

	return nil
}

func validateOperand(o Operand) error {
	if o.Kind == OperandGPR && (o.Index < 0 || o.Index >= NumGPRs) {
		return fmt.Errorf("register %d out of range", o.Index)
	}
	return nil
}

// NumGPRsUsed returns the highest GPR index referenced plus one.
func (p *Program) NumGPRsUsed() int {
	n := 0
	use := func(o Operand) {
		if o.Kind == OperandGPR && o.Index+1 > n {
			n = o.Index + 1
		}
	}

	for _, clause := range p.ALUClauses {
		for _, b := range clause {
			for _, inst := range b.Insts {
				use(inst.Dst)
				for _, src := range inst.Srcs {
					use(src)
				}
			}
		}
	}

	for _, clause := range p.TEXClauses {
		for _, inst := range clause {
			use(GPR(inst.Dst))
			use(GPR(inst.Src))
		}
	}

	return n
}
