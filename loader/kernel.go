// Package loader reads kernel descriptions from JSON files.
//
// A kernel file lists the control-flow program, its ALU and TEX clauses, the
// ND-range sizes, and optionally the kernel's static resource usage:
//
//	{
//	  "name": "scale",
//	  "global_size": 1024,
//	  "local_size": 64,
//	  "cf": [
//	    {"op": "tex", "clause": 0},
//	    {"op": "alu", "clause": 0},
//	    {"op": "mem_write", "mem": {"base": 8192, "stride": 4, "size": 4},
//	     "end_of_program": true}
//	  ],
//	  "alu_clauses": [[{"insts": [{"slot": "x", "dst": "R2", "srcs": ["R1", "KC0"]}]}]],
//	  "tex_clauses": [[{"dst": 1, "mem": {"base": 0, "stride": 4, "size": 4}}]]
//	}
//
// Operands are written the way the disassembler prints them: Rn, PV, PS,
// QA (the local memory return queue), KCn, and Ln.
package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/evgsim/emu"
	"github.com/sarchlab/evgsim/insts"
)

// Kernel is a loaded kernel ready to be launched.
type Kernel struct {
	Name       string
	Program    *insts.Program
	GlobalSize int
	LocalSize  int

	// RegistersPerWorkItem is 0 when the file does not set it. The
	// register usage is then derived from the program.
	RegistersPerWorkItem int
	LocalMemPerWorkGroup int
}

// NDRange splits the kernel into work-groups of wavefronts of the given size.
func (k *Kernel) NDRange(wavefrontSize int) (*emu.NDRange, error) {
	var opts []emu.NDRangeOption
	if k.RegistersPerWorkItem > 0 {
		opts = append(opts, emu.WithRegistersPerWorkItem(k.RegistersPerWorkItem))
	}
	if k.LocalMemPerWorkGroup > 0 {
		opts = append(opts, emu.WithLocalMemPerWorkGroup(k.LocalMemPerWorkGroup))
	}

	r, err := emu.NewNDRange(k.Program, k.GlobalSize, k.LocalSize, wavefrontSize, opts...)
	if err != nil {
		return nil, fmt.Errorf("kernel %s: %w", k.Name, err)
	}
	return r, nil
}

type kernelFile struct {
	Name                 string          `json:"name"`
	GlobalSize           int             `json:"global_size"`
	LocalSize            int             `json:"local_size"`
	RegistersPerWorkItem int             `json:"registers_per_work_item"`
	LocalMemPerWorkGroup int             `json:"local_mem_per_work_group"`
	CF                   []cfEntry       `json:"cf"`
	ALUClauses           [][]bundleEntry `json:"alu_clauses"`
	TEXClauses           [][]fetchEntry  `json:"tex_clauses"`
}

type cfEntry struct {
	Op           string           `json:"op"`
	Clause       int              `json:"clause"`
	Mem          insts.MemOperand `json:"mem"`
	EndOfProgram bool             `json:"end_of_program"`
}

type bundleEntry struct {
	Insts    []aluEntry `json:"insts"`
	Literals int        `json:"literals"`
}

type aluEntry struct {
	Op   string           `json:"op"`
	Slot string           `json:"slot"`
	Dst  string           `json:"dst"`
	Srcs []string         `json:"srcs"`
	LDS  insts.MemOperand `json:"lds"`
}

type fetchEntry struct {
	Op  string           `json:"op"`
	Dst int              `json:"dst"`
	Src int              `json:"src"`
	Mem insts.MemOperand `json:"mem"`
}

// Load reads a kernel file.
func Load(path string) (*Kernel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kernel file: %w", err)
	}

	k, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return k, nil
}

// Parse decodes a kernel description. Unknown fields are rejected.
func Parse(data []byte) (*Kernel, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var f kernelFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse kernel: %w", err)
	}

	prog, err := f.program()
	if err != nil {
		return nil, err
	}
	if err := prog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid program: %w", err)
	}

	if f.GlobalSize <= 0 || f.LocalSize <= 0 {
		return nil, fmt.Errorf("global_size and local_size must be > 0")
	}

	name := f.Name
	if name == "" {
		name = "kernel"
	}

	return &Kernel{
		Name:                 name,
		Program:              prog,
		GlobalSize:           f.GlobalSize,
		LocalSize:            f.LocalSize,
		RegistersPerWorkItem: f.RegistersPerWorkItem,
		LocalMemPerWorkGroup: f.LocalMemPerWorkGroup,
	}, nil
}

func (f *kernelFile) program() (*insts.Program, error) {
	prog := insts.NewProgram()

	for c, clause := range f.ALUClauses {
		bundles := make([]insts.ALUBundle, 0, len(clause))
		for b := range clause {
			bundle, err := clause[b].bundle()
			if err != nil {
				return nil, fmt.Errorf("ALU clause %d bundle %d: %w", c, b, err)
			}
			bundles = append(bundles, bundle)
		}
		prog.AddALUClause(bundles...)
	}

	for c, clause := range f.TEXClauses {
		fetches := make([]insts.TEXInst, 0, len(clause))
		for i := range clause {
			fetch, err := clause[i].fetch()
			if err != nil {
				return nil, fmt.Errorf("TEX clause %d fetch %d: %w", c, i, err)
			}
			fetches = append(fetches, fetch)
		}
		prog.AddTEXClause(fetches...)
	}

	for i := range f.CF {
		inst, err := f.CF[i].inst()
		if err != nil {
			return nil, fmt.Errorf("CF %d: %w", i, err)
		}
		prog.AddCF(inst)
	}

	return prog, nil
}

var cfOps = map[string]insts.CFOp{
	"nop":       insts.CFOpNop,
	"alu":       insts.CFOpALUClause,
	"tex":       insts.CFOpTEXClause,
	"mem_write": insts.CFOpMemWrite,
	"barrier":   insts.CFOpBarrier,
}

func (e *cfEntry) inst() (insts.CFInst, error) {
	op, ok := cfOps[e.Op]
	if !ok {
		return insts.CFInst{}, fmt.Errorf("unknown CF op %q", e.Op)
	}

	return insts.CFInst{
		Op:           op,
		Clause:       e.Clause,
		Mem:          e.Mem,
		EndOfProgram: e.EndOfProgram,
	}, nil
}

func (e *bundleEntry) bundle() (insts.ALUBundle, error) {
	b := insts.ALUBundle{Literals: e.Literals}
	for i := range e.Insts {
		inst, err := e.Insts[i].inst()
		if err != nil {
			return insts.ALUBundle{}, err
		}
		b.Insts = append(b.Insts, inst)
	}
	return b, nil
}

var aluOps = map[string]insts.ALUOp{
	"":          insts.ALUOpArith,
	"arith":     insts.ALUOpArith,
	"lds_read":  insts.ALUOpLDSRead,
	"lds_write": insts.ALUOpLDSWrite,
}

func (e *aluEntry) inst() (insts.ALUInst, error) {
	op, ok := aluOps[e.Op]
	if !ok {
		return insts.ALUInst{}, fmt.Errorf("unknown ALU op %q", e.Op)
	}

	slot, err := ParseSlot(e.Slot)
	if err != nil {
		return insts.ALUInst{}, err
	}

	inst := insts.ALUInst{Op: op, Slot: slot, LDS: e.LDS}

	if e.Dst != "" {
		if op != insts.ALUOpArith {
			return insts.ALUInst{}, fmt.Errorf("slot %s: LDS instructions have no destination", slot)
		}
		if inst.Dst, err = ParseOperand(e.Dst); err != nil {
			return insts.ALUInst{}, fmt.Errorf("slot %s: %w", slot, err)
		}
	}

	for _, s := range e.Srcs {
		src, err := ParseOperand(s)
		if err != nil {
			return insts.ALUInst{}, fmt.Errorf("slot %s: %w", slot, err)
		}
		inst.Srcs = append(inst.Srcs, src)
	}

	if inst.IsLDS() && inst.LDS.Size == 0 {
		return insts.ALUInst{}, fmt.Errorf("slot %s: LDS access has zero size", slot)
	}

	return inst, nil
}

func (e *fetchEntry) fetch() (insts.TEXInst, error) {
	var op insts.TEXOp
	switch e.Op {
	case "", "fetch":
		op = insts.TEXOpFetch
	case "sample":
		op = insts.TEXOpSample
	default:
		return insts.TEXInst{}, fmt.Errorf("unknown TEX op %q", e.Op)
	}

	if e.Mem.Size == 0 {
		return insts.TEXInst{}, fmt.Errorf("fetch has zero size")
	}

	return insts.TEXInst{Op: op, Dst: e.Dst, Src: e.Src, Mem: e.Mem}, nil
}
