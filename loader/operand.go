package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/evgsim/insts"
)

// ParseSlot parses a VLIW slot name: x, y, z, w, or t.
func ParseSlot(s string) (insts.Slot, error) {
	switch strings.ToLower(s) {
	case "x":
		return insts.SlotX, nil
	case "y":
		return insts.SlotY, nil
	case "z":
		return insts.SlotZ, nil
	case "w":
		return insts.SlotW, nil
	case "t":
		return insts.SlotT, nil
	default:
		return 0, fmt.Errorf("unknown slot %q", s)
	}
}

// ParseOperand parses an ALU operand. Names are case-insensitive.
func ParseOperand(s string) (insts.Operand, error) {
	name := strings.ToUpper(strings.TrimSpace(s))

	switch name {
	case "PV":
		return insts.PV(), nil
	case "PS":
		return insts.PS(), nil
	case "QA", "QA.POP":
		return insts.LDSQueue(), nil
	}

	for _, p := range []struct {
		prefix string
		build  func(int) insts.Operand
	}{
		{"KC", insts.Const},
		{"R", insts.GPR},
		{"L", insts.Literal},
	} {
		rest, ok := strings.CutPrefix(name, p.prefix)
		if !ok {
			continue
		}

		index, err := strconv.Atoi(rest)
		if err != nil || index < 0 {
			return insts.Operand{}, fmt.Errorf("invalid operand %q", s)
		}
		return p.build(index), nil
	}

	return insts.Operand{}, fmt.Errorf("unknown operand %q", s)
}
