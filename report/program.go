package report

import (
	"fmt"
	"io"

	"github.com/xlab/treeprint"

	"github.com/sarchlab/evgsim/insts"
)

// ProgramTree renders a program as a tree. Every CF instruction that
// triggers a clause has the clause instructions as children. ALU bundles that
// touch local memory carry a tag.
func ProgramTree(name string, p *insts.Program) treeprint.Tree {
	tree := treeprint.NewWithRoot(name)

	for i := range p.CF {
		cf := &p.CF[i]
		line := fmt.Sprintf("%02d %s", i, insts.Format(cf))

		switch cf.Op {
		case insts.CFOpALUClause:
			branch := tree.AddBranch(line)
			for j := range p.ALUClauses[cf.Clause] {
				b := &p.ALUClauses[cf.Clause][j]
				text := fmt.Sprintf("%04d %s", j, insts.Format(b))
				if tag := ldsTag(b); tag != "" {
					branch.AddMetaNode(tag, text)
				} else {
					branch.AddNode(text)
				}
			}
		case insts.CFOpTEXClause:
			branch := tree.AddBranch(line)
			for j := range p.TEXClauses[cf.Clause] {
				branch.AddNode(fmt.Sprintf("%04d %s", j,
					insts.Format(&p.TEXClauses[cf.Clause][j])))
			}
		default:
			tree.AddNode(line)
		}
	}

	return tree
}

// ldsTag names the local memory traffic of a bundle.
func ldsTag(b *insts.ALUBundle) string {
	switch r, w := b.HasLDSRead(), b.HasLDSWrite(); {
	case r && w:
		return "lds read+write"
	case r:
		return "lds read"
	case w:
		return "lds write"
	}
	return ""
}

// PrintProgram writes the tree of a program.
func PrintProgram(w io.Writer, name string, p *insts.Program) {
	_, _ = fmt.Fprint(w, ProgramTree(name, p).String())
}
