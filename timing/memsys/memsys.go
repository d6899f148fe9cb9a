// Package memsys models the memories a compute unit talks to: the per compute
// unit local data share and the device-wide global memory hierarchy.
//
// Both models complete accesses asynchronously. The issuer passes a witness
// counter. Access increments it and the model decrements it when the access
// completes during a later Tick, so a witness of zero means every access
// issued against it has finished.
package memsys

// AccessKind tells whether an access reads or writes memory.
type AccessKind uint8

// Access kinds.
const (
	Load AccessKind = iota
	Store
)

func (k AccessKind) String() string {
	if k == Store {
		return "Store"
	}
	return "Load"
}

// AppendBlock appends the block containing addr unless blocks already holds
// it.
func AppendBlock(blocks []uint64, addr, blockSize uint64) []uint64 {
	block := addr / blockSize * blockSize
	for _, b := range blocks {
		if b == block {
			return blocks
		}
	}
	return append(blocks, block)
}
