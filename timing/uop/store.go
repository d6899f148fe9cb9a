package uop

import "log"

const chunkSize = 64

// IDSource hands out device-wide uop identifiers.
type IDSource struct {
	next uint64
}

// Next returns a fresh identifier.
func (s *IDSource) Next() uint64 {
	s.next++
	return s.next
}

// Store is an arena of uops. Records are allocated in chunks that never move,
// so a *Uop stays valid until the uop is freed. Freed records are recycled
// through a free list.
type Store struct {
	chunks [][]Uop
	free   []Handle
	ids    *IDSource

	nextIDInCU uint64
	live       int
}

// NewStore creates an empty Store. The IDSource may be shared by several
// stores; a nil source gives the store its own.
func NewStore(ids *IDSource) *Store {
	if ids == nil {
		ids = &IDSource{}
	}
	return &Store{ids: ids}
}

// Alloc returns a cleared uop with fresh identifiers.
func (s *Store) Alloc() *Uop {
	if len(s.free) == 0 {
		s.grow()
	}

	h := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]

	u := s.at(h)
	u.reset()
	u.live = true
	u.ID = s.ids.Next()
	s.nextIDInCU++
	u.IDInCU = s.nextIDInCU

	s.live++

	return u
}

// Get returns the live uop referred to by h.
func (s *Store) Get(h Handle) *Uop {
	u := s.at(h)
	if !u.live {
		log.Panicf("uop handle %d is not live", h)
	}
	return u
}

// Free returns a uop to the arena.
func (s *Store) Free(u *Uop) {
	if !u.live {
		log.Panicf("uop %d freed twice", u.ID)
	}
	u.live = false
	s.free = append(s.free, u.handle)
	s.live--
}

// Live returns the number of allocated, not yet freed uops.
func (s *Store) Live() int {
	return s.live
}

func (s *Store) at(h Handle) *Uop {
	if h < 0 || int(h) >= len(s.chunks)*chunkSize {
		log.Panicf("uop handle %d out of range", h)
	}
	return &s.chunks[int(h)/chunkSize][int(h)%chunkSize]
}

func (s *Store) grow() {
	base := len(s.chunks) * chunkSize
	chunk := make([]Uop, chunkSize)
	s.chunks = append(s.chunks, chunk)

	for i := chunkSize - 1; i >= 0; i-- {
		chunk[i].handle = Handle(base + i)
		s.free = append(s.free, Handle(base+i))
	}
}
