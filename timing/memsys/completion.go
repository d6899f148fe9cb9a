package memsys

import "github.com/sarchlab/akita/v4/sim"

// completion decrements a witness when its cycle arrives.
type completion struct {
	time    sim.VTimeInSec
	cycle   uint64
	cuID    int
	witness *int
}

func (c *completion) Time() sim.VTimeInSec { return c.time }
func (c *completion) Handler() sim.Handler { return nil }
func (c *completion) IsSecondary() bool    { return false }

type completionQueue struct {
	queue *sim.EventQueueImpl
	freq  sim.Freq
	spare []*completion
}

func newCompletionQueue(freq sim.Freq) *completionQueue {
	return &completionQueue{
		queue: sim.NewEventQueue(),
		freq:  freq,
	}
}

func (q *completionQueue) push(cycle uint64, cuID int, witness *int) {
	var c *completion
	if n := len(q.spare); n > 0 {
		c = q.spare[n-1]
		q.spare = q.spare[:n-1]
	} else {
		c = &completion{}
	}

	c.time = sim.VTimeInSec(float64(cycle) / float64(q.freq))
	c.cycle = cycle
	c.cuID = cuID
	c.witness = witness

	q.queue.Push(c)
}

// popDue removes the earliest completion due at or before now.
func (q *completionQueue) popDue(now uint64) (cuID int, witness *int, ok bool) {
	if q.queue.Len() == 0 {
		return 0, nil, false
	}

	c := q.queue.Peek().(*completion)
	if c.cycle > now {
		return 0, nil, false
	}

	q.queue.Pop()
	cuID, witness = c.cuID, c.witness
	c.witness = nil
	q.spare = append(q.spare, c)

	return cuID, witness, true
}

func (q *completionQueue) len() int {
	return q.queue.Len()
}
