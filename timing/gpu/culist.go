package gpu

import (
	"container/list"

	"github.com/sarchlab/evgsim/timing/cu"
)

// cuList is a doubly linked list of compute units with O(1) membership test
// and removal.
type cuList struct {
	l        *list.List
	elements []*list.Element
}

func newCUList(numCUs int) *cuList {
	return &cuList{
		l:        list.New(),
		elements: make([]*list.Element, numCUs),
	}
}

func (l *cuList) contains(c *cu.ComputeUnit) bool {
	return l.elements[c.ID] != nil
}

func (l *cuList) pushBack(c *cu.ComputeUnit) {
	if l.contains(c) {
		return
	}
	l.elements[c.ID] = l.l.PushBack(c)
}

func (l *cuList) remove(c *cu.ComputeUnit) {
	e := l.elements[c.ID]
	if e == nil {
		return
	}
	l.l.Remove(e)
	l.elements[c.ID] = nil
}

func (l *cuList) front() *cu.ComputeUnit {
	e := l.l.Front()
	if e == nil {
		return nil
	}
	return e.Value.(*cu.ComputeUnit)
}

func (l *cuList) len() int {
	return l.l.Len()
}

func (l *cuList) ids() []int {
	ids := make([]int, 0, l.l.Len())
	for e := l.l.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value.(*cu.ComputeUnit).ID)
	}
	return ids
}

func (l *cuList) clear() {
	l.l.Init()
	for i := range l.elements {
		l.elements[i] = nil
	}
}
