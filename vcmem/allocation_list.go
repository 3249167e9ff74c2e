package vcmem

import "github.com/launchdarkly/go-jsonstream/v3/jwriter"

// allocationList is an intrusive doubly-linked list of live allocations,
// walked for statistics dumps. Synchronization is the owning Allocator's
// registry mutex.
type allocationList struct {
	head  *Allocation
	tail  *Allocation
	count int
}

func (l *allocationList) IsEmpty() bool {
	return l.count == 0
}

func (l *allocationList) Register(alloc *Allocation) {
	if l.count == 0 {
		l.head = alloc
		l.tail = alloc
		l.count = 1
		return
	}

	alloc.prev = l.tail
	l.tail.next = alloc
	l.tail = alloc
	l.count++
}

func (l *allocationList) Unregister(alloc *Allocation) {
	prev := alloc.prev
	next := alloc.next

	if prev != nil {
		prev.next = next
	} else {
		l.head = next
	}

	if next != nil {
		next.prev = prev
	} else {
		l.tail = prev
	}

	alloc.prev = nil
	alloc.next = nil
	l.count--
}

func (l *allocationList) BuildStatsString(writer *jwriter.Writer) {
	s := writer.Array()
	defer s.End()

	for alloc := l.head; alloc != nil; alloc = alloc.next {
		o := s.Object()
		alloc.printParameters(&o)
		o.End()
	}
}
