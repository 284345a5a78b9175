package registry

// node is the intrusive doubly-linked-list hook embedded in every
// reference. A node belongs to at most one list at a time.
type node struct {
	prev, next *node
	owner      *refList
	ref        Reference
}

// refList is a circular doubly linked list with a sentinel head. Mutated
// only on the mutator thread.
type refList struct {
	head  node
	count int
}

func (l *refList) init() {
	l.head.prev = &l.head
	l.head.next = &l.head
}

func (l *refList) pushFront(n *node) {
	if n.owner != nil {
		n.owner.remove(n)
	}
	n.owner = l
	n.prev = &l.head
	n.next = l.head.next
	l.head.next.prev = n
	l.head.next = n
	l.count++
}

func (l *refList) remove(n *node) {
	if n.owner != l {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
	n.owner = nil
	l.count--
}

// first returns the front reference, or nil if the list is empty.
func (l *refList) first() Reference {
	if l.head.next == &l.head {
		return nil
	}
	return l.head.next.ref
}

func (l *refList) len() int {
	return l.count
}
