package trigger

// DebugMark is the reachability marking used by the profiler. It never
// affects gameplay.
type DebugMark int

const (
	DebugNone DebugMark = iota
	DebugActive
	DebugPending
	DebugDone
)

func (m DebugMark) String() string {
	switch m {
	case DebugActive:
		return "active"
	case DebugPending:
		return "pending"
	case DebugDone:
		return "done"
	}
	return ""
}

// DebugSetActive marks the element active, everything reachable through
// child links pending and everything reachable through parent links done.
func (ch *Chain) DebugSetActive(id int) bool {
	e := ch.SearchElement(id)
	if e == nil {
		return false
	}
	ch.ClearDebug()
	ch.walk(e, func(el *Element) []Link { return el.children }, DebugPending)
	ch.walk(e, func(el *Element) []Link { return el.parents }, DebugDone)
	e.debug = DebugActive
	return true
}

// DebugSetDone marks the element and its ancestors done.
func (ch *Chain) DebugSetDone(id int) bool {
	e := ch.SearchElement(id)
	if e == nil {
		return false
	}
	ch.walk(e, func(el *Element) []Link { return el.parents }, DebugDone)
	e.debug = DebugDone
	return true
}

// DebugSetInactive clears the marks of the element and its descendants.
func (ch *Chain) DebugSetInactive(id int) bool {
	e := ch.SearchElement(id)
	if e == nil {
		return false
	}
	ch.walk(e, func(el *Element) []Link { return el.children }, DebugNone)
	e.debug = DebugNone
	return true
}

// ClearDebug drops every mark.
func (ch *Chain) ClearDebug() {
	for _, e := range ch.all() {
		e.debug = DebugNone
	}
}

// walk marks every element reachable from start (start excluded) along the
// links returned by next, breadth first. Each element is visited once, so
// cycles terminate.
func (ch *Chain) walk(start *Element, next func(*Element) []Link, mark DebugMark) {
	seen := map[int]bool{start.id: true}
	queue := []*Element{start}
	for len(queue) > 0 {
		el := queue[0]
		queue = queue[1:]
		for _, l := range next(el) {
			if seen[l.Element] {
				continue
			}
			seen[l.Element] = true
			if n := ch.SearchElement(l.Element); n != nil {
				n.debug = mark
				queue = append(queue, n)
			}
		}
	}
}
