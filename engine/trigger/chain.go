package trigger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/qdcore/engine/named"
	"github.com/nathoo/qdcore/logger"
)

var (
	ErrNoElement  = errors.New("trigger: no such element")
	ErrLinkExists = errors.New("trigger: link already exists")
	ErrLinkToRoot = errors.New("trigger: root cannot be a link target")
)

// Transition describes an element status change.
type Transition struct {
	Chain   string
	Element int
	Object  string
	From    Status
	To      Status
}

// Chain is one trigger graph. Elements are kept in insertion order and
// numbered 0..N-1 in that order after every structural edit.
type Chain struct {
	named.Base

	root     *Element
	elements []*Element

	// Notify, when set, receives every element status change.
	Notify func(Transition)
}

// New returns an empty chain whose root is done.
func New(name string) *Chain {
	ch := &Chain{Base: named.NewBase(name, named.TypeTriggerChain)}
	ch.root = newElement(RootID, nil)
	ch.root.status = Done
	return ch
}

func (ch *Chain) Root() *Element       { return ch.root }
func (ch *Chain) Elements() []*Element { return ch.elements }
func (ch *Chain) Len() int             { return len(ch.elements) }

// AddElement appends an element governing obj. An object may appear only
// once per chain, except scenes, which may recur.
func (ch *Chain) AddElement(obj named.Named) (*Element, bool) {
	if obj == nil {
		return nil, false
	}
	if obj.Type() != named.TypeScene && ch.FindElement(obj) != nil {
		return nil, false
	}
	e := newElement(len(ch.elements), obj)
	ch.elements = append(ch.elements, e)
	ch.reindex()
	return e, true
}

// RemoveElement deletes the element and every link touching it.
func (ch *Chain) RemoveElement(id int) bool {
	idx := ch.index(id)
	if idx < 0 {
		return false
	}
	for _, el := range ch.all() {
		el.parents = dropLinks(el.parents, id)
		el.children = dropLinks(el.children, id)
	}
	ch.elements = append(ch.elements[:idx], ch.elements[idx+1:]...)
	ch.reindex()
	return true
}

func dropLinks(links []Link, id int) []Link {
	out := links[:0]
	for _, l := range links {
		if l.Element != id {
			out = append(out, l)
		}
	}
	return out
}

// reindex renumbers the elements 0..N-1 in list order and rewrites every
// link record to the new numbering.
func (ch *Chain) reindex() {
	remap := make(map[int]int, len(ch.elements)+1)
	remap[RootID] = RootID
	for i, e := range ch.elements {
		remap[e.id] = i
	}
	for i, e := range ch.elements {
		e.id = i
	}
	for _, e := range ch.all() {
		for i := range e.parents {
			e.parents[i].Element = remap[e.parents[i].Element]
		}
		for i := range e.children {
			e.children[i].Element = remap[e.children[i].Element]
		}
	}
}

func (ch *Chain) index(id int) int {
	i := sort.Search(len(ch.elements), func(i int) bool { return ch.elements[i].id >= id })
	if i < len(ch.elements) && ch.elements[i].id == id {
		return i
	}
	return -1
}

// SearchElement returns the element with the given ID, the root for
// RootID, or nil.
func (ch *Chain) SearchElement(id int) *Element {
	if id == RootID {
		return ch.root
	}
	if i := ch.index(id); i >= 0 {
		return ch.elements[i]
	}
	return nil
}

// FindElement returns the first element governing obj.
func (ch *Chain) FindElement(obj named.Named) *Element {
	for _, e := range ch.elements {
		if e.object == obj {
			return e
		}
	}
	return nil
}

// all returns the root followed by the elements.
func (ch *Chain) all() []*Element {
	out := make([]*Element, 0, len(ch.elements)+1)
	out = append(out, ch.root)
	return append(out, ch.elements...)
}

// AddLink connects from to to. Both records are written or neither is.
func (ch *Chain) AddLink(from, to, typ int, autoRestart bool) error {
	if to == RootID {
		return ErrLinkToRoot
	}
	src := ch.SearchElement(from)
	dst := ch.SearchElement(to)
	if src == nil || dst == nil {
		return fmt.Errorf("%w: link %d -> %d", ErrNoElement, from, to)
	}
	if src.child(to) != nil || dst.parent(from) != nil {
		return fmt.Errorf("%w: %d -> %d", ErrLinkExists, from, to)
	}
	src.children = append(src.children, Link{Element: to, Type: typ, AutoRestart: autoRestart})
	dst.parents = append(dst.parents, Link{Element: from, Type: typ, AutoRestart: autoRestart})
	return nil
}

// RemoveLink deletes both records of the link from -> to.
func (ch *Chain) RemoveLink(from, to int) bool {
	src := ch.SearchElement(from)
	dst := ch.SearchElement(to)
	if src == nil || dst == nil || src.child(to) == nil {
		return false
	}
	src.children = dropLinks(src.children, to)
	dst.parents = dropLinks(dst.parents, from)
	return true
}

// SetLinkStatus updates both records of the link from -> to.
func (ch *Chain) SetLinkStatus(from, to int, st LinkStatus) bool {
	src := ch.SearchElement(from)
	dst := ch.SearchElement(to)
	if src == nil || dst == nil {
		return false
	}
	c, p := src.child(to), dst.parent(from)
	if c == nil || p == nil {
		return false
	}
	c.Status, p.Status = st, st
	return true
}

// InitElements rebuilds the in-triggers flag of every object the chain
// references, conditions included.
func (ch *Chain) InitElements() {
	for _, e := range ch.elements {
		if e.object != nil {
			e.object.SetInTriggers(false)
		}
	}
	for _, e := range ch.elements {
		if e.object != nil {
			e.object.SetInTriggers(true)
		}
		for _, c := range e.conditions {
			c.MarkInTriggers()
		}
	}
}

func (ch *Chain) setStatus(e *Element, st Status) {
	if e.status == st {
		return
	}
	from := e.status
	e.status = st
	logger.Log.WithFields(logrus.Fields{
		"chain":   ch.Name(),
		"element": e.id,
		"object":  e.Name(),
		"from":    from.String(),
		"to":      st.String(),
	}).Debug("trigger element status")
	if ch.Notify != nil {
		ch.Notify(Transition{Chain: ch.Name(), Element: e.id, Object: e.Name(), From: from, To: st})
	}
}

// Quant advances the root, then every element in insertion order.
func (ch *Chain) Quant(dt float64, env Env) {
	for _, e := range ch.all() {
		ch.quantElement(e, dt, env)
	}
}

func (ch *Chain) quantElement(e *Element, dt float64, env Env) {
	if e.IsRoot() {
		return
	}

	// 1. Wake up on an active parent link. Done elements only restart
	// through auto-restart links.
	switch e.status {
	case Inactive:
		if e.hasActiveParent(false) {
			ch.setStatus(e, Waiting)
		}
	case Done:
		if e.hasActiveParent(true) {
			ch.setStatus(e, Waiting)
		}
	}

	// 2. Waiting: advance timers, then look for a link that lets us start.
	if e.status == Waiting {
		e.quantConditions(dt, env)
		for _, l := range e.parents {
			if l.Status != LinkActive {
				continue
			}
			if !e.CheckExternalConditions(l.Type, env) || !e.CheckInternalConditions(env) {
				continue
			}
			if !env.Start(e.object) {
				continue
			}
			ch.setStatus(e, Working)
			ch.consumeParents(e, l.Type)
			ch.deactivateParents(e)
			break
		}
	}

	// 3. Working: wait for the action to complete, then pass activation on.
	if e.status == Working && env.Finished(e.object) {
		ch.setStatus(e, Done)
		ch.activateChildren(e)
		ch.rearmParents(e)
	}
}

// consumeParents marks the active parent links of type t done.
func (ch *Chain) consumeParents(e *Element, t int) {
	for _, l := range e.parents {
		if l.Type == t && l.Status == LinkActive {
			ch.SetLinkStatus(l.Element, e.id, LinkDone)
		}
	}
}

// deactivateParents drops the parent links left active once e has started.
func (ch *Chain) deactivateParents(e *Element) {
	for _, l := range e.parents {
		if l.Status == LinkActive {
			ch.SetLinkStatus(l.Element, e.id, LinkInactive)
		}
	}
}

// rearmParents reactivates the auto-restart parent links of a finished
// element. The next quant returns it to waiting.
func (ch *Chain) rearmParents(e *Element) {
	for _, l := range e.parents {
		if l.AutoRestart {
			ch.SetLinkStatus(l.Element, e.id, LinkActive)
		}
	}
}

func (ch *Chain) activateChildren(e *Element) {
	for _, l := range e.children {
		ch.SetLinkStatus(e.id, l.Element, LinkActive)
	}
}

// Reset returns every element to inactive with inactive links, then marks
// the root done and activates its outgoing links.
func (ch *Chain) Reset() {
	for _, e := range ch.elements {
		ch.resetElement(e)
	}
	ch.root.debug = DebugNone
	for i := range ch.root.children {
		ch.root.children[i].Status = LinkInactive
	}
	ch.root.status = Done
	ch.activateChildren(ch.root)
}

func (ch *Chain) resetElement(e *Element) {
	ch.setStatus(e, Inactive)
	e.debug = DebugNone
	for i := range e.parents {
		e.parents[i].Status = LinkInactive
	}
	for i := range e.children {
		e.children[i].Status = LinkInactive
	}
	for _, c := range e.conditions {
		c.ResetTimer()
	}
}

// ActivateLinks activates the outgoing links of every element governing
// obj. It lets game code outside triggers push a chain forward.
func (ch *Chain) ActivateLinks(obj named.Named) bool {
	found := false
	for _, e := range ch.elements {
		if e.object == obj {
			ch.activateChildren(e)
			found = true
		}
	}
	return found
}

// DeactivateObjectTriggers stops every element whose object is obj or is
// owned by it.
func (ch *Chain) DeactivateObjectTriggers(obj named.Named) {
	for _, e := range ch.elements {
		if e.object != nil && named.IsOwnedBy(e.object, obj) {
			ch.deactivate(e)
		}
	}
}

func (ch *Chain) deactivate(e *Element) {
	for _, l := range e.parents {
		if l.Status == LinkActive {
			ch.SetLinkStatus(l.Element, e.id, LinkInactive)
		}
	}
	ch.setStatus(e, Inactive)
}
