// Package trigger implements trigger chains: directed graphs of elements
// that gate scripted progression on conditions.
//
// Elements live in an arena owned by their chain and are addressed by
// integer ID. Links are (element ID, type) records mirrored on both ends:
// a child record on the source and a parent record on the target.
package trigger

import (
	"github.com/nathoo/qdcore/engine/condition"
	"github.com/nathoo/qdcore/engine/named"
)

// RootID is the ID of the synthetic start element of every chain.
const RootID = -1

// Status is the activation state of an element.
type Status int

const (
	Inactive Status = iota
	Waiting
	Working
	Done
)

func (s Status) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Waiting:
		return "waiting"
	case Working:
		return "working"
	case Done:
		return "done"
	}
	return "unknown"
}

// LinkStatus is the state of one link record.
type LinkStatus int

const (
	LinkInactive LinkStatus = iota
	LinkActive
	LinkDone
)

func (s LinkStatus) String() string {
	switch s {
	case LinkInactive:
		return "inactive"
	case LinkActive:
		return "active"
	case LinkDone:
		return "done"
	}
	return "unknown"
}

// Link is one end of an edge. Element is the ID of the element at the
// other end.
type Link struct {
	Element     int
	Type        int
	Status      LinkStatus
	AutoRestart bool
}

// Env is what elements need from the dispatcher.
type Env interface {
	condition.Rand
	Check(c *condition.Condition) bool
	// Start runs the side effect of activating n and reports whether it
	// was accepted.
	Start(n named.Named) bool
	// Finished reports whether the action started on n has completed.
	Finished(n named.Named) bool
}

// Element is a node of a trigger chain.
type Element struct {
	id         int
	status     Status
	object     named.Named
	conditions []*condition.Condition
	parents    []Link
	children   []Link
	debug      DebugMark
}

func newElement(id int, obj named.Named) *Element {
	return &Element{id: id, object: obj}
}

func (e *Element) ID() int                            { return e.id }
func (e *Element) Status() Status                     { return e.status }
func (e *Element) Object() named.Named                { return e.object }
func (e *Element) IsRoot() bool                       { return e.id == RootID }
func (e *Element) Conditions() []*condition.Condition { return e.conditions }
func (e *Element) Parents() []Link                    { return e.parents }
func (e *Element) Children() []Link                   { return e.children }
func (e *Element) Debug() DebugMark                   { return e.debug }

// Name is the reference path of the governed object, or "ROOT".
func (e *Element) Name() string {
	if e.IsRoot() {
		return "ROOT"
	}
	if e.object == nil {
		return "<nil>"
	}
	return named.Path(e.object)
}

// AddCondition attaches c to the element. The governed object becomes the
// condition owner so that owner-relative lookups start from it.
func (e *Element) AddCondition(c *condition.Condition) {
	if c.Owner() == nil {
		c.SetOwner(e.object)
	}
	e.conditions = append(e.conditions, c)
}

func (e *Element) parent(id int) *Link {
	for i := range e.parents {
		if e.parents[i].Element == id {
			return &e.parents[i]
		}
	}
	return nil
}

func (e *Element) child(id int) *Link {
	for i := range e.children {
		if e.children[i].Element == id {
			return &e.children[i]
		}
	}
	return nil
}

// ParentLink returns the parent record pointing at id.
func (e *Element) ParentLink(id int) (Link, bool) {
	if l := e.parent(id); l != nil {
		return *l, true
	}
	return Link{}, false
}

// ChildLink returns the child record pointing at id.
func (e *Element) ChildLink(id int) (Link, bool) {
	if l := e.child(id); l != nil {
		return *l, true
	}
	return Link{}, false
}

func (e *Element) hasActiveParent(autoRestartOnly bool) bool {
	for _, l := range e.parents {
		if l.Status == LinkActive && (!autoRestartOnly || l.AutoRestart) {
			return true
		}
	}
	return false
}

// CheckExternalConditions requires every parent link of type t to be
// active and, when the element has conditions for t, at least one of them
// to hold. It fails when no parent link has type t.
func (e *Element) CheckExternalConditions(t int, env Env) bool {
	found := false
	for _, l := range e.parents {
		if l.Type != t {
			continue
		}
		if l.Status != LinkActive {
			return false
		}
		found = true
	}
	if !found {
		return false
	}

	gated := false
	for _, c := range e.conditions {
		if c.LinkType != t {
			continue
		}
		gated = true
		if env.Check(c) {
			return true
		}
	}
	return !gated
}

// CheckInternalConditions requires every condition not bound to a link
// type to hold.
func (e *Element) CheckInternalConditions(env Env) bool {
	for _, c := range e.conditions {
		if c.LinkType == condition.Internal && !env.Check(c) {
			return false
		}
	}
	return true
}

func (e *Element) quantConditions(dt float64, env Env) {
	for _, c := range e.conditions {
		c.Quant(dt, env)
	}
}
