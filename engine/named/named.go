// Package named defines the identity shared by every entity a trigger or
// condition can reference: scenes, objects, states, counters, zones, chains.
package named

import "strings"

// Type tags the concrete kind of a named object.
type Type int

const (
	TypeGeneric Type = iota
	TypeScene
	TypeStaticObj
	TypeAnimatedObj
	TypeMovingObj
	TypeMouseObj
	TypeObjState
	TypeCounter
	TypeTriggerChain
	TypeGridZone
	TypeMusicTrack
	TypeMinigame
)

var typeNames = [...]string{
	TypeGeneric:      "generic",
	TypeScene:        "scene",
	TypeStaticObj:    "static",
	TypeAnimatedObj:  "animated",
	TypeMovingObj:    "personage",
	TypeMouseObj:     "mouse",
	TypeObjState:     "state",
	TypeCounter:      "counter",
	TypeTriggerChain: "chain",
	TypeGridZone:     "zone",
	TypeMusicTrack:   "music",
	TypeMinigame:     "minigame",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// Named is implemented by every referenceable entity.
type Named interface {
	Name() string
	Type() Type
	Owner() Named
	SetOwner(Named)
	InTriggers() bool
	SetInTriggers(bool)
}

// Base carries the identity fields. Embed it by value.
type Base struct {
	name       string
	typ        Type
	owner      Named
	inTriggers bool
}

// NewBase returns a Base with the given name and type.
func NewBase(name string, t Type) Base {
	return Base{name: name, typ: t}
}

func (b *Base) Name() string          { return b.name }
func (b *Base) Type() Type            { return b.typ }
func (b *Base) Owner() Named          { return b.owner }
func (b *Base) SetOwner(o Named)      { b.owner = o }
func (b *Base) InTriggers() bool      { return b.inTriggers }
func (b *Base) SetInTriggers(on bool) { b.inTriggers = on }

// OwnerOfType walks up the owner chain of n (n excluded) and returns the
// first owner of type t.
func OwnerOfType(n Named, t Type) Named {
	if n == nil {
		return nil
	}
	for o := n.Owner(); o != nil; o = o.Owner() {
		if o.Type() == t {
			return o
		}
	}
	return nil
}

// IsOwnedBy reports whether ancestor is n itself or appears in n's owner chain.
func IsOwnedBy(n, ancestor Named) bool {
	for o := n; o != nil; o = o.Owner() {
		if o == ancestor {
			return true
		}
	}
	return false
}

// PathSep separates the levels of a reference path.
const PathSep = ":"

// GlobalScope prefixes references to objects that live outside any scene.
const GlobalScope = "global"

// Path returns the multi-level reference of n, outermost owner first,
// e.g. "hall:door:open". Objects without a scene owner are prefixed with
// GlobalScope so they resolve against the global object list.
func Path(n Named) string {
	if n == nil {
		return ""
	}
	var parts []string
	var top Named
	for o := n; o != nil; o = o.Owner() {
		parts = append(parts, o.Name())
		top = o
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	switch top.Type() {
	case TypeStaticObj, TypeAnimatedObj, TypeMovingObj, TypeMouseObj, TypeObjState:
		parts = append([]string{GlobalScope}, parts...)
	}
	return strings.Join(parts, PathSep)
}

// SplitPath breaks a reference path into its levels.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, PathSep)
}
