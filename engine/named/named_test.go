package named

import (
	"reflect"
	"testing"
)

type node struct {
	Base
}

func newNode(name string, t Type, owner Named) *node {
	n := &node{Base: NewBase(name, t)}
	if owner != nil {
		n.SetOwner(owner)
	}
	return n
}

func TestPath(t *testing.T) {
	hall := newNode("hall", TypeScene, nil)
	door := newNode("door", TypeAnimatedObj, hall)
	open := newNode("open", TypeObjState, door)
	lamp := newNode("lamp", TypeStaticObj, nil)
	lit := newNode("lit", TypeObjState, lamp)
	coins := newNode("coins", TypeCounter, nil)

	tests := []struct {
		n    Named
		want string
	}{
		{hall, "hall"},
		{door, "hall:door"},
		{open, "hall:door:open"},
		{lamp, "global:lamp"},
		{lit, "global:lamp:lit"},
		{coins, "coins"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := Path(tt.n); got != tt.want {
			t.Errorf("Path = %q, want %q", got, tt.want)
		}
	}
}

func TestSplitPath(t *testing.T) {
	if got := SplitPath("hall:door:open"); !reflect.DeepEqual(got, []string{"hall", "door", "open"}) {
		t.Errorf("SplitPath = %v", got)
	}
	if got := SplitPath(""); got != nil {
		t.Errorf("expected nil for an empty path, got %v", got)
	}
}

func TestOwnerOfType(t *testing.T) {
	hall := newNode("hall", TypeScene, nil)
	door := newNode("door", TypeAnimatedObj, hall)
	open := newNode("open", TypeObjState, door)

	if got := OwnerOfType(open, TypeScene); got != hall {
		t.Errorf("expected the scene owner, got %v", got)
	}
	if got := OwnerOfType(open, TypeObjState); got != nil {
		t.Errorf("expected the node itself excluded, got %v", got)
	}
	if !IsOwnedBy(open, hall) || !IsOwnedBy(open, open) {
		t.Error("expected open owned by hall and by itself")
	}
	if IsOwnedBy(hall, door) {
		t.Error("expected hall not owned by door")
	}
}

func TestTypeString(t *testing.T) {
	if TypeMovingObj.String() != "personage" {
		t.Errorf("got %q", TypeMovingObj.String())
	}
	if Type(99).String() != "unknown" {
		t.Errorf("got %q", Type(99).String())
	}
}
