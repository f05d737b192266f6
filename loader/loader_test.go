package loader

import (
	"errors"
	"strings"
	"testing"

	"github.com/nathoo/qdcore/engine"
	"github.com/nathoo/qdcore/engine/condition"
	"github.com/nathoo/qdcore/logger"
	"github.com/nathoo/qdcore/types"
)

func init() { logger.Discard() }

func TestLoad_Manor(t *testing.T) {
	defs, err := Load("testdata/manor")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if defs.Title != "The Manor" || defs.Author != "Tester" {
		t.Errorf("expected The Manor by Tester, got %q by %q", defs.Title, defs.Author)
	}
	if defs.StartScene != "hall" {
		t.Errorf("StartScene = %q, want hall", defs.StartScene)
	}
	if len(defs.Globals) != 2 || defs.Globals[1].Kind != "mouse" {
		t.Fatalf("expected 2 globals ending with the mouse, got %+v", defs.Globals)
	}
	if len(defs.Scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(defs.Scenes))
	}

	hall := defs.Scenes[0]
	if hall.GridSize != [2]int{10, 10} || hall.CellSize != 10 {
		t.Errorf("hall grid = %v cell %v", hall.GridSize, hall.CellSize)
	}
	if len(hall.Objects) != 3 {
		t.Fatalf("expected 3 objects in hall, got %d", len(hall.Objects))
	}
	hero := hall.Objects[0]
	if hero.Kind != "personage" || hero.Movement == nil || hero.Movement.Speed != 100 {
		t.Errorf("hero = %+v", hero)
	}
	if !hero.States[1].Walk || hero.States[1].Duration != 0.5 {
		t.Errorf("walk state = %+v", hero.States[1])
	}

	if len(hall.Zones) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(hall.Zones))
	}
	if !hall.Zones[0].On {
		t.Error("expected zones on by default")
	}
	if shade := hall.Zones[1]; shade.On || !shade.Shadow || shade.ShadowAlpha != 128 {
		t.Errorf("shade = %+v", shade)
	}
	if len(hall.Music) != 1 || !hall.Music[0].Cycled || hall.Music[0].Volume != 80 {
		t.Errorf("music = %+v", hall.Music)
	}
	if len(hall.Activations) != 1 || hall.Activations[0].Conditions[0].Kind != "OBJECT_STATE" {
		t.Errorf("activations = %+v", hall.Activations)
	}

	if len(defs.Counters) != 1 || defs.Counters[0].Limit != 10 {
		t.Errorf("counters = %+v", defs.Counters)
	}
	if hall.SourceOrder >= defs.Chains[0].SourceOrder {
		t.Errorf("expected hall declared before the intro chain, got %d and %d", hall.SourceOrder, defs.Chains[0].SourceOrder)
	}
}

func TestLoad_ChainParts(t *testing.T) {
	defs, err := Load("testdata/manor")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	intro := defs.Chains[0]
	if intro.Name != "intro" || len(intro.Elements) != 3 || len(intro.Links) != 3 {
		t.Fatalf("intro = %+v", intro)
	}

	click := intro.Elements[0].Conditions[0]
	if click.Kind != "MOUSE_CLICK" || click.LinkType != condition.Internal || click.Strings[0] != "door" {
		t.Errorf("click condition = %+v", click)
	}

	timer := intro.Elements[1].Conditions[0]
	if timer.Kind != "TIMER" || timer.LinkType != 1 {
		t.Errorf("timer condition = %+v", timer)
	}
	if timer.Floats[0][0] != 0.5 || timer.Ints[0][0] != 0 {
		t.Errorf("timer values = %v %v", timer.Floats, timer.Ints)
	}

	links := intro.Links
	if links[0].From != -1 || links[0].To != 1 {
		t.Errorf("root link = %+v", links[0])
	}
	if links[1].Type != 1 || links[1].AutoRestart {
		t.Errorf("typed link = %+v", links[1])
	}
	if !links[2].AutoRestart {
		t.Errorf("expected auto restart on %+v", links[2])
	}
}

func TestLoad_Sugar(t *testing.T) {
	defs, err := Load("testdata/manor")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	idle := defs.Chains[1]

	tests := []struct {
		name string
		got  types.ConditionDef
		want types.ConditionDef
	}{
		{
			name: "Not",
			got:  idle.Elements[0].Conditions[0],
			want: types.ConditionDef{Kind: "PERSONAGE_ACTIVE", Inversed: true, LinkType: condition.Internal, Strings: []string{"hero"}},
		},
		{
			name: "CounterGreater",
			got:  idle.Elements[0].Conditions[1],
			want: types.ConditionDef{Kind: "COUNTER_GREATER_THAN_VALUE", LinkType: condition.Internal, Ints: [][]int{{2}}, Objects: []string{"openings"}},
		},
		{
			name: "Distance",
			got:  idle.Elements[1].Conditions[0],
			want: types.ConditionDef{Kind: "OBJECTS_DISTANCE", LinkType: condition.Internal, Strings: []string{"hero", "door"}, Floats: [][]float64{{30}}},
		},
		{
			name: "Keypress",
			got:  idle.Elements[1].Conditions[1],
			want: types.ConditionDef{Kind: "KEYPRESS", LinkType: condition.Internal, Ints: [][]int{{32}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !equalCondition(tt.got, tt.want) {
				t.Errorf("got %+v, want %+v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_BuildsEngine(t *testing.T) {
	defs, err := Load("testdata/manor")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	e, err := engine.New(defs, 1)
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	if e.ActiveScene() == nil || e.ActiveScene().Name() != "hall" {
		t.Errorf("expected active scene hall, got %v", e.ActiveScene())
	}
}

func TestLoad_Broken(t *testing.T) {
	_, err := Load("testdata/broken")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	for _, want := range []string{
		"start scene",
		"initial state",
		"unknown condition kind",
		"duplicate element id",
		"undefined \"hall:ghost\"",
		"holds 2 values",
		"unknown element 7",
	} {
		assertContains(t, ve.Errors, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no game", `Scene "a" { grid = {1, 1} }`, "no Game{}"},
		{"lua error", `Game {`, "executing script"},
		{"sandboxed", `os.exit(1)`, "executing script"},
		{"loadstring removed", `loadstring("x = 1")()`, "executing script"},
		{"bare object table", `Game { title = "t", globals = { {} } }`, "not made by a constructor"},
		{"bad chain part", `Game { title = "t" } Chain "c" { 42 }`, "not an Element or a Link"},
		{"bad condition", `Game { title = "t" } Chain "c" { Element(1, "x", { {} }) }`, "not made by a condition helper"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadString(tt.src)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_MissingDir(t *testing.T) {
	if _, err := Load("testdata/nowhere"); err == nil {
		t.Error("expected an error for a missing directory")
	}
	if _, err := Load(t.TempDir()); err == nil || !strings.Contains(err.Error(), "no .lua files") {
		t.Errorf("expected 'no .lua files', got %v", err)
	}
}

func TestSortedLuaFiles(t *testing.T) {
	got := sortedLuaFiles([]string{"b.lua", "game.lua", "a.lua"})
	want := []string{"game.lua", "a.lua", "b.lua"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func equalCondition(a, b types.ConditionDef) bool {
	if a.Kind != b.Kind || a.Inversed != b.Inversed || a.LinkType != b.LinkType {
		return false
	}
	if strings.Join(a.Strings, "|") != strings.Join(b.Strings, "|") ||
		strings.Join(a.Objects, "|") != strings.Join(b.Objects, "|") {
		return false
	}
	if len(a.Ints) != len(b.Ints) || len(a.Floats) != len(b.Floats) {
		return false
	}
	for i := range a.Ints {
		if len(a.Ints[i]) != len(b.Ints[i]) {
			return false
		}
		for j := range a.Ints[i] {
			if a.Ints[i][j] != b.Ints[i][j] {
				return false
			}
		}
	}
	for i := range a.Floats {
		if len(a.Floats[i]) != len(b.Floats[i]) {
			return false
		}
		for j := range a.Floats[i] {
			if a.Floats[i][j] != b.Floats[i][j] {
				return false
			}
		}
	}
	return true
}

func assertContains(t *testing.T, strs []string, substr string) {
	t.Helper()
	for _, s := range strs {
		if strings.Contains(s, substr) {
			return
		}
	}
	t.Errorf("expected one of %v to contain %q", strs, substr)
}
