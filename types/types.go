// Package types defines the game definitions compiled from script.
// This package contains only type definitions: no logic, no methods.
package types

// GameDef is a whole game as written by its scripts.
type GameDef struct {
	Title      string
	Author     string
	StartScene string
	// Globals are objects that live outside every scene: inventory items
	// and the mouse object.
	Globals  []ObjectDef
	Scenes   []SceneDef
	Counters []CounterDef
	Chains   []ChainDef
}

// SceneDef is one game location.
type SceneDef struct {
	Name        string
	GridSize    [2]int // cells
	CellSize    float64
	ScreenSize  [2]int
	Camera      [2]float64 // plane point at the screen centre
	CameraMode  string     // "fixed", "follow", "center_once"
	CameraSpeed float64
	Flags       []string // "cycle_x", "cycle_y", "reset_triggers_on_load", "disable_main_menu"
	Objects     []ObjectDef
	Zones       []ZoneDef
	Music       []MusicDef
	// Activations are the conditional states of the scene objects.
	Activations []ActivationDef
	SourceOrder int
}

// ObjectDef is a scene or global object.
type ObjectDef struct {
	Name         string
	Kind         string // "static", "animated", "personage", "mouse"
	Pos          [3]float64
	Bound        [3]float64
	Flags        []string // "hidden", "disable_mouse", "non_player", "fixed_screen"
	InitialState string
	States       []StateDef
	Movement     *MovementDef // personages only
}

// StateDef is one state of an object.
type StateDef struct {
	Name     string
	Duration float64
	Hidden   bool
	Walk     bool
	WalkTo   *[3]float64
}

// MovementDef holds the walking parameters of a personage.
type MovementDef struct {
	Speed           float64
	CollisionRadius float64
	FollowMinRadius float64
	Directions      int
	WalkSize        [2]int
	Direction       float64 // initial facing, radians
	Controls        []string
	AttachTo        string // name of the attacher in the same scene
	AttachShift     [2]float64
}

// ActivationDef switches an object to a state whenever its conditions
// hold.
type ActivationDef struct {
	Object     string
	State      string
	Mode       string // "and" or "or"
	Conditions []ConditionDef
}

// ZoneDef is a named rectangle of grid cells.
type ZoneDef struct {
	Name        string
	Min, Max    [2]int
	On          bool
	Shadow      bool
	ShadowColor uint32
	ShadowAlpha int
}

// MusicDef is a music track a trigger can select.
type MusicDef struct {
	Name   string
	Cycled bool
	Volume int
}

// CounterDef is a named integer counter.
type CounterDef struct {
	Name         string
	Limit        int
	Positive     bool
	TriggerDelta int
	Elements     []CounterElementDef
}

// CounterElementDef watches a state. Each activation counts one step.
type CounterElementDef struct {
	State     string // reference path
	Increment bool
}

// ChainDef is one trigger graph.
type ChainDef struct {
	Name        string
	Elements    []ElementDef
	Links       []LinkDef
	SourceOrder int
}

// ElementDef is a trigger element. IDs are script identifiers. The chain
// numbers its elements in definition order.
type ElementDef struct {
	ID         int
	Ref        string // reference path of the governed object
	Conditions []ConditionDef
}

// LinkDef connects two elements by script ID. From may be -1, the root.
type LinkDef struct {
	From, To    int
	Type        int
	AutoRestart bool
}

// ConditionDef is a condition with its slot values. The k-th entry of
// Strings, Ints or Floats fills the k-th slot of that value type in the
// kind's layout. Objects holds the reference path of each object slot.
type ConditionDef struct {
	Kind     string
	Inversed bool
	LinkType int // -1 when the condition is not tied to a link type
	Strings  []string
	Ints     [][]int
	Floats   [][]float64
	Objects  []string
}
