package condition

import "strings"

// Type identifies a condition kind. Values follow the scene file order.
type Type int

const (
	True Type = iota
	False
	MouseClick
	MouseObjectClick
	ObjectInZone
	PersonageWalkDirection
	PersonageStaticDirection
	Timer
	MouseDialogClick
	MinigameState
	ObjectState
	MouseZoneClick
	MouseObjectZoneClick
	ObjectStateWasActivated
	ObjectStateWasNotActivated
	ObjectNotInState
	ObjectsDistance
	PersonageActive
	ObjectStateWaiting
	ObjectStateAnimationPhase
	ObjectPrevState
	StateTimeGreaterThanValue
	StateTimeGreaterThanStateTime
	StateTimeInInterval
	CounterGreaterThanValue
	CounterLessThanValue
	CounterGreaterThanCounter
	CounterInInterval
	ObjectOnPersonageWay
	Keypress
	AnyPersonageInZone
	MouseRightClick
	MouseRightObjectClick
	MouseRightZoneClick
	MouseRightObjectZoneClick
	ObjectHidden
	MouseHover
	MouseObjectHover
	MouseHoverZone
	MouseObjectHoverZone
	MouseClickFailed
	MouseObjectClickFailed
	MouseClickEvent
	MouseObjectClickEvent
	MouseRightClickEvent
	MouseRightObjectClickEvent
	MouseStatePhraseClick
	ObjectIsCloser
	AnimatedObjectIdleGreaterThanValue
	AnimatedObjectsIntersectionalBounds

	typeCount
)

var typeNames = [...]string{
	True:                                "TRUE",
	False:                               "FALSE",
	MouseClick:                          "MOUSE_CLICK",
	MouseObjectClick:                    "MOUSE_OBJECT_CLICK",
	ObjectInZone:                        "OBJECT_IN_ZONE",
	PersonageWalkDirection:              "PERSONAGE_WALK_DIRECTION",
	PersonageStaticDirection:            "PERSONAGE_STATIC_DIRECTION",
	Timer:                               "TIMER",
	MouseDialogClick:                    "MOUSE_DIALOG_CLICK",
	MinigameState:                       "MINIGAME_STATE",
	ObjectState:                         "OBJECT_STATE",
	MouseZoneClick:                      "MOUSE_ZONE_CLICK",
	MouseObjectZoneClick:                "MOUSE_OBJECT_ZONE_CLICK",
	ObjectStateWasActivated:             "OBJECT_STATE_WAS_ACTIVATED",
	ObjectStateWasNotActivated:          "OBJECT_STATE_WAS_NOT_ACTIVATED",
	ObjectNotInState:                    "OBJECT_NOT_IN_STATE",
	ObjectsDistance:                     "OBJECTS_DISTANCE",
	PersonageActive:                     "PERSONAGE_ACTIVE",
	ObjectStateWaiting:                  "OBJECT_STATE_WAITING",
	ObjectStateAnimationPhase:           "OBJECT_STATE_ANIMATION_PHASE",
	ObjectPrevState:                     "OBJECT_PREV_STATE",
	StateTimeGreaterThanValue:           "STATE_TIME_GREATER_THAN_VALUE",
	StateTimeGreaterThanStateTime:       "STATE_TIME_GREATER_THAN_STATE_TIME",
	StateTimeInInterval:                 "STATE_TIME_IN_INTERVAL",
	CounterGreaterThanValue:             "COUNTER_GREATER_THAN_VALUE",
	CounterLessThanValue:                "COUNTER_LESS_THAN_VALUE",
	CounterGreaterThanCounter:           "COUNTER_GREATER_THAN_COUNTER",
	CounterInInterval:                   "COUNTER_IN_INTERVAL",
	ObjectOnPersonageWay:                "OBJECT_ON_PERSONAGE_WAY",
	Keypress:                            "KEYPRESS",
	AnyPersonageInZone:                  "ANY_PERSONAGE_IN_ZONE",
	MouseRightClick:                     "MOUSE_RIGHT_CLICK",
	MouseRightObjectClick:               "MOUSE_RIGHT_OBJECT_CLICK",
	MouseRightZoneClick:                 "MOUSE_RIGHT_ZONE_CLICK",
	MouseRightObjectZoneClick:           "MOUSE_RIGHT_OBJECT_ZONE_CLICK",
	ObjectHidden:                        "OBJECT_HIDDEN",
	MouseHover:                          "MOUSE_HOVER",
	MouseObjectHover:                    "MOUSE_OBJECT_HOVER",
	MouseHoverZone:                      "MOUSE_HOVER_ZONE",
	MouseObjectHoverZone:                "MOUSE_OBJECT_HOVER_ZONE",
	MouseClickFailed:                    "MOUSE_CLICK_FAILED",
	MouseObjectClickFailed:              "MOUSE_OBJECT_CLICK_FAILED",
	MouseClickEvent:                     "MOUSE_CLICK_EVENT",
	MouseObjectClickEvent:               "MOUSE_OBJECT_CLICK_EVENT",
	MouseRightClickEvent:                "MOUSE_RIGHT_CLICK_EVENT",
	MouseRightObjectClickEvent:          "MOUSE_RIGHT_OBJECT_CLICK_EVENT",
	MouseStatePhraseClick:               "MOUSE_STATE_PHRASE_CLICK",
	ObjectIsCloser:                      "OBJECT_IS_CLOSER",
	AnimatedObjectIdleGreaterThanValue:  "ANIMATED_OBJECT_IDLE_GREATER_THAN_VALUE",
	AnimatedObjectsIntersectionalBounds: "ANIMATED_OBJECTS_INTERSECTIONAL_BOUNDS",
}

func (t Type) String() string {
	if t >= 0 && t < typeCount {
		return typeNames[t]
	}
	return "UNKNOWN"
}

// ParseType maps a kind name, case-insensitively, to its Type.
func ParseType(s string) (Type, bool) {
	s = strings.ToUpper(s)
	for i, n := range typeNames {
		if n == s {
			return Type(i), true
		}
	}
	return 0, false
}

// Types returns every kind in wire order.
func Types() []Type {
	out := make([]Type, typeCount)
	for i := range out {
		out[i] = Type(i)
	}
	return out
}

// SlotKind is the value type of a data slot.
type SlotKind int

const (
	SlotString SlotKind = iota
	SlotInt
	SlotFloat
)

func (k SlotKind) String() string {
	switch k {
	case SlotString:
		return "string"
	case SlotInt:
		return "int"
	case SlotFloat:
		return "float"
	}
	return "unknown"
}

// SlotDef describes one data slot. N is the value count of numeric slots.
type SlotDef struct {
	Kind SlotKind
	N    int
}

// Layout is the fixed shape of a condition kind.
type Layout struct {
	Data    []SlotDef
	Objects int
}

var (
	str  = SlotDef{Kind: SlotString}
	int1 = SlotDef{Kind: SlotInt, N: 1}
	int2 = SlotDef{Kind: SlotInt, N: 2}
	flt1 = SlotDef{Kind: SlotFloat, N: 1}
	flt2 = SlotDef{Kind: SlotFloat, N: 2}
)

var layouts = [typeCount]Layout{
	True:                                {},
	False:                               {},
	MouseClick:                          {Data: []SlotDef{str}, Objects: 1},
	MouseObjectClick:                    {Data: []SlotDef{str, str}, Objects: 2},
	ObjectInZone:                        {Data: []SlotDef{str, str}, Objects: 2},
	PersonageWalkDirection:              {Data: []SlotDef{str, flt1}, Objects: 1},
	PersonageStaticDirection:            {Data: []SlotDef{str, flt1}, Objects: 1},
	Timer:                               {Data: []SlotDef{flt2, int2}},
	MouseDialogClick:                    {},
	MinigameState:                       {Data: []SlotDef{str, str}, Objects: 1},
	ObjectState:                         {Data: []SlotDef{str, str}, Objects: 2},
	MouseZoneClick:                      {Data: []SlotDef{str}, Objects: 1},
	MouseObjectZoneClick:                {Data: []SlotDef{str, str}, Objects: 2},
	ObjectStateWasActivated:             {Data: []SlotDef{str, str}, Objects: 2},
	ObjectStateWasNotActivated:          {Data: []SlotDef{str, str}, Objects: 2},
	ObjectNotInState:                    {Data: []SlotDef{str, str}, Objects: 2},
	ObjectsDistance:                     {Data: []SlotDef{str, str, flt1}, Objects: 2},
	PersonageActive:                     {Data: []SlotDef{str}, Objects: 1},
	ObjectStateWaiting:                  {Data: []SlotDef{str, str}, Objects: 2},
	ObjectStateAnimationPhase:           {Data: []SlotDef{str, str, flt2}, Objects: 2},
	ObjectPrevState:                     {Data: []SlotDef{str, str}, Objects: 2},
	StateTimeGreaterThanValue:           {Data: []SlotDef{flt1}, Objects: 1},
	StateTimeGreaterThanStateTime:       {Objects: 2},
	StateTimeInInterval:                 {Data: []SlotDef{flt2}, Objects: 1},
	CounterGreaterThanValue:             {Data: []SlotDef{int1}, Objects: 1},
	CounterLessThanValue:                {Data: []SlotDef{int1}, Objects: 1},
	CounterGreaterThanCounter:           {Objects: 2},
	CounterInInterval:                   {Data: []SlotDef{int2}, Objects: 1},
	ObjectOnPersonageWay:                {Data: []SlotDef{flt1}, Objects: 2},
	Keypress:                            {Data: []SlotDef{int1}},
	AnyPersonageInZone:                  {Objects: 1},
	MouseRightClick:                     {Objects: 1},
	MouseRightObjectClick:               {Objects: 2},
	MouseRightZoneClick:                 {Objects: 1},
	MouseRightObjectZoneClick:           {Objects: 2},
	ObjectHidden:                        {Objects: 1},
	MouseHover:                          {Objects: 1},
	MouseObjectHover:                    {Objects: 2},
	MouseHoverZone:                      {Objects: 1},
	MouseObjectHoverZone:                {Objects: 2},
	MouseClickFailed:                    {},
	MouseObjectClickFailed:              {},
	MouseClickEvent:                     {},
	MouseObjectClickEvent:               {Objects: 1},
	MouseRightClickEvent:                {},
	MouseRightObjectClickEvent:          {Objects: 1},
	MouseStatePhraseClick:               {Objects: 1},
	ObjectIsCloser:                      {Objects: 3},
	AnimatedObjectIdleGreaterThanValue:  {Data: []SlotDef{int1}, Objects: 1},
	AnimatedObjectsIntersectionalBounds: {Objects: 2},
}

// LayoutOf returns the slot layout of t.
func LayoutOf(t Type) (Layout, bool) {
	if t < 0 || t >= typeCount {
		return Layout{}, false
	}
	return layouts[t], true
}
