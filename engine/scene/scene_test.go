package scene

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/nathoo/qdcore/engine/condition"
	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/grid"
	"github.com/nathoo/qdcore/engine/input"
	"github.com/nathoo/qdcore/engine/object"
	"github.com/nathoo/qdcore/engine/save"
)

type fakeEnv struct {
	ctx      condition.Context
	left     bool
	consumed bool
}

func (e *fakeEnv) Rnd(int) int { return 0 }

func (e *fakeEnv) Check(c *condition.Condition) bool {
	return condition.Check(c, nil, &e.ctx)
}

func (e *fakeEnv) MouseEventActive(ev input.MouseEvent) bool {
	return e.left && ev == input.LeftDown
}

func (e *fakeEnv) ClickConsumed() bool { return e.consumed }

func newPers(name string, x, y float64) *object.Object {
	o := object.New(name, object.Moving)
	o.R = geom.Vec3f{X: x, Y: y}
	o.Bound = geom.Vec3f{X: 10, Y: 10, Z: 20}
	o.Snapshot()
	return o
}

func newAnimated(name string, x, y float64) *object.Object {
	o := object.New(name, object.Animated)
	o.R = geom.Vec3f{X: x, Y: y}
	o.Bound = geom.Vec3f{X: 20, Y: 20}
	o.Snapshot()
	return o
}

// cell returns the centre of grid cell (x, y) on a grid of 10-unit cells.
func cell(x, y int) (float64, float64) {
	return float64(x)*10 + 5, float64(y)*10 + 5
}

func newScene(t *testing.T, objs ...*object.Object) *Scene {
	t.Helper()
	s := New("hall", 10, 10, 10)
	s.Camera.ScreenSize = geom.Vec2i{X: 100, Y: 100}
	s.Camera.Pos = geom.Vec2f{X: 50, Y: 50}
	s.Camera.Snapshot()
	for _, o := range objs {
		if !s.AddObject(o) {
			t.Fatalf("AddObject(%s) refused", o.Name())
		}
	}
	s.Init()
	s.Activate()
	return s
}

func tick(s *Scene, env *fakeEnv, dt float64) {
	s.InitObjectsGrid()
	s.Quant(dt, env)
}

func TestPersonagesProjection(t *testing.T) {
	s := New("hall", 4, 4, 10)
	s.AddObject(object.New("table", object.Static))
	s.AddObject(newAnimated("door", 0, 0))
	s.AddObject(newPers("hero", 5, 5))
	s.AddObject(newPers("dog", 15, 5))

	if got := len(s.Personages()); got != 2 {
		t.Fatalf("expected 2 personages, got %d", got)
	}
	if s.AddObject(object.New("hero", object.Static)) {
		t.Error("expected a duplicate name to be refused")
	}
	s.RemoveObject("hero")
	if got := len(s.Personages()); got != 1 || s.Personages()[0].Name() != "dog" {
		t.Errorf("expected only dog to remain, got %d personages", got)
	}
	if s.Object("door").Owner() != s {
		t.Error("expected the scene to own its objects")
	}
}

func TestSetActivePersonage_SingleSelection(t *testing.T) {
	a := newPers("a", 15, 15)
	b := newPers("b", 55, 15)
	c := newPers("c", 85, 15)
	s := newScene(t, a, b, c)

	count := func() int {
		n := 0
		for _, p := range s.Personages() {
			if p.Selected() {
				n++
			}
		}
		return n
	}

	if s.ActivePersonage() != a || count() != 1 {
		t.Fatalf("expected activation to select a, got %v with %d selected", s.ActivePersonage(), count())
	}
	s.SetActivePersonage(b)
	if count() != 1 || !b.Selected() {
		t.Fatalf("expected only b selected, got %d", count())
	}
	s.SetActivePersonage(c)
	s.SetActivePersonage(c)
	if count() != 1 || !c.Selected() || s.ActivePersonage() != c {
		t.Fatalf("expected only c selected, got %d", count())
	}

	b.Hide()
	s.SetActivePersonage(b)
	if s.ActivePersonage() != c {
		t.Error("expected a hidden personage to be refused")
	}
	if s.Camera.Object() != c {
		t.Error("expected the camera to track the active personage")
	}
}

func TestSetActivePersonage_StopsOthers(t *testing.T) {
	a := newPers("a", 15, 15)
	b := newPers("b", 15, 55)
	s := newScene(t, a, b)

	x, y := cell(8, 5)
	if !b.Move(geom.Vec3f{X: x, Y: y}, false) || !b.InMotion() {
		t.Fatal("expected b to start walking")
	}
	s.SetActivePersonage(a)
	if b.InMotion() {
		t.Error("expected b to stop when a became active")
	}
}

func TestChangeActivePersonage(t *testing.T) {
	a := newPers("a", 15, 15)
	npc := newPers("npc", 35, 15)
	npc.SetFlag(object.FlagNonPlayer)
	b := newPers("b", 55, 15)
	s := newScene(t, a, npc, b)

	if !s.ChangeActivePersonage() || s.ActivePersonage() != b {
		t.Fatalf("expected b after a, got %v", s.ActivePersonage())
	}
	if !s.ChangeActivePersonage() || s.ActivePersonage() != a {
		t.Fatalf("expected a after b, got %v", s.ActivePersonage())
	}
}

func TestMouseHandler_HitTest(t *testing.T) {
	table := object.New("table", object.Static)
	table.R = geom.Vec3f{X: 30, Y: 30}
	table.Bound = geom.Vec3f{X: 40, Y: 40}
	table.Snapshot()
	door := newAnimated("door", 30, 30)
	lamp := newAnimated("lamp", 70, 70)
	lamp.SetFlag(object.FlagDisableMouse)
	s := newScene(t, table, door, lamp)

	tests := []struct {
		name string
		pos  geom.Vec2f
		ev   input.MouseEvent
		want *object.Object
	}{
		{"animated object", geom.Vec2f{X: 35, Y: 25}, input.LeftDown, door},
		{"static only", geom.Vec2f{X: 48, Y: 48}, input.LeftDown, nil},
		{"mouse disabled", geom.Vec2f{X: 70, Y: 70}, input.LeftDown, nil},
	}
	for _, tt := range tests {
		s.clearMouse()
		s.MouseHandler(tt.pos, tt.ev)
		if s.MouseClickObject() != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, s.MouseClickObject())
		}
	}

	s.MouseHandler(geom.Vec2f{X: 30, Y: 30}, input.RightDown)
	if s.MouseRightClickObject() != door {
		t.Error("expected right click to record door")
	}
	s.MouseHandler(geom.Vec2f{X: 30, Y: 30}, input.Move)
	if s.MouseHoverObject() != door {
		t.Error("expected hover to record door")
	}
	if p := s.MouseClickPos(); p.X != 30 || p.Y != 30 {
		t.Errorf("expected click position (30,30), got %v", p)
	}
}

func TestCamera_ProjectFollow(t *testing.T) {
	hero := newPers("hero", 80, 50)
	s := newScene(t, hero)
	c := &s.Camera

	p := geom.Vec3f{X: 12, Y: 34}
	back := c.Unproject(c.Project(p))
	if back.X != p.X || back.Y != p.Y {
		t.Fatalf("expected Unproject to invert Project, got %v", back)
	}

	c.Speed = 10
	c.SetMode(CameraFollow, hero)
	if !c.Quant(1) {
		t.Fatal("expected the camera to move")
	}
	if math.Abs(c.Pos.X-60) > 1e-9 || c.Pos.Y != 50 {
		t.Errorf("expected camera at (60,50), got %v", c.Pos)
	}
	c.Speed = 0
	c.Quant(1)
	if c.Pos.X != 80 {
		t.Errorf("expected camera to snap to 80, got %v", c.Pos.X)
	}
}

func TestActivation_AndOr(t *testing.T) {
	lamp := newAnimated("lamp", 50, 50)
	off := object.NewState("off", 0)
	on := object.NewState("on", 0)
	lamp.AddState(off)
	lamp.AddState(on)
	lamp.SetState(off)
	lamp.Snapshot()
	s := newScene(t, lamp)
	env := &fakeEnv{}

	s.AddActivation(on, ModeAnd, condition.MustNew(condition.True), condition.MustNew(condition.False))
	tick(s, env, 0.1)
	if lamp.CurState() != off {
		t.Fatalf("expected AND with a false condition to keep off, got %s", lamp.CurState().Name())
	}

	s.AddActivation(on, ModeOr, condition.MustNew(condition.False), condition.MustNew(condition.True))
	tick(s, env, 0.1)
	if lamp.CurState() != on {
		t.Fatalf("expected OR with a true condition to activate on, got %s", lamp.CurState().Name())
	}
	if c := s.Activations()[0].Conditions[0]; c.Owner() != on {
		t.Error("expected the state to own its activation conditions")
	}
}

func TestActivation_TimerCondition(t *testing.T) {
	bell := newAnimated("bell", 50, 50)
	quiet := object.NewState("quiet", 0)
	ring := object.NewState("ring", 0)
	bell.AddState(quiet)
	bell.AddState(ring)
	bell.SetState(quiet)
	bell.Snapshot()
	s := newScene(t, bell)

	timer := condition.MustNew(condition.Timer)
	timer.SetTimer(1.0, 0)
	s.AddActivation(ring, ModeAnd, timer)
	env := &fakeEnv{}
	for i := 0; i < 2; i++ {
		tick(s, env, 0.4)
		if bell.CurState() != quiet {
			t.Fatalf("tick %d: expected quiet", i)
		}
	}
	tick(s, env, 0.4)
	if bell.CurState() != ring {
		t.Errorf("expected ring on the third tick, got %s", bell.CurState().Name())
	}
}

func TestZoneShadowAndPresence(t *testing.T) {
	hero := newPers("hero", 15, 15)
	s := New("hall", 10, 10, 10)
	s.AddObject(hero)
	z := grid.NewZone("pool", geom.Vec2i{X: 0, Y: 0}, geom.Vec2i{X: 2, Y: 2}, true)
	z.HasShadow = true
	z.ShadowColor = 0x202020
	z.ShadowAlpha = 128
	s.AddZone(z)
	far := grid.NewZone("far", geom.Vec2i{X: 7, Y: 7}, geom.Vec2i{X: 9, Y: 9}, true)
	s.AddZone(far)
	s.Init()
	s.Activate()

	s.Quant(0.1, &fakeEnv{})
	if hero.ShadowAlpha != 128 || hero.ShadowColor != 0x202020 {
		t.Errorf("expected the pool shadow, got %x/%d", hero.ShadowColor, hero.ShadowAlpha)
	}
	if !s.AnyPersonageInZone(z) || s.AnyPersonageInZone(far) {
		t.Error("expected hero only in pool")
	}
	if s.Zone("pool") != z || s.Zone("missing") != nil {
		t.Error("zone lookup mismatch")
	}
}

func TestMouseMove_WalksLeaderAndClickReacting(t *testing.T) {
	lx, ly := cell(1, 1)
	hero := newPers("hero", lx, ly)
	hero.Movement.Controls = object.ControlMouse
	px, py := cell(1, 3)
	pet := newPers("pet", px, py)
	pet.SetFlag(object.FlagNonPlayer)
	pet.Movement.Controls = object.ControlActiveClickReacting
	s := newScene(t, hero, pet)

	env := &fakeEnv{left: true}
	tx, ty := cell(8, 8)
	s.MouseHandler(s.Camera.Project(geom.Vec3f{X: tx, Y: ty}), input.LeftDown)
	tick(s, env, 0.01)

	if !hero.InMotion() || hero.FollowCondition() != object.FollowMoving {
		t.Fatalf("expected hero walking, got moving=%v follow=%s", hero.InMotion(), hero.FollowCondition())
	}
	if got := hero.LastMoveOrder(); got.X != tx || got.Y != ty {
		t.Errorf("expected order to the cell centre (%v,%v), got %v", tx, ty, got)
	}
	if !pet.InMotion() {
		t.Error("expected the click-reacting pet to walk too")
	}

	// A click consumed by an object does not move anybody.
	hero.StopMovement()
	env.consumed = true
	s.MouseHandler(geom.Vec2f{X: 10, Y: 10}, input.LeftDown)
	tick(s, env, 0.01)
	if hero.InMotion() {
		t.Error("expected a consumed click to leave the hero standing")
	}
}

func TestCollision_AttachmentWithDirection(t *testing.T) {
	lx, ly := cell(5, 5)
	hero := newPers("hero", lx, ly)
	hero.Movement.InitDirection = math.Pi / 2
	bag := newPers("bag", 0, 0)
	bag.SetFlag(object.FlagNonPlayer)
	bag.Movement.Controls = object.ControlAttachmentWithDirRel
	bag.Movement.AttachShift = geom.Vec2f{X: 10, Y: 0}
	bag.Movement.AttacherRef = "hero"
	s := newScene(t, hero, bag)

	if bag.Attacher() != hero {
		t.Fatal("expected Init to resolve the attacher")
	}
	tick(s, &fakeEnv{}, 0.1)
	if bag.R.X != lx || bag.R.Y != ly+10 {
		t.Errorf("expected bag at (%v,%v), got %v", lx, ly+10, bag.R)
	}
}

func wall(g *grid.Grid, x int, gap ...int) {
	open := map[int]bool{}
	for _, y := range gap {
		open[y] = true
	}
	for y := 0; y < g.Size().Y; y++ {
		if !open[y] {
			g.SetAttr(geom.Vec2i{X: x, Y: y}, grid.Impassable)
		}
	}
}

// A follower whose only way to the leader is blocked by standing
// personages settles instead of cycling between waiting and path updates.
func TestFollow_BlockedPathSettles(t *testing.T) {
	lx, ly := cell(8, 5)
	leader := newPers("leader", lx, ly)
	ax, ay := cell(2, 5)
	follower := newPers("follower", ax, ay)
	follower.Movement.Controls = object.ControlFollowActive
	bx, by := cell(5, 5)
	blockB := newPers("b", bx, by)
	blockB.SetFlag(object.FlagNonPlayer)
	cx, cy := cell(6, 5)
	blockC := newPers("c", cx, cy)
	blockC.SetFlag(object.FlagNonPlayer)
	s := newScene(t, leader, follower, blockB, blockC)
	wall(s.Grid(), 5, 5)

	s.FollowPersInit(object.FollowUpdatePath)
	env := &fakeEnv{}
	for i := 0; i < 50; i++ {
		tick(s, env, 0.1)
		if i > 0 && follower.FollowCondition() == object.FollowUpdatePath {
			t.Fatalf("tick %d: follower went back to path update", i)
		}
	}
	switch f := follower.FollowCondition(); f {
	case object.FollowMoving, object.FollowDone, object.FollowFullStopWait:
	default:
		t.Fatalf("expected follower settled, got %s", f)
	}
	if blockB.R.X != bx || blockC.R.X != cx {
		t.Error("blocking personages should not have moved")
	}
}

func TestFollow_NobodyCanMoveResetsToDone(t *testing.T) {
	lx, ly := cell(8, 5)
	leader := newPers("leader", lx, ly)
	ax, ay := cell(2, 5)
	follower := newPers("follower", ax, ay)
	follower.Movement.Controls = object.ControlFollowActive
	s := newScene(t, leader, follower)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx != 0 || dy != 0 {
				s.Grid().SetAttr(geom.Vec2i{X: 2 + dx, Y: 5 + dy}, grid.Impassable)
			}
		}
	}

	s.FollowPersInit(object.FollowUpdatePath)
	tick(s, &fakeEnv{}, 0.1)
	if f := follower.FollowCondition(); f != object.FollowDone {
		t.Fatalf("expected follow abandoned after one tick, got %s", f)
	}
	if f := leader.FollowCondition(); f != object.FollowDone {
		t.Errorf("expected leader done, got %s", f)
	}
	if follower.LastMoveOrder() != follower.R {
		t.Error("expected the follower's move order cancelled")
	}
}

func TestFollow_FollowerReachesLeader(t *testing.T) {
	lx, ly := cell(7, 2)
	leader := newPers("leader", lx, ly)
	ax, ay := cell(1, 2)
	follower := newPers("follower", ax, ay)
	follower.Movement.Controls = object.ControlFollowActive
	follower.Movement.FollowMinRadius = 25
	s := newScene(t, leader, follower)

	s.FollowPersInit(object.FollowUpdatePath)
	env := &fakeEnv{}
	tick(s, env, 0.1)
	if follower.FollowCondition() != object.FollowMoving {
		t.Fatalf("expected follower moving, got %s", follower.FollowCondition())
	}
	for i := 0; i < 30 && follower.FollowCondition() == object.FollowMoving; i++ {
		tick(s, env, 0.1)
	}
	if follower.FollowCondition() != object.FollowDone || follower.InMotion() {
		t.Fatalf("expected follower done and standing, got %s", follower.FollowCondition())
	}
	if d := leader.R.Sub(follower.R).Norm(); d > 25+10 {
		t.Errorf("expected follower near the leader, got distance %v", d)
	}
}

func buildSaveScene(t *testing.T) (*Scene, *object.Object) {
	t.Helper()
	a := newPers("a", 15, 15)
	b := newPers("b", 55, 55)
	door := newAnimated("door", 30, 70)
	door.AddState(object.NewState("closed", 0))
	door.AddState(object.NewState("open", 2))
	s := newScene(t, a, b, door)
	s.AddZone(grid.NewZone("gate", geom.Vec2i{X: 0, Y: 0}, geom.Vec2i{X: 1, Y: 1}, true))
	return s, b
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s, b := buildSaveScene(t)
	s.SetActivePersonage(b)
	s.Zone("gate").SetState(false)
	s.Object("door").SetState(s.Object("door").State("open"))
	s.Camera.Pos = geom.Vec2f{X: 12, Y: 21}
	s.Minigame = []byte{1, 2, 3}

	var buf bytes.Buffer
	w := save.NewWriter(&buf)
	s.Save(w)
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	fresh, fb := buildSaveScene(t)
	if err := fresh.Load(save.NewReader(bytes.NewReader(buf.Bytes()))); err != nil {
		t.Fatalf("load: %v", err)
	}
	if fresh.ActivePersonage() != fb || !fb.Selected() || fresh.Object("a").Selected() {
		t.Error("expected b to be the only selected personage")
	}
	if fresh.Zone("gate").State() {
		t.Error("expected gate off")
	}
	if fresh.Grid().Attr(geom.Vec2i{})&grid.Impassable == 0 {
		t.Error("expected the closed gate to block its cells")
	}
	if st := fresh.Object("door").CurState(); st == nil || st.Name() != "open" {
		t.Errorf("expected door open, got %v", st)
	}
	if fresh.Camera.Pos != s.Camera.Pos {
		t.Errorf("expected camera %v, got %v", s.Camera.Pos, fresh.Camera.Pos)
	}
	if !bytes.Equal(fresh.Minigame, []byte{1, 2, 3}) {
		t.Errorf("expected minigame block restored, got %v", fresh.Minigame)
	}
}

func TestLoad_ObjectCountMismatch(t *testing.T) {
	s, _ := buildSaveScene(t)
	var buf bytes.Buffer
	w := save.NewWriter(&buf)
	s.Save(w)
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	other, _ := buildSaveScene(t)
	other.AddObject(newAnimated("extra", 90, 90))
	err := other.Load(save.NewReader(bytes.NewReader(buf.Bytes())))
	if !errors.Is(err, ErrObjectCountMismatch) {
		t.Fatalf("expected ErrObjectCountMismatch, got %v", err)
	}
}

func TestSave_OldVersionHasNoMinigameBlock(t *testing.T) {
	s, _ := buildSaveScene(t)
	s.Minigame = []byte{9}
	var buf bytes.Buffer
	w := save.NewWriter(&buf)
	w.Version = save.VersionMinigameBlob - 1
	s.Save(w)
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	fresh, _ := buildSaveScene(t)
	r := save.NewReader(bytes.NewReader(buf.Bytes()))
	r.Version = save.VersionMinigameBlob - 1
	if err := fresh.Load(r); err != nil {
		t.Fatalf("load: %v", err)
	}
	if fresh.Minigame != nil {
		t.Errorf("expected no minigame block, got %v", fresh.Minigame)
	}
}
