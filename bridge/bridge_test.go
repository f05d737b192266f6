package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/qdcore/engine"
	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/input"
	"github.com/nathoo/qdcore/logger"
	"github.com/nathoo/qdcore/types"
)

func init() { logger.Discard() }

type recorder struct {
	mouse []input.MouseEvent
	pos   []geom.Vec2f
	keys  []int
	downs []bool
}

func (r *recorder) PushMouse(ev input.MouseEvent, pos geom.Vec2f) {
	r.mouse = append(r.mouse, ev)
	r.pos = append(r.pos, pos)
}

func (r *recorder) PushKey(code int, down bool) {
	r.keys = append(r.keys, code)
	r.downs = append(r.downs, down)
}

func TestDispatch(t *testing.T) {
	r := &recorder{}

	require.NoError(t, Dispatch([]byte(`{"device":"mouse","event":"left_down","x":120,"y":80}`), r))
	require.NoError(t, Dispatch([]byte(`{"device":"mouse","event":"RIGHT_DOWN","x":1,"y":2}`), r))
	require.NoError(t, Dispatch([]byte(`{"device":"keyboard","key":32,"down":true}`), r))
	require.NoError(t, Dispatch([]byte(`{"device":"keyboard","key":"enter"}`), r))
	require.NoError(t, Dispatch([]byte(`{"device":"keyboard","key":"q","down":true}`), r))

	assert.Equal(t, []input.MouseEvent{input.LeftDown, input.RightDown}, r.mouse)
	assert.Equal(t, geom.Vec2f{X: 120, Y: 80}, r.pos[0])
	assert.Equal(t, []int{32, 13, 'Q'}, r.keys)
	assert.Equal(t, []bool{true, false, true}, r.downs)
}

func TestDispatch_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `left_down`},
		{"no device", `{"event":"left_down"}`},
		{"unknown device", `{"device":"joystick"}`},
		{"unknown mouse event", `{"device":"mouse","event":"wheel"}`},
		{"missing key", `{"device":"keyboard","down":true}`},
		{"bad key type", `{"device":"keyboard","key":true}`},
		{"unknown key name", `{"device":"keyboard","key":"hyper"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			err := Dispatch([]byte(tt.payload), r)
			assert.ErrorIs(t, err, ErrBadPayload)
			assert.Empty(t, r.mouse)
			assert.Empty(t, r.keys)
		})
	}
}

func TestBridge_Handle(t *testing.T) {
	r := &recorder{}
	b := New("tcp://127.0.0.1:1", "qdcore-test", "qdcore/input", r)

	b.Handle([]byte(`{"device":"keyboard","key":27,"down":true}`))
	b.Handle([]byte(`{"device":"tablet"}`))

	received, rejected := b.Stats()
	assert.Equal(t, 1, received)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, []int{27}, r.keys)
}

func TestDispatch_QueuesOnEngine(t *testing.T) {
	e, err := engine.New(&types.GameDef{
		Title:  "t",
		Scenes: []types.SceneDef{{Name: "room", GridSize: [2]int{2, 2}, CellSize: 1}},
	}, 1)
	require.NoError(t, err)

	require.NoError(t, Dispatch([]byte(`{"device":"keyboard","key":"space","down":true}`), e))
	assert.Equal(t, 1, e.Input.Len())
	assert.False(t, e.KeyPressed(32), "queued input applies at the next tick")

	e.Quant(0.025)
	assert.True(t, e.KeyPressed(32))
}
