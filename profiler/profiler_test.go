package profiler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/qdcore/engine/events"
	"github.com/nathoo/qdcore/logger"
)

func init() { logger.Discard() }

func started(chain string, id int) events.Event {
	return events.Event{Kind: events.ElementStatus, Chain: chain, Element: id, Object: "hall:door:open", From: "waiting", To: "working"}
}

// waitFor polls a condition until it returns true or timeout expires.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("timeout waiting for: %s", msg)
}

func TestRecord(t *testing.T) {
	p := New(events.NewBus(8), nil, 8)

	p.Record(started("intro", 1))
	p.Record(started("intro", 1))
	p.Record(started("idle", 0))
	p.Record(events.Event{Kind: events.ElementStatus, Chain: "intro", Element: 1, From: "working", To: "done"})
	p.Record(events.Event{Kind: events.SceneSelected, Scene: "hall"})

	assert.Equal(t, 2, p.Activations("intro", 1))
	assert.Equal(t, 1, p.Activations("idle", 0))
	assert.Equal(t, 0, p.Activations("intro", 2))
	assert.Equal(t, 2, p.MaxActivations())

	counts := p.Counts()
	require.Len(t, counts, 2)
	assert.Equal(t, "idle", counts[0].Chain)
	assert.Equal(t, "hall:door:open", counts[1].Object)

	p.Record(events.Event{Kind: events.Restarted})
	assert.Empty(t, p.Counts())
}

func TestStartStop(t *testing.T) {
	bus := events.NewBus(8)
	bus.Publish(started("intro", 0))

	p := New(bus, nil, 8)
	p.Start()
	bus.Publish(started("intro", 0))

	waitFor(t, time.Second, func() bool { return p.Activations("intro", 0) == 2 }, "replayed and live activations")
	p.Stop()
	p.Stop()

	bus.Publish(started("intro", 0))
	assert.Equal(t, 2, p.Activations("intro", 0), "stopped profiler keeps counting")
}

type fakeMarker struct {
	chain string
	id    int
}

func (m *fakeMarker) Mark(chain string, id int) error {
	if chain == "missing" {
		return errors.New("no chain")
	}
	m.chain, m.id = chain, id
	return nil
}

func TestMarkReachability(t *testing.T) {
	m := &fakeMarker{}
	p := New(events.NewBus(1), m, 1)

	require.NoError(t, p.MarkReachability("intro", 2))
	assert.Equal(t, "intro", m.chain)
	assert.Equal(t, 2, m.id)
	assert.Error(t, p.MarkReachability("missing", 0))

	assert.Error(t, New(events.NewBus(1), nil, 1).MarkReachability("intro", 0))
}

func TestWebSocketStream(t *testing.T) {
	bus := events.NewBus(16)
	for i := 1; i <= 3; i++ {
		bus.Publish(started("intro", i))
	}
	p := New(bus, nil, 16)

	server := httptest.NewServer(p.Handler())
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() map[string]any {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var rec map[string]any
		require.NoError(t, json.Unmarshal(msg, &rec))
		return rec
	}

	for i := 1; i <= 3; i++ {
		rec := read()
		assert.Equal(t, "element_status", rec["kind"])
		assert.Equal(t, float64(i), rec["element"])
	}

	// The handler subscribes before replaying, so a live event published
	// after the replay is delivered.
	bus.Publish(events.Event{Kind: events.SceneSelected, Scene: "cellar"})
	rec := read()
	assert.Equal(t, "scene_selected", rec["kind"])
	assert.Equal(t, "cellar", rec["scene"])
}

func TestCountsEndpoint(t *testing.T) {
	p := New(events.NewBus(1), nil, 1)
	p.Record(started("intro", 1))

	server := httptest.NewServer(p.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/counts")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Session string  `json:"session"`
		Counts  []Count `json:"counts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, p.Session.String(), body.Session)
	require.Len(t, body.Counts, 1)
	assert.Equal(t, 1, body.Counts[0].Activations)

	resp2, err := http.Post(server.URL+"/counts", "text/plain", nil)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}
