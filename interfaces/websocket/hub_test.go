package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jarvis-backend/application/ports"
	"jarvis-backend/domain/core/aggregates"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type hubFixture struct {
	hub   *Hub
	gauge prometheus.Gauge
	srv   *httptest.Server
}

// newHubFixture serves /{sessionID} by subscribing the connection to the hub.
// onStart, when set, runs right after the client is registered.
func newHubFixture(t *testing.T, onStart ...func(*Client)) *hubFixture {
	t.Helper()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_render_subscribers"})
	hub := NewHub(gauge, zap.NewNop())
	hub.now = func() time.Time { return time.Unix(1700000000, 0) }
	go hub.Run()
	t.Cleanup(hub.Stop)

	upgrader := NewUpgrader()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(strings.TrimPrefix(r.URL.Path, "/"), hub, conn, zap.NewNop())
		client.Start()
		for _, fn := range onStart {
			fn(client)
		}
	}))
	t.Cleanup(srv.Close)

	return &hubFixture{hub: hub, gauge: gauge, srv: srv}
}

func (f *hubFixture) dial(t *testing.T, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *hubFixture) waitForSubscribers(t *testing.T, sessionID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.hub.SubscriberCount(sessionID) == n
	}, 2*time.Second, 10*time.Millisecond)
}

func readJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestHub_RenderReachesSessionSubscribersOnly(t *testing.T) {
	f := newHubFixture(t)
	first := f.dial(t, "s1")
	second := f.dial(t, "s1")
	other := f.dial(t, "s2")
	f.waitForSubscribers(t, "s1", 2)
	f.waitForSubscribers(t, "s2", 1)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.gauge))

	graph := aggregates.ConceptGraph{
		Nodes: []aggregates.GraphNode{{ID: "Energy", Group: 1}},
		Links: []aggregates.GraphLink{},
	}
	require.NoError(t, f.hub.Render(context.Background(), ports.GraphSnapshot{SessionID: "s1", Graph: graph}))

	for _, conn := range []*websocket.Conn{first, second} {
		var msg ports.SnapshotMessage
		readJSON(t, conn, &msg)
		assert.Equal(t, ports.MessageTypeGraphSnapshot, msg.Type)
		assert.Equal(t, int64(1700000000), msg.Timestamp)
		assert.Equal(t, graph, msg.Data.Graph)
	}

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

// emptySnapshot is the frame for a session whose graph has no concepts
func emptySnapshot(t *testing.T, sessionID string) []byte {
	t.Helper()
	graph := aggregates.ConceptGraph{Nodes: []aggregates.GraphNode{}, Links: []aggregates.GraphLink{}}
	payload, err := json.Marshal(ports.NewSnapshotMessage(ports.GraphSnapshot{SessionID: sessionID, Graph: graph}, 1))
	require.NoError(t, err)
	return payload
}

func TestHub_InitialSnapshotPrecedesLaterRenders(t *testing.T) {
	empty := emptySnapshot(t, "s1")
	f := newHubFixture(t, func(c *Client) {
		assert.NoError(t, c.hub.SendInitial(context.Background(), c, empty))
		graph := aggregates.ConceptGraph{Nodes: []aggregates.GraphNode{{ID: "Energy", Group: 1}}, Links: []aggregates.GraphLink{}}
		assert.NoError(t, c.hub.Render(context.Background(), ports.GraphSnapshot{SessionID: "s1", Graph: graph}))
	})
	conn := f.dial(t, "s1")

	var first, second ports.SnapshotMessage
	readJSON(t, conn, &first)
	readJSON(t, conn, &second)
	assert.Equal(t, 0, first.Data.Graph.NodeCount())
	assert.True(t, second.Data.Graph.HasNode("Energy"))
}

func TestHub_StaleInitialSnapshotIsDropped(t *testing.T) {
	empty := emptySnapshot(t, "s1")
	// a turn renders between reading the graph and sending it
	f := newHubFixture(t, func(c *Client) {
		graph := aggregates.ConceptGraph{Nodes: []aggregates.GraphNode{{ID: "Energy", Group: 1}}, Links: []aggregates.GraphLink{}}
		assert.NoError(t, c.hub.Render(context.Background(), ports.GraphSnapshot{SessionID: "s1", Graph: graph}))
		assert.NoError(t, c.hub.SendInitial(context.Background(), c, empty))
	})
	conn := f.dial(t, "s1")

	var msg ports.SnapshotMessage
	readJSON(t, conn, &msg)
	assert.True(t, msg.Data.Graph.HasNode("Energy"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "the older snapshot must not follow")
}

func TestHub_RelaysLayoutEventsToOtherTabs(t *testing.T) {
	f := newHubFixture(t)
	sender := f.dial(t, "s1")
	receiver := f.dial(t, "s1")
	f.waitForSubscribers(t, "s1", 2)

	// invalid events are dropped
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte(`{"type":"PIN","nodeId":"Energy"}`)))
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte(`{"type":"PIN","nodeId":"Energy","x":12.5,"y":40}`)))

	var event LayoutEvent
	readJSON(t, receiver, &event)
	assert.Equal(t, EventPin, event.Type)
	assert.Equal(t, "Energy", event.NodeID)
	require.NotNil(t, event.X)
	assert.Equal(t, 12.5, *event.X)

	require.NoError(t, sender.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := sender.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UnregistersClosedConnections(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t, "s1")
	f.waitForSubscribers(t, "s1", 1)

	require.NoError(t, conn.Close())

	f.waitForSubscribers(t, "s1", 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.gauge))
}

func TestLayoutEvent_Valid(t *testing.T) {
	x, y := 1.0, 2.0
	tests := []struct {
		name  string
		event LayoutEvent
		want  bool
	}{
		{name: "pin", event: LayoutEvent{Type: EventPin, NodeID: "A", X: &x, Y: &y}, want: true},
		{name: "pin without position", event: LayoutEvent{Type: EventPin, NodeID: "A"}, want: false},
		{name: "unpin", event: LayoutEvent{Type: EventUnpin, NodeID: "A"}, want: true},
		{name: "unknown type", event: LayoutEvent{Type: "DRAG", NodeID: "A"}, want: false},
		{name: "missing node", event: LayoutEvent{Type: EventUnpin}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.valid())
		})
	}
}
