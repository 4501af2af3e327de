package sink

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/itohio/goscale/pkg/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, time.Millisecond)
	return conn
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(nil, nil)
	conn := dialHub(t, hub)

	r := scale.Result{Timestamp: time.Unix(1700000000, 0).UTC(), Weight: 42, Status: scale.Stable}
	require.NoError(t, hub.Send(context.Background(), r))

	var msg struct {
		Type string `json:"type"`
		Data struct {
			Weight int32  `json:"weight"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, MessageWeight, msg.Type)
	assert.Equal(t, int32(42), msg.Data.Weight)
	assert.Equal(t, "stable", msg.Data.Status)
}

func TestHub_Commands(t *testing.T) {
	ctl := &fakeController{}
	hub := NewHub(ctl, nil)
	conn := dialHub(t, hub)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))

	require.NoError(t, conn.WriteJSON(Command{Type: CommandTare}))
	var reply Reply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, Reply{Type: CommandTare, OK: true}, reply)

	require.NoError(t, conn.WriteJSON(Command{Type: CommandCalibrate, Reference: 50}))
	reply = Reply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, Reply{Type: CommandCalibrate, OK: true, ScaleFactor: 20}, reply)

	tares, refs := ctl.counts()
	assert.Equal(t, 1, tares)
	assert.Equal(t, []int32{50}, refs)
}

func TestHub_ControlDisabled(t *testing.T) {
	hub := NewHub(nil, nil)
	conn := dialHub(t, hub)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))

	require.NoError(t, conn.WriteJSON(Command{Type: CommandTare}))
	var reply Reply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.False(t, reply.OK)
	assert.Equal(t, "control disabled", reply.Error)
}

func TestHub_Disconnect(t *testing.T) {
	hub := NewHub(nil, nil)
	conn := dialHub(t, hub)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, time.Millisecond)

	// Broadcasting to nobody is fine
	hub.Broadcast(Message{Type: MessageWeight})
	assert.NoError(t, hub.Close())
}

func TestHub_StalledClientDropped(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.timeout = 50 * time.Millisecond
	dialHub(t, hub) // never reads

	payload := strings.Repeat("x", 1<<20)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 256 && hub.Len() > 0; i++ {
			hub.Broadcast(Message{Type: MessageWeight, Data: payload})
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("broadcast blocked on a stalled client")
	}
	assert.Equal(t, 0, hub.Len())
}
