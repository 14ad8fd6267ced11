package signal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mkarpov/roulette/internal/app"
	"github.com/mkarpov/roulette/internal/config"
	"github.com/mkarpov/roulette/internal/core"
)

func newTestController() *Controller {
	mm := app.NewMatchmaker(nil, time.Second)
	cfg := &config.Config{PingPeriod: time.Minute}
	return NewController(mm, cfg)
}

func newTestSession(sid string) *session {
	return &session{
		sid:  core.SessionID(sid),
		conn: &wsConn{send: make(chan core.Frame, 32)},
		addr: "198.51.100.7",
	}
}

func drain(t *testing.T, c *wsConn) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case f := <-c.send:
			var m map[string]any
			require.NoError(t, json.Unmarshal(f, &m))
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestHandleFrameJoinWaits(t *testing.T) {
	ctl := newTestController()
	s := newTestSession("a")

	ctl.handleFrame(s, []byte(`{"peer_id":"peer-a","ip":"1.1.1.1"}`))

	require.True(t, s.joined)
	msgs := drain(t, s.conn)
	require.Len(t, msgs, 1)
	require.Equal(t, app.StatusWaiting, msgs[0]["status"])
}

func TestHandleFrameBadJSONIgnored(t *testing.T) {
	ctl := newTestController()
	s := newTestSession("a")

	ctl.handleFrame(s, []byte(`{not json`))

	require.False(t, s.joined)
	require.Empty(t, drain(t, s.conn))
}

func TestHandleFrameUnknownShapeIgnored(t *testing.T) {
	ctl := newTestController()
	s := newTestSession("a")

	ctl.handleFrame(s, []byte(`{"type":"telemetry","data":42}`))

	require.Empty(t, drain(t, s.conn))
}

func TestHandleFrameSignalingBeforeJoinIgnored(t *testing.T) {
	ctl := newTestController()
	s := newTestSession("a")

	ctl.handleFrame(s, []byte(`{"type":"offer","sdp":"v=0"}`))

	require.Empty(t, drain(t, s.conn))
}

func TestHandleFrameMatchSkipFlow(t *testing.T) {
	ctl := newTestController()
	a := newTestSession("a")
	b := newTestSession("b")

	ctl.handleFrame(a, []byte(`{"peer_id":"peer-a","ip":"1.1.1.1"}`))
	ctl.handleFrame(b, []byte(`{"peer_id":"peer-b","ip":"2.2.2.2"}`))

	am := drain(t, a.conn)
	require.Equal(t, app.StatusWaiting, am[0]["status"])
	require.Equal(t, app.StatusMatched, am[1]["status"])
	require.Equal(t, "peer-b", am[1]["peer_id"])

	bm := drain(t, b.conn)
	require.Len(t, bm, 1)
	require.Equal(t, app.StatusMatched, bm[0]["status"])

	raw := []byte(`{"type":"answer","sdp":"v=0"}`)
	ctl.handleFrame(b, raw)
	am = drain(t, a.conn)
	require.Len(t, am, 1)
	require.Equal(t, "answer", am[0]["type"])

	ctl.handleFrame(a, []byte(`{"action":"skip"}`))
	bm = drain(t, b.conn)
	require.Len(t, bm, 1)
	require.Equal(t, app.StatusSkipped, bm[0]["status"])
}

func TestHandleFrameCancelAcks(t *testing.T) {
	ctl := newTestController()
	s := newTestSession("a")

	ctl.handleFrame(s, []byte(`{"peer_id":"peer-a","ip":"1.1.1.1"}`))
	drain(t, s.conn)

	ctl.handleFrame(s, []byte(`{"action":"cancel"}`))
	msgs := drain(t, s.conn)
	require.Len(t, msgs, 1)
	require.Equal(t, app.StatusCallEnded, msgs[0]["status"])
}

func TestHandleFrameJoinWithoutIPUsesRemoteAddr(t *testing.T) {
	ctl := newTestController()
	s := newTestSession("a")

	ctl.handleFrame(s, []byte(`{"peer_id":"peer-a"}`))

	require.True(t, s.joined)
	msgs := drain(t, s.conn)
	require.Len(t, msgs, 1)
	require.Equal(t, app.StatusWaiting, msgs[0]["status"])
}

func TestWsConnBackpressureAndClose(t *testing.T) {
	c := &wsConn{send: make(chan core.Frame, 2)}

	require.NoError(t, c.TrySend([]byte("1")))
	require.NoError(t, c.TrySend([]byte("2")))
	require.ErrorIs(t, c.TrySend([]byte("3")), ErrBackpressure)

	c.Close()
	c.Close() // idempotent
	require.Error(t, c.TrySend([]byte("4")))
}
