package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mkarpov/roulette/internal/app"
	"github.com/mkarpov/roulette/internal/config"
	"github.com/mkarpov/roulette/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	mm  *app.Matchmaker
	cfg *config.Config
}

func NewController(mm *app.Matchmaker, cfg *config.Config) *Controller {
	return &Controller{mm: mm, cfg: cfg}
}

// wsConn wraps a websocket connection with a buffered outbound channel so a
// slow or dead peer never blocks matchmaking. It implements
// core.SignalConnection.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.Mutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()
}

// session is the per-connection state of the read loop.
type session struct {
	sid    core.SessionID
	conn   *wsConn
	addr   string // transport remote address, fallback when join omits ip
	joined bool
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection's pumps. Each
// connection gets a generated session id; connection handles are never used
// as identity.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("client", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.cfg.ReadLimit)
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	s := &session{sid: sid, conn: conn, addr: c.ClientIP()}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, s)
}
