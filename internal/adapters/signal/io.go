package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *Controller) pingPeriod() time.Duration {
	if ctl.cfg.PingPeriod > 0 {
		return ctl.cfg.PingPeriod
	}
	return 54 * time.Second
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.pingPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// readPump is the single reader of the connection. Any exit, clean or not,
// routes through Disconnect exactly once; Disconnect itself is idempotent.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, s *session) {
	defer func() {
		cancel()
		s.conn.Close()
		ctl.mm.Disconnect(s.sid)
		log.Info().Str("module", "signal").Str("sid", string(s.sid)).Msg("readPump closing")
	}()

	pongWait := ctl.pingPeriod() + writeWait
	ws := s.conn.conn
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := s.conn.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(s.sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleFrame(s, data)
		}
	}
}
