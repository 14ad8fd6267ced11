package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mkarpov/roulette/internal/domain"
)

// envelope peeks at the recognized fields of an inbound frame. The three
// shapes on the wire are the join frame {peer_id, ip}, the action frame
// {action} and the signaling frame {type, roomId?, ...}.
type envelope struct {
	PeerID string `json:"peer_id"`
	IP     string `json:"ip"`
	Action string `json:"action"`
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

func (ctl *Controller) handleFrame(s *session, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(s.sid)).Msg("bad json, frame ignored")
		return
	}

	switch {
	case env.PeerID != "":
		ctl.handleJoin(s, env)
	case env.Action == "skip":
		ctl.mm.Skip(s.sid)
	case env.Action == "cancel":
		ctl.mm.Cancel(s.sid)
	case env.Type == "offer" || env.Type == "answer" || env.Type == "ice-candidate":
		if !s.joined {
			log.Warn().Str("module", "signal").Str("sid", string(s.sid)).Str("type", env.Type).Msg("signaling before join, ignored")
			return
		}
		ctl.mm.Relay(s.sid, data)
	case env.Type == "join-room":
		if !s.joined {
			return
		}
		ctl.mm.JoinRoom(s.sid, domain.RoomID(env.RoomID))
	case env.Type == "leave-room":
		ctl.mm.LeaveRoom(s.sid)
	default:
		log.Warn().Str("module", "signal").Str("sid", string(s.sid)).Str("type", env.Type).Str("action", env.Action).Msg("unknown frame, ignored")
	}
}

func (ctl *Controller) handleJoin(s *session, env envelope) {
	addr := env.IP
	if addr == "" {
		addr = s.addr
	}
	if err := ctl.mm.Join(s.sid, s.conn, env.PeerID, addr); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(s.sid)).Msg("join rejected")
		return
	}
	s.joined = true
}
