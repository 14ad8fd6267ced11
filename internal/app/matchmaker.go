package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mkarpov/roulette/internal/core"
	"github.com/mkarpov/roulette/internal/domain"
	"github.com/mkarpov/roulette/internal/geoip"
)

const (
	msgPartnerSkipped      = "Your partner has skipped the call."
	msgPartnerDisconnected = "Your partner has disconnected."
	msgPartnerLeft         = "Your partner has left the call."
)

// entry is the presence record for one connected session.
type entry struct {
	p    *domain.Participant
	conn core.SignalConnection
}

// delivery is an outbound frame decided under the lock and handed to the
// connection only after the lock is released.
type delivery struct {
	sid     core.SessionID
	conn    core.SignalConnection
	payload any        // marshaled on dispatch
	raw     core.Frame // used as-is when payload is nil
}

// Matchmaker owns presence, the waiting queue, the pair table and the room
// table behind one lock. Every operation mutates them as a single atomic
// step; partial pairing state is never observable by a concurrent caller.
type Matchmaker struct {
	mu       sync.Mutex
	presence map[core.SessionID]*entry
	queue    waitQueue
	pairs    *pairTable
	rooms    *roomTable

	resolver   geoip.Resolver
	geoTimeout time.Duration
}

func NewMatchmaker(resolver geoip.Resolver, geoTimeout time.Duration) *Matchmaker {
	if geoTimeout <= 0 {
		geoTimeout = 2 * time.Second
	}
	return &Matchmaker{
		presence:   make(map[core.SessionID]*entry),
		pairs:      newPairTable(),
		rooms:      newRoomTable(),
		resolver:   resolver,
		geoTimeout: geoTimeout,
	}
}

// Join registers the participant and pairs it with the longest-waiting one,
// or queues it when nobody waits. A session that joins again first leaves
// whatever pairing state it still holds, like a skip would.
//
// The country label resolves in the background; pairing never waits for it.
func (m *Matchmaker) Join(sid core.SessionID, conn core.SignalConnection, peerID, addr string) error {
	p, err := domain.NewParticipant(peerID, addr)
	if err != nil {
		return err
	}

	m.mu.Lock()
	var out []delivery
	if prev, ok := m.presence[sid]; ok {
		out = m.detachLocked(sid, StatusSkipped, msgPartnerSkipped)
		if prev.p.Addr == p.Addr {
			p.Country = prev.p.Country // label is cached per session
		}
	}
	e := &entry{p: p, conn: conn}
	m.presence[sid] = e

	var partner *entry
	var partnerSID core.SessionID
	for {
		cand, ok := m.queue.popFront()
		if !ok {
			break
		}
		if pe, ok := m.presence[cand]; ok {
			partner, partnerSID = pe, cand
			break
		}
		// stale queue reference, drop and keep scanning
	}

	if partner == nil {
		m.queue.enqueue(sid)
		out = append(out, delivery{sid: sid, conn: conn, payload: statusMsg{Status: StatusWaiting}})
	} else {
		r := m.rooms.create(partnerSID, sid)
		m.pairs.link(partnerSID, sid)
		roomID := string(r.meta.ID)
		out = append(out,
			delivery{sid: partnerSID, conn: partner.conn, payload: statusMsg{
				Status: StatusMatched, PeerID: p.PeerID, Country: p.Label(), RoomID: roomID}},
			delivery{sid: sid, conn: conn, payload: statusMsg{
				Status: StatusMatched, PeerID: partner.p.PeerID, Country: partner.p.Label(), RoomID: roomID}},
		)
	}
	needResolve := m.resolver != nil && p.Country == "" && p.Addr != ""
	m.mu.Unlock()

	if partner == nil {
		log.Info().Str("module", "app.matchmaker").Str("sid", string(sid)).Str("peer", peerID).Msg("waiting for partner")
	} else {
		log.Info().Str("module", "app.matchmaker").Str("sid", string(sid)).Str("with", string(partnerSID)).Msg("paired")
	}

	if needResolve {
		go m.resolveCountry(sid, p.Addr)
	}
	m.dispatch(out)
	return nil
}

// Skip tears down the current pairing and notifies the former partner. The
// skipper is not re-enqueued; a fresh join frame restarts the search.
func (m *Matchmaker) Skip(sid core.SessionID) {
	m.mu.Lock()
	_, ok := m.presence[sid]
	var out []delivery
	if ok {
		out = m.detachLocked(sid, StatusSkipped, msgPartnerSkipped)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	log.Info().Str("module", "app.matchmaker").Str("sid", string(sid)).Msg("skipped")
	m.dispatch(out)
}

// Cancel ends the call with an acknowledgment to the initiator and destroys
// its presence record. A partner learns the peer is gone through the same
// teardown a disconnect uses.
func (m *Matchmaker) Cancel(sid core.SessionID) {
	m.mu.Lock()
	e, ok := m.presence[sid]
	var out []delivery
	if ok {
		out = m.detachLocked(sid, StatusPartnerDisconnected, msgPartnerDisconnected)
		delete(m.presence, sid)
		out = append(out, delivery{sid: sid, conn: e.conn, payload: statusMsg{Status: StatusCallEnded}})
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	log.Info().Str("module", "app.matchmaker").Str("sid", string(sid)).Msg("call canceled")
	m.dispatch(out)
}

// Disconnect runs the full cleanup for a closed or failed connection.
// Idempotent: a second call for the same session is a no-op.
func (m *Matchmaker) Disconnect(sid core.SessionID) {
	m.mu.Lock()
	e, ok := m.presence[sid]
	var out []delivery
	if ok {
		out = m.detachLocked(sid, StatusPartnerDisconnected, msgPartnerDisconnected)
		delete(m.presence, sid)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	e.conn.Close()
	log.Info().Str("module", "app.matchmaker").Str("sid", string(sid)).Msg("session disconnected")
	m.dispatch(out)
}

// Relay forwards a signaling frame verbatim to every other member of the
// sender's room. The sender never gets its own frame back.
func (m *Matchmaker) Relay(sid core.SessionID, frame core.Frame) {
	m.mu.Lock()
	var out []delivery
	for _, other := range m.rooms.othersOf(sid) {
		if oe, ok := m.presence[other]; ok {
			out = append(out, delivery{sid: other, conn: oe.conn, raw: frame})
		}
	}
	m.mu.Unlock()
	m.dispatch(out)
}

// JoinRoom moves the session into the room with the given id, creating it
// when missing. Any previous pairing or membership is torn down first.
func (m *Matchmaker) JoinRoom(sid core.SessionID, roomID domain.RoomID) {
	if roomID == "" {
		return
	}
	m.mu.Lock()
	e, ok := m.presence[sid]
	var out []delivery
	if ok {
		out = m.detachLocked(sid, StatusSkipped, msgPartnerLeft)
		r := m.rooms.join(roomID, sid)
		out = append(out, delivery{sid: sid, conn: e.conn,
			payload: roomEvent{Type: EventRoomJoined, RoomID: string(roomID)}})
		for _, other := range r.others(sid) {
			if oe, ok := m.presence[other]; ok {
				out = append(out, delivery{sid: other, conn: oe.conn,
					payload: roomEvent{Type: EventUserJoined, RoomID: string(roomID), PeerID: e.p.PeerID}})
			}
		}
	}
	m.mu.Unlock()
	if ok {
		log.Info().Str("module", "app.matchmaker").Str("sid", string(sid)).Str("room", string(roomID)).Msg("joined room")
	}
	m.dispatch(out)
}

// LeaveRoom detaches the session from its room; being in no room is a no-op.
func (m *Matchmaker) LeaveRoom(sid core.SessionID) {
	m.mu.Lock()
	e, ok := m.presence[sid]
	var out []delivery
	if ok {
		if roomID, inRoom := m.rooms.roomOf(sid); inRoom {
			out = m.detachLocked(sid, StatusSkipped, msgPartnerLeft)
			out = append(out, delivery{sid: sid, conn: e.conn,
				payload: roomEvent{Type: EventRoomLeft, RoomID: string(roomID)}})
		}
	}
	m.mu.Unlock()
	m.dispatch(out)
}

// SetCountry records the resolved label. Notifications built afterwards pick
// it up; an already-set label wins.
func (m *Matchmaker) SetCountry(sid core.SessionID, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.presence[sid]; ok && e.p.Country == "" {
		e.p.Country = label
	}
}

// Snapshot computes the statistics projection from the live registries.
func (m *Matchmaker) Snapshot() core.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := core.Stats{
		Online:    len(m.presence),
		Waiting:   m.queue.len(),
		InCall:    m.pairs.size(),
		Countries: make(map[string]int, len(m.presence)),
	}
	for _, e := range m.presence {
		s.Countries[e.p.Label()]++
	}
	return s
}

// Rooms lists live rooms with member counts.
func (m *Matchmaker) Rooms() []core.RoomInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms.list()
}

// detachLocked pulls the session out of the queue, its pair and its room as
// one step. The former partner, if any, gets partnerStatus; other room
// members get a user-left event. Safe for a session in any state.
func (m *Matchmaker) detachLocked(sid core.SessionID, partnerStatus, partnerNote string) []delivery {
	var out []delivery
	m.queue.remove(sid)

	partner, paired := m.pairs.unlink(sid)

	self := m.presence[sid]
	if roomID, remaining, ok := m.rooms.removeMember(sid); ok {
		for _, other := range remaining {
			if paired && other == partner {
				continue // the partner gets the status note instead
			}
			if oe, ok := m.presence[other]; ok {
				ev := roomEvent{Type: EventUserLeft, RoomID: string(roomID)}
				if self != nil {
					ev.PeerID = self.p.PeerID
				}
				out = append(out, delivery{sid: other, conn: oe.conn, payload: ev})
			}
		}
	}

	if paired {
		// the pair's room dies with the pair: pull the partner out too
		if roomID, remaining, ok := m.rooms.removeMember(partner); ok {
			for _, other := range remaining {
				if oe, ok := m.presence[other]; ok {
					ev := roomEvent{Type: EventUserLeft, RoomID: string(roomID)}
					if pe, ok := m.presence[partner]; ok {
						ev.PeerID = pe.p.PeerID
					}
					out = append(out, delivery{sid: other, conn: oe.conn, payload: ev})
				}
			}
		}
		if pe, ok := m.presence[partner]; ok {
			out = append(out, delivery{sid: partner, conn: pe.conn,
				payload: statusMsg{Status: partnerStatus, Message: partnerNote}})
		}
	}
	return out
}

// dispatch hands frames to connections outside the lock. A connection that
// refuses a frame is torn down through the regular disconnect path.
func (m *Matchmaker) dispatch(out []delivery) {
	for _, d := range out {
		frame := d.raw
		if d.payload != nil {
			b, err := json.Marshal(d.payload)
			if err != nil {
				log.Error().Err(err).Str("module", "app.matchmaker").Msg("marshal notification")
				continue
			}
			frame = b
		}
		if err := d.conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.matchmaker").Str("sid", string(d.sid)).Msg("send failed, dropping session")
			m.Disconnect(d.sid)
		}
	}
}

func (m *Matchmaker) resolveCountry(sid core.SessionID, addr string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.geoTimeout)
	defer cancel()
	label, err := m.resolver.Resolve(ctx, addr)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.matchmaker").Str("sid", string(sid)).Msg("geo lookup failed")
		return
	}
	m.SetCountry(sid, label)
}
