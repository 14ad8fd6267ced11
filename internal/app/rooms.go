package app

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkarpov/roulette/internal/core"
	"github.com/mkarpov/roulette/internal/domain"
)

// room holds a signaling group. Membership keeps insertion order.
type room struct {
	meta    *domain.Room
	members []core.SessionID
}

func (r *room) has(sid core.SessionID) bool {
	for _, id := range r.members {
		if id == sid {
			return true
		}
	}
	return false
}

func (r *room) add(sid core.SessionID) {
	if r.has(sid) {
		return
	}
	r.members = append(r.members, sid)
}

func (r *room) remove(sid core.SessionID) {
	for i, id := range r.members {
		if id == sid {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return
		}
	}
}

func (r *room) others(sid core.SessionID) []core.SessionID {
	out := make([]core.SessionID, 0, len(r.members))
	for _, id := range r.members {
		if id != sid {
			out = append(out, id)
		}
	}
	return out
}

// roomTable maps rooms and the session→room association. A session belongs
// to at most one room; an emptied room is deleted in the same operation
// that removes its last member. Plain container, guarded by the Matchmaker
// lock.
type roomTable struct {
	rooms map[domain.RoomID]*room
	bySID map[core.SessionID]domain.RoomID
}

func newRoomTable() *roomTable {
	return &roomTable{
		rooms: make(map[domain.RoomID]*room),
		bySID: make(map[core.SessionID]domain.RoomID),
	}
}

// create makes a fresh room containing the given members.
func (t *roomTable) create(members ...core.SessionID) *room {
	r := &room{meta: &domain.Room{
		ID:        domain.RoomID(uuid.NewString()),
		CreatedAt: time.Now(),
	}}
	t.rooms[r.meta.ID] = r
	for _, sid := range members {
		r.add(sid)
		t.bySID[sid] = r.meta.ID
	}
	return r
}

// join adds a session to the room with the given id, creating it when
// missing. The caller must have detached the session from any prior room.
func (t *roomTable) join(id domain.RoomID, sid core.SessionID) *room {
	r, ok := t.rooms[id]
	if !ok {
		r = &room{meta: &domain.Room{ID: id, CreatedAt: time.Now()}}
		t.rooms[id] = r
	}
	r.add(sid)
	t.bySID[sid] = id
	return r
}

// removeMember detaches the session from its room and prunes the room when
// it empties. Returns the room id and the remaining members. A session in
// no room is a no-op.
func (t *roomTable) removeMember(sid core.SessionID) (domain.RoomID, []core.SessionID, bool) {
	id, ok := t.bySID[sid]
	if !ok {
		return "", nil, false
	}
	delete(t.bySID, sid)
	r, ok := t.rooms[id]
	if !ok {
		return id, nil, true
	}
	r.remove(sid)
	if len(r.members) == 0 {
		delete(t.rooms, id)
		return id, nil, true
	}
	remaining := make([]core.SessionID, len(r.members))
	copy(remaining, r.members)
	return id, remaining, true
}

func (t *roomTable) roomOf(sid core.SessionID) (domain.RoomID, bool) {
	id, ok := t.bySID[sid]
	return id, ok
}

func (t *roomTable) othersOf(sid core.SessionID) []core.SessionID {
	id, ok := t.bySID[sid]
	if !ok {
		return nil
	}
	r, ok := t.rooms[id]
	if !ok {
		return nil
	}
	return r.others(sid)
}

func (t *roomTable) list() []core.RoomInfo {
	out := make([]core.RoomInfo, 0, len(t.rooms))
	for id, r := range t.rooms {
		out = append(out, core.RoomInfo{ID: id, MemberCount: len(r.members)})
	}
	return out
}
