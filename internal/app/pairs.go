package app

import "github.com/mkarpov/roulette/internal/core"

// pairTable keeps the symmetric partner mapping for matched sessions.
// If a→b is present then b→a is present. Plain container, guarded by the
// Matchmaker lock.
type pairTable struct {
	partner map[core.SessionID]core.SessionID
}

func newPairTable() *pairTable {
	return &pairTable{partner: make(map[core.SessionID]core.SessionID)}
}

func (t *pairTable) link(a, b core.SessionID) {
	t.partner[a] = b
	t.partner[b] = a
}

func (t *pairTable) partnerOf(sid core.SessionID) (core.SessionID, bool) {
	p, ok := t.partner[sid]
	return p, ok
}

// unlink removes both directions and reports the former partner.
// Unlinking an unpaired session is a no-op.
func (t *pairTable) unlink(sid core.SessionID) (core.SessionID, bool) {
	p, ok := t.partner[sid]
	if !ok {
		return "", false
	}
	delete(t.partner, sid)
	delete(t.partner, p)
	return p, true
}

// size reports the number of pairs, not keys.
func (t *pairTable) size() int { return len(t.partner) / 2 }
