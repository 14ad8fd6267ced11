package app

import "github.com/mkarpov/roulette/internal/core"

// waitQueue is the FIFO pairing source. It is a plain container: the
// Matchmaker lock guards every access.
type waitQueue struct {
	ids []core.SessionID
}

// enqueue appends to the tail. A session already queued is left in place so
// the queue never holds it twice.
func (q *waitQueue) enqueue(sid core.SessionID) {
	if q.contains(sid) {
		return
	}
	q.ids = append(q.ids, sid)
}

func (q *waitQueue) popFront() (core.SessionID, bool) {
	if len(q.ids) == 0 {
		return "", false
	}
	sid := q.ids[0]
	q.ids = q.ids[1:]
	return sid, true
}

// remove ejects a session wherever it sits; absent is a no-op.
func (q *waitQueue) remove(sid core.SessionID) {
	for i, id := range q.ids {
		if id == sid {
			q.ids = append(q.ids[:i], q.ids[i+1:]...)
			return
		}
	}
}

func (q *waitQueue) contains(sid core.SessionID) bool {
	for _, id := range q.ids {
		if id == sid {
			return true
		}
	}
	return false
}

func (q *waitQueue) len() int { return len(q.ids) }
