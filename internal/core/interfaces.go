package core

import "github.com/mkarpov/roulette/internal/domain"

// Frame is a raw wire payload, relayed without interpretation.
type Frame []byte

type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// RoomInfo is a read-only view for APIs (no transport fields).
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

// Stats is the on-demand projection of matchmaking state.
type Stats struct {
	Online    int            `json:"online"`
	Waiting   int            `json:"waiting"`
	InCall    int            `json:"in_call"`
	Countries map[string]int `json:"countries"`
}
