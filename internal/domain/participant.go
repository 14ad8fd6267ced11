// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"
)

const (
	MaxPeerIDLen = 64
	MaxAddrLen   = 64

	// CountryUnknown labels a participant whose address is not resolved (yet).
	CountryUnknown = "unknown"
)

var (
	ErrPeerIDEmpty   = errors.New("peer id empty")
	ErrPeerIDTooLong = errors.New("peer id too long")
)

// Participant is one connected user of the matchmaking system.
// Transport and lifecycle live in other layers.
type Participant struct {
	PeerID   string    `json:"peer_id"`
	Addr     string    `json:"-"`
	Country  string    `json:"country,omitempty"`
	JoinedAt time.Time `json:"-"`
}

// NewParticipant is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewParticipant(peerID, addr string) (*Participant, error) {
	if len(peerID) == 0 {
		return nil, ErrPeerIDEmpty
	}
	if len(peerID) > MaxPeerIDLen {
		return nil, ErrPeerIDTooLong
	}
	if len(addr) > MaxAddrLen {
		addr = addr[:MaxAddrLen]
	}
	return &Participant{PeerID: peerID, Addr: addr, JoinedAt: time.Now()}, nil
}

// Label returns the resolved country or the unknown placeholder.
func (p *Participant) Label() string {
	if p.Country == "" {
		return CountryUnknown
	}
	return p.Country
}
