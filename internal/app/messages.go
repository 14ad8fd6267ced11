package app

// Outbound matchmaking notifications. Signaling frames (offer, answer,
// ice-candidate) are relayed verbatim and never rebuilt here.

const (
	StatusWaiting             = "waiting"
	StatusMatched             = "matched"
	StatusSkipped             = "skipped"
	StatusCallEnded           = "call_ended"
	StatusPartnerDisconnected = "partner_disconnected"
)

const (
	EventRoomJoined = "room-joined"
	EventRoomLeft   = "room-left"
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
)

type statusMsg struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	PeerID  string `json:"peer_id,omitempty"`
	Country string `json:"country,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

type roomEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	PeerID string `json:"peer_id,omitempty"`
}
