package core

import (
	"encoding/json"

	"github.com/dkeye/Relay/internal/domain"
)

type EventType string

const (
	EventConnected        EventType = "connected"
	EventAllUsers         EventType = "all-users"
	EventUserJoined       EventType = "user-joined"
	EventUserLeft         EventType = "user-left"
	EventUserDisconnected EventType = "user-disconnected"
	EventLeft             EventType = "left"
	EventOffer            EventType = "offer"
	EventAnswer           EventType = "answer"
	EventICECandidate     EventType = "ice-candidate"
	EventPong             EventType = "pong"
	EventError            EventType = "error"
)

// Event is anything the core hands to Transport for delivery.
type Event interface {
	EventType() EventType
}

type Envelope struct {
	Type EventType `json:"type"`
}

func (e Envelope) EventType() EventType { return e.Type }

type Connected struct {
	Envelope
	ConnectionID domain.ConnID `json:"connectionId"`
}

type AllUsers struct {
	Envelope
	Peers []domain.ConnID `json:"peers"`
}

// PeerEvent covers user-joined, user-left and user-disconnected.
type PeerEvent struct {
	Envelope
	ConnectionID domain.ConnID `json:"connectionId"`
}

type Left struct {
	Envelope
	RoomID domain.RoomID `json:"roomId"`
}

type OfferRelayed struct {
	Envelope
	SDP    json.RawMessage `json:"sdp"`
	Caller domain.ConnID   `json:"caller"`
}

type AnswerRelayed struct {
	Envelope
	SDP      json.RawMessage `json:"sdp"`
	Answerer domain.ConnID   `json:"answerer"`
}

type CandidateRelayed struct {
	Envelope
	Candidate json.RawMessage `json:"candidate"`
	Sender    domain.ConnID   `json:"sender"`
}

type Error struct {
	Envelope
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewConnected(id domain.ConnID) Connected {
	return Connected{Envelope{EventConnected}, id}
}

func NewAllUsers(peers []domain.ConnID) AllUsers {
	if peers == nil {
		peers = []domain.ConnID{}
	}
	return AllUsers{Envelope{EventAllUsers}, peers}
}

func NewPeerEvent(t EventType, id domain.ConnID) PeerEvent {
	return PeerEvent{Envelope{t}, id}
}

func NewLeft(room domain.RoomID) Left {
	return Left{Envelope{EventLeft}, room}
}

func NewPong() Envelope {
	return Envelope{EventPong}
}

func NewError(code, msg string) Error {
	return Error{Envelope{EventError}, code, msg}
}
