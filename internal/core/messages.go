package core

import (
	"encoding/json"

	"github.com/dkeye/Relay/internal/domain"
)

type MessageType string

const (
	MsgJoinRoom     MessageType = "join-room"
	MsgLeaveRoom    MessageType = "leave-room"
	MsgOffer        MessageType = "offer"
	MsgAnswer       MessageType = "answer"
	MsgICECandidate MessageType = "ice-candidate"
	MsgPing         MessageType = "ping"
	MsgDisconnect   MessageType = "disconnect"
)

// Inbound is a decoded and validated client message.
type Inbound interface {
	MessageType() MessageType
}

type JoinRoom struct {
	RoomID domain.RoomID
}

type LeaveRoom struct{}

// Relay is an offer, answer or ice-candidate addressed to peers of RoomID.
// Batch is set when the client used the multi-target form.
type Relay struct {
	Kind    MessageType
	Targets []domain.ConnID
	Batch   bool
	RoomID  domain.RoomID
	Payload json.RawMessage
}

type Ping struct{}

// Disconnect is produced by the transport, never decoded from the wire.
type Disconnect struct{}

func (JoinRoom) MessageType() MessageType   { return MsgJoinRoom }
func (LeaveRoom) MessageType() MessageType  { return MsgLeaveRoom }
func (m Relay) MessageType() MessageType    { return m.Kind }
func (Ping) MessageType() MessageType       { return MsgPing }
func (Disconnect) MessageType() MessageType { return MsgDisconnect }
