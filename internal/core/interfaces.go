package core

import (
	"errors"

	"github.com/dkeye/Relay/internal/domain"
)

//go:generate mockgen -destination=mocks/transport.go -package=mocks . Transport

// Frame is a raw encoded payload ready for the wire.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Transport delivers events to logical connection ids.
// Send never blocks; failures are reported, never retried.
type Transport interface {
	Send(to domain.ConnID, ev Event) error
	Close(id domain.ConnID)
}

// RoomInfo is a read-only view for APIs.
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}
