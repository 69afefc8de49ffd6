// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

type (
	RoomID string
	ConnID string
)

var (
	ErrAlreadyInRoom = errors.New("already in room")
	ErrNotInRoom     = errors.New("not in room")
)

// NewConnID returns a fresh id for one transport session.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}
