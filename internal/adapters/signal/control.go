package signal

import (
	"errors"

	"github.com/dkeye/Relay/internal/domain"
)

// Error codes sent to clients in "error" frames.
const (
	CodeAlreadyInRoom = "already_in_room"
	CodeNotInRoom     = "not_in_room"
	CodeInternal      = "internal"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyInRoom):
		return CodeAlreadyInRoom
	case errors.Is(err, domain.ErrNotInRoom):
		return CodeNotInRoom
	default:
		return CodeInternal
	}
}
