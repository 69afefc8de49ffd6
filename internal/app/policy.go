package app

import (
	"errors"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
)

type SendFailureAction int

const (
	NoAction SendFailureAction = iota
	CloseConnection
)

// Policy decides what happens to a peer whose transport rejected an event.
// It must not touch the registry; closing the connection produces a
// disconnect that does that.
type Policy interface {
	OnSendFailure(to domain.ConnID, err error) SendFailureAction
}

// SimplePolicy drops slow consumers and ignores peers that are already gone.
type SimplePolicy struct{}

func (SimplePolicy) OnSendFailure(_ domain.ConnID, err error) SendFailureAction {
	if errors.Is(err, core.ErrBackpressure) {
		return CloseConnection
	}
	return NoAction
}
