package signal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownMessage   = errors.New("unknown message type")
)

// inboundFrame is the union of every field a client may send.
type inboundFrame struct {
	Type      core.MessageType `json:"type"`
	RoomID    string           `json:"roomId"`
	Target    json.RawMessage  `json:"target"`
	Targets   []string         `json:"targets"`
	SDP       json.RawMessage  `json:"sdp"`
	Candidate json.RawMessage  `json:"candidate"`
}

// DecodeInbound parses one text frame into a validated message. Payloads
// (sdp, candidate) are kept as raw JSON and never inspected beyond presence.
func DecodeInbound(data []byte) (core.Inbound, error) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch f.Type {
	case core.MsgJoinRoom:
		if f.RoomID == "" {
			return nil, malformed(f.Type, "roomId required")
		}
		return core.JoinRoom{RoomID: domain.RoomID(f.RoomID)}, nil
	case core.MsgLeaveRoom:
		return core.LeaveRoom{}, nil
	case core.MsgPing:
		return core.Ping{}, nil
	case core.MsgOffer, core.MsgAnswer:
		return decodeRelay(f, f.SDP, "sdp")
	case core.MsgICECandidate:
		return decodeRelay(f, f.Candidate, "candidate")
	case "":
		return nil, malformed(f.Type, "type required")
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownMessage, f.Type)
	}
}

func decodeRelay(f inboundFrame, payload json.RawMessage, field string) (core.Inbound, error) {
	if f.RoomID == "" {
		return nil, malformed(f.Type, "roomId required")
	}
	if isAbsent(payload) {
		return nil, malformed(f.Type, field+" required")
	}

	m := core.Relay{
		Kind:    f.Type,
		RoomID:  domain.RoomID(f.RoomID),
		Payload: payload,
	}
	targets := f.Targets
	switch {
	case f.Target != nil && f.Targets != nil:
		return nil, malformed(f.Type, "target and targets are mutually exclusive")
	case isArray(f.Target):
		// Older clients send the batch form under "target".
		if err := json.Unmarshal(f.Target, &targets); err != nil {
			return nil, malformed(f.Type, "target is not a list of ids")
		}
		if targets == nil {
			targets = []string{}
		}
	case f.Target != nil:
		var one string
		if err := json.Unmarshal(f.Target, &one); err != nil {
			return nil, malformed(f.Type, "target is not an id")
		}
		if one == "" {
			return nil, malformed(f.Type, "target is empty")
		}
		m.Targets = []domain.ConnID{domain.ConnID(one)}
		return m, nil
	}
	if targets == nil {
		return nil, malformed(f.Type, "target required")
	}
	if len(targets) == 0 {
		return nil, malformed(f.Type, "targets is empty")
	}
	m.Batch = true
	m.Targets = make([]domain.ConnID, 0, len(targets))
	for _, t := range targets {
		if t == "" {
			return nil, malformed(f.Type, "targets contains an empty id")
		}
		m.Targets = append(m.Targets, domain.ConnID(t))
	}
	return m, nil
}

func isArray(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && b[0] == '['
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func malformed(t core.MessageType, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedMessage, t, reason)
}
