package app

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Router is the signaling state machine. Everything it knows about
// membership lives in Registry; it only decides who receives what.
type Router struct {
	Registry  *RoomRegistry
	Transport core.Transport
	Policy    Policy
	Metrics   *metrics.Metrics

	// mu makes a membership change and its notifications one step, so no
	// peer hears about a departure before the arrival it follows.
	mu sync.Mutex
}

// Dispatch applies one decoded client message sent by from.
// Only state violations are returned; protocol violations are logged and dropped.
func (rt *Router) Dispatch(from domain.ConnID, msg core.Inbound) error {
	switch m := msg.(type) {
	case core.JoinRoom:
		return rt.JoinRoom(from, m.RoomID)
	case core.LeaveRoom:
		return rt.LeaveRoom(from)
	case core.Relay:
		if m.Batch {
			rt.RelayBatch(from, m.Kind, m.Targets, m.RoomID, m.Payload)
			return nil
		}
		if len(m.Targets) == 1 {
			rt.Relay(from, m.Kind, m.Targets[0], m.RoomID, m.Payload)
		}
		return nil
	case core.Ping:
		rt.deliver(from, core.NewPong())
		return nil
	case core.Disconnect:
		rt.Disconnect(from)
		return nil
	default:
		log.Warn().Str("module", "app.router").Str("conn", string(from)).Str("type", string(msg.MessageType())).Msg("unhandled message")
		return nil
	}
}

// Connect announces a newly admitted connection its own id.
func (rt *Router) Connect(id domain.ConnID) {
	rt.Metrics.ConnOpened()
	log.Info().Str("module", "app.router").Str("conn", string(id)).Msg("connected")
	rt.deliver(id, core.NewConnected(id))
}

// JoinRoom introduces id to the current members of room and them to id.
func (rt *Router) JoinRoom(id domain.ConnID, room domain.RoomID) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	peers, err := rt.Registry.Join(id, room)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("conn", string(id)).Str("room", string(room)).Msg("join rejected")
		return err
	}
	rt.Metrics.SetRooms(rt.Registry.RoomCount())

	rt.deliver(id, core.NewAllUsers(peers))
	joined := core.NewPeerEvent(core.EventUserJoined, id)
	for _, peer := range peers {
		rt.deliver(peer, joined)
	}
	return nil
}

// LeaveRoom removes id from its room without closing the connection.
func (rt *Router) LeaveRoom(id domain.ConnID) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	dep, ok := rt.Registry.Leave(id)
	if !ok {
		return domain.ErrNotInRoom
	}
	rt.Metrics.SetRooms(rt.Registry.RoomCount())

	rt.deliver(id, core.NewLeft(dep.Room))
	rt.fanOut(dep.Remaining, core.NewPeerEvent(core.EventUserLeft, id))
	return nil
}

// Disconnect handles the transport lifecycle event for id. Transport calls
// it once per connection.
func (rt *Router) Disconnect(id domain.ConnID) {
	rt.mu.Lock()
	dep, ok := rt.Registry.Leave(id)
	if ok {
		rt.Metrics.SetRooms(rt.Registry.RoomCount())
		rt.fanOut(dep.Remaining, core.NewPeerEvent(core.EventUserDisconnected, id))
	}
	rt.mu.Unlock()

	rt.Metrics.ConnClosed()
	log.Info().Str("module", "app.router").Str("conn", string(id)).Bool("had_room", ok).Msg("disconnected")
}

// Relay forwards payload from one peer to target, provided target is a
// member of room. It reports whether the event was handed to Transport.
func (rt *Router) Relay(from domain.ConnID, kind core.MessageType, target domain.ConnID, room domain.RoomID, payload json.RawMessage) bool {
	l := log.With().
		Str("module", "app.router").
		Str("kind", string(kind)).
		Str("conn", string(from)).
		Str("target", string(target)).
		Str("room", string(room)).
		Logger()

	if target == from {
		l.Warn().Msg("self-targeted relay dropped")
		rt.Metrics.Dropped(metrics.DropSelfTarget)
		return false
	}
	if !rt.Registry.IsMember(target, room) {
		l.Warn().Msg("target not in room, relay dropped")
		rt.Metrics.Dropped(metrics.DropNotInRoom)
		return false
	}

	ev, ok := relayEvent(kind, from, payload)
	if !ok {
		l.Warn().Msg("unknown relay kind")
		return false
	}
	rt.deliver(target, ev)
	rt.Metrics.Relayed(string(kind))
	l.Debug().Msg("relayed")
	return true
}

// RelayBatch applies Relay to every target once and returns how many were
// relayed.
func (rt *Router) RelayBatch(from domain.ConnID, kind core.MessageType, targets []domain.ConnID, room domain.RoomID, payload json.RawMessage) int {
	seen := make(map[domain.ConnID]struct{}, len(targets))
	n := 0
	for _, target := range targets {
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		if rt.Relay(from, kind, target, room, payload) {
			n++
		}
	}
	return n
}

func relayEvent(kind core.MessageType, from domain.ConnID, payload json.RawMessage) (core.Event, bool) {
	switch kind {
	case core.MsgOffer:
		return core.OfferRelayed{Envelope: core.Envelope{Type: core.EventOffer}, SDP: payload, Caller: from}, true
	case core.MsgAnswer:
		return core.AnswerRelayed{Envelope: core.Envelope{Type: core.EventAnswer}, SDP: payload, Answerer: from}, true
	case core.MsgICECandidate:
		return core.CandidateRelayed{Envelope: core.Envelope{Type: core.EventICECandidate}, Candidate: payload, Sender: from}, true
	}
	return nil, false
}

func (rt *Router) fanOut(to []domain.ConnID, ev core.Event) {
	for _, id := range to {
		rt.deliver(id, ev)
	}
}

// deliver is fire-and-forget. A failed send never changes membership.
// Transport.Send and Transport.Close must not block, since deliver runs
// under mu.
func (rt *Router) deliver(to domain.ConnID, ev core.Event) {
	err := rt.Transport.Send(to, ev)
	if err == nil {
		return
	}
	reason := "closed"
	if errors.Is(err, core.ErrBackpressure) {
		reason = "backpressure"
	}
	rt.Metrics.SendFailed(reason)
	log.Debug().Err(err).Str("module", "app.router").Str("to", string(to)).Str("event", string(ev.EventType())).Msg("send failed")

	if rt.Policy == nil {
		return
	}
	if rt.Policy.OnSendFailure(to, err) == CloseConnection {
		log.Warn().Str("module", "app.router").Str("conn", string(to)).Msg("closing slow connection")
		rt.Transport.Close(to)
	}
}
