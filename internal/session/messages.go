package session

import (
	"context"
	"net"
	"time"

	"github.com/multiversuskoth/mvsi-rollback-server/internal/match"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/tick"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/wire"
)

// HandlePlayerPongResponse records the RTT for a RequestPing this player has
// now answered, and bumps its replied-ping count toward maxPingsBeforeReady.
func (s *Session) HandlePlayerPongResponse(payload wire.PongPayload, src *net.UDPAddr) {
	s.roster.With(func(players []*match.Player) {
		p := findBySocket(players, src)
		if p == nil {
			s.logger.Warn("pong_unknown_player", "src", src.String())
			return
		}
		start, ok := p.PendingPings[payload.ServerMessageSequenceNumber]
		if !ok {
			s.logger.Warn("pong_unknown_sequence", "seq", payload.ServerMessageSequenceNumber, "player_index", p.Index)
			return
		}
		delete(p.PendingPings, payload.ServerMessageSequenceNumber)
		p.Ping = uint16(time.Since(start).Milliseconds())
		p.RepliedPings++
	})
}

// HandlePlayerReady marks a roster member ready for match start. Once every
// member is ready, it sends StartGame to the whole roster and launches the
// tick engine that fans out PlayerInputs for the rest of the match.
func (s *Session) HandlePlayerReady(ctx context.Context, payload wire.ReadyForMatchPayload, src *net.UDPAddr) {
	allReady := false
	s.roster.With(func(players []*match.Player) {
		p := findBySocket(players, src)
		if p == nil {
			s.logger.Warn("ready_unknown_player", "src", src.String())
			return
		}
		p.Ready = payload.Ready != 0
		allReady = true
		for _, other := range players {
			if !other.Ready {
				allReady = false
				break
			}
		}
	})
	if !allReady {
		return
	}

	s.matchMu.Lock()
	m := s.match
	s.roster.With(func(players []*match.Player) {
		s.sendToAllLocked(players, m, wire.ServerStartGame, func(*match.Player) any { return wire.EmptyPayload{} })
	})
	s.matchMu.Unlock()
	s.setState(StateMatchInProgress)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		tick.Start(ctx, s, s.roster, s.logger)
	}()
}

// HandlePlayerInput records a client's new input frames. The host's ping is
// pinned to the slowest peer when exactly two players are in the match
// (there's no better signal for a 1v1 host's own latency); for every other
// player, rift is recomputed against the match's current frame.
func (s *Session) HandlePlayerInput(payload wire.PlayerInputPayload, src *net.UDPAddr) {
	s.matchMu.Lock()
	defer s.matchMu.Unlock()
	m := s.match

	s.roster.With(func(players []*match.Player) {
		p := findBySocket(players, src)
		if p == nil {
			return
		}

		var maxPing uint16
		for _, other := range players {
			if other.Ping > maxPing {
				maxPing = other.Ping
			}
		}

		p.LastClientFrame = payload.ClientFrame
		for i, input := range payload.InputPerFrame {
			frame := payload.StartFrame + uint32(i)
			p.Inputs[frame] = input
		}

		if p.IsHost {
			if m.NumPlayers == 2 {
				p.Ping = maxPing
			}
			m.CurrentFrame = p.LastClientFrame
		} else {
			p.Rift = calcRiftVariableTick(m.CurrentFrame, p.LastClientFrame, p.Ping)
		}
	})
}

// HandlePlayerInputAck advances a player's acked-frame watermarks and, when
// the ack carries a sequence number we still have a pending timestamp for,
// uses it to refresh that player's RTT estimate.
func (s *Session) HandlePlayerInputAck(payload wire.PlayerInputAckPayload, src *net.UDPAddr) {
	s.roster.With(func(players []*match.Player) {
		p := findBySocket(players, src)
		if p == nil {
			s.logger.Warn("input_ack_unknown_player", "src", src.String())
			return
		}
		for i, acked := range payload.AckFrame {
			if i < len(p.AckedFrames) && acked > 0 && p.AckedFrames[i] < acked {
				p.AckedFrames[i] = acked
			}
		}
		if start, ok := p.PendingPings[payload.ServerMessageSequenceNumber]; ok {
			delete(p.PendingPings, payload.ServerMessageSequenceNumber)
			p.Ping = uint16(time.Since(start).Milliseconds())
		}
	})
}

func findBySocket(players []*match.Player, src *net.UDPAddr) *match.Player {
	for _, p := range players {
		if p.Socket == nil {
			continue
		}
		if p.Socket.IP.Equal(src.IP) && p.Socket.Port == src.Port {
			return p
		}
	}
	return nil
}
