package session

import (
	"context"
	"time"

	"github.com/multiversuskoth/mvsi-rollback-server/internal/match"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/wire"
)

const pingInterval = 100 * time.Millisecond

// PingPlayers runs the connect-time ping loop: every pingInterval it sends
// every roster member a RequestPing until all of them have replied
// maxPingsBeforeReady times, then sorts the roster by index and sends
// PlayerGetReady. The match lock is held for the loop's whole duration,
// which is safe because no other inbound message type is expected before
// PlayerGetReady is sent.
func (s *Session) PingPlayers(ctx context.Context) {
	s.matchMu.Lock()
	defer s.matchMu.Unlock()
	m := s.match

	for {
		allPinged := false
		s.roster.With(func(players []*match.Player) {
			allPinged = true
			for _, p := range players {
				if p.RepliedPings < maxPingsBeforeReady {
					allPinged = false
					break
				}
			}
			if allPinged {
				return
			}
			for _, p := range players {
				msg := wire.RequestPing{Ping: p.Ping, PacketsLossPercent: 0}
				seq := m.SequenceNumber
				p.PendingPings[seq] = time.Now()
				s.sendMessageLocked(m, wire.ServerRequestPing, msg, p.Socket)
			}
		})
		if allPinged {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(pingInterval):
		}
	}

	s.roster.SortByIndex()
	s.sendPlayersGetReadyLocked(m)
	s.setState(StateReady)
}

// sendPlayersGetReadyLocked tells every roster member the final player
// count and per-slot configuration. Callers must hold matchMu.
func (s *Session) sendPlayersGetReadyLocked(m *match.Match) {
	s.roster.With(func(players []*match.Player) {
		playerCount := uint8(len(players))
		for _, p := range players {
			msg := wire.PlayerGetReady{NumPlayers: playerCount}
			s.sendMessageLocked(m, wire.ServerPlayerGetReady, msg, p.Socket)
		}
	})
}
