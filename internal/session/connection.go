package session

import (
	"context"
	"net"
	"time"

	"github.com/multiversuskoth/mvsi-rollback-server/internal/match"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/registry"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/wire"
)

// tryRegisterMatchLocked registers the match with the backend the first
// time any player connects. Callers must hold matchMu. Matches the
// original's behavior of holding the match lock across the outbound HTTP
// call: the first connection blocks briefly so every later connection sees
// a consistent, already-registered match.
func (s *Session) tryRegisterMatchLocked(ctx context.Context, m *match.Match, payload wire.PlayerConnectionPayload) {
	if m.Ready {
		return
	}
	if s.registry == nil {
		s.logger.Warn("registry_unconfigured", "match_id", payload.MatchID)
		return
	}

	cfg, err := s.registry.Register(ctx, payload.MatchID, payload.Key)
	if err != nil {
		s.logger.Error("register_match_failed", "match_id", payload.MatchID, "error", err)
		return
	}

	s.httpPlayersMu.Lock()
	s.httpPlayers = cfg.Players
	s.httpPlayersMu.Unlock()

	m.NumPlayers = cfg.MaxPlayers
	m.ID = payload.MatchID
	m.Key = payload.Key
	m.Ready = true
	m.MatchDuration = cfg.MatchDuration

	s.logger.Info("match_registered", "match_id", m.ID, "num_players", m.NumPlayers, "duration", m.MatchDuration)
}

// HandleNewConnection processes a PlayerConnection message: on the first
// connection it registers the match and elects a host (self, if the
// backend roster says so; otherwise it records the remote host's socket
// and the session becomes a pure relay for every later packet). Subsequent
// connections from other local roster members are only accepted on the
// host — a non-host session never builds a local roster at all.
func (s *Session) HandleNewConnection(ctx context.Context, payload wire.PlayerConnectionPayload, src *net.UDPAddr) {
	currentPlayerIndex := payload.PlayerIndex

	s.matchMu.Lock()
	defer s.matchMu.Unlock()
	m := s.match

	if !s.isLocalPlayerConnected.Load() {
		s.localSocketMu.Lock()
		s.localSocket = src
		s.localSocketMu.Unlock()

		s.tryRegisterMatchLocked(ctx, m, payload)
		s.isLocalPlayerConnected.Store(true)

		s.httpPlayersMu.Lock()
		httpPlayersData := append([]registry.Player(nil), s.httpPlayers...)
		s.httpPlayersMu.Unlock()

		for _, hp := range httpPlayersData {
			if hp.PlayerIndex != currentPlayerIndex {
				continue
			}
			if hp.IsHost {
				s.logger.Info("player_is_host", "player_index", currentPlayerIndex)
				s.isHost.Store(true)
				s.setState(StatePinging)

				for _, peer := range httpPlayersData {
					if peer.PlayerIndex == currentPlayerIndex {
						continue
					}
					s.spawnHolePunch(peer)
				}
			} else {
				for _, peer := range httpPlayersData {
					if !peer.IsHost {
						continue
					}
					hostAddr := resolveRosterAddr(peer.IP, s.port)
					s.hostSocketMu.Lock()
					s.hostSocket = hostAddr
					s.hostSocketMu.Unlock()
					s.passthrough.Store(true)
					s.logger.Info("relaying_to_host", "host", hostAddr.String())
				}
			}
			break
		}
		// Non-host sessions never build a local roster; every later packet
		// is forwarded by the relay branch of handleIncomingMessage.
		s.hostSocketMu.Lock()
		isRelay := s.hostSocket != nil
		s.hostSocketMu.Unlock()
		if isRelay {
			return
		}
	}

	if s.roster.FindByIndex(currentPlayerIndex) != nil {
		s.logger.Debug("player_already_connected", "player_index", currentPlayerIndex, "src", src.String())
		return
	}

	s.hostSocketMu.Lock()
	isRelay := s.hostSocket != nil
	s.hostSocketMu.Unlock()
	if isRelay {
		return
	}

	s.httpPlayersMu.Lock()
	var httpPlayer *registry.Player
	for i := range s.httpPlayers {
		if s.httpPlayers[i].PlayerIndex == currentPlayerIndex {
			httpPlayer = &s.httpPlayers[i]
			break
		}
	}
	s.httpPlayersMu.Unlock()
	if httpPlayer == nil {
		return
	}

	result := wire.PlayerConnectionResult{
		Success:       0,
		NumPlayers:    m.NumPlayers,
		PlayerIndex:   uint8(currentPlayerIndex),
		MatchDuration: m.MatchDuration,
	}

	player := match.NewPlayer(currentPlayerIndex, payload.TeamID, src, m.NumPlayers, httpPlayer.IsHost)
	s.roster.Add(player)

	s.sendMessageLocked(m, wire.ServerPlayerConnection, result, src)
	s.logger.Debug("player_connected", "player_index", currentPlayerIndex, "src", src.String())

	if m.Ready && s.roster.AllConnected(int(m.NumPlayers)) {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.PingPlayers(ctx)
		}()
	}
}

// spawnHolePunch fires holePunchCount probes at peer, 100ms apart, so both
// sides' NATs open a mapping before the peer ever addresses us directly.
func (s *Session) spawnHolePunch(peer registry.Player) {
	target := resolveRosterAddr(peer.IP, s.port)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for count := 0; count < holePunchCount; count++ {
			s.matchMu.Lock()
			s.sendHolePunchLocked(s.match, target)
			s.matchMu.Unlock()
			time.Sleep(holePunchInterval)
		}
	}()
}

func resolveRosterAddr(ip string, port uint16) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(ip), Port: int(port)}
}
