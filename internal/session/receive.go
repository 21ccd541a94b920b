package session

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/multiversuskoth/mvsi-rollback-server/internal/compress"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/match"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/obs"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/wire"
)

// receiveLoop reads datagrams off the bound socket until it closes (which
// Serve ties to ctx.Done), dispatching each one on its own goroutine so a
// slow handler for one packet never stalls the next recvfrom.
func (s *Session) receiveLoop(ctx context.Context) error {
	buf := make([]byte, compress.MaxBufferSize)
	for {
		n, src, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			wrap := fmt.Errorf("%w: %v", ErrListen, err)
			obs.IncError(mapErrToMetric(wrap))
			s.setError(wrap)
			return wrap
		}
		obs.IncPacketsRx(n)

		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		srcAddr := &net.UDPAddr{IP: append(net.IP(nil), src.IP...), Port: src.Port, Zone: src.Zone}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleIncomingMessage(ctx, pkt, srcAddr)
		}()
	}
}

// handleIncomingMessage is the relay-first dispatch: once this session has
// recorded a remote host's socket, every packet is forwarded verbatim
// (compressed bytes untouched) rather than parsed, matching the original's
// pure-passthrough behavior for non-host sessions. Otherwise the packet is
// decompressed, parsed, and dispatched by client message type.
func (s *Session) handleIncomingMessage(ctx context.Context, pkt []byte, src *net.UDPAddr) {
	s.hostSocketMu.Lock()
	hostSocket := s.hostSocket
	s.hostSocketMu.Unlock()

	if hostSocket != nil {
		s.relay(pkt, src, hostSocket)
		return
	}

	decompressed, err := compress.Decompress(pkt, compress.MaxBufferSize)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrDecompress, err)
		obs.IncError(mapErrToMetric(wrap))
		obs.IncMalformed()
		s.logger.Warn("decompress_failed", "src", src.String(), "error", err)
		return
	}

	msg, err := s.codec.ParseClient(decompressed)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrParse, err)
		obs.IncError(mapErrToMetric(wrap))
		obs.IncMalformed()
		s.logger.Warn("parse_failed", "src", src.String(), "error", err)
		return
	}

	s.logger.Debug("recv_message", "type", msg.Header.Type, "src", src.String())

	if msg.Header.Type == wire.ClientHolePunch {
		return
	}

	if msg.Header.Type == wire.ClientPlayerConnection {
		if payload, ok := msg.Payload.(wire.PlayerConnectionPayload); ok {
			s.HandleNewConnection(ctx, payload, src)
		} else {
			s.logger.Warn("unexpected_payload", "type", msg.Header.Type)
		}
		return
	}

	if stale := s.rejectStale(msg.Header.Sequence, src); stale {
		return
	}

	switch msg.Header.Type {
	case wire.ClientPong:
		if payload, ok := msg.Payload.(wire.PongPayload); ok {
			s.HandlePlayerPongResponse(payload, src)
		}
	case wire.ClientReadyForMatch:
		if payload, ok := msg.Payload.(wire.ReadyForMatchPayload); ok {
			s.HandlePlayerReady(ctx, payload, src)
		}
	case wire.ClientPlayerInput:
		if payload, ok := msg.Payload.(wire.PlayerInputPayload); ok {
			s.HandlePlayerInput(payload, src)
		}
	case wire.ClientPlayerInputAck:
		if payload, ok := msg.Payload.(wire.PlayerInputAckPayload); ok {
			s.HandlePlayerInputAck(payload, src)
		}
	case wire.ClientDisconnecting:
		s.logger.Debug("player_disconnecting", "src", src.String())
	default:
		s.logger.Warn("unhandled_message_type", "type", msg.Header.Type)
	}
}

// relay forwards a compressed packet verbatim: traffic arriving from the
// local loopback player goes to the remote host, everything else (the
// host's replies) goes to our local player's socket.
func (s *Session) relay(pkt []byte, src, hostSocket *net.UDPAddr) {
	var target *net.UDPAddr
	if src.IP.IsLoopback() {
		target = hostSocket
	} else {
		s.localSocketMu.Lock()
		target = s.localSocket
		s.localSocketMu.Unlock()
		if target == nil {
			s.logger.Warn("relay_no_local_socket", "src", src.String())
			return
		}
	}

	if _, err := s.conn.WriteToUDP(pkt, target); err != nil {
		s.logger.Error("relay_send_failed", "target", target.String(), "error", err)
		obs.IncError(obs.ErrSend)
		return
	}
	obs.IncRelayForwarded()
	obs.IncPacketsTx(len(pkt))
}

// rejectStale drops a message whose sequence number is behind the last one
// seen from this player, and otherwise advances that watermark. A src with
// no matching roster slot is treated as stale (dropped) as well.
func (s *Session) rejectStale(seq uint32, src *net.UDPAddr) bool {
	stale := true
	s.roster.With(func(players []*match.Player) {
		p := findBySocket(players, src)
		if p == nil {
			s.logger.Warn("message_unknown_player", "src", src.String())
			return
		}
		if seq < p.LastSeqReceived {
			s.logger.Warn("stale_message", "src", src.String(), "seq", seq, "last", p.LastSeqReceived)
			return
		}
		p.LastSeqReceived = seq
		stale = false
	})
	return stale
}
