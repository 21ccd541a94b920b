package session

import (
	"net"

	"github.com/multiversuskoth/mvsi-rollback-server/internal/compress"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/match"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/obs"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/wire"
)

// sendMessageLocked serializes, compresses, and sends one message to
// target. The caller must already hold matchMu: the sequence number is
// read and advanced here, so holding matchMu across an entire per-recipient
// fan-out (as the tick engine and the ping loop do) is what keeps the
// sequence monotonic across the whole match, not just within one send.
func (s *Session) sendMessageLocked(m *match.Match, msgType wire.ServerMessageType, payload any, target *net.UDPAddr) {
	msg := &wire.ServerMessage{
		Header:  wire.ServerHeader{Type: msgType, Sequence: m.SequenceNumber},
		Payload: payload,
	}
	serialized, err := s.codec.SerializeServer(msg, int(m.NumPlayers))
	if err != nil {
		s.logger.Warn("serialize_failed", "type", msgType, "error", err)
		obs.IncError(obs.ErrSerialize)
		return
	}
	m.SequenceNumber++

	compressed, err := compress.Compress(serialized)
	if err != nil {
		s.logger.Warn("compress_failed", "type", msgType, "error", err)
		obs.IncError(obs.ErrCompress)
		return
	}

	if _, err := s.conn.WriteToUDP(compressed, target); err != nil {
		s.logger.Error("send_failed", "type", msgType, "target", target.String(), "error", err)
		obs.IncError(obs.ErrSend)
		return
	}
	obs.IncPacketsTx(len(compressed))
	s.logger.Debug("sent_message", "type", msgType, "target", target.String())
}

// sendHolePunchLocked sends an empty hole-punch probe to target.
func (s *Session) sendHolePunchLocked(m *match.Match, target *net.UDPAddr) {
	s.sendMessageLocked(m, wire.ServerHolePunch, wire.EmptyPayload{}, target)
	obs.IncHolePunchSent()
}

// sendToAllLocked sends msgType to every player in players, in slice order,
// with the payload payloadFor builds for each one. Callers must hold matchMu
// for the duration so the sequence numbers stay contiguous across the whole
// broadcast.
func (s *Session) sendToAllLocked(players []*match.Player, m *match.Match, msgType wire.ServerMessageType, payloadFor func(*match.Player) any) {
	for _, p := range players {
		s.sendMessageLocked(m, msgType, payloadFor(p), p.Socket)
	}
}
