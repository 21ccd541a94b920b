// Package tick runs the fixed-rate (16ms/60Hz) engine that fans out each
// match player's personalized PlayerInputs message: for every recipient, a
// per-peer window of un-acked input frames starting just past what that
// recipient has already acknowledged.
package tick

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/multiversuskoth/mvsi-rollback-server/internal/match"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/obs"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/wire"
)

// targetInterval is the fixed tick rate: 16ms, matching the original's
// 60Hz-ish cadence (1000/16 = 62.5Hz).
const targetInterval = 16 * time.Millisecond

// minBufferedInputFrames is the per-player input backlog the engine waits
// for before it starts fanning out PlayerInputs at all.
const minBufferedInputFrames = 5

// Sender is the subset of session.Session the tick engine needs: a way to
// run a closure with the match lock held, and a way to send one message
// within that closure. Defined here (not imported from session) to avoid a
// session<->tick import cycle — session.Session implements this directly.
type Sender interface {
	WithMatch(fn func(m *match.Match))
	SendLocked(m *match.Match, msgType wire.ServerMessageType, payload any, target *net.UDPAddr)
}

// Start runs the tick loop until ctx is done. Intended to be launched in its
// own goroutine once every roster member has sent ReadyForMatch.
func Start(ctx context.Context, sender Sender, roster *match.Roster, logger *slog.Logger) {
	ticker := time.NewTicker(targetInterval)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := time.Now()
		elapsed := now.Sub(lastTick)
		drift := elapsed - targetInterval
		if drift < 0 {
			drift = -drift
		}
		logDrift(logger, elapsed)
		obs.SetTickDrift(float64(drift.Microseconds()) / 1000.0)
		lastTick = now

		if roster.AllHaveInputBacklog(minBufferedInputFrames) {
			sender.WithMatch(func(m *match.Match) {
				fanOutPlayerInputs(sender, m, roster, now)
			})
		}
	}
}

func logDrift(logger *slog.Logger, elapsed time.Duration) {
	driftMs := (elapsed - targetInterval).Seconds() * 1000
	if elapsed > targetInterval {
		logger.Debug("tick_drift_late", "drift_ms", driftMs)
	} else {
		logger.Debug("tick_drift_early", "drift_ms", -driftMs)
	}
}

// fanOutPlayerInputs sends every recipient its personalized PlayerInputs
// message. Callers must already hold the match lock (via sender.WithMatch).
func fanOutPlayerInputs(sender Sender, m *match.Match, roster *match.Roster, now time.Time) {
	roster.With(func(players []*match.Player) {
		type peerHistory struct {
			index uint16
			inputs map[uint32]uint32
		}
		peerInputData := make([]peerHistory, len(players))
		for i, p := range players {
			peerInputData[i] = peerHistory{index: p.Index, inputs: p.Inputs}
		}

		for _, recipient := range players {
			recipient.MissedInputs = 0

			startFrame := make([]uint32, m.NumPlayers)
			numFrames := make([]uint8, m.NumPlayers)
			inputPerFrame := make([][]uint32, m.NumPlayers)

			for _, peer := range peerInputData {
				if int(peer.index) >= len(recipient.AckedFrames) || int(peer.index) >= len(inputPerFrame) {
					continue
				}
				lastAck := recipient.AckedFrames[peer.index]
				nextFrame := lastAck + 1

				if _, ok := peer.inputs[nextFrame]; !ok {
					continue
				}
				startFrame[peer.index] = nextFrame

				var framesForPlayer uint8
				f := nextFrame
				for {
					v, ok := peer.inputs[f]
					if !ok {
						break
					}
					inputPerFrame[peer.index] = append(inputPerFrame[peer.index], v)
					framesForPlayer++
					f++
				}
				numFrames[peer.index] = framesForPlayer
			}

			msg := wire.PlayerInputs{
				NumPlayers:            m.NumPlayers,
				StartFrame:            startFrame,
				NumFrames:             numFrames,
				NumPredictedOverrides: 0,
				Ping:                  recipient.Ping,
				PacketsLossPercent:    0,
				Rift:                  recipient.Rift,
				InputPerFrame:         inputPerFrame,
			}

			recipient.PendingPings[m.SequenceNumber] = now
			sender.SendLocked(m, wire.ServerPlayerInputs, msg, recipient.Socket)
		}
	})
}
