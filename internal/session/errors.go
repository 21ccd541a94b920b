package session

import (
	"errors"

	"github.com/multiversuskoth/mvsi-rollback-server/internal/obs"
)

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	ErrListen       = errors.New("listen")
	ErrDecompress   = errors.New("decompress")
	ErrParse        = errors.New("parse")
	ErrSerialize    = errors.New("serialize")
	ErrCompress     = errors.New("compress")
	ErrSend         = errors.New("send")
	ErrUnknownPeer  = errors.New("unknown_peer")
	ErrStalePacket  = errors.New("stale_packet")
	ErrContext      = errors.New("context_cancelled")
)

// mapErrToMetric maps wrapped sentinel errors to obs metrics labels.
func mapErrToMetric(err error) string {
	switch {
	case errors.Is(err, ErrDecompress):
		return obs.ErrDecompress
	case errors.Is(err, ErrParse):
		return obs.ErrParse
	case errors.Is(err, ErrSerialize):
		return obs.ErrSerialize
	case errors.Is(err, ErrCompress):
		return obs.ErrCompress
	case errors.Is(err, ErrSend):
		return obs.ErrSend
	case errors.Is(err, ErrUnknownPeer):
		return obs.ErrUnknownPeer
	default:
		return "other"
	}
}
