package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// SerializeServer encodes msg for the wire. maxPlayers controls the width of
// the fixed-size-by-roster arrays in PlayerInputs and PlayerGetReady.
func (Codec) SerializeServer(msg *ServerMessage, maxPlayers int) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(msg.Header.Type))
	if err := binary.Write(&buf, binary.LittleEndian, msg.Header.Sequence); err != nil {
		return nil, fmt.Errorf("wire: write sequence: %w", err)
	}

	switch data := msg.Payload.(type) {
	case PlayerConnectionResult:
		writeLE(&buf, data.Success, data.NumPlayers, data.PlayerIndex, data.MatchDuration, data.Unused0, data.Unused1)

	case PlayerInputs:
		buf.WriteByte(data.NumPlayers)
		for i := 0; i < maxPlayers; i++ {
			sf := sliceAt(data.StartFrame, i)
			writeLE(&buf, sf)
		}
		for i := 0; i < maxPlayers; i++ {
			nf := sliceAtU8(data.NumFrames, i)
			buf.WriteByte(nf)
		}
		writeLE(&buf, data.NumPredictedOverrides, data.Unused0, data.Ping, data.PacketsLossPercent)
		riftI16 := int16(roundFloat32(data.Rift * 100.0))
		writeLE(&buf, riftI16, data.Unused1)

		for pi := 0; pi < maxPlayers; pi++ {
			var playerInputs []uint32
			if pi < len(data.InputPerFrame) {
				playerInputs = data.InputPerFrame[pi]
			}
			numFrames := int(sliceAtU8(data.NumFrames, pi))
			for f := 0; f < numFrames; f++ {
				var v uint32
				if f < len(playerInputs) {
					v = playerInputs[f]
				}
				writeLE(&buf, v)
			}
		}

	case RequestPing:
		if err := binary.Write(&buf, binary.BigEndian, data.Ping); err != nil {
			return nil, fmt.Errorf("wire: write RequestPing.Ping: %w", err)
		}
		if err := binary.Write(&buf, binary.BigEndian, data.PacketsLossPercent); err != nil {
			return nil, fmt.Errorf("wire: write RequestPing.PacketsLossPercent: %w", err)
		}

	case Kick:
		writeLE(&buf, data.Reason, data.Param1)

	case PlayerGetReady:
		buf.WriteByte(data.NumPlayers)
		for i := 0; i < maxPlayers; i++ {
			writeLE(&buf, playerConfigValues[i%len(playerConfigValues)])
		}

	case PlayerDisconnected:
		writeLE(&buf, data.PlayerIndex, data.ShouldAITakeControl, data.AITakeControlFrame, data.PlayerDisconnectedArrayIndex)

	case StartGamePayload:
		// empty payload

	case EmptyPayload:
		// empty payload

	default:
		return nil, fmt.Errorf("wire: unknown server payload type %T", msg.Payload)
	}

	return buf.Bytes(), nil
}

// writeLE writes each value to buf in little-endian order. Panics only on
// an unsupported type, which would be a programmer error caught in tests.
func writeLE(buf *bytes.Buffer, values ...any) {
	for _, v := range values {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			panic(fmt.Sprintf("wire: writeLE: %v", err))
		}
	}
}

func sliceAt(s []uint32, i int) uint32 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func sliceAtU8(s []uint8, i int) uint8 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

// roundFloat32 rounds half away from zero, matching Rust's f32::round.
func roundFloat32(v float32) float32 {
	if v >= 0 {
		return float32(int64(v + 0.5))
	}
	return float32(int64(v - 0.5))
}
