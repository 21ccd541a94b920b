package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrShortHeader is returned when a buffer is too small to hold a 5-byte
// client message header.
var ErrShortHeader = errors.New("wire: buffer too small for client header")

// ErrUnknownClientType is returned when the type tag byte does not match any
// known ClientMessageType.
var ErrUnknownClientType = errors.New("wire: unknown client message type")

// Codec parses client messages and serializes server messages. Stateless
// and safe for concurrent use.
type Codec struct{}

// ParseClient decodes a single client message from buf (already decompressed).
func (Codec) ParseClient(buf []byte) (*ClientMessage, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: got %d, need >=%d", ErrShortHeader, len(buf), HeaderSize)
	}

	r := bytes.NewReader(buf)
	var typeByte uint8
	if err := binary.Read(r, binary.LittleEndian, &typeByte); err != nil {
		return nil, fmt.Errorf("wire: read type: %w", err)
	}
	var seq uint32
	if err := binary.Read(r, binary.LittleEndian, &seq); err != nil {
		return nil, fmt.Errorf("wire: read sequence: %w", err)
	}

	msgType := ClientMessageType(typeByte)
	header := ClientHeader{Type: msgType, Sequence: seq}

	payload, err := parseClientPayload(r, msgType)
	if err != nil {
		return nil, err
	}

	return &ClientMessage{Header: header, Payload: payload}, nil
}

func parseClientPayload(r *bytes.Reader, msgType ClientMessageType) (any, error) {
	switch msgType {
	case ClientPlayerConnection:
		var messageVersion, teamID, playerIndex uint16
		if err := readLE(r, &messageVersion, &teamID, &playerIndex); err != nil {
			return nil, fmt.Errorf("wire: PlayerConnection header: %w", err)
		}
		matchID, err := readFixedString(r, 25)
		if err != nil {
			return nil, fmt.Errorf("wire: PlayerConnection match_id: %w", err)
		}
		key, err := readFixedString(r, 45)
		if err != nil {
			return nil, fmt.Errorf("wire: PlayerConnection key: %w", err)
		}
		environmentID, err := readFixedString(r, 25)
		if err != nil {
			return nil, fmt.Errorf("wire: PlayerConnection environment_id: %w", err)
		}
		return PlayerConnectionPayload{
			MessageVersion: messageVersion,
			TeamID:         teamID,
			PlayerIndex:    playerIndex,
			MatchID:        matchID,
			Key:            key,
			EnvironmentID:  environmentID,
		}, nil

	case ClientPlayerInput:
		var startFrame, clientFrame uint32
		if err := readLE(r, &startFrame, &clientFrame); err != nil {
			return nil, fmt.Errorf("wire: PlayerInput frames: %w", err)
		}
		var numFrames, numChecksums uint8
		if err := readLE(r, &numFrames, &numChecksums); err != nil {
			return nil, fmt.Errorf("wire: PlayerInput counts: %w", err)
		}
		inputPerFrame := make([]uint32, numFrames)
		for i := range inputPerFrame {
			if err := readLE(r, &inputPerFrame[i]); err != nil {
				return nil, fmt.Errorf("wire: PlayerInput input[%d]: %w", i, err)
			}
		}
		checksumPerFrame := make([]uint32, numChecksums)
		for i := range checksumPerFrame {
			if err := readLE(r, &checksumPerFrame[i]); err != nil {
				return nil, fmt.Errorf("wire: PlayerInput checksum[%d]: %w", i, err)
			}
		}
		return PlayerInputPayload{
			StartFrame:       startFrame,
			ClientFrame:      clientFrame,
			NumFrames:        numFrames,
			NumChecksums:     numChecksums,
			InputPerFrame:    inputPerFrame,
			ChecksumPerFrame: checksumPerFrame,
		}, nil

	case ClientPlayerInputAck:
		var numPlayers uint8
		if err := readLE(r, &numPlayers); err != nil {
			return nil, fmt.Errorf("wire: PlayerInputAck count: %w", err)
		}
		ackFrame := make([]uint32, numPlayers)
		for i := range ackFrame {
			if err := readLE(r, &ackFrame[i]); err != nil {
				return nil, fmt.Errorf("wire: PlayerInputAck ack[%d]: %w", i, err)
			}
		}
		var serverSeq uint32
		if err := readLE(r, &serverSeq); err != nil {
			return nil, fmt.Errorf("wire: PlayerInputAck server sequence: %w", err)
		}
		return PlayerInputAckPayload{
			NumPlayers:                  numPlayers,
			AckFrame:                    ackFrame,
			ServerMessageSequenceNumber: serverSeq,
		}, nil

	case ClientMatchResult:
		var numPlayers uint8
		var lastFrameChecksum uint32
		var winningTeamIndex uint8
		if err := readLE(r, &numPlayers); err != nil {
			return nil, fmt.Errorf("wire: MatchResult count: %w", err)
		}
		if err := readLE(r, &lastFrameChecksum); err != nil {
			return nil, fmt.Errorf("wire: MatchResult checksum: %w", err)
		}
		if err := readLE(r, &winningTeamIndex); err != nil {
			return nil, fmt.Errorf("wire: MatchResult winner: %w", err)
		}
		return MatchResultPayload{
			NumPlayers:        numPlayers,
			LastFrameChecksum: lastFrameChecksum,
			WinningTeamIndex:  winningTeamIndex,
		}, nil

	case ClientPong:
		var serverSeq uint32
		if err := readLE(r, &serverSeq); err != nil {
			return nil, fmt.Errorf("wire: Pong sequence: %w", err)
		}
		return PongPayload{ServerMessageSequenceNumber: serverSeq}, nil

	case ClientDisconnecting:
		var reason uint8
		if err := readLE(r, &reason); err != nil {
			return nil, fmt.Errorf("wire: Disconnecting reason: %w", err)
		}
		return DisconnectingPayload{Reason: reason}, nil

	case ClientPlayerDisconnectAck:
		var idx uint8
		if err := readLE(r, &idx); err != nil {
			return nil, fmt.Errorf("wire: PlayerDisconnectedAck index: %w", err)
		}
		return PlayerDisconnectedAckPayload{PlayerDisconnectedArrayIndex: idx}, nil

	case ClientReadyForMatch:
		var ready uint8
		if err := readLE(r, &ready); err != nil {
			return nil, fmt.Errorf("wire: ReadyForMatch flag: %w", err)
		}
		return ReadyForMatchPayload{Ready: ready}, nil

	case ClientHolePunch:
		return HolePunchPayload{}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownClientType, uint8(msgType))
	}
}

// SerializeClient encodes msg for the wire, the inverse of ParseClient. It
// exists for testing the round-trip property and for any future bot/harness
// that needs to speak the client side of the protocol; the server itself
// never calls it.
func (Codec) SerializeClient(msg *ClientMessage) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(msg.Header.Type))
	if err := binary.Write(&buf, binary.LittleEndian, msg.Header.Sequence); err != nil {
		return nil, fmt.Errorf("wire: write client sequence: %w", err)
	}

	switch data := msg.Payload.(type) {
	case PlayerConnectionPayload:
		writeLE(&buf, data.MessageVersion, data.TeamID, data.PlayerIndex)
		writeFixedStringBuf(&buf, data.MatchID, 25)
		writeFixedStringBuf(&buf, data.Key, 45)
		writeFixedStringBuf(&buf, data.EnvironmentID, 25)

	case PlayerInputPayload:
		writeLE(&buf, data.StartFrame, data.ClientFrame, data.NumFrames, data.NumChecksums)
		for i := 0; i < int(data.NumFrames); i++ {
			writeLE(&buf, sliceAt(data.InputPerFrame, i))
		}
		for i := 0; i < int(data.NumChecksums); i++ {
			writeLE(&buf, sliceAt(data.ChecksumPerFrame, i))
		}

	case PlayerInputAckPayload:
		buf.WriteByte(data.NumPlayers)
		for i := 0; i < int(data.NumPlayers); i++ {
			writeLE(&buf, sliceAt(data.AckFrame, i))
		}
		writeLE(&buf, data.ServerMessageSequenceNumber)

	case MatchResultPayload:
		writeLE(&buf, data.NumPlayers, data.LastFrameChecksum, data.WinningTeamIndex)

	case PongPayload:
		writeLE(&buf, data.ServerMessageSequenceNumber)

	case DisconnectingPayload:
		writeLE(&buf, data.Reason)

	case PlayerDisconnectedAckPayload:
		writeLE(&buf, data.PlayerDisconnectedArrayIndex)

	case ReadyForMatchPayload:
		writeLE(&buf, data.Ready)

	case HolePunchPayload:
		// empty payload

	default:
		return nil, fmt.Errorf("wire: unknown client payload type %T", msg.Payload)
	}

	return buf.Bytes(), nil
}

// writeFixedStringBuf writes s into a width-byte NUL-padded field, the
// inverse of readFixedString.
func writeFixedStringBuf(buf *bytes.Buffer, s string, width int) {
	b := make([]byte, width)
	copy(b, s)
	buf.Write(b)
}

// readLE reads each dst in little-endian order, stopping at the first error.
func readLE(r io.Reader, dst ...any) error {
	for _, d := range dst {
		if err := binary.Read(r, binary.LittleEndian, d); err != nil {
			return err
		}
	}
	return nil
}

// readFixedString reads maxLen bytes and returns the portion before the
// first NUL byte (or the whole buffer if none is present), matching the
// client's fixed-width NUL-terminated string fields.
func readFixedString(r io.Reader, maxLen int) (string, error) {
	buf := make([]byte, maxLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	zeroPos := bytes.IndexByte(buf, 0)
	if zeroPos < 0 {
		zeroPos = len(buf)
	}
	return string(buf[:zeroPos]), nil
}
