// Package wire implements the UDP wire codec: the 5-byte message header
// (1-byte type tag + 4-byte little-endian sequence number) and the
// per-message-type payload layouts exchanged between players and the
// rollback server.
package wire

// HeaderSize is the fixed header length shared by client and server messages:
// one type-tag byte followed by a 4-byte little-endian sequence number.
const HeaderSize = 5

// ClientMessageType identifies the payload layout of an inbound client message.
type ClientMessageType uint8

const (
	ClientPlayerConnection     ClientMessageType = 1
	ClientPlayerInput          ClientMessageType = 2
	ClientPlayerInputAck       ClientMessageType = 3
	ClientMatchResult          ClientMessageType = 4
	ClientPong                 ClientMessageType = 5
	ClientDisconnecting        ClientMessageType = 6
	ClientPlayerDisconnectAck  ClientMessageType = 7
	ClientReadyForMatch        ClientMessageType = 8
	ClientHolePunch            ClientMessageType = 13
)

// ServerMessageType identifies the payload layout of an outbound server message.
type ServerMessageType uint8

const (
	ServerPlayerConnection ServerMessageType = 1
	ServerStartGame        ServerMessageType = 2
	ServerUnknown3         ServerMessageType = 3
	ServerPlayerInputs     ServerMessageType = 4
	ServerRequestPing      ServerMessageType = 6
	ServerUnknown          ServerMessageType = 7
	ServerKick             ServerMessageType = 8
	ServerUnknown1         ServerMessageType = 9
	ServerPlayerGetReady   ServerMessageType = 10
	ServerPlayerDisconnect ServerMessageType = 11
	ServerUnknown2         ServerMessageType = 12
	ServerHolePunch        ServerMessageType = 13
)

// playerConfigValues is the cyclic per-player configuration table written by
// PlayerGetReady, one u16 per player index modulo len(playerConfigValues).
var playerConfigValues = [4]uint16{0, 257, 512, 769}

// ClientHeader is the common 5-byte prefix of every client message.
type ClientHeader struct {
	Type     ClientMessageType
	Sequence uint32
}

// ClientMessage is a fully parsed inbound message: header plus a
// type-specific payload (one of the *Payload structs below).
type ClientMessage struct {
	Header  ClientHeader
	Payload any
}

// PlayerConnectionPayload is sent by a client to join (or re-announce
// itself to) a match.
type PlayerConnectionPayload struct {
	MessageVersion uint16
	TeamID         uint16
	PlayerIndex    uint16
	MatchID        string // max 25 bytes, NUL-terminated
	Key            string // max 45 bytes, NUL-terminated
	EnvironmentID  string // max 25 bytes, NUL-terminated
}

// PlayerInputPayload carries one or more frames of local input plus optional
// checksums for desync detection.
type PlayerInputPayload struct {
	StartFrame       uint32
	ClientFrame      uint32
	NumFrames        uint8
	NumChecksums     uint8
	InputPerFrame    []uint32
	ChecksumPerFrame []uint32
}

// PlayerInputAckPayload reports, per roster slot, the highest frame of that
// player's input the client has received.
type PlayerInputAckPayload struct {
	NumPlayers                  uint8
	AckFrame                    []uint32
	ServerMessageSequenceNumber uint32
}

// MatchResultPayload reports the match outcome as seen by one client.
type MatchResultPayload struct {
	NumPlayers        uint8
	LastFrameChecksum uint32
	WinningTeamIndex  uint8
}

// PongPayload answers a RequestPing, echoing the server sequence number it
// was sent with so RTT can be computed.
type PongPayload struct {
	ServerMessageSequenceNumber uint32
}

// DisconnectingPayload announces a voluntary client disconnect. Parsed and
// round-trippable, but not acted on by the session state machine.
type DisconnectingPayload struct {
	Reason uint8
}

// PlayerDisconnectedAckPayload acknowledges a PlayerDisconnected broadcast.
// Parsed and round-trippable, but not acted on by the session state machine.
type PlayerDisconnectedAckPayload struct {
	PlayerDisconnectedArrayIndex uint8
}

// ReadyForMatchPayload is sent once a client has finished loading and is
// ready for StartGame.
type ReadyForMatchPayload struct {
	Ready uint8
}

// HolePunchPayload is the empty payload of a NAT hole-punch probe.
type HolePunchPayload struct{}

// ServerHeader is the common 5-byte prefix of every server message.
type ServerHeader struct {
	Type     ServerMessageType
	Sequence uint32
}

// ServerMessage is a message ready to be serialized: header plus a
// type-specific payload (one of the server payload structs below, such as
// PlayerInputs or RequestPing).
type ServerMessage struct {
	Header  ServerHeader
	Payload any
}

// PlayerConnectionResult answers a client's PlayerConnection.
type PlayerConnectionResult struct {
	Success       uint8
	NumPlayers    uint8
	PlayerIndex   uint8
	MatchDuration uint32
	Unused0       uint8
	Unused1       uint8
}

// PlayerInputs is the personalized per-recipient input fan-out message: for
// each roster slot i, the run of frames being sent starting at StartFrame[i],
// NumFrames[i] long, with that run's raw inputs in InputPerFrame[i].
//
// All three slices are indexed by roster slot. A slot whose next un-acked
// frame is not available yet keeps StartFrame[i] and NumFrames[i] at zero and
// an empty InputPerFrame[i]. On the wire, StartFrame and NumFrames are padded
// to maxPlayers with zeros, and each slot contributes NumFrames[i] raw inputs.
type PlayerInputs struct {
	NumPlayers            uint8
	StartFrame            []uint32
	NumFrames             []uint8
	NumPredictedOverrides uint16
	Unused0               uint16
	Ping                  uint16
	PacketsLossPercent    int16
	Rift                  float32
	Unused1               uint32
	InputPerFrame         [][]uint32
}

// RequestPing asks a client to Pong back immediately, carrying the server's
// last-known ping/loss estimate for that client.
type RequestPing struct {
	Ping               uint16
	PacketsLossPercent uint16
}

// Kick tells a client to disconnect with a reason code.
type Kick struct {
	Reason uint16
	Param1 uint32
}

// PlayerGetReady tells clients the final roster size is known and play can
// begin loading; the per-player config table is generated from
// playerConfigValues, not carried explicitly.
type PlayerGetReady struct {
	NumPlayers uint8
}

// PlayerDisconnected announces that a roster slot has disconnected.
type PlayerDisconnected struct {
	PlayerIndex               uint8
	ShouldAITakeControl       uint8
	AITakeControlFrame        uint32
	PlayerDisconnectedArrayIndex uint16
}

// StartGamePayload is the empty payload that begins a match.
type StartGamePayload struct{}

// EmptyPayload is the empty payload used by hole-punch probes.
type EmptyPayload struct{}
