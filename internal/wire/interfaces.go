package wire

// ClientParser decodes a single client message from a decompressed buffer.
type ClientParser interface {
	ParseClient(buf []byte) (*ClientMessage, error)
}

// ServerSerializer encodes a server message for the wire.
type ServerSerializer interface {
	SerializeServer(msg *ServerMessage, maxPlayers int) ([]byte, error)
}

// Compile-time assertions that Codec satisfies both roles.
var (
	_ ClientParser     = Codec{}
	_ ServerSerializer = Codec{}
)
