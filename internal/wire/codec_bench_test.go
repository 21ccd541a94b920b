package wire

import "testing"

func benchPlayerInputWire() []byte {
	codec := Codec{}
	encoded, err := codec.SerializeClient(&ClientMessage{
		Header: ClientHeader{Type: ClientPlayerInput, Sequence: 1},
		Payload: PlayerInputPayload{
			StartFrame: 10, ClientFrame: 12, NumFrames: 4, NumChecksums: 1,
			InputPerFrame:    []uint32{1, 2, 3, 4},
			ChecksumPerFrame: []uint32{9},
		},
	})
	if err != nil {
		panic(err)
	}
	return encoded
}

func BenchmarkParseClient_PlayerInput(b *testing.B) {
	codec := Codec{}
	wire := benchPlayerInputWire()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = codec.ParseClient(wire)
	}
}

func BenchmarkSerializeServer_PlayerInputs(b *testing.B) {
	codec := Codec{}
	msg := &ServerMessage{
		Header: ServerHeader{Type: ServerPlayerInputs, Sequence: 1},
		Payload: PlayerInputs{
			NumPlayers:    4,
			StartFrame:    []uint32{10, 11, 12, 13},
			NumFrames:     []uint8{2, 2, 2, 2},
			Ping:          40,
			Rift:          1.5,
			InputPerFrame: [][]uint32{{1, 2}, {3, 4}, {5, 6}, {7, 8}},
		},
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = codec.SerializeServer(msg, 4)
	}
}
