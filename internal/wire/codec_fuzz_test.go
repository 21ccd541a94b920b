package wire

import "testing"

// FuzzParseClient ensures ParseClient never panics on arbitrary bytes, seeded
// with real encodings of every client message variant.
func FuzzParseClient(f *testing.F) {
	codec := Codec{}
	seeds := []*ClientMessage{
		{Header: ClientHeader{Type: ClientPlayerConnection, Sequence: 7}, Payload: PlayerConnectionPayload{
			MessageVersion: 1, TeamID: 2, PlayerIndex: 3, MatchID: "m", Key: "k", EnvironmentID: "e",
		}},
		{Header: ClientHeader{Type: ClientPlayerInput, Sequence: 1}, Payload: PlayerInputPayload{
			StartFrame: 10, ClientFrame: 12, NumFrames: 2, NumChecksums: 1,
			InputPerFrame: []uint32{1, 2}, ChecksumPerFrame: []uint32{9},
		}},
		{Header: ClientHeader{Type: ClientPlayerInputAck, Sequence: 2}, Payload: PlayerInputAckPayload{
			NumPlayers: 2, AckFrame: []uint32{1, 2}, ServerMessageSequenceNumber: 5,
		}},
		{Header: ClientHeader{Type: ClientMatchResult, Sequence: 0}, Payload: MatchResultPayload{
			NumPlayers: 2, LastFrameChecksum: 1, WinningTeamIndex: 0,
		}},
		{Header: ClientHeader{Type: ClientPong, Sequence: 3}, Payload: PongPayload{ServerMessageSequenceNumber: 3}},
		{Header: ClientHeader{Type: ClientDisconnecting, Sequence: 0}, Payload: DisconnectingPayload{Reason: 1}},
		{Header: ClientHeader{Type: ClientPlayerDisconnectAck, Sequence: 0}, Payload: PlayerDisconnectedAckPayload{PlayerDisconnectedArrayIndex: 1}},
		{Header: ClientHeader{Type: ClientReadyForMatch, Sequence: 0}, Payload: ReadyForMatchPayload{Ready: 1}},
		{Header: ClientHeader{Type: ClientHolePunch, Sequence: 0}, Payload: HolePunchPayload{}},
	}
	for _, s := range seeds {
		encoded, err := codec.SerializeClient(s)
		if err != nil {
			f.Fatalf("seed SerializeClient: %v", err)
		}
		f.Add(encoded)
	}
	f.Add([]byte{})
	f.Add([]byte{1, 2})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = codec.ParseClient(data)
	})
}
