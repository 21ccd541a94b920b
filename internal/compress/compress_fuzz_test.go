package compress

import "testing"

// FuzzCompressDecompressRoundTrip ensures arbitrary inputs up to
// MaxBufferSize survive Compress followed by Decompress unchanged.
func FuzzCompressDecompressRoundTrip(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	f.Add([]byte{1, 0, 3, 0, 0, 6, 7, 0, 9})
	f.Add(make([]byte, MaxBufferSize/2))

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > MaxBufferSize {
			data = data[:MaxBufferSize]
		}
		compressed, err := Compress(data)
		if err != nil {
			return // ErrOverflow is a valid outcome for pathological inputs
		}
		decompressed, err := Decompress(compressed, len(data))
		if err != nil {
			t.Fatalf("Decompress: %v", err)
		}
		if string(decompressed) != string(data) {
			t.Fatalf("round-trip mismatch: got %v, want %v", decompressed, data)
		}
	})
}

// FuzzDecompressNoPanic ensures Decompress never panics on arbitrary,
// possibly-truncated compressed input, the shape untrusted packets arrive in.
func FuzzDecompressNoPanic(f *testing.F) {
	f.Add([]byte{0xFF, 1, 2, 3}, 4)
	f.Add([]byte{}, 0)
	f.Add([]byte{0x01}, 1024)

	f.Fuzz(func(t *testing.T, data []byte, originalLength int) {
		_, _ = Decompress(data, originalLength)
	})
}
