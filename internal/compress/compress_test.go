package compress

import (
	"bytes"
	"testing"
)

func TestCompressDecompressEmpty(t *testing.T) {
	compressed, err := Compress(nil)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(compressed) != 0 {
		t.Fatalf("expected empty compressed output, got %d bytes", len(compressed))
	}

	decompressed, err := Decompress(compressed, 0)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if len(decompressed) != 0 {
		t.Fatalf("expected empty decompressed output, got %d bytes", len(decompressed))
	}
}

func TestCompressDecompressSimple(t *testing.T) {
	input := []byte{1, 0, 3, 0, 0, 6, 7, 0, 9}
	compressed, err := Compress(input)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	decompressed, err := Decompress(compressed, len(input))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed, input) {
		t.Fatalf("roundtrip mismatch: got %v, want %v", decompressed, input)
	}
}

func TestCompressDecompressAllZeros(t *testing.T) {
	input := make([]byte, 8)
	compressed, err := Compress(input)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(compressed) != 1 || compressed[0] != 0 {
		t.Fatalf("expected single zero mask byte, got %v", compressed)
	}
	decompressed, err := Decompress(compressed, len(input))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed, input) {
		t.Fatalf("roundtrip mismatch: got %v, want %v", decompressed, input)
	}
}

func TestCompressDecompressAllNonzeros(t *testing.T) {
	input := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	compressed, err := Compress(input)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(compressed) != 9 || compressed[0] != 0xFF {
		t.Fatalf("expected 9-byte output with 0xFF mask, got %v", compressed)
	}
	decompressed, err := Decompress(compressed, len(input))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed, input) {
		t.Fatalf("roundtrip mismatch: got %v, want %v", decompressed, input)
	}
}

func TestDecompressOversizeLength(t *testing.T) {
	if _, err := Decompress([]byte{0}, MaxBufferSize+1); err != ErrOversizeLength {
		t.Fatalf("expected ErrOversizeLength, got %v", err)
	}
}

func TestDecompressNegativeLength(t *testing.T) {
	if _, err := Decompress([]byte{0}, -1); err != ErrOversizeLength {
		t.Fatalf("expected ErrOversizeLength, got %v", err)
	}
}

func TestDecompressTruncated(t *testing.T) {
	// Mask claims a non-zero byte follows, but none does.
	if _, err := Decompress([]byte{0x01}, 8); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestCompressOverflow(t *testing.T) {
	input := make([]byte, MaxBufferSize*8+1)
	for i := range input {
		input[i] = 1
	}
	if _, err := Compress(input); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestCompressDecompressDefaultEnvelope(t *testing.T) {
	// Receive-path default: originalLength defaults to MaxBufferSize.
	input := bytes.Repeat([]byte{0, 5}, 4)
	compressed, err := Compress(input)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	decompressed, err := Decompress(compressed, MaxBufferSize)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed[:len(input)], input) {
		t.Fatalf("prefix mismatch: got %v, want %v", decompressed[:len(input)], input)
	}
	if len(decompressed) != len(input) {
		t.Fatalf("expected decompression to stop once compressed data is exhausted, got %d bytes", len(decompressed))
	}
}
