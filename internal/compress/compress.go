// Package compress implements the zero-suppression bitmask compression
// scheme used on the wire: every 8 input bytes become one mask byte plus
// the non-zero bytes among them, with a hard 1024-byte envelope.
package compress

import "errors"

// MaxBufferSize is the hard envelope limit for both compressed and
// decompressed payloads.
const MaxBufferSize = 1024

var (
	// ErrOverflow is returned by Compress when the compressed output would
	// exceed MaxBufferSize.
	ErrOverflow = errors.New("compress: output buffer overflow (1024 bytes)")
	// ErrOversizeLength is returned by Decompress when originalLength is
	// negative or exceeds MaxBufferSize.
	ErrOversizeLength = errors.New("decompress: originalLength must be between 0 and 1024")
	// ErrTruncated is returned by Decompress when the compressed input ends
	// before the mask it started says it should.
	ErrTruncated = errors.New("decompress: truncated compressed data")
)

// Compress encodes input using the 8-byte zero-suppression bitmask scheme.
// Each group of up to 8 input bytes is preceded by one mask byte whose bit i
// is set when byte i of the group is non-zero; only non-zero bytes are
// written after the mask. Returns ErrOverflow if the result would exceed
// MaxBufferSize.
func Compress(input []byte) ([]byte, error) {
	n := len(input)
	if n == 0 {
		return []byte{}, nil
	}

	out := make([]byte, 0, MaxBufferSize)
	inPos := 0

	for inPos < n {
		if len(out) >= MaxBufferSize {
			return nil, ErrOverflow
		}

		maskPos := len(out)
		out = append(out, 0)
		var mask byte

		for bit := 0; bit < 8; bit++ {
			if inPos >= n {
				break
			}
			v := input[inPos]
			inPos++
			if v != 0 {
				mask |= 1 << uint(bit)
				if len(out) >= MaxBufferSize {
					return nil, ErrOverflow
				}
				out = append(out, v)
			}
		}

		out[maskPos] = mask
	}

	return out, nil
}

// Decompress reverses Compress. originalLength is the maximum length of the
// decompressed output; bytes beyond it are not written, and data is
// truncated to at most originalLength. If compressed ends at a group
// boundary before originalLength bytes are produced, the shorter output is
// returned without error; a mask bit with no data byte after it is
// ErrTruncated. A originalLength of 0 with no data present is not an error —
// it is the empty packet. A negative originalLength is rejected with
// ErrOversizeLength rather than treated as a default, so callers that want
// the original's "default to 1024" behavior pass MaxBufferSize explicitly.
func Decompress(compressed []byte, originalLength int) ([]byte, error) {
	if originalLength < 0 || originalLength > MaxBufferSize {
		return nil, ErrOversizeLength
	}

	out := make([]byte, originalLength)
	readPos := 0
	writePos := 0

	for readPos < len(compressed) && writePos < originalLength {
		mask := compressed[readPos]
		readPos++

		for bit := 0; bit < 8; bit++ {
			if writePos >= originalLength {
				break
			}
			if mask&(1<<uint(bit)) != 0 {
				if readPos >= len(compressed) {
					return nil, ErrTruncated
				}
				out[writePos] = compressed[readPos]
				readPos++
			}
			writePos++
		}
	}

	return out[:writePos], nil
}
