// Package wire provides the small set of byte-buffer primitives the framing
// layer needs: little-endian integer reads, concatenation, and splitting a
// buffer at a fixed offset or around a sentinel byte.
// file: internal/wire/buffer.go
package wire

import "errors"

// ErrShortBuffer is returned when a read needs more bytes than are present.
var ErrShortBuffer = errors.New("wire: buffer shorter than requested read")

// ReadInt32LE reads a little-endian signed 32-bit integer from the first 4
// bytes of b. The BSON frame length prefix uses this encoding.
func ReadInt32LE(b []byte) (int32, error) {
	if len(b) < 4 {
		return 0, ErrShortBuffer
	}
	v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16 | int32(b[3])<<24
	return v, nil
}

// PutInt32LE encodes v as 4 little-endian bytes.
func PutInt32LE(v int32) [4]byte {
	return [4]byte{
		byte(v),
		byte(v >> 8),
		byte(v >> 16),
		byte(v >> 24),
	}
}

// Concat returns a new slice containing the concatenation of all of bufs, in
// order. It always allocates, since the framer retains the result.
func Concat(bufs ...[]byte) []byte {
	total := 0
	for _, b := range bufs {
		total += len(b)
	}
	out := make([]byte, 0, total)
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out
}

// SplitAt splits b into the first n bytes and the remainder. It panics if n
// is out of range, matching slice semantics; callers are expected to check
// len(b) >= n before calling.
func SplitAt(b []byte, n int) (head, tail []byte) {
	return b[:n:n], b[n:]
}

// SplitBeforeByte splits b just before the first occurrence of sentinel:
// head excludes the sentinel and tail begins with it. found is false if sentinel does not
// appear in b, in which case head is b and tail is empty.
func SplitBeforeByte(b []byte, sentinel byte) (head, tail []byte, found bool) {
	idx := indexByte(b, sentinel)
	if idx < 0 {
		return b, nil, false
	}
	return b[:idx], b[idx:], true
}

// SplitAfterByte splits b just after the first occurrence of sentinel,
// including the sentinel in head. found is false if sentinel does not
// appear in b, in which case head is empty and tail is b.
func SplitAfterByte(b []byte, sentinel byte) (head, tail []byte, found bool) {
	idx := indexByte(b, sentinel)
	if idx < 0 {
		return nil, b, false
	}
	return b[:idx+1], b[idx+1:], true
}

func indexByte(b []byte, sentinel byte) int {
	for i, c := range b {
		if c == sentinel {
			return i
		}
	}
	return -1
}

// Preview renders up to maxLen bytes of b as a string with control
// characters replaced by '.', safe for inclusion in log lines and error
// details without dumping arbitrarily large or binary payloads.
func Preview(b []byte, maxLen int) string {
	truncated := len(b) > maxLen
	if truncated {
		b = b[:maxLen]
	}
	out := make([]byte, len(b))
	for i, c := range b {
		if c < 32 || c == 127 {
			out[i] = '.'
		} else {
			out[i] = c
		}
	}
	if truncated {
		return string(out) + "..."
	}
	return string(out)
}
