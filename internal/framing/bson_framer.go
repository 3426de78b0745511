// file: internal/framing/bson_framer.go
package framing

import (
	"math"

	"github.com/dkoosis/rpcpeer/internal/codec"
	"github.com/dkoosis/rpcpeer/internal/wire"
)

// BSONFramer implements the length-prefix framing mode from spec.md
// section 4.D: every frame begins with a little-endian signed 32-bit byte
// length, inclusive of itself.
type BSONFramer struct {
	buf    []byte
	maxLen int32
	dead   bool
}

// NewBSONFramer constructs a framer with the given maximum frame length. A
// maxLen of 0 is treated as math.MaxInt32, matching the documented BSON cap.
func NewBSONFramer(maxLen int32) *BSONFramer {
	if maxLen <= 0 {
		maxLen = math.MaxInt32
	}
	return &BSONFramer{maxLen: maxLen}
}

func (f *BSONFramer) Feed(chunk []byte) []DecodedItem {
	if f.dead {
		return nil
	}
	f.buf = append(f.buf, chunk...)

	var items []DecodedItem
	for len(f.buf) >= 4 {
		l, err := wire.ReadInt32LE(f.buf[:4])
		if err != nil {
			// unreachable: guarded by the len(f.buf) >= 4 check above.
			break
		}

		if l > f.maxLen {
			offending := append([]byte(nil), f.buf...)
			items = append(items, errorItem(KindExceedsMaxLength, offending, nil, false))
			f.dead = true
			break
		}
		if l < 5 {
			offending := append([]byte(nil), f.buf...)
			items = append(items, errorItem(KindInvalidFraming, offending, nil, false))
			f.dead = true
			break
		}

		if int64(len(f.buf)) < int64(l) {
			break // await more bytes
		}

		frame := f.buf[:l]
		f.buf = f.buf[l:]

		doc, err := codec.DecodeBSON(frame)
		if err != nil {
			offending := append([]byte(nil), frame...)
			items = append(items, errorItem(KindInvalidBSON, offending, err, true))
			continue // invalid-bson is transient: keep consuming the buffer
		}
		items = append(items, messageItem(doc))
	}
	return items
}

func (f *BSONFramer) Drain() []DecodedItem {
	var items []DecodedItem
	if !f.dead && len(f.buf) > 0 {
		offending := f.buf
		f.buf = nil
		items = append(items, errorItem(KindTrailingGarbage, offending, nil, true))
	}
	items = append(items, drainedItem)
	return items
}

// BSONEncoder encodes outbound messages as raw length-prefixed BSON documents.
type BSONEncoder struct{}

func (BSONEncoder) Encode(msg map[string]any) ([]byte, error) {
	return codec.EncodeBSON(msg)
}
