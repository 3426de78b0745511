// file: internal/framing/json_rfc7464.go
package framing

import (
	"bytes"
	"math"

	"github.com/dkoosis/rpcpeer/internal/codec"
)

const (
	rfc7464RecordSeparator = 0x1E
	rfc7464LineFeed        = 0x0A
)

// JSONRFC7464Framer implements the RFC-7464 framing mode from spec.md
// section 4.D: each record is 0x1E + UTF-8 JSON + 0x0A. Unlike the other two
// modes it can recover from garbage between records instead of killing the
// connection.
type JSONRFC7464Framer struct {
	buf    []byte
	keyFn  codec.KeyFn
	maxLen int32
}

// NewJSONRFC7464Framer constructs an RFC-7464 framer. A maxLen of 0 is
// treated as math.MaxInt32.
func NewJSONRFC7464Framer(maxLen int32, keyFn codec.KeyFn) *JSONRFC7464Framer {
	if maxLen <= 0 {
		maxLen = math.MaxInt32
	}
	return &JSONRFC7464Framer{maxLen: maxLen, keyFn: keyFn}
}

func (f *JSONRFC7464Framer) Feed(chunk []byte) []DecodedItem {
	f.buf = append(f.buf, chunk...)

	var items []DecodedItem
	for bytes.IndexByte(f.buf, rfc7464RecordSeparator) >= 0 && bytes.IndexByte(f.buf, rfc7464LineFeed) >= 0 {
		if f.buf[0] != rfc7464RecordSeparator {
			idx := bytes.IndexByte(f.buf, rfc7464RecordSeparator)
			garbage := f.buf[:idx]
			f.buf = f.buf[idx:]
			offending := append([]byte(nil), garbage...)
			items = append(items, errorItem(KindInvalidFraming, offending, nil, true))
			continue
		}

		nl := bytes.IndexByte(f.buf, rfc7464LineFeed)
		record := f.buf[:nl+1]
		f.buf = f.buf[nl+1:]
		inner := record[1 : len(record)-1]

		if int64(len(inner)) > int64(f.maxLen) {
			offending := append([]byte(nil), inner...)
			items = append(items, errorItem(KindExceedsMaxLength, offending, nil, true))
			continue
		}

		doc, err := codec.DecodeJSON(inner, f.keyFn)
		if err != nil {
			offending := append([]byte(nil), inner...)
			items = append(items, errorItem(KindInvalidJSON, offending, err, true))
			continue
		}
		items = append(items, messageItem(doc))
	}
	return items
}

func (f *JSONRFC7464Framer) Drain() []DecodedItem {
	var items []DecodedItem
	if len(f.buf) > 0 {
		offending := f.buf
		f.buf = nil
		items = append(items, errorItem(KindTrailingGarbage, offending, nil, true))
	}
	items = append(items, drainedItem)
	return items
}

// JSONRFC7464Encoder encodes outbound messages as 0x1E + UTF-8 JSON + 0x0A.
type JSONRFC7464Encoder struct{}

func (JSONRFC7464Encoder) Encode(msg map[string]any) ([]byte, error) {
	body, err := codec.EncodeJSON(msg)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+2)
	out = append(out, rfc7464RecordSeparator)
	out = append(out, body...)
	out = append(out, rfc7464LineFeed)
	return out, nil
}
