// file: internal/framing/json_frameless.go
package framing

import "github.com/dkoosis/rpcpeer/internal/codec"

// JSONFramelessFramer implements the frameless JSON mode from spec.md
// section 4.D: values are concatenated with no separators, so boundaries
// are found by scanning brace/bracket depth and string/escape state rather
// than by repeatedly handing a growing buffer to encoding/json (whose
// Decoder can consume bytes from an underlying reader before it is able to
// report a clean partial-value state, which makes resuming across
// independently-arriving chunks unreliable).
type JSONFramelessFramer struct {
	buf   []byte
	keyFn codec.KeyFn
	dead  bool
}

// NewJSONFramelessFramer constructs a frameless JSON framer. A nil keyFn
// defaults to the identity transform.
func NewJSONFramelessFramer(keyFn codec.KeyFn) *JSONFramelessFramer {
	return &JSONFramelessFramer{keyFn: keyFn}
}

func (f *JSONFramelessFramer) Feed(chunk []byte) []DecodedItem {
	if f.dead {
		return nil
	}
	f.buf = append(f.buf, chunk...)

	var items []DecodedItem
	for {
		end, complete := scanTopLevelJSONValue(f.buf)
		if !complete {
			break
		}
		raw := f.buf[:end]
		f.buf = f.buf[end:]

		doc, err := codec.DecodeJSON(raw, f.keyFn)
		if err != nil {
			offending := append([]byte(nil), raw...)
			items = append(items, errorItem(KindInvalidJSON, offending, err, false))
			f.dead = true
			break
		}
		items = append(items, messageItem(doc))
	}
	return items
}

func (f *JSONFramelessFramer) Drain() []DecodedItem {
	var items []DecodedItem
	if !f.dead && len(trimLeadingJSONWhitespace(f.buf)) > 0 {
		offending := f.buf
		f.buf = nil
		items = append(items, errorItem(KindTrailingGarbage, offending, nil, true))
	}
	items = append(items, drainedItem)
	return items
}

func trimLeadingJSONWhitespace(buf []byte) []byte {
	i := 0
	for i < len(buf) && isJSONWhitespace(buf[i]) {
		i++
	}
	return buf[i:]
}

// scanTopLevelJSONValue finds the end offset (exclusive) of the first
// complete top-level JSON value in buf, skipping leading whitespace.
// complete is false when buf does not yet contain a full value (more bytes
// are needed); in that case end has no meaning.
func scanTopLevelJSONValue(buf []byte) (end int, complete bool) {
	n := len(buf)
	i := 0
	for i < n && isJSONWhitespace(buf[i]) {
		i++
	}
	if i >= n {
		return 0, false
	}
	start := i

	switch buf[i] {
	case '{', '[':
		depth := 0
		inString := false
		escape := false
		for ; i < n; i++ {
			c := buf[i]
			if inString {
				switch {
				case escape:
					escape = false
				case c == '\\':
					escape = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{', '[':
				depth++
			case '}', ']':
				depth--
				if depth == 0 {
					return i + 1, true
				}
			}
		}
		return 0, false

	case '"':
		escape := false
		for i = start + 1; i < n; i++ {
			c := buf[i]
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				return i + 1, true
			}
		}
		return 0, false

	default:
		// Bare literal or number: whitespace or the start of a following
		// object, array or string marks the end; reaching buffer end
		// without one means the value might still be growing.
		for i = start; i < n; i++ {
			c := buf[i]
			if isJSONWhitespace(c) || c == '{' || c == '[' || c == '"' {
				return i, true
			}
		}
		return 0, false
	}
}

// JSONFramelessEncoder encodes outbound messages as bare UTF-8 JSON with no
// separators, matching the frameless wire format.
type JSONFramelessEncoder struct{}

func (JSONFramelessEncoder) Encode(msg map[string]any) ([]byte, error) {
	return codec.EncodeJSON(msg)
}
