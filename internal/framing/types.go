// Package framing turns raw byte chunks arriving from a duplex stream into
// an ordered sequence of decoded messages or typed parse errors, one
// implementation per wire mode (BSON length-prefix, JSON frameless, JSON
// RFC-7464). file: internal/framing/types.go
package framing

import "fmt"

// ParseErrorKind tags why a chunk of bytes could not be turned into a
// decoded message.
type ParseErrorKind string

const (
	KindExceedsMaxLength ParseErrorKind = "exceeds-max-length"
	KindInvalidFraming   ParseErrorKind = "invalid-framing"
	KindInvalidJSON      ParseErrorKind = "invalid-json"
	KindInvalidBSON      ParseErrorKind = "invalid-bson"
	KindTrailingGarbage  ParseErrorKind = "trailing-garbage"
)

// ParseError is the offending-bytes-plus-kind object the dispatcher sees in
// place of a decoded message. Recoverable mirrors the per-mode policy table:
// an irrecoverable error means the framer has already flushed what it has
// and will not produce anything further for this connection.
type ParseError struct {
	Kind        ParseErrorKind
	Offending   []byte
	Cause       error
	Recoverable bool
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("framing: %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("framing: %s", e.Kind)
}

// ItemType discriminates the union making up a framer's output sequence
// (spec.md section 9: Message | ParseError | DrainedSentinel | TimeoutSentinel).
type ItemType int

const (
	ItemMessage ItemType = iota
	ItemParseError
	ItemDrained
	ItemIdleTimeout
)

// DecodedItem is one element of a framer's output sequence.
type DecodedItem struct {
	Type    ItemType
	Message map[string]any
	Err     *ParseError
}

func messageItem(msg map[string]any) DecodedItem {
	return DecodedItem{Type: ItemMessage, Message: msg}
}

func errorItem(kind ParseErrorKind, offending []byte, cause error, recoverable bool) DecodedItem {
	return DecodedItem{Type: ItemParseError, Err: &ParseError{
		Kind:        kind,
		Offending:   offending,
		Cause:       cause,
		Recoverable: recoverable,
	}}
}

var drainedItem = DecodedItem{Type: ItemDrained}

// IdleTimeoutItem is the timeout sentinel pushed onto a connection's item
// channel when a read deadline elapses with no inbound traffic.
var IdleTimeoutItem = DecodedItem{Type: ItemIdleTimeout}

// Framer incrementally turns byte chunks into DecodedItems. Feed is called
// once per arriving chunk; Drain is called once when the upstream byte
// source reports end-of-stream.
type Framer interface {
	Feed(chunk []byte) []DecodedItem
	Drain() []DecodedItem
}

// Encoder is the inverse of a Framer: it turns one outbound message into
// the exact bytes to place on the wire for that framing mode.
type Encoder interface {
	Encode(msg map[string]any) ([]byte, error)
}

func isJSONWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}
