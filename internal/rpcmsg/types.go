// Package rpcmsg holds the wire message data model (spec.md section 3) and
// the pure classifier (spec.md section 4.E) that turns a decoded map into
// one of: request, notification, success-response, error-response, a
// nil-id error-response, or a schema-error.
// file: internal/rpcmsg/types.go
package rpcmsg

import "fmt"

// Version is the only supported protocol tag value.
const Version = "2.0"

// Kind identifies which of the six classification buckets a decoded message
// fell into. Classification is a partition: every decoded message matches
// exactly one Kind (spec.md section 8, invariant 1).
type Kind int

const (
	// KindSchemaError is the zero value so an unclassified Kind reads as an
	// error rather than silently looking like a valid request.
	KindSchemaError Kind = iota
	KindRequest
	KindNotification
	KindSuccessResponse
	KindErrorResponse
	KindNilIDErrorResponse
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindSuccessResponse:
		return "success-response"
	case KindErrorResponse:
		return "error-response"
	case KindNilIDErrorResponse:
		return "nil-id-error-response"
	default:
		return "schema-error"
	}
}

// WireError is the `error` object shape from spec.md section 3.
type WireError struct {
	Code    int    `json:"code" bson:"code"`
	Message string `json:"message" bson:"message"`
	Data    any    `json:"data,omitempty" bson:"data,omitempty"`
}

// Request is a decoded request message: has a method and an id (which may
// be null).
type Request struct {
	ProtocolTag string
	ID          any
	Method      string
	Params      []any
	Raw         map[string]any
}

// Notification is a decoded notification message: has a method, no id.
type Notification struct {
	ProtocolTag string
	Method      string
	Params      []any
	Raw         map[string]any
}

// Response is a decoded success or error response: has an id and either
// Result or Error (never both). The id is nil only for a nil-id
// error-response.
type Response struct {
	ProtocolTag string
	ID          any
	Result      any
	Error       *WireError
	Raw         map[string]any
}

// NewRequestMessage builds the wire map for an outbound request.
func NewRequestMessage(protocolTag string, id any, method string, params []any) map[string]any {
	msg := map[string]any{
		protocolTag: Version,
		"id":        id,
		"method":    method,
	}
	if params != nil {
		msg["params"] = params
	}
	return msg
}

// NewNotificationMessage builds the wire map for an outbound notification.
func NewNotificationMessage(protocolTag string, method string, params []any) map[string]any {
	msg := map[string]any{
		protocolTag: Version,
		"method":    method,
	}
	if params != nil {
		msg["params"] = params
	}
	return msg
}

// NewSuccessResponseMessage builds the wire map for an outbound success response.
func NewSuccessResponseMessage(protocolTag string, id any, result any) map[string]any {
	return map[string]any{
		protocolTag: Version,
		"id":        id,
		"result":    result,
	}
}

// NewErrorResponseMessage builds the wire map for an outbound error response.
// id may be nil to report a parse-error back to the peer (spec.md section 7).
func NewErrorResponseMessage(protocolTag string, id any, wireErr *WireError) map[string]any {
	errMap := map[string]any{
		"code":    wireErr.Code,
		"message": wireErr.Message,
	}
	if wireErr.Data != nil {
		errMap["data"] = wireErr.Data
	}
	return map[string]any{
		protocolTag: Version,
		"id":        id,
		"error":     errMap,
	}
}

// NormalizeID renders an id value (string, any integer kind, float64 as
// produced by encoding/json, or nil) into a canonical string usable as a
// pending-response table key. Two ids that are "the same number" under
// different Go numeric representations (int32 3 from BSON vs float64 3 from
// JSON) normalize identically.
func NormalizeID(id any) string {
	switch v := id.(type) {
	case nil:
		return "null"
	case string:
		return "s:" + v
	case int:
		return fmt.Sprintf("n:%d", v)
	case int32:
		return fmt.Sprintf("n:%d", v)
	case int64:
		return fmt.Sprintf("n:%d", v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("n:%d", int64(v))
		}
		return fmt.Sprintf("n:%v", v)
	case float32:
		return NormalizeID(float64(v))
	default:
		return fmt.Sprintf("x:%v", v)
	}
}
