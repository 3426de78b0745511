// Package rpcerr defines the error taxonomy shared by the framing, dispatch,
// and tracker layers: JSON-RPC 2.0 standard codes, category tags, and the
// caller-visible waiter outcomes from spec.md section 7.
// file: internal/rpcerr/codes.go
package rpcerr

// Categories for grouping similar errors, attached to errors as detail
// strings so they survive wrapping.
const (
	CategoryFraming = "framing"
	CategoryRPC     = "rpc"
	CategoryHandler = "handler"
	CategoryTracker = "tracker"
)

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
)

// UserFacingMessage returns the canonical JSON-RPC 2.0 message for a
// standard error code, falling back to a generic message otherwise.
func UserFacingMessage(code int) string {
	switch code {
	case CodeParseError:
		return "Parse error"
	case CodeInvalidRequest:
		return "Invalid Request"
	case CodeMethodNotFound:
		return "Method not found"
	case CodeInvalidParams:
		return "Invalid params"
	case CodeInternalError:
		return "Internal error"
	case CodeServerError:
		return "Server error"
	default:
		return "Internal error"
	}
}
