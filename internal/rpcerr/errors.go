// file: internal/rpcerr/errors.go
package rpcerr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/rpcpeer/internal/rpcmsg"
)

// Sentinel errors returned as-is for the tracker's waiter outcomes, so
// callers can test for them with errors.Is.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrBufferOverflow   = errors.New("buffer overflow")
	ErrResponseTimeout  = errors.New("response timeout")
	ErrUnknownOutcome   = errors.New("unknown response outcome")
)

// PeerError is raised to a waiting caller when the peer's response carried
// an `error` object. It mirrors the wire error shape from spec.md section 3.
type PeerError struct {
	Code    int
	Message string
	Data    any
}

// Error implements the error interface.
func (e *PeerError) Error() string {
	return fmt.Sprintf("peer error %d: %s", e.Code, e.Message)
}

// New creates a new error with a stack trace.
func New(message string) error { return errors.New(message) }

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error { return errors.Newf(format, args...) }

// Wrap wraps an existing error, preserving its cause.
func Wrap(cause error, message string) error { return errors.Wrap(cause, message) }

// Wrapf wraps an existing error with a formatted message.
func Wrapf(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(cause, format, args...)
}

// ErrorWithDetails tags err with category/code and arbitrary key/value
// details, stored as cockroachdb/errors detail strings so they survive
// further wrapping and are recoverable with GetErrorCode/GetErrorCategory.
func ErrorWithDetails(err error, category string, code int, details map[string]interface{}) error {
	err = errors.WithDetail(err, fmt.Sprintf("category:%s", category))
	err = errors.WithDetail(err, fmt.Sprintf("code:%d", code))
	for k, v := range details {
		err = errors.WithDetail(err, fmt.Sprintf("%s:%v", k, v))
	}
	return err
}

// GetErrorCategory recovers the category detail string attached by
// ErrorWithDetails, or "" if none is present.
func GetErrorCategory(err error) string {
	for _, d := range errors.GetAllDetails(err) {
		if strings.HasPrefix(d, "category:") {
			return strings.TrimPrefix(d, "category:")
		}
	}
	return ""
}

// GetErrorCode recovers the numeric code detail string attached by
// ErrorWithDetails, defaulting to CodeInternalError.
func GetErrorCode(err error) int {
	for _, d := range errors.GetAllDetails(err) {
		if strings.HasPrefix(d, "code:") {
			if code, convErr := strconv.Atoi(strings.TrimPrefix(d, "code:")); convErr == nil {
				return code
			}
		}
	}
	return CodeInternalError
}

var detailPattern = regexp.MustCompile(`^([^:]+):(.+)$`)

// GetErrorProperties recovers the remaining key/value detail strings
// attached by ErrorWithDetails, excluding the reserved category/code keys.
func GetErrorProperties(err error) map[string]interface{} {
	props := make(map[string]interface{})
	for _, d := range errors.GetAllDetails(err) {
		m := detailPattern.FindStringSubmatch(d)
		if len(m) != 3 {
			continue
		}
		key, value := m[1], m[2]
		if key == "category" || key == "code" {
			continue
		}
		if iv, convErr := strconv.Atoi(value); convErr == nil {
			props[key] = iv
		} else if bv, convErr := strconv.ParseBool(value); convErr == nil {
			props[key] = bv
		} else {
			props[key] = value
		}
	}
	return props
}

// ToWireError converts an internal error into the wire error object sent
// back to the peer, using UserFacingMessage for the standard codes and
// surfacing non-reserved details as Data.
func ToWireError(err error) *rpcmsg.WireError {
	if err == nil {
		return nil
	}
	code := GetErrorCode(err)
	props := GetErrorProperties(err)
	var data any
	if len(props) > 0 {
		data = props
	}
	return &rpcmsg.WireError{
		Code:    code,
		Message: UserFacingMessage(code),
		Data:    data,
	}
}

// NewMethodNotFoundError builds the standard method-not-found error for a
// request/notification whose method has no registered handler.
func NewMethodNotFoundError(method string, properties map[string]interface{}) error {
	err := errors.Newf("method %q not found", method)
	details := map[string]interface{}{"method": method}
	for k, v := range properties {
		details[k] = v
	}
	return ErrorWithDetails(err, CategoryRPC, CodeMethodNotFound, details)
}

// NewInvalidParamsError builds the standard invalid-params error, used for
// handler arity mismatches and malformed params.
func NewInvalidParamsError(detail string, properties map[string]interface{}) error {
	err := errors.Newf("%s", detail)
	return ErrorWithDetails(err, CategoryRPC, CodeInvalidParams, properties)
}

// NewInternalError wraps cause (which may be a recovered panic value
// formatted by the caller) as the standard server-error response.
func NewInternalError(cause error, properties map[string]interface{}) error {
	wrapped := errors.Wrap(cause, "handler failed")
	return ErrorWithDetails(wrapped, CategoryHandler, CodeServerError, properties)
}

// NewInvalidRequestError builds the standard invalid-request error used for
// schema-errors whose message looked like a request (had a method field).
func NewInvalidRequestError(detail string, properties map[string]interface{}) error {
	err := errors.Newf("%s", detail)
	return ErrorWithDetails(err, CategoryRPC, CodeInvalidRequest, properties)
}

// NewParseError builds the standard parse-error used for irrecoverable and
// recoverable framing faults (spec.md section 7).
func NewParseError(detail string, properties map[string]interface{}) error {
	err := errors.Newf("%s", detail)
	return ErrorWithDetails(err, CategoryFraming, CodeParseError, properties)
}
