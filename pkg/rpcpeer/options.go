// Package rpcpeer is the public API (spec.md section 4.I / section 6): a
// symmetric, bidirectional RPC peer over a duplex byte stream, speaking
// JSON-RPC 2.0 or a BSON-framed variant. file: pkg/rpcpeer/options.go
package rpcpeer

import (
	"math"
	"time"

	"github.com/dkoosis/rpcpeer/internal/codec"
	"github.com/dkoosis/rpcpeer/internal/logging"
	"github.com/dkoosis/rpcpeer/internal/tracker"
)

// JSONFraming selects the JSON wire framing mode (spec.md section 6).
type JSONFraming string

const (
	FramingNone    JSONFraming = "none"
	FramingRFC7464 JSONFraming = "rfc-7464"
)

// Options mirrors spec.md section 6's enumerated option list.
type Options struct {
	AsyncNotificationHandling bool
	AsyncRequestHandling      bool
	ConnectionClosedHandler   func()
	ConnectionID              string
	IDGenerator               tracker.IDGenerator
	IdleTimeout               time.Duration
	IdleTimeoutHandler        func()
	InvalidIDResponseHandler  func(id any)
	JSONFraming               JSONFraming
	JSONKeyFn                 codec.KeyFn
	MaxLen                    int32
	NilIDErrorHandler         func(message, data any)
	NotificationErrorHandler  func(method string, err error)
	ProtocolKeyword           string
	Server                    Closer
	Logger                    logging.Logger
	MessageSchema             SchemaValidator
}

// Closer is a closeable handle for close_server (spec.md section 6's
// `server` option): typically the listener accepting new connections.
type Closer interface {
	Close() error
}

// SchemaValidator is the opt-in stricter message-schema validation hook
// addressing spec.md section 9's params-leniency open question: when set,
// every decoded message is validated before classification, and a
// validation failure is treated as a schema-error.
type SchemaValidator interface {
	Validate(msg map[string]any) error
}

func defaultOptions() Options {
	return Options{
		AsyncNotificationHandling: false,
		AsyncRequestHandling:      true,
		IdleTimeout:               0,
		JSONFraming:               FramingNone,
		MaxLen:                    math.MaxInt32,
		Logger:                    logging.GetNoopLogger(),
	}
}

// Option configures Options, following the teacher's functional-option
// pattern (internal/jsonrpc/jsonrpc_handler.go's AdapterOption).
type Option func(*Options)

func WithAsyncNotificationHandling(v bool) Option {
	return func(o *Options) { o.AsyncNotificationHandling = v }
}

func WithAsyncRequestHandling(v bool) Option {
	return func(o *Options) { o.AsyncRequestHandling = v }
}

func WithConnectionClosedHandler(fn func()) Option {
	return func(o *Options) { o.ConnectionClosedHandler = fn }
}

func WithConnectionID(id string) Option {
	return func(o *Options) { o.ConnectionID = id }
}

func WithIDGenerator(gen tracker.IDGenerator) Option {
	return func(o *Options) { o.IDGenerator = gen }
}

func WithIdleTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.IdleTimeout = d
		}
	}
}

func WithIdleTimeoutHandler(fn func()) Option {
	return func(o *Options) { o.IdleTimeoutHandler = fn }
}

func WithInvalidIDResponseHandler(fn func(id any)) Option {
	return func(o *Options) { o.InvalidIDResponseHandler = fn }
}

func WithJSONFraming(f JSONFraming) Option {
	return func(o *Options) { o.JSONFraming = f }
}

func WithJSONKeyFn(fn codec.KeyFn) Option {
	return func(o *Options) { o.JSONKeyFn = fn }
}

func WithMaxLen(n int32) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxLen = n
		}
	}
}

func WithNilIDErrorHandler(fn func(message, data any)) Option {
	return func(o *Options) { o.NilIDErrorHandler = fn }
}

func WithNotificationErrorHandler(fn func(method string, err error)) Option {
	return func(o *Options) { o.NotificationErrorHandler = fn }
}

func WithProtocolKeyword(keyword string) Option {
	return func(o *Options) { o.ProtocolKeyword = keyword }
}

func WithServer(server Closer) Option {
	return func(o *Options) { o.Server = server }
}

func WithLogger(l logging.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithMessageSchema installs a stricter, opt-in JSON-Schema validator
// (santhosh-tekuri/jsonschema/v5) run on every decoded message before
// classification.
func WithMessageSchema(v SchemaValidator) Option {
	return func(o *Options) { o.MessageSchema = v }
}
