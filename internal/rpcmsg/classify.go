// file: internal/rpcmsg/classify.go
package rpcmsg

// Classified is the tagged-variant result of Classify: the typed field
// matching Kind is non-nil and the others are nil. For KindSchemaError all
// three typed fields are nil.
type Classified struct {
	Kind         Kind
	Request      *Request
	Notification *Notification
	Response     *Response
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isIntegerOrString(v any) bool {
	if v == nil {
		return false
	}
	if isString(v) {
		return true
	}
	switch n := v.(type) {
	case int, int32, int64:
		return true
	case float64:
		return n == float64(int64(n))
	case float32:
		return float64(n) == float64(int64(n))
	}
	return false
}

func isIDValue(v any) bool {
	// id present, value is string | integer | null (spec.md section 3).
	if v == nil {
		return true
	}
	return isIntegerOrString(v)
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int32, int64, float64, float32:
		return true
	}
	return false
}

// Classify applies the six classification predicates from spec.md section 3
// to a decoded message map. protocolTagKey is the configured key name
// ("jsonrpc" or "bsonrpc", or any other configured name). Classification is
// a total partition: every input produces exactly one Classified.Kind.
func Classify(protocolTagKey string, msg map[string]any) Classified {
	tag, hasTag := msg[protocolTagKey]
	if !hasTag || tag != Version {
		return Classified{Kind: KindSchemaError}
	}

	method, hasMethod := msg["method"]
	methodIsString := hasMethod && isString(method)

	idVal, hasID := msg["id"]
	_, hasResult := msg["result"]
	errVal, hasError := msg["error"]

	switch {
	case methodIsString && hasID && isIDValue(idVal):
		params, _ := extractParams(msg)
		return Classified{
			Kind: KindRequest,
			Request: &Request{
				ProtocolTag: protocolTagKey,
				ID:          idVal,
				Method:      method.(string),
				Params:      params,
				Raw:         msg,
			},
		}

	case methodIsString && !hasID:
		params, _ := extractParams(msg)
		return Classified{
			Kind: KindNotification,
			Notification: &Notification{
				ProtocolTag: protocolTagKey,
				Method:      method.(string),
				Params:      params,
				Raw:         msg,
			},
		}

	case hasID && idVal != nil && isIntegerOrString(idVal) && hasResult && !hasError:
		return Classified{
			Kind: KindSuccessResponse,
			Response: &Response{
				ProtocolTag: protocolTagKey,
				ID:          idVal,
				Result:      msg["result"],
				Raw:         msg,
			},
		}

	case hasID && idVal != nil && isIntegerOrString(idVal) && hasError && !hasResult && isWireErrorShape(errVal):
		return Classified{
			Kind: KindErrorResponse,
			Response: &Response{
				ProtocolTag: protocolTagKey,
				ID:          idVal,
				Error:       toWireError(errVal),
				Raw:         msg,
			},
		}

	case hasID && idVal == nil && hasError && !hasResult && isWireErrorShape(errVal):
		return Classified{
			Kind: KindNilIDErrorResponse,
			Response: &Response{
				ProtocolTag: protocolTagKey,
				ID:          nil,
				Error:       toWireError(errVal),
				Raw:         msg,
			},
		}

	default:
		return Classified{Kind: KindSchemaError}
	}
}

func extractParams(msg map[string]any) ([]any, bool) {
	raw, ok := msg["params"]
	if !ok {
		return nil, false
	}
	params, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	return params, true
}

func isWireErrorShape(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	code, hasCode := m["code"]
	msg, hasMsg := m["message"]
	return hasCode && isNumeric(code) && hasMsg && isString(msg)
}

func toWireError(v any) *WireError {
	m, ok := v.(map[string]any)
	if !ok {
		return &WireError{Code: -32700, Message: "malformed error object"}
	}
	we := &WireError{Message: m["message"].(string)}
	switch c := m["code"].(type) {
	case int:
		we.Code = c
	case int32:
		we.Code = int(c)
	case int64:
		we.Code = int(c)
	case float64:
		we.Code = int(c)
	case float32:
		we.Code = int(c)
	}
	if data, ok := m["data"]; ok {
		we.Data = data
	}
	return we
}
