package rpcmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRequest(t *testing.T) {
	msg := map[string]any{"jsonrpc": "2.0", "method": "echo", "id": "id-1", "params": []any{"hi"}}
	c := Classify("jsonrpc", msg)
	require.Equal(t, KindRequest, c.Kind)
	assert.Equal(t, "echo", c.Request.Method)
	assert.Equal(t, "id-1", c.Request.ID)
	assert.Equal(t, []any{"hi"}, c.Request.Params)
}

func TestClassifyRequestWithIntegerID(t *testing.T) {
	msg := map[string]any{"jsonrpc": "2.0", "method": "echo", "id": float64(7)}
	c := Classify("jsonrpc", msg)
	require.Equal(t, KindRequest, c.Kind)
	assert.Equal(t, float64(7), c.Request.ID)
}

func TestClassifyRequestWithNullID(t *testing.T) {
	msg := map[string]any{"jsonrpc": "2.0", "method": "echo", "id": nil}
	c := Classify("jsonrpc", msg)
	require.Equal(t, KindRequest, c.Kind)
	assert.Nil(t, c.Request.ID)
}

func TestClassifyNotification(t *testing.T) {
	msg := map[string]any{"jsonrpc": "2.0", "method": "log", "params": []any{"hi"}}
	c := Classify("jsonrpc", msg)
	require.Equal(t, KindNotification, c.Kind)
	assert.Equal(t, "log", c.Notification.Method)
}

func TestClassifySuccessResponse(t *testing.T) {
	msg := map[string]any{"jsonrpc": "2.0", "id": "id-1", "result": 42}
	c := Classify("jsonrpc", msg)
	require.Equal(t, KindSuccessResponse, c.Kind)
	assert.Equal(t, 42, c.Response.Result)
	assert.Nil(t, c.Response.Error)
}

func TestClassifyErrorResponse(t *testing.T) {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      "id-1",
		"error":   map[string]any{"code": float64(-32601), "message": "Method not found"},
	}
	c := Classify("jsonrpc", msg)
	require.Equal(t, KindErrorResponse, c.Kind)
	require.NotNil(t, c.Response.Error)
	assert.Equal(t, -32601, c.Response.Error.Code)
	assert.Equal(t, "Method not found", c.Response.Error.Message)
}

func TestClassifyNilIDErrorResponse(t *testing.T) {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      nil,
		"error":   map[string]any{"code": float64(-32700), "message": "Parse error"},
	}
	c := Classify("jsonrpc", msg)
	require.Equal(t, KindNilIDErrorResponse, c.Kind)
	assert.Nil(t, c.Response.ID)
}

func TestClassifySchemaErrorWrongVersion(t *testing.T) {
	msg := map[string]any{"jsonrpc": "1.0", "method": "echo", "id": "id-1"}
	c := Classify("jsonrpc", msg)
	assert.Equal(t, KindSchemaError, c.Kind)
}

func TestClassifySchemaErrorMissingTag(t *testing.T) {
	msg := map[string]any{"method": "echo", "id": "id-1"}
	c := Classify("jsonrpc", msg)
	assert.Equal(t, KindSchemaError, c.Kind)
}

func TestClassifySchemaErrorBothResultAndError(t *testing.T) {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      "id-1",
		"result":  1,
		"error":   map[string]any{"code": float64(-32700), "message": "x"},
	}
	c := Classify("jsonrpc", msg)
	assert.Equal(t, KindSchemaError, c.Kind)
}

func TestClassifySchemaErrorMalformedErrorObject(t *testing.T) {
	msg := map[string]any{"jsonrpc": "2.0", "id": "id-1", "error": "not an object"}
	c := Classify("jsonrpc", msg)
	assert.Equal(t, KindSchemaError, c.Kind)
}

func TestClassifyRespectsConfiguredProtocolTagKey(t *testing.T) {
	msg := map[string]any{"bsonrpc": "2.0", "method": "echo", "id": "id-1"}
	c := Classify("bsonrpc", msg)
	assert.Equal(t, KindRequest, c.Kind)
}

func TestNormalizeIDNumericAgreement(t *testing.T) {
	assert.Equal(t, NormalizeID(int32(3)), NormalizeID(float64(3)))
	assert.Equal(t, NormalizeID(int64(3)), NormalizeID(3))
	assert.NotEqual(t, NormalizeID("3"), NormalizeID(3))
	assert.Equal(t, "null", NormalizeID(nil))
}
