package msgschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsRequest(t *testing.T) {
	v := New()
	err := v.Validate(map[string]any{"jsonrpc": "2.0", "id": "1", "method": "echo", "params": []any{1, 2}})
	assert.NoError(t, err)
}

func TestValidateAcceptsNotification(t *testing.T) {
	v := New()
	err := v.Validate(map[string]any{"jsonrpc": "2.0", "method": "ping"})
	assert.NoError(t, err)
}

func TestValidateRejectsBothResultAndError(t *testing.T) {
	v := New()
	err := v.Validate(map[string]any{
		"jsonrpc": "2.0",
		"id":      "1",
		"result":  1,
		"error":   map[string]any{"code": -32000, "message": "nope"},
	})
	assert.Error(t, err)
}

func TestValidateRejectsMalformedError(t *testing.T) {
	v := New()
	err := v.Validate(map[string]any{
		"jsonrpc": "2.0",
		"id":      "1",
		"error":   map[string]any{"message": "missing code"},
	})
	assert.Error(t, err)
}
