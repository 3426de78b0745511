package framing

import (
	"testing"

	"github.com/dkoosis/rpcpeer/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBSONFramerSingleFrame(t *testing.T) {
	raw, err := codec.EncodeBSON(map[string]any{"jsonrpc": "2.0", "method": "echo"})
	require.NoError(t, err)

	f := NewBSONFramer(0)
	items := f.Feed(raw)
	require.Len(t, items, 1)
	assert.Equal(t, ItemMessage, items[0].Type)
	assert.Equal(t, "echo", items[0].Message["method"])
}

func TestBSONFramerSplitAcrossChunks(t *testing.T) {
	raw, err := codec.EncodeBSON(map[string]any{"jsonrpc": "2.0", "method": "echo"})
	require.NoError(t, err)
	mid := len(raw) / 2

	f := NewBSONFramer(0)
	assert.Empty(t, f.Feed(raw[:mid]))
	items := f.Feed(raw[mid:])
	require.Len(t, items, 1)
	assert.Equal(t, ItemMessage, items[0].Type)
}

func TestBSONFramerTwoFramesInOneChunk(t *testing.T) {
	raw1, _ := codec.EncodeBSON(map[string]any{"jsonrpc": "2.0", "method": "one"})
	raw2, _ := codec.EncodeBSON(map[string]any{"jsonrpc": "2.0", "method": "two"})

	f := NewBSONFramer(0)
	items := f.Feed(append(append([]byte{}, raw1...), raw2...))
	require.Len(t, items, 2)
	assert.Equal(t, "one", items[0].Message["method"])
	assert.Equal(t, "two", items[1].Message["method"])
}

func TestBSONFramerExceedsMaxLength(t *testing.T) {
	raw, _ := codec.EncodeBSON(map[string]any{"jsonrpc": "2.0", "method": "echo"})
	f := NewBSONFramer(4)
	items := f.Feed(raw)
	require.Len(t, items, 1)
	require.Equal(t, ItemParseError, items[0].Type)
	assert.Equal(t, KindExceedsMaxLength, items[0].Err.Kind)
	assert.False(t, items[0].Err.Recoverable)
}

func TestBSONFramerInvalidFraming(t *testing.T) {
	f := NewBSONFramer(0)
	items := f.Feed([]byte{0x02, 0x00, 0x00, 0x00})
	require.Len(t, items, 1)
	assert.Equal(t, KindInvalidFraming, items[0].Err.Kind)
}

func TestBSONFramerInvalidBSONIsTransient(t *testing.T) {
	good, _ := codec.EncodeBSON(map[string]any{"jsonrpc": "2.0", "method": "ok"})
	bad := []byte{0x05, 0x00, 0x00, 0x00, 0xFF} // length 5, declares an empty doc but has garbage byte

	f := NewBSONFramer(0)
	items := f.Feed(append(append([]byte{}, bad...), good...))
	require.Len(t, items, 2)
	assert.Equal(t, KindInvalidBSON, items[0].Err.Kind)
	assert.True(t, items[0].Err.Recoverable)
	assert.Equal(t, ItemMessage, items[1].Type)
}

func TestBSONFramerDrainTrailingGarbage(t *testing.T) {
	f := NewBSONFramer(0)
	f.Feed([]byte{0x01, 0x02})
	items := f.Drain()
	require.Len(t, items, 2)
	assert.Equal(t, KindTrailingGarbage, items[0].Err.Kind)
	assert.Equal(t, ItemDrained, items[1].Type)
}

func TestBSONFramerDrainCleanEOF(t *testing.T) {
	f := NewBSONFramer(0)
	items := f.Drain()
	require.Len(t, items, 1)
	assert.Equal(t, ItemDrained, items[0].Type)
}
