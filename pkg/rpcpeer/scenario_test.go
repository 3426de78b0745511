// file: pkg/rpcpeer/scenario_test.go
package rpcpeer_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkoosis/rpcpeer/internal/rpcerr"
	"github.com/dkoosis/rpcpeer/internal/streamtest"
	"github.com/dkoosis/rpcpeer/pkg/rpcpeer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func echoHandler(_ context.Context, params []any) (any, error) {
	if len(params) != 1 {
		return nil, rpcpeer.InvalidParams(fmt.Sprintf("echo: expected exactly one param, got %d", len(params)), params)
	}
	s, ok := params[0].(string)
	if !ok {
		return nil, rpcpeer.InvalidParams("echo: param must be a string", params)
	}
	return reverse(s), nil
}

func TestScenarioEchoReverse(t *testing.T) {
	pair := streamtest.NewPair()
	defer pair.Close()

	server := rpcpeer.ConnectJSONRPC(pair.Server, map[string]rpcpeer.RequestHandler{"echo": echoHandler}, nil)
	defer server.Close()
	client := rpcpeer.ConnectJSONRPC(pair.Client, nil, nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := client.Request(ctx, "echo", "Hello!")
	require.NoError(t, err)
	assert.Equal(t, "!olleH", result)
}

func TestScenarioArityError(t *testing.T) {
	pair := streamtest.NewPair()
	defer pair.Close()

	server := rpcpeer.ConnectJSONRPC(pair.Server, map[string]rpcpeer.RequestHandler{"echo": echoHandler}, nil)
	defer server.Close()
	client := rpcpeer.ConnectJSONRPC(pair.Client, nil, nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Request(ctx, "echo", "a", "b", "c")
	require.Error(t, err)
	var peerErr *rpcerr.PeerError
	require.ErrorAs(t, err, &peerErr)
	assert.Equal(t, rpcerr.CodeInvalidParams, peerErr.Code)
	assert.Equal(t, "Invalid params", peerErr.Message)
}

func TestScenarioMethodNotFound(t *testing.T) {
	pair := streamtest.NewPair()
	defer pair.Close()

	server := rpcpeer.ConnectJSONRPC(pair.Server, map[string]rpcpeer.RequestHandler{}, nil)
	defer server.Close()
	client := rpcpeer.ConnectJSONRPC(pair.Client, nil, nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Request(ctx, "nope", "x")
	require.Error(t, err)
	var peerErr *rpcerr.PeerError
	require.ErrorAs(t, err, &peerErr)
	assert.Equal(t, rpcerr.CodeMethodNotFound, peerErr.Code)
	assert.Equal(t, "Method not found", peerErr.Message)
}

func TestScenarioHandlerInitiatedClose(t *testing.T) {
	pair := streamtest.NewPair()
	defer pair.Close()

	server := rpcpeer.ConnectJSONRPC(pair.Server, map[string]rpcpeer.RequestHandler{
		"exit": func(_ context.Context, _ []any) (any, error) {
			return nil, rpcpeer.CloseConnection("ack!")
		},
	}, nil)
	defer server.Close()
	client := rpcpeer.ConnectJSONRPC(pair.Client, nil, nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := client.Request(ctx, "exit")
	require.NoError(t, err)
	assert.Equal(t, "ack!", result)

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client connection never observed the server closing")
	}

	_, err = client.Request(ctx, "echo", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, rpcerr.ErrConnectionClosed)
}

// Exercises the BSON-RPC wire variant end to end with array params, since
// mongo-driver decodes nested BSON arrays/documents into its own named
// composite types (primitive.A/primitive.D) rather than []any/map[string]any
// before internal/codec normalizes them back for internal/rpcmsg.Classify.
func TestScenarioBSONEchoReverse(t *testing.T) {
	pair := streamtest.NewPair()
	defer pair.Close()

	server := rpcpeer.ConnectBSONRPC(pair.Server, map[string]rpcpeer.RequestHandler{"echo": echoHandler}, nil)
	defer server.Close()
	client := rpcpeer.ConnectBSONRPC(pair.Client, nil, nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := client.Request(ctx, "echo", "Hello!")
	require.NoError(t, err)
	assert.Equal(t, "!olleH", result)
}

// A BSON-encoded error response must classify as an error-response (its
// error field decodes through the same primitive.D normalization as params)
// and deliver a *rpcerr.PeerError to the waiting caller, not a schema-error.
func TestScenarioBSONPeerErrorRoundTrip(t *testing.T) {
	pair := streamtest.NewPair()
	defer pair.Close()

	server := rpcpeer.ConnectBSONRPC(pair.Server, map[string]rpcpeer.RequestHandler{"echo": echoHandler}, nil)
	defer server.Close()
	client := rpcpeer.ConnectBSONRPC(pair.Client, nil, nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Request(ctx, "echo", "a", "b", "c")
	require.Error(t, err)
	var peerErr *rpcerr.PeerError
	require.ErrorAs(t, err, &peerErr)
	assert.Equal(t, rpcerr.CodeInvalidParams, peerErr.Code)
	assert.Equal(t, "Invalid params", peerErr.Message)
}

func TestScenarioBidirectionalNotifications(t *testing.T) {
	pair := streamtest.NewPair()
	defer pair.Close()

	var mu sync.Mutex
	var received []string
	noteDone := make(chan struct{}, 10)

	var server *rpcpeer.Peer
	server = rpcpeer.ConnectJSONRPC(pair.Server, map[string]rpcpeer.RequestHandler{
		"process": func(_ context.Context, params []any) (any, error) {
			msg, _ := params[0].(string)
			for _, c := range msg {
				server.Notify("note", string(c))
			}
			return "Done!", nil
		},
	}, nil)
	defer server.Close()

	client := rpcpeer.ConnectJSONRPC(pair.Client, nil, map[string]rpcpeer.NotificationHandler{
		"note": func(_ context.Context, params []any) error {
			mu.Lock()
			received = append(received, params[0].(string))
			mu.Unlock()
			noteDone <- struct{}{}
			return nil
		},
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := client.Request(ctx, "process", "Whammy!")
	require.NoError(t, err)
	assert.Equal(t, "Done!", result)

	for i := 0; i < len("Whammy!"); i++ {
		select {
		case <-noteDone:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for notification")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, strings.Split("Whammy!", ""), received)
}
