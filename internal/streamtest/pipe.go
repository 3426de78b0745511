// Package streamtest provides an in-memory duplex byte stream pair for
// tests, mirroring the role of InMemoryTransportPair in the teacher's
// transport package but operating on raw bytes (net.Pipe) instead of
// whole pre-framed messages, since the framing layer under test consumes
// arbitrary byte chunks rather than one message per read. file:
// internal/streamtest/pipe.go
package streamtest

import (
	"net"
)

// Pair holds two ends of an in-memory duplex byte stream. Bytes written to
// Client are read from Server and vice versa.
type Pair struct {
	Client net.Conn
	Server net.Conn
}

// NewPair creates a connected duplex stream pair backed by net.Pipe.
func NewPair() *Pair {
	client, server := net.Pipe()
	return &Pair{Client: client, Server: server}
}

// Close closes both ends of the pair.
func (p *Pair) Close() {
	_ = p.Client.Close()
	_ = p.Server.Close()
}
