// file: cmd/rpcpeer/commands.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkoosis/rpcpeer/internal/logging"
	"github.com/dkoosis/rpcpeer/internal/msgschema"
	"github.com/dkoosis/rpcpeer/internal/rpcconfig"
	"github.com/dkoosis/rpcpeer/pkg/rpcpeer"
)

func serveCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":7890", "address to listen on")
	configPath := fs.String("config", "", "path to a YAML config file")
	strict := fs.Bool("strict-schema", false, "validate every inbound message against the base wire schema")
	proto := fs.String("proto", "json", "wire protocol: json or bson")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("fs.Parse: %w", err)
	}

	settings, err := rpcconfig.Load(*configPath)
	if err != nil {
		return fmt.Errorf("rpcconfig.Load: %w", err)
	}

	logger := logging.NewDefaultLogger()

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		return fmt.Errorf("net.Listen: %w", err)
	}
	logger.Info("listening", "addr", listener.Addr().String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		_ = listener.Close()
	}()

	requests := map[string]rpcpeer.RequestHandler{
		"echo": func(_ context.Context, params []any) (any, error) {
			if len(params) != 1 {
				return nil, rpcpeer.InvalidParams(fmt.Sprintf("echo: expected exactly one param, got %d", len(params)), params)
			}
			return params[0], nil
		},
		"sum": func(_ context.Context, params []any) (any, error) {
			total := 0.0
			for _, p := range params {
				n, ok := p.(float64)
				if !ok {
					return nil, fmt.Errorf("sum: param %v is not a number", p)
				}
				total += n
			}
			return total, nil
		},
		"shutdown": func(_ context.Context, _ []any) (any, error) {
			return nil, rpcpeer.CloseConnectionAndServer("bye")
		},
	}
	notifications := map[string]rpcpeer.NotificationHandler{
		"log": func(_ context.Context, params []any) error {
			logger.Info("peer notification", "params", params)
			return nil
		},
	}

	opts := []rpcpeer.Option{
		rpcpeer.WithLogger(logger),
		rpcpeer.WithServer(listener),
		rpcpeer.WithIdleTimeout(time.Duration(settings.Connection.IdleTimeoutMillis) * time.Millisecond),
		rpcpeer.WithMaxLen(settings.Connection.MaxLen),
	}
	if *strict {
		opts = append(opts, rpcpeer.WithMessageSchema(msgschema.New()))
	}
	if settings.Connection.ProtocolKeyword != "" {
		opts = append(opts, rpcpeer.WithProtocolKeyword(settings.Connection.ProtocolKeyword))
	}
	if settings.Connection.JSONFraming == "rfc-7464" {
		opts = append(opts, rpcpeer.WithJSONFraming(rpcpeer.FramingRFC7464))
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			logger.Info("listener closed", "error", err)
			return nil
		}
		connOpts := append(opts, rpcpeer.WithConnectionID(conn.RemoteAddr().String()))
		var peer *rpcpeer.Peer
		switch *proto {
		case "bson":
			peer = rpcpeer.ConnectBSONRPC(conn, requests, notifications, connOpts...)
		default:
			peer = rpcpeer.ConnectJSONRPC(conn, requests, notifications, connOpts...)
		}
		go func() {
			<-peer.Done()
			logger.Info("connection closed", "id", peer.ConnectionID())
		}()
	}
}

func clientCommand(args []string) error {
	fs := flag.NewFlagSet("client", flag.ExitOnError)
	addr := fs.String("addr", "localhost:7890", "server address")
	method := fs.String("method", "echo", "method to call")
	arg := fs.String("arg", "hello", "a single string argument to send")
	proto := fs.String("proto", "json", "wire protocol: json or bson")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("fs.Parse: %w", err)
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		return fmt.Errorf("net.Dial: %w", err)
	}

	var peer *rpcpeer.Peer
	if *proto == "bson" {
		peer = rpcpeer.ConnectBSONRPC(conn, nil, nil, rpcpeer.WithLogger(logging.NewDefaultLogger()))
	} else {
		peer = rpcpeer.ConnectJSONRPC(conn, nil, nil, rpcpeer.WithLogger(logging.NewDefaultLogger()))
	}
	defer peer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := peer.Request(ctx, *method, *arg)
	if err != nil {
		return fmt.Errorf("peer.Request(%q): %w", *method, err)
	}
	fmt.Printf("%v\n", result)
	return nil
}

func versionCommand(_ []string) error {
	printVersion()
	return nil
}

func helpCommand(args []string) error {
	fs := flag.NewFlagSet("help", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("fs.Parse: %w", err)
	}

	cmds := RegisterCommands()
	if fs.NArg() > 0 {
		name := fs.Arg(0)
		cmd, ok := cmds[name]
		if !ok {
			return fmt.Errorf("unknown command: %s", name)
		}
		fmt.Printf("%s: %s\n", cmd.Name, cmd.Description)
		return nil
	}

	fmt.Println("rpcpeer - a symmetric bidirectional RPC peer demo")
	fmt.Println("\nUsage:\n  rpcpeer [command] [options]")
	fmt.Println("\nAvailable commands:")
	for _, cmd := range cmds {
		fmt.Printf("  %-10s %s\n", cmd.Name, cmd.Description)
	}
	return nil
}
