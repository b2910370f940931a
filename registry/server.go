package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServeStdio runs the registry as an MCP server over stdin/stdout.
// Blocks until the client disconnects or ctx is cancelled.
func ServeStdio(ctx context.Context, r *Registry) error {
	r.logger.Info("serving mcp", "transport", TransportStdio)
	return r.server.Run(ctx, &mcp.StdioTransport{})
}

// ServeHTTP returns an http.Handler for the streamable HTTP transport.
func ServeHTTP(r *Registry) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return r.server
	}, nil)
}

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// ListenAndServe serves ServeHTTP on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, r *Registry) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           ServeHTTP(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	r.logger.Info("serving mcp", "transport", TransportStreamableHTTP, "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// Serve dispatches on transport: "stdio" or "streamable-http".
func Serve(ctx context.Context, transport, addr string, r *Registry) error {
	switch transport {
	case "", TransportStdio:
		return ServeStdio(ctx, r)
	case TransportStreamableHTTP:
		return ListenAndServe(ctx, addr, r)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransport, transport)
	}
}
