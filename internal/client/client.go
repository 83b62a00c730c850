// Package client forwards gate requests to a running hookgate server.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ppiankov/hookgate/internal/gate"
	"github.com/ppiankov/hookgate/internal/model"
	"github.com/ppiankov/hookgate/internal/policy"
	"github.com/ppiankov/hookgate/internal/rpc"
)

// DefaultTimeout bounds each call.
const DefaultTimeout = 5 * time.Second

// ErrUnavailable wraps transport failures. The returned decision then comes
// from the client's fail mode rather than the server.
var ErrUnavailable = errors.New("policy server unavailable")

// Client connects to a hookgate gRPC server. It implements gate.Evaluator.
type Client struct {
	conn     *grpc.ClientConn
	failMode policy.FailMode
	timeout  time.Duration
}

var _ gate.Evaluator = (*Client)(nil)

// New creates a client for addr. The connection is established lazily, so an
// unreachable server surfaces on the first call.
func New(addr string, failMode policy.FailMode) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpc.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to policy server: %w", err)
	}
	return &Client{conn: conn, failMode: failMode, timeout: DefaultTimeout}, nil
}

// Evaluate sends req to the server. On transport failure it returns the
// fail-mode decision and an error wrapping ErrUnavailable. When the server
// decided but could not audit, the decision stands and the error says so.
func (c *Client) Evaluate(ctx context.Context, req model.ActionRequest) (gate.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp := new(rpc.EvalResponse)
	if err := c.conn.Invoke(ctx, rpc.EvaluateMethod, &rpc.EvalRequest{Request: req}, resp); err != nil {
		return gate.Result{Decision: c.failMode.Unavailable(err)}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.AuditError != "" {
		return resp.Result, fmt.Errorf("server audit: %s", resp.AuditError)
	}
	return resp.Result, nil
}

// Status asks the server which rules and audit log it is serving.
func (c *Client) Status(ctx context.Context) (*rpc.StatusResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp := new(rpc.StatusResponse)
	if err := c.conn.Invoke(ctx, rpc.StatusMethod, &rpc.StatusRequest{}, resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
