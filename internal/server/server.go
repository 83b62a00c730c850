// Package server exposes a Gate over gRPC so several hook processes can share
// one loaded rule set and one audit writer.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/ppiankov/hookgate/internal/diag"
	"github.com/ppiankov/hookgate/internal/gate"
	"github.com/ppiankov/hookgate/internal/rpc"
	"github.com/ppiankov/hookgate/internal/rules"
)

// DefaultPort is used when no port is configured.
const DefaultPort = 7471

// Server implements rpc.GateServer on top of a local Gate.
type Server struct {
	gate      *gate.Gate
	rulesPath string
	log       *diag.Logger

	grpcServer *grpc.Server
}

// New wraps g. rulesPath is re-read by ReloadRules.
func New(g *gate.Gate, rulesPath string, log *diag.Logger) *Server {
	s := &Server{
		gate:      g,
		rulesPath: rulesPath,
		log:       log,
	}
	s.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(s.logCalls))
	rpc.Register(s.grpcServer, s)
	return s
}

// Serve listens on 127.0.0.1:port. Blocks until stopped.
func (s *Server) Serve(port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	return s.grpcServer.Serve(lis)
}

// ServeOn serves on an existing listener.
func (s *Server) ServeOn(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// GracefulStop waits for in-flight evaluations and stops serving.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// Evaluate implements the Evaluate RPC. An audit failure does not fail the
// call: the decision is returned with AuditError set.
func (s *Server) Evaluate(ctx context.Context, req *rpc.EvalRequest) (*rpc.EvalResponse, error) {
	res, err := s.gate.Evaluate(ctx, req.Request)
	resp := &rpc.EvalResponse{Result: res}
	if err != nil {
		resp.AuditError = err.Error()
	}
	return resp, nil
}

// Status implements the Status RPC.
func (s *Server) Status(ctx context.Context, _ *rpc.StatusRequest) (*rpc.StatusResponse, error) {
	return &rpc.StatusResponse{
		PolicyHash: s.gate.PolicyHash(),
		FailMode:   string(s.gate.FailMode()),
		Root:       s.gate.Root(),
		AuditLog:   s.gate.AuditPath(),
	}, nil
}

// ReloadRules re-reads the rules file and swaps it into the gate.
// On error the previous rules stay active.
func (s *Server) ReloadRules() error {
	set, err := rules.Load(s.rulesPath)
	if err != nil {
		return fmt.Errorf("failed to reload rules: %w", err)
	}
	s.gate.Reload(set)
	s.log.Info("rules reloaded", diag.Fields{"path": s.rulesPath, "policy_hash": set.Hash()})
	return nil
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	fields := diag.Fields{"method": info.FullMethod, "elapsed_ms": time.Since(start).Milliseconds()}
	if err != nil {
		fields["error"] = err
		s.log.Warn("rpc failed", fields)
	} else {
		s.log.Debug("rpc", fields)
	}
	return resp, err
}
