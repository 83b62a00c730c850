// Package rpc defines the hookgate.v1.Gate gRPC service. Messages are plain
// Go structs carried by a JSON codec, so no generated code is involved.
package rpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/ppiankov/hookgate/internal/gate"
	"github.com/ppiankov/hookgate/internal/model"
)

const (
	// CodecName is the gRPC content-subtype for JSON messages.
	CodecName = "json"

	ServiceName    = "hookgate.v1.Gate"
	EvaluateMethod = "/" + ServiceName + "/Evaluate"
	StatusMethod   = "/" + ServiceName + "/Status"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

// EvalRequest carries one action for evaluation.
type EvalRequest struct {
	Request model.ActionRequest `json:"request"`
}

// EvalResponse carries the decision and the audit record the server wrote.
type EvalResponse struct {
	Result gate.Result `json:"result"`
	// AuditError is set when the decision stands but the record was not written.
	AuditError string `json:"audit_error,omitempty"`
}

// StatusRequest is empty.
type StatusRequest struct{}

// StatusResponse describes the serving gate.
type StatusResponse struct {
	PolicyHash string `json:"policy_hash"`
	FailMode   string `json:"fail_mode"`
	Root       string `json:"root"`
	AuditLog   string `json:"audit_log"`
}

// GateServer is implemented by the server.
type GateServer interface {
	Evaluate(context.Context, *EvalRequest) (*EvalResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
}

// ServiceDesc describes the service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GateServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
		{MethodName: "Status", Handler: statusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hookgate/v1/gate",
}

// Register attaches srv to s.
func Register(s *grpc.Server, srv GateServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(EvalRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GateServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: EvaluateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GateServer).Evaluate(ctx, req.(*EvalRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func statusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GateServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StatusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GateServer).Status(ctx, req.(*StatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}
