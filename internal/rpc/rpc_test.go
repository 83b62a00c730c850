package rpc

import (
	"testing"

	"google.golang.org/grpc/encoding"

	"github.com/ppiankov/hookgate/internal/model"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	if c == nil {
		t.Fatal("json codec not registered")
	}
	in := &EvalRequest{Request: model.ActionRequest{Kind: model.KindCommand, Command: "ls"}}
	data, err := c.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	out := new(EvalRequest)
	if err := c.Unmarshal(data, out); err != nil {
		t.Fatal(err)
	}
	if out.Request.Command != "ls" || out.Request.Kind != model.KindCommand {
		t.Errorf("unexpected round trip %+v", out)
	}
}

func TestServiceDesc(t *testing.T) {
	if ServiceDesc.ServiceName != "hookgate.v1.Gate" || len(ServiceDesc.Methods) != 2 {
		t.Fatalf("unexpected desc %+v", ServiceDesc)
	}
	if EvaluateMethod != "/hookgate.v1.Gate/Evaluate" {
		t.Errorf("unexpected method %s", EvaluateMethod)
	}
}
