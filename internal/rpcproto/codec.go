// Package rpcproto defines the wire schema shared by distorage's three gRPC
// listeners (peer-control, DHT, client). The teacher's retrieval pack ships
// no .proto files or generated internal/api/**/v1 stubs, so instead of
// hand-authoring a risky protoc-equivalent .pb.go we keep grpc-go itself
// (transport, interceptors, otelgrpc) and swap only the wire codec: a small
// JSON encoding.Codec plus a hand-built grpc.ServiceDesc per service.
package rpcproto

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is registered with grpc's encoding package and selected via
// grpc.CallContentSubtype / grpc.ForceServerCodec on both ends.
const CodecName = "distorage-json"

// Codec implements google.golang.org/grpc/encoding.Codec on top of
// encoding/json, replacing the protobuf wire format the teacher's generated
// stubs would otherwise use.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpcproto: marshal: %w", err)
	}
	return b, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpcproto: unmarshal: %w", err)
	}
	return nil
}

func (Codec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(Codec{})
}
