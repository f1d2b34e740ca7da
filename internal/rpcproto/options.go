package rpcproto

import "google.golang.org/grpc"

// DialOption selects the JSON codec for outgoing calls on a grpc.ClientConn,
// in place of the default protobuf codec a generated stub would assume.
func DialOption() grpc.DialOption {
	return grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName))
}

// ServerOption forces every *grpc.Server built from it to decode/encode
// with the JSON codec instead of protobuf.
func ServerOption() grpc.ServerOption {
	return grpc.ForceServerCodec(Codec{})
}
