package clobgrpc

import "encoding/json"

// jsonCodec marshals grpc messages as JSON instead of protobuf wire
// format. The teacher's own proto/ packages (proto/marketdata,
// proto/ws) are plain structs with no protoc-gen-go pipeline behind
// them; forcing this codec on the server and client keeps that
// convention honest instead of pretending a code-generation step ran
// that never did.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
