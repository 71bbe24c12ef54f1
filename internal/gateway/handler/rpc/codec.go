package rpc

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"

	"rapidproto/internal/util/jsonutil"
)

// jsonCodec lets connect carry plain Go structs. It replaces connect's
// protojson codec under the same name, so clients send application/json.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return jsonutil.MarshalNoEscape(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// Codec is exported for clients (tests, the CLI) that talk to the service.
func Codec() connect.Codec { return jsonCodec{} }
