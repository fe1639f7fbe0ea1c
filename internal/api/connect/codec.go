// Package connect provides the Connect RPC service implementations.
//
// The services exchange plain structs through a JSON codec instead of
// generated protobuf types; the wire surface is small and the MediaKey token
// is already the only externally shared address format.
package connect

import "encoding/json"

// CodecName is the codec name announced on the wire.
const CodecName = "json"

// JSONCodec marshals request and response messages with encoding/json. It is
// shared by the server handlers and the deckctl client.
type JSONCodec struct{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return CodecName }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal implements connect.Codec.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
