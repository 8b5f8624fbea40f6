package memo

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes stored outcomes.
//
// JSON and Msgpack both skip unexported and "-"-tagged struct fields, so
// Wrap rejects result types that have them, and results whose interface
// values hold them are not stored.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Unmarshal must fail, not guess, on data written by another codec.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON stores outcomes as JSON. It is the default.
var JSON Codec = jsonCodec{}

// Msgpack stores outcomes as MessagePack, which is smaller and keeps
// []byte and time.Time values exact.
var Msgpack Codec = msgpackCodec{}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
