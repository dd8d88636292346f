package cache

import (
	"encoding/json"
	"fmt"
)

// Codec converts values to and from the single string stored per key in a medium.
// Unmarshal must accept everything Marshal produces; it may fail (or even panic)
// on anything else.
type Codec[T any] interface {
	Marshal(v T) (string, error)
	Unmarshal(raw string) (T, error)
}

// JSONCodec stores values as JSON documents.
type JSONCodec[T any] struct{}

// Marshal encodes v as JSON.
func (JSONCodec[T]) Marshal(v T) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal data: %w", err)
	}
	return string(data), nil
}

// Unmarshal decodes a JSON document into a new T.
func (JSONCodec[T]) Unmarshal(raw string) (T, error) {
	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return value, fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return value, nil
}

// StringCodec stores strings verbatim.
type StringCodec struct{}

func (StringCodec) Marshal(v string) (string, error)     { return v, nil }
func (StringCodec) Unmarshal(raw string) (string, error) { return raw, nil }

// CodecFuncs adapts a caller-supplied serialize/deserialize pair to Codec.
type CodecFuncs[T any] struct {
	MarshalFunc   func(T) (string, error)
	UnmarshalFunc func(string) (T, error)
}

func (c CodecFuncs[T]) Marshal(v T) (string, error)     { return c.MarshalFunc(v) }
func (c CodecFuncs[T]) Unmarshal(raw string) (T, error) { return c.UnmarshalFunc(raw) }
