// Package codec implements the BSON and JSON encode/decode primitives used
// by the framing layer. Both codecs work over map[string]any documents so
// the rest of the engine never depends on a specific wire representation.
// file: internal/codec/bson.go
package codec

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EncodeBSON marshals doc into a raw BSON document, including the leading
// 4-byte little-endian length prefix and trailing terminator required by
// the BSON spec.
func EncodeBSON(doc map[string]any) ([]byte, error) {
	return bson.Marshal(doc)
}

// DecodeBSON unmarshals a complete raw BSON document (as already framed by
// the length-prefix framer) into a map[string]any.
//
// mongo-driver's default registry decodes embedded documents and arrays
// into its own named types (primitive.D, primitive.A) when the destination
// is an empty interface, not into map[string]any/[]any. Those named types
// carry the same data but fail a plain Go type assertion against
// map[string]any/[]any, so every nested params/error/result field is
// normalized into the unnamed composite types the rest of the engine
// (rpcmsg.Classify in particular) assumes.
func DecodeBSON(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	for k, v := range doc {
		doc[k] = normalizeBSONValue(v)
	}
	return doc, nil
}

// normalizeBSONValue recursively replaces primitive.D/primitive.A/primitive.M
// with map[string]any/[]any so decoded BSON documents compare and type-assert
// the same way decoded JSON documents do.
func normalizeBSONValue(v any) any {
	switch val := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(val))
		for _, elem := range val {
			m[elem.Key] = normalizeBSONValue(elem.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(val))
		for key, elem := range val {
			m[key] = normalizeBSONValue(elem)
		}
		return m
	case primitive.A:
		arr := make([]any, len(val))
		for i, elem := range val {
			arr[i] = normalizeBSONValue(elem)
		}
		return arr
	case map[string]any:
		for key, elem := range val {
			val[key] = normalizeBSONValue(elem)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = normalizeBSONValue(elem)
		}
		return val
	default:
		return v
	}
}
