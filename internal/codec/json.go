// file: internal/codec/json.go
package codec

import "encoding/json"

// KeyFn transforms a decoded JSON object's top-level keys. The spec's
// `json_key_fn` option exists in the Clojure original to convert JSON string
// keys into Clojure keywords; in Go, keys are already strings, so the hook
// is kept for parity (e.g. case-folding or prefix-stripping) and defaults to
// the identity function.
type KeyFn func(string) string

// IdentityKeyFn returns key unchanged. It is the default json_key_fn.
func IdentityKeyFn(key string) string { return key }

// EncodeJSON marshals doc to its canonical UTF-8 JSON encoding.
func EncodeJSON(doc map[string]any) ([]byte, error) {
	return json.Marshal(doc)
}

// DecodeJSON unmarshals a single complete JSON value (already split from
// the stream by the framing layer) into a map[string]any, applying keyFn to
// each top-level key. A nil keyFn is treated as IdentityKeyFn.
func DecodeJSON(raw []byte, keyFn KeyFn) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if keyFn == nil || doc == nil {
		return doc, nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[keyFn(k)] = v
	}
	return out, nil
}
