// Package msgschema provides the opt-in stricter message-schema validator
// (rpcpeer.WithMessageSchema), compiled once from an embedded JSON Schema
// document and checked against every decoded message before classification.
// file: internal/msgschema/schema.go
package msgschema

import (
	"bytes"
	_ "embed" // for the embedded schema document
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var embeddedSchema []byte

// Validator checks decoded wire messages against the embedded JSON Schema
// document. It satisfies rpcpeer.SchemaValidator.
type Validator struct {
	schema *jsonschema.Schema
}

// New compiles the embedded schema. It panics on a malformed schema
// document, since that can only happen from a build-time mistake, never
// from untrusted input.
func New() *Validator {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("rpcpeer://message.json", bytes.NewReader(embeddedSchema)); err != nil {
		panic(errors.Wrap(err, "msgschema: embedded schema is malformed"))
	}
	schema, err := compiler.Compile("rpcpeer://message.json")
	if err != nil {
		panic(errors.Wrap(err, "msgschema: failed to compile embedded schema"))
	}
	return &Validator{schema: schema}
}

// Validate round-trips msg through JSON so the jsonschema library sees the
// same plain maps/slices/numbers a wire-decoded message would produce, then
// checks it against the base message shape.
func (v *Validator) Validate(msg map[string]any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "msgschema: message is not JSON-representable")
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return errors.Wrap(err, "msgschema: message did not round-trip through JSON")
	}
	if err := v.schema.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return errors.Wrapf(err, "msgschema: message failed schema validation at %s", verr.InstanceLocation)
		}
		return errors.Wrap(err, "msgschema: message failed schema validation")
	}
	return nil
}
