package service

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"rift/domain"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/descriptor.schema.json
var descriptorSchemaBytes []byte

const descriptorSchemaURL = "descriptor.schema.json"

var (
	descriptorSchema     *jsonschema.Schema
	descriptorSchemaOnce sync.Once
	descriptorSchemaErr  error
)

func getDescriptorSchema() (*jsonschema.Schema, error) {
	descriptorSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(descriptorSchemaBytes))
		if err != nil {
			descriptorSchemaErr = fmt.Errorf("unmarshaling descriptor schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(descriptorSchemaURL, doc); err != nil {
			descriptorSchemaErr = fmt.Errorf("adding descriptor schema resource: %w", err)
			return
		}
		descriptorSchema, descriptorSchemaErr = c.Compile(descriptorSchemaURL)
		if descriptorSchemaErr != nil {
			descriptorSchemaErr = fmt.Errorf("compiling descriptor schema: %w", descriptorSchemaErr)
		}
	})
	return descriptorSchema, descriptorSchemaErr
}

// DecodeDescriptor parses a register payload into a ServiceDescriptor.
// The payload must be exactly one JSON object matching the descriptor schema.
// Returns a validation_error on invalid JSON, trailing data or a schema violation,
// and internal_server_error when the embedded schema cannot be compiled.
func DecodeDescriptor(payload []byte) (domain.ServiceDescriptor, error) {
	schema, err := getDescriptorSchema()
	if err != nil {
		return domain.ServiceDescriptor{}, NewInternalServerError("descriptor schema unavailable", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return domain.ServiceDescriptor{}, NewValidationError("descriptor is not valid JSON", err)
	}
	if err := schema.Validate(inst); err != nil {
		return domain.ServiceDescriptor{}, NewValidationError("descriptor does not match schema", err)
	}

	var d domain.ServiceDescriptor
	if err := json.Unmarshal(payload, &d); err != nil {
		return domain.ServiceDescriptor{}, NewValidationError("descriptor cannot be decoded", err)
	}
	return d, nil
}

// EncodeDescriptor returns the JSON encoding of a single descriptor, the register payload.
func EncodeDescriptor(d domain.ServiceDescriptor) ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, NewInternalServerError("can't marshal descriptor", err)
	}
	return b, nil
}

// EncodeDescriptors returns the list response: a JSON array, "[]" when empty.
func EncodeDescriptors(ds []domain.ServiceDescriptor) ([]byte, error) {
	if ds == nil {
		ds = []domain.ServiceDescriptor{}
	}
	b, err := json.Marshal(ds)
	if err != nil {
		return nil, NewInternalServerError("can't marshal descriptors", err)
	}
	return b, nil
}

// DecodeDescriptors parses a list response.
func DecodeDescriptors(b []byte) ([]domain.ServiceDescriptor, error) {
	var ds []domain.ServiceDescriptor
	if err := json.Unmarshal(b, &ds); err != nil {
		return nil, NewBadParameterError("list response is not a JSON array of descriptors", err)
	}
	if ds == nil {
		ds = []domain.ServiceDescriptor{}
	}
	return ds, nil
}
