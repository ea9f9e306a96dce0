package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jsonschemav5 "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaURL = "https://mpm.dev/schema/config.json"

var (
	schemaOnce     sync.Once
	schemaText     []byte
	compiledSchema *jsonschemav5.Schema
	schemaErr      error
)

// Schema returns the JSON schema of the configuration document.
func Schema() ([]byte, error) {
	if err := loadSchema(); err != nil {
		return nil, err
	}
	return schemaText, nil
}

func loadSchema() error {
	schemaOnce.Do(func() {
		reflector := &jsonschema.Reflector{ExpandedStruct: true}
		s := reflector.Reflect(&Document{})
		s.ID = jsonschema.ID(schemaURL)

		schemaText, schemaErr = json.MarshalIndent(s, "", "  ")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to marshal config schema: %w", schemaErr)
			return
		}

		compiler := jsonschemav5.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaText)); err != nil {
			schemaErr = fmt.Errorf("failed to load config schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile config schema: %w", schemaErr)
		}
	})
	return schemaErr
}

// validateRaw checks raw YAML against the schema before it is decoded into a Document.
func validateRaw(source string, data []byte) error {
	if err := loadSchema(); err != nil {
		return err
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse %s: %w", source, err)
	}
	if raw == nil {
		return nil
	}

	// The validator expects JSON values
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return &ValidationError{Source: source, Problems: []string{err.Error()}}
	}
	dec := json.NewDecoder(bytes.NewReader(asJSON))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode %s: %w", source, err)
	}

	if err := compiledSchema.Validate(doc); err != nil {
		var verr *jsonschemav5.ValidationError
		if errors.As(err, &verr) {
			return &ValidationError{Source: source, Problems: leafMessages(verr)}
		}
		return &ValidationError{Source: source, Problems: []string{err.Error()}}
	}
	return nil
}

func leafMessages(verr *jsonschemav5.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := verr.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Message)}
	}
	var out []string
	for _, cause := range verr.Causes {
		out = append(out, leafMessages(cause)...)
	}
	return out
}
