// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package seed

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the seed file schema.
const SchemaID = "https://natours.dev/schemas/seed.schema.json"

const schemaResource = "seed.schema.json"

var compiledSchema = sync.OnceValues(compileSchema)

// GenerateSchema reflects the JSON Schema for seed files from File.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(&File{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Natours Seed File"
	schema.Description = "Accounts imported by natours seed import"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SEED_SCHEMA_FAILED").With("operation", "marshal schema").Wrap(err)
	}
	return data, nil
}

func compileSchema() (*jschema.Schema, error) {
	raw, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, oops.Code("SEED_SCHEMA_FAILED").With("operation", "parse schema").Wrap(err)
	}

	c := jschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(schemaResource, doc); err != nil {
		return nil, oops.Code("SEED_SCHEMA_FAILED").With("operation", "add schema resource").Wrap(err)
	}
	sch, err := c.Compile(schemaResource)
	if err != nil {
		return nil, oops.Code("SEED_SCHEMA_FAILED").With("operation", "compile schema").Wrap(err)
	}
	return sch, nil
}

// ValidateSchema checks YAML or JSON seed data against the seed file schema.
func ValidateSchema(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return oops.Code("SEED_INVALID").Errorf("seed data is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code("SEED_INVALID").With("operation", "parse seed data").Wrap(err)
	}
	// Round-trip through JSON so the validator sees JSON types only.
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return oops.Code("SEED_INVALID").With("operation", "convert seed data").Wrap(err)
	}
	instance, err := jschema.UnmarshalJSON(bytes.NewReader(asJSON))
	if err != nil {
		return oops.Code("SEED_INVALID").With("operation", "convert seed data").Wrap(err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(instance); err != nil {
		return oops.Code("SEED_INVALID").
			With("operation", "validate schema").
			Errorf("%s", FormatSchemaError(err))
	}
	return nil
}

// FormatSchemaError flattens a validator error to a single line.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "; ")
}
