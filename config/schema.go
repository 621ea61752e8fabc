package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects the Config struct into a JSON Schema, for
// `waybar-vd config schema` and editor tooling.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		// Property names follow the YAML file, not the Go fields.
		FieldNameTag: "yaml",
	}

	schema := r.Reflect(&Config{})
	schema.Title = "waybar-vd Configuration"
	schema.Description = "Schema for the waybar-vd config.yml file."
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return json.MarshalIndent(schema, "", "  ")
}
