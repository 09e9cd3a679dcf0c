package config

import (
	"fmt"

	"github.com/invopop/jsonschema"
)

// JSONSchema returns the JSON Schema describing Config.
func JSONSchema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}

	schema := reflector.Reflect(&Config{})
	schema.Title = "omnimedia configuration"
	schema.Description = "Client configuration; every field can be set through its MEDIA_* environment variable"

	data, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
