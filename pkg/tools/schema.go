package tools

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateSchema derives the JSON schema for a tool's arguments from
// struct type T. Field descriptions come from jsonschema_description
// struct tags, enums and defaults from jsonschema tags. The result is
// inlined (no $ref/$defs) and closed to additional properties, which is
// the shape Chat Completions backends expect in a tool definition.
func GenerateSchema[T any]() json.RawMessage {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	schema.Version = ""

	data, err := json.Marshal(schema)
	if err != nil {
		// Reflection over a static struct type; failure here is a
		// programming error, not a runtime condition.
		panic(fmt.Sprintf("tools: marshaling schema for %T: %v", v, err))
	}
	return data
}
