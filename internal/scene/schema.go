package scene

import (
	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed scene.schema.json
var sceneSchemaJSON string

var sceneSchema = jsonschema.MustCompileString("scene.schema.json", sceneSchemaJSON)
