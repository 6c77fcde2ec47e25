// CUE schema validation code
package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// ValidateWithCue validates a YAML (or JSON) document against the named definition of a CUE schema.
// filename is only used in error positions.
func ValidateWithCue(filename string, doc, schema []byte, definition string) error {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileBytes(schema)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", err)
	}
	def := schemaVal.LookupPath(cue.ParsePath(definition))
	if !def.Exists() {
		return fmt.Errorf("schema definition %s not found", definition)
	}

	file, err := cueyaml.Extract(filename, doc)
	if err != nil {
		return fmt.Errorf("cannot parse %s: %w", filename, err)
	}
	docVal := ctx.BuildFile(file)
	if err := docVal.Err(); err != nil {
		return fmt.Errorf("cannot load %s: %w", filename, err)
	}

	final := def.Unify(docVal)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
