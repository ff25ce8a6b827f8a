// Package schema embeds the JSON-Schema documents skills.yaml and
// profiles.yaml are validated against.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed skills.schema.json profiles.schema.json
var fs embed.FS

// Validate compiles the named embedded schema and validates doc (an
// already-unmarshaled any, typically the result of decoding a YAML document
// into a generic interface{} tree) against it.
func Validate(schemaFile string, doc any) error {
	raw, err := fs.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("read embedded schema %s: %w", schemaFile, err)
	}
	var schemaDoc any
	if err := json.Unmarshal(raw, &schemaDoc); err != nil {
		return fmt.Errorf("unmarshal embedded schema %s: %w", schemaFile, err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaFile, schemaDoc); err != nil {
		return fmt.Errorf("add schema resource %s: %w", schemaFile, err)
	}
	compiled, err := c.Compile(schemaFile)
	if err != nil {
		return fmt.Errorf("compile schema %s: %w", schemaFile, err)
	}

	if err := compiled.Validate(doc); err != nil {
		return err
	}
	return nil
}

const (
	SkillsSchema   = "skills.schema.json"
	ProfilesSchema = "profiles.schema.json"
)
