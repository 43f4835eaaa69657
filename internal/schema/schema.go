// Package schema holds the embedded JSON schema that validates raw snapshot
// payloads before they are decoded. Payloads that fail here never reach the
// reconciliation engine.
package schema

import (
	_ "embed"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed snapshot.schema.json
var snapshotSchemaSource string

// CompileSnapshot compiles the snapshot schema. It is called once at startup;
// the compiled schema is safe for concurrent use.
func CompileSnapshot() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("snapshot.schema.json", strings.NewReader(snapshotSchemaSource)); err != nil {
		return nil, err
	}
	return compiler.Compile("snapshot.schema.json")
}
