package widget

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// importShape is the author-editable surface of a definition file. Schema
// validation runs against this shape, so bookkeeping fields stay optional in
// hand-written files.
type importShape struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Script    string          `json:"script"`
	Refresh   RefreshInterval `json:"refresh,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt int64           `json:"created_at,omitempty"`
	UpdatedAt int64           `json:"updated_at,omitempty"`
}

// importSchema resolves the definition-file schema once. Refresh gets an
// explicit type override because it reads from either a duration string or
// an integer nanosecond count.
var importSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	schema, err := jsonschema.For[importShape](&jsonschema.ForOptions{
		TypeSchemas: map[reflect.Type]*jsonschema.Schema{
			reflect.TypeFor[RefreshInterval](): {Types: []string{"string", "integer"}},
		},
	})
	if err != nil {
		return nil, err
	}
	return schema.Resolve(nil)
})

// Import parses data as a widget definition file. Malformed JSON is repaired
// when possible (hand-edited files with trailing commas or comments are
// common), the document is validated against the definition schema, and the
// result passes Validate. Bookkeeping fields are left for Store.Put to fill.
func Import(data []byte) (*Definition, error) {
	var raw map[string]any
	if err := unmarshalRepaired(data, &raw); err != nil {
		return nil, fmt.Errorf("widget: parse definition: %w", err)
	}

	resolved, err := importSchema()
	if err != nil {
		return nil, fmt.Errorf("widget: build definition schema: %w", err)
	}
	if err := resolved.Validate(raw); err != nil {
		return nil, fmt.Errorf("widget: invalid definition: %w", err)
	}

	canonical, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("widget: re-encode definition: %w", err)
	}
	var d Definition
	if err := json.Unmarshal(canonical, &d); err != nil {
		return nil, fmt.Errorf("widget: decode definition: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Export renders d as indented JSON with a trailing newline, ready to write
// to a file.
func Export(d *Definition) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("widget: encode definition: %w", err)
	}
	return append(data, '\n'), nil
}

// unmarshalRepaired unmarshals JSON, attempting to repair malformed input.
// If the initial unmarshal fails with a syntax error, the JSON is repaired
// and parsed again.
func unmarshalRepaired(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return rerr
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}
