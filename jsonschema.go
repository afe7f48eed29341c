package formadmin

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
)

// ModelDefinition is the on-disk description of a model.
type ModelDefinition struct {
	Name              string              `yaml:"name" json:"name"`
	Table             string              `yaml:"table,omitempty" json:"table,omitempty"`
	IDField           string              `yaml:"id_field,omitempty" json:"id_field,omitempty"`
	DisplayName       string              `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	DisplayNamePlural string              `yaml:"display_name_plural,omitempty" json:"display_name_plural,omitempty"`
	Columns           []string            `yaml:"columns,omitempty" json:"columns,omitempty"`
	Schema            map[string]any      `yaml:"schema" json:"schema"`
	Relations         map[string]Relation `yaml:"relations,omitempty" json:"relations,omitempty"`
	ListFields        []RawField          `yaml:"list_fields,omitempty" json:"list_fields,omitempty"`
	EditFields        []RawField          `yaml:"edit_fields,omitempty" json:"edit_fields,omitempty"`
}

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// NewModel compiles a definition into a Model. Relation targets are not
// checked here because they need the other models; registries do that.
func NewModel(def ModelDefinition) (*Model, error) {
	if !identifierPattern.MatchString(def.Name) {
		return nil, NewDefinitionError(def.Name, "", "model name must match "+identifierPattern.String())
	}

	m := &Model{
		Name:              def.Name,
		Table:             def.Table,
		IDField:           def.IDField,
		DisplayName:       def.DisplayName,
		DisplayNamePlural: def.DisplayNamePlural,
		Relations:         make(map[string]Relation, len(def.Relations)),
		ListFields:        def.ListFields,
		EditFields:        def.EditFields,
		columnIndex:       make(map[string]int),
	}
	if m.Table == "" {
		m.Table = def.Name
	}
	if m.IDField == "" {
		m.IDField = "id"
	}
	if m.DisplayName == "" {
		m.DisplayName = Humanize(def.Name)
	}
	if m.DisplayNamePlural == "" {
		m.DisplayNamePlural = m.DisplayName + "s"
	}

	schema, err := decodeSchema(def.Schema)
	if err != nil {
		return nil, NewDefinitionError(def.Name, "", "invalid schema").WithCause(err)
	}
	if len(schema.Properties) == 0 {
		return nil, NewDefinitionError(def.Name, "", "schema declares no properties")
	}

	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, NewDefinitionError(def.Name, "", "failed to resolve JSON schema").WithCause(err)
	}
	m.schema = resolved

	names := def.Columns
	if len(names) == 0 {
		names = defaultColumnOrder(schema, m.IDField)
	}
	for _, name := range names {
		prop, ok := schema.Properties[name]
		if !ok {
			return nil, NewDefinitionError(def.Name, name, "column is not a schema property")
		}
		if _, dup := m.columnIndex[name]; dup {
			return nil, NewDefinitionError(def.Name, name, "column declared twice")
		}
		m.columnIndex[name] = len(m.Columns)
		m.Columns = append(m.Columns, columnFromProperty(name, prop))
	}
	if _, ok := m.columnIndex[m.IDField]; !ok {
		return nil, NewDefinitionError(def.Name, m.IDField, "identifier field is not a column")
	}

	for name, rel := range def.Relations {
		if name == "" || !identifierPattern.MatchString(name) {
			return nil, NewDefinitionError(def.Name, name, "relation name must match "+identifierPattern.String())
		}
		if _, clash := m.columnIndex[name]; clash {
			return nil, NewDefinitionError(def.Name, name, "relation name collides with a column")
		}
		if _, ok := m.columnIndex[rel.ForeignKey]; !ok {
			return nil, NewDefinitionError(def.Name, name, "relation foreign key is not a column")
		}
		if rel.Target == "" {
			return nil, NewDefinitionError(def.Name, name, "relation target is required")
		}
		rel.Name = name
		m.Relations[name] = rel
	}

	return m, nil
}

func decodeSchema(raw map[string]any) (*jsonschema.Schema, error) {
	if raw == nil {
		return nil, fmt.Errorf("schema is required")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into jsonschema.Schema: %w", err)
	}
	return &schema, nil
}

// defaultColumnOrder puts the identifier first, then the other properties by name.
func defaultColumnOrder(schema *jsonschema.Schema, idField string) []string {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		if name != idField {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append([]string{idField}, names...)
}

func columnFromProperty(name string, prop *jsonschema.Schema) Column {
	types := prop.Types
	if prop.Type != "" {
		types = []string{prop.Type}
	}
	col := Column{Name: name, Type: ValueTypeText, Nullable: slices.Contains(types, "null")}
	for _, t := range types {
		switch t {
		case "integer":
			col.Type = ValueTypeInteger
			if prop.Format == "int64" {
				col.Type = ValueTypeBigInt
			}
		case "number":
			col.Type = ValueTypeNumeric
		case "boolean":
			col.Type = ValueTypeBool
		case "string":
			switch prop.Format {
			case "date":
				col.Type = ValueTypeDate
			case "date-time":
				col.Type = ValueTypeDateTime
			case "uuid":
				col.Type = ValueTypeUUID
			}
		default:
			continue
		}
		break
	}
	return col
}

// validateValues checks record values against the compiled schema. Values are
// normalized through JSON first so Go numeric and time types validate the
// same way as decoded JSON.
func (m *Model) validateValues(values map[string]any) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal values: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("failed to unmarshal values: %w", err)
	}
	return m.schema.Validate(instance)
}
