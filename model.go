package formadmin

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
)

// Model is a compiled model definition. It is read-only after NewModel.
type Model struct {
	Name              string
	Table             string
	IDField           string
	DisplayName       string
	DisplayNamePlural string
	Columns           []Column
	Relations         map[string]Relation
	ListFields        []RawField
	EditFields        []RawField

	schema      *jsonschema.Resolved
	columnIndex map[string]int
}

// Column returns the named column.
func (m *Model) Column(name string) (Column, bool) {
	i, ok := m.columnIndex[name]
	if !ok {
		return Column{}, false
	}
	return m.Columns[i], true
}

// ColumnNames returns column names in declaration order.
func (m *Model) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	return names
}

func (m *Model) Relation(name string) (Relation, bool) {
	r, ok := m.Relations[name]
	return r, ok
}

// IDColumn returns the identifier column.
func (m *Model) IDColumn() Column {
	c, _ := m.Column(m.IDField)
	return c
}

// FilterValues returns the submitted values the model accepts: every column
// except the identifier and any column for which skip returns true, coerced
// to the column type. Keys absent from the submission are left out.
func (m *Model) FilterValues(form url.Values, skip func(column string) bool) map[string]any {
	out := make(map[string]any)
	for _, col := range m.Columns {
		if col.Name == m.IDField || (skip != nil && skip(col.Name)) {
			continue
		}
		raw, ok := form[col.Name]
		if !ok || len(raw) == 0 {
			continue
		}
		value := raw[0]
		if len(raw) > 1 {
			value = strings.Join(raw, ",")
		}
		out[col.Name] = col.Coerce(value)
	}
	return out
}

// Coerce converts a submitted string to the column's Go type. Values that do
// not parse are returned unchanged so schema validation reports them.
func (c Column) Coerce(raw string) any {
	if raw == "" && c.Type != ValueTypeText {
		return nil
	}
	switch {
	case c.Type.IsInteger():
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
	case c.Type == ValueTypeNumeric:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case c.Type == ValueTypeBool:
		switch strings.ToLower(raw) {
		case "1", "on", "true", "yes":
			return true
		case "0", "off", "false", "no":
			return false
		}
	}
	return raw
}

// ParseID converts a route identifier to the identifier column type.
func (m *Model) ParseID(raw string) (any, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty identifier")
	}
	col := m.IDColumn()
	switch {
	case col.Type.IsInteger():
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid identifier %q: %w", raw, err)
		}
		return id, nil
	case col.Type == ValueTypeUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid identifier %q: %w", raw, err)
		}
		return id, nil
	default:
		return raw, nil
	}
}

// schemaValue converts raw driver UUIDs, which would marshal as a byte array.
func schemaValue(v any) any {
	if b, ok := v.([16]byte); ok {
		return uuid.UUID(b)
	}
	return v
}

// Validate checks the entity's values against the model schema.
func (m *Model) Validate(e *Entity) error {
	values := make(map[string]any, len(e.Values)+1)
	for k, v := range e.Values {
		if _, ok := m.columnIndex[k]; !ok {
			return NewValidationError(m.Name, "unknown field").WithField(k)
		}
		values[k] = schemaValue(v)
	}
	if e.Persisted() {
		values[m.IDField] = schemaValue(e.ID)
	}
	if err := m.validateValues(values); err != nil {
		return NewValidationError(m.Name, err.Error()).WithCause(err)
	}
	return nil
}
