package formadmin

import (
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func faqDefinition() ModelDefinition {
	return ModelDefinition{
		Name:    "faq",
		Columns: []string{"id", "question", "email", "user_id", "published", "score"},
		Schema: map[string]any{
			"type":     "object",
			"required": []any{"question"},
			"properties": map[string]any{
				"id":        map[string]any{"type": "integer"},
				"question":  map[string]any{"type": "string", "minLength": 1},
				"email":     map[string]any{"type": []any{"string", "null"}},
				"user_id":   map[string]any{"type": []any{"integer", "null"}},
				"published": map[string]any{"type": "boolean"},
				"score":     map[string]any{"type": "number"},
			},
		},
		Relations: map[string]Relation{
			"user": {Target: "user", ForeignKey: "user_id"},
		},
	}
}

func TestNewModel_Defaults(t *testing.T) {
	m, err := NewModel(faqDefinition())
	require.NoError(t, err)

	assert.Equal(t, "faq", m.Table)
	assert.Equal(t, "id", m.IDField)
	assert.Equal(t, "Faq", m.DisplayName)
	assert.Equal(t, "Faqs", m.DisplayNamePlural)
	assert.Equal(t, []string{"id", "question", "email", "user_id", "published", "score"}, m.ColumnNames())

	col, ok := m.Column("user_id")
	require.True(t, ok)
	assert.Equal(t, ValueTypeInteger, col.Type)
	assert.True(t, col.Nullable)

	col, _ = m.Column("published")
	assert.Equal(t, ValueTypeBool, col.Type)
	col, _ = m.Column("score")
	assert.Equal(t, ValueTypeNumeric, col.Type)

	rel, ok := m.Relation("user")
	require.True(t, ok)
	assert.Equal(t, "user", rel.Name)
	assert.Equal(t, "user_id", rel.ForeignKey)
}

func TestNewModel_DerivedColumnOrder(t *testing.T) {
	def := faqDefinition()
	def.Columns = nil
	def.Relations = nil

	m, err := NewModel(def)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "email", "published", "question", "score", "user_id"}, m.ColumnNames())
}

func TestNewModel_RejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *ModelDefinition)
	}{
		{"bad name", func(d *ModelDefinition) { d.Name = "Faq-Items" }},
		{"no schema", func(d *ModelDefinition) { d.Schema = nil }},
		{"unknown column", func(d *ModelDefinition) { d.Columns = append(d.Columns, "missing") }},
		{"duplicate column", func(d *ModelDefinition) { d.Columns = append(d.Columns, "email") }},
		{"id not a column", func(d *ModelDefinition) { d.IDField = "uuid" }},
		{"relation clashes with column", func(d *ModelDefinition) {
			d.Relations = map[string]Relation{"email": {Target: "user", ForeignKey: "user_id"}}
		}},
		{"relation key missing", func(d *ModelDefinition) {
			d.Relations = map[string]Relation{"user": {Target: "user", ForeignKey: "author_id"}}
		}},
		{"relation target missing", func(d *ModelDefinition) {
			d.Relations = map[string]Relation{"user": {ForeignKey: "user_id"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := faqDefinition()
			tt.mutate(&def)
			_, err := NewModel(def)
			require.Error(t, err)
			assert.True(t, IsConfiguration(err), "expected configuration error, got %v", err)
		})
	}
}

func TestModel_FilterValues(t *testing.T) {
	m, err := NewModel(faqDefinition())
	require.NoError(t, err)

	form := url.Values{
		"id":        {"42"},
		"question":  {"Why?"},
		"user_id":   {""},
		"published": {"on"},
		"score":     {"4.5"},
		"is_admin":  {"1"},
		"email":     {"a@example.com"},
	}

	values := m.FilterValues(form, func(column string) bool { return column == "email" })

	assert.Equal(t, map[string]any{
		"question":  "Why?",
		"user_id":   nil,
		"published": true,
		"score":     4.5,
	}, values)
}

func TestColumn_Coerce(t *testing.T) {
	intCol := Column{Name: "n", Type: ValueTypeInteger}
	assert.Equal(t, int64(12), intCol.Coerce("12"))
	assert.Equal(t, "twelve", intCol.Coerce("twelve"))
	assert.Nil(t, intCol.Coerce(""))

	textCol := Column{Name: "s", Type: ValueTypeText}
	assert.Equal(t, "", textCol.Coerce(""))

	boolCol := Column{Name: "b", Type: ValueTypeBool}
	assert.Equal(t, false, boolCol.Coerce("off"))
	assert.Equal(t, "maybe", boolCol.Coerce("maybe"))
}

func TestModel_ParseID(t *testing.T) {
	m, err := NewModel(faqDefinition())
	require.NoError(t, err)

	id, err := m.ParseID("15")
	require.NoError(t, err)
	assert.Equal(t, int64(15), id)

	_, err = m.ParseID("abc")
	assert.Error(t, err)
	_, err = m.ParseID("")
	assert.Error(t, err)

	def := faqDefinition()
	def.Schema["properties"].(map[string]any)["id"] = map[string]any{"type": "string", "format": "uuid"}
	um, err := NewModel(def)
	require.NoError(t, err)

	raw := "11111111-1111-1111-1111-111111111111"
	uid, err := um.ParseID(raw)
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(raw), uid)
}

func TestModel_Validate(t *testing.T) {
	m, err := NewModel(faqDefinition())
	require.NoError(t, err)

	e := NewEntity(m)
	e.Set("question", "Why?")
	e.Set("user_id", int64(3))
	assert.NoError(t, m.Validate(e))

	missing := NewEntity(m)
	missing.Set("email", "a@example.com")
	err = m.Validate(missing)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	wrongType := NewEntity(m)
	wrongType.Set("question", "Why?")
	wrongType.Set("user_id", "three")
	assert.True(t, IsValidation(m.Validate(wrongType)))

	unknown := NewEntity(m)
	unknown.Values["is_admin"] = true
	err = m.Validate(unknown)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestModel_ValidateRawUUIDs(t *testing.T) {
	m, err := NewModel(ModelDefinition{
		Name:    "tag",
		Columns: []string{"id", "label", "owner"},
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":    map[string]any{"type": "string", "format": "uuid"},
				"label": map[string]any{"type": "string"},
				"owner": map[string]any{"type": []any{"string", "null"}, "format": "uuid"},
			},
		},
	})
	require.NoError(t, err)

	e := NewEntity(m)
	e.ID = [16]byte(uuid.New())
	e.Set("label", "go")
	e.Set("owner", [16]byte(uuid.New()))
	assert.NoError(t, m.Validate(e))
}
