package formadmin

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldType is the display type of a field.
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeHTML    FieldType = "html"
	FieldTypeImage   FieldType = "image"
	FieldTypeFile    FieldType = "file"
	FieldTypeLink    FieldType = "link"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeHidden  FieldType = "hidden"
	FieldTypeSelect  FieldType = "select"
)

// IsUpload reports whether values of this type are file names managed by a FileStore.
func (t FieldType) IsUpload() bool {
	return t == FieldTypeImage || t == FieldTypeFile
}

// RelatedKeySeparator joins a related model and property into a store-safe key.
const RelatedKeySeparator = "___"

// RawField is a field declaration as written in a model definition: either a
// bare name or a name with override options. Pointer fields distinguish an
// absent option from its zero value.
type RawField struct {
	Name         string    `yaml:"name" json:"name"`
	Type         FieldType `yaml:"type,omitempty" json:"type,omitempty"`
	Title        *string   `yaml:"title,omitempty" json:"title,omitempty"`
	Label        *string   `yaml:"label,omitempty" json:"label,omitempty"`
	Extra        bool      `yaml:"extra,omitempty" json:"extra,omitempty"`
	Orderable    *bool     `yaml:"orderable,omitempty" json:"orderable,omitempty"`
	Searchable   *bool     `yaml:"searching,omitempty" json:"searching,omitempty"`
	IsLink       bool      `yaml:"is_link,omitempty" json:"is_link,omitempty"`
	Template     string    `yaml:"template,omitempty" json:"template,omitempty"`
	Text         string    `yaml:"text,omitempty" json:"text,omitempty"`
	MaxLength    int       `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	StripTags    bool      `yaml:"strip_tags,omitempty" json:"strip_tags,omitempty"`
	ValuePrefix  string    `yaml:"value_prefix,omitempty" json:"value_prefix,omitempty"`
	MaxWidth     int       `yaml:"max_width,omitempty" json:"max_width,omitempty"`
	MaxHeight    int       `yaml:"max_height,omitempty" json:"max_height,omitempty"`
	DirPath      string    `yaml:"dir_path,omitempty" json:"dir_path,omitempty"`
	AbsolutePath *bool     `yaml:"abs_path,omitempty" json:"abs_path,omitempty"`
	Width        string    `yaml:"width,omitempty" json:"width,omitempty"`
	Multiple     *bool     `yaml:"multiple,omitempty" json:"multiple,omitempty"`
	Options      []string  `yaml:"options,omitempty" json:"options,omitempty"`
	EscapeTokens bool      `yaml:"escape_tokens,omitempty" json:"escape_tokens,omitempty"`
}

// UnmarshalYAML accepts either a scalar field name or a mapping of options.
func (f *RawField) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*f = RawField{Name: node.Value}
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: field must be a name or a mapping", node.Line)
	}
	type plain RawField
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if p.Name == "" {
		return fmt.Errorf("line %d: field mapping requires a name", node.Line)
	}
	*f = RawField(p)
	return nil
}

// Descriptor is the resolved metadata of one list column or edit input.
type Descriptor struct {
	Name         string    `yaml:"name" json:"name"`
	Key          string    `yaml:"key" json:"key"`
	Type         FieldType `yaml:"type" json:"type"`
	Title        string    `yaml:"title,omitempty" json:"title,omitempty"`
	Label        string    `yaml:"label,omitempty" json:"label,omitempty"`
	RelatedModel string    `yaml:"related_model,omitempty" json:"related_model,omitempty"`
	Property     string    `yaml:"property,omitempty" json:"property,omitempty"`
	Extra        bool      `yaml:"extra" json:"extra"`
	Orderable    bool      `yaml:"orderable" json:"orderable"`
	Searchable   bool      `yaml:"searching" json:"searching"`
	IsLink       bool      `yaml:"is_link,omitempty" json:"is_link,omitempty"`
	Template     string    `yaml:"template,omitempty" json:"template,omitempty"`
	Tokens       []string  `yaml:"tokens,omitempty" json:"tokens,omitempty"`
	EscapeTokens bool      `yaml:"escape_tokens,omitempty" json:"escape_tokens,omitempty"`
	Text         string    `yaml:"text,omitempty" json:"text,omitempty"`
	MaxLength    int       `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	StripTags    bool      `yaml:"strip_tags,omitempty" json:"strip_tags,omitempty"`
	ValuePrefix  string    `yaml:"value_prefix,omitempty" json:"value_prefix,omitempty"`
	MaxWidth     int       `yaml:"max_width,omitempty" json:"max_width,omitempty"`
	MaxHeight    int       `yaml:"max_height,omitempty" json:"max_height,omitempty"`
	DirPath      string    `yaml:"dir_path,omitempty" json:"dir_path,omitempty"`
	AbsolutePath bool      `yaml:"abs_path,omitempty" json:"abs_path,omitempty"`
	Width        string    `yaml:"width,omitempty" json:"width,omitempty"`
	Multiple     bool      `yaml:"multiple,omitempty" json:"multiple,omitempty"`
	Options      []string  `yaml:"options,omitempty" json:"options,omitempty"`
	DataType     ValueType `yaml:"data_type,omitempty" json:"data_type,omitempty"`
}

// IsRelated reports whether the descriptor reads a property of a related record.
func (d Descriptor) IsRelated() bool {
	return d.RelatedModel != ""
}

// FieldSet is an ordered, read-only collection of descriptors keyed by Descriptor.Key.
type FieldSet struct {
	keys   []string
	fields map[string]Descriptor
}

// NewFieldSet builds a FieldSet in the given order. A later descriptor with a
// key already present replaces the earlier one in place.
func NewFieldSet(descriptors ...Descriptor) *FieldSet {
	s := &FieldSet{fields: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if _, exists := s.fields[d.Key]; !exists {
			s.keys = append(s.keys, d.Key)
		}
		s.fields[d.Key] = d
	}
	return s
}

func (s *FieldSet) Len() int { return len(s.keys) }

func (s *FieldSet) Keys() []string {
	return append([]string(nil), s.keys...)
}

func (s *FieldSet) Get(key string) (Descriptor, bool) {
	d, ok := s.fields[key]
	return d, ok
}

// All returns the descriptors in declaration order.
func (s *FieldSet) All() []Descriptor {
	out := make([]Descriptor, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.fields[k])
	}
	return out
}

// RecordView is the read side of a record used by formatters.
type RecordView interface {
	Get(field string) (any, bool)
}

// Entity is one record of a model. ID is nil until the record is persisted.
type Entity struct {
	Model   string                    `json:"model"`
	IDField string                    `json:"id_field"`
	ID      any                       `json:"id"`
	Values  map[string]any            `json:"values"`
	Related map[string]map[string]any `json:"related,omitempty"`
}

// NewEntity returns an unpersisted record of the model.
func NewEntity(model *Model) *Entity {
	return &Entity{
		Model:   model.Name,
		IDField: model.IDField,
		Values:  make(map[string]any),
		Related: make(map[string]map[string]any),
	}
}

func (e *Entity) Persisted() bool {
	return e.ID != nil
}

// Get reads a column, the identifier, or a dotted relation.property value.
func (e *Entity) Get(field string) (any, bool) {
	if field == e.IDField {
		return e.ID, e.ID != nil
	}
	if relation, property, ok := strings.Cut(field, "."); ok {
		related, found := e.Related[relation]
		if !found {
			return nil, false
		}
		v, found := related[property]
		return v, found
	}
	v, ok := e.Values[field]
	return v, ok
}

// Set writes a column value. The identifier and related values are owned by the store.
func (e *Entity) Set(field string, value any) {
	if field == e.IDField || strings.Contains(field, ".") {
		return
	}
	if e.Values == nil {
		e.Values = make(map[string]any)
	}
	e.Values[field] = value
}

// SortOrder represents sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// OrderSpec orders a list by one (possibly dotted) field.
type OrderSpec struct {
	Field     string    `json:"field"`
	Direction SortOrder `json:"direction"`
}

// ListQuery is the store-facing form of a list request.
type ListQuery struct {
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Order    *OrderSpec `json:"order,omitempty"`
	Filter   Condition  `json:"filter,omitempty"`
}

func (q ListQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// ListResult is one page of records plus the number of records matching the filter.
type ListResult struct {
	Records  []*Entity
	Filtered int64
}

// ListPayload is the structured list response for data requests.
type ListPayload struct {
	Data            []map[string]string `json:"data"`
	RecordsTotal    int64               `json:"recordsTotal"`
	RecordsFiltered int64               `json:"recordsFiltered"`
}

// DeleteAck acknowledges a delete performed through a data request.
type DeleteAck struct {
	Success  int    `json:"success"`
	Location string `json:"location"`
}
