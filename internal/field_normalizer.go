package internal

import (
	"fmt"
	"strings"

	"github.com/lychee-technology/formadmin"
)

type fieldContext int

const (
	listContext fieldContext = iota
	editContext
)

const idColumnWidth = "60"

// FieldNormalizer resolves the raw field declarations of one model into descriptors.
type FieldNormalizer struct {
	model       *formadmin.Model
	registry    formadmin.ModelRegistry
	routePrefix string
}

func NewFieldNormalizer(model *formadmin.Model, registry formadmin.ModelRegistry, routePrefix string) *FieldNormalizer {
	return &FieldNormalizer{model: model, registry: registry, routePrefix: routePrefix}
}

// EditTemplate is the link template pointing at a record's edit action.
func (n *FieldNormalizer) EditTemplate() string {
	return fmt.Sprintf("%s/%s/edit/%%%s%%", n.routePrefix, n.model.Name, n.model.IDField)
}

// NormalizeListFields resolves list columns. With no declarations the model
// gets a checkbox column, every model column, then edit and delete links.
func (n *FieldNormalizer) NormalizeListFields(raw []formadmin.RawField) (*formadmin.FieldSet, error) {
	if len(raw) == 0 {
		raw = n.defaultListFields()
	}
	descriptors, err := n.resolveAll(raw, listContext)
	if err != nil {
		return nil, err
	}
	for i, d := range descriptors {
		if d.Key == n.model.IDField {
			d.Type = formadmin.FieldTypeLink
			d.IsLink = true
			d.Template = n.EditTemplate()
			d.Tokens = parseTokens(d.Template)
			d.Width = idColumnWidth
			descriptors[i] = d
		}
	}
	return formadmin.NewFieldSet(descriptors...), nil
}

// NormalizeEditFields resolves edit form inputs, defaulting to every model column.
func (n *FieldNormalizer) NormalizeEditFields(raw []formadmin.RawField) (*formadmin.FieldSet, error) {
	if len(raw) == 0 {
		for _, name := range n.model.ColumnNames() {
			raw = append(raw, formadmin.RawField{Name: name})
		}
	}
	descriptors, err := n.resolveAll(raw, editContext)
	if err != nil {
		return nil, err
	}
	for i, d := range descriptors {
		if d.Key == n.model.IDField {
			d.Type = formadmin.FieldTypeHidden
			descriptors[i] = d
		}
	}
	return formadmin.NewFieldSet(descriptors...), nil
}

func (n *FieldNormalizer) defaultListFields() []formadmin.RawField {
	empty := ""
	id := n.model.IDField
	base := n.routePrefix + "/" + n.model.Name

	fields := []formadmin.RawField{{
		Name:     "cb",
		Type:     formadmin.FieldTypeHTML,
		Extra:    true,
		Title:    &empty,
		Template: fmt.Sprintf(`<input type="checkbox" name="ids[]" value="%%%s%%" />`, id),
	}}
	for _, name := range n.model.ColumnNames() {
		fields = append(fields, formadmin.RawField{Name: name})
	}
	return append(fields,
		formadmin.RawField{
			Name:     "edit",
			Type:     formadmin.FieldTypeHTML,
			Extra:    true,
			Template: fmt.Sprintf(`<a href="%s/edit/%%%s%%" class="js-edit-item">Edit</a>`, base, id),
		},
		formadmin.RawField{
			Name:     "delete",
			Type:     formadmin.FieldTypeHTML,
			Extra:    true,
			Template: fmt.Sprintf(`<a href="%s/delete/%%%s%%" class="js-delete-item">Delete</a>`, base, id),
		},
	)
}

func (n *FieldNormalizer) resolveAll(raw []formadmin.RawField, ctx fieldContext) ([]formadmin.Descriptor, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]formadmin.Descriptor, 0, len(raw))
	for _, r := range raw {
		d, err := n.resolve(r, ctx)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[d.Key]; dup {
			return nil, formadmin.NewDefinitionError(n.model.Name, r.Name, "field declared twice")
		}
		seen[d.Key] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

// resolve builds one descriptor in a single pass over its raw declaration.
func (n *FieldNormalizer) resolve(raw formadmin.RawField, ctx fieldContext) (formadmin.Descriptor, error) {
	d := formadmin.Descriptor{
		Name:         raw.Name,
		Key:          raw.Name,
		Type:         raw.Type,
		Extra:        raw.Extra,
		IsLink:       raw.IsLink,
		Template:     raw.Template,
		EscapeTokens: raw.EscapeTokens,
		Text:         raw.Text,
		MaxLength:    raw.MaxLength,
		StripTags:    raw.StripTags,
		ValuePrefix:  raw.ValuePrefix,
		MaxWidth:     raw.MaxWidth,
		MaxHeight:    raw.MaxHeight,
		DirPath:      raw.DirPath,
		Width:        raw.Width,
		Options:      raw.Options,
	}

	if d.Type == "" {
		d.Type = formadmin.FieldTypeText
	}
	if !knownFieldType(d.Type) {
		return d, formadmin.NewDefinitionError(n.model.Name, raw.Name, fmt.Sprintf("unknown field type %q", d.Type))
	}

	title := formadmin.Humanize(strings.ReplaceAll(raw.Name, ".", "_"))
	switch {
	case ctx == listContext && raw.Title != nil:
		title = *raw.Title
	case ctx == editContext && raw.Label != nil:
		title = *raw.Label
	case ctx == editContext && raw.Title != nil:
		title = *raw.Title
	}
	if ctx == listContext {
		d.Title = title
	} else {
		d.Label = title
	}

	if err := n.bindColumn(&d); err != nil {
		return d, err
	}

	switch ctx {
	case listContext:
		n.applyListDefaults(&d, raw)
	case editContext:
		n.applyEditDefaults(&d, raw)
	}

	if d.Template != "" {
		d.Tokens = parseTokens(d.Template)
		for _, tok := range d.Tokens {
			if !n.validToken(tok) {
				return d, formadmin.NewDefinitionError(n.model.Name, raw.Name, fmt.Sprintf("template token %q is not a field of the model", tok))
			}
		}
	}

	return d, nil
}

// bindColumn splits dotted names into their related pair and resolves the
// underlying column type. Extra fields have no column.
func (n *FieldNormalizer) bindColumn(d *formadmin.Descriptor) error {
	if !strings.Contains(d.Name, ".") {
		if d.Extra {
			return nil
		}
		col, ok := n.model.Column(d.Name)
		if !ok {
			return formadmin.NewDefinitionError(n.model.Name, d.Name, "field is not a column of the model")
		}
		d.DataType = col.Type
		return nil
	}

	parts := strings.Split(d.Name, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return formadmin.NewDefinitionError(n.model.Name, d.Name, "related field names must have the form relation.property")
	}
	col, err := n.relatedColumn(parts[0], parts[1])
	if err != nil {
		return err
	}
	d.RelatedModel = parts[0]
	d.Property = parts[1]
	d.Key = parts[0] + formadmin.RelatedKeySeparator + parts[1]
	d.DataType = col.Type
	return nil
}

func (n *FieldNormalizer) relatedColumn(relation, property string) (formadmin.Column, error) {
	rel, ok := n.model.Relation(relation)
	if !ok {
		return formadmin.Column{}, formadmin.NewDefinitionError(n.model.Name, relation+"."+property, "unknown relation "+relation)
	}
	target, err := n.registry.GetModel(rel.Target)
	if err != nil {
		return formadmin.Column{}, formadmin.NewDefinitionError(n.model.Name, relation+"."+property, "relation target is not registered").WithCause(err)
	}
	col, ok := target.Column(property)
	if !ok {
		return formadmin.Column{}, formadmin.NewDefinitionError(n.model.Name, relation+"."+property, "related model has no column "+property)
	}
	return col, nil
}

func (n *FieldNormalizer) validToken(token string) bool {
	if relation, property, ok := strings.Cut(token, "."); ok {
		_, err := n.relatedColumn(relation, property)
		return err == nil
	}
	_, ok := n.model.Column(token)
	return ok
}

func (n *FieldNormalizer) applyListDefaults(d *formadmin.Descriptor, raw formadmin.RawField) {
	if d.Type == formadmin.FieldTypeLink || raw.IsLink {
		d.IsLink = true
		if d.Template == "" {
			d.Template = n.EditTemplate()
		}
	}

	orderable, searchable := true, true
	if d.Type == formadmin.FieldTypeImage {
		d.MaxWidth = orDefault(d.MaxWidth, 40)
		d.MaxHeight = orDefault(d.MaxHeight, 30)
		if d.DirPath == "" {
			d.DirPath = "/images/"
		}
		orderable, searchable = false, false
	}
	if raw.Orderable != nil {
		orderable = *raw.Orderable
	}
	if raw.Searchable != nil {
		searchable = *raw.Searchable
	}
	if d.Extra {
		orderable, searchable = false, false
	}
	d.Orderable, d.Searchable = orderable, searchable
}

func (n *FieldNormalizer) applyEditDefaults(d *formadmin.Descriptor, raw formadmin.RawField) {
	if d.Type == formadmin.FieldTypeSelect && raw.Multiple != nil {
		d.Multiple = *raw.Multiple
	}
	if d.Type == formadmin.FieldTypeImage {
		d.MaxWidth = orDefault(d.MaxWidth, 400)
		d.MaxHeight = orDefault(d.MaxHeight, 300)
		if d.DirPath == "" {
			d.DirPath = "/images/"
		}
	}
	if d.Type.IsUpload() {
		if d.DirPath == "" {
			d.DirPath = "/upload/"
		}
		if raw.AbsolutePath != nil {
			d.AbsolutePath = *raw.AbsolutePath
		}
	}
	if raw.Orderable != nil {
		d.Orderable = *raw.Orderable
	}
	if raw.Searchable != nil {
		d.Searchable = *raw.Searchable
	}
}

func knownFieldType(t formadmin.FieldType) bool {
	switch t {
	case formadmin.FieldTypeText, formadmin.FieldTypeHTML, formadmin.FieldTypeImage,
		formadmin.FieldTypeFile, formadmin.FieldTypeLink, formadmin.FieldTypeBoolean,
		formadmin.FieldTypeHidden, formadmin.FieldTypeSelect:
		return true
	default:
		return false
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// fieldScope memoizes the descriptors of one model for the duration of a request.
type fieldScope struct {
	normalizer *FieldNormalizer
	model      *formadmin.Model
	list       *formadmin.FieldSet
	edit       *formadmin.FieldSet
}

func newFieldScope(model *formadmin.Model, normalizer *FieldNormalizer) *fieldScope {
	return &fieldScope{normalizer: normalizer, model: model}
}

func (s *fieldScope) ListFields() (*formadmin.FieldSet, error) {
	if s.list == nil {
		set, err := s.normalizer.NormalizeListFields(s.model.ListFields)
		if err != nil {
			return nil, err
		}
		s.list = set
	}
	return s.list, nil
}

func (s *fieldScope) EditFields() (*formadmin.FieldSet, error) {
	if s.edit == nil {
		set, err := s.normalizer.NormalizeEditFields(s.model.EditFields)
		if err != nil {
			return nil, err
		}
		s.edit = set
	}
	return s.edit, nil
}
