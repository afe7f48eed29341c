package internal

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/lychee-technology/formadmin"
)

// Request parameters of the list data endpoint, DataTables server-side style.
const (
	paramLength      = "length"
	paramStart       = "start"
	paramOrderColumn = "order[0][column]"
	paramOrderDir    = "order[0][dir]"
	paramSearch      = "search[value]"
)

// ListQueryBuilder turns list request parameters into a store query.
// Malformed parameters fall back to defaults; it never fails.
type ListQueryBuilder struct {
	defaultPageSize int
	maxPageSize     int
}

func NewListQueryBuilder(cfg formadmin.QueryConfig) *ListQueryBuilder {
	b := &ListQueryBuilder{defaultPageSize: cfg.DefaultPageSize, maxPageSize: cfg.MaxPageSize}
	if b.defaultPageSize <= 0 {
		b.defaultPageSize = 10
	}
	if b.maxPageSize < b.defaultPageSize {
		b.maxPageSize = 100
	}
	return b
}

func (b *ListQueryBuilder) Build(params url.Values, fields *formadmin.FieldSet) formadmin.ListQuery {
	pageSize := b.defaultPageSize
	if n, err := strconv.Atoi(params.Get(paramLength)); err == nil && n >= 1 && n <= b.maxPageSize {
		pageSize = n
	}

	start, err := strconv.Atoi(params.Get(paramStart))
	if err != nil || start < 0 {
		start = 0
	}

	return formadmin.ListQuery{
		Page:     start/pageSize + 1,
		PageSize: pageSize,
		Order:    b.order(params, fields),
		Filter:   b.filter(params.Get(paramSearch), fields),
	}
}

// order resolves the requested column. A missing column means the first list
// field; an extra or unorderable one means the first orderable, non-extra field.
func (b *ListQueryBuilder) order(params url.Values, fields *formadmin.FieldSet) *formadmin.OrderSpec {
	column, err := strconv.Atoi(params.Get(paramOrderColumn))
	if err != nil || column < 0 {
		column = 0
	}

	d, ok := fields.Get(params.Get(fmt.Sprintf("columns[%d][data]", column)))
	if !ok {
		if keys := fields.Keys(); len(keys) > 0 {
			d, ok = fields.Get(keys[0])
		}
	}
	if !ok || d.Extra || !d.Orderable {
		d, ok = firstOrderable(fields)
	}
	if !ok {
		return nil
	}

	direction := formadmin.SortOrderAsc
	if strings.EqualFold(params.Get(paramOrderDir), string(formadmin.SortOrderDesc)) {
		direction = formadmin.SortOrderDesc
	}
	return &formadmin.OrderSpec{Field: fieldPath(d), Direction: direction}
}

func firstOrderable(fields *formadmin.FieldSet) (formadmin.Descriptor, bool) {
	for _, d := range fields.All() {
		if d.Orderable && !d.Extra {
			return d, true
		}
	}
	return formadmin.Descriptor{}, false
}

// filter ORs one contains-condition per token within a field, then ORs the fields.
func (b *ListQueryBuilder) filter(search string, fields *formadmin.FieldSet) formadmin.Condition {
	tokens := strings.Fields(search)
	if len(tokens) == 0 {
		return nil
	}

	var groups []formadmin.Condition
	for _, d := range fields.All() {
		if !d.Searchable || d.Extra {
			continue
		}
		field := fieldPath(d)
		var conds []formadmin.Condition
		for _, tok := range tokens {
			if d.DataType.IsInteger() && !isNumeric(tok) {
				continue
			}
			conds = append(conds, &formadmin.ContainsCondition{Field: field, Value: tok})
		}
		if len(conds) > 0 {
			groups = append(groups, &formadmin.CompositeCondition{Logic: formadmin.LogicOr, Conditions: conds})
		}
	}

	if len(groups) == 0 {
		return nil
	}
	return &formadmin.CompositeCondition{Logic: formadmin.LogicOr, Conditions: groups}
}

// fieldPath is the dotted name the store understands.
func fieldPath(d formadmin.Descriptor) string {
	if d.IsRelated() {
		return d.RelatedModel + "." + d.Property
	}
	return strings.ReplaceAll(d.Key, formadmin.RelatedKeySeparator, ".")
}

// numericPattern accepts decimal numbers with an optional exponent. Hex, NaN
// and Inf spellings are not numbers for search purposes.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

func isNumeric(s string) bool {
	return numericPattern.MatchString(strings.TrimSpace(s))
}
