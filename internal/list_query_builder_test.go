package internal

import (
	"net/url"
	"testing"

	"github.com/lychee-technology/formadmin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listFieldsForQuery(t *testing.T) *formadmin.FieldSet {
	t.Helper()
	n, _ := newTestNormalizer(t)
	fields, err := n.NormalizeListFields([]formadmin.RawField{
		{Name: "cb", Extra: true, Type: formadmin.FieldTypeHTML, Template: "%id%"},
		{Name: "id"},
		{Name: "question"},
		{Name: "photo", Type: formadmin.FieldTypeImage},
		{Name: "user.name"},
		{Name: "answer", Searchable: boolPtr(false)},
	})
	require.NoError(t, err)
	return fields
}

func TestListQueryBuilder_PageSize(t *testing.T) {
	b := NewListQueryBuilder(formadmin.DefaultConfig().Query)
	fields := listFieldsForQuery(t)

	tests := []struct {
		length string
		start  string
		size   int
		page   int
	}{
		{length: "", start: "", size: 10, page: 1},
		{length: "25", start: "50", size: 25, page: 3},
		{length: "100", start: "0", size: 100, page: 1},
		{length: "101", start: "20", size: 10, page: 3},
		{length: "0", start: "0", size: 10, page: 1},
		{length: "-5", start: "-10", size: 10, page: 1},
		{length: "abc", start: "xyz", size: 10, page: 1},
		{length: "10", start: "15", size: 10, page: 2},
	}

	for _, tt := range tests {
		q := b.Build(url.Values{"length": {tt.length}, "start": {tt.start}}, fields)
		assert.Equal(t, tt.size, q.PageSize, "length=%q", tt.length)
		assert.Equal(t, tt.page, q.Page, "length=%q start=%q", tt.length, tt.start)
		assert.GreaterOrEqual(t, q.PageSize, 1)
		assert.LessOrEqual(t, q.PageSize, 100)
	}
}

func TestListQueryBuilder_Order(t *testing.T) {
	b := NewListQueryBuilder(formadmin.QueryConfig{})
	fields := listFieldsForQuery(t)

	tests := []struct {
		name   string
		params url.Values
		want   *formadmin.OrderSpec
	}{
		{
			name:   "requested column",
			params: url.Values{"order[0][column]": {"2"}, "columns[2][data]": {"question"}, "order[0][dir]": {"DESC"}},
			want:   &formadmin.OrderSpec{Field: "question", Direction: formadmin.SortOrderDesc},
		},
		{
			name:   "related column",
			params: url.Values{"order[0][column]": {"4"}, "columns[4][data]": {"user___name"}, "order[0][dir]": {"asc"}},
			want:   &formadmin.OrderSpec{Field: "user.name", Direction: formadmin.SortOrderAsc},
		},
		{
			name:   "extra column falls back",
			params: url.Values{"order[0][column]": {"0"}, "columns[0][data]": {"cb"}, "order[0][dir]": {"desc"}},
			want:   &formadmin.OrderSpec{Field: "id", Direction: formadmin.SortOrderDesc},
		},
		{
			name:   "unorderable column falls back",
			params: url.Values{"order[0][column]": {"3"}, "columns[3][data]": {"photo"}},
			want:   &formadmin.OrderSpec{Field: "id", Direction: formadmin.SortOrderAsc},
		},
		{
			name:   "missing column uses first field",
			params: url.Values{"order[0][dir]": {"sideways"}},
			want:   &formadmin.OrderSpec{Field: "id", Direction: formadmin.SortOrderAsc},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Build(tt.params, fields).Order)
		})
	}
}

func TestListQueryBuilder_NoOrderableField(t *testing.T) {
	b := NewListQueryBuilder(formadmin.QueryConfig{})
	n, _ := newTestNormalizer(t)
	fields, err := n.NormalizeListFields([]formadmin.RawField{{Name: "question", Orderable: boolPtr(false)}})
	require.NoError(t, err)

	assert.Nil(t, b.Build(url.Values{}, fields).Order)
}

func TestListQueryBuilder_Search(t *testing.T) {
	b := NewListQueryBuilder(formadmin.QueryConfig{})
	fields := listFieldsForQuery(t)

	q := b.Build(url.Values{"search[value]": {"  foo 12 "}}, fields)
	root, ok := q.Filter.(*formadmin.CompositeCondition)
	require.True(t, ok)
	assert.Equal(t, formadmin.LogicOr, root.Logic)

	// id only gets the numeric token; the image and unsearchable columns are skipped.
	require.Len(t, root.Conditions, 3)
	assert.Equal(t, &formadmin.CompositeCondition{Logic: formadmin.LogicOr, Conditions: []formadmin.Condition{
		&formadmin.ContainsCondition{Field: "id", Value: "12"},
	}}, root.Conditions[0])
	assert.Equal(t, &formadmin.CompositeCondition{Logic: formadmin.LogicOr, Conditions: []formadmin.Condition{
		&formadmin.ContainsCondition{Field: "question", Value: "foo"},
		&formadmin.ContainsCondition{Field: "question", Value: "12"},
	}}, root.Conditions[1])
	assert.Equal(t, &formadmin.CompositeCondition{Logic: formadmin.LogicOr, Conditions: []formadmin.Condition{
		&formadmin.ContainsCondition{Field: "user.name", Value: "foo"},
		&formadmin.ContainsCondition{Field: "user.name", Value: "12"},
	}}, root.Conditions[2])
}

func TestListQueryBuilder_BlankSearchHasNoFilter(t *testing.T) {
	b := NewListQueryBuilder(formadmin.QueryConfig{})
	fields := listFieldsForQuery(t)

	for _, search := range []string{"", "   ", "\t\n"} {
		assert.Nil(t, b.Build(url.Values{"search[value]": {search}}, fields).Filter)
	}
}

func TestListQueryBuilder_NonNumericSearchOnIntegerOnly(t *testing.T) {
	b := NewListQueryBuilder(formadmin.QueryConfig{})
	n, _ := newTestNormalizer(t)
	fields, err := n.NormalizeListFields([]formadmin.RawField{{Name: "id"}, {Name: "user_id"}})
	require.NoError(t, err)

	assert.Nil(t, b.Build(url.Values{"search[value]": {"abc"}}, fields).Filter)
	for _, word := range []string{"NaN", "Inf", "-infinity", "0x1F"} {
		assert.Nil(t, b.Build(url.Values{"search[value]": {word}}, fields).Filter, word)
	}
	assert.NotNil(t, b.Build(url.Values{"search[value]": {"42"}}, fields).Filter)
}

func TestIsNumeric(t *testing.T) {
	for _, s := range []string{"7", "-3", "+1.5", ".5", "2.", "1e3", "6.02E-23"} {
		assert.True(t, isNumeric(s), s)
	}
	for _, s := range []string{"", "abc", "NaN", "inf", "Infinity", "0x10", "1_000", "1e", "."} {
		assert.False(t, isNumeric(s), s)
	}
}
