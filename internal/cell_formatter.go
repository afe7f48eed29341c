package internal

import (
	"fmt"
	"html"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lychee-technology/formadmin"
)

const ellipsis = "..."

// FormatCell renders one value for display according to its descriptor.
// The value is escaped before any markup from the descriptor is added.
func FormatCell(value any, record formadmin.RecordView, d formadmin.Descriptor) string {
	s := stringify(value)

	if d.MaxLength > 0 && utf8.RuneCountInString(s) > d.MaxLength {
		s = string([]rune(s)[:d.MaxLength]) + ellipsis
	}
	if d.StripTags {
		s = stripTags(s)
	}
	if d.ValuePrefix != "" {
		s = d.ValuePrefix + s
	}
	s = html.EscapeString(s)

	switch d.Type {
	case formadmin.FieldTypeImage:
		if truthy(s) {
			s = fmt.Sprintf(`<img src="%s%s" style="max-width: %dpx; max-height: %dpx;" />`, d.DirPath, s, d.MaxWidth, d.MaxHeight)
		} else {
			s = ""
		}
	case formadmin.FieldTypeBoolean:
		glyph := "fa-circle"
		if !truthy(s) {
			glyph = "fa-circle-o"
		}
		s = `<span class="fa-boolean fa ` + glyph + `"></span>`
	case formadmin.FieldTypeHTML:
		if d.Template != "" {
			s = newTokenResolver(d, record).Substitute(d.Template)
		}
	}

	if d.Type == formadmin.FieldTypeLink || d.IsLink {
		if token, ok := firstToken(d.Template); ok {
			href := newTokenResolver(d, record).SubstituteOne(d.Template, token)
			label := s
			if d.Text != "" {
				label = d.Text
			}
			s = `<a href="` + href + `">` + label + `</a>`
		}
	}

	return s
}

// FormatRow renders every list column of a record, keyed by descriptor key.
// Extra columns are rendered from the record identifier.
func FormatRow(record *formadmin.Entity, fields *formadmin.FieldSet) map[string]string {
	row := make(map[string]string, fields.Len())
	for _, d := range fields.All() {
		var v any
		switch {
		case d.IsRelated():
			v, _ = record.Get(d.RelatedModel + "." + d.Property)
		case d.Extra:
			v = record.ID
		default:
			v, _ = record.Get(d.Name)
		}
		row[d.Key] = FormatCell(v, record, d)
	}
	return row
}

// PlainValue renders a raw record value the way it is shown in form inputs.
func PlainValue(v any) string {
	return stringify(v)
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "1"
		}
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return x.Format(time.RFC3339)
	case [16]byte:
		return uuid.UUID(x).String()
	default:
		return fmt.Sprint(x)
	}
}

func truthy(s string) bool {
	return s != "" && s != "0"
}
