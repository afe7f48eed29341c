package formadmin

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Column is one persisted column of a model table.
type Column struct {
	Name     string    `yaml:"name" json:"name"`
	Type     ValueType `yaml:"type" json:"type"`
	Nullable bool      `yaml:"nullable" json:"nullable"`
}

// Relation links a model to a related model through a foreign key column on
// the owning model. Dotted field names use the relation name as their prefix.
type Relation struct {
	Name       string `yaml:"-" json:"name"`
	Target     string `yaml:"target" json:"target"`
	ForeignKey string `yaml:"foreign_key" json:"foreign_key"`
	// TargetKey defaults to the target model's identifier field.
	TargetKey string `yaml:"target_key,omitempty" json:"target_key,omitempty"`
}

var underscoreRuns = regexp.MustCompile(`_+`)

// Humanize turns a snake_case name into a title: "user_id" becomes "User Id".
func Humanize(name string) string {
	parts := underscoreRuns.Split(name, -1)
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(p)
		words = append(words, string(unicode.ToUpper(r))+p[size:])
	}
	return strings.Join(words, " ")
}
