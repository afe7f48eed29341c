// Package vulninjection exposes the static configuration of the
// intentionally vulnerable inputs used by security-testing fixtures.
// Fixtures are read-only; nothing in the admin applies them.
package vulninjection

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/lychee-technology/formadmin"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yaml
var fixtureFiles embed.FS

// Field lists the vulnerability kinds an input is exposed to and, when the
// input is persisted, the table.column it ends up in.
type Field struct {
	Vulnerabilities []string `yaml:"vulnerabilities" json:"vulnerabilities"`
	DBField         string   `yaml:"db_field,omitempty" json:"db_field,omitempty"`
}

// Fixture is the configuration of one page context, such as "faq".
type Fixture struct {
	Context         string                     `yaml:"-" json:"context"`
	Fields          map[string]Field           `yaml:"fields" json:"fields"`
	Vulnerabilities map[string]map[string]bool `yaml:"vulnerabilities" json:"vulnerabilities"`
}

// Contexts returns the names of the embedded fixtures in sorted order.
func Contexts() []string {
	entries, err := fixtureFiles.ReadDir("fixtures")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Load parses the fixture of context. Unknown contexts are not-found errors.
func Load(context string) (*Fixture, error) {
	if context == "" || strings.ContainsAny(context, `/\.`) {
		return nil, notFound(context)
	}
	data, err := fixtureFiles.ReadFile(path.Join("fixtures", context+".yaml"))
	if err != nil {
		return nil, notFound(context)
	}

	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, formadmin.NewInternalError("failed to parse vulnerability fixture "+context, err)
	}
	f.Context = context

	for name, field := range f.Fields {
		for _, kind := range field.Vulnerabilities {
			if _, ok := f.Vulnerabilities[kind]; !ok {
				return nil, formadmin.NewInternalError(fmt.Sprintf("fixture %s: field %s uses undeclared vulnerability %q", context, name, kind), nil)
			}
		}
	}
	return &f, nil
}

func notFound(context string) error {
	return formadmin.NewAdminError(formadmin.ErrorTypeNotFound, "FIXTURE_NOT_FOUND", "unknown vulnerability fixture").
		WithDetail("context", context)
}

// Enabled reports whether kind is switched on. A kind declared without an
// "enabled" setting is on.
func (f *Fixture) Enabled(kind string) bool {
	settings, ok := f.Vulnerabilities[kind]
	if !ok {
		return false
	}
	enabled, set := settings["enabled"]
	return !set || enabled
}

// FieldsFor returns the inputs exposed to kind, sorted by name.
func (f *Fixture) FieldsFor(kind string) []string {
	var names []string
	for name, field := range f.Fields {
		for _, k := range field.Vulnerabilities {
			if k == kind {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// Active maps every enabled vulnerability kind to the inputs exposed to it.
func (f *Fixture) Active() map[string][]string {
	active := make(map[string][]string)
	for kind := range f.Vulnerabilities {
		if !f.Enabled(kind) {
			continue
		}
		fields := f.FieldsFor(kind)
		if fields == nil {
			fields = []string{}
		}
		active[kind] = fields
	}
	return active
}
