package internal

import (
	"html"
	"regexp"

	"github.com/lychee-technology/formadmin"
)

// tokenPattern matches %column% and %relation.property% placeholders.
var tokenPattern = regexp.MustCompile(`%([A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)?)%`)

// parseTokens returns the distinct placeholder names of a template in order of appearance.
func parseTokens(template string) []string {
	matches := tokenPattern.FindAllStringSubmatch(template, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		tokens = append(tokens, m[1])
	}
	return tokens
}

// firstToken returns the first placeholder name of a template.
func firstToken(template string) (string, bool) {
	m := tokenPattern.FindStringSubmatch(template)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// tokenResolver substitutes placeholders from a record snapshot, limited to
// the tokens declared on the descriptor. Anything else renders as empty.
type tokenResolver struct {
	allowed map[string]struct{}
	record  formadmin.RecordView
	escape  bool
}

func newTokenResolver(d formadmin.Descriptor, record formadmin.RecordView) *tokenResolver {
	allowed := make(map[string]struct{}, len(d.Tokens))
	for _, t := range d.Tokens {
		allowed[t] = struct{}{}
	}
	return &tokenResolver{allowed: allowed, record: record, escape: d.EscapeTokens}
}

func (r *tokenResolver) value(token string) string {
	if _, ok := r.allowed[token]; !ok || r.record == nil {
		return ""
	}
	v, ok := r.record.Get(token)
	if !ok {
		return ""
	}
	s := stringify(v)
	if r.escape {
		return html.EscapeString(s)
	}
	return s
}

// Substitute replaces every placeholder of template.
func (r *tokenResolver) Substitute(template string) string {
	return tokenPattern.ReplaceAllStringFunc(template, func(match string) string {
		return r.value(match[1 : len(match)-1])
	})
}

// SubstituteOne replaces only the occurrences of token.
func (r *tokenResolver) SubstituteOne(template, token string) string {
	v := r.value(token)
	return tokenPattern.ReplaceAllStringFunc(template, func(match string) string {
		if match[1:len(match)-1] == token {
			return v
		}
		return match
	})
}
