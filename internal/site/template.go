package site

import (
	"net/url"
	"strings"
)

// Vars are the values a path template can refer to.
type Vars struct {
	Locale  string
	Section string
	Status  string
	Slug    string
	Brand   string
}

// Expand fills a path template. Tokens are {locale}, {section}, {status},
// {slug} and {brand}; slugs are path escaped.
func Expand(tmpl string, v Vars) string {
	return strings.NewReplacer(
		"{locale}", v.Locale,
		"{section}", v.Section,
		"{status}", v.Status,
		"{slug}", url.PathEscape(v.Slug),
		"{brand}", url.PathEscape(v.Brand),
	).Replace(tmpl)
}
