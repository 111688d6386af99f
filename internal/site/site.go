// Package site describes a deployment: where its pages live, how each
// collection maps to urls, and where the generated files go.
//
// The built-in sites are embedded yaml files; see [Load].
package site

import (
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vroom-be/sitemaps/internal/content"
)

//go:embed sites/*.yaml
var sitesFS embed.FS

type (
	// Site is the full configuration of one deployment.
	Site struct {
		Name      string `yaml:"name"`
		BaseURL   string `yaml:"base_url"`
		KeyPrefix string `yaml:"key_prefix"`

		// Name of the publication in the news sitemap.
		Publication string `yaml:"publication"`

		// Items per media and listings document. Zero writes a single,
		// unnumbered document.
		PageSize int `yaml:"page_size"`
		// Upper bound on the article reads. Zero is unbounded.
		MaxItems int `yaml:"max_items"`

		MediaOrder     content.Order `yaml:"media_order"`
		FallbackLocale string        `yaml:"fallback_locale"`
		Locales        []Locale      `yaml:"locales"`

		Media    Collection `yaml:"media"`
		Listings Collection `yaml:"listings"`
		Tags     Collection `yaml:"tags"`
		Brands   Collection `yaml:"brands"`
		Series   Collection `yaml:"series"`
		News     Collection `yaml:"news"`

		Feeds []Feed `yaml:"feeds"`
		Index Index  `yaml:"index"`
	}

	// Locale is one language version of the site.
	Locale struct {
		Code string `yaml:"code"`
		// Path section the editorial content lives under.
		Section string `yaml:"section"`
		// Vehicle status id to the path section of its listings.
		Statuses map[string]string `yaml:"statuses"`
	}

	// Collection is how one kind of row becomes urls.
	Collection struct {
		// Disabled collections produce no document.
		Disabled bool   `yaml:"disabled"`
		Priority string `yaml:"priority"`
		// Path templates, expanded in order. See [Expand].
		Paths []string `yaml:"paths"`
		// Locales every row is repeated for. Empty means every site locale.
		// Ignored for rows that carry their own language.
		Locales []string `yaml:"locales"`
	}

	// Feed is one RSS channel.
	Feed struct {
		Language    string `yaml:"language"`
		Title       string `yaml:"title"`
		Link        string `yaml:"link"`
		Description string `yaml:"description"`
		// Takes every item no other feed matches.
		CatchAll bool `yaml:"catch_all"`
	}

	// Index is the sitemap index configuration.
	Index struct {
		Enabled bool `yaml:"enabled"`
		// Files not generated here that the index points at, like the static sitemap.
		Static []string `yaml:"static"`
	}
)

// Enabled reports whether the collection produces a document.
func (c Collection) Enabled() bool {
	return !c.Disabled
}

// Load returns one of the built-in sites by name.
func Load(name string) (Site, error) {
	byts, err := sitesFS.ReadFile("sites/" + name + ".yaml")
	if errors.Is(err, os.ErrNotExist) {
		return Site{}, fmt.Errorf("unknown site %q", name)
	}
	if err != nil {
		return Site{}, fmt.Errorf("error reading site %q: %w", name, err)
	}

	return Parse(byts)
}

// LoadFile reads a site configuration from disk.
func LoadFile(path string) (Site, error) {
	byts, err := os.ReadFile(path)
	if err != nil {
		return Site{}, fmt.Errorf("error reading site file: %w", err)
	}

	return Parse(byts)
}

// Parse decodes and validates a yaml site configuration.
func Parse(byts []byte) (Site, error) {
	var s Site
	if err := yaml.Unmarshal(byts, &s); err != nil {
		return Site{}, fmt.Errorf("error decoding site: %w", err)
	}
	if s.MediaOrder == "" {
		s.MediaOrder = content.OrderAsc
	}
	if err := s.Validate(); err != nil {
		return Site{}, fmt.Errorf("invalid site %q: %w", s.Name, err)
	}

	return s, nil
}

// Validate checks the configuration for mistakes that would produce broken urls.
func (s Site) Validate() error {
	var errs []error

	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url %q is not an absolute url", s.BaseURL))
	}
	if strings.HasSuffix(s.BaseURL, "/") {
		errs = append(errs, errors.New("base_url must not end with a slash"))
	}
	if s.KeyPrefix == "" {
		errs = append(errs, errors.New("key_prefix is required"))
	}
	if s.PageSize < 0 {
		errs = append(errs, errors.New("page_size must not be negative"))
	}
	if s.MaxItems < 0 {
		errs = append(errs, errors.New("max_items must not be negative"))
	}
	if s.MediaOrder != content.OrderAsc && s.MediaOrder != content.OrderDesc {
		errs = append(errs, fmt.Errorf("media_order %q must be asc or desc", s.MediaOrder))
	}
	if len(s.Locales) == 0 {
		errs = append(errs, errors.New("at least one locale is required"))
	}
	if s.FallbackLocale != "" {
		if _, ok := s.locale(s.FallbackLocale); !ok {
			errs = append(errs, fmt.Errorf("fallback_locale %q is not a site locale", s.FallbackLocale))
		}
	}

	for name, c := range s.collections() {
		if !c.Enabled() {
			continue
		}
		if name != "news" {
			if _, err := strconv.ParseFloat(c.Priority, 64); err != nil {
				errs = append(errs, fmt.Errorf("%s: priority %q is not a decimal", name, c.Priority))
			}
		}
		if len(c.Paths) == 0 {
			errs = append(errs, fmt.Errorf("%s: at least one path is required", name))
		}
		for _, code := range c.Locales {
			if _, ok := s.locale(code); !ok {
				errs = append(errs, fmt.Errorf("%s: locale %q is not a site locale", name, code))
			}
		}
	}

	// Feeds are named after their language, so two of them would share a file.
	catchAll := 0
	languages := map[string]bool{}
	for _, f := range s.Feeds {
		if f.Language == "" {
			errs = append(errs, errors.New("feed language is required"))
		} else if languages[f.Language] {
			errs = append(errs, fmt.Errorf("more than one feed for language %q", f.Language))
		}
		languages[f.Language] = true
		if f.CatchAll {
			catchAll++
		}
	}
	if catchAll > 1 {
		errs = append(errs, errors.New("only one feed can be catch_all"))
	}
	if len(s.Feeds) > 0 && len(s.News.Paths) == 0 && len(s.Media.Paths) == 0 {
		errs = append(errs, errors.New("feeds need news or media paths to link to"))
	}

	return errors.Join(errs...)
}

func (s Site) collections() map[string]Collection {
	return map[string]Collection{
		"media":    s.Media,
		"listings": s.Listings,
		"tags":     s.Tags,
		"brands":   s.Brands,
		"series":   s.Series,
		"news":     s.News,
	}
}

func (s Site) locale(code string) (Locale, bool) {
	for _, l := range s.Locales {
		if l.Code == code {
			return l, true
		}
	}

	return Locale{}, false
}

// ResolveLocale finds the locale for a row's language, falling back to the
// site's fallback locale. The second return is false if neither exists.
func (s Site) ResolveLocale(code string) (Locale, bool) {
	if l, ok := s.locale(code); ok {
		return l, true
	}
	if s.FallbackLocale == "" {
		return Locale{}, false
	}

	return s.locale(s.FallbackLocale)
}

// FanOut returns the locales a collection repeats each row for.
func (s Site) FanOut(c Collection) []Locale {
	if len(c.Locales) == 0 {
		return s.Locales
	}

	locales := make([]Locale, 0, len(c.Locales))
	for _, code := range c.Locales {
		if l, ok := s.locale(code); ok {
			locales = append(locales, l)
		}
	}

	return locales
}

// URL makes an absolute url out of a path on the site.
func (s Site) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return s.BaseURL + path
}
