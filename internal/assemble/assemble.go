// Package assemble turns the rows read for a site into its sitemap documents.
//
// Everything here is pure: the same snapshot and site always give the same
// documents.
package assemble

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/vroom-be/sitemaps/internal/content"
	"github.com/vroom-be/sitemaps/internal/site"
	"github.com/vroom-be/sitemaps/internal/sitemap"
)

// RSS wants RFC 1123 with the zone spelled GMT.
const rfc1123GMT = "Mon, 02 Jan 2006 15:04:05 GMT"

type (
	// Output holds every document of a run. Nil documents belong to
	// collections the site has turned off.
	Output struct {
		Media    []sitemap.Document
		Listings []sitemap.Document
		Tags     *sitemap.Document
		Brands   *sitemap.Document
		Series   *sitemap.Document
		News     *sitemap.Document
		Feeds    []sitemap.Document
		Index    *sitemap.Document

		Stats Stats
	}

	// Stats counts the rows that didn't make it into a document.
	Stats struct {
		UnknownStatus   int // listings with a status no locale knows
		UnknownLanguage int // articles and series without a usable locale
		Undated         int // recent articles without a publish date
		Unrouted        int // recent articles no feed takes
	}
)

// Build assembles all documents for the site.
func Build(s site.Site, snap content.Snapshot) Output {
	var out Output

	if s.Media.Enabled() {
		out.Media = media(s, snap.Articles, &out.Stats)
	}
	if s.Listings.Enabled() {
		out.Listings = listings(s, snap.Listings, &out.Stats)
	}
	if s.Tags.Enabled() {
		out.Tags = tags(s, snap.Tags)
	}
	if s.Brands.Enabled() {
		out.Brands = brands(s, snap.Brands)
	}
	if s.Series.Enabled() {
		out.Series = series(s, snap.Brands, snap.Series, &out.Stats)
	}

	news, feeds := recent(s, snap.Recent, &out.Stats)
	if s.News.Enabled() {
		out.News = &news
	}
	out.Feeds = feeds

	if s.Index.Enabled {
		out.Index = index(s, out)
	}

	return out
}

// Groups is the upload plan. Documents within a group don't depend on each
// other; the groups go in order, the index last so it never points at a
// file that isn't there yet.
func (o Output) Groups() [][]sitemap.Document {
	var groups [][]sitemap.Document
	add := func(docs ...sitemap.Document) {
		if len(docs) > 0 {
			groups = append(groups, docs)
		}
	}
	single := func(d *sitemap.Document) {
		if d != nil {
			add(*d)
		}
	}

	add(o.Media...)
	add(o.Listings...)
	single(o.Tags)
	single(o.Brands)
	single(o.Series)
	single(o.News)
	add(o.Feeds...)
	single(o.Index)

	return groups
}

// Documents flattens [Output.Groups].
func (o Output) Documents() []sitemap.Document {
	var docs []sitemap.Document
	for _, g := range o.Groups() {
		docs = append(docs, g...)
	}

	return docs
}

func media(s site.Site, articles []content.Article, stats *Stats) []sitemap.Document {
	pages := paginate(articles, s.PageSize)
	docs := make([]sitemap.Document, 0, len(pages))
	for i, page := range pages {
		urls := []sitemap.URL{}
		for _, a := range page {
			l, ok := s.ResolveLocale(a.Language)
			if !ok {
				stats.UnknownLanguage++
				continue
			}
			for _, p := range s.Media.Paths {
				loc := s.URL(site.Expand(p, site.Vars{Locale: l.Code, Section: l.Section, Slug: a.Slug}))
				urls = append(urls, sitemap.URL{Loc: loc, Priority: s.Media.Priority})
			}
		}

		docs = append(docs, sitemap.Document{
			Name: pageName(sitemap.NameMedia, i, s.PageSize),
			Kind: sitemap.KindURLSet,
			URLs: urls,
		})
	}

	return docs
}

// Listings are paginated by url rather than by row: a listing shows up once per locale.
func listings(s site.Site, rows []content.Listing, stats *Stats) []sitemap.Document {
	urls := []sitemap.URL{}
	locales := s.FanOut(s.Listings)
	for _, row := range rows {
		emitted := 0
		for _, p := range s.Listings.Paths {
			for _, l := range locales {
				section, ok := l.Statuses[row.VehicleStatus]
				if !ok {
					continue
				}
				loc := s.URL(site.Expand(p, site.Vars{Locale: l.Code, Status: section, Slug: row.Slug}))
				urls = append(urls, sitemap.URL{Loc: loc, Priority: s.Listings.Priority})
				emitted++
			}
		}
		if emitted == 0 {
			stats.UnknownStatus++
		}
	}

	pages := paginate(urls, s.PageSize)
	docs := make([]sitemap.Document, 0, len(pages))
	for i, page := range pages {
		docs = append(docs, sitemap.Document{
			Name: pageName(sitemap.NameListings, i, s.PageSize),
			Kind: sitemap.KindURLSet,
			URLs: page,
		})
	}

	return docs
}

func tags(s site.Site, rows []content.Tag) *sitemap.Document {
	slugs := make([]string, 0, len(rows))
	for _, t := range rows {
		slugs = append(slugs, t.Slug)
	}

	return &sitemap.Document{
		Name: sitemap.NameTags,
		Kind: sitemap.KindURLSet,
		URLs: fanOut(s, s.Tags, slugs),
	}
}

func brands(s site.Site, rows []content.Brand) *sitemap.Document {
	slugs := make([]string, 0, len(rows))
	for _, b := range rows {
		slugs = append(slugs, b.Slug)
	}

	return &sitemap.Document{
		Name: sitemap.NameBrands,
		Kind: sitemap.KindURLSet,
		URLs: fanOut(s, s.Brands, slugs),
	}
}

// Repeats every slug for each path, then each locale of the collection.
func fanOut(s site.Site, c site.Collection, slugs []string) []sitemap.URL {
	urls := []sitemap.URL{}
	locales := s.FanOut(c)
	for _, slug := range slugs {
		for _, p := range c.Paths {
			for _, l := range locales {
				loc := s.URL(site.Expand(p, site.Vars{Locale: l.Code, Section: l.Section, Slug: slug}))
				urls = append(urls, sitemap.URL{Loc: loc, Priority: c.Priority})
			}
		}
	}

	return urls
}

// Series of all brands land in one document, in brand order.
func series(s site.Site, brands []content.Brand, series [][]content.Series, stats *Stats) *sitemap.Document {
	urls := []sitemap.URL{}
	for i, b := range brands {
		if i >= len(series) {
			break
		}
		for _, sr := range series[i] {
			l, ok := s.ResolveLocale(sr.Language)
			if !ok {
				stats.UnknownLanguage++
				continue
			}
			for _, p := range s.Series.Paths {
				loc := s.URL(site.Expand(p, site.Vars{Locale: l.Code, Section: l.Section, Brand: b.Slug, Slug: sr.Slug}))
				urls = append(urls, sitemap.URL{Loc: loc, Priority: s.Series.Priority})
			}
		}
	}

	return &sitemap.Document{
		Name: sitemap.NameSeries,
		Kind: sitemap.KindURLSet,
		URLs: urls,
	}
}

// Builds the news sitemap and the RSS feeds in a single pass over the recent articles.
func recent(s site.Site, articles []content.Article, stats *Stats) (sitemap.Document, []sitemap.Document) {
	news := sitemap.Document{
		Name: sitemap.NameNews,
		Kind: sitemap.KindNews,
		URLs: []sitemap.URL{},
	}

	channels := make([]sitemap.Channel, len(s.Feeds))
	catchAll := -1
	for i, f := range s.Feeds {
		channels[i] = sitemap.Channel{
			Title:       f.Title,
			Link:        f.Link,
			Description: f.Description,
			Language:    f.Language,
			Items:       []sitemap.Item{},
		}
		if f.CatchAll {
			catchAll = i
		}
	}

	for _, a := range articles {
		if a.PublishedAt == nil {
			stats.Undated++
			continue
		}
		l, ok := s.ResolveLocale(a.Language)
		if !ok {
			stats.UnknownLanguage++
			continue
		}

		var (
			loc         = s.URL(site.Expand(newsPath(s), site.Vars{Locale: l.Code, Section: l.Section, Slug: a.Slug}))
			title       = sanitize(a.Title())
			description = sanitize(a.Description())
			published   = a.PublishedAt.UTC()
		)

		news.URLs = append(news.URLs, sitemap.URL{
			Loc: loc,
			News: &sitemap.News{
				PublicationName:     s.Publication,
				PublicationLanguage: a.Language,
				PublicationDate:     published.Format(time.DateOnly),
				Title:               title,
			},
		})

		target := catchAll
		for i, f := range s.Feeds {
			if f.Language == a.Language {
				target = i
				break
			}
		}
		if target < 0 {
			if len(s.Feeds) > 0 {
				stats.Unrouted++
			}
			continue
		}
		channels[target].Items = append(channels[target].Items, sitemap.Item{
			Title:       title,
			Link:        loc,
			Description: description,
			PubDate:     published.Format(rfc1123GMT),
			GUID:        loc,
		})
	}

	feeds := make([]sitemap.Document, 0, len(channels))
	for i := range channels {
		feeds = append(feeds, sitemap.Document{
			Name:    sitemap.FeedName(channels[i].Language),
			Kind:    sitemap.KindRSS,
			Channel: &channels[i],
		})
	}

	return news, feeds
}

// The first news path is the canonical link of an article.
func newsPath(s site.Site) string {
	if len(s.News.Paths) > 0 {
		return s.News.Paths[0]
	}

	return s.Media.Paths[0]
}

// Index order is fixed: static files, news, media pages, listing pages, tags, brands.
func index(s site.Site, out Output) *sitemap.Document {
	locs := []string{}
	for _, name := range s.Index.Static {
		locs = append(locs, s.URL(name))
	}
	if out.News != nil {
		locs = append(locs, s.URL(out.News.Name))
	}
	for _, d := range out.Media {
		locs = append(locs, s.URL(d.Name))
	}
	for _, d := range out.Listings {
		locs = append(locs, s.URL(d.Name))
	}
	if out.Tags != nil {
		locs = append(locs, s.URL(out.Tags.Name))
	}
	if out.Brands != nil {
		locs = append(locs, s.URL(out.Brands.Name))
	}

	return &sitemap.Document{
		Name:     sitemap.NameIndex,
		Kind:     sitemap.KindIndex,
		Sitemaps: locs,
	}
}

func pageName(base string, i, pageSize int) string {
	if pageSize <= 0 {
		return sitemap.SingleName(base)
	}

	return sitemap.ChunkName(base, i+1)
}

var (
	stripPolicy = bluemonday.StrictPolicy()

	// A closing or self-closing tag. A lone "<" in a title is just text.
	markup = regexp.MustCompile(`</[a-zA-Z][a-zA-Z0-9]*\s*>|<[a-zA-Z][^<>]*/>`)
)

// Removes html tags from fields that carry markup. Plain text is kept as
// is and left to the XML encoder to escape. The policy escapes entities,
// which the encoder would escape a second time, so they're undone here.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if !markup.MatchString(s) {
		return s
	}

	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}
