// Package sitemap holds the generated documents and their XML form.
package sitemap

import "fmt"

const (
	NamespaceSitemap = "http://www.sitemaps.org/schemas/sitemap/0.9"
	NamespaceNews    = "http://www.google.com/schemas/sitemap-news/0.9"
)

// Kind tells which of the document shapes a [Document] has.
type Kind int

const (
	KindURLSet Kind = iota
	KindNews
	KindRSS
	KindIndex
)

func (k Kind) String() string {
	switch k {
	case KindURLSet:
		return "urlset"
	case KindNews:
		return "news"
	case KindRSS:
		return "rss"
	case KindIndex:
		return "index"
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

type (
	// Document is one output file.
	//
	// URLs is set for url sets and news url sets, Sitemaps for an index and
	// Channel for an RSS feed.
	Document struct {
		Name     string
		Kind     Kind
		URLs     []URL
		Sitemaps []string
		Channel  *Channel
	}

	URL struct {
		Loc      string
		Priority string
		News     *News
	}

	// News is the Google News block of a news sitemap entry.
	News struct {
		PublicationName     string
		PublicationLanguage string
		PublicationDate     string // YYYY-MM-DD
		Title               string
	}

	Channel struct {
		Title       string
		Link        string
		Description string
		Language    string
		Items       []Item
	}

	Item struct {
		Title       string
		Link        string
		Description string
		PubDate     string // RFC 1123, GMT
		GUID        string
	}
)

// ContentType is the media type the document is served with.
func (d Document) ContentType() string {
	if d.Kind == KindRSS {
		return "application/rss+xml"
	}

	return "application/xml"
}

// Fixed document names.
const (
	NameMedia    = "media-sitemap"
	NameListings = "listings-sitemap"
	NameNews     = "news-sitemap.xml"
	NameTags     = "tags-sitemap.xml"
	NameBrands   = "brands-sitemap.xml"
	NameSeries   = "series-sitemap.xml"
	NameIndex    = "sitemapindex.xml"
)

// ChunkName numbers a paginated document, starting at 1: media-sitemap-0001.xml.
func ChunkName(base string, i int) string {
	return fmt.Sprintf("%s-%04d.xml", base, i)
}

// SingleName is the name of an unpaginated document: media-sitemap.xml.
func SingleName(base string) string {
	return base + ".xml"
}

// FeedName is the name of a locale's RSS feed: fr-rss.xml.
func FeedName(locale string) string {
	return locale + "-rss.xml"
}
