package sitemap

import (
	"encoding/xml"
	"fmt"
)

// The decoder resolves prefixes to namespaces, so reading needs its own
// namespace qualified shapes.
type (
	urlsetIn struct {
		XMLName xml.Name `xml:"urlset"`
		URLs    []struct {
			Loc      string  `xml:"loc"`
			Priority string  `xml:"priority"`
			News     *newsIn `xml:"http://www.google.com/schemas/sitemap-news/0.9 news"`
		} `xml:"url"`
	}

	newsIn struct {
		Publication struct {
			Name     string `xml:"http://www.google.com/schemas/sitemap-news/0.9 name"`
			Language string `xml:"http://www.google.com/schemas/sitemap-news/0.9 language"`
		} `xml:"http://www.google.com/schemas/sitemap-news/0.9 publication"`
		PublicationDate string `xml:"http://www.google.com/schemas/sitemap-news/0.9 publication_date"`
		Title           string `xml:"http://www.google.com/schemas/sitemap-news/0.9 title"`
	}
)

// Parse reads a document of the given kind back from its XML form. Empty
// collections come back as empty slices, the way they are built.
func Parse(name string, kind Kind, byts []byte) (Document, error) {
	d := Document{Name: name, Kind: kind}

	switch kind {
	case KindURLSet, KindNews:
		var set urlsetIn
		if err := xml.Unmarshal(byts, &set); err != nil {
			return Document{}, fmt.Errorf("error decoding urlset: %w", err)
		}
		d.URLs = make([]URL, 0, len(set.URLs))
		for _, u := range set.URLs {
			out := URL{Loc: u.Loc, Priority: u.Priority}
			if u.News != nil {
				out.News = &News{
					PublicationName:     u.News.Publication.Name,
					PublicationLanguage: u.News.Publication.Language,
					PublicationDate:     u.News.PublicationDate,
					Title:               u.News.Title,
				}
			}
			d.URLs = append(d.URLs, out)
		}
	case KindIndex:
		var idx indexXML
		if err := xml.Unmarshal(byts, &idx); err != nil {
			return Document{}, fmt.Errorf("error decoding sitemap index: %w", err)
		}
		d.Sitemaps = make([]string, 0, len(idx.Sitemaps))
		for _, s := range idx.Sitemaps {
			d.Sitemaps = append(d.Sitemaps, s.Loc)
		}
	case KindRSS:
		var feed rssXML
		if err := xml.Unmarshal(byts, &feed); err != nil {
			return Document{}, fmt.Errorf("error decoding rss: %w", err)
		}
		c := Channel{
			Title:       feed.Channel.Title,
			Link:        feed.Channel.Link,
			Description: feed.Channel.Description,
			Language:    feed.Channel.Language,
			Items:       make([]Item, 0, len(feed.Channel.Items)),
		}
		for _, it := range feed.Channel.Items {
			c.Items = append(c.Items, Item(it))
		}
		d.Channel = &c
	default:
		return Document{}, fmt.Errorf("unknown document kind %s", kind)
	}

	return d, nil
}
