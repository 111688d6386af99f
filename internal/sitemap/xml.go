package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Wire shapes for encoding. The news elements are written with their
// prefix spelled out since encoding/xml can't emit prefixed names otherwise.
type (
	urlsetXML struct {
		XMLName   xml.Name `xml:"urlset"`
		XMLNS     string   `xml:"xmlns,attr"`
		XMLNSNews string   `xml:"xmlns:news,attr,omitempty"`
		URLs      []urlXML `xml:"url"`
	}

	urlXML struct {
		Loc      string   `xml:"loc"`
		Priority string   `xml:"priority,omitempty"`
		News     *newsXML `xml:"news:news,omitempty"`
	}

	newsXML struct {
		Publication     publicationXML `xml:"news:publication"`
		PublicationDate string         `xml:"news:publication_date"`
		Title           string         `xml:"news:title"`
	}

	publicationXML struct {
		Name     string `xml:"news:name"`
		Language string `xml:"news:language"`
	}

	indexXML struct {
		XMLName  xml.Name     `xml:"sitemapindex"`
		XMLNS    string       `xml:"xmlns,attr"`
		Sitemaps []sitemapXML `xml:"sitemap"`
	}

	sitemapXML struct {
		Loc string `xml:"loc"`
	}

	rssXML struct {
		XMLName xml.Name   `xml:"rss"`
		Version string     `xml:"version,attr"`
		Channel channelXML `xml:"channel"`
	}

	channelXML struct {
		Title       string    `xml:"title"`
		Link        string    `xml:"link"`
		Description string    `xml:"description"`
		Language    string    `xml:"language"`
		Items       []itemXML `xml:"item"`
	}

	itemXML struct {
		Title       string `xml:"title"`
		Link        string `xml:"link"`
		Description string `xml:"description"`
		PubDate     string `xml:"pubDate"`
		GUID        string `xml:"guid"`
	}
)

// Encode renders a document, XML declaration included.
func Encode(d Document) ([]byte, error) {
	var v any
	switch d.Kind {
	case KindURLSet, KindNews:
		set := urlsetXML{
			XMLNS: NamespaceSitemap,
			URLs:  make([]urlXML, 0, len(d.URLs)),
		}
		if d.Kind == KindNews {
			set.XMLNSNews = NamespaceNews
		}
		for _, u := range d.URLs {
			set.URLs = append(set.URLs, toURLXML(u))
		}
		v = set
	case KindIndex:
		idx := indexXML{
			XMLNS:    NamespaceSitemap,
			Sitemaps: make([]sitemapXML, 0, len(d.Sitemaps)),
		}
		for _, loc := range d.Sitemaps {
			idx.Sitemaps = append(idx.Sitemaps, sitemapXML{Loc: loc})
		}
		v = idx
	case KindRSS:
		if d.Channel == nil {
			return nil, fmt.Errorf("rss document %s has no channel", d.Name)
		}
		v = toRSSXML(*d.Channel)
	default:
		return nil, fmt.Errorf("unknown document kind %s", d.Kind)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("error encoding %s: %w", d.Name, err)
	}
	buf.WriteString("\n")

	return buf.Bytes(), nil
}

func toURLXML(u URL) urlXML {
	out := urlXML{Loc: u.Loc, Priority: u.Priority}
	if u.News != nil {
		out.News = &newsXML{
			Publication: publicationXML{
				Name:     u.News.PublicationName,
				Language: u.News.PublicationLanguage,
			},
			PublicationDate: u.News.PublicationDate,
			Title:           u.News.Title,
		}
	}

	return out
}

func toRSSXML(c Channel) rssXML {
	out := rssXML{
		Version: "2.0",
		Channel: channelXML{
			Title:       c.Title,
			Link:        c.Link,
			Description: c.Description,
			Language:    c.Language,
			Items:       make([]itemXML, 0, len(c.Items)),
		},
	}
	for _, it := range c.Items {
		out.Channel.Items = append(out.Channel.Items, itemXML(it))
	}

	return out
}
