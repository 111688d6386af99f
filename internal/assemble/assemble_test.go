package assemble

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vroom-be/sitemaps/internal/content"
	"github.com/vroom-be/sitemaps/internal/site"
	"github.com/vroom-be/sitemaps/internal/sitemap"
)

func loadSite(t *testing.T, name string) site.Site {
	t.Helper()

	s, err := site.Load(name)
	require.NoError(t, err)
	return s
}

func ptr[T any](v T) *T { return &v }

func locs(d sitemap.Document) []string {
	out := make([]string, 0, len(d.URLs))
	for _, u := range d.URLs {
		out = append(out, u.Loc)
	}
	return out
}

func names(docs []sitemap.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Name)
	}
	return out
}

func TestChunk(t *testing.T) {
	for n := 0; n <= 10; n++ {
		for size := 1; size <= 4; size++ {
			t.Run(fmt.Sprintf("n=%d,size=%d", n, size), func(t *testing.T) {
				items := make([]int, n)
				for i := range items {
					items[i] = i
				}

				chunks := Chunk(items, size)
				require.Len(t, chunks, (n+size-1)/size)

				var joined []int
				for i, c := range chunks {
					if i < len(chunks)-1 {
						assert.Len(t, c, size)
					} else {
						want := n % size
						if want == 0 {
							want = size
						}
						assert.Len(t, c, want)
					}
					joined = append(joined, c...)
				}
				if n > 0 {
					assert.Equal(t, items, joined)
				}
			})
		}
	}
}

func TestChunk_Unbounded(t *testing.T) {
	assert.Equal(t, [][]string{{"a", "b", "c"}}, Chunk([]string{"a", "b", "c"}, 0))
	assert.Nil(t, Chunk([]string{}, 0))
}

func TestChunk_AppendDoesNotLeakIntoNextChunk(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3, 4}, 2)
	_ = append(chunks[0], 99)
	assert.Equal(t, []int{3, 4}, chunks[1])
}

func TestBuild_MediaPagination(t *testing.T) {
	s := loadSite(t, "vroom-be")
	s.PageSize = 2

	out := Build(s, content.Snapshot{
		Articles: []content.Article{
			{Slug: "a", Language: "fr"},
			{Slug: "b", Language: "nl"},
			{Slug: "c", Language: "fr"},
		},
	})

	require.Len(t, out.Media, 2)
	assert.Equal(t, []string{"media-sitemap-0001.xml", "media-sitemap-0002.xml"}, names(out.Media))
	assert.Equal(t, []string{
		"https://www.vroom.be/fr/information/a",
		"https://www.vroom.be/nl/informatie/b",
	}, locs(out.Media[0]))
	assert.Equal(t, []string{"https://www.vroom.be/fr/information/c"}, locs(out.Media[1]))
	assert.Equal(t, "0.8", out.Media[0].URLs[0].Priority)
}

func TestBuild_ChunkNamesAreSequential(t *testing.T) {
	s := loadSite(t, "vroom-be")
	s.PageSize = 3

	articles := make([]content.Article, 31)
	for i := range articles {
		articles[i] = content.Article{Slug: fmt.Sprintf("a%d", i), Language: "fr"}
	}
	out := Build(s, content.Snapshot{Articles: articles})

	require.Len(t, out.Media, 11)
	for i, d := range out.Media {
		assert.Equal(t, fmt.Sprintf("media-sitemap-%04d.xml", i+1), d.Name)
	}
	assert.Len(t, out.Media[10].URLs, 1)
}

func TestBuild_Unpaginated(t *testing.T) {
	s := loadSite(t, "autokopen-nl")

	out := Build(s, content.Snapshot{
		Articles: []content.Article{{Slug: "nieuwe-golf", Language: "nl"}},
		Listings: []content.Listing{{Slug: "golf-8", VehicleStatus: "2"}},
		Tags:     []content.Tag{{ID: 1, Slug: "suv"}},
		Brands:   []content.Brand{{ID: 1, Slug: "volkswagen"}},
	})

	require.Len(t, out.Media, 1)
	assert.Equal(t, "media-sitemap.xml", out.Media[0].Name)
	assert.Equal(t, []sitemap.URL{{Loc: "https://www.autokopen.nl/nieuws/nieuwe-golf", Priority: "0.75"}}, out.Media[0].URLs)

	require.Len(t, out.Listings, 1)
	assert.Equal(t, "listings-sitemap.xml", out.Listings[0].Name)
	assert.Equal(t, []string{"https://www.autokopen.nl/tweedehands/golf-8"}, locs(out.Listings[0]))

	assert.Equal(t, []string{"https://www.autokopen.nl/tag/suv"}, locs(*out.Tags))
	assert.Equal(t, []string{"https://www.autokopen.nl/volkswagen"}, locs(*out.Brands))
	assert.Nil(t, out.Series)
	assert.Nil(t, out.Index)
}

func TestBuild_ListingsDropUnknownStatus(t *testing.T) {
	tests := []struct {
		site     string
		rows     []content.Listing
		want     []string
		wantDrop int
	}{
		{
			site: "vroom-be",
			rows: []content.Listing{
				{Slug: "golf", VehicleStatus: "1"},
				{Slug: "ghost", VehicleStatus: "9"},
				{Slug: "kever", VehicleStatus: "3"},
			},
			want: []string{
				"https://www.vroom.be/fr/voitures-neuves/golf",
				"https://www.vroom.be/nl/nieuwe-autos/golf",
				"https://www.vroom.be/fr/anciennes/kever",
				"https://www.vroom.be/nl/oldtimers/kever",
			},
			wantDrop: 1,
		},
		{
			site: "autokopen-nl",
			rows: []content.Listing{
				{Slug: "golf", VehicleStatus: "1"},
				{Slug: "kever", VehicleStatus: "3"},
			},
			want:     []string{"https://www.autokopen.nl/nieuw/golf"},
			wantDrop: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.site, func(t *testing.T) {
			out := Build(loadSite(t, tt.site), content.Snapshot{Listings: tt.rows})

			var got []string
			for _, d := range out.Listings {
				got = append(got, locs(d)...)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantDrop, out.Stats.UnknownStatus)
			for _, loc := range got {
				assert.NotContains(t, loc, "ghost")
			}
		})
	}
}

func TestBuild_ListingsPaginateByURL(t *testing.T) {
	s := loadSite(t, "vroom-be")
	s.PageSize = 3

	out := Build(s, content.Snapshot{Listings: []content.Listing{
		{Slug: "a", VehicleStatus: "1"},
		{Slug: "b", VehicleStatus: "2"},
	}})

	require.Len(t, out.Listings, 2)
	assert.Len(t, out.Listings[0].URLs, 3)
	assert.Len(t, out.Listings[1].URLs, 1)
	assert.Equal(t, "listings-sitemap-0002.xml", out.Listings[1].Name)
}

func TestBuild_TagsAndBrands(t *testing.T) {
	out := Build(loadSite(t, "vroom-be"), content.Snapshot{
		Tags:   []content.Tag{{ID: 1, Slug: "suv"}},
		Brands: []content.Brand{{ID: 1, Slug: "bmw"}},
	})

	assert.Equal(t, []string{
		"https://www.vroom.be/fr/tag/suv",
		"https://www.vroom.be/nl/tag/suv",
	}, locs(*out.Tags))
	assert.Equal(t, "0.7", out.Tags.URLs[0].Priority)

	assert.Equal(t, []string{
		"https://www.vroom.be/fr/information/bmw",
		"https://www.vroom.be/nl/informatie/bmw",
		"https://www.vroom.be/fr/bmw",
		"https://www.vroom.be/nl/bmw",
	}, locs(*out.Brands))
	assert.Equal(t, "0.8", out.Brands.URLs[0].Priority)
}

func TestBuild_Series(t *testing.T) {
	out := Build(loadSite(t, "vroom-be"), content.Snapshot{
		Brands: []content.Brand{{ID: 1, Slug: "bmw"}, {ID: 2, Slug: "audi"}},
		Series: [][]content.Series{
			{
				{ID: 10, BrandID: 1, Slug: "serie-3", Language: "fr"},
				{ID: 11, BrandID: 1, Slug: "x5", Language: "nl"},
			},
			{
				{ID: 20, BrandID: 2, Slug: "a4", Language: "nl", IsTrending: true},
			},
		},
	})

	require.NotNil(t, out.Series)
	assert.Equal(t, "series-sitemap.xml", out.Series.Name)
	assert.Equal(t, []string{
		"https://www.vroom.be/fr/bmw/serie-3",
		"https://www.vroom.be/nl/bmw/x5",
		"https://www.vroom.be/nl/audi/a4",
	}, locs(*out.Series))
}

func TestBuild_NewsAndFeeds(t *testing.T) {
	published := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	out := Build(loadSite(t, "vroom-be"), content.Snapshot{
		Recent: []content.Article{
			{Slug: "essai", Language: "fr", PublishedAt: ptr(published), MetaTitle: ptr("Essai"), MetaDescription: ptr("<p>Rapide &amp; sobre</p>")},
			{Slug: "test", Language: "nl", PublishedAt: ptr(published.Add(time.Hour)), MetaTitle: ptr("Test")},
			{Slug: "fahrbericht", Language: "de", PublishedAt: ptr(published), MetaTitle: ptr("Fahrbericht")},
			{Slug: "undated", Language: "fr", MetaTitle: ptr("Undated")},
		},
	})

	require.NotNil(t, out.News)
	require.Len(t, out.News.URLs, 3)
	assert.Equal(t, sitemap.URL{
		Loc: "https://www.vroom.be/fr/information/essai",
		News: &sitemap.News{
			PublicationName:     "Vroom",
			PublicationLanguage: "fr",
			PublicationDate:     "2024-01-05",
			Title:               "Essai",
		},
	}, out.News.URLs[0])
	assert.Equal(t, "https://www.vroom.be/nl/informatie/fahrbericht", out.News.URLs[2].Loc)
	assert.Equal(t, "de", out.News.URLs[2].News.PublicationLanguage)

	require.Len(t, out.Feeds, 2)
	assert.Equal(t, []string{"fr-rss.xml", "nl-rss.xml"}, names(out.Feeds))

	fr := out.Feeds[0].Channel
	require.Len(t, fr.Items, 1)
	assert.Equal(t, sitemap.Item{
		Title:       "Essai",
		Link:        "https://www.vroom.be/fr/information/essai",
		Description: "Rapide & sobre",
		PubDate:     "Fri, 05 Jan 2024 10:00:00 GMT",
		GUID:        "https://www.vroom.be/fr/information/essai",
	}, fr.Items[0])
	assert.Equal(t, "https://www.vroom.be/fr", fr.Link)

	nl := out.Feeds[1].Channel
	require.Len(t, nl.Items, 1)
	assert.Equal(t, "", nl.Items[0].Description)
	assert.Equal(t, "Fri, 05 Jan 2024 11:00:00 GMT", nl.Items[0].PubDate)

	assert.Equal(t, 1, out.Stats.Undated)
	assert.Equal(t, 1, out.Stats.Unrouted)
}

func TestBuild_CatchAllFeed(t *testing.T) {
	published := time.Date(2024, 1, 5, 23, 30, 0, 0, time.FixedZone("CET", 3600))
	out := Build(loadSite(t, "autokopen-nl"), content.Snapshot{
		Recent: []content.Article{
			{Slug: "een", Language: "nl", PublishedAt: ptr(published)},
			{Slug: "one", Language: "en", PublishedAt: ptr(published)},
		},
	})

	require.Len(t, out.Feeds, 1)
	assert.Len(t, out.Feeds[0].Channel.Items, 2)
	assert.Equal(t, 0, out.Stats.Unrouted)

	require.Len(t, out.News.URLs, 2)
	assert.Equal(t, "https://www.autokopen.nl/nieuws/een", out.News.URLs[0].Loc)
	assert.Equal(t, "Autokopen", out.News.URLs[0].News.PublicationName)
	// Dates are taken in UTC.
	assert.Equal(t, "2024-01-05", out.News.URLs[0].News.PublicationDate)
	assert.Equal(t, "Fri, 05 Jan 2024 22:30:00 GMT", out.Feeds[0].Channel.Items[0].PubDate)
}

func TestBuild_EmptySnapshotStillProducesDocuments(t *testing.T) {
	out := Build(loadSite(t, "vroom-be"), content.Snapshot{})

	require.Len(t, out.Media, 1)
	assert.Equal(t, "media-sitemap-0001.xml", out.Media[0].Name)
	assert.Empty(t, out.Media[0].URLs)
	require.Len(t, out.Listings, 1)
	assert.Empty(t, out.Listings[0].URLs)

	for _, d := range []*sitemap.Document{out.Tags, out.Brands, out.Series, out.News, out.Index} {
		require.NotNil(t, d)
	}
	require.Len(t, out.Feeds, 2)
	for _, f := range out.Feeds {
		require.NotNil(t, f.Channel)
		assert.Empty(t, f.Channel.Items)
	}

	for _, d := range out.Documents() {
		byts, err := sitemap.Encode(d)
		require.NoError(t, err, d.Name)

		got, err := sitemap.Parse(d.Name, d.Kind, byts)
		require.NoError(t, err, d.Name)
		assert.Equal(t, d, got, d.Name)
	}
}

func TestBuild_Index(t *testing.T) {
	s := loadSite(t, "vroom-be")
	s.PageSize = 2

	out := Build(s, content.Snapshot{
		Articles: []content.Article{{Slug: "a", Language: "fr"}, {Slug: "b", Language: "fr"}, {Slug: "c", Language: "fr"}},
		Listings: []content.Listing{{Slug: "golf", VehicleStatus: "1"}},
	})

	require.NotNil(t, out.Index)
	assert.Equal(t, sitemap.KindIndex, out.Index.Kind)
	assert.Equal(t, []string{
		"https://www.vroom.be/static-sitemap.xml",
		"https://www.vroom.be/news-sitemap.xml",
		"https://www.vroom.be/media-sitemap-0001.xml",
		"https://www.vroom.be/media-sitemap-0002.xml",
		"https://www.vroom.be/listings-sitemap-0001.xml",
		"https://www.vroom.be/tags-sitemap.xml",
		"https://www.vroom.be/brands-sitemap.xml",
	}, out.Index.Sitemaps)

	// Everything the index points at, other than the static file, is produced by this run.
	produced := map[string]bool{}
	for _, d := range out.Documents() {
		produced[s.URL(d.Name)] = true
	}
	for _, loc := range out.Index.Sitemaps[1:] {
		assert.True(t, produced[loc], loc)
	}
}

func TestOutput_Groups(t *testing.T) {
	s := loadSite(t, "vroom-be")
	s.PageSize = 1

	out := Build(s, content.Snapshot{
		Articles: []content.Article{{Slug: "a", Language: "fr"}, {Slug: "b", Language: "fr"}},
	})

	groups := out.Groups()
	var got [][]string
	for _, g := range groups {
		got = append(got, names(g))
	}
	assert.Equal(t, [][]string{
		{"media-sitemap-0001.xml", "media-sitemap-0002.xml"},
		{"listings-sitemap-0001.xml"},
		{"tags-sitemap.xml"},
		{"brands-sitemap.xml"},
		{"series-sitemap.xml"},
		{"news-sitemap.xml"},
		{"fr-rss.xml", "nl-rss.xml"},
		{"sitemapindex.xml"},
	}, got)
}

func TestBuild_LocsAreAbsoluteAndEscaped(t *testing.T) {
	out := Build(loadSite(t, "vroom-be"), content.Snapshot{
		Tags: []content.Tag{{ID: 1, Slug: "a&b <c>"}},
	})

	for _, loc := range locs(*out.Tags) {
		assert.True(t, strings.HasPrefix(loc, "https://www.vroom.be/"), loc)
	}

	byts, err := sitemap.Encode(*out.Tags)
	require.NoError(t, err)
	assert.NotContains(t, string(byts), "a&b")
	assert.NotContains(t, string(byts), "<c>")
}

func TestBuild_TitlesKeepAngleBrackets(t *testing.T) {
	published := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	out := Build(loadSite(t, "autokopen-nl"), content.Snapshot{
		Recent: []content.Article{
			{Slug: "golf", Language: "nl", PublishedAt: &published, MetaTitle: ptr("De <nieuwe> Golf"), MetaDescription: ptr("BMW<X5")},
		},
	})

	require.NotNil(t, out.News)
	require.Len(t, out.News.URLs, 1)
	assert.Equal(t, "De <nieuwe> Golf", out.News.URLs[0].News.Title)

	require.Len(t, out.Feeds, 1)
	require.Len(t, out.Feeds[0].Channel.Items, 1)
	assert.Equal(t, "De <nieuwe> Golf", out.Feeds[0].Channel.Items[0].Title)
	assert.Equal(t, "BMW<X5", out.Feeds[0].Channel.Items[0].Description)

	byts, err := sitemap.Encode(out.Feeds[0])
	require.NoError(t, err)
	assert.Contains(t, string(byts), "De &lt;nieuwe&gt; Golf")
	assert.Contains(t, string(byts), "BMW&lt;X5")
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"  plain  ":                    "plain",
		"<p>Hello &amp; bye</p>":       "Hello & bye",
		"qu'il faut":                   "qu'il faut",
		"<script>alert(1)</script>Lol": "Lol",
		"Nieuw: <b>BMW</b> X5":         "Nieuw: BMW X5",
		"Lijn<br/>breuk":               "Lijnbreuk",
		"De <nieuwe> Golf":             "De <nieuwe> Golf",
		"BMW<X5":                       "BMW<X5",
		"Audi A3 < 20.000 euro":        "Audi A3 < 20.000 euro",
		"Rijden &amp; testen":          "Rijden &amp; testen",
	}

	for in, want := range tests {
		assert.Equal(t, want, sanitize(in), in)
	}
}
