// Package pipeline runs one generation for a site: read the content, build
// the documents, stage them and publish them.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vroom-be/sitemaps/internal/assemble"
	"github.com/vroom-be/sitemaps/internal/content"
	runerrs "github.com/vroom-be/sitemaps/internal/errors"
	"github.com/vroom-be/sitemaps/internal/logger"
	"github.com/vroom-be/sitemaps/internal/site"
	"github.com/vroom-be/sitemaps/internal/sitemap"
)

// DefaultRecentWindow is how far back the news sitemap and feeds look.
const DefaultRecentWindow = 48 * time.Hour

type (
	// Publisher stores a serialized document and sends it to the bucket.
	Publisher interface {
		Stage(name string, data []byte) error
		Upload(ctx context.Context, name, contentType string) (string, error)
	}

	Config struct {
		// Zero timeouts leave the deadline to the caller's context.
		QueryTimeout  time.Duration
		UploadTimeout time.Duration
		// Upper bound on uploads and series lookups in flight. Zero is unbounded.
		Concurrency  int
		RecentWindow time.Duration
	}

	// Pipeline is a configured run for a single site. It holds no state
	// between runs.
	Pipeline struct {
		site   site.Site
		reader content.Reader
		pub    Publisher
		cfg    Config
		now    func() time.Time
	}

	// Report is what a successful run did, for logging.
	Report struct {
		RunID    string
		Site     string
		Uploaded []Upload
		Stats    assemble.Stats
		Elapsed  time.Duration
	}

	Upload struct {
		Name     string
		Location string
	}
)

func New(s site.Site, r content.Reader, p Publisher, cfg Config) *Pipeline {
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = DefaultRecentWindow
	}

	return &Pipeline{
		site:   s,
		reader: r,
		pub:    p,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Run generates and publishes every document of the site. The first
// failure stops the run and comes back as a [runerrs.Error].
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	start := p.now()
	report := Report{
		RunID: uuid.NewString(),
		Site:  p.site.Name,
	}
	ctx = logger.Ctx(ctx, slog.String("run_id", report.RunID), slog.String("site", p.site.Name))
	slog.InfoContext(ctx, "starting run")

	if err := p.site.Validate(); err != nil {
		return report, runerrs.E(runerrs.StageAssemble, fmt.Errorf("invalid site: %w", err))
	}

	snap, err := p.read(ctx, start)
	if err != nil {
		return report, err
	}

	out := assemble.Build(p.site, snap)
	report.Stats = out.Stats
	p.logStats(ctx, out.Stats)

	groups := out.Groups()
	for _, g := range groups {
		for _, d := range g {
			if err := p.stage(d); err != nil {
				return report, err
			}
		}
	}

	for _, g := range groups {
		uploaded, err := p.upload(ctx, g)
		if err != nil {
			return report, err
		}
		report.Uploaded = append(report.Uploaded, uploaded...)
	}

	report.Elapsed = p.now().Sub(start)
	slog.InfoContext(ctx, "run finished", "documents", len(report.Uploaded), "elapsed", report.Elapsed)

	return report, nil
}

// Reads every collection the site has turned on.
func (p *Pipeline) read(ctx context.Context, now time.Time) (content.Snapshot, error) {
	var (
		snap content.Snapshot
		s    = p.site
	)

	if s.Media.Enabled() {
		if err := p.query(ctx, "articles", func(ctx context.Context) (err error) {
			snap.Articles, err = p.reader.Articles(ctx, content.ArticleQuery{
				Order: s.MediaOrder,
				Limit: p.limit(),
			})
			return err
		}); err != nil {
			return snap, err
		}
		snap.Articles = p.truncate(ctx, "articles", snap.Articles)
	}

	if s.News.Enabled() || len(s.Feeds) > 0 {
		if err := p.query(ctx, "recent articles", func(ctx context.Context) (err error) {
			snap.Recent, err = p.reader.RecentArticles(ctx, content.RecentQuery{
				Since: now.Add(-p.cfg.RecentWindow),
				Limit: p.limit(),
			})
			return err
		}); err != nil {
			return snap, err
		}
		snap.Recent = p.truncate(ctx, "recent articles", snap.Recent)
	}

	if s.Listings.Enabled() {
		if err := p.query(ctx, "listings", func(ctx context.Context) (err error) {
			snap.Listings, err = p.reader.Listings(ctx, content.DefaultListingQuery)
			return err
		}); err != nil {
			return snap, err
		}
	}

	if s.Tags.Enabled() {
		if err := p.query(ctx, "tags", func(ctx context.Context) (err error) {
			snap.Tags, err = p.reader.ActiveTags(ctx)
			return err
		}); err != nil {
			return snap, err
		}
	}

	if s.Brands.Enabled() || s.Series.Enabled() {
		if err := p.query(ctx, "brands", func(ctx context.Context) (err error) {
			snap.Brands, err = p.reader.DisplayedBrands(ctx)
			return err
		}); err != nil {
			return snap, err
		}
	}

	if s.Series.Enabled() {
		series, err := p.series(ctx, snap.Brands)
		if err != nil {
			return snap, err
		}
		snap.Series = series
	}

	slog.DebugContext(ctx, "read content",
		"articles", len(snap.Articles),
		"recent", len(snap.Recent),
		"listings", len(snap.Listings),
		"tags", len(snap.Tags),
		"brands", len(snap.Brands),
	)

	return snap, nil
}

// Looks up the series of every brand, all joined before returning.
func (p *Pipeline) series(ctx context.Context, brands []content.Brand) ([][]content.Series, error) {
	series := make([][]content.Series, len(brands))

	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.Concurrency > 0 {
		g.SetLimit(p.cfg.Concurrency)
	}
	for i, b := range brands {
		i, b := i, b // per-iteration copies (go.mod targets go 1.21)
		g.Go(func() error {
			return p.query(gctx, "series of brand "+b.Slug, func(ctx context.Context) (err error) {
				series[i], err = p.reader.SeriesByBrand(ctx, b.ID)
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return series, nil
}

func (p *Pipeline) query(ctx context.Context, what string, fn func(ctx context.Context) error) error {
	if p.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.QueryTimeout)
		defer cancel()
	}

	if err := fn(ctx); err != nil {
		return runerrs.E(runerrs.StageQuery, fmt.Errorf("error reading %s: %w", what, err))
	}

	return nil
}

// One more than the cap, so a cut can be noticed.
func (p *Pipeline) limit() uint64 {
	if p.site.MaxItems <= 0 {
		return 0
	}

	return uint64(p.site.MaxItems) + 1
}

func (p *Pipeline) truncate(ctx context.Context, what string, articles []content.Article) []content.Article {
	n := p.site.MaxItems
	if n <= 0 || len(articles) <= n {
		return articles
	}

	slog.WarnContext(ctx, "collection is over the cap, dropping the rest",
		"collection", what,
		"max_items", n,
		"dropped", len(articles)-n,
	)

	return articles[:n]
}

func (p *Pipeline) logStats(ctx context.Context, st assemble.Stats) {
	if st == (assemble.Stats{}) {
		return
	}

	slog.WarnContext(ctx, "rows left out of the documents",
		"unknown_status", st.UnknownStatus,
		"unknown_language", st.UnknownLanguage,
		"undated", st.Undated,
		"unrouted", st.Unrouted,
	)
}

func (p *Pipeline) stage(d sitemap.Document) error {
	byts, err := sitemap.Encode(d)
	if err != nil {
		return runerrs.E(runerrs.StageEncode, runerrs.Doc(d.Name), err)
	}
	if err := p.pub.Stage(d.Name, byts); err != nil {
		return runerrs.E(runerrs.StageWrite, runerrs.Doc(d.Name), err)
	}

	return nil
}

// Uploads one group concurrently. Results keep the group's order.
func (p *Pipeline) upload(ctx context.Context, docs []sitemap.Document) ([]Upload, error) {
	uploaded := make([]Upload, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.Concurrency > 0 {
		g.SetLimit(p.cfg.Concurrency)
	}
	for i, d := range docs {
		i, d := i, d // per-iteration copies (go.mod targets go 1.21)
		g.Go(func() error {
			ctx := logger.Ctx(gctx, slog.String("document", d.Name))
			if p.cfg.UploadTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, p.cfg.UploadTimeout)
				defer cancel()
			}

			loc, err := p.pub.Upload(ctx, d.Name, d.ContentType())
			if err != nil {
				return runerrs.E(runerrs.StageUpload, runerrs.Doc(d.Name), err)
			}
			uploaded[i] = Upload{Name: d.Name, Location: loc}

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return uploaded, nil
}
