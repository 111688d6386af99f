package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/vroom-be/sitemaps/internal/content"
)

// Articles returns every published media row, ordered by id.
func (r Repo) Articles(ctx context.Context, q content.ArticleQuery) ([]content.Article, error) {
	order := "id ASC"
	if q.Order == content.OrderDesc {
		order = "id DESC"
	}

	b := r.sb.Select("slug", "language").
		From("media").
		Where(sq.Eq{"is_published": true}).
		OrderBy(order)
	if q.Limit > 0 {
		b = b.Limit(q.Limit)
	}

	var articles []content.Article
	if err := r.selectInto(ctx, &articles, b); err != nil {
		return nil, fmt.Errorf("error selecting articles: %w", err)
	}

	return articles, nil
}

// RecentArticles returns the published media rows with a publish date on or after q.Since.
func (r Repo) RecentArticles(ctx context.Context, q content.RecentQuery) ([]content.Article, error) {
	b := r.sb.Select("slug", "published_at", "created_at", "meta_title", "meta_description", "language").
		From("media").
		Where(sq.Eq{"is_published": true}).
		Where(sq.GtOrEq{"published_at": q.Since})
	if q.Limit > 0 {
		b = b.Limit(q.Limit)
	}

	var articles []content.Article
	if err := r.selectInto(ctx, &articles, b); err != nil {
		return nil, fmt.Errorf("error selecting recent articles: %w", err)
	}

	return articles, nil
}

func (r Repo) Listings(ctx context.Context, q content.ListingQuery) ([]content.Listing, error) {
	b := r.sb.Select("vehicle_status_id", "slug").
		From("listings").
		Where(sq.Eq{"is_published": true}).
		Where(sq.GtOrEq{"mileage": q.MinMileage}).
		Where(sq.GtOrEq{"price": q.MinPrice})

	var listings []content.Listing
	if err := r.selectInto(ctx, &listings, b); err != nil {
		return nil, fmt.Errorf("error selecting listings: %w", err)
	}

	return listings, nil
}

func (r Repo) ActiveTags(ctx context.Context) ([]content.Tag, error) {
	b := r.sb.Select("id", "slug").From("tags").Where(sq.Eq{"is_active": true})

	var tags []content.Tag
	if err := r.selectInto(ctx, &tags, b); err != nil {
		return nil, fmt.Errorf("error selecting tags: %w", err)
	}

	return tags, nil
}

// DisplayedBrands returns the brands shown in the brand drop down.
func (r Repo) DisplayedBrands(ctx context.Context) ([]content.Brand, error) {
	b := r.sb.Select("id", "slug").From("brands").Where(sq.Eq{"drop_down_presence": true})

	var brands []content.Brand
	if err := r.selectInto(ctx, &brands, b); err != nil {
		return nil, fmt.Errorf("error selecting brands: %w", err)
	}

	return brands, nil
}

func (r Repo) SeriesByBrand(ctx context.Context, brandID int64) ([]content.Series, error) {
	b := r.sb.Select("id", "brand_id", "slug", "language", "is_trending").
		From("car_database_series").
		Where(sq.Eq{"brand_id": brandID})

	var series []content.Series
	if err := r.selectInto(ctx, &series, b); err != nil {
		return nil, fmt.Errorf("error selecting series for brand %d: %w", brandID, err)
	}

	return series, nil
}

func (r Repo) selectInto(ctx context.Context, dest any, b sq.SelectBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}

	return r.db.SelectContext(ctx, dest, query, args...)
}
