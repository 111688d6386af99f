// Package content holds the rows the sitemaps are built from and the
// surface for reading them.
package content

import (
	"context"
	"time"
)

type (
	// Article is a published media row: a news item or an editorial piece.
	Article struct {
		ID              int64      `db:"id"`
		Slug            string     `db:"slug"`
		Language        string     `db:"language"`
		PublishedAt     *time.Time `db:"published_at"`
		CreatedAt       *time.Time `db:"created_at"`
		MetaTitle       *string    `db:"meta_title"`
		MetaDescription *string    `db:"meta_description"`
	}

	// Listing is a vehicle for sale.
	Listing struct {
		Slug          string `db:"slug"`
		VehicleStatus string `db:"vehicle_status_id"`
	}

	Tag struct {
		ID   int64  `db:"id"`
		Slug string `db:"slug"`
	}

	Brand struct {
		ID   int64  `db:"id"`
		Slug string `db:"slug"`
	}

	// Series is a car model line belonging to exactly one brand.
	Series struct {
		ID         int64  `db:"id"`
		BrandID    int64  `db:"brand_id"`
		Slug       string `db:"slug"`
		Language   string `db:"language"`
		IsTrending bool   `db:"is_trending"`
	}

	// Snapshot is everything one run reads. Series[i] belongs to Brands[i].
	Snapshot struct {
		Articles []Article
		Recent   []Article
		Listings []Listing
		Tags     []Tag
		Brands   []Brand
		Series   [][]Series
	}
)

// Title returns the meta title, or an empty string.
func (a Article) Title() string {
	if a.MetaTitle == nil {
		return ""
	}

	return *a.MetaTitle
}

// Description returns the meta description, or an empty string.
func (a Article) Description() string {
	if a.MetaDescription == nil {
		return ""
	}

	return *a.MetaDescription
}

// Order is the id ordering of the main article collection.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

type (
	// ArticleQuery narrows the published article read.
	ArticleQuery struct {
		Order Order
		Limit uint64 // 0 means no limit
	}

	// RecentQuery narrows the recently published article read.
	RecentQuery struct {
		Since time.Time
		Limit uint64
	}

	// ListingQuery holds the thresholds a listing has to meet to be in a sitemap.
	ListingQuery struct {
		MinMileage int64
		MinPrice   int64
	}
)

// DefaultListingQuery matches what's listed on the sites.
var DefaultListingQuery = ListingQuery{
	MinMileage: 0,
	MinPrice:   800,
}

// Reader is the read-only surface over the content database.
type Reader interface {
	Articles(ctx context.Context, q ArticleQuery) ([]Article, error)
	RecentArticles(ctx context.Context, q RecentQuery) ([]Article, error)
	Listings(ctx context.Context, q ListingQuery) ([]Listing, error)
	ActiveTags(ctx context.Context) ([]Tag, error)
	DisplayedBrands(ctx context.Context) ([]Brand, error)
	SeriesByBrand(ctx context.Context, brandID int64) ([]Series, error)
}
