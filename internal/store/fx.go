package store

import (
	"go.uber.org/fx"

	"github.com/vroom-be/sitemaps/internal/content"
)

var Module = fx.Module("store",
	fx.Provide(
		NewDB,
		fx.Annotate(New, fx.As(new(content.Reader))),
	),
)
