package publish

import "go.uber.org/fx"

var Module = fx.Module("publish",
	fx.Provide(
		fx.Annotate(NewS3Uploader, fx.As(new(Uploader))),
		New,
	),
)
