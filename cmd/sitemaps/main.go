// Sitemaps generates the sitemaps, news sitemap and RSS feeds of a site
// and publishes them to the bucket the CDN serves from.
//
// Without a schedule it does a single run and exits non-zero when the run
// fails. With one it keeps running and generates on every tick.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/robfig/cron/v3"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	_ "golang.org/x/crypto/x509roots/fallback"

	runerrs "github.com/vroom-be/sitemaps/internal/errors"
	"github.com/vroom-be/sitemaps/internal/logger"
	"github.com/vroom-be/sitemaps/internal/pipeline"
	"github.com/vroom-be/sitemaps/internal/publish"
	"github.com/vroom-be/sitemaps/internal/site"
	"github.com/vroom-be/sitemaps/internal/store"
)

type config struct {
	// One of the built-in sites, or a path to a site file.
	Site     string `env:"SITE"`
	SiteFile string `env:"SITE_FILE"`

	DBHost         string        `env:"DB_HOST, required"`
	DBPort         int           `env:"DB_PORT, default=5432"`
	DBUser         string        `env:"DB_USER, required"`
	DBPassword     string        `env:"DB_PASSWORD"`
	DBName         string        `env:"DB_NAME, required"`
	DBSSLMode      string        `env:"DB_SSLMODE, default=require"`
	ConnectRetries uint64        `env:"CONNECT_RETRIES, default=0"`
	ConnectBackoff time.Duration `env:"CONNECT_BACKOFF, default=1s"`

	S3Bucket        string `env:"S3_BUCKET, default=vroom-be"`
	S3Endpoint      string `env:"S3_ENDPOINT, default=https://fra1.digitaloceanspaces.com"`
	S3Region        string `env:"S3_REGION, default=us-east-1"`
	S3PathStyle     bool   `env:"S3_PATH_STYLE, default=false"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	StagingDir    string        `env:"STAGING_DIR, default=out"`
	QueryTimeout  time.Duration `env:"QUERY_TIMEOUT, default=1m"`
	UploadTimeout time.Duration `env:"UPLOAD_TIMEOUT, default=1m"`
	RecentWindow  time.Duration `env:"RECENT_WINDOW, default=48h"`
	Concurrency   int           `env:"CONCURRENCY, default=8"`

	// Cron expression. Empty runs once.
	Schedule string `env:"SCHEDULE"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	l := logger.New(os.Stdout, cfg.LoggerFormat)
	slog.SetDefault(l)

	s, err := loadSite(cfg)
	if err != nil {
		log.Fatalf("error loading site: %s", err)
	}

	if cfg.Schedule == "" {
		if err := runOnce(ctx, cfg, s); err != nil {
			slog.Error("run failed", "site", s.Name, "stage", runerrs.StageOf(err), "error", err)
			cancel()
			os.Exit(1)
		}
		return
	}

	if err := schedule(ctx, cfg, s, l); err != nil {
		log.Fatalf("error running schedule: %s", err)
	}
}

func loadSite(cfg config) (site.Site, error) {
	switch {
	case cfg.SiteFile != "":
		return site.LoadFile(cfg.SiteFile)
	case cfg.Site != "":
		return site.Load(cfg.Site)
	default:
		return site.Site{}, errors.New("SITE or SITE_FILE is required")
	}
}

// Builds a fresh application for a single run, so nothing is shared between
// runs. The database is closed before this returns, whatever the outcome.
func runOnce(ctx context.Context, cfg config, s site.Site) error {
	var p *pipeline.Pipeline
	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.SlogLogger{Logger: slog.Default()}
		}),
		fx.Supply(
			s,
			store.Config{
				Host:           cfg.DBHost,
				Port:           cfg.DBPort,
				User:           cfg.DBUser,
				Password:       cfg.DBPassword,
				Name:           cfg.DBName,
				SSLMode:        cfg.DBSSLMode,
				ConnectRetries: cfg.ConnectRetries,
				ConnectBackoff: cfg.ConnectBackoff,
			},
			publish.S3Config{
				Endpoint:        cfg.S3Endpoint,
				Region:          cfg.S3Region,
				AccessKeyID:     cfg.AccessKeyID,
				SecretAccessKey: cfg.SecretAccessKey,
				PathStyle:       cfg.S3PathStyle,
			},
			publish.Config{
				Bucket:     cfg.S3Bucket,
				KeyPrefix:  s.KeyPrefix,
				StagingDir: cfg.StagingDir,
			},
			pipeline.Config{
				QueryTimeout:  cfg.QueryTimeout,
				UploadTimeout: cfg.UploadTimeout,
				Concurrency:   cfg.Concurrency,
				RecentWindow:  cfg.RecentWindow,
			},
			fx.Annotate(ctx, fx.As(new(context.Context))),
		),
		store.Module,
		publish.Module,
		pipeline.Module,
		fx.Provide(func(p *publish.Publisher) pipeline.Publisher { return p }),
		// The uploader comes first so a bad S3 config fails before the
		// database is opened.
		fx.Invoke(func(pipeline.Publisher) {}),
		fx.Populate(&p),
	)
	if err := app.Err(); err != nil {
		return runerrs.E(runerrs.StageConnect, fmt.Errorf("error building app: %w", err))
	}

	if err := app.Start(ctx); err != nil {
		return runerrs.E(runerrs.StageConnect, err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()

		if err := app.Stop(stopCtx); err != nil {
			slog.Warn("error stopping app", "error", err)
		}
	}()

	_, err := p.Run(ctx)
	return err
}

// Runs on the cron schedule until interrupted. A tick that comes while the
// previous run is still going is skipped.
func schedule(ctx context.Context, cfg config, s site.Site, l *slog.Logger) error {
	cronLog := cron.PrintfLogger(slog.NewLogLogger(l.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.SkipIfStillRunning(cronLog)),
	)

	jobCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()

	if _, err := c.AddFunc(cfg.Schedule, func() {
		if err := runOnce(jobCtx, cfg, s); err != nil {
			slog.Error("run failed", "site", s.Name, "stage", runerrs.StageOf(err), "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	c.Start()
	slog.Info("scheduled", "site", s.Name, "schedule", cfg.Schedule)

	var g run.Group
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))
	g.Add(func() error {
		<-jobCtx.Done()
		return nil
	}, func(error) {
		stopJobs()
	})

	err := g.Run()

	// Wait for a run in flight to tear down.
	<-c.Stop().Done()
	slog.Info("stopped")

	var sigErr run.SignalError
	if errors.As(err, &sigErr) || errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
