package store

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sethvargo/go-retry"
	"go.uber.org/fx"
)

// Config holds the connection details of the content database.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	// How many times a failed ping is retried before giving up. Zero means
	// a single attempt.
	ConnectRetries uint64
	ConnectBackoff time.Duration
}

// DSN renders the config as a lib/pq connection url.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()

	return u.String()
}

// NewDB opens the content database. The connection is checked when the
// lifecycle starts and closed when it stops.
func NewDB(lc fx.Lifecycle, cfg Config) (*sqlx.DB, error) {
	dbx, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// A failed start never reaches OnStop, so the pool is released here.
			if err := Ping(ctx, dbx, cfg.ConnectRetries, cfg.ConnectBackoff); err != nil {
				dbx.Close()
				return err
			}
			slog.InfoContext(ctx, "connection has been established", "host", cfg.Host, "database", cfg.Name)

			return nil
		},
		OnStop: func(ctx context.Context) error {
			return dbx.Close()
		},
	})

	return dbx, nil
}

// Ping checks the connection, retrying on a fibonacci backoff at most retries times.
func Ping(ctx context.Context, dbx *sqlx.DB, retries uint64, backoff time.Duration) error {
	if backoff <= 0 {
		backoff = time.Second
	}

	b := retry.WithMaxRetries(retries, retry.NewFibonacci(backoff))
	if err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := dbx.PingContext(ctx); err != nil {
			slog.WarnContext(ctx, "database ping failed", "error", err)
			return retry.RetryableError(err)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	return nil
}
