// Package publish stages generated documents on disk and uploads them to
// the public bucket.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// CacheControl is how long clients and the CDN may keep a document.
const CacheControl = "max-age=600"

// Uploader is the part of [manager.Uploader] the publisher needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type Config struct {
	Bucket     string
	KeyPrefix  string
	StagingDir string
}

// Publisher writes documents to the staging directory and sends them on
// to the bucket. Uploads are attempted once.
type Publisher struct {
	cfg      Config
	uploader Uploader
}

func New(cfg Config, u Uploader) *Publisher {
	return &Publisher{
		cfg:      cfg,
		uploader: u,
	}
}

// Key is the object key of a document.
func (p *Publisher) Key(name string) string {
	return path.Join(p.cfg.KeyPrefix, name)
}

// Stage writes the serialized document to the staging directory.
func (p *Publisher) Stage(name string, data []byte) error {
	if err := os.MkdirAll(p.cfg.StagingDir, 0o755); err != nil {
		return fmt.Errorf("error creating staging directory: %w", err)
	}
	if err := os.WriteFile(p.stagedPath(name), data, 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", name, err)
	}

	return nil
}

// Upload sends a staged document to the bucket, publicly readable, and
// returns its location. The staged file is left in place either way.
func (p *Publisher) Upload(ctx context.Context, name, contentType string) (string, error) {
	f, err := os.Open(p.stagedPath(name))
	if err != nil {
		return "", fmt.Errorf("error opening staged %s: %w", name, err)
	}
	defer f.Close()

	out, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.cfg.Bucket),
		Key:          aws.String(p.Key(name)),
		Body:         f,
		ACL:          types.ObjectCannedACLPublicRead,
		CacheControl: aws.String(CacheControl),
		ContentType:  aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading %s: %w", name, err)
	}
	slog.InfoContext(ctx, "successfully uploaded", "location", out.Location)

	return out.Location, nil
}

func (p *Publisher) stagedPath(name string) string {
	return filepath.Join(p.cfg.StagingDir, name)
}
