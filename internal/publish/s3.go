// Package publish uploads exported graph directories to object storage.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapgraph/internal/export"
)

// DefaultConcurrency is the number of objects uploaded at once.
const DefaultConcurrency = 4

// Uploader publishes an export directory and returns the object URIs.
type Uploader interface {
	Upload(ctx context.Context, dir string) ([]string, error)
}

// PutObjectAPI is the part of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures an S3Uploader.
type S3Config struct {
	Bucket string
	// Prefix is prepended to every object key
	Prefix string
	Region string
	// Endpoint selects an S3-compatible service and path-style addressing
	Endpoint string
	// AccessKey and SecretKey override the default credential chain
	AccessKey   string
	SecretKey   string
	Concurrency int
}

// S3Uploader uploads the tables listed in an export manifest, plus the
// manifest itself.
type S3Uploader struct {
	client PutObjectAPI
	cfg    S3Config
	logger *slog.Logger
}

// NewS3Uploader builds an S3 client from cfg and the default AWS
// configuration sources.
func NewS3Uploader(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("upload bucket is required")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(cfg.Endpoint))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})
	return NewS3UploaderWithClient(client, cfg, logger), nil
}

// NewS3UploaderWithClient wraps an existing client.
func NewS3UploaderWithClient(client PutObjectAPI, cfg S3Config, logger *slog.Logger) *S3Uploader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &S3Uploader{client: client, cfg: cfg, logger: logger}
}

// Key returns the object key for a file of the export directory.
func (u *S3Uploader) Key(file string) string {
	prefix := strings.Trim(u.cfg.Prefix, "/")
	if prefix == "" {
		return file
	}
	return path.Join(prefix, file)
}

// Upload publishes dir. Only files named by the manifest are sent, so
// unrelated files in the directory stay local.
func (u *S3Uploader) Upload(ctx context.Context, dir string) ([]string, error) {
	manifest, err := export.ReadManifest(filepath.Join(dir, export.ManifestFile))
	if err != nil {
		return nil, err
	}
	files := append(manifest.Files(), export.ManifestFile)

	uris := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Concurrency)
	for i, name := range files {
		g.Go(func() error {
			key := u.Key(name)
			if err := u.put(gctx, filepath.Join(dir, name), key); err != nil {
				return err
			}
			uris[i] = fmt.Sprintf("s3://%s/%s", u.cfg.Bucket, key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	u.logger.Info("export uploaded", "bucket", u.cfg.Bucket, "prefix", u.cfg.Prefix, "objects", len(uris))
	return uris, nil
}

func (u *S3Uploader) put(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(file))
	if contentType == "" {
		contentType = "text/csv"
	}

	u.logger.Debug("uploading object", "bucket", u.cfg.Bucket, "key", key)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return nil
}

var _ Uploader = (*S3Uploader)(nil)
