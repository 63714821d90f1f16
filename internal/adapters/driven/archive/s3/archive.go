// Package s3 archives fetched page text to an S3 bucket.
package s3

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driven"
)

// Ensure Archive implements the interface.
var _ driven.DocumentArchive = (*Archive)(nil)

// Default configuration values.
const (
	DefaultUploadTimeout = 2 * time.Minute
	contentType          = "text/plain; charset=utf-8"
	hashLength           = 16
)

// Config holds S3 archive settings.
type Config struct {
	// Bucket is the destination bucket (required).
	Bucket string

	// Region is the bucket region (required).
	Region string

	// Prefix is prepended to every object key.
	Prefix string

	// AccessKeyID and SecretAccessKey select static credentials.
	// When empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint overrides the S3 endpoint, e.g. for MinIO. Path-style
	// addressing is used when set.
	Endpoint string

	// UploadTimeout bounds each upload (default: 2m).
	UploadTimeout time.Duration
}

// uploader is the subset of manager.Uploader used by the archive.
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Archive uploads document snapshots with the S3 upload manager.
type Archive struct {
	uploader uploader
	bucket   string
	prefix   string
	timeout  time.Duration
}

// New loads AWS configuration and creates an archive.
func New(ctx context.Context, cfg Config) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: archive bucket not set", domain.ErrInvalidConfig)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("%w: AWS_REGION not set", domain.ErrInvalidConfig)
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newArchive(manager.NewUploader(client), cfg), nil
}

func newArchive(u uploader, cfg Config) *Archive {
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultUploadTimeout
	}
	return &Archive{
		uploader: u,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		timeout:  cfg.UploadTimeout,
	}
}

// Put uploads the document text and returns its s3:// location.
func (a *Archive) Put(ctx context.Context, doc *domain.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}

	key := ObjectKey(a.prefix, doc.SourceURL)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(doc.Content),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"source-url": doc.SourceURL,
			"fetched-at": doc.FetchedAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	return "s3://" + a.bucket + "/" + key, nil
}

// ObjectKey returns <prefix>/<host>/<sha256(url)[:16]>.txt.
func ObjectKey(prefix, sourceURL string) string {
	host := "unknown"
	if u, err := url.Parse(sourceURL); err == nil && u.Host != "" {
		host = strings.ToLower(u.Host)
	}
	sum := sha256.Sum256([]byte(sourceURL))
	name := hex.EncodeToString(sum[:])[:hashLength] + ".txt"
	return path.Join(strings.Trim(prefix, "/"), host, name)
}
