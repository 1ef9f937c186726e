// Package storage publishes branded images to S3 and reads brand assets
// back from it.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/ukaseai/brandlab/internal/config"
	"github.com/ukaseai/brandlab/internal/pkg/logger"
)

// ErrNoBucket is returned by Publish when no bucket is configured.
var ErrNoBucket = errors.New("storage: no S3 bucket configured")

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 stores objects in a single bucket.
type S3 struct {
	client    s3API
	bucket    string
	region    string
	cdnDomain string
	now       func() time.Time
}

// NewS3 loads AWS config for the storage region (and profile, if set).
func NewS3(ctx context.Context, cfg config.StorageConfig) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.AWSProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return newS3(s3.NewFromConfig(awsCfg), cfg), nil
}

func newS3(client s3API, cfg config.StorageConfig) *S3 {
	return &S3{
		client:    client,
		bucket:    cfg.S3Bucket,
		region:    cfg.S3Region,
		cdnDomain: cfg.CDNDomain,
		now:       time.Now,
	}
}

// Publish uploads a branded PNG under branded/<yyyy>/<mm>/<uuid>.png and
// returns its public URL.
func (s *S3) Publish(ctx context.Context, png []byte) (string, error) {
	if s.bucket == "" {
		return "", ErrNoBucket
	}

	now := s.now().UTC()
	key := fmt.Sprintf("branded/%04d/%02d/%s.png", now.Year(), int(now.Month()), uuid.New().String())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(png),
		ContentType:  aws.String("image/png"),
		CacheControl: aws.String("public, max-age=31536000"), // 1 year cache
	})
	if err != nil {
		return "", fmt.Errorf("putting object to S3: %w", err)
	}

	url := s.publicURL(key)
	logger.Info("published branded image", "key", key, "bytes", len(png))
	return url, nil
}

func (s *S3) publicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	// Fallback to direct S3 URL
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// Fetch reads an object addressed as s3://bucket/key.
func (s *S3) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", uri, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// ParseURI splits s3://bucket/key.
func ParseURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("storage: %q is not an s3:// URI", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("storage: %q needs a bucket and a key", uri)
	}
	return bucket, key, nil
}

// Fetcher reads remote objects.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// ReadAsset reads a local file, or an s3:// object through f.
func ReadAsset(ctx context.Context, f Fetcher, path string) ([]byte, error) {
	if strings.HasPrefix(path, "s3://") {
		if f == nil {
			return nil, fmt.Errorf("storage: cannot read %s without S3 access", path)
		}
		return f.Fetch(ctx, path)
	}
	return os.ReadFile(path)
}
