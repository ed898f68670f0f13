package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/timmy/shotrank/internal/config"
	"github.com/timmy/shotrank/internal/logger"
)

// StorageType defines the type of S3-compatible storage
type StorageType string

const (
	StorageTypeR2           StorageType = "r2"
	StorageTypeS3           StorageType = "s3"
	StorageTypeS3Compatible StorageType = "s3compatible"
)

// S3Storage implements ObjectStorage over any S3 API: AWS S3, Cloudflare R2
// and self-hosted gateways such as MinIO.
type S3Storage struct {
	client    *s3.Client
	bucket    string
	endpoint  string // host[:port], empty for AWS S3
	useSSL    bool
	storeType StorageType
	publicURL string
	region    string
}

// NewS3Storage creates a storage client for cfg.
// Parameters:
//   - cfg: bucket, credentials and endpoint settings.
//   - storeType: resolved storage flavour; R2 defaults to region "auto".
// Returns:
//   - *S3Storage: client bound to cfg.Bucket.
//   - error: non-nil if the AWS configuration cannot be loaded.
func NewS3Storage(cfg *config.StorageConfig, storeType StorageType) (*S3Storage, error) {
	s := &S3Storage{
		bucket:    cfg.Bucket,
		endpoint:  normalizeEndpoint(cfg.Endpoint),
		useSSL:    cfg.UseSSL,
		storeType: storeType,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		region:    regionFor(storeType, cfg.Region),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(s.region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// AWS resolves its own virtual-host endpoint.
		if s.endpoint != "" {
			o.BaseEndpoint = aws.String(s.baseURL())
			o.UsePathStyle = true
		}
	})
	return s, nil
}

func regionFor(storeType StorageType, region string) string {
	switch {
	case region != "":
		return region
	case storeType == StorageTypeR2:
		return "auto"
	default:
		return "us-east-1"
	}
}

// normalizeEndpoint reduces an endpoint to host[:port].
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	return endpoint
}

func (s *S3Storage) baseURL() string {
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return scheme + "://" + s.endpoint
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noBucket *types.NoSuchBucket
	return errors.As(err, &notFound) || errors.As(err, &noBucket) || strings.Contains(err.Error(), "StatusCode: 404")
}

// EnsureBucket creates the bucket if it doesn't exist. R2 buckets cannot be
// created through the S3 API.
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	switch {
	case err == nil:
		return nil
	case !isNotFound(err):
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	case s.storeType == StorageTypeR2:
		return fmt.Errorf("bucket %s does not exist, please create it in R2 dashboard", s.bucket)
	}

	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	logger.CtxInfo(ctx, "Created storage bucket: bucket=%s", s.bucket)
	return nil
}

// Upload stores one object with an explicit length, which S3 requires for
// non-seekable readers.
func (s *S3Storage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	return nil
}

// Download downloads an object from storage
func (s *S3Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download object %s: %w", key, err)
	}

	return result.Body, nil
}

// GetURL returns the public URL for accessing an object. Without a public
// URL the path-style endpoint URL is returned.
func (s *S3Storage) GetURL(key string) string {
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s", s.publicURL, key)
	}
	if s.endpoint == "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	}
	return fmt.Sprintf("%s/%s/%s", s.baseURL(), s.bucket, key)
}

// Exists checks if an object exists in storage
func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check object %s: %w", key, err)
}

// List lists objects under prefix using ListObjectsV2. The cursor is the S3
// continuation token.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - prefix: key prefix to list, empty for the whole bucket.
//   - cursor: continuation token from the previous call, empty to start.
//   - limit: maximum number of keys per page.
// Returns:
//   - []ObjectInfo: objects in key order.
//   - string: continuation token, empty when no more pages exist.
//   - error: non-nil if the request fails.
func (s *S3Storage) List(ctx context.Context, prefix, cursor string, limit int) ([]ObjectInfo, string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if cursor != "" {
		input.ContinuationToken = aws.String(cursor)
	}
	if limit > 0 {
		input.MaxKeys = aws.Int32(int32(limit))
	}

	result, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list objects: %w", err)
	}

	objects := make([]ObjectInfo, 0, len(result.Contents))
	for _, obj := range result.Contents {
		info := ObjectInfo{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
		if obj.LastModified != nil {
			info.LastModified = *obj.LastModified
		}
		objects = append(objects, info)
	}

	next := ""
	if aws.ToBool(result.IsTruncated) {
		next = aws.ToString(result.NextContinuationToken)
	}
	return objects, next, nil
}
