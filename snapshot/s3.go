package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/vault-bootstrap/interfaces"
)

// S3Config describes a single snapshot object in S3 or S3-compatible storage.
type S3Config struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string
	PathStyle bool

	// Static credentials. When empty the default AWS credential chain is used.
	AccessKey string
	SecretKey string
}

// S3Source streams a snapshot object from S3.
type S3Source struct {
	client      *s3.S3
	bucket      string
	key         string
	log         *slog.Logger
	locationURI string
}

// NewS3Source creates a new S3 snapshot source.
func NewS3Source(cfg S3Config, log *slog.Logger) (*S3Source, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", cfg.Bucket, cfg.Key, cfg.Region)
	if cfg.AccessKey != "" {
		uri = fmt.Sprintf("s3://%s:***@%s/%s?region=%s", cfg.AccessKey, cfg.Bucket, cfg.Key, cfg.Region)
	}
	if cfg.Endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", cfg.Endpoint)
	}

	awsCfg := aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.PathStyle),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(&awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Source{
		client:      s3.New(sess),
		bucket:      cfg.Bucket,
		key:         cfg.Key,
		log:         log,
		locationURI: uri,
	}, nil
}

// Open starts the object download and returns its body as the snapshot stream.
func (s *S3Source) Open(ctx context.Context) (*interfaces.Snapshot, error) {
	start := time.Now()

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			err = fmt.Errorf("object %s not found in bucket %s", s.key, s.bucket)
		}
		s.log.Warn("Failed to get snapshot from S3",
			slog.String("bucket", s.bucket),
			slog.String("key", s.key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, &interfaces.SourceResolutionError{Location: s.locationURI, Err: err}
	}

	size := int64(-1)
	if result.ContentLength != nil {
		size = *result.ContentLength
	}

	s.log.Debug("Opened snapshot from S3",
		slog.String("bucket", s.bucket),
		slog.String("key", s.key),
		slog.Int64("size", size),
		slog.Duration("duration", time.Since(start)))

	return &interfaces.Snapshot{
		ReadCloser: result.Body,
		Size:       size,
		Location:   s.locationURI,
	}, nil
}

// Name returns a unique identifier for this source.
func (s *S3Source) Name() string {
	return fmt.Sprintf("s3-%s", s.bucket)
}

// LocationURI returns the URI that identifies this source.
func (s *S3Source) LocationURI() string {
	return s.locationURI
}
