package media

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// SignedURL is a presigned request against the media bucket.
type SignedURL struct {
	URL       string `json:"url"`
	Key       string `json:"key,omitempty"`
	ExpiresIn int    `json:"expires_in"`
}

// URLSigner issues short-lived upload and download URLs.
type URLSigner interface {
	UploadURL(ctx context.Context, filename, contentType string) (SignedURL, error)
	DownloadURL(ctx context.Context, key string) (SignedURL, error)
}

// S3Signer signs requests against an S3 bucket. It holds no other state;
// each invocation is independent.
type S3Signer struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
}

// NewS3Signer constructs an S3Signer using the ambient AWS credential chain.
func NewS3Signer(ctx context.Context, bucket, region string, ttl time.Duration) (*S3Signer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3Signer{
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		ttl:     ttl,
	}, nil
}

// UploadURL returns a presigned PUT for a fresh object key derived from
// filename. The key is uuid-prefixed so concurrent uploads of the same
// filename never collide.
func (s *S3Signer) UploadURL(ctx context.Context, filename, contentType string) (SignedURL, error) {
	key := "uploads/" + uuid.NewString() + sanitizeExt(filename)
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.ttl
	})
	if err != nil {
		return SignedURL{}, fmt.Errorf("presign upload: %w", err)
	}
	return SignedURL{URL: req.URL, Key: key, ExpiresIn: int(s.ttl.Seconds())}, nil
}

// DownloadURL returns a presigned GET for an existing object key.
func (s *S3Signer) DownloadURL(ctx context.Context, key string) (SignedURL, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.ttl
	})
	if err != nil {
		return SignedURL{}, fmt.Errorf("presign download: %w", err)
	}
	return SignedURL{URL: req.URL, ExpiresIn: int(s.ttl.Seconds())}, nil
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if ext == "" || len(ext) > 10 {
		return ""
	}
	return ext
}

var _ URLSigner = (*S3Signer)(nil)
