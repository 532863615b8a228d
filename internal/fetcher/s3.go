package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/oshokin/section-installer/internal/config"
)

// defaultS3Region is used when the settings do not name a region.
const defaultS3Region = "us-east-1"

// errInvalidS3URL is returned for s3 URLs without a bucket or a key.
var errInvalidS3URL = errors.New("s3 url must look like s3://bucket/key")

// S3Client is the part of the S3 API the source needs.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source fetches s3://bucket/key URLs.
type S3Source struct {
	client S3Client
}

// NewS3Source builds an S3 client from the settings. Without keys requests
// are anonymous; a custom endpoint switches to path-style addressing.
func NewS3Source(settings config.S3) *S3Source {
	region := settings.Region
	if region == "" {
		region = defaultS3Region
	}

	var provider aws.CredentialsProvider = aws.AnonymousCredentials{}
	if settings.AccessKey != "" && settings.SecretKey != "" {
		provider = credentials.NewStaticCredentialsProvider(settings.AccessKey, settings.SecretKey, "")
	}

	client := s3.New(s3.Options{
		Region:       region,
		UsePathStyle: settings.Endpoint != "",
		Credentials:  provider,
	}, func(o *s3.Options) {
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
		}
	})

	return NewS3SourceWithClient(client)
}

// NewS3SourceWithClient wraps an existing client.
func NewS3SourceWithClient(client S3Client) *S3Source {
	return &S3Source{client: client}
}

// Open returns the body of the object.
func (s *S3Source) Open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")

	if bucket == "" || key == "" {
		return nil, fmt.Errorf("%s: %w", u.String(), errInvalidS3URL)
	}

	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}

	return output.Body, nil
}
