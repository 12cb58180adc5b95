// Package publish uploads ABI documents to S3-compatible object storage
// under s3://bucket/prefix/<name>/<version>/<digest>.json.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/nearabi/nearabi/abi"
)

// UnversionedDir replaces the version segment of the key when the
// document has no version.
const UnversionedDir = "unversioned"

var (
	ErrNoBucket = errors.New("no publish bucket configured")
	ErrNoName   = errors.New("abi metadata has no contract name")
)

// Options configures a Publisher.
type Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	PathStyle bool

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Uploader is the part of the S3 client a Publisher uses.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads documents to one bucket.
type Publisher struct {
	client Uploader
	bucket string
	prefix string
	logger *zap.Logger
}

// New builds a Publisher with an S3 client configured from opts. Without
// an access key, requests are sent unsigned.
func New(opts Options, logger *zap.Logger) (*Publisher, error) {
	if opts.Bucket == "" {
		return nil, ErrNoBucket
	}
	s3opts := s3.Options{
		Region:       opts.Region,
		UsePathStyle: opts.PathStyle,
	}
	if opts.AccessKeyID != "" {
		s3opts.Credentials = credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)
	} else {
		s3opts.Credentials = aws.AnonymousCredentials{}
	}
	if opts.Endpoint != "" {
		s3opts.BaseEndpoint = aws.String(opts.Endpoint)
	}
	return NewWithClient(s3.New(s3opts), opts, logger)
}

// NewWithClient builds a Publisher around an existing client.
func NewWithClient(client Uploader, opts Options, logger *zap.Logger) (*Publisher, error) {
	if opts.Bucket == "" {
		return nil, ErrNoBucket
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, bucket: opts.Bucket, prefix: opts.Prefix, logger: logger}, nil
}

// Key returns the object key for doc.
func (p *Publisher) Key(doc *abi.Document) (string, error) {
	if doc.Metadata.Name == "" {
		return "", ErrNoName
	}
	digest, err := doc.Digest()
	if err != nil {
		return "", err
	}
	version := doc.Metadata.Version
	if version == "" {
		version = UnversionedDir
	}
	return path.Join(p.prefix, doc.Metadata.Name, version, digest+".json"), nil
}

// Publish uploads doc as indented JSON and returns its s3:// URL.
func (p *Publisher) Publish(ctx context.Context, doc *abi.Document) (string, error) {
	key, err := p.Key(doc)
	if err != nil {
		return "", err
	}
	data, err := doc.Encode(abi.FormatJSON)
	if err != nil {
		return "", err
	}
	digest, err := doc.Digest()
	if err != nil {
		return "", err
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"abi-digest":         digest,
			"abi-schema-version": doc.SchemaVersion,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload s3://%s/%s: %w", p.bucket, key, err)
	}

	url := fmt.Sprintf("s3://%s/%s", p.bucket, key)
	p.logger.Info("published abi",
		zap.String("url", url),
		zap.String("name", doc.Metadata.Name),
		zap.String("version", doc.Metadata.Version),
		zap.Int("bytes", len(data)))
	return url, nil
}
