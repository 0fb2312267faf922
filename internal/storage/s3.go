// Package storage publishes written artifacts to S3-compatible object
// storage.
package storage

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/FocuswithJustin/flatbible/core/errors"
	"github.com/FocuswithJustin/flatbible/internal/validation"
)

// Content types of published artifacts.
const (
	ContentTypeJSON   = "application/json"
	ContentTypeXZ     = "application/x-xz"
	ContentTypeSQLite = "application/vnd.sqlite3"
	ContentTypeBinary = "application/octet-stream"
)

// Config holds connection settings. Region is required by the SDK even for
// S3-compatible stores. When AccessKey is empty the default AWS credential
// chain is used.
type Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// Uploader is the subset of the S3 client used for publishing.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewClient creates an S3 client from cfg.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return client, nil
}

// Destination is a bucket and key prefix parsed from s3://bucket/prefix.
type Destination struct {
	Bucket string
	Prefix string
}

// ParseDestination parses an s3:// URL.
func ParseDestination(raw string) (Destination, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Destination{}, &errors.ValidationError{Field: "publish", Value: raw, Message: "invalid URL", Err: err}
	}
	if u.Scheme != "s3" {
		return Destination{}, errors.NewUnsupported("publish destination "+raw, "only s3:// URLs are supported")
	}
	if u.Host == "" {
		return Destination{}, errors.NewValidation("publish", "bucket name is required")
	}
	return Destination{
		Bucket: u.Host,
		Prefix: strings.Trim(u.Path, "/"),
	}, nil
}

// Key returns the object key for a local file.
func (d Destination) Key(file string) string {
	if d.Prefix == "" {
		return filepath.Base(file)
	}
	return path.Join(d.Prefix, filepath.Base(file))
}

func (d Destination) String() string {
	if d.Prefix == "" {
		return "s3://" + d.Bucket
	}
	return "s3://" + d.Bucket + "/" + d.Prefix
}

// Object describes an uploaded artifact.
type Object struct {
	Bucket      string
	Key         string
	Size        int64
	ContentType string
	ETag        string
}

// Publisher uploads local files under a destination.
type Publisher struct {
	client Uploader
	dest   Destination
}

// NewPublisher creates a publisher writing through client.
func NewPublisher(client Uploader, dest Destination) *Publisher {
	return &Publisher{client: client, dest: dest}
}

// Publish uploads the file at file. Failures are returned as
// *errors.IOError with operation "upload".
func (p *Publisher) Publish(ctx context.Context, file string) (*Object, error) {
	info, err := os.Stat(file)
	if err != nil {
		return nil, errors.NewIO("stat", file, err)
	}
	if err := validation.ValidateSize(info.Size()); err != nil {
		return nil, &errors.ValidationError{Field: "publish", Value: file, Message: err.Error(), Err: err}
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.NewIO("read", file, err)
	}

	obj := &Object{
		Bucket:      p.dest.Bucket,
		Key:         p.dest.Key(file),
		Size:        int64(len(data)),
		ContentType: ContentType(file),
	}

	out, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(obj.Bucket),
		Key:           aws.String(obj.Key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(obj.Size),
		ContentType:   aws.String(obj.ContentType),
	})
	if err != nil {
		return nil, errors.NewIO("upload", p.dest.Bucket+"/"+obj.Key, err)
	}
	if out != nil {
		obj.ETag = strings.Trim(aws.ToString(out.ETag), `"`)
	}
	return obj, nil
}

// ContentType returns the content type published for a file name.
func ContentType(file string) string {
	switch validation.DetectFileType(file) {
	case validation.FileTypeJSON:
		return ContentTypeJSON
	case validation.FileTypeXZ:
		return ContentTypeXZ
	case validation.FileTypeSQLite:
		return ContentTypeSQLite
	default:
		return ContentTypeBinary
	}
}
