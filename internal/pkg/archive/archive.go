// Package archive stores generated documents (Cursor prompts, quote
// documents) in an S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/config"
)

var ErrDisabled = errors.New("document archive is disabled")

// Archiver stores one document and returns its object key.
type Archiver interface {
	Enabled() bool
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// Disabled is used when S3_ARCHIVE_ENABLED is false.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) Put(context.Context, string, string, []byte) (string, error) {
	return "", ErrDisabled
}

// S3Archiver wraps the S3 client for document uploads.
type S3Archiver struct {
	client *s3.Client
	bucket string
	region string
	custom bool
}

// New returns Disabled when archiving is off, otherwise an S3Archiver.
func New(ctx context.Context, cfg config.S3Config, appEnv string) (Archiver, error) {
	if !cfg.Enabled {
		return Disabled{}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible providers (Backblaze, MinIO) want path-style URLs
			o.UsePathStyle = true
		}
	})

	a := &S3Archiver{client: client, bucket: cfg.BucketName, region: cfg.Region, custom: cfg.EndpointURL != ""}
	if err := a.ensureBucket(ctx, appEnv); err != nil {
		return nil, err
	}
	log.Infof("[Archive] Using bucket %s", cfg.BucketName)
	return a, nil
}

func (a *S3Archiver) Enabled() bool { return true }

// ensureBucket checks the bucket and creates it outside production.
func (a *S3Archiver) ensureBucket(ctx context.Context, appEnv string) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err == nil {
		return nil
	}
	if appEnv == "prod" {
		return fmt.Errorf("bucket %s not accessible: %w", a.bucket, err)
	}

	log.Warnf("[Archive] Bucket %s not found, attempting to create it", a.bucket)
	input := &s3.CreateBucketInput{Bucket: aws.String(a.bucket)}
	if !a.custom && a.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(a.region),
		}
	}
	if _, err := a.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("create bucket %s: %w", a.bucket, err)
	}
	return nil
}

func (a *S3Archiver) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	if contentType == "" {
		contentType = ContentType(key)
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata: map[string]string{
			"upload-source": "agencydesk-archive",
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", a.bucket, key, err)
	}
	log.Infof("[Archive] Stored s3://%s/%s (%d bytes)", a.bucket, key, len(body))
	return key, nil
}

// ObjectKey builds "<kind>/YYYY/MM/<name>".
func ObjectKey(kind, name string, at time.Time) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "/", "-")
	return path.Join(kind, fmt.Sprintf("%04d", at.Year()), fmt.Sprintf("%02d", int(at.Month())), name)
}

// ContentType guesses the MIME type from the key extension.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
