// Package archive stores reaped tombstones as JSON objects in an
// S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/papersson/code-bot/internal/server/config"
	smodels "github.com/papersson/code-bot/internal/server/models"
)

// Archiver persists one batch of reaped tombstones.
type Archiver interface {
	Store(ctx context.Context, a *smodels.Archive) error
}

// putObjectAPI is the part of *s3.Client the archive uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) putObjectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type S3Archive struct {
	client putObjectAPI
	bucket string
}

// NewS3Archive builds an archive writing to cfg.S3Bucket. Static
// credentials are used when S3RootUser is set, otherwise the default AWS
// credential chain applies. A base endpoint switches to path-style
// addressing, as MinIO expects.
func NewS3Archive(ctx context.Context, cfg *config.Config) (*S3Archive, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3RootUser != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archive{client: client, bucket: cfg.S3Bucket}, nil
}

// Store writes arc as tombstones/YYYY/MM/DD/<timestamp>-<uuid>.json.
func (a *S3Archive) Store(ctx context.Context, arc *smodels.Archive) error {
	body, err := json.Marshal(arc)
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(ObjectKey(arc)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put archive object: %w", err)
	}
	return nil
}

// ObjectKey returns the key an archive batch is stored under.
func ObjectKey(arc *smodels.Archive) string {
	t := arc.ReapedAt.UTC()
	return fmt.Sprintf("tombstones/%s/%s-%s.json",
		t.Format("2006/01/02"), t.Format("20060102T150405.000Z"), uuid.NewString())
}
