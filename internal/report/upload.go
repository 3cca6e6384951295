package report

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader copies saved result logs to S3.
type Uploader struct {
	client putObjectAPI
	bucket string
	prefix string // e.g. "runs/2025"
}

// ParseS3URI splits s3://bucket/prefix into its parts.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("upload target %q must start with s3://", uri)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("upload target %q has no bucket", uri)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// NewUploader creates an S3 uploader for uri in region.
func NewUploader(ctx context.Context, region, uri string) (*Uploader, error) {
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions)
	return &Uploader{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

// Upload puts the file at localPath under the prefix and returns its s3:// URI.
func (u *Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	key := path.Join(u.prefix, filepath.Base(localPath))

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open results: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat results: %w", err)
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &u.bucket,
		Key:           &key,
		Body:          f,
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}
	return "s3://" + u.bucket + "/" + key, nil
}
