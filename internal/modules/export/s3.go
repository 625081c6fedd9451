package export

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Uploader ships SQL dumps to an S3 bucket. It is only constructed when a
// bucket is configured; the pipeline works fine without one.
type Uploader struct {
	bucket string
	prefix string
	client *s3.Client
	log    zerolog.Logger
}

// Options configures the uploader.
type Options struct {
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
}

// NewUploader creates an S3 uploader. Static credentials win when provided;
// otherwise the default AWS credential chain applies.
func NewUploader(ctx context.Context, opts Options, log zerolog.Logger) (*Uploader, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Uploader{
		bucket: opts.Bucket,
		prefix: opts.Prefix,
		client: s3.NewFromConfig(cfg),
		log:    log.With().Str("component", "export").Logger(),
	}, nil
}

// UploadDump uploads one local dump file, keyed under the configured prefix,
// and returns the object key.
func (u *Uploader) UploadDump(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open dump: %w", err)
	}
	defer f.Close()

	key := path.Join(u.prefix, filepath.Base(localPath))
	uploader := manager.NewUploader(u.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/sql"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload dump to s3://%s/%s: %w", u.bucket, key, err)
	}

	u.log.Info().Str("bucket", u.bucket).Str("key", key).Msg("Dump uploaded")
	return key, nil
}
