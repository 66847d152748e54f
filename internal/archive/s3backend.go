package archive

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Backend copies rotated zip archives into a bucket, the cloud
// counterpart to local-only rotation.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3Config names the bucket and, optionally, static credentials; when
// AccessKeyID is empty the default AWS credential chain (env, shared
// config, instance role) is used instead.
type S3Config struct {
	Region      string
	Bucket      string
	Prefix      string
	AccessKeyID string
	SecretKey   string
}

func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, err
	}

	return &S3Backend{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (b *S3Backend) Upload(ctx context.Context, name string, r io.Reader) error {
	key := name
	if b.prefix != "" {
		key = b.prefix + "/" + name
	}
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	return err
}

var _ Backend = (*S3Backend)(nil)
