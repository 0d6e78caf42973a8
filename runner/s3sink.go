package runner

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/decibelcooper/hzzplot/signal"
)

// Uploader is the part of manager.Uploader used by S3Sink.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Config locates an S3 (or MinIO) bucket. Empty credentials fall back to
// the default AWS credential chain.
type S3Config struct {
	Bucket          string `koanf:"bucket"`
	Prefix          string `koanf:"prefix"`
	Endpoint        string `koanf:"endpoint"`
	Region          string `koanf:"region"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
}

// S3Sink uploads <prefix>/<key>.yoda and <prefix>/<key>_metadata.json.
type S3Sink struct {
	Bucket   string
	Prefix   string
	Uploader Uploader
}

// NewS3Sink connects to the bucket described by cfg.
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("runner: s3 sink needs a bucket")
	}

	opts := []func(*aws_config.LoadOptions) error{aws_config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, aws_config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("runner: could not load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Sink{
		Bucket:   cfg.Bucket,
		Prefix:   cfg.Prefix,
		Uploader: manager.NewUploader(client),
	}, nil
}

// Keys returns the object keys written for key.
func (s *S3Sink) Keys(key string) (yoda, meta string) {
	return path.Join(s.Prefix, key+".yoda"), path.Join(s.Prefix, key+"_metadata.json")
}

func (s *S3Sink) Save(ctx context.Context, key string, res *signal.Result, meta Metadata) error {
	yoda, metadata, err := Encode(res, meta)
	if err != nil {
		return err
	}

	yodaKey, metaKey := s.Keys(key)
	for _, obj := range []struct {
		key         string
		contentType string
		body        []byte
	}{
		{yodaKey, "text/plain", yoda},
		{metaKey, "application/json", metadata},
	} {
		_, err := s.Uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.Bucket),
			Key:         aws.String(obj.key),
			Body:        bytes.NewReader(obj.body),
			ContentType: aws.String(obj.contentType),
		})
		if err != nil {
			return fmt.Errorf("runner: could not upload s3://%s/%s: %w", s.Bucket, obj.key, err)
		}
	}
	return nil
}
