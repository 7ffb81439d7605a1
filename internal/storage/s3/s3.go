// Package s3storage implements storage.Backend on an S3-compatible bucket
// (AWS S3 or MinIO). PutObject is atomic by construction; create-only puts
// use a conditional write (If-None-Match: *).
package s3storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	varbeamconfig "github.com/airshower/varbeam/internal/config"
	"github.com/airshower/varbeam/internal/storage"
)

// Backend stores each blob as one object under prefix.
type Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3 backend from cfg. Static credentials are used when both
// key fields are set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg varbeamconfig.S3Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func newWithClient(client *s3.Client, bucket, prefix string) *Backend {
	return &Backend{client: client, bucket: bucket, prefix: prefix}
}

// Init checks that the bucket is reachable.
func (b *Backend) Init() error {
	_, err := b.client.HeadBucket(context.Background(), &s3.HeadBucketInput{Bucket: &b.bucket})
	if err != nil {
		return fmt.Errorf("bucket %s not reachable: %w", b.bucket, err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) Driver() storage.Driver { return storage.DriverS3 }

func (b *Backend) objectKey(key string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}
	return b.prefix + key, nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	objKey, err := b.objectKey(key)
	if err != nil {
		return nil, err
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &b.bucket, Key: &objKey})
	if err != nil {
		if isStatus(err, http.StatusNotFound) || isCode(err, "NoSuchKey", "NotFound") {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("getting object %s: %w", objKey, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", objKey, err)
	}
	return data, nil
}

func (b *Backend) Put(ctx context.Context, key string, data []byte, overwrite bool) error {
	objKey, err := b.objectKey(key)
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:        &b.bucket,
		Key:           &objKey,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	}
	if !overwrite {
		input.IfNoneMatch = aws.String("*")
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		if !overwrite && (isStatus(err, http.StatusPreconditionFailed) || isCode(err, "PreconditionFailed")) {
			return storage.ErrExists
		}
		return fmt.Errorf("putting object %s: %w", objKey, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) (bool, error) {
	objKey, err := b.objectKey(key)
	if err != nil {
		return false, err
	}
	// S3 deletes are idempotent, so existence needs its own round trip.
	if _, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &b.bucket, Key: &objKey}); err != nil {
		if isStatus(err, http.StatusNotFound) || isCode(err, "NotFound", "NoSuchKey") {
			return false, nil
		}
		return false, err
	}
	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &b.bucket, Key: &objKey}); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Backend) List(ctx context.Context) ([]string, error) {
	var keys []string
	var token *string
	for {
		out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &b.bucket,
			Prefix:            &b.prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			k := strings.TrimPrefix(aws.ToString(obj.Key), b.prefix)
			if k != "" && !strings.Contains(k, "/") {
				keys = append(keys, k)
			}
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Strings(keys)
	return keys, nil
}

func isCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, c := range codes {
		if apiErr.ErrorCode() == c {
			return true
		}
	}
	return false
}

func isStatus(err error, status int) bool {
	var re interface{ HTTPStatusCode() int }
	return errors.As(err, &re) && re.HTTPStatusCode() == status
}
