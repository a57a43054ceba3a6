package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many leading bytes are inspected to detect content type.
const sniffLen = 3072

// S3Config selects the bucket outputs are published to. Endpoint points
// at an S3-compatible service such as MinIO or LocalStack and switches the
// client to path-style addressing.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Bucket is a Disk whose Upload puts objects into an S3 bucket.
type Bucket struct {
	*Disk
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
}

// NewBucket roots the local side at dir and builds an S3 client from cfg.
// Static credentials are used when both keys are set, the default AWS
// chain otherwise.
func NewBucket(dir string, cfg S3Config) (*Bucket, error) {
	disk, err := NewDisk(dir)
	if err != nil {
		return nil, err
	}

	configOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &Bucket{
		Disk:     disk,
		client:   s3.NewFromConfig(awsCfg, clientOpts...),
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
	}, nil
}

// Upload puts r under key and returns the object URL. When r is seekable
// its content type is sniffed from the leading bytes.
func (b *Bucket) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if rs, ok := r.(io.ReadSeeker); ok {
		contentType, err := detectContentType(rs)
		if err != nil {
			return "", err
		}
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", b.bucket, key, err)
	}
	return b.objectURL(key), nil
}

// detectContentType sniffs the MIME type of rs and rewinds it.
func detectContentType(rs io.ReadSeeker) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rs, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("read upload body: %w", err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload body: %w", err)
	}
	return mimetype.Detect(head[:n]).String(), nil
}

// objectURL returns the public URL of key. Custom endpoints use path-style
// addressing, matching how the client is configured.
func (b *Bucket) objectURL(key string) string {
	if b.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", b.endpoint, b.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.bucket, b.region, key)
}
