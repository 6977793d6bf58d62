// Package export uploads user data snapshots to S3-compatible object
// storage and hands back short-lived download links.
package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// LinkValidity is how long a presigned download link stays usable.
const LinkValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type Config struct {
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the AWS endpoint, e.g. a local MinIO.
	Endpoint string
	Bucket   string
}

type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Result locates an uploaded snapshot.
type Result struct {
	Key string
	URL string
}

type S3Exporter struct {
	bucket    string
	uploader  Uploader
	presigner Presigner
	now       func() time.Time
}

func NewS3Exporter(ctx context.Context, c Config) (*S3Exporter, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3ExporterWithClients(c.Bucket, client, s3.NewPresignClient(client)), nil
}

func NewS3ExporterWithClients(bucket string, u Uploader, p Presigner) *S3Exporter {
	return &S3Exporter{bucket: bucket, uploader: u, presigner: p, now: time.Now}
}

// StorageKey places a user's export under a dated prefix.
func StorageKey(userID string, t time.Time) string {
	return fmt.Sprintf("users/%s/favorites/%d/%d/%d/%v.json", userID, t.Year(), t.Month(), t.Day(), uuid.New())
}

// Export stores body as a JSON object and returns a presigned GET link to it.
func (e *S3Exporter) Export(ctx context.Context, userID string, body []byte) (*Result, error) {
	key := StorageKey(userID, e.now().UTC())

	_, err := e.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(e.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	req, err := e.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(LinkValidity))
	if err != nil {
		return nil, fmt.Errorf("presign %s: %w", key, err)
	}

	return &Result{Key: key, URL: req.URL}, nil
}
