package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ArchiveConfig holds configuration for the email archive.
type ArchiveConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// EmailArchive stores raw inbound emails in S3-compatible storage so an
// incident can always be traced back to the message that triggered it.
type EmailArchive struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	downloadURLExpiry time.Duration
	now               func() time.Time
}

// NewEmailArchive creates an archive backed by an S3-compatible endpoint.
func NewEmailArchive(ctx context.Context, cfg ArchiveConfig) (*EmailArchive, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &EmailArchive{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		downloadURLExpiry: 1 * time.Hour,
		now:               func() time.Time { return time.Now().UTC() },
	}, nil
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ArchiveKey builds the object key for a message: emails/<yyyy/mm/dd>/<id>.eml.
// Messages without a Message-ID get a generated one.
func (a *EmailArchive) ArchiveKey(messageID string) string {
	id := strings.Trim(messageID, "<>")
	id = unsafeKeyChars.ReplaceAllString(id, "_")
	if id == "" {
		id = uuid.NewString()
	}
	return fmt.Sprintf("emails/%s/%s.eml", a.now().Format("2006/01/02"), id)
}

// Store writes a raw email to the archive and returns its object key.
func (a *EmailArchive) Store(ctx context.Context, messageID string, raw []byte) (string, error) {
	key := a.ArchiveKey(messageID)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("message/rfc822"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive email: %w", err)
	}

	return key, nil
}

// Fetch retrieves a previously archived raw email by key.
func (a *EmailArchive) Fetch(ctx context.Context, key string) ([]byte, error) {
	output, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archived email: %w", err)
	}
	defer output.Body.Close()

	return io.ReadAll(output.Body)
}

// GenerateDownloadURL creates a presigned URL for downloading an archived email.
func (a *EmailArchive) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	presignedReq, err := a.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = a.downloadURLExpiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}

	return presignedReq.URL, nil
}

// Delete removes an archived email.
func (a *EmailArchive) Delete(ctx context.Context, key string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete archived email: %w", err)
	}

	return nil
}

// EnsureBucket creates the archive bucket if it doesn't exist.
func (a *EmailArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}
