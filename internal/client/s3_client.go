package client

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"onboarding-forms-api/internal/config"
	"onboarding-forms-api/internal/metrics"
)

// S3ClientInterface is the object storage used for file-type field uploads
type S3ClientInterface interface {
	GenerateFileKey(formID uuid.UUID, fieldID, fileName string) string
	PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error)
	DeleteFile(ctx context.Context, key string) error
}

// S3Client wraps the AWS SDK client and its presigner
type S3Client struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	endpoint      string
	// publicEndpoint replaces endpoint in presigned URLs handed to browsers
	publicEndpoint string
	metrics        *metrics.Metrics
}

// NewS3Client builds a client from config. A custom endpoint (MinIO, localstack)
// requires static credentials and switches to path-style addressing.
func NewS3Client(ctx context.Context, cfg config.S3Config, m *metrics.Metrics) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("S3 region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.Endpoint != "" {
		if cfg.AccessKey == "" || cfg.SecretKey == "" {
			return nil, fmt.Errorf("access key and secret key are required for a custom S3 endpoint")
		}
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		client:        s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucket:        cfg.Bucket,
		endpoint:      cfg.Endpoint,
		metrics:       m,
	}, nil
}

// WithPublicEndpoint rewrites the host of presigned URLs, for setups where the
// service reaches storage on an internal address
func (c *S3Client) WithPublicEndpoint(endpoint string) *S3Client {
	c.publicEndpoint = strings.TrimSuffix(endpoint, "/")
	return c
}

// GenerateFileKey returns forms/{formId}/{fieldId}/{yyyy}/{mm}/{uuid}{ext}
func (c *S3Client) GenerateFileKey(formID uuid.UUID, fieldID, fileName string) string {
	return FileKey(time.Now(), formID, fieldID, fileName)
}

// FileKey builds an object key; ext is taken from fileName and lowercased
func FileKey(now time.Time, formID uuid.UUID, fieldID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("forms/%s/%s/%s/%s%s",
		formID, sanitizeSegment(fieldID), now.Format("2006/01"), uuid.NewString(), ext)
}

func sanitizeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "field"
	}
	return s
}

// PresignUpload returns a PUT URL valid for expires
func (c *S3Client) PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	start := time.Now()
	req, err := c.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires))
	c.record("s3:PresignPutObject", "PUT", start, err)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}
	return c.publicURL(req.URL), nil
}

// PresignDownload returns a GET URL valid for expires
func (c *S3Client) PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error) {
	start := time.Now()
	req, err := c.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	c.record("s3:PresignGetObject", "GET", start, err)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return c.publicURL(req.URL), nil
}

// DeleteFile removes an object; deleting a missing key is not an error in S3
func (c *S3Client) DeleteFile(ctx context.Context, key string) error {
	start := time.Now()
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	c.record("s3:DeleteObject", "DELETE", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

func (c *S3Client) publicURL(u string) string {
	if c.publicEndpoint == "" || c.endpoint == "" {
		return u
	}
	return strings.Replace(u, strings.TrimSuffix(c.endpoint, "/"), c.publicEndpoint, 1)
}

func (c *S3Client) record(target, method string, start time.Time, err error) {
	status := 200
	if err != nil {
		status = 0
	}
	c.metrics.RecordExternalCall(target, method, status, time.Since(start), err)
}
