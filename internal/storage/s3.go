package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"error-collector/internal/config"
)

// Client archives accepted raw webhook bodies to S3-compatible object
// storage (MinIO). The archive is optional and strictly best-effort; the
// stored record already carries the payload verbatim.
type Client struct {
	s3     *s3.Client
	bucket string
}

func New(ctx context.Context, cfg config.Config) (*Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: fmt.Sprintf("http://%s", cfg.MinioEndpoint),
			HostnameImmutable: true}, nil
	})
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.MinioAccessKey,
			cfg.MinioSecretKey,
			"")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}
	return &Client{s3: s3.NewFromConfig(awsCfg), bucket: cfg.MinioBucket}, nil
}

// PutRaw stores one raw payload under a key derived from the event id.
// The uuid component keeps re-deliveries from overwriting each other.
func (c *Client) PutRaw(ctx context.Context, eventID string, body []byte) (string, error) {
	key := fmt.Sprintf("payloads/%s-%s.json", eventID, uuid.NewString())
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("s3://%s/%s", c.bucket, key), nil
}
