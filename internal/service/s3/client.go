package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	defaultTimeout   = 30 * time.Second
	uploadTimeout    = 10 * time.Minute
	defaultChunkSize = 5 * 1024 * 1024 // 5MB
)

// Client предоставляет методы для работы с S3-совместимым хранилищем
type Client struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// NewClient создает новый экземпляр клиента S3
func NewClient(conf *Config) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	if conf.AccessKeyID == "" || conf.SecretAccessKey == "" || conf.Bucket == "" {
		return nil, fmt.Errorf("missing required configuration: accessKeyID, secretAccessKey, and bucket are required")
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	client := s3.New(s3.Options{
		BaseEndpoint:     aws.String(conf.Endpoint),
		Region:           conf.Region,
		Credentials:      creds,
		UsePathStyle:     conf.UsePathStyle,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	})

	s3Client := &Client{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    conf.Bucket,
	}

	// Проверяем подключение к бакету
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := s3Client.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return s3Client, nil
}

// Put загружает содержимое в S3 и возвращает локатор объекта (его ключ)
func (h *Client) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if key == "" || body == nil {
		return "", fmt.Errorf("key and body are required")
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	// PutObject нужен io.ReadSeeker для подписи payload, поэтому читаем в буфер
	buf := bytes.NewBuffer(make([]byte, 0, defaultChunkSize))
	if _, err := io.Copy(buf, body); err != nil {
		return "", fmt.Errorf("failed to read upload body: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := h.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload object to S3: %w", err)
	}

	log.Printf("[S3] Uploaded %s (%d bytes)", key, buf.Len())
	return key, nil
}

// SignURL выпускает подписанную ссылку на скачивание объекта, действующую ttl
func (h *Client) SignURL(ctx context.Context, locator string, ttl time.Duration) (string, error) {
	if locator == "" {
		return "", fmt.Errorf("locator is required")
	}

	req, err := h.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(locator),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", locator, err)
	}

	return req.URL, nil
}
