package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	qrCodeFolder      = "pickup-qr"
	qrCodeContentType = "image/png"
	qrLinkExpiry      = 15 * time.Minute
)

var ErrEmptyObject = errors.New("object body is empty")

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// QRCodeStorage publishes pickup QR images so a customer can open them from a link
type QRCodeStorage interface {
	UploadQRCode(ctx context.Context, orderID string, png []byte) (*QRCodeUpload, error)
}

type S3Storage struct {
	client    objectPutter
	presigner objectPresigner
	bucket    string
	region    string
	baseURL   string
}

type QRCodeUpload struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	FileURL   string    `json:"file_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewS3Storage(region, bucket, accessKeyID, secretAccessKey, baseURL string) *S3Storage {
	var cfg aws.Config
	var err error

	// Static keys win; otherwise fall back to the default credential chain
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region: region,
			Credentials: credentials.NewStaticCredentialsProvider(
				accessKeyID,
				secretAccessKey,
				"",
			),
		}
	} else {
		cfg, err = config.LoadDefaultConfig(context.TODO(),
			config.WithRegion(region),
		)
		if err != nil {
			cfg = aws.Config{
				Region: region,
			}
		}
	}

	client := s3.NewFromConfig(cfg)
	return newS3Storage(client, s3.NewPresignClient(client), bucket, region, baseURL)
}

func newS3Storage(client objectPutter, presigner objectPresigner, bucket, region, baseURL string) *S3Storage {
	return &S3Storage{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		region:    region,
		baseURL:   baseURL,
	}
}

// UploadQRCode stores a QR image under pickup-qr/<order>/ and returns a
// short-lived download link. The object is private; FileURL only resolves
// when the bucket sits behind a CDN configured with baseURL.
func (s *S3Storage) UploadQRCode(ctx context.Context, orderID string, png []byte) (*QRCodeUpload, error) {
	if len(png) == 0 {
		return nil, ErrEmptyObject
	}

	key := fmt.Sprintf("%s/%s/%s.png", qrCodeFolder, orderID, uuid.New().String())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(png),
		ContentType:  aws.String(qrCodeContentType),
		CacheControl: aws.String("no-store"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload QR code: %w", err)
	}

	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(qrLinkExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &QRCodeUpload{
		Key:       key,
		URL:       presigned.URL,
		FileURL:   s.fileURL(key),
		ExpiresAt: time.Now().UTC().Add(qrLinkExpiry),
	}, nil
}

func (s *S3Storage) fileURL(key string) string {
	if s.baseURL != "" {
		// CloudFront or custom domain
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
