package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	putInput *s3.PutObjectInput
	body     []byte
	putErr   error

	presignInput *s3.GetObjectInput
	presignErr   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.putInput = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	f.presignInput = params
	return &v4.PresignedHTTPRequest{
		URL:    "https://signed.example.com/" + *params.Key,
		Method: "GET",
	}, nil
}

func TestS3Storage_UploadQRCode(t *testing.T) {
	fake := &fakeS3{}
	s := newS3Storage(fake, fake, "pickup-bucket", "ap-northeast-2", "")

	png := []byte{0x89, 'P', 'N', 'G'}
	upload, err := s.UploadQRCode(context.Background(), "order-1", png)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(upload.Key, "pickup-qr/order-1/"))
	assert.True(t, strings.HasSuffix(upload.Key, ".png"))
	assert.Equal(t, "pickup-bucket", *fake.putInput.Bucket)
	assert.Equal(t, "image/png", *fake.putInput.ContentType)
	assert.Equal(t, png, fake.body)

	assert.Equal(t, upload.Key, *fake.presignInput.Key)
	assert.Equal(t, "https://signed.example.com/"+upload.Key, upload.URL)
	assert.Equal(t, "https://pickup-bucket.s3.ap-northeast-2.amazonaws.com/"+upload.Key, upload.FileURL)
	assert.False(t, upload.ExpiresAt.IsZero())
}

func TestS3Storage_UploadQRCode_BaseURL(t *testing.T) {
	fake := &fakeS3{}
	s := newS3Storage(fake, fake, "pickup-bucket", "ap-northeast-2", "https://cdn.example.com")

	upload, err := s.UploadQRCode(context.Background(), "order-1", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+upload.Key, upload.FileURL)
}

func TestS3Storage_UploadQRCode_Errors(t *testing.T) {
	t.Run("Empty body", func(t *testing.T) {
		fake := &fakeS3{}
		s := newS3Storage(fake, fake, "b", "r", "")
		_, err := s.UploadQRCode(context.Background(), "order-1", nil)
		assert.ErrorIs(t, err, ErrEmptyObject)
		assert.Nil(t, fake.putInput)
	})

	t.Run("Put fails", func(t *testing.T) {
		putErr := errors.New("access denied")
		fake := &fakeS3{putErr: putErr}
		s := newS3Storage(fake, fake, "b", "r", "")
		_, err := s.UploadQRCode(context.Background(), "order-1", []byte("png"))
		assert.ErrorIs(t, err, putErr)
		assert.Nil(t, fake.presignInput)
	})

	t.Run("Presign fails", func(t *testing.T) {
		presignErr := errors.New("no credentials")
		fake := &fakeS3{presignErr: presignErr}
		s := newS3Storage(fake, fake, "b", "r", "")
		_, err := s.UploadQRCode(context.Background(), "order-1", []byte("png"))
		assert.ErrorIs(t, err, presignErr)
	})
}
