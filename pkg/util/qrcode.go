package util

import (
	"encoding/base64"
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRImageSize is the edge length in pixels of rendered QR images
const QRImageSize = 256

var ErrEmptyQRPayload = errors.New("qr payload must not be empty")

// QRCode holds the text encoded into the symbol and its PNG rendering
type QRCode struct {
	Content string `json:"content"` // base64url(payload), what scanners read back
	PNG     []byte `json:"-"`
}

// GenerateQRCode encodes payload as base64url text and renders it as a PNG.
// DecodeQRPayload(qr.Content) returns the original payload byte for byte.
func GenerateQRCode(payload string) (*QRCode, error) {
	if payload == "" {
		return nil, ErrEmptyQRPayload
	}

	content := base64.RawURLEncoding.EncodeToString([]byte(payload))
	png, err := qrcode.Encode(content, qrcode.Medium, QRImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}

	return &QRCode{
		Content: content,
		PNG:     png,
	}, nil
}

// DecodeQRPayload reverses the text encoding applied by GenerateQRCode
func DecodeQRPayload(content string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(content)
	if err != nil {
		return "", fmt.Errorf("invalid qr content: %w", err)
	}
	return string(raw), nil
}
