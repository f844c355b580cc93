package sms

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ikkim/storeops-backend/pkg/logger"
)

const defaultSENSBaseURL = "https://sens.apigw.ntruss.com"

var ErrInvalidPhone = errors.New("invalid recipient phone number")

// Config holds Naver Cloud SENS credentials. An incomplete config puts the
// sender in development mode: messages are logged, not sent.
type Config struct {
	ServiceID  string
	AccessKey  string
	SecretKey  string
	FromNumber string
	BaseURL    string
	SenderName string // 메시지 머리말 (예: 매장 브랜드명)
}

func (c Config) complete() bool {
	return c.ServiceID != "" && c.AccessKey != "" && c.SecretKey != "" && c.FromNumber != ""
}

// PickupCodeMessage is what the customer receives after a code is issued
type PickupCodeMessage struct {
	OrderNumber string
	Code        string
	ExpiresAt   time.Time
}

// Naver Cloud SENS SMS 요청 구조체
type sensMessageRequest struct {
	Type     string        `json:"type"`    // SMS or LMS
	From     string        `json:"from"`    // 발신번호
	Content  string        `json:"content"` // 기본 메시지 내용
	Messages []sensMessage `json:"messages"`
}

type sensMessage struct {
	To string `json:"to"` // 수신번호
}

type SENSSender struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

func NewSENSSender(cfg Config) *SENSSender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSENSBaseURL
	}
	if cfg.SenderName == "" {
		cfg.SenderName = "StoreOps"
	}
	return &SENSSender{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// Naver Cloud SENS 시그니처 생성
func makeSignature(method, uri, timestamp, accessKey, secretKey string) string {
	message := method + " " + uri + "\n" + timestamp + "\n" + accessKey
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// normalizePhone strips separators; SENS expects digits only
func normalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == ' ':
		default:
			return "", ErrInvalidPhone
		}
	}
	digits := b.String()
	if len(digits) < 10 || len(digits) > 11 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

func pickupCodeContent(senderName string, msg PickupCodeMessage) string {
	return fmt.Sprintf("[%s] 주문 %s 픽업 인증번호는 [%s]입니다. %s까지 매장 직원에게 보여주세요.",
		senderName, msg.OrderNumber, msg.Code, msg.ExpiresAt.Format("01/02 15:04"))
}

// SendPickupCode texts the pickup code to the customer
func (s *SENSSender) SendPickupCode(ctx context.Context, phone string, msg PickupCodeMessage) error {
	to, err := normalizePhone(phone)
	if err != nil {
		return err
	}

	if !s.cfg.complete() {
		// 개발 모드: SENS 설정이 없으면 로그만 남김 (코드는 기록하지 않음)
		logger.Info("SMS sending disabled, pickup code not delivered", map[string]interface{}{
			"order_number": msg.OrderNumber,
		})
		return nil
	}

	body, err := json.Marshal(sensMessageRequest{
		Type:     "SMS",
		From:     s.cfg.FromNumber,
		Content:  pickupCodeContent(s.cfg.SenderName, msg),
		Messages: []sensMessage{{To: to}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode SENS request: %w", err)
	}

	timestamp := strconv.FormatInt(s.now().UnixMilli(), 10)
	uri := fmt.Sprintf("/sms/v2/services/%s/messages", s.cfg.ServiceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+uri, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build SENS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("x-ncp-apigw-timestamp", timestamp)
	req.Header.Set("x-ncp-iam-access-key", s.cfg.AccessKey)
	req.Header.Set("x-ncp-apigw-signature-v2", makeSignature(http.MethodPost, uri, timestamp, s.cfg.AccessKey, s.cfg.SecretKey))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("SENS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.Warn("SENS API rejected pickup code SMS", map[string]interface{}{
			"status_code":  resp.StatusCode,
			"order_number": msg.OrderNumber,
			"response":     string(respBody),
		})
		return fmt.Errorf("SENS returned status %d", resp.StatusCode)
	}

	logger.Info("Pickup code SMS sent", map[string]interface{}{
		"order_number": msg.OrderNumber,
	})
	return nil
}
