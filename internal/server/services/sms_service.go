package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

const telnyxMessagesURL = "https://api.telnyx.com/v2/messages"

// SMSService delivers magic links over Telnyx. The messages endpoint is a
// single JSON POST, called directly.
type SMSService struct {
	apiKey     string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

type SMSOption func(*SMSService)

func WithHTTPClient(c *http.Client) SMSOption {
	return func(s *SMSService) {
		s.httpClient = c
	}
}

func WithBaseURL(u string) SMSOption {
	return func(s *SMSService) {
		s.baseURL = u
	}
}

func NewSMSService(opts ...SMSOption) (*SMSService, error) {
	apiKey := os.Getenv("TELNYX_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("TELNYX_API_KEY environment variable not set")
	}

	fromNumber := os.Getenv("TELNYX_FROM_NUMBER")
	if fromNumber == "" {
		return nil, fmt.Errorf("TELNYX_FROM_NUMBER environment variable not set")
	}

	s := &SMSService{
		apiKey:     apiKey,
		fromNumber: fromNumber,
		baseURL:    telnyxMessagesURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type telnyxMessage struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

func (s *SMSService) SendMagicLink(ctx context.Context, phoneNumber, link string) error {
	// Skip SMS sending in test mode
	if os.Getenv("SKIP_SMS_SEND") == "true" {
		return nil
	}

	payload := telnyxMessage{
		From: s.fromNumber,
		To:   phoneNumber,
		Text: fmt.Sprintf("Tap to sign in to PocketDash: %s\nThis link can be used once and expires in 15 minutes.", link),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sms: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("telnyx API error: status %d", resp.StatusCode)
	}

	return nil
}
