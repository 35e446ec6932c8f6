package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("whatsapp not configured")

// Client talks to the WhatsApp Cloud API. It is the texts channel.
type Client struct {
	accessToken string
	phoneID     string
	baseURL     string
	httpClient  *http.Client
}

func NewClient(accessToken, phoneID, baseURL string) *Client {
	return &Client{
		accessToken: accessToken,
		phoneID:     phoneID,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// SendText satisfies queue.TextSender.
func (c *Client) SendText(ctx context.Context, phone, text string) error {
	_, err := c.SendMessage(ctx, SendTextInput{
		PhoneNumber: strings.TrimPrefix(phone, "+"),
		Body:        text,
	})
	return err
}

// SendMessage sends a free-form text and returns the provider message ID.
func (c *Client) SendMessage(ctx context.Context, input SendTextInput) (string, error) {
	if c.accessToken == "" || c.phoneID == "" {
		return "", ErrNotConfigured
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                input.PhoneNumber,
		"type":              "text",
		"text": map[string]any{
			"preview_url": false,
			"body":        input.Body,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var result SendMessageResponse
	_ = json.Unmarshal(respBody, &result)

	if result.Error != nil {
		return "", fmt.Errorf("whatsapp api error %d: %s", result.Error.Code, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("whatsapp api status %d: %s", resp.StatusCode, string(respBody))
	}
	if len(result.Messages) == 0 {
		return "", errors.New("whatsapp api returned no message id")
	}
	return result.Messages[0].ID, nil
}
