package notifications

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

const brevoSendEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoClient delivers transactional mail through the Brevo SMTP API.
// Subjects and bodies are built by the Send* methods in emails.go.
type BrevoClient struct {
	apiKey     string
	sender     mailAddress
	sandbox    bool
	endpoint   string
	httpClient *http.Client
}

type mailAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// NewBrevoClient returns nil when mail is not configured; a nil mailer
// disables notifications without branching at every call site.
func NewBrevoClient(apiKey, senderEmail, senderName string, sandbox bool) *BrevoClient {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(senderEmail) == "" {
		return nil
	}
	if strings.TrimSpace(senderName) == "" {
		senderName = senderEmail
	}
	return &BrevoClient{
		apiKey:     apiKey,
		sender:     mailAddress{Name: senderName, Email: senderEmail},
		sandbox:    sandbox,
		endpoint:   brevoSendEndpoint,
		httpClient: &http.Client{Timeout: 8 * time.Second},
	}
}

var errNoRecipient = errors.New("missing recipient email")

// sendHTML posts one message and returns Brevo's message id.
func (c *BrevoClient) sendHTML(ctx context.Context, toEmail, toName, subject, htmlBody string) (string, error) {
	if c == nil {
		return "", errors.New("brevo client is nil")
	}
	if strings.TrimSpace(toEmail) == "" {
		return "", errNoRecipient
	}

	msg := struct {
		Sender      mailAddress       `json:"sender"`
		To          []mailAddress     `json:"to"`
		Subject     string            `json:"subject"`
		HtmlContent string            `json:"htmlContent"`
		Headers     map[string]string `json:"headers,omitempty"`
	}{
		Sender:      c.sender,
		To:          []mailAddress{{Name: toName, Email: toEmail}},
		Subject:     subject,
		HtmlContent: htmlBody,
	}
	if c.sandbox {
		// Sandbox sends validate the payload but drop delivery.
		msg.Headers = map[string]string{"X-Sib-Sandbox": "drop"}
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("brevo marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("brevo request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("brevo send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("brevo send: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		MessageID string `json:"messageId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("brevo decode: %w", err)
	}
	if out.MessageID == "" {
		return "", errors.New("brevo response missing messageId")
	}
	return out.MessageID, nil
}
