package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/naybourhood/naybourhood-server/internal/config"
	"github.com/naybourhood/naybourhood-server/internal/pkg/httpretry"
	"github.com/naybourhood/naybourhood-server/internal/pkg/logger"
)

const defaultResendURL = "https://api.resend.com"

// ResendNotifier sends through the Resend REST API.
type ResendNotifier struct {
	client  httpretry.HTTPDoer
	apiKey  string
	baseURL string
	from    string
}

func NewResendNotifier(cfg config.NotifyConfig) *ResendNotifier {
	baseURL := cfg.ResendURL
	if baseURL == "" {
		baseURL = defaultResendURL
	}
	return &ResendNotifier{
		client:  httpretry.New(nil, 3),
		apiKey:  cfg.ResendAPIKey,
		baseURL: baseURL,
		from:    fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress),
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

func (n *ResendNotifier) Send(ctx context.Context, email *Email) error {
	payload, err := json.Marshal(resendRequest{
		From:    n.from,
		To:      []string{email.To},
		Subject: email.Subject,
		HTML:    email.HTMLBody,
		Text:    email.TextBody,
	})
	if err != nil {
		return fmt.Errorf("marshal resend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend send: status %d: %s", resp.StatusCode, string(body))
	}

	var out resendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err == nil {
		logger.Debug("notification sent via resend", "to", email.To, "message_id", out.ID)
	}
	return nil
}
