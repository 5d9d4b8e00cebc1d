package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// httpPost sends a JSON payload and classifies the response: 5xx and
// transport errors are transient, 4xx is wrapped with backoff.Permanent
// so consumers skip the retry path.
func httpPost(ctx context.Context, client *http.Client, url, apiKey, name string, payload any) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%s: marshal payload: %w", name, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%s temporary error: %s", name, resp.Status)
	}
	if resp.StatusCode >= 400 {
		return nil, backoff.Permanent(fmt.Errorf("%s permanent error: %s", name, resp.Status))
	}

	out := Response{"statusCode": resp.StatusCode}
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil {
		for k, v := range decoded {
			out[k] = v
		}
	}
	return out, nil
}

type HTTPEmailProvider struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func (p *HTTPEmailProvider) SendEmail(ctx context.Context, msg EmailMessage) (Response, error) {
	payload := map[string]any{
		"to":      msg.To,
		"from":    msg.From,
		"subject": msg.Subject,
		"body":    msg.Body,
	}
	return httpPost(ctx, p.Client, p.Endpoint+"/mail/send", p.APIKey, "email provider", payload)
}

type HTTPSMSProvider struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func (p *HTTPSMSProvider) SendSMS(ctx context.Context, msg SMSMessage) (Response, error) {
	payload := map[string]any{
		"to":      msg.To,
		"from":    msg.From,
		"message": msg.Body,
	}
	return httpPost(ctx, p.Client, p.Endpoint+"/messages", p.APIKey, "sms provider", payload)
}

type HTTPPushProvider struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func (p *HTTPPushProvider) SendPush(ctx context.Context, msg PushMessage) (Response, error) {
	payload := map[string]any{
		"tokens": msg.Tokens,
		"title":  msg.Title,
		"body":   msg.Body,
		"data":   msg.Data,
	}
	return httpPost(ctx, p.Client, p.Endpoint+"/push/send", p.APIKey, "push provider", payload)
}
