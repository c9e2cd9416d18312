package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Deliverer performs the HTTP webhook delivery for queued events. Failures
// return an error so asynq retries with its backoff schedule.
type Deliverer struct {
	Endpoint string
	Secret   string
	Client   *http.Client
	Logger   zerolog.Logger
}

// HandleWebhookDelivery is the asynq handler for webhook delivery tasks.
func (d Deliverer) HandleWebhookDelivery(ctx context.Context, t *asynq.Task) error {
	var task webhookTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return fmt.Errorf("decode webhook task: %w", err)
	}
	if d.Endpoint == "" {
		d.Logger.Debug().Str("topic", task.Topic).Msg("no webhook endpoint configured, dropping delivery")
		return nil
	}
	if err := validateURL(d.Endpoint); err != nil {
		return fmt.Errorf("webhook endpoint: %w", err)
	}

	body, err := json.Marshal(struct {
		EventID    string          `json:"eventId"`
		Topic      string          `json:"topic"`
		Data       json.RawMessage `json:"data"`
		OccurredAt time.Time       `json:"occurredAt"`
	}{
		EventID:    task.EventID,
		Topic:      task.Topic,
		Data:       task.Data,
		OccurredAt: task.OccurredAt,
	})
	if err != nil {
		return err
	}

	ts := time.Now().Unix()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "backend-pos-webhooks/1.0")
	req.Header.Set("X-Event-ID", task.EventID)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Signature", ComputeSignature(d.Secret, ts, task.EventID, body))

	client := d.Client
	if client == nil {
		client = HTTPClient(5 * time.Second)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	d.Logger.Info().
		Str("event_id", task.EventID).
		Str("topic", task.Topic).
		Int("status", resp.StatusCode).
		Msg("webhook delivered")
	return nil
}

// ComputeSignature calculates the webhook signature for the provided payload.
// The format is HMAC-SHA256 over "<ts>.<eventID>.<body>" using the shared
// secret.
func ComputeSignature(secret string, ts int64, eventID string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(eventID))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// HTTPClient returns an HTTP client configured for webhook delivery.
func HTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.New("url must be http or https")
	}
	if parsed.Scheme == "http" {
		host := parsed.Hostname()
		if host != "localhost" && host != "127.0.0.1" {
			return errors.New("http only allowed for localhost")
		}
	}
	if parsed.Host == "" {
		return errors.New("url must include host")
	}
	return nil
}
