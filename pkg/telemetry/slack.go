package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/yourorg/pdf-service/pkg/logging"
	"github.com/yourorg/pdf-service/pkg/utils"
)

// SlackClient posts alerts to a Slack incoming webhook, at most one message
// per minInterval.
type SlackClient struct {
	webhookURL  string
	serviceName string
	channel     string
	logger      logging.Logger
	enabled     bool
	client      *http.Client
	mu          sync.Mutex
	lastSent    time.Time
	minInterval time.Duration
}

// SlackConfig holds Slack configuration.
type SlackConfig struct {
	WebhookURL  string
	ServiceName string
	Channel     string
	Enabled     bool
	// MinInterval spaces consecutive messages. Defaults to one second.
	MinInterval time.Duration
}

// SlackMessage represents a Slack webhook message.
type SlackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents a Slack message attachment.
type SlackAttachment struct {
	Color     string       `json:"color,omitempty"`
	Title     string       `json:"title,omitempty"`
	Text      string       `json:"text,omitempty"`
	Fields    []SlackField `json:"fields,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
}

// SlackField represents a field in a Slack attachment.
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackClient creates a new Slack client. Without a webhook URL the
// client is disabled and every send is a no-op.
func NewSlackClient(cfg SlackConfig, logger logging.Logger) *SlackClient {
	if !cfg.Enabled || cfg.WebhookURL == "" {
		logger.Info("Slack notifications disabled or webhook URL not provided")
		return &SlackClient{
			enabled: false,
			logger:  logger,
		}
	}

	channel := cfg.Channel
	if channel == "" {
		channel = "#alerts"
	}
	interval := cfg.MinInterval
	if interval <= 0 {
		interval = time.Second
	}

	return &SlackClient{
		webhookURL:  cfg.WebhookURL,
		serviceName: cfg.ServiceName,
		channel:     channel,
		logger:      logger,
		enabled:     true,
		client:      &http.Client{Timeout: 10 * time.Second},
		minInterval: interval,
	}
}

// Enabled reports whether messages are actually sent.
func (s *SlackClient) Enabled() bool { return s.enabled }

// SendMessage sends a message to Slack, waiting out the minimum interval
// since the previous message.
func (s *SlackClient) SendMessage(ctx context.Context, msg SlackMessage) error {
	if !s.enabled {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if wait := s.minInterval - time.Since(s.lastSent); !s.lastSent.IsZero() && wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	if msg.Channel == "" {
		msg.Channel = s.channel
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return utils.Permanent(err)
		}
		return err
	}

	s.lastSent = time.Now()
	return nil
}

// SendSlowRequestAlert sends a slow request alert to Slack.
func (s *SlackClient) SendSlowRequestAlert(ctx context.Context, path string, durationMs int64, traceID, requestID string) error {
	if !s.enabled {
		return nil
	}

	title := fmt.Sprintf("Slow request - %s", s.serviceName)
	return s.SendMessage(ctx, SlackMessage{
		Text: title,
		Attachments: []SlackAttachment{{
			Color: "warning",
			Title: title,
			Text:  fmt.Sprintf("A slow request was detected in %s", s.serviceName),
			Fields: []SlackField{
				{Title: "Route", Value: path, Short: true},
				{Title: "Service", Value: s.serviceName, Short: true},
				{Title: "Duration", Value: fmt.Sprintf("%d ms", durationMs), Short: true},
				{Title: "Trace ID", Value: traceID, Short: true},
				{Title: "Request ID", Value: requestID, Short: true},
			},
			Timestamp: time.Now().Unix(),
		}},
	})
}

const errorAlertAttempts = 3

// SendErrorAlert sends a server error alert to Slack, retrying failed posts.
func (s *SlackClient) SendErrorAlert(ctx context.Context, path, errorMsg string, statusCode int, traceID, requestID string) error {
	if !s.enabled {
		return nil
	}

	title := fmt.Sprintf("Error - %s", s.serviceName)
	return s.RetrySendMessage(ctx, SlackMessage{
		Text: title,
		Attachments: []SlackAttachment{{
			Color: "danger",
			Title: title,
			Text:  fmt.Sprintf("An error occurred in %s", s.serviceName),
			Fields: []SlackField{
				{Title: "Route", Value: path, Short: true},
				{Title: "Service", Value: s.serviceName, Short: true},
				{Title: "Error", Value: errorMsg, Short: false},
				{Title: "Status Code", Value: fmt.Sprintf("%d", statusCode), Short: true},
				{Title: "Trace ID", Value: traceID, Short: true},
				{Title: "Request ID", Value: requestID, Short: true},
			},
			Timestamp: time.Now().Unix(),
		}},
	}, errorAlertAttempts)
}

// RetrySendMessage sends a message with retry logic. Rejections other than
// rate limiting are not retried.
func (s *SlackClient) RetrySendMessage(ctx context.Context, msg SlackMessage, maxAttempts int) error {
	if !s.enabled {
		return nil
	}

	config := utils.RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}

	return utils.Retry(ctx, config, func() error {
		return s.SendMessage(ctx, msg)
	})
}
