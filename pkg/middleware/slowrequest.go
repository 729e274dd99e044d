package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-service/pkg/logging"
)

// TelemetryClient defines the interface for telemetry operations.
type TelemetryClient interface {
	RecordSlowRequest(ctx context.Context, path string, durationMs int64, traceID, requestID string)
	RecordError(ctx context.Context, path, errorMsg string, statusCode int, traceID, requestID string)
}

// SlackClient defines the interface for Slack notifications.
type SlackClient interface {
	SendSlowRequestAlert(ctx context.Context, path string, durationMs int64, traceID, requestID string) error
	SendErrorAlert(ctx context.Context, path, errorMsg string, statusCode int, traceID, requestID string) error
}

const (
	alertQueueSize = 64
	alertTimeout   = 30 * time.Second
)

type alert struct {
	path       string
	durationMs int64
	errorMsg   string
	statusCode int // 0 for a slow request
	traceID    string
	requestID  string
}

// SlowRequestMiddleware detects slow requests and server errors and reports
// them to telemetry and Slack. Either client may be nil. Responses carrying
// the X-Service-Handled header were already reported by the service and are
// skipped.
//
// Slack alerts are posted by a background worker that runs until ctx is done,
// so a slow or failing webhook never holds up a response. Alerts arriving
// while the queue is full are dropped with a warning.
func SlowRequestMiddleware(
	ctx context.Context,
	slowThresholdMs int64,
	telemetryClient TelemetryClient,
	slackClient SlackClient,
	logger logging.Logger,
) gin.HandlerFunc {
	var queue chan alert
	if slackClient != nil {
		queue = make(chan alert, alertQueueSize)
		go postAlerts(ctx, queue, slackClient, logger)
	}
	enqueue := func(a alert) {
		if queue == nil {
			return
		}
		select {
		case queue <- a:
		default:
			logger.Warn("Alert queue full, dropping Slack alert",
				logging.NewField("path", a.path),
				logging.NewField("request_id", a.requestID),
			)
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		if c.Writer.Header().Get(ServiceHandledHeader) == "true" {
			return
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		latencyMs := time.Since(start).Milliseconds()
		statusCode := c.Writer.Status()
		traceID := GetTraceIDFromGin(c)
		requestID := GetRequestIDFromGin(c)
		reqCtx := c.Request.Context()

		if slowThresholdMs > 0 && latencyMs > slowThresholdMs {
			logger.Warn("Slow request detected",
				logging.NewField("path", path),
				logging.NewField("duration_ms", latencyMs),
				logging.NewField("threshold_ms", slowThresholdMs),
				logging.NewField("request_id", requestID),
			)
			if telemetryClient != nil {
				telemetryClient.RecordSlowRequest(reqCtx, path, latencyMs, traceID, requestID)
			}
			enqueue(alert{path: path, durationMs: latencyMs, traceID: traceID, requestID: requestID})
		}

		if statusCode >= 500 {
			errorMsg := "Internal server error"
			if len(c.Errors) > 0 {
				errorMsg = c.Errors.String()
			}
			if telemetryClient != nil {
				telemetryClient.RecordError(reqCtx, path, errorMsg, statusCode, traceID, requestID)
			}
			enqueue(alert{path: path, errorMsg: errorMsg, statusCode: statusCode, traceID: traceID, requestID: requestID})
		}
	}
}

func postAlerts(ctx context.Context, queue <-chan alert, slack SlackClient, logger logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-queue:
			sendCtx, cancel := context.WithTimeout(ctx, alertTimeout)
			var err error
			if a.statusCode == 0 {
				err = slack.SendSlowRequestAlert(sendCtx, a.path, a.durationMs, a.traceID, a.requestID)
			} else {
				err = slack.SendErrorAlert(sendCtx, a.path, a.errorMsg, a.statusCode, a.traceID, a.requestID)
			}
			cancel()
			if err != nil {
				logger.Error("Failed to send Slack alert",
					logging.NewField("path", a.path),
					logging.NewField("error", err),
				)
			}
		}
	}
}
