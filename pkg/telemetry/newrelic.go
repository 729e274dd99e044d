package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/yourorg/pdf-service/pkg/logging"
)

// NewRelicClient wraps the New Relic agent. A disabled client accepts every
// call and records nothing.
type NewRelicClient struct {
	app         *newrelic.Application
	logger      logging.Logger
	serviceName string
	enabled     bool
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	LicenseKey  string
	AppName     string
	ServiceName string
	Enabled     bool
}

// NewNewRelicClient creates a new New Relic client.
func NewNewRelicClient(cfg NewRelicConfig, logger logging.Logger) (*NewRelicClient, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		logger.Info("New Relic disabled or license key not provided")
		return &NewRelicClient{
			enabled:     false,
			logger:      logger,
			serviceName: cfg.ServiceName,
		}, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	logger.Info("New Relic client initialized",
		logging.NewField("app_name", cfg.AppName),
		logging.NewField("service", cfg.ServiceName),
	)

	return &NewRelicClient{
		app:         app,
		logger:      logger,
		serviceName: cfg.ServiceName,
		enabled:     true,
	}, nil
}

// Enabled reports whether an agent is running.
func (n *NewRelicClient) Enabled() bool { return n.enabled && n.app != nil }

// Middleware starts one web transaction per request, named after the matched
// route, and stores it in the request context for RecordTransaction.
func (n *NewRelicClient) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !n.enabled || n.app == nil {
			c.Next()
			return
		}

		name := c.FullPath()
		if name == "" {
			name = "NotFound"
		}
		txn := n.app.StartTransaction(c.Request.Method + " " + name)
		defer txn.End()

		txn.SetWebRequestHTTP(c.Request)
		c.Writer = &nrResponseWriter{ResponseWriter: c.Writer, txn: txn}
		c.Request = c.Request.WithContext(newrelic.NewContext(c.Request.Context(), txn))

		c.Next()
	}
}

// nrResponseWriter reports the response status to the transaction.
type nrResponseWriter struct {
	gin.ResponseWriter
	txn *newrelic.Transaction
}

func (w *nrResponseWriter) WriteHeader(code int) {
	w.txn.SetWebResponse(nil).WriteHeader(code)
	w.ResponseWriter.WriteHeader(code)
}

// RecordTransaction annotates the request's transaction, starting a
// standalone one when the request has none.
func (n *NewRelicClient) RecordTransaction(ctx context.Context, name string, durationMs int64, statusCode int, traceID, requestID string) {
	if !n.enabled || n.app == nil {
		return
	}

	txn := newrelic.FromContext(ctx)
	if txn == nil {
		txn = n.app.StartTransaction(name)
		defer txn.End()
	}

	txn.AddAttribute("trace_id", traceID)
	txn.AddAttribute("request_id", requestID)
	txn.AddAttribute("status_code", statusCode)
	txn.AddAttribute("duration_ms", durationMs)
	txn.AddAttribute("service", n.serviceName)

	if statusCode >= 500 {
		txn.NoticeError(fmt.Errorf("HTTP %d", statusCode))
	}
}

// RecordCustomEvent records a custom event in New Relic. The service name is
// added to the attributes.
func (n *NewRelicClient) RecordCustomEvent(eventType string, attributes map[string]interface{}) {
	if !n.enabled || n.app == nil {
		return
	}

	attrs := make(map[string]interface{}, len(attributes)+1)
	for k, v := range attributes {
		attrs[k] = v
	}
	attrs["service"] = n.serviceName
	n.app.RecordCustomEvent(eventType, attrs)
}

// RecordSlowRequest records a slow request event.
func (n *NewRelicClient) RecordSlowRequest(ctx context.Context, path string, durationMs int64, traceID, requestID string) {
	if !n.enabled {
		return
	}

	n.RecordCustomEvent("SlowRequest", map[string]interface{}{
		"path":        path,
		"duration_ms": durationMs,
		"trace_id":    traceID,
		"request_id":  requestID,
	})
	n.RecordTransaction(ctx, path, durationMs, 200, traceID, requestID)
}

// RecordError records a server error event.
func (n *NewRelicClient) RecordError(ctx context.Context, path, errorMsg string, statusCode int, traceID, requestID string) {
	if !n.enabled {
		return
	}

	n.RecordCustomEvent("ServiceError", map[string]interface{}{
		"path":        path,
		"error":       errorMsg,
		"status_code": statusCode,
		"trace_id":    traceID,
		"request_id":  requestID,
	})
	n.RecordTransaction(ctx, path, 0, statusCode, traceID, requestID)

	n.logger.Error("Service error detected",
		logging.NewField("path", path),
		logging.NewField("error", errorMsg),
		logging.NewField("status_code", statusCode),
		logging.NewField("trace_id", traceID),
		logging.NewField("request_id", requestID),
	)
}

// Shutdown flushes pending data and stops the agent.
func (n *NewRelicClient) Shutdown(timeout time.Duration) {
	if n.enabled && n.app != nil {
		n.app.Shutdown(timeout)
	}
}
