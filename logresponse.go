package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/oddbloke/steelersconfig/internal/app"
)

const (
	headerContentTypeKey  = "Content-Type"
	headerContentTypeJSON = "application/json"
)

// Bodies longer than this are truncated in the log.
const maxLoggedBodySize = 512

// logResponse is a callback for retryablehttp.
// It logs acknowledgements from the watch inbox, all HTTP errors
// and also the complete response when log level is DEBUG.
func logResponse(l retryablehttp.Logger, r *http.Response) {
	if ack, ok := ackFromResponse(r); ok {
		slog.Info("App message acknowledged", "url", r.Request.URL, "transaction_id", ack.TransactionID)
	}
	isDebug := slog.Default().Enabled(context.Background(), slog.LevelDebug)
	isHTTPError := r.StatusCode >= 400
	if !isDebug && !isHTTPError {
		return
	}

	var level slog.Level
	if isHTTPError {
		level = slog.LevelWarn
	} else {
		level = slog.LevelDebug
	}

	data, err := extractBodyForLog(r)
	if err != nil {
		slog.Error("Failed to extract response body", "error", err)
		data = nil
	}

	args := []any{
		"method", r.Request.Method,
		"url", r.Request.URL,
		"status", statusText(r),
		"body", data,
	}
	if isDebug {
		args = append(args, "header", r.Header)
	}
	slog.Log(context.Background(), level, "HTTP response", args...)
}

func extractBodyForLog(r *http.Response) (any, error) {
	body, err := copyResponseBody(r)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}
	if len(body) > maxLoggedBodySize {
		return string(body[:maxLoggedBodySize]) + "...", nil
	}
	if !isJSON(r) {
		return string(body), nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ackFromResponse reports the acknowledgement contained in a successful inbox response.
func ackFromResponse(r *http.Response) (app.MessageAck, bool) {
	if r.StatusCode < 200 || r.StatusCode > 299 || !isJSON(r) {
		return app.MessageAck{}, false
	}
	body, err := copyResponseBody(r)
	if err != nil || body == nil {
		return app.MessageAck{}, false
	}
	var x struct {
		TransactionID *uint32 `json:"transaction_id"`
	}
	if err := json.Unmarshal(body, &x); err != nil || x.TransactionID == nil {
		return app.MessageAck{}, false
	}
	return app.MessageAck{TransactionID: *x.TransactionID}, true
}

func isJSON(r *http.Response) bool {
	var parts []string
	for _, s := range strings.Split(r.Header.Get(headerContentTypeKey), ";") {
		parts = append(parts, strings.Trim(s, " "))
	}
	return slices.Contains(parts, headerContentTypeJSON)
}

// copyResponseBody returns a copy of the response body r. It preserves the body.
func copyResponseBody(r *http.Response) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))
	return body, nil
}

// statusText returns the status code of a response with its text.
func statusText(r *http.Response) string {
	return fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
}
