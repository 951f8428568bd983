package main

import (
	"bytes"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/oddbloke/steelersconfig/internal/app"
)

func TestLogResponse(t *testing.T) {
	var logBuf bytes.Buffer
	log.SetOutput(&logBuf)
	defer func() {
		log.SetOutput(os.Stderr)
		slog.SetLogLoggerLevel(slog.LevelInfo)
	}()
	rhc := retryablehttp.NewClient()
	rhc.Logger = slog.Default()
	rhc.ResponseLogHook = logResponse
	httpmock.ActivateNonDefault(rhc.HTTPClient)
	defer httpmock.DeactivateAndReset()
	t.Run("should log request and response details when log level is DEBUG", func(t *testing.T) {
		// given
		logBuf.Reset()
		slog.SetLogLoggerLevel(slog.LevelDebug)
		httpmock.Reset()
		httpmock.RegisterResponder(
			"POST",
			"http://watch.test/inbox",
			httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]int{"transaction_id": 1}).HeaderSet(http.Header{"dummy": []string{"alpha"}}),
		)

		// when
		r, err := rhc.Post("http://watch.test/inbox", "application/json", []byte(`{}`))

		// then
		if assert.NoError(t, err) {
			assert.Equal(t, http.StatusOK, r.StatusCode)
			assert.Conditionf(t, func() bool {
				m, err := regexp.MatchString(
					`DEBUG HTTP response method=POST .*status="200 OK".*body=map\[transaction_id:1\].*header=.*Dummy:\[alpha\]`,
					logBuf.String(),
				)
				if err != nil {
					t.Fatal(err)
				}
				return m
			}, logBuf.String())
		}
	})
	t.Run("should log acknowledged transaction when log level is INFO", func(t *testing.T) {
		// given
		logBuf.Reset()
		slog.SetLogLoggerLevel(slog.LevelInfo)
		httpmock.Reset()
		httpmock.RegisterResponder(
			"POST",
			"http://watch.test/inbox",
			httpmock.NewJsonResponderOrPanic(http.StatusOK, app.MessageAck{TransactionID: 7}),
		)

		// when
		r, err := rhc.Post("http://watch.test/inbox", "application/json", []byte(`{}`))

		// then
		if assert.NoError(t, err) {
			assert.Equal(t, http.StatusOK, r.StatusCode)
			assert.Regexp(t, `INFO App message acknowledged .*transaction_id=7`, logBuf.String())
			assert.NotContains(t, logBuf.String(), "HTTP response")
		}
	})
	t.Run("should not log response details when log level is not DEBUG and no HTTP error", func(t *testing.T) {
		// given
		logBuf.Reset()
		slog.SetLogLoggerLevel(slog.LevelInfo)
		httpmock.Reset()
		httpmock.RegisterResponder(
			"POST",
			"http://watch.test/inbox",
			httpmock.NewStringResponder(http.StatusOK, "orange"))

		// when
		r, err := rhc.Post("http://watch.test/inbox", "application/json", []byte(`{}`))

		// then
		if assert.NoError(t, err) {
			assert.Equal(t, http.StatusOK, r.StatusCode)
			assert.NotContains(t, logBuf.String(), "HTTP response")
		}
	})
	t.Run("should log response warning when HTTP error and include body", func(t *testing.T) {
		// given
		logBuf.Reset()
		slog.SetLogLoggerLevel(slog.LevelInfo)
		httpmock.Reset()
		httpmock.RegisterResponder(
			"POST",
			"http://watch.test/inbox",
			httpmock.NewStringResponder(http.StatusBadRequest, "orange"))

		// when
		r, err := rhc.Post("http://watch.test/inbox", "application/json", []byte(`{}`))

		// then
		if assert.NoError(t, err) {
			assert.Equal(t, http.StatusBadRequest, r.StatusCode)
			assert.Conditionf(t, func() bool {
				m, err := regexp.MatchString(`WARN HTTP response .*body=orange`, logBuf.String())
				if err != nil {
					t.Fatal(err)
				}
				return m
			}, logBuf.String())
		}
	})
}

func TestAckFromResponse(t *testing.T) {
	u, _ := url.Parse("http://watch.test/inbox")
	jsonHeader := http.Header{headerContentTypeKey: []string{"application/json"}}
	t.Run("should return ack and preserve body", func(t *testing.T) {
		r := &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"transaction_id":3}`)),
			Request:    &http.Request{URL: u},
			Header:     jsonHeader,
		}
		ack, ok := ackFromResponse(r)
		if assert.True(t, ok) {
			assert.Equal(t, app.MessageAck{TransactionID: 3}, ack)
			b, err := io.ReadAll(r.Body)
			if assert.NoError(t, err) {
				assert.Equal(t, `{"transaction_id":3}`, string(b))
			}
		}
	})
	cases := []struct {
		name   string
		status int
		body   string
		header http.Header
	}{
		{"HTTP error", http.StatusBadRequest, `{"transaction_id":3}`, jsonHeader},
		{"not JSON", http.StatusOK, `{"transaction_id":3}`, nil},
		{"no transaction", http.StatusOK, `{"alpha":1}`, jsonHeader},
		{"malformed JSON", http.StatusOK, `{`, jsonHeader},
	}
	for _, tc := range cases {
		t.Run("should report no ack when "+tc.name, func(t *testing.T) {
			r := &http.Response{
				StatusCode: tc.status,
				Body:       io.NopCloser(strings.NewReader(tc.body)),
				Request:    &http.Request{URL: u},
				Header:     tc.header,
			}
			_, ok := ackFromResponse(r)
			assert.False(t, ok)
		})
	}
}

func TestExtractBody(t *testing.T) {
	u, _ := url.Parse("http://watch.test/inbox")
	t.Run("should return copy of the body", func(t *testing.T) {
		r := &http.Response{
			Body:    io.NopCloser(strings.NewReader("test")),
			Request: &http.Request{URL: u},
		}
		x, err := extractBodyForLog(r)
		if assert.NoError(t, err) {
			assert.Equal(t, "test", x)
			b, err := io.ReadAll(r.Body)
			if assert.NoError(t, err) {
				assert.Equal(t, "test", string(b))
			}
		}
	})
	t.Run("should return copy of the body as JSON", func(t *testing.T) {
		r := &http.Response{
			Body:    io.NopCloser(strings.NewReader("{\"alpha\": true}")),
			Request: &http.Request{URL: u},
			Header:  http.Header{headerContentTypeKey: []string{"application/json; charset=UTF-8"}},
		}
		x, err := extractBodyForLog(r)
		if assert.NoError(t, err) {
			assert.Equal(t, map[string]any{"alpha": true}, x)
		}
	})
	t.Run("should return empty when no body", func(t *testing.T) {
		r := &http.Response{Request: &http.Request{URL: u}}
		x, err := extractBodyForLog(r)
		if assert.NoError(t, err) {
			assert.Nil(t, x)
		}
	})
	t.Run("should truncate long bodies", func(t *testing.T) {
		r := &http.Response{
			Body:    io.NopCloser(strings.NewReader(strings.Repeat("x", maxLoggedBodySize+10))),
			Request: &http.Request{URL: u},
		}
		x, err := extractBodyForLog(r)
		if assert.NoError(t, err) {
			assert.Equal(t, strings.Repeat("x", maxLoggedBodySize)+"...", x)
		}
	})
	t.Run("should return error", func(t *testing.T) {
		r := &http.Response{
			Body:    io.NopCloser(iotest.ErrReader(assert.AnError)),
			Request: &http.Request{URL: u},
		}
		_, err := extractBodyForLog(r)
		assert.ErrorIs(t, err, assert.AnError)
	})
}
