// Package configbridge connects the settings page of the watch face
// with local storage and the watch application.
package configbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/maniartech/signals"

	"github.com/oddbloke/steelersconfig/internal/app"
	"github.com/oddbloke/steelersconfig/internal/querystring"
)

// responseCanceled is reported by some hosts when the settings page was closed without saving.
const responseCanceled = "CANCELLED"

// Store is a persistent key-value store.
type Store interface {
	// GetSetting returns app.ErrNotFound when the key does not exist.
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Host is the host runtime.
type Host interface {
	OpenURL(ctx context.Context, url string) error
	SendAppMessage(ctx context.Context, m app.AppMessage, onSuccess func(app.MessageAck), onFailure func(app.MessageAck, error))
}

// Events are the lifecycle events the bridge listens to.
type Events struct {
	ShowConfiguration signals.Signal[app.ShowConfigurationEvent]
	WebviewClosed     signals.Signal[app.WebviewClosedEvent]
}

// Bridge is the configuration bridge.
type Bridge struct {
	baseURL string
	host    Host
	st      Store
}

// New returns a new bridge. baseURL is the URL of the settings page without query.
func New(st Store, host Host, baseURL string) *Bridge {
	return &Bridge{baseURL: baseURL, host: host, st: st}
}

// Register adds the handlers of the bridge as listeners to the lifecycle events.
// Errors are logged.
func (b *Bridge) Register(ev Events) {
	ev.ShowConfiguration.AddListener(func(ctx context.Context, _ app.ShowConfigurationEvent) {
		if err := b.ShowConfiguration(ctx); err != nil {
			slog.Error("Failed to show configuration", "error", err)
		}
	}, "configbridge")
	ev.WebviewClosed.AddListener(func(ctx context.Context, e app.WebviewClosedEvent) {
		err := b.WebviewClosed(ctx, e)
		switch {
		case errors.Is(err, app.ErrCanceled):
			slog.Info("Configuration canceled")
		case errors.Is(err, app.ErrParse):
			slog.Warn("Ignoring configuration response", "error", err)
		case err != nil:
			slog.Error("Failed to apply configuration", "error", err)
		}
	}, "configbridge")
}

// ConfigURL returns the URL of the settings page with the current settings as query.
func (b *Bridge) ConfigURL(ctx context.Context) string {
	v := b.animations(ctx)
	return b.baseURL + querystring.Encode([]querystring.Pair{
		{Key: app.SettingAnimations, Value: v},
	})
}

// animations returns the current animations setting or the default.
func (b *Bridge) animations(ctx context.Context) string {
	v, err := b.st.GetSetting(ctx, app.SettingAnimations)
	if errors.Is(err, app.ErrNotFound) {
		return app.DefaultAnimations
	}
	if err != nil {
		slog.Warn("Failed to read setting. Using default.", "key", app.SettingAnimations, "error", err)
		return app.DefaultAnimations
	}
	if v == "" {
		return app.DefaultAnimations
	}
	return v
}

// ShowConfiguration opens the settings page.
func (b *Bridge) ShowConfiguration(ctx context.Context) error {
	u := b.ConfigURL(ctx)
	slog.Info("Showing configuration", "url", u)
	return b.host.OpenURL(ctx, u)
}

// WebviewClosed applies the result of the settings page.
//
// The setting is persisted before the app message is sent.
// Malformed responses return app.ErrParse and a page closed without saving returns app.ErrCanceled.
// In both cases nothing is persisted or sent.
func (b *Bridge) WebviewClosed(ctx context.Context, e app.WebviewClosedEvent) error {
	slog.Debug("Configuration response", "response", e.Response)
	if e.Response == "" || e.Response == responseCanceled {
		return app.ErrCanceled
	}
	v, err := parseResponse(e.Response)
	if err != nil {
		return err
	}
	if err := b.st.SetSetting(ctx, app.SettingAnimations, app.MessageValueString(v)); err != nil {
		return err
	}
	m := app.AppMessage{app.SettingAnimations: v}
	slog.Info("Sending app message", "message", m)
	b.host.SendAppMessage(ctx, m, sendSuccess, sendFailure)
	return nil
}

func sendSuccess(ack app.MessageAck) {
	slog.Info("App message delivered", "transactionID", ack.TransactionID)
}

func sendFailure(ack app.MessageAck, err error) {
	slog.Warn("App message not delivered", "transactionID", ack.TransactionID, "error", err)
}

// parseResponse decodes a response and returns the animations value as int32 or string.
func parseResponse(response string) (any, error) {
	s, err := querystring.DecodeComponent(response)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", app.ErrParse, err)
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %w", app.ErrParse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", app.ErrParse)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: not an object", app.ErrParse)
	}
	x, ok := data[app.SettingAnimations]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", app.ErrParse, app.SettingAnimations)
	}
	v, err := messageValue(x)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", app.ErrParse, app.SettingAnimations, err)
	}
	return v, nil
}

// messageValue converts a JSON value into a value an app message can carry.
// Booleans become 1 or 0.
func messageValue(x any) (any, error) {
	switch v := x.(type) {
	case json.Number:
		// Whole numbers like 1.0 or 1e0 count as integers.
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil || f != math.Trunc(f) {
			return nil, fmt.Errorf("not an integer: %s", v)
		}
		if f < math.MinInt32 || f > math.MaxInt32 {
			return nil, fmt.Errorf("out of range: %s", v)
		}
		return int32(f), nil
	case string:
		return v, nil
	case bool:
		if v {
			return int32(1), nil
		}
		return int32(0), nil
	}
	return nil, fmt.Errorf("unsupported value: %v", x)
}

