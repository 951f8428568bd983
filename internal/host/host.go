// Package host implements the host runtime of the configuration bridge.
//
// The runtime dispatches lifecycle events on a single event loop,
// opens URLs in the system browser, receives the result of the settings page
// through a local HTTP callback and delivers app messages to the watch application.
package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/maniartech/signals"
	"github.com/toqueteos/webbrowser"
	"golang.org/x/time/rate"

	"github.com/oddbloke/steelersconfig/internal/app"
	"github.com/oddbloke/steelersconfig/internal/querystring"
)

const (
	defaultSendTimeout = 10 * time.Second
	loopBufferSize     = 16
)

// ErrStopped is returned when posting to a runtime whose event loop is not running anymore.
var ErrStopped = errors.New("runtime stopped")

// Runtime is the host runtime.
type Runtime struct {
	// Lifecycle events. Listeners are called on the event loop.
	ShowConfiguration signals.Signal[app.ShowConfigurationEvent]
	WebviewClosed     signals.Signal[app.WebviewClosedEvent]

	// OpenBrowser opens a URL for the user. Defaults to the system browser.
	OpenBrowser func(url string) error

	callbackURL string
	client      *retryablehttp.Client
	done        chan struct{}
	inboxURL    string
	keys        app.MessageKeys
	limiter     *rate.Limiter
	loop        chan func(context.Context)
	running     atomic.Bool
	sendTimeout time.Duration
	txID        atomic.Uint32
}

// Params holds the parameters for creating a new runtime.
// Optional fields may be left at their zero value.
type Params struct {
	// CallbackURL is passed to the settings page as return_to. Optional.
	CallbackURL string
	// Client is used to deliver app messages. Optional.
	Client *retryablehttp.Client
	// InboxURL is where app messages are delivered to.
	InboxURL string
	// MessageKeys maps message key names to numeric keys. Defaults to app.DefaultMessageKeys.
	MessageKeys app.MessageKeys
	SendTimeout time.Duration
}

// New returns a new runtime.
func New(arg Params) *Runtime {
	if arg.Client == nil {
		arg.Client = retryablehttp.NewClient()
		arg.Client.RetryMax = 0
		arg.Client.Logger = slog.Default()
	}
	if arg.MessageKeys == nil {
		arg.MessageKeys = app.DefaultMessageKeys
	}
	if arg.SendTimeout == 0 {
		arg.SendTimeout = defaultSendTimeout
	}
	r := &Runtime{
		ShowConfiguration: signals.NewSync[app.ShowConfigurationEvent](),
		WebviewClosed:     signals.NewSync[app.WebviewClosedEvent](),
		OpenBrowser:       webbrowser.Open,
		callbackURL:       arg.CallbackURL,
		client:            arg.Client,
		done:              make(chan struct{}),
		inboxURL:          arg.InboxURL,
		keys:              arg.MessageKeys,
		limiter:           rate.NewLimiter(5, 10),
		loop:              make(chan func(context.Context), loopBufferSize),
		sendTimeout:       arg.SendTimeout,
	}
	return r
}

// Run runs the event loop until ctx is canceled.
// A runtime can only be run once.
func (r *Runtime) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return errors.New("runtime already started")
	}
	defer close(r.done)
	slog.Info("Event loop started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("Event loop stopped")
			return nil
		case fn := <-r.loop:
			fn(ctx)
		}
	}
}

// post enqueues fn for the event loop.
// It blocks when the queue is full and fails when the runtime has stopped.
func (r *Runtime) post(ctx context.Context, fn func(context.Context)) error {
	select {
	case <-r.done:
		return ErrStopped
	default:
	}
	select {
	case r.loop <- fn:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EmitShowConfiguration enqueues a show configuration event.
func (r *Runtime) EmitShowConfiguration(ctx context.Context) error {
	return r.post(ctx, func(ctx context.Context) {
		slog.Debug("Event", "name", "showConfiguration")
		r.ShowConfiguration.Emit(ctx, app.ShowConfigurationEvent{})
	})
}

// EmitWebviewClosed enqueues a webview closed event with the raw response of the settings page.
func (r *Runtime) EmitWebviewClosed(ctx context.Context, response string) error {
	return r.post(ctx, func(ctx context.Context) {
		slog.Debug("Event", "name", "webviewclosed", "response", response)
		r.WebviewClosed.Emit(ctx, app.WebviewClosedEvent{Response: response})
	})
}

// OpenURL opens a URL in the browser.
// When a callback URL is configured it is added as return_to parameter.
func (r *Runtime) OpenURL(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.callbackURL != "" {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "return_to=" + querystring.EncodeComponent(r.callbackURL)
	}
	slog.Info("Opening URL", "url", url)
	if err := r.OpenBrowser(url); err != nil {
		return fmt.Errorf("open URL %s: %w", url, err)
	}
	return nil
}

// SendAppMessage sends a message to the watch application without waiting for the outcome.
//
// Once the outcome is known exactly one of the callbacks is posted to the event loop.
// When the runtime has stopped by then, the callback is dropped and only a warning is logged.
// Callbacks may be nil.
func (r *Runtime) SendAppMessage(ctx context.Context, m app.AppMessage, onSuccess func(app.MessageAck), onFailure func(app.MessageAck, error)) {
	ack := app.MessageAck{TransactionID: r.txID.Add(1)}
	go func() {
		err := r.deliver(ctx, ack, m)
		cb := func(context.Context) {
			if err != nil {
				if onFailure != nil {
					onFailure(ack, err)
				}
				return
			}
			if onSuccess != nil {
				onSuccess(ack)
			}
		}
		if err := r.post(context.Background(), cb); err != nil {
			slog.Warn("Dropped message callback", "transactionID", ack.TransactionID, "error", err)
		}
	}()
}

func (r *Runtime) deliver(ctx context.Context, ack app.MessageAck, m app.AppMessage) error {
	d, err := r.keys.Resolve(m)
	if err != nil {
		return fmt.Errorf("%w: %w", app.ErrDelivery, err)
	}
	data, err := json.Marshal(app.Envelope{TransactionID: ack.TransactionID, Dictionary: d})
	if err != nil {
		return fmt.Errorf("%w: %w", app.ErrDelivery, err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, r.inboxURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", app.ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", app.ErrDelivery, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: NACK: %s", app.ErrDelivery, resp.Status)
	}
	return nil
}
