// Package inbox implements the receiving end of app messages in the watch application.
//
// The watch face only reacts to the animations key:
// animations are shown when the received value is 1 and hidden otherwise.
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/oddbloke/steelersconfig/internal/app"
)

// persistKeyAnimations is where the watch application keeps its own copy of the flag.
const persistKeyAnimations = "inbox.show_animations"

const maxBodySize = 1 << 10

// Store is a persistent key-value store.
type Store interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Inbox receives app messages and keeps the effective configuration of the watch face.
type Inbox struct {
	keyAnimations uint32
	st            Store

	mu             sync.Mutex
	showAnimations bool
}

// New returns a new inbox. It loads the persisted configuration
// and falls back to showing animations when nothing was persisted.
func New(ctx context.Context, st Store, keys app.MessageKeys) (*Inbox, error) {
	k, ok := keys[app.SettingAnimations]
	if !ok {
		return nil, fmt.Errorf("inbox: no message key for %s", app.SettingAnimations)
	}
	in := &Inbox{keyAnimations: k, st: st, showAnimations: true}
	v, err := st.GetSetting(ctx, persistKeyAnimations)
	if errors.Is(err, app.ErrNotFound) {
		return in, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inbox: %w", err)
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("Ignoring invalid persisted value", "key", persistKeyAnimations, "value", v)
		return in, nil
	}
	in.showAnimations = b
	return in, nil
}

// ShowAnimations reports whether the watch face shows animations.
func (in *Inbox) ShowAnimations() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.showAnimations
}

// Receive applies a received message and persists the configuration.
// The configuration is persisted even when the message does not contain the animations key.
func (in *Inbox) Receive(ctx context.Context, d app.Dictionary) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if x, ok := d[in.keyAnimations]; ok {
		v, isInt := x.(int32)
		in.showAnimations = isInt && v == 1
		slog.Info("Animations changed", "show", in.showAnimations)
	}
	if err := in.st.SetSetting(ctx, persistKeyAnimations, strconv.FormatBool(in.showAnimations)); err != nil {
		return fmt.Errorf("inbox: %w", err)
	}
	return nil
}

// ServeHTTP receives an app message as JSON envelope and acknowledges it.
func (in *Inbox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	var e app.Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&e); err != nil {
		slog.Warn("Rejected app message", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := in.Receive(r.Context(), e.Dictionary); err != nil {
		slog.Error("Failed to receive app message", "transactionID", e.TransactionID, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(app.MessageAck{TransactionID: e.TransactionID})
}
