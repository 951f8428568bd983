package host

import (
	"fmt"
	"log/slog"
	"net/http"
)

// CallbackURL returns the URL the settings page should return its result to
// for a callback server listening on addr.
func CallbackURL(addr string) string {
	return fmt.Sprintf("http://%s/close?", addr)
}

// CallbackHandler returns a handler for the local callback server.
//
// GET /close?<response> fires a webview closed event with the raw query as response.
// GET /configure fires a show configuration event.
func (r *Runtime) CallbackHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /close", func(w http.ResponseWriter, req *http.Request) {
		if err := r.EmitWebviewClosed(req.Context(), req.URL.RawQuery); err != nil {
			slog.Error("Failed to emit event", "name", "webviewclosed", "error", err)
			http.Error(w, "runtime not available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "Settings received. You can close this window.")
	})
	mux.HandleFunc("GET /configure", func(w http.ResponseWriter, req *http.Request) {
		if err := r.EmitShowConfiguration(req.Context()); err != nil {
			slog.Error("Failed to emit event", "name", "showConfiguration", "error", err)
			http.Error(w, "runtime not available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "Opening settings page.")
	})
	return r.limit(mux)
}

func (r *Runtime) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.limiter.Allow() {
			slog.Warn("Callback request rejected", "reason", "rate limit", "path", req.URL.Path)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}
