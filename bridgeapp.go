package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/oddbloke/steelersconfig/internal/app"
	"github.com/oddbloke/steelersconfig/internal/app/storage"
	"github.com/oddbloke/steelersconfig/internal/config"
	"github.com/oddbloke/steelersconfig/internal/configbridge"
	"github.com/oddbloke/steelersconfig/internal/host"
	"github.com/oddbloke/steelersconfig/internal/inbox"
)

// bridgeApp holds the wired components of the command.
type bridgeApp struct {
	handler http.Handler
	inbox   *inbox.Inbox // only set when the inbox is served locally
	runtime *host.Runtime
}

func newBridgeApp(ctx context.Context, st *storage.Storage, cfg config.Config, client *retryablehttp.Client, serveInbox bool) (*bridgeApp, error) {
	rt := host.New(host.Params{
		CallbackURL: host.CallbackURL(cfg.CallbackAddr),
		Client:      client,
		InboxURL:    cfg.InboxURL,
		MessageKeys: app.DefaultMessageKeys,
		SendTimeout: cfg.SendTimeout,
	})
	b := configbridge.New(st, rt, cfg.ConfigPageURL)
	b.Register(configbridge.Events{
		ShowConfiguration: rt.ShowConfiguration,
		WebviewClosed:     rt.WebviewClosed,
	})
	a := &bridgeApp{runtime: rt}
	mux := http.NewServeMux()
	if serveInbox {
		in, err := inbox.New(ctx, st, app.DefaultMessageKeys)
		if err != nil {
			return nil, err
		}
		mux.Handle("/inbox", in)
		a.inbox = in
	}
	mux.Handle("/", rt.CallbackHandler())
	a.handler = mux
	return a, nil
}

// resetSettings deletes the stored settings, so that defaults apply again.
func resetSettings(ctx context.Context, w io.Writer, st *storage.Storage) error {
	if err := st.DeleteSetting(ctx, app.SettingAnimations); err != nil {
		return err
	}
	fmt.Fprintf(w, "Reset %s to default %s\n", app.SettingAnimations, app.DefaultAnimations)
	return nil
}

// printSettings writes all persisted settings to w.
func printSettings(ctx context.Context, w io.Writer, st *storage.Storage) error {
	oo, err := st.ListSettings(ctx)
	if err != nil {
		return err
	}
	if len(oo) == 0 {
		fmt.Fprintln(w, "No settings stored")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tUPDATED")
	for _, o := range oo {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Key, o.Value, humanize.RelTime(o.UpdatedAt, time.Now(), "ago", "from now"))
	}
	return tw.Flush()
}
