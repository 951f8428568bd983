// Steelersconfig is the configuration bridge of the Steelers watch face.
//
// It opens the settings page in the browser, receives the chosen settings,
// stores them and forwards them to the watch application.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/oddbloke/steelersconfig/internal/app/storage"
	"github.com/oddbloke/steelersconfig/internal/config"
)

const shutdownTimeout = 5 * time.Second

// defined flags
var (
	levelFlag        logLevelFlag
	configFlag       = flag.String("config", "", "Path to the configuration file (default: user config folder)")
	logFileFlag      = flag.Bool("logfile", true, "Write logs to a file instead of the console")
	openFlag         = flag.Bool("open", true, "Open the settings page on start")
	resetFlag        = flag.Bool("reset", false, "Reset the stored settings to their defaults")
	serveInboxFlag   = flag.Bool("serve-inbox", false, "Serve a local watch application inbox")
	showDirsFlag     = flag.Bool("show-dirs", false, "Show directories where user data is stored")
	showSettingsFlag = flag.Bool("show-settings", false, "Show the stored settings")
	uninstallFlag    = flag.Bool("uninstall", false, "Uninstalls the app by deleting all user files")
)

func init() {
	levelFlag.value = slog.LevelInfo
	flag.Var(&levelFlag, "loglevel", "set log level")
}

func main() {
	flag.Parse()
	ad := newAppDirs()
	if *showDirsFlag {
		fmt.Printf("Config: %s\n", ad.config)
		fmt.Printf("Database: %s\n", ad.data)
		fmt.Printf("Logs: %s\n", ad.log)
		return
	}
	if *uninstallFlag {
		fmt.Print("Are you sure you want to uninstall this app and delete all user files (y/N)?")
		var input string
		fmt.Scanln(&input)
		if strings.ToLower(input) == "y" {
			if err := ad.deleteAll(); err != nil {
				log.Fatal(err)
			}
			fmt.Println("App uninstalled")
		} else {
			fmt.Println("Aborted")
		}
		return
	}
	configPath := *configFlag
	if configPath == "" {
		fn, err := ad.initConfigFile()
		if err != nil {
			log.Fatal(err)
		}
		configPath = fn
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	slog.SetLogLoggerLevel(logLevel(cfg))
	if *logFileFlag && !*showSettingsFlag && !*resetFlag {
		fn, err := ad.initLogFile()
		if err != nil {
			log.Fatal(err)
		}
		log.SetOutput(&lumberjack.Logger{
			Filename:   fn,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn, err := ad.initDSN()
	if err != nil {
		log.Fatal(err)
	}
	db, err := storage.InitDB(ctx, dsn)
	if err != nil {
		log.Fatalf("Failed to initialize database %s: %s", dsn, err)
	}
	defer db.Close()
	st := storage.New(db)

	if *showSettingsFlag {
		if err := printSettings(ctx, os.Stdout, st); err != nil {
			log.Fatal(err)
		}
		return
	}
	if *resetFlag {
		if err := resetSettings(ctx, os.Stdout, st); err != nil {
			log.Fatal(err)
		}
		return
	}

	rhc := retryablehttp.NewClient()
	rhc.RetryMax = cfg.SendRetries
	rhc.Logger = slog.Default()
	rhc.ResponseLogHook = logResponse
	a, err := newBridgeApp(ctx, st, cfg, rhc, *serveInboxFlag)
	if err != nil {
		log.Fatal(err)
	}
	if err := run(ctx, a, cfg.CallbackAddr, *openFlag); err != nil {
		log.Fatal(err)
	}
}

// logLevel returns the level from the command line when given, else from the configuration.
func logLevel(cfg config.Config) slog.Level {
	var isSet bool
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "loglevel" {
			isSet = true
		}
	})
	if isSet {
		return levelFlag.value
	}
	v, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		slog.Warn("Invalid log level in config. Using default.", "error", err)
		return levelFlag.value
	}
	return v
}

// run runs the event loop and the callback server until ctx is canceled.
func run(ctx context.Context, a *bridgeApp, addr string, open bool) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runtime.Run(ctx)
	})
	g.Go(func() error {
		slog.Info("Callback server started", "addr", addr)
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		ctx2, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx2)
	})
	if open {
		g.Go(func() error {
			if err := a.runtime.EmitShowConfiguration(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
