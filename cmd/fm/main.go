// Command fm is an interactive terminal client for the flea market.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/fleamarket/internal/app"
	"github.com/and161185/fleamarket/internal/config"
	"github.com/and161185/fleamarket/internal/errs"
	"github.com/and161185/fleamarket/internal/gateway"
	"github.com/and161185/fleamarket/internal/gateway/httpgw"
	"github.com/and161185/fleamarket/internal/gateway/memgw"
	"github.com/and161185/fleamarket/internal/logging"
	"github.com/and161185/fleamarket/internal/loop"
	"github.com/and161185/fleamarket/internal/metrics"
	"github.com/and161185/fleamarket/internal/mutation"
	"github.com/and161185/fleamarket/internal/navigator"
	"github.com/and161185/fleamarket/internal/session"
	"github.com/and161185/fleamarket/internal/views"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `fm, flea market client
Usage:
  fm [flags]

Flags:
  -config <file>       YAML config (default <state dir>/config.yaml)
  -api <url>           API base url
  -timeout <dur>       HTTP timeout
  -offline             use a built-in demo marketplace (users alice, bob, carol; password "password")
  -session <backend>   file, pebble or memory
  -log-level <level>   debug, info, warn, error
  -log-file <file>     log destination (default <state dir>/fm.log)
  -metrics <addr>      serve Prometheus metrics on addr
  -version

Type "help" at the prompt for commands.
`)
	os.Exit(2)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "fm:", err)
	os.Exit(1)
}

// applyFlags overlays the flags that were set explicitly onto cfg.
func applyFlags(fs *flag.FlagSet, cfg *config.Config) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "api":
			cfg.APIBaseURL = v
		case "timeout":
			cfg.HTTPTimeout = v
		case "offline":
			cfg.Offline, err = strconv.ParseBool(v)
		case "session":
			cfg.Session.Backend = v
		case "log-level":
			cfg.Log.Level = v
		case "metrics":
			cfg.MetricsAddr = v
		}
	})
	return err
}

// openStore returns the session store selected by cfg and its closer.
func openStore(cfg config.Config) (session.Store, func() error, error) {
	switch cfg.Session.Backend {
	case config.BackendMemory:
		return session.NewMemStore("", ""), func() error { return nil }, nil
	case config.BackendPebble:
		s, err := session.OpenPebble(filepath.Join(cfg.Session.Dir, "session.db"), nil)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		if err := os.MkdirAll(cfg.Session.Dir, 0o700); err != nil {
			return nil, nil, err
		}
		return session.NewFileStore(cfg.Session.Dir), func() error { return nil }, nil
	}
}

// remote is what a gateway backend offers beyond the Gateway contract.
type remote interface {
	gateway.Gateway
	views.Summarizer
}

func openGateway(cfg config.Config) (remote, error) {
	if cfg.Offline {
		gw := memgw.New()
		if err := memgw.Seed(gw); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
		return gw, nil
	}
	return httpgw.New(cfg.APIBaseURL, cfg.Timeout()), nil
}

func serveMetrics(addr string, m *metrics.Metrics, log *zap.Logger) *http.Server {
	srv := &http.Server{Addr: addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}

// wire builds the client core around backend and mounts the first screen.
func wire(ctx context.Context, backend remote, store session.Store, logger *zap.Logger, m *metrics.Metrics, imagesDir string) (*app.App, *loop.Loop) {
	l := loop.New()
	gw := gateway.WithLogging(backend, logger, m)
	env := &views.Env{
		Loop:       l,
		Gateway:    gw,
		Session:    store,
		Mutations:  mutation.New(l, gw, mutation.WithLogger(logger), mutation.WithMetrics(m)),
		Log:        logger,
		Summarizer: backend,
		Uploader:   newFileUploader(imagesDir),
	}
	nav := navigator.New(store, navigator.WithLogger(logger), navigator.WithMetrics(m))
	return app.New(ctx, nav, env), l
}

// main loads configuration, wires the client and runs the prompt.
func main() {
	fs := flag.CommandLine
	cfgPath := fs.String("config", "", "YAML config file")
	fs.String("api", "", "API base url")
	fs.String("timeout", "", "HTTP timeout")
	fs.Bool("offline", false, "use a built-in demo marketplace")
	fs.String("session", "", "session backend: file, pebble or memory")
	fs.String("log-level", "", "log level")
	logFile := fs.String("log-file", "", "log destination")
	fs.String("metrics", "", "serve Prometheus metrics on addr")
	showVersion := fs.Bool("version", false, "print version")
	fs.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("fm %s (%s)\n", version, buildDate)
		return
	}
	if flag.NArg() > 0 {
		usage()
	}

	dir := session.ConfigDir()
	cfg, err := config.Load(*cfgPath, dir)
	if err != nil {
		fail(err)
	}
	if err := applyFlags(fs, &cfg); err != nil {
		fail(err)
	}
	if err := cfg.Validate(); err != nil {
		fail(err)
	}

	if *logFile == "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			fail(err)
		}
		*logFile = filepath.Join(dir, "fm.log")
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development, *logFile)
	if err != nil {
		fail(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.Bool("offline", cfg.Offline),
		zap.String("api", cfg.APIBaseURL),
		zap.String("session", cfg.Session.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		// a second interrupt kills the process while the prompt blocks
		stop()
		fmt.Fprintln(os.Stderr, "\ninterrupted, press Enter to exit")
	}()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, m, logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		fail(err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close session store", zap.Error(err))
		}
	}()

	backend, err := openGateway(cfg)
	if err != nil {
		fail(err)
	}

	a, l := wire(ctx, backend, store, logger, m, filepath.Join(dir, "images"))
	defer a.Close()

	sh := newShell(a, l, os.Stdin, os.Stdout)
	sh.password = readPassword
	if err := sh.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shell", zap.Error(err))
		fail(errors.New(errs.Message(err)))
	}
	logger.Info("bye")
}
