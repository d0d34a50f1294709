package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/runtimeprefs/internal/settings/loader"
	"github.com/dshills/runtimeprefs/internal/settings/metrics"
	"github.com/dshills/runtimeprefs/internal/settings/notify"
	"github.com/dshills/runtimeprefs/internal/settings/registry"
	"github.com/dshills/runtimeprefs/internal/settings/watcher"
)

func runWatch(e *env, args []string) error {
	fs := newFlagSet(e, "watch")
	configPath := fs.String("config", "", "Settings file (TOML) to watch")
	metricsAddr := fs.String("metrics", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	debounce := fs.Duration("debounce", 100*time.Millisecond, "Quiet period before reloading")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *configPath == "" {
		fmt.Fprintln(e.stderr, "watch: -config is required")
		return errUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watch(ctx, e, *configPath, *metricsAddr, *debounce)
}

// watch loads the settings file, attaches a notifying sink and reloads on
// change until ctx is done.
func watch(ctx context.Context, e *env, path, metricsAddr string, debounce time.Duration) error {
	promReg := prometheus.NewRegistry()
	sinkMetrics := metrics.NewSinkMetrics(promReg)
	if err := sinkMetrics.Register(); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	n := notify.New(notify.WithLogger(e.logger))
	defer n.Close()
	n.Subscribe(func(c notify.Change) {
		if c.Type != notify.ChangeSet || c.Value.Equal(c.Previous) {
			return
		}
		e.logger.Info("preference changed",
			slog.String("name", c.Name),
			slog.String("value", c.Value.String()),
			slog.String("previous", c.Previous.String()),
			slog.Bool("explicit", c.Explicit),
		)
	})
	sink := metrics.NewInstrumentedSink(n, sinkMetrics)

	l := loader.New(loader.WithLogger(e.logger))
	w, err := watcher.New(path,
		watcher.WithLoader(l),
		watcher.WithDebounce(debounce),
		watcher.WithLogger(e.logger),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	w.OnReload(func(rl watcher.Reload) {
		if rl.Err != nil {
			sinkMetrics.RecordLoadError()
			return
		}
		sinkMetrics.RecordReload()
		n.NotifyReload(rl.Path)
	})
	attach, err := watcher.AttachOnReload(sink)
	if err != nil {
		return err
	}
	w.OnReload(attach)

	if metricsAddr != "" {
		srv, err := serveMetrics(e, promReg, metricsAddr)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if rl := w.Reload(); rl.Err != nil {
		if !errors.Is(rl.Err, loader.ErrFileNotFound) {
			return rl.Err
		}
		// No file yet: flush the defaults plus environment overrides until
		// the file appears.
		defaults := registry.New()
		if err := l.LoadInto(defaults, ""); err != nil {
			return err
		}
		if err := defaults.Attach(sink); err != nil {
			return err
		}
		e.logger.Warn("settings file missing, using defaults", slog.String("path", w.Path()))
	}

	e.logger.Info("watching settings", slog.String("path", w.Path()))
	return w.Run(ctx)
}

func serveMetrics(e *env, reg *prometheus.Registry, addr string) (*http.Server, error) {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	e.logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))
	return srv, nil
}
