// Command assets preloads the textures and fonts listed in a manifest into
// resource caches, reports what loaded, and optionally keeps serving cache
// metrics until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/IvanBrykalov/rescache/cache"
	"github.com/IvanBrykalov/rescache/font"
	"github.com/IvanBrykalov/rescache/internal/config"
	"github.com/IvanBrykalov/rescache/internal/manifest"
	"github.com/IvanBrykalov/rescache/internal/preload"
	"github.com/IvanBrykalov/rescache/loader"
	pmet "github.com/IvanBrykalov/rescache/metrics/prom"
	"github.com/IvanBrykalov/rescache/metrics/vm"
	"github.com/IvanBrykalov/rescache/texture"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/automaxprocs/maxprocs"
)

// setMaxProcs aligns GOMAXPROCS with the container CPU quota.
func setMaxProcs() {
	if _, err := maxprocs.Set(); err != nil {
		log.Warn().Err(err).Msg("[main] setting up GOMAXPROCS value failed")
		return
	}
	log.Debug().Msgf("[main] GOMAXPROCS=%d", runtime.GOMAXPROCS(0))
}

func setupLogger(cfg config.Log) {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	if err != nil {
		log.Warn().Str("level", cfg.Level).Msg("[main] unknown log level, using info")
	}
}

// metricsFor builds per-cache Metrics and the HTTP handler exposing them.
func metricsFor(backend string) (tex, fnt cache.Metrics, h http.Handler) {
	switch backend {
	case config.BackendProm:
		return pmet.New(nil, "rescache", "textures", nil),
			pmet.New(nil, "rescache", "fonts", nil),
			promhttp.Handler()
	case config.BackendVM:
		t, f := vm.New("rescache", "textures"), vm.New("rescache", "fonts")
		return t, f, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			t.WritePrometheus(w)
			f.WritePrometheus(w)
		})
	default:
		return cache.NoopMetrics{}, cache.NoopMetrics{}, nil
	}
}

func run() int {
	cfgPath := flag.String("config", "", "config file (yaml); empty = defaults + env")
	serve := flag.Bool("serve", false, "keep running and serve metrics after preloading")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Err(err).Msg("[main] failed to load config")
		return 2
	}
	setupLogger(cfg.Log)
	setMaxProcs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manifestPath := cfg.Assets.Manifest
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(cfg.Assets.Root, manifestPath)
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		log.Err(err).Msg("[main] failed to load manifest")
		return 2
	}
	log.Info().Msgf("[main] manifest loaded from '%v': %d textures, %d fonts", manifestPath, len(m.Textures), len(m.Fonts))

	fsys := os.DirFS(cfg.Assets.Root)
	texMetrics, fontMetrics, metricsHandler := metricsFor(cfg.Metrics.Backend)

	textures := cache.New[string, *texture.Texture](
		loader.WithTimeout(loader.WithLogging[string, *texture.Texture](texture.NewLoader(fsys), log.Logger, "texture"), cfg.Load.Timeout),
		cache.Options[*texture.Texture]{Shards: cfg.Cache.Shards, Metrics: texMetrics},
	)
	defer func() { _ = textures.Close() }()

	fl, err := font.NewLoader(fsys, font.WithDPI(cfg.Font.DPI), font.WithParsedCacheBytes(cfg.Font.ParsedCacheBytes))
	if err != nil {
		log.Err(err).Msg("[main] failed to init font loader")
		return 2
	}
	defer fl.Close()
	fonts := cache.New[font.Details, *font.Font](
		loader.WithTimeout(loader.WithLogging[font.Details, *font.Font](fl, log.Logger, "font"), cfg.Load.Timeout),
		cache.Options[*font.Font]{Shards: cfg.Cache.Shards, Metrics: fontMetrics},
	)
	defer func() { _ = fonts.Close() }()

	start := time.Now()
	report := preload.Run(ctx, m, textures, fonts, log.Logger)
	ts, fs := textures.Stats(), fonts.Stats()
	log.Info().
		Int("textures", report.Textures).
		Int("fonts", report.Fonts).
		Int("failed", report.Failed).
		Uint64("texture_loads", ts.Loads).
		Uint64("font_loads", fs.Loads).
		Dur("took", time.Since(start)).
		Msg("[main] preload finished")

	if *serve {
		if metricsHandler == nil || cfg.Metrics.Addr == "" {
			log.Warn().Msg("[main] -serve needs metrics.addr and a metrics backend; exiting")
		} else {
			serveMetrics(ctx, cfg.Metrics.Addr, metricsHandler)
		}
	}

	if report.Failed > 0 {
		return 1
	}
	return 0
}

// serveMetrics blocks until ctx is done.
func serveMetrics(ctx context.Context, addr string, h http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("[metrics] serving at %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Err(err).Msg("[metrics] server failed")
	}
	log.Info().Msg("[metrics] stopped")
}

func main() {
	os.Exit(run())
}
