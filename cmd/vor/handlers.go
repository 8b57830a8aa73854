package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/okian/vor/internal/adapters/geocode"
	"github.com/okian/vor/internal/adapters/http/api"
	"github.com/okian/vor/internal/adapters/source"
	service "github.com/okian/vor/internal/app"
	"github.com/okian/vor/internal/config"
	"github.com/okian/vor/internal/domain/dataset"
	"github.com/okian/vor/internal/domain/market"
	"github.com/okian/vor/internal/domain/model"
	"github.com/okian/vor/internal/domain/normalize"
	"github.com/okian/vor/internal/domain/topic"
	"github.com/okian/vor/internal/domain/types"
	"github.com/okian/vor/pkg/logger"
	"github.com/okian/vor/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	writeTimeoutSlack = 5 * time.Second

	// The HTTP client timeout fires before the resolver's lookup deadline,
	// so a slow upstream counts against the circuit breaker.
	lookupSlack = 500 * time.Millisecond
)

// app bundles what every command needs.
type app struct {
	cfg       *config.Config
	log       logger.Logger
	src       dataset.Source
	holder    *dataset.Holder
	refresher *dataset.Refresher
	svc       *service.Service
}

// bootstrap loads configuration, initializes logging, opens the dataset
// source and publishes the first snapshot.
func bootstrap(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(logOut)); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(cfg.MetricsOptions()...)

	src, err := source.Open(ctx, cfg.SourceSettings())
	if err != nil {
		return nil, fmt.Errorf("open dataset source: %w", err)
	}

	holder := dataset.NewHolder()
	refresher := dataset.NewRefresher(src, holder,
		dataset.WithInterval(cfg.RefreshInterval()),
		dataset.WithLogger(log.Named("dataset")),
	)
	if _, err := refresher.Refresh(ctx); err != nil {
		_ = source.CloseSource(src)
		return nil, fmt.Errorf("initial dataset load: %w", err)
	}

	opts := []service.Option{
		service.WithTopN(cfg.TopN),
		service.WithLogger(log.Named("service")),
		service.WithGeocodeConcurrency(cfg.GeocodeConcurrency),
		service.WithGeocodeTimeout(cfg.GeocodeTimeout() + lookupSlack),
		service.WithVenueGeocoding(cfg.GeocodeVenues),
	}
	if cfg.GeocoderEnabled {
		gc := geocode.New(
			geocode.WithBaseURL(cfg.GeocoderURL),
			geocode.WithUserAgent(cfg.GeocoderUserAgent),
			geocode.WithHTTPClient(&http.Client{Timeout: cfg.GeocodeTimeout()}),
			geocode.WithRateLimit(cfg.GeocodeRPS, 1),
			geocode.WithLogger(log.Named("geocode")),
		)
		opts = append(opts, service.WithGeocoder(gc))
	}

	return &app{
		cfg:       cfg,
		log:       log,
		src:       src,
		holder:    holder,
		refresher: refresher,
		svc:       service.New(holder, opts...),
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.refresher.Close(), source.CloseSource(a.src))
}

func runServe(addr string) error {
	// Only the custom registry is exposed; keep the default one lean.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Error(ctx, "shutdown cleanup failed", logger.Error(err))
		}
	}()
	if addr == "" {
		addr = a.cfg.Addr
	}

	a.refresher.Start(ctx)
	go startSystemMetricsUpdater(ctx)

	apiServer := api.NewServer(a.svc,
		api.WithAllowedOrigins(a.cfg.CORSAllowedOrigins),
		api.WithRequestTimeout(a.cfg.RequestTimeout()),
		api.WithLogger(a.log.Named("api")),
	)
	srv := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      a.cfg.RequestTimeout() + writeTimeoutSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info(ctx, "starting HTTP server",
			logger.String("addr", addr),
			logger.String("dataset_source", a.cfg.DatasetSource),
			logger.Bool("radius_enabled", a.svc.RadiusEnabled()),
			logger.Int("top_n", a.svc.TopN()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	a.log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	a.log.Info(ctx, "server stopped")
	return nil
}

// startSystemMetricsUpdater samples runtime gauges until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

type recommendFlags struct {
	topic, city, state, postal, now string
	miles                           float64
}

func runRecommend(cmd *cobra.Command, f recommendFlags) error {
	ctx := cmd.Context()
	t, err := topic.Parse(f.topic)
	if err != nil {
		return err
	}
	q := model.Query{
		Topic:      t,
		City:       strings.TrimSpace(f.city),
		State:      strings.ToUpper(strings.TrimSpace(f.state)),
		PostalCode: normalize.PostalCode(f.postal),
		Miles:      f.miles,
	}
	if !q.ByPostalCode() && (q.City == "" || q.State == "") {
		return errors.New("either --postal-code or both --city and --state are required")
	}
	if f.now != "" {
		if q.Now, err = parseDateFlag("now", f.now); err != nil {
			return err
		}
	}

	a, err := bootstrap(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	ranked, err := a.svc.Recommend(ctx, q)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), types.NewEntries(ranked))
}

type marketFlags struct {
	topic, city, state, date string
}

func runMarket(cmd *cobra.Command, f marketFlags) error {
	ctx := cmd.Context()
	t, err := topic.Parse(f.topic)
	if err != nil {
		return err
	}
	req := market.Request{
		Topic: t,
		City:  strings.TrimSpace(f.city),
		State: strings.TrimSpace(f.state),
	}
	if f.date != "" {
		if req.Date, err = parseDateFlag("date", f.date); err != nil {
			return err
		}
	}

	a, err := bootstrap(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.svc.Market(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), types.NewMarketReport(rep))
}

type scoreFlags struct {
	venue, cpa, fulfillment, attendance string
}

// runScore needs no dataset, so it only initializes logging.
func runScore(cmd *cobra.Command, f scoreFlags) error {
	in := types.ManualInput{Venue: f.venue}
	var ok bool
	if in.CPA, ok = normalize.ParseNumber(f.cpa); !ok {
		return fmt.Errorf("--cpa %q is not a number", f.cpa)
	}
	if in.FulfillmentRatio, ok = normalize.ParseRate(f.fulfillment); !ok {
		return fmt.Errorf("--fulfillment %q is not a rate", f.fulfillment)
	}
	if in.AttendanceRate, ok = normalize.ParseRate(f.attendance); !ok {
		return fmt.Errorf("--attendance %q is not a rate", f.attendance)
	}

	if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
		return err
	}
	svc := service.New(dataset.NewHolder())
	res, err := svc.ScoreManual(cmd.Context(), in)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func parseDateFlag(name, value string) (time.Time, error) {
	d, ok := normalize.ParseDate(value)
	if !ok {
		return time.Time{}, fmt.Errorf("--%s %q is not a date", name, value)
	}
	return d, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
