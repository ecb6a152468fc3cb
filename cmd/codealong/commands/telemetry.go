package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Sumatoshi-tech/codealong/pkg/config"
	"github.com/Sumatoshi-tech/codealong/pkg/observability"
	"github.com/Sumatoshi-tech/codealong/pkg/version"
)

const (
	metricsPath       = "/metrics"
	readHeaderTimeout = 5 * time.Second
	logFormatJSON     = "json"
)

// telemetry is the observability state of one command run.
type telemetry struct {
	providers observability.Providers
	metrics   *observability.AnalysisMetrics
	server    *http.Server
	addr      net.Addr
}

func observabilityConfig(settings *config.Settings, logs io.Writer) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version.Version
	cfg.OTLPEndpoint = settings.Telemetry.OTLPEndpoint
	cfg.OTLPInsecure = settings.Telemetry.Insecure
	cfg.Prometheus = settings.Telemetry.MetricsAddr != ""
	cfg.LogLevel = observability.ParseLevel(settings.Logging.Level)
	cfg.LogJSON = settings.Logging.Format == logFormatJSON
	cfg.LogWriter = logs

	return cfg
}

// startTelemetry initializes the providers and, when a metrics address is
// configured, serves the Prometheus endpoint on it.
func startTelemetry(settings *config.Settings, logs io.Writer) (*telemetry, error) {
	providers, err := observability.Init(observabilityConfig(settings, logs))
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewAnalysisMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	t := &telemetry{providers: providers, metrics: metrics}

	if settings.Telemetry.MetricsAddr != "" && providers.MetricsHandler != nil {
		err = t.serveMetrics(settings.Telemetry.MetricsAddr)
		if err != nil {
			return nil, errors.Join(err, providers.Shutdown(context.Background()))
		}
	}

	return t, nil
}

func (t *telemetry) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, t.providers.MetricsHandler)

	t.server = &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	t.addr = ln.Addr()

	go func() {
		serveErr := t.server.Serve(ln)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			t.providers.Logger.Error("metrics server stopped", slog.Any("error", serveErr))
		}
	}()

	t.providers.Logger.Info("serving metrics", slog.String("addr", t.addr.String()), slog.String("path", metricsPath))

	return nil
}

func (t *telemetry) logger() *slog.Logger {
	return t.providers.Logger
}

// close stops the metrics server and flushes telemetry.
func (t *telemetry) close(ctx context.Context) error {
	var errs []error

	if t.server != nil {
		errs = append(errs, t.server.Shutdown(ctx))
	}

	errs = append(errs, t.providers.Shutdown(ctx))

	return errors.Join(errs...)
}
