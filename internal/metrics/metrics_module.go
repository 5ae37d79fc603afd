package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/config"
)

// Module provides the metrics registry, the CLOB metric set, and the
// Prometheus scrape endpoint.
var Module = fx.Options(
	fx.Provide(NewPrometheusRegistry),
	fx.Provide(NewClobMetrics),
	fx.Invoke(RegisterMetricsHandler),
)

// NewPrometheusRegistry creates a new Prometheus registry.
func NewPrometheusRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// MetricsHandlerParams contains parameters for the scrape endpoint.
type MetricsHandlerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Registry  *prometheus.Registry
	Config    *config.Config
	Logger    *zap.Logger
}

// RegisterMetricsHandler starts an HTTP server exposing /metrics on the
// configured Prometheus port.
func RegisterMetricsHandler(p MetricsHandlerParams) {
	handler := promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	addr := ":9090"
	if p.Config.Monitoring.PrometheusPort != 0 {
		addr = portAddr(p.Config.Monitoring.PrometheusPort)
	}
	server := &http.Server{Addr: addr, Handler: mux}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			p.Logger.Info("starting metrics server", zap.String("addr", server.Addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					p.Logger.Error("metrics server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Logger.Info("stopping metrics server")
			return server.Shutdown(ctx)
		},
	})
}

func portAddr(port int) string {
	return ":" + strconv.Itoa(port)
}
