package p2p

import (
	"context"
	"errors"
	"net/http"

	rcmgr "github.com/libp2p/go-libp2p/p2p/host/resource-manager"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// prometheusRegistry provides the registry libp2p reports its internals to.
func prometheusRegistry() prometheus.Registerer {
	reg := prometheus.NewRegistry()
	rcmgr.MustRegisterWith(reg)
	return reg
}

// prometheusEndpoint serves the libp2p registry over HTTP for the node's lifetime.
func prometheusEndpoint(lc fx.Lifecycle, cfg *Config, reg prometheus.Registerer) {
	registry := reg.(*prometheus.Registry)

	mux := http.NewServeMux()
	mux.Handle(cfg.PrometheusAgentEndpoint, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:    cfg.PrometheusAgentPort,
		Handler: mux,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("serving prometheus metrics", "err", err)
				}
			}()
			log.Infow("prometheus agent started", "addr", cfg.PrometheusAgentPort, "endpoint", cfg.PrometheusAgentEndpoint)
			return nil
		},
		OnStop: srv.Shutdown,
	})
}
