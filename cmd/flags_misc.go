package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"github.com/grafana/pyroscope-go"
	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.11.0"
	"go.uber.org/fx"

	"github.com/beaconnode/beacon-node/logs"
	"github.com/beaconnode/beacon-node/nodebuilder"
	"github.com/beaconnode/beacon-node/nodebuilder/node"
)

var (
	logLevelFlag          = "log.level"
	logLevelModuleFlag    = "log.level.module"
	pprofFlag             = "pprof"
	pyroscopeFlag         = "pyroscope"
	pyroscopeEndpointFlag = "pyroscope.endpoint"
	tracingFlag           = "tracing"
	tracingEndpointFlag   = "tracing.endpoint"
	tracingTlS            = "tracing.tls"
	metricsFlag           = "metrics"
	metricsEndpointFlag   = "metrics.endpoint"
	metricsTlS            = "metrics.tls"
)

// MiscFlags gives a set of hardcoded miscellaneous flags.
func MiscFlags() *flag.FlagSet {
	flags := &flag.FlagSet{}

	flags.String(
		logLevelFlag,
		"INFO",
		`DEBUG, INFO, WARN, ERROR, DPANIC, PANIC, FATAL
and their lower-case forms`,
	)

	flags.StringSlice(
		logLevelModuleFlag,
		nil,
		"<module>:<level>, e.g. peers:debug",
	)

	flags.Bool(
		pprofFlag,
		false,
		"Enables standard profiling handler (pprof) and exposes the profiles on port 6000",
	)

	flags.Bool(
		pyroscopeFlag,
		false,
		"Enables continuous profiling pushed to a Pyroscope server",
	)

	flags.String(
		pyroscopeEndpointFlag,
		"http://localhost:4040",
		"Sets the Pyroscope server address. Depends on '--pyroscope'",
	)

	flags.Bool(
		tracingFlag,
		false,
		"Enables OTLP tracing with HTTP exporter",
	)

	flags.String(
		tracingEndpointFlag,
		"localhost:4318",
		"Sets HTTP endpoint for OTLP traces to be exported to. Depends on '--tracing'",
	)

	flags.Bool(
		tracingTlS,
		true,
		"Enable TLS connection to OTLP tracing backend",
	)

	flags.Bool(
		metricsFlag,
		false,
		"Enables OTLP metrics with HTTP exporter",
	)

	flags.String(
		metricsEndpointFlag,
		"localhost:4318",
		"Sets HTTP endpoint for OTLP metrics to be exported to. Depends on '--metrics'",
	)

	flags.Bool(
		metricsTlS,
		true,
		"Enable TLS connection to OTLP metric backend",
	)

	return flags
}

// ParseMiscFlags parses miscellaneous flags from the given cmd and applies values to Env.
func ParseMiscFlags(ctx context.Context, cmd *cobra.Command) (context.Context, error) {
	logLevel := cmd.Flag(logLevelFlag).Value.String()
	if logLevel != "" {
		level, err := logging.LevelFromString(logLevel)
		if err != nil {
			return ctx, fmt.Errorf("cmd: while parsing '%s': %w", logLevelFlag, err)
		}

		logs.SetAllLoggers(level)
	}

	logModules, err := cmd.Flags().GetStringSlice(logLevelModuleFlag)
	if err != nil {
		return ctx, err
	}
	for _, ll := range logModules {
		params := strings.Split(ll, ":")
		if len(params) != 2 {
			return ctx, fmt.Errorf("cmd: %s arg must be in form <module>:<level>, e.g. peers:debug", logLevelModuleFlag)
		}

		err := logging.SetLogLevel(params[0], params[1])
		if err != nil {
			return ctx, err
		}
	}

	ok, err := cmd.Flags().GetBool(pprofFlag)
	if err != nil {
		return ctx, err
	}
	if ok {
		go servePprof()
	}

	profiling, err := cmd.Flags().GetBool(pyroscopeFlag)
	if err != nil {
		return ctx, err
	}
	if profiling {
		ctx = WithNodeOptions(ctx, fx.Invoke(pyroscopeProfiler(
			cmd.Flag(pyroscopeEndpointFlag).Value.String(),
			Network(ctx).String(),
		)))
	}

	ok, err = cmd.Flags().GetBool(tracingFlag)
	if err != nil {
		return ctx, err
	}
	if ok {
		opts := []otlptracehttp.Option{
			otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
			otlptracehttp.WithEndpoint(cmd.Flag(tracingEndpointFlag).Value.String()),
		}
		if ok, err := cmd.Flags().GetBool(tracingTlS); err != nil {
			return ctx, err
		} else if !ok {
			opts = append(opts, otlptracehttp.WithInsecure())
		}

		exp, err := otlptracehttp.New(cmd.Context(), opts...)
		if err != nil {
			return ctx, err
		}

		tp := tracesdk.NewTracerProvider(
			// Always be sure to batch in production.
			tracesdk.WithBatcher(exp),
			// Record information about this application in a Resource.
			tracesdk.WithResource(resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceNamespaceKey.String(Network(ctx).String()),
				semconv.ServiceNameKey.String("beacon-node"),
				semconv.ServiceVersionKey.String(node.GetBuildInfo().GetSemanticVersion()),
			)),
		)
		if profiling {
			// spans are labeled with the id of the profile they were recorded in
			otel.SetTracerProvider(otelpyroscope.NewTracerProvider(tp))
		} else {
			otel.SetTracerProvider(tp)
		}
		// flush the remaining spans once the node stops
		ctx = WithNodeOptions(ctx, fx.Invoke(func(lc fx.Lifecycle) {
			lc.Append(fx.Hook{OnStop: tp.Shutdown})
		}))
	}

	ok, err = cmd.Flags().GetBool(metricsFlag)
	if err != nil {
		return ctx, err
	}
	if ok {
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cmd.Flag(metricsEndpointFlag).Value.String()),
		}
		if ok, err := cmd.Flags().GetBool(metricsTlS); err != nil {
			return ctx, err
		} else if !ok {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}

		ctx = WithNodeOptions(ctx, nodebuilder.WithMetrics(opts))
	}

	return ctx, nil
}

func servePprof() {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	srv := http.Server{
		Addr:         "0.0.0.0:6000",
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info("starting pprof server on port 6000")
	if err := srv.ListenAndServe(); err != nil {
		log.Errorw("pprof server stopped", "err", err)
	}
}

// pyroscopeProfiler pushes profiles to the server for as long as the node runs.
func pyroscopeProfiler(endpoint, network string) func(lc fx.Lifecycle) {
	return func(lc fx.Lifecycle) {
		var profiler *pyroscope.Profiler
		lc.Append(fx.Hook{
			OnStart: func(context.Context) (err error) {
				profiler, err = pyroscope.Start(pyroscope.Config{
					ApplicationName: "beacon-node",
					ServerAddress:   endpoint,
					Logger:          log,
					Tags: map[string]string{
						"network": network,
						"version": node.GetBuildInfo().GetSemanticVersion(),
					},
					ProfileTypes: []pyroscope.ProfileType{
						pyroscope.ProfileCPU,
						pyroscope.ProfileAllocObjects,
						pyroscope.ProfileAllocSpace,
						pyroscope.ProfileInuseObjects,
						pyroscope.ProfileInuseSpace,
						pyroscope.ProfileGoroutines,
						pyroscope.ProfileMutexCount,
						pyroscope.ProfileBlockCount,
					},
				})
				return err
			},
			OnStop: func(context.Context) error {
				return profiler.Stop()
			},
		})
	}
}
