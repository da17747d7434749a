// Command notees-dev runs the local Supabase-compatible backend the notees
// client talks to during development.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/MrEthical07/notees/backend"
	"github.com/MrEthical07/notees/devserver"
	otelexport "github.com/MrEthical07/notees/metrics/export/otel"
)

var (
	verbose        bool
	addr           string
	redisAddr      string
	memory         bool
	metricsLogging time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "notees-dev",
	Short: "Run the notees development backend",
	Long: `Serves the auth, posts and media endpoints of the notees app over Redis.

Configuration is read from NOTEES_DEV_* environment variables; flags override
them. With --memory an embedded Redis is used and all data is lost on exit.

Point the client at it with:
  NOTEES_SUPABASE_URL=http://<addr> NOTEES_SUPABASE_ANON_KEY=<anon key> notees`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every request at debug level")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from NOTEES_DEV_ADDR or 127.0.0.1:54321)")
	rootCmd.Flags().StringVar(&redisAddr, "redis", "", "redis address (default from NOTEES_DEV_REDIS_ADDR or 127.0.0.1:6379)")
	rootCmd.Flags().BoolVar(&memory, "memory", false, "use an embedded in-memory redis")
	rootCmd.Flags().DurationVar(&metricsLogging, "metrics-interval", time.Minute, "how often to log metric totals; 0 disables")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func run(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := devserver.LoadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr = addr
	}
	if cmd.Flags().Changed("redis") {
		cfg.RedisAddr = redisAddr
	}
	if cmd.Flags().Changed("memory") {
		cfg.Memory = memory
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, closeRedis, err := openRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	b, err := backend.New(rdb, cfg.Backend, backend.WithLogger(logger.Named("backend")))
	if err != nil {
		return err
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	exporter, err := otelexport.NewExporter(otel.Meter("github.com/MrEthical07/notees/devserver"), b)
	if err != nil {
		return err
	}
	defer func() { _ = exporter.Close() }()
	if metricsLogging > 0 {
		go logMetrics(ctx, reader, metricsLogging, logger.Named("metrics"))
	}

	handler, err := devserver.New(b, cfg, devserver.WithLogger(logger.Named("http")))
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("notees-dev listening",
		zap.String("url", "http://"+cfg.Addr),
		zap.String("anon_key", cfg.AnonKey),
		zap.Bool("memory", cfg.Memory),
	)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRedis(ctx context.Context, cfg devserver.Config, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	target := cfg.RedisAddr
	var mr *miniredis.Miniredis
	if cfg.Memory {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		target = mr.Addr()
		logger.Warn("using embedded redis; data is lost on exit")
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{target}})
	closeAll := func() {
		_ = rdb.Close()
		if mr != nil {
			mr.Close()
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("redis %s: %w", target, err)
	}
	return rdb, closeAll, nil
}

// logMetrics collects the OTel counters every interval and logs the non-zero
// totals.
func logMetrics(ctx context.Context, reader *sdkmetric.ManualReader, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var rm metricdata.ResourceMetrics
		if err := reader.Collect(ctx, &rm); err != nil {
			logger.Warn("collect metrics", zap.Error(err))
			continue
		}
		fields := make([]zap.Field, 0, 16)
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok {
					continue
				}
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				if total > 0 {
					fields = append(fields, zap.Int64(m.Name, total))
				}
			}
		}
		if len(fields) > 0 {
			logger.Info("metric totals", fields...)
		}
	}
}
