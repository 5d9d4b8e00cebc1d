package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/notification-pipeline/internal/api"
	"github.com/example/notification-pipeline/internal/common"
	"github.com/example/notification-pipeline/internal/notify"
	"github.com/example/notification-pipeline/internal/order"
	"github.com/example/notification-pipeline/internal/publish"
	"github.com/example/notification-pipeline/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := common.LoadConfig("api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := common.NewLogger(cfg.ServiceName)
	shutdown, err := common.SetupOTel(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise telemetry")
	}
	defer common.ShutdownTelemetry(context.Background(), shutdown)

	metricsSrv := common.StartMetricsServer(cfg.MetricsPort)
	defer metricsSrv.Shutdown(context.Background())

	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL must be provided")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	st := store.New(pool)

	writers := publish.NewWriterCache(cfg.KafkaBrokers)
	defer writers.Close()
	publisher := publish.NewPublisher(writers.Get, logger)

	srv := &http.Server{
		Addr: ":" + strconv.Itoa(cfg.HTTPPort),
		Handler: (&api.Server{
			Notifications: &notify.Service{
				Notifications: st.Notifications,
				Channels:      st.Channels,
				Publisher:     publisher,
				Logger:        logger,
			},
			NotificationStore: st.Notifications,
			Orders: &order.Service{
				Orders:        st.Orders,
				Channels:      st.Channels,
				Notifications: st.Notifications,
				Publisher:     publisher,
				Logger:        logger,
			},
			OrderStore: st.Orders,
			Channels:   st.Channels,
			Templates:  st.Templates,
			Logger:     logger,
		}).Router(),
	}

	go func() {
		logger.Info().Int("port", cfg.HTTPPort).Msg("api service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
