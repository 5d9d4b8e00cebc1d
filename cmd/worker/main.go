package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/example/notification-pipeline/internal/common"
	"github.com/example/notification-pipeline/internal/dispatch"
	"github.com/example/notification-pipeline/internal/model"
	"github.com/example/notification-pipeline/internal/provider"
	"github.com/example/notification-pipeline/internal/render"
	"github.com/example/notification-pipeline/internal/retry"
	"github.com/example/notification-pipeline/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := common.LoadConfig("worker")
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

	var templates render.TemplateSource = st.Templates
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		client := redis.NewClient(opts)
		defer client.Close()
		templates = render.NewCachedSource(client, st.Templates, cfg.TemplateCacheTTL, logger)
		logger.Info().Msg("template cache enabled")
	}
	renderer := render.NewRenderer(templates)

	policy := retry.Policy{BaseDelay: cfg.RetryBaseDelay, MaxRetries: cfg.MaxRetries}

	dlqWriter := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers...),
		Topic:    cfg.DLQTopic,
		Balancer: &kafka.Hash{},
	}
	defer dlqWriter.Close()

	newConsumer := func(channel model.ChannelType, topic string, handler dispatch.Handler) *dispatch.Consumer {
		retryWriter := &kafka.Writer{
			Addr:     kafka.TCP(cfg.KafkaBrokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		}
		return &dispatch.Consumer{
			Channel: channel,
			ReaderFactory: func() *kafka.Reader {
				return kafka.NewReader(kafka.ReaderConfig{
					Brokers: cfg.KafkaBrokers,
					GroupID: cfg.ServiceName + "-" + string(channel),
					Topic:   topic,
				})
			},
			Handler:       handler,
			Notifications: st.Notifications,
			Policy:        policy,
			Requeuer: &retry.Retrier{
				Policy:    policy,
				Writer:    retryWriter,
				DLQWriter: dlqWriter,
				Logger:    logger,
			},
			Logger:   logger,
			Prefetch: cfg.Prefetch,
		}
	}

	consumers := []*dispatch.Consumer{
		newConsumer(model.ChannelEmail, cfg.EmailTopic, &dispatch.EmailHandler{
			Renderer: renderer,
			Channels: st.Channels,
			Sender: &provider.HTTPEmailProvider{
				Endpoint: cfg.EmailProviderURL,
				APIKey:   os.Getenv("EMAIL_PROVIDER_API_KEY"),
			},
		}),
		newConsumer(model.ChannelSMS, cfg.SMSTopic, &dispatch.SMSHandler{
			Renderer: renderer,
			Channels: st.Channels,
			Sender: &provider.HTTPSMSProvider{
				Endpoint: cfg.SMSProviderURL,
				APIKey:   os.Getenv("SMS_PROVIDER_API_KEY"),
			},
		}),
		newConsumer(model.ChannelPush, cfg.PushTopic, &dispatch.PushHandler{
			Renderer: renderer,
			Channels: st.Channels,
			Sender: &provider.HTTPPushProvider{
				Endpoint: cfg.PushProviderURL,
				APIKey:   os.Getenv("PUSH_PROVIDER_API_KEY"),
			},
		}),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range consumers {
		c := c
		g.Go(func() error {
			return c.Run(gctx)
		})
	}

	logger.Info().Msg("worker started")
	if err := g.Wait(); err != nil && gctx.Err() == nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}
