package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"

	firebase "firebase.google.com/go/v4"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/taskmutual/go-chat-notifier/internal/platform/apns"
	"github.com/taskmutual/go-chat-notifier/internal/platform/fcm"
	"github.com/taskmutual/go-chat-notifier/internal/platform/web"

	"github.com/taskmutual/go-chat-notifier/internal/storage/cache"
	fsStore "github.com/taskmutual/go-chat-notifier/internal/storage/firestore"
	"github.com/taskmutual/go-chat-notifier/pkg/chat"
	"github.com/taskmutual/go-chat-notifier/pkg/dispatch"

	"github.com/taskmutual/go-chat-notifier/chatnotifier"
	"github.com/taskmutual/go-chat-notifier/chatnotifier/config"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gopkg.in/yaml.v3"
)

//go:embed local.yaml
var configFile []byte

func main() {
	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "chat-notifier")
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Config Loading ---
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, _ := config.NewConfigFromYaml(&yamlCfg, logger)
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	// --- Infrastructure Clients ---
	psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("PubSub client failed", "err", err)
		os.Exit(1)
	}
	defer psClient.Close()

	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("Firestore client failed", "err", err)
		os.Exit(1)
	}
	defer fsClient.Close()

	// --- Document Store (optionally Redis-decorated) ---
	store := fsStore.NewStore(fsClient)
	var reader chat.Reader = store
	var writer chat.TokenWriter = store
	logger.Info("Document store initialized", "type", "firestore")

	if cfg.Redis.Enabled {
		logger.Info("Initializing Redis cache layer...", "addr", cfg.Redis.Addr)
		redisClient, err := cache.NewRedisClient(cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Error("Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		cached := cache.NewCachedUserStore(store, redisClient, 1*time.Hour)
		reader = cached
		writer = cached
		logger.Info("Document store upgraded", "type", "redis_cached_firestore")
	}

	// --- Auth ---
	identityURL := os.Getenv("IDENTITY_SERVICE_URL")
	if identityURL == "" {
		identityURL = "http://localhost:3000"
	}
	jwksURL, _ := middleware.DiscoverAndValidateJWTConfig(identityURL, middleware.RSA256, logger)
	authMiddleware, _ := middleware.NewJWKSAuthMiddleware(jwksURL, logger)

	// --- Mobile Push Gateway ---
	var dispatcher dispatch.Dispatcher
	switch cfg.PushGateway {
	case config.GatewayAPNS:
		dispatcher, err = apns.NewDispatcher(apns.Config{
			KeyID:        cfg.APNS.KeyID,
			TeamID:       cfg.APNS.TeamID,
			BundleID:     cfg.APNS.BundleID,
			P8KeyContent: cfg.APNS.P8KeyContent,
		}, logger)
		if err != nil {
			logger.Error("Failed to create APNs dispatcher", "err", err)
			os.Exit(1)
		}
		logger.Info("Push gateway enabled", "type", "apns", "bundle_id", cfg.APNS.BundleID)
	default:
		fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID})
		if err != nil {
			logger.Error("Failed to initialize Firebase App", "err", err)
			os.Exit(1)
		}
		fcmMessaging, err := fbApp.Messaging(ctx)
		if err != nil {
			logger.Error("Failed to create FCM messaging client", "err", err)
			os.Exit(1)
		}
		dispatcher = fcm.NewDispatcher(fcmMessaging, logger)
		logger.Info("Push gateway enabled", "type", "fcm")
	}

	// --- Web Push Gateway ---
	if cfg.Vapid.PrivateKey == "" || cfg.Vapid.PublicKey == "" {
		logger.Warn("VAPID keys missing in configuration. Web push will fail.")
	}
	webDispatcher := web.NewDispatcher(web.VapidConfig{
		PublicKey:       cfg.Vapid.PublicKey,
		PrivateKey:      cfg.Vapid.PrivateKey,
		SubscriberEmail: cfg.Vapid.SubscriberEmail,
	}, logger)

	// --- Consumers & Service ---
	messageConsumer, err := newIngestionConsumer(ctx, cfg, cfg.MessageTopicID, cfg.MessageSubscriptionID, psClient, logger)
	if err != nil {
		logger.Error("Message consumer failed", "err", err)
		os.Exit(1)
	}
	chatConsumer, err := newIngestionConsumer(ctx, cfg, cfg.ChatTopicID, cfg.ChatSubscriptionID, psClient, logger)
	if err != nil {
		logger.Error("Chat consumer failed", "err", err)
		os.Exit(1)
	}

	service, err := chatnotifier.New(
		cfg,
		messageConsumer,
		chatConsumer,
		dispatcher,
		webDispatcher,
		reader,
		writer,
		authMiddleware,
		logger,
	)
	if err != nil {
		logger.Error("Service creation failed", "err", err)
		os.Exit(1)
	}

	logger.Info("Starting service...")
	if err := service.Start(ctx); err != nil {
		logger.Error("Service shutdown with error", "err", err)
		os.Exit(1)
	}
}

// newIngestionConsumer ensures the subscription exists (with the shared DLQ
// policy) and returns a pipeline consumer for it.
func newIngestionConsumer(ctx context.Context, cfg *config.Config, topicID, subscriptionID string, psClient *pubsub.Client, logger *slog.Logger) (messagepipeline.MessageConsumer, error) {
	sub := convertPubsub(cfg.ProjectID, subscriptionID, "subscriptions")
	topicName := convertPubsub(cfg.ProjectID, topicID, "topics")
	dlt := convertPubsub(cfg.ProjectID, cfg.DLQTopicID, "topics")

	subConfig := &pubsubpb.Subscription{
		Name:               sub,
		Topic:              topicName,
		AckDeadlineSeconds: 10,
		DeadLetterPolicy: &pubsubpb.DeadLetterPolicy{
			DeadLetterTopic:     dlt,
			MaxDeliveryAttempts: 5,
		},
		EnableMessageOrdering: false,
	}
	logger.Debug("Ensuring subscription exists", "sub", subConfig.Name, "topic", subConfig.Topic)
	_, err := psClient.SubscriptionAdminClient.CreateSubscription(ctx, subConfig)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			logger.Debug("Subscription already exists, skipping creation", "sub", subConfig.Name)
		} else {
			logger.Error("Failed to create subscription", "sub", subConfig.Name, "err", err)
			return nil, fmt.Errorf("could not create sub: %s", sub)
		}
	}

	return messagepipeline.NewGooglePubsubConsumer(
		messagepipeline.NewGooglePubsubConsumerDefaults(subConfig.Name), psClient, logger,
	)
}

type PS string

func convertPubsub(project, id string, ps PS) string {
	return fmt.Sprintf("projects/%s/%s/%s", project, ps, id)
}
