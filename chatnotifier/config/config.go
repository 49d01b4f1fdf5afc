// Package config holds the single authoritative configuration for the
// chat notifier service, assembled from embedded YAML plus env overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
)

// Push gateway selection for mobile delivery.
const (
	GatewayFCM  = "fcm"
	GatewayAPNS = "apns"
)

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type VapidConfig struct {
	PublicKey       string
	PrivateKey      string
	SubscriberEmail string
}

type APNSConfig struct {
	KeyID        string
	TeamID       string
	BundleID     string
	P8KeyContent string
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	ProjectID  string
	ListenAddr string

	// Message Notification pipeline (creates at chats/{chatId}/messages/{messageId}).
	MessageTopicID        string
	MessageSubscriptionID string

	// Badge Reconciliation pipeline (updates at chats/{chatId}).
	ChatTopicID        string
	ChatSubscriptionID string

	DLQTopicID         string
	NumPipelineWorkers int

	// PushGateway selects the mobile delivery path: "fcm" (default) or "apns".
	PushGateway string

	CorsConfig middleware.CorsConfig
	Redis      RedisConfig
	Vapid      VapidConfig
	APNS       APNSConfig

	MessageConsumerConfig *messagepipeline.GooglePubsubConsumerConfig
	ChatConsumerConfig    *messagepipeline.GooglePubsubConsumerConfig
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	if val := os.Getenv("PROJECT_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "PROJECT_ID", "source", "env")
		cfg.ProjectID = val
	}
	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("MESSAGE_SUBSCRIPTION_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "MESSAGE_SUBSCRIPTION_ID", "source", "env")
		cfg.MessageSubscriptionID = val
		cfg.MessageConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(val)
	}
	if val := os.Getenv("CHAT_SUBSCRIPTION_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "CHAT_SUBSCRIPTION_ID", "source", "env")
		cfg.ChatSubscriptionID = val
		cfg.ChatConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(val)
	}
	if val := os.Getenv("DLQ_TOPIC_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "DLQ_TOPIC_ID", "source", "env")
		cfg.DLQTopicID = val
	}
	if val := os.Getenv("NUM_PIPELINE_WORKERS"); val != "" {
		if workers, err := strconv.Atoi(val); err == nil && workers > 0 {
			logger.Debug("Overriding config value", "key", "NUM_PIPELINE_WORKERS", "source", "env")
			cfg.NumPipelineWorkers = workers
		}
	}
	if val := os.Getenv("PUSH_GATEWAY"); val != "" {
		logger.Debug("Overriding config value", "key", "PUSH_GATEWAY", "source", "env")
		cfg.PushGateway = val
	}

	// Redis Overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// VAPID Overrides
	if val := os.Getenv("VAPID_PUBLIC_KEY"); val != "" {
		cfg.Vapid.PublicKey = val
	}
	if val := os.Getenv("VAPID_PRIVATE_KEY"); val != "" {
		cfg.Vapid.PrivateKey = val
	}
	if val := os.Getenv("VAPID_SUB_EMAIL"); val != "" {
		cfg.Vapid.SubscriberEmail = val
	}

	// APNs Overrides. The P8 key is secret material and is only ever read
	// from the environment, never from YAML.
	if val := os.Getenv("APNS_KEY_ID"); val != "" {
		cfg.APNS.KeyID = val
	}
	if val := os.Getenv("APNS_TEAM_ID"); val != "" {
		cfg.APNS.TeamID = val
	}
	if val := os.Getenv("APNS_BUNDLE_ID"); val != "" {
		cfg.APNS.BundleID = val
	}
	if val := os.Getenv("APNS_P8_KEY"); val != "" {
		cfg.APNS.P8KeyContent = val
	}

	// CORS Overrides
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		logger.Debug("Overriding config value", "key", "CORS_ALLOWED_ORIGINS", "source", "env")
		rawOrigins := strings.Split(corsOrigins, ",")
		var cleanOrigins []string
		for _, o := range rawOrigins {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				cleanOrigins = append(cleanOrigins, trimmed)
			}
		}
		cfg.CorsConfig.AllowedOrigins = cleanOrigins
	}

	// Final Validation
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required (set via YAML or PROJECT_ID env var)")
	}
	if cfg.MessageSubscriptionID == "" {
		return nil, fmt.Errorf("message_subscription_id is required (set via YAML or MESSAGE_SUBSCRIPTION_ID env var)")
	}
	if cfg.ChatSubscriptionID == "" {
		return nil, fmt.Errorf("chat_subscription_id is required (set via YAML or CHAT_SUBSCRIPTION_ID env var)")
	}
	if cfg.PushGateway == "" {
		cfg.PushGateway = GatewayFCM
	}
	if cfg.PushGateway != GatewayFCM && cfg.PushGateway != GatewayAPNS {
		return nil, fmt.Errorf("push_gateway must be %q or %q, got %q", GatewayFCM, GatewayAPNS, cfg.PushGateway)
	}
	if cfg.PushGateway == GatewayAPNS && cfg.APNS.P8KeyContent == "" {
		return nil, fmt.Errorf("APNS_P8_KEY is required when push_gateway is %q", GatewayAPNS)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.NumPipelineWorkers <= 0 {
		cfg.NumPipelineWorkers = 1
	}

	if cfg.MessageConsumerConfig == nil && cfg.MessageSubscriptionID != "" {
		cfg.MessageConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(cfg.MessageSubscriptionID)
	}
	if cfg.ChatConsumerConfig == nil && cfg.ChatSubscriptionID != "" {
		cfg.ChatConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(cfg.ChatSubscriptionID)
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
