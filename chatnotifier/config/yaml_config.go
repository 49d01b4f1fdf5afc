package config

import (
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
)

type YamlCorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	Role           string   `yaml:"role"`
}

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

type YamlVapidConfig struct {
	PublicKey       string `yaml:"public_key"`
	PrivateKey      string `yaml:"private_key"`
	SubscriberEmail string `yaml:"subscriber_email"`
}

type YamlAPNSConfig struct {
	KeyID    string `yaml:"key_id"`
	TeamID   string `yaml:"team_id"`
	BundleID string `yaml:"bundle_id"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ProjectID             string          `yaml:"project_id"`
	ListenAddr            string          `yaml:"listen_addr"`
	MessageTopicID        string          `yaml:"message_topic_id"`
	MessageSubscriptionID string          `yaml:"message_subscription_id"`
	ChatTopicID           string          `yaml:"chat_topic_id"`
	ChatSubscriptionID    string          `yaml:"chat_subscription_id"`
	DLQTopicID            string          `yaml:"dlq_topic_id"`
	PushGateway           string          `yaml:"push_gateway"`
	CorsConfig            YamlCorsConfig  `yaml:"cors"`
	RedisConfig           YamlRedisConfig `yaml:"redis"`
	VapidConfig           YamlVapidConfig `yaml:"vapid"`
	APNSConfig            YamlAPNSConfig  `yaml:"apns"`
	NumPipelineWorkers    int             `yaml:"num_pipeline_workers"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		ProjectID:             baseCfg.ProjectID,
		ListenAddr:            baseCfg.ListenAddr,
		MessageTopicID:        baseCfg.MessageTopicID,
		MessageSubscriptionID: baseCfg.MessageSubscriptionID,
		ChatTopicID:           baseCfg.ChatTopicID,
		ChatSubscriptionID:    baseCfg.ChatSubscriptionID,
		DLQTopicID:            baseCfg.DLQTopicID,
		PushGateway:           baseCfg.PushGateway,
		CorsConfig: middleware.CorsConfig{
			AllowedOrigins: baseCfg.CorsConfig.AllowedOrigins,
			Role:           middleware.CorsRole(baseCfg.CorsConfig.Role),
		},
		Redis: RedisConfig{
			Addr:     baseCfg.RedisConfig.Addr,
			Password: baseCfg.RedisConfig.Password,
			DB:       baseCfg.RedisConfig.DB,
			Enabled:  baseCfg.RedisConfig.Enabled,
		},
		Vapid: VapidConfig{
			PublicKey:       baseCfg.VapidConfig.PublicKey,
			PrivateKey:      baseCfg.VapidConfig.PrivateKey,
			SubscriberEmail: baseCfg.VapidConfig.SubscriberEmail,
		},
		APNS: APNSConfig{
			KeyID:    baseCfg.APNSConfig.KeyID,
			TeamID:   baseCfg.APNSConfig.TeamID,
			BundleID: baseCfg.APNSConfig.BundleID,
		},
		NumPipelineWorkers: baseCfg.NumPipelineWorkers,
	}

	if cfg.MessageSubscriptionID != "" {
		cfg.MessageConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(cfg.MessageSubscriptionID)
	}
	if cfg.ChatSubscriptionID != "" {
		cfg.ChatConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(cfg.ChatSubscriptionID)
	}

	logger.Debug("YAML config mapping complete",
		"project_id", cfg.ProjectID,
		"listen_addr", cfg.ListenAddr,
		"message_subscription_id", cfg.MessageSubscriptionID,
		"chat_subscription_id", cfg.ChatSubscriptionID,
	)

	return cfg, nil
}
