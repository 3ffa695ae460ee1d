package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/dmarcstack/dmarcstack/internal/logger"
	"github.com/dmarcstack/dmarcstack/internal/tracing"
)

type Config struct {
	AppConfig       *AppConfig
	Logger          *logger.Config
	Tracing         *tracing.JaegerConfig
	DatabaseConfig  *DatabaseConfig
	RedisConfig     *RedisConfig
	IMAPConfig      *IMAPConfig
	OpenAIConfig    *OpenAIConfig
	SlackConfig     *SlackConfig
	PipelineConfig  *PipelineConfig
	R2StorageConfig *R2StorageConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:       &AppConfig{},
		Logger:          &logger.Config{},
		Tracing:         &tracing.JaegerConfig{},
		DatabaseConfig:  &DatabaseConfig{},
		RedisConfig:     &RedisConfig{},
		IMAPConfig:      &IMAPConfig{},
		OpenAIConfig:    &OpenAIConfig{},
		SlackConfig:     &SlackConfig{},
		PipelineConfig:  &PipelineConfig{},
		R2StorageConfig: &R2StorageConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, errors.Wrap(err, "error loading dmarcstack config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate catches misconfiguration at startup instead of at first use.
func (c *Config) Validate() error {
	if c.SlackConfig.BotToken == "" {
		return errors.New("SLACK_BOT_TOKEN is required")
	}
	if c.SlackConfig.DmarcChannelID == "" {
		return errors.New("DMARC_CHANNEL_ID is required")
	}
	if c.R2StorageConfig.Enabled {
		switch {
		case c.R2StorageConfig.AccountID == "":
			return errors.New("CLOUDFLARE_R2_ACCOUNT_ID is required when the raw report archive is enabled")
		case c.R2StorageConfig.AccessKeyID == "":
			return errors.New("CLOUDFLARE_R2_ACCESS_KEY_ID is required when the raw report archive is enabled")
		case c.R2StorageConfig.AccessKeySecret == "":
			return errors.New("CLOUDFLARE_R2_ACCESS_KEY_SECRET is required when the raw report archive is enabled")
		}
	}
	return nil
}

// MaxAttachmentBytes converts the configured megabyte ceiling.
func (c *Config) MaxAttachmentBytes() int64 {
	return int64(c.PipelineConfig.MaxAttachmentSizeMB) * 1024 * 1024
}
