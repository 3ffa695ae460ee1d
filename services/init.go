package services

import (
	"github.com/dmarcstack/dmarcstack/config"
	"github.com/dmarcstack/dmarcstack/interfaces"
	"github.com/dmarcstack/dmarcstack/internal/dmarc"
	"github.com/dmarcstack/dmarcstack/internal/logger"
	"github.com/dmarcstack/dmarcstack/internal/repository"
	"github.com/dmarcstack/dmarcstack/services/ai"
	"github.com/dmarcstack/dmarcstack/services/events"
	"github.com/dmarcstack/dmarcstack/services/imap"
	"github.com/dmarcstack/dmarcstack/services/kv"
	"github.com/dmarcstack/dmarcstack/services/orchestrator"
	"github.com/dmarcstack/dmarcstack/services/slack"
	"github.com/dmarcstack/dmarcstack/services/storage"
)

type Services struct {
	MailSource        interfaces.MailSource
	SummarizerService interfaces.SummarizerService
	NotifierService   interfaces.NotifierService
	KVStore           interfaces.KVStore
	StorageService    interfaces.StorageService
	EventPublisher    interfaces.EventPublisher
	Orchestrator      interfaces.BatchOrchestrator
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	services := &Services{
		MailSource:        imap.NewIMAPService(cfg.IMAPConfig, log),
		SummarizerService: ai.NewOpenAIService(cfg.OpenAIConfig),
		NotifierService:   slack.NewSlackService(cfg.SlackConfig),
		KVStore:           kv.NewRedisKVStore(cfg.RedisConfig),
	}

	if cfg.R2StorageConfig.Enabled {
		services.StorageService = storage.NewR2StorageService(cfg.R2StorageConfig)
	}

	if cfg.AppConfig.RabbitMQURL != "" {
		publisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, nil)
		if err != nil {
			return nil, err
		}
		services.EventPublisher = publisher
	}

	maxBytes := cfg.MaxAttachmentBytes()
	services.Orchestrator = orchestrator.NewBatchOrchestrator(orchestrator.Deps{
		Log:        log,
		Pipeline:   cfg.PipelineConfig,
		Namespace:  cfg.RedisConfig.KVStoreName,
		ChannelID:  cfg.SlackConfig.DmarcChannelID,
		Decoder:    dmarc.NewDecoder(log, maxBytes),
		Validator:  dmarc.NewValidator(maxBytes),
		Parser:     dmarc.NewParser(log),
		MailSource: services.MailSource,
		Summarizer: services.SummarizerService,
		Notifier:   services.NotifierService,
		KVStore:    services.KVStore,
		Repos:      repos,
		Archive:    services.StorageService,
		Publisher:  services.EventPublisher,
	})

	return services, nil
}
