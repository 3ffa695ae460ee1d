package config

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"12333"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"POSTGRES_HOST,required"`
	Port            string `env:"POSTGRES_PORT,required"`
	User            string `env:"POSTGRES_USER,required"`
	DBName          string `env:"POSTGRES_DB_NAME,required"`
	Password        string `env:"POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	// Namespace used for stored report blobs.
	KVStoreName string `env:"KV_STORE_NAME" envDefault:"dmarc-reports"`
}

type IMAPConfig struct {
	Server   string `env:"IMAP_SERVER,required"`
	Port     string `env:"IMAP_PORT" envDefault:"993"`
	Username string `env:"IMAP_USERNAME,required"`
	Password string `env:"IMAP_PASSWORD,required"`
	Folder   string `env:"IMAP_FOLDER" envDefault:"INBOX"`
}

type OpenAIConfig struct {
	APIKey     string `env:"OPENAI_API_KEY,required"`
	Model      string `env:"OPENAI_MODEL" envDefault:"gpt-4.1"`
	BaseURL    string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	MaxRetries int    `env:"OPENAI_MAX_RETRIES" envDefault:"3"`
	TimeoutSec int    `env:"OPENAI_TIMEOUT" envDefault:"60"`
}

type SlackConfig struct {
	BotToken       string `env:"SLACK_BOT_TOKEN,required"`
	DmarcChannelID string `env:"DMARC_CHANNEL_ID,required"`
	MaxRetries     int    `env:"SLACK_MAX_RETRIES" envDefault:"3"`
}

type PipelineConfig struct {
	MaxAttachmentSizeMB    int `env:"MAX_ATTACHMENT_SIZE_MB" envDefault:"25"`
	MaxAttachmentsPerEmail int `env:"MAX_ATTACHMENTS_PER_EMAIL" envDefault:"10"`
	// Worker pool bound for concurrent attachment decoding within a batch.
	MaxConcurrentAttachments int `env:"MAX_CONCURRENT_ATTACHMENTS" envDefault:"4"`
}

type R2StorageConfig struct {
	Enabled         bool   `env:"RAW_REPORT_ARCHIVE_ENABLED" envDefault:"false"`
	AccountID       string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET"`
	RawReportBucket string `env:"BUCKET_NAME_RAW_REPORTS" envDefault:"dmarc-raw-reports"`
}
