package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// DMARC report ingestion cycle, every 15 minutes
	CronScheduleProcessReports string `env:"CRON_SCHEDULE_PROCESS_REPORTS" envDefault:"0 */15 * * * *"`
}
