package repository

import (
	"gorm.io/gorm"

	"github.com/dmarcstack/dmarcstack/internal/models"
)

type Repositories struct {
	ProcessedBatchRepository  ProcessedBatchRepository
	DMARCMonitoringRepository DMARCMonitoringRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		ProcessedBatchRepository:  NewProcessedBatchRepository(db),
		DMARCMonitoringRepository: NewDMARCMonitoringRepository(db),
	}
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ProcessedBatch{},
		&models.DMARCMonitoring{},
	)
}
