package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/dmarcstack/dmarcstack/internal/utils"
)

// ProcessedBatch is the audit row written once per processed email. The
// key-value store remains the system of record for report blobs; this row
// exists so operators can answer "what happened to that email" from SQL.
type ProcessedBatch struct {
	ID           string `gorm:"type:varchar(50);primaryKey"`
	EmailID      string `gorm:"type:varchar(255);index"`
	Subject      string `gorm:"type:varchar(1000)"`
	Sender       string `gorm:"type:varchar(500)"`
	StorageKey   string `gorm:"type:varchar(1000);index"`
	ReportCount  int    `gorm:"default:0"`
	RecordCount  int    `gorm:"default:0"`
	// One reason code per rejected payload, empty when everything validated.
	FailureReasons  pq.StringArray `gorm:"type:varchar(100)[]"`
	SummaryText     string         `gorm:"type:text"`
	Notified        bool           `gorm:"default:false"`
	NoUsableReports bool           `gorm:"default:false"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (ProcessedBatch) TableName() string {
	return "processed_batches"
}

func (b *ProcessedBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = utils.GenerateNanoIDWithPrefix("batch", 12)
	}
	b.CreatedAt = utils.Now()
	return nil
}
