package dto

import "time"

// BatchProcessedEvent is published after a batch finishes, regardless of
// whether any report in it validated.
type BatchProcessedEvent struct {
	BatchID               string    `json:"batchId"`
	EmailID               string    `json:"emailId"`
	StorageKey            string    `json:"storageKey"`
	ReportCount           int       `json:"reportCount"`
	InvalidPayloads       int       `json:"invalidPayloads"`
	NoUsableReports       bool      `json:"noUsableReports"`
	NotificationDelivered bool      `json:"notificationDelivered"`
	ProcessedAt           time.Time `json:"processedAt"`
}
