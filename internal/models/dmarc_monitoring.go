package models

import "time"

// DMARCMonitoring is one aggregate row per normalized report, kept for
// per-domain trend queries.
type DMARCMonitoring struct {
	ID           string    `gorm:"primary_key;type:uuid;default:gen_random_uuid()" json:"id"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamp;DEFAULT:current_timestamp" json:"createdAt"`
	ReportOrg    string    `gorm:"column:report_org;type:varchar(255)" json:"reportOrg"`
	ReportID     string    `gorm:"column:report_id;type:varchar(255);index" json:"reportId"`
	Domain       string    `gorm:"column:domain;type:varchar(255);index" json:"domain"`
	ReportStart  time.Time `gorm:"column:report_start;type:timestamp" json:"reportStart"`
	ReportEnd    time.Time `gorm:"column:report_end;type:timestamp" json:"reportEnd"`
	MessageCount int       `gorm:"column:message_count;type:integer" json:"messageCount"`
	SPFPass      int       `gorm:"column:spf_pass;type:integer" json:"spfPass"`
	DKIMPass     int       `gorm:"column:dkim_pass;type:integer" json:"dkimPass"`
	DMARCPass    int       `gorm:"column:dmarc_pass;type:integer" json:"dmarcPass"`
	Data         JSONMap   `gorm:"column:data;type:jsonb" json:"data"`
}

func (DMARCMonitoring) TableName() string {
	return "dmarc_monitoring"
}
