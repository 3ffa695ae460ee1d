package models

import (
	"time"

	"github.com/dmarcstack/dmarcstack/internal/enum"
)

// DmarcReport is the canonical in-memory form of one aggregate report,
// independent of the vendor XML variant it was parsed from.
type DmarcReport struct {
	Metadata        ReportMetadata  `json:"reportMetadata"`
	PolicyPublished PolicyPublished `json:"policyPublished"`
	// Records keeps source document order. Aggregates derived from it
	// (Stats) are order-independent counts.
	Records []Record    `json:"records"`
	Stats   ReportStats `json:"stats"`
}

type ReportMetadata struct {
	OrgName   string    `json:"orgName"`
	OrgEmail  string    `json:"orgEmail,omitempty"`
	ReportID  string    `json:"reportId"`
	DateBegin time.Time `json:"dateBegin"`
	DateEnd   time.Time `json:"dateEnd"`
}

type PolicyPublished struct {
	Domain     string `json:"domain"`
	ADKIM      string `json:"adkim,omitempty"`
	ASPF       string `json:"aspf,omitempty"`
	Policy     string `json:"p,omitempty"`
	SubPolicy  string `json:"sp,omitempty"`
	Percentage int    `json:"pct,omitempty"`
}

// Record is one row of the aggregate report.
type Record struct {
	SourceIP         string           `json:"sourceIp"`
	SourceCountry    string           `json:"sourceCountry,omitempty"`
	MessageCount     int              `json:"messageCount"`
	HeaderFromDomain string           `json:"headerFromDomain"`
	EnvelopeFrom     string           `json:"envelopeFrom,omitempty"`
	EnvelopeTo       string           `json:"envelopeTo,omitempty"`
	SPFResult        enum.AuthResult  `json:"spfResult"`
	DKIMResult       enum.AuthResult  `json:"dkimResult"`
	Disposition      enum.Disposition `json:"disposition"`
	DKIMAligned      bool             `json:"dkimAligned"`
	SPFAligned       bool             `json:"spfAligned"`
	// A single message can carry multiple DKIM signatures and be checked
	// against multiple SPF domains. All of them are preserved.
	DKIMAuth []AuthDetail `json:"dkimAuth,omitempty"`
	SPFAuth  []AuthDetail `json:"spfAuth,omitempty"`
	// Unscored marks rows where the report carried neither an SPF nor a
	// DKIM policy evaluation. The row is kept for message counts.
	Unscored bool `json:"unscored,omitempty"`
}

// AuthDetail is one raw per-mechanism authentication result.
type AuthDetail struct {
	Domain   string `json:"domain"`
	Result   string `json:"result"`
	Selector string `json:"selector,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

// ReportStats are order-independent aggregates over Records.
type ReportStats struct {
	TotalMessages int `json:"totalMessages"`
	SPFPass       int `json:"spfPass"`
	DKIMPass      int `json:"dkimPass"`
	FullyAligned  int `json:"fullyAligned"`
}
