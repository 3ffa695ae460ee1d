package models

import (
	"github.com/dmarcstack/dmarcstack/internal/enum"
)

// DecodedPayload is one XML candidate extracted from an attachment, with
// enough provenance to trace it back to the original email.
type DecodedPayload struct {
	SourceFilename string
	// ArchiveMember is set when the payload came out of a zip container.
	ArchiveMember string
	Content       []byte
}

func (p DecodedPayload) Provenance() string {
	if p.ArchiveMember != "" {
		return p.SourceFilename + "!" + p.ArchiveMember
	}
	return p.SourceFilename
}

// ValidationOutcome tags every payload before it is trusted downstream:
// either Valid with the payload, or Invalid with a machine-readable reason.
type ValidationOutcome struct {
	Valid   bool
	Payload *DecodedPayload
	Reason  enum.InvalidReason
	Detail  string
}

func ValidOutcome(payload *DecodedPayload) ValidationOutcome {
	return ValidationOutcome{Valid: true, Payload: payload}
}

func InvalidOutcome(reason enum.InvalidReason, detail string) ValidationOutcome {
	return ValidationOutcome{Valid: false, Reason: reason, Detail: detail}
}

// AttachmentOutcome aggregates the per-payload outcomes of one attachment,
// preserving the 1:1 mapping to the batch input for audit.
type AttachmentOutcome struct {
	Filename string
	Payloads []ValidationOutcome
}

// Failed reports whether nothing usable came out of the attachment.
func (o AttachmentOutcome) Failed() bool {
	for _, p := range o.Payloads {
		if p.Valid {
			return false
		}
	}
	return true
}

// BatchResult is the immutable outcome of processing one email.
type BatchResult struct {
	BatchID               string
	EmailID               string
	PerAttachmentOutcomes []AttachmentOutcome
	NormalizedReports     []*DmarcReport
	SummaryText           string
	StorageKey            string
	NotificationDelivered bool
	// NoUsableReports is set when no payload validated; downstream
	// summarization and notification are skipped in that case.
	NoUsableReports bool
}
