package dto

import "time"

// RawAttachment is the immutable input unit of the pipeline: one attachment
// as it arrived on the wire, consumed exactly once by the decoder.
type RawAttachment struct {
	Filename     string
	Content      []byte
	DeclaredSize int
}

// InboundEmail is one candidate email pulled from the mail source.
type InboundEmail struct {
	ID          string
	Subject     string
	Sender      string
	Date        time.Time
	Attachments []RawAttachment
}

// Metadata strips the attachment payloads for collaborators that only need
// to reference the email.
func (e InboundEmail) Metadata() EmailMetadata {
	return EmailMetadata{
		ID:      e.ID,
		Subject: e.Subject,
		Sender:  e.Sender,
		Date:    e.Date,
	}
}

type EmailMetadata struct {
	ID      string
	Subject string
	Sender  string
	Date    time.Time
}
