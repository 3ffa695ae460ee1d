package imap

import (
	"io"

	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/dmarcstack/dmarcstack/dto"
)

// extractAttachments parses the raw RFC822 message and returns its
// attachments. Inline parts with a filename count too: report generators
// disagree on the disposition they use.
func extractAttachments(body io.Reader) ([]dto.RawAttachment, error) {
	envelope, err := enmime.ReadEnvelope(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse mime envelope")
	}

	var attachments []dto.RawAttachment
	for _, part := range envelope.Attachments {
		attachments = append(attachments, rawAttachment(part))
	}
	for _, part := range envelope.Inlines {
		if part.FileName == "" {
			continue
		}
		attachments = append(attachments, rawAttachment(part))
	}

	return attachments, nil
}

func rawAttachment(part *enmime.Part) dto.RawAttachment {
	return dto.RawAttachment{
		Filename:     part.FileName,
		Content:      part.Content,
		DeclaredSize: len(part.Content),
	}
}
