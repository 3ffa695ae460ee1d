package dmarc

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/dmarcstack/dmarcstack/internal/enum"
	"github.com/dmarcstack/dmarcstack/internal/models"
)

const feedbackRootElement = "feedback"

// Validator checks that a decoded payload is well-formed XML with the DMARC
// aggregate-report shape before anything downstream trusts it. The payload is
// untrusted network input: encoding/xml never resolves external entities or
// DTDs, and the Entity map is left empty so only the predefined XML escapes
// are honored.
type Validator struct {
	maxPayloadBytes int64
}

func NewValidator(maxPayloadBytes int64) *Validator {
	return &Validator{maxPayloadBytes: maxPayloadBytes}
}

// Validate short-circuits on the first failure and tags every payload with
// an explicit outcome.
func (v *Validator) Validate(payload *models.DecodedPayload) models.ValidationOutcome {
	if v.maxPayloadBytes > 0 && int64(len(payload.Content)) > v.maxPayloadBytes {
		return models.InvalidOutcome(enum.InvalidOversized, "payload exceeds configured maximum")
	}

	decoder := xml.NewDecoder(bytes.NewReader(payload.Content))
	decoder.Strict = true
	decoder.Entity = map[string]string{}

	rootSeen := false
	metadataSeen := false
	depth := 0

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.InvalidOutcome(enum.InvalidMalformedXML, err.Error())
		}

		switch element := token.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				if element.Name.Local != feedbackRootElement {
					return models.InvalidOutcome(enum.InvalidWrongRootElement,
						"root element is '"+element.Name.Local+"', expected '"+feedbackRootElement+"'")
				}
				rootSeen = true
			}
			if depth == 2 && element.Name.Local == "report_metadata" {
				metadataSeen = true
			}
		case xml.EndElement:
			depth--
		}
	}

	if !rootSeen {
		return models.InvalidOutcome(enum.InvalidMalformedXML, "document has no root element")
	}
	if !metadataSeen {
		return models.InvalidOutcome(enum.InvalidMissingSection, "missing required 'report_metadata' element")
	}

	return models.ValidOutcome(payload)
}
