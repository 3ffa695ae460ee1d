package dmarc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarcstack/dmarcstack/internal/enum"
	"github.com/dmarcstack/dmarcstack/internal/models"
)

func payloadOf(content string) *models.DecodedPayload {
	return &models.DecodedPayload{SourceFilename: "report.xml", Content: []byte(content)}
}

func TestValidator_ValidReport(t *testing.T) {
	v := NewValidator(0)
	payload := payloadOf(`<feedback><report_metadata><org_name>acme</org_name></report_metadata></feedback>`)

	outcome := v.Validate(payload)

	assert.True(t, outcome.Valid)
	require.NotNil(t, outcome.Payload)
	assert.Equal(t, payload, outcome.Payload)
}

func TestValidator_WrongRootElement(t *testing.T) {
	v := NewValidator(0)

	outcome := v.Validate(payloadOf(`<report><report_metadata/></report>`))

	assert.False(t, outcome.Valid)
	assert.Equal(t, enum.InvalidWrongRootElement, outcome.Reason)
	assert.Contains(t, outcome.Detail, "report")
}

func TestValidator_MalformedXML(t *testing.T) {
	v := NewValidator(0)

	outcome := v.Validate(payloadOf(`<feedback><unclosed>`))

	assert.False(t, outcome.Valid)
	assert.Equal(t, enum.InvalidMalformedXML, outcome.Reason)
}

func TestValidator_EmptyDocument(t *testing.T) {
	v := NewValidator(0)

	outcome := v.Validate(payloadOf(""))

	assert.False(t, outcome.Valid)
	assert.Equal(t, enum.InvalidMalformedXML, outcome.Reason)
}

func TestValidator_MissingReportMetadata(t *testing.T) {
	v := NewValidator(0)

	outcome := v.Validate(payloadOf(`<feedback><policy_published/></feedback>`))

	assert.False(t, outcome.Valid)
	assert.Equal(t, enum.InvalidMissingSection, outcome.Reason)
}

func TestValidator_MetadataMustBeDirectChild(t *testing.T) {
	v := NewValidator(0)

	outcome := v.Validate(payloadOf(`<feedback><wrapper><report_metadata/></wrapper></feedback>`))

	assert.False(t, outcome.Valid)
	assert.Equal(t, enum.InvalidMissingSection, outcome.Reason)
}

func TestValidator_Oversized(t *testing.T) {
	v := NewValidator(8)

	outcome := v.Validate(payloadOf(`<feedback><report_metadata/></feedback>`))

	assert.False(t, outcome.Valid)
	assert.Equal(t, enum.InvalidOversized, outcome.Reason)
}

// Custom entity declarations are the classic XXE vector. With an empty entity
// map and strict parsing, any reference to a non-predefined entity fails.
func TestValidator_RejectsCustomEntities(t *testing.T) {
	v := NewValidator(0)
	doc := `<feedback><report_metadata><org_name>&xxe;</org_name></report_metadata></feedback>`

	outcome := v.Validate(payloadOf(doc))

	assert.False(t, outcome.Valid)
	assert.Equal(t, enum.InvalidMalformedXML, outcome.Reason)
}

func TestValidator_PredefinedEscapesAllowed(t *testing.T) {
	v := NewValidator(0)
	doc := `<feedback><report_metadata><org_name>a &amp; b</org_name></report_metadata></feedback>`

	outcome := v.Validate(payloadOf(doc))

	assert.True(t, outcome.Valid)
}
