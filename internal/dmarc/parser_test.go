package dmarc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarcstack/dmarcstack/internal/enum"
	"github.com/dmarcstack/dmarcstack/internal/models"
)

const sampleReport = `<?xml version="1.0" encoding="UTF-8"?>
<feedback>
  <report_metadata>
    <org_name>Example Inc.</org_name>
    <email>noreply@example.com</email>
    <report_id>abc123</report_id>
    <date_range>
      <begin>1700000000</begin>
      <end>1700086400</end>
    </date_range>
  </report_metadata>
  <policy_published>
    <domain>example.com</domain>
    <adkim>r</adkim>
    <aspf>r</aspf>
    <p>quarantine</p>
    <sp>none</sp>
    <pct>100</pct>
  </policy_published>
  <record>
    <row>
      <source_ip>203.0.113.7</source_ip>
      <count>10</count>
      <policy_evaluated>
        <disposition>none</disposition>
        <dkim>fail</dkim>
        <spf>pass</spf>
      </policy_evaluated>
    </row>
    <identifiers>
      <header_from>example.com</header_from>
      <envelope_from>bounce.example.com</envelope_from>
    </identifiers>
    <auth_results>
      <dkim>
        <domain>example.com</domain>
        <selector>s1</selector>
        <result>fail</result>
      </dkim>
      <dkim>
        <domain>mailer.example.net</domain>
        <selector>s2</selector>
        <result>pass</result>
      </dkim>
      <spf>
        <domain>bounce.example.com</domain>
        <scope>mfrom</scope>
        <result>pass</result>
      </spf>
    </auth_results>
  </record>
</feedback>`

func samplePayload(content string) *models.DecodedPayload {
	return &models.DecodedPayload{SourceFilename: "report.xml", Content: []byte(content)}
}

func TestParser_NormalizeSampleReport(t *testing.T) {
	p := NewParser(getLogger())

	report, err := p.Normalize(samplePayload(sampleReport))

	require.NoError(t, err)
	assert.Equal(t, "Example Inc.", report.Metadata.OrgName)
	assert.Equal(t, "noreply@example.com", report.Metadata.OrgEmail)
	assert.Equal(t, "abc123", report.Metadata.ReportID)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), report.Metadata.DateBegin)
	assert.Equal(t, time.Unix(1700086400, 0).UTC(), report.Metadata.DateEnd)

	assert.Equal(t, "example.com", report.PolicyPublished.Domain)
	assert.Equal(t, "quarantine", report.PolicyPublished.Policy)
	assert.Equal(t, 100, report.PolicyPublished.Percentage)

	require.Len(t, report.Records, 1)
	record := report.Records[0]
	assert.Equal(t, "203.0.113.7", record.SourceIP)
	assert.Equal(t, 10, record.MessageCount)
	assert.Equal(t, "example.com", record.HeaderFromDomain)
	assert.Equal(t, enum.AuthResultPass, record.SPFResult)
	assert.Equal(t, enum.AuthResultFail, record.DKIMResult)
	assert.Equal(t, enum.DispositionNone, record.Disposition)
	assert.True(t, record.SPFAligned)
	assert.False(t, record.DKIMAligned)
	assert.False(t, record.Unscored)

	require.Len(t, record.DKIMAuth, 2)
	assert.Equal(t, "s1", record.DKIMAuth[0].Selector)
	assert.Equal(t, "s2", record.DKIMAuth[1].Selector)
	require.Len(t, record.SPFAuth, 1)
	assert.Equal(t, "mfrom", record.SPFAuth[0].Scope)

	assert.Equal(t, 10, report.Stats.TotalMessages)
	assert.Equal(t, 10, report.Stats.SPFPass)
	assert.Equal(t, 0, report.Stats.DKIMPass)
	assert.Equal(t, 0, report.Stats.FullyAligned)
}

func TestParser_MissingReportIDIsNotAnError(t *testing.T) {
	p := NewParser(getLogger())
	doc := `<feedback><report_metadata><org_name>acme</org_name></report_metadata></feedback>`

	report, err := p.Normalize(samplePayload(doc))

	require.NoError(t, err)
	assert.Empty(t, report.Metadata.ReportID)
	assert.Empty(t, report.Records)
	assert.Zero(t, report.Stats.TotalMessages)
}

func TestParser_NonNumericCountDegradesToZero(t *testing.T) {
	p := NewParser(getLogger())
	doc := `<feedback>
  <report_metadata><report_id>r1</report_id></report_metadata>
  <record>
    <row>
      <source_ip>198.51.100.1</source_ip>
      <count>lots</count>
      <policy_evaluated><spf>pass</spf><dkim>pass</dkim></policy_evaluated>
    </row>
  </record>
</feedback>`

	report, err := p.Normalize(samplePayload(doc))

	require.NoError(t, err)
	require.Len(t, report.Records, 1)
	assert.Zero(t, report.Records[0].MessageCount)
}

func TestParser_UnscoredRowExcludedFromAggregates(t *testing.T) {
	p := NewParser(getLogger())
	doc := `<feedback>
  <report_metadata><report_id>r2</report_id></report_metadata>
  <record>
    <row>
      <source_ip>198.51.100.2</source_ip>
      <count>7</count>
      <policy_evaluated><disposition>none</disposition></policy_evaluated>
    </row>
  </record>
</feedback>`

	report, err := p.Normalize(samplePayload(doc))

	require.NoError(t, err)
	require.Len(t, report.Records, 1)
	assert.True(t, report.Records[0].Unscored)
	// The row still counts messages but never feeds pass-rate aggregates.
	assert.Equal(t, 7, report.Stats.TotalMessages)
	assert.Zero(t, report.Stats.SPFPass)
	assert.Zero(t, report.Stats.DKIMPass)
}

func TestParser_RecordOrderPreserved(t *testing.T) {
	p := NewParser(getLogger())
	doc := `<feedback>
  <report_metadata><report_id>r3</report_id></report_metadata>
  <record><row><source_ip>10.0.0.1</source_ip><count>1</count></row></record>
  <record><row><source_ip>10.0.0.2</source_ip><count>2</count></row></record>
  <record><row><source_ip>10.0.0.3</source_ip><count>3</count></row></record>
</feedback>`

	report, err := p.Normalize(samplePayload(doc))

	require.NoError(t, err)
	require.Len(t, report.Records, 3)
	assert.Equal(t, "10.0.0.1", report.Records[0].SourceIP)
	assert.Equal(t, "10.0.0.2", report.Records[1].SourceIP)
	assert.Equal(t, "10.0.0.3", report.Records[2].SourceIP)
}

func TestParser_UnparseableDocument(t *testing.T) {
	p := NewParser(getLogger())

	report, err := p.Normalize(samplePayload("definitely not xml"))

	assert.Error(t, err)
	assert.Nil(t, report)
}
