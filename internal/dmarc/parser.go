package dmarc

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/dmarcstack/dmarcstack/internal/enum"
	"github.com/dmarcstack/dmarcstack/internal/logger"
	"github.com/dmarcstack/dmarcstack/internal/models"
)

// XML shapes of the aggregate-report feedback document. Unknown elements are
// ignored by encoding/xml, which keeps the parser forward-compatible with
// vendor extensions.
type feedbackXML struct {
	XMLName         xml.Name           `xml:"feedback"`
	ReportMetadata  reportMetadataXML  `xml:"report_metadata"`
	PolicyPublished policyPublishedXML `xml:"policy_published"`
	Records         []recordXML        `xml:"record"`
}

type reportMetadataXML struct {
	OrgName   string       `xml:"org_name"`
	Email     string       `xml:"email"`
	ReportID  string       `xml:"report_id"`
	DateRange dateRangeXML `xml:"date_range"`
}

type dateRangeXML struct {
	Begin string `xml:"begin"`
	End   string `xml:"end"`
}

type policyPublishedXML struct {
	Domain string `xml:"domain"`
	ADKIM  string `xml:"adkim"`
	ASPF   string `xml:"aspf"`
	P      string `xml:"p"`
	SP     string `xml:"sp"`
	PCT    string `xml:"pct"`
}

type recordXML struct {
	Row         rowXML         `xml:"row"`
	Identifiers identifiersXML `xml:"identifiers"`
	AuthResults authResultsXML `xml:"auth_results"`
}

type rowXML struct {
	SourceIP        string             `xml:"source_ip"`
	SourceCountry   string             `xml:"source_country"`
	Count           string             `xml:"count"`
	PolicyEvaluated policyEvaluatedXML `xml:"policy_evaluated"`
}

type policyEvaluatedXML struct {
	Disposition string `xml:"disposition"`
	DKIM        string `xml:"dkim"`
	SPF         string `xml:"spf"`
}

type identifiersXML struct {
	HeaderFrom   string `xml:"header_from"`
	EnvelopeFrom string `xml:"envelope_from"`
	EnvelopeTo   string `xml:"envelope_to"`
}

type authResultsXML struct {
	DKIM []dkimAuthXML `xml:"dkim"`
	SPF  []spfAuthXML  `xml:"spf"`
}

type dkimAuthXML struct {
	Domain   string `xml:"domain"`
	Selector string `xml:"selector"`
	Result   string `xml:"result"`
}

type spfAuthXML struct {
	Domain string `xml:"domain"`
	Scope  string `xml:"scope"`
	Result string `xml:"result"`
}

// Parser normalizes validated aggregate-report XML into the canonical
// DmarcReport record.
type Parser struct {
	log logger.Logger
}

func NewParser(log logger.Logger) *Parser {
	return &Parser{log: log}
}

// Normalize parses a validated payload. An error here means the structurally
// valid XML could not be unmarshalled at all; field-level problems degrade
// in place instead. A missing report_id is NOT an error: it only affects
// storage-key quality, not informational value. An empty record list is
// likewise acceptable.
func (p *Parser) Normalize(payload *models.DecodedPayload) (*models.DmarcReport, error) {
	var doc feedbackXML
	if err := xml.Unmarshal(payload.Content, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse aggregate report %s", payload.Provenance())
	}

	report := &models.DmarcReport{
		Metadata: models.ReportMetadata{
			OrgName:   strings.TrimSpace(doc.ReportMetadata.OrgName),
			OrgEmail:  strings.TrimSpace(doc.ReportMetadata.Email),
			ReportID:  strings.TrimSpace(doc.ReportMetadata.ReportID),
			DateBegin: p.parseEpoch(payload, doc.ReportMetadata.DateRange.Begin),
			DateEnd:   p.parseEpoch(payload, doc.ReportMetadata.DateRange.End),
		},
		PolicyPublished: models.PolicyPublished{
			Domain:     strings.TrimSpace(doc.PolicyPublished.Domain),
			ADKIM:      doc.PolicyPublished.ADKIM,
			ASPF:       doc.PolicyPublished.ASPF,
			Policy:     doc.PolicyPublished.P,
			SubPolicy:  doc.PolicyPublished.SP,
			Percentage: p.parseInt(payload, "policy_published/pct", doc.PolicyPublished.PCT),
		},
	}

	if report.Metadata.ReportID == "" {
		p.log.Warnf("report %s has no report_id, storage key will fall back to timestamp", payload.Provenance())
	}

	report.Records = make([]models.Record, 0, len(doc.Records))
	for _, raw := range doc.Records {
		report.Records = append(report.Records, p.normalizeRecord(payload, raw))
	}
	report.Stats = computeStats(report.Records)

	return report, nil
}

func (p *Parser) normalizeRecord(payload *models.DecodedPayload, raw recordXML) models.Record {
	record := models.Record{
		SourceIP:         strings.TrimSpace(raw.Row.SourceIP),
		SourceCountry:    strings.TrimSpace(raw.Row.SourceCountry),
		MessageCount:     p.parseInt(payload, "row/count", raw.Row.Count),
		HeaderFromDomain: strings.TrimSpace(raw.Identifiers.HeaderFrom),
		EnvelopeFrom:     strings.TrimSpace(raw.Identifiers.EnvelopeFrom),
		EnvelopeTo:       strings.TrimSpace(raw.Identifiers.EnvelopeTo),
		Disposition:      enum.ParseDisposition(strings.TrimSpace(raw.Row.PolicyEvaluated.Disposition)),
	}

	spfRaw := strings.TrimSpace(raw.Row.PolicyEvaluated.SPF)
	dkimRaw := strings.TrimSpace(raw.Row.PolicyEvaluated.DKIM)
	record.SPFResult = enum.ParseAuthResult(spfRaw)
	record.DKIMResult = enum.ParseAuthResult(dkimRaw)
	// Sparse reports can omit both evaluations. The row is kept for its
	// message count but flagged so aggregates can exclude it.
	record.Unscored = spfRaw == "" && dkimRaw == ""

	record.SPFAligned = record.SPFResult == enum.AuthResultPass
	record.DKIMAligned = record.DKIMResult == enum.AuthResultPass

	// Multi-signature and multi-mechanism rows are the interesting ones;
	// preserve every auth_results child, not just the first.
	for _, dkim := range raw.AuthResults.DKIM {
		record.DKIMAuth = append(record.DKIMAuth, models.AuthDetail{
			Domain:   strings.TrimSpace(dkim.Domain),
			Result:   strings.TrimSpace(dkim.Result),
			Selector: strings.TrimSpace(dkim.Selector),
		})
	}
	for _, spf := range raw.AuthResults.SPF {
		record.SPFAuth = append(record.SPFAuth, models.AuthDetail{
			Domain: strings.TrimSpace(spf.Domain),
			Result: strings.TrimSpace(spf.Result),
			Scope:  strings.TrimSpace(spf.Scope),
		})
	}

	return record
}

// parseInt degrades an unparseable numeric field to 0 with a logged anomaly
// instead of aborting the record.
func (p *Parser) parseInt(payload *models.DecodedPayload, field, raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		p.log.Warnf("report %s: field %s has non-numeric value %q, defaulting to 0", payload.Provenance(), field, raw)
		return 0
	}
	return n
}

func (p *Parser) parseEpoch(payload *models.DecodedPayload, raw string) time.Time {
	seconds := p.parseInt(payload, "report_metadata/date_range", raw)
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(int64(seconds), 0).UTC()
}

func computeStats(records []models.Record) models.ReportStats {
	var stats models.ReportStats
	for _, r := range records {
		stats.TotalMessages += r.MessageCount
		if r.Unscored {
			continue
		}
		if r.SPFAligned {
			stats.SPFPass += r.MessageCount
		}
		if r.DKIMAligned {
			stats.DKIMPass += r.MessageCount
		}
		if r.SPFAligned && r.DKIMAligned {
			stats.FullyAligned += r.MessageCount
		}
	}
	return stats
}
