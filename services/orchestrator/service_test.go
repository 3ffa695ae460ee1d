package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarcstack/dmarcstack/config"
	"github.com/dmarcstack/dmarcstack/dto"
	"github.com/dmarcstack/dmarcstack/interfaces"
	"github.com/dmarcstack/dmarcstack/internal/dmarc"
	"github.com/dmarcstack/dmarcstack/internal/enum"
	"github.com/dmarcstack/dmarcstack/internal/logger"
	"github.com/dmarcstack/dmarcstack/internal/models"
)

const validReportTemplate = `<feedback>
  <report_metadata>
    <org_name>Example Inc.</org_name>
    <report_id>abc123</report_id>
    <date_range><begin>1700000000</begin><end>1700086400</end></date_range>
  </report_metadata>
  <policy_published><domain>example.com</domain><p>none</p></policy_published>
  <record>
    <row>
      <source_ip>203.0.113.7</source_ip>
      <count>10</count>
      <policy_evaluated><disposition>none</disposition><dkim>fail</dkim><spf>pass</spf></policy_evaluated>
    </row>
    <identifiers><header_from>example.com</header_from></identifiers>
  </record>
</feedback>`

type fakeMailSource struct {
	emails    []dto.InboundEmail
	fetchErr  error
	processed []string
}

func (f *fakeMailSource) Start(ctx context.Context) error { return nil }
func (f *fakeMailSource) Stop() error                     { return nil }
func (f *fakeMailSource) FetchCandidateEmails(ctx context.Context) ([]dto.InboundEmail, error) {
	return f.emails, f.fetchErr
}
func (f *fakeMailSource) MarkProcessed(ctx context.Context, emailID string) error {
	f.processed = append(f.processed, emailID)
	return nil
}

type fakeSummarizer struct {
	analyzeCalls   int
	summarizeCalls int
	analyzeErr     error
	summarizeErr   error
}

func (f *fakeSummarizer) AnalyzeReport(ctx context.Context, report *models.DmarcReport) (string, error) {
	f.analyzeCalls++
	if f.analyzeErr != nil {
		return "", f.analyzeErr
	}
	return "analysis of " + report.Metadata.ReportID, nil
}

func (f *fakeSummarizer) SummarizeAnalyses(ctx context.Context, analyses []string, email dto.EmailMetadata) (string, error) {
	f.summarizeCalls++
	if f.summarizeErr != nil {
		return "", f.summarizeErr
	}
	return "digest", nil
}

type fakeNotifier struct {
	calls    int
	err      error
	messages []string
}

func (f *fakeNotifier) Notify(ctx context.Context, channelRef string, message string) error {
	f.calls++
	f.messages = append(f.messages, message)
	return f.err
}

type fakeKVStore struct {
	mu     sync.Mutex
	puts   map[string]interface{}
	putErr error
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{puts: make(map[string]interface{})}
}

func (f *fakeKVStore) Put(ctx context.Context, namespace, key string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts[namespace+":"+key] = value
	return nil
}

func (f *fakeKVStore) Get(ctx context.Context, namespace, key string, out interface{}) error {
	return errors.New("not implemented")
}

type orchestratorFixture struct {
	orch       interfaces.BatchOrchestrator
	mailSource *fakeMailSource
	summarizer *fakeSummarizer
	notifier   *fakeNotifier
	kv         *fakeKVStore
}

func newFixture(t *testing.T, pipeline *config.PipelineConfig) *orchestratorFixture {
	t.Helper()

	log := logger.NewAppLogger(&logger.Config{DevMode: true})
	log.InitLogger()

	if pipeline == nil {
		pipeline = &config.PipelineConfig{
			MaxAttachmentSizeMB:      25,
			MaxAttachmentsPerEmail:   10,
			MaxConcurrentAttachments: 4,
		}
	}

	f := &orchestratorFixture{
		mailSource: &fakeMailSource{},
		summarizer: &fakeSummarizer{},
		notifier:   &fakeNotifier{},
		kv:         newFakeKVStore(),
	}

	maxBytes := int64(pipeline.MaxAttachmentSizeMB) * 1024 * 1024
	f.orch = NewBatchOrchestrator(Deps{
		Log:        log,
		Pipeline:   pipeline,
		Namespace:  "dmarc-reports",
		ChannelID:  "C123",
		Decoder:    dmarc.NewDecoder(log, maxBytes),
		Validator:  dmarc.NewValidator(maxBytes),
		Parser:     dmarc.NewParser(log),
		MailSource: f.mailSource,
		Summarizer: f.summarizer,
		Notifier:   f.notifier,
		KVStore:    f.kv,
	})
	return f
}

func xmlAttachment(name, content string) dto.RawAttachment {
	return dto.RawAttachment{Filename: name, Content: []byte(content), DeclaredSize: len(content)}
}

func TestProcessBatch_HappyPath(t *testing.T) {
	f := newFixture(t, nil)
	email := dto.InboundEmail{
		ID:          "email-1",
		Subject:     "Report domain: example.com",
		Sender:      "noreply@example.com",
		Attachments: []dto.RawAttachment{xmlAttachment("dmarc.xml", validReportTemplate)},
	}

	result, err := f.orch.ProcessBatch(context.Background(), email)

	require.NoError(t, err)
	assert.False(t, result.NoUsableReports)
	assert.Equal(t, "example.com_Example_Inc_abc123", result.StorageKey)
	require.Len(t, result.NormalizedReports, 1)
	assert.Equal(t, 10, result.NormalizedReports[0].Stats.TotalMessages)
	assert.Equal(t, "digest", result.SummaryText)
	assert.True(t, result.NotificationDelivered)

	assert.Equal(t, 1, f.summarizer.analyzeCalls)
	assert.Equal(t, 1, f.summarizer.summarizeCalls)
	assert.Equal(t, 1, f.notifier.calls)
	assert.Contains(t, f.kv.puts, "dmarc-reports:example.com_Example_Inc_abc123")
}

func TestProcessBatch_Idempotence(t *testing.T) {
	f := newFixture(t, nil)
	email := dto.InboundEmail{
		ID:          "email-1",
		Subject:     "s",
		Sender:      "a@b.c",
		Attachments: []dto.RawAttachment{xmlAttachment("dmarc.xml", validReportTemplate)},
	}

	first, err := f.orch.ProcessBatch(context.Background(), email)
	require.NoError(t, err)
	second, err := f.orch.ProcessBatch(context.Background(), email)
	require.NoError(t, err)

	assert.Equal(t, first.StorageKey, second.StorageKey)
	// The second run overwrites the same entry instead of duplicating it.
	assert.Len(t, f.kv.puts, 1)
}

func TestProcessBatch_PartialFailureIsolation(t *testing.T) {
	f := newFixture(t, nil)
	attachments := []dto.RawAttachment{
		xmlAttachment("one.xml", validReportTemplate),
		xmlAttachment("two.xml", validReportTemplate),
		xmlAttachment("three.xml", "<broken><"),
		xmlAttachment("four.xml", validReportTemplate),
		xmlAttachment("five.xml", validReportTemplate),
	}
	email := dto.InboundEmail{ID: "email-2", Subject: "s", Sender: "a@b.c", Attachments: attachments}

	result, err := f.orch.ProcessBatch(context.Background(), email)

	require.NoError(t, err)
	require.Len(t, result.PerAttachmentOutcomes, 5)
	// Outcomes keep input order even with concurrent workers.
	for i, outcome := range result.PerAttachmentOutcomes {
		assert.Equal(t, attachments[i].Filename, outcome.Filename)
	}
	assert.True(t, result.PerAttachmentOutcomes[2].Failed())
	assert.Equal(t, enum.InvalidMalformedXML, result.PerAttachmentOutcomes[2].Payloads[0].Reason)
	assert.Len(t, result.NormalizedReports, 4)
	assert.False(t, result.NoUsableReports)
}

func TestProcessBatch_NoUsableReports(t *testing.T) {
	f := newFixture(t, nil)
	email := dto.InboundEmail{
		ID:      "email-3",
		Subject: "invoice",
		Sender:  "billing@example.com",
		Attachments: []dto.RawAttachment{
			{Filename: "invoice.pdf", Content: []byte("%PDF-1.4")},
		},
	}

	result, err := f.orch.ProcessBatch(context.Background(), email)

	require.NoError(t, err)
	assert.True(t, result.NoUsableReports)
	assert.Empty(t, result.StorageKey)
	// No external collaborator is touched for an empty batch.
	assert.Zero(t, f.summarizer.analyzeCalls)
	assert.Zero(t, f.summarizer.summarizeCalls)
	assert.Zero(t, f.notifier.calls)
	assert.Empty(t, f.kv.puts)
}

func TestProcessBatch_EmptyAttachmentList(t *testing.T) {
	f := newFixture(t, nil)
	email := dto.InboundEmail{ID: "email-4", Subject: "s", Sender: "a@b.c"}

	result, err := f.orch.ProcessBatch(context.Background(), email)

	require.NoError(t, err)
	assert.True(t, result.NoUsableReports)
	assert.Empty(t, result.PerAttachmentOutcomes)
}

func TestProcessBatch_AttachmentCapEnforced(t *testing.T) {
	f := newFixture(t, &config.PipelineConfig{
		MaxAttachmentSizeMB:      25,
		MaxAttachmentsPerEmail:   2,
		MaxConcurrentAttachments: 4,
	})
	email := dto.InboundEmail{
		ID:      "email-5",
		Subject: "s",
		Sender:  "a@b.c",
		Attachments: []dto.RawAttachment{
			xmlAttachment("one.xml", validReportTemplate),
			xmlAttachment("two.xml", validReportTemplate),
			xmlAttachment("three.xml", validReportTemplate),
		},
	}

	result, err := f.orch.ProcessBatch(context.Background(), email)

	require.NoError(t, err)
	require.Len(t, result.PerAttachmentOutcomes, 3)
	third := result.PerAttachmentOutcomes[2]
	require.Len(t, third.Payloads, 1)
	assert.Equal(t, enum.InvalidAttachmentSkipped, third.Payloads[0].Reason)
	assert.Len(t, result.NormalizedReports, 2)
}

func TestProcessBatch_SummarizerFailureDegrades(t *testing.T) {
	f := newFixture(t, nil)
	f.summarizer.summarizeErr = errors.New("model overloaded")
	email := dto.InboundEmail{
		ID:          "email-6",
		Subject:     "s",
		Sender:      "a@b.c",
		Attachments: []dto.RawAttachment{xmlAttachment("dmarc.xml", validReportTemplate)},
	}

	result, err := f.orch.ProcessBatch(context.Background(), email)

	require.NoError(t, err)
	assert.Contains(t, result.SummaryText, "summary unavailable")
	assert.Contains(t, result.SummaryText, "example.com")
	// Degraded summary still gets stored and delivered.
	assert.True(t, result.NotificationDelivered)
	assert.Len(t, f.kv.puts, 1)
}

func TestProcessBatch_NotifierFailureRecorded(t *testing.T) {
	f := newFixture(t, nil)
	f.notifier.err = errors.New("channel_not_found")
	email := dto.InboundEmail{
		ID:          "email-7",
		Subject:     "s",
		Sender:      "a@b.c",
		Attachments: []dto.RawAttachment{xmlAttachment("dmarc.xml", validReportTemplate)},
	}

	result, err := f.orch.ProcessBatch(context.Background(), email)

	require.NoError(t, err)
	assert.False(t, result.NotificationDelivered)
	// Storage is independent of notification delivery.
	assert.Len(t, f.kv.puts, 1)
}

func TestProcessBatch_StorageFailureIsFatal(t *testing.T) {
	f := newFixture(t, nil)
	f.kv.putErr = errors.New("redis down")
	email := dto.InboundEmail{
		ID:          "email-8",
		Subject:     "s",
		Sender:      "a@b.c",
		Attachments: []dto.RawAttachment{xmlAttachment("dmarc.xml", validReportTemplate)},
	}

	result, err := f.orch.ProcessBatch(context.Background(), email)

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestRunCycle(t *testing.T) {
	f := newFixture(t, nil)
	f.mailSource.emails = []dto.InboundEmail{
		{ID: "e1", Subject: "s1", Sender: "a@b.c", Attachments: []dto.RawAttachment{xmlAttachment("dmarc.xml", validReportTemplate)}},
		{ID: "e2", Subject: "s2", Sender: "a@b.c", Attachments: []dto.RawAttachment{{Filename: "invoice.pdf", Content: []byte("x")}}},
	}

	results, err := f.orch.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Len(t, results, 2)
	// Both emails get marked processed, including the empty batch.
	assert.Equal(t, []string{"e1", "e2"}, f.mailSource.processed)
}

func TestRunCycle_FetchFailureIsFatal(t *testing.T) {
	f := newFixture(t, nil)
	f.mailSource.fetchErr = errors.New("imap down")

	results, err := f.orch.RunCycle(context.Background())

	assert.Error(t, err)
	assert.Nil(t, results)
}
