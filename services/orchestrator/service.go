package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/dmarcstack/dmarcstack/config"
	"github.com/dmarcstack/dmarcstack/dto"
	"github.com/dmarcstack/dmarcstack/interfaces"
	"github.com/dmarcstack/dmarcstack/internal/dmarc"
	"github.com/dmarcstack/dmarcstack/internal/enum"
	"github.com/dmarcstack/dmarcstack/internal/logger"
	"github.com/dmarcstack/dmarcstack/internal/models"
	"github.com/dmarcstack/dmarcstack/internal/repository"
	"github.com/dmarcstack/dmarcstack/internal/tracing"
	"github.com/dmarcstack/dmarcstack/internal/utils"
)

const kvContentType = "application/xml"

type batchOrchestrator struct {
	log       logger.Logger
	pipeline  *config.PipelineConfig
	namespace string
	channelID string

	decoder   *dmarc.Decoder
	validator *dmarc.Validator
	parser    *dmarc.Parser

	mailSource interfaces.MailSource
	summarizer interfaces.SummarizerService
	notifier   interfaces.NotifierService
	kvStore    interfaces.KVStore
	repos      *repository.Repositories

	// archive and publisher are optional plumbing; nil disables them.
	archive   interfaces.StorageService
	publisher interfaces.EventPublisher
}

type Deps struct {
	Log        logger.Logger
	Pipeline   *config.PipelineConfig
	Namespace  string
	ChannelID  string
	Decoder    *dmarc.Decoder
	Validator  *dmarc.Validator
	Parser     *dmarc.Parser
	MailSource interfaces.MailSource
	Summarizer interfaces.SummarizerService
	Notifier   interfaces.NotifierService
	KVStore    interfaces.KVStore
	Repos      *repository.Repositories
	Archive    interfaces.StorageService
	Publisher  interfaces.EventPublisher
}

func NewBatchOrchestrator(deps Deps) interfaces.BatchOrchestrator {
	return &batchOrchestrator{
		log:        deps.Log,
		pipeline:   deps.Pipeline,
		namespace:  deps.Namespace,
		channelID:  deps.ChannelID,
		decoder:    deps.Decoder,
		validator:  deps.Validator,
		parser:     deps.Parser,
		mailSource: deps.MailSource,
		summarizer: deps.Summarizer,
		notifier:   deps.Notifier,
		kvStore:    deps.KVStore,
		repos:      deps.Repos,
		archive:    deps.Archive,
		publisher:  deps.Publisher,
	}
}

// attachmentWork is the per-attachment result produced by the worker pool.
// Index-addressed so concurrent workers never reorder outcomes.
type attachmentWork struct {
	outcome models.AttachmentOutcome
	reports []*models.DmarcReport
	// raw pairs each normalized report with its validated payload so the
	// archive can store the original bytes.
	raw []*models.DecodedPayload
}

func (o *batchOrchestrator) ProcessBatch(ctx context.Context, email dto.InboundEmail) (*models.BatchResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "batchOrchestrator.ProcessBatch")
	defer span.Finish()
	tracing.SetDefaultPipelineSpanTags(ctx, span)
	span.SetTag("email_id", email.ID)
	span.LogFields(tracingLog.Int("attachment_count", len(email.Attachments)))

	result := &models.BatchResult{
		BatchID: utils.GenerateNanoIDWithPrefix("batch", 12),
		EmailID: email.ID,
	}

	work := o.processAttachments(ctx, email.Attachments)
	var validPayloads []*models.DecodedPayload
	for _, w := range work {
		result.PerAttachmentOutcomes = append(result.PerAttachmentOutcomes, w.outcome)
		result.NormalizedReports = append(result.NormalizedReports, w.reports...)
		validPayloads = append(validPayloads, w.raw...)
	}

	if len(result.NormalizedReports) == 0 {
		result.NoUsableReports = true
		span.SetTag("no_usable_reports", true)
		o.log.Infof("Batch %s: no usable reports in email %s", result.BatchID, email.ID)
		o.persistAudit(ctx, email, result)
		o.publishResult(ctx, result)
		return result, nil
	}

	result.StorageKey = deriveStorageKey(result.NormalizedReports, email.Metadata(), utils.Now())
	tracing.TagStorageKey(span, result.StorageKey)

	result.SummaryText = o.summarize(ctx, result.NormalizedReports, email.Metadata())
	result.NotificationDelivered = o.notify(ctx, result, email.Metadata())

	if err := o.store(ctx, email.Metadata(), result); err != nil {
		// Storing the batch is the one step that must not fail silently:
		// without it the batch is lost once the email is marked read.
		tracing.TraceErr(span, err)
		return nil, err
	}

	o.archiveRawPayloads(ctx, result.StorageKey, validPayloads)
	o.persistAudit(ctx, email, result)
	o.publishResult(ctx, result)

	return result, nil
}

// processAttachments runs the decode, validate and normalize stages over a
// bounded worker pool. Attachments past the per-email cap are marked skipped
// without reading their content.
func (o *batchOrchestrator) processAttachments(ctx context.Context, attachments []dto.RawAttachment) []attachmentWork {
	work := make([]attachmentWork, len(attachments))

	maxPerEmail := o.pipeline.MaxAttachmentsPerEmail
	limit := len(attachments)
	if maxPerEmail > 0 && limit > maxPerEmail {
		limit = maxPerEmail
		for i := limit; i < len(attachments); i++ {
			work[i] = attachmentWork{outcome: models.AttachmentOutcome{
				Filename: attachments[i].Filename,
				Payloads: []models.ValidationOutcome{
					models.InvalidOutcome(enum.InvalidAttachmentSkipped, "attachment limit per email exceeded"),
				},
			}}
		}
		o.log.Warnf("Email carries %d attachments, processing first %d", len(attachments), limit)
	}

	g, ctx := errgroup.WithContext(ctx)
	if o.pipeline.MaxConcurrentAttachments > 0 {
		g.SetLimit(o.pipeline.MaxConcurrentAttachments)
	}

	for i := 0; i < limit; i++ {
		i := i
		g.Go(func() error {
			work[i] = o.processAttachment(ctx, attachments[i])
			return nil
		})
	}
	// Workers never return errors; failures become Invalid outcomes.
	_ = g.Wait()

	return work
}

func (o *batchOrchestrator) processAttachment(ctx context.Context, attachment dto.RawAttachment) attachmentWork {
	span, _ := opentracing.StartSpanFromContext(ctx, "batchOrchestrator.processAttachment")
	defer span.Finish()
	tracing.SetDefaultPipelineSpanTags(ctx, span)
	span.SetTag("filename", attachment.Filename)

	w := attachmentWork{outcome: models.AttachmentOutcome{Filename: attachment.Filename}}

	payloads, failures := o.decoder.Decode(attachment.Filename, attachment.Content)
	w.outcome.Payloads = append(w.outcome.Payloads, failures...)

	for i := range payloads {
		payload := &payloads[i]
		outcome := o.validator.Validate(payload)
		if !outcome.Valid {
			w.outcome.Payloads = append(w.outcome.Payloads, outcome)
			continue
		}

		report, err := o.parser.Normalize(payload)
		if err != nil {
			tracing.TraceErr(span, err)
			w.outcome.Payloads = append(w.outcome.Payloads,
				models.InvalidOutcome(enum.InvalidNormalizeFailed, err.Error()))
			continue
		}

		w.outcome.Payloads = append(w.outcome.Payloads, outcome)
		w.reports = append(w.reports, report)
		w.raw = append(w.raw, payload)
	}

	return w
}

// summarize degrades per report: an analysis failure becomes a placeholder
// line instead of sinking the whole digest.
func (o *batchOrchestrator) summarize(ctx context.Context, reports []*models.DmarcReport, email dto.EmailMetadata) string {
	span, ctx := opentracing.StartSpanFromContext(ctx, "batchOrchestrator.summarize")
	defer span.Finish()
	tracing.SetDefaultPipelineSpanTags(ctx, span)

	analyses := make([]string, 0, len(reports))
	for _, report := range reports {
		analysis, err := o.summarizer.AnalyzeReport(ctx, report)
		if err != nil {
			tracing.TraceErr(span, err)
			o.log.Warnf("Analysis failed for report %s: %v", report.Metadata.ReportID, err)
			analysis = fmt.Sprintf("Analysis unavailable for report %s from %s (%d messages).",
				report.Metadata.ReportID, report.Metadata.OrgName, report.Stats.TotalMessages)
		}
		analyses = append(analyses, analysis)
	}

	summary, err := o.summarizer.SummarizeAnalyses(ctx, analyses, email)
	if err != nil {
		tracing.TraceErr(span, err)
		o.log.Warnf("Summarization failed for email %s: %v", email.ID, err)
		return o.placeholderSummary(reports)
	}
	return summary
}

func (o *batchOrchestrator) placeholderSummary(reports []*models.DmarcReport) string {
	var sb strings.Builder
	sb.WriteString("DMARC summary unavailable. Raw report totals:\n")
	for _, report := range reports {
		fmt.Fprintf(&sb, "- %s (%s): %d messages, %d SPF pass, %d DKIM pass\n",
			report.PolicyPublished.Domain, report.Metadata.OrgName,
			report.Stats.TotalMessages, report.Stats.SPFPass, report.Stats.DKIMPass)
	}
	return sb.String()
}

func (o *batchOrchestrator) notify(ctx context.Context, result *models.BatchResult, email dto.EmailMetadata) bool {
	message := fmt.Sprintf("DMARC reports processed for %q from %s\n\n%s",
		email.Subject, email.Sender, result.SummaryText)
	if err := o.notifier.Notify(ctx, o.channelID, message); err != nil {
		o.log.Errorf("Notification failed for batch %s: %v", result.BatchID, err)
		return false
	}
	return true
}

// storedBatch is the JSON blob written to the key-value store.
type storedBatch struct {
	BatchID   string                `json:"batchId"`
	Email     dto.EmailMetadata     `json:"email"`
	Reports   []*models.DmarcReport `json:"reports"`
	Summary   string                `json:"summary"`
	StoredAt  string                `json:"storedAt"`
	KeySource string                `json:"storageKey"`
}

func (o *batchOrchestrator) store(ctx context.Context, email dto.EmailMetadata, result *models.BatchResult) error {
	blob := storedBatch{
		BatchID:   result.BatchID,
		Email:     email,
		Reports:   result.NormalizedReports,
		Summary:   result.SummaryText,
		StoredAt:  utils.Now().Format("2006-01-02T15:04:05.000Z"),
		KeySource: result.StorageKey,
	}
	if err := o.kvStore.Put(ctx, o.namespace, result.StorageKey, blob); err != nil {
		return errors.Wrapf(err, "failed to store batch %s under key %s", result.BatchID, result.StorageKey)
	}
	return nil
}

// archiveRawPayloads keeps the validated XML in object storage when the
// archive is enabled. Failures are logged only.
func (o *batchOrchestrator) archiveRawPayloads(ctx context.Context, storageKey string, payloads []*models.DecodedPayload) {
	if o.archive == nil {
		return
	}
	for i, payload := range payloads {
		key := fmt.Sprintf("%s/%02d_%s", storageKey, i, utils.SanitizeKeyComponent(payload.Provenance()))
		if err := o.archive.Upload(ctx, key, payload.Content, kvContentType); err != nil {
			o.log.Warnf("Raw report archive upload failed for %s: %v", key, err)
		}
	}
}

func (o *batchOrchestrator) persistAudit(ctx context.Context, email dto.InboundEmail, result *models.BatchResult) {
	if o.repos == nil {
		return
	}

	batch := &models.ProcessedBatch{
		ID:              result.BatchID,
		EmailID:         email.ID,
		Subject:         email.Subject,
		Sender:          email.Sender,
		StorageKey:      result.StorageKey,
		ReportCount:     len(result.NormalizedReports),
		SummaryText:     result.SummaryText,
		Notified:        result.NotificationDelivered,
		NoUsableReports: result.NoUsableReports,
	}
	for _, outcome := range result.PerAttachmentOutcomes {
		for _, p := range outcome.Payloads {
			if !p.Valid {
				batch.FailureReasons = append(batch.FailureReasons, p.Reason.String())
			}
		}
	}
	for _, report := range result.NormalizedReports {
		batch.RecordCount += len(report.Records)
	}
	if err := o.repos.ProcessedBatchRepository.Create(ctx, batch); err != nil {
		o.log.Errorf("Failed to persist audit row for batch %s: %v", result.BatchID, err)
	}

	for _, report := range result.NormalizedReports {
		row := o.monitoringRow(report)
		if err := o.repos.DMARCMonitoringRepository.Create(ctx, row); err != nil {
			o.log.Errorf("Failed to persist monitoring row for report %s: %v", report.Metadata.ReportID, err)
		}
	}
}

func (o *batchOrchestrator) monitoringRow(report *models.DmarcReport) *models.DMARCMonitoring {
	var data models.JSONMap
	if raw, err := json.Marshal(report); err == nil {
		if err := json.Unmarshal(raw, &data); err != nil {
			o.log.Warnf("Failed to build monitoring data for report %s: %v", report.Metadata.ReportID, err)
		}
	}
	return &models.DMARCMonitoring{
		ReportOrg:    report.Metadata.OrgName,
		ReportID:     report.Metadata.ReportID,
		Domain:       report.PolicyPublished.Domain,
		ReportStart:  report.Metadata.DateBegin,
		ReportEnd:    report.Metadata.DateEnd,
		MessageCount: report.Stats.TotalMessages,
		SPFPass:      report.Stats.SPFPass,
		DKIMPass:     report.Stats.DKIMPass,
		DMARCPass:    report.Stats.FullyAligned,
		Data:         data,
	}
}

func (o *batchOrchestrator) publishResult(ctx context.Context, result *models.BatchResult) {
	if o.publisher == nil {
		return
	}

	invalid := 0
	for _, outcome := range result.PerAttachmentOutcomes {
		for _, p := range outcome.Payloads {
			if !p.Valid {
				invalid++
			}
		}
	}

	event := dto.BatchProcessedEvent{
		BatchID:               result.BatchID,
		EmailID:               result.EmailID,
		StorageKey:            result.StorageKey,
		ReportCount:           len(result.NormalizedReports),
		InvalidPayloads:       invalid,
		NoUsableReports:       result.NoUsableReports,
		NotificationDelivered: result.NotificationDelivered,
		ProcessedAt:           utils.Now(),
	}
	if err := o.publisher.PublishBatchProcessed(ctx, event); err != nil {
		o.log.Errorf("Failed to publish batch processed event for %s: %v", result.BatchID, err)
	}
}

// RunCycle pulls candidate emails and processes each one as an independent
// batch. A batch failure leaves the email unread for the next cycle.
func (o *batchOrchestrator) RunCycle(ctx context.Context) ([]*models.BatchResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "batchOrchestrator.RunCycle")
	defer span.Finish()
	tracing.SetDefaultPipelineSpanTags(ctx, span)

	emails, err := o.mailSource.FetchCandidateEmails(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to fetch candidate emails")
	}
	span.LogFields(tracingLog.Int("candidate_count", len(emails)))

	var results []*models.BatchResult
	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := o.ProcessBatch(ctx, email)
		if err != nil {
			o.log.Errorf("Batch failed for email %s: %v", email.ID, err)
			continue
		}
		results = append(results, result)

		if err := o.mailSource.MarkProcessed(ctx, email.ID); err != nil {
			o.log.Errorf("Failed to mark email %s processed: %v", email.ID, err)
		}
	}

	o.log.Infof("Cycle complete: %d of %d emails processed", len(results), len(emails))
	return results, nil
}
