package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/customeros/mailsherpa/mailvalidate"
	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/dmarcstack/dmarcstack/config"
	"github.com/dmarcstack/dmarcstack/dto"
	"github.com/dmarcstack/dmarcstack/interfaces"
	ierr "github.com/dmarcstack/dmarcstack/internal/errors"
	"github.com/dmarcstack/dmarcstack/internal/logger"
	"github.com/dmarcstack/dmarcstack/internal/tracing"
)

const fetchBatchSize = 50

type IMAPService struct {
	cfg    *config.IMAPConfig
	log    logger.Logger
	client *client.Client
	mu     sync.Mutex
	// uidByEmailID maps the email IDs handed to the orchestrator back to
	// IMAP UIDs so MarkProcessed can flag the right message.
	uidByEmailID map[string]uint32
}

func NewIMAPService(cfg *config.IMAPConfig, log logger.Logger) interfaces.MailSource {
	return &IMAPService{
		cfg:          cfg,
		log:          log,
		uidByEmailID: make(map[string]uint32),
	}
}

func (s *IMAPService) Start(ctx context.Context) error {
	span, ctx := tracing.StartTracerSpan(ctx, "IMAPService.Start")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", s.cfg.Server)
	span.SetTag("folder", s.cfg.Folder)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(ctx)
}

func (s *IMAPService) connectLocked(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.Server, s.cfg.Port)
	c, err := client.DialTLS(addr, &tls.Config{ServerName: s.cfg.Server})
	if err != nil {
		return errors.Wrapf(ierr.ErrMailSourceUnavailable, "dial %s: %v", addr, err)
	}

	if err := c.Login(s.cfg.Username, s.cfg.Password); err != nil {
		_ = c.Logout()
		return errors.Wrapf(ierr.ErrMailSourceUnavailable, "login as %s: %v", s.cfg.Username, err)
	}

	s.client = c
	s.log.Infof("Connected to IMAP server %s, folder %s", addr, s.cfg.Folder)
	return nil
}

func (s *IMAPService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	s.client.Timeout = 5 * time.Second
	err := s.client.Logout()
	s.client = nil
	return err
}

// FetchCandidateEmails returns unread messages from the configured folder,
// each with its attachments fully downloaded.
func (s *IMAPService) FetchCandidateEmails(ctx context.Context) ([]dto.InboundEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.FetchCandidateEmails")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConnectedLocked(ctx); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if _, err := s.client.Select(s.cfg.Folder, false); err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(ierr.ErrMailSourceUnavailable, "select %s: %v", s.cfg.Folder, err)
	}

	criteria := goimap.NewSearchCriteria()
	criteria.WithoutFlags = []string{goimap.SeenFlag}
	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(ierr.ErrMailSourceUnavailable, "search unseen: %v", err)
	}
	span.LogFields(tracingLog.Int("unseen_count", len(uids)))

	if len(uids) == 0 {
		return nil, nil
	}
	if len(uids) > fetchBatchSize {
		uids = uids[:fetchBatchSize]
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uids...)

	section := &goimap.BodySectionName{}
	items := []goimap.FetchItem{
		goimap.FetchEnvelope,
		goimap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *goimap.Message, fetchBatchSize)
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var emails []dto.InboundEmail
	for msg := range messages {
		email, parseErr := s.buildInboundEmail(msg, section)
		if parseErr != nil {
			s.log.Warnf("Skipping unparseable message uid=%d: %v", msg.Uid, parseErr)
			continue
		}
		s.uidByEmailID[email.ID] = msg.Uid
		emails = append(emails, email)
	}

	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(ierr.ErrMailSourceUnavailable, "fetch: %v", err)
	}

	return emails, nil
}

// MarkProcessed flags the message as seen so the next cycle skips it.
func (s *IMAPService) MarkProcessed(ctx context.Context, emailID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.MarkProcessed")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("email_id", emailID)

	s.mu.Lock()
	defer s.mu.Unlock()

	uid, ok := s.uidByEmailID[emailID]
	if !ok {
		return errors.Errorf("unknown email id %s", emailID)
	}

	if err := s.ensureConnectedLocked(ctx); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uid)
	item := goimap.FormatFlagsOp(goimap.AddFlags, true)
	if err := s.client.UidStore(seqSet, item, []interface{}{goimap.SeenFlag}, nil); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to flag uid %d seen", uid)
	}

	delete(s.uidByEmailID, emailID)
	return nil
}

func (s *IMAPService) ensureConnectedLocked(ctx context.Context) error {
	if s.client != nil {
		if err := s.client.Noop(); err == nil {
			return nil
		}
		_ = s.client.Logout()
		s.client = nil
	}
	return s.connectLocked(ctx)
}

func (s *IMAPService) senderAddress(envelope *goimap.Envelope) string {
	if envelope == nil || len(envelope.From) == 0 {
		return ""
	}
	addr := envelope.From[0].Address()
	validation := mailvalidate.ValidateEmailSyntax(addr)
	if validation.IsValid {
		return validation.CleanEmail
	}
	return addr
}

func (s *IMAPService) buildInboundEmail(msg *goimap.Message, section *goimap.BodySectionName) (dto.InboundEmail, error) {
	body := msg.GetBody(section)
	if body == nil {
		return dto.InboundEmail{}, errors.New("message has no body section")
	}

	email := dto.InboundEmail{
		ID:     messageID(msg),
		Sender: s.senderAddress(msg.Envelope),
	}
	if msg.Envelope != nil {
		email.Subject = msg.Envelope.Subject
		email.Date = msg.Envelope.Date
	}

	attachments, err := extractAttachments(body)
	if err != nil {
		return dto.InboundEmail{}, err
	}
	email.Attachments = attachments

	return email, nil
}

func messageID(msg *goimap.Message) string {
	if msg.Envelope != nil && msg.Envelope.MessageId != "" {
		return strings.Trim(msg.Envelope.MessageId, "<>")
	}
	return fmt.Sprintf("uid-%d", msg.Uid)
}
