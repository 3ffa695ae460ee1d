package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/dmarcstack/dmarcstack/config"
	"github.com/dmarcstack/dmarcstack/interfaces"
	"github.com/dmarcstack/dmarcstack/internal/retry"
	"github.com/dmarcstack/dmarcstack/internal/tracing"
)

const postMessageURL = "https://slack.com/api/chat.postMessage"

type slackService struct {
	cfg    *config.SlackConfig
	client *http.Client
	policy retry.Policy
}

func NewSlackService(cfg *config.SlackConfig) interfaces.NotifierService {
	policy := retry.DefaultPolicy(IsRetryableSlackError)
	policy.MaxAttempts = cfg.MaxRetries
	return &slackService{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		policy: policy,
	}
}

type postMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// slackAPIError carries Slack's machine-readable error code so the retry
// predicate can classify it.
type slackAPIError struct {
	Code string
}

func (e *slackAPIError) Error() string {
	return "slack api error: " + e.Code
}

// IsRetryableSlackError treats rate limiting and service-side flakiness as
// transient. Auth and channel errors fail immediately.
func IsRetryableSlackError(err error) bool {
	var apiErr *slackAPIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "rate_limited", "timeout", "service_unavailable":
			return true
		}
		return false
	}
	// Network-level failures (connection reset, client timeout) are transient.
	return true
}

func (s *slackService) Notify(ctx context.Context, channelRef string, message string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "slackService.Notify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("channel", channelRef)

	if channelRef == "" {
		channelRef = s.cfg.DmarcChannelID
	}

	return s.policy.Do(ctx, func(ctx context.Context) error {
		return s.postMessage(ctx, channelRef, message)
	})
}

func (s *slackService) postMessage(ctx context.Context, channel, text string) error {
	payload, err := json.Marshal(postMessageRequest{Channel: channel, Text: text})
	if err != nil {
		return errors.Wrap(err, "failed to marshal slack payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postMessageURL, bytes.NewBuffer(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create slack request")
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.BotToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "slack request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "unable to read slack response body")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &slackAPIError{Code: "rate_limited"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("slack request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	var response postMessageResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return errors.Wrap(err, "failed to unmarshal slack response")
	}
	if !response.OK {
		return &slackAPIError{Code: response.Error}
	}
	return nil
}
