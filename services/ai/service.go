package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/dmarcstack/dmarcstack/config"
	"github.com/dmarcstack/dmarcstack/dto"
	"github.com/dmarcstack/dmarcstack/interfaces"
	"github.com/dmarcstack/dmarcstack/internal/models"
	"github.com/dmarcstack/dmarcstack/internal/retry"
	"github.com/dmarcstack/dmarcstack/internal/tracing"
)

type openAIService struct {
	cfg    *config.OpenAIConfig
	client *http.Client
	policy retry.Policy
}

func NewOpenAIService(cfg *config.OpenAIConfig) interfaces.SummarizerService {
	policy := retry.DefaultPolicy(isRetryableOpenAIError)
	policy.MaxAttempts = cfg.MaxRetries
	return &openAIService{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
		policy: policy,
	}
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// httpStatusError keeps the status code available to the retry predicate.
type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("openai request failed with status code %d: %s", e.StatusCode, e.Body)
}

func isRetryableOpenAIError(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	// Treat transport-level failures as transient.
	return true
}

func (s *openAIService) AnalyzeReport(ctx context.Context, report *models.DmarcReport) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "openAIService.AnalyzeReport")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("reportId", report.Metadata.ReportID)

	reportJSON, err := json.Marshal(report)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(err, "failed to marshal report")
	}

	return s.complete(ctx, analyzeReportPrompt+string(reportJSON))
}

func (s *openAIService) SummarizeAnalyses(ctx context.Context, analyses []string, email dto.EmailMetadata) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "openAIService.SummarizeAnalyses")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("analysisCount", len(analyses))

	var sb strings.Builder
	sb.WriteString(summarizeAnalysesPrompt)
	fmt.Fprintf(&sb, "Source email: subject=%q sender=%q\n\n", email.Subject, email.Sender)
	for i, analysis := range analyses {
		fmt.Fprintf(&sb, "--- Analysis %d ---\n%s\n", i+1, analysis)
	}

	return s.complete(ctx, sb.String())
}

func (s *openAIService) complete(ctx context.Context, prompt string) (string, error) {
	var result string
	err := s.policy.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = s.chatCompletion(ctx, prompt)
		return opErr
	})
	return result, err
}

func (s *openAIService) chatCompletion(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/chat/completions", bytes.NewBuffer(payload))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "unable to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal response")
	}
	if len(response.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	return response.Choices[0].Message.Content, nil
}
