package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarcstack/dmarcstack/config"
	"github.com/dmarcstack/dmarcstack/dto"
	"github.com/dmarcstack/dmarcstack/internal/models"
)

func testConfig(baseURL string) *config.OpenAIConfig {
	return &config.OpenAIConfig{
		APIKey:     "test-key",
		Model:      "gpt-4.1",
		BaseURL:    baseURL,
		MaxRetries: 1,
		TimeoutSec: 5,
	}
}

func completionServer(t *testing.T, content string, capture *chatCompletionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		resp := chatCompletionResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message chatMessage `json:"message"`
		}{Message: chatMessage{Role: "assistant", Content: content}})
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestAnalyzeReport(t *testing.T) {
	var captured chatCompletionRequest
	srv := completionServer(t, `{"summary":{}}`, &captured)
	defer srv.Close()

	s := NewOpenAIService(testConfig(srv.URL))
	report := &models.DmarcReport{
		Metadata:        models.ReportMetadata{OrgName: "acme", ReportID: "r1"},
		PolicyPublished: models.PolicyPublished{Domain: "example.com"},
	}

	analysis, err := s.AnalyzeReport(context.Background(), report)

	require.NoError(t, err)
	assert.Equal(t, `{"summary":{}}`, analysis)
	assert.Equal(t, "gpt-4.1", captured.Model)
	require.Len(t, captured.Messages, 1)
	// The report travels inside the prompt as JSON.
	assert.Contains(t, captured.Messages[0].Content, `"reportId":"r1"`)
	assert.Contains(t, captured.Messages[0].Content, "DMARC aggregate report")
}

func TestSummarizeAnalyses(t *testing.T) {
	var captured chatCompletionRequest
	srv := completionServer(t, "digest", &captured)
	defer srv.Close()

	s := NewOpenAIService(testConfig(srv.URL))
	email := dto.EmailMetadata{Subject: "weekly", Sender: "noreply@example.com"}

	summary, err := s.SummarizeAnalyses(context.Background(), []string{"a1", "a2"}, email)

	require.NoError(t, err)
	assert.Equal(t, "digest", summary)
	assert.Contains(t, captured.Messages[0].Content, "Analysis 1")
	assert.Contains(t, captured.Messages[0].Content, "Analysis 2")
	assert.Contains(t, captured.Messages[0].Content, "noreply@example.com")
}

func TestAnalyzeReport_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewOpenAIService(testConfig(srv.URL))

	_, err := s.AnalyzeReport(context.Background(), &models.DmarcReport{})

	assert.Error(t, err)
}

func TestAnalyzeReport_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatCompletionResponse{})
	}))
	defer srv.Close()

	s := NewOpenAIService(testConfig(srv.URL))

	_, err := s.AnalyzeReport(context.Background(), &models.DmarcReport{})

	assert.ErrorContains(t, err, "no choices")
}

func TestIsRetryableOpenAIError(t *testing.T) {
	assert.True(t, isRetryableOpenAIError(&httpStatusError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, isRetryableOpenAIError(&httpStatusError{StatusCode: http.StatusBadGateway}))
	assert.False(t, isRetryableOpenAIError(&httpStatusError{StatusCode: http.StatusUnauthorized}))
	assert.False(t, isRetryableOpenAIError(&httpStatusError{StatusCode: http.StatusBadRequest}))
	assert.True(t, isRetryableOpenAIError(context.DeadlineExceeded))
}
