package slack

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableSlackError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"rate limited", &slackAPIError{Code: "rate_limited"}, true},
		{"timeout", &slackAPIError{Code: "timeout"}, true},
		{"service unavailable", &slackAPIError{Code: "service_unavailable"}, true},
		{"invalid auth", &slackAPIError{Code: "invalid_auth"}, false},
		{"channel not found", &slackAPIError{Code: "channel_not_found"}, false},
		{"wrapped api error", errors.Wrap(&slackAPIError{Code: "rate_limited"}, "post"), true},
		{"network error", errors.New("connection reset by peer"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryableSlackError(tt.err))
		})
	}
}

func TestSlackAPIError_Error(t *testing.T) {
	err := &slackAPIError{Code: "rate_limited"}
	assert.Equal(t, "slack api error: rate_limited", err.Error())
}
