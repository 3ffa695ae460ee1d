package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain subject", "Report domain: example.com", "Report domain: example.com"},
		{"re prefix", "Re: Report domain: example.com", "Report domain: example.com"},
		{"fwd prefix", "Fwd: Report domain: example.com", "Report domain: example.com"},
		{"stacked prefixes", "RE: FWD: Report", "Report"},
		{"numbered reply", "Re[2]: Report", "Report"},
		{"whitespace trimmed", "  Report  ", "Report"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSubject(tt.input))
		})
	}
}

func TestExtractDomainFromEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare address", "noreply@google.com", "google.com"},
		{"display name form", "Google Reports <noreply-dmarc@Google.COM>", "google.com"},
		{"uppercase domain lowered", "a@EXAMPLE.COM", "example.com"},
		{"no at sign", "not-an-address", ""},
		{"trailing at", "broken@", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractDomainFromEmail(tt.input))
		})
	}
}
