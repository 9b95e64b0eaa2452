package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Barack Obama", []string{"barack", "obama"}},
		{"  The   quick-brown fox. ", []string{"the", "quick", "brown", "fox"}},
		{"Obama's 2008 campaign", []string{"obama", "s", "2008", "campaign"}},
		{"北京 市", []string{"北京", "市"}},
		{"", nil},
		{"... !!", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Analyze(tt.input)
			if tt.expected == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}
