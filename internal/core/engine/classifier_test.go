package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		rate float64
		want domain.Classification
	}{
		{rate: 1, want: domain.ClassificationStrong},
		{rate: 0.8, want: domain.ClassificationStrong},
		{rate: 0.7999, want: domain.ClassificationWeak},
		{rate: 0.6, want: domain.ClassificationWeak},
		{rate: 0.5999, want: domain.ClassificationBroken},
		{rate: 0, want: domain.ClassificationBroken},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.rate), "rate %v", tt.rate)
	}
}
