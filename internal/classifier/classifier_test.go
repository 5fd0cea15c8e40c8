package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/second-brain/internal/models"
)

func TestKeywordClassifierBuckets(t *testing.T) {
	tests := []struct {
		text string
		want models.Category
	}{
		{"call mom about the birthday", models.CategoryPeople},
		{"fix the deployment pipeline for the project", models.CategoryProjects},
		{"what if notes could link themselves", models.CategoryIdeas},
		{"pay the electricity bill", models.CategoryAdmin},
	}

	clf := NewKeywordClassifier()
	for _, tt := range tests {
		cls, err := clf.Classify(context.Background(), tt.text)
		require.NoError(t, err)
		assert.Equal(t, string(tt.want), cls.Category, tt.text)
		assert.Equal(t, 65, cls.Confidence, tt.text)

		_, err = cls.Validate()
		assert.NoError(t, err)
	}
}

func TestKeywordClassifierUnmatchedTextStaysLowConfidence(t *testing.T) {
	clf := NewKeywordClassifier()
	cls, err := clf.Classify(context.Background(), "zzz qqq")
	require.NoError(t, err)
	assert.Equal(t, 40, cls.Confidence)
}

func TestShortName(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"call mom", "call mom"},
		{"first line\nsecond line", "first line"},
		{"  padded   whitespace  ", "padded whitespace"},
		{"one two three four five six seven eight nine ten", "one two three four five six seven eight"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shortName(tt.text), tt.text)
	}
}
