package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input string
		want  Category
	}{
		{"People", CategoryPeople},
		{"projects", CategoryProjects},
		{"IDEAS", CategoryIdeas},
		{" admin ", CategoryAdmin},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseCategoryRejectsUnknown(t *testing.T) {
	for _, input := range []string{"", "Chores", "people#123"} {
		_, err := ParseCategory(input)
		assert.ErrorIs(t, err, ErrInvalidClassification, input)
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		hint string
		want Status
	}{
		{"start", StatusInProgress},
		{"started", StatusInProgress},
		{"done", StatusCompleted},
		{"complete", StatusCompleted},
		{"DONE", StatusCompleted},
		{"waiting", StatusWaiting},
		{"in_progress", StatusInProgress},
		{"", StatusOpen},
		{"whatever", StatusOpen},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveStatus(tt.hint), "hint %q", tt.hint)
	}
}

func TestClassificationConfidenceClamping(t *testing.T) {
	tests := []struct {
		confidence int
		want       float64
	}{
		{92, 0.92},
		{-5, 0.0},
		{150, 1.0},
		{0, 0.0},
		{100, 1.0},
	}
	for _, tt := range tests {
		cls := &Classification{Category: "Admin", Confidence: tt.confidence}
		assert.InDelta(t, tt.want, cls.NormalizedConfidence(), 1e-9)
	}
}

func TestClassificationValidate(t *testing.T) {
	cls := &Classification{Category: "projects", Name: "Website redesign", Confidence: 92}
	category, err := cls.Validate()
	require.NoError(t, err)
	assert.Equal(t, CategoryProjects, category)

	bad := &Classification{Category: "Groceries"}
	_, err = bad.Validate()
	assert.ErrorIs(t, err, ErrInvalidClassification)

	var nilCls *Classification
	_, err = nilCls.Validate()
	assert.ErrorIs(t, err, ErrInvalidClassification)
}

func TestIdentityKeyRoundTrip(t *testing.T) {
	key := BuildIdentityKey(CategoryProjects, "ab12cd34")
	assert.Equal(t, "projects#ab12cd34", key)

	category, itemID, err := ParseIdentityKey(key)
	require.NoError(t, err)
	assert.Equal(t, CategoryProjects, category)
	assert.Equal(t, "ab12cd34", itemID)
}

func TestParseIdentityKeyRejectsMalformed(t *testing.T) {
	for _, key := range []string{"", "projects", "#abc", "projects#", "chores#abc"} {
		_, _, err := ParseIdentityKey(key)
		assert.Error(t, err, key)
	}
}
