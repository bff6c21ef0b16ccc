package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClosest(t *testing.T) {
	quarters := []string{"2024-Q1", "2024-Q2", "2025-Q1"}

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"2024-q2", "2024-Q2", true},
		{"2024-Q3", "2024-Q1", true},
		{"2025Q1", "2025-Q1", true},
		{"something else", "", false},
	}
	for _, tt := range tests {
		got, ok := Closest(tt.in, quarters, 2)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, ok := Closest("x", nil, 5)
	assert.False(t, ok)
}

func TestSuggestCategory(t *testing.T) {
	got, ok := SuggestCategory("bitcoinn")
	assert.True(t, ok)
	assert.Equal(t, Bitcoin, got)

	got, ok = SuggestCategory("Pension")
	assert.True(t, ok)
	assert.Equal(t, Pension, got)

	_, ok = SuggestCategory("collectible watches")
	assert.False(t, ok)
}
