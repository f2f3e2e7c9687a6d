package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"probe", fmt.Errorf("%w: HEAD 503", ErrSizeProbeFailed), true},
		{"transport", fmt.Errorf("%w: connection reset", ErrTransport), true},
		{"mismatch", ErrSizeMismatch, true},
		{"oversized", ErrLocalOversized, true},
		{"unusable", fmt.Errorf("%w: permission denied", ErrOutputUnusable), false},
		{"unusable wins over transport", fmt.Errorf("%w: %w", ErrTransport, ErrOutputUnusable), false},
		{"environment", ErrEnvironment, false},
		{"unknown", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestNotDownloadedKeepsManifestOrder(t *testing.T) {
	item := func(name string, idx int) MatchedItem {
		return MatchedItem{AvailableItem: AvailableItem{Name: name}, Index: idx}
	}

	outcomes := []Outcome{
		{Item: item("C", 2), Status: StatusFailed},
		{Item: item("B", 1), Status: StatusCompleted},
		{Item: item("A", 0), Status: StatusFailed},
		{Item: item("D", 3), Status: StatusCancelled},
	}

	failed := NotDownloaded(outcomes)
	require.Len(t, failed, 2)
	assert.Equal(t, "A", failed[0].Name)
	assert.Equal(t, "C", failed[1].Name)

	counts := CountByStatus(outcomes)
	assert.Equal(t, 2, counts[StatusFailed])
	assert.Equal(t, 1, counts[StatusCompleted])
	assert.Equal(t, 1, counts[StatusCancelled])
}

func TestOutcomeSucceeded(t *testing.T) {
	assert.True(t, Outcome{Status: StatusCompleted}.Succeeded())
	assert.True(t, Outcome{Status: StatusSkipped}.Succeeded())
	assert.False(t, Outcome{Status: StatusFailed}.Succeeded())
	assert.False(t, Outcome{Status: StatusCancelled}.Succeeded())
	assert.Equal(t, "", Outcome{}.ErrorString())
	assert.Equal(t, "boom", Outcome{Err: errors.New("boom")}.ErrorString())
}
