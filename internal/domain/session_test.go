package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_SyncTime(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		timeRemaining    int
		totalElapsed     int
		sinceLastSync    time.Duration
		clientRemaining  int
		wantRemaining    int
		wantTotalElapsed int
	}{
		"client within tolerance wins": {
			timeRemaining:    300,
			sinceLastSync:    10 * time.Second,
			clientRemaining:  288, // server computes 290, drift 2
			wantRemaining:    288,
			wantTotalElapsed: 10,
		},
		"drift beyond tolerance hands authority to the server": {
			timeRemaining:    300,
			sinceLastSync:    10 * time.Second,
			clientRemaining:  250, // server computes 290, drift 40
			wantRemaining:    290,
			wantTotalElapsed: 10,
		},
		"drift exactly at tolerance still trusts the client": {
			timeRemaining:    300,
			sinceLastSync:    10 * time.Second,
			clientRemaining:  285, // drift exactly 5
			wantRemaining:    285,
			wantTotalElapsed: 10,
		},
		"server-side countdown never goes negative": {
			timeRemaining:    30,
			sinceLastSync:    2 * time.Minute,
			clientRemaining:  500, // drift huge, server wins with floor 0
			wantRemaining:    0,
			wantTotalElapsed: 120,
		},
		"negative client report floors at zero": {
			timeRemaining:    20,
			sinceLastSync:    18 * time.Second,
			clientRemaining:  -3, // drift 5, client wins, clamped
			wantRemaining:    0,
			wantTotalElapsed: 18,
		},
		"elapsed accumulates on top of previous total": {
			timeRemaining:    100,
			totalElapsed:     55,
			sinceLastSync:    7 * time.Second,
			clientRemaining:  93,
			wantRemaining:    93,
			wantTotalElapsed: 62,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s := &Session{
				TimeRemaining:    tc.timeRemaining,
				TotalTimeElapsed: tc.totalElapsed,
				LastSyncTime:     base,
			}

			now := base.Add(tc.sinceLastSync)
			s.SyncTime(now, tc.clientRemaining, 5)

			assert.Equal(t, tc.wantRemaining, s.TimeRemaining)
			assert.Equal(t, tc.wantTotalElapsed, s.TotalTimeElapsed)
			assert.Equal(t, now, s.LastSyncTime, "lastSyncTime must always advance")
		})
	}
}

func TestSession_Expired(t *testing.T) {
	deadline := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)

	s := &Session{Status: SessionActive, ExpiresAt: deadline}

	assert.False(t, s.Expired(deadline.Add(-time.Minute)))
	assert.False(t, s.Expired(deadline), "deadline itself is still inside")
	assert.True(t, s.Expired(deadline.Add(time.Second)))

	s.Status = SessionExpired
	assert.True(t, s.Expired(deadline.Add(-time.Hour)), "flipped status wins regardless of clock")
}

func TestSession_Progress(t *testing.T) {
	tests := map[string]struct {
		index, total int
		want         int
	}{
		"fresh session":   {0, 3, 0},
		"one of three":    {1, 3, 33},
		"two of three":    {2, 3, 67},
		"done":            {3, 3, 100},
		"no questions":    {0, 0, 0},
		"one of six":      {1, 6, 17},
		"half of unequal": {3, 7, 43},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s := &Session{CurrentQuestionIndex: tc.index, TotalQuestions: tc.total}
			assert.Equal(t, tc.want, s.Progress())
		})
	}
}

func TestSessionStatus_Terminal(t *testing.T) {
	assert.False(t, SessionActive.Terminal())
	assert.False(t, SessionPaused.Terminal())
	assert.True(t, SessionCompleted.Terminal())
	assert.True(t, SessionExpired.Terminal())
}
