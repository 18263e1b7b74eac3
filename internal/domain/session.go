package domain

import (
	"math"
	"time"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionExpired   SessionStatus = "expired"
)

// Terminal reports whether the session accepts no further transitions.
// paused<->active is the only reversible pair.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionExpired
}

// SessionResponse is an unevaluated answer recorded while the session runs.
// Evaluation happens once, at finalization, against the owning interview.
type SessionResponse struct {
	QuestionID string    `json:"questionId"`
	Answer     string    `json:"answer"`
	TimeTaken  int       `json:"timeTaken"`
	SubmitTime time.Time `json:"submittedAt"`
}

// Session is one timed attempt at working through an interview's question
// list. All timing is computed from the stored timestamps at the moment of
// the next request; there is no in-process timer per session.
type Session struct {
	SessionID   string `json:"sessionId"`
	UserID      string `json:"userId"`
	InterviewID string `json:"interviewId"`

	CurrentQuestionIndex int `json:"currentQuestionIndex"`
	TotalQuestions       int `json:"totalQuestions"`

	// TimeRemaining counts down for the current question only.
	// TotalTimeElapsed accumulates server-measured elapsed seconds across
	// the whole session.
	TimeRemaining    int `json:"timeRemaining"`
	TotalTimeElapsed int `json:"totalTimeElapsed"`

	StartTime    time.Time `json:"startTime"`
	LastSyncTime time.Time `json:"lastSyncTime"`

	Responses []SessionResponse `json:"responses"`

	Status SessionStatus `json:"status"`

	// ExpiresAt is the absolute session deadline, fixed at creation.
	// Pause does not move it.
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired is the lazy expiry predicate: the deadline has passed or the
// session was already flipped. Checked before every mutating or
// state-revealing operation; nothing resurrects an expired session.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt) || s.Status == SessionExpired
}

// Progress returns the percentage of questions answered so far, rounded.
func (s *Session) Progress() int {
	if s.TotalQuestions == 0 {
		return 0
	}
	return int(math.Round(float64(s.CurrentQuestionIndex) / float64(s.TotalQuestions) * 100))
}

// SyncTime reconciles the client-reported countdown with server wall time.
// The client is the source of truth while its report stays within
// driftTolerance of the server-computed value; beyond that the server-side
// countdown wins. TimeRemaining never goes negative and lastSyncTime always
// advances to now.
func (s *Session) SyncTime(now time.Time, clientTimeRemaining, driftTolerance int) {
	serverElapsed := int(now.Sub(s.LastSyncTime).Seconds())
	if serverElapsed < 0 {
		serverElapsed = 0
	}

	drift := s.TimeRemaining - serverElapsed - clientTimeRemaining
	if drift < 0 {
		drift = -drift
	}

	if drift > driftTolerance {
		s.TimeRemaining = max(0, s.TimeRemaining-serverElapsed)
	} else {
		s.TimeRemaining = max(0, clientTimeRemaining)
	}

	s.LastSyncTime = now
	s.TotalTimeElapsed += serverElapsed
}
