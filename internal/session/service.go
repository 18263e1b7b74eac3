package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/errors"
	"github.com/prepwise/prepwise/internal/event"
)

const (
	// DefaultSessionTTL is the absolute ceiling on a session's lifetime,
	// fixed at creation and unaffected by pause.
	DefaultSessionTTL = 3 * time.Hour

	// DefaultDriftTolerance is the maximum client/server disagreement, in
	// seconds, before the server-side countdown wins a timer sync.
	DefaultDriftTolerance = 5

	// DefaultQuestionSeconds applies when a question carries no per-question
	// limit.
	DefaultQuestionSeconds = 1200
)

// Store persists mock sessions. Create must reject a second active session
// for the same user with *ActiveSessionError carrying the holder's id.
type Store interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID, userID string) (*domain.Session, error)
	Update(ctx context.Context, s *domain.Session) error
}

// InterviewStore is the slice of the interview service the engine needs:
// owner-scoped reads with questions populated, and the pending->in-progress
// advance when a session first starts.
type InterviewStore interface {
	Get(ctx context.Context, interviewID, userID string) (*domain.Interview, error)
	MarkStarted(ctx context.Context, interviewID string, at time.Time) error
}

// Finalizer runs the one-time scoring protocol that copies session responses
// into the owning interview.
type Finalizer interface {
	Finalize(ctx context.Context, iv *domain.Interview, responses []domain.SessionResponse) error
}

// ActiveSessionError signals that the user already holds an active session.
// The id lets the client resume it instead of silently duplicating.
type ActiveSessionError struct {
	SessionID string
}

func (e *ActiveSessionError) Error() string {
	return fmt.Sprintf("active mock session already exists: session=%s", e.SessionID)
}

type Config struct {
	Store      Store
	Interviews InterviewStore
	Finalizer  Finalizer
	EventBus   *event.Bus

	// Policy knobs; zero values fall back to the package defaults.
	SessionTTL      time.Duration
	DriftTolerance  int
	QuestionSeconds int

	NowFunc func() time.Time
}

// Service owns the mock session state machine: start, time sync, answer
// submission, pause/resume, end, and lazy expiry detection.
type Service struct {
	store      Store
	interviews InterviewStore
	finalizer  Finalizer
	eb         *event.Bus

	ttl             time.Duration
	driftTolerance  int
	questionSeconds int

	now func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		store:           c.Store,
		interviews:      c.Interviews,
		finalizer:       c.Finalizer,
		eb:              c.EventBus,
		ttl:             c.SessionTTL,
		driftTolerance:  c.DriftTolerance,
		questionSeconds: c.QuestionSeconds,
		now:             c.NowFunc,
	}

	if s.ttl <= 0 {
		s.ttl = DefaultSessionTTL
	}
	if s.driftTolerance <= 0 {
		s.driftTolerance = DefaultDriftTolerance
	}
	if s.questionSeconds <= 0 {
		s.questionSeconds = DefaultQuestionSeconds
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// State is the session summary returned to the client on every call.
type State struct {
	SessionID            string               `json:"id"`
	InterviewID          string               `json:"interviewId"`
	CurrentQuestionIndex int                  `json:"currentQuestionIndex"`
	TotalQuestions       int                  `json:"totalQuestions"`
	TimeRemaining        int                  `json:"timeRemaining"`
	TotalTimeElapsed     int                  `json:"totalTimeElapsed"`
	Status               domain.SessionStatus `json:"status"`
	ProgressPercentage   int                  `json:"progressPercentage"`
	ExpiresAt            time.Time            `json:"expiresAt"`
}

func stateOf(s *domain.Session) State {
	return State{
		SessionID:            s.SessionID,
		InterviewID:          s.InterviewID,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		TotalQuestions:       s.TotalQuestions,
		TimeRemaining:        s.TimeRemaining,
		TotalTimeElapsed:     s.TotalTimeElapsed,
		Status:               s.Status,
		ProgressPercentage:   s.Progress(),
		ExpiresAt:            s.ExpiresAt,
	}
}

type StartRequest struct {
	InterviewID string
	UserID      string
}

type StartResponse struct {
	Session         State
	CurrentQuestion domain.PublicQuestion
}

// Start creates a session bound to the interview's ordered question list.
// The caller must own the interview, the interview needs at least one
// question, and the user may hold no other active session.
func (s *Service) Start(ctx context.Context, req StartRequest) (*StartResponse, error) {
	iv, err := s.interviews.Get(ctx, req.InterviewID, req.UserID)
	if err != nil {
		return nil, err
	}

	if len(iv.Questions) == 0 {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("interview has no questions: interview=%s", req.InterviewID))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	now := s.now()
	first := iv.Questions[0]

	ss := &domain.Session{
		SessionID:            id.String(),
		UserID:               req.UserID,
		InterviewID:          req.InterviewID,
		CurrentQuestionIndex: 0,
		TotalQuestions:       len(iv.Questions),
		TimeRemaining:        s.questionLimit(first),
		TotalTimeElapsed:     0,
		StartTime:            now,
		LastSyncTime:         now,
		Responses:            []domain.SessionResponse{},
		Status:               domain.SessionActive,
		ExpiresAt:            now.Add(s.ttl),
	}

	if err := s.store.Create(ctx, ss); err != nil {
		return nil, err
	}

	if iv.Status == domain.InterviewPending {
		if err := s.interviews.MarkStarted(ctx, iv.InterviewID, now); err != nil {
			return nil, fmt.Errorf("mark interview started: %w", err)
		}
	}

	s.eb.Publish(ctx, domain.EventSessionStarted{Session: *ss})

	return &StartResponse{
		Session:         stateOf(ss),
		CurrentQuestion: first.Public(),
	}, nil
}

type GetRequest struct {
	SessionID string
	UserID    string
}

type GetResponse struct {
	Session State
	// CurrentQuestion is nil once the index is past the end.
	CurrentQuestion *domain.PublicQuestion
}

// Get returns the current session state and the question at the current
// index. Expiry is evaluated first; an expired session is persisted as such
// and the call fails, so the caller never observes a stale active session.
func (s *Service) Get(ctx context.Context, req GetRequest) (*GetResponse, error) {
	ss, err := s.load(ctx, req.SessionID, req.UserID)
	if err != nil {
		return nil, err
	}

	iv, err := s.interviews.Get(ctx, ss.InterviewID, req.UserID)
	if err != nil {
		return nil, err
	}

	resp := &GetResponse{Session: stateOf(ss)}
	if ss.CurrentQuestionIndex < len(iv.Questions) {
		q := iv.Questions[ss.CurrentQuestionIndex].Public()
		resp.CurrentQuestion = &q
	}

	return resp, nil
}

type SyncTimerRequest struct {
	SessionID           string
	UserID              string
	ClientTimeRemaining int
}

type SyncTimerResponse struct {
	ServerTimeRemaining int `json:"serverTimeRemaining"`
	TotalTimeElapsed    int `json:"totalTimeElapsed"`
}

// SyncTimer reconciles the client's countdown with server wall time. The
// client wins while its report stays within the drift tolerance; beyond that
// the server-computed remaining time is authoritative.
func (s *Service) SyncTimer(ctx context.Context, req SyncTimerRequest) (*SyncTimerResponse, error) {
	ss, err := s.load(ctx, req.SessionID, req.UserID)
	if err != nil {
		return nil, err
	}

	ss.SyncTime(s.now(), req.ClientTimeRemaining, s.driftTolerance)

	if err := s.store.Update(ctx, ss); err != nil {
		return nil, err
	}

	return &SyncTimerResponse{
		ServerTimeRemaining: ss.TimeRemaining,
		TotalTimeElapsed:    ss.TotalTimeElapsed,
	}, nil
}

type SubmitAnswerRequest struct {
	SessionID string
	UserID    string
	Answer    string
	TimeTaken int
}

type SubmitAnswerResponse struct {
	Session State
	// NextQuestion is set while questions remain; Completed marks the final
	// submission, after which the finalized interview holds the results.
	NextQuestion *domain.PublicQuestion
	Completed    bool
	InterviewID  string
}

// SubmitAnswer records the answer for the current question and either
// advances the index, re-arming the per-question timer, or finalizes the
// session when the last question was answered.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	ss, err := s.load(ctx, req.SessionID, req.UserID)
	if err != nil {
		return nil, err
	}

	if ss.Status != domain.SessionActive {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("session is not active: session=%s status=%s", ss.SessionID, ss.Status))
	}

	iv, err := s.interviews.Get(ctx, ss.InterviewID, req.UserID)
	if err != nil {
		return nil, err
	}

	if ss.CurrentQuestionIndex >= len(iv.Questions) {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("no current question: session=%s index=%d", ss.SessionID, ss.CurrentQuestionIndex))
	}

	now := s.now()
	current := iv.Questions[ss.CurrentQuestionIndex]

	ss.Responses = append(ss.Responses, domain.SessionResponse{
		QuestionID: current.QuestionID,
		Answer:     req.Answer,
		TimeTaken:  req.TimeTaken,
		SubmitTime: now,
	})

	if ss.CurrentQuestionIndex+1 < ss.TotalQuestions {
		ss.CurrentQuestionIndex++
		next := iv.Questions[ss.CurrentQuestionIndex]
		ss.TimeRemaining = s.questionLimit(next)
		ss.LastSyncTime = now

		if err := s.store.Update(ctx, ss); err != nil {
			return nil, err
		}

		nq := next.Public()
		return &SubmitAnswerResponse{
			Session:      stateOf(ss),
			NextQuestion: &nq,
			InterviewID:  ss.InterviewID,
		}, nil
	}

	// Last answer: the session completes and its responses are handed off
	// for evaluation exactly once. The index still advances so one response
	// per visited question keeps holding and progress reads 100.
	ss.CurrentQuestionIndex++
	ss.Status = domain.SessionCompleted
	if err := s.store.Update(ctx, ss); err != nil {
		return nil, err
	}

	if err := s.finalizer.Finalize(ctx, iv, ss.Responses); err != nil {
		return nil, fmt.Errorf("finalize session %s: %w", ss.SessionID, err)
	}

	s.eb.Publish(ctx, domain.EventSessionCompleted{Session: *ss})

	return &SubmitAnswerResponse{
		Session:     stateOf(ss),
		Completed:   true,
		InterviewID: ss.InterviewID,
	}, nil
}

// Pause stops the client-side countdown perception. The absolute deadline
// keeps ticking.
func (s *Service) Pause(ctx context.Context, sessionID, userID string) (*State, error) {
	ss, err := s.load(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	if ss.Status != domain.SessionActive {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("session is not active: session=%s status=%s", sessionID, ss.Status))
	}

	ss.Status = domain.SessionPaused
	if err := s.store.Update(ctx, ss); err != nil {
		return nil, err
	}

	st := stateOf(ss)
	return &st, nil
}

// Resume re-activates a paused session. A session can expire while paused;
// load re-checks that before anything else.
func (s *Service) Resume(ctx context.Context, sessionID, userID string) (*State, error) {
	ss, err := s.load(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	if ss.Status != domain.SessionPaused {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("session is not paused: session=%s status=%s", sessionID, ss.Status))
	}

	ss.Status = domain.SessionActive
	ss.LastSyncTime = s.now()
	if err := s.store.Update(ctx, ss); err != nil {
		return nil, err
	}

	st := stateOf(ss)
	return &st, nil
}

// End is user-initiated abandonment: an unconditional transition to expired
// from any status, without the scoring protocol.
func (s *Service) End(ctx context.Context, sessionID, userID string) error {
	ss, err := s.store.Get(ctx, sessionID, userID)
	if err != nil {
		return err
	}

	ss.Status = domain.SessionExpired
	if err := s.store.Update(ctx, ss); err != nil {
		return err
	}

	s.eb.Publish(ctx, domain.EventSessionExpired{Session: *ss})
	return nil
}

// load fetches an owned session and applies the lazy expiry check. The
// expired flip is persisted before the call fails so the terminal state is
// observable on the very access that discovered it.
func (s *Service) load(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	ss, err := s.store.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	if ss.Expired(s.now()) {
		if ss.Status != domain.SessionExpired {
			ss.Status = domain.SessionExpired
			if err := s.store.Update(ctx, ss); err != nil {
				return nil, err
			}
			s.eb.Publish(ctx, domain.EventSessionExpired{Session: *ss})
		}
		return nil, errors.New(errors.CodeExpired,
			errors.WithMessagef("mock session has expired: session=%s", sessionID))
	}

	return ss, nil
}

func (s *Service) questionLimit(q domain.Question) int {
	if q.TimeLimitSeconds > 0 {
		return q.TimeLimitSeconds
	}
	return s.questionSeconds
}
