package interview

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/errors"
	"github.com/prepwise/prepwise/internal/event"
)

const (
	MinQuestionCount = 1
	MaxQuestionCount = 10

	// maxConcurrentEvaluations bounds collaborator fan-out during
	// finalization.
	maxConcurrentEvaluations = 4
)

var defaultCategories = []domain.Category{
	domain.CategoryDataStructures,
	domain.CategoryAlgorithms,
	domain.CategoryCoding,
}

var supportedLanguages = map[string]bool{
	"python":     true,
	"cpp":        true,
	"java":       true,
	"javascript": true,
}

// Store persists interviews together with their evaluated responses.
type Store interface {
	Insert(ctx context.Context, iv *domain.Interview) error
	Get(ctx context.Context, interviewID, userID string) (*domain.Interview, error)
	List(ctx context.Context, f ListFilter) ([]domain.Interview, int, error)
	SetQuestions(ctx context.Context, interviewID string, questionIDs []string) error
	MarkStarted(ctx context.Context, interviewID string, at time.Time) error
	SaveResult(ctx context.Context, iv *domain.Interview) error
	Delete(ctx context.Context, interviewID, userID string) error
	Stats(ctx context.Context, userID string) (domain.UserStats, error)
}

// QuestionBank is the shared, read-mostly question pool consulted before
// generating new questions.
type QuestionBank interface {
	FindMatching(ctx context.Context, category domain.Category, difficulty domain.Difficulty, language, topic string, limit int) ([]domain.Question, error)
	Insert(ctx context.Context, qs []domain.Question) error
}

// Evaluator is the external AI collaborator boundary: question generation,
// response scoring, and summary generation. All calls are fallible and
// possibly slow.
type Evaluator interface {
	GenerateQuestions(ctx context.Context, p GenerateQuestionsParams) ([]domain.Question, error)
	EvaluateResponse(ctx context.Context, p EvaluateParams) (domain.Evaluation, error)
	GenerateSessionSummary(ctx context.Context, iv *domain.Interview, responses []domain.InterviewResponse) (domain.PerformanceSummary, error)
}

type GenerateQuestionsParams struct {
	Category   domain.Category
	Difficulty domain.Difficulty
	Topic      string
	Count      int
	Language   string
}

type EvaluateParams struct {
	Question    string
	ModelAnswer string
	UserAnswer  string
	TimeTaken   int
	TimeLimit   int // minutes
}

type Config struct {
	Store     Store
	Questions QuestionBank
	Evaluator Evaluator
	EventBus  *event.Bus

	NowFunc func() time.Time
}

// Service owns interview lifecycle: generation, the direct-answer flow, the
// finalization/scoring protocol, and history/stats queries.
type Service struct {
	store     Store
	questions QuestionBank
	evaluator Evaluator
	eb        *event.Bus

	now func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		store:     c.Store,
		questions: c.Questions,
		evaluator: c.Evaluator,
		eb:        c.EventBus,
		now:       c.NowFunc,
	}

	if s.now == nil {
		s.now = time.Now
	}

	return s
}

type GenerateRequest struct {
	UserID        string
	Topic         string
	Difficulty    domain.Difficulty
	QuestionCount int
	Categories    []domain.Category
	Language      string
}

// Generate creates an interview and fills its question list using the hybrid
// approach: reuse bank questions matching category/difficulty/language/topic,
// generate the remainder through the collaborator. A generation failure
// deletes the partially-built interview rather than leaving it inconsistent.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*domain.Interview, error) {
	if err := validateGenerate(&req); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate interview ID: %w", err)
	}

	iv := &domain.Interview{
		InterviewID:   id.String(),
		UserID:        req.UserID,
		Topic:         req.Topic,
		Difficulty:    req.Difficulty,
		Language:      req.Language,
		QuestionCount: req.QuestionCount,
		Status:        domain.InterviewPending,
		CreateTime:    s.now(),
	}

	if err := s.store.Insert(ctx, iv); err != nil {
		return nil, err
	}

	questions, err := s.collectQuestions(ctx, req)
	if err != nil {
		if delErr := s.store.Delete(ctx, iv.InterviewID, iv.UserID); delErr != nil {
			slog.ErrorContext(ctx, "interview: delete after failed generation",
				"interview", iv.InterviewID, "error", delErr)
		}
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("question generation failed: %v", err),
			errors.WithCause(err))
	}

	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.QuestionID)
	}

	if err := s.store.SetQuestions(ctx, iv.InterviewID, ids); err != nil {
		return nil, err
	}

	iv.QuestionIDs = ids
	iv.Questions = questions
	return iv, nil
}

// collectQuestions fans the requested count out over the categories,
// preferring existing bank questions and generating only the gap. Newly
// generated questions join the shared bank for later reuse.
func (s *Service) collectQuestions(ctx context.Context, req GenerateRequest) ([]domain.Question, error) {
	perCategory := (req.QuestionCount + len(req.Categories) - 1) / len(req.Categories)

	mixed := []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard}

	var questions []domain.Question
	for i, category := range req.Categories {
		if len(questions) >= req.QuestionCount {
			break
		}

		count := min(perCategory, req.QuestionCount-len(questions))

		difficulty := req.Difficulty
		if difficulty == domain.DifficultyMixed {
			difficulty = mixed[i%len(mixed)]
		}

		existing, err := s.questions.FindMatching(ctx, category, difficulty, req.Language, req.Topic, count)
		if err != nil {
			return nil, fmt.Errorf("find existing questions: %w", err)
		}
		questions = append(questions, existing...)

		if needed := count - len(existing); needed > 0 {
			generated, err := s.evaluator.GenerateQuestions(ctx, GenerateQuestionsParams{
				Category:   category,
				Difficulty: difficulty,
				Topic:      req.Topic,
				Count:      needed,
				Language:   req.Language,
			})
			if err != nil {
				return nil, fmt.Errorf("generate %s/%s questions: %w", category, difficulty, err)
			}

			for i := range generated {
				qid, err := uuid.NewV7()
				if err != nil {
					return nil, fmt.Errorf("generate question ID: %w", err)
				}
				generated[i].QuestionID = qid.String()
				generated[i].CreateTime = s.now()
			}

			if err := s.questions.Insert(ctx, generated); err != nil {
				return nil, fmt.Errorf("insert generated questions: %w", err)
			}

			questions = append(questions, generated...)
		}
	}

	if len(questions) > req.QuestionCount {
		questions = questions[:req.QuestionCount]
	}

	return questions, nil
}

func validateGenerate(req *GenerateRequest) error {
	if req.Topic == "" {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("topic is required"))
	}
	if !req.Difficulty.Valid() {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid difficulty: %s", req.Difficulty))
	}
	if req.QuestionCount < MinQuestionCount || req.QuestionCount > MaxQuestionCount {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("question count must be between %d and %d", MinQuestionCount, MaxQuestionCount))
	}
	if req.Language == "" {
		req.Language = "python"
	}
	if !supportedLanguages[req.Language] {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid language: %s", req.Language))
	}
	if len(req.Categories) == 0 {
		req.Categories = defaultCategories
	}
	for _, c := range req.Categories {
		if !c.Valid() {
			return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid category: %s", c))
		}
	}
	return nil
}

// Get returns an owned interview with questions and responses populated.
func (s *Service) Get(ctx context.Context, interviewID, userID string) (*domain.Interview, error) {
	return s.store.Get(ctx, interviewID, userID)
}

// MarkStarted advances a pending interview to in-progress.
func (s *Service) MarkStarted(ctx context.Context, interviewID string, at time.Time) error {
	return s.store.MarkStarted(ctx, interviewID, at)
}

type ListFilter struct {
	UserID string
	Status domain.InterviewStatus
	Page   int
	Limit  int
}

type ListResponse struct {
	Interviews []domain.Interview
	Total      int
	Page       int
	Limit      int
}

func (s *Service) List(ctx context.Context, f ListFilter) (*ListResponse, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}

	interviews, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}

	return &ListResponse{
		Interviews: interviews,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
	}, nil
}

func (s *Service) Delete(ctx context.Context, interviewID, userID string) error {
	return s.store.Delete(ctx, interviewID, userID)
}

func (s *Service) Stats(ctx context.Context, userID string) (domain.UserStats, error) {
	return s.store.Stats(ctx, userID)
}

type SubmitAnswerRequest struct {
	InterviewID string
	UserID      string
	QuestionID  string
	UserAnswer  string
	TimeTaken   int
}

type SubmitAnswerResponse struct {
	Evaluation           domain.Evaluation
	Status               domain.InterviewStatus
	CompletionPercentage int
	OverallScore         *float64
}

// SubmitAnswer is the direct (non-mock) flow: one answer, evaluated on
// submission. When the last answer arrives the interview finalizes with the
// same scoring protocol the mock flow uses. Unlike finalization, an
// evaluator failure here fails the call and records nothing.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	iv, err := s.store.Get(ctx, req.InterviewID, req.UserID)
	if err != nil {
		return nil, err
	}

	if iv.HasResponse(req.QuestionID) {
		return nil, errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("answer already submitted: interview=%s question=%s", req.InterviewID, req.QuestionID))
	}

	q, ok := iv.QuestionByID(req.QuestionID)
	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("question not found: interview=%s question=%s", req.InterviewID, req.QuestionID))
	}

	now := s.now()
	if iv.Status == domain.InterviewPending {
		iv.Status = domain.InterviewInProgress
		iv.StartTime = &now
	}

	evaluation, err := s.evaluator.EvaluateResponse(ctx, EvaluateParams{
		Question:    q.Text,
		ModelAnswer: q.ModelAnswer,
		UserAnswer:  req.UserAnswer,
		TimeTaken:   req.TimeTaken,
		TimeLimit:   q.TimeLimit,
	})
	if err != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("evaluation failed: %v", err),
			errors.WithCause(err))
	}

	iv.Responses = append(iv.Responses, domain.InterviewResponse{
		QuestionID: req.QuestionID,
		UserAnswer: req.UserAnswer,
		TimeTaken:  req.TimeTaken,
		SubmitTime: now,
		Evaluation: evaluation,
	})

	if len(iv.Responses) == iv.QuestionCount {
		s.complete(ctx, iv, now)
	}

	if err := s.store.SaveResult(ctx, iv); err != nil {
		return nil, err
	}

	if iv.Status == domain.InterviewCompleted {
		s.eb.Publish(ctx, domain.EventInterviewCompleted{Interview: *iv})
	}

	return &SubmitAnswerResponse{
		Evaluation:           evaluation,
		Status:               iv.Status,
		CompletionPercentage: completionPercentage(iv),
		OverallScore:         iv.OverallScore,
	}, nil
}

// Finalize is the one-time protocol transferring a completed session's
// responses into the interview record: resolve each response against the
// interview's question list (skipping stale references), evaluate every
// resolvable answer, and write the scored interview. Individual evaluator
// failures are replaced by the neutral fallback so finalization always
// completes once answers exist.
func (s *Service) Finalize(ctx context.Context, iv *domain.Interview, responses []domain.SessionResponse) error {
	type slot struct {
		resp domain.SessionResponse
		q    domain.Question
	}

	var slots []slot
	for _, r := range responses {
		q, ok := iv.QuestionByID(r.QuestionID)
		if !ok {
			slog.WarnContext(ctx, "interview: skipping response for unknown question",
				"interview", iv.InterviewID, "question", r.QuestionID)
			continue
		}
		slots = append(slots, slot{resp: r, q: q})
	}

	evaluated := make([]domain.InterviewResponse, len(slots))

	var eg errgroup.Group
	eg.SetLimit(maxConcurrentEvaluations)
	for i, sl := range slots {
		eg.Go(func() error {
			evaluation, err := s.evaluator.EvaluateResponse(ctx, EvaluateParams{
				Question:    sl.q.Text,
				ModelAnswer: sl.q.ModelAnswer,
				UserAnswer:  sl.resp.Answer,
				TimeTaken:   sl.resp.TimeTaken,
				TimeLimit:   sl.q.TimeLimit,
			})
			if err != nil {
				slog.ErrorContext(ctx, "interview: evaluation failed, using fallback",
					"interview", iv.InterviewID, "question", sl.q.QuestionID, "error", err)
				evaluation = fallbackEvaluation()
			}

			evaluated[i] = domain.InterviewResponse{
				QuestionID: sl.resp.QuestionID,
				UserAnswer: sl.resp.Answer,
				TimeTaken:  sl.resp.TimeTaken,
				SubmitTime: sl.resp.SubmitTime,
				Evaluation: evaluation,
			}
			return nil
		})
	}
	_ = eg.Wait() // evaluation failures degrade to fallbacks, never abort

	iv.Responses = evaluated
	s.complete(ctx, iv, s.now())

	if err := s.store.SaveResult(ctx, iv); err != nil {
		return fmt.Errorf("save finalized interview %s: %w", iv.InterviewID, err)
	}

	s.eb.Publish(ctx, domain.EventInterviewCompleted{Interview: *iv})
	return nil
}

type CompleteRequest struct {
	InterviewID string
	UserID      string
	Status      domain.InterviewStatus

	// Force recomputes score and summary even when already present.
	Force bool
}

// Complete is the administrative path marking an interview completed or
// abandoned. Score and summary are only computed when absent, so a second
// pass cannot silently replace an earlier, different evaluation.
func (s *Service) Complete(ctx context.Context, req CompleteRequest) (*domain.Interview, error) {
	if req.Status != domain.InterviewCompleted && req.Status != domain.InterviewAbandoned {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid status %q: must be completed or abandoned", req.Status))
	}

	iv, err := s.store.Get(ctx, req.InterviewID, req.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	iv.Status = req.Status
	iv.CompleteTime = &now

	if req.Status == domain.InterviewCompleted && len(iv.Responses) > 0 {
		if iv.OverallScore == nil || req.Force {
			score := meanOverallScore(iv.Responses)
			iv.OverallScore = &score
		}

		if iv.PerformanceSummary == nil || req.Force {
			summary := s.summarize(ctx, iv)
			iv.PerformanceSummary = &summary
		}
	}

	if err := s.store.SaveResult(ctx, iv); err != nil {
		return nil, err
	}

	if iv.Status == domain.InterviewCompleted {
		s.eb.Publish(ctx, domain.EventInterviewCompleted{Interview: *iv})
	}

	return iv, nil
}

// complete stamps terminal state and computes score/summary from whatever
// evaluated responses exist.
func (s *Service) complete(ctx context.Context, iv *domain.Interview, now time.Time) {
	iv.Status = domain.InterviewCompleted
	iv.CompleteTime = &now

	if len(iv.Responses) == 0 {
		return
	}

	score := meanOverallScore(iv.Responses)
	iv.OverallScore = &score

	summary := s.summarize(ctx, iv)
	iv.PerformanceSummary = &summary
}

func (s *Service) summarize(ctx context.Context, iv *domain.Interview) domain.PerformanceSummary {
	summary, err := s.evaluator.GenerateSessionSummary(ctx, iv, iv.Responses)
	if err != nil {
		slog.ErrorContext(ctx, "interview: summary generation failed, using fallback",
			"interview", iv.InterviewID, "error", err)
		return fallbackSummary(iv.Responses)
	}
	return summary
}

// meanOverallScore is the unweighted arithmetic mean of the per-response
// overall scores. Decimal accumulation keeps it exact and order-independent.
func meanOverallScore(responses []domain.InterviewResponse) float64 {
	sum := decimal.Zero
	for _, r := range responses {
		sum = sum.Add(decimal.NewFromInt(int64(r.Evaluation.OverallScore)))
	}
	return sum.Div(decimal.NewFromInt(int64(len(responses)))).InexactFloat64()
}

func meanOf(responses []domain.InterviewResponse, pick func(domain.Evaluation) int) float64 {
	sum := decimal.Zero
	for _, r := range responses {
		sum = sum.Add(decimal.NewFromInt(int64(pick(r.Evaluation))))
	}
	return sum.Div(decimal.NewFromInt(int64(len(responses)))).InexactFloat64()
}

// fallbackEvaluation is the fixed neutral verdict substituted when the
// collaborator fails for a single response.
func fallbackEvaluation() domain.Evaluation {
	return domain.Evaluation{
		CorrectnessScore:       50,
		ProblemSolvingScore:    50,
		CommunicationScore:     50,
		OverallScore:           50,
		Strengths:              []string{"Response submitted"},
		Weaknesses:             []string{"Evaluation failed"},
		ImprovementSuggestions: []string{"Please try again"},
		DetailedFeedback:       "Unable to evaluate response due to technical issues.",
	}
}

// fallbackSummary computes per-dimension means locally when the collaborator
// cannot produce a summary.
func fallbackSummary(responses []domain.InterviewResponse) domain.PerformanceSummary {
	return domain.PerformanceSummary{
		CorrectnessAverage:    meanOf(responses, func(e domain.Evaluation) int { return e.CorrectnessScore }),
		ProblemSolvingAverage: meanOf(responses, func(e domain.Evaluation) int { return e.ProblemSolvingScore }),
		CommunicationAverage:  meanOf(responses, func(e domain.Evaluation) int { return e.CommunicationScore }),
		TopicWiseStrengths:    []domain.TopicScore{},
		TopicWiseWeaknesses:   []domain.TopicScore{},
		ReadinessEstimate:     "Evaluation completed with limited AI analysis",
	}
}

func completionPercentage(iv *domain.Interview) int {
	if iv.QuestionCount == 0 {
		return 0
	}
	return (len(iv.Responses)*100 + iv.QuestionCount/2) / iv.QuestionCount
}
