package domain

import (
	"time"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyMixed  Difficulty = "mixed"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyMixed:
		return true
	}
	return false
}

type Category string

const (
	CategoryDataStructures Category = "data-structures"
	CategoryAlgorithms     Category = "algorithms"
	CategorySystemDesign   Category = "system-design"
	CategoryBehavioral     Category = "behavioral"
	CategoryCoding         Category = "coding"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryDataStructures, CategoryAlgorithms, CategorySystemDesign, CategoryBehavioral, CategoryCoding:
		return true
	}
	return false
}

type InterviewStatus string

const (
	InterviewPending    InterviewStatus = "pending"
	InterviewInProgress InterviewStatus = "in-progress"
	InterviewCompleted  InterviewStatus = "completed"
	InterviewAbandoned  InterviewStatus = "abandoned"
)

// Terminal reports whether no further status transitions are allowed.
func (s InterviewStatus) Terminal() bool {
	return s == InterviewCompleted || s == InterviewAbandoned
}

// Question is a reusable prompt+answer unit. Questions are shared across
// interviews matching the same category/difficulty/topic, so they carry no
// back-reference to any interview.
type Question struct {
	QuestionID  string
	Text        string
	Category    Category
	Difficulty  Difficulty
	Language    string
	ModelAnswer string

	// TimeLimit is in minutes; TimeLimitSeconds is derived and must always
	// equal TimeLimit*60. Mutate through SetTimeLimit.
	TimeLimit        int
	TimeLimitSeconds int

	ComplexityTime  string
	ComplexitySpace string

	Hints                   []string
	ConceptsTested          []string
	CommonMistakes          []string
	InterviewerExpectations []string
	FollowUpQuestions       []string

	CreateTime time.Time
}

// SetTimeLimit sets the per-question limit in minutes and re-derives the
// seconds value.
func (q *Question) SetTimeLimit(minutes int) {
	q.TimeLimit = minutes
	q.TimeLimitSeconds = minutes * 60
}

// PublicQuestion is the candidate-facing view of a question: everything the
// client needs to render and time the question, never the model answer.
type PublicQuestion struct {
	QuestionID       string     `json:"id"`
	Text             string     `json:"text"`
	Category         Category   `json:"category"`
	Difficulty       Difficulty `json:"difficulty"`
	TimeLimit        int        `json:"timeLimit"`
	TimeLimitSeconds int        `json:"timeLimitSeconds"`
	Hints            []string   `json:"hints"`
	ConceptsTested   []string   `json:"conceptsTested"`
}

func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		QuestionID:       q.QuestionID,
		Text:             q.Text,
		Category:         q.Category,
		Difficulty:       q.Difficulty,
		TimeLimit:        q.TimeLimit,
		TimeLimitSeconds: q.TimeLimitSeconds,
		Hints:            q.Hints,
		ConceptsTested:   q.ConceptsTested,
	}
}

// Evaluation is the collaborator's verdict on one answer. All scores 0-100.
type Evaluation struct {
	CorrectnessScore       int      `json:"correctnessScore"`
	ProblemSolvingScore    int      `json:"problemSolvingScore"`
	CommunicationScore     int      `json:"communicationScore"`
	OverallScore           int      `json:"overallScore"`
	Strengths              []string `json:"strengths"`
	Weaknesses             []string `json:"weaknesses"`
	ImprovementSuggestions []string `json:"improvementSuggestions"`
	DetailedFeedback       string   `json:"detailedFeedback"`
}

// InterviewResponse is an evaluated answer owned by an interview. It only
// comes into existence through finalization (or the direct-answer flow), so
// the evaluation is always present.
type InterviewResponse struct {
	QuestionID string
	UserAnswer string
	TimeTaken  int
	SubmitTime time.Time
	Evaluation Evaluation
}

type TopicScore struct {
	Topic string  `json:"topic"`
	Score float64 `json:"score"`
}

type PerformanceSummary struct {
	CorrectnessAverage    float64      `json:"correctnessAverage"`
	ProblemSolvingAverage float64      `json:"problemSolvingAverage"`
	CommunicationAverage  float64      `json:"communicationAverage"`
	TopicWiseStrengths    []TopicScore `json:"topicWiseStrengths"`
	TopicWiseWeaknesses   []TopicScore `json:"topicWiseWeaknesses"`
	ReadinessEstimate     string       `json:"readinessEstimate"`
}

// Interview is a planned set of questions for one user/topic. Its response
// list is the finalized, evaluated collection; a mock session keeps its own
// unevaluated responses until finalization copies them over.
type Interview struct {
	InterviewID   string
	UserID        string
	Topic         string
	Difficulty    Difficulty
	Language      string
	QuestionCount int

	QuestionIDs []string
	Questions   []Question

	Responses []InterviewResponse

	Status             InterviewStatus
	OverallScore       *float64
	PerformanceSummary *PerformanceSummary

	StartTime    *time.Time
	CompleteTime *time.Time
	CreateTime   time.Time
}

// QuestionByID resolves a question within the interview's question list.
func (iv *Interview) QuestionByID(id string) (Question, bool) {
	for _, q := range iv.Questions {
		if q.QuestionID == id {
			return q, true
		}
	}
	return Question{}, false
}

// HasResponse reports whether an answer was already recorded for the question.
func (iv *Interview) HasResponse(questionID string) bool {
	for _, r := range iv.Responses {
		if r.QuestionID == questionID {
			return true
		}
	}
	return false
}

// User is the account owning interviews and sessions.
type User struct {
	UserID       string
	Name         string
	Email        string
	PasswordHash string
	CreateTime   time.Time
}

// UserStats aggregates a user's interview history for the dashboard.
type UserStats struct {
	TotalInterviews      int     `json:"totalInterviews"`
	CompletedInterviews  int     `json:"completedInterviews"`
	InProgressInterviews int     `json:"inProgressInterviews"`
	AverageScore         float64 `json:"averageScore"`
}
