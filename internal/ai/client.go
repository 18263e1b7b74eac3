// Package ai implements the evaluation collaborator on Gemini: question
// generation, response scoring, and session summaries. Callers treat every
// method as a fallible remote call and keep their own fallbacks.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/interview"
)

const defaultModel = "gemini-2.5-flash-lite"

type Config struct {
	APIKey string
	Model  string
}

type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, c Config) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: create gemini client: %w", err)
	}

	model := c.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client: gc,
		model:  model,
	}, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("ai: generate content: %w", err)
	}

	text, err := result.Text()
	if err != nil {
		return "", fmt.Errorf("ai: extract response text: %w", err)
	}
	if text == "" {
		return "", fmt.Errorf("ai: empty model response")
	}

	return text, nil
}

// generatedQuestion mirrors the JSON shape the model is asked to produce.
type generatedQuestion struct {
	Text               string `json:"text"`
	ModelAnswer        string `json:"modelAnswer"`
	TimeLimit          int    `json:"timeLimit"`
	ComplexityAnalysis struct {
		Time  string `json:"time"`
		Space string `json:"space"`
	} `json:"complexityAnalysis"`
	Hints                   []string `json:"hints"`
	ConceptsTested          []string `json:"conceptsTested"`
	CommonMistakes          []string `json:"commonMistakes"`
	InterviewerExpectations []string `json:"interviewerExpectations"`
	FollowUpQuestions       []string `json:"followUpQuestions"`
}

func (c *Client) GenerateQuestions(ctx context.Context, p interview.GenerateQuestionsParams) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, p.Count)

	// One question per call keeps individual responses small enough to
	// survive the output token limit.
	for i := 0; i < p.Count; i++ {
		text, err := c.generate(ctx, questionPrompt(p))
		if err != nil {
			return nil, err
		}

		raw, err := ExtractJSON(text)
		if err != nil {
			return nil, fmt.Errorf("ai: question %d/%d: %w", i+1, p.Count, err)
		}

		var gq generatedQuestion
		if err := json.Unmarshal(raw, &gq); err != nil {
			return nil, fmt.Errorf("ai: decode question %d/%d: %w", i+1, p.Count, err)
		}
		if gq.Text == "" || gq.ModelAnswer == "" {
			return nil, fmt.Errorf("ai: question %d/%d missing text or model answer", i+1, p.Count)
		}

		q := domain.Question{
			Text:                    gq.Text,
			Category:                p.Category,
			Difficulty:              p.Difficulty,
			Language:                p.Language,
			ModelAnswer:             gq.ModelAnswer,
			ComplexityTime:          gq.ComplexityAnalysis.Time,
			ComplexitySpace:         gq.ComplexityAnalysis.Space,
			Hints:                   gq.Hints,
			ConceptsTested:          gq.ConceptsTested,
			CommonMistakes:          gq.CommonMistakes,
			InterviewerExpectations: gq.InterviewerExpectations,
			FollowUpQuestions:       gq.FollowUpQuestions,
		}

		if len(q.ConceptsTested) == 0 {
			q.ConceptsTested = []string{p.Topic}
		}

		minutes := gq.TimeLimit
		if minutes < 1 || minutes > 60 {
			minutes = defaultTimeLimit(p.Difficulty)
		}
		q.SetTimeLimit(minutes)

		questions = append(questions, q)
	}

	return questions, nil
}

func (c *Client) EvaluateResponse(ctx context.Context, p interview.EvaluateParams) (domain.Evaluation, error) {
	text, err := c.generate(ctx, evaluationPrompt(p))
	if err != nil {
		return domain.Evaluation{}, err
	}

	raw, err := ExtractJSON(text)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("ai: evaluation: %w", err)
	}

	var e domain.Evaluation
	if err := json.Unmarshal(raw, &e); err != nil {
		return domain.Evaluation{}, fmt.Errorf("ai: decode evaluation: %w", err)
	}

	clampScores(&e)
	return e, nil
}

func (c *Client) GenerateSessionSummary(ctx context.Context, iv *domain.Interview, responses []domain.InterviewResponse) (domain.PerformanceSummary, error) {
	text, err := c.generate(ctx, summaryPrompt(iv, responses))
	if err != nil {
		return domain.PerformanceSummary{}, err
	}

	raw, err := ExtractJSON(text)
	if err != nil {
		return domain.PerformanceSummary{}, fmt.Errorf("ai: summary: %w", err)
	}

	var s domain.PerformanceSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.PerformanceSummary{}, fmt.Errorf("ai: decode summary: %w", err)
	}

	slog.DebugContext(ctx, "ai: session summary generated", "interview", iv.InterviewID)
	return s, nil
}

func defaultTimeLimit(d domain.Difficulty) int {
	switch d {
	case domain.DifficultyEasy:
		return 20
	case domain.DifficultyMedium:
		return 30
	case domain.DifficultyHard:
		return 40
	}
	return 30
}

func clampScores(e *domain.Evaluation) {
	for _, p := range []*int{&e.CorrectnessScore, &e.ProblemSolvingScore, &e.CommunicationScore, &e.OverallScore} {
		if *p < 0 {
			*p = 0
		}
		if *p > 100 {
			*p = 100
		}
	}
}

func questionPrompt(p interview.GenerateQuestionsParams) string {
	var b strings.Builder
	b.WriteString("You are a senior technical interviewer designing interview questions.\n\n")
	fmt.Fprintf(&b, "Write one %s %s interview question about %q targeting %s.\n", p.Difficulty, p.Category, p.Topic, languageName(p.Language))
	b.WriteString(`Respond ONLY with a valid JSON object, no markdown, using this shape:
{"text": "...", "modelAnswer": "...", "timeLimit": <minutes 1-60>,
 "complexityAnalysis": {"time": "...", "space": "..."},
 "hints": [], "conceptsTested": [], "commonMistakes": [],
 "interviewerExpectations": [], "followUpQuestions": []}`)
	return b.String()
}

func evaluationPrompt(p interview.EvaluateParams) string {
	var b strings.Builder
	b.WriteString("You are a strict but fair technical interviewer scoring a candidate's answer.\n\n")
	fmt.Fprintf(&b, "Question:\n%s\n\nModel answer:\n%s\n\nCandidate answer:\n%s\n\n", p.Question, p.ModelAnswer, p.UserAnswer)
	fmt.Fprintf(&b, "The candidate used %d seconds of a %d second limit.\n", p.TimeTaken, p.TimeLimit*60)
	b.WriteString(`Respond ONLY with a valid JSON object, no markdown, using this shape:
{"correctnessScore": 0-100, "problemSolvingScore": 0-100, "communicationScore": 0-100,
 "overallScore": 0-100, "strengths": [], "weaknesses": [],
 "improvementSuggestions": [], "detailedFeedback": "..."}`)
	return b.String()
}

func summaryPrompt(iv *domain.Interview, responses []domain.InterviewResponse) string {
	var b strings.Builder
	b.WriteString("You are summarizing a candidate's mock interview performance.\n\n")
	fmt.Fprintf(&b, "Topic: %s. Questions answered: %d of %d.\n", iv.Topic, len(responses), iv.QuestionCount)
	if iv.OverallScore != nil {
		fmt.Fprintf(&b, "Overall score: %.1f.\n", *iv.OverallScore)
	}
	for i, r := range responses {
		e := r.Evaluation
		fmt.Fprintf(&b, "Question %d: Correctness=%d, ProblemSolving=%d, Communication=%d\n",
			i+1, e.CorrectnessScore, e.ProblemSolvingScore, e.CommunicationScore)
	}
	b.WriteString(`
Respond ONLY with a valid JSON object, no markdown, using this shape:
{"correctnessAverage": 0-100, "problemSolvingAverage": 0-100, "communicationAverage": 0-100,
 "topicWiseStrengths": [{"topic": "...", "score": 0-100}],
 "topicWiseWeaknesses": [{"topic": "...", "score": 0-100}],
 "readinessEstimate": "..."}`)
	return b.String()
}

func languageName(language string) string {
	switch language {
	case "cpp":
		return "C++"
	case "java":
		return "Java"
	case "javascript":
		return "JavaScript"
	}
	return "Python"
}
