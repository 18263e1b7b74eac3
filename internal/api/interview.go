package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/errors"
	"github.com/prepwise/prepwise/internal/interview"
)

type interviewView struct {
	ID            string                     `json:"id"`
	Topic         string                     `json:"topic"`
	Difficulty    domain.Difficulty          `json:"difficulty"`
	Language      string                     `json:"language"`
	QuestionCount int                        `json:"questionCount"`
	Status        domain.InterviewStatus     `json:"status"`
	Questions     []domain.PublicQuestion    `json:"questions,omitempty"`
	Responses     []responseView             `json:"responses,omitempty"`
	OverallScore  *float64                   `json:"overallScore,omitempty"`
	Summary       *domain.PerformanceSummary `json:"performanceSummary,omitempty"`
	StartTime     *time.Time                 `json:"startedAt,omitempty"`
	CompleteTime  *time.Time                 `json:"completedAt,omitempty"`
	CreateTime    time.Time                  `json:"createdAt"`
}

type responseView struct {
	QuestionID string            `json:"questionId"`
	UserAnswer string            `json:"userAnswer"`
	TimeTaken  int               `json:"timeTaken"`
	SubmitTime time.Time         `json:"submittedAt"`
	Evaluation domain.Evaluation `json:"evaluation"`
}

func viewInterview(iv *domain.Interview) interviewView {
	v := interviewView{
		ID:            iv.InterviewID,
		Topic:         iv.Topic,
		Difficulty:    iv.Difficulty,
		Language:      iv.Language,
		QuestionCount: iv.QuestionCount,
		Status:        iv.Status,
		OverallScore:  iv.OverallScore,
		Summary:       iv.PerformanceSummary,
		StartTime:     iv.StartTime,
		CompleteTime:  iv.CompleteTime,
		CreateTime:    iv.CreateTime,
	}

	for _, q := range iv.Questions {
		v.Questions = append(v.Questions, q.Public())
	}
	for _, r := range iv.Responses {
		v.Responses = append(v.Responses, responseView{
			QuestionID: r.QuestionID,
			UserAnswer: r.UserAnswer,
			TimeTaken:  r.TimeTaken,
			SubmitTime: r.SubmitTime,
			Evaluation: r.Evaluation,
		})
	}

	return v
}

// rateLimitGenerate caps interview generation per user. Limit headers go out
// on allowed requests too, so clients can pace themselves.
func (a *API) rateLimitGenerate(c *gin.Context) {
	r, err := a.limiter.Allow(c.Request.Context(), a.userID(c))
	if err != nil {
		a.abortError(c, err)
		return
	}

	c.Header("X-RateLimit-Limit", strconv.FormatInt(r.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(r.Remaining, 10))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(r.ResetAt.Unix(), 10))

	if !r.Allowed {
		c.Header("Retry-After", strconv.Itoa(int(r.RetryAfter.Seconds())))
		a.abortError(c, errors.New(errors.CodeResourceExhausted,
			errors.WithMessagef("interview generation limit reached, retry in %s", r.RetryAfter.Round(time.Second))))
		return
	}

	c.Next()
}

func (a *API) generateInterview(c *gin.Context) {
	var req struct {
		Topic         string            `json:"topic"`
		Difficulty    domain.Difficulty `json:"difficulty"`
		QuestionCount int               `json:"questionCount"`
		Categories    []domain.Category `json:"categories"`
		Language      string            `json:"language"`
	}
	if !a.bindJSON(c, &req) {
		return
	}

	iv, err := a.interview.Generate(c.Request.Context(), interview.GenerateRequest{
		UserID:        a.userID(c),
		Topic:         req.Topic,
		Difficulty:    req.Difficulty,
		QuestionCount: req.QuestionCount,
		Categories:    req.Categories,
		Language:      req.Language,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, viewInterview(iv))
}

func (a *API) listInterviews(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	resp, err := a.interview.List(c.Request.Context(), interview.ListFilter{
		UserID: a.userID(c),
		Status: domain.InterviewStatus(c.Query("status")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	views := make([]interviewView, 0, len(resp.Interviews))
	for i := range resp.Interviews {
		views = append(views, viewInterview(&resp.Interviews[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"interviews": views,
		"total":      resp.Total,
		"page":       resp.Page,
		"limit":      resp.Limit,
	})
}

func (a *API) getInterview(c *gin.Context) {
	iv, err := a.interview.Get(c.Request.Context(), c.Param("id"), a.userID(c))
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, viewInterview(iv))
}

func (a *API) userStats(c *gin.Context) {
	stats, err := a.interview.Stats(c.Request.Context(), a.userID(c))
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (a *API) submitInterviewAnswer(c *gin.Context) {
	var req struct {
		QuestionID string `json:"questionId"`
		Answer     string `json:"answer"`
		TimeTaken  int    `json:"timeTaken"`
	}
	if !a.bindJSON(c, &req) {
		return
	}

	resp, err := a.interview.SubmitAnswer(c.Request.Context(), interview.SubmitAnswerRequest{
		InterviewID: c.Param("id"),
		UserID:      a.userID(c),
		QuestionID:  req.QuestionID,
		UserAnswer:  req.Answer,
		TimeTaken:   req.TimeTaken,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"evaluation":           resp.Evaluation,
		"status":               resp.Status,
		"completionPercentage": fmt.Sprintf("%d%%", resp.CompletionPercentage),
		"overallScore":         resp.OverallScore,
	})
}

func (a *API) completeInterview(c *gin.Context) {
	var req struct {
		Status domain.InterviewStatus `json:"status"`
		Force  bool                   `json:"force"`
	}
	if !a.bindJSON(c, &req) {
		return
	}

	iv, err := a.interview.Complete(c.Request.Context(), interview.CompleteRequest{
		InterviewID: c.Param("id"),
		UserID:      a.userID(c),
		Status:      req.Status,
		Force:       req.Force,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, viewInterview(iv))
}

func (a *API) deleteInterview(c *gin.Context) {
	if err := a.interview.Delete(c.Request.Context(), c.Param("id"), a.userID(c)); err != nil {
		a.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
