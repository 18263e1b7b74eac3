package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepwise/prepwise/internal/session"
)

func (a *API) startSession(c *gin.Context) {
	var req struct {
		InterviewID string `json:"interviewId"`
	}
	if !a.bindJSON(c, &req) {
		return
	}

	resp, err := a.session.Start(c.Request.Context(), session.StartRequest{
		InterviewID: req.InterviewID,
		UserID:      a.userID(c),
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session":         resp.Session,
		"currentQuestion": resp.CurrentQuestion,
	})
}

func (a *API) getSession(c *gin.Context) {
	resp, err := a.session.Get(c.Request.Context(), session.GetRequest{
		SessionID: c.Param("sessionId"),
		UserID:    a.userID(c),
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":         resp.Session,
		"currentQuestion": resp.CurrentQuestion,
	})
}

func (a *API) syncTimer(c *gin.Context) {
	var req struct {
		TimeRemaining int `json:"timeRemaining"`
	}
	if !a.bindJSON(c, &req) {
		return
	}

	resp, err := a.session.SyncTimer(c.Request.Context(), session.SyncTimerRequest{
		SessionID:           c.Param("sessionId"),
		UserID:              a.userID(c),
		ClientTimeRemaining: req.TimeRemaining,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) submitSessionAnswer(c *gin.Context) {
	var req struct {
		Answer    string `json:"answer"`
		TimeTaken int    `json:"timeTaken"`
	}
	if !a.bindJSON(c, &req) {
		return
	}

	resp, err := a.session.SubmitAnswer(c.Request.Context(), session.SubmitAnswerRequest{
		SessionID: c.Param("sessionId"),
		UserID:    a.userID(c),
		Answer:    req.Answer,
		TimeTaken: req.TimeTaken,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	body := gin.H{
		"session":   resp.Session,
		"completed": resp.Completed,
	}
	if resp.Completed {
		body["interviewId"] = resp.InterviewID
	} else {
		body["nextQuestion"] = resp.NextQuestion
	}

	c.JSON(http.StatusOK, body)
}

func (a *API) pauseSession(c *gin.Context) {
	st, err := a.session.Pause(c.Request.Context(), c.Param("sessionId"), a.userID(c))
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": st})
}

func (a *API) resumeSession(c *gin.Context) {
	st, err := a.session.Resume(c.Request.Context(), c.Param("sessionId"), a.userID(c))
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": st})
}

func (a *API) endSession(c *gin.Context) {
	if err := a.session.End(c.Request.Context(), c.Param("sessionId"), a.userID(c)); err != nil {
		a.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
