// Package api exposes the HTTP surface and bridges domain events onto the
// notification channel.
package api

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/prepwise/prepwise/internal/auth"
	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/errors"
	"github.com/prepwise/prepwise/internal/event"
	"github.com/prepwise/prepwise/internal/interview"
	"github.com/prepwise/prepwise/internal/ratelimit"
	"github.com/prepwise/prepwise/internal/session"
	"github.com/prepwise/prepwise/internal/telemetry"
)

type Config struct {
	Engine       *gin.Engine
	EventBus     *event.Bus
	Auth         *auth.Service
	Interview    *interview.Service
	Session      *session.Service
	Limiter      *ratelimit.Limiter
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	auth      *auth.Service
	interview *interview.Service
	session   *session.Service
	limiter   *ratelimit.Limiter

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		auth:      c.Auth,
		interview: c.Interview,
		session:   c.Session,
		limiter:   c.Limiter,
		redis:     c.Redis,
		prefix:    c.PubsubPrefix,
	}

	a.registerRoutes(c.Engine)

	c.EventBus.Subscribe(domain.EventNameInterviewCompleted, func(ctx context.Context, e event.Event) error {
		return a.PublishInterviewCompleted(ctx, e.(domain.EventInterviewCompleted))
	})
	c.EventBus.Subscribe(domain.EventNameSessionStarted, func(ctx context.Context, e event.Event) error {
		telemetry.CountSessionTransition("started")
		return nil
	})
	c.EventBus.Subscribe(domain.EventNameSessionCompleted, func(ctx context.Context, e event.Event) error {
		telemetry.CountSessionTransition("completed")
		return nil
	})
	c.EventBus.Subscribe(domain.EventNameSessionExpired, func(ctx context.Context, e event.Event) error {
		telemetry.CountSessionTransition("expired")
		return nil
	})

	return a
}

func (a *API) registerRoutes(e *gin.Engine) {
	v1 := e.Group("/api/v1")

	v1.POST("/auth/register", a.register)
	v1.POST("/auth/login", a.login)

	authed := v1.Group("", a.authenticate)
	authed.GET("/auth/me", a.me)

	iv := authed.Group("/interviews")
	iv.POST("/generate", a.rateLimitGenerate, a.generateInterview)
	iv.GET("", a.listInterviews)
	iv.GET("/stats", a.userStats)
	iv.GET("/:id", a.getInterview)
	iv.POST("/:id/answer", a.submitInterviewAnswer)
	iv.POST("/:id/complete", a.completeInterview)
	iv.DELETE("/:id", a.deleteInterview)

	mock := authed.Group("/mock")
	mock.POST("/start", a.startSession)
	mock.GET("/:sessionId", a.getSession)
	mock.POST("/:sessionId/sync-timer", a.syncTimer)
	mock.POST("/:sessionId/answer", a.submitSessionAnswer)
	mock.POST("/:sessionId/pause", a.pauseSession)
	mock.POST("/:sessionId/resume", a.resumeSession)
	mock.POST("/:sessionId/end", a.endSession)
}

const userIDKey = "auth.userID"

// authenticate resolves the bearer token into a user id for downstream
// handlers.
func (a *API) authenticate(c *gin.Context) {
	const prefix = "Bearer "

	h := c.GetHeader("Authorization")
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		a.abortError(c, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("missing bearer token")))
		return
	}

	userID, err := a.auth.VerifyToken(h[len(prefix):])
	if err != nil {
		a.abortError(c, err)
		return
	}

	c.Set(userIDKey, userID)
	c.Next()
}

func (a *API) userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func (a *API) writeError(c *gin.Context, err error) {
	// A start conflict carries the already-active session's id so the
	// client can resume it.
	var active *session.ActiveSessionError
	if stderrors.As(err, &active) {
		c.JSON(http.StatusConflict, gin.H{
			"code":      errors.CodeAlreadyExists,
			"message":   "an active mock session already exists",
			"sessionId": active.SessionID,
		})
		return
	}

	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: internal error",
			"path", c.FullPath(), "error", err)
	}

	c.JSON(e.HTTPStatusCode(), gin.H{
		"code":    e.Code,
		"message": e.Message,
	})
}

func (a *API) abortError(c *gin.Context, err error) {
	a.writeError(c, err)
	c.Abort()
}

func (a *API) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		a.writeError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid request body: %v", err)))
		return false
	}
	return true
}
