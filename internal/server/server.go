package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/prepwise/prepwise/internal/ai"
	"github.com/prepwise/prepwise/internal/api"
	"github.com/prepwise/prepwise/internal/auth"
	"github.com/prepwise/prepwise/internal/event"
	"github.com/prepwise/prepwise/internal/interview"
	"github.com/prepwise/prepwise/internal/question"
	"github.com/prepwise/prepwise/internal/ratelimit"
	"github.com/prepwise/prepwise/internal/session"
	"github.com/prepwise/prepwise/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Session struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Addr string
		User string
		Pass string
		Name string
	}

	Auth struct {
		Secret       string
		TokenTTLHour int
	}

	Gemini struct {
		APIKey string
		Model  string
	}

	Session struct {
		TTLHour         int
		DriftTolerance  int
		QuestionSeconds int
	}

	RateLimit struct {
		Generations int64
		WindowHour  int
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			session redis.UniversalClient
			pubsub  redis.UniversalClient
		}

		postgres *pgxpool.Pool

		gemini *ai.Client
	}

	service struct {
		auth      *auth.Service
		interview *interview.Service
		session   *session.Service
		limiter   *ratelimit.Limiter
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	if err := s.initGemini(); err != nil {
		return fmt.Errorf("gemini: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.session, err = connect(s.c.Redis.Session.Addrs, s.c.Redis.Session.Pass)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s",
		s.c.Postgres.User, s.c.Postgres.Pass, s.c.Postgres.Addr, s.c.Postgres.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initGemini() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := ai.NewClient(ctx, ai.Config{
		APIKey: s.c.Gemini.APIKey,
		Model:  s.c.Gemini.Model,
	})
	if err != nil {
		return err
	}

	s.infra.gemini = client
	return nil
}

func (s *Server) initService() {
	s.service.auth = auth.NewService(auth.Config{
		Store:    auth.NewStore(s.infra.postgres),
		Secret:   s.c.Auth.Secret,
		TokenTTL: time.Duration(s.c.Auth.TokenTTLHour) * time.Hour,
	})

	s.service.interview = interview.NewService(interview.Config{
		Store:     interview.NewStore(s.infra.postgres),
		Questions: question.NewStore(s.infra.postgres),
		Evaluator: s.infra.gemini,
		EventBus:  s.eb,
	})

	s.service.session = session.NewService(session.Config{
		Store: session.NewStore(session.StoreConfig{
			Redis:  s.infra.redis.session,
			Prefix: s.c.Redis.Session.Prefix,
		}),
		Interviews:      s.service.interview,
		Finalizer:       s.service.interview,
		EventBus:        s.eb,
		SessionTTL:      time.Duration(s.c.Session.TTLHour) * time.Hour,
		DriftTolerance:  s.c.Session.DriftTolerance,
		QuestionSeconds: s.c.Session.QuestionSeconds,
	})

	s.service.limiter = ratelimit.NewLimiter(ratelimit.Config{
		Store:  ratelimit.NewRedisStore(s.infra.redis.session, s.c.Redis.Session.Prefix),
		Limit:  s.c.RateLimit.Generations,
		Window: time.Duration(s.c.RateLimit.WindowHour) * time.Hour,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), telemetry.HTTPMiddleware())

	api.New(api.Config{
		Engine:       e,
		EventBus:     s.eb,
		Auth:         s.service.auth,
		Interview:    s.service.interview,
		Session:      s.service.session,
		Limiter:      s.service.limiter,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	s.infra.postgres.Close()
	if err := s.infra.redis.session.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close session redis failed", "error", err)
	}
	if err := s.infra.redis.pubsub.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close pubsub redis failed", "error", err)
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
