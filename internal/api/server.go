// Package api serves intake history, food logging and food search over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dieti-tracker/internal/auth"
	"dieti-tracker/internal/database"
	"dieti-tracker/internal/models"
)

// Store is the persistence the handlers need.
type Store interface {
	Ping(ctx context.Context) error
	AddFoodEntry(ctx context.Context, e models.FoodLogEntry, today models.Date) (bool, error)
	UpdateFoodEntry(ctx context.Context, userID, id string, u database.FoodUpdate) (models.FoodLogEntry, error)
	DeleteFoodEntry(ctx context.Context, userID, id string) error
	GetFoodLog(ctx context.Context, userID string, date, today models.Date) ([]models.FoodLogEntry, error)
	GetDailyIntake(ctx context.Context, userID string, date models.Date) (models.DailyIntake, error)
	GetHistory(ctx context.Context, userID string, days int, today models.Date) ([]models.DailyIntake, error)
	Rollover(ctx context.Context, today models.Date) (int, error)
	Search(ctx context.Context, query string) ([]models.NutritionalInfo, error)
	GetGoals(ctx context.Context, userID string) (models.Goal, error)
	SetGoals(ctx context.Context, userID string, g models.Goal) error
}

// TokenValidator resolves bearer tokens.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (auth.Result, error)
}

type Server struct {
	store  Store
	tokens TokenValidator
	now    func() time.Time
	loc    *time.Location
	admin  string
}

type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLocation sets the zone in which "today" is computed.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) { s.loc = loc }
}

// WithAdminToken enables the maintenance routes for callers presenting
// token. Without it they always answer 403.
func WithAdminToken(token string) Option {
	return func(s *Server) { s.admin = token }
}

func NewServer(store Store, tokens TokenValidator, opts ...Option) *Server {
	s := &Server{store: store, tokens: tokens, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), requestMetrics())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api", s.requireAuth())
	{
		v1.GET("/intake/today", s.getToday)
		v1.GET("/intake/history", s.getHistory)
		v1.GET("/intake/chart", s.getChart)

		v1.POST("/food", s.addFood)
		v1.PUT("/food/:id", s.updateFood)
		v1.DELETE("/food/:id", s.deleteFood)
		v1.GET("/food/:date", s.getFoodLog)

		v1.GET("/search", s.search)

		v1.GET("/goals", s.getGoals)
		v1.PUT("/goals", s.putGoals)
	}

	// Rollover touches every user's log, so it is not open to user sessions.
	maintenance := router.Group("/cron", s.requireAdmin())
	{
		maintenance.POST("/rollover", s.rollover)
	}
	return router
}

// Today is the current date in the server's zone.
func (s *Server) Today() models.Date {
	return models.DateOf(s.now().In(s.loc))
}

// RunRollover moves finished days to the historical log. It is shared by the
// scheduled job and the rollover endpoint.
func (s *Server) RunRollover(ctx context.Context) (int, error) {
	moved, err := s.store.Rollover(ctx, s.Today())
	if moved > 0 {
		rolloverEntries.Add(float64(moved))
	}
	return moved, err
}
