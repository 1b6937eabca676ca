package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dieti-tracker/internal/chart"
	"dieti-tracker/internal/database"
	"dieti-tracker/internal/models"
)

const maxHistoryDays = 366

type foodRequest struct {
	ID          string  `json:"id" binding:"required,uuid"`
	Description string  `json:"description" binding:"required"`
	Grams       float64 `json:"grams" binding:"gt=0"`
	Calorias    float64 `json:"calorias" binding:"gte=0"`
	Proteinas   float64 `json:"proteinas" binding:"gte=0"`
	Carbo       float64 `json:"carbo" binding:"gte=0"`
	Gordura     float64 `json:"gordura" binding:"gte=0"`
	Date        string  `json:"date"`
}

type foodUpdateRequest struct {
	Grams     float64 `json:"grams" binding:"gt=0"`
	Calorias  float64 `json:"calorias" binding:"gte=0"`
	Proteinas float64 `json:"proteinas" binding:"gte=0"`
	Carbo     float64 `json:"carbo" binding:"gte=0"`
	Gordura   float64 `json:"gordura" binding:"gte=0"`
}

type chartResponse struct {
	Span   chart.Span          `json:"span"`
	Label  string              `json:"label"`
	Window string              `json:"window"`
	Points []models.ChartPoint `json:"points"`
	Goal   []models.Macros     `json:"goal"`
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func internalError(c *gin.Context, action string, err error) {
	log.Printf("Failed to %s: %v", action, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
}

func (s *Server) health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		log.Println("Failed to ping store:", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// dateParam reads an optional date, defaulting to today.
func (s *Server) dateParam(raw string) (models.Date, error) {
	if raw == "" {
		return s.Today(), nil
	}
	return models.ParseDate(raw)
}

func (s *Server) getToday(c *gin.Context) {
	date, err := s.dateParam(c.Query("date"))
	if err != nil {
		badRequest(c, "invalid date format, expected YYYY-MM-DD")
		return
	}
	intake, err := s.store.GetDailyIntake(c.Request.Context(), userID(c), date)
	if err != nil {
		internalError(c, "load daily intake", err)
		return
	}
	c.JSON(http.StatusOK, intake)
}

func (s *Server) getHistory(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > maxHistoryDays {
		badRequest(c, "days must be between 1 and 366")
		return
	}
	rows, err := s.store.GetHistory(c.Request.Context(), userID(c), days, s.Today())
	if err != nil {
		internalError(c, "load intake history", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) getChart(c *gin.Context) {
	span, err := chart.ParseSpan(c.Query("span"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	rows, err := s.store.GetHistory(ctx, userID(c), span.Days(), s.Today())
	if err != nil {
		internalError(c, "load intake history", err)
		return
	}
	goal, err := s.store.GetGoals(ctx, userID(c))
	if err != nil {
		internalError(c, "load goals", err)
		return
	}
	points := chart.Bucket(rows, span.Window())
	c.JSON(http.StatusOK, chartResponse{
		Span:   span,
		Label:  span.Label(),
		Window: span.Window().String(),
		Points: points,
		Goal:   chart.GoalLine(points, goal),
	})
}

func (s *Server) addFood(c *gin.Context) {
	var req foodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	date, err := s.dateParam(req.Date)
	if err != nil {
		badRequest(c, "invalid date format, expected YYYY-MM-DD")
		return
	}

	now := s.now()
	entry := models.FoodLogEntry{
		ID:          req.ID,
		UserID:      userID(c),
		Description: req.Description,
		Grams:       req.Grams,
		Macros: models.Macros{
			Calorias:  req.Calorias,
			Proteinas: req.Proteinas,
			Carbo:     req.Carbo,
			Gordura:   req.Gordura,
		},
		Date:      date,
		CreatedAt: now.Unix(),
	}
	if err := models.Validate(entry); err != nil {
		badRequest(c, err.Error())
		return
	}

	created, err := s.store.AddFoodEntry(c.Request.Context(), entry, s.Today())
	if err != nil {
		internalError(c, "add food entry", err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"msg": "Food already recorded", "id": entry.ID})
		return
	}
	foodEntriesStored.Inc()
	c.JSON(http.StatusCreated, gin.H{"msg": "Food added", "id": entry.ID})
}

func (s *Server) updateFood(c *gin.Context) {
	var req foodUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "grams must be greater than 0")
		return
	}
	entry, err := s.store.UpdateFoodEntry(c.Request.Context(), userID(c), c.Param("id"), database.FoodUpdate{
		Grams: req.Grams,
		Macros: models.Macros{
			Calorias:  req.Calorias,
			Proteinas: req.Proteinas,
			Carbo:     req.Carbo,
			Gordura:   req.Gordura,
		},
	})
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "food not found"})
		return
	}
	if err != nil {
		internalError(c, "update food entry", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) deleteFood(c *gin.Context) {
	err := s.store.DeleteFoodEntry(c.Request.Context(), userID(c), c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "food not found"})
		return
	}
	if err != nil {
		internalError(c, "delete food entry", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Deleted and totals recalculated"})
}

func (s *Server) getFoodLog(c *gin.Context) {
	date, err := models.ParseDate(c.Param("date"))
	if err != nil {
		badRequest(c, "invalid date format, expected YYYY-MM-DD")
		return
	}
	entries, err := s.store.GetFoodLog(c.Request.Context(), userID(c), date, s.Today())
	if err != nil {
		internalError(c, "load food log", err)
		return
	}
	if entries == nil {
		entries = []models.FoodLogEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) search(c *gin.Context) {
	q := c.Query("q")
	if len([]rune(q)) < 2 {
		badRequest(c, "query must have at least 2 characters")
		return
	}
	results, err := s.store.Search(c.Request.Context(), q)
	if err != nil {
		internalError(c, "search foods", err)
		return
	}
	if len(results) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no food or recipe found for '" + q + "'"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) getGoals(c *gin.Context) {
	goal, err := s.store.GetGoals(c.Request.Context(), userID(c))
	if err != nil {
		internalError(c, "load goals", err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (s *Server) putGoals(c *gin.Context) {
	var goal models.Goal
	if err := c.ShouldBindJSON(&goal); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := models.Validate(goal); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := s.store.SetGoals(c.Request.Context(), userID(c), goal); err != nil {
		internalError(c, "save goals", err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (s *Server) rollover(c *gin.Context) {
	moved, err := s.RunRollover(c.Request.Context())
	if err != nil {
		internalError(c, "roll over daily log", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rollover completed", "moved": moved})
}
