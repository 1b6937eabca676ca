package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumedScalesByItemType(t *testing.T) {
	taco := NutritionalInfo{Type: ItemTaco, Calorias: 1.5, Proteinas: 0.1, Carbo: 0.2, Gordura: 0.05}
	got := taco.Consumed(100)
	assert.InDelta(t, 150, got.Calorias, 1e-9)
	assert.InDelta(t, 10, got.Proteinas, 1e-9)
	assert.InDelta(t, 20, got.Carbo, 1e-9)
	assert.InDelta(t, 5, got.Gordura, 1e-9)

	recipe := NutritionalInfo{Type: ItemRecipe, Calorias: 250, Proteinas: 8}
	got = recipe.Consumed(200)
	assert.InDelta(t, 500, got.Calorias, 1e-9)
	assert.InDelta(t, 16, got.Proteinas, 1e-9)
}

func TestConsumedIgnoresInvalidValues(t *testing.T) {
	item := NutritionalInfo{Type: ItemTaco, Calorias: math.NaN(), Proteinas: -2, Carbo: math.Inf(1), Gordura: 1}
	got := item.Consumed(10)
	assert.Equal(t, Macros{Gordura: 10}, got)
}

func TestDateHelpers(t *testing.T) {
	d, err := ParseDate("2025-02-28")
	require.NoError(t, err)
	assert.Equal(t, Date("2025-03-01"), d.AddDays(1))
	assert.Equal(t, Date("2024-12-31"), Date("2025-01-01").AddDays(-1))
	assert.Equal(t, 202502, d.MonthKey())
	assert.Equal(t, 2, DaysBetween("2025-02-27", "2025-03-01"))
	assert.True(t, Date("2025-01-09").Before("2025-01-10"))

	_, err = ParseDate("2025-13-01")
	assert.Error(t, err)

	loc := time.FixedZone("BRT", -3*3600)
	assert.Equal(t, Date("2025-03-09"), DateOf(time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC).In(loc)))
}

func TestMacrosArithmetic(t *testing.T) {
	a := Macros{Calorias: 100, Proteinas: 10}
	b := Macros{Calorias: 300, Proteinas: 30, Carbo: 4}

	assert.Equal(t, Macros{Calorias: 400, Proteinas: 40, Carbo: 4}, a.Add(b))
	assert.Equal(t, Macros{Calorias: 200, Proteinas: 20, Carbo: 2}, a.Lerp(b, 0.5))
	assert.True(t, a.ApproxEqual(Macros{Calorias: 100.00001, Proteinas: 10}, 1e-4))
	assert.False(t, a.ApproxEqual(Macros{Calorias: 100.01, Proteinas: 10}, 1e-4))
	assert.Equal(t, 30.0, b.Get(Proteinas))
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("gordura")
	require.NoError(t, err)
	assert.Equal(t, Gordura, m)
	assert.Equal(t, "g", m.Unit())
	assert.Equal(t, "kcal", Calorias.Unit())

	_, err = ParseMetric("fibra")
	assert.Error(t, err)
}

func TestChartPointJSONKeepsMetadata(t *testing.T) {
	points := []ChartPoint{
		{Key: "2025-03-01", Totals: Macros{Calorias: 1}, Meta: DailyMeta{Year: 2025, Month: 3}},
		{Key: "2025-03-01", Meta: WeeklyMeta{WeekStart: "2025-03-01", WeekEnd: "2025-03-07", DaysInWeek: 7}},
		{Key: "2025-03", Meta: MonthlyMeta{Year: 2025, Month: 3, DaysInMonth: 10}},
	}
	data, err := json.Marshal(points)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"weekly"`)

	var back []ChartPoint
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, points, back)
	assert.Equal(t, 7, back[1].Meta.Days())
	assert.Equal(t, 202503, back[2].Meta.(MonthlyMeta).MonthKey())
}

func TestValidate(t *testing.T) {
	entry := FoodLogEntry{
		ID:          "6f1c1c2e-8d3b-4c55-9a51-1a1d3b0f2a10",
		UserID:      "u1",
		Description: "Arroz",
		Grams:       100,
		Date:        "2025-03-10",
	}
	assert.NoError(t, Validate(entry))

	entry.ID = "not-a-uuid"
	entry.Grams = 0
	err := Validate(entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ID (uuid)")
	assert.Contains(t, err.Error(), "Grams (gt)")

	assert.NoError(t, Validate(DefaultGoal()))
	assert.Error(t, Validate(Goal{Calorias: 2000}))
}

func TestGoalForDays(t *testing.T) {
	g := Goal{Calorias: 2000, Proteinas: 100, Carbo: 250, Gordura: 70}
	assert.Equal(t, Macros{Calorias: 14000, Proteinas: 700, Carbo: 1750, Gordura: 490}, g.ForDays(7))
}
