package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dieti-tracker/internal/models"
)

func row(date string, cal float64) models.DailyIntake {
	return models.DailyIntake{
		Date: models.Date(date),
		Macros: models.Macros{
			Calorias:  cal,
			Proteinas: cal / 10,
			Carbo:     cal / 8,
			Gordura:   cal / 30,
		},
	}
}

func consecutiveRows(start string, n int) []models.DailyIntake {
	d := models.Date(start)
	rows := make([]models.DailyIntake, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, row(d.AddDays(i).String(), float64(1000+i*10)))
	}
	return rows
}

func TestBucketEmptyRows(t *testing.T) {
	for _, w := range []Window{WindowDaily, WindowWeekly, WindowMonthly} {
		points := Bucket(nil, w)
		assert.NotNil(t, points, w.String())
		assert.Empty(t, points, w.String())
	}
}

func TestBucketDailyIsIdentity(t *testing.T) {
	rows := []models.DailyIntake{row("2025-03-01", 1800), row("2025-03-02", 2100), row("2025-03-05", 950)}

	points := Bucket(rows, WindowDaily)

	require.Len(t, points, len(rows))
	for i, p := range points {
		assert.Equal(t, models.KindDaily, p.Kind())
		assert.Equal(t, rows[i].Date.String(), p.Key)
		assert.Equal(t, rows[i].Macros, p.Totals)
		assert.Equal(t, models.DailyMeta{Year: 2025, Month: 3}, p.Meta)
	}
}

func TestBucketWeeklyTenDays(t *testing.T) {
	rows := consecutiveRows("2025-01-10", 10)

	points := Bucket(rows, WindowWeekly)

	require.Len(t, points, 2)
	first := points[0].Meta.(models.WeeklyMeta)
	second := points[1].Meta.(models.WeeklyMeta)
	assert.Equal(t, models.WeeklyMeta{WeekStart: "2025-01-10", WeekEnd: "2025-01-16", DaysInWeek: 7}, first)
	assert.Equal(t, models.WeeklyMeta{WeekStart: "2025-01-17", WeekEnd: "2025-01-19", DaysInWeek: 3}, second)

	var want models.Macros
	for _, r := range rows[7:] {
		want = want.Add(r.Macros)
	}
	assert.True(t, want.ApproxEqual(points[1].Totals, 1e-9))
}

func TestBucketWeeklyKeepsEmptyWindows(t *testing.T) {
	rows := []models.DailyIntake{row("2025-01-01", 1000), row("2025-01-20", 500)}

	points := Bucket(rows, WindowWeekly)

	require.Len(t, points, 3)
	assert.Equal(t, 1000.0, points[0].Totals.Calorias)
	assert.Equal(t, models.Macros{}, points[1].Totals)
	assert.Equal(t, 500.0, points[2].Totals.Calorias)
	last := points[2].Meta.(models.WeeklyMeta)
	assert.Equal(t, models.Date("2025-01-20"), last.WeekEnd)
	assert.Equal(t, 6, last.DaysInWeek)
}

func TestBucketMonthlySumsAndCounts(t *testing.T) {
	rows := []models.DailyIntake{
		row("2024-12-30", 1000),
		row("2025-01-02", 1200),
		row("2025-01-15", 1300),
		row("2025-01-31", 1400),
		row("2025-02-01", 900),
	}

	points := Bucket(rows, WindowMonthly)

	require.Len(t, points, 3)
	assert.Equal(t, []string{"2024-12", "2025-01", "2025-02"}, []string{points[0].Key, points[1].Key, points[2].Key})

	jan := points[1]
	assert.Equal(t, models.MonthlyMeta{Year: 2025, Month: 1, DaysInMonth: 3}, jan.Meta)
	var want models.Macros
	for _, r := range rows[1:4] {
		want = want.Add(r.Macros)
	}
	assert.True(t, want.ApproxEqual(jan.Totals, 1e-9))
}

func TestBucketToleratesUnorderedInput(t *testing.T) {
	rows := []models.DailyIntake{row("2025-02-03", 1), row("2025-02-01", 2)}

	points := Bucket(rows, WindowDaily)

	require.Len(t, points, 2)
	assert.Equal(t, "2025-02-01", points[0].Key)
}

func TestFilterDailyForRange(t *testing.T) {
	rows := consecutiveRows("2025-05-01", 20)

	points := FilterDailyForRange(rows, "2025-05-08", "2025-05-14")

	require.Len(t, points, 7)
	assert.Equal(t, "2025-05-08", points[0].Key)
	assert.Equal(t, "2025-05-14", points[6].Key)
}

func TestGoalLineScalesByBucketDays(t *testing.T) {
	goal := models.Goal{Calorias: 2000, Proteinas: 150, Carbo: 250, Gordura: 70}
	rows := []models.DailyIntake{row("2025-01-01", 1), row("2025-01-02", 1), row("2025-02-01", 1)}

	line := GoalLine(Bucket(rows, WindowMonthly), goal)

	require.Len(t, line, 2)
	assert.Equal(t, 4000.0, line[0].Calorias)
	assert.Equal(t, 2000.0, line[1].Calorias)
}

func TestParseSpan(t *testing.T) {
	span, err := ParseSpan("1 trimestre")
	require.NoError(t, err)
	assert.Equal(t, SpanQuarter, span)
	assert.Equal(t, WindowMonthly, span.Window())

	span, err = ParseSpan("1m")
	require.NoError(t, err)
	assert.Equal(t, 30, span.Days())
	assert.Equal(t, WindowWeekly, span.Window())

	span, err = ParseSpan("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSpan, span)

	_, err = ParseSpan("2 weeks")
	assert.Error(t, err)
}
