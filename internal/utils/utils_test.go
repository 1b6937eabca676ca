package utils

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dieti-tracker/internal/models"
)

func TestValidateGrams(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"150", 150, false},
		{" 150g ", 150, false},
		{"87,5", 87.5, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
		{"20000", 0, true},
	}
	for _, tt := range tests {
		got, err := ValidateGrams(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", ProgressBar(50, 100, 10))
	assert.Equal(t, "██████████", ProgressBar(250, 100, 10))
	assert.Equal(t, "█░░░░░░░░░", ProgressBar(0.1, 100, 10))
	assert.Equal(t, "░░░░░░░░░░", ProgressBar(0, 100, 10))
	assert.Equal(t, "░░░░░░░░░░", ProgressBar(10, 0, 10))
}

func TestBuildChartKeyboard(t *testing.T) {
	kb := BuildChartKeyboard(ChartKeyboard{
		Spans:      []string{"7d", "1m"},
		SpanLabels: []string{"7 dias", "1 mês"},
		ActiveSpan: "1m",
		Points:     []ChartButton{{"a", 0}, {"b", 1}, {"c", 2}, {"d", 3}, {"e", 4}},
		Metric:     models.Proteinas,
		CanGoUp:    true,
	})

	// spans, two point rows, metrics, back
	require.Len(t, kb.InlineKeyboard, 5)
	assert.Equal(t, "• 1 mês", kb.InlineKeyboard[0][1].Text)
	assert.Len(t, kb.InlineKeyboard[1], 4)
	assert.Equal(t, "chart_pt_4", *kb.InlineKeyboard[2][0].CallbackData)
	assert.Equal(t, "• proteinas", kb.InlineKeyboard[3][1].Text)
	assert.Equal(t, "chart_up", *kb.InlineKeyboard[4][0].CallbackData)
}

func TestGenerateHistoryCSV(t *testing.T) {
	rows := []models.DailyIntake{
		{Date: "2025-03-01", Macros: models.Macros{Calorias: 2000, Proteinas: 100}},
		{Date: "2025-03-02", Macros: models.Macros{Calorias: 1000, Proteinas: 50}},
	}
	points := []models.ChartPoint{{Key: "2025-03", Totals: rows[0].Macros.Add(rows[1].Macros),
		Meta: models.MonthlyMeta{Year: 2025, Month: 3, DaysInMonth: 2}}}

	var buf bytes.Buffer
	require.NoError(t, GenerateHistoryCSV("1 mês", rows, points, models.DefaultGoal(), &buf))

	r := csv.NewReader(strings.NewReader(buf.String()))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	var found bool
	for _, rec := range records {
		if rec[0] == "calorias" {
			found = true
			assert.Equal(t, "3000.00", rec[1])
			assert.Equal(t, "1500.00", rec[2])
		}
	}
	assert.True(t, found)
	assert.Contains(t, buf.String(), "2025-03,monthly,2,3000.00")
	assert.Contains(t, buf.String(), "2025-03-02,1000.00,50.00")
}
