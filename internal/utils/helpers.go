package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dieti-tracker/internal/models"
)

// MaxGrams rejects obviously mistyped amounts.
const MaxGrams = 10000

// ValidateGrams validates and parses a gram amount such as "150", "150g"
// or "87,5".
func ValidateGrams(text string) (float64, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.TrimSpace(strings.TrimSuffix(text, "g"))
	text = strings.ReplaceAll(text, ",", ".")

	grams, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(grams) || math.IsInf(grams, 0) {
		return 0, fmt.Errorf("invalid amount format")
	}

	if grams <= 0 {
		return 0, fmt.Errorf("grams must be greater than zero")
	}
	if grams > MaxGrams {
		return 0, fmt.Errorf("grams must be at most %d", MaxGrams)
	}

	return grams, nil
}

// ProgressBar draws value against goal as a fixed-width bar.
func ProgressBar(value, goal float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if goal > 0 && value > 0 {
		filled = int(math.Round(value / goal * float64(width)))
		if filled == 0 {
			filled = 1
		}
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// FormatMetric prints value with the unit of metric.
func FormatMetric(metric models.Metric, value float64) string {
	if metric == models.Calorias {
		return fmt.Sprintf("%.0f %s", value, metric.Unit())
	}
	return fmt.Sprintf("%.1f %s", value, metric.Unit())
}

// FormatMacros prints all four fields on one line.
func FormatMacros(m models.Macros) string {
	return fmt.Sprintf("%.0f kcal · P %.1fg · C %.1fg · G %.1fg", m.Calorias, m.Proteinas, m.Carbo, m.Gordura)
}

// BuildSearchKeyboard builds one button per search result.
func BuildSearchKeyboard(items []models.NutritionalInfo) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, item := range items {
		label := item.Description
		if item.Type == models.ItemRecipe {
			label = "🍲 " + label
		}
		if len([]rune(label)) > 60 {
			label = string([]rune(label)[:57]) + "..."
		}
		btn := tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("food_%d", i))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ChartButton is one selectable point of the chart keyboard.
type ChartButton struct {
	Label string
	Index int
}

// ChartKeyboard describes the controls under a chart message.
type ChartKeyboard struct {
	Spans      []string
	SpanLabels []string
	ActiveSpan string
	Points     []ChartButton
	Metric     models.Metric
	CanGoUp    bool
}

// BuildChartKeyboard builds the period row, the point buttons (four per
// row), the metric row and the back button.
func BuildChartKeyboard(k ChartKeyboard) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	var spanRow []tgbotapi.InlineKeyboardButton
	for i, span := range k.Spans {
		label := k.SpanLabels[i]
		if span == k.ActiveSpan {
			label = "• " + label
		}
		spanRow = append(spanRow, tgbotapi.NewInlineKeyboardButtonData(label, "chart_period_"+span))
	}
	if len(spanRow) > 0 {
		rows = append(rows, spanRow)
	}

	for i := 0; i < len(k.Points); i += 4 {
		end := min(i+4, len(k.Points))
		var row []tgbotapi.InlineKeyboardButton
		for _, p := range k.Points[i:end] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(p.Label, fmt.Sprintf("chart_pt_%d", p.Index)))
		}
		rows = append(rows, row)
	}

	var metricRow []tgbotapi.InlineKeyboardButton
	for _, m := range models.Metrics {
		label := string(m)
		if m == k.Metric {
			label = "• " + label
		}
		metricRow = append(metricRow, tgbotapi.NewInlineKeyboardButtonData(label, "chart_metric_"+string(m)))
	}
	rows = append(rows, metricRow)

	if k.CanGoUp {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬆️ Voltar", "chart_up"),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
