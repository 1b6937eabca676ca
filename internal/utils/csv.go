package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"dieti-tracker/internal/models"
)

// GenerateHistoryCSV writes an intake report: a summary against the goal,
// the bucketed chart points and the daily rows.
func GenerateHistoryCSV(label string, rows []models.DailyIntake, points []models.ChartPoint, goal models.Goal, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	defer csvWriter.Flush()

	var total models.Macros
	for _, r := range rows {
		total = total.Add(r.Macros)
	}
	days := len(rows)
	avg := models.Macros{}
	if days > 0 {
		avg = total.Scale(1 / float64(days))
	}

	// Header section
	header := [][]string{
		{"Intake Report"},
		{"Period", label},
		{"Generated", time.Now().Format("2006-01-02 15:04:05")},
		{},
		{"SUMMARY"},
		{"Metric", "Total", "Daily Average", "Daily Goal", "Average vs Goal"},
	}
	for _, row := range header {
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	goalMacros := goal.Macros()
	for _, m := range models.Metrics {
		pct := "N/A"
		if g := goalMacros.Get(m); g > 0 {
			pct = fmt.Sprintf("%.1f%%", avg.Get(m)/g*100)
		}
		row := []string{
			string(m),
			fmt.Sprintf("%.2f", total.Get(m)),
			fmt.Sprintf("%.2f", avg.Get(m)),
			fmt.Sprintf("%.2f", goalMacros.Get(m)),
			pct,
		}
		if err := csvWriter.Write(row); err != nil {
			return err
		}
	}
	if err := csvWriter.Write([]string{"Days logged", strconv.Itoa(days)}); err != nil {
		return err
	}
	if err := csvWriter.Write([]string{}); err != nil {
		return err
	}

	// Bucket section
	if len(points) > 0 {
		if err := csvWriter.Write([]string{"BUCKETS"}); err != nil {
			return err
		}
		if err := csvWriter.Write([]string{"Key", "Kind", "Days", "Calorias", "Proteinas", "Carbo", "Gordura"}); err != nil {
			return err
		}
		for _, p := range points {
			days := 1
			if p.Meta != nil {
				days = p.Meta.Days()
			}
			if err := csvWriter.Write(append([]string{p.Key, string(p.Kind()), strconv.Itoa(days)}, macroCells(p.Totals)...)); err != nil {
				return err
			}
		}
		if err := csvWriter.Write([]string{}); err != nil {
			return err
		}
	}

	// Daily section
	if len(rows) > 0 {
		if err := csvWriter.Write([]string{"DAILY INTAKE"}); err != nil {
			return err
		}
		if err := csvWriter.Write([]string{"Date", "Calorias", "Proteinas", "Carbo", "Gordura"}); err != nil {
			return err
		}
		for _, r := range rows {
			if err := csvWriter.Write(append([]string{r.Date.String()}, macroCells(r.Macros)...)); err != nil {
				return err
			}
		}
	}

	return nil
}

func macroCells(m models.Macros) []string {
	return []string{
		fmt.Sprintf("%.2f", m.Calorias),
		fmt.Sprintf("%.2f", m.Proteinas),
		fmt.Sprintf("%.2f", m.Carbo),
		fmt.Sprintf("%.2f", m.Gordura),
	}
}
