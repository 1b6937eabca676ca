package chart

import (
	"fmt"
	"sort"
	"strings"

	"dieti-tracker/internal/models"
)

// Window selects the granularity Bucket produces.
type Window int

const (
	// WindowDaily emits one point per row.
	WindowDaily Window = iota
	// WindowWeekly emits contiguous 7-day windows anchored at the earliest row.
	WindowWeekly
	// WindowMonthly emits one point per calendar month that has rows.
	WindowMonthly
)

func (w Window) String() string {
	switch w {
	case WindowDaily:
		return "daily"
	case WindowWeekly:
		return "weekly-window"
	case WindowMonthly:
		return "monthly"
	}
	return "unknown"
}

// Span is the requested history period.
type Span string

const (
	Span7Days    Span = "7d"
	Span1Month   Span = "1m"
	SpanQuarter  Span = "3m"
	SpanSemester Span = "6m"
	SpanYear     Span = "1y"
)

// DefaultSpan is the span a new chart opens with.
const DefaultSpan = Span7Days

// Spans lists the selectable periods in display order.
var Spans = []Span{Span7Days, Span1Month, SpanQuarter, SpanSemester, SpanYear}

var spanInfo = map[Span]struct {
	days   int
	label  string
	window Window
}{
	Span7Days:    {7, "7 dias", WindowDaily},
	Span1Month:   {30, "1 mês", WindowWeekly},
	SpanQuarter:  {90, "1 trimestre", WindowMonthly},
	SpanSemester: {180, "1 semestre", WindowMonthly},
	SpanYear:     {365, "1 ano", WindowMonthly},
}

// ParseSpan accepts either the short code ("1m") or the label ("1 mês").
func ParseSpan(s string) (Span, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return DefaultSpan, nil
	}
	for span, info := range spanInfo {
		if string(span) == s || info.label == s {
			return span, nil
		}
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Days is how many days of history the span requests.
func (s Span) Days() int { return spanInfo[s].days }

func (s Span) Label() string { return spanInfo[s].label }

// Window is the bucket granularity used to display the span.
func (s Span) Window() Window { return spanInfo[s].window }

// Bucket folds date-ordered daily rows into chart points of the given
// granularity. Empty input yields an empty result.
func Bucket(rows []models.DailyIntake, w Window) []models.ChartPoint {
	if len(rows) == 0 {
		return []models.ChartPoint{}
	}
	sorted := sortedRows(rows)
	switch w {
	case WindowWeekly:
		return bucketWeekly(sorted)
	case WindowMonthly:
		return bucketMonthly(sorted)
	default:
		return bucketDaily(sorted)
	}
}

func bucketDaily(rows []models.DailyIntake) []models.ChartPoint {
	points := make([]models.ChartPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, dailyPoint(r))
	}
	return points
}

func dailyPoint(r models.DailyIntake) models.ChartPoint {
	return models.ChartPoint{
		Key:    r.Date.String(),
		Totals: r.Macros,
		Meta:   models.DailyMeta{Year: r.Date.Year(), Month: int(r.Date.Month())},
	}
}

func bucketWeekly(rows []models.DailyIntake) []models.ChartPoint {
	first := rows[0].Date
	last := rows[len(rows)-1].Date

	var points []models.ChartPoint
	i := 0
	for start := first; !start.After(last); start = start.AddDays(7) {
		end := start.AddDays(6)
		if end.After(last) {
			end = last
		}
		var totals models.Macros
		for i < len(rows) && !rows[i].Date.After(end) {
			totals = totals.Add(rows[i].Macros)
			i++
		}
		points = append(points, models.ChartPoint{
			Key:    start.String(),
			Totals: totals,
			Meta: models.WeeklyMeta{
				WeekStart:  start,
				WeekEnd:    end,
				DaysInWeek: models.DaysBetween(start, end) + 1,
			},
		})
	}
	return points
}

func bucketMonthly(rows []models.DailyIntake) []models.ChartPoint {
	type acc struct {
		totals models.Macros
		days   int
	}
	byMonth := make(map[int]*acc)
	var keys []int
	for _, r := range rows {
		k := r.Date.MonthKey()
		a, ok := byMonth[k]
		if !ok {
			a = &acc{}
			byMonth[k] = a
			keys = append(keys, k)
		}
		a.totals = a.totals.Add(r.Macros)
		a.days++
	}
	sort.Ints(keys)

	points := make([]models.ChartPoint, 0, len(keys))
	for _, k := range keys {
		a := byMonth[k]
		points = append(points, models.ChartPoint{
			Key:    MonthKeyString(k),
			Totals: a.totals,
			Meta:   models.MonthlyMeta{Year: k / 100, Month: k % 100, DaysInMonth: a.days},
		})
	}
	return points
}

// MonthKeyString formats year*100+month as YYYY-MM.
func MonthKeyString(k int) string {
	return fmt.Sprintf("%04d-%02d", k/100, k%100)
}

// FilterDailyForMonth returns the rows of one month as daily points.
func FilterDailyForMonth(rows []models.DailyIntake, monthKey int) []models.ChartPoint {
	points := []models.ChartPoint{}
	for _, r := range sortedRows(rows) {
		if r.Date.MonthKey() == monthKey {
			points = append(points, dailyPoint(r))
		}
	}
	return points
}

// FilterDailyForRange returns the rows within [start, end] as daily points.
func FilterDailyForRange(rows []models.DailyIntake, start, end models.Date) []models.ChartPoint {
	points := []models.ChartPoint{}
	for _, r := range sortedRows(rows) {
		if !r.Date.Before(start) && !r.Date.After(end) {
			points = append(points, dailyPoint(r))
		}
	}
	return points
}

// GoalLine scales the daily goal to each point's bucket length.
func GoalLine(points []models.ChartPoint, goal models.Goal) []models.Macros {
	line := make([]models.Macros, len(points))
	for i, p := range points {
		days := 1
		if p.Meta != nil {
			days = p.Meta.Days()
		}
		line[i] = goal.ForDays(days)
	}
	return line
}

func sortedRows(rows []models.DailyIntake) []models.DailyIntake {
	out := make([]models.DailyIntake, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
