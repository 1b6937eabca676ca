package chart

import (
	"fmt"

	"dieti-tracker/internal/models"
)

// State is the drill-down level the navigator is showing.
type State int

const (
	// PeriodOverview shows monthly buckets (spans of a quarter or more).
	PeriodOverview State = iota
	// DailyPeriodOverview shows daily or weekly buckets (7 days / 1 month).
	DailyPeriodOverview
	// MonthDetail shows the days of one selected month.
	MonthDetail
	// WeekDetail shows the days of one selected weekly window.
	WeekDetail
)

func (s State) String() string {
	switch s {
	case PeriodOverview:
		return "period-overview"
	case DailyPeriodOverview:
		return "daily-period-overview"
	case MonthDetail:
		return "month-detail"
	case WeekDetail:
		return "week-detail"
	}
	return "unknown"
}

// ActionKind tells the caller what a selection did.
type ActionKind int

const (
	// ActionNone means the selection was not a valid transition.
	ActionNone ActionKind = iota
	// ActionNavigate means the dataset changed.
	ActionNavigate
	// ActionShowFoodLog asks the caller to show the food log of Action.Date.
	ActionShowFoodLog
)

type Action struct {
	Kind ActionKind
	Date models.Date
}

// DatasetKey identifies the shape of a dataset. Two datasets with the same
// key can be tweened value by value.
type DatasetKey struct {
	Span  Span
	Kind  models.BucketKind
	Count int
	First string
	Last  string
}

func (k DatasetKey) String() string {
	return fmt.Sprintf("%s|%s|%d|%s|%s", k.Span, k.Kind, k.Count, k.First, k.Last)
}

// KeyOf derives the dataset key of points displayed for span.
func KeyOf(span Span, points []models.ChartPoint) DatasetKey {
	k := DatasetKey{Span: span, Count: len(points)}
	if len(points) > 0 {
		k.Kind = points[0].Kind()
		k.First = points[0].Key
		k.Last = points[len(points)-1].Key
	}
	return k
}

// Navigator tracks the drill-down state of one chart. It is not safe for
// concurrent use; callers sequence events through their own loop.
type Navigator struct {
	span    Span
	rows    []models.DailyIntake
	state   State
	dataset []models.ChartPoint

	// selection that produced the current detail state
	monthKey  int
	weekStart models.Date
	weekEnd   models.Date
}

// NewNavigator opens the chart on span with the given daily rows.
func NewNavigator(span Span, rows []models.DailyIntake) *Navigator {
	n := &Navigator{}
	n.SetPeriod(span, rows)
	return n
}

// SetPeriod discards any drill-down and shows the overview of span.
func (n *Navigator) SetPeriod(span Span, rows []models.DailyIntake) {
	if _, ok := spanInfo[span]; !ok {
		span = DefaultSpan
	}
	n.span = span
	n.rows = sortedRows(rows)
	n.monthKey = 0
	n.weekStart, n.weekEnd = "", ""
	if span.Window() == WindowMonthly {
		n.state = PeriodOverview
	} else {
		n.state = DailyPeriodOverview
	}
	n.rebuild()
}

// Select handles a click on a point of the current dataset.
func (n *Navigator) Select(p models.ChartPoint) Action {
	switch meta := p.Meta.(type) {
	case models.MonthlyMeta:
		if n.state != PeriodOverview {
			return Action{}
		}
		n.state = MonthDetail
		n.monthKey = meta.MonthKey()
		n.rebuild()
		return Action{Kind: ActionNavigate}
	case models.WeeklyMeta:
		if n.state != DailyPeriodOverview {
			return Action{}
		}
		n.state = WeekDetail
		n.weekStart, n.weekEnd = meta.WeekStart, meta.WeekEnd
		n.rebuild()
		return Action{Kind: ActionNavigate}
	case models.DailyMeta:
		return Action{Kind: ActionShowFoodLog, Date: models.Date(p.Key)}
	}
	return Action{}
}

// Up leaves a detail state for the overview it came from. It reports
// whether the state changed.
func (n *Navigator) Up() bool {
	switch n.state {
	case MonthDetail:
		n.state = PeriodOverview
	case WeekDetail:
		n.state = DailyPeriodOverview
	default:
		return false
	}
	n.rebuild()
	return true
}

// UpsertRow replaces or inserts the row for r.Date and recomputes the
// current dataset without leaving the current state.
func (n *Navigator) UpsertRow(r models.DailyIntake) {
	for i := range n.rows {
		if n.rows[i].Date == r.Date {
			n.rows[i] = r
			n.rebuild()
			return
		}
	}
	n.rows = sortedRows(append(n.rows, r))
	n.rebuild()
}

func (n *Navigator) rebuild() {
	switch n.state {
	case MonthDetail:
		n.dataset = FilterDailyForMonth(n.rows, n.monthKey)
	case WeekDetail:
		n.dataset = FilterDailyForRange(n.rows, n.weekStart, n.weekEnd)
	default:
		n.dataset = Bucket(n.rows, n.span.Window())
	}
}

func (n *Navigator) State() State { return n.state }

func (n *Navigator) Span() Span { return n.span }

// Dataset returns the points of the current state.
func (n *Navigator) Dataset() []models.ChartPoint {
	out := make([]models.ChartPoint, len(n.dataset))
	copy(out, n.dataset)
	return out
}

// Rows returns the daily rows backing the chart.
func (n *Navigator) Rows() []models.DailyIntake {
	out := make([]models.DailyIntake, len(n.rows))
	copy(out, n.rows)
	return out
}

// Key returns the dataset key of the current dataset.
func (n *Navigator) Key() DatasetKey {
	return KeyOf(n.span, n.dataset)
}
