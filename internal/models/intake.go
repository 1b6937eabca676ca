package models

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

// Date is a calendar date in YYYY-MM-DD form. Lexical order equals
// chronological order, which the store relies on for range queries.
type Date string

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(t.Format(DateLayout)), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Time returns midnight UTC of the date. Invalid dates yield the zero time.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) Year() int          { return d.Time().Year() }
func (d Date) Month() time.Month  { return d.Time().Month() }
func (d Date) String() string     { return string(d) }
func (d Date) Before(o Date) bool { return d < o }
func (d Date) After(o Date) bool  { return d > o }

// MonthKey returns year*100+month, the ordering key of monthly buckets.
func (d Date) MonthKey() int {
	t := d.Time()
	return t.Year()*100 + int(t.Month())
}

// DaysBetween returns the number of days from a to b (b-a).
func DaysBetween(a, b Date) int {
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}

// Metric names one of the four tracked macro fields.
type Metric string

const (
	Calorias  Metric = "calorias"
	Proteinas Metric = "proteinas"
	Carbo     Metric = "carbo"
	Gordura   Metric = "gordura"
)

// Metrics lists the tracked fields in display order.
var Metrics = []Metric{Calorias, Proteinas, Carbo, Gordura}

// ParseMetric accepts one of the field names.
func ParseMetric(s string) (Metric, error) {
	for _, m := range Metrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Unit returns the display unit of the metric.
func (m Metric) Unit() string {
	if m == Calorias {
		return "kcal"
	}
	return "g"
}

// Macros holds the four macro totals.
type Macros struct {
	Calorias  float64 `bson:"calorias" json:"calorias"`
	Proteinas float64 `bson:"proteinas" json:"proteinas"`
	Carbo     float64 `bson:"carbo" json:"carbo"`
	Gordura   float64 `bson:"gordura" json:"gordura"`
}

func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calorias:  m.Calorias + o.Calorias,
		Proteinas: m.Proteinas + o.Proteinas,
		Carbo:     m.Carbo + o.Carbo,
		Gordura:   m.Gordura + o.Gordura,
	}
}

func (m Macros) Scale(f float64) Macros {
	return Macros{
		Calorias:  m.Calorias * f,
		Proteinas: m.Proteinas * f,
		Carbo:     m.Carbo * f,
		Gordura:   m.Gordura * f,
	}
}

// Lerp returns m + (to-m)*t for every field.
func (m Macros) Lerp(to Macros, t float64) Macros {
	return Macros{
		Calorias:  m.Calorias + (to.Calorias-m.Calorias)*t,
		Proteinas: m.Proteinas + (to.Proteinas-m.Proteinas)*t,
		Carbo:     m.Carbo + (to.Carbo-m.Carbo)*t,
		Gordura:   m.Gordura + (to.Gordura-m.Gordura)*t,
	}
}

// ApproxEqual reports whether every field differs by at most eps.
func (m Macros) ApproxEqual(o Macros, eps float64) bool {
	return math.Abs(m.Calorias-o.Calorias) <= eps &&
		math.Abs(m.Proteinas-o.Proteinas) <= eps &&
		math.Abs(m.Carbo-o.Carbo) <= eps &&
		math.Abs(m.Gordura-o.Gordura) <= eps
}

// Get returns the value of a single field.
func (m Macros) Get(metric Metric) float64 {
	switch metric {
	case Calorias:
		return m.Calorias
	case Proteinas:
		return m.Proteinas
	case Carbo:
		return m.Carbo
	case Gordura:
		return m.Gordura
	}
	return 0
}

// Sanitized replaces NaN and negative values with zero.
func (m Macros) Sanitized() Macros {
	clean := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0
		}
		return v
	}
	return Macros{
		Calorias:  clean(m.Calorias),
		Proteinas: clean(m.Proteinas),
		Carbo:     clean(m.Carbo),
		Gordura:   clean(m.Gordura),
	}
}

// DailyIntake is the per-user, per-day aggregate of recorded food.
type DailyIntake struct {
	UserID string `bson:"user_id" json:"user_id,omitempty"`
	Date   Date   `bson:"date" json:"date"`
	Macros `bson:",inline"`
}
