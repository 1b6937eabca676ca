package models

import "encoding/json"

// BucketKind discriminates the granularity of a ChartPoint.
type BucketKind string

const (
	KindDaily   BucketKind = "daily"
	KindWeekly  BucketKind = "weekly"
	KindMonthly BucketKind = "monthly"
)

// BucketMeta is implemented by DailyMeta, WeeklyMeta and MonthlyMeta only.
// Consumers type-switch on it.
type BucketMeta interface {
	Kind() BucketKind
	// Days is the number of daily rows the bucket stands for.
	Days() int
	sealed()
}

type DailyMeta struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type WeeklyMeta struct {
	WeekStart  Date `json:"weekStart"`
	WeekEnd    Date `json:"weekEnd"`
	DaysInWeek int  `json:"daysInWeek"`
}

type MonthlyMeta struct {
	Year        int `json:"year"`
	Month       int `json:"month"`
	DaysInMonth int `json:"daysInMonth"`
}

func (DailyMeta) Kind() BucketKind   { return KindDaily }
func (WeeklyMeta) Kind() BucketKind  { return KindWeekly }
func (MonthlyMeta) Kind() BucketKind { return KindMonthly }

func (DailyMeta) Days() int     { return 1 }
func (m WeeklyMeta) Days() int  { return m.DaysInWeek }
func (m MonthlyMeta) Days() int { return m.DaysInMonth }

func (DailyMeta) sealed()   {}
func (WeeklyMeta) sealed()  {}
func (MonthlyMeta) sealed() {}

// MonthKey returns year*100+month.
func (m MonthlyMeta) MonthKey() int { return m.Year*100 + m.Month }

// ChartPoint is one rendered unit of the history chart.
type ChartPoint struct {
	Key    string     `json:"key"`
	Totals Macros     `json:"totals"`
	Meta   BucketMeta `json:"-"`
}

// Kind returns the bucket kind of the point, or "" when it has no metadata.
func (p ChartPoint) Kind() BucketKind {
	if p.Meta == nil {
		return ""
	}
	return p.Meta.Kind()
}

type chartPointJSON struct {
	Key    string          `json:"key"`
	Totals Macros          `json:"totals"`
	Kind   BucketKind      `json:"kind"`
	Meta   json.RawMessage `json:"metadata"`
}

func (p ChartPoint) MarshalJSON() ([]byte, error) {
	meta, err := json.Marshal(p.Meta)
	if err != nil {
		return nil, err
	}
	return json.Marshal(chartPointJSON{Key: p.Key, Totals: p.Totals, Kind: p.Kind(), Meta: meta})
}

func (p *ChartPoint) UnmarshalJSON(data []byte) error {
	var raw chartPointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Key = raw.Key
	p.Totals = raw.Totals
	switch raw.Kind {
	case KindDaily:
		var m DailyMeta
		if err := json.Unmarshal(raw.Meta, &m); err != nil {
			return err
		}
		p.Meta = m
	case KindWeekly:
		var m WeeklyMeta
		if err := json.Unmarshal(raw.Meta, &m); err != nil {
			return err
		}
		p.Meta = m
	case KindMonthly:
		var m MonthlyMeta
		if err := json.Unmarshal(raw.Meta, &m); err != nil {
			return err
		}
		p.Meta = m
	default:
		p.Meta = nil
	}
	return nil
}
