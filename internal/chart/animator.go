package chart

import (
	"math"
	"sync"
	"time"

	"dieti-tracker/internal/models"
)

const (
	// DefaultDuration is the length of a dataset transition.
	DefaultDuration = 1000 * time.Millisecond
	// DefaultMetricDuration is the length of a metric switch.
	DefaultMetricDuration = 400 * time.Millisecond
)

// EaseOutCubic maps linear progress in [0,1] to 1-(1-p)^3.
func EaseOutCubic(p float64) float64 {
	p = clamp01(p)
	return 1 - math.Pow(1-p, 3)
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Progress returns the clamped fraction of duration elapsed since start.
func Progress(start, now time.Time, duration time.Duration) float64 {
	if duration <= 0 {
		return 1
	}
	return clamp01(float64(now.Sub(start)) / float64(duration))
}

// Interpolate blends from towards to by t. Keys and metadata come from to.
// A missing entry in from counts as zero totals.
func Interpolate(from, to []models.ChartPoint, t float64) []models.ChartPoint {
	out := make([]models.ChartPoint, len(to))
	for i, p := range to {
		var start models.Macros
		if i < len(from) {
			start = from[i].Totals
		}
		out[i] = models.ChartPoint{Key: p.Key, Meta: p.Meta, Totals: start.Lerp(p.Totals, t)}
	}
	return out
}

// ZeroBaseline returns target with every total set to zero.
func ZeroBaseline(target []models.ChartPoint) []models.ChartPoint {
	out := make([]models.ChartPoint, len(target))
	for i, p := range target {
		out[i] = models.ChartPoint{Key: p.Key, Meta: p.Meta}
	}
	return out
}

// Frame is one rendered step of a dataset transition.
type Frame struct {
	Key      DatasetKey
	Points   []models.ChartPoint
	Progress float64
	Final    bool
}

// MetricFrame is one step of a metric switch.
type MetricFrame struct {
	Metric models.Metric
	Values []float64
	Final  bool
}

type AnimatorOption func(*Animator)

func WithDuration(d time.Duration) AnimatorOption {
	return func(a *Animator) { a.duration = d }
}

func WithMetricDuration(d time.Duration) AnimatorOption {
	return func(a *Animator) { a.metricDuration = d }
}

// WithMetricSink receives frames of the metric switch path.
func WithMetricSink(fn func(MetricFrame)) AnimatorOption {
	return func(a *Animator) { a.metricSink = fn }
}

// Animator tweens the displayed dataset of one chart. At most one dataset
// transition and one metric transition are in flight at a time; starting a
// new one cancels the previous before its first frame.
//
// Sinks run with the animator's lock held so frames of different
// transitions never interleave. A sink must not call back into the Animator.
type Animator struct {
	mu             sync.Mutex
	sched          Scheduler
	sink           func(Frame)
	metricSink     func(MetricFrame)
	duration       time.Duration
	metricDuration time.Duration

	key       DatasetKey
	target    []models.ChartPoint
	displayed []models.ChartPoint
	gen       uint64
	cancel    func()

	metric       models.Metric
	metricValues []float64
	metricGen    uint64
	metricCancel func()
}

func NewAnimator(sched Scheduler, sink func(Frame), opts ...AnimatorOption) *Animator {
	a := &Animator{
		sched:          sched,
		sink:           sink,
		duration:       DefaultDuration,
		metricDuration: DefaultMetricDuration,
		metric:         models.Calorias,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnimateTo starts a transition to target. When key matches the displayed
// dataset the tween starts from the values on screen, otherwise from zero.
func (a *Animator) AnimateTo(key DatasetKey, target []models.ChartPoint) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()
	a.gen++
	gen := a.gen

	var from []models.ChartPoint
	if key == a.key && len(a.displayed) == len(target) {
		from = clonePoints(a.displayed)
	} else {
		from = ZeroBaseline(target)
	}
	a.key = key
	a.target = clonePoints(target)
	to := a.target
	start := a.sched.Now()

	a.cancel = a.sched.Every(func(now time.Time) bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		if gen != a.gen {
			return false
		}
		p := Progress(start, now, a.duration)
		if p >= 1 {
			a.displayed = clonePoints(to)
			a.cancel = nil
			a.emit(Frame{Key: key, Points: clonePoints(to), Progress: 1, Final: true})
			return false
		}
		a.displayed = Interpolate(from, to, EaseOutCubic(p))
		a.emit(Frame{Key: key, Points: clonePoints(a.displayed), Progress: p})
		return true
	})
}

// Snap replaces the displayed dataset without a transition and emits a
// single final frame. Used for silent corrections.
func (a *Animator) Snap(key DatasetKey, target []models.ChartPoint) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()
	a.gen++
	a.key = key
	a.target = clonePoints(target)
	a.displayed = clonePoints(target)
	a.emit(Frame{Key: key, Points: clonePoints(target), Progress: 1, Final: true})
}

// AnimateMetric switches the plotted field by tweening the per-point scalar
// series only. It cancels a previous metric switch, not a dataset transition.
func (a *Animator) AnimateMetric(metric models.Metric) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.metricCancel != nil {
		a.metricCancel()
		a.metricCancel = nil
	}
	a.metricGen++
	gen := a.metricGen

	to := make([]float64, len(a.target))
	for i, p := range a.target {
		to[i] = p.Totals.Get(metric)
	}
	from := make([]float64, len(to))
	if len(a.metricValues) == len(to) {
		copy(from, a.metricValues)
	} else {
		for i, p := range a.displayed {
			if i < len(from) {
				from[i] = p.Totals.Get(a.metric)
			}
		}
	}
	a.metric = metric
	start := a.sched.Now()

	a.metricCancel = a.sched.Every(func(now time.Time) bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		if gen != a.metricGen {
			return false
		}
		p := Progress(start, now, a.metricDuration)
		if p >= 1 {
			a.metricValues = append([]float64(nil), to...)
			a.metricCancel = nil
			a.emitMetric(MetricFrame{Metric: metric, Values: append([]float64(nil), to...), Final: true})
			return false
		}
		e := EaseOutCubic(p)
		vals := make([]float64, len(to))
		for i := range to {
			vals[i] = from[i] + (to[i]-from[i])*e
		}
		a.metricValues = vals
		a.emitMetric(MetricFrame{Metric: metric, Values: append([]float64(nil), vals...)})
		return true
	})
}

// Stop cancels any running transition, leaving the displayed values as
// they are.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
	a.gen++
	if a.metricCancel != nil {
		a.metricCancel()
		a.metricCancel = nil
	}
	a.metricGen++
}

// Running reports whether a dataset transition is in flight.
func (a *Animator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// Displayed returns the values currently on screen.
func (a *Animator) Displayed() []models.ChartPoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	return clonePoints(a.displayed)
}

// Metric returns the field currently plotted.
func (a *Animator) Metric() models.Metric {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metric
}

func (a *Animator) stopLocked() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	// A new dataset invalidates the series of the metric path.
	a.metricValues = nil
}

func (a *Animator) emit(f Frame) {
	if a.sink != nil {
		a.sink(f)
	}
}

func (a *Animator) emitMetric(f MetricFrame) {
	if a.metricSink != nil {
		a.metricSink(f)
	}
}

func clonePoints(points []models.ChartPoint) []models.ChartPoint {
	if points == nil {
		return nil
	}
	out := make([]models.ChartPoint, len(points))
	copy(out, points)
	return out
}
