package handlers

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dieti-tracker/internal/chart"
	"dieti-tracker/internal/models"
	"dieti-tracker/internal/utils"
)

// maxChartViews bounds how many chart messages keep reacting to buttons and
// totals changes.
const maxChartViews = 5

// chartView is one chart message. Lock order: the animator's lock may be
// held when mu is taken (sinks), so mu is never held while calling the
// animator.
type chartView struct {
	bot    Sender
	chatID int64
	msgID  int
	anim   *chart.Animator

	mu       sync.Mutex
	nav      *chart.Navigator
	goal     models.Goal
	points   []models.ChartPoint
	metric   models.Metric
	values   []float64
	lastText string
}

func newChartView(bot Sender, chatID int64, nav *chart.Navigator, goal models.Goal) *chartView {
	return &chartView{
		bot:    bot,
		chatID: chatID,
		nav:    nav,
		goal:   goal,
		points: chart.ZeroBaseline(nav.Dataset()),
		metric: models.Calorias,
	}
}

// SendChart sends a history chart for the period in arg and animates it in.
func (h *CommandHandler) SendChart(chatID int64, arg string) {
	span, err := chart.ParseSpan(arg)
	if err != nil {
		h.send(chatID, "Unknown period. Use 7d, 1m, 3m, 6m or 1y.")
		return
	}
	rows, err := h.history(span)
	if err != nil {
		log.Println("Failed to fetch history for chart:", err)
		h.send(chatID, "Error fetching history.")
		return
	}

	v := newChartView(h.bot, chatID, chart.NewNavigator(span, rows), h.ledger.Session().Goals)
	v.mu.Lock()
	text, kb := v.renderLocked()
	v.lastText = text
	v.mu.Unlock()

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	sent, err := h.bot.Send(msg)
	if err != nil {
		log.Println("Failed to send chart:", err)
		return
	}
	v.msgID = sent.MessageID
	v.anim = chart.NewAnimator(h.sched, v.onFrame, chart.WithMetricSink(v.onMetric))

	h.mu.Lock()
	h.charts[v.msgID] = v
	h.evictChartsLocked()
	h.mu.Unlock()

	v.transition(true)
}

func (h *CommandHandler) history(span chart.Span) ([]models.DailyIntake, error) {
	ctx, cancel := h.context()
	defer cancel()
	return h.api.GetHistory(ctx, span.Days())
}

func (h *CommandHandler) evictChartsLocked() {
	for len(h.charts) > maxChartViews {
		oldest := -1
		for id := range h.charts {
			if oldest == -1 || id < oldest {
				oldest = id
			}
		}
		h.charts[oldest].anim.Stop()
		delete(h.charts, oldest)
	}
}

func (h *CommandHandler) chartViews() []*chartView {
	h.mu.Lock()
	defer h.mu.Unlock()
	views := make([]*chartView, 0, len(h.charts))
	for _, v := range h.charts {
		views = append(views, v)
	}
	return views
}

// HandleChartCallback routes a chart button. data is the callback payload
// without the "chart_" prefix.
func (h *CommandHandler) HandleChartCallback(chatID int64, messageID int, data string) {
	h.mu.Lock()
	v := h.charts[messageID]
	h.mu.Unlock()
	if v == nil {
		h.send(chatID, "This chart expired, send /chart again.")
		return
	}

	switch {
	case strings.HasPrefix(data, "period_"):
		span, err := chart.ParseSpan(strings.TrimPrefix(data, "period_"))
		if err != nil {
			return
		}
		rows, err := h.history(span)
		if err != nil {
			log.Println("Failed to fetch history for chart:", err)
			h.send(chatID, "Error fetching history.")
			return
		}
		v.mu.Lock()
		v.nav.SetPeriod(span, rows)
		v.mu.Unlock()
		v.transition(true)

	case strings.HasPrefix(data, "pt_"):
		idx, err := strconv.Atoi(strings.TrimPrefix(data, "pt_"))
		if err != nil {
			return
		}
		v.mu.Lock()
		dataset := v.nav.Dataset()
		if idx < 0 || idx >= len(dataset) {
			v.mu.Unlock()
			return
		}
		action := v.nav.Select(dataset[idx])
		v.mu.Unlock()

		switch action.Kind {
		case chart.ActionNavigate:
			v.transition(true)
		case chart.ActionShowFoodLog:
			h.SendFoodLog(chatID, action.Date.String())
		}

	case strings.HasPrefix(data, "metric_"):
		metric, err := models.ParseMetric(strings.TrimPrefix(data, "metric_"))
		if err != nil {
			return
		}
		v.anim.AnimateMetric(metric)

	case data == "up":
		v.mu.Lock()
		changed := v.nav.Up()
		v.mu.Unlock()
		if changed {
			v.transition(true)
		}
	}
}

// transition hands the navigator's current dataset to the animator.
func (v *chartView) transition(animate bool) {
	v.mu.Lock()
	key, dataset := v.nav.Key(), v.nav.Dataset()
	v.mu.Unlock()

	if animate {
		v.anim.AnimateTo(key, dataset)
	} else {
		v.anim.Snap(key, dataset)
	}
}

// upsertToday folds a new total for date into the chart.
func (v *chartView) upsertToday(date models.Date, totals models.Macros, animate bool) {
	v.mu.Lock()
	v.nav.UpsertRow(models.DailyIntake{Date: date, Macros: totals})
	v.mu.Unlock()
	v.transition(animate)
}

func (v *chartView) onFrame(f chart.Frame) {
	v.mu.Lock()
	v.points = f.Points
	v.values = nil
	text, kb := v.renderLocked()
	v.mu.Unlock()
	v.edit(text, kb)
}

func (v *chartView) onMetric(f chart.MetricFrame) {
	v.mu.Lock()
	v.metric = f.Metric
	if len(f.Values) == len(v.points) {
		v.values = f.Values
	}
	text, kb := v.renderLocked()
	v.mu.Unlock()
	v.edit(text, kb)
}

func (v *chartView) edit(text string, kb tgbotapi.InlineKeyboardMarkup) {
	v.mu.Lock()
	if text == v.lastText {
		v.mu.Unlock()
		return
	}
	v.lastText = text
	v.mu.Unlock()

	msg := tgbotapi.NewEditMessageTextAndMarkup(v.chatID, v.msgID, text, kb)
	if _, err := v.bot.Send(msg); err != nil {
		log.Println("Failed to update chart:", err)
	}
}

func (v *chartView) renderLocked() (string, tgbotapi.InlineKeyboardMarkup) {
	span := v.nav.Span()
	state := v.nav.State()

	values := v.values
	if values == nil {
		values = make([]float64, len(v.points))
		for i, p := range v.points {
			values[i] = p.Totals.Get(v.metric)
		}
	}
	goalLine := chart.GoalLine(v.points, v.goal)

	scale := 0.0
	for i := range values {
		scale = max(scale, values[i], goalLine[i].Get(v.metric))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📈 %s · %s (%s)\n", span.Label(), v.metric, stateTitle(state, span))
	b.WriteString("═══════════════════\n")
	if len(v.points) == 0 {
		b.WriteString("\nNo intake recorded in this period.")
	}
	buttons := make([]utils.ChartButton, 0, len(v.points))
	for i, p := range v.points {
		label := pointLabel(p)
		fmt.Fprintf(&b, "%-10s %s %s\n", label,
			utils.ProgressBar(values[i], scale, 10),
			utils.FormatMetric(v.metric, values[i]))
		buttons = append(buttons, utils.ChartButton{Label: label, Index: i})
	}
	if len(v.points) > 0 {
		fmt.Fprintf(&b, "\nGoal per day: %s", utils.FormatMetric(v.metric, v.goal.Macros().Get(v.metric)))
	}

	labels := make([]string, len(chart.Spans))
	codes := make([]string, len(chart.Spans))
	for i, s := range chart.Spans {
		codes[i] = string(s)
		labels[i] = s.Label()
	}
	kb := utils.BuildChartKeyboard(utils.ChartKeyboard{
		Spans:      codes,
		SpanLabels: labels,
		ActiveSpan: string(span),
		Points:     buttons,
		Metric:     v.metric,
		CanGoUp:    state == chart.MonthDetail || state == chart.WeekDetail,
	})
	return b.String(), kb
}

func stateTitle(s chart.State, span chart.Span) string {
	switch s {
	case chart.MonthDetail:
		return "month detail"
	case chart.WeekDetail:
		return "week detail"
	case chart.PeriodOverview:
		return "by month"
	}
	if span.Window() == chart.WindowWeekly {
		return "by week"
	}
	return "by day"
}

func pointLabel(p models.ChartPoint) string {
	switch meta := p.Meta.(type) {
	case models.DailyMeta:
		d := models.Date(p.Key)
		return fmt.Sprintf("%02d/%02d", d.Time().Day(), int(d.Month()))
	case models.WeeklyMeta:
		return fmt.Sprintf("sem %02d/%02d", meta.WeekStart.Time().Day(), int(meta.WeekStart.Month()))
	case models.MonthlyMeta:
		return fmt.Sprintf("%02d/%d", meta.Month, meta.Year)
	}
	return p.Key
}
