package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dieti-tracker/internal/chart"
	"dieti-tracker/internal/config"
	"dieti-tracker/internal/ledger"
	"dieti-tracker/internal/models"
	"dieti-tracker/internal/utils"
)

// maxSearchResults is how many search results are offered as buttons.
const maxSearchResults = 8

// Sender is the part of *tgbotapi.BotAPI the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// API is the read side of the dieti service.
type API interface {
	GetHistory(ctx context.Context, days int) ([]models.DailyIntake, error)
	GetFoodLog(ctx context.Context, date models.Date) ([]models.FoodLogEntry, error)
	Search(ctx context.Context, query string) ([]models.NutritionalInfo, error)
}

// CommandHandler handles bot commands
type CommandHandler struct {
	bot     Sender
	api     API
	config  *config.Config
	ledger  *ledger.Ledger
	sched   chart.Scheduler
	timeout time.Duration

	mu       sync.Mutex
	charts   map[int]*chartView
	results  map[int64][]models.NutritionalInfo
	selected map[int64]*models.NutritionalInfo
}

type Option func(*CommandHandler)

// WithScheduler sets the scheduler driving chart animations.
func WithScheduler(s chart.Scheduler) Option {
	return func(h *CommandHandler) { h.sched = s }
}

// NewCommandHandler creates a new command handler. The ledger is attached
// afterwards because it reports back to the handler.
func NewCommandHandler(bot Sender, api API, cfg *config.Config, opts ...Option) *CommandHandler {
	h := &CommandHandler{
		bot:      bot,
		api:      api,
		config:   cfg,
		sched:    chart.NewTickerScheduler(300 * time.Millisecond),
		timeout:  cfg.RequestTimeout,
		charts:   make(map[int]*chartView),
		results:  make(map[int64][]models.NutritionalInfo),
		selected: make(map[int64]*models.NutritionalInfo),
	}
	if h.timeout <= 0 {
		h.timeout = ledger.DefaultTimeout
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *CommandHandler) AttachLedger(l *ledger.Ledger) {
	h.ledger = l
}

func (h *CommandHandler) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.timeout)
}

func (h *CommandHandler) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.Println("Failed to send message:", err)
	}
}

// SendToday sends today's totals against the goals.
func (h *CommandHandler) SendToday(chatID int64) {
	h.send(chatID, h.todayText("🍽️ TODAY"))
}

// SendDailySummary sends the end of day summary to the configured chat.
func (h *CommandHandler) SendDailySummary() {
	h.send(h.config.ChatID, h.todayText("🌙 DAILY SUMMARY"))
}

func (h *CommandHandler) todayText(title string) string {
	date, totals := h.ledger.Totals()
	goal := h.ledger.Session().Goals.Macros()

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", title, date)
	b.WriteString("═══════════════════\n\n")
	for _, m := range models.Metrics {
		fmt.Fprintf(&b, "%-9s %s %s / %s\n", m,
			utils.ProgressBar(totals.Get(m), goal.Get(m), 10),
			utils.FormatMetric(m, totals.Get(m)),
			utils.FormatMetric(m, goal.Get(m)))
	}

	switch h.ledger.State() {
	case ledger.Dirty:
		b.WriteString("\n⏳ Some entries are not confirmed yet.")
	case ledger.Reconciling:
		b.WriteString("\n🔄 Syncing with the server...")
	}
	if n := len(h.ledger.Pending()); n > 0 {
		fmt.Fprintf(&b, "\n📴 %d entries waiting for connection.", n)
	}
	return b.String()
}

// SendSearch looks query up and offers the results as buttons.
func (h *CommandHandler) SendSearch(chatID int64, query string) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		h.send(chatID, "Type at least 2 characters to search.")
		return
	}

	ctx, cancel := h.context()
	defer cancel()
	items, err := h.api.Search(ctx, query)
	if err != nil {
		log.Println("Failed to search foods:", err)
		h.send(chatID, "Search is unavailable right now.")
		return
	}
	if len(items) == 0 {
		h.send(chatID, fmt.Sprintf("No food or recipe found for '%s'.", query))
		return
	}
	if len(items) > maxSearchResults {
		items = items[:maxSearchResults]
	}

	h.mu.Lock()
	h.results[chatID] = items
	delete(h.selected, chatID)
	h.mu.Unlock()

	msg := tgbotapi.NewMessage(chatID, "Select a food:")
	msg.ReplyMarkup = utils.BuildSearchKeyboard(items)
	if _, err := h.bot.Send(msg); err != nil {
		log.Println("Failed to send search results:", err)
	}
}

// SelectFood remembers the picked result and asks for the amount.
func (h *CommandHandler) SelectFood(chatID int64, index int) {
	h.mu.Lock()
	results := h.results[chatID]
	if index < 0 || index >= len(results) {
		h.mu.Unlock()
		h.send(chatID, "That result is no longer available, search again.")
		return
	}
	item := results[index]
	h.selected[chatID] = &item
	h.mu.Unlock()

	per := "per gram"
	if item.Type == models.ItemRecipe {
		per = "per 100g"
	}
	text := fmt.Sprintf("How many grams of %s?\n(%s %s)", item.Description, utils.FormatMacros(item.PerUnit()), per)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true}
	if _, err := h.bot.Send(msg); err != nil {
		log.Println("Failed to send grams prompt:", err)
	}
}

// RecordGrams completes a pending selection with the typed amount. It
// reports whether a selection was waiting for the message.
func (h *CommandHandler) RecordGrams(chatID int64, text string) bool {
	h.mu.Lock()
	item := h.selected[chatID]
	h.mu.Unlock()
	if item == nil {
		return false
	}

	grams, err := utils.ValidateGrams(text)
	if err != nil {
		h.send(chatID, fmt.Sprintf("❌ %s. Send the amount in grams, e.g. 150.", capitalize(err.Error())))
		return true
	}

	entry, err := h.ledger.RecordFood(item, grams)
	var ve *ledger.ValidationError
	if errors.As(err, &ve) {
		h.send(chatID, "❌ "+capitalize(ve.Reason)+".")
		return true
	}
	if err != nil {
		log.Println("Failed to record food:", err)
		h.send(chatID, "Failed to record food.")
		return true
	}

	h.mu.Lock()
	delete(h.selected, chatID)
	h.mu.Unlock()

	_, totals := h.ledger.Totals()
	h.send(chatID, fmt.Sprintf("✅ Added %.0fg of %s\n%s\n\nToday: %s",
		entry.Grams, entry.Description, utils.FormatMacros(entry.Macros), utils.FormatMacros(totals)))
	return true
}

// SendFoodLog lists what was eaten on the given date (today when empty).
func (h *CommandHandler) SendFoodLog(chatID int64, arg string) {
	date, _ := h.ledger.Totals()
	if arg = strings.TrimSpace(arg); arg != "" {
		parsed, err := models.ParseDate(arg)
		if err != nil {
			h.send(chatID, "Usage: /log YYYY-MM-DD")
			return
		}
		date = parsed
	}

	ctx, cancel := h.context()
	defer cancel()
	entries, err := h.api.GetFoodLog(ctx, date)
	if err != nil {
		log.Println("Failed to fetch food log:", err)
		h.send(chatID, "Error fetching food log.")
		return
	}
	if len(entries) == 0 {
		h.send(chatID, fmt.Sprintf("Nothing logged on %s.", date))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 FOOD LOG %s\n\n", date)
	var total models.Macros
	for _, e := range entries {
		fmt.Fprintf(&b, "• %s (%.0fg)\n   %s\n", e.Description, e.Grams, utils.FormatMacros(e.Macros))
		total = total.Add(e.Macros)
	}
	fmt.Fprintf(&b, "\nTotal: %s", utils.FormatMacros(total))
	h.send(chatID, b.String())
}

// SendPending lists entries recorded while offline.
func (h *CommandHandler) SendPending(chatID int64) {
	pending := h.ledger.Pending()
	if len(pending) == 0 {
		h.send(chatID, "No entries waiting for connection.")
		return
	}
	loc := h.config.Location
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📴 %d entries waiting for connection:\n\n", len(pending))
	for _, p := range pending {
		queued := time.Unix(p.QueuedAt, 0).In(loc).Format("02/01 15:04")
		fmt.Fprintf(&b, "• %s %.0fg (%s)", p.Entry.Description, p.Entry.Grams, queued)
		if p.Attempts > 0 {
			fmt.Fprintf(&b, ", %d failed attempts", p.Attempts)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nUse /clearpending to discard them.")
	h.send(chatID, b.String())
}

// ClearPending discards the offline queue.
func (h *CommandHandler) ClearPending(chatID int64) {
	cleared := h.ledger.ClearPending()
	if len(cleared) == 0 {
		h.send(chatID, "No entries waiting for connection.")
		return
	}
	h.send(chatID, fmt.Sprintf("🗑️ Discarded %d offline entries.", len(cleared)))
}

// ExportHistory sends the intake report of a period as a CSV document.
func (h *CommandHandler) ExportHistory(chatID int64, arg string) {
	span, err := chart.ParseSpan(arg)
	if err != nil {
		h.send(chatID, "Usage: /export [7d|1m|3m|6m|1y]")
		return
	}

	ctx, cancel := h.context()
	defer cancel()
	rows, err := h.api.GetHistory(ctx, span.Days())
	if err != nil {
		log.Println("Failed to fetch history for export:", err)
		h.send(chatID, "Error fetching history.")
		return
	}

	var buf bytes.Buffer
	points := chart.Bucket(rows, span.Window())
	if err := utils.GenerateHistoryCSV(span.Label(), rows, points, h.ledger.Session().Goals, &buf); err != nil {
		log.Println("Failed to generate CSV:", err)
		h.send(chatID, "Failed to generate report.")
		return
	}

	date, _ := h.ledger.Totals()
	document := tgbotapi.FileBytes{
		Name:  fmt.Sprintf("intake_%s_%s.csv", span, date),
		Bytes: buf.Bytes(),
	}
	documentMsg := tgbotapi.NewDocument(chatID, document)
	documentMsg.Caption = fmt.Sprintf("📊 Intake report: %s", span.Label())
	if _, err := h.bot.Send(documentMsg); err != nil {
		log.Println("Failed to send CSV document:", err)
	}
}

// SendHelp sends the command list
func (h *CommandHandler) SendHelp(chatID int64) {
	helpText := `🥗 DIETI BOT

Log food:
• Type a food name (or /search <name>) and pick a result
• Reply with the amount in grams

Commands:
/today - Today's totals vs goals
/chart [7d|1m|3m|6m|1y] - History chart with drill-down
/log [YYYY-MM-DD] - Food logged on a day
/pending - Entries waiting for connection
/clearpending - Discard entries waiting for connection
/export [7d|1m|3m|6m|1y] - CSV report
/help - This message`
	h.send(chatID, helpText)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
