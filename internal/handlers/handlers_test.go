package handlers

import (
	"context"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dieti-tracker/internal/chart"
	"dieti-tracker/internal/config"
	"dieti-tracker/internal/ledger"
	"dieti-tracker/internal/models"
)

const testChat int64 = 42

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeBot struct {
	mu       sync.Mutex
	nextID   int
	sent     []tgbotapi.Chattable
	ids      []int
	requests []tgbotapi.Chattable
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.sent = append(b.sent, c)
	b.ids = append(b.ids, b.nextID)
	return tgbotapi.Message{MessageID: b.nextID}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (b *fakeBot) lastText() string {
	texts := b.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

// chartID returns the message id of the last chart sent.
func (b *fakeBot) chartID() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.sent) - 1; i >= 0; i-- {
		if m, ok := b.sent[i].(tgbotapi.MessageConfig); ok && strings.HasPrefix(m.Text, "📈") {
			return b.ids[i]
		}
	}
	return 0
}

type fakeAPI struct {
	history []models.DailyIntake
	log     map[models.Date][]models.FoodLogEntry
	items   []models.NutritionalInfo
}

func (f *fakeAPI) GetHistory(context.Context, int) ([]models.DailyIntake, error) {
	return f.history, nil
}

func (f *fakeAPI) GetFoodLog(_ context.Context, d models.Date) ([]models.FoodLogEntry, error) {
	return f.log[d], nil
}

func (f *fakeAPI) Search(context.Context, string) ([]models.NutritionalInfo, error) {
	return f.items, nil
}

type memBackend struct {
	mu      sync.Mutex
	entries []models.FoodLogEntry
	fail    error
}

func (b *memBackend) AddFoodEntry(_ context.Context, e models.FoodLogEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.entries = append(b.entries, e)
	return nil
}

func (b *memBackend) GetDailyTotals(_ context.Context, d models.Date) (models.DailyIntake, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	intake := models.DailyIntake{Date: d}
	for _, e := range b.entries {
		if e.Date == d {
			intake.Macros = intake.Macros.Add(e.Macros)
		}
	}
	return intake, nil
}

type harness struct {
	bot     *fakeBot
	api     *fakeAPI
	backend *memBackend
	sched   *chart.ManualScheduler
	ledger  *ledger.Ledger
	cmds    *CommandHandler
	events  *EventHandler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		bot:     &fakeBot{},
		api:     &fakeAPI{log: map[models.Date][]models.FoodLogEntry{}},
		backend: &memBackend{},
		sched:   chart.NewManualScheduler(testNow),
	}
	cfg := &config.Config{ChatID: testChat, RequestTimeout: time.Second, Location: time.UTC}
	h.cmds = NewCommandHandler(h.bot, h.api, cfg, WithScheduler(h.sched))

	q, err := ledger.NewQueue(nil)
	require.NoError(t, err)
	h.ledger = ledger.New(ledger.Session{UserID: "u1", Goals: models.DefaultGoal()}, h.backend, q, h.cmds,
		ledger.WithClock(func() time.Time { return testNow }),
		ledger.WithLocation(time.UTC),
		ledger.WithDispatcher(func(fn func()) { fn() }),
	)
	h.cmds.AttachLedger(h.ledger)
	h.events = NewEventHandler(h.bot, cfg, h.cmds)
	return h
}

func message(chatID int64, text string) *tgbotapi.Message {
	m := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 7},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.SplitN(text, " ", 2)[0]
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return m
}

func callback(msgID int, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: msgID, Chat: &tgbotapi.Chat{ID: testChat}},
	}
}

func historyRows(start models.Date, n int, cal float64) []models.DailyIntake {
	rows := make([]models.DailyIntake, n)
	for i := range rows {
		rows[i] = models.DailyIntake{Date: start.AddDays(i), Macros: models.Macros{Calorias: cal, Proteinas: cal / 10}}
	}
	return rows
}

func TestSearchSelectAndRecord(t *testing.T) {
	h := newHarness(t)
	h.api.items = []models.NutritionalInfo{{
		ID: "1", Description: "Arroz", Type: models.ItemTaco,
		Calorias: 1.5, Proteinas: 0.1, Carbo: 0.2, Gordura: 0.05,
	}}

	h.events.HandleMessage(message(testChat, "arroz"))
	assert.Equal(t, "Select a food:", h.bot.lastText())

	h.events.HandleCallbackQuery(callback(1, "food_0"))
	assert.Contains(t, h.bot.lastText(), "How many grams of Arroz?")
	assert.Len(t, h.bot.requests, 1)

	h.events.HandleMessage(message(testChat, "100"))
	assert.Contains(t, h.bot.lastText(), "Added 100g of Arroz")

	_, totals := h.ledger.Totals()
	assert.InDelta(t, 150, totals.Calorias, 1e-9)
	assert.InDelta(t, 5, totals.Gordura, 1e-9)
	require.Len(t, h.backend.entries, 1)
	assert.Equal(t, "u1", h.backend.entries[0].UserID)

	// selection is consumed; the next number is a search
	h.events.HandleMessage(message(testChat, "arroz"))
	assert.Equal(t, "Select a food:", h.bot.lastText())
}

func TestInvalidGramsKeepsSelection(t *testing.T) {
	h := newHarness(t)
	h.api.items = []models.NutritionalInfo{{Description: "Bolo", Type: models.ItemRecipe, Calorias: 300}}

	h.cmds.SendSearch(testChat, "bolo")
	h.cmds.SelectFood(testChat, 0)

	h.events.HandleMessage(message(testChat, "0"))
	assert.Contains(t, h.bot.lastText(), "Grams must be greater than zero")
	assert.Empty(t, h.backend.entries)

	h.events.HandleMessage(message(testChat, "50g"))
	assert.Contains(t, h.bot.lastText(), "Added 50g of Bolo")
	_, totals := h.ledger.Totals()
	assert.InDelta(t, 150, totals.Calorias, 1e-9)
}

func TestMessagesFromOtherChatsAreIgnored(t *testing.T) {
	h := newHarness(t)
	h.events.HandleMessage(message(7, "/today"))
	h.events.HandleCallbackQuery(&tgbotapi.CallbackQuery{ID: "x", Data: "food_0",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}}})
	assert.Empty(t, h.bot.texts())
	assert.Empty(t, h.bot.requests)
}

func TestTodayShowsGoals(t *testing.T) {
	h := newHarness(t)
	h.events.HandleMessage(message(testChat, "/today"))
	text := h.bot.lastText()
	assert.Contains(t, text, "TODAY (2025-03-10)")
	assert.Contains(t, text, "0 kcal / 2704 kcal")
}

func TestChartDrillDown(t *testing.T) {
	h := newHarness(t)
	h.api.history = historyRows("2025-03-01", 10, 1000)
	h.api.log["2025-03-01"] = []models.FoodLogEntry{{Description: "Arroz", Grams: 100, Macros: models.Macros{Calorias: 150}}}

	h.events.HandleMessage(message(testChat, "/chart 1m"))
	id := h.bot.chartID()
	require.NotZero(t, id)

	h.sched.Advance(time.Second)
	text := h.bot.lastText()
	assert.Contains(t, text, "by week")
	assert.Contains(t, text, "sem 01/03")
	assert.Contains(t, text, "7000 kcal")
	assert.Contains(t, text, "3000 kcal")

	h.events.HandleCallbackQuery(callback(id, "chart_pt_0"))
	h.sched.Advance(time.Second)
	text = h.bot.lastText()
	assert.Contains(t, text, "week detail")
	assert.Contains(t, text, "07/03")
	assert.NotContains(t, text, "08/03")

	h.events.HandleCallbackQuery(callback(id, "chart_pt_0"))
	assert.Contains(t, h.bot.lastText(), "FOOD LOG 2025-03-01")

	h.events.HandleCallbackQuery(callback(id, "chart_up"))
	h.sched.Advance(time.Second)
	assert.Contains(t, h.bot.lastText(), "by week")
}

func TestChartPeriodAndMetricSwitch(t *testing.T) {
	h := newHarness(t)
	h.api.history = historyRows("2025-03-04", 7, 2000)

	h.cmds.SendChart(testChat, "")
	id := h.bot.chartID()
	h.sched.Advance(time.Second)
	assert.Contains(t, h.bot.lastText(), "7 dias")

	h.cmds.HandleChartCallback(testChat, id, "metric_proteinas")
	h.sched.Advance(time.Second)
	text := h.bot.lastText()
	assert.Contains(t, text, "· proteinas")
	assert.Contains(t, text, "200.0 g")

	h.cmds.HandleChartCallback(testChat, id, "period_1y")
	h.sched.Advance(time.Second)
	assert.Contains(t, h.bot.lastText(), "1 ano")
	assert.Contains(t, h.bot.lastText(), "by month")
}

func TestCorrectionSnapsChart(t *testing.T) {
	h := newHarness(t)
	h.api.history = historyRows("2025-03-04", 7, 2000)

	h.cmds.SendChart(testChat, "7d")
	h.sched.Advance(time.Second)
	before := len(h.bot.texts())

	h.cmds.TotalsChanged("2025-03-10", models.Macros{Calorias: 1234}, false)
	texts := h.bot.texts()
	require.Len(t, texts, before+1)
	assert.Contains(t, texts[len(texts)-1], "1234 kcal")
	assert.Zero(t, h.sched.Pending())
}

func TestOfflineEntriesArePendingUntilCleared(t *testing.T) {
	h := newHarness(t)
	h.backend.fail = syscall.ECONNREFUSED
	h.api.items = []models.NutritionalInfo{{Description: "Ovo", Type: models.ItemTaco, Calorias: 1.4}}

	h.cmds.SendSearch(testChat, "ovo")
	h.cmds.SelectFood(testChat, 0)
	h.events.HandleMessage(message(testChat, "50"))

	texts := h.bot.texts()
	var notified bool
	for _, txt := range texts {
		if strings.HasPrefix(txt, "📴 Ovo saved offline") {
			notified = true
		}
	}
	assert.True(t, notified)

	h.events.HandleMessage(message(testChat, "/pending"))
	assert.Contains(t, h.bot.lastText(), "1 entries waiting")
	assert.Contains(t, h.bot.lastText(), "Ovo 50g")

	h.events.HandleMessage(message(testChat, "/clearpending"))
	assert.Contains(t, h.bot.lastText(), "Discarded 1 offline entries")
	assert.Empty(t, h.ledger.Pending())
}

func TestPersistErrorNotice(t *testing.T) {
	h := newHarness(t)
	h.cmds.Notify(ledger.Notice{Level: ledger.NoticeError, Message: "Could not save Ovo."})
	assert.Equal(t, "⚠️ Could not save Ovo.", h.bot.lastText())
}

func TestExportSendsDocument(t *testing.T) {
	h := newHarness(t)
	h.api.history = historyRows("2025-03-04", 7, 2000)

	h.events.HandleMessage(message(testChat, "/export 7d"))

	h.bot.mu.Lock()
	defer h.bot.mu.Unlock()
	doc, ok := h.bot.sent[len(h.bot.sent)-1].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "intake_7d_2025-03-10.csv", file.Name)
	assert.Contains(t, string(file.Bytes), "2025-03-10,2000.00")
}
