package handlers

import (
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dieti-tracker/internal/config"
)

// EventHandler handles Telegram events
type EventHandler struct {
	bot      Sender
	config   *config.Config
	commands *CommandHandler
}

// NewEventHandler creates a new event handler
func NewEventHandler(bot Sender, cfg *config.Config, commands *CommandHandler) *EventHandler {
	return &EventHandler{
		bot:      bot,
		config:   cfg,
		commands: commands,
	}
}

// HandleMessage handles incoming messages
func (h *EventHandler) HandleMessage(message *tgbotapi.Message) {
	// Ignore messages from bots
	if message.From != nil && message.From.IsBot {
		return
	}

	// Only process messages from the configured chat
	if message.Chat == nil || !h.config.IsAuthorizedChat(message.Chat.ID) {
		return
	}

	if message.IsCommand() {
		h.handleCommand(message)
		return
	}

	chatID := message.Chat.ID
	if h.commands.RecordGrams(chatID, message.Text) {
		return
	}

	// Plain text is a food search
	if text := strings.TrimSpace(message.Text); text != "" {
		h.commands.SendSearch(chatID, text)
	}
}

// handleCommand processes bot commands
func (h *EventHandler) handleCommand(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	args := message.CommandArguments()

	switch message.Command() {
	case "today":
		h.commands.SendToday(chatID)
	case "search":
		h.commands.SendSearch(chatID, args)
	case "chart":
		h.commands.SendChart(chatID, args)
	case "log":
		h.commands.SendFoodLog(chatID, args)
	case "pending":
		h.commands.SendPending(chatID)
	case "clearpending":
		h.commands.ClearPending(chatID)
	case "export":
		h.commands.ExportHistory(chatID, args)
	case "help", "start":
		h.commands.SendHelp(chatID)
	}
}

// HandleCallbackQuery handles inline button callbacks
func (h *EventHandler) HandleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	// Only process callbacks from the configured chat
	if callback.Message == nil || callback.Message.Chat == nil || !h.config.IsAuthorizedChat(callback.Message.Chat.ID) {
		return
	}
	chatID := callback.Message.Chat.ID

	switch {
	case strings.HasPrefix(callback.Data, "food_"):
		idx, err := strconv.Atoi(strings.TrimPrefix(callback.Data, "food_"))
		if err == nil {
			h.commands.SelectFood(chatID, idx)
		}
	case strings.HasPrefix(callback.Data, "chart_"):
		h.commands.HandleChartCallback(chatID, callback.Message.MessageID, strings.TrimPrefix(callback.Data, "chart_"))
	}

	// Answer the callback to remove loading state
	callbackConfig := tgbotapi.NewCallback(callback.ID, "")
	if _, err := h.bot.Request(callbackConfig); err != nil {
		log.Println("Failed to answer callback:", err)
	}
}
