package handlers

import (
	"dieti-tracker/internal/ledger"
	"dieti-tracker/internal/models"
)

// TotalsChanged moves today's bar of every open chart. Corrections from
// reconciliation snap into place instead of animating.
func (h *CommandHandler) TotalsChanged(date models.Date, totals models.Macros, animate bool) {
	for _, v := range h.chartViews() {
		v.upsertToday(date, totals, animate)
	}
}

// Notify forwards ledger notices to the chat.
func (h *CommandHandler) Notify(n ledger.Notice) {
	prefix := "📴 "
	if n.Level == ledger.NoticeError {
		prefix = "⚠️ "
	}
	h.send(h.config.ChatID, prefix+n.Message)
}
