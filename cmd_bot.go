package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"dieti-tracker/internal/client"
	"dieti-tracker/internal/handlers"
	"dieti-tracker/internal/ledger"
	"dieti-tracker/internal/models"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram session",
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create Telegram bot
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	bot.Debug = false
	log.Printf("Bot started: %s", bot.Self.UserName)

	apiClient := client.New(cfg.APIBaseURL, cfg.APIToken, client.WithSearchTimeout(cfg.RequestTimeout))

	goals := models.DefaultGoal()
	gctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	if g, err := apiClient.GetGoals(gctx); err != nil {
		log.Println("Failed to fetch goals, using defaults:", err)
	} else {
		goals = g
	}
	cancel()

	store, err := ledger.OpenQueueStore(cfg.QueueDir)
	if err != nil {
		return fmt.Errorf("failed to open offline queue: %w", err)
	}
	defer store.Close()
	queue, err := ledger.NewQueue(store)
	if err != nil {
		return fmt.Errorf("failed to load offline queue: %w", err)
	}

	// The ledger reports to the handler, so the handler comes first
	commandHandler := handlers.NewCommandHandler(bot, apiClient, cfg)
	l := ledger.New(
		ledger.Session{UserID: cfg.UserID, Token: cfg.APIToken, Goals: goals},
		apiClient, queue, commandHandler,
		ledger.WithLocation(cfg.Location),
		ledger.WithTimeout(cfg.RequestTimeout),
	)
	commandHandler.AttachLedger(l)
	eventHandler := handlers.NewEventHandler(bot, cfg, commandHandler)

	if err := l.Load(ctx); err != nil {
		log.Println("Failed to load today's totals:", err)
	}
	if n := len(l.Pending()); n > 0 {
		log.Printf("%d offline entries restored", n)
	}

	c := cron.New(cron.WithLocation(cfg.Location))
	_, err = c.AddFunc(cfg.ProbeSchedule, func() {
		if l.CheckConnectivity(ctx, apiClient) && l.State() != ledger.Clean {
			if err := l.Reconcile(ctx); err != nil {
				log.Println("Failed to reconcile totals:", err)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add connectivity job: %w", err)
	}
	_, err = c.AddFunc(cfg.SummarySchedule, func() {
		log.Println("Sending daily summary...")
		commandHandler.SendDailySummary()
	})
	if err != nil {
		return fmt.Errorf("failed to add summary job: %w", err)
	}
	c.Start()
	defer c.Stop()

	// Start listening for updates
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			log.Println("Shutting down bot...")
			bot.StopReceivingUpdates()
			return nil
		case update := <-updates:
			if update.Message != nil {
				eventHandler.HandleMessage(update.Message)
			} else if update.CallbackQuery != nil {
				eventHandler.HandleCallbackQuery(update.CallbackQuery)
			}
		}
	}
}
