package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dieti-tracker/internal/api"
	"dieti-tracker/internal/auth"
	"dieti-tracker/internal/database"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Serve the intake HTTP API",
	RunE:  runAPI,
}

func runAPI(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("failed to initialize MongoDB: %w", err)
	}
	defer db.Close(context.Background())

	if err := db.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	server := api.NewServer(db, auth.NewValidator(db), api.WithLocation(cfg.Location), api.WithAdminToken(cfg.AdminToken))
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Move finished days to the historical log
	c := cron.New(cron.WithLocation(cfg.Location))
	_, err = c.AddFunc(cfg.RolloverSchedule, func() {
		rctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		moved, err := server.RunRollover(rctx)
		if err != nil {
			log.Println("Failed to roll over daily log:", err)
			return
		}
		log.Printf("Rolled over %d food entries", moved)
	})
	if err != nil {
		return fmt.Errorf("failed to add rollover job: %w", err)
	}
	c.Start()
	defer c.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("API listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down API...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
