package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"dieti-tracker/internal/auth"
	"dieti-tracker/internal/database"
)

var (
	tokenUser string

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}
	tokenIssueCmd = &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for a user",
		RunE:  runTokenIssue,
	}
)

func init() {
	tokenIssueCmd.Flags().StringVar(&tokenUser, "user", "", "user id the token belongs to")
	tokenCmd.AddCommand(tokenIssueCmd)
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	if tokenUser == "" {
		return errors.New("--user is required")
	}
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}

	ctx := context.Background()
	db, err := database.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("failed to initialize MongoDB: %w", err)
	}
	defer db.Close(ctx)

	token, expires, err := auth.NewValidator(db).Issue(ctx, tokenUser)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format("2006-01-02 15:04"))
	return nil
}
