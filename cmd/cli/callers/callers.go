// Package callers bundles operator commands for inspecting and maintaining
// caller data: profiles, verification history, cross-call memory.
package callers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/voicesentinel/voicesentinel/internal/db"
	"github.com/voicesentinel/voicesentinel/internal/models"
	"github.com/voicesentinel/voicesentinel/internal/repositories"
)

var Group = &cobra.Group{
	ID:    "callers",
	Title: "Caller data operations",
}

func init() {
	for _, cmd := range []*cobra.Command{Seed, History, Memory, Reset} {
		cmd.Flags().String("sqlite-url", "./voicesentinel.sqlite", "SQLite URL")
	}
	Seed.Flags().String("otp", "", "one time password")
	Seed.Flags().String("name", "", "registered full name")
	Seed.Flags().String("dob", "", "registered date of birth")
	Seed.Flags().String("country", "", "registered country code")
	History.Flags().Int("limit", 10, "maximum records to show")
}

// openDB opens the database named by the command's sqlite-url flag.
func openDB(cmd *cobra.Command) (*db.Database, *slog.Logger, error) {
	url, err := cmd.Flags().GetString("sqlite-url")
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	dbs, err := db.New(url, logger)
	if err != nil {
		return nil, nil, err
	}
	return dbs, logger, nil
}

func printJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

var Seed = &cobra.Command{
	Use:     "seed [account-id]",
	GroupID: "callers",
	Short:   "Seed a caller profile",
	Long:    `Creates or replaces the registered profile callers are verified against`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbs, logger, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = dbs.Close() }()

		profile := models.CallerProfile{AccountID: args[0]}
		if profile.OTP, err = cmd.Flags().GetString("otp"); err != nil {
			return err
		}
		if profile.FullName, err = cmd.Flags().GetString("name"); err != nil {
			return err
		}
		if profile.DateOfBirth, err = cmd.Flags().GetString("dob"); err != nil {
			return err
		}
		if profile.RegisteredCountry, err = cmd.Flags().GetString("country"); err != nil {
			return err
		}

		profiles := repositories.NewProfileRepository(dbs, logger)
		if err = profiles.Upsert(context.Background(), profile); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "seeded profile for account %s\n", profile.AccountID)
		return nil
	},
}

var History = &cobra.Command{
	Use:     "history [phone-number]",
	GroupID: "callers",
	Short:   "Show verification history",
	Long:    `Lists the most recent verification records for a phone number`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbs, logger, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = dbs.Close() }()

		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}

		records := repositories.NewVerificationRepository(dbs, logger)
		listed, err := records.ListRecent(context.Background(), args[0], limit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), listed)
	},
}

var Memory = &cobra.Command{
	Use:     "memory [phone-number]",
	GroupID: "callers",
	Short:   "Show cross-call memory",
	Long:    `Shows the remembered claims, trust history and linked accounts of a phone number`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbs, logger, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = dbs.Close() }()

		memories := repositories.NewMemoryRepository(dbs, logger)
		memory, err := memories.Get(context.Background(), args[0])
		if err != nil {
			return err
		}
		linked, err := memories.LinkedAccounts(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"memory":          memory,
			"linked_accounts": linked,
		})
	},
}

var Reset = &cobra.Command{
	Use:     "reset [phone-number]",
	GroupID: "callers",
	Short:   "Purge a phone number",
	Long:    `Deletes the verification records, cross-call memory, linked accounts and voice baseline of a phone number`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbs, logger, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = dbs.Close() }()

		admin := repositories.NewAdminRepository(dbs, logger)
		if err = admin.PurgePhone(context.Background(), args[0]); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", args[0])
		return nil
	},
}
