// Command bartabctl runs operator tasks against the BarTab database:
// schema migration, sample data and printable table QR codes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/iliyamo/bartab/internal/config"
	"github.com/iliyamo/bartab/internal/database"
	"github.com/iliyamo/bartab/internal/model"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "env:", err)
	}

	rootCmd := &cobra.Command{
		Use:          "bartabctl",
		Short:        "Operator tools for the BarTab service",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(migrateCmd(), seedCmd(), qrcodeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema (idempotent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := database.Open(config.LoadDatabase())
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d statements\n", len(database.Statements()))
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert The Cozy Pub, its menu and the test user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.LoadDatabase()
			db, err := database.Open(cfg)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			res, err := database.Seed(ctx, db, cfg.BcryptCost)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "venue %d: %d tables, %d menu items; user %d (test@bartab.com / password123)\n",
				res.VenueID, res.Tables, res.Items, res.UserID)
			return nil
		},
	}
}

func qrcodeCmd() *cobra.Command {
	var (
		venueID uint64
		table   int
		size    int
		out     string
	)
	cmd := &cobra.Command{
		Use:   "qrcode",
		Short: "Write a table's QR code as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if venueID == 0 || table <= 0 {
				return errors.New("--venue and --table are required")
			}
			if out == "" {
				out = fmt.Sprintf("venue-%d-table-%d.png", venueID, table)
			}
			payload := model.TableQRPayload(venueID, table)
			if err := qrcode.WriteFile(payload, qrcode.Medium, size, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", payload, out)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&venueID, "venue", 0, "venue id")
	cmd.Flags().IntVar(&table, "table", 0, "table number")
	cmd.Flags().IntVar(&size, "size", 256, "image edge in pixels")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default venue-N-table-M.png)")
	return cmd
}
