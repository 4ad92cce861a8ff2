/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/qrgate/portal/internal/client"
	"github.com/spf13/cobra"
)

var (
	apiURL      string
	apiToken    string
	apiEmail    string
	apiPassword string
)

// adsCmd represents the ads command
var adsCmd = &cobra.Command{
	Use:   "ads",
	Short: "Manage banner ads on a running portal",
}

var adsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List banner ads",
	RunE: func(cmd *cobra.Command, args []string) error {
		board, err := loadAdBoard(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tMARQUEE\tCREATED")
		for _, ad := range board.Items() {
			fmt.Fprintf(w, "%d\t%s\t%t\t%s\n", ad.ID, ad.Title, client.Shown(ad), ad.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var adsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a banner ad",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ad id %q", args[0])
		}
		board, err := loadAdBoard(cmd.Context())
		if err != nil {
			return err
		}
		if err := board.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted ad %d (%d remaining)\n", id, len(board.Items()))
		return nil
	},
}

var adsToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Show or hide a banner ad in the marquee",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ad id %q", args[0])
		}
		board, err := loadAdBoard(cmd.Context())
		if err != nil {
			return err
		}
		show, err := board.ToggleMarquee(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ad %d marquee=%t\n", id, show)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adsCmd)
	adsCmd.AddCommand(adsListCmd, adsDeleteCmd, adsToggleCmd)

	adsCmd.PersistentFlags().StringVar(&apiURL, "url", envOr("QRGATE_URL", "http://localhost:8080"), "portal base URL")
	adsCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("QRGATE_TOKEN"), "bearer token")
	adsCmd.PersistentFlags().StringVar(&apiEmail, "email", "", "admin email, used when no token is given")
	adsCmd.PersistentFlags().StringVar(&apiPassword, "password", os.Getenv("QRGATE_PASSWORD"), "admin password")
}

func loadAdBoard(ctx context.Context) (*client.AdBoard, error) {
	c := client.New(apiURL, apiToken, nil)
	if apiToken == "" {
		if apiEmail == "" {
			return nil, fmt.Errorf("pass --token or --email/--password")
		}
		if _, err := c.Login(ctx, apiEmail, apiPassword); err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
	}
	board := client.NewAdBoard(c)
	if err := board.Load(ctx); err != nil {
		return nil, err
	}
	return board, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
