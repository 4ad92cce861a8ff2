/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qrgate/portal/config"
	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/mail"
	"github.com/qrgate/portal/internal/mq"
	"github.com/qrgate/portal/internal/services"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes portal events",
	Long: `Consumes portal events from the configured message queue and emails
the admin notify address about resident change requests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		switch cfg.MQ.Backend {
		case config.MQNone:
			return errors.New("MQ_BACKEND is none; nothing to consume")
		case config.MQMemory:
			return errors.New("MQ_BACKEND is memory; events are consumed by the server process")
		}
		log := logging.New(cfg.Log, os.Stdout)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		backend, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("init mq: %w", err)
		}
		defer backend.Close()

		worker := services.NewEventWorker(mail.New(cfg.Mail), cfg.Mail.AdminNotifyEmail, log)
		if err := worker.Run(ctx, backend, cfg.MQ.Channel); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
