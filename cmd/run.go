package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"botwire/pkg/backend"
	"botwire/pkg/backend/telegram"
	"botwire/pkg/config"
	"botwire/pkg/logger"

	"github.com/spf13/cobra"
)

const messagePreviewLimit = 240

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Telegram adapter with an echo sink",
	Long:  "Connects the configured Telegram bot, polls for updates, and echoes message text back to its chat. Stands in for an external runtime driving the backend contract.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.run")

		adapter, err := telegram.New(telegram.Config{
			Token:             cfg.Telegram.Token,
			MessagesPerSecond: cfg.Telegram.MessagesPerSecond,
			APIURL:            cfg.Telegram.APIURL,
			Proxy:             cfg.Telegram.Proxy,
		}, appLogger)
		if err != nil {
			log.Error("Adapter configuration invalid", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := adapter.OnStart(runCtx); err != nil {
			log.Error("Adapter startup failed", "error", err)
			return
		}
		defer func() {
			if err := adapter.OnShutdown(context.Background()); err != nil {
				log.Error("Adapter shutdown failed", "error", err)
			}
		}()

		log.Info("Polling started", "backend", adapter.Identity())

		sink := echoSink(adapter, log)
		for runCtx.Err() == nil {
			if err := adapter.AcquireUpdates(runCtx, sink); err != nil {
				if errors.Is(err, context.Canceled) {
					break
				}
				log.Error("Polling iteration failed", "error", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// echoSink logs every event and echoes message text back to its chat.
func echoSink(adapter *telegram.Adapter, log *slog.Logger) backend.Sink {
	return func(ctx context.Context, event backend.Event) error {
		message, ok := event.(backend.Message)
		if !ok {
			bctx := &backend.Context{Event: event}
			adapter.PrepareContext(bctx)
			log.Debug("Received update", "sender_key", bctx.SenderKey, "target_id", bctx.DefaultTargetID)
			return nil
		}

		log.Info("Received message",
			"sender_id", message.SenderID,
			"receiver_id", message.ReceiverID,
			"attachments", len(message.Attachments),
			"content", previewText(message.Text),
		)

		if message.Text == "" {
			return nil
		}

		if _, err := adapter.SendMessage(ctx, message.ReceiverID, message.Text); err != nil {
			log.Error("Echo send failed", "error", err)
		}
		return nil
	}
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}
