package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"ai-docqa-be/internal/config"
	"ai-docqa-be/pkg/events"
	pktNats "ai-docqa-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func eventsCMD() *cobra.Command {
	var eventType string

	var watch = &cobra.Command{
		Use:   "events",
		Short: "Print session events exported to NATS as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.App.NatsURL == "" {
				return fmt.Errorf("NATS_URL is not set")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
			if err != nil {
				return err
			}
			defer sub.Close()

			subject := pktNats.SubjectPrefix + ">"
			if eventType != "" {
				subject = pktNats.SubjectPrefix + eventType
			}
			err = sub.Subscribe(ctx, subject, "", func(_ context.Context, e events.Event) error {
				data, _ := json.Marshal(e.Payload())
				color.Yellow("%s  %-20s", e.Timestamp().Format("15:04:05"), e.EventType())
				fmt.Println("  " + string(data))
				return nil
			})
			if err != nil {
				return err
			}

			color.Cyan("Watching %s (Ctrl+C to stop)", subject)
			<-ctx.Done()
			return nil
		},
	}
	watch.Flags().StringVar(&eventType, "type", "", "only show one event type, e.g. DOCUMENTS_INGESTED")

	return watch
}
