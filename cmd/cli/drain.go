package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/camfleet/fleetnotify/internal/dispatch"
	"github.com/camfleet/fleetnotify/pkg/messaging"
	"github.com/camfleet/fleetnotify/pkg/observability"
)

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Signal the dispatcher to drain the email outbox",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := viper.GetString("rabbitmq.url")
		queue := viper.GetString("rabbitmq.drain_queue")
		if queue == "" {
			queue = "email.dispatch"
		}
		if url == "" {
			return fmt.Errorf("rabbitmq.url is not configured")
		}

		log := observability.NewLogger("cli")
		rabbit, err := messaging.NewRabbitClient(messaging.RabbitConfig{URL: url}, log.Logger)
		if err != nil {
			return err
		}
		defer rabbit.Close()

		if _, err := rabbit.DeclareQueue(queue); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := dispatch.NewSignaler(rabbit, queue).SignalDrain(ctx); err != nil {
			return err
		}
		fmt.Println("drain signal sent")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(drainCmd)
}
