package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/camfleet/fleetnotify/internal/notification"
	"github.com/camfleet/fleetnotify/pkg/messaging"
	"github.com/camfleet/fleetnotify/pkg/observability"
)

var tailGroup string

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow the notification event stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		brokers := viper.GetStringSlice("kafka.brokers")
		topic := viper.GetString("kafka.events_topic")
		if topic == "" {
			topic = "notification.events"
		}
		if len(brokers) == 0 {
			return fmt.Errorf("kafka.brokers is not configured")
		}

		log := observability.NewLogger("cli")
		consumer := messaging.NewKafkaConsumer(brokers, topic, tailGroup, log.Logger)
		defer consumer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		consumer.Consume(ctx, func(key string, value []byte) error {
			var event notification.Event
			if err := json.Unmarshal(value, &event); err != nil {
				return fmt.Errorf("malformed event: %w", err)
			}
			fmt.Printf("%s %-20s %s %s\n",
				event.Timestamp.Format(time.RFC3339), event.Type, key, string(event.Data))
			return nil
		})
		return nil
	},
}

func init() {
	tailCmd.Flags().StringVar(&tailGroup, "group", "fleetnotify-cli", "kafka consumer group id")
	rootCmd.AddCommand(tailCmd)
}
