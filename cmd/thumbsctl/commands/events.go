package commands

import (
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	kafka_impl "img-thumbs/internal/broker/kafka"
	"img-thumbs/internal/domain"

	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"
)

var eventsGroup string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print domain events as JSON lines",
	Long: `Follow the events topic and print every image.created and link.issued
event as one JSON object per line until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		zlog.Init()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Kafka.Enabled() {
			return errors.New("no Kafka brokers configured (KAFKA_BROKERS)")
		}

		group := cfg.Kafka.GroupID
		if eventsGroup != "" {
			group = eventsGroup
		}

		consumer := kafka_impl.NewEventConsumer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, group, cfg.DefaultRetryStrategy(), &zlog.Logger)
		defer consumer.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		enc := json.NewEncoder(cmd.OutOrStdout())
		return consumer.Consume(ctx, func(event *domain.Event) error {
			return enc.Encode(event)
		})
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringVar(&eventsGroup, "group", "", "Consumer group (defaults to KAFKA_GROUP_ID)")
}
