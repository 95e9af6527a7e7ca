package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/lab-borrowing/internal/core/events"
	"github.com/frahmantamala/lab-borrowing/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish sample events on the in-process event bus for debugging handlers.`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a sample event of the given type to a local event bus and log what the handler receives.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(cmd.Context(), args[0])
	},
}

var (
	eventData   string
	eventUserID int64
)

func publishTestEvent(ctx context.Context, eventType string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lg := logger.LoggerWrapper()
	eventBus := events.NewEventBus(lg)

	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		lg.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	event := sampleEvent(eventType, eventUserID, eventData)
	lg.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())

	if err := eventBus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	lg.Info("test event published successfully")
	return nil
}

func sampleEvent(eventType string, userID int64, message string) events.Event {
	due := time.Now().AddDate(0, 0, 1)
	switch eventType {
	case events.EventTypeBorrowSubmitted:
		return events.NewBorrowSubmittedEvent(1, userID, 1, "Oscilloscope", 1, due)
	case events.EventTypeBorrowApproved:
		return events.NewBorrowApprovedEvent(1, userID, 1, "Oscilloscope", 1, 2, 1, due)
	case events.EventTypeBorrowRejected:
		return events.NewBorrowRejectedEvent(1, userID, "Oscilloscope", message)
	case events.EventTypeBorrowReturned:
		return events.NewBorrowReturnedEvent(1, userID, 1, "Oscilloscope", 1, 0, "Rp 0")
	case events.EventTypeBorrowReminder:
		return events.NewBorrowReminderEvent(1, userID, "Oscilloscope", due, false, 0, "Rp 0")
	case events.EventTypeReservationDecided:
		return events.NewReservationDecidedEvent(1, userID, "Calibration", "approved", message)
	}
	return events.BaseEvent{
		ID:        fmt.Sprintf("test-%d", time.Now().Unix()),
		Type:      eventType,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"message": message,
			"source":  "cli-command",
		},
	}
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")
	publishEventCmd.Flags().Int64Var(&eventUserID, "user", 1, "User id carried by the sample event")

	eventCmd.AddCommand(publishEventCmd)
	rootCmd.AddCommand(eventCmd)
}
