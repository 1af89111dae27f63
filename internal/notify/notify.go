// Package notify delivers booking notifications. Delivery is fire-and-forget;
// a lost notification never fails a booking.
package notify

import (
	"context"
	"encoding/json"

	"github.com/trainhub/trainhub-server/internal/logger"
	"github.com/trainhub/trainhub-server/internal/model"
)

var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes notification payloads to the structured log. It stands in
// for an outbound delivery channel; swapping it out does not touch the booking
// path.
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(logger *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyRecurringBooking(_ context.Context, notification model.RecurringBookingNotification) {
	payload, err := json.Marshal(notification)
	if err != nil {
		n.logger.Error("failed to encode recurring booking notification", "error", err)
		return
	}

	n.logger.Info("recurring booking notification",
		"trainer_email", notification.TrainerEmail,
		"total_sessions", notification.TotalSessions,
		"payload", string(payload),
	)
}
