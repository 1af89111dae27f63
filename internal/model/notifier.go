package model

import "context"

// RecurringSlot is one line of a recurring booking notification.
type RecurringSlot struct {
	DayOfWeek string `json:"day_of_week"`
	Time      string `json:"time"`
	Weeks     int    `json:"weeks"`
	StartDate string `json:"start_date"`
}

// RecurringBookingNotification is the payload handed to the notifier after a
// recurring booking lands.
type RecurringBookingNotification struct {
	TrainerEmail      string          `json:"trainer_email"`
	TrainerName       string          `json:"trainer_name"`
	ClientName        string          `json:"client_name"`
	SessionType       string          `json:"session_type"`
	RecurringSessions []RecurringSlot `json:"recurring_sessions"`
	TotalSessions     int             `json:"total_sessions"`
	Location          string          `json:"location,omitempty"`
	Notes             string          `json:"notes,omitempty"`
}

// Notifier delivers notifications fire-and-forget. Implementations must not
// block the booking path and must not surface delivery errors to it.
type Notifier interface {
	NotifyRecurringBooking(ctx context.Context, n RecurringBookingNotification)
}
