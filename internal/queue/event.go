// Package queue publishes ticket lifecycle events to RabbitMQ.
package queue

import "time"

// Queue names double as routing keys on the default exchange.
const (
	QueueTicketsBooked    = "tickets.booked"
	QueueTicketsCancelled = "tickets.cancelled"
	QueueTicketsPaid      = "tickets.paid"
)

// TicketsEvent describes one committed state change of a set of tickets.
// Downstream consumers (notifications, analytics) can act on it without
// reading the database.
type TicketsEvent struct {
	Type          string    `json:"type"`
	GroupID       string    `json:"group_id,omitempty"`
	ScheduleID    int64     `json:"schedule_id"`
	HolderID      string    `json:"holder_id"`
	TicketIDs     []string  `json:"ticket_ids"`
	SeatCodes     []string  `json:"seats"`
	TotalCents    int       `json:"total_cents"`
	SettlementID  string    `json:"settlement_id,omitempty"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
