package domain

import (
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketBooked    TicketStatus = "BOOKED"
	TicketPaid      TicketStatus = "PAID"
	TicketCancelled TicketStatus = "CANCELLED"
)

// Active reports whether a ticket in this status still occupies its seat.
func (s TicketStatus) Active() bool {
	return s == TicketBooked || s == TicketPaid
}

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentEWallet      PaymentMethod = "E_WALLET"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCreditCard, PaymentBankTransfer, PaymentEWallet:
		return true
	}
	return false
}

// Layout describes a room's seating. Rows is used when set, otherwise
// RowCount labels are generated. VIPRows and VIPRowIndices may be combined.
type Layout struct {
	Rows          []string `json:"rows,omitempty"`
	RowCount      int      `json:"row_count,omitempty"`
	SeatsPerRow   int      `json:"seats_per_row"`
	VIPRows       []string `json:"vip_rows,omitempty"`
	VIPRowIndices []int    `json:"vip_row_indices,omitempty"`
}

type Room struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Layout   Layout `json:"layout"`
}

type Subject struct {
	ID       int64         `json:"id"`
	Title    string        `json:"title"`
	Duration time.Duration `json:"duration"`
}

type Seat struct {
	Code   string `json:"code"`
	Row    string `json:"row"`
	Number int    `json:"number"`
	VIP    bool   `json:"vip"`
}

type Schedule struct {
	ID            int64     `json:"id"`
	SubjectID     int64     `json:"subject_id"`
	RoomID        int64     `json:"room_id"`
	Starts        time.Time `json:"starts_at"`
	Ends          time.Time `json:"ends_at"`
	PriceCents    int       `json:"price_cents"`
	VIPPriceCents int       `json:"vip_price_cents"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Overlaps reports whether [start, end) intersects the schedule's window.
// Windows that only touch do not overlap.
func (s Schedule) Overlaps(start, end time.Time) bool {
	return start.Before(s.Ends) && s.Starts.Before(end)
}

// SeatClaim is the inventory record of a claimed seat.
type SeatClaim struct {
	ScheduleID int64
	SeatCode   string
	TicketID   uuid.UUID
}

type Ticket struct {
	ID            uuid.UUID      `json:"id"`
	GroupID       uuid.UUID      `json:"group_id"`
	ScheduleID    int64          `json:"schedule_id"`
	SeatCode      string         `json:"seat_code"`
	HolderID      string         `json:"holder_id"`
	PriceCents    int            `json:"price_cents"`
	Status        TicketStatus   `json:"status"`
	BookedAt      time.Time      `json:"booked_at"`
	SettlementID  *uuid.UUID     `json:"settlement_id,omitempty"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
	PaidAt        *time.Time     `json:"paid_at,omitempty"`
	CancelledAt   *time.Time     `json:"cancelled_at,omitempty"`
}

// TicketGroup is the set of tickets created by one claim.
type TicketGroup struct {
	ID            uuid.UUID     `json:"id"`
	ScheduleID    int64         `json:"schedule_id"`
	HolderID      string        `json:"holder_id"`
	Status        DisplayStatus `json:"status"`
	TotalCents    int           `json:"total_cents"`
	ScheduleStart time.Time     `json:"schedule_starts_at"`
	Tickets       []Ticket      `json:"tickets"`
}

type Settlement struct {
	ID        uuid.UUID     `json:"id"`
	Method    PaymentMethod `json:"method"`
	TicketIDs []uuid.UUID   `json:"ticket_ids"`
	SettledAt time.Time     `json:"settled_at"`
	Replayed  bool          `json:"replayed"`
}

type Availability struct {
	ScheduleID int64    `json:"schedule_id"`
	Seats      []Seat   `json:"seats"`
	Booked     []string `json:"booked"`
	Total      int      `json:"total"`
	Free       int      `json:"free"`
}
