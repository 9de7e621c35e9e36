package domain

import "time"

// DisplayStatus is the status shown for a ticket or ticket group. It is
// derived at read time and never stored.
type DisplayStatus string

const (
	DisplayBooked    DisplayStatus = "BOOKED"
	DisplayPaid      DisplayStatus = "PAID"
	DisplayCancelled DisplayStatus = "CANCELLED"
	DisplayOverdue   DisplayStatus = "OVERDUE"
)

// Overdue reports whether a BOOKED ticket's schedule has already started.
func Overdue(status TicketStatus, startsAt, now time.Time) bool {
	return status == TicketBooked && now.After(startsAt)
}

// DeriveDisplayStatus reduces the stored statuses of a group to one display
// status.
//
// Any BOOKED member makes the group BOOKED, or OVERDUE once now is past
// startsAt. Otherwise an all-PAID group is PAID and an all-CANCELLED group is
// CANCELLED. A PAID/CANCELLED mix reports PAID; GroupConsistent flags it.
// An empty group reports CANCELLED.
func DeriveDisplayStatus(statuses []TicketStatus, startsAt, now time.Time) DisplayStatus {
	var booked, paid int
	for _, s := range statuses {
		switch s {
		case TicketBooked:
			booked++
		case TicketPaid:
			paid++
		case TicketCancelled:
		}
	}

	switch {
	case booked > 0 && now.After(startsAt):
		return DisplayOverdue
	case booked > 0:
		return DisplayBooked
	case paid > 0:
		return DisplayPaid
	default:
		return DisplayCancelled
	}
}

// GroupConsistent reports whether all statuses are equal. Group operations
// are atomic, so a mixed group means a write bypassed them.
func GroupConsistent(statuses []TicketStatus) bool {
	for i := 1; i < len(statuses); i++ {
		if statuses[i] != statuses[0] {
			return false
		}
	}
	return true
}

// NewTicketGroup assembles a group view from tickets sharing a group id.
func NewTicketGroup(tickets []Ticket, startsAt, now time.Time) TicketGroup {
	g := TicketGroup{ScheduleStart: startsAt, Tickets: tickets}
	if len(tickets) == 0 {
		g.Status = DisplayCancelled
		return g
	}

	g.ID = tickets[0].GroupID
	g.ScheduleID = tickets[0].ScheduleID
	g.HolderID = tickets[0].HolderID

	statuses := make([]TicketStatus, len(tickets))
	for i, t := range tickets {
		statuses[i] = t.Status
		if t.Status != TicketCancelled {
			g.TotalCents += t.PriceCents
		}
	}
	g.Status = DeriveDisplayStatus(statuses, startsAt, now)

	return g
}

// Statuses returns the stored status of every ticket in the group.
func (g TicketGroup) Statuses() []TicketStatus {
	out := make([]TicketStatus, len(g.Tickets))
	for i, t := range g.Tickets {
		out[i] = t.Status
	}
	return out
}
