package httpgin

import (
	"time"

	"github.com/kirinyoku/seatline/internal/domain"
)

type CreateRoomRequest struct {
	Name   string        `json:"name" binding:"required"`
	Layout domain.Layout `json:"layout"`
}

type CreateSubjectRequest struct {
	Title           string `json:"title" binding:"required"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,gt=0"`
}

type ScheduleRequest struct {
	SubjectID     int64  `json:"subject_id" binding:"required"`
	RoomID        int64  `json:"room_id" binding:"required"`
	StartsAt      string `json:"starts_at" binding:"required"`
	PriceCents    int    `json:"price_cents" binding:"gte=0"`
	VIPPriceCents int    `json:"vip_price_cents" binding:"gte=0"`
}

type ClaimRequest struct {
	Seats []string `json:"seats" binding:"required,min=1,dive,required"`
}

type SettleRequest struct {
	TicketIDs []string `json:"ticket_ids" binding:"required,min=1,dive,uuid"`
	Method    string   `json:"method" binding:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SeatConflictResponse struct {
	Error string   `json:"error"`
	Taken []string `json:"taken"`
}

type InvalidSeatsResponse struct {
	Error string   `json:"error"`
	Seats []string `json:"seats"`
}

type ScheduleConflictResponse struct {
	Error      string    `json:"error"`
	ScheduleID int64     `json:"schedule_id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
}

type SubjectResponse struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_minutes"`
}

type TicketGroupsResponse struct {
	Groups []domain.TicketGroup `json:"groups"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

func subjectResponse(s *domain.Subject) SubjectResponse {
	return SubjectResponse{
		ID:              s.ID,
		Title:           s.Title,
		DurationMinutes: int(s.Duration / time.Minute),
	}
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
