package payment

import (
	"fmt"

	"github.com/kirinyoku/seatline/internal/domain"
)

var (
	ErrNoTickets        = fmt.Errorf("no tickets to settle: %w", domain.ErrInvalidInput)
	ErrInvalidMethod    = fmt.Errorf("unknown payment method: %w", domain.ErrInvalidInput)
	ErrTicketNotFound   = fmt.Errorf("ticket not found: %w", domain.ErrNotFound)
	ErrPartialOwnership = fmt.Errorf("tickets belong to different holders: %w", domain.ErrStateViolation)
	ErrNotOwned         = fmt.Errorf("tickets belong to another holder: %w", domain.ErrUnauthorized)
	ErrNotAllBooked     = fmt.Errorf("not every ticket is payable: %w", domain.ErrStateViolation)
	ErrSettledElsewhere = fmt.Errorf("tickets already paid by another settlement: %w", domain.ErrConflict)
)
