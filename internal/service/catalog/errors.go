package catalog

import (
	"errors"
	"fmt"

	"github.com/kirinyoku/seatline/internal/domain"
)

var (
	ErrRoomNotFound    = fmt.Errorf("room not found: %w", domain.ErrNotFound)
	ErrSubjectNotFound = fmt.Errorf("subject not found: %w", domain.ErrNotFound)
	ErrRoomExists      = fmt.Errorf("room name already taken: %w", domain.ErrConflict)
	ErrInvalidSubject  = fmt.Errorf("invalid subject: %w", domain.ErrInvalidInput)
	ErrInvalidRoom     = fmt.Errorf("invalid room: %w", domain.ErrInvalidInput)
)

var errBlankName = errors.New("name must not be blank")
