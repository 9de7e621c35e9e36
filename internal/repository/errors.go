package repository

import (
	"errors"
	"fmt"

	"github.com/kirinyoku/seatline/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrUnavailable wraps failures that leave the store unable to run a
	// transaction at all (connection loss, failed BEGIN).
	ErrUnavailable = fmt.Errorf("store: %w", domain.ErrUnavailable)
)
