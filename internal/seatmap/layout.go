// Package seatmap expands a room layout descriptor into its concrete seats.
package seatmap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kirinyoku/seatline/internal/domain"
)

// maxSeats caps the size of a single room.
const maxSeats = 10000

// ErrInvalidLayout is returned for descriptors that cannot produce a seat map.
var ErrInvalidLayout = fmt.Errorf("invalid layout: %w", domain.ErrInvalidInput)

// Expand returns every seat of the layout ordered by row, then seat number.
// The result only depends on the descriptor.
func Expand(l domain.Layout) ([]domain.Seat, error) {
	const op = "seatmap.Expand"

	if l.SeatsPerRow <= 0 {
		return nil, fmt.Errorf("%s:%w: seats_per_row must be positive", op, ErrInvalidLayout)
	}
	if l.SeatsPerRow > maxSeats {
		return nil, fmt.Errorf("%s:%w: more than %d seats", op, ErrInvalidLayout, maxSeats)
	}

	rows, err := rowLabels(l)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if len(rows) > maxSeats/l.SeatsPerRow {
		return nil, fmt.Errorf("%s:%w: more than %d seats", op, ErrInvalidLayout, maxSeats)
	}

	vip, err := vipRows(l, rows)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	seats := make([]domain.Seat, 0, len(rows)*l.SeatsPerRow)
	for _, row := range rows {
		for n := 1; n <= l.SeatsPerRow; n++ {
			seats = append(seats, domain.Seat{
				Code:   row + strconv.Itoa(n),
				Row:    row,
				Number: n,
				VIP:    vip[row],
			})
		}
	}

	return seats, nil
}

// Index maps normalized seat codes to their seats.
func Index(seats []domain.Seat) map[string]domain.Seat {
	idx := make(map[string]domain.Seat, len(seats))
	for _, s := range seats {
		idx[s.Code] = s
	}
	return idx
}

// NormalizeCode trims and upper-cases a seat code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeCodes normalizes and de-duplicates codes, keeping first-seen
// order. Blank codes are dropped.
func NormalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = NormalizeCode(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// RowLabel returns the label of the i-th row (0-based): A..Z, AA, AB, ...
func RowLabel(i int) string {
	var b []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// RowLabels returns the first n generated row labels.
func RowLabels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = RowLabel(i)
	}
	return out
}

func rowLabels(l domain.Layout) ([]string, error) {
	if len(l.Rows) == 0 {
		if l.RowCount <= 0 {
			return nil, fmt.Errorf("%w: row count must be positive", ErrInvalidLayout)
		}
		if l.RowCount > maxSeats {
			return nil, fmt.Errorf("%w: more than %d rows", ErrInvalidLayout, maxSeats)
		}
		return RowLabels(l.RowCount), nil
	}

	if len(l.Rows) > maxSeats {
		return nil, fmt.Errorf("%w: more than %d rows", ErrInvalidLayout, maxSeats)
	}

	seen := make(map[string]struct{}, len(l.Rows))
	rows := make([]string, len(l.Rows))
	for i, r := range l.Rows {
		r = NormalizeCode(r)
		if r == "" {
			return nil, fmt.Errorf("%w: blank row label at %d", ErrInvalidLayout, i)
		}
		if strings.IndexFunc(r, isDigit) >= 0 {
			return nil, fmt.Errorf("%w: row label %q contains digits", ErrInvalidLayout, r)
		}
		if _, ok := seen[r]; ok {
			return nil, fmt.Errorf("%w: duplicate row label %q", ErrInvalidLayout, r)
		}
		seen[r] = struct{}{}
		rows[i] = r
	}

	return rows, nil
}

func vipRows(l domain.Layout, rows []string) (map[string]bool, error) {
	known := make(map[string]bool, len(rows))
	for _, r := range rows {
		known[r] = true
	}

	vip := make(map[string]bool)
	for _, label := range l.VIPRows {
		label = NormalizeCode(label)
		if !known[label] {
			return nil, fmt.Errorf("%w: vip row %q is not in layout", ErrInvalidLayout, label)
		}
		vip[label] = true
	}

	for _, i := range l.VIPRowIndices {
		if i < 0 || i >= len(rows) {
			return nil, fmt.Errorf("%w: vip row index %d out of range", ErrInvalidLayout, i)
		}
		vip[rows[i]] = true
	}

	return vip, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// IsInvalidLayout reports whether err came from a bad descriptor.
func IsInvalidLayout(err error) bool {
	return errors.Is(err, ErrInvalidLayout)
}
