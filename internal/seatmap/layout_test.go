package seatmap

import (
	"math"
	"testing"

	"github.com/kirinyoku/seatline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_ExplicitRows(t *testing.T) {
	l := domain.Layout{Rows: []string{"A", "B"}, SeatsPerRow: 5, VIPRows: []string{"B"}}

	for range 3 {
		seats, err := Expand(l)
		require.NoError(t, err)
		require.Len(t, seats, 10)

		codes := make([]string, len(seats))
		for i, s := range seats {
			codes[i] = s.Code
			assert.Equal(t, s.Row == "B", s.VIP, s.Code)
		}
		assert.Equal(t, []string{"A1", "A2", "A3", "A4", "A5", "B1", "B2", "B3", "B4", "B5"}, codes)
	}
}

func TestExpand_GeneratedRowsAndVIPIndices(t *testing.T) {
	seats, err := Expand(domain.Layout{RowCount: 3, SeatsPerRow: 2, VIPRowIndices: []int{0}})
	require.NoError(t, err)

	assert.Equal(t, domain.Seat{Code: "A1", Row: "A", Number: 1, VIP: true}, seats[0])
	assert.Equal(t, domain.Seat{Code: "C2", Row: "C", Number: 2, VIP: false}, seats[5])
}

func TestExpand_NormalizesLabels(t *testing.T) {
	seats, err := Expand(domain.Layout{Rows: []string{" f "}, SeatsPerRow: 12, VIPRows: []string{"F"}})
	require.NoError(t, err)
	assert.Equal(t, "F12", seats[11].Code)
	assert.True(t, seats[11].VIP)
}

func TestExpand_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		layout domain.Layout
	}{
		{"no rows", domain.Layout{SeatsPerRow: 5}},
		{"negative row count", domain.Layout{RowCount: -1, SeatsPerRow: 5}},
		{"zero seats", domain.Layout{RowCount: 2}},
		{"unknown vip label", domain.Layout{Rows: []string{"A"}, SeatsPerRow: 1, VIPRows: []string{"Z"}}},
		{"vip index out of range", domain.Layout{RowCount: 2, SeatsPerRow: 1, VIPRowIndices: []int{2}}},
		{"duplicate rows", domain.Layout{Rows: []string{"A", "a"}, SeatsPerRow: 1}},
		{"blank row", domain.Layout{Rows: []string{"A", " "}, SeatsPerRow: 1}},
		{"digit in row", domain.Layout{Rows: []string{"A1"}, SeatsPerRow: 1}},
		{"seat count overflows", domain.Layout{Rows: []string{"A", "B"}, SeatsPerRow: math.MaxInt/2 + 1}},
		{"too many seats", domain.Layout{RowCount: 101, SeatsPerRow: 100}},
		{"huge row count", domain.Layout{RowCount: math.MaxInt32, SeatsPerRow: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Expand(tt.layout)
			require.Error(t, err)
			assert.True(t, IsInvalidLayout(err))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestExpand_LargestRoom(t *testing.T) {
	seats, err := Expand(domain.Layout{RowCount: 100, SeatsPerRow: 100})
	require.NoError(t, err)
	assert.Len(t, seats, 10000)
	assert.Equal(t, "CV100", seats[len(seats)-1].Code)
}

func TestRowLabel(t *testing.T) {
	assert.Equal(t, "A", RowLabel(0))
	assert.Equal(t, "Z", RowLabel(25))
	assert.Equal(t, "AA", RowLabel(26))
	assert.Equal(t, "AB", RowLabel(27))
	assert.Equal(t, "AZ", RowLabel(51))
	assert.Equal(t, "BA", RowLabel(52))
	assert.Equal(t, "ZZ", RowLabel(701))
	assert.Equal(t, "AAA", RowLabel(702))
}

func TestNormalizeCodes(t *testing.T) {
	assert.Equal(t, []string{"F12", "A1"}, NormalizeCodes([]string{" f12", "A1", "F12", "", "a1"}))
}
