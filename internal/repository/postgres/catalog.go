package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirinyoku/seatline/internal/domain"
)

type CatalogRepo struct {
	db DB
}

func (r *CatalogRepo) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	const op = "postgres.CatalogRepo.GetRoom"

	var room domain.Room
	var layout []byte

	err := r.db.QueryRow(ctx,
		`SELECT id, name, capacity, layout
		 FROM rooms WHERE id = $1`,
		id,
	).Scan(&room.ID, &room.Name, &room.Capacity, &layout)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	if err := json.Unmarshal(layout, &room.Layout); err != nil {
		return nil, fmt.Errorf("%s: decode layout: %w", op, err)
	}

	return &room, nil
}

func (r *CatalogRepo) GetSubject(ctx context.Context, id int64) (*domain.Subject, error) {
	const op = "postgres.CatalogRepo.GetSubject"

	var s domain.Subject
	var seconds int64

	err := r.db.QueryRow(ctx,
		`SELECT id, title, duration_seconds
		 FROM subjects WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Title, &seconds)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	s.Duration = time.Duration(seconds) * time.Second

	return &s, nil
}

func (r *CatalogRepo) CreateRoom(ctx context.Context, room domain.Room) (int64, error) {
	const op = "postgres.CatalogRepo.CreateRoom"

	layout, err := json.Marshal(room.Layout)
	if err != nil {
		return 0, fmt.Errorf("%s: encode layout: %w", op, err)
	}

	var id int64
	if err := r.db.QueryRow(ctx,
		`INSERT INTO rooms(name, capacity, layout)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		room.Name, room.Capacity, layout,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *CatalogRepo) CreateSubject(ctx context.Context, subject domain.Subject) (int64, error) {
	const op = "postgres.CatalogRepo.CreateSubject"

	var id int64
	if err := r.db.QueryRow(ctx,
		`INSERT INTO subjects(title, duration_seconds)
		 VALUES ($1, $2)
		 RETURNING id`,
		subject.Title, int64(subject.Duration/time.Second),
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}
