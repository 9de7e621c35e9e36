package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seatline/internal/domain"
	"github.com/kirinyoku/seatline/internal/repository"
)

type catalogRepo struct {
	access access
}

func (r *catalogRepo) GetRoom(_ context.Context, id int64) (*domain.Room, error) {
	var out *domain.Room
	err := r.access(func(st *state) error {
		room, ok := st.rooms[id]
		if !ok {
			return fmt.Errorf("memory.GetRoom:%w", repository.ErrNotFound)
		}
		out = &room
		return nil
	})
	return out, err
}

func (r *catalogRepo) GetSubject(_ context.Context, id int64) (*domain.Subject, error) {
	var out *domain.Subject
	err := r.access(func(st *state) error {
		s, ok := st.subjects[id]
		if !ok {
			return fmt.Errorf("memory.GetSubject:%w", repository.ErrNotFound)
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *catalogRepo) CreateRoom(_ context.Context, room domain.Room) (int64, error) {
	var id int64
	err := r.access(func(st *state) error {
		if _, ok := st.roomNames[room.Name]; ok {
			return fmt.Errorf("memory.CreateRoom:%w", repository.ErrConflict)
		}
		st.nextRoomID++
		id = st.nextRoomID
		room.ID = id
		st.rooms[id] = room
		st.roomNames[room.Name] = id
		return nil
	})
	return id, err
}

func (r *catalogRepo) CreateSubject(_ context.Context, subject domain.Subject) (int64, error) {
	var id int64
	err := r.access(func(st *state) error {
		st.nextSubjectID++
		id = st.nextSubjectID
		subject.ID = id
		st.subjects[id] = subject
		return nil
	})
	return id, err
}

type scheduleRepo struct {
	access access
}

func (r *scheduleRepo) Get(_ context.Context, id int64) (*domain.Schedule, error) {
	var out *domain.Schedule
	err := r.access(func(st *state) error {
		s, ok := st.schedules[id]
		if !ok {
			return fmt.Errorf("memory.GetSchedule:%w", repository.ErrNotFound)
		}
		out = &s
		return nil
	})
	return out, err
}

// GetForUpdate needs no lock: transactions are already serialized.
func (r *scheduleRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Schedule, error) {
	return r.Get(ctx, id)
}

func (r *scheduleRepo) ListByRoom(_ context.Context, roomID int64, from, to time.Time) ([]domain.Schedule, error) {
	var out []domain.Schedule
	err := r.access(func(st *state) error {
		for _, s := range st.schedules {
			if s.RoomID == roomID && s.Overlaps(from, to) {
				out = append(out, s)
			}
		}
		return nil
	})
	sortSchedules(out)
	return out, err
}

func (r *scheduleRepo) FindOverlapping(
	_ context.Context,
	roomID int64,
	start, end time.Time,
	excludeID int64,
) ([]domain.Schedule, error) {
	var out []domain.Schedule
	err := r.access(func(st *state) error {
		out = overlapping(st, roomID, start, end, excludeID)
		return nil
	})
	return out, err
}

func (r *scheduleRepo) Create(_ context.Context, s domain.Schedule) (int64, error) {
	var id int64
	err := r.access(func(st *state) error {
		if err := checkScheduleRefs(st, s); err != nil {
			return err
		}
		st.nextScheduleID++
		id = st.nextScheduleID
		s.ID = id
		st.schedules[id] = s
		return nil
	})
	return id, err
}

func (r *scheduleRepo) Update(_ context.Context, s domain.Schedule) error {
	return r.access(func(st *state) error {
		cur, ok := st.schedules[s.ID]
		if !ok {
			return fmt.Errorf("memory.UpdateSchedule:%w", repository.ErrNotFound)
		}
		if err := checkScheduleRefs(st, s); err != nil {
			return err
		}
		s.CreatedAt = cur.CreatedAt
		st.schedules[s.ID] = s
		return nil
	})
}

// Delete cascades to the schedule's tickets and claims.
func (r *scheduleRepo) Delete(_ context.Context, id int64) error {
	return r.access(func(st *state) error {
		if _, ok := st.schedules[id]; !ok {
			return fmt.Errorf("memory.DeleteSchedule:%w", repository.ErrNotFound)
		}
		delete(st.schedules, id)
		for tid, t := range st.tickets {
			if t.ScheduleID == id {
				delete(st.tickets, tid)
			}
		}
		for k := range st.claims {
			if k.scheduleID == id {
				delete(st.claims, k)
			}
		}
		return nil
	})
}

// checkScheduleRefs mirrors the foreign keys and the per-room exclusion
// constraint of the SQL schema.
func checkScheduleRefs(st *state, s domain.Schedule) error {
	if _, ok := st.rooms[s.RoomID]; !ok {
		return fmt.Errorf("memory.schedule room %d:%w", s.RoomID, repository.ErrNotFound)
	}
	if _, ok := st.subjects[s.SubjectID]; !ok {
		return fmt.Errorf("memory.schedule subject %d:%w", s.SubjectID, repository.ErrNotFound)
	}
	if len(overlapping(st, s.RoomID, s.Starts, s.Ends, s.ID)) > 0 {
		return fmt.Errorf("memory.schedule overlap:%w", repository.ErrConflict)
	}
	return nil
}

func overlapping(st *state, roomID int64, start, end time.Time, excludeID int64) []domain.Schedule {
	var out []domain.Schedule
	for _, s := range st.schedules {
		if s.RoomID != roomID || (excludeID != 0 && s.ID == excludeID) {
			continue
		}
		if s.Overlaps(start, end) {
			out = append(out, s)
		}
	}
	sortSchedules(out)
	return out
}

func sortSchedules(s []domain.Schedule) {
	slices.SortFunc(s, func(a, b domain.Schedule) int {
		if c := a.Starts.Compare(b.Starts); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

type claimRepo struct {
	access access
}

func (r *claimRepo) Insert(_ context.Context, claims []domain.SeatClaim) error {
	return r.access(func(st *state) error {
		pending := make(map[claimKey]uuid.UUID, len(claims))
		for _, c := range claims {
			k := claimKey{scheduleID: c.ScheduleID, seatCode: c.SeatCode}
			if _, taken := st.claims[k]; taken {
				return fmt.Errorf("memory.InsertClaims %s:%w", c.SeatCode, repository.ErrConflict)
			}
			if _, dup := pending[k]; dup {
				return fmt.Errorf("memory.InsertClaims %s:%w", c.SeatCode, repository.ErrConflict)
			}
			if _, ok := st.schedules[c.ScheduleID]; !ok {
				return fmt.Errorf("memory.InsertClaims schedule %d:%w", c.ScheduleID, repository.ErrNotFound)
			}
			pending[k] = c.TicketID
		}
		for k, v := range pending {
			st.claims[k] = v
		}
		return nil
	})
}

func (r *claimRepo) DeleteByTickets(_ context.Context, ticketIDs []uuid.UUID) (int64, error) {
	var n int64
	err := r.access(func(st *state) error {
		ids := make(map[uuid.UUID]struct{}, len(ticketIDs))
		for _, id := range ticketIDs {
			ids[id] = struct{}{}
		}
		for k, tid := range st.claims {
			if _, ok := ids[tid]; ok {
				delete(st.claims, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *claimRepo) SeatCodes(_ context.Context, scheduleID int64) ([]string, error) {
	var out []string
	err := r.access(func(st *state) error {
		for k := range st.claims {
			if k.scheduleID == scheduleID {
				out = append(out, k.seatCode)
			}
		}
		return nil
	})
	slices.Sort(out)
	return out, err
}

type ticketRepo struct {
	access access
}

func (r *ticketRepo) Create(_ context.Context, tickets []domain.Ticket) error {
	return r.access(func(st *state) error {
		active := make(map[claimKey]struct{})
		for _, t := range st.tickets {
			if t.Status.Active() {
				active[claimKey{scheduleID: t.ScheduleID, seatCode: t.SeatCode}] = struct{}{}
			}
		}
		for _, t := range tickets {
			if _, ok := st.tickets[t.ID]; ok {
				return fmt.Errorf("memory.CreateTickets %s:%w", t.ID, repository.ErrConflict)
			}
			if _, ok := st.schedules[t.ScheduleID]; !ok {
				return fmt.Errorf("memory.CreateTickets schedule %d:%w", t.ScheduleID, repository.ErrNotFound)
			}
			k := claimKey{scheduleID: t.ScheduleID, seatCode: t.SeatCode}
			if t.Status.Active() {
				if _, ok := active[k]; ok {
					return fmt.Errorf("memory.CreateTickets %s:%w", t.SeatCode, repository.ErrConflict)
				}
				active[k] = struct{}{}
			}
		}
		for _, t := range tickets {
			st.tickets[t.ID] = t
		}
		return nil
	})
}

func (r *ticketRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.access(func(st *state) error {
		seen := make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if t, ok := st.tickets[id]; ok {
				out = append(out, t)
			}
		}
		return nil
	})
	sortBySeat(out)
	return out, err
}

func (r *ticketRepo) ListByGroup(_ context.Context, groupID uuid.UUID) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.access(func(st *state) error {
		for _, t := range st.tickets {
			if t.GroupID == groupID {
				out = append(out, t)
			}
		}
		return nil
	})
	sortBySeat(out)
	return out, err
}

// ListByGroupForUpdate needs no lock: a transaction owns its private copy.
func (r *ticketRepo) ListByGroupForUpdate(ctx context.Context, groupID uuid.UUID) ([]domain.Ticket, error) {
	return r.ListByGroup(ctx, groupID)
}

func (r *ticketRepo) ListByHolder(_ context.Context, holderID string, limit, offset int) ([]domain.Ticket, error) {
	byGroup := make(map[uuid.UUID][]domain.Ticket)
	err := r.access(func(st *state) error {
		for _, t := range st.tickets {
			if t.HolderID == holderID {
				byGroup[t.GroupID] = append(byGroup[t.GroupID], t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	type groupKey struct {
		id       uuid.UUID
		bookedAt time.Time
	}
	groups := make([]groupKey, 0, len(byGroup))
	for id, members := range byGroup {
		g := groupKey{id: id}
		for _, t := range members {
			if t.BookedAt.After(g.bookedAt) {
				g.bookedAt = t.BookedAt
			}
		}
		groups = append(groups, g)
	}
	slices.SortFunc(groups, func(a, b groupKey) int {
		if c := b.bookedAt.Compare(a.bookedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.id.String(), b.id.String())
	})

	if offset >= len(groups) {
		return nil, nil
	}
	groups = groups[offset:]
	if limit > 0 && limit < len(groups) {
		groups = groups[:limit]
	}

	var out []domain.Ticket
	for _, g := range groups {
		members := byGroup[g.id]
		sortBySeat(members)
		out = append(out, members...)
	}

	return out, nil
}

func (r *ticketRepo) CountActiveBySchedule(_ context.Context, scheduleID int64) (int64, error) {
	var n int64
	err := r.access(func(st *state) error {
		for _, t := range st.tickets {
			if t.ScheduleID == scheduleID && t.Status.Active() {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *ticketRepo) MarkPaid(_ context.Context, ids []uuid.UUID, s domain.Settlement) error {
	return r.transition(ids, func(t *domain.Ticket) {
		sid, method, at := s.ID, s.Method, s.SettledAt
		t.Status = domain.TicketPaid
		t.SettlementID = &sid
		t.PaymentMethod = &method
		t.PaidAt = &at
	})
}

func (r *ticketRepo) MarkCancelled(_ context.Context, ids []uuid.UUID, at time.Time) error {
	return r.transition(ids, func(t *domain.Ticket) {
		t.Status = domain.TicketCancelled
		t.CancelledAt = &at
	})
}

// transition applies fn to every BOOKED ticket in ids, or to none of them.
func (r *ticketRepo) transition(ids []uuid.UUID, fn func(t *domain.Ticket)) error {
	return r.access(func(st *state) error {
		for _, id := range ids {
			t, ok := st.tickets[id]
			if !ok || t.Status != domain.TicketBooked {
				return fmt.Errorf("memory.transition %s:%w", id, repository.ErrConflict)
			}
		}
		for _, id := range ids {
			t := st.tickets[id]
			fn(&t)
			st.tickets[id] = t
		}
		return nil
	})
}

func sortBySeat(t []domain.Ticket) {
	slices.SortFunc(t, func(a, b domain.Ticket) int {
		return cmp.Compare(a.SeatCode, b.SeatCode)
	})
}
