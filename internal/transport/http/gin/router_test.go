package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kirinyoku/seatline/internal/domain"
	"github.com/kirinyoku/seatline/internal/repository/memory"
	"github.com/kirinyoku/seatline/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now    = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	starts = time.Date(2026, 9, 2, 18, 0, 0, 0, time.UTC)
)

type testAPI struct {
	t *testing.T
	r *gin.Engine
}

func newTestAPI(t *testing.T, cfg RouterConfig) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svcs := service.NewServices(memory.NewStore(), service.Deps{Logger: logger}, service.Config{
		Now: func() time.Time { return now },
	})

	return &testAPI{t: t, r: NewRouter(svcs, nil, logger, cfg)}
}

func (a *testAPI) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	a.t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// seed creates a 3x4 room with VIP row C, a two hour subject and one
// schedule, and returns the schedule id.
func (a *testAPI) seed(headers map[string]string) int64 {
	a.t.Helper()

	w := a.do(http.MethodPost, "/admin/rooms", CreateRoomRequest{
		Name:   "Hall 1",
		Layout: domain.Layout{RowCount: 3, SeatsPerRow: 4, VIPRows: []string{"C"}},
	}, headers)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	room := decode[domain.Room](a.t, w)
	assert.Equal(a.t, 12, room.Capacity)

	w = a.do(http.MethodPost, "/admin/subjects", CreateSubjectRequest{Title: "Film", DurationMinutes: 120}, headers)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	subj := decode[SubjectResponse](a.t, w)
	assert.Equal(a.t, 120, subj.DurationMinutes)

	w = a.do(http.MethodPost, "/admin/schedules", ScheduleRequest{
		SubjectID: subj.ID, RoomID: room.ID, StartsAt: starts.Format(time.RFC3339),
		PriceCents: 900, VIPPriceCents: 1400,
	}, headers)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	sched := decode[domain.Schedule](a.t, w)
	assert.Equal(a.t, starts.Add(2*time.Hour), sched.Ends)

	return sched.ID
}

func as(holder string) map[string]string {
	return map[string]string{headerHolderID: holder}
}

func TestAdmin_ScheduleConflict(t *testing.T) {
	api := newTestAPI(t, RouterConfig{})
	id := api.seed(nil)

	sched := decode[domain.Schedule](t, api.do(http.MethodGet, fmt.Sprintf("/schedules/%d", id), nil, nil))

	w := api.do(http.MethodPost, "/admin/schedules", ScheduleRequest{
		SubjectID: sched.SubjectID, RoomID: sched.RoomID, StartsAt: starts.Add(time.Hour).Format(time.RFC3339),
	}, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	conflict := decode[ScheduleConflictResponse](t, w)
	assert.Equal(t, id, conflict.ScheduleID)
	assert.True(t, conflict.EndsAt.Equal(starts.Add(2*time.Hour)))

	w = api.do(http.MethodPost, "/admin/schedules", ScheduleRequest{
		SubjectID: sched.SubjectID, RoomID: sched.RoomID, StartsAt: starts.Add(2 * time.Hour).Format(time.RFC3339),
	}, nil)
	assert.Equal(t, http.StatusCreated, w.Code, "back-to-back schedules fit")

	w = api.do(http.MethodPost, "/admin/schedules", ScheduleRequest{
		SubjectID: sched.SubjectID, RoomID: sched.RoomID, StartsAt: "tomorrow",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	list := decode[[]domain.Schedule](t, api.do(http.MethodGet, fmt.Sprintf("/rooms/%d/schedules?from=%s&to=%s",
		sched.RoomID, starts.Add(-time.Hour).Format(time.RFC3339), starts.Add(6*time.Hour).Format(time.RFC3339)), nil, nil))
	assert.Len(t, list, 2)
}

func TestClaimFlow(t *testing.T) {
	api := newTestAPI(t, RouterConfig{})
	id := api.seed(nil)
	claimPath := fmt.Sprintf("/schedules/%d/claims", id)

	w := api.do(http.MethodPost, claimPath, ClaimRequest{Seats: []string{"c1", "A2"}}, as("alice"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	group := decode[domain.TicketGroup](t, w)
	assert.Equal(t, domain.DisplayBooked, group.Status)
	assert.Equal(t, 2300, group.TotalCents)

	w = api.do(http.MethodPost, claimPath, ClaimRequest{Seats: []string{"A1", "A2", "C1"}}, as("bob"))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.ElementsMatch(t, []string{"A2", "C1"}, decode[SeatConflictResponse](t, w).Taken)

	w = api.do(http.MethodPost, claimPath, ClaimRequest{Seats: []string{"Z9"}}, as("bob"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"Z9"}, decode[InvalidSeatsResponse](t, w).Seats)

	w = api.do(http.MethodPost, claimPath, ClaimRequest{Seats: []string{"A1"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	groupPath := "/ticket-groups/" + group.ID.String()
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, groupPath, nil, as("bob")).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, groupPath+"/cancel", nil, as("bob")).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/ticket-groups/"+uuid.NewString(), nil, as("alice")).Code)

	mine := decode[TicketGroupsResponse](t, api.do(http.MethodGet, "/me/tickets", nil, as("alice")))
	require.Len(t, mine.Groups, 1)
	assert.Equal(t, group.ID, mine.Groups[0].ID)

	w = api.do(http.MethodPost, groupPath+"/cancel", nil, as("alice"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.DisplayCancelled, decode[domain.TicketGroup](t, w).Status)

	w = api.do(http.MethodPost, groupPath+"/cancel", nil, as("alice"))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, claimPath, ClaimRequest{Seats: []string{"A1", "A2", "C1"}}, as("bob"))
	assert.Equal(t, http.StatusCreated, w.Code, "cancelled seats are free again")
}

func TestAvailability_ETag(t *testing.T) {
	api := newTestAPI(t, RouterConfig{})
	id := api.seed(nil)
	path := fmt.Sprintf("/schedules/%d/seats", id)

	w := api.do(http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	av := decode[domain.Availability](t, w)
	assert.Equal(t, 12, av.Free)
	assert.Empty(t, av.Booked)
	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	w = api.do(http.MethodGet, path, nil, map[string]string{"If-None-Match": tag})
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = api.do(http.MethodPost, path[:len(path)-len("/seats")]+"/claims", ClaimRequest{Seats: []string{"B3"}}, as("alice"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(http.MethodGet, path, nil, map[string]string{"If-None-Match": tag})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, tag, w.Header().Get("ETag"))
	assert.Equal(t, []string{"B3"}, decode[domain.Availability](t, w).Booked)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/schedules/999/seats", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/schedules/abc/seats", nil, nil).Code)
}

func TestSettle_IdempotencyKey(t *testing.T) {
	api := newTestAPI(t, RouterConfig{})
	id := api.seed(nil)

	w := api.do(http.MethodPost, fmt.Sprintf("/schedules/%d/claims", id), ClaimRequest{Seats: []string{"A1", "A2"}}, as("alice"))
	require.Equal(t, http.StatusCreated, w.Code)
	group := decode[domain.TicketGroup](t, w)

	req := SettleRequest{Method: "credit_card"}
	for _, tk := range group.Tickets {
		req.TicketIDs = append(req.TicketIDs, tk.ID.String())
	}
	headers := map[string]string{headerHolderID: "alice", headerIdempotencyKey: "order-42"}

	w = api.do(http.MethodPost, "/settlements", req, headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[domain.Settlement](t, w)
	assert.Equal(t, settlementID("order-42"), first.ID)
	assert.Equal(t, domain.PaymentCreditCard, first.Method)

	w = api.do(http.MethodPost, "/settlements", req, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[domain.Settlement](t, w).Replayed)

	headers[headerIdempotencyKey] = "order-43"
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/settlements", req, headers).Code)

	headers[headerHolderID] = "bob"
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/settlements", req, headers).Code)

	req.Method = "cheque"
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/settlements", req, as("alice")).Code)

	paid := decode[domain.TicketGroup](t, api.do(http.MethodGet, "/ticket-groups/"+group.ID.String(), nil, as("alice")))
	assert.Equal(t, domain.DisplayPaid, paid.Status)
}

func TestSettlementID(t *testing.T) {
	assert.Equal(t, uuid.Nil, settlementID(""))

	id := uuid.New()
	assert.Equal(t, id, settlementID(id.String()))

	assert.Equal(t, settlementID("abc"), settlementID("abc"))
	assert.NotEqual(t, settlementID("abc"), settlementID("abd"))
}

func TestJWTIdentity(t *testing.T) {
	const secret = "test-secret"
	api := newTestAPI(t, RouterConfig{JWTSecret: secret})

	token := func(claims jwt.MapClaims) map[string]string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return map[string]string{"Authorization": "Bearer " + s}
	}
	exp := time.Now().Add(time.Hour).Unix()

	admin := token(jwt.MapClaims{"sub": "ops", "role": "admin", "exp": exp})
	id := api.seed(admin)

	alice := token(jwt.MapClaims{"sub": "alice", "exp": exp})
	w := api.do(http.MethodPost, "/admin/subjects", CreateSubjectRequest{Title: "X", DurationMinutes: 10}, alice)
	assert.Equal(t, http.StatusForbidden, w.Code)

	claimPath := fmt.Sprintf("/schedules/%d/claims", id)
	w = api.do(http.MethodPost, claimPath, ClaimRequest{Seats: []string{"A1"}}, alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "alice", decode[domain.TicketGroup](t, w).HolderID)

	w = api.do(http.MethodPost, claimPath, ClaimRequest{Seats: []string{"A2"}}, as("alice"))
	assert.Equal(t, http.StatusUnauthorized, w.Code, "the header is ignored once tokens are required")

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}).SignedString([]byte("other"))
	require.NoError(t, err)
	w = api.do(http.MethodPost, claimPath, ClaimRequest{Seats: []string{"A2"}}, map[string]string{"Authorization": "Bearer " + forged})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired := token(jwt.MapClaims{"sub": "alice", "exp": time.Now().Add(-time.Minute).Unix()})
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/me/tickets", nil, expired).Code)
}

func TestEtagMatches(t *testing.T) {
	tag := etagOf([]byte(`{"a":1}`), false)

	assert.True(t, etagMatches(tag, tag))
	assert.True(t, etagMatches(`"x", `+tag, tag))
	assert.True(t, etagMatches("W/"+tag, tag))
	assert.True(t, etagMatches("*", tag))
	assert.False(t, etagMatches("", tag))
	assert.False(t, etagMatches(`"x"`, tag))
}

func TestPublicMessage(t *testing.T) {
	err := fmt.Errorf("service.ticket.Cancel:%w", fmt.Errorf("ticket group not found: %w", domain.ErrNotFound))
	assert.Equal(t, "ticket group not found: not found", publicMessage(err))
}

func TestReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svcs := service.NewServices(memory.NewStore(), service.Deps{Logger: logger}, service.Config{})

	down := errors.New("db down")
	var current error
	r := NewRouter(svcs, nil, logger, RouterConfig{Ready: func(context.Context) error { return current }})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	current = down
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))
}
