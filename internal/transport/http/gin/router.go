package httpgin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/seatline/internal/domain"
	redisrepo "github.com/kirinyoku/seatline/internal/repository/redis"
	"github.com/kirinyoku/seatline/internal/service"
	"github.com/kirinyoku/seatline/internal/service/inventory"
	"github.com/kirinyoku/seatline/internal/service/payment"
	"github.com/kirinyoku/seatline/internal/service/schedule"
	"github.com/kirinyoku/seatline/internal/service/ticket"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	headerIdempotencyKey = "Idempotency-Key"

	idemLockTTL       = 60 * time.Second
	defaultListWindow = 7 * 24 * time.Hour
	defaultPageSize   = 20
	maxPageSize       = 100
)

type RouterConfig struct {
	// JWTSecret enables bearer-token identity. Empty means the holder id is
	// read from the X-Holder-ID header and admin routes are open.
	JWTSecret string
	// Ready backs /readyz. Nil reports ready.
	Ready func(ctx context.Context) error
}

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	cfg RouterConfig,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		if cfg.Ready != nil {
			if err := cfg.Ready(c.Request.Context()); err != nil {
				c.Header("Retry-After", "5")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Public API
	r.GET("/schedules/:id", handleGetSchedule(svcs))
	r.GET("/schedules/:id/seats", handleGetAvailability(svcs))
	r.GET("/rooms/:id/schedules", handleListRoomSchedules(svcs))

	holder := r.Group("/", IdentityMiddleware(cfg.JWTSecret))
	{
		holder.POST("/schedules/:id/claims", handleClaim(svcs, idem))
		holder.GET("/ticket-groups/:id", handleGetTicketGroup(svcs))
		holder.POST("/ticket-groups/:id/cancel", handleCancelTicketGroup(svcs))
		holder.GET("/me/tickets", handleListMyTickets(svcs))
		holder.POST("/settlements", handleSettle(svcs))
	}

	admin := r.Group("/admin", AdminMiddleware(cfg.JWTSecret))
	{
		admin.POST("/rooms", handleCreateRoom(svcs))
		admin.POST("/subjects", handleCreateSubject(svcs))
		admin.POST("/schedules", handleCreateSchedule(svcs))
		admin.PUT("/schedules/:id", handleUpdateSchedule(svcs))
		admin.DELETE("/schedules/:id", handleDeleteSchedule(svcs))
	}

	return r
}

// @Summary  Get schedule
// @Param    id  path  int  true  "Schedule ID"
// @Success  200  {object}  domain.Schedule
// @Failure  404  {object}  ErrorResponse
// @Router   /schedules/{id} [get]
func handleGetSchedule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		sched, err := svcs.Schedule.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, sched)
	}
}

// @Summary  Seat map with booked seats
// @Param    id  path  int  true  "Schedule ID"
// @Header   200 {string} ETag "content hash"
// @Success  200  {object}  domain.Availability
// @Success  304
// @Failure  404  {object}  ErrorResponse
// @Router   /schedules/{id}/seats [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		av, err := svcs.Inventory.Availability(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, av, "no-cache", false)
	}
}

// @Summary  List schedules of a room
// @Param    id    path   int     true   "Room ID"
// @Param    from  query  string  false  "window start (RFC3339), default now"
// @Param    to    query  string  false  "window end (RFC3339), default from + 7 days"
// @Success  200  {array}  domain.Schedule
// @Failure  400  {object}  ErrorResponse
// @Router   /rooms/{id}/schedules [get]
func handleListRoomSchedules(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		from := time.Now().UTC()
		if s := c.Query("from"); s != "" {
			t, err := parseRFC3339(s)
			if err != nil {
				badRequest(c, "invalid from (RFC3339)")
				return
			}
			from = t
		}

		to := from.Add(defaultListWindow)
		if s := c.Query("to"); s != "" {
			t, err := parseRFC3339(s)
			if err != nil {
				badRequest(c, "invalid to (RFC3339)")
				return
			}
			to = t
		}

		list, err := svcs.Schedule.ListByRoom(c.Request.Context(), roomID, from, to)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Claim seats (idempotent)
// @Param    id  path  int  true  "Schedule ID"
// @Param    req body  ClaimRequest true "payload"
// @Param    Idempotency-Key header string false "replays the first response"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.TicketGroup
// @Failure  400 {object} InvalidSeatsResponse
// @Failure  409 {object} SeatConflictResponse "seats taken / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /schedules/{id}/claims [post]
func handleClaim(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheduleID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req ClaimRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		holder := holderID(c)
		idemKey := strings.TrimSpace(c.GetHeader(headerIdempotencyKey))

		var storageKey string
		if idem != nil && idemKey != "" {
			storageKey = redisrepo.KeyIdemClaim(scheduleID, holder, idemKey)

			if replayStored(c, idem, storageKey, idemKey) {
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), storageKey, idemLockTTL)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if replayStored(c, idem, storageKey, idemKey) {
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		group, err := svcs.Ticket.Claim(c.Request.Context(), scheduleID, req.Seats, holder)
		if err != nil {
			if storageKey != "" {
				_ = idem.Release(c.Request.Context(), storageKey)
			}
			respondErr(c, err)
			return
		}

		if storageKey != "" {
			b, _ := json.Marshal(group)
			_ = idem.SaveResult(c.Request.Context(), storageKey, string(b))
			c.Header(headerIdempotencyKey, idemKey)
		}

		c.JSON(http.StatusCreated, group)
	}
}

// replayStored writes a stored claim response and reports whether there was
// one.
func replayStored(c *gin.Context, idem *redisrepo.IdempotencyStore, storageKey, idemKey string) bool {
	payload, ok, _ := idem.GetResult(c.Request.Context(), storageKey)
	if !ok {
		return false
	}

	c.Header(headerIdempotencyKey, idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
	return true
}

// @Summary  Get ticket group
// @Param    id  path  string  true  "Ticket group ID (uuid)"
// @Success  200 {object} domain.TicketGroup
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /ticket-groups/{id} [get]
func handleGetTicketGroup(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		g, err := svcs.Ticket.GetGroup(c.Request.Context(), groupID, holderID(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, g)
	}
}

// @Summary  Cancel ticket group
// @Param    id  path  string  true  "Ticket group ID (uuid)"
// @Success  200 {object} domain.TicketGroup
// @Failure  403 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "already paid or cancelled"
// @Router   /ticket-groups/{id}/cancel [post]
func handleCancelTicketGroup(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		g, err := svcs.Ticket.Cancel(c.Request.Context(), groupID, holderID(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, g)
	}
}

// @Summary  List my ticket groups
// @Param    limit  query  int  false  "page size (default 20, max 100)"
// @Param    offset query  int  false  "offset"
// @Success  200 {object} TicketGroupsResponse
// @Router   /me/tickets [get]
func handleListMyTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), defaultPageSize)
		if limit <= 0 || limit > maxPageSize {
			limit = defaultPageSize
		}
		offset := parseIntDefault(c.Query("offset"), 0)
		if offset < 0 {
			offset = 0
		}

		groups, err := svcs.Ticket.ListByHolder(c.Request.Context(), holderID(c), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}

		if groups == nil {
			groups = []domain.TicketGroup{}
		}

		c.JSON(http.StatusOK, TicketGroupsResponse{Groups: groups, Limit: limit, Offset: offset})
	}
}

// @Summary  Apply a payment result
// @Description The Idempotency-Key header becomes the settlement id. A uuid is
// @Description used as is, any other key is hashed into one.
// @Param    req body  SettleRequest true "payload"
// @Param    Idempotency-Key header string false "settlement id"
// @Success  200 {object} domain.Settlement "replayed settlement"
// @Success  201 {object} domain.Settlement
// @Failure  409 {object} ErrorResponse "not every ticket is payable"
// @Router   /settlements [post]
func handleSettle(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SettleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ids := make([]uuid.UUID, 0, len(req.TicketIDs))
		for _, s := range req.TicketIDs {
			id, err := uuid.Parse(s)
			if err != nil {
				badRequest(c, "invalid ticket id "+s)
				return
			}
			ids = append(ids, id)
		}

		idemKey := strings.TrimSpace(c.GetHeader(headerIdempotencyKey))

		res, err := svcs.Payment.Settle(c.Request.Context(), payment.SettleInput{
			TicketIDs:    ids,
			Method:       domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.Method))),
			SettlementID: settlementID(idemKey),
			HolderID:     holderID(c),
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		if idemKey != "" {
			c.Header(headerIdempotencyKey, idemKey)
		}

		status := http.StatusCreated
		if res.Replayed {
			status = http.StatusOK
		}
		c.JSON(status, res)
	}
}

// settlementID maps an idempotency key onto a settlement id. The same key
// always yields the same id.
func settlementID(key string) uuid.UUID {
	if key == "" {
		return uuid.Nil
	}
	if id, err := uuid.Parse(key); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("seatline:settlement:"+key))
}

// @Summary  Create room
// @Param    req body  CreateRoomRequest true "payload"
// @Success  201 {object} domain.Room
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "name taken"
// @Router   /admin/rooms [post]
func handleCreateRoom(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		room, err := svcs.Catalog.CreateRoom(c.Request.Context(), req.Name, req.Layout)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, room)
	}
}

// @Summary  Create subject
// @Param    req body  CreateSubjectRequest true "payload"
// @Success  201 {object} SubjectResponse
// @Failure  400 {object} ErrorResponse
// @Router   /admin/subjects [post]
func handleCreateSubject(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateSubjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		subj, err := svcs.Catalog.CreateSubject(
			c.Request.Context(),
			req.Title,
			time.Duration(req.DurationMinutes)*time.Minute,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, subjectResponse(subj))
	}
}

// @Summary  Create schedule
// @Param    req body  ScheduleRequest true "payload"
// @Success  201 {object} domain.Schedule
// @Failure  409 {object} ScheduleConflictResponse
// @Router   /admin/schedules [post]
func handleCreateSchedule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindScheduleInput(c)
		if !ok {
			return
		}

		sched, err := svcs.Schedule.Create(c.Request.Context(), in)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, sched)
	}
}

// @Summary  Update schedule
// @Param    id  path  int  true  "Schedule ID"
// @Param    req body  ScheduleRequest true "payload"
// @Success  200 {object} domain.Schedule
// @Failure  409 {object} ScheduleConflictResponse
// @Router   /admin/schedules/{id} [put]
func handleUpdateSchedule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		in, ok := bindScheduleInput(c)
		if !ok {
			return
		}

		sched, err := svcs.Schedule.Update(c.Request.Context(), id, in)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, sched)
	}
}

// @Summary  Delete schedule
// @Param    id  path  int  true  "Schedule ID"
// @Success  204
// @Failure  409 {object} ErrorResponse "has active tickets"
// @Router   /admin/schedules/{id} [delete]
func handleDeleteSchedule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		if err := svcs.Schedule.Delete(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// --- Helpers ---

func bindScheduleInput(c *gin.Context) (schedule.Input, bool) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return schedule.Input{}, false
	}

	starts, err := parseRFC3339(req.StartsAt)
	if err != nil {
		badRequest(c, "invalid starts_at (RFC3339)")
		return schedule.Input{}, false
	}

	return schedule.Input{
		SubjectID:     req.SubjectID,
		RoomID:        req.RoomID,
		StartsAt:      starts,
		PriceCents:    req.PriceCents,
		VIPPriceCents: req.VIPPriceCents,
	}, true
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		rateLimited   *ticket.RateLimitedError
		seatConflict  *inventory.SeatConflictError
		invalidSeats  *inventory.InvalidSeatError
		schedConflict *schedule.ScheduleConflictError
	)

	switch {
	case errors.As(err, &rateLimited):
		c.Header("Retry-After", retryAfterSeconds(rateLimited.RetryAfter))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: rateLimited.Error()})
	case errors.As(err, &seatConflict):
		c.JSON(http.StatusConflict, SeatConflictResponse{
			Error: "seats already taken",
			Taken: seatConflict.Taken,
		})
	case errors.As(err, &invalidSeats):
		c.JSON(http.StatusBadRequest, InvalidSeatsResponse{
			Error: "seats not in room layout",
			Seats: invalidSeats.Codes,
		})
	case errors.As(err, &schedConflict):
		c.JSON(http.StatusConflict, ScheduleConflictResponse{
			Error:      "room is taken in that window",
			ScheduleID: schedConflict.Existing.ID,
			StartsAt:   schedConflict.Existing.Starts,
			EndsAt:     schedConflict.Existing.Ends,
		})
	case errors.Is(err, ticket.ErrClaimContention):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{Error: ticket.ErrClaimContention.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: publicMessage(err)})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: publicMessage(err)})
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrStateViolation):
		c.JSON(http.StatusConflict, ErrorResponse{Error: publicMessage(err)})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not the holder of these tickets"})
	case errors.Is(err, domain.ErrUnavailable):
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "storage unavailable"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// publicMessage drops the "pkg.Type.Method:" prefixes that wrap service
// errors.
func publicMessage(err error) string {
	msg := err.Error()
	for {
		i := strings.Index(msg, ":")
		if i <= 0 || strings.ContainsAny(msg[:i], " \t") || !strings.Contains(msg[:i], ".") {
			break
		}
		msg = msg[i+1:]
	}
	return strings.TrimSpace(msg)
}
