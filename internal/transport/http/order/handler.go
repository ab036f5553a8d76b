package order

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/supermilas/ordercore/internal/auth"
	"github.com/supermilas/ordercore/internal/dto"
	"github.com/supermilas/ordercore/internal/entity"
	"github.com/supermilas/ordercore/internal/presentation/http/response"
	service "github.com/supermilas/ordercore/internal/service/order"
	"github.com/supermilas/ordercore/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/supermilas/ordercore/transport/http/order")

// IdempotencyHeader carries the optional client idempotency key on create.
const IdempotencyHeader = "Idempotency-Key"

// triggers maps route actions onto lifecycle triggers. Handlers stay thin:
// all legality checks live in the state machine.
var triggers = map[string]entity.Trigger{
	"accept":          entity.TriggerAccept,
	"confirm-payment": entity.TriggerConfirmPayment,
	"prepare":         entity.TriggerPrepare,
	"ready":           entity.TriggerReady,
	"deliver":         entity.TriggerDeliver,
	"reject":          entity.TriggerReject,
}

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.POST("", h.create)
	g.POST("/manual", h.createManual)
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.POST("/:id/:action", h.transition)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var input dto.CreateOrderInput
	if err := c.Bind(&input); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	input.IdempotencyKey = c.Request().Header.Get(IdempotencyHeader)

	// Registered orders take the user id from the authenticated identity,
	// never from the body.
	input.UserID = nil
	if actor, ok := auth.FromHeaders(c.Request().Header); ok {
		input.UserID = &actor.ID
		input.Guest = nil
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(
		attribute.String("branch.code", input.BranchCode),
	))
	defer span.End()

	order, err := h.svc.CreateOrder(ctx, input)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) createManual(c echo.Context) error {
	b := response.New(c)

	actor, ok := auth.FromHeaders(c.Request().Header)
	if !ok {
		return b.WithError(errorbank.Forbidden("staff identity required")).Build()
	}

	var input dto.CreateManualOrderInput
	if err := c.Bind(&input); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.createManual")
	defer span.End()

	order, err := h.svc.CreateManualOrder(ctx, input, actor)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	actor, ok := auth.FromHeaders(c.Request().Header)
	if !ok {
		return b.WithError(errorbank.Forbidden("staff identity required")).Build()
	}

	filter := dto.ListFilter{
		BranchCode: c.QueryParam("branch"),
		State:      entity.State(c.QueryParam("state")),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	var err error
	if filter.From, err = parseDate(c.QueryParam("from"), false); err != nil {
		return b.WithError(err).Build()
	}
	if filter.To, err = parseDate(c.QueryParam("to"), true); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list", trace.WithAttributes(attribute.String("branch.code", filter.BranchCode)))
	defer span.End()

	orders, err := h.svc.List(ctx, filter, actor)
	if err != nil {
		return b.WithError(err).Build()
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, dto.FromOrder(&orders[i]))
	}
	return b.WithData(items).WithMeta("count", len(items)).Build()
}

func (h *Handler) transition(c echo.Context) error {
	b := response.New(c)

	actor, ok := auth.FromHeaders(c.Request().Header)
	if !ok {
		return b.WithError(errorbank.Forbidden("staff identity required")).Build()
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	trigger, ok := triggers[c.Param("action")]
	if !ok {
		return b.WithError(errorbank.NotFound("unknown order action")).Build()
	}

	var input dto.TransitionInput
	if err := c.Bind(&input); err != nil && c.Request().ContentLength > 0 {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.transition", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.trigger", string(trigger)),
	))
	defer span.End()

	order, err := h.svc.Transition(ctx, id, trigger, actor, input)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrder(order)).Build()
}

// parseDate reads a YYYY-MM-DD query value; end dates span to end of day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, errorbank.BadRequest("invalid date, use YYYY-MM-DD", errorbank.WithDetail("value", raw))
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}
