package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/supermilas/ordercore/internal/auth"
	"github.com/supermilas/ordercore/internal/cache"
	"github.com/supermilas/ordercore/internal/config"
	"github.com/supermilas/ordercore/internal/dto"
	"github.com/supermilas/ordercore/internal/entity"
	"github.com/supermilas/ordercore/internal/messaging"
	"github.com/supermilas/ordercore/internal/notify"
	repo "github.com/supermilas/ordercore/internal/repository/order"
	"github.com/supermilas/ordercore/internal/sequence"
	"github.com/supermilas/ordercore/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/supermilas/ordercore/service/order")

// Fanout event names consumed by branch clients.
const (
	FanoutOrderNew    = "order:new"
	FanoutOrderState  = "order:state"
	FanoutPrintTicket = "print:order"
)

// Store persists orders. Writes are atomic primitives: Create is a single
// insert, UpdateState a conditional single-statement update.
type Store interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	UpdateState(ctx context.Context, order *entity.Order, from entity.State) error
	List(ctx context.Context, filter dto.ListFilter) ([]entity.Order, error)
}

// BranchDirectory validates branch codes against the branch registry.
type BranchDirectory interface {
	IsValidCode(ctx context.Context, code string) (bool, error)
}

// CartHydrator freezes raw cart lines into authoritative line items.
type CartHydrator interface {
	Hydrate(ctx context.Context, branchCode string, lines []dto.CartLine) ([]entity.OrderItem, error)
}

// NumberSource mints unique per-branch-per-day order numbers.
type NumberSource interface {
	Next(ctx context.Context, branchCode string, at time.Time) (string, error)
}

// Service orchestrates the order lifecycle: creation, transitions, queries
// and the event fanout around them.
type Service struct {
	store     Store
	branches  BranchDirectory
	hydrator  CartHydrator
	numbers   NumberSource
	fanout    notify.Fanout
	cache     cache.Store
	publisher messaging.Client
	logger    *zap.Logger
	orders    config.Orders
	cacheTTL  time.Duration
	messaging messagingConfig
	now       func() time.Time
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// NewService wires a new Service instance.
func NewService(
	store Store,
	branches BranchDirectory,
	hydrator CartHydrator,
	numbers NumberSource,
	fanout notify.Fanout,
	cacheStore cache.Store,
	publisher messaging.Client,
	logger *zap.Logger,
	cfg config.Config,
) *Service {
	return &Service{
		store:     store,
		branches:  branches,
		hydrator:  hydrator,
		numbers:   numbers,
		fanout:    fanout,
		cache:     cacheStore,
		publisher: publisher,
		logger:    logger,
		orders:    cfg.Orders,
		cacheTTL:  cfg.Cache.DefaultTTL,
		messaging: messagingConfig{
			enabled: cfg.Messaging.Enabled,
			topic:   cfg.Messaging.Kafka.Topic,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder validates, hydrates and durably stores a new web order. Either
// a fully-formed, numbered order is persisted, or nothing is: all validation
// and the cart hydration happen before any write.
func (s *Service) CreateOrder(ctx context.Context, input dto.CreateOrderInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(attribute.String("branch.code", input.BranchCode)))
	defer span.End()

	if err := validateCustomer(input.UserID, input.Guest); err != nil {
		return nil, err
	}
	if err := validatePaymentMethod(input.PaymentMethod); err != nil {
		return nil, err
	}
	if err := validateFulfillment(input.Fulfillment); err != nil {
		return nil, err
	}
	if err := s.requireBranch(ctx, input.BranchCode); err != nil {
		return nil, err
	}

	claimedKey := ""
	if input.IdempotencyKey != "" {
		existing, claimed, err := s.claimIdempotencyKey(ctx, input.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return existing, nil
		}
		claimedKey = input.IdempotencyKey
	}

	items, err := s.hydrator.Hydrate(ctx, input.BranchCode, input.Lines)
	if err != nil {
		span.SetStatus(codes.Error, "hydration failed")
		s.releaseIdempotencyKey(ctx, claimedKey)
		return nil, err
	}

	initial := entity.StatePending
	if input.AwaitPaymentConfirmed {
		initial = entity.StatePendingPayment
	}

	order := &entity.Order{
		BranchCode:    input.BranchCode,
		UserID:        input.UserID,
		Guest:         input.Guest,
		Fulfillment:   input.Fulfillment,
		PaymentMethod: input.PaymentMethod,
		Items:         items,
		Notes:         input.Notes,
	}

	if err := s.persistNewOrder(ctx, order, initial); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.releaseIdempotencyKey(ctx, claimedKey)
		return nil, err
	}

	if input.IdempotencyKey != "" {
		s.recordIdempotentResult(ctx, input.IdempotencyKey, order.ID)
	}

	s.emitFanout(ctx, order.BranchCode, FanoutOrderNew, map[string]any{
		"order_id": order.ID,
		"number":   order.Number,
	})
	s.publishEvent(ctx, newOrderEvent(EventOrderCreated, order, nil))

	return order, nil
}

// CreateManualOrder stores a staff-entered in-store order. Lines carry their
// own titles and prices because they may reference off-catalog items; this
// is the only path where pricing is not server-hydrated.
func (s *Service) CreateManualOrder(ctx context.Context, input dto.CreateManualOrderInput, actor auth.User) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.CreateManualOrder", trace.WithAttributes(attribute.String("branch.code", input.BranchCode)))
	defer span.End()

	if !actor.CanActOn(input.BranchCode) {
		return nil, errorbank.Forbidden("branch not allowed for this user")
	}
	if err := validatePaymentMethod(input.PaymentMethod); err != nil {
		return nil, err
	}
	if err := validateFulfillment(input.Fulfillment); err != nil {
		return nil, err
	}
	if err := s.requireBranch(ctx, input.BranchCode); err != nil {
		return nil, err
	}

	items, err := manualItems(input.Lines)
	if err != nil {
		return nil, err
	}

	order := &entity.Order{
		BranchCode:    input.BranchCode,
		Fulfillment:   input.Fulfillment,
		PaymentMethod: input.PaymentMethod,
		Items:         items,
		Notes:         input.Notes,
	}

	if err := s.persistNewOrder(ctx, order, entity.StatePending); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, err
	}

	s.emitFanout(ctx, order.BranchCode, FanoutOrderNew, map[string]any{
		"order_id": order.ID,
		"number":   order.Number,
	})
	// In-store orders go straight to the kitchen printer.
	ticket := dto.TicketFromOrder(order, s.now())
	s.emitFanout(ctx, order.BranchCode, FanoutPrintTicket, ticket)
	s.publishEvent(ctx, newOrderEvent(EventOrderCreated, order, &ticket))

	return order, nil
}

// persistNewOrder computes totals, mints the order number and stores the
// order with its initial history entry.
func (s *Service) persistNewOrder(ctx context.Context, order *entity.Order, initial entity.State) error {
	now := s.now()

	// Discount and delivery cost are first-class but fixed at zero until
	// promotion integration lands.
	order.SetTotals(entity.ComputeTotals(order.Items, 0, 0))
	order.EstimatedMinutes = s.orders.DefaultEstimatedMinutes
	order.State = initial
	order.StateHistory = []entity.StateChange{{State: initial, At: now}}
	order.CreatedAt = now
	order.UpdatedAt = now

	number, err := s.numbers.Next(ctx, order.BranchCode, now)
	if err != nil {
		if errors.Is(err, sequence.ErrSequenceExhausted) {
			return errorbank.Conflict("daily order capacity reached", errorbank.WithCause(err))
		}
		return errorbank.Unavailable("order numbering unavailable", errorbank.WithCause(err))
	}
	order.Number = number

	if err := s.store.Create(ctx, order); err != nil {
		return errorbank.Unavailable("failed to store order", errorbank.WithCause(err))
	}

	s.storeInCache(ctx, order)
	return nil
}

// Transition applies a lifecycle command to an order on behalf of an acting
// user, enforcing role/branch scope and the transition table, and fanning
// out the state change. On accept it also emits the kitchen print ticket;
// print and notification failures never fail the transition.
func (s *Service) Transition(ctx context.Context, orderID int64, trigger entity.Trigger, actor auth.User, input dto.TransitionInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Transition", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.trigger", string(trigger)),
	))
	defer span.End()

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Unavailable("failed to load order", errorbank.WithCause(err))
	}

	if !actor.CanActOn(order.BranchCode) {
		return nil, errorbank.Forbidden("branch not allowed for this user")
	}

	minutes := 0
	if trigger == entity.TriggerAccept {
		minutes = input.EstimatedMinutes
		if minutes == 0 {
			minutes = s.orders.DefaultEstimatedMinutes
		}
		if minutes < s.orders.MinEstimatedMinutes || minutes > s.orders.MaxEstimatedMinutes {
			return nil, errorbank.BadRequest("estimated minutes out of range",
				errorbank.WithDetail("min", s.orders.MinEstimatedMinutes),
				errorbank.WithDetail("max", s.orders.MaxEstimatedMinutes),
			)
		}
	}

	from := order.State
	if _, err := order.ApplyTransition(trigger, entity.TransitionOptions{
		ActorID:          &actor.ID,
		Reason:           input.Reason,
		EstimatedMinutes: minutes,
		At:               s.now(),
	}); err != nil {
		var transitionErr *entity.TransitionError
		if errors.As(err, &transitionErr) {
			return nil, errorbank.Conflict("illegal transition",
				errorbank.WithDetail("current_state", string(transitionErr.Current)),
				errorbank.WithDetail("trigger", string(transitionErr.Trigger)),
			)
		}
		return nil, err
	}

	if err := s.store.UpdateState(ctx, order, from); err != nil {
		if errors.Is(err, repo.ErrStaleState) {
			span.SetStatus(codes.Error, "stale state")
			return nil, errorbank.Conflict("order was updated concurrently",
				errorbank.WithDetail("expected_state", string(from)),
			)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Unavailable("failed to store transition", errorbank.WithCause(err))
	}

	s.storeInCache(ctx, order)

	s.emitFanout(ctx, order.BranchCode, FanoutOrderState, map[string]any{
		"order_id": order.ID,
		"number":   order.Number,
		"state":    order.State,
	})

	// Both accept and confirm-payment land in accepted; the kitchen prints
	// either way.
	var ticket *dto.TicketPayload
	if order.State == entity.StateAccepted {
		t := dto.TicketFromOrder(order, s.now())
		ticket = &t
		s.emitFanout(ctx, order.BranchCode, FanoutPrintTicket, t)
	}
	s.publishEvent(ctx, newOrderEvent(EventOrderStateChanged, order, ticket))

	return order, nil
}

// Get retrieves an order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
		}
	}

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Unavailable("failed to load order", errorbank.WithCause(err))
	}

	s.storeInCache(ctx, order)
	return order, nil
}

// List queries orders scoped to the caller's role: staff always see their
// own branch, admins any. Page size is bounded by configuration.
func (s *Service) List(ctx context.Context, filter dto.ListFilter, actor auth.User) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List", trace.WithAttributes(attribute.String("branch.code", filter.BranchCode)))
	defer span.End()

	if actor.Role == auth.RoleStaff {
		filter.BranchCode = actor.BranchCode
	}
	if filter.Limit <= 0 || filter.Limit > s.orders.ListLimit {
		filter.Limit = s.orders.ListLimit
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, errorbank.BadRequest("date range end precedes start")
	}

	orders, err := s.store.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Unavailable("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

func (s *Service) requireBranch(ctx context.Context, code string) error {
	ok, err := s.branches.IsValidCode(ctx, code)
	if err != nil {
		return errorbank.Unavailable("branch directory unavailable", errorbank.WithCause(err))
	}
	if !ok {
		return errorbank.BadRequest("unknown branch", errorbank.WithDetail("branch_code", code))
	}
	return nil
}

// claimIdempotencyKey reserves the key atomically. When another request
// already claimed it, the previously created order is returned instead.
func (s *Service) claimIdempotencyKey(ctx context.Context, key string) (*entity.Order, bool, error) {
	cacheKey := "orders:idem:" + key
	claimed, err := s.cache.SetNX(ctx, cacheKey, []byte("pending"), s.orders.IdempotencyTTL)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("idempotency reservation failed; proceeding without", zap.Error(err))
		}
		return nil, true, nil
	}
	if claimed {
		return nil, true, nil
	}

	value, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		return nil, false, errorbank.Conflict("order creation already in progress",
			errorbank.WithDetail("idempotency_key", key))
	}
	id, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return nil, false, errorbank.Conflict("order creation already in progress",
			errorbank.WithDetail("idempotency_key", key))
	}
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return order, false, nil
}

// releaseIdempotencyKey drops a reservation after a failed create so the
// client can retry with the same key instead of waiting out the TTL.
func (s *Service) releaseIdempotencyKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.cache.Delete(ctx, "orders:idem:"+key); err != nil {
		if s.logger != nil {
			s.logger.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *Service) recordIdempotentResult(ctx context.Context, key string, orderID int64) {
	cacheKey := "orders:idem:" + key
	if err := s.cache.Set(ctx, cacheKey, []byte(strconv.FormatInt(orderID, 10)), s.orders.IdempotencyTTL); err != nil {
		if s.logger != nil {
			s.logger.Warn("idempotency record failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// emitFanout publishes a branch event best-effort. Failures are logged and
// never surface to the caller of the triggering operation.
func (s *Service) emitFanout(ctx context.Context, branchCode, event string, payload any) {
	if s.fanout == nil {
		return
	}
	if err := s.fanout.Publish(ctx, branchCode, event, payload); err != nil {
		if s.logger != nil {
			s.logger.Warn("fanout publish failed",
				zap.String("branch", branchCode),
				zap.String("event", event),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) publishEvent(ctx context.Context, event OrderEvent) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal order event", zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", event.OrderID)), payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish order event", zap.String("type", event.Type), zap.Error(err))
		}
	}
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) {
	if s.cache == nil || order == nil {
		return
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(order.ID), bytes, s.cacheTTL); err != nil {
		if s.logger != nil {
			s.logger.Warn("orders cache write failed", zap.Int64("id", order.ID), zap.Error(err))
		}
	}
}

func validateCustomer(userID *int64, guest *entity.Guest) error {
	if userID != nil && guest != nil {
		return errorbank.BadRequest("order cannot carry both a user and a guest")
	}
	if userID == nil && guest == nil {
		return errorbank.BadRequest("order requires a user or a guest")
	}
	if guest != nil && (guest.FullName == "" || guest.Phone == "") {
		return errorbank.BadRequest("guest requires full name and phone")
	}
	return nil
}

func validatePaymentMethod(method entity.PaymentMethod) error {
	switch method {
	case entity.PaymentCash, entity.PaymentTransfer:
		return nil
	default:
		return errorbank.BadRequest("unsupported payment method", errorbank.WithDetail("payment_method", string(method)))
	}
}

func validateFulfillment(f entity.Fulfillment) error {
	switch f.Type {
	case entity.FulfillmentPickup:
		if f.Address != nil {
			return errorbank.BadRequest("pickup orders must not carry an address")
		}
	case entity.FulfillmentDelivery:
		if f.Address == nil || f.Address.Street == "" || f.Address.Number == "" {
			return errorbank.BadRequest("delivery orders require an address with street and number")
		}
	default:
		return errorbank.BadRequest("unsupported fulfillment type", errorbank.WithDetail("type", string(f.Type)))
	}
	return nil
}

func manualItems(lines []dto.ManualLine) ([]entity.OrderItem, error) {
	if len(lines) == 0 {
		return nil, errorbank.BadRequest("order must contain at least one item")
	}
	items := make([]entity.OrderItem, 0, len(lines))
	for i, line := range lines {
		if line.ProductTitle == "" || line.VariantName == "" {
			return nil, errorbank.Unprocessable("invalid cart line",
				errorbank.WithDetail("line", i),
				errorbank.WithDetail("reason", "title and variant name are required"),
			)
		}
		if line.Quantity < 1 || line.UnitPrice < 0 {
			return nil, errorbank.Unprocessable("invalid cart line",
				errorbank.WithDetail("line", i),
				errorbank.WithDetail("reason", "quantity must be >= 1 and price >= 0"),
			)
		}
		items = append(items, entity.OrderItem{
			ProductTitle: line.ProductTitle,
			VariantName:  line.VariantName,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			Notes:        line.Notes,
		})
	}
	return items, nil
}
