package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/offerbook-hq/offerbook/abis"
	"github.com/offerbook-hq/offerbook/clients/evm"
	"github.com/offerbook-hq/offerbook/db"
	"github.com/offerbook-hq/offerbook/logging"
	"github.com/offerbook-hq/offerbook/models"
	"github.com/offerbook-hq/offerbook/utils"
)

// OrderService manages trade orders and their reconciliation recipes.
type OrderService struct {
	db         db.Database
	reconciler *Reconciler
	metrics    *MetricsService
	logger     zerolog.Logger
}

// NewOrderService creates an order service.
func NewOrderService(
	database db.Database,
	reconciler *Reconciler,
	metrics *MetricsService,
	logger zerolog.Logger,
) *OrderService {
	return &OrderService{
		db:         database,
		reconciler: reconciler,
		metrics:    metrics,
		logger:     logger.With().Str(logging.FieldModule, "order_service").Logger(),
	}
}

// CreateOrder registers a new order in pending state. The deposit transaction
// is confirmed later by ReconcileCreations.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	if !utils.IsValidTxHash(req.Hash) {
		return nil, ErrInvalidTxHash
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:                  uuid.NewString(),
		UserID:              req.UserID,
		ChainIDTokenDeposit: req.ChainIDTokenDeposit,
		Hash:                req.Hash,
		Token:               req.Token,
		Amount:              req.Amount,
		Status:              models.OrderStatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.db.CreateOrder(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to create order")
	}

	return order, nil
}

// GetOrder returns a single order by its storage identifier.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.db.GetOrder(ctx, id)
}

// ListOrders returns a page of orders, optionally filtered by status.
func (s *OrderService) ListOrders(ctx context.Context, page, pageSize int, status string) ([]*models.Order, int, error) {
	return s.db.ListOrdersPaginated(ctx, page, pageSize, status)
}

// ReconcileCreations resolves the deposit transaction of every pending order,
// optionally scoped to a user. Orders whose transaction confirmed the LogTrade
// event move to success and pick up their on-chain trade id; reverted or
// event-less transactions move to failure. Indeterminate orders stay pending.
// Returns the orders that progressed, in their pre-update state.
func (s *OrderService) ReconcileCreations(ctx context.Context, userID string) ([]*models.Order, error) {
	orders, err := s.db.ListOrdersByStatus(ctx, []models.OrderStatus{models.OrderStatusPending}, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending orders")
	}

	s.metrics.BatchStarted(entityOrder, recipeCreation, len(orders))
	s.logger.Info().Int("selected", len(orders)).Str("user_id", userID).Msg("Reconciling order creations")

	return runBatch(ctx, s.reconciler.concurrency, orders, s.resolveCreation), nil
}

// ReconcileCompletions resolves the payment transaction of every order
// awaiting completion. The LogOfferPaid event is presence-only: a confirmed
// receipt containing it moves the order to complete, anything else mined moves
// it to completion_failure.
func (s *OrderService) ReconcileCompletions(ctx context.Context, userID string) ([]*models.Order, error) {
	orders, err := s.db.ListOrdersByStatus(ctx, []models.OrderStatus{models.OrderStatusCompletion}, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders awaiting completion")
	}

	s.metrics.BatchStarted(entityOrder, recipeCompletion, len(orders))
	s.logger.Info().Int("selected", len(orders)).Str("user_id", userID).Msg("Reconciling order completions")

	return runBatch(ctx, s.reconciler.concurrency, orders, s.resolveCompletion), nil
}

func (s *OrderService) resolveCreation(ctx context.Context, order *models.Order) bool {
	log := s.logger.With().
		Str(logging.FieldOrder, order.ID).
		Str(logging.FieldTxHash, order.Hash).
		Uint64(logging.FieldChain, order.ChainIDTokenDeposit).
		Logger()

	res, err := s.reconciler.resolveTransaction(
		ctx, order.ChainIDTokenDeposit, order.Hash,
		abis.ContractPool, LogTradeEvent, TradeIDArg,
	)
	if err != nil {
		if errors.Is(err, evm.ErrReceiptNotFound) {
			log.Debug().Msg("Deposit not mined yet, order stays pending")
			s.metrics.RecordSkipped(entityOrder, recipeCreation, skipIndeterminate)
		} else {
			log.Warn().Err(err).Msg("Cannot resolve order creation")
			s.metrics.RecordSkipped(entityOrder, recipeCreation, skipConfiguration)
		}
		return false
	}

	status := models.OrderStatusFailure
	upd := models.OrderUpdate{Status: &status}
	if res.Succeeded() {
		status = models.OrderStatusSuccess
		upd.OrderID = &res.Value
	}

	if !order.Status.CanTransitionTo(status) {
		log.Warn().
			Str("from", string(order.Status)).
			Str("to", string(status)).
			Msg("Order transition not allowed, skipping")
		s.metrics.RecordSkipped(entityOrder, recipeCreation, skipTransition)
		return false
	}

	return s.applyOrderUpdate(ctx, log, order, upd, recipeCreation, res.Outcome)
}

func (s *OrderService) resolveCompletion(ctx context.Context, order *models.Order) bool {
	log := s.logger.With().
		Str(logging.FieldOrder, order.ID).
		Str(logging.FieldTxHash, order.CompletionHash).
		Uint64(logging.FieldChain, order.ChainIDTokenDeposit).
		Logger()

	if order.CompletionHash == "" {
		log.Warn().Msg("Order awaits completion but has no completion hash")
		s.metrics.RecordSkipped(entityOrder, recipeCompletion, skipConfiguration)
		return false
	}

	res, err := s.reconciler.resolveTransaction(
		ctx, order.ChainIDTokenDeposit, order.CompletionHash,
		abis.ContractPool, LogOfferPaidEvent, "",
	)
	if err != nil {
		if errors.Is(err, evm.ErrReceiptNotFound) {
			log.Debug().Msg("Payment not mined yet, order stays in flight")
			s.metrics.RecordSkipped(entityOrder, recipeCompletion, skipIndeterminate)
		} else {
			log.Warn().Err(err).Msg("Cannot resolve order completion")
			s.metrics.RecordSkipped(entityOrder, recipeCompletion, skipConfiguration)
		}
		return false
	}

	var upd models.OrderUpdate

	status := models.OrderStatusCompletionFailure
	if res.Succeeded() {
		status = models.OrderStatusComplete
		isComplete := true
		upd.IsComplete = &isComplete
	}
	upd.Status = &status

	if !order.Status.CanTransitionTo(status) {
		log.Warn().
			Str("from", string(order.Status)).
			Str("to", string(status)).
			Msg("Order transition not allowed, skipping")
		s.metrics.RecordSkipped(entityOrder, recipeCompletion, skipTransition)
		return false
	}

	return s.applyOrderUpdate(ctx, log, order, upd, recipeCompletion, res.Outcome)
}

func (s *OrderService) applyOrderUpdate(
	ctx context.Context,
	log zerolog.Logger,
	order *models.Order,
	upd models.OrderUpdate,
	recipe string,
	outcome ResolutionOutcome,
) bool {
	matched, err := s.db.UpdateOrder(ctx, order.ID, upd)
	if err != nil {
		log.Error().Err(err).Msg("Failed to persist order update")
		s.metrics.RecordSkipped(entityOrder, recipe, skipStorage)
		return false
	}
	if matched == 0 {
		log.Warn().Msg("Order vanished before update was applied")
		s.metrics.RecordSkipped(entityOrder, recipe, skipStorage)
		return false
	}

	log.Info().
		Str("outcome", outcome.String()).
		Str("status", string(*upd.Status)).
		Msg("Order reconciled")
	s.metrics.RecordResolved(entityOrder, recipe, outcome.String())

	return true
}
