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

// ErrInvalidTxHash is returned when a submitted transaction hash is not a
// 32-byte hex string.
var ErrInvalidTxHash = errors.New("invalid transaction hash")

// OfferService manages liquidity offers and their reconciliation recipes.
type OfferService struct {
	db         db.Database
	reconciler *Reconciler
	metrics    *MetricsService
	logger     zerolog.Logger
}

// NewOfferService creates an offer service.
func NewOfferService(
	database db.Database,
	reconciler *Reconciler,
	metrics *MetricsService,
	logger zerolog.Logger,
) *OfferService {
	return &OfferService{
		db:         database,
		reconciler: reconciler,
		metrics:    metrics,
		logger:     logger.With().Str(logging.FieldModule, "offer_service").Logger(),
	}
}

// CreateOffer registers a new offer in pending state. The deposit transaction
// is confirmed later by ReconcileCreations.
func (s *OfferService) CreateOffer(ctx context.Context, req *models.CreateOfferRequest) (*models.Offer, error) {
	if !utils.IsValidTxHash(req.Hash) {
		return nil, ErrInvalidTxHash
	}

	now := time.Now().UTC()
	offer := &models.Offer{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		ChainID:         req.ChainID,
		ExchangeChainID: req.ExchangeChainID,
		Hash:            req.Hash,
		Token:           req.Token,
		Amount:          req.Amount,
		Status:          models.OfferStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.db.CreateOffer(ctx, offer); err != nil {
		return nil, errors.Wrap(err, "failed to create offer")
	}

	return offer, nil
}

// GetOffer returns a single offer by its storage identifier.
func (s *OfferService) GetOffer(ctx context.Context, id string) (*models.Offer, error) {
	return s.db.GetOffer(ctx, id)
}

// ListOffers returns a page of offers, optionally filtered by status.
func (s *OfferService) ListOffers(ctx context.Context, page, pageSize int, status string) ([]*models.Offer, int, error) {
	return s.db.ListOffersPaginated(ctx, page, pageSize, status)
}

// ReconcileCreations resolves the deposit transaction of every pending offer,
// optionally scoped to a user. Offers whose transaction confirmed the
// LogNewOffer event move to success and pick up their on-chain offer id;
// reverted or event-less transactions move to failure. Offers whose outcome
// could not be determined are left pending for a later run. Returns the offers
// that progressed, in their pre-update state.
func (s *OfferService) ReconcileCreations(ctx context.Context, userID string) ([]*models.Offer, error) {
	offers, err := s.db.ListOffersByStatus(ctx, []models.OfferStatus{models.OfferStatusPending}, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending offers")
	}

	s.metrics.BatchStarted(entityOffer, recipeCreation, len(offers))
	s.logger.Info().Int("selected", len(offers)).Str("user_id", userID).Msg("Reconciling offer creations")

	return runBatch(ctx, s.reconciler.concurrency, offers, s.resolveCreation), nil
}

// ReconcileStatusUpdates resolves the activation or deactivation transaction
// of every offer awaiting a status flip. A confirmed LogSetStatusOffer event
// moves the offer back to success with the emitted active flag; a failed
// transaction moves it to the matching failure state, from which the flip can
// be retried.
func (s *OfferService) ReconcileStatusUpdates(ctx context.Context, userID string) ([]*models.Offer, error) {
	offers, err := s.db.ListOffersByStatus(ctx, []models.OfferStatus{
		models.OfferStatusActivation,
		models.OfferStatusDeactivation,
	}, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list offers awaiting status update")
	}

	s.metrics.BatchStarted(entityOffer, recipeStatusUpdate, len(offers))
	s.logger.Info().Int("selected", len(offers)).Str("user_id", userID).Msg("Reconciling offer status updates")

	return runBatch(ctx, s.reconciler.concurrency, offers, s.resolveStatusUpdate), nil
}

func (s *OfferService) resolveCreation(ctx context.Context, offer *models.Offer) bool {
	log := s.logger.With().
		Str(logging.FieldOffer, offer.ID).
		Str(logging.FieldTxHash, offer.Hash).
		Uint64(logging.FieldChain, offer.ChainID).
		Logger()

	res, err := s.reconciler.resolveTransaction(
		ctx, offer.ChainID, offer.Hash,
		abis.ContractPool, LogNewOfferEvent, OfferIDArg,
	)
	if err != nil {
		if errors.Is(err, evm.ErrReceiptNotFound) {
			log.Debug().Msg("Deposit not mined yet, offer stays pending")
			s.metrics.RecordSkipped(entityOffer, recipeCreation, skipIndeterminate)
		} else {
			log.Warn().Err(err).Msg("Cannot resolve offer creation")
			s.metrics.RecordSkipped(entityOffer, recipeCreation, skipConfiguration)
		}
		return false
	}

	status := models.OfferStatusFailure
	upd := models.OfferUpdate{Status: &status}
	if res.Succeeded() {
		status = models.OfferStatusSuccess
		upd.OfferID = &res.Value
	}

	if !offer.Status.CanTransitionTo(status) {
		log.Warn().
			Str("from", string(offer.Status)).
			Str("to", string(status)).
			Msg("Offer transition not allowed, skipping")
		s.metrics.RecordSkipped(entityOffer, recipeCreation, skipTransition)
		return false
	}

	return s.applyOfferUpdate(ctx, log, offer, upd, recipeCreation, res.Outcome)
}

func (s *OfferService) resolveStatusUpdate(ctx context.Context, offer *models.Offer) bool {
	log := s.logger.With().
		Str(logging.FieldOffer, offer.ID).
		Str(logging.FieldTxHash, offer.ActivationHash).
		Uint64(logging.FieldChain, offer.ChainID).
		Logger()

	if offer.ActivationHash == "" {
		log.Warn().Msg("Offer awaits status update but has no activation hash")
		s.metrics.RecordSkipped(entityOffer, recipeStatusUpdate, skipConfiguration)
		return false
	}

	failure := models.OfferStatusActivationFailure
	if offer.Status == models.OfferStatusDeactivation {
		failure = models.OfferStatusDeactivationFailure
	}

	res, err := s.reconciler.resolveTransaction(
		ctx, offer.ChainID, offer.ActivationHash,
		abis.ContractPool, LogSetStatusOfferEvent, IsActiveArg,
	)
	if err != nil {
		if errors.Is(err, evm.ErrReceiptNotFound) {
			log.Debug().Msg("Status transaction not mined yet, offer stays in flight")
			s.metrics.RecordSkipped(entityOffer, recipeStatusUpdate, skipIndeterminate)
		} else {
			log.Warn().Err(err).Msg("Cannot resolve offer status update")
			s.metrics.RecordSkipped(entityOffer, recipeStatusUpdate, skipConfiguration)
		}
		return false
	}

	var upd models.OfferUpdate

	status := failure
	if res.Succeeded() {
		isActive, err := res.BoolArg(IsActiveArg)
		if err != nil {
			log.Warn().Err(err).Msg("Status event carried no usable active flag")
			s.metrics.RecordSkipped(entityOffer, recipeStatusUpdate, skipConfiguration)
			return false
		}

		status = models.OfferStatusSuccess
		upd.IsActive = &isActive
	}
	upd.Status = &status

	if !offer.Status.CanTransitionTo(status) {
		log.Warn().
			Str("from", string(offer.Status)).
			Str("to", string(status)).
			Msg("Offer transition not allowed, skipping")
		s.metrics.RecordSkipped(entityOffer, recipeStatusUpdate, skipTransition)
		return false
	}

	return s.applyOfferUpdate(ctx, log, offer, upd, recipeStatusUpdate, res.Outcome)
}

func (s *OfferService) applyOfferUpdate(
	ctx context.Context,
	log zerolog.Logger,
	offer *models.Offer,
	upd models.OfferUpdate,
	recipe string,
	outcome ResolutionOutcome,
) bool {
	matched, err := s.db.UpdateOffer(ctx, offer.ID, upd)
	if err != nil {
		log.Error().Err(err).Msg("Failed to persist offer update")
		s.metrics.RecordSkipped(entityOffer, recipe, skipStorage)
		return false
	}
	if matched == 0 {
		log.Warn().Msg("Offer vanished before update was applied")
		s.metrics.RecordSkipped(entityOffer, recipe, skipStorage)
		return false
	}

	log.Info().
		Str("outcome", outcome.String()).
		Str("status", string(*upd.Status)).
		Msg("Offer reconciled")
	s.metrics.RecordResolved(entityOffer, recipe, outcome.String())

	return true
}
