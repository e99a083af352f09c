package db

import (
	"context"

	"github.com/offerbook-hq/offerbook/models"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Database interface defines the methods that a database implementation must provide
type Database interface {
	// Database connection management
	Close() error
	Ping() error

	// Offer operations
	CreateOffer(ctx context.Context, offer *models.Offer) error
	GetOffer(ctx context.Context, id string) (*models.Offer, error)
	ListOffersPaginated(ctx context.Context, page, pageSize int, status string) ([]*models.Offer, int, error)
	// ListOffersByStatus selects the reconciliation working set: offers in one of the
	// given statuses, optionally scoped to a user. Terminal records never match.
	ListOffersByStatus(ctx context.Context, statuses []models.OfferStatus, userID string) ([]*models.Offer, error)
	// UpdateOffer applies a partial update to a single offer by its storage identifier.
	// Only the non-nil fields of upd are written. Returns the number of matched rows.
	UpdateOffer(ctx context.Context, id string, upd models.OfferUpdate) (int64, error)

	// Order operations
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrdersPaginated(ctx context.Context, page, pageSize int, status string) ([]*models.Order, int, error)
	ListOrdersByStatus(ctx context.Context, statuses []models.OrderStatus, userID string) ([]*models.Order, error)
	UpdateOrder(ctx context.Context, id string, upd models.OrderUpdate) (int64, error)

	// Blockchain directory (administered out of band, read by reconciliation)
	CreateBlockchain(ctx context.Context, chain *models.Blockchain) error
	GetBlockchain(ctx context.Context, chainID uint64) (*models.Blockchain, error)
	ListBlockchains(ctx context.Context) ([]*models.Blockchain, error)

	// Database initialization
	InitDB(ctx context.Context) error
}
