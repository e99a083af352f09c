package db

import (
	"context"

	"github.com/offerbook-hq/offerbook/models"
	"github.com/stretchr/testify/mock"
)

// MockDB is a mock implementation of the Database interface for testing
type MockDB struct {
	mock.Mock
}

func (m *MockDB) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDB) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDB) InitDB(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDB) CreateOffer(ctx context.Context, offer *models.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockDB) GetOffer(ctx context.Context, id string) (*models.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

func (m *MockDB) ListOffersPaginated(ctx context.Context, page, pageSize int, status string) ([]*models.Offer, int, error) {
	args := m.Called(ctx, page, pageSize, status)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Offer), args.Int(1), args.Error(2)
}

func (m *MockDB) ListOffersByStatus(ctx context.Context, statuses []models.OfferStatus, userID string) ([]*models.Offer, error) {
	args := m.Called(ctx, statuses, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Offer), args.Error(1)
}

func (m *MockDB) UpdateOffer(ctx context.Context, id string, upd models.OfferUpdate) (int64, error) {
	args := m.Called(ctx, id, upd)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDB) CreateOrder(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockDB) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockDB) ListOrdersPaginated(ctx context.Context, page, pageSize int, status string) ([]*models.Order, int, error) {
	args := m.Called(ctx, page, pageSize, status)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Order), args.Int(1), args.Error(2)
}

func (m *MockDB) ListOrdersByStatus(ctx context.Context, statuses []models.OrderStatus, userID string) ([]*models.Order, error) {
	args := m.Called(ctx, statuses, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *MockDB) UpdateOrder(ctx context.Context, id string, upd models.OrderUpdate) (int64, error) {
	args := m.Called(ctx, id, upd)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDB) CreateBlockchain(ctx context.Context, chain *models.Blockchain) error {
	args := m.Called(ctx, chain)
	return args.Error(0)
}

func (m *MockDB) GetBlockchain(ctx context.Context, chainID uint64) (*models.Blockchain, error) {
	args := m.Called(ctx, chainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Blockchain), args.Error(1)
}

func (m *MockDB) ListBlockchains(ctx context.Context) ([]*models.Blockchain, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Blockchain), args.Error(1)
}
