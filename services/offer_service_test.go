package services

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/offerbook-hq/offerbook/abis"
	"github.com/offerbook-hq/offerbook/clients/evm"
	"github.com/offerbook-hq/offerbook/db"
	"github.com/offerbook-hq/offerbook/models"
)

const (
	testChainID = uint64(137)

	hashCreate     = "0x1111111111111111111111111111111111111111111111111111111111111111"
	hashActivate   = "0x2222222222222222222222222222222222222222222222222222222222222222"
	hashDeactivate = "0x3333333333333333333333333333333333333333333333333333333333333333"
	hashOther      = "0x4444444444444444444444444444444444444444444444444444444444444444"
	hashThird      = "0x5555555555555555555555555555555555555555555555555555555555555555"
)

var testChain = &models.Blockchain{
	ChainID: testChainID,
	Name:    "polygon",
	RPC:     []string{"https://rpcA", "https://rpcB"},
}

// fakeReceipts serves canned receipts by transaction hash and records the
// endpoint lists it was handed. Unknown hashes behave as not mined.
type fakeReceipts struct {
	mu        sync.Mutex
	byHash    map[string]*types.Receipt
	errByHash map[string]error
	endpoints map[string][]string
}

func (f *fakeReceipts) TransactionReceipt(ctx context.Context, endpoints []string, txHash string) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.endpoints == nil {
		f.endpoints = make(map[string][]string)
	}
	f.endpoints[txHash] = endpoints

	if err, ok := f.errByHash[txHash]; ok {
		return nil, err
	}
	if receipt, ok := f.byHash[txHash]; ok {
		return receipt, nil
	}
	return nil, evm.ErrReceiptNotFound
}

func newOfferService(t *testing.T, database db.Database, receipts ReceiptFetcher) *OfferService {
	t.Helper()

	registry := abis.NewRegistry("", zerolog.Nop())
	registry.Load(context.Background())

	reconciler := NewReconciler(database, receipts, registry, 4, zerolog.Nop())
	return NewOfferService(database, reconciler, nil, zerolog.Nop())
}

func pendingOffer(id, hash string) *models.Offer {
	return &models.Offer{
		ID:      id,
		UserID:  "user-1",
		ChainID: testChainID,
		Hash:    hash,
		Status:  models.OfferStatusPending,
	}
}

func TestOfferReconcileCreationsSuccess(t *testing.T) {
	decoder := poolDecoder(t)
	offer := pendingOffer("offer-1", hashCreate)

	mdb := new(db.MockDB)
	mdb.On("ListOffersByStatus", mock.Anything, []models.OfferStatus{models.OfferStatusPending}, "").
		Return([]*models.Offer{offer}, nil)
	mdb.On("GetBlockchain", mock.Anything, testChainID).Return(testChain, nil)
	mdb.On("UpdateOffer", mock.Anything, "offer-1", mock.MatchedBy(func(upd models.OfferUpdate) bool {
		return upd.Status != nil && *upd.Status == models.OfferStatusSuccess &&
			upd.OfferID != nil && *upd.OfferID == "42" &&
			upd.IsActive == nil
	})).Return(int64(1), nil)

	receipts := &fakeReceipts{byHash: map[string]*types.Receipt{
		hashCreate: successReceipt(
			eventLog(t, decoder, LogNewOfferEvent, big.NewInt(42), common.Address{}, big.NewInt(100)),
		),
	}}

	svc := newOfferService(t, mdb, receipts)

	progressed, err := svc.ReconcileCreations(context.Background(), "")

	require.NoError(t, err)
	require.Len(t, progressed, 1)
	assert.Equal(t, "offer-1", progressed[0].ID)
	assert.Equal(t, testChain.RPC, receipts.endpoints[hashCreate], "receipt lookup must use the chain's endpoint list")
	mdb.AssertExpectations(t)
}

func TestOfferReconcileCreationsReverted(t *testing.T) {
	offer := pendingOffer("offer-1", hashCreate)

	mdb := new(db.MockDB)
	mdb.On("ListOffersByStatus", mock.Anything, []models.OfferStatus{models.OfferStatusPending}, "").
		Return([]*models.Offer{offer}, nil)
	mdb.On("GetBlockchain", mock.Anything, testChainID).Return(testChain, nil)
	mdb.On("UpdateOffer", mock.Anything, "offer-1", mock.MatchedBy(func(upd models.OfferUpdate) bool {
		return upd.Status != nil && *upd.Status == models.OfferStatusFailure &&
			upd.OfferID == nil
	})).Return(int64(1), nil)

	receipts := &fakeReceipts{byHash: map[string]*types.Receipt{
		hashCreate: {Status: types.ReceiptStatusFailed},
	}}

	svc := newOfferService(t, mdb, receipts)

	progressed, err := svc.ReconcileCreations(context.Background(), "")

	require.NoError(t, err)
	assert.Len(t, progressed, 1)
	mdb.AssertExpectations(t)
}

func TestOfferReconcileCreationsEventMissing(t *testing.T) {
	offer := pendingOffer("offer-1", hashCreate)

	mdb := new(db.MockDB)
	mdb.On("ListOffersByStatus", mock.Anything, []models.OfferStatus{models.OfferStatusPending}, "").
		Return([]*models.Offer{offer}, nil)
	mdb.On("GetBlockchain", mock.Anything, testChainID).Return(testChain, nil)
	mdb.On("UpdateOffer", mock.Anything, "offer-1", mock.MatchedBy(func(upd models.OfferUpdate) bool {
		return upd.Status != nil && *upd.Status == models.OfferStatusFailure
	})).Return(int64(1), nil)

	// mined fine but the expected LogNewOffer was never emitted
	receipts := &fakeReceipts{byHash: map[string]*types.Receipt{
		hashCreate: successReceipt(),
	}}

	svc := newOfferService(t, mdb, receipts)

	progressed, err := svc.ReconcileCreations(context.Background(), "")

	require.NoError(t, err)
	assert.Len(t, progressed, 1)
	mdb.AssertExpectations(t)
}

func TestOfferReconcileCreationsIndeterminate(t *testing.T) {
	offer := pendingOffer("offer-1", hashCreate)

	mdb := new(db.MockDB)
	mdb.On("ListOffersByStatus", mock.Anything, []models.OfferStatus{models.OfferStatusPending}, "").
		Return([]*models.Offer{offer}, nil)
	mdb.On("GetBlockchain", mock.Anything, testChainID).Return(testChain, nil)

	// no canned receipt: every endpoint is exhausted
	receipts := &fakeReceipts{}

	svc := newOfferService(t, mdb, receipts)

	progressed, err := svc.ReconcileCreations(context.Background(), "")

	require.NoError(t, err)
	assert.Empty(t, progressed, "indeterminate offers stay pending")
	mdb.AssertNotCalled(t, "UpdateOffer", mock.Anything, mock.Anything, mock.Anything)
}

func TestOfferReconcileCreationsMissingChainConfig(t *testing.T) {
	offer := pendingOffer("offer-1", hashCreate)

	mdb := new(db.MockDB)
	mdb.On("ListOffersByStatus", mock.Anything, []models.OfferStatus{models.OfferStatusPending}, "").
		Return([]*models.Offer{offer}, nil)
	mdb.On("GetBlockchain", mock.Anything, testChainID).Return(nil, db.ErrNotFound)

	svc := newOfferService(t, mdb, &fakeReceipts{})

	progressed, err := svc.ReconcileCreations(context.Background(), "")

	require.NoError(t, err)
	assert.Empty(t, progressed)
	mdb.AssertNotCalled(t, "UpdateOffer", mock.Anything, mock.Anything, mock.Anything)
}

func TestOfferReconcileCreationsIsolatesRecordFailures(t *testing.T) {
	decoder := poolDecoder(t)
	resolved := pendingOffer("offer-ok", hashCreate)
	notMined := pendingOffer("offer-wait", hashOther)
	writeFails := pendingOffer("offer-broken", hashThird)

	mdb := new(db.MockDB)
	mdb.On("ListOffersByStatus", mock.Anything, []models.OfferStatus{models.OfferStatusPending}, "").
		Return([]*models.Offer{resolved, notMined, writeFails}, nil)
	mdb.On("GetBlockchain", mock.Anything, testChainID).Return(testChain, nil)
	mdb.On("UpdateOffer", mock.Anything, "offer-ok", mock.Anything).Return(int64(1), nil)
	mdb.On("UpdateOffer", mock.Anything, "offer-broken", mock.Anything).
		Return(int64(0), errors.New("write refused"))

	receipts := &fakeReceipts{byHash: map[string]*types.Receipt{
		hashCreate: successReceipt(
			eventLog(t, decoder, LogNewOfferEvent, big.NewInt(1), common.Address{}, big.NewInt(1)),
		),
		hashThird: successReceipt(
			eventLog(t, decoder, LogNewOfferEvent, big.NewInt(2), common.Address{}, big.NewInt(1)),
		),
	}}

	svc := newOfferService(t, mdb, receipts)

	progressed, err := svc.ReconcileCreations(context.Background(), "")

	require.NoError(t, err)
	require.Len(t, progressed, 1)
	assert.Equal(t, "offer-ok", progressed[0].ID)
}

func TestOfferReconcileCreationsUserScope(t *testing.T) {
	mdb := new(db.MockDB)
	mdb.On("ListOffersByStatus", mock.Anything, []models.OfferStatus{models.OfferStatusPending}, "user-9").
		Return([]*models.Offer{}, nil)

	svc := newOfferService(t, mdb, &fakeReceipts{})

	progressed, err := svc.ReconcileCreations(context.Background(), "user-9")

	require.NoError(t, err)
	assert.Empty(t, progressed)
	mdb.AssertExpectations(t)
}

func TestOfferReconcileStatusUpdates(t *testing.T) {
	decoder := poolDecoder(t)

	activating := &models.Offer{
		ID:             "offer-act",
		ChainID:        testChainID,
		ActivationHash: hashActivate,
		Status:         models.OfferStatusActivation,
	}
	deactivating := &models.Offer{
		ID:             "offer-deact",
		ChainID:        testChainID,
		ActivationHash: hashDeactivate,
		Status:         models.OfferStatusDeactivation,
	}

	mdb := new(db.MockDB)
	mdb.On("ListOffersByStatus", mock.Anything,
		[]models.OfferStatus{models.OfferStatusActivation, models.OfferStatusDeactivation}, "").
		Return([]*models.Offer{activating, deactivating}, nil)
	mdb.On("GetBlockchain", mock.Anything, testChainID).Return(testChain, nil)
	mdb.On("UpdateOffer", mock.Anything, "offer-act", mock.MatchedBy(func(upd models.OfferUpdate) bool {
		return upd.Status != nil && *upd.Status == models.OfferStatusSuccess &&
			upd.IsActive != nil && *upd.IsActive &&
			upd.OfferID == nil
	})).Return(int64(1), nil)
	mdb.On("UpdateOffer", mock.Anything, "offer-deact", mock.MatchedBy(func(upd models.OfferUpdate) bool {
		return upd.Status != nil && *upd.Status == models.OfferStatusDeactivationFailure &&
			upd.IsActive == nil
	})).Return(int64(1), nil)

	receipts := &fakeReceipts{byHash: map[string]*types.Receipt{
		hashActivate: successReceipt(
			eventLog(t, decoder, LogSetStatusOfferEvent, big.NewInt(7), true),
		),
		hashDeactivate: {Status: types.ReceiptStatusFailed},
	}}

	svc := newOfferService(t, mdb, receipts)

	progressed, err := svc.ReconcileStatusUpdates(context.Background(), "")

	require.NoError(t, err)
	assert.Len(t, progressed, 2)
	mdb.AssertExpectations(t)
}

func TestOfferReconcileStatusUpdatesMissingActivationHash(t *testing.T) {
	offer := &models.Offer{
		ID:      "offer-act",
		ChainID: testChainID,
		Status:  models.OfferStatusActivation,
	}

	mdb := new(db.MockDB)
	mdb.On("ListOffersByStatus", mock.Anything,
		[]models.OfferStatus{models.OfferStatusActivation, models.OfferStatusDeactivation}, "").
		Return([]*models.Offer{offer}, nil)

	svc := newOfferService(t, mdb, &fakeReceipts{})

	progressed, err := svc.ReconcileStatusUpdates(context.Background(), "")

	require.NoError(t, err)
	assert.Empty(t, progressed)
	mdb.AssertNotCalled(t, "UpdateOffer", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOffer(t *testing.T) {
	mdb := new(db.MockDB)
	mdb.On("CreateOffer", mock.Anything, mock.AnythingOfType("*models.Offer")).Return(nil)

	svc := newOfferService(t, mdb, &fakeReceipts{})

	offer, err := svc.CreateOffer(context.Background(), &models.CreateOfferRequest{
		UserID:  "user-1",
		ChainID: testChainID,
		Hash:    hashCreate,
		Token:   "USDC",
		Amount:  "1000",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, offer.ID)
	assert.Equal(t, models.OfferStatusPending, offer.Status)
	assert.Equal(t, hashCreate, offer.Hash)
	mdb.AssertExpectations(t)
}

func TestCreateOfferInvalidHash(t *testing.T) {
	mdb := new(db.MockDB)

	svc := newOfferService(t, mdb, &fakeReceipts{})

	_, err := svc.CreateOffer(context.Background(), &models.CreateOfferRequest{
		UserID:  "user-1",
		ChainID: testChainID,
		Hash:    "0xnothex",
	})

	require.ErrorIs(t, err, ErrInvalidTxHash)
	mdb.AssertNotCalled(t, "CreateOffer", mock.Anything, mock.Anything)
}
