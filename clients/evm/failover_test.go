package evm

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEndpoint struct {
	receipt *types.Receipt
	err     error
	dialErr error
	calls   int
}

type fakeClient struct {
	endpoint *fakeEndpoint
}

func (c *fakeClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.endpoint.calls++
	return c.endpoint.receipt, c.endpoint.err
}

func (c *fakeClient) Close() {}

func newTestClient(endpoints map[string]*fakeEndpoint) *FailoverClient {
	dial := func(ctx context.Context, rawURL string) (receiptClient, error) {
		ep, ok := endpoints[rawURL]
		if !ok {
			return nil, errors.Errorf("unexpected endpoint %s", rawURL)
		}
		if ep.dialErr != nil {
			ep.calls++
			return nil, ep.dialErr
		}
		return &fakeClient{endpoint: ep}, nil
	}

	return newFailoverClient(time.Second, zerolog.Nop(), dial)
}

const testTxHash = "0x1111111111111111111111111111111111111111111111111111111111111111"

func TestTransactionReceiptFailover(t *testing.T) {
	// A throws, B has no receipt, C answers; D must never be attempted
	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful}
	endpoints := map[string]*fakeEndpoint{
		"https://rpcA": {err: errors.New("connection reset")},
		"https://rpcB": {err: ethereum.NotFound},
		"https://rpcC": {receipt: receipt},
		"https://rpcD": {receipt: &types.Receipt{}},
	}

	client := newTestClient(endpoints)

	got, err := client.TransactionReceipt(
		context.Background(),
		[]string{"https://rpcA", "https://rpcB", "https://rpcC", "https://rpcD"},
		testTxHash,
	)

	require.NoError(t, err)
	assert.Same(t, receipt, got)
	assert.Equal(t, 1, endpoints["https://rpcA"].calls)
	assert.Equal(t, 1, endpoints["https://rpcB"].calls)
	assert.Equal(t, 1, endpoints["https://rpcC"].calls)
	assert.Equal(t, 0, endpoints["https://rpcD"].calls, "later endpoints must not be attempted")
}

func TestTransactionReceiptRevertedIsAuthoritative(t *testing.T) {
	// a reverted receipt still stops the failover
	reverted := &types.Receipt{Status: types.ReceiptStatusFailed}
	endpoints := map[string]*fakeEndpoint{
		"https://rpcA": {receipt: reverted},
		"https://rpcB": {receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful}},
	}

	client := newTestClient(endpoints)

	got, err := client.TransactionReceipt(
		context.Background(),
		[]string{"https://rpcA", "https://rpcB"},
		testTxHash,
	)

	require.NoError(t, err)
	assert.Same(t, reverted, got)
	assert.Equal(t, 0, endpoints["https://rpcB"].calls)
}

func TestTransactionReceiptExhausted(t *testing.T) {
	endpoints := map[string]*fakeEndpoint{
		"https://rpcA": {err: ethereum.NotFound},
		"https://rpcB": {dialErr: errors.New("dial tcp: timeout")},
		"https://rpcC": {err: ethereum.NotFound},
	}

	client := newTestClient(endpoints)

	_, err := client.TransactionReceipt(
		context.Background(),
		[]string{"https://rpcA", "https://rpcB", "https://rpcC"},
		testTxHash,
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReceiptNotFound)
	assert.Equal(t, 1, endpoints["https://rpcA"].calls)
	assert.Equal(t, 1, endpoints["https://rpcB"].calls)
	assert.Equal(t, 1, endpoints["https://rpcC"].calls)
}

func TestTransactionReceiptNoEndpoints(t *testing.T) {
	client := newTestClient(nil)

	_, err := client.TransactionReceipt(context.Background(), nil, testTxHash)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrReceiptNotFound)
}

func TestTransactionReceiptContextCancelled(t *testing.T) {
	endpoints := map[string]*fakeEndpoint{
		"https://rpcA": {err: errors.New("connection reset")},
		"https://rpcB": {receipt: &types.Receipt{}},
	}

	client := newTestClient(endpoints)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.TransactionReceipt(ctx, []string{"https://rpcA", "https://rpcB"}, testTxHash)

	require.Error(t, err)
	assert.Equal(t, 0, endpoints["https://rpcB"].calls)
}
