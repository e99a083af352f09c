// Package evm provides read access to EVM chains with endpoint failover.
package evm

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/offerbook-hq/offerbook/logging"
)

// ErrReceiptNotFound is returned when no endpoint in the list produced a
// receipt. The transaction may not be mined yet; callers should leave the
// record pending and retry on a later invocation.
var ErrReceiptNotFound = errors.New("transaction receipt not found")

type receiptClient interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

type dialFunc func(ctx context.Context, rawURL string) (receiptClient, error)

// FailoverClient fetches transaction receipts, trying a chain's RPC endpoints
// strictly in list order. A receipt from any endpoint is authoritative, even
// one signaling an on-chain revert, so the first endpoint that produces one
// wins and no further endpoints are attempted.
type FailoverClient struct {
	timeout time.Duration
	logger  zerolog.Logger
	dial    dialFunc
}

// NewFailoverClient creates a failover client. The timeout bounds each
// individual endpoint attempt, not the whole call.
func NewFailoverClient(timeout time.Duration, logger zerolog.Logger) *FailoverClient {
	return newFailoverClient(timeout, logger, dialEthClient)
}

func newFailoverClient(timeout time.Duration, logger zerolog.Logger, dial dialFunc) *FailoverClient {
	return &FailoverClient{
		timeout: timeout,
		logger:  logger.With().Str(logging.FieldModule, "evm_failover").Logger(),
		dial:    dial,
	}
}

// TransactionReceipt fetches the receipt for txHash, failing over across
// endpoints. Endpoint errors are logged and skipped; "not mined yet" answers
// are also skipped since another node may have better visibility. When every
// endpoint is exhausted without a receipt, ErrReceiptNotFound is returned.
func (c *FailoverClient) TransactionReceipt(
	ctx context.Context,
	endpoints []string,
	txHash string,
) (*types.Receipt, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("no RPC endpoints provided")
	}

	hash := common.HexToHash(txHash)

	for _, endpoint := range endpoints {
		receipt, err := c.tryEndpoint(ctx, endpoint, hash)

		switch {
		case err == nil:
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
			c.logger.Debug().
				Str(logging.FieldRPC, endpoint).
				Str(logging.FieldTxHash, txHash).
				Msg("Transaction not known to endpoint, trying next")
		default:
			c.logger.Warn().Err(err).
				Str(logging.FieldRPC, endpoint).
				Str(logging.FieldTxHash, txHash).
				Msg("RPC endpoint failed, trying next")
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, ErrReceiptNotFound
}

func (c *FailoverClient) tryEndpoint(
	ctx context.Context,
	endpoint string,
	hash common.Hash,
) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := c.dial(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect")
	}
	defer client.Close()

	return client.TransactionReceipt(ctx, hash)
}

func dialEthClient(ctx context.Context, rawURL string) (receiptClient, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	return client, nil
}
