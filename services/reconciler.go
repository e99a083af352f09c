package services

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/offerbook-hq/offerbook/db"
	"github.com/offerbook-hq/offerbook/logging"
)

// Names of the pool contract events the reconciliation recipes decode, and the
// arguments carrying the on-chain-assigned identifiers.
const (
	LogNewOfferEvent       = "LogNewOffer"
	LogSetStatusOfferEvent = "LogSetStatusOffer"
	LogTradeEvent          = "LogTrade"
	LogOfferPaidEvent      = "LogOfferPaid"

	OfferIDArg  = "_idOffer"
	IsActiveArg = "_isActive"
	TradeIDArg  = "_idTrade"
)

// ReceiptFetcher fetches a transaction receipt with endpoint failover.
// Implemented by clients/evm.FailoverClient.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, endpoints []string, txHash string) (*types.Receipt, error)
}

// ABIRegistry exposes contract decoders by logical name. A nil decoder means
// the contract interface could not be loaded.
type ABIRegistry interface {
	Decoder(name string) *abi.ABI
}

// ResolutionOutcome distinguishes the ways a mined transaction can resolve.
// Reverted and EventMissing both map to the record's failure status, but they
// are kept apart internally: a missing event usually means the submitted hash
// does not belong to the expected contract call at all.
type ResolutionOutcome int

const (
	OutcomeResolved ResolutionOutcome = iota
	OutcomeReverted
	OutcomeEventMissing
)

func (o ResolutionOutcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeReverted:
		return "reverted"
	case OutcomeEventMissing:
		return "event_missing"
	}
	return "unknown"
}

// LogResolution is the decoded outcome of a mined transaction.
type LogResolution struct {
	Outcome ResolutionOutcome

	// Value is the stringified named argument, empty unless Outcome is
	// OutcomeResolved and an argument was requested.
	Value string

	// Args holds every decoded argument of the matched event.
	Args map[string]interface{}
}

// Succeeded reports whether the transaction confirmed the expected event.
func (r LogResolution) Succeeded() bool {
	return r.Outcome == OutcomeResolved
}

// BoolArg returns the named decoded argument as a bool.
func (r LogResolution) BoolArg(name string) (bool, error) {
	raw, ok := r.Args[name]
	if !ok {
		return false, errors.Errorf("argument %s not present", name)
	}

	if b, ok := raw.(bool); ok {
		return b, nil
	}

	return strconv.ParseBool(fmt.Sprintf("%v", raw))
}

// Reconciler resolves the on-chain outcome of a single transaction: it looks
// up the chain's RPC endpoints, fetches the receipt with failover and decodes
// the expected event log. Offer and order services build their batch recipes
// on top of it.
type Reconciler struct {
	db          db.Database
	receipts    ReceiptFetcher
	registry    ABIRegistry
	concurrency int
	logger      zerolog.Logger
}

// NewReconciler creates a reconciler. concurrency bounds how many records a
// batch resolves at once.
func NewReconciler(
	database db.Database,
	receipts ReceiptFetcher,
	registry ABIRegistry,
	concurrency int,
	logger zerolog.Logger,
) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}

	return &Reconciler{
		db:          database,
		receipts:    receipts,
		registry:    registry,
		concurrency: concurrency,
		logger:      logger.With().Str(logging.FieldModule, "reconciler").Logger(),
	}
}

// resolveTransaction runs the per-record resolution pipeline. The returned
// error classifies unresolvable situations: a missing blockchain document or
// decoder (configuration), or evm.ErrReceiptNotFound (transaction not mined
// anywhere). In both cases the record must be left untouched.
func (r *Reconciler) resolveTransaction(
	ctx context.Context,
	chainID uint64,
	txHash string,
	contract string,
	eventName string,
	argName string,
) (LogResolution, error) {
	r.logger.Debug().
		Uint64(logging.FieldChain, chainID).
		Str(logging.FieldTxHash, txHash).
		Str("event", eventName).
		Msg("Resolving transaction")

	chain, err := r.db.GetBlockchain(ctx, chainID)
	if err != nil {
		return LogResolution{}, errors.Wrapf(err, "failed to resolve RPC endpoints for chain %d", chainID)
	}

	receipt, err := r.receipts.TransactionReceipt(ctx, chain.RPC, txHash)
	if err != nil {
		return LogResolution{}, err
	}

	return resolveEventLog(receipt, r.registry.Decoder(contract), eventName, argName)
}

// resolveEventLog inspects a receipt for the named event. A reverted receipt
// resolves to OutcomeReverted regardless of its logs. Otherwise the first log
// matching the event is decoded and argName extracted; argName may be empty
// for presence-only events. No matching log resolves to OutcomeEventMissing.
func resolveEventLog(
	receipt *types.Receipt,
	decoder *abi.ABI,
	eventName string,
	argName string,
) (LogResolution, error) {
	if decoder == nil {
		return LogResolution{}, errors.New("no contract decoder available")
	}

	event, ok := decoder.Events[eventName]
	if !ok {
		return LogResolution{}, errors.Errorf("event %s not present in contract interface", eventName)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return LogResolution{Outcome: OutcomeReverted}, nil
	}

	for _, vLog := range receipt.Logs {
		if len(vLog.Topics) == 0 || vLog.Topics[0] != event.ID {
			continue
		}

		args := make(map[string]interface{})

		if err := decoder.UnpackIntoMap(args, eventName, vLog.Data); err != nil {
			return LogResolution{}, errors.Wrapf(err, "failed to decode %s data", eventName)
		}

		var indexed abi.Arguments
		for _, input := range event.Inputs {
			if input.Indexed {
				indexed = append(indexed, input)
			}
		}

		if len(indexed) > 0 {
			if err := abi.ParseTopicsIntoMap(args, indexed, vLog.Topics[1:]); err != nil {
				return LogResolution{}, errors.Wrapf(err, "failed to decode %s topics", eventName)
			}
		}

		resolution := LogResolution{Outcome: OutcomeResolved, Args: args}

		if argName != "" {
			value, ok := args[argName]
			if !ok {
				return LogResolution{}, errors.Errorf("argument %s not emitted by %s", argName, eventName)
			}
			resolution.Value = formatArgValue(value)
		}

		return resolution, nil
	}

	return LogResolution{Outcome: OutcomeEventMissing}, nil
}

func formatArgValue(value interface{}) string {
	switch v := value.(type) {
	case *big.Int:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case common.Address:
		return v.Hex()
	case common.Hash:
		return v.Hex()
	case [32]byte:
		return hexutil.Encode(v[:])
	case []byte:
		return hexutil.Encode(v)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// runBatch resolves every record concurrently with a bounded worker count and
// collects the records whose resolve callback reported progress. A callback
// must recover its own failures: nothing a single record does may abort the
// batch.
func runBatch[T any](ctx context.Context, limit int, records []T, resolve func(ctx context.Context, record T) bool) []T {
	var (
		mu         sync.Mutex
		progressed = make([]T, 0, len(records))
	)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	for _, record := range records {
		group.Go(func() error {
			if resolve(ctx, record) {
				mu.Lock()
				progressed = append(progressed, record)
				mu.Unlock()
			}

			return nil
		})
	}

	// workers never return errors; Wait only joins them
	_ = group.Wait()

	return progressed
}
