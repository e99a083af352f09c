// Package abis provides event decoders for the contracts the reconciliation
// engine reads logs from. Interfaces are fetched once from a remote source (or
// taken from the built-in defaults) and cached for the process lifetime.
package abis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/timeout"

	"github.com/offerbook-hq/offerbook/config"
	"github.com/offerbook-hq/offerbook/logging"
)

// Logical contract names used to look up decoders.
const (
	ContractPool            = "pool"
	ContractToken           = "token"
	ContractLiquidityWallet = "liquidityWallet"
)

const fetchTimeout = 15 * time.Second

var defaultDocuments = map[string]string{
	ContractPool:            config.PoolABI,
	ContractToken:           config.TokenABI,
	ContractLiquidityWallet: config.LiquidityWalletABI,
}

// Registry holds the parsed contract interfaces. It is constructed once at
// process start, populated by Load, and read-only afterwards.
type Registry struct {
	baseURL string
	client  *gentleman.Client
	logger  zerolog.Logger

	decoders map[string]*abi.ABI
}

// NewRegistry creates a registry backed by the remote ABI source at baseURL.
// An empty baseURL means the built-in interface documents are used.
func NewRegistry(baseURL string, logger zerolog.Logger) *Registry {
	client := gentleman.New()
	client.Use(timeout.Request(fetchTimeout))

	return &Registry{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   client,
		logger:   logger.With().Str(logging.FieldModule, "abi_registry").Logger(),
		decoders: make(map[string]*abi.ABI, len(defaultDocuments)),
	}
}

// Load fetches and parses every contract interface. A failed fetch leaves that
// contract's decoder unavailable (nil) rather than failing the whole registry;
// dependent log resolution treats a missing decoder as "cannot resolve".
func (r *Registry) Load(ctx context.Context) {
	decoders := make(map[string]*abi.ABI, len(defaultDocuments))

	for _, name := range []string{ContractPool, ContractToken, ContractLiquidityWallet} {
		parsed, err := r.fetch(ctx, name)
		if err != nil {
			r.logger.Warn().Err(err).Str("contract", name).Msg("Contract interface unavailable")
			decoders[name] = nil
			continue
		}

		decoders[name] = parsed
		r.logger.Info().Str("contract", name).Int("events", len(parsed.Events)).Msg("Loaded contract interface")
	}

	r.decoders = decoders
}

// Decoder returns the parsed interface for the named contract, or nil when the
// interface could not be loaded.
func (r *Registry) Decoder(name string) *abi.ABI {
	return r.decoders[name]
}

func (r *Registry) fetch(ctx context.Context, name string) (*abi.ABI, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	document := defaultDocuments[name]

	if r.baseURL != "" {
		res, err := r.client.Request().URL(fmt.Sprintf("%s/%s.json", r.baseURL, name)).Send()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch interface for %s", name)
		}
		if !res.Ok {
			return nil, errors.Errorf("unexpected status %d fetching interface for %s", res.StatusCode, name)
		}

		document = res.String()
	}

	parsed, err := abi.JSON(strings.NewReader(document))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse interface for %s", name)
	}

	return &parsed, nil
}
