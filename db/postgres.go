package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/offerbook-hq/offerbook/models"
	"github.com/pkg/errors"
)

// PostgresDB implements the Database interface using PostgreSQL
type PostgresDB struct {
	db *sql.DB
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	postgresDB := &PostgresDB{db: db}

	if err := postgresDB.InitDB(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to initialize database")
	}

	return postgresDB, nil
}

// NewPostgresDBWithConn wraps an existing connection. Used in tests with sqlmock.
func NewPostgresDBWithConn(db *sql.DB) *PostgresDB {
	return &PostgresDB{db: db}
}

// Close closes the database connection
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// Ping checks if the database connection is alive
func (p *PostgresDB) Ping() error {
	return p.db.Ping()
}

// InitDB creates the schema if it does not exist
func (p *PostgresDB) InitDB(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS offers (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			chain_id BIGINT NOT NULL,
			exchange_chain_id BIGINT NOT NULL DEFAULT 0,
			hash TEXT NOT NULL,
			activation_hash TEXT NOT NULL DEFAULT '',
			offer_id TEXT NOT NULL DEFAULT '',
			token TEXT NOT NULL DEFAULT '',
			amount TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_offers_status ON offers(status);
		CREATE INDEX IF NOT EXISTS idx_offers_user_id ON offers(user_id);

		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			chain_id_token_deposit BIGINT NOT NULL,
			hash TEXT NOT NULL,
			completion_hash TEXT NOT NULL DEFAULT '',
			order_id TEXT NOT NULL DEFAULT '',
			token TEXT NOT NULL DEFAULT '',
			amount TEXT NOT NULL DEFAULT '',
			is_complete BOOLEAN NOT NULL DEFAULT FALSE,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
		CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);

		CREATE TABLE IF NOT EXISTS blockchains (
			chain_id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			rpc TEXT[] NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to create schema")
	}

	return nil
}

// CreateOffer creates a new offer
func (p *PostgresDB) CreateOffer(ctx context.Context, offer *models.Offer) error {
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = time.Now()
	}
	if offer.UpdatedAt.IsZero() {
		offer.UpdatedAt = offer.CreatedAt
	}

	query := `
		INSERT INTO offers (
			id, user_id, chain_id, exchange_chain_id, hash, activation_hash,
			offer_id, token, amount, is_active, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := p.db.ExecContext(ctx, query,
		offer.ID,
		offer.UserID,
		offer.ChainID,
		offer.ExchangeChainID,
		offer.Hash,
		offer.ActivationHash,
		offer.OfferID,
		offer.Token,
		offer.Amount,
		offer.IsActive,
		offer.Status,
		offer.CreatedAt,
		offer.UpdatedAt,
	)

	return errors.Wrap(err, "failed to create offer")
}

const offerColumns = `id, user_id, chain_id, exchange_chain_id, hash, activation_hash,
	offer_id, token, amount, is_active, status, created_at, updated_at`

func scanOffer(row interface{ Scan(...interface{}) error }) (*models.Offer, error) {
	var offer models.Offer

	err := row.Scan(
		&offer.ID,
		&offer.UserID,
		&offer.ChainID,
		&offer.ExchangeChainID,
		&offer.Hash,
		&offer.ActivationHash,
		&offer.OfferID,
		&offer.Token,
		&offer.Amount,
		&offer.IsActive,
		&offer.Status,
		&offer.CreatedAt,
		&offer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &offer, nil
}

// GetOffer retrieves an offer by ID
func (p *PostgresDB) GetOffer(ctx context.Context, id string) (*models.Offer, error) {
	query := fmt.Sprintf(`SELECT %s FROM offers WHERE id = $1`, offerColumns)

	offer, err := scanOffer(p.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "offer %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get offer")
	}

	return offer, nil
}

// ListOffersPaginated retrieves offers with pagination and an optional status filter
func (p *PostgresDB) ListOffersPaginated(
	ctx context.Context,
	page, pageSize int,
	status string,
) ([]*models.Offer, int, error) {
	var (
		args       []interface{}
		where      string
		totalCount int
	)

	if status != "" {
		where = "WHERE status = $1"
		args = append(args, status)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM offers %s`, where)
	if err := p.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count offers")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM offers %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		offerColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list offers")
	}
	defer rows.Close()

	var offers []*models.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan offer")
		}
		offers = append(offers, offer)
	}

	return offers, totalCount, errors.Wrap(rows.Err(), "failed to iterate offers")
}

// ListOffersByStatus retrieves offers in one of the given statuses, optionally scoped by user
func (p *PostgresDB) ListOffersByStatus(
	ctx context.Context,
	statuses []models.OfferStatus,
	userID string,
) ([]*models.Offer, error) {
	raw := make([]string, 0, len(statuses))
	for _, s := range statuses {
		raw = append(raw, string(s))
	}

	args := []interface{}{pq.Array(raw)}
	query := fmt.Sprintf(`SELECT %s FROM offers WHERE status = ANY($1)`, offerColumns)

	if userID != "" {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list offers by status")
	}
	defer rows.Close()

	var offers []*models.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan offer")
		}
		offers = append(offers, offer)
	}

	return offers, errors.Wrap(rows.Err(), "failed to iterate offers")
}

// UpdateOffer applies a partial update to a single offer. Only non-nil fields of
// upd are written, so concurrent updates to disjoint field sets never clobber
// each other.
func (p *PostgresDB) UpdateOffer(ctx context.Context, id string, upd models.OfferUpdate) (int64, error) {
	var (
		sets []string
		args []interface{}
	)

	if upd.OfferID != nil {
		args = append(args, *upd.OfferID)
		sets = append(sets, fmt.Sprintf("offer_id = $%d", len(args)))
	}
	if upd.IsActive != nil {
		args = append(args, *upd.IsActive)
		sets = append(sets, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return 0, errors.Errorf("invalid offer status %q", *upd.Status)
		}
		args = append(args, string(*upd.Status))
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(sets) == 0 {
		return 0, errors.New("empty offer update")
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE offers SET %s WHERE id = $%d`,
		strings.Join(sets, ", "), len(args),
	)

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to update offer")
	}

	matched, err := res.RowsAffected()
	return matched, errors.Wrap(err, "failed to read affected rows")
}

// CreateOrder creates a new order
func (p *PostgresDB) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	query := `
		INSERT INTO orders (
			id, user_id, chain_id_token_deposit, hash, completion_hash,
			order_id, token, amount, is_complete, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := p.db.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.ChainIDTokenDeposit,
		order.Hash,
		order.CompletionHash,
		order.OrderID,
		order.Token,
		order.Amount,
		order.IsComplete,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	)

	return errors.Wrap(err, "failed to create order")
}

const orderColumns = `id, user_id, chain_id_token_deposit, hash, completion_hash,
	order_id, token, amount, is_complete, status, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	var order models.Order

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.ChainIDTokenDeposit,
		&order.Hash,
		&order.CompletionHash,
		&order.OrderID,
		&order.Token,
		&order.Amount,
		&order.IsComplete,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// GetOrder retrieves an order by ID
func (p *PostgresDB) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err := scanOrder(p.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "order %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get order")
	}

	return order, nil
}

// ListOrdersPaginated retrieves orders with pagination and an optional status filter
func (p *PostgresDB) ListOrdersPaginated(
	ctx context.Context,
	page, pageSize int,
	status string,
) ([]*models.Order, int, error) {
	var (
		args       []interface{}
		where      string
		totalCount int
	)

	if status != "" {
		where = "WHERE status = $1"
		args = append(args, status)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM orders %s`, where)
	if err := p.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count orders")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM orders %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list orders")
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan order")
		}
		orders = append(orders, order)
	}

	return orders, totalCount, errors.Wrap(rows.Err(), "failed to iterate orders")
}

// ListOrdersByStatus retrieves orders in one of the given statuses, optionally scoped by user
func (p *PostgresDB) ListOrdersByStatus(
	ctx context.Context,
	statuses []models.OrderStatus,
	userID string,
) ([]*models.Order, error) {
	raw := make([]string, 0, len(statuses))
	for _, s := range statuses {
		raw = append(raw, string(s))
	}

	args := []interface{}{pq.Array(raw)}
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE status = ANY($1)`, orderColumns)

	if userID != "" {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders by status")
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan order")
		}
		orders = append(orders, order)
	}

	return orders, errors.Wrap(rows.Err(), "failed to iterate orders")
}

// UpdateOrder applies a partial update to a single order. Only non-nil fields are written.
func (p *PostgresDB) UpdateOrder(ctx context.Context, id string, upd models.OrderUpdate) (int64, error) {
	var (
		sets []string
		args []interface{}
	)

	if upd.OrderID != nil {
		args = append(args, *upd.OrderID)
		sets = append(sets, fmt.Sprintf("order_id = $%d", len(args)))
	}
	if upd.IsComplete != nil {
		args = append(args, *upd.IsComplete)
		sets = append(sets, fmt.Sprintf("is_complete = $%d", len(args)))
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return 0, errors.Errorf("invalid order status %q", *upd.Status)
		}
		args = append(args, string(*upd.Status))
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(sets) == 0 {
		return 0, errors.New("empty order update")
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE orders SET %s WHERE id = $%d`,
		strings.Join(sets, ", "), len(args),
	)

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to update order")
	}

	matched, err := res.RowsAffected()
	return matched, errors.Wrap(err, "failed to read affected rows")
}

// CreateBlockchain registers a blockchain in the directory
func (p *PostgresDB) CreateBlockchain(ctx context.Context, chain *models.Blockchain) error {
	if len(chain.RPC) == 0 {
		return errors.New("blockchain must have at least one RPC endpoint")
	}

	if chain.CreatedAt.IsZero() {
		chain.CreatedAt = time.Now()
	}
	if chain.UpdatedAt.IsZero() {
		chain.UpdatedAt = chain.CreatedAt
	}

	query := `
		INSERT INTO blockchains (chain_id, name, rpc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chain_id) DO UPDATE SET name = $2, rpc = $3, updated_at = $5
	`

	_, err := p.db.ExecContext(ctx, query,
		chain.ChainID,
		chain.Name,
		pq.Array(chain.RPC),
		chain.CreatedAt,
		chain.UpdatedAt,
	)

	return errors.Wrap(err, "failed to create blockchain")
}

// GetBlockchain retrieves a blockchain directory entry by chain ID
func (p *PostgresDB) GetBlockchain(ctx context.Context, chainID uint64) (*models.Blockchain, error) {
	query := `
		SELECT chain_id, name, rpc, created_at, updated_at
		FROM blockchains
		WHERE chain_id = $1
	`

	var chain models.Blockchain
	err := p.db.QueryRowContext(ctx, query, chainID).Scan(
		&chain.ChainID,
		&chain.Name,
		pq.Array(&chain.RPC),
		&chain.CreatedAt,
		&chain.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "blockchain %d", chainID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get blockchain")
	}

	return &chain, nil
}

// ListBlockchains retrieves all blockchain directory entries
func (p *PostgresDB) ListBlockchains(ctx context.Context) ([]*models.Blockchain, error) {
	query := `
		SELECT chain_id, name, rpc, created_at, updated_at
		FROM blockchains
		ORDER BY chain_id
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list blockchains")
	}
	defer rows.Close()

	var chains []*models.Blockchain
	for rows.Next() {
		var chain models.Blockchain
		err := rows.Scan(
			&chain.ChainID,
			&chain.Name,
			pq.Array(&chain.RPC),
			&chain.CreatedAt,
			&chain.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan blockchain")
		}
		chains = append(chains, &chain)
	}

	return chains, errors.Wrap(rows.Err(), "failed to iterate blockchains")
}
