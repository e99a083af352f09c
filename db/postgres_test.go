package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/offerbook-hq/offerbook/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })

	return NewPostgresDBWithConn(conn), mock
}

func TestUpdateOfferPartialFields(t *testing.T) {
	ctx := context.Background()

	t.Run("offer id and status", func(t *testing.T) {
		store, mock := newMockPostgres(t)

		offerID := "42"
		status := models.OfferStatusSuccess

		mock.ExpectExec(`UPDATE offers SET offer_id = \$1, status = \$2, updated_at = NOW\(\) WHERE id = \$3`).
			WithArgs(offerID, string(status), "rec-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		matched, err := store.UpdateOffer(ctx, "rec-1", models.OfferUpdate{
			OfferID: &offerID,
			Status:  &status,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(1), matched)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("is_active only", func(t *testing.T) {
		store, mock := newMockPostgres(t)

		active := true

		mock.ExpectExec(`UPDATE offers SET is_active = \$1, updated_at = NOW\(\) WHERE id = \$2`).
			WithArgs(active, "rec-2").
			WillReturnResult(sqlmock.NewResult(0, 1))

		matched, err := store.UpdateOffer(ctx, "rec-2", models.OfferUpdate{IsActive: &active})

		require.NoError(t, err)
		assert.Equal(t, int64(1), matched)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty update is rejected", func(t *testing.T) {
		store, _ := newMockPostgres(t)

		_, err := store.UpdateOffer(ctx, "rec-3", models.OfferUpdate{})
		assert.Error(t, err)
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		store, _ := newMockPostgres(t)

		bogus := models.OfferStatus("bogus")
		_, err := store.UpdateOffer(ctx, "rec-4", models.OfferUpdate{Status: &bogus})
		assert.Error(t, err)
	})
}

func TestUpdateOrderPartialFields(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockPostgres(t)

	complete := true
	status := models.OrderStatusComplete

	mock.ExpectExec(`UPDATE orders SET is_complete = \$1, status = \$2, updated_at = NOW\(\) WHERE id = \$3`).
		WithArgs(complete, string(status), "ord-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	matched, err := store.UpdateOrder(ctx, "ord-1", models.OrderUpdate{
		IsComplete: &complete,
		Status:     &status,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), matched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBlockchain(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		store, mock := newMockPostgres(t)

		now := time.Now()
		rows := sqlmock.NewRows([]string{"chain_id", "name", "rpc", "created_at", "updated_at"}).
			AddRow(5, "goerli", "{https://rpcA,https://rpcB}", now, now)

		mock.ExpectQuery(`SELECT chain_id, name, rpc, created_at, updated_at\s+FROM blockchains\s+WHERE chain_id = \$1`).
			WithArgs(uint64(5)).
			WillReturnRows(rows)

		chain, err := store.GetBlockchain(ctx, 5)

		require.NoError(t, err)
		assert.Equal(t, uint64(5), chain.ChainID)
		assert.Equal(t, []string{"https://rpcA", "https://rpcB"}, chain.RPC)
	})

	t.Run("not found", func(t *testing.T) {
		store, mock := newMockPostgres(t)

		mock.ExpectQuery(`SELECT chain_id, name, rpc, created_at, updated_at\s+FROM blockchains\s+WHERE chain_id = \$1`).
			WithArgs(uint64(999)).
			WillReturnRows(sqlmock.NewRows([]string{"chain_id", "name", "rpc", "created_at", "updated_at"}))

		_, err := store.GetBlockchain(ctx, 999)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListOffersByStatus(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockPostgres(t)

	now := time.Now()
	columns := []string{
		"id", "user_id", "chain_id", "exchange_chain_id", "hash", "activation_hash",
		"offer_id", "token", "amount", "is_active", "status", "created_at", "updated_at",
	}
	rows := sqlmock.NewRows(columns).
		AddRow("rec-1", "user-1", 5, 0, "0xH1", "", "", "", "", false, "pending", now, now).
		AddRow("rec-2", "user-1", 137, 0, "0xH2", "", "", "", "", false, "pending", now, now)

	mock.ExpectQuery(`SELECT .+ FROM offers WHERE status = ANY\(\$1\) AND user_id = \$2`).
		WithArgs(sqlmock.AnyArg(), "user-1").
		WillReturnRows(rows)

	offers, err := store.ListOffersByStatus(ctx, []models.OfferStatus{models.OfferStatusPending}, "user-1")

	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "rec-1", offers[0].ID)
	assert.Equal(t, models.OfferStatusPending, offers[0].Status)
	assert.Equal(t, uint64(137), offers[1].ChainID)
}

func TestGetOfferNotFound(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT .+ FROM offers WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetOffer(ctx, "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}
