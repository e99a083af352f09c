package models

import (
	"time"
)

// Order represents a trade against an offer. Deposit confirmation (Hash) and
// completion confirmation (CompletionHash) are resolved independently: an order
// can be success with completion still pending.
type Order struct {
	ID                  string      `json:"id"`
	UserID              string      `json:"user_id"`
	ChainIDTokenDeposit uint64      `json:"chain_id_token_deposit"`
	Hash                string      `json:"hash"`
	CompletionHash      string      `json:"completion_hash,omitempty"`
	OrderID             string      `json:"order_id"`
	Token               string      `json:"token"`
	Amount              string      `json:"amount"`
	IsComplete          bool        `json:"is_complete"`
	Status              OrderStatus `json:"status"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// OrderStatus represents the possible states of an order
type OrderStatus string

const (
	// OrderStatusPending indicates the deposit transaction has not been resolved yet
	OrderStatusPending OrderStatus = "pending"

	// OrderStatusSuccess indicates the token deposit was confirmed
	OrderStatusSuccess OrderStatus = "success"

	// OrderStatusFailure indicates the deposit transaction reverted or emitted no trade event
	OrderStatusFailure OrderStatus = "failure"

	// OrderStatusCompletion indicates a payment transaction is awaiting resolution
	OrderStatusCompletion OrderStatus = "completion"

	// OrderStatusComplete indicates the order was paid out on chain
	OrderStatusComplete OrderStatus = "complete"

	// OrderStatusCompletionFailure indicates the payment transaction failed on chain
	OrderStatusCompletionFailure OrderStatus = "completion_failure"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:           {OrderStatusSuccess, OrderStatusFailure},
	OrderStatusSuccess:           {OrderStatusCompletion},
	OrderStatusCompletion:        {OrderStatusComplete, OrderStatusCompletionFailure},
	OrderStatusCompletionFailure: {OrderStatusCompletion},
}

// Valid reports whether the status is one of the known order states.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusSuccess, OrderStatusFailure,
		OrderStatusCompletion, OrderStatusComplete, OrderStatusCompletionFailure:
		return true
	}
	return false
}

// CanTransitionTo reports whether the order state machine allows moving to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderUpdate is a partial update of an order. Only non-nil fields are written.
type OrderUpdate struct {
	OrderID    *string
	IsComplete *bool
	Status     *OrderStatus
}

// ToResponse converts an Order to an OrderResponse
func (o *Order) ToResponse() *OrderResponse {
	return &OrderResponse{
		ID:                  o.ID,
		UserID:              o.UserID,
		ChainIDTokenDeposit: o.ChainIDTokenDeposit,
		Hash:                o.Hash,
		CompletionHash:      o.CompletionHash,
		OrderID:             o.OrderID,
		Token:               o.Token,
		Amount:              o.Amount,
		IsComplete:          o.IsComplete,
		Status:              string(o.Status),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

// OrderResponse represents the response format for an order
type OrderResponse struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"user_id"`
	ChainIDTokenDeposit uint64    `json:"chain_id_token_deposit"`
	Hash                string    `json:"hash"`
	CompletionHash      string    `json:"completion_hash,omitempty"`
	OrderID             string    `json:"order_id"`
	Token               string    `json:"token"`
	Amount              string    `json:"amount"`
	IsComplete          bool      `json:"is_complete"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
