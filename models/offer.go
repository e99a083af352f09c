package models

import (
	"time"
)

// Offer represents a liquidity offer whose on-chain deposit is confirmed asynchronously.
type Offer struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	ChainID         uint64      `json:"chain_id"`
	ExchangeChainID uint64      `json:"exchange_chain_id"`
	Hash            string      `json:"hash"`
	ActivationHash  string      `json:"activation_hash,omitempty"`
	OfferID         string      `json:"offer_id"`
	Token           string      `json:"token"`
	Amount          string      `json:"amount"`
	IsActive        bool        `json:"is_active"`
	Status          OfferStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// OfferStatus represents the possible states of an offer.
// Creation resolution (pending -> success/failure) and activation resolution
// (activation/deactivation -> success or a failure variant) are independent
// sub-state machines; the former uses Hash, the latter ActivationHash.
type OfferStatus string

const (
	// OfferStatusPending indicates the creation transaction has not been resolved yet
	OfferStatusPending OfferStatus = "pending"

	// OfferStatusSuccess indicates the on-chain deposit was confirmed
	OfferStatusSuccess OfferStatus = "success"

	// OfferStatusFailure indicates the creation transaction reverted or emitted no offer event
	OfferStatusFailure OfferStatus = "failure"

	// OfferStatusActivation indicates an activation transaction is awaiting resolution
	OfferStatusActivation OfferStatus = "activation"

	// OfferStatusActivationFailure indicates the activation transaction failed on chain
	OfferStatusActivationFailure OfferStatus = "activation_failure"

	// OfferStatusDeactivation indicates a deactivation transaction is awaiting resolution
	OfferStatusDeactivation OfferStatus = "deactivation"

	// OfferStatusDeactivationFailure indicates the deactivation transaction failed on chain
	OfferStatusDeactivationFailure OfferStatus = "deactivation_failure"
)

var offerTransitions = map[OfferStatus][]OfferStatus{
	OfferStatusPending:             {OfferStatusSuccess, OfferStatusFailure},
	OfferStatusSuccess:             {OfferStatusActivation, OfferStatusDeactivation},
	OfferStatusActivation:          {OfferStatusSuccess, OfferStatusActivationFailure},
	OfferStatusDeactivation:        {OfferStatusSuccess, OfferStatusDeactivationFailure},
	OfferStatusActivationFailure:   {OfferStatusActivation, OfferStatusDeactivation},
	OfferStatusDeactivationFailure: {OfferStatusActivation, OfferStatusDeactivation},
}

// Valid reports whether the status is one of the known offer states.
func (s OfferStatus) Valid() bool {
	switch s {
	case OfferStatusPending, OfferStatusSuccess, OfferStatusFailure,
		OfferStatusActivation, OfferStatusActivationFailure,
		OfferStatusDeactivation, OfferStatusDeactivationFailure:
		return true
	}
	return false
}

// CanTransitionTo reports whether the offer state machine allows moving to next.
// Terminal creation failure has no outgoing edges.
func (s OfferStatus) CanTransitionTo(next OfferStatus) bool {
	for _, allowed := range offerTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OfferUpdate is a partial update of an offer. Only non-nil fields are written,
// so a reconciliation write never touches columns it did not compute.
type OfferUpdate struct {
	OfferID  *string
	IsActive *bool
	Status   *OfferStatus
}

// ToResponse converts an Offer to an OfferResponse
func (o *Offer) ToResponse() *OfferResponse {
	return &OfferResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		ChainID:         o.ChainID,
		ExchangeChainID: o.ExchangeChainID,
		Hash:            o.Hash,
		ActivationHash:  o.ActivationHash,
		OfferID:         o.OfferID,
		Token:           o.Token,
		Amount:          o.Amount,
		IsActive:        o.IsActive,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// OfferResponse represents the response format for an offer
type OfferResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ChainID         uint64    `json:"chain_id"`
	ExchangeChainID uint64    `json:"exchange_chain_id"`
	Hash            string    `json:"hash"`
	ActivationHash  string    `json:"activation_hash,omitempty"`
	OfferID         string    `json:"offer_id"`
	Token           string    `json:"token"`
	Amount          string    `json:"amount"`
	IsActive        bool      `json:"is_active"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
