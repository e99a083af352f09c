package models

// CreateOfferRequest represents the request body for creating an offer
type CreateOfferRequest struct {
	UserID          string `json:"user_id" binding:"required"`
	ChainID         uint64 `json:"chain_id" binding:"required"`
	ExchangeChainID uint64 `json:"exchange_chain_id"`
	Hash            string `json:"hash" binding:"required"`
	Token           string `json:"token"`
	Amount          string `json:"amount"`
}

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	UserID              string `json:"user_id" binding:"required"`
	ChainIDTokenDeposit uint64 `json:"chain_id_token_deposit" binding:"required"`
	Hash                string `json:"hash" binding:"required"`
	Token               string `json:"token"`
	Amount              string `json:"amount"`
}

// CreateBlockchainRequest represents the request body for registering a blockchain
type CreateBlockchainRequest struct {
	ChainID uint64   `json:"chain_id" binding:"required"`
	Name    string   `json:"name" binding:"required"`
	RPC     []string `json:"rpc" binding:"required"`
}

// PaginatedResponse is the envelope for paginated list endpoints
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalCount int         `json:"total_count"`
	TotalPages int         `json:"total_pages"`
}

// NewPaginatedResponse creates a paginated response envelope
func NewPaginatedResponse(data interface{}, page, pageSize, totalCount int) *PaginatedResponse {
	totalPages := totalCount / pageSize
	if totalCount%pageSize > 0 {
		totalPages++
	}

	return &PaginatedResponse{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}
