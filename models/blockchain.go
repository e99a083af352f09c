package models

import "time"

// Blockchain is the directory entry for a supported network. RPC holds the
// endpoint URLs ordered by preference; reconciliation tries them in list order.
type Blockchain struct {
	ChainID   uint64    `json:"chain_id"`
	Name      string    `json:"name"`
	RPC       []string  `json:"rpc"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
