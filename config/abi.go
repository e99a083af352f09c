package config

// PoolABI is the built-in interface for the pool contract. It covers the events the
// reconciliation engine decodes: offer creation, offer status changes, trades and
// trade payment. Used as a fallback when no remote ABI source is configured.
const PoolABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "_provider", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "_idOffer", "type": "uint256"},
			{"indexed": false, "internalType": "address", "name": "_token", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "_exchangeRate", "type": "uint256"}
		],
		"name": "LogNewOffer",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "_provider", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "_idOffer", "type": "uint256"},
			{"indexed": false, "internalType": "bool", "name": "_isActive", "type": "bool"}
		],
		"name": "LogSetStatusOffer",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "_buyer", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "_idTrade", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "_idOffer", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "_amount", "type": "uint256"}
		],
		"name": "LogTrade",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "_provider", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "_idTrade", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "_amount", "type": "uint256"}
		],
		"name": "LogOfferPaid",
		"type": "event"
	}
]`

// TokenABI is the built-in interface for the ERC-20 token contract.
const TokenABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "from", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "to", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
		],
		"name": "Transfer",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "spender", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
		],
		"name": "Approval",
		"type": "event"
	}
]`

// LiquidityWalletABI is the built-in interface for the liquidity wallet contract.
const LiquidityWalletABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "_wallet", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "_token", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "_amount", "type": "uint256"}
		],
		"name": "LogFundWallet",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "_wallet", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "_token", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "_amount", "type": "uint256"}
		],
		"name": "LogWithdrawWallet",
		"type": "event"
	}
]`
