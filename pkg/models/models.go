package models

import "time"

// Campaign is the funding record for one token. It is always replaced as a
// whole snapshot, never patched in place.
type Campaign struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Symbol           string    `json:"symbol,omitempty"`
	ContractAddress  string    `json:"contract_address"`
	ImageURL         string    `json:"image_url,omitempty"`
	WalletAddress    string    `json:"wallet_address"`
	GoalAmount       float64   `json:"goal_amount"`
	CurrentBalance   float64   `json:"current_balance"`
	Status           string    `json:"status,omitempty"`
	CreatedAt        Timestamp `json:"created_at"`
	ExpiresAt        Timestamp `json:"expires_at"`
	CampaignType     string    `json:"campaign_type,omitempty"`
	SocialTwitter    string    `json:"social_twitter,omitempty"`
	SocialWebsite    string    `json:"social_website,omitempty"`
	Description      string    `json:"description,omitempty"`
	ContributorCount int       `json:"contributor_count"`
	TokenLaunchpad   string    `json:"token_launchpad,omitempty"`
}

// CampaignResponse is the campaign-detail envelope.
type CampaignResponse struct {
	Success       bool      `json:"success"`
	CampaignID    string    `json:"campaign_id,omitempty"`
	EscrowAddress string    `json:"escrow_address,omitempty"`
	Error         string    `json:"error,omitempty"`
	Campaign      *Campaign `json:"campaign,omitempty"`
}

// QRKey returns the identifier the QR endpoint is keyed by: the short
// campaign_id (cmp_xxxxxxxx), not the campaign's primary key.
func (r CampaignResponse) QRKey() string {
	return r.CampaignID
}

// Transaction is one recorded transfer into the escrow wallet.
type Transaction struct {
	Signature string  `json:"signature"`
	From      string  `json:"from"`
	Amount    float64 `json:"amount"`
	Timestamp int64   `json:"timestamp"`
	Status    string  `json:"status,omitempty"`
}

// ContributionSet is the escrow-transactions payload.
type ContributionSet struct {
	TransactionCount int           `json:"transactionCount"`
	Contributors     []string      `json:"contributors"`
	Transactions     []Transaction `json:"transactions"`
}

// CountMismatch reports whether the denormalized count disagrees with the
// records actually returned.
func (s ContributionSet) CountMismatch() bool {
	return s.TransactionCount != len(s.Transactions)
}

// EscrowBalanceSnapshot holds the escrow wallet balance. BalanceUSD is derived
// from the price in effect when the snapshot was taken.
type EscrowBalanceSnapshot struct {
	Address            string        `json:"address"`
	BalanceSOL         float64       `json:"balanceSOL"`
	BalanceUSD         float64       `json:"balanceUSD"`
	TransactionCount   int           `json:"transactionCount"`
	RecentTransactions []Transaction `json:"recentTransactions"`
}

// Reprice recomputes BalanceUSD for a new price.
func (b EscrowBalanceSnapshot) Reprice(price float64) EscrowBalanceSnapshot {
	b.BalanceUSD = b.BalanceSOL * price
	return b
}

// EscrowBalanceResponse is the escrow-balance envelope.
type EscrowBalanceResponse struct {
	Success bool                   `json:"success"`
	Data    *EscrowBalanceSnapshot `json:"data"`
}

// PriceQuote is the fiat price of one native-token unit.
type PriceQuote struct {
	Asset     string
	USD       float64
	FetchedAt time.Time
}

// QRCode is the payment QR payload for a campaign.
type QRCode struct {
	Image         string `json:"qr_code"`
	SolanaPayURI  string `json:"solana_pay_uri"`
	EscrowAddress string `json:"escrow_address"`
}

// EndpointResult holds the reachability check result for one configured endpoint.
type EndpointResult struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Status string `json:"status"` // "ok" or "error"
	Code   int    `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

// TestReport holds the results of the configuration test.
type TestReport struct {
	ConfigPath      string           `json:"config_path"`
	ValidStructure  bool             `json:"valid_structure"`
	StructureErrors []string         `json:"structure_errors,omitempty"`
	ContractAddress string           `json:"contract_address,omitempty"`
	ContractValid   bool             `json:"contract_valid"`
	Endpoints       []EndpointResult `json:"endpoints,omitempty"`
	ConfigWritten   bool             `json:"config_written"`
	DryRun          bool             `json:"dry_run"`
}
