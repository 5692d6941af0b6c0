package watcher

import (
	"context"
	"io"

	"campwatch/pkg/api"
	"campwatch/pkg/chain"
	"campwatch/pkg/models"

	"github.com/charmbracelet/log"
)

// DataSource defines the interface for fetching campaign data.
type DataSource interface {
	FetchCampaignDetail(ctx context.Context, contractAddress string) (*models.CampaignResponse, error)
	FetchEscrowTransactions(ctx context.Context, walletAddress string) (*models.ContributionSet, error)
	FetchEscrowBalance(ctx context.Context, walletAddress string, price float64) (*models.EscrowBalanceSnapshot, error)
	FetchCampaignQR(ctx context.Context, campaignID string) (*models.QRCode, error)
	FetchPrice(ctx context.Context) (*models.PriceQuote, error)
}

// RealDataSource implements DataSource with the backend client. When Chain is
// set, escrow balances fall back to a direct node read.
type RealDataSource struct {
	*api.Client
	Chain  *chain.BalanceReader
	Logger *log.Logger
}

func NewRealDataSource(client *api.Client, reader *chain.BalanceReader, logger *log.Logger) *RealDataSource {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &RealDataSource{Client: client, Chain: reader, Logger: logger}
}

func (d *RealDataSource) FetchEscrowBalance(ctx context.Context, walletAddress string, price float64) (*models.EscrowBalanceSnapshot, error) {
	snap, err := d.Client.FetchEscrowBalance(ctx, walletAddress, price)
	if err == nil || d.Chain == nil {
		return snap, err
	}
	d.Logger.Warn("escrow balance from backend failed, reading chain", "wallet", walletAddress, "err", err)
	return d.Chain.EscrowBalance(ctx, walletAddress, price)
}
