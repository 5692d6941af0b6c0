package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"campwatch/pkg/config"
	"campwatch/pkg/metrics"
	"campwatch/pkg/models"
	"campwatch/pkg/utils"

	"github.com/charmbracelet/log"
)

// Failure classes. Every error returned by Client wraps exactly one of them.
var (
	ErrNetwork         = errors.New("network failure")
	ErrInvalidResponse = errors.New("invalid response")
	ErrMissingData     = errors.New("missing data")
)

// Resource names used for logging and metrics.
const (
	ResourceCampaign     = "campaign"
	ResourceTransactions = "transactions"
	ResourceBalance      = "balance"
	ResourceQR           = "qr"
	ResourcePrice        = "price"
)

const maxBodyBytes = 4 << 20

// Client talks to the campaign backend and the price endpoint.
type Client struct {
	cfg     config.Config
	client  *http.Client
	logger  *log.Logger
	metrics *metrics.Metrics
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// WithMetrics records every fetch on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// NewClient creates a Client for the endpoints in cfg.
func NewClient(cfg config.Config, opts ...Option) *Client {
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getJSON performs a GET and decodes the body into out. Backend requests
// carry the configured proxy header; the price endpoint is third-party and
// does not.
func (c *Client) getJSON(ctx context.Context, resource, rawURL string, backend bool, out interface{}) (err error) {
	start := time.Now()
	defer func() { c.metrics.RecordFetch(resource, start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: create %s request: %v", ErrNetwork, resource, err)
	}
	req.Header.Set("Accept", "application/json")
	if h := c.cfg.ProxyHeader; backend && h.Name != "" {
		req.Header.Set(h.Name, h.Value)
	}

	c.logger.Debug("fetch", "resource", resource, "url", rawURL)
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNetwork, resource, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrNetwork, resource, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: unexpected status %d: %s", ErrInvalidResponse, resource, resp.StatusCode, utils.TruncateString(string(body), 120))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInvalidResponse, resource, err)
	}
	return nil
}

// FetchCampaignDetail fetches the campaign envelope for a token contract.
// The caller inspects Success; a nil envelope always comes with an error.
func (c *Client) FetchCampaignDetail(ctx context.Context, contractAddress string) (*models.CampaignResponse, error) {
	if contractAddress == "" {
		return nil, fmt.Errorf("%w: no contract address", ErrMissingData)
	}
	u := utils.JoinURL(c.cfg.Endpoint(config.EndpointCampaignDetail), url.PathEscape(contractAddress))
	var resp models.CampaignResponse
	if err := c.getJSON(ctx, ResourceCampaign, u, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchEscrowTransactions fetches the contributions made to an escrow wallet.
func (c *Client) FetchEscrowTransactions(ctx context.Context, walletAddress string) (*models.ContributionSet, error) {
	if walletAddress == "" {
		return nil, fmt.Errorf("%w: no escrow wallet address", ErrMissingData)
	}
	u := utils.JoinURL(c.cfg.Endpoint(config.EndpointEscrowTransactions), url.PathEscape(walletAddress))
	var set models.ContributionSet
	if err := c.getJSON(ctx, ResourceTransactions, u, true, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// FetchEscrowBalance fetches the escrow wallet balance and derives BalanceUSD
// from price rather than trusting the backend's figure.
func (c *Client) FetchEscrowBalance(ctx context.Context, walletAddress string, price float64) (*models.EscrowBalanceSnapshot, error) {
	if walletAddress == "" {
		return nil, fmt.Errorf("%w: no escrow wallet address", ErrMissingData)
	}
	q := url.Values{"wallet": {walletAddress}}
	u := c.cfg.Endpoint(config.EndpointEscrowBalance) + "?" + q.Encode()
	var resp models.EscrowBalanceResponse
	if err := c.getJSON(ctx, ResourceBalance, u, true, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, fmt.Errorf("%w: escrow balance for %s", ErrMissingData, walletAddress)
	}
	snap := resp.Data.Reprice(price)
	return &snap, nil
}

// FetchCampaignQR fetches the payment QR payload for a campaign id.
func (c *Client) FetchCampaignQR(ctx context.Context, campaignID string) (*models.QRCode, error) {
	if strings.TrimSpace(campaignID) == "" {
		return nil, fmt.Errorf("%w: no campaign id", ErrMissingData)
	}
	u := utils.JoinURL(c.cfg.Endpoint(config.EndpointQR), url.PathEscape(campaignID), "qr")
	var qr models.QRCode
	if err := c.getJSON(ctx, ResourceQR, u, true, &qr); err != nil {
		return nil, err
	}
	if qr.Image == "" && qr.SolanaPayURI == "" {
		return nil, fmt.Errorf("%w: empty qr payload", ErrMissingData)
	}
	return &qr, nil
}

// FetchPrice fetches the USD price of the configured asset from a
// CoinGecko-compatible simple/price endpoint.
func (c *Client) FetchPrice(ctx context.Context) (*models.PriceQuote, error) {
	asset := c.cfg.PriceAsset
	q := url.Values{"ids": {asset}, "vs_currencies": {"usd"}}
	u := c.cfg.Endpoint(config.EndpointPriceQuote) + "/simple/price?" + q.Encode()

	var result map[string]map[string]float64
	if err := c.getJSON(ctx, ResourcePrice, u, false, &result); err != nil {
		return nil, err
	}
	usd, ok := result[asset]["usd"]
	if !ok || usd <= 0 {
		return nil, fmt.Errorf("%w: no usd price for %s", ErrMissingData, asset)
	}
	return &models.PriceQuote{Asset: asset, USD: usd, FetchedAt: time.Now()}, nil
}

// CheckEndpoints issues a GET against every configured endpoint base and reports
// whether it answered. Any HTTP answer counts as reachable.
func (c *Client) CheckEndpoints(ctx context.Context) []models.EndpointResult {
	var results []models.EndpointResult
	for _, name := range config.EndpointNames {
		base := c.cfg.Endpoint(name)
		res := models.EndpointResult{Name: name, URL: base}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
		if err != nil {
			res.Status = "error"
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		if h := c.cfg.ProxyHeader; name != config.EndpointPriceQuote && h.Name != "" {
			req.Header.Set(h.Name, h.Value)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			res.Status = "error"
			res.Error = err.Error()
		} else {
			_ = resp.Body.Close()
			res.Status = "ok"
			res.Code = resp.StatusCode
		}
		results = append(results, res)
	}
	return results
}
