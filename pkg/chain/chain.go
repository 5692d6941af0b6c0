// Package chain reads escrow state straight from a Solana JSON-RPC node.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"campwatch/pkg/models"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/mr-tron/base58"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

const addressLen = 32

var ErrInvalidAddress = errors.New("invalid address")

// ValidateAddress reports whether addr decodes to a 32-byte base58 public key.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != addressLen {
		return fmt.Errorf("%w: decoded to %d bytes, want %d", ErrInvalidAddress, len(raw), addressLen)
	}
	return nil
}

// IsValidAddress is the boolean form of ValidateAddress.
func IsValidAddress(addr string) bool {
	return ValidateAddress(addr) == nil
}

type balanceResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value uint64 `json:"value"`
}

// BalanceReader fetches native balances over JSON-RPC. The connection is
// dialed lazily on first use.
type BalanceReader struct {
	url     string
	headers map[string]string

	mu     sync.Mutex
	client *rpc.Client
}

// NewBalanceReader creates a reader for the node at url. headers are sent on
// every call.
func NewBalanceReader(url string, headers map[string]string) *BalanceReader {
	return &BalanceReader{url: url, headers: headers}
}

func (b *BalanceReader) dial(ctx context.Context) (*rpc.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return b.client, nil
	}
	var opts []rpc.ClientOption
	for k, v := range b.headers {
		opts = append(opts, rpc.WithHeader(k, v))
	}
	client, err := rpc.DialOptions(ctx, b.url, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", b.url, err)
	}
	b.client = client
	return client, nil
}

// Lamports returns the raw balance of address.
func (b *BalanceReader) Lamports(ctx context.Context, address string) (uint64, error) {
	if err := ValidateAddress(address); err != nil {
		return 0, err
	}
	client, err := b.dial(ctx)
	if err != nil {
		return 0, err
	}
	var res balanceResult
	if err := client.CallContext(ctx, &res, "getBalance", address); err != nil {
		return 0, fmt.Errorf("getBalance %s: %w", address, err)
	}
	return res.Value, nil
}

// EscrowBalance builds a balance snapshot for address priced at price. Only
// the balance is available from the node, so the transaction fields are empty.
func (b *BalanceReader) EscrowBalance(ctx context.Context, address string, price float64) (*models.EscrowBalanceSnapshot, error) {
	lamports, err := b.Lamports(ctx, address)
	if err != nil {
		return nil, err
	}
	snap := models.EscrowBalanceSnapshot{
		Address:    address,
		BalanceSOL: float64(lamports) / LamportsPerSOL,
	}.Reprice(price)
	return &snap, nil
}

// Close releases the underlying connection.
func (b *BalanceReader) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		b.client.Close()
		b.client = nil
	}
}
