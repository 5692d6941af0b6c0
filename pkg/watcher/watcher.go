package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"campwatch/pkg/api"
	"campwatch/pkg/metrics"
	"campwatch/pkg/models"
	"campwatch/pkg/render"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// State is the refresh controller lifecycle state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateRefreshing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRefreshing:
		return "refreshing"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrNoCampaign = errors.New("no campaign loaded")
	ErrStale      = errors.New("superseded by a newer refresh")
	ErrClosed     = errors.New("watcher closed")
)

const defaultPollInterval = 10 * time.Second

// Options configures a Watcher.
type Options struct {
	ContractAddress string
	// WalletAddress overrides the escrow wallet reported by the campaign.
	WalletAddress string
	PollInterval  time.Duration
	DefaultPrice  float64
	ExplorerURL   string
	LaunchpadURL  string
	Logger        *log.Logger
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// DisplayState is the controller's view of what is on screen. Campaign is
// only ever replaced as a whole.
type DisplayState struct {
	State           State                         `json:"-"`
	StateName       string                        `json:"state"`
	Paused          bool                          `json:"paused"`
	TimerArmed      bool                          `json:"timer_armed"`
	ContractAddress string                        `json:"contract_address"`
	WalletAddress   string                        `json:"wallet_address"`
	CampaignID      string                        `json:"campaign_id,omitempty"`
	Campaign        *models.Campaign              `json:"campaign,omitempty"`
	Contributions   *models.ContributionSet       `json:"contributions,omitempty"`
	EscrowBalance   *models.EscrowBalanceSnapshot `json:"escrow_balance,omitempty"`
	QR              *models.QRCode                `json:"qr,omitempty"`
	Price           float64                       `json:"price"`
	LastUpdated     time.Time                     `json:"last_updated"`
	LastError       string                        `json:"last_error,omitempty"`
}

// Watcher is the refresh controller. It owns DisplayState, runs the full load
// sequence and keeps at most one balance refresh timer armed.
type Watcher struct {
	ds       DataSource
	renderer *render.Renderer
	opts     Options
	logger   *log.Logger
	metrics  *metrics.Metrics

	mu          sync.Mutex
	state       DisplayState
	loadSeq     uint64
	contribSeq  uint64
	inflight    int
	timerCancel context.CancelFunc
	closed      bool

	subscribers []Subscriber
	subMu       sync.RWMutex
}

// New creates a Watcher that renders to sink.
func New(ds DataSource, sink render.Sink, opts Options) *Watcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	r := render.NewRenderer(sink, opts.ExplorerURL, opts.LaunchpadURL)
	r.Now = opts.Now

	return &Watcher{
		ds:       ds,
		renderer: r,
		opts:     opts,
		logger:   logger,
		metrics:  opts.Metrics,
		state: DisplayState{
			State:           StateIdle,
			ContractAddress: opts.ContractAddress,
			Price:           opts.DefaultPrice,
		},
	}
}

// Renderer exposes the renderer bound to the watcher's sink.
func (w *Watcher) Renderer() *render.Renderer {
	return w.renderer
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (w *Watcher) Subscribe() Subscriber {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	ch := make(Subscriber, 100)
	w.subscribers = append(w.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber.
func (w *Watcher) Unsubscribe(ch Subscriber) {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	for i, sub := range w.subscribers {
		if sub == ch {
			w.subscribers = append(w.subscribers[:i], w.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (w *Watcher) notify(event Event) {
	w.subMu.RLock()
	defer w.subMu.RUnlock()
	for _, sub := range w.subscribers {
		select {
		case sub <- event:
		default:
			// slow subscriber, drop
		}
	}
}

// State returns the current lifecycle state. A paused controller with a
// loaded campaign reports Idle.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.effectiveStateLocked()
}

func (w *Watcher) effectiveStateLocked() State {
	if w.state.Paused && (w.state.State == StateReady || w.state.State == StateRefreshing) {
		return StateIdle
	}
	return w.state.State
}

// Snapshot returns a copy of the display state.
func (w *Watcher) Snapshot() DisplayState {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.state
	s.State = w.effectiveStateLocked()
	s.StateName = s.State.String()
	s.TimerArmed = w.timerCancel != nil
	return s
}

// ActiveTimers reports how many balance refresh timers are armed: 0 or 1.
func (w *Watcher) ActiveTimers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timerCancel != nil {
		return 1
	}
	return 0
}

// SetContractAddress changes the watched contract. It takes effect on the
// next Load.
func (w *Watcher) SetContractAddress(addr string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.ContractAddress = addr
}

func (w *Watcher) setStateLocked(s State) {
	if w.state.State == s {
		return
	}
	w.logger.Debug("state change", "from", w.state.State, "to", s)
	w.state.State = s
	w.notify(newEvent(EventStateChanged, s.String()))
}

// Load runs the full load sequence: campaign first, then QR, contributions,
// price and escrow balance concurrently. The balance timer is disarmed for the
// duration of the load. A campaign failure moves the controller to Failed and
// shows the error panel; the other resources are optional. Completions from a superseded Load return ErrStale and touch
// nothing.
func (w *Watcher) Load(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.loadSeq++
	seq := w.loadSeq
	contract := w.state.ContractAddress
	// the timer belongs to the campaign being replaced
	w.disarmLocked()
	w.setStateLocked(StateLoading)
	w.renderer.ShowLoading()
	w.mu.Unlock()

	w.logger.Info("loading campaign", "contract", contract, "seq", seq)

	if contract == "" {
		return w.fail(seq, fmt.Errorf("%w: no contract address configured", api.ErrMissingData))
	}

	resp, err := w.ds.FetchCampaignDetail(ctx, contract)
	if err != nil {
		return w.fail(seq, fmt.Errorf("load campaign: %w", err))
	}
	if resp == nil {
		return w.fail(seq, fmt.Errorf("%w: empty campaign response", api.ErrMissingData))
	}
	if !resp.Success || resp.Campaign == nil {
		msg := "failed to load campaign data"
		if resp.Error != "" {
			msg += ": " + resp.Error
		}
		return w.fail(seq, errors.New(msg))
	}

	campaign := *resp.Campaign
	wallet := w.opts.WalletAddress
	if wallet == "" {
		wallet = campaign.WalletAddress
	}
	if wallet == "" {
		wallet = resp.EscrowAddress
	}
	if campaign.WalletAddress == "" {
		campaign.WalletAddress = wallet
	}

	var (
		qr      *models.QRCode
		set     *models.ContributionSet
		quote   *models.PriceQuote
		balance *models.EscrowBalanceSnapshot
	)
	w.mu.Lock()
	price := w.state.Price
	w.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		var err error
		if qr, err = w.ds.FetchCampaignQR(ctx, resp.QRKey()); err != nil {
			w.logger.Warn("qr unavailable", "campaign", resp.QRKey(), "err", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if set, err = w.ds.FetchEscrowTransactions(ctx, wallet); err != nil {
			w.logger.Warn("contributions unavailable", "wallet", wallet, "err", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if quote, err = w.ds.FetchPrice(ctx); err != nil {
			w.logger.Warn("price unavailable, keeping previous", "price", price, "err", err)
		} else if quote != nil {
			price = quote.USD
		}
		if balance, err = w.ds.FetchEscrowBalance(ctx, wallet, price); err != nil {
			w.logger.Warn("escrow balance unavailable", "wallet", wallet, "err", err)
		}
		return nil
	})
	_ = g.Wait()

	if set != nil && set.CountMismatch() {
		w.logger.Warn("transaction count mismatch", "count", set.TransactionCount, "records", len(set.Transactions))
	}

	w.mu.Lock()
	if seq != w.loadSeq || w.closed {
		w.mu.Unlock()
		w.metrics.RecordStale("load")
		w.logger.Debug("discarding stale load", "seq", seq)
		return ErrStale
	}
	// in-flight contribution refreshes predate this snapshot
	w.contribSeq++

	w.state.Campaign = &campaign
	w.state.CampaignID = resp.QRKey()
	w.state.WalletAddress = wallet
	w.state.Price = price
	w.state.Contributions = set
	w.state.EscrowBalance = balance
	w.state.QR = qr
	w.state.LastUpdated = w.opts.Now()
	w.state.LastError = ""

	w.renderer.RenderCampaignHeader(campaign)
	progress := w.renderer.RenderProgress(campaign, price)
	w.renderer.RenderContributions(set)
	w.renderer.RenderCampaignStats(campaign, set, price)
	w.renderer.RenderEscrowWallet(campaign, qr)
	w.renderer.RenderEscrowBalance(balance)
	w.renderer.ShowContent()

	w.setStateLocked(StateReady)
	w.armLocked()
	w.mu.Unlock()

	w.metrics.RecordLoad("ok")
	w.metrics.SetProgress(progress.Percent, progress.Current, price)
	w.logger.Info("campaign loaded", "name", campaign.Name, "percent", progress.Percent, "contributions", contributionCount(set))
	w.notify(newEvent(EventCampaignLoaded, campaign))
	return nil
}

func contributionCount(set *models.ContributionSet) int {
	if set == nil {
		return 0
	}
	return len(set.Transactions)
}

func (w *Watcher) fail(seq uint64, err error) error {
	w.mu.Lock()
	if seq != w.loadSeq || w.closed {
		w.mu.Unlock()
		w.metrics.RecordStale("load")
		return ErrStale
	}
	w.state.LastError = err.Error()
	w.disarmLocked()
	w.renderer.ShowError(err)
	w.setStateLocked(StateFailed)
	w.mu.Unlock()

	w.metrics.RecordLoad("error")
	w.logger.Error("error loading campaign", "err", err)
	w.notify(newEvent(EventLoadFailed, err.Error()))
	return err
}

// beginRefreshLocked marks a partial refresh in flight. Refreshing is only
// entered from Ready.
func (w *Watcher) beginRefreshLocked() {
	w.inflight++
	if w.state.State == StateReady {
		w.setStateLocked(StateRefreshing)
	}
}

func (w *Watcher) endRefreshLocked() {
	w.inflight--
	if w.inflight <= 0 {
		w.inflight = 0
		if w.state.State == StateRefreshing {
			w.setStateLocked(StateReady)
		}
	}
}

// RefreshBalance is the timer path. It refreshes the price and re-renders
// progress from the in-memory campaign. Failures keep the previous price and
// never replace the display.
func (w *Watcher) RefreshBalance(ctx context.Context) error {
	w.mu.Lock()
	if w.state.Campaign == nil {
		w.mu.Unlock()
		return ErrNoCampaign
	}
	seq := w.loadSeq
	w.beginRefreshLocked()
	w.mu.Unlock()

	w.metrics.RecordTick()
	quote, fetchErr := w.ds.FetchPrice(ctx)
	if fetchErr != nil {
		w.logger.Warn("price refresh failed", "err", fetchErr)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	defer w.endRefreshLocked()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if seq != w.loadSeq || w.state.Campaign == nil {
		w.metrics.RecordStale("balance")
		return ErrStale
	}
	if quote != nil {
		w.state.Price = quote.USD
	}
	price := w.state.Price
	campaign := *w.state.Campaign

	progress := w.renderer.RenderProgress(campaign, price)
	if w.state.EscrowBalance != nil {
		repriced := w.state.EscrowBalance.Reprice(price)
		w.state.EscrowBalance = &repriced
		w.renderer.RenderEscrowBalance(&repriced)
	}
	w.state.LastUpdated = w.opts.Now()

	w.metrics.SetProgress(progress.Percent, progress.Current, price)
	w.notify(newEvent(EventProgressUpdated, progress))
	return fetchErr
}

// RefreshContributions is the manual path. It re-fetches the contribution
// set and re-renders the list and stats only. It runs independently of the
// timer; a failure is logged and the display keeps its last good data.
func (w *Watcher) RefreshContributions(ctx context.Context) error {
	w.mu.Lock()
	if w.state.Campaign == nil {
		w.mu.Unlock()
		return ErrNoCampaign
	}
	w.contribSeq++
	seq := w.contribSeq
	wallet := w.state.WalletAddress
	w.beginRefreshLocked()
	w.mu.Unlock()

	w.logger.Info("refreshing contributions", "wallet", wallet)
	set, err := w.ds.FetchEscrowTransactions(ctx, wallet)

	w.mu.Lock()
	defer w.mu.Unlock()
	defer w.endRefreshLocked()

	if err == nil && set == nil {
		err = fmt.Errorf("%w: empty contribution set", api.ErrMissingData)
	}
	if err != nil {
		w.metrics.RecordContributionRefresh(err)
		w.logger.Warn("error refreshing contributions", "err", err)
		return err
	}
	if seq != w.contribSeq || w.state.Campaign == nil {
		w.metrics.RecordStale("contributions")
		return ErrStale
	}
	if set.CountMismatch() {
		w.logger.Warn("transaction count mismatch", "count", set.TransactionCount, "records", len(set.Transactions))
	}

	w.state.Contributions = set
	w.renderer.RenderContributions(set)
	stats := w.renderer.RenderCampaignStats(*w.state.Campaign, set, w.state.Price)

	w.metrics.RecordContributionRefresh(nil)
	w.notify(newEvent(EventContributionsUpdated, stats))
	return nil
}

// armLocked starts the balance refresh timer unless one is already armed,
// the controller is paused, or nothing is loaded.
func (w *Watcher) armLocked() {
	if w.timerCancel != nil || w.closed || w.state.Paused || w.state.Campaign == nil {
		return
	}
	if w.state.State != StateReady && w.state.State != StateRefreshing {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.timerCancel = cancel
	w.metrics.SetTimers(1)
	go w.pollingLoop(ctx, w.opts.PollInterval)
}

func (w *Watcher) disarmLocked() {
	if w.timerCancel == nil {
		return
	}
	w.timerCancel()
	w.timerCancel = nil
	w.metrics.SetTimers(0)
}

func (w *Watcher) pollingLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.RefreshBalance(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Debug("balance tick", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Pause cancels the balance timer without clearing the display state.
func (w *Watcher) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Paused {
		return
	}
	w.state.Paused = true
	w.disarmLocked()
	w.logger.Debug("paused")
	w.notify(newEvent(EventStateChanged, w.effectiveStateLocked().String()))
}

// Resume re-arms the balance timer if a campaign is loaded.
func (w *Watcher) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.state.Paused {
		return
	}
	w.state.Paused = false
	w.armLocked()
	w.logger.Debug("resumed", "timer", w.timerCancel != nil)
	w.notify(newEvent(EventStateChanged, w.effectiveStateLocked().String()))
}

// Close cancels the timer unconditionally. Later loads return ErrClosed.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.disarmLocked()
}

// StartClock renders the wall clock every second until ctx is done.
func (w *Watcher) StartClock(ctx context.Context) {
	w.renderer.RenderClock()
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.renderer.RenderClock()
				w.notify(newEvent(EventClockTick, nil))
			case <-ctx.Done():
				return
			}
		}
	}()
}
