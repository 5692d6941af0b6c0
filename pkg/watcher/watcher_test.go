package watcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"campwatch/pkg/api"
	"campwatch/pkg/models"
	"campwatch/pkg/render"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) FetchCampaignDetail(ctx context.Context, contractAddress string) (*models.CampaignResponse, error) {
	args := m.Called(ctx, contractAddress)
	resp, _ := args.Get(0).(*models.CampaignResponse)
	return resp, args.Error(1)
}

func (m *MockDataSource) FetchEscrowTransactions(ctx context.Context, walletAddress string) (*models.ContributionSet, error) {
	args := m.Called(ctx, walletAddress)
	set, _ := args.Get(0).(*models.ContributionSet)
	return set, args.Error(1)
}

func (m *MockDataSource) FetchEscrowBalance(ctx context.Context, walletAddress string, price float64) (*models.EscrowBalanceSnapshot, error) {
	args := m.Called(ctx, walletAddress, price)
	snap, _ := args.Get(0).(*models.EscrowBalanceSnapshot)
	return snap, args.Error(1)
}

func (m *MockDataSource) FetchCampaignQR(ctx context.Context, campaignID string) (*models.QRCode, error) {
	args := m.Called(ctx, campaignID)
	qr, _ := args.Get(0).(*models.QRCode)
	return qr, args.Error(1)
}

func (m *MockDataSource) FetchPrice(ctx context.Context) (*models.PriceQuote, error) {
	args := m.Called(ctx)
	quote, _ := args.Get(0).(*models.PriceQuote)
	return quote, args.Error(1)
}

const (
	testContract = "KTtNxsFzGJBUDCLT5c6k3zKtRacQ2LLzivZ3CdCbonk"
	testWallet   = "FuXL5ZYZc6YBGkRxWQ98k1f64QSGWXtLwNN2Dj5f3XYf"
	testID       = "cmp_1a2b3c4d"
	testPrimary  = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"
)

var testNow = time.Date(2025, 8, 19, 12, 0, 0, 0, time.UTC)

func campaignResponse(name string) *models.CampaignResponse {
	return &models.CampaignResponse{
		Success:    true,
		CampaignID: testID,
		Campaign: &models.Campaign{
			ID:               testPrimary,
			Name:             name,
			ContractAddress:  testContract,
			WalletAddress:    testWallet,
			GoalAmount:       100,
			CurrentBalance:   25,
			CreatedAt:        models.NewTimestamp(testNow.Add(-5 * time.Hour)),
			ExpiresAt:        models.NewTimestamp(testNow.Add(90 * time.Minute)),
			ContributorCount: 2,
		},
	}
}

func contributionSet() *models.ContributionSet {
	return &models.ContributionSet{
		TransactionCount: 2,
		Contributors:     []string{"A", "B"},
		Transactions: []models.Transaction{
			{Signature: "s1", From: "A", Amount: 5, Timestamp: 1724035680},
			{Signature: "s2", From: "B", Amount: 5, Timestamp: 1724035700},
		},
	}
}

func newTestWatcher(ds DataSource) (*Watcher, *render.Board) {
	board := render.NewBoard()
	w := New(ds, board, Options{
		ContractAddress: testContract,
		PollInterval:    time.Hour,
		DefaultPrice:    180,
		ExplorerURL:     "https://solscan.io",
		LaunchpadURL:    "https://pump.fun/coin",
		Now:             func() time.Time { return testNow },
	})
	return w, board
}

func expectHappyLoad(ds *MockDataSource, price float64) {
	ds.On("FetchCampaignDetail", mock.Anything, testContract).Return(campaignResponse("Moon Dog"), nil)
	ds.On("FetchCampaignQR", mock.Anything, testID).Return(&models.QRCode{Image: "data:image/png;base64,AAAA", SolanaPayURI: "solana:" + testWallet}, nil)
	ds.On("FetchEscrowTransactions", mock.Anything, testWallet).Return(contributionSet(), nil)
	ds.On("FetchPrice", mock.Anything).Return(&models.PriceQuote{Asset: "solana", USD: price}, nil)
	ds.On("FetchEscrowBalance", mock.Anything, testWallet, price).Return(&models.EscrowBalanceSnapshot{Address: testWallet, BalanceSOL: 0.5, BalanceUSD: 0.5 * price}, nil)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	w, _ := newTestWatcher(new(MockDataSource))
	sub := w.Subscribe()
	assert.NotNil(t, sub)

	w.subMu.RLock()
	assert.Equal(t, 1, len(w.subscribers))
	w.subMu.RUnlock()

	w.Unsubscribe(sub)
	w.subMu.RLock()
	assert.Equal(t, 0, len(w.subscribers))
	w.subMu.RUnlock()
}

func TestLoad_Success(t *testing.T) {
	ds := new(MockDataSource)
	expectHappyLoad(ds, 200)

	w, board := newTestWatcher(ds)
	defer w.Close()
	sub := w.Subscribe()

	require.NoError(t, w.Load(context.Background()))
	ds.AssertExpectations(t)

	assert.Equal(t, StateReady, w.State())
	assert.Equal(t, 1, w.ActiveTimers())

	snap := board.Snapshot()
	assert.Equal(t, "Moon Dog", snap.Text[render.TargetTokenName])
	assert.Equal(t, "25 / 100", snap.Text[render.TargetProgressText])
	assert.Equal(t, "75 needed", snap.Text[render.TargetNeededAmount])
	assert.Equal(t, "25% funded", snap.Text[render.TargetPercentFunded])
	assert.Equal(t, "0.1250 SOL", snap.Text[render.TargetSolAmount])
	assert.Equal(t, "1h 30m left", snap.Text[render.TargetTimeLeft])
	assert.Equal(t, "A", snap.Text[render.TargetTopContributor])
	assert.Equal(t, "0.5000 SOL ($100.00)", snap.Text[render.TargetEscrowBalance])
	assert.Equal(t, "data:image/png;base64,AAAA", snap.Images[render.TargetQRCode])
	assert.Len(t, snap.Lists[render.TargetContributions], 2)
	assert.True(t, snap.Visible[render.TargetMainContent])
	assert.False(t, snap.Visible[render.TargetLoading])

	state := w.Snapshot()
	assert.Equal(t, 200.0, state.Price)
	assert.Equal(t, testWallet, state.WalletAddress)
	assert.True(t, state.TimerArmed)
	assert.Equal(t, "ready", state.StateName)

	seen := map[string]bool{}
	loaded := false
	timeout := time.After(time.Second)
	for !loaded {
		select {
		case ev := <-sub:
			_, err := uuid.Parse(ev.ID)
			require.NoError(t, err, "event id %q", ev.ID)
			assert.False(t, seen[ev.ID], "duplicate event id %s", ev.ID)
			seen[ev.ID] = true
			loaded = ev.Type == EventCampaignLoaded
		case <-timeout:
			t.Fatal("timed out waiting for campaign_loaded")
		}
	}
	assert.GreaterOrEqual(t, len(seen), 2)
}

func TestLoad_ReloadHidesContentAndDisarmsTimer(t *testing.T) {
	ds := new(MockDataSource)
	expectHappyLoad(ds, 200)
	w, board := newTestWatcher(ds)
	defer w.Close()

	require.NoError(t, w.Load(context.Background()))
	require.Equal(t, 1, w.ActiveTimers())

	started := make(chan struct{})
	release := make(chan struct{})
	ds.ExpectedCalls = nil
	expectHappyLoad(ds, 200)
	ds.ExpectedCalls[0].Run(func(args mock.Arguments) {
		close(started)
		<-release
	})

	done := make(chan error, 1)
	go func() { done <- w.Load(context.Background()) }()
	<-started

	assert.Equal(t, 0, w.ActiveTimers())
	assert.False(t, w.Snapshot().TimerArmed)
	snap := board.Snapshot()
	assert.True(t, snap.Visible[render.TargetLoading])
	assert.False(t, snap.Visible[render.TargetMainContent])

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reload did not finish")
	}
	assert.Equal(t, 1, w.ActiveTimers())
	snap = board.Snapshot()
	assert.True(t, snap.Visible[render.TargetMainContent])
	assert.False(t, snap.Visible[render.TargetLoading])
}

func TestLoad_ReloadFailureLeavesTimerDisarmed(t *testing.T) {
	ds := new(MockDataSource)
	expectHappyLoad(ds, 200)
	w, board := newTestWatcher(ds)
	defer w.Close()
	require.NoError(t, w.Load(context.Background()))

	ds.ExpectedCalls = nil
	ds.On("FetchCampaignDetail", mock.Anything, testContract).Return(nil, api.ErrNetwork)

	require.Error(t, w.Load(context.Background()))
	assert.Equal(t, 0, w.ActiveTimers())
	assert.False(t, board.Snapshot().Visible[render.TargetMainContent])
	assert.True(t, board.Snapshot().Visible[render.TargetError])
}

func TestLoad_NilCampaignResponse(t *testing.T) {
	ds := new(MockDataSource)
	ds.On("FetchCampaignDetail", mock.Anything, testContract).Return(nil, nil)

	w, board := newTestWatcher(ds)
	defer w.Close()

	var err error
	require.NotPanics(t, func() { err = w.Load(context.Background()) })
	assert.ErrorIs(t, err, api.ErrMissingData)
	assert.Equal(t, StateFailed, w.State())
	assert.True(t, board.Snapshot().Visible[render.TargetError])
	assert.Equal(t, 0, w.ActiveTimers())
}

func TestLoad_NilPriceQuoteKeepsDefault(t *testing.T) {
	ds := new(MockDataSource)
	ds.On("FetchCampaignDetail", mock.Anything, testContract).Return(campaignResponse("Moon Dog"), nil)
	ds.On("FetchCampaignQR", mock.Anything, testID).Return(nil, nil)
	ds.On("FetchEscrowTransactions", mock.Anything, testWallet).Return(contributionSet(), nil)
	ds.On("FetchPrice", mock.Anything).Return(nil, nil)
	ds.On("FetchEscrowBalance", mock.Anything, testWallet, 180.0).Return(nil, nil)

	w, _ := newTestWatcher(ds)
	defer w.Close()

	require.NotPanics(t, func() { require.NoError(t, w.Load(context.Background())) })
	assert.Equal(t, 180.0, w.Snapshot().Price)
	assert.Equal(t, StateReady, w.State())
}

func TestLoad_CampaignFetchFails(t *testing.T) {
	ds := new(MockDataSource)
	ds.On("FetchCampaignDetail", mock.Anything, testContract).Return(nil, api.ErrNetwork)

	w, board := newTestWatcher(ds)
	defer w.Close()

	err := w.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNetwork)

	assert.Equal(t, StateFailed, w.State())
	assert.Equal(t, 0, w.ActiveTimers())

	snap := board.Snapshot()
	assert.True(t, snap.Visible[render.TargetError])
	assert.True(t, snap.Visible[render.TargetRetry])
	assert.Contains(t, snap.Text[render.TargetError], "network failure")

	ds.AssertNotCalled(t, "FetchCampaignQR", mock.Anything, mock.Anything)
	ds.AssertNotCalled(t, "FetchEscrowTransactions", mock.Anything, mock.Anything)
}

func TestLoad_UnsuccessfulEnvelope(t *testing.T) {
	ds := new(MockDataSource)
	ds.On("FetchCampaignDetail", mock.Anything, testContract).Return(&models.CampaignResponse{Success: false, Error: "campaign not found"}, nil)

	w, board := newTestWatcher(ds)
	defer w.Close()

	err := w.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, w.State())
	assert.Equal(t, "failed to load campaign data: campaign not found", board.Text(render.TargetError))
}

func TestLoad_NoContract(t *testing.T) {
	ds := new(MockDataSource)
	w, _ := newTestWatcher(ds)
	w.SetContractAddress("")

	err := w.Load(context.Background())
	assert.ErrorIs(t, err, api.ErrMissingData)
	assert.Equal(t, StateFailed, w.State())
	ds.AssertNotCalled(t, "FetchCampaignDetail", mock.Anything, mock.Anything)
}

func TestLoad_OptionalFailuresTolerated(t *testing.T) {
	ds := new(MockDataSource)
	ds.On("FetchCampaignDetail", mock.Anything, testContract).Return(campaignResponse("Moon Dog"), nil)
	ds.On("FetchCampaignQR", mock.Anything, testID).Return(nil, api.ErrInvalidResponse)
	ds.On("FetchEscrowTransactions", mock.Anything, testWallet).Return(nil, api.ErrNetwork)
	ds.On("FetchPrice", mock.Anything).Return(nil, api.ErrNetwork)
	ds.On("FetchEscrowBalance", mock.Anything, testWallet, 180.0).Return(nil, api.ErrMissingData)

	w, board := newTestWatcher(ds)
	defer w.Close()

	require.NoError(t, w.Load(context.Background()))
	assert.Equal(t, StateReady, w.State())

	snap := board.Snapshot()
	assert.Empty(t, snap.Images[render.TargetQRCode])
	assert.Empty(t, snap.Lists[render.TargetContributions])
	assert.Equal(t, "0", snap.Text[render.TargetContributionCount])
	assert.Equal(t, "0.00", snap.Text[render.TargetAvgContribution])
	assert.Equal(t, render.Placeholder, snap.Text[render.TargetEscrowBalance])
	assert.Equal(t, "Live: 180/SOL", snap.Text[render.TargetLivePrice])
	assert.Equal(t, testWallet, snap.Text[render.TargetEscrowAddress])
}

func TestLoad_StaleCompletionDiscarded(t *testing.T) {
	ds := new(MockDataSource)
	started := make(chan struct{})
	release := make(chan struct{})

	slow := campaignResponse("Slow Campaign")
	ds.On("FetchCampaignDetail", mock.Anything, "SLOW").
		Run(func(args mock.Arguments) {
			close(started)
			<-release
		}).
		Return(slow, nil)
	ds.On("FetchCampaignDetail", mock.Anything, "FAST").Return(campaignResponse("Fast Campaign"), nil)
	ds.On("FetchCampaignQR", mock.Anything, mock.Anything).Return(nil, api.ErrMissingData)
	ds.On("FetchEscrowTransactions", mock.Anything, mock.Anything).Return(contributionSet(), nil)
	ds.On("FetchPrice", mock.Anything).Return(&models.PriceQuote{USD: 200}, nil)
	ds.On("FetchEscrowBalance", mock.Anything, mock.Anything, mock.Anything).Return(nil, api.ErrMissingData)

	w, board := newTestWatcher(ds)
	defer w.Close()

	w.SetContractAddress("SLOW")
	slowErr := make(chan error, 1)
	go func() { slowErr <- w.Load(context.Background()) }()
	<-started

	w.SetContractAddress("FAST")
	require.NoError(t, w.Load(context.Background()))
	assert.Equal(t, "Fast Campaign", board.Text(render.TargetTokenName))

	close(release)
	select {
	case err := <-slowErr:
		assert.ErrorIs(t, err, ErrStale)
	case <-time.After(2 * time.Second):
		t.Fatal("slow load did not finish")
	}
	assert.Equal(t, "Fast Campaign", board.Text(render.TargetTokenName))
	assert.Equal(t, "Fast Campaign", w.Snapshot().Campaign.Name)
	assert.Equal(t, 1, w.ActiveTimers())
}

func TestRefreshBalance(t *testing.T) {
	ds := new(MockDataSource)
	w, board := newTestWatcher(ds)
	defer w.Close()

	assert.ErrorIs(t, w.RefreshBalance(context.Background()), ErrNoCampaign)

	expectHappyLoad(ds, 200)
	require.NoError(t, w.Load(context.Background()))

	ds.ExpectedCalls = nil
	ds.On("FetchPrice", mock.Anything).Return(&models.PriceQuote{USD: 250}, nil)

	require.NoError(t, w.RefreshBalance(context.Background()))
	assert.Equal(t, "0.1000 SOL", board.Text(render.TargetSolAmount))
	assert.Equal(t, "Live: 250/SOL", board.Text(render.TargetLivePrice))
	assert.Equal(t, "0.5000 SOL ($125.00)", board.Text(render.TargetEscrowBalance))
	assert.Equal(t, 250.0, w.Snapshot().Price)
	assert.Equal(t, StateReady, w.State())
}

func TestRefreshBalance_FailureKeepsDisplay(t *testing.T) {
	ds := new(MockDataSource)
	expectHappyLoad(ds, 200)
	w, board := newTestWatcher(ds)
	defer w.Close()
	require.NoError(t, w.Load(context.Background()))

	ds.ExpectedCalls = nil
	ds.On("FetchPrice", mock.Anything).Return(nil, api.ErrNetwork)

	err := w.RefreshBalance(context.Background())
	assert.ErrorIs(t, err, api.ErrNetwork)
	assert.Equal(t, StateReady, w.State())
	assert.Equal(t, "0.1250 SOL", board.Text(render.TargetSolAmount))
	assert.True(t, board.Snapshot().Visible[render.TargetMainContent])
	assert.False(t, board.Snapshot().Visible[render.TargetError])
}

func TestRefreshContributions(t *testing.T) {
	ds := new(MockDataSource)
	w, board := newTestWatcher(ds)
	defer w.Close()

	assert.ErrorIs(t, w.RefreshContributions(context.Background()), ErrNoCampaign)

	expectHappyLoad(ds, 200)
	require.NoError(t, w.Load(context.Background()))

	updated := contributionSet()
	updated.TransactionCount = 3
	updated.Transactions = append(updated.Transactions, models.Transaction{Signature: "s3", From: "C", Amount: 9})

	ds.ExpectedCalls = nil
	ds.On("FetchEscrowTransactions", mock.Anything, testWallet).Return(updated, nil).Once()

	require.NoError(t, w.RefreshContributions(context.Background()))
	snap := board.Snapshot()
	assert.Len(t, snap.Lists[render.TargetContributions], 3)
	assert.Equal(t, "C", snap.Text[render.TargetTopContributor])
	assert.Equal(t, "3", snap.Text[render.TargetContributionCount])
	assert.Equal(t, 1, w.ActiveTimers(), "manual refresh does not touch the timer")

	ds.On("FetchEscrowTransactions", mock.Anything, testWallet).Return(nil, api.ErrNetwork).Once()
	err := w.RefreshContributions(context.Background())
	assert.ErrorIs(t, err, api.ErrNetwork)
	assert.Len(t, board.Snapshot().Lists[render.TargetContributions], 3)
	assert.Equal(t, StateReady, w.State())
}

func TestRefreshContributions_NilSet(t *testing.T) {
	ds := new(MockDataSource)
	expectHappyLoad(ds, 200)
	w, board := newTestWatcher(ds)
	defer w.Close()
	require.NoError(t, w.Load(context.Background()))

	ds.ExpectedCalls = nil
	ds.On("FetchEscrowTransactions", mock.Anything, testWallet).Return(nil, nil).Once()

	var err error
	require.NotPanics(t, func() { err = w.RefreshContributions(context.Background()) })
	assert.ErrorIs(t, err, api.ErrMissingData)
	assert.Len(t, board.Snapshot().Lists[render.TargetContributions], 2)
	assert.Len(t, w.Snapshot().Contributions.Transactions, 2)
	assert.Equal(t, StateReady, w.State())
}

func TestPauseResume_SingleTimer(t *testing.T) {
	ds := new(MockDataSource)
	expectHappyLoad(ds, 200)
	w, board := newTestWatcher(ds)
	defer w.Close()

	require.NoError(t, w.Load(context.Background()))
	require.Equal(t, 1, w.ActiveTimers())

	for i := 0; i < 5; i++ {
		w.Pause()
		w.Pause()
		assert.Equal(t, 0, w.ActiveTimers())
		assert.Equal(t, StateIdle, w.State())

		w.Resume()
		w.Resume()
		assert.Equal(t, 1, w.ActiveTimers())
		assert.Equal(t, StateReady, w.State())
	}

	w.Pause()
	assert.Equal(t, "Moon Dog", board.Text(render.TargetTokenName), "pause keeps the display state")
	assert.NotNil(t, w.Snapshot().Campaign)

	w.Close()
	w.Resume()
	assert.Equal(t, 0, w.ActiveTimers())
}

func TestResume_WithoutCampaign(t *testing.T) {
	w, _ := newTestWatcher(new(MockDataSource))
	w.Pause()
	w.Resume()
	assert.Equal(t, 0, w.ActiveTimers())
	assert.Equal(t, StateIdle, w.State())
}

func TestPollingLoop(t *testing.T) {
	ds := new(MockDataSource)
	var priceCalls atomic.Int32
	ds.On("FetchCampaignDetail", mock.Anything, testContract).Return(campaignResponse("Moon Dog"), nil)
	ds.On("FetchCampaignQR", mock.Anything, mock.Anything).Return(nil, api.ErrMissingData)
	ds.On("FetchEscrowTransactions", mock.Anything, mock.Anything).Return(contributionSet(), nil)
	ds.On("FetchEscrowBalance", mock.Anything, mock.Anything, mock.Anything).Return(nil, api.ErrMissingData)
	ds.On("FetchPrice", mock.Anything).
		Run(func(args mock.Arguments) { priceCalls.Add(1) }).
		Return(&models.PriceQuote{USD: 200}, nil)

	board := render.NewBoard()
	w := New(ds, board, Options{
		ContractAddress: testContract,
		PollInterval:    10 * time.Millisecond,
		DefaultPrice:    180,
	})
	defer w.Close()

	require.NoError(t, w.Load(context.Background()))
	assert.Eventually(t, func() bool { return priceCalls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	w.Pause()
	paused := priceCalls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.LessOrEqual(t, priceCalls.Load()-paused, int32(1))
}

func TestClose_RejectsLoad(t *testing.T) {
	w, _ := newTestWatcher(new(MockDataSource))
	w.Close()
	assert.True(t, errors.Is(w.Load(context.Background()), ErrClosed))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "refreshing", StateRefreshing.String())
	assert.Equal(t, "failed", StateFailed.String())
}

func TestStartClock(t *testing.T) {
	w, board := newTestWatcher(new(MockDataSource))
	defer w.Close()
	sub := w.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.StartClock(ctx)

	assert.Equal(t, "2025-08-19 12:00:00 GMT", board.Text(render.TargetCurrentTime))

	select {
	case ev := <-sub:
		assert.Equal(t, EventClockTick, ev.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("no clock tick")
	}
}
