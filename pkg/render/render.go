// Package render projects campaign snapshots onto a Sink. It performs no I/O
// and keeps no state between calls; rendering the same snapshot twice writes
// the same values.
package render

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"campwatch/pkg/models"
	"campwatch/pkg/utils"
)

// Progress holds the values derived from a campaign and a price.
type Progress struct {
	Current      float64 `json:"current"`
	Goal         float64 `json:"goal"`
	Needed       float64 `json:"needed"`
	Percent      float64 `json:"percent"`
	NativeAmount float64 `json:"native_amount"`
}

// ComputeProgress derives funding progress. Percent is clamped to [0,100] and
// Needed to >= 0. A campaign without a positive goal counts as fully funded.
func ComputeProgress(c models.Campaign, price float64) Progress {
	p := Progress{
		Current: c.CurrentBalance,
		Goal:    c.GoalAmount,
		Needed:  math.Max(0, c.GoalAmount-c.CurrentBalance),
	}
	if c.GoalAmount > 0 {
		p.Percent = math.Min(100, c.CurrentBalance/c.GoalAmount*100)
	} else {
		p.Percent = 100
	}
	p.Percent = math.Max(0, p.Percent)
	if price > 0 {
		p.NativeAmount = c.CurrentBalance / price
	}
	return p
}

// Stats holds the contribution statistics panel values.
type Stats struct {
	ContributorCount  int     `json:"contributor_count"`
	ContributionCount int     `json:"contribution_count"`
	TopContributor    string  `json:"top_contributor"`
	TopContribution   float64 `json:"top_contribution"`
	Total             float64 `json:"total"`
	Average           float64 `json:"average"`
	AverageFiat       float64 `json:"average_fiat"`
	FundingPerHour    float64 `json:"funding_per_hour"`
	TxPerHour         float64 `json:"tx_per_hour"`
}

// ComputeStats derives contribution statistics. A nil set yields zeroed
// contribution figures. The top contributor is the first transaction holding
// the maximum amount.
func ComputeStats(c models.Campaign, set *models.ContributionSet, price float64, now time.Time) Stats {
	s := Stats{ContributorCount: c.ContributorCount}

	if set != nil {
		s.ContributionCount = set.TransactionCount
		for i, tx := range set.Transactions {
			s.Total += tx.Amount
			if i == 0 || tx.Amount > s.TopContribution {
				s.TopContribution = tx.Amount
				s.TopContributor = tx.From
			}
		}
		if set.TransactionCount > 0 {
			s.Average = s.Total / float64(set.TransactionCount)
		}
	}
	s.AverageFiat = s.Average * price

	hours := math.Max(1, now.Sub(c.CreatedAt.Time).Hours())
	s.FundingPerHour = c.CurrentBalance / hours
	s.TxPerHour = float64(s.ContributionCount) / hours
	return s
}

// Renderer writes campaign snapshots to a Sink.
type Renderer struct {
	Sink         Sink
	ExplorerURL  string
	LaunchpadURL string
	Now          func() time.Time
}

// NewRenderer creates a Renderer using the wall clock.
func NewRenderer(sink Sink, explorerURL, launchpadURL string) *Renderer {
	return &Renderer{
		Sink:         sink,
		ExplorerURL:  explorerURL,
		LaunchpadURL: launchpadURL,
		Now:          time.Now,
	}
}

func (r *Renderer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// TxURL links a transaction signature on the explorer.
func (r *Renderer) TxURL(signature string) string {
	return utils.JoinURL(r.ExplorerURL, "tx", signature)
}

// AccountURL links an account on the explorer.
func (r *Renderer) AccountURL(address string) string {
	return utils.JoinURL(r.ExplorerURL, "account", address)
}

// LaunchpadLink links the token on the launchpad.
func (r *Renderer) LaunchpadLink(contract string) string {
	return utils.JoinURL(r.LaunchpadURL, contract)
}

func linkOrPlaceholder(u string) string {
	if u == "" {
		return "#"
	}
	return u
}

func (r *Renderer) RenderCampaignHeader(c models.Campaign) {
	s := r.Sink
	s.SetText(TargetTokenName, c.Name)
	s.SetImage(TargetTokenImage, c.ImageURL)
	s.SetText(TargetTimeLeft, utils.TimeLeft(c.ExpiresAt.Time, r.now()))
	s.SetLink(TargetTwitterLink, linkOrPlaceholder(c.SocialTwitter))
	s.SetLink(TargetWebsiteLink, linkOrPlaceholder(c.SocialWebsite))
	s.SetText(TargetContractAddress, c.ContractAddress)
	s.SetLink(TargetLaunchpadLink, r.LaunchpadLink(c.ContractAddress))
}

func (r *Renderer) RenderProgress(c models.Campaign, price float64) Progress {
	p := ComputeProgress(c, price)
	s := r.Sink
	s.SetText(TargetCampaignType, c.CampaignType)
	s.SetText(TargetProgressText, fmt.Sprintf("%d / %s", utils.Round(p.Current), utils.FormatPlain(p.Goal)))
	s.SetText(TargetNeededAmount, fmt.Sprintf("%d needed", utils.Round(p.Needed)))
	s.SetText(TargetLivePrice, fmt.Sprintf("Live: %s/SOL", utils.FormatPlain(price)))
	s.SetText(TargetSolAmount, fmt.Sprintf("%.4f SOL", p.NativeAmount))
	s.SetText(TargetPercentFunded, fmt.Sprintf("%d%% funded", utils.Round(p.Percent)))
	s.SetProgress(TargetProgressBar, p.Percent)
	s.SetText(TargetLastUpdated, utils.FormatUpdated(r.now()))
	return p
}

// RenderContributions replaces the contribution list. A nil set clears it.
func (r *Renderer) RenderContributions(set *models.ContributionSet) {
	items := []ListItem{}
	if set != nil {
		for _, tx := range set.Transactions {
			items = append(items, ListItem{
				From:       tx.From,
				Sender:     utils.ShortAddress(tx.From),
				Signature:  tx.Signature,
				Amount:     tx.Amount,
				AmountText: fmt.Sprintf("%.4f SOL", tx.Amount),
				When:       utils.FormatTimestamp(tx.Timestamp),
				TxURL:      r.TxURL(tx.Signature),
				AccountURL: r.AccountURL(tx.From),
			})
		}
	}
	r.Sink.SetList(TargetContributions, items)
}

func (r *Renderer) RenderCampaignStats(c models.Campaign, set *models.ContributionSet, price float64) Stats {
	st := ComputeStats(c, set, price, r.now())
	s := r.Sink
	s.SetText(TargetContributorCount, strconv.Itoa(st.ContributorCount))
	s.SetText(TargetContributionCount, strconv.Itoa(st.ContributionCount))
	s.SetText(TargetTopContributor, utils.TruncateAddress(st.TopContributor, 5, 6))
	s.SetText(TargetTopContribution, fmt.Sprintf("%.2f SOL", st.TopContribution))
	s.SetText(TargetAvgContribution, fmt.Sprintf("%.2f", st.AverageFiat))
	s.SetText(TargetCampaignCreated, utils.FormatDateTime(c.CreatedAt.Time))
	s.SetText(TargetExpiresAt, utils.FormatDateTime(c.ExpiresAt.Time))
	s.SetText(TargetFundingSpeed, fmt.Sprintf("%d/h (%.1f tx/h)", utils.Round(st.FundingPerHour), st.TxPerHour))
	return st
}

// RenderEscrowWallet shows the escrow address and QR. A nil qr clears the
// QR targets.
func (r *Renderer) RenderEscrowWallet(c models.Campaign, qr *models.QRCode) {
	s := r.Sink
	s.SetText(TargetEscrowAddress, c.WalletAddress)
	s.SetLink(TargetEscrowLink, r.AccountURL(c.WalletAddress))
	if qr == nil {
		s.SetImage(TargetQRCode, "")
		s.SetText(TargetQRPayload, "")
		return
	}
	s.SetImage(TargetQRCode, qr.Image)
	s.SetText(TargetQRPayload, qr.SolanaPayURI)
}

func (r *Renderer) RenderEscrowBalance(b *models.EscrowBalanceSnapshot) {
	if b == nil {
		r.Sink.SetText(TargetEscrowBalance, Placeholder)
		return
	}
	r.Sink.SetText(TargetEscrowBalance, fmt.Sprintf("%.4f SOL ($%s)", b.BalanceSOL, utils.FormatFloat(b.BalanceUSD, 2)))
}

func (r *Renderer) RenderClock() {
	r.Sink.SetText(TargetCurrentTime, utils.FormatClock(r.now()))
}

// ShowLoading replaces whatever is on screen with the loading surface.
func (r *Renderer) ShowLoading() {
	s := r.Sink
	s.SetVisible(TargetLoading, true)
	s.SetVisible(TargetMainContent, false)
	s.SetVisible(TargetError, false)
	s.SetVisible(TargetRetry, false)
}

func (r *Renderer) ShowContent() {
	s := r.Sink
	s.SetVisible(TargetLoading, false)
	s.SetVisible(TargetError, false)
	s.SetVisible(TargetRetry, false)
	s.SetVisible(TargetMainContent, true)
}

// ShowError replaces the loading surface with an error panel and a retry
// affordance.
func (r *Renderer) ShowError(err error) {
	s := r.Sink
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	s.SetText(TargetError, msg)
	s.SetVisible(TargetLoading, false)
	s.SetVisible(TargetMainContent, false)
	s.SetVisible(TargetError, true)
	s.SetVisible(TargetRetry, true)
}
