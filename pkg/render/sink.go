package render

import "sync"

// Display targets written by the render functions.
const (
	TargetTokenName       = "tokenName"
	TargetTokenImage      = "tokenImage"
	TargetTimeLeft        = "timeLeft"
	TargetTwitterLink     = "twitterLink"
	TargetWebsiteLink     = "websiteLink"
	TargetContractAddress = "contractAddress"
	TargetLaunchpadLink   = "launchpadLink"

	TargetCampaignType  = "campaignType"
	TargetProgressText  = "progressText"
	TargetNeededAmount  = "neededAmount"
	TargetLivePrice     = "livePrice"
	TargetSolAmount     = "solAmount"
	TargetPercentFunded = "percentFunded"
	TargetProgressBar   = "progressBar"
	TargetLastUpdated   = "lastUpdated"

	TargetContributions = "contributionsList"

	TargetContributorCount  = "contributorCount"
	TargetContributionCount = "contributionCount"
	TargetTopContributor    = "topContributor"
	TargetTopContribution   = "topContribution"
	TargetAvgContribution   = "avgContribution"
	TargetCampaignCreated   = "campaignCreated"
	TargetExpiresAt         = "expiresAt"
	TargetFundingSpeed      = "fundingSpeed"

	TargetEscrowAddress = "escrowAddress"
	TargetEscrowLink    = "escrowLink"
	TargetQRCode        = "qrCode"
	TargetQRPayload     = "qrPayload"
	TargetEscrowBalance = "escrowBalance"

	TargetLoading     = "loadingState"
	TargetMainContent = "mainContent"
	TargetError       = "errorMessage"
	TargetRetry       = "retryButton"
	TargetCurrentTime = "currentTime"

	TargetSunIcon        = "sunIcon"
	TargetMoonIcon       = "moonIcon"
	TargetMobileSunIcon  = "mobileSunIcon"
	TargetMobileMoonIcon = "mobileMoonIcon"
)

// Placeholder is rendered for missing optional values.
const Placeholder = "—"

// ListItem is one rendered contribution entry.
type ListItem struct {
	From       string  `json:"from"`
	Sender     string  `json:"sender"`
	Signature  string  `json:"signature"`
	Amount     float64 `json:"amount"`
	AmountText string  `json:"amount_text"`
	When       string  `json:"when"`
	TxURL      string  `json:"tx_url"`
	AccountURL string  `json:"account_url"`
}

// Sink is a display surface addressed by named targets. Every setter
// replaces the previous value of its target.
type Sink interface {
	SetText(target, text string)
	SetLink(target, url string)
	SetImage(target, ref string)
	SetProgress(target string, percent float64)
	SetList(target string, items []ListItem)
	SetVisible(target string, visible bool)
}

// Snapshot is a point-in-time copy of a Board.
type Snapshot struct {
	Version  uint64                `json:"version"`
	Text     map[string]string     `json:"text"`
	Links    map[string]string     `json:"links"`
	Images   map[string]string     `json:"images"`
	Progress map[string]float64    `json:"progress"`
	Lists    map[string][]ListItem `json:"lists"`
	Visible  map[string]bool       `json:"visible"`
}

// Board is an in-memory Sink safe for concurrent use. Readers poll Snapshot.
type Board struct {
	mu    sync.RWMutex
	state Snapshot
}

func NewBoard() *Board {
	return &Board{state: Snapshot{
		Text:     make(map[string]string),
		Links:    make(map[string]string),
		Images:   make(map[string]string),
		Progress: make(map[string]float64),
		Lists:    make(map[string][]ListItem),
		Visible:  make(map[string]bool),
	}}
}

func (b *Board) SetText(target, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Text[target] = text
	b.state.Version++
}

func (b *Board) SetLink(target, url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Links[target] = url
	b.state.Version++
}

func (b *Board) SetImage(target, ref string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Images[target] = ref
	b.state.Version++
}

func (b *Board) SetProgress(target string, percent float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Progress[target] = percent
	b.state.Version++
}

func (b *Board) SetList(target string, items []ListItem) {
	cp := make([]ListItem, len(items))
	copy(cp, items)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Lists[target] = cp
	b.state.Version++
}

func (b *Board) SetVisible(target string, visible bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Visible[target] = visible
	b.state.Version++
}

// Text returns the current text of target.
func (b *Board) Text(target string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Text[target]
}

// Version increases on every write.
func (b *Board) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Version
}

// Snapshot returns a deep copy of the board.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Snapshot{
		Version:  b.state.Version,
		Text:     make(map[string]string, len(b.state.Text)),
		Links:    make(map[string]string, len(b.state.Links)),
		Images:   make(map[string]string, len(b.state.Images)),
		Progress: make(map[string]float64, len(b.state.Progress)),
		Lists:    make(map[string][]ListItem, len(b.state.Lists)),
		Visible:  make(map[string]bool, len(b.state.Visible)),
	}
	for k, v := range b.state.Text {
		s.Text[k] = v
	}
	for k, v := range b.state.Links {
		s.Links[k] = v
	}
	for k, v := range b.state.Images {
		s.Images[k] = v
	}
	for k, v := range b.state.Progress {
		s.Progress[k] = v
	}
	for k, v := range b.state.Lists {
		items := make([]ListItem, len(v))
		copy(items, v)
		s.Lists[k] = items
	}
	for k, v := range b.state.Visible {
		s.Visible[k] = v
	}
	return s
}
