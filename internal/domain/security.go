package domain

// HolderStake is one entry in a ranked top-holder list.
type HolderStake struct {
	Address string
	Percent float64 // share of total supply, 15 means 15%
}

// SecurityProfile is the chain-agnostic shape of a token security report.
// Chain-specific payload layouts are normalized into this struct by the
// security adapter before any rule in the funnel sees them.
type SecurityProfile struct {
	// Hard-fail flags
	Honeypot    bool // selling is blocked or transfers disabled
	Mintable    bool // supply can still be inflated
	Blacklisted bool // blacklist or freeze authority is active
	OpenSource  bool // contract source verified (always true on Solana)

	// Ownership
	OwnerAddress         string
	CanTakeBackOwnership bool

	// Trading taxes in percent (8 means 8%)
	BuyTaxPct  float64
	SellTaxPct float64

	// Distribution
	HolderCount int
	TopHolders  []HolderStake // ranked, largest first
}

// TopHolderPct returns the largest single holder's supply share,
// 0 when the holder list is empty.
func (p *SecurityProfile) TopHolderPct() float64 {
	if len(p.TopHolders) == 0 {
		return 0
	}
	return p.TopHolders[0].Percent
}

// TopHoldersPct sums the supply share of the top n holders.
func (p *SecurityProfile) TopHoldersPct(n int) float64 {
	if n > len(p.TopHolders) {
		n = len(p.TopHolders)
	}
	var sum float64
	for _, h := range p.TopHolders[:n] {
		sum += h.Percent
	}
	return sum
}
