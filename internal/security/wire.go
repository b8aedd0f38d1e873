package security

import (
	"sort"
	"strconv"
	"strings"

	"token-scout/internal/domain"
)

// GoPlus mixes JSON numbers and numeric strings across chains and
// versions; flexNumber accepts both and treats garbage as zero.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexNumber(v)
	return nil
}

// wireHolder is one ranked holder entry. Percent arrives as a supply
// fraction (0.15 means 15%).
type wireHolder struct {
	Address string     `json:"address"`
	Percent flexNumber `json:"percent"`
}

// solanaAuthority is GoPlus's {status, authority} block for SPL
// token privileges.
type solanaAuthority struct {
	Status flexNumber `json:"status"`
}

// solanaToken is the Solana token_security result shape.
type solanaToken struct {
	NonTransferable flexNumber      `json:"non_transferable"`
	Mintable        solanaAuthority `json:"mintable"`
	Freezable       solanaAuthority `json:"freezable"`
	HolderCount     flexNumber      `json:"holder_count"`
	Holders         []wireHolder    `json:"holders"`
}

// evmToken is the EVM token_security result shape.
type evmToken struct {
	IsHoneypot           flexNumber   `json:"is_honeypot"`
	IsMintable           flexNumber   `json:"is_mintable"`
	IsBlacklisted        flexNumber   `json:"is_blacklisted"`
	IsOpenSource         flexNumber   `json:"is_open_source"` // missing means unverified
	BuyTax               flexNumber   `json:"buy_tax"`
	SellTax              flexNumber   `json:"sell_tax"`
	OwnerAddress         string       `json:"owner_address"`
	CanTakeBackOwnership flexNumber   `json:"can_take_back_ownership"`
	HolderCount          flexNumber   `json:"holder_count"`
	Holders              []wireHolder `json:"holders"`
}

type solanaResponse struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Result  map[string]solanaToken `json:"result"`
}

type evmResponse struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Result  map[string]evmToken `json:"result"`
}

// normalizeSolana maps the SPL shape onto the chain-agnostic profile.
// Solana has no source-verification concept, so OpenSource is always
// true, and SPL transfer logic carries no taxes.
func normalizeSolana(raw solanaToken) *domain.SecurityProfile {
	return &domain.SecurityProfile{
		Honeypot:    raw.NonTransferable == 1,
		Mintable:    raw.Mintable.Status == 1,
		Blacklisted: raw.Freezable.Status == 1,
		OpenSource:  true,
		HolderCount: int(raw.HolderCount),
		TopHolders:  normalizeHolders(raw.Holders),
	}
}

// normalizeEVM maps the EVM shape onto the profile. A missing
// is_open_source stays unverified; taxes arrive as fractions and are
// converted to percent.
func normalizeEVM(raw evmToken) *domain.SecurityProfile {
	return &domain.SecurityProfile{
		Honeypot:             raw.IsHoneypot == 1,
		Mintable:             raw.IsMintable == 1,
		Blacklisted:          raw.IsBlacklisted == 1,
		OpenSource:           raw.IsOpenSource == 1,
		OwnerAddress:         raw.OwnerAddress,
		CanTakeBackOwnership: raw.CanTakeBackOwnership == 1,
		BuyTaxPct:            float64(raw.BuyTax) * 100,
		SellTaxPct:           float64(raw.SellTax) * 100,
		HolderCount:          int(raw.HolderCount),
		TopHolders:           normalizeHolders(raw.Holders),
	}
}

// normalizeHolders converts supply fractions to percents and ranks
// largest first, the ordering SecurityProfile.TopHolders guarantees.
func normalizeHolders(raw []wireHolder) []domain.HolderStake {
	if len(raw) == 0 {
		return nil
	}
	out := make([]domain.HolderStake, len(raw))
	for i, h := range raw {
		out[i] = domain.HolderStake{
			Address: h.Address,
			Percent: float64(h.Percent) * 100,
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Percent > out[j].Percent })
	return out
}
