// Package dexscreener is the market-data adapter over the public
// DexScreener HTTP API: pair details, price lookups, search, and the
// single-poll snapshots the observer consumes.
package dexscreener

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"token-scout/internal/domain"
	"token-scout/internal/observability"
)

// ErrPairNotFound means the API answered but knows no such pair.
var ErrPairNotFound = errors.New("dexscreener: pair not found")

// API defaults.
const (
	defaultBaseURL = "https://api.dexscreener.com"
	defaultTimeout = 10 * time.Second
	retryCount     = 2
	retryWait      = 500 * time.Millisecond
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Logger  *logrus.Entry
}

// Client is a thin resty wrapper; it performs no caching and keeps no
// pair state.
type Client struct {
	client *resty.Client
	log    *logrus.Entry
}

// NewClient creates a market-data client.
func NewClient(opts Options) *Client {
	if opts.Logger == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		opts.Logger = logrus.NewEntry(silent)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryWait)

	return &Client{client: client, log: opts.Logger}
}

// PairDetails fetches the full pair record for one key.
func (c *Client) PairDetails(ctx context.Context, key domain.PairKey) (*Pair, error) {
	var out pairsResponse

	started := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/latest/dex/pairs/%s/%s", key.ChainID, key.PairAddress))
	observability.RecordCollaboratorRequest("dexscreener", time.Since(started).Seconds(), err)

	if err != nil {
		return nil, errors.Wrapf(err, "fetch pair %s", key.String())
	}
	if resp.StatusCode() != 200 {
		return nil, errors.Errorf("fetch pair %s: HTTP %d", key.String(), resp.StatusCode())
	}
	if len(out.Pairs) == 0 {
		return nil, ErrPairNotFound
	}
	return &out.Pairs[0], nil
}

// Price returns the current USD price for one pair.
func (c *Client) Price(ctx context.Context, key domain.PairKey) (float64, error) {
	pair, err := c.PairDetails(ctx, key)
	if err != nil {
		return 0, err
	}
	return pair.PriceUSDFloat(), nil
}

// Snapshot returns the observer's per-poll market state.
func (c *Client) Snapshot(ctx context.Context, key domain.PairKey) (domain.MarketSnapshot, error) {
	pair, err := c.PairDetails(ctx, key)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	return domain.MarketSnapshot{
		PriceUSD:     pair.PriceUSDFloat(),
		LiquidityUSD: pair.Liquidity.USD,
		Buys5m:       pair.Txns.M5.Buys,
		Sells5m:      pair.Txns.M5.Sells,
	}, nil
}

// Search runs a free-text pair search, newest-indexed first as the API
// returns them. An empty result is not an error.
func (c *Client) Search(ctx context.Context, query string) ([]Pair, error) {
	var out pairsResponse

	started := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetResult(&out).
		Get("/latest/dex/search")
	observability.RecordCollaboratorRequest("dexscreener", time.Since(started).Seconds(), err)

	if err != nil {
		return nil, errors.Wrapf(err, "search %q", query)
	}
	if resp.StatusCode() != 200 {
		return nil, errors.Errorf("search %q: HTTP %d", query, resp.StatusCode())
	}

	c.log.WithFields(logrus.Fields{
		"query": query,
		"pairs": len(out.Pairs),
	}).Debug("search completed")
	return out.Pairs, nil
}
