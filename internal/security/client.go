// Package security is the GoPlus adapter. It fetches per-token
// security reports, retries while the oracle's data lags a fresh
// listing, and normalizes the chain-specific payloads into the
// domain.SecurityProfile the funnel rules run on.
package security

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"token-scout/internal/domain"
	"token-scout/internal/observability"
)

// Sentinel errors. ErrUnavailable makes the funnel reject with
// "security data unavailable"; ErrBadAddress skips the round trip
// entirely.
var (
	ErrUnavailable = errors.New("security: no data after retries")
	ErrBadAddress  = errors.New("security: malformed token address")
)

// GoPlus defaults. Fresh mints often take 30-120s to show up, hence
// the retry budget.
const (
	defaultBaseURL  = "https://api.gopluslabs.io"
	defaultTimeout  = 10 * time.Second
	defaultAttempts = 3
	defaultWait     = 2 * time.Second
)

// Options configures a Client.
type Options struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RetryAttempts int
	RetryWait     time.Duration
	Logger        *logrus.Entry
}

// Client queries GoPlus and owns the lag-retry policy.
type Client struct {
	client   *resty.Client
	log      *logrus.Entry
	attempts int
	wait     time.Duration
}

// NewClient creates a security oracle client.
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
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = defaultAttempts
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = defaultWait
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout)
	if opts.APIKey != "" {
		client.SetHeader("Authorization", opts.APIKey)
	}

	return &Client{
		client:   client,
		log:      opts.Logger,
		attempts: opts.RetryAttempts,
		wait:     opts.RetryWait,
	}
}

// Profile fetches and normalizes the security report for one token.
func (c *Client) Profile(ctx context.Context, chainID, tokenAddress string) (*domain.SecurityProfile, error) {
	if strings.EqualFold(chainID, "solana") {
		if !validSolanaAddress(tokenAddress) {
			return nil, ErrBadAddress
		}
		return c.solanaProfile(ctx, tokenAddress)
	}
	return c.evmProfile(ctx, chainID, tokenAddress)
}

func (c *Client) solanaProfile(ctx context.Context, tokenAddress string) (*domain.SecurityProfile, error) {
	var profile *domain.SecurityProfile

	err := c.withRetries(ctx, tokenAddress, func() (bool, error) {
		var out solanaResponse
		resp, err := c.request(ctx, &out, "/api/v1/solana/token_security", tokenAddress)
		if err != nil {
			return false, err
		}
		if resp.StatusCode() != 200 || out.Code != 1 {
			return false, nil
		}
		raw, ok := lookupSolana(out.Result, tokenAddress)
		if !ok {
			return false, nil
		}
		profile = normalizeSolana(raw)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (c *Client) evmProfile(ctx context.Context, chainID, tokenAddress string) (*domain.SecurityProfile, error) {
	var profile *domain.SecurityProfile

	err := c.withRetries(ctx, tokenAddress, func() (bool, error) {
		var out evmResponse
		resp, err := c.request(ctx, &out, "/api/v1/token_security/"+chainID, tokenAddress)
		if err != nil {
			return false, err
		}
		if resp.StatusCode() != 200 || out.Code != 1 {
			return false, nil
		}
		raw, ok := lookupEVM(out.Result, tokenAddress)
		if !ok {
			return false, nil
		}
		profile = normalizeEVM(raw)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// request runs one GoPlus call and records its latency.
func (c *Client) request(ctx context.Context, out any, path, tokenAddress string) (*resty.Response, error) {
	started := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("contract_addresses", tokenAddress).
		SetResult(out).
		Get(path)
	observability.RecordCollaboratorRequest("goplus", time.Since(started).Seconds(), err)
	return resp, err
}

// withRetries runs attempt until it reports success, waiting between
// tries. Transport errors and empty results both count as a miss: the
// oracle frequently has nothing yet for a seconds-old token.
func (c *Client) withRetries(ctx context.Context, tokenAddress string, attempt func() (bool, error)) error {
	for i := 0; i < c.attempts; i++ {
		ok, err := attempt()
		if ok {
			return nil
		}
		if err != nil {
			c.log.WithError(err).WithField("token", tokenAddress).Warn("security request failed")
		}

		if i == c.attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.wait):
		}
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrUnavailable, tokenAddress, c.attempts)
}

// lookupSolana finds the result entry; GoPlus keys by the address as
// submitted or lowercased depending on chain and version.
func lookupSolana(m map[string]solanaToken, addr string) (solanaToken, bool) {
	if v, ok := m[addr]; ok {
		return v, true
	}
	v, ok := m[strings.ToLower(addr)]
	return v, ok
}

func lookupEVM(m map[string]evmToken, addr string) (evmToken, bool) {
	if v, ok := m[strings.ToLower(addr)]; ok {
		return v, true
	}
	v, ok := m[addr]
	return v, ok
}

// validSolanaAddress reports whether addr is a well-formed 32-byte
// base58 public key.
func validSolanaAddress(addr string) bool {
	raw, err := base58.Decode(addr)
	return err == nil && len(raw) == 32
}
