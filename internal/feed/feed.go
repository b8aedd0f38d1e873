// Package feed streams new-token launch events from a websocket
// endpoint and buffers them as seeds for the scanner. The feed is
// optional: when disabled the scanner runs on search results alone.
package feed

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"token-scout/internal/domain"
	"token-scout/internal/observability"
)

// sourceName tags seeds produced by this package.
const sourceName = "launch_feed"

// Default connection behavior.
const (
	defaultBufferSize        = 256
	defaultReconnectDelay    = 1 * time.Second
	defaultMaxReconnectDelay = 30 * time.Second
	defaultPingInterval      = 30 * time.Second
	defaultReadTimeout       = 60 * time.Second
	defaultWriteTimeout      = 10 * time.Second
	defaultHandshakeTimeout  = 10 * time.Second
)

// Config holds feed connection settings.
type Config struct {
	// URL is the wss:// endpoint of the launch stream.
	URL string
	// ChainID is stamped on every seed the feed emits.
	ChainID string
	// BufferSize caps the seed channel; on overflow the oldest
	// buffered seed is evicted.
	BufferSize int

	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	HandshakeTimeout  time.Duration
}

// DefaultConfig returns the default feed configuration.
func DefaultConfig() Config {
	return Config{
		ChainID:           "solana",
		BufferSize:        defaultBufferSize,
		ReconnectDelay:    defaultReconnectDelay,
		MaxReconnectDelay: defaultMaxReconnectDelay,
		PingInterval:      defaultPingInterval,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		HandshakeTimeout:  defaultHandshakeTimeout,
	}
}

// Options configures a Feed.
type Options struct {
	Config Config
	Logger *logrus.Entry
}

// Feed maintains the websocket session and owns the seed buffer. Run
// is the only writer to the buffer; the scanner drains it between
// cycles.
type Feed struct {
	cfg   Config
	log   *logrus.Entry
	seeds chan domain.Seed

	connected atomic.Bool
}

// New creates a feed. Run must be called for seeds to flow.
func New(opts Options) *Feed {
	if opts.Logger == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		opts.Logger = logrus.NewEntry(silent)
	}
	cfg := opts.Config
	if cfg.ChainID == "" {
		cfg.ChainID = "solana"
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = defaultMaxReconnectDelay
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}

	return &Feed{
		cfg:   cfg,
		log:   opts.Logger,
		seeds: make(chan domain.Seed, cfg.BufferSize),
	}
}

// Connected reports whether a session is currently established.
func (f *Feed) Connected() bool {
	return f.connected.Load()
}

// Seeds exposes the buffered seed channel for non-blocking reads.
func (f *Feed) Seeds() <-chan domain.Seed {
	return f.seeds
}

// Drain empties the buffer and returns the seeds in arrival order.
func (f *Feed) Drain() []domain.Seed {
	var out []domain.Seed
	for {
		select {
		case s := <-f.seeds:
			out = append(out, s)
		default:
			return out
		}
	}
}

// Run connects and reads until ctx is cancelled, reconnecting with a
// doubling backoff capped at MaxReconnectDelay. The backoff resets
// once a session delivers a frame.
func (f *Feed) Run(ctx context.Context) {
	delay := f.cfg.ReconnectDelay
	for {
		read, err := f.session(ctx)
		if ctx.Err() != nil {
			f.log.Info("launch feed stopped")
			return
		}
		if read {
			delay = f.cfg.ReconnectDelay
		}

		observability.RecordFeedReconnect()
		f.log.WithError(err).WithField("retry_in", delay.String()).Warn("launch feed disconnected")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > f.cfg.MaxReconnectDelay {
			delay = f.cfg.MaxReconnectDelay
		}
	}
}

// session dials, subscribes, and reads frames until the connection
// drops or ctx is cancelled. It reports whether any frame was read.
func (f *Feed) session(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: f.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return false, errors.Wrap(err, "feed dial")
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
	if err := conn.WriteJSON(subscribeFrame{Method: "subscribeNewToken"}); err != nil {
		return false, errors.Wrap(err, "feed subscribe")
	}

	f.connected.Store(true)
	defer f.connected.Store(false)
	f.log.WithField("url", f.cfg.URL).Info("launch feed connected")

	// The ping goroutine keeps the session alive and forces the
	// blocked read to fail fast when ctx is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(f.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-stop:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	read := false
	for {
		conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return read, errors.Wrap(err, "feed read")
		}
		read = true
		f.handleFrame(raw)
	}
}

// handleFrame decodes one message and, when it describes a launch,
// buffers a seed. Subscription acks and malformed events are skipped.
func (f *Feed) handleFrame(raw []byte) {
	var frame tokenFrame
	if err := sonic.Unmarshal(raw, &frame); err != nil {
		f.log.WithError(err).Debug("feed frame unparseable")
		return
	}

	if frame.Mint == "" {
		if frame.Message != "" {
			f.log.WithField("message", frame.Message).Debug("feed subscription acknowledged")
		}
		return
	}
	if frame.TxType != "" && frame.TxType != "create" {
		return
	}
	if !validAddress(frame.Mint) {
		f.log.WithField("mint", frame.Mint).Debug("feed event with malformed mint")
		return
	}

	observability.RecordFeedEvent()

	// Launches straight off the bonding curve often have no pool
	// indexed yet; the mint doubles as the lookup key until then.
	pair := frame.Mint
	if validAddress(frame.Pool) {
		pair = frame.Pool
	}

	f.offer(domain.Seed{
		Key:          domain.PairKey{ChainID: f.cfg.ChainID, PairAddress: pair},
		TokenAddress: frame.Mint,
		Name:         frame.Name,
		Symbol:       frame.Symbol,
		Source:       sourceName,
	})
}

// offer enqueues the seed, evicting the oldest buffered one when the
// channel is full. Only the session goroutine calls this.
func (f *Feed) offer(seed domain.Seed) {
	for {
		select {
		case f.seeds <- seed:
			return
		default:
		}
		select {
		case <-f.seeds:
			observability.RecordFeedDrop()
			f.log.Debug("feed buffer full, oldest seed dropped")
		default:
		}
	}
}

// validAddress reports whether s looks like a Solana address: base58
// text decoding to exactly 32 bytes.
func validAddress(s string) bool {
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == 32
}

// subscribeFrame is the request sent once per session.
type subscribeFrame struct {
	Method string `json:"method"`
}

// tokenFrame is the wire shape of one stream message. Launch events
// carry a mint; the subscription ack carries only a message.
type tokenFrame struct {
	Signature string `json:"signature"`
	Mint      string `json:"mint"`
	TxType    string `json:"txType"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Pool      string `json:"pool"`
	Message   string `json:"message"`
}
