package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-scout/internal/domain"
)

// Real 32-byte program addresses double as launch fixtures.
const (
	mintA    = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	mintB    = "So11111111111111111111111111111111111111112"
	mintC    = "11111111111111111111111111111111"
	poolAddr = "SysvarRent111111111111111111111111111111111"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func quietFeed(cfg Config) *Feed {
	return New(Options{Config: cfg})
}

func TestHandleFrame_DecodesLaunchEvent(t *testing.T) {
	f := quietFeed(Config{ChainID: "solana", BufferSize: 4})

	f.handleFrame([]byte(`{
		"signature": "5sig",
		"mint": "` + mintA + `",
		"txType": "create",
		"name": "Nova Cat",
		"symbol": "NOVA",
		"pool": "` + poolAddr + `"
	}`))

	seeds := f.Drain()
	require.Len(t, seeds, 1)
	s := seeds[0]
	assert.Equal(t, domain.PairKey{ChainID: "solana", PairAddress: poolAddr}, s.Key)
	assert.Equal(t, mintA, s.TokenAddress)
	assert.Equal(t, "Nova Cat", s.Name)
	assert.Equal(t, "NOVA", s.Symbol)
	assert.Equal(t, "launch_feed", s.Source)
}

func TestHandleFrame_MintStandsInForUnindexedPool(t *testing.T) {
	f := quietFeed(Config{BufferSize: 4})

	// "pump" names the venue, not an address.
	f.handleFrame([]byte(`{"mint":"` + mintB + `","symbol":"WEN","pool":"pump"}`))

	seeds := f.Drain()
	require.Len(t, seeds, 1)
	assert.Equal(t, mintB, seeds[0].Key.PairAddress)
}

func TestHandleFrame_SkipsNonLaunchTraffic(t *testing.T) {
	f := quietFeed(Config{BufferSize: 4})

	frames := []string{
		`{"message":"Successfully subscribed to token creation events."}`,
		`{"mint":"` + mintA + `","txType":"buy"}`,
		`{"mint":"not-a-real-address","txType":"create"}`,
		`{"mint":""}`,
		`{broken json`,
	}
	for _, frame := range frames {
		f.handleFrame([]byte(frame))
	}

	assert.Empty(t, f.Drain())
}

func TestOffer_EvictsOldestOnOverflow(t *testing.T) {
	f := quietFeed(Config{BufferSize: 2})

	for _, mint := range []string{mintA, mintB, mintC} {
		f.handleFrame([]byte(`{"mint":"` + mint + `","txType":"create"}`))
	}

	seeds := f.Drain()
	require.Len(t, seeds, 2)
	assert.Equal(t, mintB, seeds[0].TokenAddress, "oldest seed must be the one evicted")
	assert.Equal(t, mintC, seeds[1].TokenAddress)
}

func TestDrain_EmptyBuffer(t *testing.T) {
	assert.Empty(t, quietFeed(Config{BufferSize: 2}).Drain())
}

func TestValidAddress(t *testing.T) {
	assert.True(t, validAddress(mintA))
	assert.True(t, validAddress(mintC))
	assert.False(t, validAddress("pump"))
	assert.False(t, validAddress("0xabc123"))
	assert.False(t, validAddress(""))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRun_SubscribesAndStreams(t *testing.T) {
	var mu sync.Mutex
	var subscribed string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub subscribeFrame
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		mu.Lock()
		subscribed = sub.Method
		mu.Unlock()

		_ = conn.WriteJSON(tokenFrame{Message: "subscribed"})
		_ = conn.WriteJSON(tokenFrame{Mint: mintA, TxType: "create", Symbol: "NOVA"})
		_ = conn.WriteJSON(tokenFrame{Mint: mintB, TxType: "create", Symbol: "WEN"})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	f := quietFeed(Config{URL: wsURL(server), BufferSize: 8})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()

	first := waitSeed(t, f)
	second := waitSeed(t, f)
	assert.Equal(t, "NOVA", first.Symbol)
	assert.Equal(t, "WEN", second.Symbol)
	assert.True(t, f.Connected())

	mu.Lock()
	assert.Equal(t, "subscribeNewToken", subscribed)
	mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	assert.False(t, f.Connected())
}

func TestRun_ReconnectsAfterDrop(t *testing.T) {
	var conns atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil { // subscribe frame
			return
		}

		n := conns.Add(1)
		if n == 1 {
			// First session serves one event, then drops.
			_ = conn.WriteJSON(tokenFrame{Mint: mintA, TxType: "create", Symbol: "ONE"})
			return
		}

		_ = conn.WriteJSON(tokenFrame{Mint: mintB, TxType: "create", Symbol: "TWO"})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	f := quietFeed(Config{
		URL:            wsURL(server),
		BufferSize:     8,
		ReconnectDelay: 10 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()

	assert.Equal(t, "ONE", waitSeed(t, f).Symbol)
	assert.Equal(t, "TWO", waitSeed(t, f).Symbol)
	assert.GreaterOrEqual(t, conns.Load(), int32(2))

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func waitSeed(t *testing.T, f *Feed) domain.Seed {
	t.Helper()
	select {
	case s := <-f.Seeds():
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for seed")
		return domain.Seed{}
	}
}
