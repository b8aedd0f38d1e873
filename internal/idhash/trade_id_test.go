package idhash

import (
	"testing"
)

func TestComputeTradeID(t *testing.T) {
	tests := []struct {
		name           string
		chainID        string
		pairAddress    string
		symbol         string
		openedUnixNano int64
		wantLen        int // hash length should be 64
	}{
		{
			name:           "basic trade",
			chainID:        "solana",
			pairAddress:    "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
			symbol:         "WIF",
			openedUnixNano: 1704067234567000000,
			wantLen:        64,
		},
		{
			name:           "reopened pair gets distinct id",
			chainID:        "solana",
			pairAddress:    "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
			symbol:         "WIF",
			openedUnixNano: 1704067300000000000,
			wantLen:        64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTradeID(tt.chainID, tt.pairAddress, tt.symbol, tt.openedUnixNano)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeTradeID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeTradeID(tt.chainID, tt.pairAddress, tt.symbol, tt.openedUnixNano)
			if got != got2 {
				t.Errorf("ComputeTradeID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeTradeID_Determinism(t *testing.T) {
	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		results[i] = ComputeTradeID("solana", "PairAddr", "GEM", 1704067234567000000)
	}

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Errorf("Determinism failed: results[%d]=%s != results[0]=%s", i, results[i], results[0])
		}
	}
}

func TestComputeTradeID_DifferentInputs(t *testing.T) {
	base := ComputeTradeID("solana", "Pair", "GEM", 1000)

	// Different pair should produce different hash
	diffPair := ComputeTradeID("solana", "OtherPair", "GEM", 1000)
	if base == diffPair {
		t.Error("Different pair should produce different hash")
	}

	// Different symbol should produce different hash
	diffSymbol := ComputeTradeID("solana", "Pair", "OTHER", 1000)
	if base == diffSymbol {
		t.Error("Different symbol should produce different hash")
	}

	// Different open time should produce different hash
	diffTime := ComputeTradeID("solana", "Pair", "GEM", 2000)
	if base == diffTime {
		t.Error("Different open time should produce different hash")
	}
}
